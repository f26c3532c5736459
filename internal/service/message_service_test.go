package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/tawjihi-go-api/internal/dto"
	"github.com/noah-isme/tawjihi-go-api/internal/models"
	"github.com/noah-isme/tawjihi-go-api/internal/repository"
)

func newMessageFixture(t *testing.T) (MessageService, *gorm.DB) {
	t.Helper()
	db := setupServiceDB(t)
	svc := NewMessageService(
		repository.NewMessageRepository(db),
		repository.NewUserRepository(db),
		validator.New(),
		zerolog.Nop(),
	)
	return svc, db
}

func seedUsers(t *testing.T, db *gorm.DB) (models.User, models.User) {
	t.Helper()
	teacher := models.User{Name: "Layla", Email: "layla@example.com", Role: "teacher"}
	student := models.User{Name: "Omar", Email: "omar@example.com", Role: "student"}
	require.NoError(t, db.Create(&teacher).Error)
	require.NoError(t, db.Create(&student).Error)
	return teacher, student
}

func TestSendStripsMarkupFromBody(t *testing.T) {
	svc, db := newMessageFixture(t)
	teacher, student := seedUsers(t, db)

	sent, err := svc.Send(context.Background(), teacher.ID, dto.MessageSendRequest{
		RecipientID: student.ID,
		Subject:     "Reminder",
		Body:        `<script>alert(1)</script>please review <b>chapter two</b>`,
	})
	require.NoError(t, err)
	require.Equal(t, "please review chapter two", sent.Body)
}

func TestSendRejectsUnknownRecipientAndSelf(t *testing.T) {
	svc, db := newMessageFixture(t)
	teacher, _ := seedUsers(t, db)

	_, err := svc.Send(context.Background(), teacher.ID, dto.MessageSendRequest{RecipientID: 999, Subject: "x", Body: "hello"})
	require.ErrorIs(t, err, ErrRecipientNotFound)

	_, err = svc.Send(context.Background(), teacher.ID, dto.MessageSendRequest{RecipientID: teacher.ID, Subject: "x", Body: "hello"})
	require.ErrorIs(t, err, ErrSelfMessage)
}

func TestMarkReadIsRecipientOnly(t *testing.T) {
	svc, db := newMessageFixture(t)
	teacher, student := seedUsers(t, db)

	sent, err := svc.Send(context.Background(), teacher.ID, dto.MessageSendRequest{
		RecipientID: student.ID,
		Subject:     "Quiz",
		Body:        "Quiz is published.",
	})
	require.NoError(t, err)

	_, err = svc.MarkRead(context.Background(), teacher.ID, sent.ID)
	require.ErrorIs(t, err, ErrMessageForbidden)

	read, err := svc.MarkRead(context.Background(), student.ID, sent.ID)
	require.NoError(t, err)
	require.True(t, read.Read)

	count, err := svc.UnreadCount(context.Background(), student.ID)
	require.NoError(t, err)
	require.Zero(t, count)
}

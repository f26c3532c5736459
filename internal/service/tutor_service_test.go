package service

import (
	"context"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/tawjihi-go-api/internal/dto"
	"github.com/noah-isme/tawjihi-go-api/internal/models"
	"github.com/noah-isme/tawjihi-go-api/internal/repository"
	"github.com/noah-isme/tawjihi-go-api/pkg/ai"
)

type stubCompleter struct {
	calls  int
	result ai.ChatResult
}

func (s *stubCompleter) Complete(_ context.Context, _ string, excerpts []ai.Excerpt) ai.ChatResult {
	s.calls++
	result := s.result
	result.InScope = len(excerpts) > 0
	return result
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Lesson{},
		&models.Enrollment{},
		&models.Quiz{},
		&models.ChatLog{},
		&models.Payment{},
		&models.Message{},
	))
	return db
}

func newTutorFixture(t *testing.T, completer ChatCompleter) (TutorService, *gorm.DB) {
	t.Helper()
	db := setupServiceDB(t)
	svc := NewTutorService(
		repository.NewLessonRepository(db),
		repository.NewCourseRepository(db),
		repository.NewEnrollmentRepository(db),
		repository.NewChatLogRepository(db),
		completer,
		nil,
		nil,
		TutorConfig{MaxMessageChars: 800, MaxLessons: 1, MaxContextChars: 400},
		validator.New(),
		zerolog.Nop(),
	)
	return svc, db
}

func seedBiologyCourse(t *testing.T, db *gorm.DB, userID uint) {
	t.Helper()
	course := models.Course{Name: "Biology", Subject: "science"}
	require.NoError(t, db.Create(&course).Error)
	lesson := models.Lesson{CourseID: course.ID, Name: "Photosynthesis", ContentText: "Photosynthesis converts light into chemical energy."}
	require.NoError(t, db.Create(&lesson).Error)
	require.NoError(t, db.Create(&models.Enrollment{UserID: userID, CourseID: course.ID}).Error)
}

func TestChatRejectsStudentsWithoutEnrollments(t *testing.T) {
	stub := &stubCompleter{}
	svc, _ := newTutorFixture(t, stub)

	_, err := svc.Chat(context.Background(), 1, dto.ChatRequest{Message: "photosynthesis details please"})
	require.ErrorIs(t, err, ErrNoEnrolledCourses)
	require.Zero(t, stub.calls)
}

func TestChatRejectsCourseOutsideEnrollments(t *testing.T) {
	stub := &stubCompleter{}
	svc, db := newTutorFixture(t, stub)
	seedBiologyCourse(t, db, 1)

	other := uint(999)
	_, err := svc.Chat(context.Background(), 1, dto.ChatRequest{Message: "photosynthesis details please", CourseID: &other})
	require.ErrorIs(t, err, ErrNotEnrolled)
	require.Zero(t, stub.calls)
}

func TestChatRejectsOversizedMessage(t *testing.T) {
	stub := &stubCompleter{}
	svc, db := newTutorFixture(t, stub)
	seedBiologyCourse(t, db, 1)

	_, err := svc.Chat(context.Background(), 1, dto.ChatRequest{Message: strings.Repeat("a", 801)})
	require.ErrorIs(t, err, ErrMessageTooLong)
	require.Zero(t, stub.calls)
}

func TestChatOutOfScopeSkipsGeneration(t *testing.T) {
	stub := &stubCompleter{}
	svc, db := newTutorFixture(t, stub)
	// enrolled, but the only lesson has no text to assemble
	course := models.Course{Name: "Empty course"}
	require.NoError(t, db.Create(&course).Error)
	require.NoError(t, db.Create(&models.Lesson{CourseID: course.ID, Name: "Blank"}).Error)
	require.NoError(t, db.Create(&models.Enrollment{UserID: 1, CourseID: course.ID}).Error)

	response, err := svc.Chat(context.Background(), 1, dto.ChatRequest{Message: "anything at all here"})
	require.NoError(t, err)
	require.False(t, response.InScope)
	require.Nil(t, response.Answer)
	require.Zero(t, stub.calls, "no external call when out of scope")
}

func TestChatAnswersAndPersistsLog(t *testing.T) {
	stub := &stubCompleter{result: ai.ChatResult{
		Answer:       "الضوء يتحول إلى طاقة كيميائية",
		Model:        "test-model",
		TokensApprox: 12,
		Citations:    []ai.Citation{{LessonID: 1, CourseID: 1}},
	}}
	svc, db := newTutorFixture(t, stub)
	seedBiologyCourse(t, db, 4)

	response, err := svc.Chat(context.Background(), 4, dto.ChatRequest{Message: "explain photosynthesis simply"})
	require.NoError(t, err)
	require.True(t, response.InScope)
	require.NotNil(t, response.Answer)
	require.Equal(t, 1, stub.calls)

	var logs []models.ChatLog
	require.NoError(t, db.Where("user_id = ?", 4).Find(&logs).Error)
	require.Len(t, logs, 1)
	require.True(t, logs[0].InScope)
	require.Equal(t, "test-model", logs[0].Model)

	history, err := svc.History(context.Background(), 4, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestChatDegradedDetailExposure(t *testing.T) {
	db := setupServiceDB(t)
	seedBiologyCourse(t, db, 1)

	build := func(expose bool) TutorService {
		return NewTutorService(
			repository.NewLessonRepository(db),
			repository.NewCourseRepository(db),
			repository.NewEnrollmentRepository(db),
			repository.NewChatLogRepository(db),
			&stubCompleter{result: ai.ChatResult{Answer: "sorry", Degraded: true, Detail: "connection refused"}},
			nil,
			nil,
			TutorConfig{MaxMessageChars: 800, MaxLessons: 1, MaxContextChars: 400, ExposeFailureDetail: expose},
			validator.New(),
			zerolog.Nop(),
		)
	}

	response, err := build(true).Chat(context.Background(), 1, dto.ChatRequest{Message: "photosynthesis details please"})
	require.NoError(t, err)
	require.True(t, response.Degraded)
	require.Equal(t, "connection refused", response.Detail)

	response, err = build(false).Chat(context.Background(), 1, dto.ChatRequest{Message: "photosynthesis details please"})
	require.NoError(t, err)
	require.True(t, response.Degraded)
	require.Empty(t, response.Detail, "production mode keeps the failure reason internal")
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/tawjihi-go-api/internal/models"
)

func TestQuizRepositoryFindRecentDraftMatchesWindowAndHash(t *testing.T) {
	db := setupTestDB(t)
	repo := NewQuizRepository(db)

	fresh := models.Quiz{TeacherID: 7, LessonID: 3, CourseID: 1, Title: "Fresh draft", Status: models.QuizStatusDraft, SourceTextHash: "hash-a", CreatedAt: time.Now().Add(-5 * time.Minute)}
	stale := models.Quiz{TeacherID: 7, LessonID: 3, CourseID: 1, Title: "Stale draft", Status: models.QuizStatusDraft, SourceTextHash: "hash-a", CreatedAt: time.Now().Add(-2 * time.Hour)}
	published := models.Quiz{TeacherID: 7, LessonID: 3, CourseID: 1, Title: "Published", Status: models.QuizStatusPublished, SourceTextHash: "hash-a", CreatedAt: time.Now().Add(-1 * time.Minute)}
	require.NoError(t, db.Create(&fresh).Error)
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Create(&published).Error)

	since := time.Now().Add(-30 * time.Minute)

	found, err := repo.FindRecentDraft(context.Background(), 7, 3, "hash-a", since)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, "Fresh draft", found.Title)

	found, err = repo.FindRecentDraft(context.Background(), 7, 3, "hash-other", since)
	require.NoError(t, err)
	require.Nil(t, found)

	found, err = repo.FindRecentDraft(context.Background(), 99, 3, "hash-a", since)
	require.NoError(t, err)
	require.Nil(t, found)
}

func TestQuizRepositoryListPublishedByLessonExcludesDrafts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewQuizRepository(db)

	draft := models.Quiz{TeacherID: 11, LessonID: 42, CourseID: 2, Title: "Draft", Status: models.QuizStatusDraft}
	live := models.Quiz{TeacherID: 11, LessonID: 42, CourseID: 2, Title: "Live", Status: models.QuizStatusPublished}
	require.NoError(t, db.Create(&draft).Error)
	require.NoError(t, db.Create(&live).Error)

	quizzes, err := repo.ListPublishedByLesson(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, quizzes, 1)
	require.Equal(t, "Live", quizzes[0].Title)
}

func setupTestDB(t *testing.T) *gorm.DB {
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

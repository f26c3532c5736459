package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/tawjihi-go-api/internal/models"
)

func TestCourseRepositoryGetByIDReturnsRecord(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCourseRepository(db)

	course := models.Course{Name: "الأحياء", Grade: "12", Subject: "science", Price: 49.9}
	require.NoError(t, db.Create(&course).Error)

	found, err := repo.GetByID(context.Background(), course.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, "الأحياء", found.Name)
	require.Equal(t, 49.9, found.Price)
}

func TestCourseRepositoryGetByIDMissingRecord(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCourseRepository(db)

	found, err := repo.GetByID(context.Background(), 404)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	require.Nil(t, found)
}

func TestLessonRepositoryGetByIDReturnsRecord(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLessonRepository(db)

	lesson := models.Lesson{CourseID: 1, Name: "الخلية", ContentText: "الخلية هي وحدة البناء."}
	require.NoError(t, db.Create(&lesson).Error)

	found, err := repo.GetByID(context.Background(), lesson.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, "الخلية", found.Name)
	require.Equal(t, uint(1), found.CourseID)
}

func TestLessonRepositoryGetByIDMissingRecord(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLessonRepository(db)

	found, err := repo.GetByID(context.Background(), 404)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	require.Nil(t, found)
}

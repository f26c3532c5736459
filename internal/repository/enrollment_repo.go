package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/tawjihi-go-api/internal/models"
)

// EnrollmentRepository persists course enrollments.
type EnrollmentRepository interface {
	CreateIfMissing(ctx context.Context, userID, courseID uint) error
	CourseIDsForUser(ctx context.Context, userID uint) ([]uint, error)
	Exists(ctx context.Context, userID, courseID uint) (bool, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository constructs an enrollment repository backed by GORM.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) CreateIfMissing(ctx context.Context, userID, courseID uint) error {
	enrollment := models.Enrollment{UserID: userID, CourseID: courseID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&enrollment).Error
}

func (r *enrollmentRepository) CourseIDsForUser(ctx context.Context, userID uint) ([]uint, error) {
	var courseIDs []uint
	if err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("user_id = ?", userID).
		Pluck("course_id", &courseIDs).Error; err != nil {
		return nil, err
	}
	return courseIDs, nil
}

func (r *enrollmentRepository) Exists(ctx context.Context, userID, courseID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

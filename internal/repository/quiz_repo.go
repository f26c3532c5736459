package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/tawjihi-go-api/internal/models"
)

// QuizRepository persists quizzes and their generation provenance.
type QuizRepository interface {
	Create(ctx context.Context, quiz *models.Quiz) error
	Save(ctx context.Context, quiz *models.Quiz) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*models.Quiz, error)
	ListByTeacher(ctx context.Context, teacherID uint) ([]models.Quiz, error)
	ListPublishedByLesson(ctx context.Context, lessonID uint) ([]models.Quiz, error)
	FindRecentDraft(ctx context.Context, teacherID, lessonID uint, sourceHash string, since time.Time) (*models.Quiz, error)
}

type quizRepository struct {
	db *gorm.DB
}

// NewQuizRepository constructs a quiz repository backed by GORM.
func NewQuizRepository(db *gorm.DB) QuizRepository {
	return &quizRepository{db: db}
}

func (r *quizRepository) Create(ctx context.Context, quiz *models.Quiz) error {
	return r.db.WithContext(ctx).Create(quiz).Error
}

func (r *quizRepository) Save(ctx context.Context, quiz *models.Quiz) error {
	return r.db.WithContext(ctx).Save(quiz).Error
}

func (r *quizRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Quiz{}, id).Error
}

func (r *quizRepository) GetByID(ctx context.Context, id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := r.db.WithContext(ctx).First(&quiz, id).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *quizRepository) ListByTeacher(ctx context.Context, teacherID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	if err := r.db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC").
		Find(&quizzes).Error; err != nil {
		return nil, err
	}
	return quizzes, nil
}

func (r *quizRepository) ListPublishedByLesson(ctx context.Context, lessonID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	if err := r.db.WithContext(ctx).
		Where("lesson_id = ? AND status = ?", lessonID, models.QuizStatusPublished).
		Order("created_at DESC").
		Find(&quizzes).Error; err != nil {
		return nil, err
	}
	return quizzes, nil
}

// FindRecentDraft returns the newest draft a teacher generated for the same
// lesson and source text within the reuse window, or nil when none exists.
func (r *quizRepository) FindRecentDraft(ctx context.Context, teacherID, lessonID uint, sourceHash string, since time.Time) (*models.Quiz, error) {
	var quiz models.Quiz
	err := r.db.WithContext(ctx).
		Where("teacher_id = ? AND lesson_id = ? AND source_text_hash = ? AND status = ? AND created_at >= ?",
			teacherID, lessonID, sourceHash, models.QuizStatusDraft, since).
		Order("created_at DESC").
		First(&quiz).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &quiz, nil
}

package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/tawjihi-go-api/internal/models"
)

// ChatLogRepository persists tutor exchanges. Logs are append only.
type ChatLogRepository interface {
	Create(ctx context.Context, log *models.ChatLog) error
	ListByUser(ctx context.Context, userID uint, limit int) ([]models.ChatLog, error)
}

type chatLogRepository struct {
	db *gorm.DB
}

// NewChatLogRepository constructs a chat log repository backed by GORM.
func NewChatLogRepository(db *gorm.DB) ChatLogRepository {
	return &chatLogRepository{db: db}
}

func (r *chatLogRepository) Create(ctx context.Context, log *models.ChatLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *chatLogRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]models.ChatLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []models.ChatLog
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

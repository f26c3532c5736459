package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/tawjihi-go-api/internal/dto"
	"github.com/noah-isme/tawjihi-go-api/internal/models"
	"github.com/noah-isme/tawjihi-go-api/internal/repository"
)

var (
	// ErrRecipientNotFound is returned when the recipient does not exist.
	ErrRecipientNotFound = errors.New("message recipient not found")
	// ErrMessageNotFound is returned when the message does not exist.
	ErrMessageNotFound = errors.New("message not found")
	// ErrMessageForbidden is returned when a user touches a message they are not part of.
	ErrMessageForbidden = errors.New("message belongs to another conversation")
	// ErrSelfMessage is returned when a user messages themselves.
	ErrSelfMessage = errors.New("cannot send a message to yourself")
)

// MessageService handles direct messages between students and teachers.
type MessageService interface {
	Send(ctx context.Context, senderID uint, req dto.MessageSendRequest) (dto.MessageResponse, error)
	Inbox(ctx context.Context, userID uint) ([]dto.MessageResponse, error)
	Sent(ctx context.Context, userID uint) ([]dto.MessageResponse, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, userID uint, messageID uint) (dto.MessageResponse, error)
}

type messageService struct {
	messages  repository.MessageRepository
	users     repository.UserRepository
	sanitizer *bluemonday.Policy
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewMessageService constructs the message service. Bodies are sanitized with
// a strict policy so stored messages never carry markup.
func NewMessageService(messages repository.MessageRepository, users repository.UserRepository, validate *validator.Validate, logger zerolog.Logger) MessageService {
	return &messageService{
		messages:  messages,
		users:     users,
		sanitizer: bluemonday.StrictPolicy(),
		validator: validate,
		logger:    logger.With().Str("component", "message_service").Logger(),
	}
}

func (s *messageService) Send(ctx context.Context, senderID uint, req dto.MessageSendRequest) (dto.MessageResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.MessageResponse{}, err
	}
	if req.RecipientID == senderID {
		return dto.MessageResponse{}, ErrSelfMessage
	}
	if _, err := s.users.GetByID(ctx, req.RecipientID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MessageResponse{}, ErrRecipientNotFound
		}
		return dto.MessageResponse{}, fmt.Errorf("load recipient: %w", err)
	}

	message := models.Message{
		SenderID:    senderID,
		RecipientID: req.RecipientID,
		Subject:     strings.TrimSpace(s.sanitizer.Sanitize(req.Subject)),
		Body:        strings.TrimSpace(s.sanitizer.Sanitize(req.Body)),
	}
	if message.Body == "" {
		return dto.MessageResponse{}, errors.New("message body is empty after sanitization")
	}
	if err := s.messages.Create(ctx, &message); err != nil {
		return dto.MessageResponse{}, fmt.Errorf("persist message: %w", err)
	}
	return dto.NewMessageResponse(message), nil
}

func (s *messageService) Inbox(ctx context.Context, userID uint) ([]dto.MessageResponse, error) {
	messages, err := s.messages.Inbox(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load inbox: %w", err)
	}
	return dto.NewMessageResponseSlice(messages), nil
}

func (s *messageService) Sent(ctx context.Context, userID uint) ([]dto.MessageResponse, error) {
	messages, err := s.messages.Sent(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load sent messages: %w", err)
	}
	return dto.NewMessageResponseSlice(messages), nil
}

func (s *messageService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	count, err := s.messages.UnreadCount(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return count, nil
}

// MarkRead flips the read flag. Only the recipient may mark a message read.
func (s *messageService) MarkRead(ctx context.Context, userID uint, messageID uint) (dto.MessageResponse, error) {
	message, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MessageResponse{}, ErrMessageNotFound
		}
		return dto.MessageResponse{}, fmt.Errorf("load message: %w", err)
	}
	if message.RecipientID != userID {
		return dto.MessageResponse{}, ErrMessageForbidden
	}
	if !message.Read {
		if err := s.messages.MarkRead(ctx, messageID); err != nil {
			return dto.MessageResponse{}, fmt.Errorf("mark read: %w", err)
		}
		message.Read = true
	}
	return dto.NewMessageResponse(*message), nil
}

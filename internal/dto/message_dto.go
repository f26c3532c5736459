package dto

import (
	"time"

	"github.com/noah-isme/tawjihi-go-api/internal/models"
)

// MessageSendRequest describes the payload for sending a direct message.
type MessageSendRequest struct {
	RecipientID uint   `json:"recipientId" validate:"required,gt=0"`
	Subject     string `json:"subject" validate:"required,min=1,max=255"`
	Body        string `json:"body" validate:"required,min=1,max=5000"`
}

// MessageResponse is the serialized message representation.
type MessageResponse struct {
	ID            uint      `json:"id"`
	SenderID      uint      `json:"senderId"`
	SenderName    string    `json:"senderName,omitempty"`
	RecipientID   uint      `json:"recipientId"`
	RecipientName string    `json:"recipientName,omitempty"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	Read          bool      `json:"read"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NewMessageResponse converts a message model into a DTO.
func NewMessageResponse(model models.Message) MessageResponse {
	response := MessageResponse{
		ID:          model.ID,
		SenderID:    model.SenderID,
		RecipientID: model.RecipientID,
		Subject:     model.Subject,
		Body:        model.Body,
		Read:        model.Read,
		CreatedAt:   model.CreatedAt,
	}
	if model.Sender != nil {
		response.SenderName = model.Sender.Name
	}
	if model.Recipient != nil {
		response.RecipientName = model.Recipient.Name
	}
	return response
}

// NewMessageResponseSlice converts message models into DTOs.
func NewMessageResponseSlice(messages []models.Message) []MessageResponse {
	responses := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		responses = append(responses, NewMessageResponse(message))
	}
	return responses
}

package dto

import (
	"time"

	"github.com/noah-isme/tawjihi-go-api/internal/models"
)

// CheckoutRequest describes the payload for starting a checkout session.
type CheckoutRequest struct {
	CourseIDs []uint `json:"courseIds" validate:"required,min=1,dive,gt=0"`
}

// CheckoutResponse carries the hosted checkout URL back to the client.
type CheckoutResponse struct {
	SessionID   string `json:"sessionId"`
	CheckoutURL string `json:"checkoutUrl"`
}

// ConfirmPaymentRequest describes the payload for confirming a session.
type ConfirmPaymentRequest struct {
	SessionID string `json:"sessionId" validate:"required,min=8"`
}

// PaymentResponse is the serialized payment representation.
type PaymentResponse struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"userId"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	SessionID string    `json:"sessionId"`
	CourseIDs []uint    `json:"courseIds"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewPaymentResponse converts a payment model into a DTO.
func NewPaymentResponse(model models.Payment) PaymentResponse {
	ids := model.CourseIDs()
	if ids == nil {
		ids = []uint{}
	}
	return PaymentResponse{
		ID:        model.ID,
		UserID:    model.UserID,
		Amount:    model.Amount,
		Currency:  model.Currency,
		Status:    model.Status,
		SessionID: model.SessionID,
		CourseIDs: ids,
		CreatedAt: model.CreatedAt,
	}
}

// NewPaymentResponseSlice converts payment models into DTOs.
func NewPaymentResponseSlice(payments []models.Payment) []PaymentResponse {
	responses := make([]PaymentResponse, 0, len(payments))
	for _, payment := range payments {
		responses = append(responses, NewPaymentResponse(payment))
	}
	return responses
}

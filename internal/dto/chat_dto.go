package dto

import (
	"time"

	"github.com/noah-isme/tawjihi-go-api/internal/models"
	"github.com/noah-isme/tawjihi-go-api/pkg/ai"
)

// ChatRequest describes the payload for asking the tutor a question.
type ChatRequest struct {
	Message  string `json:"message" validate:"required,min=1"`
	CourseID *uint  `json:"courseId" validate:"omitempty,gt=0"`
}

// ChatResponse is the serialized tutor answer returned to API clients.
type ChatResponse struct {
	InScope      bool          `json:"inScope"`
	Answer       *string       `json:"answer"`
	Citations    []ai.Citation `json:"citations"`
	Model        string        `json:"model,omitempty"`
	DurationMs   int64         `json:"durationMs"`
	TokensApprox int           `json:"tokensApprox"`
	Degraded     bool          `json:"degraded,omitempty"`
	Detail       string        `json:"detail,omitempty"`
}

// NewChatResponse converts a tutor result into a DTO. Out-of-scope answers
// serialize with a null answer and empty citation list.
func NewChatResponse(result ai.ChatResult) ChatResponse {
	response := ChatResponse{
		InScope:      result.InScope,
		Citations:    result.Citations,
		Model:        result.Model,
		DurationMs:   result.DurationMs,
		TokensApprox: result.TokensApprox,
		Degraded:     result.Degraded,
	}
	if result.InScope {
		answer := result.Answer
		response.Answer = &answer
	}
	if response.Citations == nil {
		response.Citations = []ai.Citation{}
	}
	return response
}

// ChatLogResponse is one entry of a student's tutor history.
type ChatLogResponse struct {
	ID        uint          `json:"id"`
	Message   string        `json:"message"`
	Answer    string        `json:"answer"`
	Citations []ai.Citation `json:"citations"`
	Model     string        `json:"model,omitempty"`
	Degraded  bool          `json:"degraded,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// NewChatLogResponseSlice converts chat log models into DTOs.
func NewChatLogResponseSlice(logs []models.ChatLog) []ChatLogResponse {
	responses := make([]ChatLogResponse, 0, len(logs))
	for _, log := range logs {
		responses = append(responses, ChatLogResponse{
			ID:        log.ID,
			Message:   log.Message,
			Answer:    log.Answer,
			Citations: log.CitationList(),
			Model:     log.Model,
			Degraded:  log.Degraded,
			CreatedAt: log.CreatedAt,
		})
	}
	return responses
}

package dto

import (
	"time"

	"github.com/noah-isme/tawjihi-go-api/internal/models"
	"github.com/noah-isme/tawjihi-go-api/pkg/ai"
)

// QuizGenerateRequest describes the payload for generating a quiz draft.
type QuizGenerateRequest struct {
	LessonID      uint           `json:"lessonId" validate:"required,gt=0"`
	QuestionCount int            `json:"questionCount" validate:"omitempty,min=1,max=30"`
	Difficulty    string         `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Language      string         `json:"language" validate:"omitempty,oneof=ar en"`
	Types         map[string]int `json:"types" validate:"omitempty"`
}

// QuizUpdateRequest describes the payload for editing a quiz.
type QuizUpdateRequest struct {
	Title     *string       `json:"title" validate:"omitempty,min=3,max=255"`
	Status    *string       `json:"status" validate:"omitempty,oneof=draft published"`
	Tags      []string      `json:"tags" validate:"omitempty,dive,min=1,max=64"`
	Questions []ai.Question `json:"questions" validate:"omitempty"`
}

// QuizResponse is the serialized quiz representation returned to API clients.
type QuizResponse struct {
	ID          uint          `json:"id"`
	CourseID    uint          `json:"courseId"`
	LessonID    uint          `json:"lessonId"`
	TeacherID   uint          `json:"teacherId"`
	Title       string        `json:"title"`
	Difficulty  string        `json:"difficulty"`
	Language    string        `json:"language"`
	Status      string        `json:"status"`
	AIGenerated bool          `json:"aiGenerated"`
	Reused      bool          `json:"reused,omitempty"`
	Tags        []string      `json:"tags"`
	Questions   []ai.Question `json:"questions"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// QuizSummaryResponse omits questions for list endpoints.
type QuizSummaryResponse struct {
	ID            uint      `json:"id"`
	CourseID      uint      `json:"courseId"`
	LessonID      uint      `json:"lessonId"`
	Title         string    `json:"title"`
	Difficulty    string    `json:"difficulty"`
	Status        string    `json:"status"`
	QuestionCount int       `json:"questionCount"`
	Tags          []string  `json:"tags"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NewQuizResponse converts a quiz model into a DTO.
func NewQuizResponse(model models.Quiz) QuizResponse {
	return QuizResponse{
		ID:          model.ID,
		CourseID:    model.CourseID,
		LessonID:    model.LessonID,
		TeacherID:   model.TeacherID,
		Title:       model.Title,
		Difficulty:  model.Difficulty,
		Language:    model.Language,
		Status:      model.Status,
		AIGenerated: model.AIGenerated,
		Tags:        model.TagList(),
		Questions:   model.QuestionList(),
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewQuizSummarySlice converts quiz models into list DTOs.
func NewQuizSummarySlice(quizzes []models.Quiz) []QuizSummaryResponse {
	responses := make([]QuizSummaryResponse, 0, len(quizzes))
	for _, quiz := range quizzes {
		responses = append(responses, QuizSummaryResponse{
			ID:            quiz.ID,
			CourseID:      quiz.CourseID,
			LessonID:      quiz.LessonID,
			Title:         quiz.Title,
			Difficulty:    quiz.Difficulty,
			Status:        quiz.Status,
			QuestionCount: len(quiz.QuestionList()),
			Tags:          quiz.TagList(),
			CreatedAt:     quiz.CreatedAt,
		})
	}
	return responses
}

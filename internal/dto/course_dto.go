package dto

import (
	"time"

	"github.com/noah-isme/tawjihi-go-api/internal/models"
)

// CourseCreateRequest describes the payload for creating a course.
type CourseCreateRequest struct {
	Name        string  `json:"name" validate:"required,min=3,max=255"`
	Description string  `json:"description" validate:"omitempty,max=2000"`
	Grade       string  `json:"grade" validate:"omitempty,max=32"`
	Subject     string  `json:"subject" validate:"omitempty,max=64"`
	Price       float64 `json:"price" validate:"omitempty,gte=0"`
}

// CourseUpdateRequest describes the payload for updating a course.
type CourseUpdateRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=3,max=255"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Grade       *string  `json:"grade" validate:"omitempty,max=32"`
	Subject     *string  `json:"subject" validate:"omitempty,max=64"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
}

// CourseResponse is the serialized course representation.
type CourseResponse struct {
	ID          uint             `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Grade       string           `json:"grade"`
	Subject     string           `json:"subject"`
	Price       float64          `json:"price"`
	Lessons     []LessonResponse `json:"lessons,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// LessonCreateRequest describes the payload for creating a lesson.
type LessonCreateRequest struct {
	CourseID    uint   `json:"courseId" validate:"required,gt=0"`
	Name        string `json:"name" validate:"required,min=3,max=255"`
	Description string `json:"description" validate:"omitempty,max=4000"`
	ContentText string `json:"contentText" validate:"omitempty"`
	VideoURL    string `json:"videoUrl" validate:"omitempty,url"`
}

// LessonUpdateRequest describes the payload for updating a lesson.
type LessonUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=3,max=255"`
	Description *string `json:"description" validate:"omitempty,max=4000"`
	ContentText *string `json:"contentText" validate:"omitempty"`
	VideoURL    *string `json:"videoUrl" validate:"omitempty,url"`
}

// LessonResponse is the serialized lesson representation.
type LessonResponse struct {
	ID              uint      `json:"id"`
	CourseID        uint      `json:"courseId"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	VideoURL        string    `json:"videoUrl"`
	PDFURL          string    `json:"pdfUrl"`
	DurationSeconds int       `json:"durationSeconds"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// NewCourseResponse converts a course model into a DTO.
func NewCourseResponse(model models.Course) CourseResponse {
	response := CourseResponse{
		ID:          model.ID,
		Name:        model.Name,
		Description: model.Description,
		Grade:       model.Grade,
		Subject:     model.Subject,
		Price:       model.Price,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
	if len(model.Lessons) > 0 {
		response.Lessons = NewLessonResponseSlice(model.Lessons)
	}
	return response
}

// NewCourseResponseSlice converts course models into DTOs.
func NewCourseResponseSlice(courses []models.Course) []CourseResponse {
	responses := make([]CourseResponse, 0, len(courses))
	for _, course := range courses {
		responses = append(responses, NewCourseResponse(course))
	}
	return responses
}

// NewLessonResponse converts a lesson model into a DTO.
func NewLessonResponse(model models.Lesson) LessonResponse {
	return LessonResponse{
		ID:              model.ID,
		CourseID:        model.CourseID,
		Name:            model.Name,
		Description:     model.Description,
		VideoURL:        model.VideoURL,
		PDFURL:          model.PDFURL,
		DurationSeconds: model.DurationSeconds,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

// NewLessonResponseSlice converts lesson models into DTOs.
func NewLessonResponseSlice(lessons []models.Lesson) []LessonResponse {
	responses := make([]LessonResponse, 0, len(lessons))
	for _, lesson := range lessons {
		responses = append(responses, NewLessonResponse(lesson))
	}
	return responses
}

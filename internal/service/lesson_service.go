package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/tawjihi-go-api/internal/dto"
	"github.com/noah-isme/tawjihi-go-api/internal/models"
	"github.com/noah-isme/tawjihi-go-api/internal/repository"
)

var (
	// ErrUploadTooLarge is returned when an attached document exceeds the size limit.
	ErrUploadTooLarge = errors.New("uploaded file exceeds the size limit")
	// ErrUploadTypeNotAllowed is returned when an attachment is not a PDF.
	ErrUploadTypeNotAllowed = errors.New("uploaded file type is not allowed")
)

const maxLessonUploadBytes = 20 << 20

// FileUploader stores a file and returns its public URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// LessonService manages lessons and their attached documents.
type LessonService interface {
	Create(ctx context.Context, req dto.LessonCreateRequest) (dto.LessonResponse, error)
	Update(ctx context.Context, lessonID uint, req dto.LessonUpdateRequest) (dto.LessonResponse, error)
	Delete(ctx context.Context, lessonID uint) error
	Get(ctx context.Context, lessonID uint) (dto.LessonResponse, error)
	ListByCourse(ctx context.Context, courseID uint) ([]dto.LessonResponse, error)
	AttachPDF(ctx context.Context, lessonID uint, file *multipart.FileHeader) (dto.LessonResponse, error)
}

type lessonService struct {
	lessons   repository.LessonRepository
	courses   repository.CourseRepository
	uploader  FileUploader
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewLessonService constructs the lesson service. The uploader may be nil when
// document storage is not configured; AttachPDF then fails cleanly.
func NewLessonService(lessons repository.LessonRepository, courses repository.CourseRepository, uploader FileUploader, validate *validator.Validate, logger zerolog.Logger) LessonService {
	return &lessonService{
		lessons:   lessons,
		courses:   courses,
		uploader:  uploader,
		validator: validate,
		logger:    logger.With().Str("component", "lesson_service").Logger(),
	}
}

func (s *lessonService) Create(ctx context.Context, req dto.LessonCreateRequest) (dto.LessonResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.LessonResponse{}, err
	}
	if _, err := s.courses.GetByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LessonResponse{}, ErrCourseNotFound
		}
		return dto.LessonResponse{}, fmt.Errorf("load course: %w", err)
	}
	lesson := models.Lesson{
		CourseID:    req.CourseID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		ContentText: req.ContentText,
		VideoURL:    req.VideoURL,
	}
	if err := s.lessons.Create(ctx, &lesson); err != nil {
		return dto.LessonResponse{}, fmt.Errorf("create lesson: %w", err)
	}
	return dto.NewLessonResponse(lesson), nil
}

func (s *lessonService) Update(ctx context.Context, lessonID uint, req dto.LessonUpdateRequest) (dto.LessonResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.LessonResponse{}, err
	}
	lesson, err := s.getLesson(ctx, lessonID)
	if err != nil {
		return dto.LessonResponse{}, err
	}
	if req.Name != nil {
		lesson.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		lesson.Description = strings.TrimSpace(*req.Description)
	}
	if req.ContentText != nil {
		lesson.ContentText = *req.ContentText
	}
	if req.VideoURL != nil {
		lesson.VideoURL = *req.VideoURL
	}
	if err := s.lessons.Update(ctx, lesson); err != nil {
		return dto.LessonResponse{}, fmt.Errorf("update lesson: %w", err)
	}
	return dto.NewLessonResponse(*lesson), nil
}

func (s *lessonService) Delete(ctx context.Context, lessonID uint) error {
	if _, err := s.getLesson(ctx, lessonID); err != nil {
		return err
	}
	if err := s.lessons.Delete(ctx, lessonID); err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	return nil
}

func (s *lessonService) Get(ctx context.Context, lessonID uint) (dto.LessonResponse, error) {
	lesson, err := s.getLesson(ctx, lessonID)
	if err != nil {
		return dto.LessonResponse{}, err
	}
	return dto.NewLessonResponse(*lesson), nil
}

func (s *lessonService) ListByCourse(ctx context.Context, courseID uint) ([]dto.LessonResponse, error) {
	lessons, err := s.lessons.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return dto.NewLessonResponseSlice(lessons), nil
}

// AttachPDF validates the uploaded document by its detected content type, not
// its extension, stores it, and records the public URL on the lesson.
func (s *lessonService) AttachPDF(ctx context.Context, lessonID uint, file *multipart.FileHeader) (dto.LessonResponse, error) {
	if s.uploader == nil {
		return dto.LessonResponse{}, errors.New("document storage is not configured")
	}
	lesson, err := s.getLesson(ctx, lessonID)
	if err != nil {
		return dto.LessonResponse{}, err
	}
	if file.Size > maxLessonUploadBytes {
		return dto.LessonResponse{}, ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		return dto.LessonResponse{}, fmt.Errorf("open upload: %w", err)
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, maxLessonUploadBytes+1)); err != nil {
		return dto.LessonResponse{}, fmt.Errorf("read upload: %w", err)
	}
	if buf.Len() > maxLessonUploadBytes {
		return dto.LessonResponse{}, ErrUploadTooLarge
	}

	mime := mimetype.Detect(buf.Bytes())
	if !mime.Is("application/pdf") {
		return dto.LessonResponse{}, ErrUploadTypeNotAllowed
	}

	url, err := s.uploader.Upload(ctx, file.Filename, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return dto.LessonResponse{}, fmt.Errorf("store upload: %w", err)
	}

	lesson.PDFURL = url
	if err := s.lessons.Update(ctx, lesson); err != nil {
		return dto.LessonResponse{}, fmt.Errorf("save lesson: %w", err)
	}
	s.logger.Info().Uint("lesson_id", lessonID).Str("url", url).Msg("lesson document attached")
	return dto.NewLessonResponse(*lesson), nil
}

func (s *lessonService) getLesson(ctx context.Context, lessonID uint) (*models.Lesson, error) {
	lesson, err := s.lessons.GetByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLessonNotFound
		}
		return nil, fmt.Errorf("load lesson: %w", err)
	}
	return lesson, nil
}

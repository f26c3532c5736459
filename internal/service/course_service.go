package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/tawjihi-go-api/internal/dto"
	"github.com/noah-isme/tawjihi-go-api/internal/models"
	"github.com/noah-isme/tawjihi-go-api/internal/repository"
)

var (
	// ErrCourseNotFound is returned when the course does not exist.
	ErrCourseNotFound = errors.New("course not found")
	// ErrCourseNotFree is returned when self-enrolling into a paid course.
	ErrCourseNotFree = errors.New("paid courses require checkout")
)

// CourseService manages the course catalogue and enrollments.
type CourseService interface {
	Create(ctx context.Context, req dto.CourseCreateRequest) (dto.CourseResponse, error)
	Update(ctx context.Context, courseID uint, req dto.CourseUpdateRequest) (dto.CourseResponse, error)
	Delete(ctx context.Context, courseID uint) error
	Get(ctx context.Context, courseID uint) (dto.CourseResponse, error)
	List(ctx context.Context) ([]dto.CourseResponse, error)
	ListEnrolled(ctx context.Context, userID uint) ([]dto.CourseResponse, error)
	Enroll(ctx context.Context, userID, courseID uint) error
}

type courseService struct {
	courses     repository.CourseRepository
	enrollments repository.EnrollmentRepository
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewCourseService constructs the course service.
func NewCourseService(courses repository.CourseRepository, enrollments repository.EnrollmentRepository, validate *validator.Validate, logger zerolog.Logger) CourseService {
	return &courseService{
		courses:     courses,
		enrollments: enrollments,
		validator:   validate,
		logger:      logger.With().Str("component", "course_service").Logger(),
	}
}

func (s *courseService) Create(ctx context.Context, req dto.CourseCreateRequest) (dto.CourseResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.CourseResponse{}, err
	}
	course := models.Course{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Grade:       req.Grade,
		Subject:     req.Subject,
		Price:       req.Price,
	}
	if err := s.courses.Create(ctx, &course); err != nil {
		return dto.CourseResponse{}, fmt.Errorf("create course: %w", err)
	}
	return dto.NewCourseResponse(course), nil
}

func (s *courseService) Update(ctx context.Context, courseID uint, req dto.CourseUpdateRequest) (dto.CourseResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.CourseResponse{}, err
	}
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return dto.CourseResponse{}, err
	}
	if req.Name != nil {
		course.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		course.Description = strings.TrimSpace(*req.Description)
	}
	if req.Grade != nil {
		course.Grade = *req.Grade
	}
	if req.Subject != nil {
		course.Subject = *req.Subject
	}
	if req.Price != nil {
		course.Price = *req.Price
	}
	if err := s.courses.Update(ctx, course); err != nil {
		return dto.CourseResponse{}, fmt.Errorf("update course: %w", err)
	}
	return dto.NewCourseResponse(*course), nil
}

func (s *courseService) Delete(ctx context.Context, courseID uint) error {
	if _, err := s.getCourse(ctx, courseID); err != nil {
		return err
	}
	if err := s.courses.Delete(ctx, courseID); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}

func (s *courseService) Get(ctx context.Context, courseID uint) (dto.CourseResponse, error) {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return dto.CourseResponse{}, err
	}
	return dto.NewCourseResponse(*course), nil
}

func (s *courseService) List(ctx context.Context) ([]dto.CourseResponse, error) {
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return dto.NewCourseResponseSlice(courses), nil
}

func (s *courseService) ListEnrolled(ctx context.Context, userID uint) ([]dto.CourseResponse, error) {
	courseIDs, err := s.enrollments.CourseIDsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load enrollments: %w", err)
	}
	if len(courseIDs) == 0 {
		return []dto.CourseResponse{}, nil
	}
	courses, err := s.courses.ListByIDs(ctx, courseIDs)
	if err != nil {
		return nil, fmt.Errorf("list enrolled courses: %w", err)
	}
	return dto.NewCourseResponseSlice(courses), nil
}

// Enroll grants direct access to free courses. Paid courses are granted by
// the payment service after checkout settles.
func (s *courseService) Enroll(ctx context.Context, userID, courseID uint) error {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if course.Price > 0 {
		return ErrCourseNotFree
	}
	if err := s.enrollments.CreateIfMissing(ctx, userID, courseID); err != nil {
		return fmt.Errorf("enroll: %w", err)
	}
	return nil
}

func (s *courseService) getCourse(ctx context.Context, courseID uint) (*models.Course, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("load course: %w", err)
	}
	return course, nil
}

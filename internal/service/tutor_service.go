package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/tawjihi-go-api/internal/dto"
	"github.com/noah-isme/tawjihi-go-api/internal/models"
	"github.com/noah-isme/tawjihi-go-api/internal/repository"
	"github.com/noah-isme/tawjihi-go-api/pkg/ai"
)

var (
	// ErrNoEnrolledCourses is returned when a student without enrollments asks the tutor.
	ErrNoEnrolledCourses = errors.New("student has no enrolled courses")
	// ErrNotEnrolled is returned when a student scopes the chat to a course they do not own.
	ErrNotEnrolled = errors.New("student is not enrolled in the requested course")
	// ErrMessageTooLong is returned when the chat message exceeds the configured limit.
	ErrMessageTooLong = errors.New("chat message exceeds the maximum length")
	// ErrEmptyMessage is returned when the chat message is blank after trimming.
	ErrEmptyMessage = errors.New("chat message is empty")
)

// ChatCompleter produces a normalized tutor answer for a prompt. It never
// returns an error; failures surface as degraded results.
type ChatCompleter interface {
	Complete(ctx context.Context, prompt string, excerpts []ai.Excerpt) ai.ChatResult
}

// TutorService answers student questions grounded in their enrolled lessons.
type TutorService interface {
	Chat(ctx context.Context, userID uint, req dto.ChatRequest) (dto.ChatResponse, error)
	History(ctx context.Context, userID uint, limit int) ([]dto.ChatLogResponse, error)
}

// TutorConfig bounds the tutor pipeline.
type TutorConfig struct {
	MaxMessageChars int
	MaxLessons      int
	MaxContextChars int
	AnswerCacheTTL  time.Duration
	EventSubject    string

	// ExposeFailureDetail surfaces the internal failure reason of degraded
	// answers in API responses. Enabled outside production only.
	ExposeFailureDetail bool
}

type tutorService struct {
	lessons     repository.LessonRepository
	courses     repository.CourseRepository
	enrollments repository.EnrollmentRepository
	chatLogs    repository.ChatLogRepository
	completer   ChatCompleter
	builder     ContextBuilder
	cache       *redis.Client
	nats        *nats.Conn
	cfg         TutorConfig
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewTutorService constructs the tutor service.
func NewTutorService(
	lessons repository.LessonRepository,
	courses repository.CourseRepository,
	enrollments repository.EnrollmentRepository,
	chatLogs repository.ChatLogRepository,
	completer ChatCompleter,
	cache *redis.Client,
	natsConn *nats.Conn,
	cfg TutorConfig,
	validate *validator.Validate,
	logger zerolog.Logger,
) TutorService {
	if cfg.EventSubject == "" {
		cfg.EventSubject = "tawjihi.tutor.answered"
	}
	return &tutorService{
		lessons:     lessons,
		courses:     courses,
		enrollments: enrollments,
		chatLogs:    chatLogs,
		completer:   completer,
		builder:     NewContextBuilder(cfg.MaxLessons, cfg.MaxContextChars),
		cache:       cache,
		nats:        natsConn,
		cfg:         cfg,
		validator:   validate,
		logger:      logger.With().Str("component", "tutor_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/tawjihi-go-api/internal/service/tutor"),
	}
}

type tutorEvent struct {
	UserID       uint      `json:"userId"`
	InScope      bool      `json:"inScope"`
	Degraded     bool      `json:"degraded"`
	Model        string    `json:"model"`
	DurationMs   int64     `json:"durationMs"`
	TokensApprox int       `json:"tokensApprox"`
	AnsweredAt   time.Time `json:"answeredAt"`
}

func (s *tutorService) Chat(parent context.Context, userID uint, req dto.ChatRequest) (dto.ChatResponse, error) {
	ctx, span := s.tracer.Start(parent, "tutor.chat", trace.WithAttributes(
		attribute.Int64("user.id", int64(userID)),
	))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.ChatResponse{}, err
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return dto.ChatResponse{}, ErrEmptyMessage
	}
	if s.cfg.MaxMessageChars > 0 && len([]rune(message)) > s.cfg.MaxMessageChars {
		return dto.ChatResponse{}, ErrMessageTooLong
	}

	courseIDs, err := s.enrollments.CourseIDsForUser(ctx, userID)
	if err != nil {
		return dto.ChatResponse{}, fmt.Errorf("load enrollments: %w", err)
	}
	if len(courseIDs) == 0 {
		return dto.ChatResponse{}, ErrNoEnrolledCourses
	}
	if req.CourseID != nil {
		if !containsID(courseIDs, *req.CourseID) {
			return dto.ChatResponse{}, ErrNotEnrolled
		}
		courseIDs = []uint{*req.CourseID}
	}

	lessons, err := s.lessons.ListByCourses(ctx, courseIDs)
	if err != nil {
		return dto.ChatResponse{}, fmt.Errorf("load lessons: %w", err)
	}
	titles, err := s.courses.TitleMap(ctx, courseIDs)
	if err != nil {
		return dto.ChatResponse{}, fmt.Errorf("load course titles: %w", err)
	}

	excerpts := s.builder.Collect(message, lessons, titles)
	span.SetAttributes(attribute.Int("tutor.excerpts", len(excerpts)))

	var result ai.ChatResult
	if len(excerpts) == 0 {
		result = ai.ChatResult{InScope: false, Citations: []ai.Citation{}}
	} else if cached, ok := s.cachedResult(ctx, userID, message, excerpts); ok {
		result = cached
	} else {
		prompt := ai.BuildTutorPrompt(message, excerpts)
		result = s.completer.Complete(ctx, prompt, excerpts)
		if !result.Degraded {
			s.storeResult(ctx, userID, message, excerpts, result)
		}
	}

	log := models.ChatLog{
		UserID:       userID,
		Role:         "student",
		Message:      message,
		Answer:       result.Answer,
		InScope:      result.InScope,
		Model:        result.Model,
		TokensApprox: result.TokensApprox,
		DurationMs:   result.DurationMs,
		Degraded:     result.Degraded,
	}
	if err := log.SetCitations(result.Citations); err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode citations")
	}
	if err := s.chatLogs.Create(ctx, &log); err != nil {
		s.logger.Error().Err(err).Uint("user_id", userID).Msg("failed to persist chat log")
	}

	s.publish(tutorEvent{
		UserID:       userID,
		InScope:      result.InScope,
		Degraded:     result.Degraded,
		Model:        result.Model,
		DurationMs:   result.DurationMs,
		TokensApprox: result.TokensApprox,
		AnsweredAt:   time.Now().UTC(),
	})

	response := dto.NewChatResponse(result)
	if s.cfg.ExposeFailureDetail && result.Degraded {
		response.Detail = result.Detail
	}
	return response, nil
}

func (s *tutorService) History(ctx context.Context, userID uint, limit int) ([]dto.ChatLogResponse, error) {
	logs, err := s.chatLogs.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	return dto.NewChatLogResponseSlice(logs), nil
}

// cachedResult returns a previously stored answer for the same question
// against the same excerpt set.
func (s *tutorService) cachedResult(ctx context.Context, userID uint, message string, excerpts []ai.Excerpt) (ai.ChatResult, bool) {
	if s.cache == nil || s.cfg.AnswerCacheTTL <= 0 {
		return ai.ChatResult{}, false
	}
	payload, err := s.cache.Get(ctx, s.answerCacheKey(userID, message, excerpts)).Result()
	if err != nil || payload == "" {
		return ai.ChatResult{}, false
	}
	var result ai.ChatResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return ai.ChatResult{}, false
	}
	return result, true
}

func (s *tutorService) storeResult(ctx context.Context, userID uint, message string, excerpts []ai.Excerpt, result ai.ChatResult) {
	if s.cache == nil || s.cfg.AnswerCacheTTL <= 0 {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.answerCacheKey(userID, message, excerpts), payload, s.cfg.AnswerCacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache tutor answer")
	}
}

func (s *tutorService) answerCacheKey(userID uint, message string, excerpts []ai.Excerpt) string {
	sum := sha256.Sum256([]byte(message))
	return fmt.Sprintf("tutor:answer:v1:%d:%s:%s", userID, hex.EncodeToString(sum[:8]), ai.HashExcerpts(excerpts)[:16])
}

func (s *tutorService) publish(event tutorEvent) {
	if s.nats == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.nats.Publish(s.cfg.EventSubject, payload); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish tutor event")
	}
}

func containsID(ids []uint, id uint) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

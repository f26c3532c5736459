package service

import (
	"context"
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
	"gorm.io/gorm"

	"github.com/noah-isme/tawjihi-go-api/internal/dto"
	"github.com/noah-isme/tawjihi-go-api/internal/models"
	"github.com/noah-isme/tawjihi-go-api/internal/repository"
	"github.com/noah-isme/tawjihi-go-api/pkg/ai"
)

var (
	// ErrQuizNotFound is returned when the quiz does not exist.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizForbidden is returned when a teacher touches a quiz they do not own.
	ErrQuizForbidden = errors.New("quiz belongs to another teacher")
	// ErrLessonNotFound is returned when the generation target lesson does not exist.
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrNoSourceText is returned when a lesson has no text to generate from.
	ErrNoSourceText = errors.New("lesson has no source text for quiz generation")
	// ErrDistributionMismatch is returned when the type distribution does not sum to the question count.
	ErrDistributionMismatch = errors.New("question type distribution does not sum to the question count")
	// ErrUnknownQuestionType is returned when the distribution names an unsupported type.
	ErrUnknownQuestionType = errors.New("unknown question type in distribution")
	// ErrPublishWithoutQuestions is returned when publishing a quiz with no questions.
	ErrPublishWithoutQuestions = errors.New("cannot publish a quiz without questions")
)

// QuizGenerator produces a validated question set from a prompt input.
type QuizGenerator interface {
	GenerateQuiz(ctx context.Context, input ai.QuizPromptInput) (ai.QuizResult, error)
}

// PDFExtractor pulls plain text out of a hosted lesson document.
type PDFExtractor interface {
	ExtractText(ctx context.Context, url string) (string, error)
}

// QuizService generates, edits, and serves quizzes.
type QuizService interface {
	Generate(ctx context.Context, teacherID uint, req dto.QuizGenerateRequest) (dto.QuizResponse, error)
	Get(ctx context.Context, userID uint, role string, quizID uint) (dto.QuizResponse, error)
	ListMine(ctx context.Context, teacherID uint) ([]dto.QuizSummaryResponse, error)
	ListPublishedByLesson(ctx context.Context, lessonID uint) ([]dto.QuizSummaryResponse, error)
	Update(ctx context.Context, teacherID uint, quizID uint, req dto.QuizUpdateRequest) (dto.QuizResponse, error)
	Delete(ctx context.Context, teacherID uint, quizID uint) error
}

// QuizConfig bounds quiz generation.
type QuizConfig struct {
	MaxSourceChars int
	ReuseWindow    time.Duration
	ListCacheTTL   time.Duration
	EventSubject   string
}

type quizService struct {
	quizzes   repository.QuizRepository
	lessons   repository.LessonRepository
	courses   repository.CourseRepository
	generator QuizGenerator
	extractor PDFExtractor
	cache     *redis.Client
	nats      *nats.Conn
	cfg       QuizConfig
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewQuizService constructs the quiz service.
func NewQuizService(
	quizzes repository.QuizRepository,
	lessons repository.LessonRepository,
	courses repository.CourseRepository,
	generator QuizGenerator,
	extractor PDFExtractor,
	cache *redis.Client,
	natsConn *nats.Conn,
	cfg QuizConfig,
	validate *validator.Validate,
	logger zerolog.Logger,
) QuizService {
	if cfg.EventSubject == "" {
		cfg.EventSubject = "tawjihi.quiz.generated"
	}
	return &quizService{
		quizzes:   quizzes,
		lessons:   lessons,
		courses:   courses,
		generator: generator,
		extractor: extractor,
		cache:     cache,
		nats:      natsConn,
		cfg:       cfg,
		validator: validate,
		logger:    logger.With().Str("component", "quiz_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/tawjihi-go-api/internal/service/quiz"),
	}
}

func (s *quizService) Generate(parent context.Context, teacherID uint, req dto.QuizGenerateRequest) (dto.QuizResponse, error) {
	ctx, span := s.tracer.Start(parent, "quiz.generate", trace.WithAttributes(
		attribute.Int64("teacher.id", int64(teacherID)),
		attribute.Int64("lesson.id", int64(req.LessonID)),
	))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.QuizResponse{}, err
	}
	if req.QuestionCount <= 0 {
		req.QuestionCount = 5
	}
	if req.Difficulty == "" {
		req.Difficulty = "medium"
	}
	if req.Language == "" {
		req.Language = "ar"
	}
	if err := validateDistribution(req.Types, req.QuestionCount); err != nil {
		return dto.QuizResponse{}, err
	}

	lesson, err := s.lessons.GetByID(ctx, req.LessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuizResponse{}, ErrLessonNotFound
		}
		return dto.QuizResponse{}, fmt.Errorf("load lesson: %w", err)
	}

	course, err := s.courses.GetByID(ctx, lesson.CourseID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.QuizResponse{}, fmt.Errorf("load course: %w", err)
	}
	courseTitle, grade, subject := "", "", ""
	if course != nil {
		courseTitle, grade, subject = course.Name, course.Grade, course.Subject
	}

	sourceText, err := s.sourceText(ctx, lesson)
	if err != nil {
		return dto.QuizResponse{}, err
	}
	sourceHash := ai.HashSourceText(sourceText)
	span.SetAttributes(attribute.Int("quiz.source_chars", len(sourceText)))

	if s.cfg.ReuseWindow > 0 {
		since := time.Now().Add(-s.cfg.ReuseWindow)
		if existing, err := s.quizzes.FindRecentDraft(ctx, teacherID, lesson.ID, sourceHash, since); err != nil {
			s.logger.Warn().Err(err).Msg("draft reuse lookup failed")
		} else if existing != nil {
			response := dto.NewQuizResponse(*existing)
			response.Reused = true
			return response, nil
		}
	}

	result, err := s.generator.GenerateQuiz(ctx, ai.QuizPromptInput{
		LessonText:   sourceText,
		Grade:        grade,
		Subject:      subject,
		Language:     req.Language,
		NumQuestions: req.QuestionCount,
		Difficulty:   req.Difficulty,
		Distribution: req.Types,
		LessonTitle:  lesson.Name,
		CourseTitle:  courseTitle,
	})
	if err != nil {
		return dto.QuizResponse{}, fmt.Errorf("generate quiz: %w", err)
	}
	if err := ai.ValidateQuestions(result.Questions); err != nil {
		return dto.QuizResponse{}, fmt.Errorf("generated quiz failed validation: %w", err)
	}

	quiz := models.Quiz{
		CourseID:       lesson.CourseID,
		LessonID:       lesson.ID,
		TeacherID:      teacherID,
		Title:          fmt.Sprintf("%s quiz", lesson.Name),
		Difficulty:     req.Difficulty,
		Language:       req.Language,
		AIGenerated:    true,
		SourceTextHash: sourceHash,
		Status:         models.QuizStatusDraft,
	}
	if err := quiz.SetQuestions(result.Questions); err != nil {
		return dto.QuizResponse{}, fmt.Errorf("encode questions: %w", err)
	}
	if err := s.quizzes.Create(ctx, &quiz); err != nil {
		return dto.QuizResponse{}, fmt.Errorf("persist quiz: %w", err)
	}

	s.invalidateLessonCache(ctx, lesson.ID)
	s.publishEvent(quizEvent{
		QuizID:    quiz.ID,
		LessonID:  lesson.ID,
		TeacherID: teacherID,
		Model:     result.Model,
		Questions: len(result.Questions),
		CreatedAt: time.Now().UTC(),
	})

	return dto.NewQuizResponse(quiz), nil
}

func (s *quizService) Get(ctx context.Context, userID uint, role string, quizID uint) (dto.QuizResponse, error) {
	quiz, err := s.getQuiz(ctx, quizID)
	if err != nil {
		return dto.QuizResponse{}, err
	}
	// drafts stay private to the owning teacher
	if quiz.Status != models.QuizStatusPublished && !(role == "teacher" && quiz.TeacherID == userID) {
		return dto.QuizResponse{}, ErrQuizForbidden
	}
	return dto.NewQuizResponse(*quiz), nil
}

func (s *quizService) ListMine(ctx context.Context, teacherID uint) ([]dto.QuizSummaryResponse, error) {
	quizzes, err := s.quizzes.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return dto.NewQuizSummarySlice(quizzes), nil
}

func (s *quizService) ListPublishedByLesson(ctx context.Context, lessonID uint) ([]dto.QuizSummaryResponse, error) {
	cacheKey := fmt.Sprintf("quizzes:published:v1:%d", lessonID)
	if s.cache != nil && s.cfg.ListCacheTTL > 0 {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			var responses []dto.QuizSummaryResponse
			if err := json.Unmarshal([]byte(cached), &responses); err == nil {
				return responses, nil
			}
		}
	}

	quizzes, err := s.quizzes.ListPublishedByLesson(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("list published quizzes: %w", err)
	}
	responses := dto.NewQuizSummarySlice(quizzes)

	if s.cache != nil && s.cfg.ListCacheTTL > 0 {
		if payload, err := json.Marshal(responses); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cfg.ListCacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to cache published quiz list")
			}
		}
	}
	return responses, nil
}

func (s *quizService) Update(ctx context.Context, teacherID uint, quizID uint, req dto.QuizUpdateRequest) (dto.QuizResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.QuizResponse{}, err
	}

	quiz, err := s.getQuiz(ctx, quizID)
	if err != nil {
		return dto.QuizResponse{}, err
	}
	if quiz.TeacherID != teacherID {
		return dto.QuizResponse{}, ErrQuizForbidden
	}

	if req.Title != nil {
		quiz.Title = strings.TrimSpace(*req.Title)
	}
	if req.Tags != nil {
		quiz.SetTags(req.Tags)
	}
	if req.Questions != nil {
		if err := ai.ValidateQuestions(req.Questions); err != nil {
			return dto.QuizResponse{}, fmt.Errorf("questions failed validation: %w", err)
		}
		if err := quiz.SetQuestions(req.Questions); err != nil {
			return dto.QuizResponse{}, fmt.Errorf("encode questions: %w", err)
		}
	}
	if req.Status != nil {
		if *req.Status == models.QuizStatusPublished && len(quiz.QuestionList()) == 0 {
			return dto.QuizResponse{}, ErrPublishWithoutQuestions
		}
		quiz.Status = *req.Status
	}

	if err := s.quizzes.Save(ctx, quiz); err != nil {
		return dto.QuizResponse{}, fmt.Errorf("save quiz: %w", err)
	}
	s.invalidateLessonCache(ctx, quiz.LessonID)
	return dto.NewQuizResponse(*quiz), nil
}

func (s *quizService) Delete(ctx context.Context, teacherID uint, quizID uint) error {
	quiz, err := s.getQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	if quiz.TeacherID != teacherID {
		return ErrQuizForbidden
	}
	if err := s.quizzes.Delete(ctx, quizID); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	s.invalidateLessonCache(ctx, quiz.LessonID)
	return nil
}

func (s *quizService) getQuiz(ctx context.Context, quizID uint) (*models.Quiz, error) {
	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("load quiz: %w", err)
	}
	return quiz, nil
}

// sourceText assembles generation input in priority order: parsed PDF text,
// then explicit lesson body, then description. The result is capped at the
// configured character budget before hashing.
func (s *quizService) sourceText(ctx context.Context, lesson *models.Lesson) (string, error) {
	text := ""
	if lesson.PDFURL != "" && s.extractor != nil {
		extracted, err := s.extractor.ExtractText(ctx, lesson.PDFURL)
		if err != nil {
			s.logger.Warn().Err(err).Uint("lesson_id", lesson.ID).Msg("pdf extraction failed, falling back to lesson text")
		} else {
			text = strings.TrimSpace(extracted)
		}
	}
	if text == "" {
		text = strings.TrimSpace(lesson.ContentText)
	}
	if text == "" {
		text = strings.TrimSpace(lesson.Description)
	}
	if text == "" {
		return "", ErrNoSourceText
	}
	if s.cfg.MaxSourceChars > 0 && len(text) > s.cfg.MaxSourceChars {
		text = truncateOnRuneBoundary(text, s.cfg.MaxSourceChars)
	}
	return text, nil
}

func validateDistribution(distribution map[string]int, total int) error {
	if len(distribution) == 0 {
		return nil
	}
	sum := 0
	for name, count := range distribution {
		if !ai.ValidQuestionType(ai.QuestionType(name)) {
			return fmt.Errorf("%w: %s", ErrUnknownQuestionType, name)
		}
		if count < 0 {
			return ErrDistributionMismatch
		}
		sum += count
	}
	if sum != total {
		return ErrDistributionMismatch
	}
	return nil
}

type quizEvent struct {
	QuizID    uint      `json:"quizId"`
	LessonID  uint      `json:"lessonId"`
	TeacherID uint      `json:"teacherId"`
	Model     string    `json:"model"`
	Questions int       `json:"questions"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *quizService) publishEvent(event quizEvent) {
	if s.nats == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.nats.Publish(s.cfg.EventSubject, payload); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish quiz event")
	}
}

func (s *quizService) invalidateLessonCache(ctx context.Context, lessonID uint) {
	if s.cache == nil {
		return
	}
	key := fmt.Sprintf("quizzes:published:v1:%d", lessonID)
	if err := s.cache.Del(ctx, key).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate quiz list cache")
	}
}

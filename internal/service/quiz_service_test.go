package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/tawjihi-go-api/internal/dto"
	"github.com/noah-isme/tawjihi-go-api/internal/models"
	"github.com/noah-isme/tawjihi-go-api/internal/repository"
	"github.com/noah-isme/tawjihi-go-api/pkg/ai"
)

type stubQuizGenerator struct {
	calls  int
	result ai.QuizResult
	err    error
}

func (s *stubQuizGenerator) GenerateQuiz(_ context.Context, _ ai.QuizPromptInput) (ai.QuizResult, error) {
	s.calls++
	return s.result, s.err
}

type stubExtractor struct {
	text string
	err  error
}

func (s *stubExtractor) ExtractText(_ context.Context, _ string) (string, error) {
	return s.text, s.err
}

func validQuestions() []ai.Question {
	return []ai.Question{
		{
			Type:     ai.QuestionTypeMCQ,
			Question: "ما ناتج عملية التمثيل الضوئي؟",
			Options:  []string{"الأكسجين", "النيتروجين"},
			Answer:   ai.Answer{Text: "الأكسجين"},
		},
	}
}

func newQuizFixture(t *testing.T, generator QuizGenerator, extractor PDFExtractor, cache *redis.Client) (QuizService, *gorm.DB) {
	t.Helper()
	db := setupServiceDB(t)
	svc := NewQuizService(
		repository.NewQuizRepository(db),
		repository.NewLessonRepository(db),
		repository.NewCourseRepository(db),
		generator,
		extractor,
		cache,
		nil,
		QuizConfig{MaxSourceChars: 20000, ReuseWindow: 30 * time.Minute, ListCacheTTL: time.Minute},
		validator.New(),
		zerolog.Nop(),
	)
	return svc, db
}

func seedLesson(t *testing.T, db *gorm.DB, contentText string) models.Lesson {
	t.Helper()
	course := models.Course{Name: "الأحياء", Grade: "12", Subject: "science"}
	require.NoError(t, db.Create(&course).Error)
	lesson := models.Lesson{CourseID: course.ID, Name: "التمثيل الضوئي", ContentText: contentText}
	require.NoError(t, db.Create(&lesson).Error)
	return lesson
}

func TestGenerateRejectsDistributionMismatch(t *testing.T) {
	stub := &stubQuizGenerator{}
	svc, db := newQuizFixture(t, stub, nil, nil)
	lesson := seedLesson(t, db, "content")

	_, err := svc.Generate(context.Background(), 1, dto.QuizGenerateRequest{
		LessonID:      lesson.ID,
		QuestionCount: 5,
		Types:         map[string]int{"mcq": 2, "true_false": 2},
	})
	require.ErrorIs(t, err, ErrDistributionMismatch)
	require.Zero(t, stub.calls)
}

func TestGenerateRejectsUnknownQuestionType(t *testing.T) {
	stub := &stubQuizGenerator{}
	svc, db := newQuizFixture(t, stub, nil, nil)
	lesson := seedLesson(t, db, "content")

	_, err := svc.Generate(context.Background(), 1, dto.QuizGenerateRequest{
		LessonID:      lesson.ID,
		QuestionCount: 2,
		Types:         map[string]int{"essay": 2},
	})
	require.ErrorIs(t, err, ErrUnknownQuestionType)
}

func TestGenerateFailsWhenLessonHasNoText(t *testing.T) {
	stub := &stubQuizGenerator{}
	svc, db := newQuizFixture(t, stub, nil, nil)
	lesson := seedLesson(t, db, "")

	_, err := svc.Generate(context.Background(), 1, dto.QuizGenerateRequest{LessonID: lesson.ID})
	require.ErrorIs(t, err, ErrNoSourceText)
	require.Zero(t, stub.calls)
}

func TestGeneratePersistsDraftAndReusesWithinWindow(t *testing.T) {
	stub := &stubQuizGenerator{result: ai.QuizResult{Questions: validQuestions(), Model: "test-model"}}
	svc, db := newQuizFixture(t, stub, nil, nil)
	lesson := seedLesson(t, db, "التمثيل الضوئي هو عملية تحويل الضوء إلى طاقة")

	first, err := svc.Generate(context.Background(), 9, dto.QuizGenerateRequest{LessonID: lesson.ID})
	require.NoError(t, err)
	require.Equal(t, models.QuizStatusDraft, first.Status)
	require.False(t, first.Reused)
	require.Len(t, first.Questions, 1)
	require.Equal(t, 1, stub.calls)

	second, err := svc.Generate(context.Background(), 9, dto.QuizGenerateRequest{LessonID: lesson.ID})
	require.NoError(t, err)
	require.True(t, second.Reused)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 1, stub.calls, "reuse must not call the generator again")
}

func TestGenerateRejectsInvalidGeneratedQuestions(t *testing.T) {
	broken := validQuestions()
	broken[0].Options = nil
	stub := &stubQuizGenerator{result: ai.QuizResult{Questions: broken}}
	svc, db := newQuizFixture(t, stub, nil, nil)
	lesson := seedLesson(t, db, "نص الدرس")

	_, err := svc.Generate(context.Background(), 1, dto.QuizGenerateRequest{LessonID: lesson.ID})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Quiz{}).Count(&count).Error)
	require.Zero(t, count, "invalid quiz must not be persisted")
}

func TestGeneratePrefersPDFTextWhenAvailable(t *testing.T) {
	stub := &stubQuizGenerator{result: ai.QuizResult{Questions: validQuestions()}}
	extractor := &stubExtractor{text: "نص مستخرج من الملف"}
	svc, db := newQuizFixture(t, stub, extractor, nil)
	lesson := seedLesson(t, db, "")
	lesson.PDFURL = "https://cdn.example.com/lesson.pdf"
	require.NoError(t, db.Save(&lesson).Error)

	response, err := svc.Generate(context.Background(), 1, dto.QuizGenerateRequest{LessonID: lesson.ID})
	require.NoError(t, err)
	require.Equal(t, ai.HashSourceText("نص مستخرج من الملف"), hashForQuiz(t, db, response.ID))
}

func TestUpdateEnforcesOwnerAndPublishInvariant(t *testing.T) {
	stub := &stubQuizGenerator{result: ai.QuizResult{Questions: validQuestions()}}
	svc, db := newQuizFixture(t, stub, nil, nil)
	lesson := seedLesson(t, db, "نص الدرس")

	created, err := svc.Generate(context.Background(), 5, dto.QuizGenerateRequest{LessonID: lesson.ID})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), 6, created.ID, dto.QuizUpdateRequest{})
	require.ErrorIs(t, err, ErrQuizForbidden)

	empty := []ai.Question{}
	published := models.QuizStatusPublished
	_, err = svc.Update(context.Background(), 5, created.ID, dto.QuizUpdateRequest{Questions: empty, Status: &published})
	require.Error(t, err)

	updated, err := svc.Update(context.Background(), 5, created.ID, dto.QuizUpdateRequest{Status: &published})
	require.NoError(t, err)
	require.Equal(t, models.QuizStatusPublished, updated.Status)
}

func TestListPublishedByLessonUsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	stub := &stubQuizGenerator{result: ai.QuizResult{Questions: validQuestions()}}
	svc, db := newQuizFixture(t, stub, nil, cache)
	lesson := seedLesson(t, db, "نص الدرس")

	created, err := svc.Generate(context.Background(), 5, dto.QuizGenerateRequest{LessonID: lesson.ID})
	require.NoError(t, err)
	published := models.QuizStatusPublished
	_, err = svc.Update(context.Background(), 5, created.ID, dto.QuizUpdateRequest{Status: &published})
	require.NoError(t, err)

	listed, err := svc.ListPublishedByLesson(context.Background(), lesson.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	// delete behind the cache; a second read must still serve the cached list
	require.NoError(t, db.Delete(&models.Quiz{}, created.ID).Error)
	cached, err := svc.ListPublishedByLesson(context.Background(), lesson.ID)
	require.NoError(t, err)
	require.Len(t, cached, 1)
}

func hashForQuiz(t *testing.T, db *gorm.DB, quizID uint) string {
	t.Helper()
	var quiz models.Quiz
	require.NoError(t, db.First(&quiz, quizID).Error)
	return quiz.SourceTextHash
}

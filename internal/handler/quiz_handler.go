package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tawjihi-go-api/internal/dto"
	"github.com/noah-isme/tawjihi-go-api/internal/service"
	"github.com/noah-isme/tawjihi-go-api/internal/utils"
	"github.com/noah-isme/tawjihi-go-api/pkg/ai"
)

// QuizHandler wires quiz HTTP routes.
type QuizHandler struct {
	service service.QuizService
	logger  zerolog.Logger
}

// NewQuizHandler constructs the handler.
func NewQuizHandler(service service.QuizService, logger zerolog.Logger) *QuizHandler {
	return &QuizHandler{
		service: service,
		logger:  logger.With().Str("component", "quiz_handler").Logger(),
	}
}

// RegisterTeacher attaches the teacher-only quiz endpoints.
func (h *QuizHandler) RegisterTeacher(router fiber.Router) {
	router.Post("/generate", h.generate)
	router.Get("/mine", h.listMine)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
}

// Register attaches the shared quiz endpoints.
func (h *QuizHandler) Register(router fiber.Router) {
	router.Get("/lesson/:lessonId", h.listByLesson)
	router.Get("/:id", h.get)
}

func (h *QuizHandler) generate(c *fiber.Ctx) error {
	var payload dto.QuizGenerateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	quiz, err := h.service.Generate(c.Context(), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	status := fiber.StatusCreated
	if quiz.Reused {
		status = fiber.StatusOK
	}
	return utils.SendSuccessWithStatus(c, status, "quiz generated", quiz)
}

func (h *QuizHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	quiz, err := h.service.Get(c.Context(), userIDFromContext(c), userRoleFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "quiz retrieved", quiz)
}

func (h *QuizHandler) listMine(c *fiber.Ctx) error {
	quizzes, err := h.service.ListMine(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "quizzes retrieved", quizzes)
}

func (h *QuizHandler) listByLesson(c *fiber.Ctx) error {
	lessonID, err := parseUintParam(c, "lessonId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	quizzes, err := h.service.ListPublishedByLesson(c.Context(), lessonID)
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "quizzes retrieved", quizzes)
}

func (h *QuizHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.QuizUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	quiz, err := h.service.Update(c.Context(), userIDFromContext(c), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "quiz updated", quiz)
}

func (h *QuizHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.Context(), userIDFromContext(c), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "quiz deleted", fiber.Map{"id": id})
}

func (h *QuizHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrQuizNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "quiz not found")
	case errors.Is(err, service.ErrLessonNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "lesson not found")
	case errors.Is(err, service.ErrQuizForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "quiz belongs to another teacher")
	case errors.Is(err, service.ErrNoSourceText):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "lesson has no source text")
	case errors.Is(err, service.ErrDistributionMismatch),
		errors.Is(err, service.ErrUnknownQuestionType),
		errors.Is(err, service.ErrPublishWithoutQuestions),
		isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ai.ErrEndpointOffline),
		errors.Is(err, ai.ErrModelError),
		errors.Is(err, ai.ErrEmptyAnswer),
		errors.Is(err, ai.ErrNoJSONObject),
		errors.Is(err, ai.ErrInvalidQuizOutput):
		requestLogger(h.logger, c).Error().Err(err).Msg("quiz generation failed")
		return utils.SendError(c, fiber.StatusBadGateway, "quiz generation failed")
	default:
		return h.internalError(c, err)
	}
}

func (h *QuizHandler) internalError(c *fiber.Ctx, err error) error {
	requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}

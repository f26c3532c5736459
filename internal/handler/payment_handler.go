package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tawjihi-go-api/internal/dto"
	"github.com/noah-isme/tawjihi-go-api/internal/service"
	"github.com/noah-isme/tawjihi-go-api/internal/utils"
)

// PaymentHandler wires payment HTTP routes.
type PaymentHandler struct {
	service service.PaymentService
	logger  zerolog.Logger
}

// NewPaymentHandler constructs the handler.
func NewPaymentHandler(service service.PaymentService, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		logger:  logger.With().Str("component", "payment_handler").Logger(),
	}
}

// Register attaches the authenticated payment endpoints.
func (h *PaymentHandler) Register(router fiber.Router) {
	router.Post("/checkout", h.checkout)
	router.Post("/confirm", h.confirm)
	router.Get("/history", h.history)
}

// RegisterWebhook attaches the unauthenticated processor callback.
func (h *PaymentHandler) RegisterWebhook(router fiber.Router) {
	router.Post("/webhook", h.webhook)
}

func (h *PaymentHandler) checkout(c *fiber.Ctx) error {
	var payload dto.CheckoutRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Checkout(c.Context(), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "checkout session created", response)
}

func (h *PaymentHandler) confirm(c *fiber.Ctx) error {
	var payload dto.ConfirmPaymentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Confirm(c.Context(), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "payment confirmed", response)
}

func (h *PaymentHandler) history(c *fiber.Ctx) error {
	records, err := h.service.History(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "payments retrieved", records)
}

// webhook verifies and applies processor notifications. The raw body and the
// signature header must reach the verifier untouched.
func (h *PaymentHandler) webhook(c *fiber.Ctx) error {
	signature := c.Get("Stripe-Signature")
	if err := h.service.HandleWebhook(c.Context(), c.Body(), signature); err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("webhook rejected")
		return utils.SendError(c, fiber.StatusBadRequest, "webhook rejected")
	}
	return utils.SendSuccess(c, "webhook processed", nil)
}

func (h *PaymentHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, service.ErrPaymentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "payment not found")
	case errors.Is(err, service.ErrPaymentForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "payment belongs to another user")
	case errors.Is(err, service.ErrSessionNotPaid):
		return utils.SendError(c, fiber.StatusConflict, "checkout session is not paid")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		return h.internalError(c, err)
	}
}

func (h *PaymentHandler) internalError(c *fiber.Ctx, err error) error {
	requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/tawjihi-go-api/internal/dto"
	"github.com/noah-isme/tawjihi-go-api/internal/models"
	"github.com/noah-isme/tawjihi-go-api/internal/repository"
	"github.com/noah-isme/tawjihi-go-api/pkg/payments"
)

var (
	// ErrPaymentNotFound is returned when no payment matches the session.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrSessionNotPaid is returned when confirming a session the processor has not settled.
	ErrSessionNotPaid = errors.New("checkout session is not paid")
	// ErrPaymentForbidden is returned when confirming a session that belongs to another user.
	ErrPaymentForbidden = errors.New("checkout session belongs to another user")
)

// CheckoutGateway is the processor-facing surface the payment service needs.
type CheckoutGateway interface {
	CreateSession(ctx context.Context, params payments.CheckoutParams) (payments.Session, error)
	GetSession(ctx context.Context, sessionID string) (payments.Session, error)
	ParseWebhook(payload []byte, signature string) (payments.Event, error)
}

// PaymentService sells course access through a hosted checkout.
type PaymentService interface {
	Checkout(ctx context.Context, userID uint, req dto.CheckoutRequest) (dto.CheckoutResponse, error)
	Confirm(ctx context.Context, userID uint, req dto.ConfirmPaymentRequest) (dto.PaymentResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	History(ctx context.Context, userID uint) ([]dto.PaymentResponse, error)
}

// PaymentConfig carries checkout redirect targets.
type PaymentConfig struct {
	Currency    string
	FrontendURL string
}

type paymentService struct {
	paymentsRepo repository.PaymentRepository
	courses      repository.CourseRepository
	enrollments  repository.EnrollmentRepository
	gateway      CheckoutGateway
	cfg          PaymentConfig
	validator    *validator.Validate
	logger       zerolog.Logger
	tracer       trace.Tracer
}

// NewPaymentService constructs the payment service.
func NewPaymentService(
	paymentsRepo repository.PaymentRepository,
	courses repository.CourseRepository,
	enrollments repository.EnrollmentRepository,
	gateway CheckoutGateway,
	cfg PaymentConfig,
	validate *validator.Validate,
	logger zerolog.Logger,
) PaymentService {
	if cfg.Currency == "" {
		cfg.Currency = "ils"
	}
	return &paymentService{
		paymentsRepo: paymentsRepo,
		courses:      courses,
		enrollments:  enrollments,
		gateway:      gateway,
		cfg:          cfg,
		validator:    validate,
		logger:       logger.With().Str("component", "payment_service").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/tawjihi-go-api/internal/service/payment"),
	}
}

func (s *paymentService) Checkout(parent context.Context, userID uint, req dto.CheckoutRequest) (dto.CheckoutResponse, error) {
	ctx, span := s.tracer.Start(parent, "payment.checkout", trace.WithAttributes(
		attribute.Int64("user.id", int64(userID)),
		attribute.Int("payment.courses", len(req.CourseIDs)),
	))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.CheckoutResponse{}, err
	}

	courses, err := s.courses.ListByIDs(ctx, req.CourseIDs)
	if err != nil {
		return dto.CheckoutResponse{}, fmt.Errorf("load courses: %w", err)
	}
	if len(courses) != len(req.CourseIDs) {
		return dto.CheckoutResponse{}, ErrCourseNotFound
	}

	total := 0.0
	items := make([]payments.LineItem, 0, len(courses))
	for _, course := range courses {
		total += course.Price
		items = append(items, payments.LineItem{
			Name:        course.Name,
			AmountMinor: payments.AmountMinorFromPrice(course.Price),
			Quantity:    1,
		})
	}

	session, err := s.gateway.CreateSession(ctx, payments.CheckoutParams{
		Currency:   s.cfg.Currency,
		LineItems:  items,
		SuccessURL: s.cfg.FrontendURL + "/payments/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.cfg.FrontendURL + "/payments/cancel",
		Metadata: map[string]string{
			"userId":  fmt.Sprintf("%d", userID),
			"courses": payments.EncodeIDs(req.CourseIDs),
		},
	})
	if err != nil {
		return dto.CheckoutResponse{}, fmt.Errorf("open checkout: %w", err)
	}

	payment := models.Payment{
		UserID:    userID,
		Amount:    total,
		Currency:  s.cfg.Currency,
		Status:    models.PaymentStatusPending,
		SessionID: session.ID,
	}
	payment.SetCourseIDs(req.CourseIDs)
	if err := s.paymentsRepo.Create(ctx, &payment); err != nil {
		return dto.CheckoutResponse{}, fmt.Errorf("persist payment: %w", err)
	}

	return dto.CheckoutResponse{SessionID: session.ID, CheckoutURL: session.URL}, nil
}

func (s *paymentService) Confirm(parent context.Context, userID uint, req dto.ConfirmPaymentRequest) (dto.PaymentResponse, error) {
	ctx, span := s.tracer.Start(parent, "payment.confirm", trace.WithAttributes(
		attribute.Int64("user.id", int64(userID)),
	))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.PaymentResponse{}, err
	}

	payment, err := s.paymentsRepo.FindBySessionID(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PaymentResponse{}, ErrPaymentNotFound
		}
		return dto.PaymentResponse{}, fmt.Errorf("load payment: %w", err)
	}
	if payment.UserID != userID {
		return dto.PaymentResponse{}, ErrPaymentForbidden
	}
	if payment.Status == models.PaymentStatusPaid {
		return dto.NewPaymentResponse(*payment), nil
	}

	session, err := s.gateway.GetSession(ctx, req.SessionID)
	if err != nil {
		return dto.PaymentResponse{}, fmt.Errorf("verify session: %w", err)
	}
	if !session.Paid {
		return dto.PaymentResponse{}, ErrSessionNotPaid
	}

	if err := s.settle(ctx, payment); err != nil {
		return dto.PaymentResponse{}, err
	}
	return dto.NewPaymentResponse(*payment), nil
}

// HandleWebhook settles payments from verified processor notifications. The
// session lookup makes redelivery idempotent.
func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}
	if event.Type != "checkout.session.completed" {
		return nil
	}

	payment, err := s.paymentsRepo.FindBySessionID(ctx, event.Session.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn().Str("session_id", event.Session.ID).Msg("webhook for unknown session")
			return nil
		}
		return fmt.Errorf("load payment: %w", err)
	}
	if payment.Status == models.PaymentStatusPaid {
		return nil
	}
	return s.settle(ctx, payment)
}

func (s *paymentService) History(ctx context.Context, userID uint) ([]dto.PaymentResponse, error) {
	records, err := s.paymentsRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return dto.NewPaymentResponseSlice(records), nil
}

// settle marks the payment paid and grants access to every purchased course.
func (s *paymentService) settle(ctx context.Context, payment *models.Payment) error {
	payment.Status = models.PaymentStatusPaid
	if err := s.paymentsRepo.Save(ctx, payment); err != nil {
		return fmt.Errorf("save payment: %w", err)
	}
	for _, courseID := range payment.CourseIDs() {
		if err := s.enrollments.CreateIfMissing(ctx, payment.UserID, courseID); err != nil {
			return fmt.Errorf("enroll course %d: %w", courseID, err)
		}
	}
	s.logger.Info().Uint("user_id", payment.UserID).Str("session_id", payment.SessionID).Msg("payment settled")
	return nil
}

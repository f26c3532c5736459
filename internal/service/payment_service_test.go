package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/tawjihi-go-api/internal/dto"
	"github.com/noah-isme/tawjihi-go-api/internal/models"
	"github.com/noah-isme/tawjihi-go-api/internal/repository"
	"github.com/noah-isme/tawjihi-go-api/pkg/payments"
)

type stubGateway struct {
	created payments.CheckoutParams
	session payments.Session
	event   payments.Event
	err     error
}

func (s *stubGateway) CreateSession(_ context.Context, params payments.CheckoutParams) (payments.Session, error) {
	s.created = params
	return s.session, s.err
}

func (s *stubGateway) GetSession(_ context.Context, _ string) (payments.Session, error) {
	return s.session, s.err
}

func (s *stubGateway) ParseWebhook(_ []byte, _ string) (payments.Event, error) {
	return s.event, s.err
}

func newPaymentFixture(t *testing.T, gateway CheckoutGateway) (PaymentService, *gorm.DB) {
	t.Helper()
	db := setupServiceDB(t)
	svc := NewPaymentService(
		repository.NewPaymentRepository(db),
		repository.NewCourseRepository(db),
		repository.NewEnrollmentRepository(db),
		gateway,
		PaymentConfig{Currency: "ils", FrontendURL: "https://app.example.com"},
		validator.New(),
		zerolog.Nop(),
	)
	return svc, db
}

func TestCheckoutCreatesPendingPayment(t *testing.T) {
	gateway := &stubGateway{session: payments.Session{ID: "cs_test_1", URL: "https://pay.example.com/cs_test_1"}}
	svc, db := newPaymentFixture(t, gateway)
	course := models.Course{Name: "Biology", Price: 49.90}
	require.NoError(t, db.Create(&course).Error)

	response, err := svc.Checkout(context.Background(), 3, dto.CheckoutRequest{CourseIDs: []uint{course.ID}})
	require.NoError(t, err)
	require.Equal(t, "cs_test_1", response.SessionID)
	require.Equal(t, int64(4990), gateway.created.LineItems[0].AmountMinor)

	var payment models.Payment
	require.NoError(t, db.Where("session_id = ?", "cs_test_1").First(&payment).Error)
	require.Equal(t, models.PaymentStatusPending, payment.Status)
	require.Equal(t, []uint{course.ID}, payment.CourseIDs())
}

func TestCheckoutRejectsUnknownCourse(t *testing.T) {
	gateway := &stubGateway{}
	svc, _ := newPaymentFixture(t, gateway)

	_, err := svc.Checkout(context.Background(), 3, dto.CheckoutRequest{CourseIDs: []uint{404}})
	require.ErrorIs(t, err, ErrCourseNotFound)
}

func TestConfirmSettlesAndEnrollsIdempotently(t *testing.T) {
	gateway := &stubGateway{session: payments.Session{ID: "cs_test_2", Paid: true}}
	svc, db := newPaymentFixture(t, gateway)
	course := models.Course{Name: "Math", Price: 30}
	require.NoError(t, db.Create(&course).Error)

	payment := models.Payment{UserID: 8, Amount: 30, Currency: "ils", Status: models.PaymentStatusPending, SessionID: "cs_test_2"}
	payment.SetCourseIDs([]uint{course.ID})
	require.NoError(t, db.Create(&payment).Error)

	first, err := svc.Confirm(context.Background(), 8, dto.ConfirmPaymentRequest{SessionID: "cs_test_2"})
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusPaid, first.Status)

	second, err := svc.Confirm(context.Background(), 8, dto.ConfirmPaymentRequest{SessionID: "cs_test_2"})
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusPaid, second.Status)

	var enrollments []models.Enrollment
	require.NoError(t, db.Where("user_id = ?", 8).Find(&enrollments).Error)
	require.Len(t, enrollments, 1)
}

func TestConfirmRejectsForeignSession(t *testing.T) {
	gateway := &stubGateway{session: payments.Session{ID: "cs_test_3", Paid: true}}
	svc, db := newPaymentFixture(t, gateway)
	payment := models.Payment{UserID: 8, SessionID: "cs_test_3", Status: models.PaymentStatusPending}
	require.NoError(t, db.Create(&payment).Error)

	_, err := svc.Confirm(context.Background(), 9, dto.ConfirmPaymentRequest{SessionID: "cs_test_3"})
	require.ErrorIs(t, err, ErrPaymentForbidden)
}

func TestConfirmRejectsUnpaidSession(t *testing.T) {
	gateway := &stubGateway{session: payments.Session{ID: "cs_test_4", Paid: false}}
	svc, db := newPaymentFixture(t, gateway)
	payment := models.Payment{UserID: 8, SessionID: "cs_test_4", Status: models.PaymentStatusPending}
	require.NoError(t, db.Create(&payment).Error)

	_, err := svc.Confirm(context.Background(), 8, dto.ConfirmPaymentRequest{SessionID: "cs_test_4"})
	require.ErrorIs(t, err, ErrSessionNotPaid)
}

func TestWebhookSettlesKnownSession(t *testing.T) {
	gateway := &stubGateway{event: payments.Event{
		Type:    "checkout.session.completed",
		Session: payments.Session{ID: "cs_test_5", Paid: true},
	}}
	svc, db := newPaymentFixture(t, gateway)
	course := models.Course{Name: "Physics", Price: 25}
	require.NoError(t, db.Create(&course).Error)
	payment := models.Payment{UserID: 2, SessionID: "cs_test_5", Status: models.PaymentStatusPending}
	payment.SetCourseIDs([]uint{course.ID})
	require.NoError(t, db.Create(&payment).Error)

	require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
	require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"), "redelivery is idempotent")

	var updated models.Payment
	require.NoError(t, db.Where("session_id = ?", "cs_test_5").First(&updated).Error)
	require.Equal(t, models.PaymentStatusPaid, updated.Status)

	var enrollments []models.Enrollment
	require.NoError(t, db.Where("user_id = ?", 2).Find(&enrollments).Error)
	require.Len(t, enrollments, 1)
}

func TestWebhookIgnoresUnknownSession(t *testing.T) {
	gateway := &stubGateway{event: payments.Event{
		Type:    "checkout.session.completed",
		Session: payments.Session{ID: "cs_unknown", Paid: true},
	}}
	svc, _ := newPaymentFixture(t, gateway)

	require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
}

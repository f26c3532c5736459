// Package payments wraps the Stripe checkout API behind a small gateway so
// the payment service stays testable without live credentials.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

// LineItem is one purchasable entry of a checkout session.
type LineItem struct {
	Name        string
	AmountMinor int64
	Quantity    int64
}

// CheckoutParams describes a hosted checkout session to create.
type CheckoutParams struct {
	Currency   string
	LineItems  []LineItem
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// Session is the gateway-neutral view of a checkout session.
type Session struct {
	ID          string
	URL         string
	AmountMinor int64
	Paid        bool
	Metadata    map[string]string
}

// Event is a verified webhook notification.
type Event struct {
	Type    string
	Session Session
}

// Config carries Stripe credentials.
type Config struct {
	SecretKey     string
	WebhookSecret string
}

// StripeGateway talks to the Stripe checkout API.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	logger        zerolog.Logger
}

// NewStripeGateway constructs a gateway with its own API client.
func NewStripeGateway(cfg Config, logger zerolog.Logger) (*StripeGateway, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key must be provided")
	}
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &StripeGateway{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		logger:        logger.With().Str("component", "stripe_gateway").Logger(),
	}, nil
}

// CreateSession opens a hosted checkout session.
func (g *StripeGateway) CreateSession(ctx context.Context, params CheckoutParams) (Session, error) {
	currency := strings.ToLower(params.Currency)
	if currency == "" {
		currency = "ils"
	}

	items := make([]*stripe.CheckoutSessionLineItemParams, 0, len(params.LineItems))
	for _, item := range params.LineItems {
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		items = append(items, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(item.AmountMinor),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
			Quantity: stripe.Int64(quantity),
		})
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  items,
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
	}
	sessionParams.Context = ctx
	for key, value := range params.Metadata {
		sessionParams.AddMetadata(key, value)
	}

	created, err := g.api.CheckoutSessions.New(sessionParams)
	if err != nil {
		return Session{}, fmt.Errorf("create checkout session: %w", err)
	}
	return fromStripeSession(created), nil
}

// GetSession fetches a session by its identifier.
func (g *StripeGateway) GetSession(ctx context.Context, sessionID string) (Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	found, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return Session{}, fmt.Errorf("fetch checkout session: %w", err)
	}
	return fromStripeSession(found), nil
}

// ParseWebhook verifies the signature and decodes the carried session.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return Event{}, fmt.Errorf("verify webhook: %w", err)
	}

	parsed := Event{Type: string(event.Type)}
	if strings.HasPrefix(parsed.Type, "checkout.session.") {
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return Event{}, fmt.Errorf("decode webhook session: %w", err)
		}
		parsed.Session = fromStripeSession(&sess)
	}
	return parsed, nil
}

func fromStripeSession(sess *stripe.CheckoutSession) Session {
	if sess == nil {
		return Session{}
	}
	return Session{
		ID:          sess.ID,
		URL:         sess.URL,
		AmountMinor: sess.AmountTotal,
		Paid:        sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Metadata:    sess.Metadata,
	}
}

// AmountMinorFromPrice converts a decimal course price to minor units.
func AmountMinorFromPrice(price float64) int64 {
	return int64(price*100 + 0.5)
}

// EncodeIDs joins identifiers for session metadata.
func EncodeIDs(ids []uint) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatUint(uint64(id), 10))
	}
	return strings.Join(parts, ",")
}

// DecodeIDs parses identifiers from session metadata.
func DecodeIDs(raw string) []uint {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]uint, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(value))
	}
	return ids
}

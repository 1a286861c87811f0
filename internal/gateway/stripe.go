package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v75"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"
	"github.com/stripe/stripe-go/v75/webhook"

	"carrental-backend/internal/config"
	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
)

// Metadata keys written on every checkout session.
const (
	MetadataRentalID    = "rentalId"
	MetadataType        = "type"
	MetadataAmountToPay = "amountToPay"
)

const (
	EventCheckoutCompleted     = "checkout.session.completed"
	EventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"

	serviceName = "stripe"
)

// idempotencyNamespace scopes the UUIDv5 idempotency keys of this service.
var idempotencyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:carrental:checkout-session"))

// Session is the provider-neutral view of a checkout session.
type Session struct {
	ID       string
	URL      string
	Created  time.Time
	Paid     bool
	Metadata map[string]string
}

// Event is a verified webhook event. Session is set only for checkout
// session events.
type Event struct {
	ID      string
	Type    string
	Session *Session
}

// SessionRequest carries what is needed to open a checkout session.
type SessionRequest struct {
	RentalID   int64
	Type       domain.PaymentType
	Amount     decimal.Decimal
	SuccessURL string
	CancelURL  string
}

type checkoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type StripeGateway struct {
	sessions      checkoutSessions
	webhookSecret string
	currency      string
	expiry        time.Duration
	now           func() time.Time
}

func NewStripeGateway(cfg *config.Config) *StripeGateway {
	client := &checkoutsession.Client{
		B:   stripe.GetBackend(stripe.APIBackend),
		Key: cfg.Stripe.SecretKey,
	}
	return newStripeGateway(client, cfg.Stripe.WebhookSecret, cfg.Stripe.Currency, cfg.SessionExpiry(), time.Now)
}

func newStripeGateway(sessions checkoutSessions, webhookSecret, currency string, expiry time.Duration, now func() time.Time) *StripeGateway {
	return &StripeGateway{
		sessions:      sessions,
		webhookSecret: webhookSecret,
		currency:      currency,
		expiry:        expiry,
		now:           now,
	}
}

// IdempotencyKey derives a stable key from the rental, the payment type and
// the current minute, so client retries within a minute reuse one session.
func IdempotencyKey(rentalID int64, paymentType domain.PaymentType, at time.Time) string {
	name := fmt.Sprintf("%d:%s:%d", rentalID, paymentType, at.Unix()/60)
	return uuid.NewSHA1(idempotencyNamespace, []byte(name)).String()
}

// MinorUnits converts an amount to the provider's smallest currency unit,
// truncating anything below a cent.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}

func (g *StripeGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	logger.ExternalServiceCall(serviceName, "checkout.session.create", "rentalID", req.RentalID, "type", req.Type, "amount", req.Amount.StringFixed(2))

	params := &stripe.CheckoutSessionParams{
		Params:     stripe.Params{Context: ctx},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(g.currency),
					UnitAmount: stripe.Int64(MinorUnits(req.Amount)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("Rental #%d %s", req.RentalID, strings.ToLower(string(req.Type)))),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			MetadataRentalID:    strconv.FormatInt(req.RentalID, 10),
			MetadataType:        string(req.Type),
			MetadataAmountToPay: req.Amount.StringFixed(2),
		},
	}
	params.SetIdempotencyKey(IdempotencyKey(req.RentalID, req.Type, g.now()))

	s, err := g.sessions.New(params)
	logger.ExternalServiceResult(serviceName, "checkout.session.create", err, "rentalID", req.RentalID)
	if err != nil {
		return nil, domain.NewProviderError(domain.CodeProviderUnavailable, "create checkout session", err)
	}
	return toSession(s), nil
}

func (g *StripeGateway) RetrieveSession(ctx context.Context, sessionID string) (*Session, error) {
	logger.ExternalServiceCall(serviceName, "checkout.session.get", "sessionID", sessionID)
	s, err := g.sessions.Get(sessionID, &stripe.CheckoutSessionParams{Params: stripe.Params{Context: ctx}})
	logger.ExternalServiceResult(serviceName, "checkout.session.get", err, "sessionID", sessionID)
	if err != nil {
		return nil, domain.NewProviderError(domain.CodeProviderUnavailable, "retrieve checkout session "+sessionID, err)
	}
	return toSession(s), nil
}

// IsSessionExpired reports whether the session is older than the configured
// expiry. A session the provider already reports as paid is never expired;
// its confirmation may still be in flight. Transport failures are returned
// as is.
func (g *StripeGateway) IsSessionExpired(ctx context.Context, sessionID string) (bool, error) {
	s, err := g.RetrieveSession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if s.Paid {
		return false, nil
	}
	return g.now().Sub(s.Created) > g.expiry, nil
}

// ExtractMetadata parses the rental, type and amount echoed back by the
// provider. No other code reads session metadata.
func (g *StripeGateway) ExtractMetadata(s *Session) (*domain.SessionMetadata, error) {
	if s == nil {
		return nil, domain.NewMalformedPayloadError(domain.CodeMalformedSessionPayload, "session is missing", nil)
	}
	malformed := func(format string, args ...any) error {
		msg := fmt.Sprintf("session %s: ", s.ID) + fmt.Sprintf(format, args...)
		return domain.NewMalformedPayloadError(domain.CodeMalformedSessionPayload, msg, nil)
	}

	rawRental, ok := s.Metadata[MetadataRentalID]
	if !ok || rawRental == "" {
		return nil, malformed("metadata %s is missing", MetadataRentalID)
	}
	rentalID, err := strconv.ParseInt(rawRental, 10, 64)
	if err != nil || rentalID <= 0 {
		return nil, malformed("metadata %s %q is not a valid id", MetadataRentalID, rawRental)
	}

	rawType, ok := s.Metadata[MetadataType]
	if !ok || rawType == "" {
		return nil, malformed("metadata %s is missing", MetadataType)
	}
	paymentType, err := domain.ParsePaymentType(rawType)
	if err != nil {
		return nil, malformed("metadata %s %q is not a payment type", MetadataType, rawType)
	}

	rawAmount, ok := s.Metadata[MetadataAmountToPay]
	if !ok || rawAmount == "" {
		return nil, malformed("metadata %s is missing", MetadataAmountToPay)
	}
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil || !amount.IsPositive() {
		return nil, malformed("metadata %s %q is not a positive amount", MetadataAmountToPay, rawAmount)
	}

	return &domain.SessionMetadata{
		SessionID:   s.ID,
		RentalID:    rentalID,
		Type:        paymentType,
		AmountToPay: amount,
		SessionURL:  s.URL,
	}, nil
}

// VerifyAndDecodeEvent checks the Stripe-Signature header against the
// webhook secret and decodes the event. Unknown event types decode without
// a session and are left for the caller to ignore.
func (g *StripeGateway) VerifyAndDecodeEvent(payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		if isSignatureError(err) {
			return nil, domain.NewProviderError(domain.CodeInvalidSignature, "webhook signature verification failed", err)
		}
		return nil, domain.NewMalformedPayloadError(domain.CodeMalformedPayload, "webhook body is not a valid event", err)
	}

	out := &Event{ID: event.ID, Type: string(event.Type)}
	if !strings.HasPrefix(out.Type, "checkout.session.") {
		return out, nil
	}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return nil, domain.NewMalformedPayloadError(domain.CodeMalformedPayload, "event "+event.ID+" has no data object", nil)
	}
	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, domain.NewMalformedPayloadError(domain.CodeMalformedPayload, "event "+event.ID+" carries no checkout session", err)
	}
	if s.ID == "" {
		return nil, domain.NewMalformedPayloadError(domain.CodeMalformedPayload, "event "+event.ID+" session has no id", nil)
	}
	out.Session = toSession(&s)
	return out, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}

func toSession(s *stripe.CheckoutSession) *Session {
	return &Session{
		ID:       s.ID,
		URL:      s.URL,
		Created:  time.Unix(s.Created, 0).UTC(),
		Paid:     s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Metadata: s.Metadata,
	}
}

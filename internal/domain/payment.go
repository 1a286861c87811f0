package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusExpired PaymentStatus = "EXPIRED"
)

// IsTerminal is true for statuses that admit no further transition.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusExpired
}

type PaymentType string

const (
	PaymentTypePayment PaymentType = "PAYMENT"
	PaymentTypeFine    PaymentType = "FINE"
)

func ParsePaymentType(s string) (PaymentType, error) {
	switch t := PaymentType(strings.ToUpper(strings.TrimSpace(s))); t {
	case PaymentTypePayment, PaymentTypeFine:
		return t, nil
	default:
		return "", NewValidationError(CodeInvalidArgument, "unknown payment type: "+s)
	}
}

type Payment struct {
	ID          int64           `json:"id"`
	RentalID    int64           `json:"rental_id"`
	SessionID   string          `json:"session_id"`
	SessionURL  string          `json:"session_url"`
	AmountToPay decimal.Decimal `json:"amount_to_pay"`
	Status      PaymentStatus   `json:"status"`
	Type        PaymentType     `json:"type"`
	IsDeleted   bool            `json:"-"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SessionMetadata is what the provider echoes back for a checkout session.
// It is the only source the reconciler trusts to rebuild a payment.
type SessionMetadata struct {
	SessionID   string
	RentalID    int64
	Type        PaymentType
	AmountToPay decimal.Decimal
	SessionURL  string
}

// ToPayment builds a payment row from provider-issued metadata.
func (m SessionMetadata) ToPayment(status PaymentStatus) *Payment {
	return &Payment{
		RentalID:    m.RentalID,
		SessionID:   m.SessionID,
		SessionURL:  m.SessionURL,
		AmountToPay: m.AmountToPay,
		Status:      status,
		Type:        m.Type,
	}
}

type PaymentNotice struct {
	PaymentID int64           `json:"payment_id"`
	RentalID  int64           `json:"rental_id"`
	Type      PaymentType     `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
}

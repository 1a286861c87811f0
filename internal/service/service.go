package service

import (
	"context"
	"time"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/gateway"
)

type InventoryService interface {
	Adjust(ctx context.Context, carID int64, quantity int, op domain.InventoryOperation) (*domain.Car, error)
}

type PaymentValidator interface {
	CheckNoPendingPayments(ctx context.Context, userID int64) error
	ValidateAmount(ctx context.Context, metadata *domain.SessionMetadata, existing *domain.Payment) error
}

type PaymentService interface {
	CreatePaymentSession(ctx context.Context, userID, rentalID int64, paymentType domain.PaymentType) (*domain.Payment, error)
	ExpireStaleSessions(ctx context.Context) (int64, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	ReconcileSession(ctx context.Context, userID int64, sessionID string) (*domain.Payment, error)
	ListPayments(ctx context.Context, userID int64) ([]domain.Payment, error)
	GetPayment(ctx context.Context, userID, paymentID int64) (*domain.Payment, error)
}

type RentalService interface {
	CreateRental(ctx context.Context, userID, carID int64, rentalDate, returnDate time.Time) (*domain.Rental, error)
	ReturnRental(ctx context.Context, userID, rentalID int64, returned time.Time) (*domain.Rental, error)
	ListRentals(ctx context.Context, userID int64, active *bool) ([]domain.Rental, error)
	GetRental(ctx context.Context, userID, rentalID int64) (*domain.Rental, error)
	FindOverdue(ctx context.Context, today time.Time) ([]domain.OverdueNotice, error)
}

// Notifier delivers notices out of band. Implementations must not block the
// caller on delivery and must not report delivery failures.
type Notifier interface {
	NotifyRentalCreated(ctx context.Context, rental *domain.Rental)
	NotifyPaymentPaid(ctx context.Context, notice domain.PaymentNotice)
	NotifyOverdue(ctx context.Context, notice domain.OverdueNotice)
}

// PaymentGateway is the payment provider as seen by the payment service.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req gateway.SessionRequest) (*gateway.Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (*gateway.Session, error)
	IsSessionExpired(ctx context.Context, sessionID string) (bool, error)
	ExtractMetadata(session *gateway.Session) (*domain.SessionMetadata, error)
	VerifyAndDecodeEvent(payload []byte, signature string) (*gateway.Event, error)
}

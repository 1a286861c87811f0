package repository

import (
	"context"
	"time"

	"carrental-backend/internal/domain"
)

// Transactor runs fn inside one database transaction carried by ctx.
// Repository calls made with that ctx join the transaction; a nested
// WithinTx joins the outer one instead of opening a second.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type CarRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Car, error)
	// LockForUpdate reads the car under an exclusive row lock held until the
	// surrounding transaction ends. It fails outside a transaction.
	LockForUpdate(ctx context.Context, id int64) (*domain.Car, error)
	UpdateInventory(ctx context.Context, id int64, inventory int) error
}

// Rental filter keys accepted by RentalRepository.Search.
const (
	FilterUserID   = "user_id"
	FilterCarID    = "car_id"
	FilterIsActive = "is_active"
)

// RentalFilter maps filter keys to raw values; all filters are ANDed.
type RentalFilter map[string]string

type RentalRepository interface {
	Create(ctx context.Context, rental *domain.Rental) error
	GetByID(ctx context.Context, id int64) (*domain.Rental, error)
	LockForUpdate(ctx context.Context, id int64) (*domain.Rental, error)
	SetActualReturnDate(ctx context.Context, id int64, returned time.Time) error
	Search(ctx context.Context, filter RentalFilter) ([]domain.Rental, error)
	ListOverdue(ctx context.Context, today time.Time) ([]domain.Rental, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
	// FindBySessionID and FindByRentalAndType return (nil, nil) when no
	// live row matches.
	FindBySessionID(ctx context.Context, sessionID string) (*domain.Payment, error)
	FindByRentalAndType(ctx context.Context, rentalID int64, paymentType domain.PaymentType) (*domain.Payment, error)
	ListByStatus(ctx context.Context, status domain.PaymentStatus) ([]domain.Payment, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Payment, error)
	ExistsPendingForUser(ctx context.Context, userID int64) (bool, error)
	// MarkPaid flips a PENDING row to PAID and reports whether it did.
	MarkPaid(ctx context.Context, id int64) (bool, error)
	// MarkExpired flips the PENDING rows among ids to EXPIRED in one statement.
	MarkExpired(ctx context.Context, ids []int64) (int64, error)
	SoftDelete(ctx context.Context, id int64) error
}

package service_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/gateway"
	"carrental-backend/internal/repository"
)

// passthroughTx runs fn inline, standing in for a database transaction.
type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// MockCarRepo
type MockCarRepo struct {
	mock.Mock
}

func (m *MockCarRepo) GetByID(ctx context.Context, id int64) (*domain.Car, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Car), args.Error(1)
}
func (m *MockCarRepo) LockForUpdate(ctx context.Context, id int64) (*domain.Car, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Car), args.Error(1)
}
func (m *MockCarRepo) UpdateInventory(ctx context.Context, id int64, inventory int) error {
	args := m.Called(ctx, id, inventory)
	return args.Error(0)
}

// MockRentalRepo
type MockRentalRepo struct {
	mock.Mock
}

func (m *MockRentalRepo) Create(ctx context.Context, rental *domain.Rental) error {
	args := m.Called(ctx, rental)
	return args.Error(0)
}
func (m *MockRentalRepo) GetByID(ctx context.Context, id int64) (*domain.Rental, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}
func (m *MockRentalRepo) LockForUpdate(ctx context.Context, id int64) (*domain.Rental, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}
func (m *MockRentalRepo) SetActualReturnDate(ctx context.Context, id int64, returned time.Time) error {
	args := m.Called(ctx, id, returned)
	return args.Error(0)
}
func (m *MockRentalRepo) Search(ctx context.Context, filter repository.RentalFilter) ([]domain.Rental, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Rental), args.Error(1)
}
func (m *MockRentalRepo) ListOverdue(ctx context.Context, today time.Time) ([]domain.Rental, error) {
	args := m.Called(ctx, today)
	return args.Get(0).([]domain.Rental), args.Error(1)
}

// MockPaymentRepo
type MockPaymentRepo struct {
	mock.Mock
}

func (m *MockPaymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}
func (m *MockPaymentRepo) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockPaymentRepo) FindBySessionID(ctx context.Context, sessionID string) (*domain.Payment, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockPaymentRepo) FindByRentalAndType(ctx context.Context, rentalID int64, paymentType domain.PaymentType) (*domain.Payment, error) {
	args := m.Called(ctx, rentalID, paymentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockPaymentRepo) ListByStatus(ctx context.Context, status domain.PaymentStatus) ([]domain.Payment, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]domain.Payment), args.Error(1)
}
func (m *MockPaymentRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Payment, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Payment), args.Error(1)
}
func (m *MockPaymentRepo) ExistsPendingForUser(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}
func (m *MockPaymentRepo) MarkPaid(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
func (m *MockPaymentRepo) MarkExpired(ctx context.Context, ids []int64) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockPaymentRepo) SoftDelete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateSession(ctx context.Context, req gateway.SessionRequest) (*gateway.Session, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Session), args.Error(1)
}
func (m *MockGateway) RetrieveSession(ctx context.Context, sessionID string) (*gateway.Session, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Session), args.Error(1)
}
func (m *MockGateway) IsSessionExpired(ctx context.Context, sessionID string) (bool, error) {
	args := m.Called(ctx, sessionID)
	return args.Bool(0), args.Error(1)
}
func (m *MockGateway) ExtractMetadata(session *gateway.Session) (*domain.SessionMetadata, error) {
	args := m.Called(session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SessionMetadata), args.Error(1)
}
func (m *MockGateway) VerifyAndDecodeEvent(payload []byte, signature string) (*gateway.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Event), args.Error(1)
}

// MockNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyRentalCreated(ctx context.Context, rental *domain.Rental) {
	m.Called(ctx, rental)
}
func (m *MockNotifier) NotifyPaymentPaid(ctx context.Context, notice domain.PaymentNotice) {
	m.Called(ctx, notice)
}
func (m *MockNotifier) NotifyOverdue(ctx context.Context, notice domain.OverdueNotice) {
	m.Called(ctx, notice)
}

// MockInventoryService
type MockInventoryService struct {
	mock.Mock
}

func (m *MockInventoryService) Adjust(ctx context.Context, carID int64, quantity int, op domain.InventoryOperation) (*domain.Car, error) {
	args := m.Called(ctx, carID, quantity, op)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Car), args.Error(1)
}

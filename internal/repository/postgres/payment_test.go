package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/repository/postgres"
)

var paymentRowColumns = []string{"id", "rental_id", "session_id", "session_url", "amount_to_pay", "status", "type", "is_deleted", "created_at"}

func TestPaymentRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	p := &domain.Payment{
		RentalID:    1,
		SessionID:   "cs_test_1",
		SessionURL:  "https://checkout.stripe.com/c/pay/cs_test_1",
		AmountToPay: decimal.RequireFromString("300.00"),
		Status:      domain.PaymentStatusPending,
		Type:        domain.PaymentTypePayment,
	}
	mock.ExpectQuery("INSERT INTO payments").
		WithArgs(int64(1), "cs_test_1", p.SessionURL, sqlmock.AnyArg(), "PENDING", "PAYMENT", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	err = postgres.NewPaymentRepository(db).Create(context.Background(), p)
	assert.NoError(t, err)
	assert.Equal(t, int64(11), p.ID)
	assert.False(t, p.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_Finders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewPaymentRepository(db)
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("FindBySessionID", func(t *testing.T) {
		mock.ExpectQuery("FROM payments WHERE session_id = \\$1 AND is_deleted = FALSE").
			WithArgs("cs_test_1").
			WillReturnRows(sqlmock.NewRows(paymentRowColumns).
				AddRow(11, 1, "cs_test_1", "https://x", "300.00", "PENDING", "PAYMENT", false, created))

		p, err := repo.FindBySessionID(ctx, "cs_test_1")
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, domain.PaymentStatusPending, p.Status)
		assert.Equal(t, "300.00", p.AmountToPay.StringFixed(2))
	})

	t.Run("FindBySessionIDMissing", func(t *testing.T) {
		mock.ExpectQuery("FROM payments WHERE session_id").
			WithArgs("cs_missing").
			WillReturnRows(sqlmock.NewRows(paymentRowColumns))

		p, err := repo.FindBySessionID(ctx, "cs_missing")
		assert.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("FindByRentalAndType", func(t *testing.T) {
		mock.ExpectQuery("FROM payments WHERE rental_id = \\$1 AND type = \\$2 AND is_deleted = FALSE").
			WithArgs(int64(1), "FINE").
			WillReturnRows(sqlmock.NewRows(paymentRowColumns))

		p, err := repo.FindByRentalAndType(ctx, 1, domain.PaymentTypeFine)
		assert.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("GetByIDMissing", func(t *testing.T) {
		mock.ExpectQuery("FROM payments WHERE id = \\$1 AND is_deleted = FALSE").
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows(paymentRowColumns))

		_, err := repo.GetByID(ctx, 99)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ListByStatus", func(t *testing.T) {
		mock.ExpectQuery("FROM payments WHERE status = \\$1 AND is_deleted = FALSE ORDER BY id").
			WithArgs("PENDING").
			WillReturnRows(sqlmock.NewRows(paymentRowColumns).
				AddRow(11, 1, "cs_1", "https://x", "300.00", "PENDING", "PAYMENT", false, created).
				AddRow(12, 2, "cs_2", "https://y", "45.50", "PENDING", "FINE", false, created))

		payments, err := repo.ListByStatus(ctx, domain.PaymentStatusPending)
		require.NoError(t, err)
		assert.Len(t, payments, 2)
		assert.Equal(t, domain.PaymentTypeFine, payments[1].Type)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_ExistsPendingForUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(7), "PENDING").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := postgres.NewPaymentRepository(db).ExistsPendingForUser(context.Background(), 7)
	assert.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_MarkPaid(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewPaymentRepository(db)
	ctx := context.Background()

	mock.ExpectExec("UPDATE payments SET status = \\$1, updated_at = \\$2\\s+WHERE id = \\$3 AND status = \\$4 AND is_deleted = FALSE").
		WithArgs("PAID", sqlmock.AnyArg(), int64(11), "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	flipped, err := repo.MarkPaid(ctx, 11)
	assert.NoError(t, err)
	assert.True(t, flipped)

	mock.ExpectExec("UPDATE payments SET status").
		WithArgs("PAID", sqlmock.AnyArg(), int64(11), "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 0))
	flipped, err = repo.MarkPaid(ctx, 11)
	assert.NoError(t, err)
	assert.False(t, flipped)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_MarkExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewPaymentRepository(db)
	ctx := context.Background()

	mock.ExpectExec("WHERE id = ANY\\(\\$3\\) AND status = \\$4 AND is_deleted = FALSE").
		WithArgs("EXPIRED", sqlmock.AnyArg(), sqlmock.AnyArg(), "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.MarkExpired(ctx, []int64{11, 12, 13})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.MarkExpired(ctx, nil)
	assert.NoError(t, err)
	assert.Zero(t, n)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_SoftDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE payments SET is_deleted = TRUE").
		WithArgs(sqlmock.AnyArg(), int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, postgres.NewPaymentRepository(db).SoftDelete(context.Background(), 11))
	assert.NoError(t, mock.ExpectationsWereMet())
}

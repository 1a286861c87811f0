package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/repository/postgres"
)

var carRowColumns = []string{"id", "model", "brand", "type", "inventory", "daily_fee", "is_deleted"}

func TestCarRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewCarRepository(db, 0)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows(carRowColumns).AddRow(1, "Corolla", "Toyota", "SEDAN", 5, "100.00", false)
		mock.ExpectQuery("SELECT (.+) FROM cars WHERE id = \\$1 AND is_deleted = FALSE").
			WithArgs(int64(1)).
			WillReturnRows(rows)

		car, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Corolla", car.Model)
		assert.Equal(t, domain.CarTypeSedan, car.Type)
		assert.Equal(t, 5, car.Inventory)
		assert.True(t, decimal.RequireFromString("100").Equal(car.DailyFee))
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM cars").
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows(carRowColumns))

		_, err := repo.GetByID(ctx, 2)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCarRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("LocksRowInsideTx", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("SELECT set_config\\('lock_timeout', \\$1, true\\)").
			WithArgs("5000ms").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT (.+) FROM cars WHERE id = \\$1 AND is_deleted = FALSE FOR UPDATE").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(carRowColumns).AddRow(1, "Corolla", "Toyota", "SEDAN", 5, "100.00", false))
		mock.ExpectCommit()

		store := postgres.NewStore(db, 5*time.Second)
		err = store.WithinTx(ctx, func(ctx context.Context) error {
			car, err := store.CarRepository.LockForUpdate(ctx, 1)
			if err == nil {
				assert.Equal(t, 5, car.Inventory)
			}
			return err
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("LockTimeoutIsRetryableConflict", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").
			WithArgs(int64(1)).
			WillReturnError(&pq.Error{Code: "55P03"})
		mock.ExpectRollback()

		store := postgres.NewStore(db, 0)
		err = store.WithinTx(ctx, func(ctx context.Context) error {
			_, err := store.CarRepository.LockForUpdate(ctx, 1)
			return err
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.True(t, domain.IsRetryable(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RequiresTransaction", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		_, err = postgres.NewCarRepository(db, 0).LockForUpdate(ctx, 1)
		assert.Error(t, err)
	})
}

func TestCarRepository_UpdateInventory(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewCarRepository(db, 0)

	mock.ExpectExec("UPDATE cars SET inventory = \\$1, updated_at = \\$2 WHERE id = \\$3 AND is_deleted = FALSE").
		WithArgs(4, sqlmock.AnyArg(), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.UpdateInventory(context.Background(), 9, 4)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

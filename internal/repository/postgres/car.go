package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/repository"
)

var errLockOutsideTx = errors.New("lock for update requires a transaction")

const carColumns = `id, model, brand, type, inventory, daily_fee, is_deleted`

type carRepository struct {
	db          *sql.DB
	lockTimeout time.Duration
}

func NewCarRepository(db *sql.DB, lockTimeout time.Duration) repository.CarRepository {
	return &carRepository{db: db, lockTimeout: lockTimeout}
}

func (r *carRepository) GetByID(ctx context.Context, id int64) (*domain.Car, error) {
	query := `SELECT ` + carColumns + ` FROM cars WHERE id = $1 AND is_deleted = FALSE`
	return r.scanOne(conn(ctx, r.db).QueryRowContext(ctx, query, id), id)
}

func (r *carRepository) LockForUpdate(ctx context.Context, id int64) (*domain.Car, error) {
	tx, ok := txFromContext(ctx)
	if !ok {
		return nil, errLockOutsideTx
	}

	if r.lockTimeout > 0 {
		// set_config(..., true) is SET LOCAL: scoped to this transaction.
		timeout := fmt.Sprintf("%dms", r.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, `SELECT set_config('lock_timeout', $1, true)`, timeout); err != nil {
			return nil, fmt.Errorf("set lock timeout: %w", err)
		}
	}

	logger.DatabaseCall("SELECT FOR UPDATE", "cars", "carID", id)
	query := `SELECT ` + carColumns + ` FROM cars WHERE id = $1 AND is_deleted = FALSE FOR UPDATE`
	car, err := r.scanOne(tx.QueryRowContext(ctx, query, id), id)
	if err != nil {
		return nil, mapError(err)
	}
	return car, nil
}

func (r *carRepository) UpdateInventory(ctx context.Context, id int64, inventory int) error {
	query := `UPDATE cars SET inventory = $1, updated_at = $2 WHERE id = $3 AND is_deleted = FALSE`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, inventory, time.Now(), id)
	if err != nil {
		return mapError(err)
	}
	rows, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", rows, err, "table", "cars", "carID", id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.NewNotFoundError("car", id)
	}
	return nil
}

func (r *carRepository) scanOne(row *sql.Row, id int64) (*domain.Car, error) {
	c := &domain.Car{}
	err := row.Scan(&c.ID, &c.Model, &c.Brand, &c.Type, &c.Inventory, &c.DailyFee, &c.IsDeleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("car", id)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/repository"
)

type Store struct {
	db *sql.DB
	repository.Transactor
	repository.CarRepository
	repository.RentalRepository
	repository.PaymentRepository
}

func NewStore(db *sql.DB, lockTimeout time.Duration) *Store {
	return &Store{
		db:                db,
		Transactor:        NewTransactor(db),
		CarRepository:     NewCarRepository(db, lockTimeout),
		RentalRepository:  NewRentalRepository(db),
		PaymentRepository: NewPaymentRepository(db),
	}
}

// DB exposes the pool for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

type txKey struct{}

// querier is the subset of *sql.DB and *sql.Tx the repositories use.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func txFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}

// conn returns the transaction carried by ctx, or the pool.
func conn(ctx context.Context, db *sql.DB) querier {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return db
}

type transactor struct {
	db *sql.DB
}

func NewTransactor(db *sql.DB) repository.Transactor {
	return &transactor{db: db}
}

func (t *transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("Rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// mapError translates driver errors into domain errors where the caller can
// act on them. Anything else passes through unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "lock_not_available":
			e := domain.NewConflictError(domain.CodeLockTimeout, "row is locked by another request, retry later")
			e.Cause = err
			return e
		case "unique_violation":
			e := domain.NewConflictError(domain.CodeDuplicate, "duplicate "+pqErr.Constraint)
			e.Cause = err
			return e
		}
	}
	return err
}

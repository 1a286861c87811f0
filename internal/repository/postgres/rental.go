package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/repository"
)

const rentalColumns = `id, rental_date, return_date, actual_return_date, user_id, car_id, is_deleted`

// rentalPredicate builds one WHERE clause for a filter value. next is the
// index of the first free positional parameter.
type rentalPredicate func(value string, next int) (clause string, args []any, err error)

var rentalFilters = map[string]rentalPredicate{
	repository.FilterUserID: idPredicate("user_id"),
	repository.FilterCarID:  idPredicate("car_id"),
	repository.FilterIsActive: func(value string, _ int) (string, []any, error) {
		active, err := strconv.ParseBool(value)
		if err != nil {
			return "", nil, fmt.Errorf("is_active: %w", err)
		}
		if active {
			return "actual_return_date IS NULL", nil, nil
		}
		return "actual_return_date IS NOT NULL", nil, nil
	},
}

func idPredicate(column string) rentalPredicate {
	return func(value string, next int) (string, []any, error) {
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", column, err)
		}
		return fmt.Sprintf("%s = $%d", column, next), []any{id}, nil
	}
}

type rentalRepository struct {
	db *sql.DB
}

func NewRentalRepository(db *sql.DB) repository.RentalRepository {
	return &rentalRepository{db: db}
}

func (r *rentalRepository) Create(ctx context.Context, rt *domain.Rental) error {
	query := `INSERT INTO rentals (rental_date, return_date, user_id, car_id, created_at)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := conn(ctx, r.db).QueryRowContext(ctx, query, rt.RentalDate, rt.ReturnDate, rt.UserID, rt.CarID, time.Now()).Scan(&rt.ID)
	return mapError(err)
}

func (r *rentalRepository) GetByID(ctx context.Context, id int64) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1 AND is_deleted = FALSE`
	return scanRental(conn(ctx, r.db).QueryRowContext(ctx, query, id), id)
}

func (r *rentalRepository) LockForUpdate(ctx context.Context, id int64) (*domain.Rental, error) {
	tx, ok := txFromContext(ctx)
	if !ok {
		return nil, errLockOutsideTx
	}
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1 AND is_deleted = FALSE FOR UPDATE`
	rt, err := scanRental(tx.QueryRowContext(ctx, query, id), id)
	return rt, mapError(err)
}

func (r *rentalRepository) SetActualReturnDate(ctx context.Context, id int64, returned time.Time) error {
	query := `UPDATE rentals SET actual_return_date = $1, updated_at = $2
	          WHERE id = $3 AND actual_return_date IS NULL AND is_deleted = FALSE`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, returned, time.Now(), id)
	if err != nil {
		return mapError(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.NewConflictError(domain.CodeRentalClosed, fmt.Sprintf("rental %d is already returned", id))
	}
	return nil
}

func (r *rentalRepository) Search(ctx context.Context, filter repository.RentalFilter) ([]domain.Rental, error) {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	where := []string{"is_deleted = FALSE"}
	var args []any
	for _, k := range keys {
		build, ok := rentalFilters[k]
		if !ok {
			return nil, domain.NewValidationError(domain.CodeInvalidArgument, "unknown rental filter "+k,
				domain.FieldError{Field: k, Message: "unsupported filter"})
		}
		clause, clauseArgs, err := build(filter[k], len(args)+1)
		if err != nil {
			return nil, domain.NewValidationError(domain.CodeInvalidArgument, err.Error(),
				domain.FieldError{Field: k, Message: "invalid value"})
		}
		where = append(where, clause)
		args = append(args, clauseArgs...)
	}

	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE ` + strings.Join(where, " AND ") + ` ORDER BY rental_date DESC, id DESC`
	return r.list(ctx, query, args...)
}

func (r *rentalRepository) ListOverdue(ctx context.Context, today time.Time) ([]domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals
	          WHERE is_deleted = FALSE AND actual_return_date IS NULL AND return_date <= $1
	          ORDER BY return_date, id`
	return r.list(ctx, query, domain.TruncateDate(today))
}

func (r *rentalRepository) list(ctx context.Context, query string, args ...any) ([]domain.Rental, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rentals []domain.Rental
	for rows.Next() {
		rt, err := scanRentalRow(rows)
		if err != nil {
			return nil, err
		}
		rentals = append(rentals, *rt)
	}
	return rentals, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRentalRow(row rowScanner) (*domain.Rental, error) {
	rt := &domain.Rental{}
	var actual sql.NullTime
	if err := row.Scan(&rt.ID, &rt.RentalDate, &rt.ReturnDate, &actual, &rt.UserID, &rt.CarID, &rt.IsDeleted); err != nil {
		return nil, err
	}
	if actual.Valid {
		t := actual.Time
		rt.ActualReturnDate = &t
	}
	return rt, nil
}

func scanRental(row *sql.Row, id int64) (*domain.Rental, error) {
	rt, err := scanRentalRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("rental", id)
	}
	return rt, err
}

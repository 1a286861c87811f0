package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/repository"
)

const paymentColumns = `id, rental_id, session_id, session_url, amount_to_pay, status, type, is_deleted, created_at`

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	logger.EnterMethod("paymentRepository.Create", "rentalID", p.RentalID, "type", p.Type, "sessionID", p.SessionID)

	query := `INSERT INTO payments (rental_id, session_id, session_url, amount_to_pay, status, type, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		p.RentalID, p.SessionID, p.SessionURL, p.AmountToPay, p.Status, p.Type, p.CreatedAt,
	).Scan(&p.ID)
	logger.DatabaseResult("INSERT", 1, err, "table", "payments", "paymentID", p.ID)

	if err != nil {
		err = mapError(err)
		logger.ExitMethodWithError("paymentRepository.Create", err, "sessionID", p.SessionID)
		return err
	}
	logger.ExitMethod("paymentRepository.Create", "paymentID", p.ID)
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 AND is_deleted = FALSE`
	p, err := scanPayment(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("payment", id)
	}
	return p, err
}

func (r *paymentRepository) FindBySessionID(ctx context.Context, sessionID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE session_id = $1 AND is_deleted = FALSE`
	return optional(scanPayment(conn(ctx, r.db).QueryRowContext(ctx, query, sessionID)))
}

func (r *paymentRepository) FindByRentalAndType(ctx context.Context, rentalID int64, paymentType domain.PaymentType) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE rental_id = $1 AND type = $2 AND is_deleted = FALSE`
	return optional(scanPayment(conn(ctx, r.db).QueryRowContext(ctx, query, rentalID, paymentType)))
}

func (r *paymentRepository) ListByStatus(ctx context.Context, status domain.PaymentStatus) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE status = $1 AND is_deleted = FALSE ORDER BY id`
	return r.list(ctx, query, status)
}

func (r *paymentRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Payment, error) {
	query := `SELECT p.id, p.rental_id, p.session_id, p.session_url, p.amount_to_pay, p.status, p.type, p.is_deleted, p.created_at
	          FROM payments p JOIN rentals r ON r.id = p.rental_id
	          WHERE r.user_id = $1 AND p.is_deleted = FALSE AND r.is_deleted = FALSE
	          ORDER BY p.created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *paymentRepository) ExistsPendingForUser(ctx context.Context, userID int64) (bool, error) {
	query := `SELECT EXISTS (
	              SELECT 1 FROM payments p JOIN rentals r ON r.id = p.rental_id
	              WHERE r.user_id = $1 AND p.status = $2 AND p.is_deleted = FALSE AND r.is_deleted = FALSE)`
	var exists bool
	err := conn(ctx, r.db).QueryRowContext(ctx, query, userID, domain.PaymentStatusPending).Scan(&exists)
	return exists, err
}

func (r *paymentRepository) MarkPaid(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE payments SET status = $1, updated_at = $2
	          WHERE id = $3 AND status = $4 AND is_deleted = FALSE`
	logger.DatabaseCall("UPDATE", "payments", "paymentID", id, "status", domain.PaymentStatusPaid)
	res, err := conn(ctx, r.db).ExecContext(ctx, query, domain.PaymentStatusPaid, time.Now(), id, domain.PaymentStatusPending)
	if err != nil {
		return false, mapError(err)
	}
	rows, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", rows, err, "table", "payments")
	return rows == 1, err
}

func (r *paymentRepository) MarkExpired(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `UPDATE payments SET status = $1, updated_at = $2
	          WHERE id = ANY($3) AND status = $4 AND is_deleted = FALSE`
	logger.DatabaseCall("UPDATE", "payments", "count", len(ids), "status", domain.PaymentStatusExpired)
	res, err := conn(ctx, r.db).ExecContext(ctx, query, domain.PaymentStatusExpired, time.Now(), pq.Array(ids), domain.PaymentStatusPending)
	if err != nil {
		return 0, mapError(err)
	}
	rows, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", rows, err, "table", "payments")
	return rows, err
}

func (r *paymentRepository) SoftDelete(ctx context.Context, id int64) error {
	query := `UPDATE payments SET is_deleted = TRUE, updated_at = $1 WHERE id = $2 AND is_deleted = FALSE`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.NewNotFoundError("payment", id)
	}
	return nil
}

func (r *paymentRepository) list(ctx context.Context, query string, args ...any) ([]domain.Payment, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	p := &domain.Payment{}
	if err := row.Scan(&p.ID, &p.RentalID, &p.SessionID, &p.SessionURL, &p.AmountToPay, &p.Status, &p.Type, &p.IsDeleted, &p.CreatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

func optional(p *domain.Payment, err error) (*domain.Payment, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/outdoorcamp/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*domain.Payment, error)
	List(ctx context.Context) ([]domain.Payment, error)
	ListByBookings(ctx context.Context, bookingIDs []uuid.UUID) ([]domain.Payment, error)
	Update(ctx context.Context, id uuid.UUID, patch domain.PaymentPatch, confirmBooking bool) (*domain.Payment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type PGPaymentRepository struct {
	db DB
}

func NewPaymentRepository(db DB) PaymentRepository {
	return &PGPaymentRepository{db: db}
}

const paymentColumns = `id, booking_id, amount, method, status, transaction_id, notes, created_at, updated_at`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	if err := row.Scan(&p.ID, &p.BookingID, &p.Amount, &p.Method, &p.Status, &p.TransactionID, &p.Notes, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

func collectPayments(rows pgx.Rows) ([]domain.Payment, error) {
	defer rows.Close()

	payments := make([]domain.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

// Create inserts a payment. The unique booking_id constraint turns a
// concurrent second payment for the same booking into ErrPaymentExists.
func (r *PGPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx, `INSERT INTO payments (id, booking_id, amount, method, status, transaction_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		payment.ID, payment.BookingID, payment.Amount, payment.Method, string(payment.Status), payment.TransactionID, payment.Notes).
		Scan(&payment.CreatedAt, &payment.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrPaymentExists
	}
	return err
}

func (r *PGPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	return scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1`, id))
}

func (r *PGPaymentRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*domain.Payment, error) {
	return scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id=$1`, bookingID))
}

func (r *PGPaymentRepository) List(ctx context.Context) ([]domain.Payment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

func (r *PGPaymentRepository) ListByBookings(ctx context.Context, bookingIDs []uuid.UUID) ([]domain.Payment, error) {
	if len(bookingIDs) == 0 {
		return []domain.Payment{}, nil
	}
	ids := make([]string, len(bookingIDs))
	for i, id := range bookingIDs {
		ids[i] = id.String()
	}

	rows, err := r.db.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id = ANY($1::uuid[]) ORDER BY created_at DESC`, ids)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

// Update applies patch and, when confirmBooking is set, moves the payment's
// booking to confirmed in the same transaction. A booking that no longer
// exists is left alone.
func (r *PGPaymentRepository) Update(ctx context.Context, id uuid.UUID, patch domain.PaymentPatch, confirmBooking bool) (*domain.Payment, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	payment, err := scanPayment(tx.QueryRow(ctx, `UPDATE payments SET
			status = COALESCE($2, status),
			transaction_id = COALESCE($3, transaction_id),
			notes = COALESCE($4, notes),
			updated_at = now()
		WHERE id=$1
		RETURNING `+paymentColumns,
		id, (*string)(patch.Status), patch.TransactionID, patch.Notes))
	if err != nil {
		return nil, err
	}

	if confirmBooking {
		if _, err := tx.Exec(ctx, `UPDATE bookings SET status=$2, updated_at=now() WHERE id=$1`,
			payment.BookingID, string(domain.BookingStatusConfirmed)); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *PGPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.Exec(ctx, `DELETE FROM payments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

var _ PaymentRepository = (*PGPaymentRepository)(nil)

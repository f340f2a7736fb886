package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/outdoorcamp/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type BookingRepository interface {
	CreatePending(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	List(ctx context.Context, filter BookingFilter) ([]domain.Booking, error)
	ListIDsByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	Update(ctx context.Context, id uuid.UUID, patch domain.BookingPatch) (*domain.Booking, error)
	CancelAndRelease(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
}

// BookingFilter narrows List. A nil UserID lists every booking.
type BookingFilter struct {
	UserID *uuid.UUID
}

type PGBookingRepository struct {
	db DB
}

func NewBookingRepository(db DB) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `b.id, b.user_id, b.product_id, COALESCE(p.name, '` + domain.UnknownProductName + `'), b.start_date, b.end_date, b.quantity, b.total_price, b.status, b.notes, b.created_at, b.updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.UserID, &b.ProductID, &b.ProductName, &b.StartDate, &b.EndDate, &b.Quantity, &b.TotalPrice, &b.Status, &b.Notes, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

// CreatePending takes booking.Quantity units from stock and inserts the
// booking in one transaction. The conditional decrement keeps stock from
// going negative under concurrent requests.
func (r *PGBookingRepository) CreatePending(ctx context.Context, booking *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var price decimal.Decimal
	err = tx.QueryRow(ctx, `UPDATE products SET stock = stock - $2, updated_at = now() WHERE id=$1 AND stock >= $2 RETURNING name, price`,
		booking.ProductID, booking.Quantity).Scan(&booking.ProductName, &price)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id=$1)`, booking.ProductID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrProductNotFound
		}
		return domain.ErrInsufficientStock
	}
	if err != nil {
		return err
	}

	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	booking.Status = domain.BookingStatusPending
	booking.TotalPrice = domain.TotalPrice(price, booking.Quantity)
	if err := tx.QueryRow(ctx, `INSERT INTO bookings (id, user_id, product_id, start_date, end_date, quantity, total_price, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		booking.ID, booking.UserID, booking.ProductID, booking.StartDate, booking.EndDate, booking.Quantity, booking.TotalPrice, string(booking.Status), booking.Notes).
		Scan(&booking.CreatedAt, &booking.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings b LEFT JOIN products p ON p.id = b.product_id WHERE b.id=$1`, id))
}

func (r *PGBookingRepository) List(ctx context.Context, filter BookingFilter) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings b LEFT JOIN products p ON p.id = b.product_id`
	var args []any
	if filter.UserID != nil {
		query += ` WHERE b.user_id=$1`
		args = append(args, *filter.UserID)
	}
	query += ` ORDER BY b.created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) ListIDsByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM bookings WHERE user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Update applies the non-nil fields of patch. Stock is not reconciled when
// the quantity changes.
func (r *PGBookingRepository) Update(ctx context.Context, id uuid.UUID, patch domain.BookingPatch) (*domain.Booking, error) {
	return scanBooking(r.db.QueryRow(ctx, `WITH b AS (
			UPDATE bookings SET
				status = COALESCE($2, status),
				start_date = COALESCE($3, start_date),
				end_date = COALESCE($4, end_date),
				quantity = COALESCE($5, quantity),
				notes = COALESCE($6, notes),
				updated_at = now()
			WHERE id=$1
			RETURNING *
		)
		SELECT `+bookingColumns+` FROM b LEFT JOIN products p ON p.id = b.product_id`,
		id, (*string)(patch.Status), patch.StartDate, patch.EndDate, patch.Quantity, patch.Notes))
}

// CancelAndRelease deletes the booking and returns its quantity to stock in
// one transaction. Only the caller whose DELETE removed the row restores
// stock, so concurrent cancellations release it once.
func (r *PGBookingRepository) CancelAndRelease(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var b domain.Booking
	err = tx.QueryRow(ctx, `DELETE FROM bookings WHERE id=$1
		RETURNING id, user_id, product_id, start_date, end_date, quantity, total_price, status, notes, created_at, updated_at`, id).
		Scan(&b.ID, &b.UserID, &b.ProductID, &b.StartDate, &b.EndDate, &b.Quantity, &b.TotalPrice, &b.Status, &b.Notes, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}

	// The product may have been deleted; there is no stock to restore then.
	err = tx.QueryRow(ctx, `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id=$1 RETURNING name`, b.ProductID, b.Quantity).Scan(&b.ProductName)
	if errors.Is(err, pgx.ErrNoRows) {
		b.ProductName = domain.UnknownProductName
	} else if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	b.Status = domain.BookingStatusCancelled
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)

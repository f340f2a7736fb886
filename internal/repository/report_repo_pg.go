package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/outdoorcamp/internal/domain"
)

type ReportRepository interface {
	Stats(ctx context.Context) (*domain.Stats, error)
	MonthlyRevenue(ctx context.Context, since time.Time) ([]domain.Bucket, error)
	DailyBookings(ctx context.Context, since time.Time) ([]domain.Bucket, error)
	PopularProducts(ctx context.Context, limit int) ([]domain.PopularProduct, error)
}

type PGReportRepository struct {
	db DB
}

func NewReportRepository(db DB) ReportRepository {
	return &PGReportRepository{db: db}
}

func (r *PGReportRepository) Stats(ctx context.Context) (*domain.Stats, error) {
	var s domain.Stats
	err := r.db.QueryRow(ctx, `SELECT
			(SELECT count(*) FROM users WHERE role = 'user'),
			(SELECT count(*) FROM products),
			(SELECT count(*) FROM products WHERE status = 'available'),
			(SELECT count(*) FROM products WHERE status = 'unavailable'),
			(SELECT count(*) FROM bookings),
			(SELECT count(*) FROM bookings WHERE status = 'pending'),
			(SELECT count(*) FROM bookings WHERE status = 'confirmed'),
			(SELECT count(*) FROM bookings WHERE status = 'completed'),
			(SELECT COALESCE(sum(amount), 0) FROM payments WHERE status = 'completed'),
			(SELECT COALESCE(sum(amount), 0) FROM payments WHERE status = 'pending')`).
		Scan(&s.Users.Total,
			&s.Products.Total, &s.Products.Available, &s.Products.Unavailable,
			&s.Bookings.Total, &s.Bookings.Pending, &s.Bookings.Confirmed, &s.Bookings.Completed,
			&s.Revenue.Completed, &s.Revenue.Pending)
	if err != nil {
		return nil, err
	}
	s.Revenue.Total = s.Revenue.Completed
	return &s, nil
}

// MonthlyRevenue sums completed payments per UTC calendar month from since on.
func (r *PGReportRepository) MonthlyRevenue(ctx context.Context, since time.Time) ([]domain.Bucket, error) {
	return r.buckets(ctx, `SELECT date_trunc('month', created_at AT TIME ZONE 'UTC') AS period, COALESCE(sum(amount), 0), count(*)
		FROM payments
		WHERE status = 'completed' AND created_at >= $1
		GROUP BY period ORDER BY period`, since)
}

// DailyBookings counts bookings created per UTC day from since on.
func (r *PGReportRepository) DailyBookings(ctx context.Context, since time.Time) ([]domain.Bucket, error) {
	return r.buckets(ctx, `SELECT date_trunc('day', created_at AT TIME ZONE 'UTC') AS period, COALESCE(sum(total_price), 0), count(*)
		FROM bookings
		WHERE created_at >= $1
		GROUP BY period ORDER BY period`, since)
}

func (r *PGReportRepository) buckets(ctx context.Context, query string, since time.Time) ([]domain.Bucket, error) {
	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	buckets := make([]domain.Bucket, 0)
	for rows.Next() {
		var b domain.Bucket
		if err := rows.Scan(&b.Start, &b.Amount, &b.Count); err != nil {
			return nil, err
		}
		b.Start = time.Date(b.Start.Year(), b.Start.Month(), b.Start.Day(), 0, 0, 0, 0, time.UTC)
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// PopularProducts ranks existing products by total booked quantity.
func (r *PGReportRepository) PopularProducts(ctx context.Context, limit int) ([]domain.PopularProduct, error) {
	rows, err := r.db.Query(ctx, `SELECT p.id, p.name, sum(b.quantity) AS booked, sum(b.quantity) * p.price
		FROM bookings b
		JOIN products p ON p.id = b.product_id
		GROUP BY p.id, p.name, p.price
		ORDER BY booked DESC, p.name
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	popular := make([]domain.PopularProduct, 0)
	for rows.Next() {
		var p domain.PopularProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.Bookings, &p.Revenue); err != nil {
			return nil, err
		}
		popular = append(popular, p)
	}
	return popular, rows.Err()
}

var _ ReportRepository = (*PGReportRepository)(nil)

package reports

import (
	"context"
	"time"

	"github.com/Domenick1991/outdoorcamp/internal/domain"
	"github.com/Domenick1991/outdoorcamp/internal/repository"
	"github.com/shopspring/decimal"
)

const (
	revenueMonths    = 12
	trendDays        = 30
	popularLimit     = 10
	monthLabelLayout = "Jan 2006"
	dayLabelLayout   = "2006-01-02"
)

type ReportUseCase interface {
	Stats(ctx context.Context, actor domain.Principal) (*domain.Stats, error)
	Revenue(ctx context.Context, actor domain.Principal) ([]domain.MonthlyRevenue, error)
	BookingsTrend(ctx context.Context, actor domain.Principal) ([]domain.DailyBookings, error)
	PopularProducts(ctx context.Context, actor domain.Principal) ([]domain.PopularProduct, error)
}

type ReportService struct {
	repo repository.ReportRepository
	now  func() time.Time
}

func NewReportService(repo repository.ReportRepository) *ReportService {
	return &ReportService{repo: repo, now: time.Now}
}

func (s *ReportService) Stats(ctx context.Context, actor domain.Principal) (*domain.Stats, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.repo.Stats(ctx)
}

// Revenue returns completed payment totals for the last twelve UTC months,
// oldest first, the current month included. Months without payments are zero.
func (s *ReportService) Revenue(ctx context.Context, actor domain.Principal) ([]domain.MonthlyRevenue, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(revenueMonths - 1), 0)

	buckets, err := s.repo.MonthlyRevenue(ctx, first)
	if err != nil {
		return nil, err
	}
	byMonth := make(map[time.Time]decimal.Decimal, len(buckets))
	for _, b := range buckets {
		byMonth[time.Date(b.Start.Year(), b.Start.Month(), 1, 0, 0, 0, 0, time.UTC)] = b.Amount
	}

	out := make([]domain.MonthlyRevenue, 0, revenueMonths)
	for i := 0; i < revenueMonths; i++ {
		month := first.AddDate(0, i, 0)
		amount, ok := byMonth[month]
		if !ok {
			amount = decimal.Zero
		}
		out = append(out, domain.MonthlyRevenue{Month: month.Format(monthLabelLayout), Revenue: amount})
	}
	return out, nil
}

// BookingsTrend returns bookings created per UTC day for the last thirty days,
// oldest first, today included.
func (s *ReportService) BookingsTrend(ctx context.Context, actor domain.Principal) ([]domain.DailyBookings, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	first := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(trendDays - 1))

	buckets, err := s.repo.DailyBookings(ctx, first)
	if err != nil {
		return nil, err
	}
	byDay := make(map[string]int, len(buckets))
	for _, b := range buckets {
		byDay[b.Start.Format(dayLabelLayout)] = b.Count
	}

	out := make([]domain.DailyBookings, 0, trendDays)
	for i := 0; i < trendDays; i++ {
		day := first.AddDate(0, 0, i).Format(dayLabelLayout)
		out = append(out, domain.DailyBookings{Date: day, Bookings: byDay[day]})
	}
	return out, nil
}

func (s *ReportService) PopularProducts(ctx context.Context, actor domain.Principal) ([]domain.PopularProduct, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.repo.PopularProducts(ctx, popularLimit)
}

var _ ReportUseCase = (*ReportService)(nil)

package booking

import (
	"context"
	"errors"
	"strings"

	"github.com/Domenick1991/outdoorcamp/internal/domain"
	"github.com/Domenick1991/outdoorcamp/internal/kafka"
	"github.com/Domenick1991/outdoorcamp/internal/logger"
	"github.com/Domenick1991/outdoorcamp/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/Domenick1991/outdoorcamp/internal/service/booking"

var (
	tracer = otel.Tracer(instrumentationName)
	meter  = otel.Meter(instrumentationName)

	bookingsCreated, _   = meter.Int64Counter("bookings.created", metric.WithDescription("Bookings created"))
	bookingsCancelled, _ = meter.Int64Counter("bookings.cancelled", metric.WithDescription("Bookings cancelled"))
	stockRejections, _   = meter.Int64Counter("bookings.insufficient_stock", metric.WithDescription("Bookings rejected for insufficient stock"))
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, actor domain.Principal, input CreateBookingInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, actor domain.Principal, id uuid.UUID) (*domain.Booking, error)
	ListBookings(ctx context.Context, actor domain.Principal) ([]domain.Booking, error)
	UpdateBooking(ctx context.Context, actor domain.Principal, id uuid.UUID, patch domain.BookingPatch) (*domain.Booking, error)
	CancelBooking(ctx context.Context, actor domain.Principal, id uuid.UUID) (*domain.Booking, error)
}

// Cache is the part of the catalog cache that goes stale when stock moves.
type Cache interface {
	InvalidateProducts(ctx context.Context) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	bookings           repository.BookingRepository
	cache              Cache
	producer           Producer
	bookingTopic       string
	notificationsTopic string
}

type CreateBookingInput struct {
	ProductID uuid.UUID
	StartDate string
	EndDate   string
	Quantity  int
	Notes     *string
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	cache Cache,
	producer Producer,
	bookingTopic string,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:     bookings,
		cache:        cache,
		producer:     producer,
		bookingTopic: bookingTopic,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateBooking reserves input.Quantity units of the product for actor. Stock
// and the new booking are written in one transaction.
func (s *BookingService) CreateBooking(ctx context.Context, actor domain.Principal, input CreateBookingInput) (*domain.Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.CreateBooking")
	defer span.End()

	if input.ProductID == uuid.Nil {
		return nil, domain.Invalid("product_id is required")
	}
	if input.Quantity <= 0 {
		return nil, domain.Invalid("quantity must be positive")
	}
	if strings.TrimSpace(input.StartDate) == "" || strings.TrimSpace(input.EndDate) == "" {
		return nil, domain.Invalid("start_date and end_date are required")
	}

	booking := &domain.Booking{
		ID:        uuid.New(),
		UserID:    actor.UserID,
		ProductID: input.ProductID,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
		Quantity:  input.Quantity,
		Notes:     input.Notes,
	}

	if err := s.bookings.CreatePending(ctx, booking); err != nil {
		if isStockError(err) {
			stockRejections.Add(ctx, 1)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	bookingsCreated.Add(ctx, 1)
	s.invalidateProducts(ctx)
	s.publish(ctx, kafka.EventBookingCreated, booking)
	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, actor domain.Principal, id uuid.UUID) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := actor.Authorize(booking.UserID); err != nil {
		return nil, err
	}
	return booking, nil
}

// ListBookings returns every booking for admins and the caller's own
// bookings otherwise.
func (s *BookingService) ListBookings(ctx context.Context, actor domain.Principal) ([]domain.Booking, error) {
	filter := repository.BookingFilter{}
	if !actor.IsAdmin() {
		userID := actor.UserID
		filter.UserID = &userID
	}
	return s.bookings.List(ctx, filter)
}

// UpdateBooking applies patch to a booking the caller may access. Changing the
// quantity does not move stock.
func (s *BookingService) UpdateBooking(ctx context.Context, actor domain.Principal, id uuid.UUID, patch domain.BookingPatch) (*domain.Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.UpdateBooking")
	defer span.End()

	if patch.Status != nil && !patch.Status.Valid() {
		return nil, domain.Invalid("unknown booking status")
	}
	if patch.Quantity != nil && *patch.Quantity <= 0 {
		return nil, domain.Invalid("quantity must be positive")
	}
	if (patch.StartDate != nil && strings.TrimSpace(*patch.StartDate) == "") || (patch.EndDate != nil && strings.TrimSpace(*patch.EndDate) == "") {
		return nil, domain.Invalid("start_date and end_date must not be empty")
	}

	if _, err := s.GetBooking(ctx, actor, id); err != nil {
		return nil, err
	}

	updated, err := s.bookings.Update(ctx, id, patch)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.publish(ctx, kafka.EventBookingUpdated, updated)
	return updated, nil
}

// CancelBooking deletes the booking and returns its quantity to stock. A
// second cancel of the same booking reports it as not found.
func (s *BookingService) CancelBooking(ctx context.Context, actor domain.Principal, id uuid.UUID) (*domain.Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.CancelBooking")
	defer span.End()

	if _, err := s.GetBooking(ctx, actor, id); err != nil {
		return nil, err
	}

	cancelled, err := s.bookings.CancelAndRelease(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	bookingsCancelled.Add(ctx, 1)
	s.invalidateProducts(ctx)
	s.publish(ctx, kafka.EventBookingCancelled, cancelled)
	return cancelled, nil
}

func (s *BookingService) invalidateProducts(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateProducts(ctx); err != nil {
		logger.Log.WithError(err).Warn("failed to invalidate products cache")
	}
}

// publish is best effort: the change is already committed.
func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.NewBookingEvent(eventType, booking)
	key := booking.ID.String()

	log := logger.Log.WithFields(logrus.Fields{"event": eventType, "booking_id": key})
	if err := s.producer.Publish(ctx, s.bookingTopic, key, event); err != nil {
		log.WithError(err).Warn("failed to publish booking event")
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, key, event); err != nil {
			log.WithError(err).Warn("failed to publish booking notification")
		}
	}
}

func isStockError(err error) bool {
	return errors.Is(err, domain.ErrInsufficientStock)
}

var _ BookingUseCase = (*BookingService)(nil)

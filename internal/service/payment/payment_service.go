package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/Domenick1991/outdoorcamp/internal/domain"
	"github.com/Domenick1991/outdoorcamp/internal/kafka"
	"github.com/Domenick1991/outdoorcamp/internal/logger"
	"github.com/Domenick1991/outdoorcamp/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/Domenick1991/outdoorcamp/internal/service/payment"

var (
	tracer = otel.Tracer(instrumentationName)
	meter  = otel.Meter(instrumentationName)

	paymentsCreated, _ = meter.Int64Counter("payments.created", metric.WithDescription("Payments recorded"))
	paymentsSettled, _ = meter.Int64Counter("payments.settled", metric.WithDescription("Payments completed, confirming their booking"))
)

type PaymentUseCase interface {
	CreatePayment(ctx context.Context, actor domain.Principal, input CreatePaymentInput) (*domain.Payment, error)
	GetPayment(ctx context.Context, actor domain.Principal, id uuid.UUID) (*domain.Payment, error)
	ListPayments(ctx context.Context, actor domain.Principal) ([]domain.Payment, error)
	UpdatePayment(ctx context.Context, actor domain.Principal, id uuid.UUID, patch domain.PaymentPatch) (*domain.Payment, error)
	DeletePayment(ctx context.Context, actor domain.Principal, id uuid.UUID) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type CreatePaymentInput struct {
	BookingID uuid.UUID
	Amount    decimal.Decimal
	Method    string
	Notes     *string
}

type PaymentService struct {
	payments           repository.PaymentRepository
	bookings           repository.BookingRepository
	producer           Producer
	paymentTopic       string
	notificationsTopic string
}

type PaymentServiceOption func(*PaymentService)

func WithNotificationsTopic(topic string) PaymentServiceOption {
	return func(s *PaymentService) {
		s.notificationsTopic = topic
	}
}

func NewPaymentService(
	payments repository.PaymentRepository,
	bookings repository.BookingRepository,
	producer Producer,
	paymentTopic string,
	opts ...PaymentServiceOption,
) *PaymentService {
	service := &PaymentService{
		payments:     payments,
		bookings:     bookings,
		producer:     producer,
		paymentTopic: paymentTopic,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreatePayment records a pending payment for a booking the caller may
// access. A booking has at most one payment.
func (s *PaymentService) CreatePayment(ctx context.Context, actor domain.Principal, input CreatePaymentInput) (*domain.Payment, error) {
	ctx, span := tracer.Start(ctx, "payment.CreatePayment")
	defer span.End()

	if input.BookingID == uuid.Nil {
		return nil, domain.Invalid("booking_id is required")
	}
	if input.Amount.IsNegative() {
		return nil, domain.Invalid("amount must not be negative")
	}
	if strings.TrimSpace(input.Method) == "" {
		return nil, domain.Invalid("method is required")
	}

	booking, err := s.bookings.GetByID(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}
	if err := actor.Authorize(booking.UserID); err != nil {
		return nil, err
	}

	_, err = s.payments.GetByBookingID(ctx, booking.ID)
	switch {
	case err == nil:
		return nil, domain.ErrPaymentExists
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	payment := &domain.Payment{
		ID:            uuid.New(),
		BookingID:     booking.ID,
		Amount:        input.Amount,
		Method:        input.Method,
		Status:        domain.PaymentStatusPending,
		TransactionID: domain.NewTransactionID(),
		Notes:         input.Notes,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		span.RecordError(err)
		return nil, err
	}

	paymentsCreated.Add(ctx, 1)
	s.publish(ctx, kafka.EventPaymentCreated, payment, booking.UserID)
	return payment, nil
}

// GetPayment resolves the payment first and then checks ownership through its
// booking. A payment whose booking is gone is visible to admins only.
func (s *PaymentService) GetPayment(ctx context.Context, actor domain.Principal, id uuid.UUID) (*domain.Payment, error) {
	payment, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return payment, nil
	}

	booking, err := s.bookings.GetByID(ctx, payment.BookingID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNotOwner
	}
	if err != nil {
		return nil, err
	}
	if err := actor.Authorize(booking.UserID); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) ListPayments(ctx context.Context, actor domain.Principal) ([]domain.Payment, error) {
	if actor.IsAdmin() {
		return s.payments.List(ctx)
	}

	bookingIDs, err := s.bookings.ListIDsByUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if len(bookingIDs) == 0 {
		return []domain.Payment{}, nil
	}
	return s.payments.ListByBookings(ctx, bookingIDs)
}

// UpdatePayment is admin only. When the resulting status is completed the
// payment's booking is confirmed in the same transaction.
func (s *PaymentService) UpdatePayment(ctx context.Context, actor domain.Principal, id uuid.UUID, patch domain.PaymentPatch) (*domain.Payment, error) {
	ctx, span := tracer.Start(ctx, "payment.UpdatePayment")
	defer span.End()

	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, domain.Invalid("unknown payment status")
	}

	current, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	status := current.Status
	if patch.Status != nil {
		status = *patch.Status
	}
	settle := status == domain.PaymentStatusCompleted

	updated, err := s.payments.Update(ctx, id, patch, settle)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	eventType := kafka.EventPaymentUpdated
	if settle {
		paymentsSettled.Add(ctx, 1)
		eventType = kafka.EventPaymentSettled
	}
	s.publish(ctx, eventType, updated, uuid.Nil)
	return updated, nil
}

// DeletePayment is admin only and leaves the booking untouched.
func (s *PaymentService) DeletePayment(ctx context.Context, actor domain.Principal, id uuid.UUID) error {
	if err := actor.RequireAdmin(); err != nil {
		return err
	}
	payment, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.payments.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, kafka.EventPaymentDeleted, payment, uuid.Nil)
	return nil
}

func (s *PaymentService) publish(ctx context.Context, eventType string, payment *domain.Payment, ownerID uuid.UUID) {
	if s.producer == nil || s.paymentTopic == "" {
		return
	}
	event := kafka.NewPaymentEvent(eventType, payment, ownerID)
	key := payment.BookingID.String()

	log := logger.Log.WithFields(logrus.Fields{"event": eventType, "payment_id": payment.ID.String()})
	if err := s.producer.Publish(ctx, s.paymentTopic, key, event); err != nil {
		log.WithError(err).Warn("failed to publish payment event")
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, key, event); err != nil {
			log.WithError(err).Warn("failed to publish payment notification")
		}
	}
}

var _ PaymentUseCase = (*PaymentService)(nil)

package kafka

import (
	"time"

	"github.com/Domenick1991/outdoorcamp/internal/domain"
	"github.com/google/uuid"
)

const (
	EventBookingCreated   = "booking_created"
	EventBookingUpdated   = "booking_updated"
	EventBookingCancelled = "booking_cancelled"
	EventPaymentCreated   = "payment_created"
	EventPaymentUpdated   = "payment_updated"
	EventPaymentSettled   = "payment_settled"
	EventPaymentDeleted   = "payment_deleted"
)

// Event is published after a booking or payment change is committed.
// ID lets consumers drop redeliveries.
type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	BookingID   string    `json:"booking_id"`
	UserID      string    `json:"user_id,omitempty"`
	ProductID   string    `json:"product_id,omitempty"`
	ProductName string    `json:"product_name,omitempty"`
	PaymentID   string    `json:"payment_id,omitempty"`
	Quantity    int       `json:"quantity,omitempty"`
	Amount      string    `json:"amount,omitempty"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func NewBookingEvent(eventType string, b *domain.Booking) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		BookingID:   b.ID.String(),
		UserID:      b.UserID.String(),
		ProductID:   b.ProductID.String(),
		ProductName: b.ProductName,
		Quantity:    b.Quantity,
		Amount:      b.TotalPrice.String(),
		Status:      string(b.Status),
		OccurredAt:  time.Now().UTC(),
	}
}

// NewPaymentEvent builds a payment event. ownerID may be uuid.Nil when the
// booking owner is not known to the publisher.
func NewPaymentEvent(eventType string, p *domain.Payment, ownerID uuid.UUID) Event {
	e := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		BookingID:  p.BookingID.String(),
		PaymentID:  p.ID.String(),
		Amount:     p.Amount.String(),
		Status:     string(p.Status),
		OccurredAt: time.Now().UTC(),
	}
	if ownerID != uuid.Nil {
		e.UserID = ownerID.String()
	}
	return e
}

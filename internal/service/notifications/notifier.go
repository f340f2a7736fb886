package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/outdoorcamp/internal/domain"
	"github.com/Domenick1991/outdoorcamp/internal/kafka"
	"github.com/Domenick1991/outdoorcamp/internal/logger"
	"github.com/google/uuid"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Deduper remembers processed event ids.
type Deduper interface {
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type BookingLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
}

type Mailer interface {
	Send(ctx context.Context, to string, event kafka.Event) error
}

// Notifier turns booking and payment events into e-mails for the booking owner.
type Notifier struct {
	dedup    Deduper
	users    UserLookup
	bookings BookingLookup
	mailer   Mailer
	dedupTTL time.Duration
}

func NewNotifier(dedup Deduper, users UserLookup, bookings BookingLookup, mailer Mailer, dedupTTL time.Duration) *Notifier {
	return &Notifier{dedup: dedup, users: users, bookings: bookings, mailer: mailer, dedupTTL: dedupTTL}
}

// HandleMessage is the consumer callback. Undecodable messages are dropped.
func (n *Notifier) HandleMessage(ctx context.Context, msg kafkaGo.Message) error {
	var event kafka.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		logger.Log.WithError(err).WithField("offset", msg.Offset).Warn("drop undecodable event")
		return nil
	}
	return n.Handle(ctx, event)
}

func (n *Notifier) Handle(ctx context.Context, event kafka.Event) error {
	log := logger.Log.WithFields(logrus.Fields{"event_id": event.ID, "type": event.Type, "booking_id": event.BookingID})

	if event.ID != "" && n.dedup != nil {
		seen, err := n.dedup.IsProcessed(ctx, event.ID)
		if err != nil {
			return fmt.Errorf("dedup event %s: %w", event.ID, err)
		}
		if seen {
			log.Debug("skip duplicate event")
			return nil
		}
	}

	user, err := n.recipient(ctx, event)
	if errors.Is(err, domain.ErrNotFound) {
		log.Info("no recipient for event")
		n.markProcessed(ctx, log, event)
		return nil
	}
	if err != nil {
		return err
	}

	if err := n.mailer.Send(ctx, user.Email, event); err != nil {
		return err
	}
	n.markProcessed(ctx, log, event)
	return nil
}

// markProcessed runs only once the event is fully handled, so a failed lookup
// or send leaves the event eligible for redelivery.
func (n *Notifier) markProcessed(ctx context.Context, log *logrus.Entry, event kafka.Event) {
	if event.ID == "" || n.dedup == nil {
		return
	}
	if _, err := n.dedup.MarkProcessed(ctx, event.ID, n.dedupTTL); err != nil {
		log.WithError(err).Warn("failed to mark event processed")
	}
}

// recipient resolves the booking owner, through the booking when the event
// does not carry a user id.
func (n *Notifier) recipient(ctx context.Context, event kafka.Event) (*domain.User, error) {
	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		bookingID, err := uuid.Parse(event.BookingID)
		if err != nil {
			return nil, domain.ErrBookingNotFound
		}
		booking, err := n.bookings.GetByID(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		userID = booking.UserID
	}
	return n.users.GetByID(ctx, userID)
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// UnknownProductName is shown for bookings whose product has been deleted.
const UnknownProductName = "Unknown"

// Booking holds Quantity units of a product. TotalPrice is fixed when the
// booking is created and ProductName is resolved on read.
type Booking struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	StartDate   string
	EndDate     string
	Quantity    int
	TotalPrice  decimal.Decimal
	Status      BookingStatus
	Notes       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type BookingPatch struct {
	Status    *BookingStatus
	StartDate *string
	EndDate   *string
	Quantity  *int
	Notes     *string
}

func TotalPrice(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

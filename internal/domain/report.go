package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Stats struct {
	Users struct {
		Total int `json:"total"`
	} `json:"users"`
	Products struct {
		Total       int `json:"total"`
		Available   int `json:"available"`
		Unavailable int `json:"unavailable"`
	} `json:"products"`
	Bookings struct {
		Total     int `json:"total"`
		Pending   int `json:"pending"`
		Confirmed int `json:"confirmed"`
		Completed int `json:"completed"`
	} `json:"bookings"`
	Revenue struct {
		Total     decimal.Decimal `json:"total"`
		Pending   decimal.Decimal `json:"pending"`
		Completed decimal.Decimal `json:"completed"`
	} `json:"revenue"`
}

// Bucket is an aggregate over the period starting at Start.
type Bucket struct {
	Start  time.Time
	Amount decimal.Decimal
	Count  int
}

type MonthlyRevenue struct {
	Month   string          `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
}

type DailyBookings struct {
	Date     string `json:"date"`
	Bookings int    `json:"bookings"`
}

type PopularProduct struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Bookings int             `json:"bookings"`
	Revenue  decimal.Decimal `json:"revenue"`
}

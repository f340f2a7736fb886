package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductStatusAvailable   ProductStatus = "available"
	ProductStatusUnavailable ProductStatus = "unavailable"
)

func (s ProductStatus) Valid() bool {
	return s == ProductStatusAvailable || s == ProductStatusUnavailable
}

type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	Category    string
	Price       decimal.Decimal
	Stock       int
	Image       *string
	Status      ProductStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ProductPatch struct {
	Name        *string
	Description *string
	Category    *string
	Price       *decimal.Decimal
	Stock       *int
	Image       *string
	Status      *ProductStatus
}

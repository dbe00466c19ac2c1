package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNegativePrice      = errors.New("price must not be negative")
	ErrSalePriceAboveBase = errors.New("sale_price must not exceed base_price")
)

// ValidatePricing checks the price invariants of a product record.
func ValidatePricing(base decimal.Decimal, sale, cost decimal.NullDecimal) error {
	if base.IsNegative() {
		return ErrNegativePrice
	}
	if sale.Valid {
		if sale.Decimal.IsNegative() {
			return ErrNegativePrice
		}
		if sale.Decimal.GreaterThan(base) {
			return ErrSalePriceAboveBase
		}
	}
	if cost.Valid && cost.Decimal.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

// PriceCandidate is the slice of a product the bulk price engine matches on.
type PriceCandidate struct {
	ID        string              `db:"id"`
	SKU       *string             `db:"sku"`
	Name      string              `db:"name"`
	BasePrice decimal.Decimal     `db:"base_price"`
	SalePrice decimal.NullDecimal `db:"sale_price"`
	CreatedAt time.Time           `db:"created_at"`
}

// PriceLookup carries lower-cased SKUs and names plus exact ids.
type PriceLookup struct {
	SKUs  []string
	IDs   []string
	Names []string
}

type PriceUpdate struct {
	ID        string              `db:"id"`
	BasePrice decimal.Decimal     `db:"base_price"`
	SalePrice decimal.NullDecimal `db:"sale_price"`
	UpdatedAt time.Time           `db:"updated_at"`
}

type UserProfile struct {
	ID   string `db:"id"`
	Role string `db:"role"`
}

package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/errs"
	"github.com/lib/pq"
)

const (
	pqUniqueViolation     = "23505"
	pqCheckViolation      = "23514"
	pqForeignKeyViolation = "23503"
	pqInvalidText         = "22P02"
)

var constraintMessages = map[string]string{
	"products_slug_key":                  "slug is already used by another product",
	"products_sku_key":                   "sku is already used by another product",
	"products_sale_price_not_above_base": "sale_price must not exceed base_price",
	"products_prices_non_negative":       "prices must not be negative",
	"products_inventory_non_negative":    "inventory values must not be negative",
	"products_status_check":              "status is not one of draft, active, archived, out_of_stock",
}

// translateError maps driver errors onto the service error taxonomy.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errs.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		msg := constraintMessages[pqErr.Constraint]
		if msg == "" {
			msg = pqErr.Message
		}

		switch string(pqErr.Code) {
		case pqUniqueViolation:
			return fmt.Errorf("%w: %s", errs.ErrConflict, msg)
		case pqCheckViolation, pqForeignKeyViolation:
			return fmt.Errorf("%w: %s", errs.ErrValidation, msg)
		case pqInvalidText:
			return fmt.Errorf("%w: %s", errs.ErrValidation, pqErr.Message)
		}
	}

	return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-order-core/internal/checkout"
	"github.com/safar/go-order-core/internal/models"
)

// Categories resolves tax and shipping categories for the checkout core.
// An unset id falls back to the default row; an id that points nowhere is a
// configuration error, not a validation problem.
type Categories struct {
	DB *sql.DB
}

func NewCategories(db *sql.DB) *Categories {
	return &Categories{DB: db}
}

func (c *Categories) TaxCategory(ctx context.Context, id sql.NullInt64) (*models.TaxCategory, error) {
	cat := &models.TaxCategory{}

	var err error
	if id.Valid {
		err = c.DB.QueryRowContext(ctx,
			`SELECT id, name, is_default FROM tax_categories WHERE id = $1`,
			id.Int64).Scan(&cat.ID, &cat.Name, &cat.IsDefault)
		if err == sql.ErrNoRows {
			return nil, &checkout.ConfigurationError{Msg: fmt.Sprintf("tax category %d not found", id.Int64)}
		}
	} else {
		err = c.DB.QueryRowContext(ctx,
			`SELECT id, name, is_default FROM tax_categories WHERE is_default LIMIT 1`,
		).Scan(&cat.ID, &cat.Name, &cat.IsDefault)
		if err == sql.ErrNoRows {
			return nil, &checkout.ConfigurationError{Msg: "no default tax category configured"}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("get tax category: %w", err)
	}

	return cat, nil
}

func (c *Categories) ShippingCategory(ctx context.Context, id sql.NullInt64) (*models.ShippingCategory, error) {
	cat := &models.ShippingCategory{}

	var err error
	if id.Valid {
		err = c.DB.QueryRowContext(ctx,
			`SELECT id, name, is_default FROM shipping_categories WHERE id = $1`,
			id.Int64).Scan(&cat.ID, &cat.Name, &cat.IsDefault)
		if err == sql.ErrNoRows {
			return nil, &checkout.ConfigurationError{Msg: fmt.Sprintf("shipping category %d not found", id.Int64)}
		}
	} else {
		err = c.DB.QueryRowContext(ctx,
			`SELECT id, name, is_default FROM shipping_categories WHERE is_default LIMIT 1`,
		).Scan(&cat.ID, &cat.Name, &cat.IsDefault)
		if err == sql.ErrNoRows {
			return nil, &checkout.ConfigurationError{Msg: "no default shipping category configured"}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("get shipping category: %w", err)
	}

	return cat, nil
}

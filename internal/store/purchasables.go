package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/safar/go-order-core/internal/database"
	"github.com/safar/go-order-core/internal/models"
)

const catalogItemColumns = `
	p.id, p.sku, p.description, p.tax_category_id, p.shipping_category_id,
	p.width, p.height, p.length, p.weight, p.enabled,
	p.created_at, p.updated_at, p.version,
	ps.purchasable_id, ps.store_id, ps.price, ps.promotional_price,
	ps.stock, ps.has_unlimited_stock, ps.min_qty, ps.max_qty,
	ps.available_for_purchase, ps.promotable, ps.updated_at, ps.version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCatalogItem(row rowScanner) (*models.CatalogItem, error) {
	c := &models.CatalogItem{}
	err := row.Scan(
		&c.Item.ID,
		&c.Item.SKU,
		&c.Item.Description,
		&c.Item.TaxCategoryID,
		&c.Item.ShippingCategoryID,
		&c.Item.Width,
		&c.Item.Height,
		&c.Item.Length,
		&c.Item.Weight,
		&c.Item.Enabled,
		&c.Item.CreatedAt,
		&c.Item.UpdatedAt,
		&c.Item.Version,
		&c.Pricing.PurchasableID,
		&c.Pricing.StoreID,
		&c.Pricing.Price,
		&c.Pricing.PromotionalPrice,
		&c.Pricing.Stock,
		&c.Pricing.HasUnlimitedStock,
		&c.Pricing.MinQty,
		&c.Pricing.MaxQty,
		&c.Pricing.AvailableForPurchase,
		&c.Pricing.Promotable,
		&c.Pricing.UpdatedAt,
		&c.Pricing.Version,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

type CreatePurchasableRequest struct {
	SKU                  string
	Description          string
	TaxCategoryID        sql.NullInt64
	ShippingCategoryID   sql.NullInt64
	Width                decimal.NullDecimal
	Height               decimal.NullDecimal
	Length               decimal.NullDecimal
	Weight               decimal.NullDecimal
	Enabled              bool
	StoreID              int64
	Price                decimal.Decimal
	PromotionalPrice     decimal.NullDecimal
	Stock                int
	HasUnlimitedStock    bool
	MinQty               int
	MaxQty               int
	AvailableForPurchase bool
	Promotable           bool
}

// CreatePurchasable inserts the catalog row and its pricing row for one
// store in a single transaction.
func CreatePurchasable(ctx context.Context, db *sql.DB, req CreatePurchasableRequest) (*models.CatalogItem, error) {
	c := &models.CatalogItem{}

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		query := `
			INSERT INTO purchasables (sku, description, tax_category_id, shipping_category_id,
				width, height, length, weight, enabled, created_at, updated_at, version)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW(), 1)
			RETURNING id, sku, description, tax_category_id, shipping_category_id,
				width, height, length, weight, enabled, created_at, updated_at, version`

		err := tx.QueryRowContext(ctx, query,
			req.SKU, req.Description, req.TaxCategoryID, req.ShippingCategoryID,
			req.Width, req.Height, req.Length, req.Weight, req.Enabled,
		).Scan(
			&c.Item.ID,
			&c.Item.SKU,
			&c.Item.Description,
			&c.Item.TaxCategoryID,
			&c.Item.ShippingCategoryID,
			&c.Item.Width,
			&c.Item.Height,
			&c.Item.Length,
			&c.Item.Weight,
			&c.Item.Enabled,
			&c.Item.CreatedAt,
			&c.Item.UpdatedAt,
			&c.Item.Version,
		)
		if err != nil {
			return fmt.Errorf("create purchasable: %w", err)
		}

		query = `
			INSERT INTO purchasable_stores (purchasable_id, store_id, price, promotional_price,
				stock, has_unlimited_stock, min_qty, max_qty, available_for_purchase, promotable,
				updated_at, version)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), 1)
			RETURNING purchasable_id, store_id, price, promotional_price, stock,
				has_unlimited_stock, min_qty, max_qty, available_for_purchase, promotable,
				updated_at, version`

		err = tx.QueryRowContext(ctx, query,
			c.Item.ID, req.StoreID, req.Price, req.PromotionalPrice,
			req.Stock, req.HasUnlimitedStock, req.MinQty, req.MaxQty,
			req.AvailableForPurchase, req.Promotable,
		).Scan(
			&c.Pricing.PurchasableID,
			&c.Pricing.StoreID,
			&c.Pricing.Price,
			&c.Pricing.PromotionalPrice,
			&c.Pricing.Stock,
			&c.Pricing.HasUnlimitedStock,
			&c.Pricing.MinQty,
			&c.Pricing.MaxQty,
			&c.Pricing.AvailableForPurchase,
			&c.Pricing.Promotable,
			&c.Pricing.UpdatedAt,
			&c.Pricing.Version,
		)
		if err != nil {
			return fmt.Errorf("create purchasable pricing: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return c, nil
}

func GetCatalogItem(ctx context.Context, db *sql.DB, purchasableID, storeID int64) (*models.CatalogItem, error) {
	query := `
		SELECT ` + catalogItemColumns + `
		FROM purchasables p
		JOIN purchasable_stores ps ON ps.purchasable_id = p.id
		WHERE p.id = $1 AND ps.store_id = $2`

	c, err := scanCatalogItem(db.QueryRowContext(ctx, query, purchasableID, storeID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrPurchasableNotFound
		}
		return nil, fmt.Errorf("get catalog item: %w", err)
	}

	return c, nil
}

// SKUs are unique case-insensitively.
func GetCatalogItemBySKU(ctx context.Context, db *sql.DB, sku string, storeID int64) (*models.CatalogItem, error) {
	query := `
		SELECT ` + catalogItemColumns + `
		FROM purchasables p
		JOIN purchasable_stores ps ON ps.purchasable_id = p.id
		WHERE LOWER(p.sku) = LOWER($1) AND ps.store_id = $2`

	c, err := scanCatalogItem(db.QueryRowContext(ctx, query, sku, storeID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrPurchasableNotFound
		}
		return nil, fmt.Errorf("get catalog item by sku: %w", err)
	}

	return c, nil
}

// LockCatalogItem takes a row lock on the pricing row without waiting, so
// concurrent order mutations against the same purchasable fail fast instead
// of queueing up.
func LockCatalogItem(ctx context.Context, tx *sql.Tx, purchasableID, storeID int64) (*models.CatalogItem, error) {
	query := `
		SELECT ` + catalogItemColumns + `
		FROM purchasables p
		JOIN purchasable_stores ps ON ps.purchasable_id = p.id
		WHERE p.id = $1 AND ps.store_id = $2
		FOR UPDATE OF ps NOWAIT`

	c, err := scanCatalogItem(tx.QueryRowContext(ctx, query, purchasableID, storeID))
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "55P03" {
			return nil, database.ErrLockTimeout
		}
		if err == sql.ErrNoRows {
			return nil, database.ErrPurchasableNotFound
		}
		return nil, fmt.Errorf("lock catalog item: %w", err)
	}

	return c, nil
}

// ReserveStock locks the pricing row and verifies qty can still be taken.
// Unlimited stock always passes.
func ReserveStock(ctx context.Context, tx *sql.Tx, purchasableID, storeID int64, qty int) (*models.CatalogItem, error) {
	c, err := LockCatalogItem(ctx, tx, purchasableID, storeID)
	if err != nil {
		return nil, err
	}

	if !c.Pricing.HasUnlimitedStock && c.Pricing.Stock < qty {
		return nil, database.ErrInsufficientStock
	}

	return c, nil
}

// DecrementStock takes qty out of stock, guarded so the counter can never go
// negative. Unlimited stock leaves the counter untouched.
func DecrementStock(ctx context.Context, tx *sql.Tx, purchasableID, storeID int64, qty int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE purchasable_stores
		 SET stock = CASE WHEN has_unlimited_stock THEN stock ELSE stock - $1 END,
		     updated_at = NOW()
		 WHERE purchasable_id = $2
		   AND store_id = $3
		   AND (has_unlimited_stock OR stock >= $1)`,
		qty, purchasableID, storeID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrInsufficientStock
	}

	return nil
}

// IncrementStock returns qty to stock, e.g. when a line item's quantity is
// reduced. Unlimited stock leaves the counter untouched.
func IncrementStock(ctx context.Context, tx *sql.Tx, purchasableID, storeID int64, qty int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE purchasable_stores
		 SET stock = CASE WHEN has_unlimited_stock THEN stock ELSE stock + $1 END,
		     updated_at = NOW()
		 WHERE purchasable_id = $2
		   AND store_id = $3`,
		qty, purchasableID, storeID)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrPurchasableNotFound
	}

	return nil
}

func UpdateStockOptimistic(ctx context.Context, db *sql.DB, purchasableID, storeID int64, newStock, version int) error {
	result, err := db.ExecContext(ctx,
		`UPDATE purchasable_stores
		 SET stock = $1, version = version + 1, updated_at = NOW()
		 WHERE purchasable_id = $2 AND store_id = $3 AND version = $4`,
		newStock, purchasableID, storeID, version)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrOptimisticLockFailed
	}

	return nil
}

func UpdatePricing(ctx context.Context, db *sql.DB, purchasableID, storeID int64, price decimal.Decimal, promotionalPrice decimal.NullDecimal) error {
	result, err := db.ExecContext(ctx,
		`UPDATE purchasable_stores
		 SET price = $1, promotional_price = $2, updated_at = NOW(), version = version + 1
		 WHERE purchasable_id = $3 AND store_id = $4`,
		price, promotionalPrice, purchasableID, storeID)
	if err != nil {
		return fmt.Errorf("update pricing: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrPurchasableNotFound
	}

	return nil
}

// DeletePurchasable removes the catalog row. Pricing rows cascade; line
// items keep their snapshot and their purchasable reference goes null.
func DeletePurchasable(ctx context.Context, db *sql.DB, purchasableID int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM purchasables WHERE id = $1`, purchasableID)
	if err != nil {
		return fmt.Errorf("delete purchasable: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrPurchasableNotFound
	}

	return nil
}

func ListCatalogItems(ctx context.Context, db *sql.DB, storeID int64, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM purchasable_stores WHERE store_id = $1`, storeID).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count catalog items: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT ` + catalogItemColumns + `
		FROM purchasables p
		JOIN purchasable_stores ps ON ps.purchasable_id = p.id
		WHERE ps.store_id = $1
		ORDER BY p.created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := db.QueryContext(ctx, query, storeID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list catalog items: %w", err)
	}
	defer rows.Close()

	var items []models.CatalogItem
	for rows.Next() {
		c, err := scanCatalogItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan catalog item: %w", err)
		}
		items = append(items, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &OffsetPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

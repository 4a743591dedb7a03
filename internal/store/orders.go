package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/safar/go-order-core/internal/checkout"
	"github.com/safar/go-order-core/internal/database"
	"github.com/safar/go-order-core/internal/models"
)

type CreateOrderRequest struct {
	StoreID int64
	Items   []LineItemRequest
}

type LineItemRequest struct {
	PurchasableID int64
	Qty           int
}

// ValidationFailed aborts an order mutation whose line items violate stock
// or quantity rules. It carries every violation plus any notices produced
// before the rules failed, so the caller can show the whole picture.
type ValidationFailed struct {
	Errors  []checkout.ValidationError
	Notices []models.Notice
}

func (e *ValidationFailed) Error() string {
	return fmt.Sprintf("order validation failed: %d rule violation(s)", len(e.Errors))
}

func generateOrderNumber() string {
	return fmt.Sprintf("ORD-%d", time.Now().UnixNano())
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateOrder builds an open order from the requested items. Each catalog
// row is locked, checked for availability and routed through the checkout
// core, so quantities arrive clamped and priced; only then are line items,
// notices and stock decrements committed together. Rule violations roll the
// whole order back with a ValidationFailed.
func CreateOrder(ctx context.Context, db *sql.DB, svc *checkout.Service, req CreateOrderRequest) (*models.Order, error) {
	var orderID int64

	err := database.WithRetry(ctx, db, database.TxOptions{
		IsolationLevel: sql.LevelSerializable,
		MaxRetries:     3,
	}, func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM stores WHERE id = $1)",
			req.StoreID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check store exists: %w", err)
		}
		if !exists {
			return database.ErrStoreNotFound
		}

		orderNumber := generateOrderNumber()
		err = tx.QueryRowContext(ctx,
			`INSERT INTO orders (store_id, order_number, status, total_amount, created_at, updated_at, version)
			 VALUES ($1, $2, $3, 0, NOW(), NOW(), 1)
			 RETURNING id`,
			req.StoreID, orderNumber, models.OrderStatusOpen).Scan(&orderID)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		order := &models.Order{
			ID:      orderID,
			StoreID: req.StoreID,
			Status:  models.OrderStatusOpen,
		}

		var items []models.LineItem
		var notices []models.Notice
		var ruleErrors []checkout.ValidationError
		totalAmount := decimal.Zero

		for _, item := range req.Items {
			catalogItem, err := LockCatalogItem(ctx, tx, item.PurchasableID, req.StoreID)
			if err != nil {
				return err
			}

			if !checkout.IsAvailable(catalogItem) {
				return database.ErrPurchasableNotAvailable
			}

			line := models.LineItem{
				OrderID: orderID,
				Qty:     item.Qty,
			}

			result, err := svc.PopulateAndValidate(ctx, order, &line, catalogItem, items)
			if err != nil {
				return err
			}

			notices = append(notices, result.Notices...)
			ruleErrors = append(ruleErrors, result.Errors...)

			items = append(items, line)
			totalAmount = totalAmount.Add(line.Subtotal)
		}

		if len(ruleErrors) > 0 {
			return &ValidationFailed{Errors: ruleErrors, Notices: notices}
		}

		for i := range items {
			line := &items[i]
			err = tx.QueryRowContext(ctx,
				`INSERT INTO line_items (order_id, purchasable_id, sku, description, qty,
					price, promotional_price, subtotal, width, height, length, weight,
					tax_category_id, shipping_category_id, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
				 RETURNING id`,
				line.OrderID, line.PurchasableID, line.SKU, line.Description, line.Qty,
				line.Price, line.PromotionalPrice, line.Subtotal,
				line.Width, line.Height, line.Length, line.Weight,
				line.TaxCategoryID, line.ShippingCategoryID).Scan(&line.ID)
			if err != nil {
				return fmt.Errorf("create line item: %w", err)
			}

			if err := DecrementStock(ctx, tx, line.PurchasableID.Int64, req.StoreID, line.Qty); err != nil {
				return err
			}
		}

		if err := insertNotices(ctx, tx, notices); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE orders SET total_amount = $1, updated_at = NOW() WHERE id = $2`,
			totalAmount, orderID)
		if err != nil {
			return fmt.Errorf("update order total: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetOrder(ctx, db, orderID)
}

// UpdateLineItemQty re-synchronizes one line item after a quantity change:
// the line's current holding is credited back to the stock counter, the
// catalog row is re-read under lock, the checkout core re-clamps, re-prices
// and re-validates, and the new quantity is taken out. Completed orders are
// immutable and reject the mutation outright.
func UpdateLineItemQty(ctx context.Context, db *sql.DB, svc *checkout.Service, orderID, lineItemID int64, qty int) (*models.Order, error) {
	err := database.WithRetry(ctx, db, database.TxOptions{
		IsolationLevel: sql.LevelSerializable,
		MaxRetries:     3,
	}, func(tx *sql.Tx) error {
		order := &models.Order{}
		err := tx.QueryRowContext(ctx,
			`SELECT id, store_id, order_number, status, total_amount, date_completed,
				created_at, updated_at, version
			 FROM orders
			 WHERE id = $1
			 FOR UPDATE`,
			orderID).Scan(
			&order.ID,
			&order.StoreID,
			&order.OrderNumber,
			&order.Status,
			&order.TotalAmount,
			&order.DateCompleted,
			&order.CreatedAt,
			&order.UpdatedAt,
			&order.Version,
		)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrOrderNotFound
			}
			return fmt.Errorf("lock order: %w", err)
		}

		if order.IsCompleted() {
			return database.ErrOrderCompleted
		}

		items, err := GetOrderLineItems(ctx, tx, orderID)
		if err != nil {
			return err
		}

		var line *models.LineItem
		for i := range items {
			if items[i].ID == lineItemID {
				line = &items[i]
				break
			}
		}
		if line == nil {
			return database.ErrLineItemNotFound
		}

		if !line.PurchasableID.Valid {
			return database.ErrPurchasableNotFound
		}

		oldQty := line.Qty

		if _, err := LockCatalogItem(ctx, tx, line.PurchasableID.Int64, order.StoreID); err != nil {
			return err
		}

		// The counter was decremented at creation, so it excludes this
		// line's own holding. Credit it back before re-reading, otherwise
		// the clamp and the stock rule treat the held quantity as gone.
		if err := IncrementStock(ctx, tx, line.PurchasableID.Int64, order.StoreID, oldQty); err != nil {
			return err
		}

		catalogItem, err := LockCatalogItem(ctx, tx, line.PurchasableID.Int64, order.StoreID)
		if err != nil {
			return err
		}

		line.Qty = qty

		// line aliases its entry in items, so the id match in
		// AggregateQuantity counts the new qty exactly once.
		result, err := svc.PopulateAndValidate(ctx, order, line, catalogItem, items)
		if err != nil {
			return err
		}

		if !result.OK() {
			return &ValidationFailed{Errors: result.Errors, Notices: result.Notices}
		}

		if err := DecrementStock(ctx, tx, line.PurchasableID.Int64, order.StoreID, line.Qty); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE line_items
			 SET qty = $1, price = $2, promotional_price = $3, subtotal = $4,
			     width = $5, height = $6, length = $7, weight = $8, updated_at = NOW()
			 WHERE id = $9`,
			line.Qty, line.Price, line.PromotionalPrice, line.Subtotal,
			line.Width, line.Height, line.Length, line.Weight, line.ID)
		if err != nil {
			return fmt.Errorf("update line item: %w", err)
		}

		if err := insertNotices(ctx, tx, result.Notices); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE orders
			 SET total_amount = (SELECT COALESCE(SUM(subtotal), 0) FROM line_items WHERE order_id = $1),
			     updated_at = NOW(), version = version + 1
			 WHERE id = $1`,
			orderID)
		if err != nil {
			return fmt.Errorf("update order total: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetOrder(ctx, db, orderID)
}

// CompleteOrder moves an open order to its terminal state. The transition is
// one-way and guarded in SQL, so a repeated call reports the conflict
// instead of rewriting history.
func CompleteOrder(ctx context.Context, db *sql.DB, orderID int64) (*models.Order, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE orders
		 SET status = $1, date_completed = NOW(), updated_at = NOW(), version = version + 1
		 WHERE id = $2 AND status = $3`,
		models.OrderStatusCompleted, orderID, models.OrderStatusOpen)
	if err != nil {
		return nil, fmt.Errorf("complete order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		order, err := GetOrder(ctx, db, orderID)
		if err != nil {
			return nil, err
		}
		if order.IsCompleted() {
			return nil, database.ErrOrderCompleted
		}
		return nil, fmt.Errorf("complete order %d: unexpected status %q", orderID, order.Status)
	}

	return GetOrder(ctx, db, orderID)
}

func GetOrder(ctx context.Context, db *sql.DB, id int64) (*models.Order, error) {
	order := &models.Order{}

	query := `
		SELECT id, store_id, order_number, status, total_amount, date_completed,
			created_at, updated_at, version
		FROM orders
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.StoreID,
		&order.OrderNumber,
		&order.Status,
		&order.TotalAmount,
		&order.DateCompleted,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	order.Items, err = GetOrderLineItems(ctx, db, id)
	if err != nil {
		return nil, err
	}

	order.Notices, err = GetOrderNotices(ctx, db, id)
	if err != nil {
		return nil, err
	}

	return order, nil
}

func GetOrderLineItems(ctx context.Context, q queryer, orderID int64) ([]models.LineItem, error) {
	query := `
		SELECT id, order_id, purchasable_id, sku, description, qty,
			price, promotional_price, subtotal, width, height, length, weight,
			tax_category_id, shipping_category_id, created_at, updated_at
		FROM line_items
		WHERE order_id = $1
		ORDER BY id`

	rows, err := q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order line items: %w", err)
	}
	defer rows.Close()

	var items []models.LineItem
	for rows.Next() {
		var item models.LineItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.PurchasableID,
			&item.SKU,
			&item.Description,
			&item.Qty,
			&item.Price,
			&item.PromotionalPrice,
			&item.Subtotal,
			&item.Width,
			&item.Height,
			&item.Length,
			&item.Weight,
			&item.TaxCategoryID,
			&item.ShippingCategoryID,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

func GetOrderNotices(ctx context.Context, q queryer, orderID int64) ([]models.Notice, error) {
	query := `
		SELECT id, order_id, type, attribute, message, created_at
		FROM order_notices
		WHERE order_id = $1
		ORDER BY created_at`

	rows, err := q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order notices: %w", err)
	}
	defer rows.Close()

	var notices []models.Notice
	for rows.Next() {
		var notice models.Notice
		err := rows.Scan(
			&notice.ID,
			&notice.OrderID,
			&notice.Type,
			&notice.Attribute,
			&notice.Message,
			&notice.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan notice: %w", err)
		}
		notices = append(notices, notice)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return notices, nil
}

// Notices are append-only; nothing ever updates or deletes one.
func insertNotices(ctx context.Context, tx *sql.Tx, notices []models.Notice) error {
	for _, notice := range notices {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_notices (id, order_id, type, attribute, message, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			notice.ID, notice.OrderID, notice.Type, notice.Attribute, notice.Message, notice.CreatedAt)
		if err != nil {
			return fmt.Errorf("create order notice: %w", err)
		}
	}
	return nil
}

func ListOrdersCursor(ctx context.Context, db *sql.DB, storeID int64, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT id, store_id, order_number, status, total_amount, date_completed,
			created_at, updated_at, version
		FROM orders
		WHERE store_id = $1
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	rows, err := db.QueryContext(ctx, query, storeID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		err := rows.Scan(
			&order.ID,
			&order.StoreID,
			&order.OrderNumber,
			&order.Status,
			&order.TotalAmount,
			&order.DateCompleted,
			&order.CreatedAt,
			&order.UpdatedAt,
			&order.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

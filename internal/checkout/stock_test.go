package checkout

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safar/go-order-core/internal/models"
)

func TestIsAvailable(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*testItem)
		want bool
	}{
		{"in stock and enabled", func(i *testItem) {}, true},
		{"not available for purchase", func(i *testItem) { i.available = false }, false},
		{"disabled", func(i *testItem) { i.enabled = false }, false},
		{"zero stock", func(i *testItem) { i.stock.Stock = 0 }, false},
		{"unlimited ignores zero stock", func(i *testItem) {
			i.stock.Stock = 0
			i.stock.Unlimited = true
		}, true},
		{"unlimited ignores negative stock", func(i *testItem) {
			i.stock.Stock = -5
			i.stock.Unlimited = true
		}, true},
		{"temp sku", func(i *testItem) { i.sku = models.TempSKUPrefix + "abc123" }, false},
		{"temp sku with stock and enabled", func(i *testItem) {
			i.sku = models.TempSKUPrefix + "abc123"
			i.stock.Stock = 100
		}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item := newTestItem()
			tc.mod(item)
			assert.Equal(t, tc.want, IsAvailable(item))
		})
	}
}

func openOrder() *models.Order {
	return &models.Order{ID: 1, Status: models.OrderStatusOpen}
}

func lineFor(id, purchasableID int64, qty int) models.LineItem {
	return models.LineItem{
		ID:            id,
		OrderID:       1,
		PurchasableID: sql.NullInt64{Int64: purchasableID, Valid: true},
		Qty:           qty,
	}
}

func TestAggregateQuantity(t *testing.T) {
	t.Run("new line not in order counts once", func(t *testing.T) {
		line := lineFor(0, 1, 4)
		items := []models.LineItem{lineFor(10, 1, 2), lineFor(11, 2, 9)}
		assert.Equal(t, 6, AggregateQuantity(&line, items))
	})

	t.Run("persisted line replaces its stored qty", func(t *testing.T) {
		line := lineFor(10, 1, 7)
		items := []models.LineItem{lineFor(10, 1, 2), lineFor(11, 1, 3)}
		assert.Equal(t, 10, AggregateQuantity(&line, items))
	})

	t.Run("persisted line absent from order still counts once", func(t *testing.T) {
		line := lineFor(10, 1, 7)
		assert.Equal(t, 7, AggregateQuantity(&line, nil))
	})

	t.Run("dangling purchasable references never match", func(t *testing.T) {
		line := lineFor(0, 1, 1)
		items := []models.LineItem{{ID: 12, Qty: 5}} // purchasable deleted
		assert.Equal(t, 1, AggregateQuantity(&line, items))
	})
}

func TestValidateQuantity_CompletedOrderIsNoOp(t *testing.T) {
	item := newTestItem()
	item.stock.Stock = 0 // sold out after completion

	order := &models.Order{ID: 1, Status: models.OrderStatusCompleted}
	line := lineFor(10, 1, 5)

	errs := ValidateQuantity(order, item, &line, 5)
	assert.Empty(t, errs)
}

func TestValidateQuantity_PositiveQty(t *testing.T) {
	item := newTestItem()
	line := lineFor(0, 1, 0)

	errs := ValidateQuantity(openOrder(), item, &line, 0)
	require.Len(t, errs, 1)
	assert.Equal(t, "qty", errs[0].Attribute)
}

func TestValidateQuantity_UnresolvablePurchasable(t *testing.T) {
	line := lineFor(10, 1, 2)

	errs := ValidateQuantity(openOrder(), nil, &line, 2)
	require.Len(t, errs, 1)
	assert.Equal(t, "purchasableId", errs[0].Attribute)
}

func TestValidateQuantity_Disabled(t *testing.T) {
	item := newTestItem()
	item.enabled = false
	line := lineFor(0, 1, 2)

	errs := ValidateQuantity(openOrder(), item, &line, 2)
	require.Len(t, errs, 1)
	assert.Equal(t, "purchasableId", errs[0].Attribute)
}

func TestValidateQuantity_OutOfStock(t *testing.T) {
	item := newTestItem()
	item.stock = models.StockInfo{Stock: 0}
	line := lineFor(0, 1, 1)

	errs := ValidateQuantity(openOrder(), item, &line, 1)
	require.Len(t, errs, 2, "out-of-stock and insufficient-stock both fire")
	assert.Contains(t, errs[0].Message, "out of stock")
}

func TestValidateQuantity_InsufficientStock(t *testing.T) {
	item := newTestItem()
	item.stock = models.StockInfo{Stock: 3}
	line := lineFor(0, 1, 2)

	// Another line on the order already holds 2 of the same purchasable.
	errs := ValidateQuantity(openOrder(), item, &line, 4)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "only 3")
}

func TestValidateQuantity_UnlimitedStockIgnoresCounter(t *testing.T) {
	item := newTestItem()
	item.stock = models.StockInfo{Stock: 0, Unlimited: true}
	line := lineFor(0, 1, 1000)

	errs := ValidateQuantity(openOrder(), item, &line, 1000)
	assert.Empty(t, errs)
}

func TestValidateQuantity_MinQty(t *testing.T) {
	item := newTestItem()
	item.stock = models.StockInfo{Stock: 100, MinQty: 5}

	line := lineFor(0, 1, 2)
	errs := ValidateQuantity(openOrder(), item, &line, 2)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "Minimum")

	line = lineFor(0, 1, 5)
	errs = ValidateQuantity(openOrder(), item, &line, 5)
	assert.Empty(t, errs)
}

func TestValidateQuantity_MaxQty(t *testing.T) {
	item := newTestItem()
	item.stock = models.StockInfo{Stock: 10000, MaxQty: 10}

	line := lineFor(0, 1, 11)
	errs := ValidateQuantity(openOrder(), item, &line, 11)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "Maximum")

	item.stock.MaxQty = 0 // no cap
	line = lineFor(0, 1, 1000)
	errs = ValidateQuantity(openOrder(), item, &line, 1000)
	assert.Empty(t, errs)
}

func TestValidateQuantity_MultipleViolationsSurfaceTogether(t *testing.T) {
	item := newTestItem()
	item.enabled = false
	item.stock = models.StockInfo{Stock: 0}
	line := lineFor(0, 1, 0)

	errs := ValidateQuantity(openOrder(), item, &line, 0)
	// qty < 1, disabled, out of stock -- all reported at once.
	assert.GreaterOrEqual(t, len(errs), 3)
}

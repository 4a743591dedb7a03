package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safar/go-order-core/internal/models"
)

func TestPopulate_ClampsQtyToStock(t *testing.T) {
	item := newTestItem()
	item.stock = models.StockInfo{Stock: 3}

	line := lineFor(0, 1, 5)
	notices := Populate(openOrder(), &line, item)

	assert.Equal(t, 3, line.Qty)
	require.Len(t, notices, 1)
	assert.Equal(t, models.NoticeTypeQtyChanged, notices[0].Type)
	assert.Equal(t, "qty", notices[0].Attribute)
	assert.Contains(t, notices[0].Message, "Widget")
	assert.Contains(t, notices[0].Message, "3")
}

func TestPopulate_Idempotent(t *testing.T) {
	item := newTestItem()
	item.stock = models.StockInfo{Stock: 3}

	line := lineFor(0, 1, 5)

	first := Populate(openOrder(), &line, item)
	require.Len(t, first, 1)
	require.Equal(t, 3, line.Qty)

	before := line
	second := Populate(openOrder(), &line, item)

	assert.Empty(t, second, "no stock change, no second clamp")
	assert.Equal(t, before, line)
}

func TestPopulate_NoClampWhenStockSuffices(t *testing.T) {
	item := newTestItem()

	line := lineFor(0, 1, 5)
	notices := Populate(openOrder(), &line, item)

	assert.Equal(t, 5, line.Qty)
	assert.Empty(t, notices)
}

func TestPopulate_UnlimitedStockNeverClamps(t *testing.T) {
	item := newTestItem()
	item.stock = models.StockInfo{Stock: 0, Unlimited: true}

	line := lineFor(0, 1, 500)
	notices := Populate(openOrder(), &line, item)

	assert.Equal(t, 500, line.Qty)
	assert.Empty(t, notices)
}

func TestPopulate_CompletedOrderFrozen(t *testing.T) {
	item := newTestItem()
	item.stock = models.StockInfo{Stock: 0}

	order := &models.Order{ID: 1, Status: models.OrderStatusCompleted}
	line := lineFor(10, 1, 5)
	notices := Populate(order, &line, item)

	assert.Equal(t, 5, line.Qty, "historical quantity untouched")
	assert.Empty(t, notices)
}

func TestPopulate_CopiesDimensionsCoercingAbsentToZero(t *testing.T) {
	item := newTestItem()
	item.dims = models.Dimensions{
		Width:  nullDec(10),
		Weight: nullDec(2),
		// Height and Length absent.
	}

	line := lineFor(0, 1, 1)
	Populate(openOrder(), &line, item)

	assert.True(t, line.Width.Equal(dec(10)))
	assert.True(t, line.Weight.Equal(dec(2)))
	assert.True(t, line.Height.IsZero())
	assert.True(t, line.Length.IsZero())
}

func TestPopulate_NilOrderTreatedAsOpen(t *testing.T) {
	item := newTestItem()
	item.stock = models.StockInfo{Stock: 2}

	line := lineFor(0, 1, 9)
	notices := Populate(nil, &line, item)

	assert.Equal(t, 2, line.Qty)
	assert.Len(t, notices, 1)
}

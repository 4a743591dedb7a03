package checkout

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/safar/go-order-core/internal/models"
)

// Populate copies the physical attributes of item onto line and, on an open
// order, clamps the quantity down to what is left in stock. The clamp is a
// quiet correction: it never fails the operation, it is reported through the
// returned notices. Calling Populate again with no intervening state change
// leaves line as-is and emits nothing.
//
// Populate deliberately does not touch price; pricing is resolved by
// PriceResolver and written by the caller, so an order can be re-priced
// without re-running stock correction and vice versa.
func Populate(order *models.Order, line *models.LineItem, item Purchasable) []models.Notice {
	var notices []models.Notice

	stock := item.StockInfo()
	completed := order != nil && order.IsCompleted()
	if !completed && !stock.Unlimited && line.Qty > stock.Stock {
		line.Qty = stock.Stock
		notices = append(notices, models.Notice{
			ID:        uuid.New(),
			OrderID:   line.OrderID,
			Type:      models.NoticeTypeQtyChanged,
			Attribute: "qty",
			Message:   fmt.Sprintf("Quantity of %q was adjusted to the %d left in stock.", item.Description(), stock.Stock),
			CreatedAt: time.Now().UTC(),
		})
	}

	dims := item.Dimensions()
	line.Width = orZero(dims.Width)
	line.Height = orZero(dims.Height)
	line.Length = orZero(dims.Length)
	line.Weight = orZero(dims.Weight)

	return notices
}

// Absent dimensions land on the line item as zero, never as null.
func orZero(d decimal.NullDecimal) decimal.Decimal {
	if d.Valid {
		return d.Decimal
	}
	return decimal.Zero
}

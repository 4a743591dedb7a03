package checkout

import (
	"fmt"

	"github.com/safar/go-order-core/internal/models"
)

// IsAvailable reports whether item can be added to an order at all: it must
// be enabled, flagged available for purchase, carry a real SKU, and have
// stock unless stock is unlimited.
func IsAvailable(item Purchasable) bool {
	if !item.AvailableForPurchase() {
		return false
	}
	if !item.Enabled() {
		return false
	}
	if hasTempSKU(item) {
		return false
	}
	stock := item.StockInfo()
	if !stock.Unlimited && stock.Stock < 1 {
		return false
	}
	return true
}

// AggregateQuantity sums the quantity requested for line's purchasable
// across the order. The target line contributes its requested qty, matched
// by line-item id when it is already persisted; every other line referencing
// the same purchasable contributes its stored qty. A target not present in
// items at all contributes its qty exactly once, so persisted and
// not-yet-persisted lines never double count.
func AggregateQuantity(line *models.LineItem, items []models.LineItem) int {
	total := 0
	counted := false
	for _, item := range items {
		if line.ID != 0 && item.ID == line.ID {
			total += line.Qty
			counted = true
			continue
		}
		if samePurchasable(line, &item) {
			total += item.Qty
		}
	}
	if !counted {
		total += line.Qty
	}
	return total
}

func samePurchasable(a, b *models.LineItem) bool {
	return a.PurchasableID.Valid && b.PurchasableID.Valid &&
		a.PurchasableID.Int64 == b.PurchasableID.Int64
}

// ValidateQuantity checks line's quantity against the stock constraints of
// item. aggregateQty is the order-wide quantity for this purchasable (see
// AggregateQuantity). All rules are evaluated independently so every
// violation surfaces at once. On a completed order the result is always
// empty: stock and price are historical facts there, not constraints.
//
// item may be nil when the purchasable was deleted out from under the
// order; only resolvability and the positive-quantity rule can be checked
// in that case.
func ValidateQuantity(order *models.Order, item Purchasable, line *models.LineItem, aggregateQty int) []ValidationError {
	if order != nil && order.IsCompleted() {
		return nil
	}

	var errs []ValidationError

	if line.Qty < 1 {
		errs = append(errs, ValidationError{
			Attribute: "qty",
			Message:   "Quantity must be at least 1.",
		})
	}

	if item == nil || !item.Enabled() {
		errs = append(errs, ValidationError{
			Attribute: "purchasableId",
			Message:   "The item is no longer available for purchase.",
		})
	}
	if item == nil {
		return errs
	}

	stock := item.StockInfo()

	if !stock.HasStock() {
		errs = append(errs, ValidationError{
			Attribute: "qty",
			Message:   fmt.Sprintf("%q is currently out of stock.", item.Description()),
		})
	}

	if !stock.Unlimited && aggregateQty > stock.Stock {
		errs = append(errs, ValidationError{
			Attribute: "qty",
			Message:   fmt.Sprintf("There are only %d items of %q left in stock.", stock.Stock, item.Description()),
		})
	}

	if stock.MinQty > 1 && aggregateQty < stock.MinQty {
		errs = append(errs, ValidationError{
			Attribute: "qty",
			Message:   fmt.Sprintf("Minimum order quantity for %q is %d.", item.Description(), stock.MinQty),
		})
	}

	if stock.MaxQty != 0 && aggregateQty > stock.MaxQty {
		errs = append(errs, ValidationError{
			Attribute: "qty",
			Message:   fmt.Sprintf("Maximum order quantity for %q is %d.", item.Description(), stock.MaxQty),
		})
	}

	return errs
}

package checkout

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/safar/go-order-core/internal/models"
)

// CategoryResolver looks up tax and shipping categories, falling back to the
// configured default when the id is unset. An id that is set but resolves to
// nothing is a ConfigurationError.
type CategoryResolver interface {
	TaxCategory(ctx context.Context, id sql.NullInt64) (*models.TaxCategory, error)
	ShippingCategory(ctx context.Context, id sql.NullInt64) (*models.ShippingCategory, error)
}

// Service orchestrates price resolution, stock validation and line-item
// synchronization for order mutations. It holds no per-order state and is
// safe to share; mutual exclusion per order is the caller's responsibility.
type Service struct {
	categories CategoryResolver
}

func NewService(categories CategoryResolver) *Service {
	return &Service{categories: categories}
}

// Result is the outcome of one line-item synchronization pass.
type Result struct {
	Price   ResolvedPrice
	Notices []models.Notice
	Errors  []ValidationError
}

// OK reports whether the line item may be committed.
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}

// PopulateAndValidate runs the full synchronization pass for one line item:
// price resolution, category resolution, attribute snapshot, quantity clamp
// and quantity validation against the rest of the order's line items.
//
// Configuration problems abort with an error. Rule violations come back
// collected in Result.Errors so the caller can surface all of them at once;
// quiet corrections proceed regardless and are reported in Result.Notices.
func (s *Service) PopulateAndValidate(ctx context.Context, order *models.Order, line *models.LineItem, item Purchasable, orderItems []models.LineItem) (*Result, error) {
	var resolver PriceResolver
	price, err := resolver.Resolve(item)
	if err != nil {
		return nil, err
	}

	tax, err := s.categories.TaxCategory(ctx, item.TaxCategory())
	if err != nil {
		return nil, err
	}
	shipping, err := s.categories.ShippingCategory(ctx, item.ShippingCategory())
	if err != nil {
		return nil, err
	}

	line.PurchasableID = sql.NullInt64{Int64: item.PurchasableID(), Valid: true}
	line.SKU = item.SKU()
	line.Description = item.Description()
	line.TaxCategoryID = sql.NullInt64{Int64: tax.ID, Valid: true}
	line.ShippingCategoryID = sql.NullInt64{Int64: shipping.ID, Valid: true}

	notices := Populate(order, line, item)

	line.Price = price.Unit
	line.PromotionalPrice = price.Promotional
	line.Subtotal = price.Effective().Mul(decimal.NewFromInt(int64(line.Qty)))

	aggregate := AggregateQuantity(line, orderItems)
	errs := ValidateQuantity(order, item, line, aggregate)

	return &Result{
		Price:   price,
		Notices: notices,
		Errors:  errs,
	}, nil
}

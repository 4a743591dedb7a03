package checkout

import (
	"github.com/shopspring/decimal"
)

// ResolvedPrice is one pricing resolution for a purchasable. It is a
// snapshot: a later change to the base price is only picked up by the next
// Resolve call, never by re-reading an old ResolvedPrice.
type ResolvedPrice struct {
	Unit        decimal.Decimal
	Promotional decimal.NullDecimal
}

// OnPromotion reports whether the promotional price applies. It only ever
// applies when strictly below the unit price; Resolve discards it otherwise.
func (p ResolvedPrice) OnPromotion() bool {
	return p.Promotional.Valid
}

// Effective is the price the buyer actually pays per unit.
func (p ResolvedPrice) Effective() decimal.Decimal {
	if p.Promotional.Valid {
		return p.Promotional.Decimal
	}
	return p.Unit
}

// PriceResolver computes the effective unit and promotional price for a
// purchasable. Explicit overrides, set via SetPrice/SetPromotionalPrice,
// take precedence over the purchasable's base values; they are the only
// mutation path. The zero value resolves straight from the purchasable.
type PriceResolver struct {
	price            decimal.NullDecimal
	promotionalPrice decimal.NullDecimal
}

// SetPrice overrides the unit price for subsequent resolutions.
func (r *PriceResolver) SetPrice(price decimal.Decimal) {
	r.price = decimal.NullDecimal{Decimal: price, Valid: true}
}

// SetPromotionalPrice overrides the promotional price for subsequent
// resolutions. The strictly-below-unit rule still applies.
func (r *PriceResolver) SetPromotionalPrice(price decimal.Decimal) {
	r.promotionalPrice = decimal.NullDecimal{Decimal: price, Valid: true}
}

// Resolve computes the pricing for item. It fails with a ConfigurationError
// when no unit price can be determined at all.
func (r *PriceResolver) Resolve(item Purchasable) (ResolvedPrice, error) {
	info := item.PriceInfo()

	unit := r.price
	if !unit.Valid {
		unit = info.Price
	}
	if !unit.Valid {
		return ResolvedPrice{}, configErrorf("no price available for %q (purchasable %d)", item.SKU(), item.PurchasableID())
	}

	promotional := r.promotionalPrice
	if !promotional.Valid {
		promotional = info.PromotionalPrice
	}
	if promotional.Valid && !promotional.Decimal.LessThan(unit.Decimal) {
		promotional = decimal.NullDecimal{}
	}

	return ResolvedPrice{
		Unit:        unit.Decimal,
		Promotional: promotional,
	}, nil
}

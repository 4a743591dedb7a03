package checkout

import (
	"database/sql"
	"strings"

	"github.com/safar/go-order-core/internal/models"
)

// Purchasable is implemented by any catalog item type that can be sold on a
// line item. models.CatalogItem is the standard implementation; product
// variants or bundles only need to satisfy this interface to flow through
// pricing and stock validation.
type Purchasable interface {
	PurchasableID() int64
	SKU() string
	Description() string
	PriceInfo() models.PriceInfo
	StockInfo() models.StockInfo
	Dimensions() models.Dimensions
	TaxCategory() sql.NullInt64
	ShippingCategory() sql.NullInt64
	Enabled() bool
	AvailableForPurchase() bool
}

func hasTempSKU(p Purchasable) bool {
	return strings.HasPrefix(p.SKU(), models.TempSKUPrefix)
}

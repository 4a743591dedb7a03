package models

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TempSKUPrefix marks a placeholder SKU. A purchasable carrying it is not
// finalized for sale and is never available for purchase.
const TempSKUPrefix = "__temp_"

type Store struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

type TaxCategory struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

type ShippingCategory struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

// Purchasable is a catalog row. Price, stock and availability live on the
// per-store row; the same purchasable can carry different values per
// storefront.
type Purchasable struct {
	ID                 int64               `json:"id"`
	SKU                string              `json:"sku"`
	Description        string              `json:"description"`
	TaxCategoryID      sql.NullInt64       `json:"tax_category_id"`
	ShippingCategoryID sql.NullInt64       `json:"shipping_category_id"`
	Width              decimal.NullDecimal `json:"width"`
	Height             decimal.NullDecimal `json:"height"`
	Length             decimal.NullDecimal `json:"length"`
	Weight             decimal.NullDecimal `json:"weight"`
	Enabled            bool                `json:"enabled"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
	Version            int                 `json:"version"`
}

func (p *Purchasable) HasTempSKU() bool {
	return strings.HasPrefix(p.SKU, TempSKUPrefix)
}

// PurchasableStore is the per-storefront pricing/stock row for a purchasable.
type PurchasableStore struct {
	PurchasableID        int64               `json:"purchasable_id"`
	StoreID              int64               `json:"store_id"`
	Price                decimal.Decimal     `json:"price"`
	PromotionalPrice     decimal.NullDecimal `json:"promotional_price"`
	Stock                int                 `json:"stock"`
	HasUnlimitedStock    bool                `json:"has_unlimited_stock"`
	MinQty               int                 `json:"min_qty"`
	MaxQty               int                 `json:"max_qty"`
	AvailableForPurchase bool                `json:"available_for_purchase"`
	Promotable           bool                `json:"promotable"`
	UpdatedAt            time.Time           `json:"updated_at"`
	Version              int                 `json:"version"`
}

// PriceInfo groups the base pricing of a catalog item for price resolution.
type PriceInfo struct {
	Price            decimal.NullDecimal
	PromotionalPrice decimal.NullDecimal
}

// StockInfo groups the stock constraints of a catalog item.
type StockInfo struct {
	Stock     int
	Unlimited bool
	MinQty    int
	MaxQty    int
}

// HasStock reports whether anything can be sold at all. Unlimited stock
// ignores the counter entirely.
func (s StockInfo) HasStock() bool {
	return s.Unlimited || s.Stock > 0
}

// Dimensions are the physical attributes copied onto line items.
type Dimensions struct {
	Width  decimal.NullDecimal
	Height decimal.NullDecimal
	Length decimal.NullDecimal
	Weight decimal.NullDecimal
}

// CatalogItem is a purchasable joined with its pricing row for one store.
type CatalogItem struct {
	Item    Purchasable      `json:"item"`
	Pricing PurchasableStore `json:"pricing"`
}

func (c *CatalogItem) PurchasableID() int64 { return c.Item.ID }
func (c *CatalogItem) SKU() string          { return c.Item.SKU }
func (c *CatalogItem) Description() string  { return c.Item.Description }

func (c *CatalogItem) PriceInfo() PriceInfo {
	info := PriceInfo{
		Price: decimal.NullDecimal{Decimal: c.Pricing.Price, Valid: true},
	}
	if c.Pricing.Promotable {
		info.PromotionalPrice = c.Pricing.PromotionalPrice
	}
	return info
}

func (c *CatalogItem) StockInfo() StockInfo {
	return StockInfo{
		Stock:     c.Pricing.Stock,
		Unlimited: c.Pricing.HasUnlimitedStock,
		MinQty:    c.Pricing.MinQty,
		MaxQty:    c.Pricing.MaxQty,
	}
}

func (c *CatalogItem) Dimensions() Dimensions {
	return Dimensions{
		Width:  c.Item.Width,
		Height: c.Item.Height,
		Length: c.Item.Length,
		Weight: c.Item.Weight,
	}
}

func (c *CatalogItem) TaxCategory() sql.NullInt64      { return c.Item.TaxCategoryID }
func (c *CatalogItem) ShippingCategory() sql.NullInt64 { return c.Item.ShippingCategoryID }
func (c *CatalogItem) Enabled() bool                   { return c.Item.Enabled }
func (c *CatalogItem) AvailableForPurchase() bool      { return c.Pricing.AvailableForPurchase }

type Order struct {
	ID            int64           `json:"id"`
	StoreID       int64           `json:"store_id"`
	OrderNumber   string          `json:"order_number"`
	Status        string          `json:"status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	DateCompleted sql.NullTime    `json:"date_completed"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Version       int             `json:"version"`
	Items         []LineItem      `json:"items,omitempty"`
	Notices       []Notice        `json:"notices,omitempty"`
}

// IsCompleted reports whether the order has reached its terminal state.
// Completed orders are historical records: stock and price rules no longer
// apply to them.
func (o *Order) IsCompleted() bool {
	return o.Status == OrderStatusCompleted
}

// LineItem binds a purchasable into an order with a quantity. SKU,
// description, price and dimensions are snapshots taken at population time;
// the purchasable reference goes stale if the catalog row is deleted.
type LineItem struct {
	ID                 int64               `json:"id"`
	OrderID            int64               `json:"order_id"`
	PurchasableID      sql.NullInt64       `json:"purchasable_id"`
	SKU                string              `json:"sku"`
	Description        string              `json:"description"`
	Qty                int                 `json:"qty"`
	Price              decimal.Decimal     `json:"price"`
	PromotionalPrice   decimal.NullDecimal `json:"promotional_price"`
	Subtotal           decimal.Decimal     `json:"subtotal"`
	Width              decimal.Decimal     `json:"width"`
	Height             decimal.Decimal     `json:"height"`
	Length             decimal.Decimal     `json:"length"`
	Weight             decimal.Decimal     `json:"weight"`
	TaxCategoryID      sql.NullInt64       `json:"tax_category_id"`
	ShippingCategoryID sql.NullInt64       `json:"shipping_category_id"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// Notice is an advisory record of an automatic correction applied to an
// order, e.g. a quantity reduced to what was left in stock. Notices inform,
// they never block.
type Notice struct {
	ID        uuid.UUID `json:"id"`
	OrderID   int64     `json:"order_id"`
	Type      string    `json:"type"`
	Attribute string    `json:"attribute"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	OrderStatusOpen      = "open"
	OrderStatusCompleted = "completed"
)

const (
	NoticeTypeQtyChanged = "lineItemQtyChanged"
)

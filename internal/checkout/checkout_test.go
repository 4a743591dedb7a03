package checkout

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safar/go-order-core/internal/models"
)

// testItem is an in-memory Purchasable for exercising the checkout core
// without a catalog.
type testItem struct {
	id        int64
	sku       string
	desc      string
	price     decimal.NullDecimal
	promo     decimal.NullDecimal
	stock     models.StockInfo
	dims      models.Dimensions
	taxID     sql.NullInt64
	shipID    sql.NullInt64
	enabled   bool
	available bool
}

func newTestItem() *testItem {
	return &testItem{
		id:        1,
		sku:       "WIDGET-001",
		desc:      "Widget",
		price:     decimal.NullDecimal{Decimal: decimal.NewFromInt(100), Valid: true},
		stock:     models.StockInfo{Stock: 10},
		enabled:   true,
		available: true,
	}
}

func (t *testItem) PurchasableID() int64              { return t.id }
func (t *testItem) SKU() string                       { return t.sku }
func (t *testItem) Description() string               { return t.desc }
func (t *testItem) PriceInfo() models.PriceInfo       { return models.PriceInfo{Price: t.price, PromotionalPrice: t.promo} }
func (t *testItem) StockInfo() models.StockInfo       { return t.stock }
func (t *testItem) Dimensions() models.Dimensions     { return t.dims }
func (t *testItem) TaxCategory() sql.NullInt64        { return t.taxID }
func (t *testItem) ShippingCategory() sql.NullInt64   { return t.shipID }
func (t *testItem) Enabled() bool                     { return t.enabled }
func (t *testItem) AvailableForPurchase() bool        { return t.available }

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func nullDec(v int64) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.NewFromInt(v), Valid: true}
}

// fakeCategories resolves every lookup to fixed categories, like a catalog
// with only the defaults configured.
type fakeCategories struct{}

func (fakeCategories) TaxCategory(_ context.Context, id sql.NullInt64) (*models.TaxCategory, error) {
	if id.Valid {
		return &models.TaxCategory{ID: id.Int64, Name: "Special"}, nil
	}
	return &models.TaxCategory{ID: 1, Name: "General", IsDefault: true}, nil
}

func (fakeCategories) ShippingCategory(_ context.Context, id sql.NullInt64) (*models.ShippingCategory, error) {
	if id.Valid {
		return &models.ShippingCategory{ID: id.Int64, Name: "Special"}, nil
	}
	return &models.ShippingCategory{ID: 1, Name: "General", IsDefault: true}, nil
}

func TestPopulateAndValidate_WritesPriceAndSnapshot(t *testing.T) {
	svc := NewService(fakeCategories{})

	item := newTestItem()
	item.promo = nullDec(80)
	item.dims.Weight = nullDec(2)

	order := &models.Order{ID: 7, Status: models.OrderStatusOpen}
	line := &models.LineItem{OrderID: 7, Qty: 3}

	result, err := svc.PopulateAndValidate(context.Background(), order, line, item, nil)
	require.NoError(t, err)
	require.True(t, result.OK())

	assert.Equal(t, "WIDGET-001", line.SKU)
	assert.Equal(t, "Widget", line.Description)
	assert.True(t, line.PurchasableID.Valid)
	assert.True(t, line.Price.Equal(dec(100)))
	require.True(t, line.PromotionalPrice.Valid)
	assert.True(t, line.PromotionalPrice.Decimal.Equal(dec(80)))
	assert.True(t, line.Subtotal.Equal(dec(240)), "subtotal uses the effective price")
	assert.True(t, line.Weight.Equal(dec(2)))
	assert.True(t, line.Width.IsZero())
	assert.Equal(t, int64(1), line.TaxCategoryID.Int64)
	assert.Equal(t, int64(1), line.ShippingCategoryID.Int64)
	assert.Empty(t, result.Notices)
}

func TestPopulateAndValidate_ClampThenValidateUsesClampedQty(t *testing.T) {
	svc := NewService(fakeCategories{})

	item := newTestItem()
	item.stock = models.StockInfo{Stock: 3}

	order := &models.Order{ID: 7, Status: models.OrderStatusOpen}
	line := &models.LineItem{OrderID: 7, Qty: 5}

	result, err := svc.PopulateAndValidate(context.Background(), order, line, item, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, line.Qty)
	require.Len(t, result.Notices, 1)
	assert.Equal(t, models.NoticeTypeQtyChanged, result.Notices[0].Type)
	assert.True(t, result.OK(), "clamped quantity passes validation")
	assert.True(t, line.Subtotal.Equal(dec(300)), "subtotal reflects the clamped qty")
}

func TestPopulateAndValidate_CollectsValidationErrors(t *testing.T) {
	svc := NewService(fakeCategories{})

	item := newTestItem()
	item.stock = models.StockInfo{Stock: 10, MinQty: 5}

	order := &models.Order{ID: 7, Status: models.OrderStatusOpen}
	line := &models.LineItem{OrderID: 7, Qty: 2}

	result, err := svc.PopulateAndValidate(context.Background(), order, line, item, nil)
	require.NoError(t, err)

	require.False(t, result.OK())
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, "qty", result.Errors[0].Attribute)
}

func TestPopulateAndValidate_NoPriceAborts(t *testing.T) {
	svc := NewService(fakeCategories{})

	item := newTestItem()
	item.price = decimal.NullDecimal{}

	line := &models.LineItem{Qty: 1}

	_, err := svc.PopulateAndValidate(context.Background(), nil, line, item, nil)
	var configErr *ConfigurationError
	require.ErrorAs(t, err, &configErr)
}

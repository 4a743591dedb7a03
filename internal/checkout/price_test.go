package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_BasePriceOnly(t *testing.T) {
	item := newTestItem()

	var resolver PriceResolver
	price, err := resolver.Resolve(item)
	require.NoError(t, err)

	assert.True(t, price.Unit.Equal(dec(100)))
	assert.False(t, price.OnPromotion())
	assert.True(t, price.Effective().Equal(dec(100)))
}

func TestResolve_PromotionalBelowUnitApplies(t *testing.T) {
	item := newTestItem()
	item.promo = nullDec(75)

	var resolver PriceResolver
	price, err := resolver.Resolve(item)
	require.NoError(t, err)

	assert.True(t, price.OnPromotion())
	assert.True(t, price.Effective().Equal(dec(75)))
}

func TestResolve_PromotionNeverRaisesPrice(t *testing.T) {
	cases := []struct {
		name  string
		promo int64
	}{
		{"equal to unit", 100},
		{"above unit", 120},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item := newTestItem()
			item.promo = nullDec(tc.promo)

			var resolver PriceResolver
			price, err := resolver.Resolve(item)
			require.NoError(t, err)

			assert.False(t, price.OnPromotion())
			assert.True(t, price.Effective().Equal(dec(100)))
		})
	}
}

func TestResolve_Overrides(t *testing.T) {
	item := newTestItem()
	item.promo = nullDec(90)

	var resolver PriceResolver
	resolver.SetPrice(dec(50))

	price, err := resolver.Resolve(item)
	require.NoError(t, err)

	assert.True(t, price.Unit.Equal(dec(50)))
	// Base promotional price of 90 is above the overridden unit price and
	// gets discarded.
	assert.False(t, price.OnPromotion())

	resolver.SetPromotionalPrice(dec(40))
	price, err = resolver.Resolve(item)
	require.NoError(t, err)

	assert.True(t, price.OnPromotion())
	assert.True(t, price.Effective().Equal(dec(40)))
}

func TestResolve_NoPriceIsConfigurationError(t *testing.T) {
	item := newTestItem()
	item.price = decimal.NullDecimal{}

	var resolver PriceResolver
	_, err := resolver.Resolve(item)

	var configErr *ConfigurationError
	require.ErrorAs(t, err, &configErr)
	assert.Contains(t, configErr.Msg, "WIDGET-001")
}

func TestResolve_RecomputesAfterBaseChange(t *testing.T) {
	item := newTestItem()

	var resolver PriceResolver
	first, err := resolver.Resolve(item)
	require.NoError(t, err)
	require.True(t, first.Effective().Equal(dec(100)))

	item.price = nullDec(60)

	second, err := resolver.Resolve(item)
	require.NoError(t, err)
	assert.True(t, second.Effective().Equal(dec(60)), "no stale memoized value")
	assert.True(t, first.Effective().Equal(dec(100)), "earlier snapshot unchanged")
}

package main

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/funing-shop/db"
	"github.com/xenking/funing-shop/internal/domain/coupon"
)

func TestParseCatalog(t *testing.T) {
	products, coupons, err := parseCatalog(db.Catalog)
	require.NoError(t, err)
	require.NotEmpty(t, products)
	require.NotEmpty(t, coupons)

	codes := make(map[string]bool)
	for _, p := range products {
		assert.NotEmpty(t, p.Code)
		assert.True(t, p.Price.IsPositive(), p.Code)
		assert.False(t, codes[p.Code], "duplicate product code %s", p.Code)
		codes[p.Code] = true
	}
	for i := range coupons {
		assert.True(t, coupons[i].Active)
		assert.NoError(t, coupon.Validate(&coupons[i]), coupons[i].Code)
	}
}

func TestParseCatalog_Fields(t *testing.T) {
	products, coupons, err := parseCatalog([]byte(`{
		"products": [{"code":"A","name":"a","quantity":3,"price":"1.25","type":"t","extra":true}],
		"coupons": [{"code":"C","name":"c","discount_type":"cash","discount_detail":"2"}],
		"ignored": {}
	}`))
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 3, products[0].Quantity)
	assert.True(t, decimal.RequireFromString("1.25").Equal(products[0].Price))
	require.Len(t, coupons, 1)
	assert.Equal(t, coupon.DiscountCash, coupons[0].DiscountType)

	_, _, err = parseCatalog([]byte(`{"products":[{"price":"x"}]}`))
	require.Error(t, err)
}

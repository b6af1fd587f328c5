//go:build integration

package postgres

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/funing-shop/internal/domain/cart"
	"github.com/xenking/funing-shop/internal/domain/product"
)

type cartLine struct {
	cartID, productID int64
}

func (c *cartLine) build() *cart.Line {
	return &cart.Line{
		CartID: c.cartID,
		Product: product.Snapshot{
			ProductID: c.productID, Code: "TEA", Name: "Tea", Price: decimal.RequireFromString("2.50"),
		},
		Quantity:  1,
		Subamount: decimal.RequireFromString("2.50"),
	}
}

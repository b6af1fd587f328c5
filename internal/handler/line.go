package handler

import "github.com/xenking/funing-shop/internal/domain/product"

// snapshotFrom reads the product fields copied onto cart and order lines.
func snapshotFrom(f *form) product.Snapshot {
	return product.Snapshot{
		ProductID:   f.int64("product_id"),
		Code:        f.str("code"),
		Name:        f.str("name"),
		Description: f.str("description"),
		Price:       f.requiredDecimal("price"),
	}
}

func requireParent(f *form, name string) int64 {
	id := f.int64(name)
	if id <= 0 {
		f.fail(name, "is required")
	}
	return id
}

// Command seed-db applies the schema, loads the demo catalog and creates a
// demo user. The user's API key is printed once.
package main

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/funing-shop/db"
	appkg "github.com/xenking/funing-shop/internal/app"
	"github.com/xenking/funing-shop/internal/domain/coupon"
	"github.com/xenking/funing-shop/internal/domain/product"
	"github.com/xenking/funing-shop/internal/domain/user"
)

var demoUser = user.Profile{
	Name:     "Demo User",
	Email:    "demo@example.com",
	Password: "demo-password",
	Address:  "1 Demo Street",
	Phone:    "555-0100",
}

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := appkg.LoadConfig()
		if err != nil {
			return err
		}
		ctx = zctx.Base(ctx, lg)

		pool, err := appkg.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		svc, err := appkg.NewServices(pool, m, cfg)
		if err != nil {
			return err
		}

		products, coupons, err := parseCatalog(db.Catalog)
		if err != nil {
			return errors.Wrap(err, "parse catalog")
		}
		for i := range coupons {
			if err := coupon.Validate(&coupons[i]); err != nil {
				return errors.Wrapf(err, "coupon %q", coupons[i].Code)
			}
		}

		if err := svc.ProductRepo.Upsert(ctx, products); err != nil {
			return errors.Wrap(err, "upsert products")
		}
		lg.Info("Products upserted", zap.Int("count", len(products)))

		inserted, err := svc.CouponRepo.Import(ctx, coupons)
		if err != nil {
			return errors.Wrap(err, "import coupons")
		}
		lg.Info("Coupons imported", zap.Int64("inserted", inserted), zap.Int("total", len(coupons)))

		reg, err := svc.Users.Register(ctx, demoUser)
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			lg.Info("Demo user already exists", zap.String("email", demoUser.Email))
			return nil
		case err != nil:
			return errors.Wrap(err, "register demo user")
		}
		lg.Info("Demo user created", zap.Int64("user_id", reg.UserID), zap.String("email", demoUser.Email))
		fmt.Printf("API key for %s: %s\n", demoUser.Email, reg.APIKey)
		return nil
	})
}

func parseCatalog(data []byte) ([]product.Product, []coupon.Coupon, error) {
	var (
		products []product.Product
		coupons  []coupon.Coupon
	)
	err := jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "products":
			return d.Arr(func(d *jx.Decoder) error {
				var p product.Product
				if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
					switch string(key) {
					case "code":
						return str(d, &p.Code)
					case "name":
						return str(d, &p.Name)
					case "description":
						return str(d, &p.Description)
					case "image_url":
						return str(d, &p.ImageURL)
					case "type":
						return str(d, &p.Type)
					case "price":
						return dec(d, &p.Price)
					case "quantity":
						n, err := d.Int()
						p.Quantity = n
						return err
					default:
						return d.Skip()
					}
				}); err != nil {
					return err
				}
				products = append(products, p)
				return nil
			})
		case "coupons":
			return d.Arr(func(d *jx.Decoder) error {
				c := coupon.Coupon{Active: true}
				if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
					switch string(key) {
					case "code":
						return str(d, &c.Code)
					case "name":
						return str(d, &c.Name)
					case "description":
						return str(d, &c.Description)
					case "image_url":
						return str(d, &c.ImageURL)
					case "discount_type":
						var s string
						err := str(d, &s)
						c.DiscountType = coupon.DiscountType(s)
						return err
					case "discount_detail":
						return dec(d, &c.DiscountDetail)
					default:
						return d.Skip()
					}
				}); err != nil {
					return err
				}
				coupons = append(coupons, c)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	return products, coupons, err
}

func str(d *jx.Decoder, dst *string) error {
	s, err := d.Str()
	*dst = s
	return err
}

func dec(d *jx.Decoder, dst *decimal.Decimal) error {
	s, err := d.Str()
	if err != nil {
		return err
	}
	v, err := decimal.NewFromString(s)
	*dst = v
	return err
}

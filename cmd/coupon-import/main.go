// Command coupon-import bulk-loads coupon definitions from gzip'd CSV files
// with columns code,name,discount_type,discount_detail.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/funing-shop/internal/couponimport"
	"github.com/xenking/funing-shop/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		cfg         = couponimport.DefaultConfig()
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or SHOP_DATABASE_URL, DATABASE_URL env)")
	flag.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "rows per insert batch")
	flag.UintVar(&cfg.ExpectedCodes, "expected-codes", cfg.ExpectedCodes, "expected number of codes, sizes the Bloom filter")
	flag.Float64Var(&cfg.FalsePositiveRate, "fp-rate", cfg.FalsePositiveRate, "Bloom filter false positive rate")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] FILE.csv.gz...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	files := flag.Args()

	for _, env := range []string{"SHOP_DATABASE_URL", "DATABASE_URL"} {
		if databaseURL == "" {
			databaseURL = os.Getenv(env)
		}
	}

	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		if len(files) == 0 {
			flag.Usage()
			return errors.New("no input files")
		}
		if databaseURL == "" {
			return errors.New("database URL is required: set --database-url or DATABASE_URL")
		}

		pool, err := postgres.NewPool(ctx, databaseURL)
		if err != nil {
			return errors.Wrap(err, "connect to database")
		}
		defer pool.Close()
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}

		ctx = zctx.Base(ctx, lg)
		if _, err := couponimport.New(postgres.NewCouponRepository(pool), cfg).Run(ctx, files); err != nil {
			return errors.Wrap(err, "import coupons")
		}
		return nil
	})
}

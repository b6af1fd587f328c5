// Package couponimport bulk-loads coupon definitions from gzip'd CSV files.
//
// Codes are de-duplicated across all input files in two passes. The first
// pass feeds every code through a Bloom filter and remembers the codes the
// filter claims to have seen before. Only those suspects need exact tracking
// in the second pass, where rows are batched into the store. The first row
// seen for a code wins.
package couponimport

import (
	"context"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/funing-shop/internal/domain/coupon"
)

// Store persists coupon batches, skipping codes that already exist.
type Store interface {
	Import(ctx context.Context, coupons []coupon.Coupon) (int64, error)
}

// Config tunes an Importer.
type Config struct {
	// BatchSize is the number of rows sent to the store at once.
	BatchSize int
	// ExpectedCodes sizes the Bloom filter.
	ExpectedCodes uint
	// FalsePositiveRate of the Bloom filter.
	FalsePositiveRate float64
}

// DefaultConfig returns settings suitable for a few million codes.
func DefaultConfig() Config {
	return Config{
		BatchSize:         1000,
		ExpectedCodes:     5_000_000,
		FalsePositiveRate: 0.001,
	}
}

// Stats summarizes an import.
type Stats struct {
	Rows       int   // valid rows read
	Skipped    int   // malformed rows
	Duplicates int   // repeated codes across the input
	Inserted   int64 // rows the store accepted
}

// Importer loads coupon files into a Store.
type Importer struct {
	store Store
	cfg   Config
}

// New creates an Importer. Zero config fields take DefaultConfig values.
func New(store Store, cfg Config) *Importer {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.ExpectedCodes == 0 {
		cfg.ExpectedCodes = def.ExpectedCodes
	}
	if cfg.FalsePositiveRate <= 0 || cfg.FalsePositiveRate >= 1 {
		cfg.FalsePositiveRate = def.FalsePositiveRate
	}
	return &Importer{store: store, cfg: cfg}
}

// Run imports files in order.
func (im *Importer) Run(ctx context.Context, files []string) (Stats, error) {
	lg := zctx.From(ctx)

	lg.Info("Pass 1: scanning codes", zap.Int("files", len(files)))
	suspects, err := im.scan(ctx, files)
	if err != nil {
		return Stats{}, errors.Wrap(err, "scan")
	}
	lg.Info("Pass 1 complete", zap.Int("suspects", len(suspects)))

	lg.Info("Pass 2: writing coupons")
	stats, err := im.write(ctx, files, suspects)
	if err != nil {
		return stats, errors.Wrap(err, "write")
	}
	lg.Info("Import complete",
		zap.Int("rows", stats.Rows),
		zap.Int("skipped", stats.Skipped),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int64("inserted", stats.Inserted),
	)
	return stats, nil
}

// scan returns the codes the Bloom filter reported as already seen. It
// contains every duplicated code plus a few false positives.
func (im *Importer) scan(ctx context.Context, files []string) (map[string]bool, error) {
	codes := make(chan string, 1024)
	suspects := make(map[string]bool)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(codes)
		for _, path := range files {
			if err := readFile(ctx, path, func(c coupon.Coupon) error {
				select {
				case codes <- c.Code:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}, func(*RowError) {}); err != nil {
				return err
			}
		}
		return nil
	})
	g.Go(func() error {
		filter := bloom.NewWithEstimates(im.cfg.ExpectedCodes, im.cfg.FalsePositiveRate)
		for code := range codes {
			if filter.TestAndAddString(code) {
				suspects[code] = true
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return suspects, nil
}

func (im *Importer) write(ctx context.Context, files []string, suspects map[string]bool) (Stats, error) {
	var (
		stats   Stats
		batches = make(chan []coupon.Coupon, 2)
	)
	lg := zctx.From(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(batches)
		emitted := make(map[string]bool, len(suspects))
		batch := make([]coupon.Coupon, 0, im.cfg.BatchSize)

		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			select {
			case batches <- batch:
			case <-ctx.Done():
				return ctx.Err()
			}
			batch = make([]coupon.Coupon, 0, im.cfg.BatchSize)
			return nil
		}

		for _, path := range files {
			err := readFile(ctx, path, func(c coupon.Coupon) error {
				stats.Rows++
				if suspects[c.Code] {
					if emitted[c.Code] {
						stats.Duplicates++
						return nil
					}
					emitted[c.Code] = true
				}
				batch = append(batch, c)
				if len(batch) >= im.cfg.BatchSize {
					return flush()
				}
				return nil
			}, func(rerr *RowError) {
				stats.Skipped++
				lg.Warn("Skipping row", zap.Error(rerr))
			})
			if err != nil {
				return err
			}
		}
		return flush()
	})

	var inserted int64
	g.Go(func() error {
		for batch := range batches {
			n, err := im.store.Import(ctx, batch)
			if err != nil {
				return err
			}
			inserted += n
		}
		return nil
	})

	err := g.Wait()
	stats.Inserted = inserted
	return stats, err
}

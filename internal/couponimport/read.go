package couponimport

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/funing-shop/internal/domain/coupon"
)

// Columns of an import file, in order. A first row equal to the column
// names is treated as a header.
var columns = []string{"code", "name", "discount_type", "discount_detail"}

// RowError describes a row that was skipped.
type RowError struct {
	File string
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return e.File + ":" + strconv.Itoa(e.Line) + ": " + e.Err.Error()
}

func (e *RowError) Unwrap() error { return e.Err }

// parseRecord converts one CSV record to a validated, active coupon.
func parseRecord(record []string) (coupon.Coupon, error) {
	if len(record) != len(columns) {
		return coupon.Coupon{}, errors.Errorf("expected %d columns, got %d", len(columns), len(record))
	}
	detail, err := decimal.NewFromString(strings.TrimSpace(record[3]))
	if err != nil {
		return coupon.Coupon{}, errors.Wrap(err, "discount_detail")
	}
	c := coupon.Coupon{
		Code:           record[0],
		Name:           record[1],
		DiscountType:   coupon.DiscountType(strings.ToLower(strings.TrimSpace(record[2]))),
		DiscountDetail: detail,
		Active:         true,
	}
	if err := coupon.Validate(&c); err != nil {
		return coupon.Coupon{}, err
	}
	return c, nil
}

func isHeader(record []string) bool {
	if len(record) != len(columns) {
		return false
	}
	for i, name := range columns {
		if strings.ToLower(strings.TrimSpace(record[i])) != name {
			return false
		}
	}
	return true
}

// readFile streams the gzip'd CSV at path, calling fn for every valid row and
// skip for every malformed one.
func readFile(ctx context.Context, path string, fn func(c coupon.Coupon) error, skip func(*RowError)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	r := csv.NewReader(gz)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true
	r.TrimLeadingSpace = true

	for first := true; ; first = false {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skip(&RowError{File: path, Line: perr.Line, Err: perr.Err})
				continue
			}
			return errors.Wrapf(err, "read %s", path)
		}
		if first && isHeader(record) {
			continue
		}

		c, err := parseRecord(record)
		if err != nil {
			line, _ := r.FieldPos(0)
			skip(&RowError{File: path, Line: line, Err: err})
			continue
		}
		if err := fn(c); err != nil {
			return err
		}
	}
}

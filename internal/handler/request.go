package handler

import (
	"bytes"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/funing-shop/internal/domain"
)

// maxBodySize bounds request bodies.
const maxBodySize = 1 << 20

// form is a decoded JSON object body. Accessors record the first missing or
// malformed field; call err once all fields are read.
type form struct {
	fields map[string]jx.Raw
	first  error
}

func readForm(r *http.Request) (*form, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	f := &form{fields: make(map[string]jx.Raw)}
	if len(bytes.TrimSpace(body)) == 0 {
		return f, nil
	}
	if err := jx.DecodeBytes(body).ObjBytes(func(d *jx.Decoder, key []byte) error {
		raw, err := d.Raw()
		if err != nil {
			return err
		}
		f.fields[string(key)] = raw
		return nil
	}); err != nil {
		return nil, domain.Invalid("body", "must be a JSON object")
	}
	return f, nil
}

func (f *form) fail(field, reason string) {
	if f.first == nil {
		f.first = domain.Invalid(field, reason)
	}
}

func (f *form) err() error { return f.first }

// has reports whether name is present and not null.
func (f *form) has(name string) bool {
	raw, ok := f.fields[name]
	return ok && raw.Type() != jx.Null
}

// scalar returns the textual value of a string or number field.
func (f *form) scalar(name string) (string, bool) {
	raw, ok := f.fields[name]
	if !ok {
		return "", false
	}
	switch raw.Type() {
	case jx.Null:
		return "", false
	case jx.String:
		s, err := jx.DecodeBytes(raw).Str()
		if err != nil {
			f.fail(name, "malformed string")
			return "", false
		}
		return s, true
	case jx.Number:
		return raw.String(), true
	default:
		f.fail(name, "must be a string or number")
		return "", false
	}
}

func (f *form) str(name string) string {
	s, _ := f.scalar(name)
	return s
}

func (f *form) required(name string) string {
	s, ok := f.scalar(name)
	if !ok || strings.TrimSpace(s) == "" {
		f.fail(name, "is required")
	}
	return s
}

func (f *form) int64(name string) int64 {
	s, ok := f.scalar(name)
	if !ok || s == "" {
		return 0
	}
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		f.fail(name, "must be an integer")
	}
	return v
}

// int reads a field stored in an INTEGER column.
func (f *form) int(name string) int {
	v := f.int64(name)
	if v < math.MinInt32 || v > math.MaxInt32 {
		f.fail(name, "is out of range")
		return 0
	}
	return int(v)
}

func (f *form) requiredInt(name string) int {
	if s, ok := f.scalar(name); !ok || strings.TrimSpace(s) == "" {
		f.fail(name, "is required")
		return 0
	}
	return f.int(name)
}

func (f *form) decimal(name string) decimal.Decimal {
	s, ok := f.scalar(name)
	if !ok || s == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		f.fail(name, "must be a number")
	}
	return v
}

func (f *form) requiredDecimal(name string) decimal.Decimal {
	if s, ok := f.scalar(name); !ok || strings.TrimSpace(s) == "" {
		f.fail(name, "is required")
		return decimal.Zero
	}
	return f.decimal(name)
}

func (f *form) bool(name string, def bool) bool {
	raw, ok := f.fields[name]
	if !ok || raw.Type() == jx.Null {
		return def
	}
	if raw.Type() == jx.Bool {
		v, err := jx.DecodeBytes(raw).Bool()
		if err != nil {
			f.fail(name, "must be a boolean")
		}
		return v
	}
	v, err := strconv.ParseBool(f.str(name))
	if err != nil {
		f.fail(name, "must be a boolean")
	}
	return v
}

// pathID parses the {id} route parameter.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid("id", "must be a positive integer")
	}
	return id, nil
}

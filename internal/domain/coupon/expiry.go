package coupon

import "time"

// ExpiryLayout is the only accepted expiry format.
const ExpiryLayout = "2006-01-02 15:04:05"

// ParseExpiry parses s as a UTC wall-clock timestamp. The value must format
// back to exactly s, which rejects out-of-range fields and alternate layouts.
func ParseExpiry(s string) (time.Time, error) {
	t, err := time.Parse(ExpiryLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidExpiry
	}
	if t.Format(ExpiryLayout) != s {
		return time.Time{}, ErrInvalidExpiry
	}
	return t, nil
}

// FormatExpiry renders t in ExpiryLayout.
func FormatExpiry(t time.Time) string {
	return t.UTC().Format(ExpiryLayout)
}

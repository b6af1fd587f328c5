package postgres

import (
	"fmt"
	"testing"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, want: true},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, want: true},
		{name: "lock not available", err: &pgconn.PgError{Code: "55P03"}, want: true},
		{name: "wrapped serialization failure", err: fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"}), want: true},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}},
		{name: "plain error", err: errors.New("boom")},
		{name: "nil", err: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestViolates(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "coupons_code_key"})

	assert.True(t, violates(err, codeUniqueViolation, "coupons_code_key"))
	assert.True(t, violates(err, codeUniqueViolation, ""))
	assert.False(t, violates(err, codeUniqueViolation, "products_code_key"))
	assert.False(t, violates(err, codeForeignKeyViolation, ""))
	assert.False(t, violates(errors.New("x"), codeUniqueViolation, ""))
}

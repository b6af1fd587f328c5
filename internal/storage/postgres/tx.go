package postgres

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type txKey struct{}

// TxOptions configures Transactor.
type TxOptions struct {
	IsoLevel   pgx.TxIsoLevel
	MaxRetries int
	Backoff    time.Duration
}

// DefaultTxOptions returns serializable transactions with three retries.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsoLevel:   pgx.Serializable,
		MaxRetries: 3,
		Backoff:    50 * time.Millisecond,
	}
}

// Transactor runs functions inside a transaction stored in the context, so
// repositories called from fn join it. Serialization failures and deadlocks
// are retried with exponential backoff and jitter.
type Transactor struct {
	pool *pgxpool.Pool
	opts TxOptions
}

// NewTransactor creates a Transactor over pool.
func NewTransactor(pool *pgxpool.Pool, opts TxOptions) *Transactor {
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultTxOptions().Backoff
	}
	return &Transactor{pool: pool, opts: opts}
}

// WithinTx runs fn in a transaction. A context that already carries a
// transaction is reused as is.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	backoff := t.opts.Backoff
	for attempt := 0; ; attempt++ {
		err := t.run(ctx, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
		if attempt >= t.opts.MaxRetries {
			return errors.Wrapf(err, "max retries (%d) exceeded", t.opts.MaxRetries)
		}

		zctx.From(ctx).Debug("Retrying transaction",
			zap.Int("attempt", attempt+1),
			zap.String("sqlstate", pgCode(err)),
		)

		sleep := backoff + time.Duration(rand.Int64N(int64(backoff/4)+1))
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
}

func (t *Transactor) run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: t.opts.IsoLevel})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

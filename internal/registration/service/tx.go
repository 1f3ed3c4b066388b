package service

import (
	"context"
	"time"

	dErrors "retreat/pkg/domain-errors"
)

// defaultTxTimeout bounds a registration transaction when the caller set no
// deadline.
const defaultTxTimeout = 5 * time.Second

// TxRunner is implemented by the store packages. Stores called with the
// context handed to fn take part in the transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type storeTx struct {
	runner  TxRunner
	stores  Stores
	timeout time.Duration
}

// NewStoreTx adapts a store package's runner to StoreTx.
func NewStoreTx(runner TxRunner, stores Stores) StoreTx {
	return &storeTx{runner: runner, stores: stores, timeout: defaultTxTimeout}
}

func (t *storeTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	return t.runner.RunInTx(ctx, func(ctx context.Context) error {
		return fn(ctx, t.stores)
	})
}

package memory

import "context"

// Transactor runs units of work without a transaction. Callers compensate.
type Transactor struct{}

func (Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (Transactor) Atomic() bool { return false }

package application

import (
	"context"
	"fmt"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/inventory/domain"
)

// Ledger owns product stock counts. Each call is one atomic store write;
// grouping calls into a unit of work is the caller's job.
type Ledger struct {
	store StockStore
}

func NewLedger(store StockStore) *Ledger {
	return &Ledger{store: store}
}

// CheckAndReserve takes quantity units of productID out of stock, or fails
// with ErrInsufficientStock / ErrProductNotFound and changes nothing.
func (l *Ledger) CheckAndReserve(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	if err := l.store.DecrementIfAvailable(ctx, productID, quantity); err != nil {
		return fmt.Errorf("reserve %d of product %s: %w", quantity, productID, err)
	}
	return nil
}

// Release puts quantity units back. It must run exactly once per
// reservation; there is no deduplication.
func (l *Ledger) Release(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	if err := l.store.Increment(ctx, productID, quantity); err != nil {
		return fmt.Errorf("release %d of product %s: %w", quantity, productID, err)
	}
	return nil
}

// Restock adds newly received units.
func (l *Ledger) Restock(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	if err := l.store.Increment(ctx, productID, quantity); err != nil {
		return fmt.Errorf("restock product %s: %w", productID, err)
	}
	return nil
}

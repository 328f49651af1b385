package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	invapp "github.com/dmehra2102/Pharmacy-Management-System/internal/inventory/application"
	invdomain "github.com/dmehra2102/Pharmacy-Management-System/internal/inventory/domain"
	invmemory "github.com/dmehra2102/Pharmacy-Management-System/internal/inventory/infrastructure/memory"
	"github.com/dmehra2102/Pharmacy-Management-System/internal/order/application"
	"github.com/dmehra2102/Pharmacy-Management-System/internal/order/domain"
	ordermemory "github.com/dmehra2102/Pharmacy-Management-System/internal/order/infrastructure/memory"
	"github.com/dmehra2102/Pharmacy-Management-System/internal/platform/memory"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/apperr"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/logging"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/outbox"
)

type customers map[string]bool

func (c customers) Exists(_ context.Context, id string) (bool, error) { return c[id], nil }

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, outbox.Event) error {
	return errors.New("outbox unavailable")
}

type fixture struct {
	manager  *application.Manager
	products *invmemory.Store
	orders   *ordermemory.Store
	events   *memory.Outbox
}

func newFixture(t *testing.T, stock map[string]int, recorder outbox.Recorder) *fixture {
	t.Helper()
	f := &fixture{
		products: invmemory.NewStore(),
		orders:   ordermemory.NewStore(),
		events:   memory.NewOutbox(),
	}
	for id, n := range stock {
		p := invdomain.NewProduct(id, invdomain.Details{Name: id, PriceCents: 100, Category: "otc", SKU: "SKU-" + id}, n)
		require.NoError(t, f.products.Create(context.Background(), p))
	}
	if recorder == nil {
		recorder = f.events
	}
	f.manager = application.NewManager(
		logging.Discard(),
		memory.Transactor{},
		f.orders,
		customers{"c-1": true},
		invapp.NewLedger(f.products),
		recorder,
	)
	return f
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.products.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func orderFor(items ...application.LineItemInput) application.CreateOrderInput {
	return application.CreateOrderInput{CustomerID: "c-1", Items: items, PaymentMethod: "card"}
}

func item(productID string, qty int) application.LineItemInput {
	return application.LineItemInput{ProductID: productID, Quantity: qty, UnitPriceCents: 100}
}

func TestCreateThenDeleteRestoresStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]int{"A": 5, "B": 7}, nil)

	o, err := f.manager.CreateOrder(ctx, orderFor(item("A", 5), item("B", 2)))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, o.Status)
	assert.EqualValues(t, 700, o.TotalCents)
	assert.Equal(t, 0, f.stock(t, "A"))
	assert.Equal(t, 5, f.stock(t, "B"))

	require.NoError(t, f.manager.DeleteOrder(ctx, o.ID))
	assert.Equal(t, 5, f.stock(t, "A"))
	assert.Equal(t, 7, f.stock(t, "B"))

	_, err = f.manager.GetOrder(ctx, o.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	types := []string{}
	for _, ev := range f.events.Events() {
		types = append(types, ev.Type)
		assert.Equal(t, o.ID, ev.AggregateID)
	}
	assert.Equal(t, []string{domain.EventOrderCreated, domain.EventOrderDeleted}, types)
}

func TestCreateOrderUnknownCustomer(t *testing.T) {
	f := newFixture(t, map[string]int{"A": 5}, nil)

	in := orderFor(item("A", 1))
	in.CustomerID = "ghost"
	_, err := f.manager.CreateOrder(context.Background(), in)

	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, 5, f.stock(t, "A"))
}

func TestCreateOrderSecondItemShortLeavesFirstUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]int{"A": 10, "B": 2}, nil)

	_, err := f.manager.CreateOrder(ctx, orderFor(item("A", 3), item("B", 1000)))

	assert.ErrorIs(t, err, invdomain.ErrInsufficientStock)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, 10, f.stock(t, "A"))
	assert.Equal(t, 2, f.stock(t, "B"))

	orders, err := f.manager.ListOrders(ctx, application.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, f.events.Events())
}

func TestCreateOrderUnknownProductCompensates(t *testing.T) {
	f := newFixture(t, map[string]int{"A": 4}, nil)

	_, err := f.manager.CreateOrder(context.Background(), orderFor(item("A", 4), item("missing", 1)))

	assert.ErrorIs(t, err, invdomain.ErrProductNotFound)
	assert.Equal(t, 4, f.stock(t, "A"))
}

func TestCreateOrderOutboxFailureUndoesEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]int{"A": 4, "B": 4}, failingRecorder{})

	_, err := f.manager.CreateOrder(ctx, orderFor(item("A", 1), item("B", 2)))

	require.Error(t, err)
	assert.Equal(t, 4, f.stock(t, "A"))
	assert.Equal(t, 4, f.stock(t, "B"))
	n, err := f.orders.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateOrderValidationListsEveryField(t *testing.T) {
	f := newFixture(t, map[string]int{"A": 4}, nil)

	_, err := f.manager.CreateOrder(context.Background(), application.CreateOrderInput{
		Items: []application.LineItemInput{{ProductID: "A", Quantity: 0, UnitPriceCents: 0}},
	})

	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	fields := map[string]string{}
	for _, fe := range apperr.FieldsOf(err) {
		fields[fe.Field] = fe.Message
	}
	assert.Equal(t, "is required", fields["customerId"])
	assert.Equal(t, "is required", fields["paymentMethod"])
	assert.Equal(t, "must be greater than 0", fields["items[0].quantity"])
	assert.Equal(t, "must be greater than 0", fields["items[0].unitPriceCents"])
	assert.Equal(t, 4, f.stock(t, "A"))

	_, err = f.manager.CreateOrder(context.Background(), orderFor())
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestDeleteProcessingOrderIsRefused(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]int{"A": 5}, nil)

	o, err := f.manager.CreateOrder(ctx, orderFor(item("A", 2)))
	require.NoError(t, err)
	_, err = f.manager.UpdateStatus(ctx, o.ID, domain.StatusProcessing)
	require.NoError(t, err)

	err = f.manager.DeleteOrder(ctx, o.ID)
	assert.ErrorIs(t, err, domain.ErrNotPending)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, 3, f.stock(t, "A"))
}

func TestDeleteUnknownOrder(t *testing.T) {
	f := newFixture(t, nil, nil)
	assert.ErrorIs(t, f.manager.DeleteOrder(context.Background(), "nope"), domain.ErrOrderNotFound)
}

func TestCancelRestoresStockOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]int{"A": 5}, nil)

	o, err := f.manager.CreateOrder(ctx, orderFor(item("A", 3)))
	require.NoError(t, err)

	cancelled, err := f.manager.UpdateStatus(ctx, o.ID, domain.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Equal(t, 5, f.stock(t, "A"))

	again, err := f.manager.UpdateStatus(ctx, o.ID, domain.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, again.Status)
	assert.Equal(t, 5, f.stock(t, "A"))

	assert.ErrorIs(t, f.manager.DeleteOrder(ctx, o.ID), domain.ErrNotPending)
	assert.Equal(t, 5, f.stock(t, "A"))
}

func TestUpdateStatusTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]int{"A": 100}, nil)

	cases := []struct {
		name string
		path []domain.OrderStatus
		next domain.OrderStatus
		err  error
	}{
		{"pending to processing", nil, domain.StatusProcessing, nil},
		{"processing to completed", []domain.OrderStatus{domain.StatusProcessing}, domain.StatusCompleted, nil},
		{"pending to completed", nil, domain.StatusCompleted, domain.ErrInvalidTransition},
		{"completed to pending", []domain.OrderStatus{domain.StatusProcessing, domain.StatusCompleted}, domain.StatusPending, domain.ErrInvalidTransition},
		{"processing to cancelled", []domain.OrderStatus{domain.StatusProcessing}, domain.StatusCancelled, domain.ErrInvalidTransition},
		{"cancelled to processing", []domain.OrderStatus{domain.StatusCancelled}, domain.StatusProcessing, domain.ErrInvalidTransition},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o, err := f.manager.CreateOrder(ctx, orderFor(item("A", 1)))
			require.NoError(t, err)
			for _, s := range tc.path {
				_, err := f.manager.UpdateStatus(ctx, o.ID, s)
				require.NoError(t, err)
			}

			got, err := f.manager.UpdateStatus(ctx, o.ID, tc.next)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.next, got.Status)
		})
	}

	t.Run("unknown status", func(t *testing.T) {
		o, err := f.manager.CreateOrder(ctx, orderFor(item("A", 1)))
		require.NoError(t, err)
		_, err = f.manager.UpdateStatus(ctx, o.ID, "shipped")
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
	t.Run("unknown order", func(t *testing.T) {
		_, err := f.manager.UpdateStatus(ctx, "nope", domain.StatusProcessing)
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})
}

func TestConcurrentOrdersNeverOversell(t *testing.T) {
	ctx := context.Background()
	const stock, callers = 5, 40
	f := newFixture(t, map[string]int{"A": stock}, nil)

	var (
		wg                 sync.WaitGroup
		mu                 sync.Mutex
		succeeded, refused int
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.manager.CreateOrder(ctx, orderFor(item("A", 1)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, invdomain.ErrInsufficientStock):
				refused++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, stock, succeeded)
	assert.Equal(t, callers-stock, refused)
	assert.Equal(t, 0, f.stock(t, "A"))
}

func TestStockExhaustedThenSecondOrderRefused(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]int{"A": 5}, nil)

	_, err := f.manager.CreateOrder(ctx, orderFor(item("A", 5)))
	require.NoError(t, err)
	assert.Equal(t, 0, f.stock(t, "A"))

	_, err = f.manager.CreateOrder(ctx, orderFor(item("A", 1)))
	assert.ErrorIs(t, err, invdomain.ErrInsufficientStock)
	assert.Equal(t, 0, f.stock(t, "A"))
}

func TestConcurrentDeletesReleaseOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]int{"A": 10}, nil)

	o, err := f.manager.CreateOrder(ctx, orderFor(item("A", 4)))
	require.NoError(t, err)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		oks int
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.manager.DeleteOrder(ctx, o.ID); err == nil {
				mu.Lock()
				oks++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, oks)
	assert.Equal(t, 10, f.stock(t, "A"))
}

func TestListOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]int{"A": 10}, nil)

	first, err := f.manager.CreateOrder(ctx, orderFor(item("A", 1)))
	require.NoError(t, err)
	second, err := f.manager.CreateOrder(ctx, orderFor(item("A", 1)))
	require.NoError(t, err)

	orders, err := f.manager.ListOrders(ctx, application.ListFilter{})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.False(t, orders[0].CreatedAt.Before(orders[1].CreatedAt))
	ids := []string{orders[0].ID, orders[1].ID}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)

	none, err := f.manager.ListOrders(ctx, application.ListFilter{CustomerID: "someone-else"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

//go:build integration

package intergration

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/app"
	custapp "github.com/dmehra2102/Pharmacy-Management-System/internal/customer/application"
	invapp "github.com/dmehra2102/Pharmacy-Management-System/internal/inventory/application"
	invdomain "github.com/dmehra2102/Pharmacy-Management-System/internal/inventory/domain"
	orderapp "github.com/dmehra2102/Pharmacy-Management-System/internal/order/application"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/logging"
)

type fixture struct {
	catalog   *invapp.Catalog
	ledger    *invapp.Ledger
	customers *custapp.Service
	manager   *orderapp.Manager
}

func newFixture(b *app.Backend) fixture {
	ledger := invapp.NewLedger(b.Products)
	customers := custapp.NewService(b.Customers, b.Orders)
	return fixture{
		catalog:   invapp.NewCatalog(b.Products, ledger, b.Orders),
		ledger:    ledger,
		customers: customers,
		manager:   orderapp.NewManager(logging.Discard(), b.Tx, b.Orders, customers, ledger, b.Outbox),
	}
}

func (f fixture) product(t *testing.T, stock int) invdomain.Product {
	t.Helper()
	p, err := f.catalog.Create(context.Background(), invapp.CreateProductInput{
		Name:       "Amoxicillin",
		PriceCents: 450,
		Category:   "antibiotics",
		SKU:        "AMX-" + uuid.NewString()[:8],
		Stock:      stock,
	})
	require.NoError(t, err)
	return p
}

func (f fixture) customer(t *testing.T) string {
	t.Helper()
	c, err := f.customers.Create(context.Background(), custapp.ProfileInput{
		Name:  "Ana Souza",
		Email: uuid.NewString()[:8] + "@example.com",
	})
	require.NoError(t, err)
	return c.ID
}

func (f fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.catalog.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func eachBackend(t *testing.T, fn func(t *testing.T, f fixture)) {
	for name, b := range backends {
		t.Run(name, func(t *testing.T) { fn(t, newFixture(b)) })
	}
}

func TestLedgerNeverOversells(t *testing.T) {
	eachBackend(t, func(t *testing.T, f fixture) {
		p := f.product(t, 5)

		var ok atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 40; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := f.ledger.CheckAndReserve(context.Background(), p.ID, 1)
				if err == nil {
					ok.Add(1)
					return
				}
				assert.ErrorIs(t, err, invdomain.ErrInsufficientStock)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(5), ok.Load())
		assert.Equal(t, 0, f.stock(t, p.ID))
	})
}

func TestCreateOrderKeepsNothingWhenAnItemIsShort(t *testing.T) {
	eachBackend(t, func(t *testing.T, f fixture) {
		a := f.product(t, 10)
		b := f.product(t, 2)
		customer := f.customer(t)

		_, err := f.manager.CreateOrder(context.Background(), orderapp.CreateOrderInput{
			CustomerID:    customer,
			PaymentMethod: "card",
			Items: []orderapp.LineItemInput{
				{ProductID: a.ID, Quantity: 3, UnitPriceCents: 450},
				{ProductID: b.ID, Quantity: 1000, UnitPriceCents: 450},
			},
		})
		require.ErrorIs(t, err, invdomain.ErrInsufficientStock)

		assert.Equal(t, 10, f.stock(t, a.ID))
		assert.Equal(t, 2, f.stock(t, b.ID))
		orders, err := f.manager.ListOrders(context.Background(), orderapp.ListFilter{CustomerID: customer})
		require.NoError(t, err)
		assert.Empty(t, orders)
	})
}

func TestConcurrentOrdersOnLastUnits(t *testing.T) {
	eachBackend(t, func(t *testing.T, f fixture) {
		p := f.product(t, 3)
		customer := f.customer(t)

		var ok atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 12; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.manager.CreateOrder(context.Background(), orderapp.CreateOrderInput{
					CustomerID:    customer,
					PaymentMethod: "cash",
					Items:         []orderapp.LineItemInput{{ProductID: p.ID, Quantity: 1, UnitPriceCents: 450}},
				})
				if err == nil {
					ok.Add(1)
					return
				}
				assert.ErrorIs(t, err, invdomain.ErrInsufficientStock)
			}()
		}
		wg.Wait()

		orders, err := f.manager.ListOrders(context.Background(), orderapp.ListFilter{CustomerID: customer})
		require.NoError(t, err)
		assert.Equal(t, int32(3), ok.Load())
		assert.Len(t, orders, 3)
		assert.Equal(t, 0, f.stock(t, p.ID))
	})
}

func TestCancelAndDeleteReturnStock(t *testing.T) {
	eachBackend(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		p := f.product(t, 6)
		customer := f.customer(t)
		in := orderapp.CreateOrderInput{
			CustomerID:    customer,
			PaymentMethod: "card",
			Items:         []orderapp.LineItemInput{{ProductID: p.ID, Quantity: 2, UnitPriceCents: 450}},
		}

		cancelled, err := f.manager.CreateOrder(ctx, in)
		require.NoError(t, err)
		deleted, err := f.manager.CreateOrder(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, 2, f.stock(t, p.ID))

		_, err = f.manager.UpdateStatus(ctx, cancelled.ID, "cancelled")
		require.NoError(t, err)
		require.NoError(t, f.manager.DeleteOrder(ctx, deleted.ID))
		assert.Equal(t, 6, f.stock(t, p.ID))

		_, err = f.manager.GetOrder(ctx, deleted.ID)
		assert.Error(t, err)
	})
}

func TestOrdersLockingProductsInOppositeOrder(t *testing.T) {
	eachBackend(t, func(t *testing.T, f fixture) {
		a := f.product(t, 100)
		b := f.product(t, 100)
		customer := f.customer(t)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			first, second := a.ID, b.ID
			if i%2 == 1 {
				first, second = second, first
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.manager.CreateOrder(context.Background(), orderapp.CreateOrderInput{
					CustomerID:    customer,
					PaymentMethod: "card",
					Items: []orderapp.LineItemInput{
						{ProductID: first, Quantity: 1, UnitPriceCents: 450},
						{ProductID: second, Quantity: 1, UnitPriceCents: 450},
					},
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Equal(t, 80, f.stock(t, a.ID))
		assert.Equal(t, 80, f.stock(t, b.ID))
	})
}

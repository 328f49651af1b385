package application

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	invdomain "github.com/dmehra2102/Pharmacy-Management-System/internal/inventory/domain"
	orderapp "github.com/dmehra2102/Pharmacy-Management-System/internal/order/application"
	orderdomain "github.com/dmehra2102/Pharmacy-Management-System/internal/order/domain"
)

const (
	recentOrders = 5
	topProducts  = 5
)

type ProductStats interface {
	Count(ctx context.Context) (int64, error)
	CountLowStock(ctx context.Context, threshold int) (int64, error)
	Get(ctx context.Context, id string) (invdomain.Product, error)
}

type CustomerStats interface {
	Count(ctx context.Context) (int64, error)
}

type OrderStats interface {
	Count(ctx context.Context) (int64, error)
	Revenue(ctx context.Context) (int64, error)
	List(ctx context.Context, f orderapp.ListFilter) ([]orderdomain.Order, error)
	CountByStatus(ctx context.Context) (map[orderdomain.OrderStatus]int64, error)
	TopProducts(ctx context.Context, limit int) ([]orderdomain.ProductSales, error)
}

// TopProduct is a best seller. Product is nil when the product no longer
// exists.
type TopProduct struct {
	orderdomain.ProductSales
	Product *invdomain.Product `json:"productDetails"`
}

type Summary struct {
	TotalProducts    int64               `json:"totalProducts"`
	LowStockProducts int64               `json:"lowStockProducts"`
	TotalOrders      int64               `json:"totalOrders"`
	TotalCustomers   int64               `json:"totalCustomers"`
	RevenueCents     int64               `json:"revenueCents"`
	RecentOrders     []orderdomain.Order `json:"recentOrders"`

	OrdersByStatus map[orderdomain.OrderStatus]int64 `json:"ordersByStatus"`
	TopProducts    []TopProduct                      `json:"topProducts"`
}

type Service struct {
	products  ProductStats
	customers CustomerStats
	orders    OrderStats
	lowStock  int
}

// NewService counts products with stock below lowStock as low.
func NewService(products ProductStats, customers CustomerStats, orders OrderStats, lowStock int) *Service {
	return &Service{products: products, customers: customers, orders: orders, lowStock: lowStock}
}

// Summary runs every aggregate concurrently and fails if any of them fails.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	var out Summary
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		out.TotalProducts, err = s.products.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.LowStockProducts, err = s.products.CountLowStock(ctx, s.lowStock)
		return err
	})
	g.Go(func() (err error) {
		out.TotalOrders, err = s.orders.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.TotalCustomers, err = s.customers.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.RevenueCents, err = s.orders.Revenue(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.RecentOrders, err = s.orders.List(ctx, orderapp.ListFilter{Limit: recentOrders})
		return err
	})

	g.Go(func() error {
		counts, err := s.orders.CountByStatus(ctx)
		if err != nil {
			return err
		}
		out.OrdersByStatus = map[orderdomain.OrderStatus]int64{}
		for _, st := range []orderdomain.OrderStatus{
			orderdomain.StatusPending, orderdomain.StatusProcessing,
			orderdomain.StatusCompleted, orderdomain.StatusCancelled,
		} {
			out.OrdersByStatus[st] = counts[st]
		}
		return nil
	})
	g.Go(func() (err error) {
		out.TopProducts, err = s.bestSellers(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	if out.RecentOrders == nil {
		out.RecentOrders = []orderdomain.Order{}
	}
	return out, nil
}

func (s *Service) bestSellers(ctx context.Context) ([]TopProduct, error) {
	sales, err := s.orders.TopProducts(ctx, topProducts)
	if err != nil {
		return nil, err
	}
	out := make([]TopProduct, 0, len(sales))
	for _, ps := range sales {
		tp := TopProduct{ProductSales: ps}
		p, err := s.products.Get(ctx, ps.ProductID)
		switch {
		case err == nil:
			tp.Product = &p
		case !errors.Is(err, invdomain.ErrProductNotFound):
			return nil, err
		}
		out = append(out, tp)
	}
	return out, nil
}

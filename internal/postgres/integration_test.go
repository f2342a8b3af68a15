//go:build integration

package postgres

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/checkout"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type PostgresSuite struct {
	suite.Suite
	container testcontainers.Container
	store     *Store
	svc       *checkout.Service
}

func TestPostgresSuite(t *testing.T) {
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "app",
				"POSTGRES_PASSWORD": "app",
				"POSTGRES_DB":       "orders",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	s.Require().NoError(err)
	s.container = c

	host, err := c.Host(ctx)
	s.Require().NoError(err)
	port, err := c.MappedPort(ctx, "5432")
	s.Require().NoError(err)

	dsn := fmt.Sprintf("postgres://app:app@%s:%s/orders?sslmode=disable", host, port.Port())
	pool, err := Connect(ctx, dsn, Options{MaxConns: 16, LockTimeout: 2 * time.Second})
	s.Require().NoError(err)
	s.Require().NoError(Migrate(ctx, pool))
	s.store = &Store{DB: pool}
	s.svc = checkout.NewService(s.store)
}

func (s *PostgresSuite) TearDownSuite() {
	if s.store != nil {
		s.store.DB.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *PostgresSuite) SetupTest() {
	_, err := s.store.DB.Exec(context.Background(), `TRUNCATE order_items, orders, products RESTART IDENTITY`)
	s.Require().NoError(err)
}

func (s *PostgresSuite) product(sku string, stock int, price string) orders.Product {
	p, err := s.store.CreateProduct(context.Background(), orders.Product{
		Name: "Product " + sku, SKU: sku, Price: decimal.RequireFromString(price), StockQuantity: stock,
	})
	s.Require().NoError(err)
	return p
}

func (s *PostgresSuite) stock(id int64) int {
	p, err := s.store.GetProduct(context.Background(), id)
	s.Require().NoError(err)
	return p.StockQuantity
}

func (s *PostgresSuite) TestPlaceCancelRoundTrip() {
	ctx := context.Background()
	p := s.product("X1", 10, "5.00")

	o, err := s.svc.PlaceOrder(ctx, "Alice", []orders.ItemInput{{ProductID: p.ID, Quantity: 3}})
	s.Require().NoError(err)
	s.Equal("15.00", o.TotalAmount.StringFixed(2))
	s.Equal(7, s.stock(p.ID))

	_, err = s.svc.PlaceOrder(ctx, "Bob", []orders.ItemInput{{ProductID: p.ID, Quantity: 8}})
	s.ErrorIs(err, orders.ErrInsufficientStock)
	s.Equal(7, s.stock(p.ID))
	list, err := s.store.ListOrders(ctx)
	s.Require().NoError(err)
	s.Len(list, 1)

	got, err := s.svc.Cancel(ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(orders.StatusCancelled, got.Status)
	s.Equal(10, s.stock(p.ID))

	_, err = s.svc.Cancel(ctx, o.ID)
	s.ErrorIs(err, orders.ErrAlreadyCancelled)
	s.Equal(10, s.stock(p.ID))
}

func (s *PostgresSuite) TestDuplicateSKU() {
	s.product("DUP", 1, "1.00")
	_, err := s.store.CreateProduct(context.Background(), orders.Product{Name: "x", SKU: "DUP", Price: decimal.Zero})
	s.ErrorIs(err, orders.ErrValidation)
}

func (s *PostgresSuite) TestConcurrentBuyersNeverOversell() {
	ctx := context.Background()
	p := s.product("HOT", 10, "1.00")

	var (
		wg sync.WaitGroup
		ok atomic.Int32
	)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.svc.PlaceOrder(ctx, "buyer", []orders.ItemInput{{ProductID: p.ID, Quantity: 1}}); err == nil {
				ok.Add(1)
			} else {
				s.ErrorIs(err, orders.ErrInsufficientStock)
			}
		}()
	}
	wg.Wait()
	s.EqualValues(10, ok.Load())
	s.Equal(0, s.stock(p.ID))
}

func (s *PostgresSuite) TestOppositeItemOrderDoesNotDeadlock() {
	ctx := context.Background()
	a := s.product("A", 100, "1.00")
	b := s.product("B", 100, "1.00")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		items := []orders.ItemInput{{ProductID: a.ID, Quantity: 1}, {ProductID: b.ID, Quantity: 1}}
		if i%2 == 1 {
			items[0], items[1] = items[1], items[0]
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.PlaceOrder(ctx, "racer", items)
			s.NoError(err)
		}()
	}
	wg.Wait()
	s.Equal(80, s.stock(a.ID))
	s.Equal(80, s.stock(b.ID))
}

func (s *PostgresSuite) TestDeletedProductKeepsHistory() {
	ctx := context.Background()
	p := s.product("GONE", 5, "2.00")
	o, err := s.svc.PlaceOrder(ctx, "Cy", []orders.ItemInput{{ProductID: p.ID, Quantity: 2}})
	s.Require().NoError(err)
	s.Require().NoError(s.svc.DeleteProduct(ctx, p.ID))

	got, err := s.svc.GetOrder(ctx, o.ID)
	s.Require().NoError(err)
	s.Require().Len(got.Items, 1)
	s.Nil(got.Items[0].Product)
	s.Equal("4.00", got.TotalAmount.StringFixed(2))

	cancelled, err := s.svc.Cancel(ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(orders.StatusCancelled, cancelled.Status)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookhaven/bookstore-api/internal/model"
	"github.com/bookhaven/bookstore-api/internal/repository"
)

type mockOrderRepo struct {
	orders map[uuid.UUID]*model.Order
	books  *mockBookRepo
	nextID int64
}

func newMockOrderRepo(books *mockBookRepo) *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[uuid.UUID]*model.Order), books: books}
}

func (m *mockOrderRepo) CreateOrder(_ context.Context, order *model.Order, lines []model.OrderLine) error {
	// All-or-nothing, like the real transaction: validate every line before
	// touching stock.
	for _, line := range lines {
		b, ok := m.books.books[line.BookID]
		if !ok {
			return repository.ErrBookMissing
		}
		if b.Stock < line.Quantity {
			return repository.ErrInsufficientStock
		}
	}

	order.ID = uuid.New()
	order.OrderDate = time.Now()
	total := decimal.Zero
	for _, line := range lines {
		b := m.books.books[line.BookID]
		b.Stock -= line.Quantity
		m.nextID++
		order.Items = append(order.Items, model.OrderItem{
			ID:        m.nextID,
			OrderID:   order.ID,
			BookID:    line.BookID,
			Quantity:  line.Quantity,
			UnitPrice: b.Price,
		})
		total = total.Add(b.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	order.TotalAmount = total
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	return m.orders[id], nil
}

func (m *mockOrderRepo) ListByCustomer(_ context.Context, customerID uuid.UUID) ([]model.Order, error) {
	var orders []model.Order
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			orders = append(orders, *o)
		}
	}
	return orders, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.OrderStatus) error {
	if o, ok := m.orders[id]; ok {
		o.Status = status
	}
	return nil
}

func (m *mockOrderRepo) RecomputeTotal(_ context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	o, ok := m.orders[orderID]
	if !ok {
		return total, nil
	}
	for _, item := range o.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total, nil
}

type orderFixture struct {
	svc          *OrderService
	orderRepo    *mockOrderRepo
	cartRepo     *mockCartRepo
	customerRepo *mockCustomerRepo
	bookRepo     *mockBookRepo
	customerID   uuid.UUID
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	bookRepo := newMockBookRepo()
	orderRepo := newMockOrderRepo(bookRepo)
	cartRepo := newMockCartRepo()
	customerRepo := newMockCustomerRepo()

	customer := &model.Customer{ID: uuid.New(), Email: "reader@example.com", Active: true}
	customerRepo.add(customer)

	return &orderFixture{
		svc:          NewOrderService(orderRepo, cartRepo, customerRepo, nil),
		orderRepo:    orderRepo,
		cartRepo:     cartRepo,
		customerRepo: customerRepo,
		bookRepo:     bookRepo,
		customerID:   customer.ID,
	}
}

func (f *orderFixture) addBook(id int, price float64, stock int) {
	f.bookRepo.books[id] = &model.Book{
		ID: id, Title: "Book", Price: decimal.NewFromFloat(price), Stock: stock,
	}
}

func TestOrderService_CreateOrder_TotalAndStock(t *testing.T) {
	f := newOrderFixture(t)
	f.addBook(1, 19.99, 5)

	order, err := f.svc.CreateOrder(context.Background(), f.customerID,
		[]model.OrderLine{{BookID: 1, Quantity: 3}})
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromFloat(59.97)),
		"total = %s", order.TotalAmount)
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].UnitPrice.Equal(decimal.NewFromFloat(19.99)))
	assert.Equal(t, 2, f.bookRepo.books[1].Stock)
}

func TestOrderService_CreateOrder_OutOfStock(t *testing.T) {
	f := newOrderFixture(t)
	f.addBook(1, 19.99, 5)

	_, err := f.svc.CreateOrder(context.Background(), f.customerID,
		[]model.OrderLine{{BookID: 1, Quantity: 6}})
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Equal(t, 5, f.bookRepo.books[1].Stock)
	assert.Empty(t, f.orderRepo.orders)
}

func TestOrderService_CreateOrder_RollbackOnBadLine(t *testing.T) {
	f := newOrderFixture(t)
	f.addBook(1, 10.00, 5)

	_, err := f.svc.CreateOrder(context.Background(), f.customerID,
		[]model.OrderLine{{BookID: 1, Quantity: 2}, {BookID: 99, Quantity: 1}})
	assert.ErrorIs(t, err, ErrInvalidBook)
	assert.Equal(t, 5, f.bookRepo.books[1].Stock)
	assert.Empty(t, f.orderRepo.orders)
}

func TestOrderService_CreateOrder_EmptyOrder(t *testing.T) {
	f := newOrderFixture(t)
	_, err := f.svc.CreateOrder(context.Background(), f.customerID, nil)
	assert.ErrorIs(t, err, ErrEmptyOrder)
}

func TestOrderService_CreateOrder_ZeroQuantity(t *testing.T) {
	f := newOrderFixture(t)
	f.addBook(1, 10.00, 5)
	_, err := f.svc.CreateOrder(context.Background(), f.customerID,
		[]model.OrderLine{{BookID: 1, Quantity: 0}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestOrderService_CreateOrder_UnknownCustomer(t *testing.T) {
	f := newOrderFixture(t)
	f.addBook(1, 10.00, 5)
	_, err := f.svc.CreateOrder(context.Background(), uuid.New(),
		[]model.OrderLine{{BookID: 1, Quantity: 1}})
	assert.ErrorIs(t, err, ErrInvalidCustomer)
}

func TestOrderService_CreateOrder_DeactivatedCustomer(t *testing.T) {
	f := newOrderFixture(t)
	f.addBook(1, 10.00, 5)
	require.NoError(t, f.customerRepo.Deactivate(context.Background(), f.customerID))

	_, err := f.svc.CreateOrder(context.Background(), f.customerID,
		[]model.OrderLine{{BookID: 1, Quantity: 1}})
	assert.ErrorIs(t, err, ErrInvalidCustomer)
}

func TestOrderService_PriceSnapshotSurvivesCatalogChange(t *testing.T) {
	f := newOrderFixture(t)
	f.addBook(1, 19.99, 5)

	order, err := f.svc.CreateOrder(context.Background(), f.customerID,
		[]model.OrderLine{{BookID: 1, Quantity: 2}})
	require.NoError(t, err)

	// Catalog price change after checkout must not touch the order.
	f.bookRepo.books[1].Price = decimal.NewFromFloat(29.99)

	check, err := f.svc.RecomputeTotal(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, check.Consistent)
	assert.True(t, check.Derived.Equal(decimal.NewFromFloat(39.98)),
		"derived = %s", check.Derived)
}

func TestOrderService_RecomputeTotal_Idempotent(t *testing.T) {
	f := newOrderFixture(t)
	f.addBook(1, 7.50, 10)

	order, err := f.svc.CreateOrder(context.Background(), f.customerID,
		[]model.OrderLine{{BookID: 1, Quantity: 4}})
	require.NoError(t, err)

	first, err := f.svc.RecomputeTotal(context.Background(), order.ID)
	require.NoError(t, err)
	second, err := f.svc.RecomputeTotal(context.Background(), order.ID)
	require.NoError(t, err)

	assert.True(t, first.Consistent)
	assert.True(t, second.Consistent)
	assert.True(t, first.Derived.Equal(second.Derived))
}

func TestOrderService_RecomputeTotal_NotFound(t *testing.T) {
	f := newOrderFixture(t)
	_, err := f.svc.RecomputeTotal(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_Checkout_DrainsCart(t *testing.T) {
	f := newOrderFixture(t)
	f.addBook(1, 12.00, 10)
	f.addBook(2, 8.50, 10)

	cart, _ := f.cartRepo.GetOrCreateCart(context.Background(), f.customerID)
	require.NoError(t, f.cartRepo.AddItem(context.Background(),
		&model.CartItem{CartID: cart.ID, BookID: 1, Quantity: 2}))
	require.NoError(t, f.cartRepo.AddItem(context.Background(),
		&model.CartItem{CartID: cart.ID, BookID: 2, Quantity: 1}))

	order, err := f.svc.Checkout(context.Background(), f.customerID)
	require.NoError(t, err)

	assert.True(t, order.TotalAmount.Equal(decimal.NewFromFloat(32.50)),
		"total = %s", order.TotalAmount)
	assert.Len(t, order.Items, 2)
	assert.Empty(t, f.cartRepo.items, "cart should be cleared after checkout")
}

func TestOrderService_Checkout_EmptyCart(t *testing.T) {
	f := newOrderFixture(t)
	_, err := f.svc.Checkout(context.Background(), f.customerID)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestOrderService_Checkout_OutOfStockKeepsCart(t *testing.T) {
	f := newOrderFixture(t)
	f.addBook(1, 12.00, 1)

	cart, _ := f.cartRepo.GetOrCreateCart(context.Background(), f.customerID)
	require.NoError(t, f.cartRepo.AddItem(context.Background(),
		&model.CartItem{CartID: cart.ID, BookID: 1, Quantity: 3}))

	_, err := f.svc.Checkout(context.Background(), f.customerID)
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Len(t, f.cartRepo.items, 1, "failed checkout must not clear the cart")
	assert.Equal(t, 1, f.bookRepo.books[1].Stock)
}

func TestOrderService_GetByID_AccessDenied(t *testing.T) {
	f := newOrderFixture(t)
	f.addBook(1, 5.00, 5)

	order, err := f.svc.CreateOrder(context.Background(), f.customerID,
		[]model.OrderLine{{BookID: 1, Quantity: 1}})
	require.NoError(t, err)

	_, err = f.svc.GetByID(context.Background(), order.ID, uuid.New())
	assert.ErrorIs(t, err, ErrOrderAccessDenied)
}

func TestOrderService_GetByID_NotFound(t *testing.T) {
	f := newOrderFixture(t)
	_, err := f.svc.GetByID(context.Background(), uuid.New(), f.customerID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

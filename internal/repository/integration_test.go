package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookhaven/bookstore-api/internal/model"
)

func seedBook(t *testing.T, price float64, stock int) *model.Book {
	t.Helper()
	ctx := context.Background()

	author := &model.Author{FirstName: "Jane", LastName: "Moore", Bio: "novelist"}
	require.NoError(t, NewAuthorRepository(testPool).Create(ctx, author))

	genre := &model.Genre{Name: "Fiction"}
	require.NoError(t, NewGenreRepository(testPool).Create(ctx, genre))

	book := &model.Book{
		Title: "The Sea Wall", Description: "A novel",
		Price: decimal.NewFromFloat(price), Stock: stock,
		AuthorID: author.ID, GenreID: genre.ID,
		ISBN: "978-0-00-000000-1", ImageURL: "/static/images/book-placeholder.jpg",
	}
	require.NoError(t, NewBookRepository(testPool).Create(ctx, book))
	return book
}

func seedCustomer(t *testing.T, email string) *model.Customer {
	t.Helper()
	customer := &model.Customer{
		Email: email, PasswordHash: "hashed",
		FirstName: "John", LastName: "Doe", Role: "customer",
	}
	require.NoError(t, NewCustomerRepository(testPool).Create(context.Background(), customer))
	return customer
}

func TestGenreRepo_CreateAndList(t *testing.T) {
	cleanupTables(t)
	repo := NewGenreRepository(testPool)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Genre{Name: "Mystery"}))
	require.NoError(t, repo.Create(ctx, &model.Genre{Name: "Biography"}))

	genres, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, genres, 2)
	assert.Equal(t, "Biography", genres[0].Name)

	found, err := repo.GetByName(ctx, "Mystery")
	require.NoError(t, err)
	require.NotNil(t, found)
}

func TestBookRepo_CRUD(t *testing.T) {
	cleanupTables(t)
	repo := NewBookRepository(testPool)
	ctx := context.Background()

	book := seedBook(t, 29.99, 100)
	assert.NotZero(t, book.ID)

	found, err := repo.GetByID(ctx, book.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "The Sea Wall", found.Title)
	assert.True(t, found.Price.Equal(decimal.NewFromFloat(29.99)))

	detail, err := repo.GetDetail(ctx, book.ID)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, "Jane Moore", detail.AuthorName)
	assert.Equal(t, "Fiction", detail.GenreName)

	book.Title = "The Sea Wall, Revised"
	require.NoError(t, repo.Update(ctx, book))
	found, _ = repo.GetByID(ctx, book.ID)
	assert.Equal(t, "The Sea Wall, Revised", found.Title)

	require.NoError(t, repo.Delete(ctx, book.ID))
	found, err = repo.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestBookRepo_ListFiltersByGenreAndTitle(t *testing.T) {
	cleanupTables(t)
	repo := NewBookRepository(testPool)
	ctx := context.Background()

	book := seedBook(t, 10, 5)

	books, total, err := repo.List(ctx, ListBooksParams{Limit: 12, GenreID: book.GenreID, Search: "sea"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, books, 1)

	_, total, err = repo.List(ctx, ListBooksParams{Limit: 12, Search: "nomatch"})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCustomerRepo_CreateGetDeactivate(t *testing.T) {
	cleanupTables(t)
	repo := NewCustomerRepository(testPool)
	ctx := context.Background()

	customer := seedCustomer(t, "reader@example.com")
	assert.NotEqual(t, uuid.Nil, customer.ID)
	assert.True(t, customer.Active)

	found, err := repo.GetByEmail(ctx, "reader@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, customer.ID, found.ID)

	dup := &model.Customer{
		Email: "reader@example.com", PasswordHash: "hashed",
		FirstName: "Jane", LastName: "Roe", Role: "customer",
	}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrEmailTaken)

	require.NoError(t, repo.Deactivate(ctx, customer.ID))
	found, err = repo.GetByID(ctx, customer.ID)
	require.NoError(t, err)
	require.NotNil(t, found, "deactivation must not delete the row")
	assert.False(t, found.Active)
}

func TestCartRepo_AddAndGetItems(t *testing.T) {
	cleanupTables(t)
	cartRepo := NewCartRepository(testPool)
	ctx := context.Background()

	customer := seedCustomer(t, "cart@example.com")
	book := seedBook(t, 15, 10)

	cart, err := cartRepo.GetOrCreateCart(ctx, customer.ID)
	require.NoError(t, err)

	require.NoError(t, cartRepo.AddItem(ctx, &model.CartItem{
		CartID: cart.ID, BookID: book.ID, Quantity: 2,
	}))
	// Upsert merges quantities for the same book.
	require.NoError(t, cartRepo.AddItem(ctx, &model.CartItem{
		CartID: cart.ID, BookID: book.ID, Quantity: 3,
	}))

	cartWithItems, err := cartRepo.GetCartWithItems(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, cartWithItems.Items, 1)
	assert.Equal(t, 5, cartWithItems.Items[0].Quantity)
}

func TestOrderRepo_CreateOrder(t *testing.T) {
	cleanupTables(t)
	orderRepo := NewOrderRepository(testPool)
	bookRepo := NewBookRepository(testPool)
	ctx := context.Background()

	customer := seedCustomer(t, "order@example.com")
	book := seedBook(t, 19.99, 5)

	order := &model.Order{CustomerID: customer.ID, Status: model.OrderStatusPending}
	err := orderRepo.CreateOrder(ctx, order, []model.OrderLine{{BookID: book.ID, Quantity: 3}})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, order.ID)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromFloat(59.97)))
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].UnitPrice.Equal(decimal.NewFromFloat(19.99)))

	updated, err := bookRepo.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Stock)

	derived, err := orderRepo.RecomputeTotal(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, derived.Equal(order.TotalAmount))
}

func TestOrderRepo_CreateOrder_OutOfStockRollsBack(t *testing.T) {
	cleanupTables(t)
	orderRepo := NewOrderRepository(testPool)
	bookRepo := NewBookRepository(testPool)
	ctx := context.Background()

	customer := seedCustomer(t, "order@example.com")
	book := seedBook(t, 19.99, 5)

	order := &model.Order{CustomerID: customer.ID, Status: model.OrderStatusPending}
	err := orderRepo.CreateOrder(ctx, order, []model.OrderLine{{BookID: book.ID, Quantity: 6}})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	unchanged, err := bookRepo.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, unchanged.Stock)

	var count int
	require.NoError(t, testPool.QueryRow(ctx, "SELECT COUNT(*) FROM orders").Scan(&count))
	assert.Zero(t, count, "no order row may survive a failed transaction")
}

func TestOrderRepo_CreateOrder_ConcurrentOrdersDoNotOversell(t *testing.T) {
	cleanupTables(t)
	orderRepo := NewOrderRepository(testPool)
	bookRepo := NewBookRepository(testPool)
	ctx := context.Background()

	customer := seedCustomer(t, "order@example.com")
	book := seedBook(t, 19.99, 5)

	// Two orders race for the last 5 copies; 3+3 would oversell.
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order := &model.Order{CustomerID: customer.ID, Status: model.OrderStatusPending}
			errs[i] = orderRepo.CreateOrder(ctx, order, []model.OrderLine{{BookID: book.ID, Quantity: 3}})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientStock)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one competing order may win the remaining stock")

	remaining, err := bookRepo.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining.Stock)
	assert.GreaterOrEqual(t, remaining.Stock, 0, "stock must never go negative")
}

func TestOrderRepo_CreateOrder_UnknownBookRollsBack(t *testing.T) {
	cleanupTables(t)
	orderRepo := NewOrderRepository(testPool)
	bookRepo := NewBookRepository(testPool)
	ctx := context.Background()

	customer := seedCustomer(t, "order@example.com")
	book := seedBook(t, 10, 5)

	order := &model.Order{CustomerID: customer.ID, Status: model.OrderStatusPending}
	err := orderRepo.CreateOrder(ctx, order, []model.OrderLine{
		{BookID: book.ID, Quantity: 2},
		{BookID: book.ID + 1000, Quantity: 1},
	})
	assert.ErrorIs(t, err, ErrBookMissing)

	unchanged, err := bookRepo.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, unchanged.Stock, "earlier decrements must roll back")
}

func TestOrderRepo_StatusAndListByCustomer(t *testing.T) {
	cleanupTables(t)
	orderRepo := NewOrderRepository(testPool)
	ctx := context.Background()

	customer := seedCustomer(t, "order@example.com")
	book := seedBook(t, 12, 10)

	order := &model.Order{CustomerID: customer.ID, Status: model.OrderStatusPending}
	require.NoError(t, orderRepo.CreateOrder(ctx, order, []model.OrderLine{{BookID: book.ID, Quantity: 1}}))

	require.NoError(t, orderRepo.UpdateStatus(ctx, order.ID, model.OrderStatusPaid))
	found, err := orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, found.Status)

	orders, err := orderRepo.ListByCustomer(ctx, customer.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
}

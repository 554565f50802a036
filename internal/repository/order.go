package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bookhaven/bookstore-api/internal/model"
)

type OrderRepository interface {
	// CreateOrder persists the order and its items and decrements book stock
	// in a single transaction. Unit prices are snapshotted from the books
	// table at decrement time and written back into order.Items; the total
	// is derived from those snapshots. Any failure rolls the whole
	// transaction back.
	CreateOrder(ctx context.Context, order *model.Order, lines []model.OrderLine) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]model.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error
	// RecomputeTotal re-derives Σ(unit_price × quantity) from order_items.
	RecomputeTotal(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error)
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

func (r *pgOrderRepo) CreateOrder(ctx context.Context, order *model.Order, lines []model.OrderLine) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Compare-and-decrement per line. The stock guard in the WHERE clause is
	// what keeps concurrent checkouts from jointly overselling; RETURNING
	// gives us the price snapshot from the same row version.
	items := make([]model.OrderItem, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		var price decimal.Decimal
		err := tx.QueryRow(ctx,
			`UPDATE books SET stock_quantity = stock_quantity - $2
			 WHERE book_id = $1 AND stock_quantity >= $2
			 RETURNING price`,
			line.BookID, line.Quantity,
		).Scan(&price)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return r.classifyStockFailure(ctx, tx, line.BookID)
			}
			return fmt.Errorf("decrement stock: %w", err)
		}
		items = append(items, model.OrderItem{
			BookID:    line.BookID,
			Quantity:  line.Quantity,
			UnitPrice: price,
		})
		total = total.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	order.ID = uuid.New()
	order.TotalAmount = total
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (order_id, customer_id, status, total_amount, order_date, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING order_date`,
		order.ID, order.CustomerID, order.Status, order.TotalAmount,
	).Scan(&order.OrderDate)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range items {
		items[i].OrderID = order.ID
		err = tx.QueryRow(ctx,
			`INSERT INTO order_items (order_id, book_id, quantity, unit_price)
			 VALUES ($1, $2, $3, $4) RETURNING order_item_id`,
			items[i].OrderID, items[i].BookID, items[i].Quantity, items[i].UnitPrice,
		).Scan(&items[i].ID)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	order.Items = items
	return nil
}

// classifyStockFailure tells a missing book apart from an out-of-stock one.
// Either way the caller's deferred rollback undoes prior decrements.
func (r *pgOrderRepo) classifyStockFailure(ctx context.Context, tx pgx.Tx, bookID int) error {
	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM books WHERE book_id = $1)`, bookID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check book existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("book %d: %w", bookID, ErrBookMissing)
	}
	return fmt.Errorf("book %d: %w", bookID, ErrInsufficientStock)
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order := &model.Order{}
	err := r.pool.QueryRow(ctx,
		`SELECT order_id, customer_id, status, total_amount, order_date, updated_at FROM orders WHERE order_id = $1`, id,
	).Scan(&order.ID, &order.CustomerID, &order.Status, &order.TotalAmount, &order.OrderDate, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT order_item_id, book_id, quantity, unit_price FROM order_items WHERE order_id = $1 ORDER BY order_item_id`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.BookID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.OrderID = order.ID
		order.Items = append(order.Items, item)
	}
	return order, nil
}

func (r *pgOrderRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT order_id, status, total_amount, order_date, updated_at FROM orders WHERE customer_id = $1 ORDER BY order_date DESC`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		o.CustomerID = customerID
		if err := rows.Scan(&o.ID, &o.Status, &o.TotalAmount, &o.OrderDate, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (r *pgOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE order_id = $1`, id, status,
	)
	return err
}

func (r *pgOrderRepo) RecomputeTotal(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(unit_price * quantity), 0) FROM order_items WHERE order_id = $1`, orderID,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("recompute total: %w", err)
	}
	return total, nil
}

package repository

import "errors"

var (
	// ErrInsufficientStock is returned when a compare-and-decrement on
	// stock_quantity affects no rows for an existing book.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrBookMissing is returned when an order line references a book id
	// that does not exist.
	ErrBookMissing = errors.New("book does not exist")

	// ErrBookReferenced is returned when deleting a book that historical
	// order items still reference.
	ErrBookReferenced = errors.New("book referenced by order items")

	// ErrEmailTaken is returned when an insert trips the unique
	// constraint on customers.email.
	ErrEmailTaken = errors.New("email already in use")
)

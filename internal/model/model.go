package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type Genre struct {
	ID   int
	Name string
}

type Author struct {
	ID        int
	FirstName string
	LastName  string
	Bio       string
}

func (a *Author) FullName() string {
	return a.FirstName + " " + a.LastName
}

type Book struct {
	ID            int
	Title         string
	Description   string
	Price         decimal.Decimal
	Stock         int
	AuthorID      int
	GenreID       int
	ISBN          string
	PublishedDate *time.Time
	ImageURL      string
	CreatedAt     time.Time
}

func (b *Book) InStock() bool {
	return b.Stock > 0
}

// BookDetail is a Book joined with the names of its author and genre.
type BookDetail struct {
	Book
	AuthorName string
	GenreName  string
}

type Customer struct {
	ID              uuid.UUID
	Email           string
	PasswordHash    string
	FirstName       string
	LastName        string
	ShippingAddress string
	Role            string
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Cart struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	Items      []CartItem
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type CartItem struct {
	ID        uuid.UUID
	CartID    uuid.UUID
	BookID    int
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Order struct {
	ID          uuid.UUID
	CustomerID  uuid.UUID
	Status      OrderStatus
	TotalAmount decimal.Decimal
	Items       []OrderItem
	OrderDate   time.Time
	UpdatedAt   time.Time
}

// OrderItem snapshots the book price at purchase time. UnitPrice is fixed
// once the order is created and never tracks the live catalog price.
type OrderItem struct {
	ID        int64
	OrderID   uuid.UUID
	BookID    int
	Quantity  int
	UnitPrice decimal.Decimal
}

// OrderLine is a requested (book, quantity) pair submitted for purchase.
type OrderLine struct {
	BookID   int
	Quantity int
}

type OrderMessage struct {
	OrderID    uuid.UUID `json:"order_id"`
	CustomerID uuid.UUID `json:"customer_id"`
}

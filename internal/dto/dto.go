package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bookhaven/bookstore-api/internal/model"
)

// --- Auth ---

type RegisterRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	FirstName       string `json:"first_name" binding:"required"`
	LastName        string `json:"last_name" binding:"required"`
	ShippingAddress string `json:"shipping_address"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token    string           `json:"token"`
	Customer CustomerResponse `json:"customer"`
}

type CustomerResponse struct {
	ID              uuid.UUID `json:"id"`
	Email           string    `json:"email"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	ShippingAddress string    `json:"shipping_address"`
}

type UpdateProfileRequest struct {
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	ShippingAddress *string `json:"shipping_address"`
}

// --- Catalog ---

type CreateBookRequest struct {
	Title         string          `json:"title" binding:"required"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price" binding:"required"`
	Stock         int             `json:"stock" binding:"min=0"`
	AuthorID      int             `json:"author_id" binding:"required"`
	GenreID       int             `json:"genre_id" binding:"required"`
	ISBN          string          `json:"isbn" binding:"required"`
	PublishedDate *time.Time      `json:"published_date"`
	ImageURL      string          `json:"image_url"`
}

type UpdateBookRequest struct {
	Title         *string          `json:"title"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	Stock         *int             `json:"stock"`
	AuthorID      *int             `json:"author_id"`
	GenreID       *int             `json:"genre_id"`
	ImageURL      *string          `json:"image_url"`
	PublishedDate *time.Time       `json:"published_date"`
}

type ListBooksRequest struct {
	Page   int    `form:"page,default=1" binding:"min=1"`
	Limit  int    `form:"limit,default=12" binding:"min=1,max=100"`
	Genre  int    `form:"genre"`
	Search string `form:"search"`
}

type BookResponse struct {
	ID            int             `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Author        string          `json:"author"`
	Genre         string          `json:"genre"`
	Price         decimal.Decimal `json:"price"`
	Stock         int             `json:"stock"`
	ISBN          string          `json:"isbn"`
	PublishedDate *time.Time      `json:"published_date,omitempty"`
	Image         string          `json:"image"`
	InStock       bool            `json:"in_stock"`
	CreatedAt     time.Time       `json:"created_at"`
}

// BookSummary is the compact listing shape: {id, title, author, price, image, in_stock}.
type BookSummary struct {
	ID      int             `json:"id"`
	Title   string          `json:"title"`
	Author  string          `json:"author"`
	Price   decimal.Decimal `json:"price"`
	Image   string          `json:"image"`
	InStock bool            `json:"in_stock"`
}

type BookListResponse struct {
	Books []BookResponse `json:"books"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

type BookDetailResponse struct {
	Book    BookResponse  `json:"book"`
	Related []BookSummary `json:"related"`
}

type GenreResponse struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type CreateGenreRequest struct {
	Name string `json:"name" binding:"required"`
}

type CreateAuthorRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Bio       string `json:"bio"`
}

type AuthorResponse struct {
	ID        int    `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
}

// --- Cart ---

type AddCartItemRequest struct {
	BookID   int `json:"book_id" binding:"required"`
	Quantity int `json:"quantity" binding:"required,min=1"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

type CartResponse struct {
	ID    uuid.UUID          `json:"id"`
	Items []CartItemResponse `json:"items"`
}

type CartItemResponse struct {
	ID       uuid.UUID `json:"id"`
	BookID   int       `json:"book_id"`
	Quantity int       `json:"quantity"`
}

// --- Orders ---

type OrderLineRequest struct {
	BookID   int `json:"book_id" binding:"required"`
	Quantity int `json:"quantity" binding:"required,min=1"`
}

type CreateOrderRequest struct {
	Items []OrderLineRequest `json:"items" binding:"required,dive"`
}

type OrderResponse struct {
	ID          uuid.UUID           `json:"id"`
	CustomerID  uuid.UUID           `json:"customer_id"`
	Status      model.OrderStatus   `json:"status"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	Items       []OrderItemResponse `json:"items"`
	OrderDate   time.Time           `json:"order_date"`
}

type OrderItemResponse struct {
	ID        int64           `json:"id"`
	BookID    int             `json:"book_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
}

type TotalCheckResponse struct {
	OrderID    uuid.UUID       `json:"order_id"`
	Stored     decimal.Decimal `json:"stored"`
	Derived    decimal.Decimal `json:"derived"`
	Consistent bool            `json:"consistent"`
}

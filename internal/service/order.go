package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bookhaven/bookstore-api/internal/dto"
	"github.com/bookhaven/bookstore-api/internal/model"
	"github.com/bookhaven/bookstore-api/internal/repository"
)

var (
	ErrEmptyOrder        = errors.New("order has no line items")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidCustomer   = errors.New("customer missing or inactive")
	ErrInvalidBook       = errors.New("book does not exist")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrOutOfStock        = errors.New("insufficient stock")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderAccessDenied = errors.New("access denied")
)

const orderQueueName = "orders"

type OrderService struct {
	orderRepo    repository.OrderRepository
	cartRepo     repository.CartRepository
	customerRepo repository.CustomerRepository
	amqpCh       *amqp.Channel
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	customerRepo repository.CustomerRepository,
	amqpCh *amqp.Channel,
) *OrderService {
	return &OrderService{
		orderRepo:    orderRepo,
		cartRepo:     cartRepo,
		customerRepo: customerRepo,
		amqpCh:       amqpCh,
	}
}

// CreateOrder validates the request and hands the storage layer an atomic
// unit of work: price snapshots, stock decrements, and the order insert all
// commit together or not at all.
func (s *OrderService) CreateOrder(ctx context.Context, customerID uuid.UUID, lines []model.OrderLine) (*model.Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
	}

	customer, err := s.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	if customer == nil || !customer.Active {
		return nil, ErrInvalidCustomer
	}

	order := &model.Order{
		CustomerID: customerID,
		Status:     model.OrderStatusPending,
	}
	if err := s.orderRepo.CreateOrder(ctx, order, lines); err != nil {
		switch {
		case errors.Is(err, repository.ErrBookMissing):
			return nil, ErrInvalidBook
		case errors.Is(err, repository.ErrInsufficientStock):
			return nil, ErrOutOfStock
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.publishOrderCreated(ctx, order)
	return order, nil
}

// Checkout drains the customer's persisted cart through CreateOrder and
// clears the cart once the order committed.
func (s *OrderService) Checkout(ctx context.Context, customerID uuid.UUID) (*model.Order, error) {
	cart, err := s.cartRepo.GetOrCreateCart(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	cartWithItems, err := s.cartRepo.GetCartWithItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	if cartWithItems == nil || len(cartWithItems.Items) == 0 {
		return nil, ErrEmptyCart
	}

	lines := make([]model.OrderLine, 0, len(cartWithItems.Items))
	for _, item := range cartWithItems.Items {
		lines = append(lines, model.OrderLine{BookID: item.BookID, Quantity: item.Quantity})
	}

	order, err := s.CreateOrder(ctx, customerID, lines)
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.ClearCart(ctx, cart.ID); err != nil {
		return order, fmt.Errorf("clear cart: %w", err)
	}
	return order, nil
}

func (s *OrderService) GetByID(ctx context.Context, orderID, customerID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.CustomerID != customerID {
		return nil, ErrOrderAccessDenied
	}
	return order, nil
}

func (s *OrderService) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]model.Order, error) {
	return s.orderRepo.ListByCustomer(ctx, customerID)
}

// RecomputeTotal re-derives the order total from its items and compares it
// to the stored amount. Read-only; it never repairs a mismatch.
func (s *OrderService) RecomputeTotal(ctx context.Context, orderID uuid.UUID) (*dto.TotalCheckResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	derived, err := s.orderRepo.RecomputeTotal(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("recompute total: %w", err)
	}

	return &dto.TotalCheckResponse{
		OrderID:    orderID,
		Stored:     order.TotalAmount,
		Derived:    derived,
		Consistent: order.TotalAmount.Equal(derived),
	}, nil
}

// publishOrderCreated notifies fulfillment; delivery is best-effort and
// never fails the checkout.
func (s *OrderService) publishOrderCreated(ctx context.Context, order *model.Order) {
	if s.amqpCh == nil {
		return
	}
	msg, _ := json.Marshal(model.OrderMessage{OrderID: order.ID, CustomerID: order.CustomerID})
	_ = s.amqpCh.PublishWithContext(ctx, "", orderQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         msg,
		DeliveryMode: amqp.Persistent,
	})
}

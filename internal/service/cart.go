package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bookhaven/bookstore-api/internal/model"
	"github.com/bookhaven/bookstore-api/internal/repository"
)

var (
	ErrCartItemNotFound = errors.New("cart item not found")
)

type CartService struct {
	cartRepo repository.CartRepository
	bookRepo repository.BookRepository
}

func NewCartService(cartRepo repository.CartRepository, bookRepo repository.BookRepository) *CartService {
	return &CartService{cartRepo: cartRepo, bookRepo: bookRepo}
}

func (s *CartService) GetCart(ctx context.Context, customerID uuid.UUID) (*model.Cart, error) {
	cart, err := s.cartRepo.GetOrCreateCart(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}
	return s.cartRepo.GetCartWithItems(ctx, cart.ID)
}

func (s *CartService) AddItem(ctx context.Context, customerID uuid.UUID, bookID, quantity int) error {
	book, err := s.bookRepo.GetByID(ctx, bookID)
	if err != nil {
		return fmt.Errorf("get book: %w", err)
	}
	if book == nil {
		return ErrBookNotFound
	}

	cart, err := s.cartRepo.GetOrCreateCart(ctx, customerID)
	if err != nil {
		return fmt.Errorf("get or create cart: %w", err)
	}

	return s.cartRepo.AddItem(ctx, &model.CartItem{
		CartID:   cart.ID,
		BookID:   bookID,
		Quantity: quantity,
	})
}

func (s *CartService) UpdateItem(ctx context.Context, customerID uuid.UUID, itemID uuid.UUID, quantity int) error {
	if err := s.checkOwnership(ctx, customerID, itemID); err != nil {
		return err
	}
	return s.cartRepo.UpdateItem(ctx, &model.CartItem{ID: itemID, Quantity: quantity})
}

func (s *CartService) DeleteItem(ctx context.Context, customerID uuid.UUID, itemID uuid.UUID) error {
	if err := s.checkOwnership(ctx, customerID, itemID); err != nil {
		return err
	}
	return s.cartRepo.DeleteItem(ctx, itemID)
}

func (s *CartService) checkOwnership(ctx context.Context, customerID, itemID uuid.UUID) error {
	cart, err := s.cartRepo.GetOrCreateCart(ctx, customerID)
	if err != nil {
		return fmt.Errorf("get cart: %w", err)
	}
	cartWithItems, err := s.cartRepo.GetCartWithItems(ctx, cart.ID)
	if err != nil {
		return fmt.Errorf("get cart items: %w", err)
	}
	if cartWithItems == nil {
		return ErrCartItemNotFound
	}
	for _, item := range cartWithItems.Items {
		if item.ID == itemID {
			return nil
		}
	}
	return ErrCartItemNotFound
}

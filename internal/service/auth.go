package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bookhaven/bookstore-api/internal/dto"
	"github.com/bookhaven/bookstore-api/internal/model"
	"github.com/bookhaven/bookstore-api/internal/repository"
)

const minPasswordLength = 8

var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password too short")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCustomerNotFound   = errors.New("customer not found")
)

type AuthService struct {
	customerRepo repository.CustomerRepository
	jwtSecret    []byte
	jwtExpiry    time.Duration
}

func NewAuthService(customerRepo repository.CustomerRepository, jwtSecret string, jwtExpiry time.Duration) *AuthService {
	return &AuthService{customerRepo: customerRepo, jwtSecret: []byte(jwtSecret), jwtExpiry: jwtExpiry}
}

func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(req.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	existing, err := s.customerRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("check customer: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	customer := &model.Customer{
		Email:           req.Email,
		PasswordHash:    string(hashed),
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		ShippingAddress: req.ShippingAddress,
		Role:            "customer",
	}
	if err := s.customerRepo.Create(ctx, customer); err != nil {
		// A registration racing past the lookup still hits the unique
		// constraint on email.
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create customer: %w", err)
	}

	token, err := s.generateToken(customer)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &dto.AuthResponse{Token: token, Customer: toCustomerResponse(customer)}, nil
}

func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	customer, err := s.customerRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	if customer == nil || !customer.Active {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.generateToken(customer)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &dto.AuthResponse{Token: token, Customer: toCustomerResponse(customer)}, nil
}

func (s *AuthService) GetProfile(ctx context.Context, id uuid.UUID) (*dto.CustomerResponse, error) {
	customer, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	if customer == nil || !customer.Active {
		return nil, ErrCustomerNotFound
	}
	resp := toCustomerResponse(customer)
	return &resp, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, id uuid.UUID, req dto.UpdateProfileRequest) (*dto.CustomerResponse, error) {
	customer, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	if customer == nil || !customer.Active {
		return nil, ErrCustomerNotFound
	}

	if req.FirstName != nil {
		customer.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		customer.LastName = *req.LastName
	}
	if req.ShippingAddress != nil {
		customer.ShippingAddress = *req.ShippingAddress
	}

	if err := s.customerRepo.UpdateProfile(ctx, customer); err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	resp := toCustomerResponse(customer)
	return &resp, nil
}

func (s *AuthService) Deactivate(ctx context.Context, id uuid.UUID) error {
	customer, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get customer: %w", err)
	}
	if customer == nil {
		return ErrCustomerNotFound
	}
	if err := s.customerRepo.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("deactivate customer: %w", err)
	}
	return nil
}

func (s *AuthService) generateToken(customer *model.Customer) (string, error) {
	claims := jwt.MapClaims{
		"sub":  customer.ID.String(),
		"role": customer.Role,
		"exp":  time.Now().Add(s.jwtExpiry).Unix(),
		"iat":  time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func toCustomerResponse(customer *model.Customer) dto.CustomerResponse {
	return dto.CustomerResponse{
		ID:              customer.ID,
		Email:           customer.Email,
		FirstName:       customer.FirstName,
		LastName:        customer.LastName,
		ShippingAddress: customer.ShippingAddress,
	}
}

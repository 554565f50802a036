package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bookhaven/bookstore-api/internal/dto"
	"github.com/bookhaven/bookstore-api/internal/model"
	"github.com/bookhaven/bookstore-api/internal/repository"
)

type mockCustomerRepo struct {
	byEmail map[string]*model.Customer
	byID    map[uuid.UUID]*model.Customer
}

func newMockCustomerRepo() *mockCustomerRepo {
	return &mockCustomerRepo{
		byEmail: make(map[string]*model.Customer),
		byID:    make(map[uuid.UUID]*model.Customer),
	}
}

func (m *mockCustomerRepo) Create(_ context.Context, c *model.Customer) error {
	c.ID = uuid.New()
	c.Active = true
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()
	m.byEmail[c.Email] = c
	m.byID[c.ID] = c
	return nil
}

func (m *mockCustomerRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Customer, error) {
	return m.byID[id], nil
}

func (m *mockCustomerRepo) GetByEmail(_ context.Context, email string) (*model.Customer, error) {
	return m.byEmail[email], nil
}

func (m *mockCustomerRepo) UpdateProfile(_ context.Context, c *model.Customer) error {
	if existing, ok := m.byID[c.ID]; ok {
		existing.FirstName = c.FirstName
		existing.LastName = c.LastName
		existing.ShippingAddress = c.ShippingAddress
	}
	return nil
}

func (m *mockCustomerRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	if c, ok := m.byID[id]; ok {
		c.Active = false
	}
	return nil
}

func (m *mockCustomerRepo) add(c *model.Customer) {
	m.byEmail[c.Email] = c
	m.byID[c.ID] = c
}

func TestAuthService_Register(t *testing.T) {
	repo := newMockCustomerRepo()
	svc := NewAuthService(repo, "test-secret", time.Hour)

	resp, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email: "reader@example.com", Password: "password123",
		FirstName: "John", LastName: "Doe",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "reader@example.com", resp.Customer.Email)

	stored := repo.byEmail["reader@example.com"]
	require.NotNil(t, stored)
	assert.True(t, stored.Active)
	assert.NotEqual(t, "password123", stored.PasswordHash)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	repo := newMockCustomerRepo()
	svc := NewAuthService(repo, "test-secret", time.Hour)

	repo.add(&model.Customer{ID: uuid.New(), Email: "reader@example.com", Active: true})

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email: "reader@example.com", Password: "password123",
		FirstName: "John", LastName: "Doe",
	})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

// mockCustomerRepoRacingEmail misses the email on lookup but fails the
// insert, as when two registrations race for the same address.
type mockCustomerRepoRacingEmail struct{ *mockCustomerRepo }

func (m *mockCustomerRepoRacingEmail) GetByEmail(_ context.Context, _ string) (*model.Customer, error) {
	return nil, nil
}

func (m *mockCustomerRepoRacingEmail) Create(_ context.Context, _ *model.Customer) error {
	return repository.ErrEmailTaken
}

func TestAuthService_Register_DuplicateEmailRace(t *testing.T) {
	repo := &mockCustomerRepoRacingEmail{newMockCustomerRepo()}
	svc := NewAuthService(repo, "test-secret", time.Hour)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email: "reader@example.com", Password: "password123",
		FirstName: "John", LastName: "Doe",
	})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestAuthService_Register_WeakPassword(t *testing.T) {
	svc := NewAuthService(newMockCustomerRepo(), "test-secret", time.Hour)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email: "reader@example.com", Password: "short12",
		FirstName: "John", LastName: "Doe",
	})
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestAuthService_Register_InvalidEmail(t *testing.T) {
	svc := NewAuthService(newMockCustomerRepo(), "test-secret", time.Hour)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email: "not-an-email", Password: "password123",
		FirstName: "John", LastName: "Doe",
	})
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestAuthService_Login(t *testing.T) {
	repo := newMockCustomerRepo()
	svc := NewAuthService(repo, "test-secret", time.Hour)

	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	repo.add(&model.Customer{
		ID: uuid.New(), Email: "reader@example.com", PasswordHash: string(hashed),
		Role: "customer", Active: true,
	})

	resp, err := svc.Login(context.Background(), dto.LoginRequest{
		Email: "reader@example.com", Password: "password123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	repo := newMockCustomerRepo()
	svc := NewAuthService(repo, "test-secret", time.Hour)

	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	repo.add(&model.Customer{
		ID: uuid.New(), Email: "reader@example.com", PasswordHash: string(hashed), Active: true,
	})

	_, err := svc.Login(context.Background(), dto.LoginRequest{
		Email: "reader@example.com", Password: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Login_DeactivatedCustomer(t *testing.T) {
	repo := newMockCustomerRepo()
	svc := NewAuthService(repo, "test-secret", time.Hour)

	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	repo.add(&model.Customer{
		ID: uuid.New(), Email: "gone@example.com", PasswordHash: string(hashed), Active: false,
	})

	_, err := svc.Login(context.Background(), dto.LoginRequest{
		Email: "gone@example.com", Password: "password123",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Deactivate_KeepsRecord(t *testing.T) {
	repo := newMockCustomerRepo()
	svc := NewAuthService(repo, "test-secret", time.Hour)

	customer := &model.Customer{ID: uuid.New(), Email: "reader@example.com", Active: true}
	repo.add(customer)

	require.NoError(t, svc.Deactivate(context.Background(), customer.ID))
	stored := repo.byID[customer.ID]
	require.NotNil(t, stored)
	assert.False(t, stored.Active)
}

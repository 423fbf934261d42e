package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/wanderly/tripmate/pkg/middleware"
)

// Common errors
var (
	ErrUserNotFound = errors.New("user not found")

	// validation
	ErrUsernameRequired = errors.New("username must be at least 3 characters")
	ErrEmailInvalid     = errors.New("a valid email is required")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")

	// conflicts
	ErrEmailAlreadyInUse    = errors.New("email already in use")
	ErrUsernameAlreadyInUse = errors.New("username already in use")

	// authentication
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Store is the persistence port for user accounts
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, u *User) error
}

// Service handles account business logic
type Service struct {
	store     Store
	jwtSecret string
	jwtTTL    time.Duration
	now       func() time.Time
}

// NewService creates a new user service
func NewService(store Store, jwtSecret string, jwtTTL time.Duration) *Service {
	return &Service{store: store, jwtSecret: jwtSecret, jwtTTL: jwtTTL, now: time.Now}
}

// Register creates a new account with a bcrypt-hashed password
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if len(username) < 3 {
		return nil, ErrUsernameRequired
	}
	if !strings.Contains(email, "@") {
		return nil, ErrEmailInvalid
	}
	if len(req.Password) < 8 {
		return nil, ErrPasswordTooShort
	}

	if existing, err := s.store.GetByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrEmailAlreadyInUse
	}
	if existing, err := s.store.GetByUsername(ctx, username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrUsernameAlreadyInUse
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u := &User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies credentials and returns a signed access token
func (s *Service) Login(ctx context.Context, req *LoginRequest) (string, *User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if u == nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := middleware.SignToken(u.ID, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// GetByID retrieves an account by its ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

package user

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/funing-shop/internal/domain"
	"github.com/xenking/funing-shop/internal/domain/auth"
)

// Profile is the mutable part of a user plus a plaintext password.
type Profile struct {
	Name     string
	Email    string
	Password string
	Address  string
	Phone    string
}

func (p *Profile) validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if err := domain.Required(
		"name", p.Name,
		"email", p.Email,
		"password", p.Password,
		"address", p.Address,
		"phone", p.Phone,
	); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(p.Email); err != nil {
		return domain.Invalid("email", "email address is not valid")
	}
	return nil
}

// Registration is the result of a successful registration. APIKey is only
// ever available here.
type Registration struct {
	UserID int64
	APIKey string
}

// Session is the result of a successful login.
type Session struct {
	User  *User
	Token string
}

// Service implements account operations.
type Service struct {
	users  Repository
	hasher *auth.KeyHasher
	tokens *auth.Tokens
	cost   int
}

// NewService creates a user Service.
func NewService(users Repository, hasher *auth.KeyHasher, tokens *auth.Tokens) *Service {
	return &Service{users: users, hasher: hasher, tokens: tokens, cost: bcrypt.DefaultCost}
}

func (s *Service) hashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(b), nil
}

// Register creates an account and returns its freshly minted API key.
func (s *Service) Register(ctx context.Context, p Profile) (*Registration, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	hash, err := s.hashPassword(p.Password)
	if err != nil {
		return nil, err
	}

	key := auth.NewAPIKey()
	id, err := s.users.Create(ctx, &User{
		Name:    p.Name,
		Email:   p.Email,
		Address: p.Address,
		Phone:   p.Phone,
		Status:  StatusActive,
	}, hash, s.hasher.Hash(key))
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	zctx.From(ctx).Info("User registered", zap.Int64("user_id", id))
	return &Registration{UserID: id, APIKey: key}, nil
}

// Login checks the password and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := domain.Required("email", email, "password", password); err != nil {
		return nil, err
	}

	creds, err := s.users.GetCredentials(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get credentials: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(creds.User.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: &creds.User, Token: token}, nil
}

// Update replaces the caller's profile and password.
func (s *Service) Update(ctx context.Context, userID int64, p Profile) error {
	if err := p.validate(); err != nil {
		return err
	}
	hash, err := s.hashPassword(p.Password)
	if err != nil {
		return err
	}
	err = s.users.Update(ctx, &User{
		ID:      userID,
		Name:    p.Name,
		Email:   p.Email,
		Address: p.Address,
		Phone:   p.Phone,
	}, hash)
	if err != nil {
		return fmt.Errorf("update user %d: %w", userID, err)
	}
	return nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, userID int64) (*User, error) {
	return s.users.GetByID(ctx, userID)
}

// Exists reports whether a user with id exists.
func (s *Service) Exists(ctx context.Context, userID int64) (bool, error) {
	_, err := s.users.GetByID(ctx, userID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

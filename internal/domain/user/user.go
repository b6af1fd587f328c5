package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when the email belongs to another user.
	ErrEmailTaken = errors.New("sorry, this email already existed")
	// ErrInvalidCredentials is returned when login fails.
	ErrInvalidCredentials = errors.New("login failed, incorrect credentials")
)

// Status values of a user account.
const (
	StatusInactive = 0
	StatusActive   = 1
)

// User is a shop customer.
type User struct {
	ID        int64
	Name      string
	Email     string
	Address   string
	Phone     string
	Status    int
	CreatedAt time.Time
}

// Credentials is the stored password hash of a user.
type Credentials struct {
	User         User
	PasswordHash string
}

// Repository defines persistence operations for users.
type Repository interface {
	Create(ctx context.Context, u *User, passwordHash, apiKeyHash string) (int64, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetCredentials(ctx context.Context, email string) (*Credentials, error)
	Update(ctx context.Context, u *User, passwordHash string) error
}

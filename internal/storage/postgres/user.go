package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/funing-shop/internal/domain/auth"
	"github.com/xenking/funing-shop/internal/domain/user"
)

const (
	userColumns = `id, name, email, address, phone, status, created_at`

	createUserSQL = `INSERT INTO users (name, email, password_hash, api_key_hash, status, address, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	getUserByIDSQL = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	getCredentialsSQL = `SELECT ` + userColumns + `, password_hash FROM users WHERE email = $1`

	updateUserSQL = `UPDATE users
		SET name = $2, email = $3, password_hash = $4, address = $5, phone = $6
		WHERE id = $1`

	findByKeyHashSQL = `SELECT id, api_key_hash, status FROM users WHERE api_key_hash = $1`

	findIdentityByIDSQL = `SELECT id, api_key_hash, status FROM users WHERE id = $1`

	usersEmailKey = "users_email_key"
)

var (
	_ user.Repository = (*UserRepository)(nil)
	_ auth.Repository = (*UserRepository)(nil)
)

// UserRepository implements user.Repository and auth.Repository.
type UserRepository struct {
	querier
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{querier{pool: pool}}
}

// Create inserts a user. Returns user.ErrEmailTaken for a duplicate email.
func (r *UserRepository) Create(ctx context.Context, u *user.User, passwordHash, apiKeyHash string) (int64, error) {
	var id int64
	err := r.db(ctx).QueryRow(ctx, createUserSQL,
		u.Name, u.Email, passwordHash, apiKeyHash, u.Status, u.Address, u.Phone,
	).Scan(&id)
	if err != nil {
		if violates(err, codeUniqueViolation, usersEmailKey) {
			return 0, user.ErrEmailTaken
		}
		return 0, fmt.Errorf("creating user %q: %w", u.Email, err)
	}
	return id, nil
}

// GetByID returns a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	rows, err := r.db(ctx).Query(ctx, getUserByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting user %d: %w", id, err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user %d: %w", id, err)
	}
	return &u, nil
}

// GetCredentials returns the user and password hash for email.
func (r *UserRepository) GetCredentials(ctx context.Context, email string) (*user.Credentials, error) {
	var c user.Credentials
	err := r.db(ctx).QueryRow(ctx, getCredentialsSQL, email).Scan(
		&c.User.ID, &c.User.Name, &c.User.Email, &c.User.Address, &c.User.Phone,
		&c.User.Status, &c.User.CreatedAt, &c.PasswordHash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting credentials: %w", err)
	}
	return &c, nil
}

// Update overwrites the profile of u.ID.
func (r *UserRepository) Update(ctx context.Context, u *user.User, passwordHash string) error {
	tag, err := r.db(ctx).Exec(ctx, updateUserSQL, u.ID, u.Name, u.Email, passwordHash, u.Address, u.Phone)
	if err != nil {
		if violates(err, codeUniqueViolation, usersEmailKey) {
			return user.ErrEmailTaken
		}
		return fmt.Errorf("updating user %d: %w", u.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

// FindByKeyHash resolves an API key hash to its owner.
func (r *UserRepository) FindByKeyHash(ctx context.Context, hash string) (*auth.Identity, error) {
	id, err := r.findIdentity(ctx, findByKeyHashSQL, hash)
	if err != nil {
		return nil, fmt.Errorf("finding api key by hash: %w", err)
	}
	return id, nil
}

// FindByUserID returns the identity of a token subject.
func (r *UserRepository) FindByUserID(ctx context.Context, userID int64) (*auth.Identity, error) {
	id, err := r.findIdentity(ctx, findIdentityByIDSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("finding identity %d: %w", userID, err)
	}
	return id, nil
}

func (r *UserRepository) findIdentity(ctx context.Context, query string, arg any) (*auth.Identity, error) {
	var (
		id     auth.Identity
		status int
	)
	err := r.db(ctx).QueryRow(ctx, query, arg).Scan(&id.UserID, &id.KeyHash, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrIdentityNotFound
		}
		return nil, err
	}
	id.Active = status == user.StatusActive
	return &id, nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Address, &u.Phone, &u.Status, &u.CreatedAt)
	return u, err
}

package domain

import (
	"context"
	"time"
)

// User is an account known to the authentication service.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser returns a new User with the given fields. ID is typically set by the repository on create.
func NewUser(email, name string, createdAt, updatedAt time.Time) *User {
	return &User{
		Email:     email,
		Name:      name,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// PasswordHasher handles salt generation, hashing, and verification.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenIssuer issues session tokens for an authenticated user.
type TokenIssuer interface {
	// Issue returns the signed token and its unique id.
	Issue(userID, email string, expiry time.Duration) (token, tokenID string, err error)
}

// TokenVerifier verifies a token and returns its subject and id.
type TokenVerifier interface {
	Verify(token string) (userID, tokenID string, err error)
}

// UserRepository defines the interface for user storage.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	Count(ctx context.Context) (int, error)
	List(ctx context.Context) ([]*User, error)
}

// UserDirectory is the read side of the authentication service used for
// statistics and backups.
type UserDirectory interface {
	CountUsers(ctx context.Context) (int, error)
	CountActiveSessions(ctx context.Context) (int, error)
	ListUsers(ctx context.Context) ([]*User, error)
}

// AuthService signs users up and in and tracks their sessions.
type AuthService interface {
	UserDirectory
	SignUp(ctx context.Context, email, password, name string) (*User, error)
	Login(ctx context.Context, email, password string) (token string, err error)
	Logout(ctx context.Context, token string) error
	Verify(ctx context.Context, token string) (userID string, err error)
}

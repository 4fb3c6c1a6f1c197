// ABOUTME: Store interface and data types for sensus-chat persistence
// ABOUTME: Defines User, Exchange structs and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateUser is returned when a username or email is already taken
var ErrDuplicateUser = errors.New("user already exists")

// ErrInsufficientBalance is returned by RecordExchange when the user has no
// credits left. This is the authoritative server-side spend check; the
// client's pre-flight check is advisory only.
var ErrInsufficientBalance = errors.New("insufficient message balance")

// User type constants
const (
	UserTypeAdmin  = "admin"
	UserTypeClient = "client"
)

// User is an account holding a message-credit balance.
type User struct {
	ID             string
	Username       string
	Email          string
	PasswordHash   string
	UserType       string // "admin" or "client"
	MessageBalance int
	IsActive       bool
	CreatedAt      time.Time
}

// Exchange is one persisted question/answer pair, owned by exactly one user.
type Exchange struct {
	ID        string
	UserID    string
	Question  string
	Answer    string
	CreatedAt time.Time
}

// ListUsersParams filters and pages the admin user listing.
type ListUsersParams struct {
	Search string // matches username or email substring
	Limit  int
	Offset int
}

// Store defines the interface for user and exchange persistence
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context, params ListUsersParams) ([]*User, error)
	AdjustBalance(ctx context.Context, userID string, delta int) (int, error)

	// Exchanges
	RecordExchange(ctx context.Context, ex *Exchange) (remaining int, err error)
	History(ctx context.Context, userID string, limit int) ([]*Exchange, error)
	AllHistory(ctx context.Context, limit int) ([]*Exchange, error)
	CountExchanges(ctx context.Context, userID string) (int, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}

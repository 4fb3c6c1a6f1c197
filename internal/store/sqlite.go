// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides user/exchange persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			user_type TEXT NOT NULL DEFAULT 'client',
			message_balance INTEGER NOT NULL DEFAULT 0,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS exchanges (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id)
		);

		CREATE INDEX IF NOT EXISTS idx_exchanges_user_created
			ON exchanges(user_id, created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CreateUser inserts a new user. Username and email must be unique.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	if user.UserType == "" {
		user.UserType = UserTypeClient
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, user_type, message_balance, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.UserType, user.MessageBalance, user.IsActive, user.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateUser
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by id.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	return s.getUserWhere(ctx, "id = ?", id)
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return s.getUserWhere(ctx, "username = ?", username)
}

func (s *SQLiteStore) getUserWhere(ctx context.Context, where string, arg any) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, user_type, message_balance, is_active, created_at
		FROM users WHERE `+where, arg)

	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.UserType, &u.MessageBalance, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	return &u, nil
}

// ListUsers returns users matching the search filter, newest first.
func (s *SQLiteStore) ListUsers(ctx context.Context, params ListUsersParams) ([]*User, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, username, email, password_hash, user_type, message_balance, is_active, created_at
		FROM users`
	args := []any{}
	if params.Search != "" {
		query += ` WHERE username LIKE ? OR email LIKE ?`
		pattern := "%" + params.Search + "%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, params.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
			&u.UserType, &u.MessageBalance, &u.IsActive, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// AdjustBalance applies a credit delta to a user's balance, flooring at
// zero, and returns the new balance.
func (s *SQLiteStore) AdjustBalance(ctx context.Context, userID string, delta int) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var balance int
	err = tx.QueryRowContext(ctx, `SELECT message_balance FROM users WHERE id = ?`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("reading balance: %w", err)
	}

	balance += delta
	if balance < 0 {
		balance = 0
	}

	if _, err := tx.ExecContext(ctx, `UPDATE users SET message_balance = ? WHERE id = ?`, balance, userID); err != nil {
		return 0, fmt.Errorf("updating balance: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing balance update: %w", err)
	}
	return balance, nil
}

// RecordExchange persists a completed exchange and decrements the owner's
// balance in one transaction. The decrement and the insert succeed or fail
// together, so a user is never charged for an unsaved answer or vice versa.
func (s *SQLiteStore) RecordExchange(ctx context.Context, ex *Exchange) (int, error) {
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var balance int
	err = tx.QueryRowContext(ctx, `SELECT message_balance FROM users WHERE id = ?`, ex.UserID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("reading balance: %w", err)
	}
	if balance <= 0 {
		return 0, ErrInsufficientBalance
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO exchanges (id, user_id, question, answer, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		ex.ID, ex.UserID, ex.Question, ex.Answer, ex.CreatedAt,
	); err != nil {
		return 0, fmt.Errorf("inserting exchange: %w", err)
	}

	balance--
	if _, err := tx.ExecContext(ctx, `UPDATE users SET message_balance = ? WHERE id = ?`, balance, ex.UserID); err != nil {
		return 0, fmt.Errorf("decrementing balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing exchange: %w", err)
	}
	return balance, nil
}

// History returns the user's exchanges, newest first.
func (s *SQLiteStore) History(ctx context.Context, userID string, limit int) ([]*Exchange, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryExchanges(ctx, `
		SELECT id, user_id, question, answer, created_at
		FROM exchanges WHERE user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
}

// AllHistory returns exchanges across all users, newest first. Admin only.
func (s *SQLiteStore) AllHistory(ctx context.Context, limit int) ([]*Exchange, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queryExchanges(ctx, `
		SELECT id, user_id, question, answer, created_at
		FROM exchanges ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
}

func (s *SQLiteStore) queryExchanges(ctx context.Context, query string, args ...any) ([]*Exchange, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying exchanges: %w", err)
	}
	defer rows.Close()

	var exchanges []*Exchange
	for rows.Next() {
		var ex Exchange
		if err := rows.Scan(&ex.ID, &ex.UserID, &ex.Question, &ex.Answer, &ex.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning exchange: %w", err)
		}
		exchanges = append(exchanges, &ex)
	}
	return exchanges, rows.Err()
}

// CountExchanges returns how many exchanges the user has submitted.
func (s *SQLiteStore) CountExchanges(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM exchanges WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting exchanges: %w", err)
	}
	return count, nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

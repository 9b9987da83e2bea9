// internal/storage/metadata_repo.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/termbase/termbase-backend/internal/domain"
)

// Specific errors for metadata operations
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// --- User Operations ---

// CreateUser inserts a new user into the metadata database.
func CreateUser(ctx context.Context, db *sql.DB, userID, username, passwordHash string) error {
	sqlStatement := `INSERT INTO users (id, username, password_hash) VALUES (?, ?, ?)`
	_, err := db.ExecContext(ctx, sqlStatement, userID, username, passwordHash)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			if strings.Contains(sqliteErr.Error(), "users.username") {
				return ErrUsernameExists
			}
		}
		customLog.Printf("Storage: Failed to insert user %s: %v", username, err)
		return fmt.Errorf("database error during user creation: %w", err)
	}
	return nil
}

// FindUserByUsername retrieves a user by their username.
func FindUserByUsername(ctx context.Context, db *sql.DB, username string) (*domain.User, error) {
	sqlStatement := `SELECT id, username, password_hash, created_at FROM users WHERE username = ? LIMIT 1`
	row := db.QueryRowContext(ctx, sqlStatement, username)
	var user domain.User
	err := row.Scan(&user.UserId, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		customLog.Printf("Storage: Failed to find user by username %s: %v", username, err)
		return nil, fmt.Errorf("database error finding user: %w", err)
	}
	return &user, nil
}

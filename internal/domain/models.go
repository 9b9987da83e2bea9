// internal/domain/models.go
package domain

import (
	"regexp"
	"time"
)

// User defines the structure for account data in the metadata DB
type User struct {
	UserId       string    `json:"user_id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Tenant is an authenticated user viewed as the owner of exactly one
// PostgreSQL schema. The schema is created lazily on first query execution.
type Tenant struct {
	Username   string
	SchemaName string
}

// NewTenant builds a Tenant from the externally authenticated username.
func NewTenant(username string) Tenant {
	return Tenant{
		Username:   username,
		SchemaName: SchemaName(username),
	}
}

var schemaNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// SchemaName derives the tenant's schema name from their username by
// replacing every character outside [a-zA-Z0-9_] with an underscore.
// The mapping is deterministic and idempotent; collisions between distinct
// usernames sanitizing to the same value are an accepted risk.
func SchemaName(username string) string {
	return schemaNameSanitizer.ReplaceAllString(username, "_")
}

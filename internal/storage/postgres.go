// internal/storage/postgres.go
package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/termbase/termbase-backend/config"
)

// ConnectTenantDB opens the shared PostgreSQL pool holding all tenant
// schemas. The pool is constructed once at process start, injected into the
// executor and introspector, and closed on shutdown; no component reaches
// for a global client.
func ConnectTenantDB(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create tenant db pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to tenant db: %w", err)
	}
	customLog.Println("Storage: Tenant database connection successful.")

	return pool, nil
}

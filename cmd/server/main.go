// cmd/server/main.go
package main

import (
	"context"
	"os"
	"time"

	"github.com/termbase/termbase-backend/api"
	"github.com/termbase/termbase-backend/config"
	"github.com/termbase/termbase-backend/internal/logger"
	"github.com/termbase/termbase-backend/internal/nl2sql"
	"github.com/termbase/termbase-backend/internal/storage"
)

var (
	customLog = logger.NewLogger()
)

func main() {
	customLog.Println("Starting Termbase Backend server...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		customLog.Fatalf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	// 2. Initialize Metadata Database Connection
	metaDB, err := storage.ConnectMetadataDB(cfg)
	if err != nil {
		customLog.Fatalf("Failed to initialize metadata database: %v", err)
		os.Exit(1)
	}
	defer func() {
		customLog.Println("Closing metadata database connection...")
		if err := metaDB.Close(); err != nil {
			customLog.Printf("Error closing metadata database: %v", err)
		}
	}()

	// 3. Initialize Tenant Database Pool
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	tenantDB, err := storage.ConnectTenantDB(ctx, cfg)
	cancel()
	if err != nil {
		customLog.Fatalf("Failed to connect to tenant database: %v", err)
		os.Exit(1)
	}
	defer func() {
		customLog.Println("Closing tenant database pool...")
		tenantDB.Close()
	}()

	// 4. Build AI Client (optional: the AI endpoints degrade to a config
	// error response when no key is set)
	var aiClient nl2sql.Client
	if cfg.AIAPIKey != "" {
		client, err := nl2sql.NewHTTPClient(nl2sql.HTTPClientConfig{
			BaseURL:     cfg.AIBaseURL,
			APIKey:      cfg.AIAPIKey,
			Model:       cfg.AIModel,
			Temperature: cfg.AITemperature,
			Timeout:     cfg.AITimeout,
		})
		if err != nil {
			customLog.Fatalf("Failed to build AI client: %v", err)
			os.Exit(1)
		}
		aiClient = client
	} else {
		customLog.Warnf("AI_API_KEY not set; AI endpoints will report not configured")
	}

	// 5. Setup Router (passing dependencies)
	router := api.SetupRouter(api.Deps{
		MetaDB:   metaDB,
		TenantDB: tenantDB,
		Cfg:      cfg,
		AIClient: aiClient,
	})

	// 6. Start Server
	customLog.Printf("Server listening on %s", cfg.ServerPort)
	if err := router.Run(cfg.ServerPort); err != nil {
		customLog.Fatalf("Failed to start server: %v", err)
	}
}

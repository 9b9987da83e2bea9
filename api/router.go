// api/router.go
package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/termbase/termbase-backend/api/handlers"
	"github.com/termbase/termbase-backend/api/middleware"
	"github.com/termbase/termbase-backend/config"
	"github.com/termbase/termbase-backend/internal/nl2sql"
	"github.com/termbase/termbase-backend/internal/schema"
	"github.com/termbase/termbase-backend/internal/sqlexec"
)

// Deps bundles the shared resources the router hands to handlers.
type Deps struct {
	MetaDB   *sql.DB
	TenantDB *pgxpool.Pool
	Cfg      *config.Config
	AIClient nl2sql.Client // nil when AI is not configured
}

// SetupRouter initializes the Gin router and sets up all routes.
func SetupRouter(deps Deps) *gin.Engine {
	router := gin.Default() // Includes Logger and Recovery

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.ErrorHandler())

	executor := sqlexec.NewExecutor(deps.TenantDB)
	introspector := schema.NewIntrospector(deps.TenantDB)

	authHandler := handlers.NewAuthHandler(deps.MetaDB, deps.Cfg)
	queryHandler := handlers.NewQueryHandler(executor, introspector)
	aiHandler := handlers.NewAIHandler(
		nl2sql.NewGenerator(deps.AIClient, introspector),
		nl2sql.NewAgent(deps.AIClient, introspector),
		executor,
	)

	// --- Public Routes ---
	router.GET("/ping", func(c *gin.Context) {
		if err := deps.TenantDB.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// The auth endpoints are the brute-force target, so only they get the
	// rate limiter.
	ratelimiter := middleware.NewRateLimiter(5, time.Minute)
	authRoutes := router.Group("/auth")
	authRoutes.Use(middleware.RateLimitMiddleware(ratelimiter))
	{
		authRoutes.POST("/signup", authHandler.Signup)
		authRoutes.POST("/login", authHandler.Login)
	}

	// --- Protected Routes ---
	apiRoutes := router.Group("/api/v1")
	apiRoutes.Use(middleware.AuthMiddleware(deps.Cfg))
	{
		apiRoutes.GET("/me", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"user_id":  c.GetString("userId"),
				"username": c.GetString("username"),
			})
		})

		apiRoutes.POST("/query", queryHandler.Execute)
		apiRoutes.GET("/schema", queryHandler.Schema)

		apiRoutes.POST("/ai/generate", aiHandler.Generate)
		apiRoutes.POST("/ai/agent", aiHandler.RunAgent)
	}

	return router
}

// api/handlers/query_handler.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/termbase/termbase-backend/api/models"
	"github.com/termbase/termbase-backend/internal/domain"
	"github.com/termbase/termbase-backend/internal/schema"
	"github.com/termbase/termbase-backend/internal/sqlexec"
)

// QueryHandler holds dependencies for raw SQL execution and schema
// inspection endpoints.
type QueryHandler struct {
	Executor     *sqlexec.Executor
	Introspector *schema.Introspector
}

func NewQueryHandler(executor *sqlexec.Executor, introspector *schema.Introspector) *QueryHandler {
	return &QueryHandler{
		Executor:     executor,
		Introspector: introspector,
	}
}

// tenantFromContext rebuilds the tenant from the username the auth
// middleware stored. A missing username means the token predates username
// claims and cannot be mapped to a schema.
func tenantFromContext(c *gin.Context) (domain.Tenant, bool) {
	username := c.GetString("username")
	if username == "" {
		err := errors.New("token does not carry a username claim")
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return domain.Tenant{}, false
	}
	return domain.NewTenant(username), true
}

// Execute runs one raw SQL request inside the caller's schema. Query-level
// failures (bad SQL, denied access) are part of the result payload, not
// transport errors, so the response is 200 either way.
func (h *QueryHandler) Execute(c *gin.Context) {
	tenant, ok := tenantFromContext(c)
	if !ok {
		return
	}

	var req models.ExecuteQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("Execute binding error: %v", err)
		_ = c.Error(err)
		return
	}

	result := h.Executor.Execute(c.Request.Context(), tenant, req.Query)
	if !result.Success {
		customLog.Printf("Query failed for user %s: %s", tenant.Username, result.Error)
	}

	c.JSON(http.StatusOK, gin.H{
		"result":   result,
		"rendered": sqlexec.FormatQueryResult(result),
	})
}

// Schema returns the full snapshot of the caller's schema: tables, columns,
// sampled rows and next primary key values.
func (h *QueryHandler) Schema(c *gin.Context) {
	tenant, ok := tenantFromContext(c)
	if !ok {
		return
	}

	info := h.Introspector.GetSchemaInfo(c.Request.Context(), tenant)
	c.JSON(http.StatusOK, info)
}

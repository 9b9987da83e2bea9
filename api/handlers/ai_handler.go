// api/handlers/ai_handler.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/termbase/termbase-backend/api/models"
	"github.com/termbase/termbase-backend/internal/nl2sql"
	"github.com/termbase/termbase-backend/internal/sqlexec"
)

// AIHandler holds dependencies for the natural-language query endpoints.
type AIHandler struct {
	Generator *nl2sql.Generator
	Agent     *nl2sql.Agent
	Executor  *sqlexec.Executor
}

func NewAIHandler(generator *nl2sql.Generator, agent *nl2sql.Agent, executor *sqlexec.Executor) *AIHandler {
	return &AIHandler{
		Generator: generator,
		Agent:     agent,
		Executor:  executor,
	}
}

// Generate turns a prompt into a single SQL query and executes it, retrying
// generation with error feedback when the query fails. Generation failures
// are part of the payload, not transport errors.
func (h *AIHandler) Generate(c *gin.Context) {
	tenant, ok := tenantFromContext(c)
	if !ok {
		return
	}

	var req models.AIGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("Generate binding error: %v", err)
		_ = c.Error(err)
		return
	}

	history := make([]nl2sql.Message, 0, len(req.History))
	for _, m := range req.History {
		history = append(history, nl2sql.Message{Role: m.Role, Content: m.Content})
	}

	genResult, execResult := h.Generator.GenerateAndExecute(c.Request.Context(), tenant, req.Prompt, history, h.Executor)

	response := gin.H{"generation": genResult}
	if genResult.SQLQuery != "" {
		response["result"] = execResult
		response["rendered"] = sqlexec.FormatQueryResult(execResult)
	}
	c.JSON(http.StatusOK, response)
}

// commandOutcome pairs one agent command with its execution result.
type commandOutcome struct {
	Command  string              `json:"command"`
	Result   sqlexec.QueryResult `json:"result"`
	Rendered string              `json:"rendered"`
}

// Agent plans a command array for the prompt and executes it sequentially,
// stopping at the first failure. Commands are independent transactions, so
// earlier successes are not rolled back when a later command fails.
func (h *AIHandler) RunAgent(c *gin.Context) {
	tenant, ok := tenantFromContext(c)
	if !ok {
		return
	}

	var req models.AgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("Agent binding error: %v", err)
		_ = c.Error(err)
		return
	}

	plan := h.Agent.Run(c.Request.Context(), tenant, req.Prompt)
	if !plan.Success {
		c.JSON(http.StatusOK, gin.H{"plan": plan})
		return
	}

	outcomes := make([]commandOutcome, 0, len(plan.SQLCommands))
	allSucceeded := true
	for _, cmd := range plan.SQLCommands {
		res := h.Executor.Execute(c.Request.Context(), tenant, cmd)
		outcomes = append(outcomes, commandOutcome{
			Command:  cmd,
			Result:   res,
			Rendered: sqlexec.FormatQueryResult(res),
		})
		if !res.Success {
			customLog.Printf("Agent command failed for user %s, stopping: %s", tenant.Username, res.Error)
			allSucceeded = false
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"plan":     plan,
		"commands": outcomes,
		"success":  allSucceeded,
	})
}

package nl2sql

import (
	"context"
	"fmt"
	"strings"

	"github.com/termbase/termbase-backend/internal/domain"
	"github.com/termbase/termbase-backend/internal/schema"
	"github.com/termbase/termbase-backend/internal/sqlexec"
)

// maxGenerationRetries caps the silent regenerate-on-failure loop; the
// initial attempt is not a retry, so up to 3 queries run in total.
const maxGenerationRetries = 2

// SchemaReader is the introspection surface the generation pipeline needs.
// *schema.Introspector satisfies it.
type SchemaReader interface {
	ListTables(ctx context.Context, tenant domain.Tenant) ([]string, error)
	GetSchemaInfo(ctx context.Context, tenant domain.Tenant) schema.SchemaInfo
}

// QueryRunner executes one validated query for a tenant. *sqlexec.Executor
// satisfies it.
type QueryRunner interface {
	Execute(ctx context.Context, tenant domain.Tenant, query string) sqlexec.QueryResult
}

// AIQueryResult is the outcome of one generation request, including the
// number of generation attempts consumed by the retry loop.
type AIQueryResult struct {
	Success     bool   `json:"success"`
	SQLQuery    string `json:"sql_query,omitempty"`
	Explanation string `json:"explanation,omitempty"`
	Error       string `json:"error,omitempty"`
	Attempts    int    `json:"attempts,omitempty"`
}

// Generator produces one SQL query per request from a natural-language
// prompt, grounded in a fresh snapshot of the tenant's schema.
type Generator struct {
	client  Client
	schemas SchemaReader
}

func NewGenerator(client Client, schemas SchemaReader) *Generator {
	return &Generator{client: client, schemas: schemas}
}

// Generate asks the model for a single SQL query. A non-empty prevError and
// prevQuery switch the prompt into error correction mode. When the model
// returns prose instead of SQL, the prose is surfaced as the explanation of
// a failed result rather than being executed.
func (g *Generator) Generate(ctx context.Context, tenant domain.Tenant, prompt string, history []Message, prevError, prevQuery string) AIQueryResult {
	if g.client == nil {
		return AIQueryResult{Error: "AI query generation is not configured: set AI_API_KEY"}
	}

	info := g.schemas.GetSchemaInfo(ctx, tenant)
	system := buildGeneratorSystemPrompt(schema.FormatForAI(info), prevError, prevQuery)

	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: "system", Content: system})
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: prompt})

	raw, err := g.client.Complete(ctx, messages)
	if err != nil {
		customLog.Warnf("SQL generation model call failed for user '%s': %v", tenant.Username, err)
		return AIQueryResult{Error: "model request failed: " + err.Error()}
	}

	sqlText := stripFences(raw)
	if !sqlVerbRegex.MatchString(sqlText) {
		return AIQueryResult{
			Explanation: strings.TrimSpace(raw),
			Error:       "model did not return a SQL query",
		}
	}

	return AIQueryResult{Success: true, SQLQuery: ensureSemicolon(sqlText)}
}

// generationState carries the retry loop's feedback between attempts.
type generationState struct {
	attempt   int
	lastError string
	lastQuery string
}

// GenerateAndExecute runs the generate-execute-retry loop. Failed executions
// feed the error and query back into a correction prompt; retries happen
// silently and only the final attempt's outcome is returned.
func (g *Generator) GenerateAndExecute(ctx context.Context, tenant domain.Tenant, prompt string, history []Message, runner QueryRunner) (AIQueryResult, sqlexec.QueryResult) {
	st := generationState{}
	for {
		gen := g.Generate(ctx, tenant, prompt, history, st.lastError, st.lastQuery)
		gen.Attempts = st.attempt + 1
		if !gen.Success {
			return gen, sqlexec.QueryResult{}
		}

		res := runner.Execute(ctx, tenant, gen.SQLQuery)
		if res.Success {
			return gen, res
		}

		if st.attempt >= maxGenerationRetries {
			gen.Success = false
			gen.Error = fmt.Sprintf("query failed after %d attempt(s): %s", st.attempt+1, res.Error)
			return gen, res
		}

		customLog.Debugf("generated query failed for user '%s' (attempt %d), retrying: %s", tenant.Username, st.attempt+1, res.Error)
		st.attempt++
		st.lastError = res.Error
		st.lastQuery = gen.SQLQuery
	}
}

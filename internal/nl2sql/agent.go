package nl2sql

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/termbase/termbase-backend/internal/domain"
	"github.com/termbase/termbase-backend/internal/schema"
)

// AgentResult is the outcome of the multi-step planning pipeline: the
// ordered command list to execute plus the tables the plan was scoped to.
type AgentResult struct {
	Success        bool     `json:"success"`
	SQLCommands    []string `json:"sql_commands,omitempty"`
	Explanation    string   `json:"explanation,omitempty"`
	Error          string   `json:"error,omitempty"`
	RelevantTables []string `json:"relevant_tables,omitempty"`
}

// Agent plans multi-command SQL for a prompt in stages: pick the relevant
// tables, retrieve only their schema, then generate an ordered command
// array. Execution of the plan happens at the handler layer.
type Agent struct {
	client  Client
	schemas SchemaReader
}

func NewAgent(client Client, schemas SchemaReader) *Agent {
	return &Agent{client: client, schemas: schemas}
}

// Run produces an execution plan for the prompt. Table relevance falls back
// to keyword matching when the model call fails, and show-style requests
// with relevant tables fall back to plain SELECTs when command generation
// yields nothing usable.
func (a *Agent) Run(ctx context.Context, tenant domain.Tenant, prompt string) AgentResult {
	if a.client == nil {
		return AgentResult{Error: "AI query generation is not configured: set AI_API_KEY"}
	}

	tables, err := a.schemas.ListTables(ctx, tenant)
	if err != nil {
		// The request may still be answerable (e.g. CREATE TABLE), so plan
		// against an empty table list rather than failing outright.
		customLog.Warnf("listing tables for user '%s' failed, planning without them: %v", tenant.Username, err)
		tables = nil
	}

	relevant := a.relevantTables(ctx, prompt, tables)

	info := a.schemas.GetSchemaInfo(ctx, tenant)
	scoped := schema.FilterTables(info, relevant)
	schemaText := schema.FormatForAI(scoped)

	commands, explanation, err := a.generateCommands(ctx, prompt, schemaText)
	if err != nil {
		customLog.Warnf("command generation failed for user '%s': %v", tenant.Username, err)
		if fallback := showFallback(prompt, relevant); len(fallback) > 0 {
			return AgentResult{
				Success:        true,
				SQLCommands:    fallback,
				Explanation:    "Showing all rows from the relevant tables.",
				RelevantTables: relevant,
			}
		}
		return AgentResult{Error: "model request failed: " + err.Error(), RelevantTables: relevant}
	}
	if len(commands) == 0 {
		if fallback := showFallback(prompt, relevant); len(fallback) > 0 {
			return AgentResult{
				Success:        true,
				SQLCommands:    fallback,
				Explanation:    "Showing all rows from the relevant tables.",
				RelevantTables: relevant,
			}
		}
		return AgentResult{
			Explanation:    explanation,
			Error:          "model did not return any SQL commands",
			RelevantTables: relevant,
		}
	}

	return AgentResult{
		Success:        true,
		SQLCommands:    commands,
		Explanation:    explanation,
		RelevantTables: relevant,
	}
}

// relevantTables asks the model which tables matter for the prompt,
// degrading to keyword matching on any model or parse failure. Names the
// model invents are dropped.
func (a *Agent) relevantTables(ctx context.Context, prompt string, tables []string) []string {
	if len(tables) == 0 {
		return nil
	}

	raw, err := a.client.CompleteJSON(ctx, buildRelevancePrompt(prompt, tables), "relevant_tables", relevanceSchema)
	if err != nil {
		customLog.Debugf("table relevance model call failed, using keyword match: %v", err)
		return keywordMatchTables(prompt, tables)
	}

	var parsed struct {
		Tables []string `json:"tables"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		customLog.Debugf("table relevance response was not valid JSON, using keyword match: %v", err)
		return keywordMatchTables(prompt, tables)
	}

	existing := make(map[string]string, len(tables))
	for _, t := range tables {
		existing[strings.ToLower(t)] = t
	}
	var relevant []string
	for _, t := range parsed.Tables {
		if actual, ok := existing[strings.ToLower(strings.TrimSpace(t))]; ok {
			relevant = append(relevant, actual)
		}
	}
	return relevant
}

func (a *Agent) generateCommands(ctx context.Context, prompt, schemaText string) ([]string, string, error) {
	raw, err := a.client.CompleteJSON(ctx, buildCommandPrompt(schemaText, prompt), "sql_commands", commandSchema)
	if err != nil {
		return nil, "", err
	}

	var parsed struct {
		Commands    []string `json:"commands"`
		Explanation string   `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, "", fmt.Errorf("decode command array: %w", err)
	}

	commands := make([]string, 0, len(parsed.Commands))
	for _, cmd := range parsed.Commands {
		cleaned := ensureSemicolon(stripFences(cmd))
		if cleaned == "" {
			continue
		}
		// The execution layer owns search_path; drop any the model emitted.
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(cleaned)), "set search_path") {
			continue
		}
		commands = append(commands, cleaned)
	}
	return commands, parsed.Explanation, nil
}

func showFallback(prompt string, relevant []string) []string {
	if !looksLikeShowRequest(prompt) || len(relevant) == 0 {
		return nil
	}
	commands := make([]string, 0, len(relevant))
	for _, t := range relevant {
		commands = append(commands, fmt.Sprintf(`SELECT * FROM "%s";`, t))
	}
	return commands
}

package nl2sql

import (
	"fmt"
	"regexp"
	"strings"
)

var sqlVerbRegex = regexp.MustCompile(`(?is)^\s*(?:--[^\n]*\n\s*)*(select|insert|update|delete|create|drop|alter|with|explain)\b`)

var codeFenceRegex = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")

// buildGeneratorSystemPrompt frames the single-shot generation call. When a
// previous attempt failed, prevQuery and prevError are included verbatim so
// the model corrects the actual statement rather than guessing.
func buildGeneratorSystemPrompt(schemaText, prevError, prevQuery string) string {
	var b strings.Builder

	b.WriteString("You are a PostgreSQL expert. Generate a single SQL query answering the user's request.\n\n")
	b.WriteString("Current database state:\n")
	b.WriteString(schemaText)
	b.WriteString("\n\nRules:\n")
	b.WriteString("1. Respond with ONLY the SQL query. No explanations, no markdown fences.\n")
	b.WriteString("2. Use plain unqualified table names; never prefix a schema name.\n")
	b.WriteString("3. Never emit SET search_path or reference other schemas.\n")
	b.WriteString("4. When inserting rows, respect the next available primary key values shown above.\n")
	b.WriteString("5. If the request cannot be answered with SQL against this database, say so in one plain sentence.\n")

	if prevError != "" || prevQuery != "" {
		b.WriteString("\nERROR CORRECTION MODE\n")
		b.WriteString("Your previous query failed. Produce a corrected query.\n")
		fmt.Fprintf(&b, "Previous query:\n%s\n", prevQuery)
		fmt.Fprintf(&b, "Execution error:\n%s\n", prevError)
	}

	return b.String()
}

func buildRelevancePrompt(prompt string, tables []string) []Message {
	system := fmt.Sprintf(`You select which database tables are relevant to a user request.
Existing tables: %s
Return a JSON object {"tables": [...]} listing only the relevant table names.
If the request creates a new table, return the tables it relates to, or an empty list.`,
		strings.Join(tables, ", "))
	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: prompt},
	}
}

func buildCommandPrompt(schemaText, prompt string) []Message {
	system := fmt.Sprintf(`You are a PostgreSQL expert. Translate the user's request into an ordered list of SQL commands.

Current database state:
%s

Rules:
1. Return a JSON object {"commands": [...], "explanation": "..."}.
2. Each command is one complete SQL statement.
3. Use plain unqualified table names; never prefix a schema name.
4. Never emit SET search_path; the execution layer manages it.
5. When inserting rows, respect the next available primary key values shown above to avoid duplicate key errors.
6. Create tables before inserting into them when both are needed.`, schemaText)
	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: prompt},
	}
}

var relevanceSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"tables": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
	"required":             []string{"tables"},
	"additionalProperties": false,
}

var commandSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"commands": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"explanation": map[string]any{"type": "string"},
	},
	"required":             []string{"commands", "explanation"},
	"additionalProperties": false,
}

// keywordMatchTables is the degraded relevance path when the model call
// fails: a table is relevant when its name appears in the prompt or a prompt
// word appears in the name, compared case-insensitively.
func keywordMatchTables(prompt string, tables []string) []string {
	lowered := strings.ToLower(prompt)
	words := strings.FieldsFunc(lowered, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '_'
	})

	var matched []string
	for _, table := range tables {
		lt := strings.ToLower(table)
		if strings.Contains(lowered, lt) {
			matched = append(matched, table)
			continue
		}
		for _, w := range words {
			if len(w) >= 3 && strings.Contains(lt, w) {
				matched = append(matched, table)
				break
			}
		}
	}
	return matched
}

var showVerbs = []string{"show", "list", "display", "view", "see", "what", "get all"}

func looksLikeShowRequest(prompt string) bool {
	lowered := strings.ToLower(strings.TrimSpace(prompt))
	for _, v := range showVerbs {
		if strings.HasPrefix(lowered, v) {
			return true
		}
	}
	return false
}

// stripFences removes a markdown code fence wrapper if the model added one
// despite the prompt rules.
func stripFences(raw string) string {
	if m := codeFenceRegex.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(raw)
}

func ensureSemicolon(query string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(query), "; \t\n")
	if trimmed == "" {
		return ""
	}
	return trimmed + ";"
}

// internal/sqlexec/clean.go
package sqlexec

import (
	"regexp"
	"strings"
)

var codeFenceRegex = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")

// Prefixes the model tends to emit around SQL despite being told not to.
var preamblePrefixes = []string{
	"here's the sql",
	"here is the sql",
	"here's",
	"here is",
	"the sql query is",
	"the query is",
	"sql:",
	"sure,",
	"certainly,",
}

// CleanQuery strips markdown code fences and common AI preamble text. It
// runs on every submission, hand-typed or generated.
func CleanQuery(raw string) string {
	text := strings.TrimSpace(raw)

	if m := codeFenceRegex.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}
	text = strings.TrimPrefix(text, "```sql")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	lower := strings.ToLower(text)
	for _, prefix := range preamblePrefixes {
		if strings.HasPrefix(lower, prefix) {
			// Drop the boilerplate line, keep whatever follows.
			if idx := strings.IndexAny(text, ":\n"); idx >= 0 {
				text = strings.TrimSpace(text[idx+1:])
			}
			break
		}
	}

	return text
}

// SplitStatements splits on semicolons and discards empty fragments. A naive
// split: semicolons inside string literals will break the statement apart,
// which is an accepted limitation of the textual approach.
func SplitStatements(query string) []string {
	parts := strings.Split(query, ";")
	statements := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			statements = append(statements, part)
		}
	}
	return statements
}

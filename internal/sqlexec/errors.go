// internal/sqlexec/errors.go
package sqlexec

import (
	"regexp"
	"strings"
)

var (
	relationMissingRegex = regexp.MustCompile(`(?i)relation "([^"]+)" does not exist`)
	columnMissingRegex   = regexp.MustCompile(`(?i)column "?([^" ]+)"? does not exist`)
)

// friendlyError rewrites recognizable PostgreSQL error messages into short
// canonical phrases. Unrecognized errors pass through untouched. Identifier
// captures run against the original message so quoted names keep their case.
func friendlyError(err error) string {
	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "syntax error"):
		return "syntax error in SQL statement"
	case relationMissingRegex.MatchString(msg):
		m := relationMissingRegex.FindStringSubmatch(msg)
		return "table \"" + m[1] + "\" does not exist"
	case columnMissingRegex.MatchString(msg):
		m := columnMissingRegex.FindStringSubmatch(msg)
		return "column \"" + m[1] + "\" does not exist"
	case strings.Contains(lower, "duplicate key"):
		return "duplicate key value violates a unique constraint"
	case strings.Contains(lower, "foreign key"):
		return "foreign key constraint violation"
	case strings.Contains(lower, "not null") || strings.Contains(lower, "null value"):
		return "NOT NULL constraint violation"
	}
	return msg
}

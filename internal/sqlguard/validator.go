// internal/sqlguard/validator.go
package sqlguard

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/termbase/termbase-backend/internal/domain"
)

// ErrAccessDenied wraps every validator rejection so the HTTP layer can map
// all of them to a single status code.
var ErrAccessDenied = errors.New("access denied")

// Regular expression for valid schema/table/column names (alphanumeric + underscore)
var nameValidationRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// IsValidIdentifier checks if a string is safe to interpolate into SQL as an
// identifier. Every schema or table name that ends up inside double quotes
// must pass this check first.
func IsValidIdentifier(name string) bool {
	return nameValidationRegex.MatchString(name) && len(name) > 0 && len(name) <= 64
}

var (
	lineCommentRegex  = regexp.MustCompile(`--[^\n]*`)
	blockCommentRegex = regexp.MustCompile(`(?s)/\*.*?\*/`)

	// identifier.identifier pairs, e.g. other_schema.orders
	qualifiedRefRegex = regexp.MustCompile(`\b([a-z_][a-z0-9_]*)\s*\.\s*[a-z_"]`)

	// references to system catalogs
	catalogRefRegex = regexp.MustCompile(`\binformation_schema\b|\bpg_[a-z_]+\b`)

	// direct reads of the shared public schema
	publicRefRegex = regexp.MustCompile(`\bpublic\s*\.\s*[a-z_"]`)

	// literal schema filters, e.g. schemaname = 'someone_else'
	schemaFilterRegex = regexp.MustCompile(`\b(?:schemaname|table_schema)\s*=\s*'([^']*)'`)

	// caller-supplied search_path assignments
	searchPathRegex = regexp.MustCompile(`\bset\s+(?:local\s+|session\s+)?search_path\s*(?:to|=)\s*([^;]+)`)
)

// Operations no tenant may ever run, plus catalogs that expose credentials.
var dangerousPatterns = []struct {
	re   *regexp.Regexp
	name string
}{
	{regexp.MustCompile(`\bdrop\s+database\b`), "DROP DATABASE"},
	{regexp.MustCompile(`\bcreate\s+database\b`), "CREATE DATABASE"},
	{regexp.MustCompile(`\bdrop\s+user\b`), "DROP USER"},
	{regexp.MustCompile(`\bcreate\s+user\b`), "CREATE USER"},
	{regexp.MustCompile(`\bgrant\b`), "GRANT"},
	{regexp.MustCompile(`\brevoke\b`), "REVOKE"},
	{regexp.MustCompile(`\bpg_authid\b`), "pg_authid"},
	{regexp.MustCompile(`\bpg_shadow\b`), "pg_shadow"},
	{regexp.MustCompile(`\bpg_user\b`), "pg_user"},
}

// normalize lower-cases, trims, and strips SQL comments so a blocked keyword
// cannot be hidden by splitting it across comment boundaries.
func normalize(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	q = blockCommentRegex.ReplaceAllString(q, " ")
	q = lineCommentRegex.ReplaceAllString(q, " ")
	return q
}

// Validate decides whether a raw SQL string is allowed to execute for the
// given tenant. Rules are applied in order; the first matching rule denies.
// Checks are textual, not a real SQL parse; a qualified column alias like
// u.name is denied unless the alias happens to equal an allowed schema.
func Validate(query string, tenant domain.Tenant) error {
	q := normalize(query)
	schema := strings.ToLower(tenant.SchemaName)

	// 1. Every identifier.identifier pair must qualify with the tenant's own
	// schema, public, or information_schema.
	for _, m := range qualifiedRefRegex.FindAllStringSubmatch(q, -1) {
		left := m[1]
		switch left {
		case schema, "public", "information_schema":
			// allowed on the left; public.<table> is rejected by rule 3
		default:
			return fmt.Errorf("%w: cannot access schema '%s'", ErrAccessDenied, left)
		}
	}

	// 2. System catalog reads must filter by the tenant's own schema.
	if catalogRefRegex.MatchString(q) && !matchesCatalogAllowList(q, schema) {
		return fmt.Errorf("%w: system catalog queries must filter by your own schema", ErrAccessDenied)
	}

	// 3. The shared public schema is off limits for tenants.
	if publicRefRegex.MatchString(q) {
		return fmt.Errorf("%w: cannot access the shared 'public' schema", ErrAccessDenied)
	}

	// 4. Dangerous operations, regardless of tenant.
	if err := CheckDangerous(query); err != nil {
		return err
	}

	// 5. A literal schema filter naming anyone else is spoofing.
	for _, m := range schemaFilterRegex.FindAllStringSubmatch(q, -1) {
		if m[1] != schema {
			return fmt.Errorf("%w: attempted to access '%s'", ErrAccessDenied, m[1])
		}
	}

	// 6. A caller may only set search_path to their own schema. The executor
	// prepends the correct assignment anyway, so anything else is escape.
	for _, m := range searchPathRegex.FindAllStringSubmatch(q, -1) {
		for _, target := range strings.Split(m[1], ",") {
			target = strings.Trim(strings.TrimSpace(target), `"'`)
			if target != schema {
				return fmt.Errorf("%w: cannot set search_path to '%s'", ErrAccessDenied, target)
			}
		}
	}

	return nil
}

// CheckDangerous rejects the fixed set of dangerous operations. The executor
// also calls this directly, so it must not depend on Validate having run.
func CheckDangerous(query string) error {
	q := normalize(query)
	for _, p := range dangerousPatterns {
		if p.re.MatchString(q) {
			return fmt.Errorf("%w: %s is not permitted", ErrAccessDenied, p.name)
		}
	}
	return nil
}

// catalogAllowPatterns builds the small allow-list of catalog queries scoped
// to one schema: information_schema views filtered by table_schema, and
// pg_tables/pg_indexes filtered by schemaname. The filter value must be the
// tenant's own schema as a literal or current_schema.
func matchesCatalogAllowList(q, schema string) bool {
	lit := regexp.QuoteMeta(schema)
	allowed := []string{
		`information_schema\s*\.\s*(?:tables|columns|table_constraints|key_column_usage)[\s\S]*table_schema\s*=\s*(?:'` + lit + `'|current_schema)`,
		`pg_tables\b[\s\S]*schemaname\s*=\s*(?:'` + lit + `'|current_schema)`,
		`pg_indexes\b[\s\S]*schemaname\s*=\s*(?:'` + lit + `'|current_schema)`,
	}
	for _, pattern := range allowed {
		if regexp.MustCompile(pattern).MatchString(q) {
			return true
		}
	}
	return false
}

package nl2sql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termbase/termbase-backend/internal/domain"
	"github.com/termbase/termbase-backend/internal/schema"
	"github.com/termbase/termbase-backend/internal/sqlexec"
)

type stubClient struct {
	completeFn     func(messages []Message) (string, error)
	completeJSONFn func(messages []Message, schemaName string) (string, error)
}

func (s *stubClient) Complete(_ context.Context, messages []Message) (string, error) {
	return s.completeFn(messages)
}

func (s *stubClient) CompleteJSON(_ context.Context, messages []Message, schemaName string, _ map[string]any) (string, error) {
	return s.completeJSONFn(messages, schemaName)
}

type stubSchemaReader struct {
	tables []string
	info   schema.SchemaInfo
}

func (s *stubSchemaReader) ListTables(context.Context, domain.Tenant) ([]string, error) {
	return s.tables, nil
}

func (s *stubSchemaReader) GetSchemaInfo(context.Context, domain.Tenant) schema.SchemaInfo {
	return s.info
}

type stubRunner struct {
	results []sqlexec.QueryResult
	queries []string
}

func (s *stubRunner) Execute(_ context.Context, _ domain.Tenant, query string) sqlexec.QueryResult {
	s.queries = append(s.queries, query)
	res := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	return res
}

func testTenant() domain.Tenant {
	return domain.NewTenant("alice@example.com")
}

func TestGenerateReturnsSQL(t *testing.T) {
	client := &stubClient{
		completeFn: func(messages []Message) (string, error) {
			return "```sql\nSELECT * FROM users\n```", nil
		},
	}
	gen := NewGenerator(client, &stubSchemaReader{})

	res := gen.Generate(context.Background(), testTenant(), "show all users", nil, "", "")

	require.True(t, res.Success)
	assert.Equal(t, "SELECT * FROM users;", res.SQLQuery)
	assert.Empty(t, res.Error)
}

func TestGenerateNonSQLBecomesExplanation(t *testing.T) {
	client := &stubClient{
		completeFn: func(messages []Message) (string, error) {
			return "I cannot answer that with SQL against this database.", nil
		},
	}
	gen := NewGenerator(client, &stubSchemaReader{})

	res := gen.Generate(context.Background(), testTenant(), "what is the weather", nil, "", "")

	require.False(t, res.Success)
	assert.Equal(t, "I cannot answer that with SQL against this database.", res.Explanation)
	assert.Contains(t, res.Error, "did not return a SQL query")
}

func TestGenerateNilClient(t *testing.T) {
	gen := NewGenerator(nil, &stubSchemaReader{})

	res := gen.Generate(context.Background(), testTenant(), "show users", nil, "", "")

	require.False(t, res.Success)
	assert.Contains(t, res.Error, "AI_API_KEY")
}

func TestGenerateCorrectionPromptCarriesFailureVerbatim(t *testing.T) {
	var capturedSystem string
	client := &stubClient{
		completeFn: func(messages []Message) (string, error) {
			capturedSystem = messages[0].Content
			return "SELECT name FROM users;", nil
		},
	}
	gen := NewGenerator(client, &stubSchemaReader{})

	prevQuery := `SELECT nmae FROM users;`
	prevError := `column "nmae" does not exist`
	res := gen.Generate(context.Background(), testTenant(), "show user names", nil, prevError, prevQuery)

	require.True(t, res.Success)
	assert.Contains(t, capturedSystem, "ERROR CORRECTION MODE")
	assert.Contains(t, capturedSystem, prevQuery)
	assert.Contains(t, capturedSystem, prevError)
}

func TestGenerateAndExecuteRetriesOnFailure(t *testing.T) {
	calls := 0
	client := &stubClient{
		completeFn: func(messages []Message) (string, error) {
			calls++
			if calls == 1 {
				return "SELECT nmae FROM users", nil
			}
			return "SELECT name FROM users", nil
		},
	}
	gen := NewGenerator(client, &stubSchemaReader{})
	runner := &stubRunner{results: []sqlexec.QueryResult{
		{Success: false, Error: `column "nmae" does not exist`},
		{Success: true, Columns: []string{"name"}},
	}}

	genRes, execRes := gen.GenerateAndExecute(context.Background(), testTenant(), "show user names", nil, runner)

	require.True(t, genRes.Success)
	assert.Equal(t, 2, genRes.Attempts)
	assert.Equal(t, "SELECT name FROM users;", genRes.SQLQuery)
	assert.True(t, execRes.Success)
	assert.Len(t, runner.queries, 2)
}

func TestGenerateAndExecuteStopsAfterRetryLimit(t *testing.T) {
	client := &stubClient{
		completeFn: func(messages []Message) (string, error) {
			return "SELECT nmae FROM users", nil
		},
	}
	gen := NewGenerator(client, &stubSchemaReader{})
	runner := &stubRunner{results: []sqlexec.QueryResult{
		{Success: false, Error: `column "nmae" does not exist`},
	}}

	genRes, execRes := gen.GenerateAndExecute(context.Background(), testTenant(), "show user names", nil, runner)

	require.False(t, genRes.Success)
	assert.Equal(t, 3, genRes.Attempts)
	assert.Contains(t, genRes.Error, "after 3 attempt(s)")
	assert.False(t, execRes.Success)
	assert.Len(t, runner.queries, 3)
}

func TestGenerateAndExecuteDoesNotExecuteNonSQL(t *testing.T) {
	client := &stubClient{
		completeFn: func(messages []Message) (string, error) {
			return "Sorry, I can only help with database questions.", nil
		},
	}
	gen := NewGenerator(client, &stubSchemaReader{})
	runner := &stubRunner{results: []sqlexec.QueryResult{{Success: true}}}

	genRes, _ := gen.GenerateAndExecute(context.Background(), testTenant(), "tell me a joke", nil, runner)

	require.False(t, genRes.Success)
	assert.Empty(t, runner.queries)
}

func TestEnsureSemicolon(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"adds terminator", "SELECT 1", "SELECT 1;"},
		{"collapses duplicates", "SELECT 1;;;", "SELECT 1;"},
		{"trims trailing whitespace", "SELECT 1 ;  \n", "SELECT 1;"},
		{"empty stays empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ensureSemicolon(tt.input))
		})
	}
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, "SELECT 1", stripFences("```sql\nSELECT 1\n```"))
	assert.Equal(t, "SELECT 1", stripFences("```\nSELECT 1\n```"))
	assert.Equal(t, "SELECT 1", stripFences("  SELECT 1  "))
}

func TestGenerateAcceptsCTEQuery(t *testing.T) {
	client := &stubClient{
		completeFn: func(messages []Message) (string, error) {
			return "WITH recent AS (SELECT * FROM orders) SELECT * FROM recent", nil
		},
	}
	gen := NewGenerator(client, &stubSchemaReader{})

	res := gen.Generate(context.Background(), testTenant(), "show recent orders", nil, "", "")

	require.True(t, res.Success)
	assert.Equal(t, "WITH recent AS (SELECT * FROM orders) SELECT * FROM recent;", res.SQLQuery)
}

func TestSQLVerbRegex(t *testing.T) {
	assert.True(t, sqlVerbRegex.MatchString("-- fetch everything\nSELECT * FROM users"))
	assert.True(t, sqlVerbRegex.MatchString("WITH recent AS (SELECT * FROM orders) SELECT * FROM recent"))
	assert.True(t, sqlVerbRegex.MatchString("EXPLAIN SELECT * FROM users"))
	assert.False(t, sqlVerbRegex.MatchString("The users table selects nothing"))
}

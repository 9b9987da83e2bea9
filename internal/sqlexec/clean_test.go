// internal/sqlexec/clean_test.go
package sqlexec

import (
	"reflect"
	"testing"
)

func TestCleanQuery(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"plain sql untouched", "SELECT * FROM users;", "SELECT * FROM users;"},
		{"fenced sql block", "```sql\nSELECT 1;\n```", "SELECT 1;"},
		{"bare fence", "```\nSELECT 1;\n```", "SELECT 1;"},
		{"preamble line", "The SQL query is:\nSELECT 1;", "SELECT 1;"},
		{"here's preamble", "Here's the SQL:\nINSERT INTO t VALUES (1);", "INSERT INTO t VALUES (1);"},
		{"whitespace trimmed", "   SELECT 1;   ", "SELECT 1;"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := CleanQuery(tc.input)
			if got != tc.want {
				t.Errorf("CleanQuery(%q) = %q; want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestSplitStatements(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  []string
	}{
		{"single", "SELECT 1", []string{"SELECT 1"}},
		{"single with semicolon", "SELECT 1;", []string{"SELECT 1"}},
		{"multiple", "CREATE TABLE t (id int); INSERT INTO t VALUES (1); SELECT * FROM t;",
			[]string{"CREATE TABLE t (id int)", "INSERT INTO t VALUES (1)", "SELECT * FROM t"}},
		{"blank fragments dropped", ";;  ; SELECT 1 ;;", []string{"SELECT 1"}},
		{"empty input", "   ", []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := SplitStatements(tc.input)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("SplitStatements(%q) = %#v; want %#v", tc.input, got, tc.want)
			}
		})
	}
}

func TestHasSearchPath(t *testing.T) {
	if !hasSearchPath([]string{`SET search_path TO "alice"`, "SELECT 1"}) {
		t.Error("explicit search_path not detected")
	}
	if hasSearchPath([]string{"SELECT 1", "INSERT INTO t VALUES (1)"}) {
		t.Error("search_path detected where none exists")
	}
}

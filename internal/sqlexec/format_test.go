// internal/sqlexec/format_test.go
package sqlexec

import (
	"errors"
	"strings"
	"testing"
)

func TestFormatQueryResultFailure(t *testing.T) {
	out := FormatQueryResult(QueryResult{Success: false, Error: "table \"users\" does not exist"})
	want := "ERROR: table \"users\" does not exist"
	if out != want {
		t.Errorf("FormatQueryResult failure = %q; want %q", out, want)
	}
}

func TestFormatQueryResultMessage(t *testing.T) {
	out := FormatQueryResult(QueryResult{Success: true, Message: "2 row(s) affected"})
	if out != "2 row(s) affected" {
		t.Errorf("FormatQueryResult message = %q; want the message verbatim", out)
	}
}

func TestFormatQueryResultZeroRowSelect(t *testing.T) {
	out := FormatQueryResult(QueryResult{Success: true, Columns: []string{"id"}})
	if out != "0 row(s) selected." {
		t.Errorf("FormatQueryResult zero-row select = %q; want %q", out, "0 row(s) selected.")
	}
}

func TestFormatQueryResultTable(t *testing.T) {
	res := QueryResult{
		Success: true,
		Columns: []string{"id", "name"},
		Data: []map[string]any{
			{"id": int64(1), "name": "alice"},
			{"id": int64(2), "name": "bo"},
		},
		RowCount: 2,
	}
	out := FormatQueryResult(res)
	lines := strings.Split(out, "\n")

	if lines[0] != "id | name " {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "---+------" {
		t.Errorf("separator = %q; want dashes sized to widest value", lines[1])
	}
	if lines[2] != "1  | alice" {
		t.Errorf("row 1 = %q", lines[2])
	}
	if lines[3] != "2  | bo   " {
		t.Errorf("row 2 = %q", lines[3])
	}
	if !strings.Contains(out, "2 row(s) selected.") {
		t.Errorf("output missing trailing row count: %q", out)
	}
}

func TestFormatValue(t *testing.T) {
	if got := FormatValue(nil); got != "NULL" {
		t.Errorf("nil = %q; want NULL", got)
	}
	if got := FormatValue("x"); got != "x" {
		t.Errorf("string = %q", got)
	}
	if got := FormatValue(int64(7)); got != "7" {
		t.Errorf("int64 = %q", got)
	}
}

func TestFriendlyError(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"syntax", `ERROR: syntax error at or near "selct" (SQLSTATE 42601)`, "syntax error in SQL statement"},
		{"relation", `ERROR: relation "orders" does not exist (SQLSTATE 42P01)`, `table "orders" does not exist`},
		{"column", `ERROR: column "email" does not exist (SQLSTATE 42703)`, `column "email" does not exist`},
		{"relation keeps identifier case", `ERROR: relation "Orders" does not exist (SQLSTATE 42P01)`, `table "Orders" does not exist`},
		{"column keeps identifier case", `ERROR: column "NMAE" does not exist (SQLSTATE 42703)`, `column "NMAE" does not exist`},
		{"duplicate", `ERROR: duplicate key value violates unique constraint "users_pkey"`, "duplicate key value violates a unique constraint"},
		{"foreign key", `ERROR: insert or update on table "orders" violates foreign key constraint`, "foreign key constraint violation"},
		{"not null", `ERROR: null value in column "name" violates not-null constraint`, "NOT NULL constraint violation"},
		{"passthrough", "ERROR: something unusual happened", "ERROR: something unusual happened"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := friendlyError(errors.New(tc.input))
			if got != tc.want {
				t.Errorf("friendlyError(%q) = %q; want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestStatementError(t *testing.T) {
	msg := statementError(1, "SELECT * FROM missing", errors.New(`relation "missing" does not exist`))
	if !strings.Contains(msg, "statement 2") {
		t.Errorf("statementError missing 1-based index: %q", msg)
	}
	if !strings.Contains(msg, "SELECT * FROM missing") {
		t.Errorf("statementError missing statement text: %q", msg)
	}
}

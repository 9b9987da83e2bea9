// Package sqlexec executes raw, possibly multi-statement SQL for one tenant
// against the shared PostgreSQL database. Every call re-asserts the tenant's
// search_path before running anything: the pool hands out arbitrary
// connections, so no session state can be assumed to survive between calls.
package sqlexec

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/termbase/termbase-backend/internal/domain"
	"github.com/termbase/termbase-backend/internal/logger"
	"github.com/termbase/termbase-backend/internal/sqlguard"
)

var customLog = logger.NewLogger()

var ErrEmptyQuery = errors.New("query is empty")

// QueryResult is the uniform outcome of one Execute call, independent of
// statement count or type (SELECT vs DDL/DML).
type QueryResult struct {
	Success  bool             `json:"success"`
	Columns  []string         `json:"columns,omitempty"`
	Data     []map[string]any `json:"data,omitempty"`
	RowCount int              `json:"row_count"`
	Message  string           `json:"message,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func failure(msg string) QueryResult {
	return QueryResult{Success: false, Error: msg}
}

// DB is the subset of *pgxpool.Pool the executor needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Executor runs tenant queries against the shared database.
type Executor struct {
	db DB
}

func NewExecutor(db DB) *Executor {
	return &Executor{db: db}
}

// Execute validates, scopes, and runs a raw query for the tenant. All
// statements in the submission run inside one transaction: either every
// statement succeeds, or the whole batch rolls back and the failure names
// the first failing statement.
func (e *Executor) Execute(ctx context.Context, tenant domain.Tenant, rawQuery string) QueryResult {
	rawQuery = strings.TrimSpace(rawQuery)
	if rawQuery == "" {
		return failure(ErrEmptyQuery.Error())
	}

	if err := sqlguard.Validate(rawQuery, tenant); err != nil {
		return failure(err.Error())
	}
	if err := sqlguard.CheckDangerous(rawQuery); err != nil {
		return failure(err.Error())
	}
	if !sqlguard.IsValidIdentifier(tenant.SchemaName) {
		return failure(fmt.Sprintf("invalid workspace name '%s'", tenant.SchemaName))
	}

	// Lazy workspace creation. Deliberately outside the statement
	// transaction: an empty schema may be left behind if the query fails.
	if _, err := e.db.Exec(ctx, `CREATE SCHEMA IF NOT EXISTS "`+tenant.SchemaName+`"`); err != nil {
		customLog.Warnf("Executor: schema creation failed for %s: %v", tenant.SchemaName, err)
		return failure("failed to set up user workspace")
	}

	statements := SplitStatements(CleanQuery(rawQuery))
	if len(statements) == 0 {
		return failure("query contains no executable statements")
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		customLog.Warnf("Executor: begin failed for %s: %v", tenant.Username, err)
		return failure("failed to start transaction")
	}
	defer tx.Rollback(ctx)

	// Scope the transaction unless the caller already set their own (the
	// validator only lets their own schema through). Running this outside
	// the statement loop keeps reported statement indices user-relative.
	if !hasSearchPath(statements) {
		if _, err := tx.Exec(ctx, `SET search_path TO "`+tenant.SchemaName+`"`); err != nil {
			customLog.Warnf("Executor: search_path failed for %s: %v", tenant.SchemaName, err)
			return failure("failed to scope session to workspace")
		}
	}

	var (
		columns    []string
		data       []map[string]any
		affected   int64
		anyRowSets bool
	)

	for i, stmt := range statements {
		rows, err := tx.Query(ctx, stmt)
		if err != nil {
			return failure(statementError(i, stmt, err))
		}

		fds := rows.FieldDescriptions()
		if len(fds) > 0 {
			cols := make([]string, len(fds))
			for j, fd := range fds {
				cols[j] = fd.Name
			}
			for rows.Next() {
				vals, err := rows.Values()
				if err != nil {
					rows.Close()
					return failure(statementError(i, stmt, err))
				}
				rowData := make(map[string]any, len(cols))
				for j, col := range cols {
					rowData[col] = vals[j]
				}
				data = append(data, rowData)
			}
			if rows.Err() == nil {
				anyRowSets = true
				columns = cols
			}
		} else {
			// Drain so the command tag becomes available.
			for rows.Next() {
			}
		}
		tag := rows.CommandTag()
		rows.Close()
		if err := rows.Err(); err != nil {
			return failure(statementError(i, stmt, err))
		}
		if len(fds) == 0 {
			affected += tag.RowsAffected()
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return failure("failed to commit transaction: " + friendlyError(err))
	}

	res := QueryResult{Success: true, Columns: columns, Data: data}
	if anyRowSets {
		res.RowCount = len(data)
		if len(data) == 0 {
			res.Message = "0 row(s) selected."
		}
	} else {
		res.RowCount = int(affected)
		if affected > 0 {
			res.Message = fmt.Sprintf("%d row(s) affected", affected)
		} else {
			res.Message = "Query executed successfully."
		}
	}
	return res
}

// statementError names the failing statement so multi-statement submissions
// report where the batch stopped.
func statementError(index int, stmt string, err error) string {
	display := stmt
	if len(display) > 120 {
		display = display[:120] + "..."
	}
	return fmt.Sprintf("statement %d (%s) failed: %s", index+1, display, friendlyError(err))
}

// hasSearchPath reports whether the caller already scoped the batch.
func hasSearchPath(statements []string) bool {
	for _, stmt := range statements {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(stmt)), "set search_path") {
			return true
		}
	}
	return false
}

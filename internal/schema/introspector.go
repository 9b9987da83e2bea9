// Package schema introspects a tenant's PostgreSQL schema: tables, columns,
// constraints, row contents, and the auxiliary facts the AI layer needs to
// avoid primary-key collisions. Snapshots are recomputed on demand; staleness
// between introspection and execution is tolerated.
package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/termbase/termbase-backend/internal/domain"
	"github.com/termbase/termbase-backend/internal/logger"
	"github.com/termbase/termbase-backend/internal/sqlguard"
)

var customLog = logger.NewLogger()

// Row data bounds: tables at or under fullRowThreshold are included whole,
// larger ones contribute the first headSampleRows plus the last tailSampleRows.
const (
	fullRowThreshold = 50
	headSampleRows   = 10
	tailSampleRows   = 5
)

// ColumnInfo is a read-only snapshot of one column.
type ColumnInfo struct {
	Name         string `json:"name"`
	DataType     string `json:"data_type"`
	Nullable     bool   `json:"nullable"`
	Default      string `json:"default,omitempty"`
	IsPrimaryKey bool   `json:"is_primary_key"`
}

// TableInfo is a read-only snapshot of one table, including row contents and
// the next available value per integer primary-key column.
type TableInfo struct {
	Name      string           `json:"name"`
	Columns   []ColumnInfo     `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int64            `json:"row_count"`
	Truncated bool             `json:"truncated"`
	NextIDs   map[string]int64 `json:"next_ids,omitempty"`
}

// SchemaInfo is the full snapshot of a tenant's schema.
type SchemaInfo struct {
	SchemaName  string      `json:"schema_name"`
	Tables      []TableInfo `json:"tables"`
	TotalTables int         `json:"total_tables"`
}

// Introspector reads tenant schema metadata from the shared pool.
type Introspector struct {
	pool *pgxpool.Pool
}

func NewIntrospector(pool *pgxpool.Pool) *Introspector {
	return &Introspector{pool: pool}
}

// ListTables returns the tenant's table names. This is a trusted internal
// read bound by a schemaname parameter, so it does not pass the validator.
func (in *Introspector) ListTables(ctx context.Context, tenant domain.Tenant) ([]string, error) {
	rows, err := in.pool.Query(ctx,
		`SELECT tablename FROM pg_tables WHERE schemaname = $1 ORDER BY tablename`,
		tenant.SchemaName)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// GetSchemaInfo builds the full snapshot. It never fails the caller: on
// internal error it logs and returns an empty snapshot.
func (in *Introspector) GetSchemaInfo(ctx context.Context, tenant domain.Tenant) SchemaInfo {
	info := SchemaInfo{SchemaName: tenant.SchemaName, Tables: []TableInfo{}}

	names, err := in.ListTables(ctx, tenant)
	if err != nil {
		customLog.Warnf("Introspector: listing tables for %s failed: %v", tenant.SchemaName, err)
		return info
	}

	for _, name := range names {
		table, err := in.inspectTable(ctx, tenant, name)
		if err != nil {
			customLog.Warnf("Introspector: inspecting %s.%s failed: %v", tenant.SchemaName, name, err)
			continue
		}
		info.Tables = append(info.Tables, table)
	}
	info.TotalTables = len(info.Tables)
	return info
}

// FilterTables narrows a snapshot to the named tables, preserving order.
func FilterTables(info SchemaInfo, names []string) SchemaInfo {
	if len(names) == 0 {
		return SchemaInfo{SchemaName: info.SchemaName, Tables: []TableInfo{}}
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[strings.ToLower(n)] = true
	}
	filtered := SchemaInfo{SchemaName: info.SchemaName, Tables: []TableInfo{}}
	for _, table := range info.Tables {
		if wanted[strings.ToLower(table.Name)] {
			filtered.Tables = append(filtered.Tables, table)
		}
	}
	filtered.TotalTables = len(filtered.Tables)
	return filtered
}

func (in *Introspector) inspectTable(ctx context.Context, tenant domain.Tenant, tableName string) (TableInfo, error) {
	table := TableInfo{Name: tableName, NextIDs: map[string]int64{}}

	cols, err := in.loadColumns(ctx, tenant.SchemaName, tableName)
	if err != nil {
		return table, err
	}
	table.Columns = cols

	if !sqlguard.IsValidIdentifier(tableName) {
		// pg_tables should only yield valid names; refuse to interpolate otherwise.
		return table, fmt.Errorf("table name %q is not a safe identifier", tableName)
	}
	qualified := `"` + tenant.SchemaName + `"."` + tableName + `"`

	if err := in.pool.QueryRow(ctx, `SELECT count(*) FROM `+qualified).Scan(&table.RowCount); err != nil {
		return table, fmt.Errorf("failed to count rows: %w", err)
	}

	if err := in.loadRows(ctx, qualified, &table); err != nil {
		return table, err
	}

	for _, col := range cols {
		if !col.IsPrimaryKey || !isIntegerType(col.DataType) {
			continue
		}
		if !sqlguard.IsValidIdentifier(col.Name) {
			continue
		}
		var max *int64
		query := `SELECT MAX("` + col.Name + `") FROM ` + qualified
		if err := in.pool.QueryRow(ctx, query).Scan(&max); err != nil {
			customLog.Warnf("Introspector: max(%s) on %s failed: %v", col.Name, qualified, err)
			continue
		}
		if max != nil {
			table.NextIDs[col.Name] = *max + 1
		} else {
			table.NextIDs[col.Name] = 1
		}
	}

	return table, nil
}

func (in *Introspector) loadColumns(ctx context.Context, schemaName, tableName string) ([]ColumnInfo, error) {
	query := `
		SELECT c.column_name, c.data_type, c.is_nullable = 'YES', COALESCE(c.column_default, ''),
		       EXISTS (
		           SELECT 1
		           FROM information_schema.table_constraints tc
		           JOIN information_schema.key_column_usage kcu
		             ON tc.constraint_name = kcu.constraint_name
		            AND tc.table_schema = kcu.table_schema
		           WHERE tc.table_schema = c.table_schema
		             AND tc.table_name = c.table_name
		             AND tc.constraint_type = 'PRIMARY KEY'
		             AND kcu.column_name = c.column_name
		       )
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position`

	rows, err := in.pool.Query(ctx, query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to load columns: %w", err)
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var col ColumnInfo
		if err := rows.Scan(&col.Name, &col.DataType, &col.Nullable, &col.Default, &col.IsPrimaryKey); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

// loadRows fills in the table's row contents: everything for small tables,
// a head+tail sample for large ones, ordered by the first column.
func (in *Introspector) loadRows(ctx context.Context, qualified string, table *TableInfo) error {
	if table.RowCount == 0 || len(table.Columns) == 0 {
		table.Rows = []map[string]any{}
		return nil
	}

	firstCol := table.Columns[0].Name
	if !sqlguard.IsValidIdentifier(firstCol) {
		return fmt.Errorf("column name %q is not a safe identifier", firstCol)
	}
	orderBy := ` ORDER BY "` + firstCol + `"`

	if table.RowCount <= fullRowThreshold {
		rows, err := in.queryRows(ctx, `SELECT * FROM `+qualified+orderBy)
		if err != nil {
			return err
		}
		table.Rows = rows
		return nil
	}

	head, err := in.queryRows(ctx, fmt.Sprintf(`SELECT * FROM %s%s LIMIT %d`, qualified, orderBy, headSampleRows))
	if err != nil {
		return err
	}
	tail, err := in.queryRows(ctx, fmt.Sprintf(
		`SELECT * FROM (SELECT * FROM %s ORDER BY "%s" DESC LIMIT %d) t ORDER BY "%s"`,
		qualified, firstCol, tailSampleRows, firstCol))
	if err != nil {
		return err
	}
	table.Rows = append(head, tail...)
	table.Truncated = true
	return nil
}

func (in *Introspector) queryRows(ctx context.Context, query string) ([]map[string]any, error) {
	rows, err := in.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}

	out := make([]map[string]any, 0)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}
		rowData := make(map[string]any, len(cols))
		for i, col := range cols {
			rowData[col] = vals[i]
		}
		out = append(out, rowData)
	}
	return out, rows.Err()
}

func isIntegerType(dataType string) bool {
	switch strings.ToLower(dataType) {
	case "integer", "bigint", "smallint":
		return true
	}
	return false
}

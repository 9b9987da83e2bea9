// internal/schema/format.go
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/termbase/termbase-backend/internal/sqlexec"
)

// FormatForAI renders a schema snapshot as deterministic text for the model.
// This text is the only channel by which the AI layer learns the tenant's
// data, so it must be self-contained: column annotations, row contents, and
// the next available primary key values all appear inline.
func FormatForAI(info SchemaInfo) string {
	var b strings.Builder

	if info.TotalTables == 0 {
		fmt.Fprintf(&b, "Schema %q currently contains no tables.\n", info.SchemaName)
		return b.String()
	}

	fmt.Fprintf(&b, "Schema %q contains %d table(s).\n", info.SchemaName, info.TotalTables)
	for _, table := range info.Tables {
		b.WriteByte('\n')
		fmt.Fprintf(&b, "Table: %s (%d row(s))\n", table.Name, table.RowCount)
		b.WriteString("Columns:\n")
		for _, col := range table.Columns {
			fmt.Fprintf(&b, "  - %s: %s", col.Name, col.DataType)
			if !col.Nullable {
				b.WriteString(" NOT NULL")
			}
			if col.Default != "" {
				fmt.Fprintf(&b, " DEFAULT %s", col.Default)
			}
			if col.IsPrimaryKey {
				b.WriteString(" PRIMARY KEY")
			}
			b.WriteByte('\n')
		}

		if len(table.Rows) == 0 {
			b.WriteString("Data: (EMPTY - no rows)\n")
		} else {
			if table.Truncated {
				fmt.Fprintf(&b, "Data (sampled, %d of %d rows):\n", len(table.Rows), table.RowCount)
			} else {
				b.WriteString("Data (all rows):\n")
			}
			writeRowText(&b, table)
		}

		if len(table.NextIDs) > 0 {
			b.WriteString("CRITICAL: next available primary key values: ")
			b.WriteString(nextIDText(table.NextIDs))
			b.WriteByte('\n')
		}
	}

	return b.String()
}

func writeRowText(b *strings.Builder, table TableInfo) {
	cols := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		cols[i] = col.Name
	}
	fmt.Fprintf(b, "  %s\n", strings.Join(cols, " | "))
	for _, row := range table.Rows {
		cells := make([]string, len(cols))
		for i, col := range cols {
			cells[i] = sqlexec.FormatValue(row[col])
		}
		fmt.Fprintf(b, "  %s\n", strings.Join(cells, " | "))
	}
}

// nextIDText renders the per-column hints in sorted order so output is
// deterministic regardless of map iteration.
func nextIDText(nextIDs map[string]int64) string {
	cols := make([]string, 0, len(nextIDs))
	for col := range nextIDs {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = fmt.Sprintf("%s=%d", col, nextIDs[col])
	}
	return strings.Join(parts, ", ")
}

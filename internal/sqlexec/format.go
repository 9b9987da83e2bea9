// internal/sqlexec/format.go
package sqlexec

import (
	"fmt"
	"strings"
	"time"
)

// FormatQueryResult renders a QueryResult as terminal text: a fixed-width,
// pipe-delimited table for row data, the plain message for row-less success,
// and "ERROR: <message>" for failure.
func FormatQueryResult(res QueryResult) string {
	if !res.Success {
		return "ERROR: " + res.Error
	}
	if len(res.Data) == 0 {
		// A SELECT that matched nothing still carries columns; it must not
		// render as an empty string.
		if res.Message == "" && len(res.Columns) > 0 {
			return "0 row(s) selected."
		}
		return res.Message
	}

	cols := res.Columns
	if len(cols) == 0 {
		for col := range res.Data[0] {
			cols = append(cols, col)
		}
	}

	widths := make([]int, len(cols))
	for i, col := range cols {
		widths[i] = len(col)
	}
	cells := make([][]string, len(res.Data))
	for r, row := range res.Data {
		cells[r] = make([]string, len(cols))
		for i, col := range cols {
			cell := FormatValue(row[col])
			cells[r][i] = cell
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	for i, col := range cols {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(pad(col, widths[i]))
	}
	b.WriteByte('\n')
	for i := range cols {
		if i > 0 {
			b.WriteString("-+-")
		}
		b.WriteString(strings.Repeat("-", widths[i]))
	}
	for _, row := range cells {
		b.WriteByte('\n')
		for i, cell := range row {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(pad(cell, widths[i]))
		}
	}
	b.WriteString(fmt.Sprintf("\n\n%d row(s) selected.", len(res.Data)))
	return b.String()
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// FormatValue renders one cell for terminal or AI-facing output.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case []byte:
		return fmt.Sprintf("\\x%x", val)
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

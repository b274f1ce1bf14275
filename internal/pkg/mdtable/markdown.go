package mdtable

import (
	"fmt"
	"strings"
)

// ToMarkdown renders the page tables back into pipe tables, one section per
// table.
func ToMarkdown(page *Page) string {
	var builder strings.Builder
	if page.Title != "" {
		builder.WriteString(fmt.Sprintf("# %s\n\n", page.Title))
	}

	for _, table := range page.Tables {
		if len(table.Rows) == 0 {
			continue
		}
		title := table.Caption
		if title == "" {
			title = fmt.Sprintf("Table %d", table.Index)
		}
		builder.WriteString(fmt.Sprintf("## %s\n\n", title))
		builder.WriteString(TableToMarkdown(table))
		builder.WriteString("\n")
	}

	return builder.String()
}

// TableToMarkdown renders a single table. The first row is the header.
func TableToMarkdown(table *Table) string {
	var builder strings.Builder
	if len(table.Rows) == 0 {
		return ""
	}

	numCols := table.Width()
	writeRow := func(row []string) {
		builder.WriteString("|")
		for j := 0; j < numCols; j++ {
			var cell string
			if j < len(row) {
				cell = row[j]
			}
			cell = strings.TrimSpace(strings.ReplaceAll(cell, "\n", " "))
			cell = strings.ReplaceAll(cell, "|", `\|`)
			builder.WriteString(fmt.Sprintf(" %s |", cell))
		}
		builder.WriteString("\n")
	}

	writeRow(table.Rows[0])
	builder.WriteString("|")
	for j := 0; j < numCols; j++ {
		builder.WriteString(" --- |")
	}
	builder.WriteString("\n")
	for _, row := range table.Rows[1:] {
		writeRow(row)
	}

	return builder.String()
}

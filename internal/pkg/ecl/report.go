package ecl

import (
	"fmt"
	"strings"
)

// Markdown renders results as a reconciliation report: a summary per stage
// followed by the rows that do not balance.
func Markdown(results []*Result) string {
	var b strings.Builder
	b.WriteString("# Reconciliação ECL\n\n")

	summary := Summarize(results)
	if len(summary) == 0 {
		b.WriteString("Nenhuma tabela de estágio encontrada.\n")
		return b.String()
	}

	b.WriteString("| Estágio | Tabelas | Linhas | Conferem | Divergem | Ilegíveis |\n")
	b.WriteString("| --- | ---: | ---: | ---: | ---: | ---: |\n")
	for _, s := range summary {
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %d | %d |\n",
			s.Stage, s.Tables, s.Rows, s.Balanced, s.Unbalanced, s.Unparseable)
	}

	for _, r := range results {
		bad := r.Unbalanced()
		if len(bad) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s p%d tabela %d (%s)\n\n", r.Table.Report, r.Table.Page, r.Table.Index, r.Table.Stage)
		b.WriteString("| Categoria | Saldo inicial | Movimentos | Esperado | Saldo final | Diferença |\n")
		b.WriteString("| --- | ---: | ---: | ---: | ---: | ---: |\n")
		for _, f := range bad {
			if f.Unparseable {
				fmt.Fprintf(&b, "| %s | ilegível: %s | | | | |\n", escape(f.Category), escape(strings.Join(f.Problems, "; ")))
				continue
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
				escape(f.Category), f.Opening, f.Movements, f.Expected, f.Closing, f.Difference)
		}
	}
	return b.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

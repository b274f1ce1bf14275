package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"eclreports/internal/pkg/ecl"
	"eclreports/internal/pkg/mdtable"
	"eclreports/internal/pkg/period"
	"eclreports/internal/pkg/pipeline"
)

func newReconcileCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "reconcile <markdown...>",
		Short: "Check closing = opening + movements on every loss stage row",
		Long: `Reads OCR markdown pages, finds the Estágio 1/2/3 and Consolidado movement
tables and prints a report of the rows whose closing balance does not match.
Nothing is written to disk and no value is corrected.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tol, err := toleranceValue()
			if err != nil {
				return err
			}
			extractor := pipeline.NewExtractor(nil, tol, 1)

			var results []*ecl.Result
			for _, path := range args {
				content, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				page, err := mdtable.Parse(content)
				if err != nil {
					return fmt.Errorf("parse %s: %w", path, err)
				}

				report, pageNo := "", 0
				if ref, err := period.ParseMarkdownName(path); err == nil {
					report, pageNo = ref.Report.String(), ref.Page
				}
				results = append(results, extractor.Reconcile(report, pageNo, page.Tables)...)
			}

			return printMarkdown(cmd.OutOrStdout(), ecl.Markdown(results), raw)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print plain markdown instead of rendering it")
	return cmd
}

// printMarkdown renders with glamour when writing to a terminal.
func printMarkdown(w io.Writer, markdown string, raw bool) error {
	f, ok := w.(*os.File)
	if raw || !ok || !term.IsTerminal(int(f.Fd())) {
		_, err := io.WriteString(w, markdown)
		return err
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}
	out, err := renderer.Render(markdown)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

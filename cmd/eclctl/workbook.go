package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"eclreports/internal/pkg/compile"
	"eclreports/internal/pkg/period"
	"eclreports/internal/pkg/workbook"
)

func newWorkbookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workbook",
		Short: "Export all-tables CSV files to Excel",
	}
	cmd.AddCommand(
		newWorkbookSubCmd("page", "One sheet per report page", workbook.DefaultPageOutput,
			func(e *workbook.Exporter, files []period.PageFile, out string) error { return e.ByPage(files, out) }),
		newWorkbookSubCmd("trimester", "One sheet per report, pages stacked", workbook.DefaultTrimesterOutput,
			func(e *workbook.Exporter, files []period.PageFile, out string) error { return e.ByTrimester(files, out) }),
	)
	return cmd
}

func newWorkbookSubCmd(use, short, defaultName string, export func(*workbook.Exporter, []period.PageFile, string) error) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = filepath.Join(outputDir, defaultName)
			}
			files, err := compile.Discover(outputDir)
			if err != nil {
				return err
			}
			if err := export(workbook.NewExporter(), files, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s from %d pages\n", out, len(files))
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default <output-dir>/"+defaultName+")")
	return cmd
}

package main

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"eclreports/internal/config"
	xlog "eclreports/internal/log"
)

var (
	cfg *config.Config

	// Global flags
	inputDir  string
	outputDir string
	tolerance string
	workers   int
	logLevel  string
)

func newRootCmd() *cobra.Command {
	if cfg == nil {
		loaded, err := config.LoadConfig()
		if err != nil {
			panic(err)
		}
		cfg = loaded
	}

	root := &cobra.Command{
		Use:   "eclctl",
		Short: "Extract, compile and reconcile ECL movement tables from OCR pages",
		Long: `eclctl turns OCR markdown pages of quarterly financial statements into
per-table CSV files, compiled CSV and Excel workbooks, and a reconciliation
report of the expected credit loss movement tables (Estágio 1/2/3, Consolidado).

Values are never corrected: rows whose closing balance does not match the
opening balance plus movements are reported as they were read.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			xlog.Configure(xlog.Config{Level: logLevel, Service: "eclctl"})
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&inputDir, "input-dir", cfg.InputDir, "directory holding ocr_md_<report>_p<page>.md files")
	flags.StringVar(&outputDir, "output-dir", cfg.OutputDir, "directory receiving csv_* folders and compiled files")
	flags.StringVar(&tolerance, "tolerance", cfg.Tolerance.String(), "largest difference still considered balanced")
	flags.IntVar(&workers, "workers", cfg.Workers, "pages processed concurrently")
	flags.StringVar(&logLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	root.AddCommand(newExtractCmd(), newCompileCmd(), newWorkbookCmd(), newReconcileCmd())
	return root
}

func toleranceValue() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(tolerance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid --tolerance %q: %w", tolerance, err)
	}
	return d, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

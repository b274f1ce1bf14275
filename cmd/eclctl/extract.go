package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"eclreports/internal/db"
	"eclreports/internal/pkg/ecl"
	"eclreports/internal/pkg/pipeline"
	"eclreports/internal/store"
)

func newExtractCmd() *cobra.Command {
	var (
		manifestPath string
		report       string
		page         int
		persist      bool
	)

	cmd := &cobra.Command{
		Use:   "extract [markdown...]",
		Short: "Write per-table and all-tables CSV files for OCR pages",
		Long: `Extracts every table of the given OCR markdown pages, or of every page listed
in a YAML manifest, into csv_<report>_p<page>/ folders under --output-dir.

Example:
  eclctl extract --manifest pages.yaml
  eclctl extract ocr_md_1T22_p46.md
  eclctl extract scan.md --report 1T22 --page 46`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tol, err := toleranceValue()
			if err != nil {
				return err
			}

			var st pipeline.Store
			if persist {
				conn, err := db.InitDB(cfg.DatabaseURL)
				if err != nil {
					return err
				}
				if err := db.Migrate(conn); err != nil {
					return err
				}
				st = store.New(conn)
			}
			extractor := pipeline.NewExtractor(st, tol, workers)

			var refs []pipeline.PageRef
			switch {
			case manifestPath != "":
				m, err := pipeline.LoadManifest(manifestPath)
				if err != nil {
					return err
				}
				if m.InputDir == "" {
					m.InputDir = inputDir
				}
				if m.OutputDir == "" {
					m.OutputDir = outputDir
				}
				refs, err = m.Pages()
				if err != nil {
					return err
				}
			case len(args) > 0:
				if report != "" && len(args) > 1 {
					return fmt.Errorf("--report and --page apply to a single file")
				}
				for _, path := range args {
					ref, err := pipeline.SinglePage(path, outputDir, report, page)
					if err != nil {
						return err
					}
					refs = append(refs, ref)
				}
			default:
				return fmt.Errorf("give markdown files or --manifest")
			}

			results, err := extractor.RunPages(cmd.Context(), refs)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var all []*ecl.Result
			for _, r := range results {
				status := "extracted"
				if r.Skipped {
					status = "unchanged"
				}
				written := 0
				if r.Artifacts != nil {
					written = len(r.Artifacts.TableFiles)
				}
				fmt.Fprintf(out, "%s p%d: %s, %d tables, %d csv files\n", r.Report, r.Page, status, len(r.Tables), written)
				all = append(all, r.Results...)
			}
			for _, s := range ecl.Summarize(all) {
				fmt.Fprintf(out, "%s: %d rows, %d unbalanced, %d unparseable\n", s.Stage, s.Rows, s.Unbalanced, s.Unparseable)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "YAML manifest listing report pages")
	cmd.Flags().StringVar(&report, "report", "", "report id for a file not named ocr_md_<report>_p<page>.md")
	cmd.Flags().IntVar(&page, "page", 0, "page number used with --report")
	cmd.Flags().BoolVar(&persist, "persist", false, "store results in DATABASE_URL and skip unchanged pages")
	return cmd
}

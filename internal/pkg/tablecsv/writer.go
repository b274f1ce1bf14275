package tablecsv

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	xlog "eclreports/internal/log"
	"eclreports/internal/pkg/frame"
	"eclreports/internal/pkg/mdtable"
	"eclreports/internal/pkg/period"
)

// PageArtifacts lists what WritePage produced.
type PageArtifacts struct {
	Dir        string
	TableFiles []string
	AllTables  string // empty when the page had no usable tables
	Tables     []*mdtable.Table
}

// Writer writes the CSV artifacts of OCR pages.
type Writer struct {
	logger zerolog.Logger
}

func NewWriter() *Writer {
	return &Writer{logger: xlog.WithComponent("tablecsv")}
}

// WritePage cleans every table of the page, writes the non-empty ones as
// table_<i>.csv under dir and stacks them into <report>_p<page>_all_tables.csv
// with a blank row between tables. A page without tables writes nothing.
func (w *Writer) WritePage(dir, report string, page int, tables []*mdtable.Table) (*PageArtifacts, error) {
	out := &PageArtifacts{Dir: dir}
	logger := w.logger.With().Str("report", report).Int("page", page).Logger()

	if len(tables) == 0 {
		logger.Warn().Msg("no tables found in page")
		return out, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	var frames []*frame.Frame
	for _, table := range tables {
		cleaned := table.Clean()
		if cleaned.Empty() {
			logger.Info().Int("table", table.Index).Msg("table is empty after cleaning, skipping")
			continue
		}

		path := filepath.Join(dir, fmt.Sprintf("table_%d.csv", table.Index))
		f := cleaned.Frame()
		if err := f.WriteFile(path); err != nil {
			return nil, err
		}
		logger.Debug().Int("table", table.Index).Str("path", path).Msg("saved table")

		out.TableFiles = append(out.TableFiles, path)
		out.Tables = append(out.Tables, cleaned)
		frames = append(frames, f)
	}

	if len(frames) == 0 {
		logger.Info().Msg("no non-empty tables available for concatenation")
		return out, nil
	}

	all, err := frame.Stack(frames, true)
	if err != nil {
		return nil, fmt.Errorf("stack tables of %s page %d: %w", report, page, err)
	}

	out.AllTables = filepath.Join(dir, period.AllTablesName(report, page))
	if err := all.WriteFile(out.AllTables); err != nil {
		return nil, err
	}
	logger.Info().Int("tables", len(frames)).Str("path", out.AllTables).Msg("tables concatenated")

	return out, nil
}

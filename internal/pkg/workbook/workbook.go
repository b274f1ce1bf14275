package workbook

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	xlog "eclreports/internal/log"
	"eclreports/internal/pkg/frame"
	"eclreports/internal/pkg/period"
)

const (
	DefaultPageOutput      = "trimester_page_reports.xlsx"
	DefaultTrimesterOutput = "trimester_reports.xlsx"

	defaultSheet = "Sheet1"
)

// ErrNoSheets is returned when there was no data for any sheet.
var ErrNoSheets = errors.New("no sheet could be written")

// Exporter writes all_tables CSVs into Excel workbooks.
type Exporter struct {
	logger zerolog.Logger
}

func NewExporter() *Exporter {
	return &Exporter{logger: xlog.WithComponent("workbook")}
}

type book struct {
	file    *excelize.File
	written int
	used    map[string]bool // lowercased, excel compares sheet names without case
	logger  zerolog.Logger
}

func newBook(logger zerolog.Logger) *book {
	return &book{file: excelize.NewFile(), used: make(map[string]bool), logger: logger}
}

// sheetName applies the excel length limit and logs when it had to cut. A
// name already taken in this workbook gets a "_2", "_3", ... suffix so two
// sources never share a sheet.
func (b *book) sheetName(name string) string {
	short, truncated := period.SheetName(name)
	if truncated {
		b.logger.Warn().Str("sheet", name).Str("truncated", short).Msg("sheet name truncated due to length limit")
	}

	candidate := short
	for n := 2; b.used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf("_%d", n)
		runes := []rune(short)
		if keep := period.MaxSheetName - len(suffix); len(runes) > keep {
			runes = runes[:keep]
		}
		candidate = string(runes) + suffix
	}
	if candidate != short {
		b.logger.Warn().Str("sheet", short).Str("renamed", candidate).Msg("duplicate sheet name")
	}
	b.used[strings.ToLower(candidate)] = true
	return candidate
}

// writeFrame writes header and rows starting at A1. A nil or zero-width
// frame produces an empty sheet.
func (b *book) writeFrame(sheet string, f *frame.Frame) error {
	if _, err := b.file.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}
	b.written++

	if f == nil || f.Width() == 0 {
		return nil
	}
	for i, record := range f.Records() {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(record))
		for j, v := range record {
			row[j] = v
		}
		if err := b.file.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d of %s: %w", i+1, sheet, err)
		}
	}
	return nil
}

func (b *book) save(path string) error {
	defer b.file.Close()

	if b.written == 0 {
		return ErrNoSheets
	}
	// report sheets are never named like the default one
	if idx, err := b.file.GetSheetIndex(defaultSheet); err == nil && idx >= 0 {
		if err := b.file.DeleteSheet(defaultSheet); err != nil {
			return fmt.Errorf("remove default sheet: %w", err)
		}
	}
	b.file.SetActiveSheet(0)

	return frame.WriteAtomic(path, func(w io.Writer) error {
		_, err := b.file.WriteTo(w)
		return err
	})
}

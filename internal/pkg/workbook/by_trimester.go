package workbook

import (
	"fmt"
	"sort"

	"eclreports/internal/pkg/frame"
	"eclreports/internal/pkg/period"
)

// ByTrimester writes one sheet per report id. Pages of a report are stacked
// vertically in page order with columns aligned by name. Empty or unreadable
// pages are skipped and a report with no data gets no sheet.
func (e *Exporter) ByTrimester(files []period.PageFile, outPath string) error {
	groups := make(map[string][]period.PageFile)
	var reports []period.ReportID
	for _, f := range files {
		key := f.Report.String()
		if _, ok := groups[key]; !ok {
			reports = append(reports, f.Report)
		}
		groups[key] = append(groups[key], f)
	}
	sort.SliceStable(reports, func(i, j int) bool { return reports[i].Less(reports[j]) })

	b := newBook(e.logger)
	for _, report := range reports {
		pages := groups[report.String()]
		sort.SliceStable(pages, func(i, j int) bool { return pages[i].Page < pages[j].Page })

		logger := e.logger.With().Str("report", report.String()).Logger()
		logger.Info().Int("pages", len(pages)).Msg("processing trimester")

		var frames []*frame.Frame
		for _, p := range pages {
			fr, err := frame.ReadFile(p.Path)
			if err != nil {
				logger.Error().Err(err).Str("path", p.Path).Msg("error reading csv")
				continue
			}
			if fr.Empty() {
				logger.Info().Str("path", p.Path).Msg("skipping empty csv")
				continue
			}
			frames = append(frames, fr)
		}

		if len(frames) == 0 {
			logger.Warn().Msg("no data found for trimester, sheet will not be created")
			continue
		}

		combined, err := frame.Stack(frames, false)
		if err != nil {
			return fmt.Errorf("stack pages of %s: %w", report, err)
		}

		sheet := b.sheetName(report.String())
		if err := b.writeFrame(sheet, combined); err != nil {
			return err
		}
		logger.Info().Str("sheet", sheet).Int("rows", len(combined.Rows)).Msg("wrote trimester sheet")
	}

	if err := b.save(outPath); err != nil {
		return err
	}
	e.logger.Info().Str("path", outPath).Int("sheets", b.written).Msg("created excel file")
	return nil
}

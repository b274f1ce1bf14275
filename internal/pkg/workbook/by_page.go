package workbook

import (
	"eclreports/internal/pkg/frame"
	"eclreports/internal/pkg/period"
)

// ByPage writes one sheet per page file, named "<report>_p<page>", in
// chronological order. Empty files give an empty sheet; unreadable files give
// an "ERR_<sheet>" sheet holding the error message.
func (e *Exporter) ByPage(files []period.PageFile, outPath string) error {
	files = append([]period.PageFile(nil), files...)
	period.SortPageFiles(files)

	b := newBook(e.logger)
	for _, f := range files {
		logger := e.logger.With().Str("path", f.Path).Logger()

		fr, err := frame.ReadFile(f.Path)
		if err != nil {
			logger.Error().Err(err).Msg("error reading csv, writing error sheet")
			errSheet := b.sheetName("ERR_" + f.Prefix())
			errFrame := frame.New([]string{"error"}, [][]string{{err.Error()}})
			if err := b.writeFrame(errSheet, errFrame); err != nil {
				return err
			}
			continue
		}

		sheet := b.sheetName(f.Prefix())
		logger = logger.With().Str("sheet", sheet).Logger()
		if err := b.writeFrame(sheet, fr); err != nil {
			return err
		}
		if fr.Empty() {
			logger.Info().Msg("csv file was empty, created empty sheet")
		} else {
			logger.Info().Int("rows", len(fr.Rows)).Msg("wrote sheet")
		}
	}

	if err := b.save(outPath); err != nil {
		return err
	}
	e.logger.Info().Str("path", outPath).Int("sheets", b.written).Msg("created excel file")
	return nil
}

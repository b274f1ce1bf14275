package compile

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	xlog "eclreports/internal/log"
	"eclreports/internal/pkg/frame"
	"eclreports/internal/pkg/period"
)

// DefaultOutputName is the compiled report file name.
const DefaultOutputName = "compiled_financial_reports.csv"

// ErrNoInputs is returned when no all_tables CSV could be found or parsed.
var ErrNoInputs = errors.New("no _all_tables.csv files found")

// Discover finds every csv_*/*_all_tables.csv under baseDir and returns the
// recognised files in (year, quarter, page) order.
func Discover(baseDir string) ([]period.PageFile, error) {
	logger := xlog.WithComponent("compile")

	pattern := filepath.Join(baseDir, "csv_*", "*_all_tables.csv")
	logger.Info().Str("pattern", pattern).Msg("searching for csv files")

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInputs, baseDir)
	}

	var files []period.PageFile
	for _, m := range matches {
		f, err := period.ParseAllTablesName(m)
		if err != nil {
			logger.Warn().Err(err).Str("path", m).Msg("could not parse file name")
			continue
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no file name could be parsed", ErrNoInputs)
	}

	period.SortPageFiles(files)
	return files, nil
}

type source struct {
	file  period.PageFile
	frame *frame.Frame
	width int
}

// Compiler places every page side by side in a single table.
type Compiler struct {
	logger zerolog.Logger
}

func NewCompiler() *Compiler {
	return &Compiler{logger: xlog.WithComponent("compile")}
}

// Compile reads the files and concatenates them horizontally. Each column is
// prefixed with "<report>_p<page>_"; shorter pages are padded with blanks.
// Empty or unreadable files contribute blank "<report>_p<page>_col<j>"
// placeholder columns. When every file is empty the result has no columns.
func (c *Compiler) Compile(files []period.PageFile) (*frame.Frame, error) {
	if len(files) == 0 {
		return nil, ErrNoInputs
	}

	sources := make([]source, 0, len(files))
	maxRows := 0
	for _, f := range files {
		logger := c.logger.With().Str("path", f.Path).Logger()

		fr, err := frame.ReadFile(f.Path)
		if err != nil {
			logger.Error().Err(err).Msg("error reading csv file")
			sources = append(sources, source{file: f, width: 1})
			continue
		}

		width := fr.Width()
		if width == 0 {
			logger.Warn().Msg("skipping empty csv file")
			width = 1
		}
		if len(fr.Rows) > maxRows {
			maxRows = len(fr.Rows)
		}
		logger.Info().Int("rows", len(fr.Rows)).Int("cols", width).Msg("read csv")
		sources = append(sources, source{file: f, frame: fr, width: width})
	}

	if maxRows == 0 {
		c.logger.Warn().Msg("all csv files were empty or unreadable, compiled report will be empty")
		return &frame.Frame{}, nil
	}

	out := &frame.Frame{Rows: make([][]string, maxRows)}
	for _, s := range sources {
		prefix := s.file.Prefix()
		if s.frame.Empty() {
			for j := 0; j < s.width; j++ {
				out.Columns = append(out.Columns, fmt.Sprintf("%s_col%d", prefix, j))
			}
			for i := range out.Rows {
				out.Rows[i] = append(out.Rows[i], make([]string, s.width)...)
			}
			continue
		}

		s.frame.Pad(maxRows)
		for _, col := range s.frame.Columns {
			out.Columns = append(out.Columns, prefix+"_"+col)
		}
		for i := range out.Rows {
			out.Rows[i] = append(out.Rows[i], s.frame.Rows[i]...)
		}
	}

	c.logger.Info().Int("rows", maxRows).Int("cols", len(out.Columns)).Msg("pages concatenated side by side")
	return out, nil
}

// CompileDir discovers the pages under baseDir and writes the compiled CSV to
// outPath.
func (c *Compiler) CompileDir(baseDir, outPath string) (*frame.Frame, error) {
	files, err := Discover(baseDir)
	if err != nil {
		return nil, err
	}

	out, err := c.Compile(files)
	if err != nil {
		return nil, err
	}

	if err := frame.WriteAtomic(outPath, out.WriteCSV); err != nil {
		return nil, err
	}
	c.logger.Info().Str("path", outPath).Msg("compiled all reports")
	return out, nil
}

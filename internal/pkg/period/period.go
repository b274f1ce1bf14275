package period

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"unicode/utf8"
)

// MaxSheetName is Excel's limit on worksheet names.
const MaxSheetName = 31

var (
	ErrInvalidReportID  = errors.New("invalid report id")
	ErrUnrecognizedName = errors.New("unrecognized file name")
)

var (
	reReportID      = regexp.MustCompile(`^([1-4])T(\d{2,})$`)
	reAllTablesName = regexp.MustCompile(`^([1-4]T\d{2,})_p(\d+)_all_tables\.csv$`)
	reMarkdownName  = regexp.MustCompile(`^ocr_md_([1-4]T\d{2,})_p(\d+)\.md$`)
)

// ReportID identifies a quarterly report, e.g. "1T22" for the first quarter of 2022.
type ReportID struct {
	Quarter int
	Year    int
	raw     string
}

// Parse validates a report id of the form <q>T<yy>.
func Parse(id string) (ReportID, error) {
	m := reReportID.FindStringSubmatch(id)
	if m == nil {
		return ReportID{}, fmt.Errorf("%w: %q", ErrInvalidReportID, id)
	}
	quarter, _ := strconv.Atoi(m[1])
	year, err := strconv.Atoi(m[2])
	if err != nil {
		return ReportID{}, fmt.Errorf("%w: %q", ErrInvalidReportID, id)
	}
	return ReportID{Quarter: quarter, Year: year, raw: id}, nil
}

func (r ReportID) String() string {
	if r.raw != "" {
		return r.raw
	}
	return fmt.Sprintf("%dT%02d", r.Quarter, r.Year)
}

// Less orders report ids chronologically.
func (r ReportID) Less(o ReportID) bool {
	if r.Year != o.Year {
		return r.Year < o.Year
	}
	return r.Quarter < o.Quarter
}

// PageFile is one "<report>_p<page>_all_tables.csv" artifact.
type PageFile struct {
	Report ReportID
	Page   int
	Path   string
}

// Prefix is the "<report>_p<page>" tag used for sheet and column names.
func (f PageFile) Prefix() string {
	return fmt.Sprintf("%s_p%d", f.Report, f.Page)
}

// ParseAllTablesName extracts report id and page from an all_tables CSV path.
func ParseAllTablesName(path string) (PageFile, error) {
	return parseName(reAllTablesName, path)
}

// ParseMarkdownName does the same for an "ocr_md_<report>_p<page>.md" page.
func ParseMarkdownName(path string) (PageFile, error) {
	return parseName(reMarkdownName, path)
}

func parseName(re *regexp.Regexp, path string) (PageFile, error) {
	m := re.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return PageFile{}, fmt.Errorf("%w: %s", ErrUnrecognizedName, filepath.Base(path))
	}
	report, err := Parse(m[1])
	if err != nil {
		return PageFile{}, err
	}
	page, err := strconv.Atoi(m[2])
	if err != nil {
		return PageFile{}, fmt.Errorf("%w: %s", ErrUnrecognizedName, filepath.Base(path))
	}
	return PageFile{Report: report, Page: page, Path: path}, nil
}

// SortPageFiles orders files by year, quarter and page.
func SortPageFiles(files []PageFile) {
	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if a.Report.Year != b.Report.Year || a.Report.Quarter != b.Report.Quarter {
			return a.Report.Less(b.Report)
		}
		return a.Page < b.Page
	})
}

// AllTablesName is the file name of the concatenated CSV for a page.
func AllTablesName(report string, page int) string {
	return fmt.Sprintf("%s_p%d_all_tables.csv", report, page)
}

// MarkdownName is the OCR output name for a page.
func MarkdownName(report string, page int) string {
	return fmt.Sprintf("ocr_md_%s_p%d.md", report, page)
}

// CSVDirName is the per-page output directory.
func CSVDirName(report string, page int) string {
	return fmt.Sprintf("csv_%s_p%d", report, page)
}

// SheetName truncates name to MaxSheetName characters. The second result
// reports whether truncation happened.
func SheetName(name string) (string, bool) {
	if utf8.RuneCountInString(name) <= MaxSheetName {
		return name, false
	}
	runes := []rune(name)
	return string(runes[:MaxSheetName]), true
}

package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"eclreports/internal/pkg/period"
)

// ErrEmptyManifest is returned when a manifest lists no pages.
var ErrEmptyManifest = errors.New("manifest lists no pages")

// Manifest lists the OCR pages of each report to process.
//
//	input_dir: ocr
//	output_dir: batch_processing_output
//	reports:
//	  1T22: [46, 47, 48, 49]
//	  2T22: [66, 67]
type Manifest struct {
	InputDir  string           `yaml:"input_dir"`
	OutputDir string           `yaml:"output_dir"`
	Reports   map[string][]int `yaml:"reports"`
}

// PageRef points at one OCR markdown page.
type PageRef struct {
	Report       period.ReportID
	Page         int
	MarkdownPath string
	OutputDir    string
}

// LoadManifest reads a YAML manifest. Relative directories stay relative to
// the working directory.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}

// Pages expands the manifest into page references ordered by year, quarter
// and page. Duplicate pages are listed once.
func (m *Manifest) Pages() ([]PageRef, error) {
	var refs []PageRef
	for id, pages := range m.Reports {
		report, err := period.Parse(id)
		if err != nil {
			return nil, err
		}
		seen := make(map[int]bool, len(pages))
		for _, p := range pages {
			if seen[p] {
				continue
			}
			seen[p] = true
			refs = append(refs, PageRef{
				Report:       report,
				Page:         p,
				MarkdownPath: filepath.Join(m.InputDir, period.MarkdownName(report.String(), p)),
				OutputDir:    m.OutputDir,
			})
		}
	}
	if len(refs) == 0 {
		return nil, ErrEmptyManifest
	}

	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].Report.String() != refs[j].Report.String() {
			return refs[i].Report.Less(refs[j].Report)
		}
		return refs[i].Page < refs[j].Page
	})
	return refs, nil
}

// SinglePage builds a reference for one markdown file named like
// ocr_md_<report>_p<page>.md, or for any file when report and page are given.
func SinglePage(path, outputDir, report string, page int) (PageRef, error) {
	if report == "" {
		ref, err := period.ParseMarkdownName(path)
		if err != nil {
			return PageRef{}, err
		}
		return PageRef{Report: ref.Report, Page: ref.Page, MarkdownPath: path, OutputDir: outputDir}, nil
	}
	id, err := period.Parse(report)
	if err != nil {
		return PageRef{}, err
	}
	return PageRef{Report: id, Page: page, MarkdownPath: path, OutputDir: outputDir}, nil
}

package pipeline

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	xlog "eclreports/internal/log"
	"eclreports/internal/metrics"
	"eclreports/internal/pkg/ecl"
	"eclreports/internal/pkg/mdtable"
	"eclreports/internal/pkg/period"
	"eclreports/internal/pkg/tablecsv"
)

// ErrMissingMarkdown is returned when the OCR page of a reference does not exist.
var ErrMissingMarkdown = errors.New("markdown page not found")

// PageResult is everything extracted from one OCR page.
type PageResult struct {
	Report    string
	Page      int
	Source    string
	Checksum  string
	Skipped   bool // same report page with the same content was already stored
	Title     string
	Tables    []*mdtable.Table
	Artifacts *tablecsv.PageArtifacts
	Results   []*ecl.Result
}

// Store remembers which pages were processed.
type Store interface {
	IsProcessed(ctx context.Context, report string, page int, checksum string) (bool, error)
	SavePage(ctx context.Context, page *PageResult) error
}

// Extractor turns OCR markdown pages into CSV artifacts and reconciled
// loss stage tables.
type Extractor struct {
	writer    *tablecsv.Writer
	store     Store
	tolerance decimal.Decimal
	workers   int
	logger    zerolog.Logger
}

// NewExtractor builds an extractor. store may be nil, in which case every
// page is processed and nothing is persisted.
func NewExtractor(store Store, tolerance decimal.Decimal, workers int) *Extractor {
	if workers <= 0 {
		workers = 1
	}
	return &Extractor{
		writer:    tablecsv.NewWriter(),
		store:     store,
		tolerance: tolerance,
		workers:   workers,
		logger:    xlog.WithComponent("pipeline"),
	}
}

// Checksum fingerprints page content.
func Checksum(b []byte) string {
	digest := xxhash.New()
	_, _ = digest.Write(b)
	return hex.EncodeToString(digest.Sum(nil))
}

// ExtractPage processes a single page.
func (e *Extractor) ExtractPage(ctx context.Context, ref PageRef) (*PageResult, error) {
	report := ref.Report.String()
	logger := e.logger.With().Str("report", report).Int("page", ref.Page).Logger()

	raw, err := os.ReadFile(ref.MarkdownPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingMarkdown, ref.MarkdownPath)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref.MarkdownPath, err)
	}

	result := &PageResult{
		Report:   report,
		Page:     ref.Page,
		Source:   ref.MarkdownPath,
		Checksum: Checksum(raw),
	}

	page, err := mdtable.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", ref.MarkdownPath, err)
	}
	result.Title = page.Title
	result.Tables = page.Tables
	logger.Info().Int("tables", len(page.Tables)).Msg("found tables")

	dir := filepath.Join(ref.OutputDir, period.CSVDirName(report, ref.Page))
	result.Artifacts, err = e.writer.WritePage(dir, report, ref.Page, page.Tables)
	if err != nil {
		return nil, err
	}
	metrics.AddTablesWritten(len(result.Artifacts.TableFiles))

	// artifacts are always rewritten, only stored work is skipped
	if e.store != nil {
		done, err := e.store.IsProcessed(ctx, report, ref.Page, result.Checksum)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", ref.MarkdownPath, err)
		}
		if done {
			logger.Info().Str("checksum", result.Checksum).Msg("page unchanged since stored, skipping reconciliation")
			result.Skipped = true
			metrics.IncPage("skipped")
			return result, nil
		}
	}

	result.Results = e.Reconcile(report, ref.Page, page.Tables)

	if e.store != nil {
		if err := e.store.SavePage(ctx, result); err != nil {
			return nil, fmt.Errorf("save %s page %d: %w", report, ref.Page, err)
		}
	}

	metrics.IncPage("extracted")
	return result, nil
}

// Reconcile classifies the tables of a page and checks every loss stage row.
// Tables that are not loss stage schedules are ignored.
func (e *Extractor) Reconcile(report string, page int, tables []*mdtable.Table) []*ecl.Result {
	var results []*ecl.Result
	for _, t := range tables {
		lt, err := ecl.FromTable(report, page, t)
		if errors.Is(err, ecl.ErrNotLossStageTable) {
			e.logger.Debug().Str("report", report).Int("page", page).Err(err).Msg("table skipped")
			continue
		}
		if err != nil {
			e.logger.Warn().Str("report", report).Int("page", page).Err(err).Msg("could not classify table")
			continue
		}

		r := &ecl.Result{Table: lt, Findings: ecl.Reconcile(lt, e.tolerance)}
		results = append(results, r)

		for _, s := range ecl.Summarize([]*ecl.Result{r}) {
			metrics.RecordRows(string(s.Stage), s.Balanced, s.Unbalanced, s.Unparseable)
			if s.Unbalanced+s.Unparseable > 0 {
				e.logger.Warn().
					Str("report", report).
					Int("page", page).
					Int("table", lt.Index).
					Str("stage", string(s.Stage)).
					Int("unbalanced", s.Unbalanced).
					Int("unparseable", s.Unparseable).
					Msg("closing balance does not match opening plus movements")
			}
		}
	}
	return results
}

// Run extracts every page of the manifest with a bounded number of workers.
// Missing or failing pages are logged and left out of the results; only a
// cancelled context stops the run.
func (e *Extractor) Run(ctx context.Context, m *Manifest) ([]*PageResult, error) {
	refs, err := m.Pages()
	if err != nil {
		return nil, err
	}
	return e.RunPages(ctx, refs)
}

// RunPages is Run over explicit page references. Results keep the order of refs.
func (e *Extractor) RunPages(ctx context.Context, refs []PageRef) ([]*PageResult, error) {
	logger := e.logger.With().Str("run_id", uuid.NewString()).Logger()
	logger.Info().Int("pages", len(refs)).Int("workers", e.workers).Msg("batch extraction started")

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	slots := make([]*PageResult, len(refs))

	for i, ref := range refs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := e.ExtractPage(ctx, ref)
			switch {
			case errors.Is(err, ErrMissingMarkdown):
				logger.Warn().Str("path", ref.MarkdownPath).Msg("markdown file not found, skipping")
				metrics.IncPage("missing")
				return nil
			case err != nil:
				logger.Error().Err(err).Str("path", ref.MarkdownPath).Msg("error processing page")
				metrics.IncPage("failed")
				return nil
			}
			slots[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]*PageResult, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			results = append(results, r)
		}
	}
	logger.Info().Int("pages", len(refs)).Int("processed", len(results)).Msg("batch extraction finished")
	return results, nil
}

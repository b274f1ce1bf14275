package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"eclreports/internal/config"
	xlog "eclreports/internal/log"
	"eclreports/internal/metrics"
	"eclreports/internal/models"
	"eclreports/internal/pkg/compile"
	"eclreports/internal/pkg/mdtable"
	"eclreports/internal/pkg/period"
	"eclreports/internal/pkg/pipeline"
	"eclreports/internal/pkg/review"
	"eclreports/internal/pkg/workbook"
	"eclreports/internal/store"
)

const defaultReviewLimit = 20

// a review run gives up after this many model errors in a row
const maxConsecutiveReviewFailures = 3

// TaskProcessor holds dependencies for our task handlers
type TaskProcessor struct {
	DB        *gorm.DB
	config    *config.Config
	store     *store.Store
	extractor *pipeline.Extractor
	compiler  *compile.Compiler
	exporter  *workbook.Exporter
	reviewer  *review.Reviewer
	logger    zerolog.Logger
}

// NewTaskProcessor creates a new TaskProcessor. Reviews are disabled when no
// OpenAI key is configured.
func NewTaskProcessor(db *gorm.DB, config *config.Config) *TaskProcessor {
	st := store.New(db)
	p := &TaskProcessor{
		DB:        db,
		config:    config,
		store:     st,
		extractor: pipeline.NewExtractor(st, config.Tolerance, config.Workers),
		compiler:  compile.NewCompiler(),
		exporter:  workbook.NewExporter(),
		logger:    xlog.WithComponent("tasks"),
	}

	reviewer, err := review.NewReviewer(config.OpenAIAPIKey)
	if err != nil {
		p.logger.Warn().Err(err).Msg("advisory reviews disabled")
	} else {
		p.reviewer = reviewer
	}
	return p
}

// SetReviewer replaces the reviewer, mostly for tests.
func (p *TaskProcessor) SetReviewer(r *review.Reviewer) {
	p.reviewer = r
}

func (p *TaskProcessor) HandleExtractPageTask(ctx context.Context, t *asynq.Task) error {
	var payload ExtractPagePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	report, err := period.Parse(payload.Report)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	ref := pipeline.PageRef{
		Report:       report,
		Page:         payload.Page,
		MarkdownPath: payload.MarkdownPath,
		OutputDir:    payload.OutputDir,
	}
	if ref.MarkdownPath == "" {
		ref.MarkdownPath = filepath.Join(p.config.InputDir, period.MarkdownName(report.String(), payload.Page))
	}
	if ref.OutputDir == "" {
		ref.OutputDir = p.config.OutputDir
	}

	logger := p.logger.With().Str("report", payload.Report).Int("page", payload.Page).Logger()
	logger.Info().Str("path", ref.MarkdownPath).Msg("extracting page")

	result, err := p.extractor.ExtractPage(ctx, ref)
	if errors.Is(err, pipeline.ErrMissingMarkdown) {
		metrics.IncPage("missing")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		metrics.IncPage("failed")
		return err
	}

	if result.Skipped {
		return nil
	}
	unbalanced := 0
	for _, r := range result.Results {
		unbalanced += len(r.Unbalanced())
	}
	logger.Info().
		Int("tables", len(result.Tables)).
		Int("loss_tables", len(result.Results)).
		Int("unbalanced", unbalanced).
		Msg("page extracted")
	return nil
}

func (p *TaskProcessor) HandleCompileReportsTask(ctx context.Context, t *asynq.Task) error {
	var payload CompileReportsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}
	if payload.Report != "" {
		if _, err := period.Parse(payload.Report); err != nil {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
	}
	if payload.BaseDir == "" {
		payload.BaseDir = p.config.OutputDir
	}
	if payload.OutputDir == "" {
		payload.OutputDir = payload.BaseDir
	}

	logger := p.logger.With().Str("report", payload.Report).Str("base_dir", payload.BaseDir).Logger()

	files, err := compile.Discover(payload.BaseDir)
	if errors.Is(err, compile.ErrNoInputs) {
		logger.Warn().Msg("nothing to compile")
		return nil
	}
	if err != nil {
		metrics.IncCompile("failure")
		return err
	}
	if payload.Report != "" {
		files = onlyReport(files, payload.Report)
		if len(files) == 0 {
			logger.Warn().Msg("no pages for report")
			return nil
		}
	}

	if err := p.compileFiles(files, payload.OutputDir, outputPrefix(payload.Report)); err != nil {
		metrics.IncCompile("failure")
		return err
	}
	metrics.IncCompile("success")
	logger.Info().Int("pages", len(files)).Msg("reports compiled")
	return nil
}

func (p *TaskProcessor) compileFiles(files []period.PageFile, outDir, prefix string) error {
	compiled, err := p.compiler.Compile(files)
	if err != nil {
		return err
	}
	if err := compiled.WriteFile(filepath.Join(outDir, prefix+compile.DefaultOutputName)); err != nil {
		return err
	}

	if err := p.exporter.ByPage(files, filepath.Join(outDir, prefix+workbook.DefaultPageOutput)); err != nil {
		return fmt.Errorf("page workbook: %w", err)
	}
	err = p.exporter.ByTrimester(files, filepath.Join(outDir, prefix+workbook.DefaultTrimesterOutput))
	if errors.Is(err, workbook.ErrNoSheets) {
		p.logger.Warn().Msg("no trimester had data, trimester workbook not written")
		return nil
	}
	if err != nil {
		return fmt.Errorf("trimester workbook: %w", err)
	}
	return nil
}

func (p *TaskProcessor) HandleReviewFindingsTask(ctx context.Context, t *asynq.Task) error {
	var payload ReviewFindingsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	logger := p.logger.With().Str("report", payload.Report).Logger()
	if p.reviewer == nil {
		logger.Info().Msg("reviews disabled, skipping")
		return nil
	}

	limit := defaultReviewLimit
	if payload.Limit != nil && *payload.Limit > 0 {
		limit = *payload.Limit
	}

	recs, err := p.store.Reconciliations(ctx, store.ReconciliationFilter{
		ReportID:       payload.Report,
		OnlyUnbalanced: true,
	})
	if err != nil {
		return err
	}

	reviewed, attempts, failures := 0, 0, 0
	for _, rec := range recs {
		if attempts >= limit {
			break
		}
		done, err := p.store.HasReview(ctx, rec.ID)
		if err != nil {
			return err
		}
		if done {
			continue
		}

		attempts++
		if err := p.reviewOne(ctx, rec); err != nil {
			metrics.IncReview("failure")
			logger.Error().Err(err).Uint("reconciliation", rec.ID).Str("category", rec.Category).Msg("failed to review row")
			failures++
			if failures >= maxConsecutiveReviewFailures {
				logger.Warn().Int("failures", failures).Msg("model keeps failing, stopping reviews")
				break
			}
			continue
		}
		failures = 0
		metrics.IncReview("success")
		reviewed++
	}

	logger.Info().Int("reviewed", reviewed).Int("attempts", attempts).Int("unbalanced", len(recs)).Msg("findings reviewed")
	return nil
}

func (p *TaskProcessor) reviewOne(ctx context.Context, rec models.Reconciliation) error {
	table, err := p.store.Table(ctx, rec.ExtractedTableID)
	if err != nil {
		return err
	}

	var rows [][]string
	if err := json.Unmarshal(table.Cells, &rows); err != nil {
		return fmt.Errorf("decode cells of table %d: %w", table.ID, err)
	}

	result, err := p.reviewer.Review(ctx, review.Request{
		Report:        rec.ReportID,
		Stage:         rec.Stage,
		Category:      rec.Category,
		TableMarkdown: mdtable.TableToMarkdown(&mdtable.Table{Index: table.Index, Caption: table.Caption, Rows: rows}),
		Opening:       rec.Opening.String(),
		Movements:     rec.Movements.String(),
		Closing:       rec.Closing.String(),
		Expected:      rec.Expected.String(),
		Difference:    rec.Difference.String(),
		Problems:      rec.Problems,
	})
	if err != nil {
		return err
	}

	return p.store.SaveReview(ctx, &models.Review{
		ReconciliationID: rec.ID,
		Model:            result.Model,
		UsedTokens:       result.UsedTokens,
		Suggestion:       result.Raw,
	})
}

func onlyReport(files []period.PageFile, report string) []period.PageFile {
	var out []period.PageFile
	for _, f := range files {
		if f.Report.String() == report {
			out = append(out, f)
		}
	}
	return out
}

func outputPrefix(report string) string {
	if report == "" {
		return ""
	}
	return report + "_"
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"eclreports/internal/models"
	"eclreports/internal/pkg/ecl"
	"eclreports/internal/pkg/pipeline"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store persists extraction results in Postgres.
type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// IsProcessed reports whether this report page was already stored with the
// same content.
func (s *Store) IsProcessed(ctx context.Context, report string, page int, checksum string) (bool, error) {
	count, err := gorm.G[models.Document](s.DB).
		Where("report_id = ? AND page = ? AND checksum = ?", report, page, checksum).
		Count(ctx, "id")
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SavePage stores a page, its tables and the reconciliation of every loss
// stage row. A page stored earlier with other content is replaced.
func (s *Store) SavePage(ctx context.Context, page *pipeline.PageResult) error {
	if page.Skipped {
		return nil
	}

	stages := make(map[int]*ecl.Result, len(page.Results))
	for _, r := range page.Results {
		stages[r.Table.Index] = r
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deletePage(tx, page.Report, page.Page); err != nil {
			return err
		}

		doc := models.Document{
			ReportID:   page.Report,
			Page:       page.Page,
			Title:      page.Title,
			SourcePath: page.Source,
			Checksum:   page.Checksum,
			TableCount: len(page.Tables),
		}
		if page.Artifacts != nil {
			doc.CSVPath = page.Artifacts.AllTables
		}
		if err := tx.Create(&doc).Error; err != nil {
			return fmt.Errorf("create document: %w", err)
		}

		for _, t := range page.Tables {
			cells, err := json.Marshal(t.Rows)
			if err != nil {
				return err
			}
			table := models.ExtractedTable{
				DocumentID: doc.ID,
				Index:      t.Index,
				Caption:    t.Caption,
				Cells:      cells,
			}
			result, ok := stages[t.Index]
			if ok {
				table.Stage = string(result.Table.Stage)
			}
			if err := tx.Create(&table).Error; err != nil {
				return fmt.Errorf("create table %d: %w", t.Index, err)
			}
			if !ok || len(result.Findings) == 0 {
				continue
			}

			rows := make([]models.Reconciliation, 0, len(result.Findings))
			for _, f := range result.Findings {
				rows = append(rows, toReconciliation(table.ID, page.Report, result.Table.Stage, f))
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("create reconciliations of table %d: %w", t.Index, err)
			}
		}
		return nil
	})
}

func toReconciliation(tableID uint, report string, stage ecl.Stage, f ecl.Finding) models.Reconciliation {
	return models.Reconciliation{
		ExtractedTableID: tableID,
		ReportID:         report,
		Stage:            string(stage),
		Category:         f.Category,
		Total:            f.Total,
		Opening:          f.Opening,
		Movements:        f.Movements,
		Closing:          f.Closing,
		Expected:         f.Expected,
		Difference:       f.Difference,
		Balanced:         f.Balanced,
		Unparseable:      f.Unparseable,
		Problems:         strings.Join(f.Problems, "; "),
	}
}

func deletePage(tx *gorm.DB, report string, page int) error {
	docs := tx.Model(&models.Document{}).Select("id").Where("report_id = ? AND page = ?", report, page)
	tables := tx.Model(&models.ExtractedTable{}).Select("id").Where("document_id IN (?)", docs)
	recs := tx.Model(&models.Reconciliation{}).Select("id").Where("extracted_table_id IN (?)", tables)

	if err := tx.Where("reconciliation_id IN (?)", recs).Delete(&models.Review{}).Error; err != nil {
		return err
	}
	if err := tx.Where("extracted_table_id IN (?)", tables).Delete(&models.Reconciliation{}).Error; err != nil {
		return err
	}
	if err := tx.Where("document_id IN (?)", docs).Delete(&models.ExtractedTable{}).Error; err != nil {
		return err
	}
	return tx.Where("report_id = ? AND page = ?", report, page).Delete(&models.Document{}).Error
}

// Documents lists stored pages ordered by report and page. An empty report
// lists all of them.
func (s *Store) Documents(ctx context.Context, report string, limit int) ([]models.Document, error) {
	q := gorm.G[models.Document](s.DB).Order("report_id, page").Limit(limit)
	if report != "" {
		return q.Where("report_id = ?", report).Find(ctx)
	}
	return q.Find(ctx)
}

// Table returns a table with its reconciliations.
func (s *Store) Table(ctx context.Context, id uint) (*models.ExtractedTable, error) {
	var table models.ExtractedTable
	err := s.DB.WithContext(ctx).
		Preload("Reconciliations", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&table, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &table, nil
}

// ReconciliationFilter narrows Reconciliations. Zero values match everything.
type ReconciliationFilter struct {
	ReportID       string
	Stage          string
	OnlyUnbalanced bool
	Limit          int
}

func (s *Store) Reconciliations(ctx context.Context, f ReconciliationFilter) ([]models.Reconciliation, error) {
	q := s.DB.WithContext(ctx).Model(&models.Reconciliation{}).Order("id")
	if f.ReportID != "" {
		q = q.Where("report_id = ?", f.ReportID)
	}
	if f.Stage != "" {
		q = q.Where("stage = ?", f.Stage)
	}
	if f.OnlyUnbalanced {
		q = q.Where("balanced = ?", false)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var out []models.Reconciliation
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// HasReview reports whether a reconciliation was already reviewed.
func (s *Store) HasReview(ctx context.Context, reconciliationID uint) (bool, error) {
	count, err := gorm.G[models.Review](s.DB).Where("reconciliation_id = ?", reconciliationID).Count(ctx, "id")
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) SaveReview(ctx context.Context, review *models.Review) error {
	return gorm.G[models.Review](s.DB).Create(ctx, review)
}

// Reviews lists the reviews of the given reconciliations.
func (s *Store) Reviews(ctx context.Context, reconciliationIDs []uint) ([]models.Review, error) {
	if len(reconciliationIDs) == 0 {
		return nil, nil
	}
	return gorm.G[models.Review](s.DB).Where("reconciliation_id IN ?", reconciliationIDs).Order("id").Find(ctx)
}

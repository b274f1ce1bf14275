package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	xlog "eclreports/internal/log"
	"eclreports/internal/models"
	"eclreports/internal/pkg/ecl"
	"eclreports/internal/pkg/period"
	"eclreports/internal/store"
	"eclreports/internal/tasks"
)

// Enqueuer is the part of asynq.Client the API needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type ReportController struct {
	Store  *store.Store
	Queue  Enqueuer
	logger zerolog.Logger
}

func NewReportController(st *store.Store, queue Enqueuer) *ReportController {
	return &ReportController{Store: st, Queue: queue, logger: xlog.WithComponent("api")}
}

// TableResponse is a stored table with its cells decoded.
type TableResponse struct {
	ID              uint                    `json:"id"`
	DocumentID      uint                    `json:"document_id"`
	Index           int                     `json:"index"`
	Caption         string                  `json:"caption"`
	Stage           string                  `json:"stage,omitempty"`
	Rows            [][]string              `json:"rows"`
	Reconciliations []models.Reconciliation `json:"reconciliations"`
}

// GetDocuments returns the stored pages, optionally filtered by report
func (rc *ReportController) GetDocuments(c *gin.Context) {
	report, ok := reportQuery(c)
	if !ok {
		return
	}
	limit := getLimitWithDefault(c, 100)

	docs, err := rc.Store.Documents(c.Request.Context(), report, limit)
	if err != nil {
		rc.logger.Error().Err(err).Msg("failed to get documents")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
	})
}

// GetTable returns one table with the reconciliation of its rows
func (rc *ReportController) GetTable(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid table id"})
		return
	}

	table, err := rc.Store.Table(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Table not found"})
			return
		}

		rc.logger.Error().Err(err).Uint64("table", id).Msg("failed to get table")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	resp := TableResponse{
		ID:              table.ID,
		DocumentID:      table.DocumentID,
		Index:           table.Index,
		Caption:         table.Caption,
		Stage:           table.Stage,
		Reconciliations: table.Reconciliations,
	}
	if err := json.Unmarshal(table.Cells, &resp.Rows); err != nil {
		rc.logger.Error().Err(err).Uint64("table", id).Msg("failed to decode table cells")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"table": resp,
	})
}

// GetReconciliations returns reconciled rows filtered by report, stage and balance
func (rc *ReportController) GetReconciliations(c *gin.Context) {
	report, ok := reportQuery(c)
	if !ok {
		return
	}

	stage := ""
	if raw := c.Query("stage"); raw != "" {
		st := ecl.ParseStage(raw)
		if st == ecl.StageUnknown {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown stage"})
			return
		}
		stage = string(st)
	}

	ctx := c.Request.Context()
	recs, err := rc.Store.Reconciliations(ctx, store.ReconciliationFilter{
		ReportID:       report,
		Stage:          stage,
		OnlyUnbalanced: c.Query("unbalanced") == "true",
		Limit:          getLimitWithDefault(c, 100),
	})
	if err != nil {
		rc.logger.Error().Err(err).Msg("failed to get reconciliations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	ids := make([]uint, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	reviews, err := rc.Store.Reviews(ctx, ids)
	if err != nil {
		rc.logger.Error().Err(err).Msg("failed to get reviews")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}
	if recs == nil {
		recs = []models.Reconciliation{}
	}
	if reviews == nil {
		reviews = []models.Review{}
	}

	c.JSON(http.StatusOK, gin.H{
		"reconciliations": recs,
		"reviews":         reviews,
	})
}

// CompileReport enqueues the compilation of one report
func (rc *ReportController) CompileReport(c *gin.Context) {
	report := c.Param("report")
	if _, err := period.Parse(report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid report id"})
		return
	}
	if rc.Queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Task queue is not configured"})
		return
	}

	task, err := tasks.NewCompileReportsTask(tasks.CompileReportsPayload{Report: report})
	if err != nil {
		rc.logger.Error().Err(err).Msg("failed to build compile task")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	info, err := rc.Queue.EnqueueContext(c.Request.Context(), task, asynq.Queue("default"))
	if err != nil {
		rc.logger.Error().Err(err).Str("report", report).Msg("failed to enqueue compile task")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id": info.ID,
		"report":  report,
	})
}

func reportQuery(c *gin.Context) (string, bool) {
	report := c.Query("report")
	if report == "" {
		return "", true
	}
	if _, err := period.Parse(report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid report id"})
		return "", false
	}
	return report, true
}

func getLimitWithDefault(c *gin.Context, defaultValue int) int {
	if c.Query("limit") == "" {
		return defaultValue
	}
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return defaultValue
	}
	return limit
}

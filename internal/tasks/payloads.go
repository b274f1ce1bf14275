package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// This file defines the "types" and "payloads" for our async tasks.

// Task type names
const (
	TypeTaskExtractPage    = "task:extract_page"
	TypeTaskCompileReports = "task:compile_reports"
	TypeTaskReviewFindings = "task:review_findings"
)

// --- ExtractPage Task ---

type ExtractPagePayload struct {
	Report       string `json:"report"`
	Page         int    `json:"page"`
	MarkdownPath string `json:"markdown_path"`
	OutputDir    string `json:"output_dir"`
}

func NewExtractPageTask(payload ExtractPagePayload) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TypeTaskExtractPage, payloadBytes), nil
}

// --- CompileReports Task ---

// CompileReportsPayload limits compilation to one report when Report is set.
// Empty directories fall back to the configured output dir.
type CompileReportsPayload struct {
	Report    string `json:"report,omitempty"`
	BaseDir   string `json:"base_dir,omitempty"`
	OutputDir string `json:"output_dir,omitempty"`
}

func NewCompileReportsTask(payload CompileReportsPayload) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TypeTaskCompileReports, payloadBytes), nil
}

// --- ReviewFindings Task ---

type ReviewFindingsPayload struct {
	Report string `json:"report"`
	Limit  *int   `json:"limit"`
}

func NewReviewFindingsTask(report string, limit *int) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(ReviewFindingsPayload{Report: report, Limit: limit})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TypeTaskReviewFindings, payloadBytes), nil
}

package ecl

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultTolerance absorbs rounding in statements printed in R$ thousands.
var DefaultTolerance = decimal.NewFromInt(1)

// Finding is the check of one row against closing = opening + movements.
type Finding struct {
	Category    string                   `json:"category"`
	Total       bool                     `json:"total"`
	Opening     decimal.Decimal          `json:"opening"`
	Movements   decimal.Decimal          `json:"movements"`
	ByRole      map[Role]decimal.Decimal `json:"by_role"`
	Closing     decimal.Decimal          `json:"closing"`
	Expected    decimal.Decimal          `json:"expected"`
	Difference  decimal.Decimal          `json:"difference"`
	Balanced    bool                     `json:"balanced"`
	Unparseable bool                     `json:"unparseable"`
	Problems    []string                 `json:"problems,omitempty"`
}

// Reconcile evaluates every row. Values are only read; a row that does not
// add up is reported as unbalanced and left as is.
func Reconcile(t *LossStageTable, tolerance decimal.Decimal) []Finding {
	tolerance = tolerance.Abs()
	findings := make([]Finding, 0, len(t.Rows))

	for _, row := range t.Rows {
		f := Finding{
			Category: row.Category,
			Total:    row.Total,
			ByRole:   make(map[Role]decimal.Decimal),
		}

		for i, col := range t.Columns {
			var raw string
			if i < len(row.Cells) {
				raw = row.Cells[i]
			}
			amount, err := ParseAmount(raw)
			if err != nil {
				f.Unparseable = true
				f.Problems = append(f.Problems, fmt.Sprintf("%s: %v", col.Name, err))
				continue
			}

			switch col.Role {
			case RoleOpening:
				f.Opening = amount
			case RoleClosing:
				f.Closing = amount
			default:
				f.Movements = f.Movements.Add(amount)
				f.ByRole[col.Role] = f.ByRole[col.Role].Add(amount)
			}
		}

		f.Expected = f.Opening.Add(f.Movements)
		f.Difference = f.Closing.Sub(f.Expected)
		f.Balanced = !f.Unparseable && f.Difference.Abs().LessThanOrEqual(tolerance)
		findings = append(findings, f)
	}
	return findings
}

// Result pairs a table with its findings.
type Result struct {
	Table    *LossStageTable `json:"table"`
	Findings []Finding       `json:"findings"`
}

// Unbalanced returns the findings that break the closing balance identity.
func (r *Result) Unbalanced() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if !f.Balanced {
			out = append(out, f)
		}
	}
	return out
}

// StageSummary counts rows of one stage.
type StageSummary struct {
	Stage       Stage `json:"stage"`
	Tables      int   `json:"tables"`
	Rows        int   `json:"rows"`
	Balanced    int   `json:"balanced"`
	Unbalanced  int   `json:"unbalanced"`
	Unparseable int   `json:"unparseable"`
}

// Summarize aggregates results per stage in report order. Stages without
// tables are omitted.
func Summarize(results []*Result) []StageSummary {
	byStage := make(map[Stage]*StageSummary)
	for _, r := range results {
		s, ok := byStage[r.Table.Stage]
		if !ok {
			s = &StageSummary{Stage: r.Table.Stage}
			byStage[r.Table.Stage] = s
		}
		s.Tables++
		for _, f := range r.Findings {
			s.Rows++
			switch {
			case f.Unparseable:
				s.Unparseable++
			case f.Balanced:
				s.Balanced++
			default:
				s.Unbalanced++
			}
		}
	}

	var out []StageSummary
	for _, st := range Stages {
		if s, ok := byStage[st]; ok {
			out = append(out, *s)
		}
	}
	return out
}

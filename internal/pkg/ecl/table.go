package ecl

import (
	"errors"
	"fmt"
	"strings"

	"eclreports/internal/pkg/mdtable"
)

// ErrNotLossStageTable is returned for tables that do not look like an ECL
// movement schedule.
var ErrNotLossStageTable = errors.New("not a loss stage table")

// Role is what a numeric column contributes to the closing balance.
type Role string

const (
	RoleOpening   Role = "opening"
	RoleClosing   Role = "closing"
	RoleTransfer  Role = "transfer"
	RoleWriteOff  Role = "write_off"
	RoleProvision Role = "provision"
	RoleOther     Role = "other"
)

// IsMovement reports whether the column is summed between opening and closing.
func (r Role) IsMovement() bool {
	return r != RoleOpening && r != RoleClosing
}

type Column struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// Row holds the raw cells of one category, one per numeric column. Cells are
// kept as printed so OCR mistakes stay visible.
type Row struct {
	Category string   `json:"category"`
	Cells    []string `json:"cells"`
	Total    bool     `json:"total"`
}

// LossStageTable is an expected credit loss movement schedule for one stage.
type LossStageTable struct {
	Report  string   `json:"report"`
	Page    int      `json:"page"`
	Index   int      `json:"index"`
	Caption string   `json:"caption"`
	Stage   Stage    `json:"stage"`
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Column returns the first column with the given role.
func (t *LossStageTable) Column(role Role) (Column, bool) {
	for _, c := range t.Columns {
		if c.Role == role {
			return c, true
		}
	}
	return Column{}, false
}

// FromTable classifies an extracted table. The first column holds the
// category; every other column with at least one amount in it is numeric.
// Rows without any amount are sub-headings and are dropped.
func FromTable(report string, page int, table *mdtable.Table) (*LossStageTable, error) {
	cleaned := table.Clean()
	if cleaned.Empty() {
		return nil, fmt.Errorf("%w: table %d has no data rows", ErrNotLossStageTable, table.Index)
	}

	header := cleaned.Header()
	width := len(header)
	data := cleaned.Rows[1:]

	var numeric []int
	for j := 1; j < width; j++ {
		for _, row := range data {
			if j < len(row) && (looksNumeric(row[j]) || isDash(row[j])) {
				numeric = append(numeric, j)
				break
			}
		}
	}
	if len(numeric) < 2 {
		return nil, fmt.Errorf("%w: table %d has %d numeric columns", ErrNotLossStageTable, table.Index, len(numeric))
	}

	stage := DetectStage(table.Caption, header[0], table.Heading)
	if stage == StageUnknown {
		return nil, fmt.Errorf("%w: table %d has no stage in %q or under %q", ErrNotLossStageTable, table.Index, table.Caption, table.Heading)
	}

	names := make([]string, len(numeric))
	for i, j := range numeric {
		names[i] = header[j]
	}
	roles := assignRoles(names)

	lt := &LossStageTable{
		Report:  report,
		Page:    page,
		Index:   table.Index,
		Caption: table.Caption,
		Stage:   stage,
	}
	for i, j := range numeric {
		lt.Columns = append(lt.Columns, Column{Index: j, Name: header[j], Role: roles[i]})
	}

	for _, row := range data {
		cells := make([]string, len(numeric))
		hasAmount := false
		for i, j := range numeric {
			if j < len(row) {
				cells[i] = strings.TrimSpace(row[j])
			}
			if looksNumeric(cells[i]) {
				hasAmount = true
			}
		}
		if !hasAmount {
			continue
		}
		category := ""
		if len(row) > 0 {
			category = strings.TrimSpace(row[0])
		}
		lt.Rows = append(lt.Rows, Row{
			Category: category,
			Cells:    cells,
			Total:    strings.HasPrefix(fold(category), "total"),
		})
	}
	if len(lt.Rows) == 0 {
		return nil, fmt.Errorf("%w: table %d has no amounts", ErrNotLossStageTable, table.Index)
	}
	return lt, nil
}

// assignRoles tags numeric columns in order. Balance columns ("Saldo ...")
// bound the schedule: the first is the opening, the last the closing. When
// headers carry no balance names the outermost columns are used.
func assignRoles(names []string) []Role {
	roles := make([]Role, len(names))
	opening, closing := -1, -1

	var balances []int
	for i, n := range names {
		f := fold(n)
		switch {
		case strings.Contains(f, "saldo") && strings.Contains(f, "inicial"):
			opening = i
		case strings.Contains(f, "saldo") && strings.Contains(f, "final"):
			closing = i
		case strings.Contains(f, "saldo"):
			balances = append(balances, i)
		}
	}
	if opening < 0 && len(balances) > 0 && balances[0] != closing {
		opening = balances[0]
	}
	if closing < 0 && len(balances) > 0 && balances[len(balances)-1] != opening {
		closing = balances[len(balances)-1]
	}
	if opening < 0 {
		opening = 0
	}
	if closing < 0 || closing == opening {
		closing = len(names) - 1
	}

	for i, n := range names {
		switch i {
		case opening:
			roles[i] = RoleOpening
		case closing:
			roles[i] = RoleClosing
		default:
			roles[i] = movementRole(fold(n))
		}
	}
	return roles
}

func movementRole(folded string) Role {
	switch {
	case strings.Contains(folded, "transfer"):
		return RoleTransfer
	case strings.Contains(folded, "baixa"), strings.Contains(folded, "prejuizo"), strings.Contains(folded, "writeoff"):
		return RoleWriteOff
	case strings.Contains(folded, "constituicao"), strings.Contains(folded, "reversao"), strings.Contains(folded, "provis"):
		return RoleProvision
	default:
		return RoleOther
	}
}

package frame

import (
	"fmt"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Frame is a string table with named columns. Every row has len(Columns) cells.
type Frame struct {
	Columns []string
	Rows    [][]string
}

// New builds a frame from a header and rows, padding or trimming rows to the
// header width and making column names unique.
func New(header []string, rows [][]string) *Frame {
	f := &Frame{Columns: UniqueNames(header)}
	for _, row := range rows {
		f.Rows = append(f.Rows, fit(row, len(f.Columns)))
	}
	return f
}

// Empty reports whether the frame has no data rows.
func (f *Frame) Empty() bool {
	return f == nil || len(f.Rows) == 0
}

// Width is the number of columns.
func (f *Frame) Width() int {
	if f == nil {
		return 0
	}
	return len(f.Columns)
}

// Records returns the header followed by the rows.
func (f *Frame) Records() [][]string {
	out := make([][]string, 0, len(f.Rows)+1)
	out = append(out, append([]string(nil), f.Columns...))
	for _, row := range f.Rows {
		out = append(out, append([]string(nil), row...))
	}
	return out
}

// Column returns the cells of the named column.
func (f *Frame) Column(name string) ([]string, bool) {
	idx := indexOf(f.Columns, name)
	if idx < 0 {
		return nil, false
	}
	out := make([]string, len(f.Rows))
	for i, row := range f.Rows {
		out[i] = row[idx]
	}
	return out, true
}

// Pad appends blank rows until the frame has n rows.
func (f *Frame) Pad(n int) {
	for len(f.Rows) < n {
		f.Rows = append(f.Rows, make([]string, len(f.Columns)))
	}
}

// Rename prefixes every column name.
func (f *Frame) Rename(prefix string) {
	for i, c := range f.Columns {
		f.Columns[i] = prefix + c
	}
}

// DataFrame converts a non-empty frame into a gota DataFrame of strings.
func (f *Frame) DataFrame() (dataframe.DataFrame, error) {
	if f.Empty() {
		return dataframe.DataFrame{}, fmt.Errorf("frame has no rows")
	}
	df := dataframe.LoadRecords(f.Records(),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues([]string{}),
	)
	if df.Err != nil {
		return df, fmt.Errorf("load records: %w", df.Err)
	}
	return df, nil
}

// FromDataFrame converts a gota DataFrame back into a frame.
func FromDataFrame(df dataframe.DataFrame) *Frame {
	records := df.Records()
	if len(records) == 0 {
		return &Frame{}
	}
	return &Frame{Columns: records[0], Rows: records[1:]}
}

// Stack concatenates frames vertically. Columns are aligned by name in order
// of first appearance; cells missing from a frame are blank. When separate is
// true a blank row is placed between consecutive non-empty frames.
func Stack(frames []*Frame, separate bool) (*Frame, error) {
	var columns []string
	for _, f := range frames {
		for _, c := range f.Columns {
			if indexOf(columns, c) < 0 {
				columns = append(columns, c)
			}
		}
	}

	var (
		stacked dataframe.DataFrame
		started bool
	)
	appendFrame := func(part *Frame) error {
		df, err := align(part, columns).DataFrame()
		if err != nil {
			return err
		}
		if !started {
			stacked, started = df, true
			return nil
		}
		stacked = stacked.RBind(df)
		if stacked.Err != nil {
			return fmt.Errorf("rbind: %w", stacked.Err)
		}
		return nil
	}

	for _, f := range frames {
		if f.Empty() {
			continue
		}
		if started && separate {
			blank := &Frame{Columns: columns, Rows: [][]string{make([]string, len(columns))}}
			if err := appendFrame(blank); err != nil {
				return nil, err
			}
		}
		if err := appendFrame(f); err != nil {
			return nil, err
		}
	}

	if !started {
		return &Frame{Columns: columns}, nil
	}
	out := FromDataFrame(stacked)
	out.Columns = columns
	return out, nil
}

// UniqueNames replaces blank names with "Unnamed: <i>" and suffixes repeats
// with ".1", ".2", ...
func UniqueNames(names []string) []string {
	out := make([]string, len(names))
	seen := make(map[string]int, len(names))
	for i, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			n = fmt.Sprintf("Unnamed: %d", i)
		}
		base := n
		for seen[n] > 0 {
			n = fmt.Sprintf("%s.%d", base, seen[base])
			seen[base]++
		}
		seen[n]++
		out[i] = n
	}
	return out
}

func align(f *Frame, columns []string) *Frame {
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = indexOf(f.Columns, c)
	}
	out := &Frame{Columns: columns, Rows: make([][]string, len(f.Rows))}
	for r, row := range f.Rows {
		cells := make([]string, len(columns))
		for i, j := range idx {
			if j >= 0 && j < len(row) {
				cells[i] = row[j]
			}
		}
		out.Rows[r] = cells
	}
	return out
}

func fit(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}

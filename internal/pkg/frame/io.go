package frame

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/google/renameio/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// DecodeText returns b as UTF-8. Bytes that are not valid UTF-8 are treated as
// ISO-8859-1, the encoding older statement exports use.
func DecodeText(b []byte) ([]byte, error) {
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
	if utf8.Valid(b) {
		return b, nil
	}
	out, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), b)
	if err != nil {
		return nil, fmt.Errorf("decode latin-1: %w", err)
	}
	return out, nil
}

// ReadCSV parses CSV content. Rows may be ragged: short rows are padded and
// extra cells get "Unnamed: <i>" columns. Empty input yields an empty frame
// with no columns.
func ReadCSV(r io.Reader) (*Frame, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw, err = DecodeText(raw)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(bytes.NewReader(raw))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return &Frame{}, nil
	}

	header := records[0]
	width := len(header)
	for _, row := range records[1:] {
		if len(row) > width {
			width = len(row)
		}
	}
	for len(header) < width {
		header = append(header, "")
	}
	return New(header, records[1:]), nil
}

// ReadFile reads a CSV file from disk.
func ReadFile(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fr, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return fr, nil
}

// WriteCSV writes the header and rows.
func (f *Frame) WriteCSV(w io.Writer) error {
	if f.Width() == 0 {
		return nil
	}
	if f.Empty() {
		cw := csv.NewWriter(w)
		if err := cw.Write(f.Columns); err != nil {
			return err
		}
		cw.Flush()
		return cw.Error()
	}

	df, err := f.DataFrame()
	if err != nil {
		return err
	}
	return df.WriteCSV(w)
}

// WriteFile atomically replaces path with the CSV rendering of f.
func (f *Frame) WriteFile(path string) error {
	return WriteAtomic(path, f.WriteCSV)
}

// WriteAtomic writes through a pending file that only replaces path once
// write succeeded.
func WriteAtomic(path string, write func(io.Writer) error) error {
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending file %s: %w", path, err)
	}
	// no-op once the file was committed
	defer func() { _ = pending.Cleanup() }()

	if err := write(pending); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

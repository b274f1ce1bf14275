package mdtable

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"

	"eclreports/internal/pkg/frame"
)

// Table is one pipe table found in an OCR page. Rows[0] is the header row.
type Table struct {
	Index   int        `json:"index"` // 1-based position in the page
	Caption string     `json:"caption,omitempty"`
	Heading string     `json:"heading,omitempty"` // last heading above the table
	Rows    [][]string `json:"rows"`
}

// Page is the result of parsing one OCR markdown page.
type Page struct {
	Title  string   `json:"title,omitempty"`
	Tables []*Table `json:"tables"`
}

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// Parse renders markdown to HTML and collects every table with the heading or
// paragraph text right before it as caption. The last heading seen is kept
// apart, since notes like "Em milhares de reais" usually sit between a
// section heading and its table.
func Parse(raw []byte) (*Page, error) {
	src, err := frame.DecodeText(raw)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return nil, err
	}

	page := &Page{}
	lastText, heading := "", ""
	doc.Find("body").Children().Each(func(i int, s *goquery.Selection) {
		switch tag := goquery.NodeName(s); tag {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			text := cellText(s)
			if page.Title == "" && tag == "h1" {
				page.Title = text
			}
			lastText = text
			heading = text
		case "p":
			if text := cellText(s); text != "" {
				lastText = text
			}
		case "table":
			page.Tables = append(page.Tables, &Table{
				Index:   len(page.Tables) + 1,
				Caption: lastText,
				Heading: heading,
				Rows:    tableRows(s),
			})
			lastText = ""
		}
	})

	return page, nil
}

func tableRows(table *goquery.Selection) [][]string {
	rows := [][]string{}
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := []string{}
		row.Children().Each(func(i int, s *goquery.Selection) {
			tag := goquery.NodeName(s)
			if strings.EqualFold(tag, "td") || strings.EqualFold(tag, "th") {
				cells = append(cells, cellText(s))
			}
		})
		rows = append(rows, cells)
	})
	return rows
}

// cellText flattens a node's text, keeping <br> as a space.
func cellText(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		collectText(&b, n)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func collectText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
	case html.ElementNode:
		if n.Data == "br" {
			b.WriteString(" ")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c)
	}
}

// Width is the widest row of the table.
func (t *Table) Width() int {
	width := 0
	for _, row := range t.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// Clean drops data rows and columns whose cells are all blank. The header row
// is kept but does not count when deciding whether a column is blank.
func (t *Table) Clean() *Table {
	out := &Table{Index: t.Index, Caption: t.Caption, Heading: t.Heading}
	if len(t.Rows) == 0 {
		return out
	}

	width := t.Width()
	header := pad(t.Rows[0], width)

	var data [][]string
	for _, row := range t.Rows[1:] {
		row = pad(row, width)
		if !blank(row) {
			data = append(data, row)
		}
	}
	if len(data) == 0 {
		return out
	}

	var keep []int
	for c := 0; c < width; c++ {
		for _, row := range data {
			if strings.TrimSpace(row[c]) != "" {
				keep = append(keep, c)
				break
			}
		}
	}

	out.Rows = append(out.Rows, pick(header, keep))
	for _, row := range data {
		out.Rows = append(out.Rows, pick(row, keep))
	}
	return out
}

// Empty reports whether the table has no data rows.
func (t *Table) Empty() bool {
	return len(t.Rows) < 2
}

// Header returns unique, non-blank column names.
func (t *Table) Header() []string {
	if len(t.Rows) == 0 {
		return nil
	}
	return frame.UniqueNames(pad(t.Rows[0], t.Width()))
}

// Frame converts the table into a frame keyed by Header().
func (t *Table) Frame() *frame.Frame {
	if len(t.Rows) == 0 {
		return &frame.Frame{}
	}
	return frame.New(t.Header(), t.Rows[1:])
}

func pad(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

func pick(row []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = row[j]
	}
	return out
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

package report2pdf

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// BlockKind identifies the kind of a document block.
type BlockKind int

const (
	BlockHeading BlockKind = iota
	BlockParagraph
	BlockTable
)

// Block is one flow element of a parsed document, in document order.
type Block struct {
	Kind  BlockKind
	Level int    // heading level 1-6, only for BlockHeading
	Text  string // heading or paragraph text
	Table *TableInfo
}

// TableInfo describes one table-like structure.
type TableInfo struct {
	Index         int // position among the document's tables
	Columns       int // header column count
	Rows          int // body row count
	HasHeader     bool
	HasSummaryRow bool
	Headers       []string
	Body          [][]string // cell text per body row; summary row last when present
}

// Document is the parsed structural model of a report. It is derived data:
// computed per render attempt, never persisted.
type Document struct {
	Title  string
	Blocks []Block
	Tables []*TableInfo
}

// Text returns the document's readable content as lines, used by the
// plain-text backup strategy.
func (d *Document) Text() []string {
	var lines []string
	for _, b := range d.Blocks {
		switch b.Kind {
		case BlockHeading, BlockParagraph:
			if b.Text != "" {
				lines = append(lines, b.Text)
			}
		case BlockTable:
			if b.Table.HasHeader {
				lines = append(lines, strings.Join(b.Table.Headers, "\t"))
			}
			for _, row := range b.Table.Body {
				lines = append(lines, strings.Join(row, "\t"))
			}
		}
	}
	return lines
}

// Summary-row keywords checked against the first cells of a table's last row.
var summaryKeywords = []string{"total", "subtotal", "sum", "balance", "net"}

// ParseDocument builds the structural model from sanitized HTML.
func ParseDocument(content string) (*Document, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyDocument
	}

	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	doc := &Document{}
	collectBlocks(root, doc)

	for i, t := range doc.Tables {
		t.Index = i
	}
	if doc.Title == "" {
		for _, b := range doc.Blocks {
			if b.Kind == BlockHeading {
				doc.Title = b.Text
				break
			}
		}
	}
	return doc, nil
}

// collectBlocks walks the tree depth-first, appending flow blocks in
// document order. Table subtrees are consumed whole and not descended into
// again.
func collectBlocks(n *html.Node, doc *Document) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			collectBlocks(c, doc)
			continue
		}
		switch c.DataAtom {
		case atom.Title:
			if doc.Title == "" {
				doc.Title = nodeText(c)
			}
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			if text := nodeText(c); text != "" {
				doc.Blocks = append(doc.Blocks, Block{
					Kind:  BlockHeading,
					Level: headingLevel(c.DataAtom),
					Text:  text,
				})
			}
		case atom.Table:
			t := parseTable(c)
			doc.Tables = append(doc.Tables, t)
			doc.Blocks = append(doc.Blocks, Block{Kind: BlockTable, Table: t})
		case atom.P, atom.Li, atom.Blockquote, atom.Pre:
			if text := nodeText(c); text != "" {
				doc.Blocks = append(doc.Blocks, Block{Kind: BlockParagraph, Text: text})
			}
		case atom.Script, atom.Style:
			// skipped entirely
		default:
			collectBlocks(c, doc)
		}
	}
}

// parseTable extracts header and body rows from a table subtree.
func parseTable(table *html.Node) *TableInfo {
	t := &TableInfo{}

	var rows []*html.Node
	var headerRow *html.Node
	var footRows []*html.Node

	var walk func(n *html.Node, inHead, inFoot bool)
	walk = func(n *html.Node, inHead, inFoot bool) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Thead:
				walk(c, true, false)
			case atom.Tfoot:
				walk(c, false, true)
			case atom.Tbody:
				walk(c, inHead, inFoot)
			case atom.Tr:
				switch {
				case inHead && headerRow == nil:
					headerRow = c
				case inFoot:
					footRows = append(footRows, c)
				default:
					rows = append(rows, c)
				}
			case atom.Table:
				// nested tables contribute nothing to the outer shape
			}
		}
	}
	walk(table, false, false)

	// Without an explicit thead, a leading all-<th> row acts as header.
	if headerRow == nil && len(rows) > 0 && isHeaderRow(rows[0]) {
		headerRow = rows[0]
		rows = rows[1:]
	}

	if headerRow != nil {
		t.HasHeader = true
		t.Headers = rowCells(headerRow)
	}
	for _, r := range rows {
		t.Body = append(t.Body, rowCells(r))
	}
	for _, r := range footRows {
		t.Body = append(t.Body, rowCells(r))
	}
	if len(footRows) > 0 {
		t.HasSummaryRow = true
	} else if len(t.Body) > 0 && isSummaryRow(t.Body[len(t.Body)-1]) {
		t.HasSummaryRow = true
	}

	t.Rows = len(t.Body)
	t.Columns = len(t.Headers)
	if t.Columns == 0 && len(t.Body) > 0 {
		t.Columns = len(t.Body[0])
	}
	return t
}

// rowCells returns the trimmed text of each td/th in a row.
func rowCells(tr *html.Node) []string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			cells = append(cells, nodeText(c))
		}
	}
	return cells
}

// isHeaderRow reports whether every cell of the row is a <th>.
func isHeaderRow(tr *html.Node) bool {
	sawCell := false
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Th:
			sawCell = true
		case atom.Td:
			return false
		}
	}
	return sawCell
}

// isSummaryRow reports whether a row's leading cells look like an
// aggregate line (e.g. "Total", "Closing balance").
func isSummaryRow(cells []string) bool {
	limit := 2
	if len(cells) < limit {
		limit = len(cells)
	}
	for i := 0; i < limit; i++ {
		cell := strings.ToLower(cells[i])
		for _, kw := range summaryKeywords {
			if strings.Contains(cell, kw) {
				return true
			}
		}
	}
	return false
}

// nodeText returns the concatenated, whitespace-normalized text content of
// a subtree.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// headingLevel maps a heading atom to its numeric level.
func headingLevel(a atom.Atom) int {
	switch a {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	default:
		return 6
	}
}

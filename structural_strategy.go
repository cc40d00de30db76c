package report2pdf

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledgerline/go-report2pdf/internal/fileutil"
)

// Structural renderer metrics. Courier is used for its fixed advance width,
// which makes line wrapping and table alignment a pure character count.
const (
	structuralFontPt      = 9.0
	structuralLeadingPt   = 12.0
	courierAdvanceRatio   = 0.6
	structuralMarginPt    = 54.0 // 0.75in
	structuralPointsPerIn = 72.0
)

// StructuralStrategy emits a minimal PDF by hand: text lines from the
// parsed document, paginated, with tables rendered as aligned monospace
// rows. It has no external dependencies and exists so the chain can always
// produce a real PDF, even when the browser and the layout library both
// fail.
type StructuralStrategy struct{}

var _ RenderStrategy = (*StructuralStrategy)(nil)

func NewStructuralStrategy() *StructuralStrategy { return &StructuralStrategy{} }

func (st *StructuralStrategy) Name() string { return "structural" }

func (st *StructuralStrategy) Attempt(ctx context.Context, in *RenderInput) (string, error) {
	cfg := in.Config.resolved()
	widthIn, heightIn := cfg.paperDimensions()
	pageW := widthIn * structuralPointsPerIn
	pageH := heightIn * structuralPointsPerIn

	usableW := pageW - 2*structuralMarginPt
	maxCols := int(usableW / (structuralFontPt * courierAdvanceRatio))
	linesPerPage := int((pageH - 2*structuralMarginPt) / structuralLeadingPt)
	if maxCols < 20 || linesPerPage < 5 {
		return "", fmt.Errorf("page too small for structural layout: %dx%d", maxCols, linesPerPage)
	}

	lines := structuralLines(in.Document, maxCols)
	if len(lines) == 0 {
		return "", ErrEmptyDocument
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	pages := paginate(lines, linesPerPage)
	pdf := assemblePDF(pages, pageW, pageH)

	outPath, err := fileutil.ArtifactPath(in.WorkDir, in.JobID, st.Name(), "pdf")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(outPath, pdf, 0o644); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	if err := validatePDFArtifact(outPath); err != nil {
		return "", err
	}
	return outPath, nil
}

// structuralLines flattens the document into wrapped monospace lines.
// Tables become column-aligned rows with a dashed rule under the header.
func structuralLines(doc *Document, maxCols int) []string {
	var lines []string

	add := func(s string) {
		lines = append(lines, wrapLine(s, maxCols)...)
	}

	if doc.Title != "" {
		add(doc.Title)
		lines = append(lines, strings.Repeat("=", min(len(doc.Title), maxCols)), "")
	}

	for _, block := range doc.Blocks {
		switch block.Kind {
		case BlockHeading:
			add(block.Text)
			lines = append(lines, strings.Repeat("-", min(len(block.Text), maxCols)), "")
		case BlockParagraph:
			add(block.Text)
			lines = append(lines, "")
		case BlockTable:
			if block.Table != nil {
				lines = append(lines, tableLines(block.Table, maxCols)...)
				lines = append(lines, "")
			}
		}
	}
	return lines
}

// tableLines renders a table as fixed-width columns separated by two spaces.
func tableLines(t *TableInfo, maxCols int) []string {
	if t.Columns == 0 {
		return nil
	}

	const sep = 2
	colW := (maxCols - sep*(t.Columns-1)) / t.Columns
	if colW < 4 {
		colW = 4
	}

	formatRow := func(cells []string) string {
		var parts []string
		for i := 0; i < t.Columns; i++ {
			var cell string
			if i < len(cells) {
				cell = strings.TrimSpace(cells[i])
			}
			if len(cell) > colW {
				cell = cell[:colW]
			}
			parts = append(parts, fmt.Sprintf("%-*s", colW, cell))
		}
		return strings.TrimRight(strings.Join(parts, strings.Repeat(" ", sep)), " ")
	}

	var lines []string
	if t.HasHeader && len(t.Headers) > 0 {
		lines = append(lines, formatRow(t.Headers))
		lines = append(lines, strings.Repeat("-", min(maxCols, t.Columns*(colW+sep)-sep)))
	}
	for _, row := range t.Body {
		lines = append(lines, formatRow(row))
	}
	return lines
}

// wrapLine breaks a string on word boundaries at the column limit.
func wrapLine(s string, maxCols int) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{""}
	}

	var out []string
	words := strings.Fields(s)
	var cur strings.Builder
	for _, w := range words {
		if cur.Len() == 0 {
			cur.WriteString(w)
			continue
		}
		if cur.Len()+1+len(w) > maxCols {
			out = append(out, cur.String())
			cur.Reset()
			cur.WriteString(w)
			continue
		}
		cur.WriteByte(' ')
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func paginate(lines []string, perPage int) [][]string {
	var pages [][]string
	for start := 0; start < len(lines); start += perPage {
		end := start + perPage
		if end > len(lines) {
			end = len(lines)
		}
		pages = append(pages, lines[start:end])
	}
	return pages
}

// assemblePDF writes a complete single-font PDF document: catalog, page
// tree, Courier font, and one page plus content stream per page of lines.
func assemblePDF(pages [][]string, pageW, pageH float64) []byte {
	// Object numbering: 1 catalog, 2 pages, 3 font, then pairs of
	// (page, contents) starting at 4.
	objCount := 3 + 2*len(pages)
	offsets := make([]int, objCount+1)

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	writeObj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	var kids []string
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", 4+2*i))
	}

	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>",
		strings.Join(kids, " "), len(pages)))
	writeObj(3, "<< /Type /Font /Subtype /Type1 /BaseFont /Courier >>")

	for i, pageLines := range pages {
		pageNum := 4 + 2*i
		contentNum := pageNum + 1

		writeObj(pageNum, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %.2f %.2f] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			pageW, pageH, contentNum))

		stream := contentStream(pageLines, pageH)
		writeObj(contentNum, fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(stream), stream))
	}

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", objCount+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= objCount; i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		objCount+1, xrefStart)

	return buf.Bytes()
}

// contentStream emits the text operators for one page of lines.
func contentStream(lines []string, pageH float64) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "BT\n/F1 %.1f Tf\n%.1f TL\n%.1f %.1f Td\n",
		structuralFontPt, structuralLeadingPt,
		structuralMarginPt, pageH-structuralMarginPt)
	for _, line := range lines {
		fmt.Fprintf(&buf, "(%s) Tj\nT*\n", escapePDFText(line))
	}
	buf.WriteString("ET\n")
	return buf.String()
}

// escapePDFText makes a line safe inside a PDF literal string: escapes the
// delimiters and replaces bytes outside the printable ASCII range.
func escapePDFText(s string) string {
	var buf strings.Builder
	for _, r := range s {
		switch {
		case r == '(' || r == ')' || r == '\\':
			buf.WriteByte('\\')
			buf.WriteRune(r)
		case r >= 32 && r < 127:
			buf.WriteRune(r)
		default:
			buf.WriteByte('?')
		}
	}
	return buf.String()
}

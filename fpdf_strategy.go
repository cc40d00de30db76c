package report2pdf

import (
	"context"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/ledgerline/go-report2pdf/internal/fileutil"
)

// lineSpacing converts a font size in points to a cell height in inches.
const lineSpacing = 1.5 / 72.0

// fpdfPageNames maps page size identifiers to the library's size names.
var fpdfPageNames = map[string]string{
	PageSizeLetter: "Letter",
	PageSizeA4:     "A4",
	PageSizeLegal:  "Legal",
}

// LibraryStrategy renders the parsed document directly with a PDF library.
// No browser involved: headings, paragraphs, and tables are laid out from
// the document structure, honoring the computed table directives for
// column widths and font scaling.
type LibraryStrategy struct{}

var _ RenderStrategy = (*LibraryStrategy)(nil)

func NewLibraryStrategy() *LibraryStrategy { return &LibraryStrategy{} }

func (l *LibraryStrategy) Name() string { return "library" }

func (l *LibraryStrategy) Attempt(ctx context.Context, in *RenderInput) (string, error) {
	cfg := in.Config.resolved()

	orientation := "P"
	if strings.ToLower(cfg.Orientation) == OrientationLandscape {
		orientation = "L"
	}

	pageName, ok := fpdfPageNames[strings.ToLower(cfg.PageSize)]
	if !ok {
		pageName = "Letter"
	}
	pdf := gofpdf.New(orientation, "in", pageName, "")
	pdf.SetMargins(cfg.Margin, cfg.Margin, cfg.Margin)
	pdf.SetAutoPageBreak(true, cfg.Margin)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	usable := pageW - 2*cfg.Margin

	if in.Document.Title != "" {
		pdf.SetFont("Helvetica", "B", 16)
		pdf.MultiCell(usable, 16*lineSpacing, tr(in.Document.Title), "", "L", false)
		pdf.Ln(8 * lineSpacing)
	}

	for _, block := range in.Document.Blocks {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		switch block.Kind {
		case BlockHeading:
			size := headingFontPt(block.Level)
			pdf.SetFont("Helvetica", "B", size)
			pdf.MultiCell(usable, size*lineSpacing, tr(block.Text), "", "L", false)
			pdf.Ln(4 * lineSpacing)

		case BlockParagraph:
			pdf.SetFont("Helvetica", "", in.Directives.BaseFontPt)
			pdf.MultiCell(usable, in.Directives.BaseFontPt*lineSpacing, tr(block.Text), "", "L", false)
			pdf.Ln(4 * lineSpacing)

		case BlockTable:
			if block.Table == nil {
				continue
			}
			l.renderTable(pdf, tr, block.Table, in.Directives, usable)
			pdf.Ln(8 * lineSpacing)
		}
	}

	if pdf.Err() {
		return "", fmt.Errorf("building document: %v", pdf.Error())
	}

	outPath, err := fileutil.ArtifactPath(in.WorkDir, in.JobID, l.Name(), "pdf")
	if err != nil {
		return "", err
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	if err := validatePDFArtifact(outPath); err != nil {
		return "", err
	}
	return outPath, nil
}

func (l *LibraryStrategy) renderTable(
	pdf *gofpdf.Fpdf,
	tr func(string) string,
	table *TableInfo,
	d *LayoutDirective,
	usable float64,
) {
	dir := directiveFor(d, table.Index)
	fontPt := d.BaseFontPt * dir.FontScale
	rowH := fontPt * lineSpacing
	widths := columnWidths(dir, table.Columns, usable)

	if table.HasHeader && len(table.Headers) > 0 {
		pdf.SetFont("Helvetica", "B", fontPt)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range table.Headers {
			if i >= len(widths) {
				break
			}
			pdf.CellFormat(widths[i], rowH, tr(truncateCell(h)), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(rowH)
	}

	pdf.SetFont("Helvetica", "", fontPt)
	for rowIdx, row := range table.Body {
		fill := false
		if d.AlternateRowShading && rowIdx%2 == 1 {
			pdf.SetFillColor(244, 244, 244)
			fill = true
		}
		summary := table.HasSummaryRow && rowIdx == len(table.Body)-1
		if summary {
			pdf.SetFont("Helvetica", "B", fontPt)
		}
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			pdf.CellFormat(widths[i], rowH, tr(truncateCell(cell)), "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(rowH)
		if summary {
			pdf.SetFont("Helvetica", "", fontPt)
		}
	}
}

// directiveFor finds the directive for a table by index, falling back to a
// neutral directive when the document and directive sets disagree.
func directiveFor(d *LayoutDirective, index int) TableDirective {
	for _, t := range d.Tables {
		if t.Index == index {
			return t
		}
	}
	return TableDirective{Index: index, FontScale: 1.0, Distribution: DistributionAuto}
}

// columnWidths converts a directive's percentage distribution into absolute
// widths over the usable page width.
func columnWidths(dir TableDirective, columns int, usable float64) []float64 {
	if columns <= 0 {
		return nil
	}
	widths := make([]float64, columns)

	if dir.Distribution == DistributionEqual && dir.ColumnPct > 0 {
		for i := range widths {
			widths[i] = usable * dir.ColumnPct / 100
		}
		widths[0] = usable * dir.FirstColumnPct / 100
		return widths
	}

	// Auto: equal split, with the first column widened to its floor when
	// the even share falls below it.
	share := usable / float64(columns)
	first := share
	if floor := usable * firstColumnMinPct / 100; columns > 1 && first < floor {
		first = floor
		share = (usable - first) / float64(columns-1)
	}
	widths[0] = first
	for i := 1; i < columns; i++ {
		widths[i] = share
	}
	return widths
}

// truncateCell bounds cell text so a pathological value cannot blow up a
// fixed-height row.
func truncateCell(s string) string {
	const maxCellRunes = 120
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= maxCellRunes {
		return s
	}
	return string(runes[:maxCellRunes-1]) + "…"
}

func headingFontPt(level int) float64 {
	switch level {
	case 1:
		return 16
	case 2:
		return 14
	case 3:
		return 12
	default:
		return 11
	}
}

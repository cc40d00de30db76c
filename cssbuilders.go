package report2pdf

import (
	"fmt"
	"regexp"
	"strings"
)

// defaultFontFamily is the standard font stack for rendered reports.
const defaultFontFamily = "'Helvetica Neue', Helvetica, Arial, sans-serif"

// tableIndexAttr carries a table's document-wide index into the markup so
// per-table rules address the same tables the directives describe, no
// matter how section wrappers group them.
const tableIndexAttr = "data-table-index"

var tableTagPattern = regexp.MustCompile(`(?i)</?table\b`)

// tagTables stamps every top-level <table> opening tag with its
// document-wide index. Nested tables stay untagged; they are part of their
// parent table in the document model and carry no directive of their own.
func tagTables(htmlContent string) string {
	locs := tableTagPattern.FindAllStringIndex(htmlContent, -1)
	if len(locs) == 0 {
		return htmlContent
	}

	var buf strings.Builder
	depth, index, last := 0, 0, 0
	for _, loc := range locs {
		if htmlContent[loc[0]+1] == '/' {
			if depth > 0 {
				depth--
			}
			continue
		}
		if depth == 0 {
			buf.WriteString(htmlContent[last:loc[1]])
			fmt.Fprintf(&buf, ` %s="%d"`, tableIndexAttr, index)
			index++
			last = loc[1]
		}
		depth++
	}
	buf.WriteString(htmlContent[last:])
	return buf.String()
}

// buildPrintCSS generates the page-level print stylesheet from the render
// config: @page geometry, base typography, and the presentation toggles
// that do not depend on document shape.
func buildPrintCSS(cfg *RenderConfig) string {
	cfg = cfg.resolved()
	width, height := cfg.paperDimensions()

	var buf strings.Builder

	buf.WriteString(fmt.Sprintf(`
/* Page geometry */
@page {
  size: %.2fin %.2fin;
  margin: %.2fin;
}
body {
  font-family: %s;
  font-size: %.1fpt;
  color: #1a1a1a;
}
table {
  border-collapse: collapse;
  width: 100%%;
}
th, td {
  padding: 2pt 4pt;
  text-align: left;
}
`, width, height, cfg.Margin, defaultFontFamily, baseFontPt))

	if cfg.AlternateRowShading {
		buf.WriteString(`
/* Alternate row shading */
tbody tr:nth-child(even) {
  background-color: #f4f4f4;
}
`)
	}

	if cfg.AutoFitText {
		buf.WriteString(`
/* Auto-fit text */
table {
  table-layout: fixed;
}
th, td {
  overflow-wrap: break-word;
  word-break: break-word;
}
`)
	}

	return buf.String()
}

// buildLayoutCSS translates computed layout directives into stylesheet
// rules. Strategies that understand CSS (the browser renderer) receive the
// directives this way; the others read the directive struct directly.
func buildLayoutCSS(d *LayoutDirective) string {
	var buf strings.Builder

	if d.BindTitles {
		buf.WriteString(`
/* A section title is never the last element on a page */
h1, h2, h3, h4, h5, h6, .report-title {
  break-after: avoid;
  page-break-after: avoid;
  break-inside: avoid;
  page-break-inside: avoid;
}
`)
	}

	if d.RepeatHeaders {
		buf.WriteString(`
/* Table headers repeat on every page the table spans */
thead {
  display: table-header-group;
}
thead th {
  break-inside: avoid;
  page-break-inside: avoid;
}
`)
	}

	if d.BindSummaryRows {
		buf.WriteString(`
/* Aggregate rows never begin a page in isolation */
tfoot, tr:last-child {
  break-before: avoid;
  page-break-before: avoid;
  break-inside: avoid;
  page-break-inside: avoid;
}
`)
	}

	if d.KeepRowGroups {
		buf.WriteString(`
/* Keep logical row groups together */
tbody {
  break-inside: avoid;
  page-break-inside: avoid;
}
tr {
  break-inside: avoid;
  page-break-inside: avoid;
}
`)
	}

	for _, t := range d.Tables {
		buf.WriteString(tableCSS(t, d.BaseFontPt))
	}

	return buf.String()
}

// tableCSS generates the per-table rules: font scale by size class and the
// column-width distribution. Tables are addressed by the index attribute
// tagTables stamped on them; positional selectors reset per parent element
// and miss tables wrapped in their own sections.
func tableCSS(t TableDirective, basePt float64) string {
	selector := fmt.Sprintf(`table[%s="%d"]`, tableIndexAttr, t.Index)

	var buf strings.Builder
	buf.WriteString(fmt.Sprintf(`
/* Table %d: %d columns (%s) */
%s {
  font-size: %.1fpt;
}
`, t.Index+1, t.Columns, t.Class, selector, basePt*t.FontScale))

	switch t.Distribution {
	case DistributionAuto:
		buf.WriteString(fmt.Sprintf(`%s {
  table-layout: auto;
}
%s th:first-child, %s td:first-child {
  min-width: %.0f%%;
}
`, selector, selector, selector, firstColumnMinPct))

	case DistributionEqual:
		buf.WriteString(fmt.Sprintf(`%s {
  table-layout: fixed;
}
%s th, %s td {
  width: %.2f%%;
}
%s th:first-child, %s td:first-child {
  width: %.2f%%;
}
`, selector, selector, selector, t.ColumnPct, selector, selector, t.FirstColumnPct))
	}

	return buf.String()
}

// injectCSS inserts a <style> block into HTML content.
// Tries </head> first, then after <body>, then prepends.
// CSS content is sanitized so it cannot close the style block early.
func injectCSS(htmlContent, cssContent string) string {
	if cssContent == "" {
		return htmlContent
	}

	styleBlock := "<style>" + strings.ReplaceAll(cssContent, "</", `<\/`) + "</style>"
	lowerHTML := strings.ToLower(htmlContent)

	if idx := strings.Index(lowerHTML, "</head>"); idx != -1 {
		return htmlContent[:idx] + styleBlock + htmlContent[idx:]
	}

	if idx := strings.Index(lowerHTML, "<body"); idx != -1 {
		if closeIdx := strings.Index(htmlContent[idx:], ">"); closeIdx != -1 {
			insertPos := idx + closeIdx + 1
			return htmlContent[:insertPos] + styleBlock + htmlContent[insertPos:]
		}
	}

	return styleBlock + htmlContent
}

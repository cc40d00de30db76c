package report2pdf

// Column-count bands. Thresholds are tunable policy; the classification is
// monotonic, so more columns never yields a larger font scale.
const (
	fewColumnsMax      = 5
	moderateColumnsMax = 9
)

// Font scale per band, relative to the base body font.
const (
	fontScaleFew      = 1.0
	fontScaleModerate = 0.85
	fontScaleMany     = 0.7
)

// Column-width policy for the equal-fraction distribution.
const (
	// firstColumnMinPct is the generous minimum for the label column when
	// widths are content-driven.
	firstColumnMinPct = 18.0

	// firstColumnBoost widens the label column relative to the equal share
	// in the fixed distribution.
	firstColumnBoost = 1.5

	// baseFontPt is the body font size at scale 1.0.
	baseFontPt = 10.0
)

// TableClass is the size band of a table, based on its column count.
type TableClass int

const (
	TableFewColumns TableClass = iota
	TableModerateColumns
	TableManyColumns
)

func (c TableClass) String() string {
	switch c {
	case TableFewColumns:
		return "few"
	case TableModerateColumns:
		return "moderate"
	default:
		return "many"
	}
}

// ColumnDistribution selects how column widths are assigned.
type ColumnDistribution int

const (
	// DistributionAuto lets content drive widths, with a minimum for the
	// first (label) column.
	DistributionAuto ColumnDistribution = iota

	// DistributionEqual forces equal fractional widths with a slightly
	// wider first column. The aggregate never exceeds 100% of page width.
	DistributionEqual
)

// TableDirective holds the computed layout instructions for one table.
type TableDirective struct {
	Index        int
	Columns      int
	Class        TableClass
	FontScale    float64
	Distribution ColumnDistribution

	// Width percentages for DistributionEqual; zero for DistributionAuto.
	FirstColumnPct float64
	ColumnPct      float64
}

// LayoutDirective is the full set of advisory stylesheet instructions for a
// document. It is a pure function of (document shape, config): recomputed
// per render attempt, never stored.
type LayoutDirective struct {
	Tables []TableDirective

	// Pagination-avoidance markers.
	BindTitles      bool // a title is never the last element on a page
	BindSummaryRows bool // aggregate rows never start a page alone
	RepeatHeaders   bool // table header rows repeat on every page
	KeepRowGroups   bool // logical row groups do not split across pages

	AlternateRowShading bool
	AutoFitText         bool
	BaseFontPt          float64
}

// ComputeDirectives derives layout directives from the document's tabular
// shape and the job's render config. Output is advisory only: it renders
// nothing itself and is handed to each strategy as instructions.
func ComputeDirectives(doc *Document, cfg *RenderConfig) *LayoutDirective {
	cfg = cfg.resolved()

	d := &LayoutDirective{
		BindTitles:          true,
		BindSummaryRows:     true,
		RepeatHeaders:       cfg.RepeatHeaders,
		KeepRowGroups:       cfg.KeepRowGroups,
		AlternateRowShading: cfg.AlternateRowShading,
		AutoFitText:         cfg.AutoFitText,
		BaseFontPt:          baseFontPt,
	}

	for _, t := range doc.Tables {
		d.Tables = append(d.Tables, tableDirective(t))
	}
	return d
}

// tableDirective classifies one table and assigns its width distribution.
func tableDirective(t *TableInfo) TableDirective {
	class := classifyColumns(t.Columns)
	td := TableDirective{
		Index:     t.Index,
		Columns:   t.Columns,
		Class:     class,
		FontScale: fontScaleFor(class),
	}

	if class == TableFewColumns {
		td.Distribution = DistributionAuto
		return td
	}

	// Equal fractional widths; first column slightly wider. With n columns
	// the shares are boost+(n-1) equal parts of 100, so the aggregate is
	// exactly 100%.
	td.Distribution = DistributionEqual
	n := float64(t.Columns)
	if n < 2 {
		td.FirstColumnPct = 100
		return td
	}
	share := 100.0 / (firstColumnBoost + n - 1)
	td.FirstColumnPct = share * firstColumnBoost
	td.ColumnPct = share
	return td
}

// classifyColumns maps a column count to its size band.
func classifyColumns(columns int) TableClass {
	switch {
	case columns <= fewColumnsMax:
		return TableFewColumns
	case columns <= moderateColumnsMax:
		return TableModerateColumns
	default:
		return TableManyColumns
	}
}

// fontScaleFor returns the font scale for a size band. Strictly
// non-increasing in column count.
func fontScaleFor(class TableClass) float64 {
	switch class {
	case TableFewColumns:
		return fontScaleFew
	case TableModerateColumns:
		return fontScaleModerate
	default:
		return fontScaleMany
	}
}

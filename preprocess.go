package report2pdf

import (
	"fmt"
	"regexp"
	"strings"
)

// sizeOptimizeThreshold is the document size in bytes above which the
// preprocessor applies its additional size-reduction pass.
const sizeOptimizeThreshold = 500 * 1024

// tagImbalanceTolerance is how many unbalanced block-level tags are accepted
// before a warning is emitted. Legitimate reports frequently omit a closer
// or two.
const tagImbalanceTolerance = 2

// Precompiled patterns for sanitization. Case-insensitive and dot-matches-
// newline where the construct can span lines.
var (
	// Script blocks can synchronously rewrite the document and hang
	// automated renderers.
	scriptBlockPattern = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)

	// Orphaned opening script tags left by truncated uploads.
	danglingScriptPattern = regexp.MustCompile(`(?i)<script\b[^>]*>`)

	// Fixed and sticky positioning break paginated layout.
	stickyPositionPattern = regexp.MustCompile(`(?i)position\s*:\s*(?:fixed|sticky)\s*;?`)

	// Declarative animation is irrelevant to print and a source of
	// indefinite waits in rendering backends.
	animationDeclPattern = regexp.MustCompile(`(?i)(?:-webkit-)?animation(?:-[a-z-]+)?\s*:[^;"'}]*;?`)
	transitionPattern    = regexp.MustCompile(`(?i)transition(?:-[a-z-]+)?\s*:[^;"'}]*;?`)
	keyframesPattern     = regexp.MustCompile(`(?is)@(?:-webkit-)?keyframes\s+[^{]+\{(?:[^{}]*\{[^}]*\})*[^}]*\}`)

	// Legacy motion elements.
	marqueePattern = regexp.MustCompile(`(?is)</?(?:marquee|blink)\b[^>]*>`)

	// Size-reduction patterns.
	inlineStylePattern   = regexp.MustCompile(`(?i)\s+style\s*=\s*(?:"[^"]*"|'[^']*')`)
	spaceRunPattern      = regexp.MustCompile(`[ \t]{2,}`)
	blankLinesPattern    = regexp.MustCompile(`\n{3,}`)
	htmlCommentPattern   = regexp.MustCompile(`(?s)<!--.*?-->`)
	crlfPattern          = regexp.MustCompile(`\r\n?`)
	interTagSpacePattern = regexp.MustCompile(`>\s+<`)
)

// Block-level tags whose open/close balance is checked during validation.
var balanceCheckedTags = []string{"div", "table", "tr", "td", "th"}

// Preprocessor validates and sanitizes raw HTML before rendering.
// It is a pure transform: same input, same output, no side effects.
type Preprocessor struct {
	// SizeThreshold is the byte size above which the size-reduction pass
	// runs. Zero means sizeOptimizeThreshold.
	SizeThreshold int
}

// Prepare validates and sanitizes a raw document.
// Structural violations produce warnings, not failures: many legitimate
// reports trip heuristic checks, and the pipeline must still attempt to
// render them.
func (p *Preprocessor) Prepare(raw string) (string, []Warning) {
	warnings := p.validate(raw)

	content := crlfPattern.ReplaceAllString(raw, "\n")
	content = sanitize(content)

	threshold := p.SizeThreshold
	if threshold <= 0 {
		threshold = sizeOptimizeThreshold
	}
	if len(content) > threshold {
		content = optimizeSize(content)
	}

	return content, warnings
}

// validate runs gross structural well-formedness checks.
func (p *Preprocessor) validate(raw string) []Warning {
	var warnings []Warning
	lower := strings.ToLower(raw)

	if !strings.Contains(lower, "<html") {
		warnings = append(warnings, Warning{
			Code:    "missing-root",
			Message: "document has no <html> root tag",
		})
	}
	if !strings.Contains(lower, "<body") {
		warnings = append(warnings, Warning{
			Code:    "missing-body",
			Message: "document has no <body> tag",
		})
	}

	for _, tag := range balanceCheckedTags {
		open := strings.Count(lower, "<"+tag)
		// "<td" also matches "<tdata..." in theory, but the checked tags
		// have no common prefixes among real HTML elements.
		closed := strings.Count(lower, "</"+tag)
		if diff := open - closed; diff > tagImbalanceTolerance || diff < -tagImbalanceTolerance {
			warnings = append(warnings, Warning{
				Code:    "tag-imbalance",
				Message: fmt.Sprintf("unbalanced <%s> tags: %d open, %d close", tag, open, closed),
			})
		}
	}

	return warnings
}

// sanitize strips constructs known to hang or break rendering backends.
// Every removal is idempotent.
func sanitize(content string) string {
	content = scriptBlockPattern.ReplaceAllString(content, "")
	content = danglingScriptPattern.ReplaceAllString(content, "")
	content = keyframesPattern.ReplaceAllString(content, "")
	content = stickyPositionPattern.ReplaceAllString(content, "")
	content = animationDeclPattern.ReplaceAllString(content, "")
	content = transitionPattern.ReplaceAllString(content, "")
	content = marqueePattern.ReplaceAllString(content, "")
	return content
}

// optimizeSize shrinks oversized documents. Deterministic and idempotent:
// re-running it on already optimized input does not materially shrink it
// further.
func optimizeSize(content string) string {
	content = htmlCommentPattern.ReplaceAllString(content, "")
	content = inlineStylePattern.ReplaceAllString(content, "")
	content = spaceRunPattern.ReplaceAllString(content, " ")
	content = interTagSpacePattern.ReplaceAllString(content, "> <")
	content = blankLinesPattern.ReplaceAllString(content, "\n\n")
	return content
}

// Package extract pulls knowledge candidates out of free-form agent
// output. Agents write session notes with conventional markers
// ("Finding: ...", "Decision: ..."); this package recognizes those
// markers line by line and maps each to a categorized candidate, so the
// interesting lines of a work log can flow into the knowledge store
// without anyone tagging them by hand.
package extract

import (
	"regexp"
	"strings"

	"github.com/teambrain/knowledgesync/pkg/knowledge"
)

// minContentLength filters out markers with no real payload, like a bare
// "TODO: fix". Payloads must be strictly longer than this.
const minContentLength = 10

// Candidate is one extracted piece of knowledge, not yet stored.
type Candidate struct {
	Content  string
	Category knowledge.Category
}

// pattern maps a line marker to the category its payload receives.
type pattern struct {
	re       *regexp.Regexp
	category knowledge.Category
}

// Markers may appear anywhere on a line ("- Key finding: ..." in a
// bullet list counts); the payload runs to end of line.
var patterns = []pattern{
	{regexp.MustCompile(`(?i)(?:key\s+)?finding:\s*(.+)`), knowledge.CategoryFinding},
	{regexp.MustCompile(`(?i)decision:\s*(.+)`), knowledge.CategoryDecision},
	{regexp.MustCompile(`(?i)problem:\s*(.+)`), knowledge.CategoryProblem},
	{regexp.MustCompile(`(?i)solution:\s*(.+)`), knowledge.CategorySolution},
	{regexp.MustCompile(`(?i)todo:\s*(.+)`), knowledge.CategoryTodo},
	{regexp.MustCompile(`(?i)note:\s*(.+)`), knowledge.CategoryFact},
	{regexp.MustCompile(`(?i)insight:\s*(.+)`), knowledge.CategoryInsight},
	{regexp.MustCompile(`(?i)config(?:uration)?:\s*(.+)`), knowledge.CategoryConfig},
}

// FromText scans text for knowledge markers and returns the candidates
// found, in pattern order. Payloads of ten characters or fewer are
// dropped as noise.
//
// Example:
//
//	candidates := extract.FromText(`
//	    Finding: BCH responds in 50ms on average
//	    TODO: check the p99 too
//	`)
//	// candidates[0].Category == knowledge.CategoryFinding
func FromText(text string) []Candidate {
	var out []Candidate
	for _, p := range patterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			content := strings.TrimSpace(m[1])
			if len(content) <= minContentLength {
				continue
			}
			out = append(out, Candidate{Content: content, Category: p.category})
		}
	}
	return out
}

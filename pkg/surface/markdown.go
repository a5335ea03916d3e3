package surface

import (
	"fmt"
	"io"
	"strings"

	"github.com/darescore/dare/pkg/platform"
	"github.com/darescore/dare/pkg/scoring"
)

// MarkdownRenderer produces a shareable markdown report of a score.
type MarkdownRenderer struct {
	// MaxRecommendations caps the listed recommendations; zero lists all.
	MaxRecommendations int
}

func (r *MarkdownRenderer) Render(w io.Writer, score *scoring.CompositeScore) error {
	_, err := io.WriteString(w, r.Build(score))
	return err
}

// Build returns the markdown report of score.
func (r *MarkdownRenderer) Build(score *scoring.CompositeScore) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## Dare Score: %d (%s)\n\n", score.Overall, Band(score.Overall))

	sb.WriteString("| Family | Score | Weight |\n|--------|-------|--------|\n")
	for _, f := range platform.Families {
		v := score.Families.Get(f)
		val := "n/a"
		if v != nil {
			val = fmt.Sprintf("%.1f", *v)
		}
		fmt.Fprintf(&sb, "| %s | %s | %.2f |\n", familyName(f), val, score.Weights.For(f))
	}
	sb.WriteString("\n")

	list(&sb, "Strengths", score.Strengths, 0)
	list(&sb, "Improvements", score.Improvements, 0)
	list(&sb, "Recommendations", score.Recommendations, r.MaxRecommendations)

	if len(score.Missing) > 0 {
		fmt.Fprintf(&sb, "_%s_\n", scoring.ConnectMoreText(score.Missing))
	}
	return sb.String()
}

func list(sb *strings.Builder, title string, items []string, limit int) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "### %s\n\n", title)
	n := len(items)
	if limit > 0 && n > limit {
		n = limit
	}
	for _, it := range items[:n] {
		fmt.Fprintf(sb, "- %s\n", it)
	}
	if n < len(items) {
		fmt.Fprintf(sb, "- _... and %d more_\n", len(items)-n)
	}
	sb.WriteString("\n")
}

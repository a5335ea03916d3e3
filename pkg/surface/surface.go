// Package surface renders Dare Scores and platform metrics for humans and
// machines: terminal, markdown report, JSON.
package surface

import (
	"io"

	"github.com/darescore/dare/pkg/platform"
	"github.com/darescore/dare/pkg/scoring"
)

// Renderer produces formatted output from a CompositeScore.
type Renderer interface {
	// Render writes the formatted score to the writer.
	Render(w io.Writer, score *scoring.CompositeScore) error
}

// MetricsRenderer produces formatted output from one platform's metrics.
type MetricsRenderer interface {
	RenderMetrics(w io.Writer, m *platform.Metrics) error
}

// Band buckets an overall score for display.
func Band(overall int) string {
	switch {
	case overall >= 70:
		return "Strong"
	case overall >= 50:
		return "Moderate"
	default:
		return "Weak"
	}
}

// ForFormat returns the renderer for an output format name. Unknown names
// fall back to the terminal renderer.
func ForFormat(format string) Renderer {
	switch format {
	case "json":
		return &JSONRenderer{}
	case "markdown", "md":
		return &MarkdownRenderer{}
	default:
		return &TerminalRenderer{}
	}
}

var familyNames = map[platform.Family]string{
	platform.FamilyCodeHosting:         "Code hosting",
	platform.FamilyProfessionalNetwork: "Professional network",
	platform.FamilyLongFormContent:     "Long-form content",
	platform.FamilyShortFormSocial:     "Short-form social",
}

func familyName(f platform.Family) string {
	if n, ok := familyNames[f]; ok {
		return n
	}
	return string(f)
}

package surface

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/darescore/dare/pkg/platform"
	"github.com/darescore/dare/pkg/scoring"
)

// TerminalRenderer renders scores as colored terminal output.
type TerminalRenderer struct{}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

func scoreColor(v float64) string {
	if noColor() {
		return ""
	}
	switch Band(int(v)) {
	case "Strong":
		return colorGreen
	case "Moderate":
		return colorYellow
	default:
		return colorRed
	}
}

func noColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

func bold(s string) string {
	if noColor() {
		return s
	}
	return colorBold + s + colorReset
}

func dim(s string) string {
	if noColor() {
		return s
	}
	return colorDim + s + colorReset
}

func colored(s, color string) string {
	if noColor() || color == "" {
		return s
	}
	return color + s + colorReset
}

func (r *TerminalRenderer) Render(w io.Writer, score *scoring.CompositeScore) error {
	c := scoreColor(float64(score.Overall))
	fmt.Fprintf(w, "%s\n\n",
		bold(fmt.Sprintf("Dare Score: %s (%s)",
			colored(fmt.Sprintf("%d", score.Overall), c), Band(score.Overall))))

	fmt.Fprintln(w, "Families:")
	for _, f := range platform.Families {
		v := score.Families.Get(f)
		if v == nil {
			fmt.Fprintf(w, "  %-22s %s\n", familyName(f), dim("not connected"))
			continue
		}
		fmt.Fprintf(w, "  %-22s %s  %s\n", familyName(f),
			colored(fmt.Sprintf("%5.1f", *v), scoreColor(*v)), dim(fmt.Sprintf("weight %.2f", score.Weights.For(f))))
	}
	fmt.Fprintln(w)

	section(w, "Strengths:", score.Strengths, colored("+", colorGreen))
	section(w, "Improvements:", score.Improvements, colored("-", colorYellow))

	if len(score.Recommendations) > 0 {
		fmt.Fprintln(w, "Recommendations:")
		for _, rec := range score.Recommendations {
			lines := wrapText(rec, 70)
			for i, line := range lines {
				if i == 0 {
					fmt.Fprintf(w, "  • %s\n", line)
					continue
				}
				fmt.Fprintf(w, "    %s\n", dim(line))
			}
		}
		fmt.Fprintln(w)
	}

	if len(score.Missing) > 0 {
		fmt.Fprintln(w, dim(scoring.ConnectMoreText(score.Missing)))
		fmt.Fprintln(w)
	}
	return nil
}

// RenderMetrics prints one platform's sub-score table.
func (r *TerminalRenderer) RenderMetrics(w io.Writer, m *platform.Metrics) error {
	fmt.Fprintf(w, "%s\n\n", bold(fmt.Sprintf("%s (%s): %s", m.Platform, familyName(m.Family),
		colored(fmt.Sprintf("%.1f", m.Overall), scoreColor(m.Overall)))))
	for _, s := range m.SubScores {
		fmt.Fprintf(w, "  %-28s %5.1f  %s\n", s.Name, s.Score, dim(fmt.Sprintf("x%.2f", s.Weight)))
	}
	fmt.Fprintln(w)
	section(w, "Recommendations:", m.Recommendations, "•")
	return nil
}

// RenderHistory prints snapshots one per line, newest first, each with its
// change from the snapshot before it.
func (r *TerminalRenderer) RenderHistory(w io.Writer, history []scoring.CompositeScore) error {
	if len(history) == 0 {
		fmt.Fprintln(w, "No scores recorded.")
		return nil
	}
	for i, s := range history {
		delta := ""
		if i+1 < len(history) && s.Overall != history[i+1].Overall {
			delta = fmt.Sprintf(" (%+d)", s.Overall-history[i+1].Overall)
		}
		fmt.Fprintf(w, "  %s  %s%s\n", dim(s.CreatedAt.Format("2006-01-02 15:04")),
			colored(fmt.Sprintf("%3d", s.Overall), scoreColor(float64(s.Overall))), delta)
	}
	return nil
}

func section(w io.Writer, title string, items []string, bullet string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(w, title)
	for _, it := range items {
		fmt.Fprintf(w, "  %s %s\n", bullet, it)
	}
	fmt.Fprintln(w)
}

// wrapText wraps a string at the given width, returning lines.
func wrapText(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]

	for _, word := range words[1:] {
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
		} else {
			current += " " + word
		}
	}
	lines = append(lines, current)
	return lines
}

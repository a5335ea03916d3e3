package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/darescore/dare/pkg/platform"
)

// CalculateCompositeScore combines the family summaries of profile into a
// CompositeScore under w. Weights are renormalized over the families that
// are present, so missing families never dilute the score. It only fails for
// invalid weights.
func CalculateCompositeScore(profile *platform.DigitalProfile, w Weights, opts ...Option) (CompositeScore, error) {
	if err := w.Validate(); err != nil {
		return CompositeScore{}, err
	}
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	result := CompositeScore{
		ID:        o.NewID(),
		Weights:   w,
		CreatedAt: o.Now().UTC(),
	}
	if profile != nil {
		result.CandidateID = profile.CandidateID
	}

	present := make(map[platform.Family]float64)
	var recs []string
	for _, f := range platform.Families {
		summary, ok := profile.Family(f)
		if !ok || len(summary.Platforms) == 0 || math.IsNaN(summary.Score) {
			result.Missing = append(result.Missing, f)
			continue
		}
		score := math.Max(0, math.Min(100, summary.Score))
		present[f] = score
		result.Connected = append(result.Connected, f)
		result.Families.set(f, score)

		if score >= o.StrongThreshold {
			result.Strengths = append(result.Strengths, strengthText[f])
		}
		if score < o.WeakThreshold {
			result.Improvements = append(result.Improvements, improvementText[f])
		}
		recs = append(recs, summary.Recommendations...)
	}

	result.Overall = Overall(present, w)

	if len(result.Missing) > 0 {
		recs = append(recs, ConnectMoreText(result.Missing))
	}
	result.Recommendations = uniqueStrings(recs)
	if len(result.Recommendations) > o.MaxRecommendations {
		result.Recommendations = result.Recommendations[:o.MaxRecommendations]
	}
	result.Strengths = nonNil(uniqueStrings(result.Strengths))
	result.Improvements = nonNil(uniqueStrings(result.Improvements))
	result.Recommendations = nonNil(result.Recommendations)
	result.Connected = nonNilFamilies(result.Connected)
	result.Missing = nonNilFamilies(result.Missing)

	return result, nil
}

// Overall returns round(sum(score*weight) / sum(weight)) over the present
// families, or 0 if none is present. If the present weights sum to zero the
// unweighted mean is used.
func Overall(present map[platform.Family]float64, w Weights) int {
	if len(present) == 0 {
		return 0
	}
	var total, weights, plain float64
	for _, f := range platform.Families {
		s, ok := present[f]
		if !ok {
			continue
		}
		total += s * w.For(f)
		weights += w.For(f)
		plain += s
	}
	var overall float64
	if weights > 0 {
		overall = total / weights
	} else {
		overall = plain / float64(len(present))
	}
	// Snap float noise so that a single family scoring 49.5 rounds to 50.
	overall = math.Round(overall*1e6) / 1e6
	return int(math.Max(0, math.Min(100, math.Round(overall))))
}

// ConnectMoreText names the missing families in priority order.
func ConnectMoreText(missing []platform.Family) string {
	names := make([]string, len(missing))
	for i, f := range missing {
		names[i] = string(f)
	}
	return fmt.Sprintf("Connect more platforms: %s", strings.Join(names, ", "))
}

func uniqueStrings(ss []string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, s := range ss {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	return result
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

func nonNilFamilies(fs []platform.Family) []platform.Family {
	if fs == nil {
		return []platform.Family{}
	}
	return fs
}

// Package calculator implements the per-family platform metric calculators.
// Each calculator maps a typed platform payload into bounded sub-scores, a
// fixed weighted blend of them and a list of threshold-driven recommendations.
package calculator

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/darescore/dare/pkg/platform"
)

// ErrPayloadMismatch is returned when a calculator receives a payload of
// another family.
var ErrPayloadMismatch = errors.New("payload does not match calculator family")

// Calculator is the interface that all family calculators implement.
type Calculator interface {
	// Family returns the scoring family this calculator handles.
	Family() platform.Family
	// Calculate derives metrics from a payload. It only fails when the
	// payload belongs to another family.
	Calculate(p platform.Payload) (platform.Metrics, error)
}

// Set dispatches payloads to the calculator of their family.
type Set struct {
	byFamily map[platform.Family]Calculator
}

// NewSet creates a Set from the given calculators.
func NewSet(calcs ...Calculator) *Set {
	s := &Set{byFamily: make(map[platform.Family]Calculator, len(calcs))}
	for _, c := range calcs {
		s.byFamily[c.Family()] = c
	}
	return s
}

// DefaultSet returns the four family calculators with default tuning.
func DefaultSet() *Set {
	return NewTunedSet(DefaultTuning())
}

// NewTunedSet returns the four family calculators configured from t.
func NewTunedSet(t Tuning) *Set {
	limit := t.MaxRecommendations
	return NewSet(
		&CodeHosting{Tuning: t.CodeHosting, MaxRecommendations: limit},
		&ProfessionalNetwork{Tuning: t.ProfessionalNetwork, MaxRecommendations: limit},
		&LongFormContent{Tuning: t.LongFormContent, MaxRecommendations: limit},
		&ShortFormSocial{Tuning: t.ShortFormSocial, MaxRecommendations: limit},
	)
}

// Calculate runs the calculator matching the payload's platform family.
func (s *Set) Calculate(p platform.Payload) (platform.Metrics, error) {
	if p == nil {
		return platform.Metrics{}, fmt.Errorf("calculate: nil payload")
	}
	fam := p.Platform().Family()
	c, ok := s.byFamily[fam]
	if !ok {
		return platform.Metrics{}, fmt.Errorf("%w: %q", platform.ErrUnknownPlatform, p.Platform())
	}
	return c.Calculate(p)
}

// saturate maps value onto [0,1], reaching 1 at threshold.
func saturate(value, threshold float64) float64 {
	if value <= 0 || math.IsNaN(value) {
		return 0
	}
	if threshold <= 0 || value >= threshold {
		return 1
	}
	return value / threshold
}

// clamp bounds a score to [0,100].
func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// perItem divides by max(1, count).
func perItem(total float64, count int) float64 {
	if count < 1 {
		count = 1
	}
	return total / float64(count)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// blend builds the metrics record: sub-scores are clamped and rounded, and the
// overall score is their weighted mean.
func blend(p platform.Platform, subs []platform.SubScore, breakdown map[string]float64, recs []string) platform.Metrics {
	var total, weights float64
	for i := range subs {
		subs[i].Score = round2(clamp(subs[i].Score))
		if subs[i].Weight < 0 {
			subs[i].Weight = 0
		}
		total += subs[i].Score * subs[i].Weight
		weights += subs[i].Weight
	}
	var overall float64
	if weights > 0 {
		overall = total / weights
	}
	if recs == nil {
		recs = []string{}
	}
	return platform.Metrics{
		Platform:        p,
		Family:          p.Family(),
		Overall:         round2(clamp(overall)),
		SubScores:       subs,
		Breakdown:       breakdown,
		Recommendations: recs,
	}
}

// rule is one independent recommendation trigger.
type rule struct {
	when bool
	text string
}

// recommend returns the texts of all triggered rules, in rule order, capped.
func recommend(limit int, rules ...rule) []string {
	if limit <= 0 {
		limit = defaultMaxRecommendations
	}
	out := make([]string, 0, limit)
	for _, r := range rules {
		if !r.when {
			continue
		}
		out = append(out, r.text)
		if len(out) == limit {
			break
		}
	}
	return out
}

// monthsBetween counts whole calendar months from a to b, floored at zero.
func monthsBetween(a, b time.Time) int {
	if a.IsZero() || b.IsZero() || !b.After(a) {
		return 0
	}
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// spanMonths returns the fractional months between two instants.
func spanMonths(first, last time.Time) float64 {
	if first.IsZero() || last.IsZero() || !last.After(first) {
		return 0
	}
	return last.Sub(first).Hours() / 24 / 30.44
}

// spanWeeks returns the fractional weeks between two instants.
func spanWeeks(first, last time.Time) float64 {
	if first.IsZero() || last.IsZero() || !last.After(first) {
		return 0
	}
	return last.Sub(first).Hours() / 24 / 7
}

package platform

import (
	"sort"
	"time"
)

// SubScore is one bounded sub-dimension of a platform score.
type SubScore struct {
	Key    string  `json:"key"`    // machine key: "language_diversity"
	Name   string  `json:"name"`   // human name: "Language diversity"
	Score  float64 `json:"score"`  // 0-100
	Weight float64 `json:"weight"` // share of the platform's overall score
}

// Metrics is the derived score of one platform. It is recomputed from a
// payload and replaced wholesale, never mutated.
type Metrics struct {
	Platform        Platform           `json:"platform"`
	Family          Family             `json:"family"`
	Overall         float64            `json:"overall"`
	SubScores       []SubScore         `json:"sub_scores"`
	Breakdown       map[string]float64 `json:"breakdown"`
	Recommendations []string           `json:"recommendations"`
}

// SubScore returns the sub-score with the given key.
func (m Metrics) SubScore(key string) (SubScore, bool) {
	for _, s := range m.SubScores {
		if s.Key == key {
			return s, true
		}
	}
	return SubScore{}, false
}

// FamilySummary is the per-family view handed to the scoring engine.
type FamilySummary struct {
	Family          Family     `json:"family"`
	Score           float64    `json:"score"`
	Platforms       []Platform `json:"platforms"`
	Recommendations []string   `json:"recommendations"`
}

// DigitalProfile is the aggregate of a candidate's platform metrics at one
// point in time. It is rebuilt on demand and never stored.
type DigitalProfile struct {
	CandidateID string                   `json:"candidate_id"`
	Platforms   map[Platform]Metrics     `json:"platforms"`
	Families    map[Family]FamilySummary `json:"families"`
	Stale       []Platform               `json:"stale,omitempty"`
	Failed      map[Platform]string      `json:"failed,omitempty"`
	AssembledAt time.Time                `json:"assembled_at"`
}

// NewDigitalProfile builds a profile from per-platform metrics and computes
// the family summaries. Platforms of the same family are averaged.
func NewDigitalProfile(candidateID string, metrics []Metrics, at time.Time) *DigitalProfile {
	p := &DigitalProfile{
		CandidateID: candidateID,
		Platforms:   make(map[Platform]Metrics, len(metrics)),
		Families:    make(map[Family]FamilySummary),
		AssembledAt: at,
	}
	for _, m := range metrics {
		p.Platforms[m.Platform] = m
	}
	p.Families = SummarizeFamilies(p.Platforms)
	return p
}

// SummarizeFamilies collapses per-platform metrics into one summary per
// family. The family score is the arithmetic mean of its platforms' overall
// scores; recommendations are concatenated in platform order.
func SummarizeFamilies(platforms map[Platform]Metrics) map[Family]FamilySummary {
	keys := make([]Platform, 0, len(platforms))
	for p := range platforms {
		keys = append(keys, p)
	}
	sort.Slice(keys, func(i, j int) bool { return platformOrder(keys[i]) < platformOrder(keys[j]) })

	sums := make(map[Family]float64)
	out := make(map[Family]FamilySummary)
	for _, p := range keys {
		m := platforms[p]
		fam := m.Family
		if fam == "" {
			fam = p.Family()
		}
		if fam == "" {
			continue
		}
		s := out[fam]
		s.Family = fam
		s.Platforms = append(s.Platforms, p)
		s.Recommendations = append(s.Recommendations, m.Recommendations...)
		sums[fam] += m.Overall
		out[fam] = s
	}
	for fam, s := range out {
		s.Score = sums[fam] / float64(len(s.Platforms))
		out[fam] = s
	}
	return out
}

// Family returns the summary of f if any platform of that family is present.
func (p *DigitalProfile) Family(f Family) (FamilySummary, bool) {
	if p == nil {
		return FamilySummary{}, false
	}
	s, ok := p.Families[f]
	return s, ok
}

func platformOrder(p Platform) int {
	for i, known := range All {
		if known == p {
			return i
		}
	}
	return len(All)
}

package calculator

import (
	"strings"

	"github.com/darescore/dare/pkg/platform"
)

var (
	advancedDegreeTerms = []string{"master", "mba", "msc", "m.sc", "phd", "ph.d", "doctor"}
	technicalFieldTerms = []string{
		"computer", "software", "engineering", "information", "data",
		"mathematics", "statistics", "physics", "electrical", "informatics",
	}
)

// ProfessionalNetwork scores LinkedIn payloads.
type ProfessionalNetwork struct {
	Tuning             NetworkTuning
	MaxRecommendations int
}

func (c *ProfessionalNetwork) Family() platform.Family {
	return platform.FamilyProfessionalNetwork
}

func (c *ProfessionalNetwork) Calculate(p platform.Payload) (platform.Metrics, error) {
	li, ok := p.(platform.LinkedInPayload)
	if !ok {
		return platform.Metrics{}, ErrPayloadMismatch
	}
	return c.Score(li), nil
}

// Score computes the professional-network metrics. Open-ended positions run
// until the payload's reference instant.
func (c *ProfessionalNetwork) Score(p platform.LinkedInPayload) platform.Metrics {
	t := c.Tuning
	asOf := p.AsOf()

	months, described := 0, 0
	for _, pos := range p.Positions {
		end := asOf
		if pos.End != nil {
			end = *pos.End
		}
		months += monthsBetween(pos.Start, end)
		if len(strings.TrimSpace(pos.Description)) >= t.MinDescriptionLength {
			described++
		}
	}
	years := float64(months) / 12
	experience := saturate(years, t.YearsThreshold)*50 +
		saturate(float64(len(p.Positions)), t.PositionsThreshold)*25
	if len(p.Positions) > 0 {
		experience += perItem(float64(described), len(p.Positions)) * 25
	}

	degrees := 0
	advanced, technical := false, false
	for _, e := range p.Education {
		if strings.TrimSpace(e.Degree) == "" && strings.TrimSpace(e.School) == "" {
			continue
		}
		degrees++
		if containsAny(e.Degree, advancedDegreeTerms) {
			advanced = true
		}
		if containsAny(e.FieldOfStudy, technicalFieldTerms) {
			technical = true
		}
	}
	education := saturate(float64(degrees), t.DegreesThreshold) * 60
	if advanced {
		education += 20
	}
	if technical {
		education += 20
	}

	endorsements := 0
	for _, s := range p.Skills {
		endorsements += s.Endorsements
	}
	skills := saturate(float64(len(p.Skills)), t.SkillsThreshold)*50 +
		saturate(float64(endorsements), t.EndorsementsThreshold)*50

	network := saturate(float64(p.Profile.Connections), t.ConnectionsThreshold) * 100

	subs := []platform.SubScore{
		{Key: "experience", Name: "Experience", Score: experience, Weight: t.ExperienceWeight},
		{Key: "education", Name: "Education", Score: education, Weight: t.EducationWeight},
		{Key: "skills", Name: "Skills", Score: skills, Weight: t.SkillsWeight},
		{Key: "network", Name: "Network size", Score: network, Weight: t.NetworkWeight},
	}
	breakdown := map[string]float64{
		"positions":           float64(len(p.Positions)),
		"experience_years":    round2(years),
		"described_positions": float64(described),
		"degrees":             float64(degrees),
		"skills":              float64(len(p.Skills)),
		"endorsements":        float64(endorsements),
		"connections":         float64(p.Profile.Connections),
	}
	recs := recommend(c.MaxRecommendations,
		rule{len(p.Positions) == 0, "Add your work experience to your professional profile"},
		rule{len(p.Positions) > 0 && experience < 50, "Describe your roles and achievements in more detail"},
		rule{education < 40, "Add your education and certifications"},
		rule{skills < 50, "List more skills and ask colleagues for endorsements"},
		rule{network < 50, "Grow your professional network"},
	)
	return blend(platform.LinkedIn, subs, breakdown, recs)
}

func containsAny(s string, terms []string) bool {
	s = strings.ToLower(s)
	if s == "" {
		return false
	}
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

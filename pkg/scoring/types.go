// Package scoring implements the Dare Score composite engine.
// It combines per-family platform scores into one explainable 0-100 score.
package scoring

import (
	"slices"
	"time"

	"github.com/darescore/dare/pkg/platform"
)

// CompositeScore is the complete output of scoring a digital profile.
// Immutable once computed; stored snapshots are never updated.
type CompositeScore struct {
	ID              string            `json:"id"`
	CandidateID     string            `json:"candidate_id"`
	Overall         int               `json:"overall"` // 0-100
	Families        FamilyScores      `json:"families"`
	Weights         Weights           `json:"weights"`
	Connected       []platform.Family `json:"connected"`
	Missing         []platform.Family `json:"missing"`
	Strengths       []string          `json:"strengths"`
	Improvements    []string          `json:"improvements"`
	Recommendations []string          `json:"recommendations"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Clone returns a deep copy that shares no slices or pointers with s.
func (s CompositeScore) Clone() CompositeScore {
	out := s
	out.Families = s.Families.clone()
	out.Connected = slices.Clone(s.Connected)
	out.Missing = slices.Clone(s.Missing)
	out.Strengths = slices.Clone(s.Strengths)
	out.Improvements = slices.Clone(s.Improvements)
	out.Recommendations = slices.Clone(s.Recommendations)
	return out
}

// FamilyScores holds one nullable score per family. A nil field means the
// family had no connected platform with data.
type FamilyScores struct {
	CodeHosting         *float64 `json:"code_hosting"`
	ProfessionalNetwork *float64 `json:"professional_network"`
	LongFormContent     *float64 `json:"long_form_content"`
	ShortFormSocial     *float64 `json:"short_form_social"`
}

// Get returns the score of f, or nil if the family is missing.
func (s FamilyScores) Get(f platform.Family) *float64 {
	switch f {
	case platform.FamilyCodeHosting:
		return s.CodeHosting
	case platform.FamilyProfessionalNetwork:
		return s.ProfessionalNetwork
	case platform.FamilyLongFormContent:
		return s.LongFormContent
	case platform.FamilyShortFormSocial:
		return s.ShortFormSocial
	}
	return nil
}

func (s FamilyScores) clone() FamilyScores {
	var out FamilyScores
	for _, f := range platform.Families {
		if v := s.Get(f); v != nil {
			out.set(f, *v)
		}
	}
	return out
}

func (s *FamilyScores) set(f platform.Family, v float64) {
	switch f {
	case platform.FamilyCodeHosting:
		s.CodeHosting = &v
	case platform.FamilyProfessionalNetwork:
		s.ProfessionalNetwork = &v
	case platform.FamilyLongFormContent:
		s.LongFormContent = &v
	case platform.FamilyShortFormSocial:
		s.ShortFormSocial = &v
	}
}

// Strength and improvement texts per family.
var (
	strengthText = map[platform.Family]string{
		platform.FamilyCodeHosting:         "Strong code portfolio with active open-source work",
		platform.FamilyProfessionalNetwork: "Well-developed professional profile and network",
		platform.FamilyLongFormContent:     "Consistent technical writing and thought leadership",
		platform.FamilyShortFormSocial:     "Engaged presence in the developer community",
	}
	improvementText = map[platform.Family]string{
		platform.FamilyCodeHosting:         "Build more public projects and contribute to open source",
		platform.FamilyProfessionalNetwork: "Complete your professional profile and grow your network",
		platform.FamilyLongFormContent:     "Publish technical articles more regularly",
		platform.FamilyShortFormSocial:     "Share more technical content with your audience",
	}
)

// StrengthText returns the fixed strength description of f.
func StrengthText(f platform.Family) string { return strengthText[f] }

// ImprovementText returns the fixed improvement description of f.
func ImprovementText(f platform.Family) string { return improvementText[f] }

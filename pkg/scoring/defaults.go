package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/darescore/dare/pkg/platform"
)

// ErrInvalidWeights is returned for negative, non-finite or all-zero weights.
var ErrInvalidWeights = errors.New("invalid scoring weights")

// Weights holds the composite weight of each family. They need not sum to one;
// the engine renormalizes over the families that are present.
type Weights struct {
	CodeHosting         float64 `json:"code_hosting" yaml:"code_hosting"`
	ProfessionalNetwork float64 `json:"professional_network" yaml:"professional_network"`
	LongFormContent     float64 `json:"long_form_content" yaml:"long_form_content"`
	ShortFormSocial     float64 `json:"short_form_social" yaml:"short_form_social"`
}

// DefaultWeights returns the default family weights.
func DefaultWeights() Weights {
	return Weights{
		CodeHosting:         0.35,
		ProfessionalNetwork: 0.30,
		LongFormContent:     0.20,
		ShortFormSocial:     0.15,
	}
}

// For returns the weight of f.
func (w Weights) For(f platform.Family) float64 {
	switch f {
	case platform.FamilyCodeHosting:
		return w.CodeHosting
	case platform.FamilyProfessionalNetwork:
		return w.ProfessionalNetwork
	case platform.FamilyLongFormContent:
		return w.LongFormContent
	case platform.FamilyShortFormSocial:
		return w.ShortFormSocial
	}
	return 0
}

// Validate rejects negative or non-finite weights and an all-zero set.
func (w Weights) Validate() error {
	var total float64
	for _, f := range platform.Families {
		v := w.For(f)
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s weight %v", ErrInvalidWeights, f, v)
		}
		total += v
	}
	if total == 0 {
		return fmt.Errorf("%w: all weights are zero", ErrInvalidWeights)
	}
	return nil
}

// Normalized returns w scaled to sum to one. Invalid weights are returned as is.
func (w Weights) Normalized() Weights {
	total := w.CodeHosting + w.ProfessionalNetwork + w.LongFormContent + w.ShortFormSocial
	if total <= 0 || w.Validate() != nil {
		return w
	}
	return Weights{
		CodeHosting:         w.CodeHosting / total,
		ProfessionalNetwork: w.ProfessionalNetwork / total,
		LongFormContent:     w.LongFormContent / total,
		ShortFormSocial:     w.ShortFormSocial / total,
	}
}

// PartialWeights is a weight update where nil fields keep their current value.
type PartialWeights struct {
	CodeHosting         *float64 `json:"code_hosting,omitempty" yaml:"code_hosting,omitempty"`
	ProfessionalNetwork *float64 `json:"professional_network,omitempty" yaml:"professional_network,omitempty"`
	LongFormContent     *float64 `json:"long_form_content,omitempty" yaml:"long_form_content,omitempty"`
	ShortFormSocial     *float64 `json:"short_form_social,omitempty" yaml:"short_form_social,omitempty"`
}

// Merge returns w with every non-nil field of p applied.
func (w Weights) Merge(p PartialWeights) Weights {
	if p.CodeHosting != nil {
		w.CodeHosting = *p.CodeHosting
	}
	if p.ProfessionalNetwork != nil {
		w.ProfessionalNetwork = *p.ProfessionalNetwork
	}
	if p.LongFormContent != nil {
		w.LongFormContent = *p.LongFormContent
	}
	if p.ShortFormSocial != nil {
		w.ShortFormSocial = *p.ShortFormSocial
	}
	return w
}

// Partial converts w into an update that sets every family.
func (w Weights) Partial() PartialWeights {
	return PartialWeights{
		CodeHosting:         &w.CodeHosting,
		ProfessionalNetwork: &w.ProfessionalNetwork,
		LongFormContent:     &w.LongFormContent,
		ShortFormSocial:     &w.ShortFormSocial,
	}
}

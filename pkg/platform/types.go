// Package platform defines the platform identifiers, the typed payloads handed
// over by connectors and the derived per-platform metrics consumed by scoring.
package platform

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPlatform is returned for platform identifiers dare does not score.
var ErrUnknownPlatform = errors.New("unknown platform")

// Platform identifies an external service a candidate can connect.
type Platform string

const (
	GitHub   Platform = "github"
	LinkedIn Platform = "linkedin"
	Twitter  Platform = "twitter"
	DevTo    Platform = "devto"
	Hashnode Platform = "hashnode"
	Medium   Platform = "medium"
)

// Family groups platforms into the four scoring categories.
type Family string

const (
	FamilyCodeHosting         Family = "code-hosting"
	FamilyProfessionalNetwork Family = "professional-network"
	FamilyLongFormContent     Family = "long-form-content"
	FamilyShortFormSocial     Family = "short-form-social"
)

// Families lists every family in scoring priority order. Recommendations and
// "connect more" messages follow this order.
var Families = []Family{
	FamilyCodeHosting,
	FamilyProfessionalNetwork,
	FamilyLongFormContent,
	FamilyShortFormSocial,
}

// All lists every supported platform in a stable order.
var All = []Platform{GitHub, LinkedIn, DevTo, Hashnode, Medium, Twitter}

var families = map[Platform]Family{
	GitHub:   FamilyCodeHosting,
	LinkedIn: FamilyProfessionalNetwork,
	DevTo:    FamilyLongFormContent,
	Hashnode: FamilyLongFormContent,
	Medium:   FamilyLongFormContent,
	Twitter:  FamilyShortFormSocial,
}

// Family returns the scoring family of p, or "" for unknown platforms.
func (p Platform) Family() Family {
	return families[p]
}

// Valid reports whether p is a supported platform.
func (p Platform) Valid() bool {
	_, ok := families[p]
	return ok
}

// Parse normalizes s into a supported Platform.
func Parse(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case "dev.to", "dev":
		p = DevTo
	case "x":
		p = Twitter
	}
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
	}
	return p, nil
}

// Valid reports whether f is one of the four scoring families.
func (f Family) Valid() bool {
	for _, known := range Families {
		if f == known {
			return true
		}
	}
	return false
}

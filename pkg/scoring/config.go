package scoring

import (
	"time"

	"github.com/google/uuid"
)

// Options holds the engine thresholds and its sources of time and ids.
type Options struct {
	// StrongThreshold is the family score at or above which a strength is listed.
	StrongThreshold float64
	// WeakThreshold is the family score below which an improvement is listed.
	WeakThreshold float64
	// MaxRecommendations caps the deduplicated recommendation list.
	MaxRecommendations int

	Now   func() time.Time
	NewID func() string
}

// Option applies a configuration option to Options.
type Option func(*Options)

// DefaultOptions returns the default engine options.
func DefaultOptions() Options {
	return Options{
		StrongThreshold:    70,
		WeakThreshold:      50,
		MaxRecommendations: 10,
		Now:                time.Now,
		NewID:              uuid.NewString,
	}
}

// WithThresholds sets the strength and improvement thresholds.
func WithThresholds(strong, weak float64) Option {
	return func(o *Options) {
		if strong > 0 {
			o.StrongThreshold = strong
		}
		if weak > 0 {
			o.WeakThreshold = weak
		}
	}
}

// WithMaxRecommendations sets the recommendation cap.
func WithMaxRecommendations(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxRecommendations = n
		}
	}
}

// WithClock sets the source of CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.Now = now
		}
	}
}

// WithIDGenerator sets the source of score ids.
func WithIDGenerator(gen func() string) Option {
	return func(o *Options) {
		if gen != nil {
			o.NewID = gen
		}
	}
}

// WithOptions replaces all options at once; zero fields keep their defaults.
func WithOptions(in Options) Option {
	return func(o *Options) {
		WithThresholds(in.StrongThreshold, in.WeakThreshold)(o)
		WithMaxRecommendations(in.MaxRecommendations)(o)
		WithClock(in.Now)(o)
		WithIDGenerator(in.NewID)(o)
	}
}

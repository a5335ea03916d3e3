package calculator

import (
	"strings"
	"time"

	"github.com/darescore/dare/pkg/platform"
)

// LongFormContent scores blog payloads from any long-form provider.
type LongFormContent struct {
	Tuning             ContentTuning
	MaxRecommendations int
}

func (c *LongFormContent) Family() platform.Family { return platform.FamilyLongFormContent }

func (c *LongFormContent) Calculate(p platform.Payload) (platform.Metrics, error) {
	blog, ok := p.(platform.BlogPayload)
	if !ok {
		return platform.Metrics{}, ErrPayloadMismatch
	}
	return c.Score(blog), nil
}

// Score computes the long-form-content metrics. Posting cadence is measured
// between the first and last article, never against the wall clock.
func (c *LongFormContent) Score(p platform.BlogPayload) platform.Metrics {
	t := c.Tuning
	n := len(p.Articles)

	var reading, covered, excerpted, reactions, comments int
	var first, last time.Time
	tags := make(map[string]bool)
	for _, a := range p.Articles {
		reading += a.ReadingTimeMinutes
		reactions += a.Reactions
		comments += a.Comments
		if strings.TrimSpace(a.CoverImage) != "" {
			covered++
		}
		if len(strings.TrimSpace(a.Excerpt)) >= t.MinExcerptLength {
			excerpted++
		}
		for _, tag := range a.Tags {
			if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
				tags[tag] = true
			}
		}
		if a.PublishedAt.IsZero() {
			continue
		}
		if first.IsZero() || a.PublishedAt.Before(first) {
			first = a.PublishedAt
		}
		if a.PublishedAt.After(last) {
			last = a.PublishedAt
		}
	}

	avgReading := perItem(float64(reading), n)
	quality := 0.0
	if n > 0 {
		quality = saturate(avgReading, t.ReadingMinutesThreshold)*30 +
			perItem(float64(covered), n)*20 +
			perItem(float64(excerpted), n)*20 +
			saturate(float64(n), t.VolumeThreshold)*30
	}

	months := spanMonths(first, last)
	if months < 1 {
		months = 1
	}
	postsPerMonth := float64(n) / months
	consistency := saturate(postsPerMonth, t.PostsPerMonthThreshold) * 100

	engagement := saturate(perItem(float64(reactions), n), t.ReactionsThreshold)*40 +
		saturate(perItem(float64(comments), n), t.CommentsThreshold)*30 +
		saturate(float64(p.Profile.Followers), t.FollowersThreshold)*30

	diversity := saturate(float64(len(tags)), t.TagsThreshold) * 100

	source := p.Platform()
	if source.Family() != platform.FamilyLongFormContent {
		source = platform.DevTo
	}
	subs := []platform.SubScore{
		{Key: "content_quality", Name: "Content quality", Score: quality, Weight: t.QualityWeight},
		{Key: "consistency", Name: "Posting consistency", Score: consistency, Weight: t.ConsistencyWeight},
		{Key: "engagement", Name: "Reader engagement", Score: engagement, Weight: t.EngagementWeight},
		{Key: "topic_diversity", Name: "Topic diversity", Score: diversity, Weight: t.DiversityWeight},
	}
	breakdown := map[string]float64{
		"articles":            float64(n),
		"avg_reading_minutes": round2(avgReading),
		"posts_per_month":     round2(postsPerMonth),
		"total_reactions":     float64(reactions),
		"total_comments":      float64(comments),
		"followers":           float64(p.Profile.Followers),
		"unique_tags":         float64(len(tags)),
	}
	recs := recommend(c.MaxRecommendations,
		rule{n == 0, "Start publishing technical articles to showcase your expertise"},
		rule{n > 0 && quality < 50, "Write longer articles with cover images and clear excerpts"},
		rule{consistency < 40, "Publish on a more regular schedule"},
		rule{engagement < 40, "Engage with readers to grow reactions and comments"},
		rule{diversity < 30, "Cover a wider range of topics and tags"},
	)
	return blend(source, subs, breakdown, recs)
}

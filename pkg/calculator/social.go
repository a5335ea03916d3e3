package calculator

import (
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/darescore/dare/pkg/platform"
)

// ShortFormSocial scores Twitter payloads.
type ShortFormSocial struct {
	Tuning             SocialTuning
	MaxRecommendations int
}

func (c *ShortFormSocial) Family() platform.Family { return platform.FamilyShortFormSocial }

func (c *ShortFormSocial) Calculate(p platform.Payload) (platform.Metrics, error) {
	tw, ok := p.(platform.TwitterPayload)
	if !ok {
		return platform.Metrics{}, ErrPayloadMismatch
	}
	return c.Score(tw), nil
}

// Score computes the short-form-social metrics over original posts only.
func (c *ShortFormSocial) Score(p platform.TwitterPayload) platform.Metrics {
	t := c.Tuning
	dict := make(map[string]bool, len(t.TechnicalTerms))
	for _, term := range t.TechnicalTerms {
		dict[strings.ToLower(strings.TrimPrefix(term, "#"))] = true
	}

	var n, likes, retweets, replies, technicalPosts int
	var first, last time.Time
	for _, tw := range p.Tweets {
		if tw.IsRetweet {
			continue
		}
		n++
		likes += tw.Likes
		retweets += tw.Retweets
		replies += tw.Replies
		if isTechnical(tw, dict) {
			technicalPosts++
		}
		if tw.CreatedAt.IsZero() {
			continue
		}
		if first.IsZero() || tw.CreatedAt.Before(first) {
			first = tw.CreatedAt
		}
		if tw.CreatedAt.After(last) {
			last = tw.CreatedAt
		}
	}

	// Beyond the influence threshold extra followers no longer dilute the
	// engagement rate, so a larger audience never lowers the score.
	followers := math.Min(float64(p.Profile.Followers), t.FollowersThreshold)
	if followers < 1 {
		followers = 1
	}
	avgLikes := perItem(float64(likes), n)
	avgRetweets := perItem(float64(retweets), n)
	rate := perItem(float64(likes+retweets+replies), n) / followers
	engagement := saturate(avgLikes, t.LikesThreshold)*40 +
		saturate(avgRetweets, t.RetweetsThreshold)*30 +
		saturate(rate, t.EngagementRateThreshold)*30

	technical := perItem(float64(technicalPosts), n) * 100

	influence := saturate(float64(p.Profile.Followers), t.FollowersThreshold)*60 +
		saturate(float64(p.Profile.Listed), t.ListedThreshold)*25
	if p.Profile.Verified {
		influence += t.VerifiedBonus
	}

	weeks := spanWeeks(first, last)
	if weeks < 1 {
		weeks = 1
	}
	postsPerWeek := float64(n) / weeks
	consistency := saturate(postsPerWeek, t.PostsPerWeekThreshold) * 100

	subs := []platform.SubScore{
		{Key: "engagement", Name: "Engagement", Score: engagement, Weight: t.EngagementWeight},
		{Key: "technical_ratio", Name: "Technical content", Score: technical, Weight: t.TechnicalWeight},
		{Key: "influence", Name: "Influence", Score: influence, Weight: t.InfluenceWeight},
		{Key: "consistency", Name: "Posting consistency", Score: consistency, Weight: t.ConsistencyWeight},
	}
	breakdown := map[string]float64{
		"original_posts":  float64(n),
		"retweets":        float64(len(p.Tweets) - n),
		"avg_likes":       round2(avgLikes),
		"avg_retweets":    round2(avgRetweets),
		"engagement_rate": rate,
		"technical_posts": float64(technicalPosts),
		"followers":       float64(p.Profile.Followers),
		"listed":          float64(p.Profile.Listed),
		"posts_per_week":  round2(postsPerWeek),
	}
	recs := recommend(c.MaxRecommendations,
		rule{n == 0, "Start sharing original posts about your work"},
		rule{n > 0 && engagement < 40, "Interact with your audience to raise engagement"},
		rule{n > 0 && technical < 50, "Share more technical content and insights"},
		rule{influence < 30, "Grow your audience in the developer community"},
		rule{consistency < 40, "Post more regularly"},
	)
	return blend(platform.Twitter, subs, breakdown, recs)
}

// isTechnical matches hashtags and words of the post against dict.
func isTechnical(tw platform.Tweet, dict map[string]bool) bool {
	for _, h := range tw.Hashtags {
		if dict[strings.ToLower(strings.TrimPrefix(h, "#"))] {
			return true
		}
	}
	words := strings.FieldsFunc(strings.ToLower(tw.Text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if dict[w] {
			return true
		}
	}
	return false
}

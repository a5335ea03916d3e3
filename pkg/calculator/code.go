package calculator

import (
	"strings"

	"github.com/darescore/dare/pkg/platform"
)

// CodeHosting scores GitHub payloads.
type CodeHosting struct {
	Tuning             CodeHostingTuning
	MaxRecommendations int
}

func (c *CodeHosting) Family() platform.Family { return platform.FamilyCodeHosting }

func (c *CodeHosting) Calculate(p platform.Payload) (platform.Metrics, error) {
	gh, ok := p.(platform.GitHubPayload)
	if !ok {
		return platform.Metrics{}, ErrPayloadMismatch
	}
	return c.Score(gh), nil
}

// Score computes the code-hosting metrics. Forked repositories count towards
// stars and forks but never towards the own-repository ratios.
func (c *CodeHosting) Score(p platform.GitHubPayload) platform.Metrics {
	t := c.Tuning

	var own, forked, described, licensed, topical, stars, forks int
	languages := make(map[string]bool)
	for _, r := range p.Repositories {
		stars += r.Stars
		forks += r.Forks
		if r.Fork {
			forked++
			continue
		}
		own++
		if strings.TrimSpace(r.Description) != "" {
			described++
		}
		if r.HasLicense {
			licensed++
		}
		if len(r.Topics) > 0 {
			topical++
		}
		if lang := strings.ToLower(strings.TrimSpace(r.Language)); lang != "" {
			languages[lang] = true
		}
	}

	quality := 0.0
	if own > 0 {
		quality = perItem(float64(described), own)*30 +
			perItem(float64(licensed), own)*20 +
			perItem(float64(topical), own)*20 +
			saturate(float64(stars), t.StarsThreshold)*30
	}
	language := saturate(float64(len(languages)), t.LanguagesThreshold) * 100

	cb := p.Contributions
	window := cb.WindowDays
	if window <= 0 {
		window = 365
	}
	contributions := cb.Commits + cb.PullRequests + cb.Reviews + cb.Issues
	annualized := float64(contributions) * 365 / float64(window)
	activity := saturate(annualized, t.ActivityThreshold) * 100

	collaboration := saturate(float64(cb.PullRequests+cb.Reviews+cb.Issues), t.CollaborationThreshold) * 100
	impact := saturate(float64(stars+forks+p.Profile.Followers), t.ImpactThreshold) * 100

	subs := []platform.SubScore{
		{Key: "content_quality", Name: "Content quality", Score: quality, Weight: t.QualityWeight},
		{Key: "language_diversity", Name: "Language diversity", Score: language, Weight: t.LanguageWeight},
		{Key: "activity", Name: "Commit activity", Score: activity, Weight: t.ActivityWeight},
		{Key: "collaboration", Name: "Collaboration", Score: collaboration, Weight: t.CollaborationWeight},
		{Key: "impact", Name: "Project impact", Score: impact, Weight: t.ImpactWeight},
	}
	breakdown := map[string]float64{
		"own_repos":            float64(own),
		"forked_repos":         float64(forked),
		"total_stars":          float64(stars),
		"total_forks":          float64(forks),
		"followers":            float64(p.Profile.Followers),
		"languages":            float64(len(languages)),
		"annual_contributions": round2(annualized),
		"pull_requests":        float64(cb.PullRequests),
		"reviews":              float64(cb.Reviews),
		"issues":               float64(cb.Issues),
	}
	recs := recommend(c.MaxRecommendations,
		rule{own == 0, "Publish public repositories to showcase your work"},
		rule{own > 0 && quality < 50, "Add descriptions, licenses and topics to your repositories"},
		rule{language < 30, "Explore projects in additional programming languages"},
		rule{activity < 40, "Commit more consistently to show ongoing activity"},
		rule{collaboration < 30, "Contribute pull requests, reviews and issues to other projects"},
		rule{impact < 30, "Build projects that others can star, fork and follow"},
	)
	return blend(platform.GitHub, subs, breakdown, recs)
}

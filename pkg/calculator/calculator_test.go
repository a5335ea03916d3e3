package calculator

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/darescore/dare/pkg/platform"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func samplePayloads() []platform.Payload {
	end := day(2022, 1, 1)
	return []platform.Payload{
		platform.GitHubPayload{
			Profile: platform.GitHubProfile{Login: "ada", Followers: 40},
			Repositories: []platform.Repository{
				{Name: "engine", Description: "analytical engine", Language: "Go", Stars: 30, Forks: 4, HasLicense: true, Topics: []string{"math"}},
				{Name: "notes", Language: "Python", Stars: 2},
				{Name: "upstream", Fork: true, Stars: 900},
			},
			Contributions: platform.Contributions{Commits: 120, PullRequests: 10, Reviews: 4, Issues: 3},
			FetchedAt:     day(2024, 6, 1),
		},
		platform.LinkedInPayload{
			Profile: platform.LinkedInProfile{Connections: 320},
			Positions: []platform.Position{
				{Title: "Engineer", Company: "Acme", Start: day(2020, 1, 1), End: &end},
				{Title: "Senior Engineer", Company: "Initech", Start: day(2023, 1, 1)},
			},
			Education: []platform.Education{{School: "MIT", Degree: "MSc", FieldOfStudy: "Computer Science"}},
			Skills:    []platform.Skill{{Name: "Go", Endorsements: 12}, {Name: "SQL", Endorsements: 3}},
			FetchedAt: day(2024, 1, 1),
		},
		platform.BlogPayload{
			Source:  platform.Hashnode,
			Profile: platform.BlogProfile{Username: "ada", Followers: 150},
			Articles: []platform.Article{
				{Title: "Generics", ReadingTimeMinutes: 8, Reactions: 20, Comments: 2, Tags: []string{"go"}, PublishedAt: day(2024, 1, 1)},
				{Title: "Channels", ReadingTimeMinutes: 5, Reactions: 5, Tags: []string{"go", "concurrency"}, PublishedAt: day(2024, 3, 1)},
			},
		},
		platform.TwitterPayload{
			Profile: platform.TwitterProfile{Username: "ada", Followers: 800, Listed: 6},
			Tweets: []platform.Tweet{
				{Text: "Shipping a new golang release today", Likes: 12, Retweets: 3, CreatedAt: day(2024, 5, 1)},
				{Text: "Coffee first", Likes: 2, CreatedAt: day(2024, 5, 8)},
				{Text: "RT someone else", Likes: 500, IsRetweet: true, CreatedAt: day(2024, 5, 9)},
			},
		},
	}
}

func emptyPayloads() []platform.Payload {
	return []platform.Payload{
		platform.GitHubPayload{Profile: platform.GitHubProfile{Followers: 25}},
		platform.LinkedInPayload{Profile: platform.LinkedInProfile{Connections: 10}},
		platform.BlogPayload{Source: platform.DevTo, Profile: platform.BlogProfile{Followers: 5}},
		platform.TwitterPayload{Profile: platform.TwitterProfile{Followers: 100}},
	}
}

func TestCalculateIsDeterministic(t *testing.T) {
	set := DefaultSet()
	for _, p := range samplePayloads() {
		a, err := set.Calculate(p)
		if err != nil {
			t.Fatalf("%s: %v", p.Platform(), err)
		}
		b, err := set.Calculate(p)
		if err != nil {
			t.Fatalf("%s: %v", p.Platform(), err)
		}
		if !reflect.DeepEqual(a, b) {
			t.Errorf("%s: results differ between calls:\n%+v\n%+v", p.Platform(), a, b)
		}
	}
}

func TestScoresStayInBounds(t *testing.T) {
	set := DefaultSet()
	huge := platform.GitHubPayload{
		Profile:       platform.GitHubProfile{Followers: 1 << 30},
		Repositories:  []platform.Repository{{Name: "x", Stars: 1 << 30, Forks: 1 << 30, HasLicense: true}},
		Contributions: platform.Contributions{Commits: 1 << 30, WindowDays: 1},
	}
	negative := platform.TwitterPayload{
		Profile: platform.TwitterProfile{Followers: -10, Listed: -3, Verified: true},
		Tweets:  []platform.Tweet{{Text: "golang", Likes: -5}},
	}
	payloads := append(samplePayloads(), emptyPayloads()...)
	payloads = append(payloads, huge, negative)
	for _, p := range payloads {
		m, err := set.Calculate(p)
		if err != nil {
			t.Fatalf("%s: %v", p.Platform(), err)
		}
		if m.Overall < 0 || m.Overall > 100 || math.IsNaN(m.Overall) {
			t.Errorf("%s: overall %v out of bounds", p.Platform(), m.Overall)
		}
		for _, s := range m.SubScores {
			if s.Score < 0 || s.Score > 100 {
				t.Errorf("%s: %s = %v out of bounds", p.Platform(), s.Key, s.Score)
			}
		}
		if len(m.Recommendations) > defaultMaxRecommendations {
			t.Errorf("%s: %d recommendations, cap is %d", p.Platform(), len(m.Recommendations), defaultMaxRecommendations)
		}
	}
}

func TestEmptyActivityRecommendsActivity(t *testing.T) {
	want := map[platform.Platform]string{
		platform.GitHub:   "Publish public repositories to showcase your work",
		platform.LinkedIn: "Add your work experience to your professional profile",
		platform.DevTo:    "Start publishing technical articles to showcase your expertise",
		platform.Twitter:  "Start sharing original posts about your work",
	}
	set := DefaultSet()
	for _, p := range emptyPayloads() {
		m, err := set.Calculate(p)
		if err != nil {
			t.Fatalf("%s: %v", p.Platform(), err)
		}
		if len(m.Recommendations) == 0 || m.Recommendations[0] != want[p.Platform()] {
			t.Errorf("%s: recommendations = %v, want first %q", p.Platform(), m.Recommendations, want[p.Platform()])
		}
		if m.Platform != p.Platform() {
			t.Errorf("metrics platform = %s, want %s", m.Platform, p.Platform())
		}
	}
}

func TestEmptyGitHubScoresFromFollowersOnly(t *testing.T) {
	c := &CodeHosting{Tuning: DefaultTuning().CodeHosting}
	m := c.Score(platform.GitHubPayload{Profile: platform.GitHubProfile{Followers: 250}})
	impact, _ := m.SubScore("impact")
	if impact.Score != 50 {
		t.Errorf("impact = %v, want 50", impact.Score)
	}
	if math.Abs(m.Overall-10) > 0.01 {
		t.Errorf("overall = %v, want 10", m.Overall)
	}
}

func TestCodeHostingKnownValues(t *testing.T) {
	c := &CodeHosting{Tuning: DefaultTuning().CodeHosting}
	m := c.Score(platform.GitHubPayload{
		Profile: platform.GitHubProfile{Followers: 400},
		Repositories: []platform.Repository{
			{Name: "dare", Description: "scores", Language: "Go", Topics: []string{"go"}, HasLicense: true, Stars: 100},
		},
		Contributions: platform.Contributions{Commits: 500, PullRequests: 50, Reviews: 30, Issues: 20},
	})

	for key, want := range map[string]float64{
		"content_quality":    100,
		"language_diversity": 10,
		"activity":           100,
		"collaboration":      100,
		"impact":             100,
	} {
		s, ok := m.SubScore(key)
		if !ok {
			t.Fatalf("missing sub-score %s", key)
		}
		if s.Score != want {
			t.Errorf("%s = %v, want %v", key, s.Score, want)
		}
	}
	if math.Abs(m.Overall-86.5) > 0.01 {
		t.Errorf("overall = %v, want 86.5", m.Overall)
	}
	if len(m.Recommendations) != 1 || m.Recommendations[0] != "Explore projects in additional programming languages" {
		t.Errorf("recommendations = %v", m.Recommendations)
	}
}

func TestForksExcludedFromOwnRepos(t *testing.T) {
	c := &CodeHosting{Tuning: DefaultTuning().CodeHosting}
	m := c.Score(platform.GitHubPayload{
		Repositories: []platform.Repository{
			{Name: "own", Description: "mine", HasLicense: true, Topics: []string{"x"}},
			{Name: "fork-a", Fork: true},
			{Name: "fork-b", Fork: true},
		},
	})
	if m.Breakdown["own_repos"] != 1 || m.Breakdown["forked_repos"] != 2 {
		t.Errorf("breakdown = %v", m.Breakdown)
	}
	quality, _ := m.SubScore("content_quality")
	if quality.Score != 70 {
		t.Errorf("content quality = %v, want 70 (ratios over own repos only)", quality.Score)
	}
}

func TestMoreStarsNeverLowersScore(t *testing.T) {
	c := &CodeHosting{Tuning: DefaultTuning().CodeHosting}
	base := platform.GitHubPayload{
		Profile:      platform.GitHubProfile{Followers: 10},
		Repositories: []platform.Repository{{Name: "a", Description: "d", Language: "Go"}},
	}
	prev := -1.0
	for _, stars := range []int{0, 1, 10, 50, 99, 100, 1000} {
		base.Repositories[0].Stars = stars
		got := c.Score(base).Overall
		if got < prev {
			t.Fatalf("stars=%d: overall %v dropped below %v", stars, got, prev)
		}
		prev = got
	}
}

func TestMoreFollowersNeverLowersSocialScore(t *testing.T) {
	c := &ShortFormSocial{Tuning: DefaultTuning().ShortFormSocial}
	base := platform.TwitterPayload{
		Tweets: []platform.Tweet{{Text: "Shipping a new #golang release", Hashtags: []string{"golang"}, Likes: 20, Retweets: 5}},
	}
	prev := -1.0
	for _, followers := range []int{5000, 6000, 60000, 600000} {
		base.Profile.Followers = followers
		got := c.Score(base).Overall
		if got < prev {
			t.Fatalf("followers=%d: overall %v dropped below %v", followers, got, prev)
		}
		prev = got
	}
}

func TestExperienceSumsPositionMonths(t *testing.T) {
	c := &ProfessionalNetwork{Tuning: DefaultTuning().ProfessionalNetwork}
	end := day(2022, 1, 1)
	backwards := day(2019, 1, 1)
	m := c.Score(platform.LinkedInPayload{
		Positions: []platform.Position{
			{Title: "a", Start: day(2020, 1, 1), End: &end},
			{Title: "b", Start: day(2023, 1, 1)},
			{Title: "c", Start: day(2020, 1, 1), End: &backwards},
		},
		FetchedAt: day(2024, 1, 1),
	})
	if got := m.Breakdown["experience_years"]; got != 3 {
		t.Errorf("experience_years = %v, want 3", got)
	}
}

func TestEducationBonuses(t *testing.T) {
	c := &ProfessionalNetwork{Tuning: DefaultTuning().ProfessionalNetwork}
	m := c.Score(platform.LinkedInPayload{
		Education: []platform.Education{
			{School: "ETH", Degree: "BSc", FieldOfStudy: "Computer Science"},
			{School: "ETH", Degree: "Master of Science", FieldOfStudy: "History"},
		},
	})
	edu, _ := m.SubScore("education")
	if edu.Score != 100 {
		t.Errorf("education = %v, want 100", edu.Score)
	}
}

func TestContentCadenceFloorsAtOneMonth(t *testing.T) {
	c := &LongFormContent{Tuning: DefaultTuning().LongFormContent}
	m := c.Score(platform.BlogPayload{
		Source: platform.DevTo,
		Articles: []platform.Article{
			{Title: "a", PublishedAt: day(2024, 1, 1)},
			{Title: "b", PublishedAt: day(2024, 1, 2)},
		},
	})
	if got := m.Breakdown["posts_per_month"]; got != 2 {
		t.Errorf("posts_per_month = %v, want 2", got)
	}
	cons, _ := m.SubScore("consistency")
	if cons.Score != 50 {
		t.Errorf("consistency = %v, want 50", cons.Score)
	}
}

func TestRetweetsExcludedFromOriginalPosts(t *testing.T) {
	c := &ShortFormSocial{Tuning: DefaultTuning().ShortFormSocial}
	m := c.Score(samplePayloads()[3].(platform.TwitterPayload))
	if m.Breakdown["original_posts"] != 2 {
		t.Errorf("original_posts = %v, want 2", m.Breakdown["original_posts"])
	}
	if m.Breakdown["avg_likes"] != 7 {
		t.Errorf("avg_likes = %v, want 7", m.Breakdown["avg_likes"])
	}
	tech, _ := m.SubScore("technical_ratio")
	if tech.Score != 50 {
		t.Errorf("technical_ratio = %v, want 50", tech.Score)
	}
}

func TestRecommendationCap(t *testing.T) {
	c := &CodeHosting{Tuning: DefaultTuning().CodeHosting, MaxRecommendations: 2}
	m := c.Score(platform.GitHubPayload{})
	if len(m.Recommendations) != 2 {
		t.Errorf("recommendations = %v, want 2 entries", m.Recommendations)
	}
}

func TestPayloadMismatch(t *testing.T) {
	c := &CodeHosting{Tuning: DefaultTuning().CodeHosting}
	_, err := c.Calculate(platform.TwitterPayload{})
	if !errors.Is(err, ErrPayloadMismatch) {
		t.Fatalf("expected ErrPayloadMismatch, got %v", err)
	}
	if _, err := DefaultSet().Calculate(nil); err == nil {
		t.Fatal("expected error for nil payload")
	}
}

package platform

import (
	"encoding/json"
	"fmt"
	"time"
)

// Payload is the typed raw data a connector hands to a calculator. There is
// exactly one concrete type per platform kind; blog providers share BlogPayload.
type Payload interface {
	Platform() Platform
	// AsOf is the reference instant for time-windowed checks.
	AsOf() time.Time
}

// GitHubProfile holds the static attributes of a GitHub account.
type GitHubProfile struct {
	Login       string    `json:"login"`
	Name        string    `json:"name,omitempty"`
	Followers   int       `json:"followers"`
	Following   int       `json:"following"`
	PublicRepos int       `json:"public_repos"`
	CreatedAt   time.Time `json:"created_at"`
}

// Repository is one repository owned by the candidate.
type Repository struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Language    string    `json:"language,omitempty"`
	Topics      []string  `json:"topics,omitempty"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	Fork        bool      `json:"fork"`
	HasLicense  bool      `json:"has_license"`
	CreatedAt   time.Time `json:"created_at"`
	PushedAt    time.Time `json:"pushed_at"`
}

// Contributions are activity counters over a trailing window.
type Contributions struct {
	Commits      int `json:"commits"`
	PullRequests int `json:"pull_requests"`
	Reviews      int `json:"reviews"`
	Issues       int `json:"issues"`
	// WindowDays is the length of the counting window; 0 means one year.
	WindowDays int `json:"window_days,omitempty"`
}

// GitHubPayload is the code-hosting payload.
type GitHubPayload struct {
	Profile       GitHubProfile `json:"profile"`
	Repositories  []Repository  `json:"repositories"`
	Contributions Contributions `json:"contributions"`
	FetchedAt     time.Time     `json:"fetched_at"`
}

func (p GitHubPayload) Platform() Platform { return GitHub }

func (p GitHubPayload) AsOf() time.Time {
	if !p.FetchedAt.IsZero() {
		return p.FetchedAt
	}
	var latest time.Time
	for _, r := range p.Repositories {
		if r.PushedAt.After(latest) {
			latest = r.PushedAt
		}
	}
	return latest
}

// LinkedInProfile holds the static attributes of a LinkedIn profile.
type LinkedInProfile struct {
	Name        string `json:"name,omitempty"`
	Headline    string `json:"headline,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Connections int    `json:"connections"`
}

// Position is one entry of work experience. A nil End means current.
type Position struct {
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Description string     `json:"description,omitempty"`
	Start       time.Time  `json:"start"`
	End         *time.Time `json:"end,omitempty"`
}

// Education is one degree or course of study.
type Education struct {
	School       string `json:"school"`
	Degree       string `json:"degree,omitempty"`
	FieldOfStudy string `json:"field_of_study,omitempty"`
}

// Skill is a listed skill and its endorsement count.
type Skill struct {
	Name         string `json:"name"`
	Endorsements int    `json:"endorsements"`
}

// LinkedInPayload is the professional-network payload. It is submitted
// manually rather than fetched.
type LinkedInPayload struct {
	Profile   LinkedInProfile `json:"profile"`
	Positions []Position      `json:"positions"`
	Education []Education     `json:"education"`
	Skills    []Skill         `json:"skills"`
	FetchedAt time.Time       `json:"fetched_at"`
}

func (p LinkedInPayload) Platform() Platform { return LinkedIn }

func (p LinkedInPayload) AsOf() time.Time {
	if !p.FetchedAt.IsZero() {
		return p.FetchedAt
	}
	var latest time.Time
	for _, pos := range p.Positions {
		if pos.Start.After(latest) {
			latest = pos.Start
		}
		if pos.End != nil && pos.End.After(latest) {
			latest = *pos.End
		}
	}
	return latest
}

// BlogProfile holds the static attributes of a blogging account.
type BlogProfile struct {
	Username  string    `json:"username"`
	Followers int       `json:"followers"`
	JoinedAt  time.Time `json:"joined_at"`
}

// Article is one published long-form post.
type Article struct {
	Title              string    `json:"title"`
	Excerpt            string    `json:"excerpt,omitempty"`
	Tags               []string  `json:"tags,omitempty"`
	ReadingTimeMinutes int       `json:"reading_time_minutes"`
	CoverImage         string    `json:"cover_image,omitempty"`
	Reactions          int       `json:"reactions"`
	Comments           int       `json:"comments"`
	PublishedAt        time.Time `json:"published_at"`
}

// BlogPayload is the long-form-content payload shared by all blog providers.
type BlogPayload struct {
	Source    Platform    `json:"source"`
	Profile   BlogProfile `json:"profile"`
	Articles  []Article   `json:"articles"`
	FetchedAt time.Time   `json:"fetched_at"`
}

func (p BlogPayload) Platform() Platform { return p.Source }

func (p BlogPayload) AsOf() time.Time {
	if !p.FetchedAt.IsZero() {
		return p.FetchedAt
	}
	var latest time.Time
	for _, a := range p.Articles {
		if a.PublishedAt.After(latest) {
			latest = a.PublishedAt
		}
	}
	return latest
}

// TwitterProfile holds the static attributes of a Twitter account.
type TwitterProfile struct {
	Username  string    `json:"username"`
	Followers int       `json:"followers"`
	Following int       `json:"following"`
	Listed    int       `json:"listed"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

// Tweet is one short-form post.
type Tweet struct {
	Text      string    `json:"text"`
	Hashtags  []string  `json:"hashtags,omitempty"`
	Likes     int       `json:"likes"`
	Retweets  int       `json:"retweets"`
	Replies   int       `json:"replies"`
	IsRetweet bool      `json:"is_retweet"`
	CreatedAt time.Time `json:"created_at"`
}

// TwitterPayload is the short-form-social payload.
type TwitterPayload struct {
	Profile   TwitterProfile `json:"profile"`
	Tweets    []Tweet        `json:"tweets"`
	FetchedAt time.Time      `json:"fetched_at"`
}

func (p TwitterPayload) Platform() Platform { return Twitter }

func (p TwitterPayload) AsOf() time.Time {
	if !p.FetchedAt.IsZero() {
		return p.FetchedAt
	}
	var latest time.Time
	for _, tw := range p.Tweets {
		if tw.CreatedAt.After(latest) {
			latest = tw.CreatedAt
		}
	}
	return latest
}

// Stamped returns p with FetchedAt set to at when the payload carries none.
// Open-ended periods such as a current position then run until at instead of
// the payload's latest dated event.
func Stamped(p Payload, at time.Time) Payload {
	switch v := p.(type) {
	case GitHubPayload:
		if v.FetchedAt.IsZero() {
			v.FetchedAt = at
		}
		return v
	case LinkedInPayload:
		if v.FetchedAt.IsZero() {
			v.FetchedAt = at
		}
		return v
	case BlogPayload:
		if v.FetchedAt.IsZero() {
			v.FetchedAt = at
		}
		return v
	case TwitterPayload:
		if v.FetchedAt.IsZero() {
			v.FetchedAt = at
		}
		return v
	}
	return p
}

// DecodePayload decodes raw JSON into the payload variant of p.
func DecodePayload(p Platform, data []byte) (Payload, error) {
	switch p.Family() {
	case FamilyCodeHosting:
		var out GitHubPayload
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", p, err)
		}
		return out, nil
	case FamilyProfessionalNetwork:
		var out LinkedInPayload
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", p, err)
		}
		return out, nil
	case FamilyLongFormContent:
		var out BlogPayload
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", p, err)
		}
		out.Source = p
		return out, nil
	case FamilyShortFormSocial:
		var out TwitterPayload
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", p, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, p)
	}
}

// Envelope is the self-describing JSON form of a payload used for archiving
// and for bundle files.
type Envelope struct {
	Platform Platform        `json:"platform"`
	Payload  json.RawMessage `json:"payload"`
}

// EncodeEnvelope wraps a payload with its platform tag.
func EncodeEnvelope(p Payload) ([]byte, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", p.Platform(), err)
	}
	return json.Marshal(Envelope{Platform: p.Platform(), Payload: raw})
}

// DecodeEnvelope decodes a self-describing payload.
func DecodeEnvelope(data []byte) (Payload, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if !env.Platform.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, env.Platform)
	}
	return DecodePayload(env.Platform, env.Payload)
}

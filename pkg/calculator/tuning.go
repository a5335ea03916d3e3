package calculator

const defaultMaxRecommendations = 5

// Tuning holds every hand-picked constant used by the family calculators.
// Thresholds are the saturation points of the corresponding sub-formula and
// the *Weight fields are the blend weights of each sub-score.
type Tuning struct {
	MaxRecommendations  int               `yaml:"max_recommendations"`
	CodeHosting         CodeHostingTuning `yaml:"code_hosting"`
	ProfessionalNetwork NetworkTuning     `yaml:"professional_network"`
	LongFormContent     ContentTuning     `yaml:"long_form_content"`
	ShortFormSocial     SocialTuning      `yaml:"short_form_social"`
}

// CodeHostingTuning configures the GitHub calculator.
type CodeHostingTuning struct {
	// Content quality
	StarsThreshold float64 `yaml:"stars_threshold"`
	// Language diversity
	LanguagesThreshold float64 `yaml:"languages_threshold"`
	// Annualized commits, pull requests, reviews and issues
	ActivityThreshold float64 `yaml:"activity_threshold"`
	// Pull requests, reviews and issues
	CollaborationThreshold float64 `yaml:"collaboration_threshold"`
	// Stars, forks and followers
	ImpactThreshold float64 `yaml:"impact_threshold"`

	QualityWeight       float64 `yaml:"quality_weight"`
	LanguageWeight      float64 `yaml:"language_weight"`
	ActivityWeight      float64 `yaml:"activity_weight"`
	CollaborationWeight float64 `yaml:"collaboration_weight"`
	ImpactWeight        float64 `yaml:"impact_weight"`
}

// NetworkTuning configures the LinkedIn calculator.
type NetworkTuning struct {
	YearsThreshold        float64 `yaml:"years_threshold"`
	PositionsThreshold    float64 `yaml:"positions_threshold"`
	MinDescriptionLength  int     `yaml:"min_description_length"`
	DegreesThreshold      float64 `yaml:"degrees_threshold"`
	SkillsThreshold       float64 `yaml:"skills_threshold"`
	EndorsementsThreshold float64 `yaml:"endorsements_threshold"`
	ConnectionsThreshold  float64 `yaml:"connections_threshold"`

	ExperienceWeight float64 `yaml:"experience_weight"`
	EducationWeight  float64 `yaml:"education_weight"`
	SkillsWeight     float64 `yaml:"skills_weight"`
	NetworkWeight    float64 `yaml:"network_weight"`
}

// ContentTuning configures the blog calculators.
type ContentTuning struct {
	ReadingMinutesThreshold float64 `yaml:"reading_minutes_threshold"`
	MinExcerptLength        int     `yaml:"min_excerpt_length"`
	VolumeThreshold         float64 `yaml:"volume_threshold"`
	PostsPerMonthThreshold  float64 `yaml:"posts_per_month_threshold"`
	ReactionsThreshold      float64 `yaml:"reactions_threshold"` // per post
	CommentsThreshold       float64 `yaml:"comments_threshold"`  // per post
	FollowersThreshold      float64 `yaml:"followers_threshold"`
	TagsThreshold           float64 `yaml:"tags_threshold"`

	QualityWeight     float64 `yaml:"quality_weight"`
	ConsistencyWeight float64 `yaml:"consistency_weight"`
	EngagementWeight  float64 `yaml:"engagement_weight"`
	DiversityWeight   float64 `yaml:"diversity_weight"`
}

// SocialTuning configures the Twitter calculator.
type SocialTuning struct {
	LikesThreshold          float64 `yaml:"likes_threshold"`    // per original post
	RetweetsThreshold       float64 `yaml:"retweets_threshold"` // per original post
	EngagementRateThreshold float64 `yaml:"engagement_rate_threshold"`
	FollowersThreshold      float64 `yaml:"followers_threshold"`
	ListedThreshold         float64 `yaml:"listed_threshold"`
	VerifiedBonus           float64 `yaml:"verified_bonus"`
	PostsPerWeekThreshold   float64 `yaml:"posts_per_week_threshold"`
	// TechnicalTerms is matched case-insensitively against words and hashtags.
	TechnicalTerms []string `yaml:"technical_terms"`

	EngagementWeight  float64 `yaml:"engagement_weight"`
	TechnicalWeight   float64 `yaml:"technical_weight"`
	InfluenceWeight   float64 `yaml:"influence_weight"`
	ConsistencyWeight float64 `yaml:"consistency_weight"`
}

// DefaultTuning returns the default calculator constants.
func DefaultTuning() Tuning {
	return Tuning{
		MaxRecommendations: defaultMaxRecommendations,
		CodeHosting: CodeHostingTuning{
			StarsThreshold:         100,
			LanguagesThreshold:     10,
			ActivityThreshold:      500,
			CollaborationThreshold: 100,
			ImpactThreshold:        500,

			QualityWeight:       0.25,
			LanguageWeight:      0.15,
			ActivityWeight:      0.25,
			CollaborationWeight: 0.15,
			ImpactWeight:        0.20,
		},
		ProfessionalNetwork: NetworkTuning{
			YearsThreshold:        10,
			PositionsThreshold:    5,
			MinDescriptionLength:  50,
			DegreesThreshold:      2,
			SkillsThreshold:       20,
			EndorsementsThreshold: 100,
			ConnectionsThreshold:  500,

			ExperienceWeight: 0.35,
			EducationWeight:  0.20,
			SkillsWeight:     0.25,
			NetworkWeight:    0.20,
		},
		LongFormContent: ContentTuning{
			ReadingMinutesThreshold: 7,
			MinExcerptLength:        100,
			VolumeThreshold:         20,
			PostsPerMonthThreshold:  4,
			ReactionsThreshold:      50,
			CommentsThreshold:       10,
			FollowersThreshold:      1000,
			TagsThreshold:           10,

			QualityWeight:     0.30,
			ConsistencyWeight: 0.25,
			EngagementWeight:  0.30,
			DiversityWeight:   0.15,
		},
		ShortFormSocial: SocialTuning{
			LikesThreshold:          10,
			RetweetsThreshold:       5,
			EngagementRateThreshold: 0.02,
			FollowersThreshold:      5000,
			ListedThreshold:         50,
			VerifiedBonus:           15,
			PostsPerWeekThreshold:   5,
			TechnicalTerms:          defaultTechnicalTerms(),

			EngagementWeight:  0.30,
			TechnicalWeight:   0.30,
			InfluenceWeight:   0.25,
			ConsistencyWeight: 0.15,
		},
	}
}

func defaultTechnicalTerms() []string {
	return []string{
		"programming", "coding", "developer", "software", "engineering",
		"javascript", "typescript", "python", "golang", "rust", "java", "kotlin", "swift",
		"react", "vue", "angular", "node", "nodejs", "api", "backend", "frontend",
		"devops", "docker", "kubernetes", "k8s", "aws", "gcp", "azure", "cloud", "serverless",
		"database", "sql", "postgres", "redis", "graphql", "microservices",
		"ai", "ml", "machinelearning", "datascience", "llm",
		"opensource", "github", "git", "linux", "security", "webdev", "100daysofcode",
		"algorithm", "testing", "debugging", "deploy", "refactor", "compiler",
	}
}

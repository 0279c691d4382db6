package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Users      int           // Number of synthetic users
	Papers     int           // Number of papers to seed
	Events     int           // Number of feedback events to submit
	Dim        int           // Embedding dimension
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	Settle     time.Duration // Wait between feedback submission and ranking
	Seed       uint64        // Seed for the synthetic data
	OutputFile string        // Output file for the generated feedback
	Verbose    bool          // Enable verbose logging
}

// Paper is the body of POST /papers.
type Paper struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Abstract    string     `json:"abstract"`
	PublishedAt time.Time  `json:"published_at"`
	Enrichment  Enrichment `json:"enrichment"`
}

// Enrichment is the derived metadata attached to a seeded paper.
type Enrichment struct {
	Topics    []string  `json:"topics"`
	Facets    []string  `json:"facets"`
	Embedding []float64 `json:"embedding"`
	MathDepth float64   `json:"math_depth"`
	Evidence  Evidence  `json:"evidence"`
}

// Evidence mirrors the evidence flags of a paper.
type Evidence struct {
	Baselines     bool `json:"baselines"`
	Ablations     bool `json:"ablations"`
	Code          bool `json:"code"`
	Data          bool `json:"data"`
	MultipleEvals bool `json:"multiple_evals"`
}

// Profile is the body of PUT /profiles/{user_id}.
type Profile struct {
	IncludeTopics  []string `json:"include_topics"`
	ScoreThreshold float64  `json:"score_threshold"`
	NoiseCap       int      `json:"noise_cap"`
}

// Feedback is the body of POST /feedback.
type Feedback struct {
	EventID string `json:"event_id"`
	UserID  string `json:"user_id"`
	PaperID string `json:"paper_id"`
	Action  string `json:"action"`
	TS      string `json:"ts"`
}

// AckResponse represents the response from feedback submission.
type AckResponse struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}

// RankResponse is the body returned by POST /rank.
type RankResponse struct {
	Ranked int `json:"ranked"`
	Failed int `json:"failed"`
}

// Briefing is the body returned by the digest endpoints.
type Briefing struct {
	UserID       string   `json:"user_id"`
	Date         string   `json:"date"`
	PaperIDs     []string `json:"paper_ids"`
	PaperCount   int      `json:"paper_count"`
	ExploitCount int      `json:"exploit_count"`
	ExploreCount int      `json:"explore_count"`
	AvgScore     float64  `json:"avg_score"`
	Status       string   `json:"status"`
}

// Stats holds run statistics.
type Stats struct {
	PapersSeeded    int
	ProfilesSeeded  int
	EventsGenerated int
	EventsSubmitted int
	EventsAccepted  int
	EventsThrottled int
	EventsFailed    int
	PapersRanked    int
	RankFailures    int
	Briefings       int
	BriefingPapers  int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}

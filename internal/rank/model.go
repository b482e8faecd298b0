package rank

import "time"

// Job carries the posting fields the ranker needs, decoupled from the
// jobposts aggregate.
type Job struct {
	ID              string
	Title           string
	Description     string
	Skills          []string
	WorkplaceType   string
	JobType         string
	EstimatedSalary string
	VisaRequired    bool
}

// RankedCandidate is one scored entry in the ranking output.
type RankedCandidate struct {
	CandidateID string   `json:"candidateId"`
	Slug        string   `json:"slug"`
	Score       int      `json:"score"`
	Reasons     []string `json:"reasons"`
}

// TokenUsage aggregates provider-reported token counts across every call in
// a ranking run, skill expansion included.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// Result is the ranking payload cached on the job post.
type Result struct {
	RankedCandidates []RankedCandidate `json:"rankedCandidates"`
	TokenUsage       TokenUsage        `json:"tokenUsage"`
	EstimatedCost    float64           `json:"estimatedCost"`
	LastUpdated      time.Time         `json:"lastUpdated"`
}

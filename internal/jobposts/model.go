package jobposts

import (
	"time"

	"github.com/EnabledTalentV2/ETBackendV2/internal/rank"
)

// Ranking lifecycle. Status only moves forward except the failure path and
// the stuck-job sweep, which reset back to StatusNotRanked.
const (
	StatusNotRanked = "not_ranked"
	StatusRanking   = "ranking"
	StatusRanked    = "ranked"
	StatusFailed    = "failed"
)

// Workplace types.
const (
	WorkplaceHybrid = 1
	WorkplaceOnSite = 2
	WorkplaceRemote = 3
)

// Job types.
const (
	JobFullTime   = 1
	JobPartTime   = 2
	JobContract   = 3
	JobTemporary  = 4
	JobOther      = 5
	JobVolunteer  = 6
	JobInternship = 7
)

var workplaceLabels = map[int]string{
	WorkplaceHybrid: "hybrid",
	WorkplaceOnSite: "on-site",
	WorkplaceRemote: "remote",
}

var jobTypeLabels = map[int]string{
	JobFullTime:   "full-time",
	JobPartTime:   "part-time",
	JobContract:   "contract",
	JobTemporary:  "temporary",
	JobOther:      "other",
	JobVolunteer:  "volunteer",
	JobInternship: "internship",
}

// WorkplaceLabel returns the human-readable workplace type name.
func WorkplaceLabel(code int) string { return workplaceLabels[code] }

// JobTypeLabel returns the human-readable job type name.
func JobTypeLabel(code int) string { return jobTypeLabels[code] }

// ValidWorkplace reports whether code is a known workplace type.
func ValidWorkplace(code int) bool { _, ok := workplaceLabels[code]; return ok }

// ValidJobType reports whether code is a known job type.
func ValidJobType(code int) bool { _, ok := jobTypeLabels[code]; return ok }

// JobPost is the job aggregate: posting fields plus ranking state. The
// ranking payload is cached on the record while ranking_status is ranked.
type JobPost struct {
	ID              string
	Title           string
	Description     string
	WorkplaceType   int
	JobType         int
	Skills          []string
	EstimatedSalary string
	VisaRequired    bool
	RankingStatus   string
	RankingData     *rank.Result
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

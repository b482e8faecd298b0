package candidates

import (
	"time"

	"github.com/EnabledTalentV2/ETBackendV2/internal/extract"
)

// Parsing lifecycle. Status only moves forward except the failure path and
// the stuck-job sweep, which reset back to StatusNotParsed.
const (
	StatusNotParsed = "not_parsed"
	StatusParsing   = "parsing"
	StatusParsed    = "parsed"
	StatusFailed    = "failed"
)

// Candidate is the candidate document aggregate: uploaded resume metadata,
// extraction state, and the self-reported preference fields used by ranking.
type Candidate struct {
	ID                        string
	Slug                      string
	Email                     string
	ResumeKey                 *string
	MimeType                  *string
	ParsingStatus             string
	ExtractedData             *extract.Fields
	IsAvailable               bool
	HasWorkVisa               bool
	WillingToRelocate         bool
	EmploymentTypePreferences []string
	WorkModePreferences       []string
	ExpectedSalaryRange       *string
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

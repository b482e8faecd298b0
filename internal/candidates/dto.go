package candidates

import (
	"time"

	"github.com/EnabledTalentV2/ETBackendV2/internal/extract"
)

// CandidateResponse is the outward-facing representation of a candidate.
type CandidateResponse struct {
	ID                        string          `json:"id"`
	Slug                      string          `json:"slug"`
	Email                     string          `json:"email"`
	ParsingStatus             string          `json:"parsingStatus"`
	ExtractedData             *extract.Fields `json:"extractedData,omitempty"`
	IsAvailable               bool            `json:"isAvailable"`
	HasWorkVisa               bool            `json:"hasWorkVisa"`
	WillingToRelocate         bool            `json:"willingToRelocate"`
	EmploymentTypePreferences []string        `json:"employmentTypePreferences"`
	WorkModePreferences       []string        `json:"workModePreferences"`
	ExpectedSalaryRange       *string         `json:"expectedSalaryRange,omitempty"`
	CreatedAt                 time.Time       `json:"createdAt"`
	UpdatedAt                 time.Time       `json:"updatedAt"`
}

func toResponse(c Candidate) CandidateResponse {
	return CandidateResponse{
		ID:                        c.ID,
		Slug:                      c.Slug,
		Email:                     c.Email,
		ParsingStatus:             c.ParsingStatus,
		ExtractedData:             c.ExtractedData,
		IsAvailable:               c.IsAvailable,
		HasWorkVisa:               c.HasWorkVisa,
		WillingToRelocate:         c.WillingToRelocate,
		EmploymentTypePreferences: c.EmploymentTypePreferences,
		WorkModePreferences:       c.WorkModePreferences,
		ExpectedSalaryRange:       c.ExpectedSalaryRange,
		CreatedAt:                 c.CreatedAt,
		UpdatedAt:                 c.UpdatedAt,
	}
}

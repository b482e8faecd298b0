package jobposts

import (
	"time"

	"github.com/EnabledTalentV2/ETBackendV2/internal/rank"
)

// JobPostResponse is the outward-facing representation of a job post.
type JobPostResponse struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	WorkplaceType   int          `json:"workplaceType"`
	WorkplaceLabel  string       `json:"workplaceLabel"`
	JobType         int          `json:"jobType"`
	JobTypeLabel    string       `json:"jobTypeLabel"`
	Skills          []string     `json:"skills"`
	EstimatedSalary string       `json:"estimatedSalary"`
	VisaRequired    bool         `json:"visaRequired"`
	RankingStatus   string       `json:"rankingStatus"`
	RankingData     *rank.Result `json:"rankingData,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

func toResponse(job JobPost) JobPostResponse {
	return JobPostResponse{
		ID:              job.ID,
		Title:           job.Title,
		Description:     job.Description,
		WorkplaceType:   job.WorkplaceType,
		WorkplaceLabel:  WorkplaceLabel(job.WorkplaceType),
		JobType:         job.JobType,
		JobTypeLabel:    JobTypeLabel(job.JobType),
		Skills:          job.Skills,
		EstimatedSalary: job.EstimatedSalary,
		VisaRequired:    job.VisaRequired,
		RankingStatus:   job.RankingStatus,
		RankingData:     job.RankingData,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
	}
}

package candidates

import (
	"context"
	"time"

	"github.com/EnabledTalentV2/ETBackendV2/internal/extract"
)

// Repo defines persistence operations for candidates.
type Repo interface {
	Create(ctx context.Context, candidate Candidate) error
	GetByID(ctx context.Context, id string) (Candidate, error)
	GetBySlug(ctx context.Context, slug string) (Candidate, error)
	List(ctx context.Context, limit, offset int) ([]Candidate, error)

	// SetResume records the stored resume and resets parsing back to
	// not_parsed so the new file is picked up.
	SetResume(ctx context.Context, id, resumeKey, mimeType string) error

	// UpdateProfile replaces the preference fields.
	UpdateProfile(ctx context.Context, candidate Candidate) error

	// TryMarkParsing is the dispatch guard: it moves not_parsed or failed
	// to parsing and reports whether the transition happened.
	TryMarkParsing(ctx context.Context, id string) (bool, error)
	CompleteParsing(ctx context.Context, id string, fields extract.Fields) error
	FailParsing(ctx context.Context, id string) error
	ResetParsing(ctx context.Context, id string) error

	// ResetStuckParsing resets records stuck in parsing since before the
	// cutoff and returns how many were reset.
	ResetStuckParsing(ctx context.Context, cutoff time.Time) (int64, error)

	// ListEligible returns candidates that are available and parsed,
	// restricted to visa holders when the job requires sponsorship-free
	// work authorization.
	ListEligible(ctx context.Context, visaRequired bool) ([]Candidate, error)
}

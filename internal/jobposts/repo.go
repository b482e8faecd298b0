package jobposts

import (
	"context"
	"time"

	"github.com/EnabledTalentV2/ETBackendV2/internal/rank"
)

// Repo defines persistence operations for job posts.
type Repo interface {
	Create(ctx context.Context, job JobPost) error
	GetByID(ctx context.Context, id string) (JobPost, error)
	List(ctx context.Context, limit, offset int) ([]JobPost, error)

	// TryMarkRanking is the dispatch guard: it moves not_ranked or failed
	// to ranking and reports whether the transition happened.
	TryMarkRanking(ctx context.Context, id string) (bool, error)
	CompleteRanking(ctx context.Context, id string, result rank.Result) error
	FailRanking(ctx context.Context, id string) error
	ResetRanking(ctx context.Context, id string) error

	// ResetStuckRanking resets jobs stuck in ranking since before the
	// cutoff and returns how many were reset.
	ResetStuckRanking(ctx context.Context, cutoff time.Time) (int64, error)
}

package jobposts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/EnabledTalentV2/ETBackendV2/internal/rank"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]JobPost
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]JobPost)}
}

// Create stores a new job post.
func (r *MemoryRepo) Create(ctx context.Context, job JobPost) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[job.ID] = job
	return nil
}

// GetByID returns a job post by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (JobPost, error) {
	if err := ctx.Err(); err != nil {
		return JobPost{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.data[id]
	if !ok {
		return JobPost{}, ErrNotFound
	}
	return job, nil
}

// List returns job posts, newest first, honoring limit/offset.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]JobPost, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	all := make([]JobPost, 0, len(r.data))
	for _, job := range r.data {
		all = append(all, job)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []JobPost{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

// TryMarkRanking moves not_ranked or failed to ranking.
func (r *MemoryRepo) TryMarkRanking(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.data[id]
	if !ok {
		return false, ErrNotFound
	}
	if job.RankingStatus != StatusNotRanked && job.RankingStatus != StatusFailed {
		return false, nil
	}
	job.RankingStatus = StatusRanking
	job.UpdatedAt = time.Now().UTC()
	r.data[id] = job
	return true, nil
}

// CompleteRanking caches the result and marks the job ranked.
func (r *MemoryRepo) CompleteRanking(ctx context.Context, id string, result rank.Result) error {
	return r.setRankState(ctx, id, StatusRanked, &result)
}

// FailRanking marks the job failed and clears any partial result.
func (r *MemoryRepo) FailRanking(ctx context.Context, id string) error {
	return r.setRankState(ctx, id, StatusFailed, nil)
}

// ResetRanking returns the job to not_ranked.
func (r *MemoryRepo) ResetRanking(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	job.RankingStatus = StatusNotRanked
	job.UpdatedAt = time.Now().UTC()
	r.data[id] = job
	return nil
}

func (r *MemoryRepo) setRankState(ctx context.Context, id, status string, result *rank.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	job.RankingStatus = status
	job.RankingData = result
	job.UpdatedAt = time.Now().UTC()
	r.data[id] = job
	return nil
}

// ResetStuckRanking resets jobs stuck in ranking since before the cutoff.
func (r *MemoryRepo) ResetStuckRanking(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var reset int64
	for id, job := range r.data {
		if job.RankingStatus == StatusRanking && job.UpdatedAt.Before(cutoff) {
			job.RankingStatus = StatusNotRanked
			job.UpdatedAt = time.Now().UTC()
			r.data[id] = job
			reset++
		}
	}
	return reset, nil
}

var _ Repo = (*MemoryRepo)(nil)

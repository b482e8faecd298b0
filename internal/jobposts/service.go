package jobposts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/EnabledTalentV2/ETBackendV2/internal/candidates"
	"github.com/EnabledTalentV2/ETBackendV2/internal/queue"
	"github.com/EnabledTalentV2/ETBackendV2/internal/rank"
	"github.com/EnabledTalentV2/ETBackendV2/internal/shared/metrics"
	"github.com/EnabledTalentV2/ETBackendV2/internal/shared/telemetry"
)

// Service contains business logic for job posts and drives ranking runs.
type Service struct {
	Repo       Repo
	Candidates candidates.Repo
	Ranker     *rank.Ranker
	Queue      queue.Client

	// StuckAfter bounds how long a job may sit in ranking before the
	// sweep returns it to not_ranked.
	StuckAfter time.Duration
}

// CreateInput carries the posting fields supplied at creation.
type CreateInput struct {
	Title           string
	Description     string
	WorkplaceType   int
	JobType         int
	Skills          []string
	EstimatedSalary string
	VisaRequired    bool
}

// Create registers a job post.
func (s *Service) Create(ctx context.Context, in CreateInput) (JobPost, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return JobPost{}, fmt.Errorf("%w: title required", ErrInvalidInput)
	}
	if !ValidWorkplace(in.WorkplaceType) {
		return JobPost{}, fmt.Errorf("%w: unknown workplace type %d", ErrInvalidInput, in.WorkplaceType)
	}
	if !ValidJobType(in.JobType) {
		return JobPost{}, fmt.Errorf("%w: unknown job type %d", ErrInvalidInput, in.JobType)
	}

	now := time.Now().UTC()
	job := JobPost{
		ID:              uuid.NewString(),
		Title:           title,
		Description:     strings.TrimSpace(in.Description),
		WorkplaceType:   in.WorkplaceType,
		JobType:         in.JobType,
		Skills:          in.Skills,
		EstimatedSalary: in.EstimatedSalary,
		VisaRequired:    in.VisaRequired,
		RankingStatus:   StatusNotRanked,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Repo.Create(ctx, job); err != nil {
		return JobPost{}, fmt.Errorf("create job post: %w", err)
	}
	return job, nil
}

// Get returns a job post by ID.
func (s *Service) Get(ctx context.Context, id string) (JobPost, error) {
	if strings.TrimSpace(id) == "" {
		return JobPost{}, fmt.Errorf("%w: id required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, id)
}

// List returns job posts, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]JobPost, error) {
	return s.Repo.List(ctx, limit, offset)
}

// TriggerRank dispatches a ranking job. Jobs already ranking or ranked are
// not re-dispatched; the cached result stays authoritative until a new run
// is requested on a failed or reset job.
func (s *Service) TriggerRank(ctx context.Context, id, requestID string) error {
	moved, err := s.Repo.TryMarkRanking(ctx, id)
	if err != nil {
		return err
	}
	if !moved {
		return ErrAlreadyQueued
	}

	msg := queue.Message{
		Kind:       queue.KindRankCandidates,
		RecordID:   id,
		RequestID:  requestID,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    1,
	}
	if err := s.Queue.Send(ctx, msg); err != nil {
		if resetErr := s.Repo.ResetRanking(ctx, id); resetErr != nil {
			telemetry.Error("jobposts.reset_after_enqueue_failed", map[string]any{
				"job_id": id,
				"error":  resetErr.Error(),
			})
		}
		return fmt.Errorf("enqueue rank job: %w", err)
	}
	return nil
}

// ProcessRank is the worker path: it loads the eligible candidate pool, runs
// the ranker, and caches the outcome on the job post.
func (s *Service) ProcessRank(ctx context.Context, id string) error {
	start := metrics.NowMillis()
	metrics.IncRankStarted()

	job, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		metrics.IncRankFailed()
		return fmt.Errorf("load job post: %w", err)
	}

	pool, err := s.Candidates.ListEligible(ctx, job.VisaRequired)
	if err != nil {
		metrics.IncRankFailed()
		if failErr := s.Repo.FailRanking(ctx, id); failErr != nil {
			telemetry.Error("jobposts.mark_failed", map[string]any{"job_id": id, "error": failErr.Error()})
		}
		return fmt.Errorf("list eligible candidates: %w", err)
	}

	result, err := s.Ranker.Rank(ctx, toRankJob(job), pool)
	if err != nil {
		metrics.IncRankFailed()
		if failErr := s.Repo.FailRanking(ctx, id); failErr != nil {
			telemetry.Error("jobposts.mark_failed", map[string]any{"job_id": id, "error": failErr.Error()})
		}
		return fmt.Errorf("rank candidates: %w", err)
	}

	if err := s.Repo.CompleteRanking(ctx, id, result); err != nil {
		metrics.IncRankFailed()
		return fmt.Errorf("store ranking: %w", err)
	}

	metrics.IncRankCompleted()
	metrics.ObserveRankDurationMs(metrics.NowMillis() - start)
	telemetry.Info("jobposts.rank_completed", map[string]any{
		"job_id":         id,
		"pool_size":      len(pool),
		"ranked":         len(result.RankedCandidates),
		"estimated_cost": result.EstimatedCost,
	})
	return nil
}

func toRankJob(job JobPost) rank.Job {
	return rank.Job{
		ID:              job.ID,
		Title:           job.Title,
		Description:     job.Description,
		Skills:          job.Skills,
		WorkplaceType:   WorkplaceLabel(job.WorkplaceType),
		JobType:         JobTypeLabel(job.JobType),
		EstimatedSalary: job.EstimatedSalary,
		VisaRequired:    job.VisaRequired,
	}
}

// SweepStuckRanking resets jobs stuck in ranking longer than StuckAfter.
func (s *Service) SweepStuckRanking(ctx context.Context) (int64, error) {
	stuckAfter := s.StuckAfter
	if stuckAfter <= 0 {
		stuckAfter = 2 * time.Hour
	}
	reset, err := s.Repo.ResetStuckRanking(ctx, time.Now().UTC().Add(-stuckAfter))
	if err != nil {
		return 0, err
	}
	if reset > 0 {
		telemetry.Warn("jobposts.sweep_reset", map[string]any{"count": reset})
	}
	return reset, nil
}

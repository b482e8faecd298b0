package candidates

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/EnabledTalentV2/ETBackendV2/internal/extract"
	"github.com/EnabledTalentV2/ETBackendV2/internal/queue"
	"github.com/EnabledTalentV2/ETBackendV2/internal/shared/metrics"
	"github.com/EnabledTalentV2/ETBackendV2/internal/shared/storage/object"
	"github.com/EnabledTalentV2/ETBackendV2/internal/shared/telemetry"
	"github.com/EnabledTalentV2/ETBackendV2/internal/shared/util"
)

// Service contains business logic for candidate documents.
type Service struct {
	Repo    Repo
	Store   object.ObjectStore
	Queue   queue.Client
	Extract *extract.Engine

	// StuckAfter bounds how long a record may sit in parsing before the
	// sweep returns it to not_parsed.
	StuckAfter time.Duration
}

// CreateInput carries the candidate profile fields supplied at creation.
type CreateInput struct {
	Email                     string
	IsAvailable               bool
	HasWorkVisa               bool
	WillingToRelocate         bool
	EmploymentTypePreferences []string
	WorkModePreferences       []string
	ExpectedSalaryRange       *string
}

// Create registers a candidate and derives its public slug from the email.
func (s *Service) Create(ctx context.Context, in CreateInput) (Candidate, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return Candidate{}, fmt.Errorf("%w: valid email required", ErrInvalidInput)
	}

	now := time.Now().UTC()
	candidate := Candidate{
		ID:                        uuid.NewString(),
		Slug:                      util.Slugify(email),
		Email:                     email,
		ParsingStatus:             StatusNotParsed,
		IsAvailable:               in.IsAvailable,
		HasWorkVisa:               in.HasWorkVisa,
		WillingToRelocate:         in.WillingToRelocate,
		EmploymentTypePreferences: in.EmploymentTypePreferences,
		WorkModePreferences:       in.WorkModePreferences,
		ExpectedSalaryRange:       in.ExpectedSalaryRange,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
	if err := s.Repo.Create(ctx, candidate); err != nil {
		return Candidate{}, fmt.Errorf("create candidate: %w", err)
	}
	return candidate, nil
}

// GetBySlug returns a candidate by its public slug.
func (s *Service) GetBySlug(ctx context.Context, slug string) (Candidate, error) {
	if strings.TrimSpace(slug) == "" {
		return Candidate{}, fmt.Errorf("%w: slug required", ErrInvalidInput)
	}
	return s.Repo.GetBySlug(ctx, slug)
}

// List returns candidates, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Candidate, error) {
	return s.Repo.List(ctx, limit, offset)
}

// UpdateProfile replaces the preference fields for a candidate.
func (s *Service) UpdateProfile(ctx context.Context, slug string, in CreateInput) (Candidate, error) {
	candidate, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return Candidate{}, err
	}
	candidate.IsAvailable = in.IsAvailable
	candidate.HasWorkVisa = in.HasWorkVisa
	candidate.WillingToRelocate = in.WillingToRelocate
	candidate.EmploymentTypePreferences = in.EmploymentTypePreferences
	candidate.WorkModePreferences = in.WorkModePreferences
	candidate.ExpectedSalaryRange = in.ExpectedSalaryRange
	if err := s.Repo.UpdateProfile(ctx, candidate); err != nil {
		return Candidate{}, err
	}
	return s.Repo.GetBySlug(ctx, slug)
}

// UploadResume stores the file, resets the parse state, and dispatches an
// extraction job.
func (s *Service) UploadResume(ctx context.Context, slug, fileName string, r io.Reader, requestID string) (Candidate, error) {
	if fileName == "" {
		return Candidate{}, fmt.Errorf("%w: file name required", ErrInvalidInput)
	}
	candidate, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return Candidate{}, err
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, candidate.Slug, fileName, r)
	if err != nil {
		return Candidate{}, fmt.Errorf("store resume: %w", err)
	}
	if err := s.Repo.SetResume(ctx, candidate.ID, storageKey, mimeType); err != nil {
		return Candidate{}, err
	}

	telemetry.Info("candidates.resume_uploaded", map[string]any{
		"candidate_id": candidate.ID,
		"slug":         candidate.Slug,
		"size_bytes":   size,
		"mime_type":    mimeType,
	})

	if err := s.TriggerParse(ctx, candidate.ID, requestID); err != nil {
		return Candidate{}, err
	}
	return s.Repo.GetByID(ctx, candidate.ID)
}

// TriggerParse dispatches an extraction job. Records already parsing or
// parsed are not re-dispatched.
func (s *Service) TriggerParse(ctx context.Context, id, requestID string) error {
	moved, err := s.Repo.TryMarkParsing(ctx, id)
	if err != nil {
		return err
	}
	if !moved {
		return ErrAlreadyQueued
	}

	msg := queue.Message{
		Kind:       queue.KindParseResume,
		RecordID:   id,
		RequestID:  requestID,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    1,
	}
	if err := s.Queue.Send(ctx, msg); err != nil {
		// Roll the dispatch guard back so a later upload can retry.
		if resetErr := s.Repo.ResetParsing(ctx, id); resetErr != nil {
			telemetry.Error("candidates.reset_after_enqueue_failed", map[string]any{
				"candidate_id": id,
				"error":        resetErr.Error(),
			})
		}
		return fmt.Errorf("enqueue parse job: %w", err)
	}
	return nil
}

// ProcessParse is the worker path: it reads the stored resume, runs the
// extraction engine, and records the outcome on the candidate.
func (s *Service) ProcessParse(ctx context.Context, id string) error {
	start := metrics.NowMillis()
	metrics.IncParseStarted()

	candidate, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		metrics.IncParseFailed()
		return fmt.Errorf("load candidate: %w", err)
	}
	if candidate.ResumeKey == nil {
		metrics.IncParseFailed()
		if failErr := s.Repo.FailParsing(ctx, id); failErr != nil {
			return failErr
		}
		return ErrNoResume
	}

	fields, err := s.extractFields(ctx, candidate)
	if err != nil {
		metrics.IncParseFailed()
		if failErr := s.Repo.FailParsing(ctx, id); failErr != nil {
			telemetry.Error("candidates.mark_failed", map[string]any{
				"candidate_id": id,
				"error":        failErr.Error(),
			})
		}
		return fmt.Errorf("extract resume: %w", err)
	}

	if err := s.Repo.CompleteParsing(ctx, id, fields); err != nil {
		metrics.IncParseFailed()
		return fmt.Errorf("store extraction: %w", err)
	}

	metrics.IncParseCompleted()
	metrics.ObserveParseDurationMs(metrics.NowMillis() - start)
	telemetry.Info("candidates.parse_completed", map[string]any{
		"candidate_id": id,
		"slug":         candidate.Slug,
		"skills":       len(fields.Skills),
	})
	return nil
}

func (s *Service) extractFields(ctx context.Context, candidate Candidate) (extract.Fields, error) {
	rc, err := s.Store.Open(ctx, *candidate.ResumeKey)
	if err != nil {
		return extract.Fields{}, fmt.Errorf("open resume: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return extract.Fields{}, fmt.Errorf("read resume: %w", err)
	}

	contentType := ""
	if candidate.MimeType != nil {
		contentType = *candidate.MimeType
	}
	return s.Extract.Extract(ctx, data, contentType, *candidate.ResumeKey)
}

// SweepStuckParsing resets records stuck in parsing longer than StuckAfter.
func (s *Service) SweepStuckParsing(ctx context.Context) (int64, error) {
	stuckAfter := s.StuckAfter
	if stuckAfter <= 0 {
		stuckAfter = time.Hour
	}
	reset, err := s.Repo.ResetStuckParsing(ctx, time.Now().UTC().Add(-stuckAfter))
	if err != nil {
		return 0, err
	}
	if reset > 0 {
		telemetry.Warn("candidates.sweep_reset", map[string]any{"count": reset})
	}
	return reset, nil
}

package candidates

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/EnabledTalentV2/ETBackendV2/internal/extract"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Candidate // id -> candidate
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Candidate)}
}

// Create stores a new candidate.
func (r *MemoryRepo) Create(ctx context.Context, candidate Candidate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[candidate.ID] = candidate
	return nil
}

// GetByID returns a candidate by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Candidate, error) {
	if err := ctx.Err(); err != nil {
		return Candidate{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	candidate, ok := r.data[id]
	if !ok {
		return Candidate{}, ErrNotFound
	}
	return candidate, nil
}

// GetBySlug returns a candidate by slug.
func (r *MemoryRepo) GetBySlug(ctx context.Context, slug string) (Candidate, error) {
	if err := ctx.Err(); err != nil {
		return Candidate{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, candidate := range r.data {
		if candidate.Slug == slug {
			return candidate, nil
		}
	}
	return Candidate{}, ErrNotFound
}

// List returns candidates, newest first, honoring limit/offset.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]Candidate, error) {
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
	all := make([]Candidate, 0, len(r.data))
	for _, candidate := range r.data {
		all = append(all, candidate)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []Candidate{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

// SetResume records the stored resume and resets the parse state.
func (r *MemoryRepo) SetResume(ctx context.Context, id, resumeKey, mimeType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	candidate, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	candidate.ResumeKey = &resumeKey
	candidate.MimeType = &mimeType
	candidate.ParsingStatus = StatusNotParsed
	candidate.ExtractedData = nil
	candidate.UpdatedAt = time.Now().UTC()
	r.data[id] = candidate
	return nil
}

// UpdateProfile replaces the preference fields.
func (r *MemoryRepo) UpdateProfile(ctx context.Context, update Candidate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	candidate, ok := r.data[update.ID]
	if !ok {
		return ErrNotFound
	}
	candidate.IsAvailable = update.IsAvailable
	candidate.HasWorkVisa = update.HasWorkVisa
	candidate.WillingToRelocate = update.WillingToRelocate
	candidate.EmploymentTypePreferences = update.EmploymentTypePreferences
	candidate.WorkModePreferences = update.WorkModePreferences
	candidate.ExpectedSalaryRange = update.ExpectedSalaryRange
	candidate.UpdatedAt = time.Now().UTC()
	r.data[update.ID] = candidate
	return nil
}

// TryMarkParsing moves not_parsed or failed to parsing.
func (r *MemoryRepo) TryMarkParsing(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	candidate, ok := r.data[id]
	if !ok {
		return false, ErrNotFound
	}
	if candidate.ParsingStatus != StatusNotParsed && candidate.ParsingStatus != StatusFailed {
		return false, nil
	}
	candidate.ParsingStatus = StatusParsing
	candidate.UpdatedAt = time.Now().UTC()
	r.data[id] = candidate
	return true, nil
}

// CompleteParsing stores the extracted fields and marks the record parsed.
func (r *MemoryRepo) CompleteParsing(ctx context.Context, id string, fields extract.Fields) error {
	return r.setParseState(ctx, id, StatusParsed, &fields)
}

// FailParsing marks the record failed and clears any partial extraction.
func (r *MemoryRepo) FailParsing(ctx context.Context, id string) error {
	return r.setParseState(ctx, id, StatusFailed, nil)
}

// ResetParsing returns the record to not_parsed.
func (r *MemoryRepo) ResetParsing(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	candidate, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	candidate.ParsingStatus = StatusNotParsed
	candidate.UpdatedAt = time.Now().UTC()
	r.data[id] = candidate
	return nil
}

func (r *MemoryRepo) setParseState(ctx context.Context, id, status string, fields *extract.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	candidate, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	candidate.ParsingStatus = status
	candidate.ExtractedData = fields
	candidate.UpdatedAt = time.Now().UTC()
	r.data[id] = candidate
	return nil
}

// ResetStuckParsing resets records stuck in parsing since before the cutoff.
func (r *MemoryRepo) ResetStuckParsing(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var reset int64
	for id, candidate := range r.data {
		if candidate.ParsingStatus == StatusParsing && candidate.UpdatedAt.Before(cutoff) {
			candidate.ParsingStatus = StatusNotParsed
			candidate.UpdatedAt = time.Now().UTC()
			r.data[id] = candidate
			reset++
		}
	}
	return reset, nil
}

// ListEligible returns available, parsed candidates ordered by ID.
func (r *MemoryRepo) ListEligible(ctx context.Context, visaRequired bool) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Candidate
	for _, candidate := range r.data {
		if !candidate.IsAvailable || candidate.ExtractedData == nil {
			continue
		}
		if visaRequired && !candidate.HasWorkVisa {
			continue
		}
		out = append(out, candidate)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)

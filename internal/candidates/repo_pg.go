package candidates

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/EnabledTalentV2/ETBackendV2/internal/extract"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const candidateColumns = `
id, slug, email, resume_url, mime_type, parsing_status, extracted_data,
is_available, has_work_visa, willing_to_relocate,
employment_type_preferences, work_mode_preferences, expected_salary_range,
created_at, updated_at`

// Create inserts a new candidate.
func (r *PGRepo) Create(ctx context.Context, candidate Candidate) error {
	const query = `
INSERT INTO candidates (
	id, slug, email, resume_url, mime_type, parsing_status, extracted_data,
	is_available, has_work_visa, willing_to_relocate,
	employment_type_preferences, work_mode_preferences, expected_salary_range,
	created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	extracted, err := marshalNullableJSONB(candidate.ExtractedData)
	if err != nil {
		return err
	}
	employment, err := marshalStringList(candidate.EmploymentTypePreferences)
	if err != nil {
		return err
	}
	workModes, err := marshalStringList(candidate.WorkModePreferences)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		candidate.ID,
		candidate.Slug,
		candidate.Email,
		candidate.ResumeKey,
		candidate.MimeType,
		candidate.ParsingStatus,
		extracted,
		candidate.IsAvailable,
		candidate.HasWorkVisa,
		candidate.WillingToRelocate,
		employment,
		workModes,
		candidate.ExpectedSalaryRange,
		candidate.CreatedAt,
		candidate.UpdatedAt,
	)
	return err
}

// GetByID returns a candidate by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Candidate, error) {
	return r.getWhere(ctx, "id = $1", id)
}

// GetBySlug returns a candidate by slug.
func (r *PGRepo) GetBySlug(ctx context.Context, slug string) (Candidate, error) {
	return r.getWhere(ctx, "slug = $1", slug)
}

func (r *PGRepo) getWhere(ctx context.Context, where string, arg any) (Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE ` + where + ` LIMIT 1`
	row := r.DB.QueryRowContext(ctx, query, arg)
	candidate, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Candidate{}, ErrNotFound
	}
	return candidate, err
}

// List returns candidates, newest first.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCandidates(rows)
}

// SetResume records the stored resume and resets the parse state.
func (r *PGRepo) SetResume(ctx context.Context, id, resumeKey, mimeType string) error {
	const query = `
UPDATE candidates
SET resume_url = $2, mime_type = $3, parsing_status = $4, extracted_data = NULL, updated_at = now()
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, resumeKey, mimeType, StatusNotParsed)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateProfile replaces the preference fields.
func (r *PGRepo) UpdateProfile(ctx context.Context, candidate Candidate) error {
	const query = `
UPDATE candidates
SET is_available = $2, has_work_visa = $3, willing_to_relocate = $4,
    employment_type_preferences = $5, work_mode_preferences = $6,
    expected_salary_range = $7, updated_at = now()
WHERE id = $1`
	employment, err := marshalStringList(candidate.EmploymentTypePreferences)
	if err != nil {
		return err
	}
	workModes, err := marshalStringList(candidate.WorkModePreferences)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query,
		candidate.ID,
		candidate.IsAvailable,
		candidate.HasWorkVisa,
		candidate.WillingToRelocate,
		employment,
		workModes,
		candidate.ExpectedSalaryRange,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// TryMarkParsing moves not_parsed or failed to parsing.
func (r *PGRepo) TryMarkParsing(ctx context.Context, id string) (bool, error) {
	const query = `
UPDATE candidates
SET parsing_status = $2, updated_at = now()
WHERE id = $1 AND parsing_status IN ($3, $4)`
	res, err := r.DB.ExecContext(ctx, query, id, StatusParsing, StatusNotParsed, StatusFailed)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CompleteParsing stores the extracted fields and marks the record parsed.
func (r *PGRepo) CompleteParsing(ctx context.Context, id string, fields extract.Fields) error {
	const query = `
UPDATE candidates
SET parsing_status = $2, extracted_data = $3, updated_at = now()
WHERE id = $1`
	payload, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, id, StatusParsed, payload)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// FailParsing marks the record failed and clears any partial extraction.
func (r *PGRepo) FailParsing(ctx context.Context, id string) error {
	const query = `
UPDATE candidates
SET parsing_status = $2, extracted_data = NULL, updated_at = now()
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, StatusFailed)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ResetParsing returns the record to not_parsed.
func (r *PGRepo) ResetParsing(ctx context.Context, id string) error {
	const query = `
UPDATE candidates
SET parsing_status = $2, updated_at = now()
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, StatusNotParsed)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ResetStuckParsing resets records stuck in parsing since before the cutoff.
func (r *PGRepo) ResetStuckParsing(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
UPDATE candidates
SET parsing_status = $1, updated_at = now()
WHERE parsing_status = $2 AND updated_at < $3`
	res, err := r.DB.ExecContext(ctx, query, StatusNotParsed, StatusParsing, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListEligible returns available, parsed candidates for ranking.
func (r *PGRepo) ListEligible(ctx context.Context, visaRequired bool) ([]Candidate, error) {
	query := `SELECT ` + candidateColumns + `
FROM candidates
WHERE is_available = TRUE AND extracted_data IS NOT NULL`
	if visaRequired {
		query += ` AND has_work_visa = TRUE`
	}
	query += ` ORDER BY id`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCandidates(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row rowScanner) (Candidate, error) {
	var c Candidate
	var resumeKey, mimeType, salaryRange sql.NullString
	var extracted, employment, workModes []byte
	err := row.Scan(
		&c.ID,
		&c.Slug,
		&c.Email,
		&resumeKey,
		&mimeType,
		&c.ParsingStatus,
		&extracted,
		&c.IsAvailable,
		&c.HasWorkVisa,
		&c.WillingToRelocate,
		&employment,
		&workModes,
		&salaryRange,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return Candidate{}, err
	}
	if resumeKey.Valid {
		c.ResumeKey = &resumeKey.String
	}
	if mimeType.Valid {
		c.MimeType = &mimeType.String
	}
	if salaryRange.Valid {
		c.ExpectedSalaryRange = &salaryRange.String
	}
	if len(extracted) > 0 {
		var fields extract.Fields
		if err := json.Unmarshal(extracted, &fields); err != nil {
			return Candidate{}, err
		}
		c.ExtractedData = &fields
	}
	if err := unmarshalStringList(employment, &c.EmploymentTypePreferences); err != nil {
		return Candidate{}, err
	}
	if err := unmarshalStringList(workModes, &c.WorkModePreferences); err != nil {
		return Candidate{}, err
	}
	return c, nil
}

func scanCandidates(rows *sql.Rows) ([]Candidate, error) {
	var out []Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func marshalNullableJSONB(fields *extract.Fields) (any, error) {
	if fields == nil {
		return nil, nil
	}
	return json.Marshal(fields)
}

func marshalStringList(list []string) ([]byte, error) {
	if list == nil {
		list = []string{}
	}
	return json.Marshal(list)
}

func unmarshalStringList(raw []byte, dst *[]string) error {
	if len(raw) == 0 {
		*dst = nil
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)

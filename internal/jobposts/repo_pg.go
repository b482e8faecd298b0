package jobposts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/EnabledTalentV2/ETBackendV2/internal/rank"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const jobPostColumns = `
id, title, description, workplace_type, job_type, skills, estimated_salary,
visa_required, ranking_status, ranking_data, created_at, updated_at`

// Create inserts a new job post.
func (r *PGRepo) Create(ctx context.Context, job JobPost) error {
	const query = `
INSERT INTO job_posts (
	id, title, description, workplace_type, job_type, skills, estimated_salary,
	visa_required, ranking_status, ranking_data, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	skills, err := json.Marshal(emptyIfNil(job.Skills))
	if err != nil {
		return err
	}
	var rankingData any
	if job.RankingData != nil {
		rankingData, err = json.Marshal(job.RankingData)
		if err != nil {
			return err
		}
	}
	_, err = r.DB.ExecContext(ctx, query,
		job.ID,
		job.Title,
		job.Description,
		job.WorkplaceType,
		job.JobType,
		skills,
		job.EstimatedSalary,
		job.VisaRequired,
		job.RankingStatus,
		rankingData,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

// GetByID returns a job post by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (JobPost, error) {
	query := `SELECT ` + jobPostColumns + ` FROM job_posts WHERE id = $1 LIMIT 1`
	row := r.DB.QueryRowContext(ctx, query, id)
	job, err := scanJobPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return JobPost{}, ErrNotFound
	}
	return job, err
}

// List returns job posts, newest first.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]JobPost, error) {
	query := `SELECT ` + jobPostColumns + ` FROM job_posts ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JobPost
	for rows.Next() {
		job, err := scanJobPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// TryMarkRanking moves not_ranked or failed to ranking.
func (r *PGRepo) TryMarkRanking(ctx context.Context, id string) (bool, error) {
	const query = `
UPDATE job_posts
SET ranking_status = $2, updated_at = now()
WHERE id = $1 AND ranking_status IN ($3, $4)`
	res, err := r.DB.ExecContext(ctx, query, id, StatusRanking, StatusNotRanked, StatusFailed)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CompleteRanking caches the result and marks the job ranked.
func (r *PGRepo) CompleteRanking(ctx context.Context, id string, result rank.Result) error {
	const query = `
UPDATE job_posts
SET ranking_status = $2, ranking_data = $3, updated_at = now()
WHERE id = $1`
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, id, StatusRanked, payload)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// FailRanking marks the job failed and clears any partial result.
func (r *PGRepo) FailRanking(ctx context.Context, id string) error {
	const query = `
UPDATE job_posts
SET ranking_status = $2, ranking_data = NULL, updated_at = now()
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, StatusFailed)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ResetRanking returns the job to not_ranked.
func (r *PGRepo) ResetRanking(ctx context.Context, id string) error {
	const query = `
UPDATE job_posts
SET ranking_status = $2, updated_at = now()
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, StatusNotRanked)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ResetStuckRanking resets jobs stuck in ranking since before the cutoff.
func (r *PGRepo) ResetStuckRanking(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
UPDATE job_posts
SET ranking_status = $1, updated_at = now()
WHERE ranking_status = $2 AND updated_at < $3`
	res, err := r.DB.ExecContext(ctx, query, StatusNotRanked, StatusRanking, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJobPost(row rowScanner) (JobPost, error) {
	var job JobPost
	var skills, rankingData []byte
	err := row.Scan(
		&job.ID,
		&job.Title,
		&job.Description,
		&job.WorkplaceType,
		&job.JobType,
		&skills,
		&job.EstimatedSalary,
		&job.VisaRequired,
		&job.RankingStatus,
		&rankingData,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return JobPost{}, err
	}
	if len(skills) > 0 {
		if err := json.Unmarshal(skills, &job.Skills); err != nil {
			return JobPost{}, err
		}
	}
	if len(rankingData) > 0 {
		var result rank.Result
		if err := json.Unmarshal(rankingData, &result); err != nil {
			return JobPost{}, err
		}
		job.RankingData = &result
	}
	return job, nil
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
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

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jobsync/internal/domain"
	"jobsync/internal/logger"
	"jobsync/internal/repository"
	repositoryIface "jobsync/internal/repository/iface"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const jobColumns = `job_key, source, source_id, title, organization, location, country,
	category, experience_level, description, skills, salary, apply_url,
	posted_at, closing_at, created_at, updated_at`

// updated_at is bumped past created_at so a same-millisecond rewrite still reads as an update
const upsertJobSQL = `
INSERT INTO jobs (` + jobColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)
ON CONFLICT (source, source_id) DO UPDATE SET
	title            = EXCLUDED.title,
	organization     = EXCLUDED.organization,
	location         = EXCLUDED.location,
	country          = EXCLUDED.country,
	category         = EXCLUDED.category,
	experience_level = EXCLUDED.experience_level,
	description      = EXCLUDED.description,
	skills           = EXCLUDED.skills,
	salary           = EXCLUDED.salary,
	apply_url        = EXCLUDED.apply_url,
	posted_at        = EXCLUDED.posted_at,
	closing_at       = EXCLUDED.closing_at,
	updated_at       = GREATEST(EXCLUDED.updated_at, jobs.created_at + 1)
RETURNING ` + jobColumns

type jobRepository struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// NewJobRepository creates a new PostgreSQL job repository
func NewJobRepository(pool *pgxpool.Pool, log logger.Logger) repositoryIface.JobRepository {
	return &jobRepository{
		pool:   pool,
		logger: log.With(logger.String("component", "job_repository")),
	}
}

func (r *jobRepository) Upsert(ctx context.Context, job *domain.Job, now time.Time) (*domain.Job, error) {
	skills := job.Skills
	if skills == nil {
		skills = []string{}
	}

	row := r.pool.QueryRow(ctx, upsertJobSQL,
		job.Key(), job.Source, job.SourceID, job.Title, job.Organization, job.Location,
		job.Country, job.Category, string(job.ExperienceLevel), job.Description, skills,
		job.Salary, job.ApplyURL, job.PostedAt, job.ClosingAt, now.UnixMilli(),
	)

	stored, err := scanJob(row)
	if err != nil {
		r.logger.Error("failed to upsert job", logger.String("job_key", job.Key()), logger.Error(err))
		return nil, fmt.Errorf("failed to upsert job: %w", err)
	}

	return stored, nil
}

func (r *jobRepository) GetByKey(ctx context.Context, source, sourceID string) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE source = $1 AND source_id = $2`,
		source, sourceID)

	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: job %s", repository.ErrNotFound, domain.JobKey(source, sourceID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return job, nil
}

func (r *jobRepository) GetByKeys(ctx context.Context, keys []string) ([]*domain.Job, error) {
	if len(keys) == 0 {
		return []*domain.Job{}, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE job_key = ANY($1)`, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}

	return collectJobs(rows)
}

func (r *jobRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM jobs WHERE closing_at IS NOT NULL AND closing_at < $1`,
		now.UnixMilli())
	if err != nil {
		r.logger.Error("failed to delete expired jobs", logger.Error(err))
		return 0, fmt.Errorf("failed to delete expired jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *jobRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM jobs WHERE closing_at IS NULL AND created_at < $1`,
		cutoff.UnixMilli())
	if err != nil {
		r.logger.Error("failed to delete stale jobs", logger.Error(err))
		return 0, fmt.Errorf("failed to delete stale jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *jobRepository) CountBySource(ctx context.Context, source string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM jobs WHERE source = $1`, source).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return n, nil
}

func (r *jobRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return n, nil
}

func (r *jobRepository) ListRecent(ctx context.Context, source string, limit int) ([]*domain.Job, error) {
	if limit <= 0 {
		limit = 1000
	}

	var (
		rows pgx.Rows
		err  error
	)
	if source == "" {
		rows, err = r.pool.Query(ctx,
			`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC, job_key LIMIT $1`, limit)
	} else {
		rows, err = r.pool.Query(ctx,
			`SELECT `+jobColumns+` FROM jobs WHERE source = $1 ORDER BY created_at DESC, job_key LIMIT $2`,
			source, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return collectJobs(rows)
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job   domain.Job
		level string
	)
	if err := row.Scan(
		&job.JobKey, &job.Source, &job.SourceID, &job.Title, &job.Organization,
		&job.Location, &job.Country, &job.Category, &level, &job.Description,
		&job.Skills, &job.Salary, &job.ApplyURL, &job.PostedAt, &job.ClosingAt,
		&job.CreatedAt, &job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.ExperienceLevel = domain.ExperienceLevel(level)
	return &job, nil
}

func collectJobs(rows pgx.Rows) ([]*domain.Job, error) {
	defer rows.Close()

	jobs := []*domain.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

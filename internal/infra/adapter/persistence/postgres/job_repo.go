package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"intelwire/internal/domain/entity"
	"intelwire/internal/repository"
)

type JobRepo struct{ db *sql.DB }

func NewJobRepo(db *sql.DB) repository.JobRepository {
	return &JobRepo{db: db}
}

const jobColumns = `id, type, status, progress, data, result, error, started_at, completed_at, estimated_duration_ms`

func scanJobRow(scan func(dest ...any) error) (*entity.Job, error) {
	var job entity.Job
	var dataJSON, resultJSON []byte
	var errMsg sql.NullString
	var estimatedMs int64
	if err := scan(
		&job.ID, &job.Type, &job.Status, &job.Progress,
		&dataJSON, &resultJSON, &errMsg,
		&job.StartedAt, &job.CompletedAt, &estimatedMs,
	); err != nil {
		return nil, err
	}
	if len(dataJSON) > 0 {
		if err := json.Unmarshal(dataJSON, &job.Data); err != nil {
			return nil, fmt.Errorf("unmarshal data: %w", err)
		}
	}
	if len(resultJSON) > 0 {
		if err := json.Unmarshal(resultJSON, &job.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
	}
	job.Error = errMsg.String
	job.EstimatedDuration = time.Duration(estimatedMs) * time.Millisecond
	return &job, nil
}

func jobArgs(job *entity.Job) (dataJSON, resultJSON []byte, err error) {
	if job.Data != nil {
		dataJSON, err = json.Marshal(job.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal data: %w", err)
		}
	}
	if job.Result != nil {
		resultJSON, err = json.Marshal(job.Result)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal result: %w", err)
		}
	}
	return dataJSON, resultJSON, nil
}

func (repo *JobRepo) Get(ctx context.Context, id string) (*entity.Job, error) {
	query := `
SELECT ` + jobColumns + `
FROM jobs
WHERE id = $1
LIMIT 1`
	row := repo.db.QueryRowContext(ctx, query, id)
	job, err := scanJobRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return job, nil
}

func (repo *JobRepo) List(ctx context.Context, filter repository.JobFilter) ([]*entity.Job, error) {
	var conditions []string
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}

	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY started_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	jobs := make([]*entity.Job, 0, 50)
	for rows.Next() {
		job, err := scanJobRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (repo *JobRepo) CountByStatus(ctx context.Context, filter repository.JobFilter) (map[entity.JobStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM jobs`
	var args []any
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += " WHERE type = $1"
	}
	query += " GROUP BY status"

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("CountByStatus: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[entity.JobStatus]int)
	for rows.Next() {
		var status entity.JobStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("CountByStatus: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (repo *JobRepo) Create(ctx context.Context, job *entity.Job) error {
	dataJSON, resultJSON, err := jobArgs(job)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	const query = `
INSERT INTO jobs (id, type, status, progress, data, result, error, started_at, completed_at, estimated_duration_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = repo.db.ExecContext(ctx, query,
		job.ID, job.Type, job.Status, job.Progress,
		dataJSON, resultJSON, nullString(job.Error),
		job.StartedAt, job.CompletedAt, job.EstimatedDuration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *JobRepo) Update(ctx context.Context, job *entity.Job) error {
	dataJSON, resultJSON, err := jobArgs(job)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	const query = `
UPDATE jobs SET
       status                = $1,
       progress              = $2,
       data                  = $3,
       result                = $4,
       error                 = $5,
       started_at            = $6,
       completed_at          = $7,
       estimated_duration_ms = $8
WHERE id = $9`
	res, err := repo.db.ExecContext(ctx, query,
		job.Status, job.Progress, dataJSON, resultJSON,
		nullString(job.Error), job.StartedAt, job.CompletedAt,
		job.EstimatedDuration.Milliseconds(), job.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Update: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *JobRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM jobs WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Delete: %w", entity.ErrNotFound)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

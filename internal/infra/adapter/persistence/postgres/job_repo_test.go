package postgres_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"

	"intelwire/internal/domain/entity"
	"intelwire/internal/infra/adapter/persistence/postgres"
	"intelwire/internal/repository"
)

func jobRow(job *entity.Job, data, result []byte) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "type", "status", "progress", "data", "result", "error",
		"started_at", "completed_at", "estimated_duration_ms",
	}).AddRow(
		job.ID, job.Type, job.Status, job.Progress, data, result, job.Error,
		job.StartedAt, job.CompletedAt, job.EstimatedDuration.Milliseconds(),
	)
}

func TestJobRepo_Get(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	started := time.Now().Truncate(time.Second)
	want := &entity.Job{
		ID:                "crawl_abc",
		Type:              "crawl",
		Status:            entity.JobRunning,
		Progress:          40,
		Data:              map[string]any{"source_count": float64(3)},
		StartedAt:         started,
		EstimatedDuration: 2 * time.Minute,
	}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id`)).
		WithArgs("crawl_abc").
		WillReturnRows(jobRow(want, []byte(`{"source_count":3}`), nil))

	repo := postgres.NewJobRepo(db)
	got, err := repo.Get(context.Background(), "crawl_abc")
	if err != nil {
		t.Fatalf("Get err=%v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestJobRepo_Get_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "type", "status", "progress", "data", "result", "error",
			"started_at", "completed_at", "estimated_duration_ms",
		}))

	repo := postgres.NewJobRepo(db)
	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestJobRepo_List_FiltersByStatus(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	started := time.Now()
	job := &entity.Job{
		ID: "crawl_1", Type: "crawl", Status: entity.JobRunning, StartedAt: started,
	}
	mock.ExpectQuery(`WHERE status = \$1`).
		WithArgs(entity.JobRunning).
		WillReturnRows(jobRow(job, nil, nil))

	repo := postgres.NewJobRepo(db)
	got, err := repo.List(context.Background(), repository.JobFilter{Status: entity.JobRunning})
	if err != nil || len(got) != 1 {
		t.Fatalf("List err=%v len=%d", err, len(got))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestJobRepo_CountByStatus(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`GROUP BY status`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("running", 2).
			AddRow("completed", 5))

	repo := postgres.NewJobRepo(db)
	counts, err := repo.CountByStatus(context.Background(), repository.JobFilter{})
	if err != nil {
		t.Fatalf("CountByStatus err=%v", err)
	}
	if counts[entity.JobRunning] != 2 || counts[entity.JobCompleted] != 5 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestJobRepo_Create(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO jobs`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := postgres.NewJobRepo(db)
	job := &entity.Job{
		ID: "crawl_new", Type: "crawl", Status: entity.JobPending,
		StartedAt: time.Now(),
	}
	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("Create err=%v", err)
	}
}

func TestJobRepo_Update_PersistsStartedAt(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	started := time.Now().Truncate(time.Second)
	mock.ExpectExec(`UPDATE jobs SET(?s:.*)started_at(?s:.*)WHERE id`).
		WithArgs(
			entity.JobRunning, 10, []byte(nil), []byte(nil), sqlmock.AnyArg(),
			started, nil, int64(120000), "crawl_abc",
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := postgres.NewJobRepo(db)
	job := &entity.Job{
		ID:                "crawl_abc",
		Type:              "crawl",
		Status:            entity.JobRunning,
		Progress:          10,
		StartedAt:         started,
		EstimatedDuration: 2 * time.Minute,
	}
	if err := repo.Update(context.Background(), job); err != nil {
		t.Fatalf("Update err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestJobRepo_Update_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE jobs SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := postgres.NewJobRepo(db)
	err := repo.Update(context.Background(), &entity.Job{ID: "missing", Status: entity.JobRunning})
	if !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

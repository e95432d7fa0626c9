package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
)

// BuildJob is one image of one build run.
type BuildJob struct {
	ID          string     `json:"id"`
	BuildID     string     `json:"build_id"`
	ImageName   string     `json:"image_name"`
	ImageTag    string     `json:"image_tag"`
	BaseImage   string     `json:"base_image"`
	Status      JobStatus  `json:"status"`
	ManifestDir *string    `json:"manifest_dir,omitempty"`
	Error       *string    `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func InsertBuildJob(ctx context.Context, amethystDB *sql.DB, buildID, imageName, imageTag, baseImage string) (*BuildJob, error) {
	jobID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("error generating buildjob uuid: %w", err)
	}
	now := time.Now().Unix()

	query := `
		INSERT INTO build_jobs (id, build_id, image_name, image_tag, base_image, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = amethystDB.ExecContext(ctx, query, jobID.String(), buildID, imageName, imageTag, baseImage, StatusQueued, now)
	if err != nil {
		return nil, err
	}

	return &BuildJob{
		ID:        jobID.String(),
		BuildID:   buildID,
		ImageName: imageName,
		ImageTag:  imageTag,
		BaseImage: baseImage,
		Status:    StatusQueued,
		CreatedAt: time.Unix(now, 0),
	}, nil
}

// StartBuildJob moves a queued job to running.
func StartBuildJob(ctx context.Context, amethystDB *sql.DB, id string) error {
	query := `UPDATE build_jobs SET status = ?, started_at = ? WHERE id = ? AND status = ?`
	return expectOneRow(amethystDB.ExecContext(ctx, query, StatusRunning, time.Now().Unix(), id, StatusQueued))
}

// CompleteBuildJob records the outcome of a running job. A nil buildErr marks it succeeded.
func CompleteBuildJob(ctx context.Context, amethystDB *sql.DB, id, manifestDir string, buildErr error) error {
	status := StatusSucceeded
	var errText, dir *string
	if buildErr != nil {
		status = StatusFailed
		msg := buildErr.Error()
		errText = &msg
	}
	if manifestDir != "" {
		dir = &manifestDir
	}

	query := `
		UPDATE build_jobs SET status = ?, manifest_dir = ?, error = ?, completed_at = ?
		WHERE id = ? AND status = ?
	`
	return expectOneRow(amethystDB.ExecContext(ctx, query, status, dir, errText, time.Now().Unix(), id, StatusRunning))
}

func GetBuildJob(ctx context.Context, amethystDB *sql.DB, id string) (*BuildJob, error) {
	query := `SELECT ` + buildJobColumns + ` FROM build_jobs WHERE id = ?`
	return scanBuildJob(amethystDB.QueryRowContext(ctx, query, id))
}

// ListBuildJobs returns the jobs of one build in insertion order.
func ListBuildJobs(ctx context.Context, amethystDB *sql.DB, buildID string) ([]*BuildJob, error) {
	query := `SELECT ` + buildJobColumns + ` FROM build_jobs WHERE build_id = ? ORDER BY id`
	rows, err := amethystDB.QueryContext(ctx, query, buildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*BuildJob
	for rows.Next() {
		job, err := scanBuildJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

const buildJobColumns = `id, build_id, image_name, image_tag, base_image, status, manifest_dir, error, started_at, completed_at, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanBuildJob(row scanner) (*BuildJob, error) {
	var (
		job                    BuildJob
		manifestDir, errText   sql.NullString
		startedAt, completedAt sql.NullInt64
		createdAt              int64
	)
	err := row.Scan(&job.ID, &job.BuildID, &job.ImageName, &job.ImageTag, &job.BaseImage, &job.Status,
		&manifestDir, &errText, &startedAt, &completedAt, &createdAt)
	if err != nil {
		return nil, err
	}

	if manifestDir.Valid {
		job.ManifestDir = &manifestDir.String
	}
	if errText.Valid {
		job.Error = &errText.String
	}
	if startedAt.Valid {
		t := time.Unix(startedAt.Int64, 0)
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0)
		job.CompletedAt = &t
	}
	job.CreatedAt = time.Unix(createdAt, 0)
	return &job, nil
}

func expectOneRow(result sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("expected 1 build job to be updated, got %d", n)
	}
	return nil
}

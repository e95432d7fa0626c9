package db

import (
	"context"
	"database/sql"
)

// Journal records build jobs in the build_jobs table.
type Journal struct {
	db *sql.DB
}

func NewJournal(amethystDB *sql.DB) *Journal {
	return &Journal{db: amethystDB}
}

// Begin inserts a job and marks it running.
func (j *Journal) Begin(ctx context.Context, buildID, imageName, imageTag, baseImage string) (string, error) {
	job, err := InsertBuildJob(ctx, j.db, buildID, imageName, imageTag, baseImage)
	if err != nil {
		return "", err
	}
	if err := StartBuildJob(ctx, j.db, job.ID); err != nil {
		return "", err
	}
	return job.ID, nil
}

func (j *Journal) End(ctx context.Context, jobID, manifestDir string, buildErr error) error {
	return CompleteBuildJob(ctx, j.db, jobID, manifestDir, buildErr)
}

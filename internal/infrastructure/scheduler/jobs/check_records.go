// Package jobs contains the maintenance jobs run by the scheduler.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/raizel-hub/academic-assistant/internal/infrastructure/persistence/csvstore"
)

// RecordSource is the record backend being watched.
type RecordSource interface {
	Name() string
	HealthCheck(ctx context.Context) error
}

// FileChecker inspects the CSV record files.
type FileChecker interface {
	Check(ctx context.Context) []csvstore.FileReport
}

// CheckRecordsJob verifies that the record backend is readable. Problems are
// logged once when they appear and once when they clear, so a missing file
// does not flood the log every interval.
type CheckRecordsJob struct {
	records RecordSource
	files   FileChecker
	logger  *slog.Logger

	failing atomic.Bool
}

// NewCheckRecordsJob creates the job. files may be nil for the postgres
// backend.
func NewCheckRecordsJob(records RecordSource, files FileChecker, logger *slog.Logger) *CheckRecordsJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckRecordsJob{records: records, files: files, logger: logger}
}

// Name returns the job name.
func (j *CheckRecordsJob) Name() string {
	return "check_records"
}

// Run checks the backend and, for CSV, every record file.
func (j *CheckRecordsJob) Run(ctx context.Context) error {
	var errs []error

	if err := j.records.HealthCheck(ctx); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", j.records.Name(), err))
	}

	if j.files != nil {
		for _, report := range j.files.Check(ctx) {
			if !report.OK() {
				errs = append(errs, errors.New(report.String()))
			}
		}
	}

	err := errors.Join(errs...)
	wasFailing := j.failing.Swap(err != nil)
	switch {
	case err != nil && !wasFailing:
		j.logger.Warn("record store problem detected", "error", err)
	case err == nil && wasFailing:
		j.logger.Info("record store recovered")
	}
	return err
}

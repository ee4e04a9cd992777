package jobs

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// VoiceFilePattern matches the recordings written by the voice command.
const VoiceFilePattern = "voice-*.wav"

// SweepAudioJob removes voice recordings that outlived their request, for
// example after a crash between writing and transcribing.
type SweepAudioJob struct {
	dir    string
	maxAge time.Duration
	logger *slog.Logger

	now func() time.Time
}

// NewSweepAudioJob creates the job. An empty dir means os.TempDir().
func NewSweepAudioJob(dir string, maxAge time.Duration, logger *slog.Logger) *SweepAudioJob {
	if dir == "" {
		dir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SweepAudioJob{dir: dir, maxAge: maxAge, logger: logger, now: time.Now}
}

// Name returns the job name.
func (j *SweepAudioJob) Name() string {
	return "sweep_audio"
}

// Run deletes matching files older than the maximum age.
func (j *SweepAudioJob) Run(ctx context.Context) error {
	matches, err := filepath.Glob(filepath.Join(j.dir, VoiceFilePattern))
	if err != nil {
		return err
	}

	cutoff := j.now().Add(-j.maxAge)
	removed := 0
	var errs []error

	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return err
		}

		info, err := os.Stat(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		if info.IsDir() || info.ModTime().After(cutoff) {
			continue
		}

		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		j.logger.Info("stale voice recordings removed", "count", removed, "dir", j.dir)
	}
	return errors.Join(errs...)
}

package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func counter(name string, n *atomic.Int64, err error) Job {
	return JobFunc{JobName: name, Fn: func(ctx context.Context) error {
		n.Add(1)
		return err
	}}
}

func TestRegister_Validation(t *testing.T) {
	s := New(Config{Logger: quietLogger()})
	var n atomic.Int64

	assert.ErrorIs(t, s.Register(nil, time.Second), ErrNilJob)
	assert.ErrorIs(t, s.Register(counter("a", &n, nil), 0), ErrInvalidInterval)
	require.NoError(t, s.Register(counter("a", &n, nil), time.Second))
	assert.ErrorIs(t, s.Register(counter("a", &n, nil), time.Second), ErrJobAlreadyExists)
}

func TestScheduler_RunsJobsPeriodically(t *testing.T) {
	defer goleak.VerifyNone(t)

	var n atomic.Int64
	s := New(Config{Logger: quietLogger()})
	require.NoError(t, s.Register(counter("tick", &n, nil), 10*time.Millisecond, RunOnStart()))

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	assert.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "tick", jobs[0].Name)
	assert.GreaterOrEqual(t, jobs[0].RunCount, int64(3))
	assert.Zero(t, jobs[0].FailCount)
}

func TestScheduler_RunNowAndHealth(t *testing.T) {
	boom := errors.New("boom")
	var ok, bad atomic.Int64
	var completed []string

	s := New(Config{
		Logger:        quietLogger(),
		OnJobComplete: func(r JobResult) { completed = append(completed, r.JobName) },
	})
	require.NoError(t, s.Register(counter("good", &ok, nil), time.Hour))
	require.NoError(t, s.Register(counter("bad", &bad, boom), time.Hour))

	assert.NoError(t, s.HealthCheck(context.Background()))

	res, err := s.RunNow(context.Background(), "good")
	require.NoError(t, err)
	assert.True(t, res.Success())

	res, err = s.RunNow(context.Background(), "bad")
	assert.ErrorIs(t, err, boom)
	assert.False(t, res.Success())

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	assert.Equal(t, []string{"good", "bad"}, completed)

	err = s.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")

	jobs := s.ListJobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "bad", jobs[0].Name)
	assert.Equal(t, int64(1), jobs[0].FailCount)
}

func TestScheduler_RecoversPanics(t *testing.T) {
	s := New(Config{Logger: quietLogger()})
	require.NoError(t, s.Register(JobFunc{JobName: "panic", Fn: func(context.Context) error {
		panic("bad state")
	}}, time.Hour))

	_, err := s.RunNow(context.Background(), "panic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad state")
}

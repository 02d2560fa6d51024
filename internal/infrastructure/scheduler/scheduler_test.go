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
)

type countingJob struct {
	name  string
	runs  atomic.Int64
	err   error
	panic bool
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	if j.panic {
		panic("kaboom")
	}
	return j.err
}

func newTestScheduler() *Scheduler {
	return New(Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
}

func TestScheduler_Register(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "a"}

	require.NoError(t, s.Register(job, time.Second))
	assert.ErrorIs(t, s.Register(job, time.Second), ErrJobExists)
	assert.Error(t, s.Register(&countingJob{name: "b"}, 0))
}

func TestScheduler_RunNow(t *testing.T) {
	s := newTestScheduler()
	ok := &countingJob{name: "ok"}
	bad := &countingJob{name: "bad", err: errors.New("redis down")}
	boom := &countingJob{name: "boom", panic: true}
	require.NoError(t, s.Register(ok, time.Hour))
	require.NoError(t, s.Register(bad, time.Hour))
	require.NoError(t, s.Register(boom, time.Hour))

	var completed []string
	s.OnComplete(func(r JobResult) { completed = append(completed, r.JobName) })

	res, err := s.RunNow(context.Background(), "ok")
	require.NoError(t, err)
	assert.NoError(t, res.Err)

	res, err = s.RunNow(context.Background(), "bad")
	require.NoError(t, err)
	assert.EqualError(t, res.Err, "redis down")

	res, err = s.RunNow(context.Background(), "boom")
	require.NoError(t, err)
	assert.ErrorContains(t, res.Err, "panicked")

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	assert.Equal(t, []string{"ok", "bad", "boom"}, completed)

	infos := s.Jobs()
	require.Len(t, infos, 3)
	assert.Equal(t, "bad", infos[0].Name)
	assert.Equal(t, int64(1), infos[0].FailCount)
	assert.Equal(t, "redis down", infos[0].LastError)
	assert.Equal(t, "ok", infos[2].Name)
	assert.Equal(t, int64(1), infos[2].RunCount)
}

func TestScheduler_StartStop(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "tick"}
	require.NoError(t, s.Register(job, 5*time.Millisecond))

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyRunning)
	assert.ErrorIs(t, s.Register(&countingJob{name: "late"}, time.Second), ErrAlreadyRunning)

	assert.Eventually(t, func() bool { return job.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrNotRunning)
}

// Package scheduler runs background jobs at fixed intervals while the
// gradebook shell is open.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

var (
	ErrAlreadyRunning = errors.New("scheduler is already running")
	ErrNotRunning     = errors.New("scheduler is not running")
	ErrJobExists      = errors.New("job already registered")
	ErrJobNotFound    = errors.New("job not found")
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Job is a unit of periodic work.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Run executes the job. The context is cancelled when the scheduler stops.
	Run(ctx context.Context) error
}

// JobResult describes one execution.
type JobResult struct {
	JobName   string
	StartedAt time.Time
	Duration  time.Duration
	Err       error
}

// JobInfo is a snapshot of a registered job.
type JobInfo struct {
	Name      string
	Interval  time.Duration
	LastRun   time.Time
	RunCount  int64
	FailCount int64
	LastError string
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Config configures a Scheduler.
type Config struct {
	Logger *slog.Logger

	// JobTimeout bounds a single run. Zero means no limit.
	JobTimeout time.Duration
}

type scheduledJob struct {
	job      Job
	interval time.Duration

	mu        sync.Mutex
	running   bool
	lastRun   time.Time
	runCount  int64
	failCount int64
	lastErr   error
}

// Scheduler runs every registered job on its own ticker. A job never
// overlaps with itself: a tick that arrives while the previous run is
// still going is skipped.
type Scheduler struct {
	logger     *slog.Logger
	jobTimeout time.Duration

	mu      sync.Mutex
	jobs    map[string]*scheduledJob
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	onComplete func(JobResult)
}

// New creates a stopped scheduler.
func New(cfg Config) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scheduler{
		logger:     cfg.Logger.With("component", "scheduler"),
		jobTimeout: cfg.JobTimeout,
		jobs:       make(map[string]*scheduledJob),
	}
}

// OnComplete registers a hook called after every run. Set before Start.
func (s *Scheduler) OnComplete(fn func(JobResult)) {
	s.onComplete = fn
}

// Register adds a job. Jobs cannot be added while running.
func (s *Scheduler) Register(job Job, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	if _, ok := s.jobs[job.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrJobExists, job.Name())
	}
	s.jobs[job.Name()] = &scheduledJob{job: job, interval: interval}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// LIFECYCLE
// ─────────────────────────────────────────────────────────────────────────────

// Start launches one goroutine per job.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	for _, sj := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, sj)
	}
	s.logger.Debug("scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop cancels the jobs and waits for running ones to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Debug("scheduler stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context, sj *scheduledJob) {
	defer s.wg.Done()

	ticker := time.NewTicker(sj.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx, sj)
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// EXECUTION
// ─────────────────────────────────────────────────────────────────────────────

// RunNow executes a job immediately in the calling goroutine.
func (s *Scheduler) RunNow(ctx context.Context, name string) (*JobResult, error) {
	s.mu.Lock()
	sj, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	result, ran := s.run(ctx, sj)
	if !ran {
		return nil, fmt.Errorf("job %s is already running", name)
	}
	return &result, nil
}

func (s *Scheduler) run(ctx context.Context, sj *scheduledJob) (JobResult, bool) {
	sj.mu.Lock()
	if sj.running {
		sj.mu.Unlock()
		return JobResult{}, false
	}
	sj.running = true
	sj.mu.Unlock()

	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.jobTimeout)
		defer cancel()
	}

	started := time.Now()
	err := s.safeRun(ctx, sj.job)
	result := JobResult{
		JobName:   sj.job.Name(),
		StartedAt: started,
		Duration:  time.Since(started),
		Err:       err,
	}

	sj.mu.Lock()
	sj.running = false
	sj.lastRun = started
	sj.runCount++
	sj.lastErr = err
	if err != nil {
		sj.failCount++
	}
	sj.mu.Unlock()

	if err != nil {
		s.logger.Warn("job failed", "job", result.JobName, "duration", result.Duration.String(), "error", err)
	} else {
		s.logger.Debug("job completed", "job", result.JobName, "duration", result.Duration.String())
	}
	if s.onComplete != nil {
		s.onComplete(result)
	}
	return result, true
}

func (s *Scheduler) safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name(), r)
		}
	}()
	return job.Run(ctx)
}

// ─────────────────────────────────────────────────────────────────────────────
// INTROSPECTION
// ─────────────────────────────────────────────────────────────────────────────

// Jobs returns the registered jobs sorted by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	jobs := make([]*scheduledJob, 0, len(s.jobs))
	for _, sj := range s.jobs {
		jobs = append(jobs, sj)
	}
	s.mu.Unlock()

	infos := make([]JobInfo, 0, len(jobs))
	for _, sj := range jobs {
		sj.mu.Lock()
		info := JobInfo{
			Name:      sj.job.Name(),
			Interval:  sj.interval,
			LastRun:   sj.lastRun,
			RunCount:  sj.runCount,
			FailCount: sj.failCount,
		}
		if sj.lastErr != nil {
			info.LastError = sj.lastErr.Error()
		}
		sj.mu.Unlock()
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// IsRunning reports whether Start has been called without Stop.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

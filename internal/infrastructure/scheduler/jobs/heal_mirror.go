// Package jobs contains the background jobs run by the scheduler.
package jobs

import (
	"context"
	"log/slog"
)

// MirrorHealer resyncs a stale leaderboard mirror.
type MirrorHealer interface {
	Heal(ctx context.Context) (bool, error)
}

// HealMirrorJob repairs the Redis leaderboard mirror after an outage even
// when no roster change arrives to trigger a resync.
type HealMirrorJob struct {
	healer MirrorHealer
	logger *slog.Logger
}

// NewHealMirrorJob creates the job.
func NewHealMirrorJob(healer MirrorHealer, logger *slog.Logger) *HealMirrorJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealMirrorJob{healer: healer, logger: logger.With("job", "heal_mirror")}
}

// Name implements scheduler.Job.
func (j *HealMirrorJob) Name() string {
	return "heal_mirror"
}

// Run implements scheduler.Job.
func (j *HealMirrorJob) Run(ctx context.Context) error {
	ran, err := j.healer.Heal(ctx)
	if err != nil {
		return err
	}
	if ran {
		j.logger.Info("leaderboard mirror healed")
	}
	return nil
}

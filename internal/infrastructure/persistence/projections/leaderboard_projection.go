// Package projections keeps read models in step with domain events.
// The roster stays the source of truth; a projection can always be rebuilt.
package projections

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alem-hub/gradebook/internal/domain/leaderboard"
	"github.com/alem-hub/gradebook/internal/domain/shared"
	"github.com/alem-hub/gradebook/internal/domain/student"
	"github.com/alem-hub/gradebook/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD PROJECTION
// Feeds a leaderboard.Mirror from roster events. Mirror calls go through a
// circuit breaker; while it is open events are dropped and the mirror is
// marked stale. The first call the breaker lets through afterwards is a full
// resync instead of the incremental update.
// ══════════════════════════════════════════════════════════════════════════════

// RosterReader is the read side used by Rebuild.
type RosterReader interface {
	FilterByGrade(ctx context.Context, filter student.GradeFilter) ([]student.Student, error)
}

// LeaderboardProjection applies roster events to a mirror.
type LeaderboardProjection struct {
	mirror  leaderboard.Mirror
	logger  *slog.Logger
	timeout time.Duration
	breaker *circuitbreaker.Breaker

	mu          sync.RWMutex
	roster      RosterReader
	stale       bool
	version     int64
	failures    int64
	dropped     int64
	lastUpdated time.Time
}

// ProjectionStats describes the projection state.
type ProjectionStats struct {
	Version     int64     `json:"version"`
	Failures    int64     `json:"failures"`
	Dropped     int64     `json:"dropped"`
	Stale       bool      `json:"stale"`
	Breaker     string    `json:"breaker"`
	LastUpdated time.Time `json:"last_updated"`
}

// NewLeaderboardProjection creates a projection. timeout bounds every mirror call.
func NewLeaderboardProjection(mirror leaderboard.Mirror, logger *slog.Logger, timeout time.Duration) *LeaderboardProjection {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	p := &LeaderboardProjection{
		mirror:  mirror,
		logger:  logger.With("projection", "leaderboard"),
		timeout: timeout,
	}
	p.breaker = circuitbreaker.New(circuitbreaker.Settings{
		Name:          "leaderboard-mirror",
		OnStateChange: p.logStateChange,
	})
	return p
}

// WithBreaker replaces the default breaker.
func (p *LeaderboardProjection) WithBreaker(b *circuitbreaker.Breaker) *LeaderboardProjection {
	p.breaker = b
	return p
}

func (p *LeaderboardProjection) logStateChange(name string, from, to circuitbreaker.State) {
	p.logger.Warn("mirror breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
}

// EventTypes lists the events the projection consumes.
func (p *LeaderboardProjection) EventTypes() []shared.EventType {
	return []shared.EventType{
		shared.EventStudentAdded,
		shared.EventStudentReplaced,
		shared.EventStudentRemoved,
	}
}

// Rebuild replaces the mirror content with the current roster. The roster is
// remembered for later resyncs.
func (p *LeaderboardProjection) Rebuild(ctx context.Context, roster RosterReader) error {
	p.mu.Lock()
	p.roster = roster
	p.mu.Unlock()

	err := p.resync(ctx)
	p.record(err)
	if err != nil {
		p.setStale(true)
		return fmt.Errorf("rebuild leaderboard projection: %w", err)
	}
	p.setStale(false)
	return nil
}

func (p *LeaderboardProjection) resync(ctx context.Context) error {
	p.mu.RLock()
	roster := p.roster
	p.mu.RUnlock()
	if roster == nil {
		return errors.New("no roster to resync from")
	}

	students, err := roster.FilterByGrade(ctx, student.GradeAll)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.mirror.Sync(ctx, students); err != nil {
		return err
	}
	p.logger.Info("leaderboard mirror rebuilt", "students", len(students))
	return nil
}

// Handle implements shared.EventHandler.
func (p *LeaderboardProjection) Handle(event shared.Event) error {
	apply := p.update(event)
	if apply == nil {
		return nil
	}

	resyncing := p.isStale()
	if resyncing {
		apply = p.resync
	}

	err := p.breaker.Execute(context.Background(), func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return apply(ctx)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		p.mu.Lock()
		p.dropped++
		p.stale = true
		p.mu.Unlock()
		p.logger.Debug("mirror update dropped", "event_type", event.EventType())
		return nil
	}

	p.record(err)
	if err == nil {
		if resyncing {
			p.setStale(false)
		}
		return nil
	}

	p.setStale(true)
	p.logger.Warn("mirror update failed",
		"event_type", event.EventType(),
		"student_id", event.AggregateID(),
		"error", err,
	)
	return fmt.Errorf("leaderboard projection: %w", err)
}

// Heal resyncs a stale mirror through the breaker. It reports whether a
// resync ran; a current mirror or an open breaker is not an error.
func (p *LeaderboardProjection) Heal(ctx context.Context) (bool, error) {
	if !p.isStale() {
		return false, nil
	}
	err := p.breaker.Execute(ctx, p.resync)
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return false, nil
	}
	p.record(err)
	if err != nil {
		return true, fmt.Errorf("heal leaderboard mirror: %w", err)
	}
	p.setStale(false)
	return true, nil
}

// update returns the incremental mirror change for event, or nil when the
// event does not move the mirror.
func (p *LeaderboardProjection) update(event shared.Event) func(context.Context) error {
	switch e := event.(type) {
	case student.StudentAddedEvent:
		return func(ctx context.Context) error { return p.mirror.Upsert(ctx, e.Student, "") }

	case student.StudentReplacedEvent:
		// Badge and ledger edits that keep xp and grade do not move the mirror.
		if e.Before.XP == e.After.XP && e.Before.Grade == e.After.Grade {
			return nil
		}
		return func(ctx context.Context) error { return p.mirror.Upsert(ctx, e.After, e.Before.Grade) }

	case student.StudentRemovedEvent:
		return func(ctx context.Context) error { return p.mirror.Remove(ctx, e.Student.ID, e.Student.Grade) }

	default:
		return nil
	}
}

// isStale reports whether the next update must be a full resync. Without a
// roster there is nothing to resync from, so incremental updates continue.
func (p *LeaderboardProjection) isStale() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stale && p.roster != nil
}

func (p *LeaderboardProjection) setStale(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stale = v
}

// Stats returns a snapshot of the projection counters.
func (p *LeaderboardProjection) Stats() ProjectionStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return ProjectionStats{
		Version:     p.version,
		Failures:    p.failures,
		Dropped:     p.dropped,
		Stale:       p.stale,
		Breaker:     p.breaker.State().String(),
		LastUpdated: p.lastUpdated,
	}
}

func (p *LeaderboardProjection) record(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.failures++
		return
	}
	p.version++
	p.lastUpdated = time.Now().UTC()
}

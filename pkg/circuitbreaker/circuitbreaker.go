// Package circuitbreaker stops calling a failing dependency for a while
// and lets a single probe through before trusting it again.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the breaker position.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls until the cool-down expires.
	StateOpen
	// StateHalfOpen lets a limited number of probes through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned without calling fn while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

// Settings configures a Breaker. Zero fields take the defaults below.
type Settings struct {
	Name string

	// FailureThreshold consecutive failures open the breaker. Default 3.
	FailureThreshold int

	// SuccessThreshold consecutive probe successes close it. Default 1.
	SuccessThreshold int

	// CoolDown is how long the breaker stays open. Default 15s.
	CoolDown time.Duration

	// MaxProbes limits concurrent calls while half-open. Default 1.
	MaxProbes int

	// OnStateChange runs under the breaker lock; keep it short.
	OnStateChange func(name string, from, to State)

	// Now is the clock. Default time.Now.
	Now func() time.Time
}

func (s *Settings) applyDefaults() {
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = 3
	}
	if s.SuccessThreshold <= 0 {
		s.SuccessThreshold = 1
	}
	if s.CoolDown <= 0 {
		s.CoolDown = 15 * time.Second
	}
	if s.MaxProbes <= 0 {
		s.MaxProbes = 1
	}
	if s.Now == nil {
		s.Now = time.Now
	}
}

// Counts are lifetime counters plus the current streaks.
type Counts struct {
	Calls                int
	Rejected             int
	Failures             int
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
}

// Breaker is safe for concurrent use.
type Breaker struct {
	settings Settings

	mu       sync.Mutex
	state    State
	counts   Counts
	openedAt time.Time
	probes   int
}

// New creates a closed breaker.
func New(settings Settings) *Breaker {
	settings.applyDefaults()
	return &Breaker{settings: settings}
}

// Execute calls fn unless the breaker is open. The error returned by fn is
// passed through unchanged; a rejected call returns ErrOpen.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn(ctx)
	b.done(err)
	return err
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.settings.Now().Sub(b.openedAt) < b.settings.CoolDown {
			b.counts.Rejected++
			return ErrOpen
		}
		b.transition(StateHalfOpen)
		fallthrough

	case StateHalfOpen:
		if b.probes >= b.settings.MaxProbes {
			b.counts.Rejected++
			return ErrOpen
		}
		b.probes++
	}

	b.counts.Calls++
	return nil
}

func (b *Breaker) done(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen && b.probes > 0 {
		b.probes--
	}

	if err != nil {
		b.counts.Failures++
		b.counts.ConsecutiveFailures++
		b.counts.ConsecutiveSuccesses = 0
		if b.state == StateHalfOpen || b.counts.ConsecutiveFailures >= b.settings.FailureThreshold {
			b.openedAt = b.settings.Now()
			b.transition(StateOpen)
		}
		return
	}

	b.counts.ConsecutiveFailures = 0
	b.counts.ConsecutiveSuccesses++
	if b.state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.settings.SuccessThreshold {
		b.transition(StateClosed)
	}
}

func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.probes = 0
	b.counts.ConsecutiveFailures = 0
	b.counts.ConsecutiveSuccesses = 0
	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.settings.Name, from, to)
	}
}

// State returns the current position. An open breaker whose cool-down has
// expired still reports StateOpen until the next call.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Counts returns a snapshot of the counters.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Name returns Settings.Name.
func (b *Breaker) Name() string {
	return b.settings.Name
}

// Reset closes the breaker and clears the counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.counts = Counts{}
	b.probes = 0
}

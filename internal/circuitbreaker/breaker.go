// Package circuitbreaker guards the upstream exchange connection. After a
// run of consecutive fetch failures the breaker opens and fetches fail fast
// instead of hammering a broken upstream; once the cool-down elapses a single
// probe is let through, and a probe success closes the breaker again.
package circuitbreaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrOpen is returned by Allow while the breaker rejects calls.
var ErrOpen = errors.New("upstream circuit open")

// State is the breaker's position.
type State int

const (
	StateClosed State = iota
	StateOpen
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
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config holds circuit breaker configuration.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the breaker.
	FailureThreshold int

	// CoolDown is how long the breaker stays open before letting a probe
	// call through.
	CoolDown time.Duration

	Logger *zap.Logger

	// Now is swappable in tests.
	Now func() time.Time
}

// Breaker is a consecutive-failure circuit breaker.
type Breaker struct {
	threshold int
	coolDown  time.Duration
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// Status holds a snapshot of the breaker for debugging and the status API.
type Status struct {
	State    State     `json:"state"`
	Failures int       `json:"failures"`
	OpenedAt time.Time `json:"opened_at,omitempty"`
}

// New creates a circuit breaker.
func New(cfg *Config) (*Breaker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.FailureThreshold <= 0 {
		return nil, fmt.Errorf("failure threshold must be positive")
	}
	if cfg.CoolDown <= 0 {
		return nil, fmt.Errorf("cool-down must be positive")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	BreakerState.Set(float64(StateClosed))

	return &Breaker{
		threshold: cfg.FailureThreshold,
		coolDown:  cfg.CoolDown,
		logger:    logger,
		now:       now,
		state:     StateClosed,
	}, nil
}

// Allow reports whether a call may proceed. While the breaker is open it
// returns ErrOpen until the cool-down elapses; then exactly one caller is
// admitted as a probe and the rest keep failing fast until the probe
// reports back.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateHalfOpen:
		if b.probing {
			BreakerShortCircuits.Inc()
			return ErrOpen
		}
		b.probing = true
		return nil
	default:
		if b.now().Sub(b.openedAt) < b.coolDown {
			BreakerShortCircuits.Inc()
			return ErrOpen
		}
		b.setState(StateHalfOpen)
		b.probing = true
		b.logger.Info("circuit half-open, probing upstream")
		return nil
	}
}

// ReportSuccess records a successful call.
func (b *Breaker) ReportSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.probing = false
	if b.state != StateClosed {
		b.setState(StateClosed)
		b.logger.Info("circuit closed")
	}
}

// ReportFailure records a failed call. In the half-open state a single
// failure reopens the breaker; in the closed state the breaker opens once
// the consecutive-failure threshold is reached.
func (b *Breaker) ReportFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	switch b.state {
	case StateHalfOpen:
		b.open()
	case StateClosed:
		b.failures++
		if b.failures >= b.threshold {
			b.open()
		}
	}
}

// Status returns a snapshot of the breaker.
func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := Status{State: b.state, Failures: b.failures}
	if b.state != StateClosed {
		st.OpenedAt = b.openedAt
	}
	return st
}

// open transitions to the open state. Caller holds the lock.
func (b *Breaker) open() {
	b.openedAt = b.now()
	b.failures = 0
	b.setState(StateOpen)
	BreakerTrips.Inc()
	b.logger.Warn("circuit opened",
		zap.Int("threshold", b.threshold),
		zap.Duration("cool_down", b.coolDown))
}

// setState updates the state and its gauge. Caller holds the lock.
func (b *Breaker) setState(s State) {
	b.state = s
	BreakerState.Set(float64(s))
}

// Package circuit stops calling a failing dependency until it has had time
// to recover.
package circuit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Payphone-Digital/sprintdesk/pkg/health"
	"go.uber.org/zap"
)

// State represents circuit breaker state
type State int

const (
	StateClosed   State = iota // calls pass through
	StateOpen                  // calls fail fast
	StateHalfOpen              // a few trial calls decide
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

var (
	ErrOpen       = errors.New("circuit breaker is open")
	ErrTrialLimit = errors.New("circuit breaker trial limit reached")
)

type Config struct {
	Threshold        int           // consecutive failures before opening
	Cooldown         time.Duration // time spent open before half-open
	SuccessThreshold int           // trial successes needed to close
	MaxTrials        int           // concurrent calls allowed while half-open
}

func DefaultConfig() Config {
	return Config{
		Threshold:        5,
		Cooldown:         30 * time.Second,
		SuccessThreshold: 2,
		MaxTrials:        1,
	}
}

// Breaker counts consecutive failures of one dependency. Cancelled or
// expired caller contexts are not held against the dependency.
type Breaker struct {
	mu          sync.Mutex
	name        string
	state       State
	failures    int
	successes   int
	trials      int
	openedAt    time.Time
	lastFailure error
	config      Config
	logger      *zap.Logger
	now         func() time.Time
}

func NewBreaker(name string, config Config, logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfig()
	if config.Threshold <= 0 {
		config.Threshold = defaults.Threshold
	}
	if config.Cooldown <= 0 {
		config.Cooldown = defaults.Cooldown
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = defaults.SuccessThreshold
	}
	if config.MaxTrials <= 0 {
		config.MaxTrials = defaults.MaxTrials
	}

	return &Breaker{
		name:   name,
		state:  StateClosed,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source.
func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	b.now = now
	return b
}

// Execute runs fn unless the breaker is open.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.allow(); err != nil {
		return err
	}

	err := fn(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		b.release()
		return err
	}
	b.record(err)
	return err
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.config.Cooldown {
			return fmt.Errorf("%s: %w", b.name, ErrOpen)
		}
		b.transitionTo(StateHalfOpen)
		b.trials = 1
		return nil
	case StateHalfOpen:
		if b.trials >= b.config.MaxTrials {
			return fmt.Errorf("%s: %w", b.name, ErrTrialLimit)
		}
		b.trials++
		return nil
	default:
		return nil
	}
}

// release frees a trial slot without judging the dependency.
func (b *Breaker) release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateHalfOpen && b.trials > 0 {
		b.trials--
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		if b.state == StateHalfOpen {
			b.trials--
			b.successes++
			if b.successes >= b.config.SuccessThreshold {
				b.transitionTo(StateClosed)
			}
		}
		return
	}

	b.failures++
	b.lastFailure = err
	switch b.state {
	case StateClosed:
		if b.failures >= b.config.Threshold {
			b.transitionTo(StateOpen)
		}
	case StateHalfOpen:
		b.transitionTo(StateOpen)
	}
}

// transitionTo changes state (must hold lock)
func (b *Breaker) transitionTo(newState State) {
	oldState := b.state
	b.state = newState
	b.trials = 0
	b.successes = 0

	switch newState {
	case StateOpen:
		b.openedAt = b.now()
	case StateClosed:
		b.failures = 0
		b.lastFailure = nil
	}

	b.logger.Info("Circuit breaker state changed",
		zap.String("name", b.name),
		zap.String("from", oldState.String()),
		zap.String("to", newState.String()),
		zap.Int("failures", b.failures),
	)
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Check reports the breaker as a health dependency. Anything but closed
// is degraded; the rest of the service keeps working without mail.
func (b *Breaker) Check(context.Context) health.CheckResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := health.CheckResult{LastCheck: b.now(), Status: health.StatusHealthy}
	if b.state == StateClosed {
		return result
	}
	result.Status = health.StatusDegraded
	result.Message = b.name + " circuit " + b.state.String()
	if b.lastFailure != nil {
		result.Message += ": " + b.lastFailure.Error()
	}
	return result
}

// Reset closes the breaker.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateClosed {
		b.transitionTo(StateClosed)
	}
}

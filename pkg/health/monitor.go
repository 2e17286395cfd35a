package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Status represents health check status
type Status int

const (
	StatusUnknown Status = iota
	StatusHealthy
	StatusUnhealthy
	StatusDegraded
	StatusDisabled
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusUnhealthy:
		return "unhealthy"
	case StatusDegraded:
		return "degraded"
	case StatusDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CheckResult represents the result of a health check
type CheckResult struct {
	Name         string        `json:"-"`
	Status       Status        `json:"status"`
	Latency      time.Duration `json:"-"`
	LatencyMs    int64         `json:"latencyMs"`
	LastCheck    time.Time     `json:"lastCheck"`
	Message      string        `json:"message,omitempty"`
	CheckCount   int           `json:"checkCount"`
	FailureCount int           `json:"failureCount"`
}

// Checker interface for health checks
type Checker interface {
	Check(ctx context.Context) CheckResult
}

// PingChecker reports a dependency healthy when Ping succeeds.
type PingChecker struct {
	Ping func(ctx context.Context) error
}

func (c PingChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{LastCheck: start, Status: StatusHealthy}
	if c.Ping == nil {
		result.Status = StatusDisabled
		return result
	}
	if err := c.Ping(ctx); err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()
	}
	result.Latency = time.Since(start)
	result.LatencyMs = result.Latency.Milliseconds()
	return result
}

// DatabaseChecker pings the pool behind a gorm handle.
func DatabaseChecker(db *gorm.DB) PingChecker {
	return PingChecker{Ping: func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}}
}

type registration struct {
	checker  Checker
	critical bool
}

// Report is the aggregate of one round of checks.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Monitor runs the registered checks. A failing critical check makes the
// service unhealthy; any other failure only degrades it.
type Monitor struct {
	mu      sync.Mutex
	checks  map[string]registration
	results map[string]CheckResult
	timeout time.Duration
	logger  *zap.Logger
}

// NewMonitor creates a new health monitor
func NewMonitor(timeout time.Duration, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Monitor{
		checks:  make(map[string]registration),
		results: make(map[string]CheckResult),
		timeout: timeout,
		logger:  logger,
	}
}

func (m *Monitor) Register(name string, checker Checker, critical bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = registration{checker: checker, critical: critical}
}

// Run checks every dependency and folds the outcome into a report.
func (m *Monitor) Run(ctx context.Context) Report {
	m.mu.Lock()
	names := make([]string, 0, len(m.checks))
	for name := range m.checks {
		names = append(names, name)
	}
	m.mu.Unlock()
	sort.Strings(names)

	report := Report{Status: StatusHealthy, Checks: make(map[string]CheckResult, len(names))}
	for _, name := range names {
		m.mu.Lock()
		reg := m.checks[name]
		m.mu.Unlock()

		checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
		result := reg.checker.Check(checkCtx)
		cancel()
		result.Name = name

		m.mu.Lock()
		previous := m.results[name]
		result.CheckCount = previous.CheckCount + 1
		result.FailureCount = previous.FailureCount
		if result.Status == StatusUnhealthy {
			result.FailureCount++
		}
		m.results[name] = result
		m.mu.Unlock()

		report.Checks[name] = result
		if result.Status == StatusDegraded && report.Status == StatusHealthy {
			report.Status = StatusDegraded
		}
		if result.Status != StatusUnhealthy {
			continue
		}

		m.logger.Warn("Health check failed",
			zap.String("check", name),
			zap.Bool("critical", reg.critical),
			zap.Duration("latency", result.Latency),
			zap.String("message", result.Message),
		)
		if reg.critical {
			report.Status = StatusUnhealthy
		} else if report.Status == StatusHealthy {
			report.Status = StatusDegraded
		}
	}
	return report
}

// GetResult gets the last result for a check
func (m *Monitor) GetResult(name string) (CheckResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result, ok := m.results[name]
	return result, ok
}

package logger

import (
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// PerformanceConfig bounds how much the context logger writes
type PerformanceConfig struct {
	MinLogLevel     zapcore.Level
	MaxLogPerSecond int
	EnableRateLimit bool
}

func DefaultPerformanceConfig() PerformanceConfig {
	return PerformanceConfig{
		MinLogLevel:     zapcore.InfoLevel,
		MaxLogPerSecond: 1000,
		EnableRateLimit: false,
	}
}

func ProductionConfig() PerformanceConfig {
	return PerformanceConfig{
		MinLogLevel:     zapcore.InfoLevel,
		MaxLogPerSecond: 500,
		EnableRateLimit: true,
	}
}

func DevelopmentConfig() PerformanceConfig {
	return PerformanceConfig{
		MinLogLevel:     zapcore.DebugLevel,
		MaxLogPerSecond: 10000,
		EnableRateLimit: false,
	}
}

// OptimizedLogger filters by level and per-second volume before
// handing entries to the underlying zap logger.
type OptimizedLogger struct {
	config      PerformanceConfig
	logger      *zap.Logger
	rateLimiter *RateLimiter
}

// RateLimiter caps the number of entries per second
type RateLimiter struct {
	maxLogs   int
	current   int
	lastReset time.Time
	mu        sync.Mutex
}

func NewRateLimiter(maxLogs int) *RateLimiter {
	return &RateLimiter{
		maxLogs:   maxLogs,
		lastReset: time.Now(),
	}
}

func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastReset) >= time.Second {
		rl.current = 0
		rl.lastReset = now
	}

	if rl.current >= rl.maxLogs {
		return false
	}

	rl.current++
	return true
}

// NewOptimizedLogger wraps base. The caller skip keeps caller info
// pointing at the code that called Log().
func NewOptimizedLogger(base *zap.Logger, config PerformanceConfig) *OptimizedLogger {
	return &OptimizedLogger{
		config:      config,
		logger:      base.WithOptions(zap.AddCallerSkip(1)),
		rateLimiter: NewRateLimiter(config.MaxLogPerSecond),
	}
}

// ShouldLog decides whether an entry at level is written
func (ol *OptimizedLogger) ShouldLog(level zapcore.Level) bool {
	if level < ol.config.MinLogLevel {
		return false
	}

	if ol.config.EnableRateLimit && !ol.rateLimiter.Allow() {
		return false
	}

	return true
}

var (
	optimizedLogger *OptimizedLogger
	optimizedMu     sync.Mutex
)

// InitOptimizedLogger installs the context logger on top of the global logger
func InitOptimizedLogger(config PerformanceConfig) {
	optimizedMu.Lock()
	defer optimizedMu.Unlock()
	optimizedLogger = NewOptimizedLogger(GetLogger(), config)
}

// GetOptimizedLogger returns the context logger, building one from
// GO_ENV defaults on first use.
func GetOptimizedLogger() *OptimizedLogger {
	optimizedMu.Lock()
	defer optimizedMu.Unlock()

	if optimizedLogger == nil {
		config := DefaultPerformanceConfig()
		switch os.Getenv("GO_ENV") {
		case "production":
			config = ProductionConfig()
		case "development":
			config = DevelopmentConfig()
		}
		optimizedLogger = NewOptimizedLogger(GetLogger(), config)
	}
	return optimizedLogger
}

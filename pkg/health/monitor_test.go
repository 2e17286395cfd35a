package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failing(context.Context) error { return errors.New("connection refused") }
func passing(context.Context) error { return nil }

func TestMonitorAggregatesStatus(t *testing.T) {
	tests := []struct {
		name     string
		database func(context.Context) error
		redis    func(context.Context) error
		want     Status
	}{
		{"all healthy", passing, passing, StatusHealthy},
		{"redis down degrades", passing, failing, StatusDegraded},
		{"database down is unhealthy", failing, passing, StatusUnhealthy},
		{"redis disabled", passing, nil, StatusHealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(0, nil)
			m.Register("database", PingChecker{Ping: tt.database}, true)
			m.Register("redis", PingChecker{Ping: tt.redis}, false)

			report := m.Run(context.Background())
			assert.Equal(t, tt.want, report.Status)
			assert.Len(t, report.Checks, 2)
		})
	}
}

func TestMonitorCountsFailures(t *testing.T) {
	m := NewMonitor(0, nil)
	m.Register("redis", PingChecker{Ping: failing}, false)

	m.Run(context.Background())
	m.Run(context.Background())

	result, ok := m.GetResult("redis")
	require.True(t, ok)
	assert.Equal(t, 2, result.CheckCount)
	assert.Equal(t, 2, result.FailureCount)
	assert.Equal(t, "connection refused", result.Message)
}

func TestStatusMarshalsAsText(t *testing.T) {
	text, err := StatusDegraded.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "degraded", string(text))
}

type degradedChecker struct{}

func (degradedChecker) Check(context.Context) CheckResult {
	return CheckResult{Status: StatusDegraded, Message: "smtp circuit OPEN"}
}

func TestMonitorDegradedCheckDegradesReport(t *testing.T) {
	m := NewMonitor(0, nil)
	m.Register("database", PingChecker{Ping: passing}, true)
	m.Register("mailer", degradedChecker{}, false)

	report := m.Run(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)

	result, _ := m.GetResult("mailer")
	assert.Zero(t, result.FailureCount)
}

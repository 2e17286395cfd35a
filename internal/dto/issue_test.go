package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateIssueRequestDistinguishesNullFromAbsent(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		set     bool
		cleared bool
		value   uint
	}{
		{"absent", `{"title":"x"}`, false, false, 0},
		{"null clears", `{"assigneeId":null}`, true, true, 0},
		{"value", `{"assigneeId":7}`, true, false, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req UpdateIssueRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			assert.Equal(t, tt.set, req.AssigneeID.Set)
			if tt.cleared {
				assert.Nil(t, req.AssigneeID.Value)
			}
			if tt.value != 0 {
				require.NotNil(t, req.AssigneeID.Value)
				assert.Equal(t, tt.value, *req.AssigneeID.Value)
			}
		})
	}

	var req UpdateIssueRequest
	require.NoError(t, json.Unmarshal([]byte(`{"dueDate":"2026-04-01T00:00:00Z"}`), &req))
	assert.True(t, req.DueDate.Set)
	require.NotNil(t, req.DueDate.Value)
	assert.Equal(t, 2026, req.DueDate.Value.Year())
}

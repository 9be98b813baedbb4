package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdeworks/agentsuite/internal/config"
)

func TestBuildInitialContext(t *testing.T) {
	tests := []struct {
		name        string
		contextJSON string
		sets        []string
		expected    map[string]string
		wantErr     string
	}{
		{
			name:     "empty",
			expected: map[string]string{},
		},
		{
			name:        "context only",
			contextJSON: `{"env": "staging", "retries": 3}`,
			expected:    map[string]string{"env": "staging", "retries": "3"},
		},
		{
			name:     "set only",
			sets:     []string{"env=prod", "owner=ops"},
			expected: map[string]string{"env": "prod", "owner": "ops"},
		},
		{
			name:        "set overrides context",
			contextJSON: `{"env": "staging"}`,
			sets:        []string{"env=prod"},
			expected:    map[string]string{"env": "prod"},
		},
		{
			name:     "value may contain equals",
			sets:     []string{"query=a=b"},
			expected: map[string]string{"query": "a=b"},
		},
		{
			name:        "invalid json",
			contextJSON: `{"env":`,
			wantErr:     "JSON object",
		},
		{
			name:        "non-object json",
			contextJSON: `[1, 2]`,
			wantErr:     "JSON object",
		},
		{
			name:    "malformed set",
			sets:    []string{"noequals"},
			wantErr: "key=value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildInitialContext(tt.contextJSON, tt.sets)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMiddlewareFromConfig(t *testing.T) {
	cfg := &config.Config{}
	assert.Empty(t, middlewareFromConfig(cfg))

	cfg.Retry.Attempts = 3
	cfg.Retry.DelayMs = 100
	assert.Len(t, middlewareFromConfig(cfg), 1)

	cfg.Breaker.Threshold = 5
	cfg.Breaker.CooldownSeconds = 30
	assert.Len(t, middlewareFromConfig(cfg), 2)
}

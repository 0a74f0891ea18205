package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntParam(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]any
		want    int
		wantErr bool
	}{
		{"missing", map[string]any{}, 7, false},
		{"int", map[string]any{"n": 3}, 3, false},
		{"float", map[string]any{"n": 4.0}, 4, false},
		{"string", map[string]any{"n": "12"}, 12, false},
		{"bad string", map[string]any{"n": "x"}, 0, true},
		{"bool", map[string]any{"n": true}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IntParam(tt.params, "n", 7)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSecondsParam(t *testing.T) {
	d, err := SecondsParam(nil, "idle_seconds", 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, d)

	d, err = SecondsParam(map[string]any{"idle_seconds": 30}, "idle_seconds", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)

	_, err = SecondsParam(map[string]any{"idle_seconds": -1}, "idle_seconds", time.Minute)
	assert.Error(t, err)
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveScope(t *testing.T) {
	tests := []struct {
		name     string
		space    string
		thread   string
		threaded bool
		want     Scope
	}{
		{"threaded space uses the thread", "spaces/A", "spaces/A/threads/T", true, "spaces/A/threads/T"},
		{"unthreaded space uses the space", "spaces/A", "spaces/A/threads/T", false, "spaces/A"},
		{"threaded space without thread falls back to the space", "spaces/A", "", true, "spaces/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveScope(tt.space, tt.thread, tt.threaded))
		})
	}
}

func TestScopeContains(t *testing.T) {
	parent := Scope("spaces/A")

	assert.True(t, parent.Contains("spaces/A"))
	assert.True(t, parent.Contains("spaces/A/threads/T"))
	assert.False(t, parent.Contains("spaces/AB"))
	assert.False(t, parent.Contains("spaces/B/threads/T"))
}

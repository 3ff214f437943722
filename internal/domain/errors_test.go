package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfAndUserFacing(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   ErrorKind
		userFacing bool
	}{
		{"parse", E(KindParse, "bad command"), KindParse, true},
		{"unauthorized", E(KindUnauthorized, "no"), KindUnauthorized, true},
		{"flagged", E(KindFlagged, "flagged"), KindFlagged, true},
		{"nothing to repeat", E(KindNothingToRepeat, "nothing to repeat"), KindNothingToRepeat, true},
		{"upstream", WrapError(KindUpstream, "call failed", errors.New("boom")), KindUpstream, false},
		{"persistence", E(KindPersistence, "save failed"), KindPersistence, false},
		{"plain error", errors.New("boom"), ErrorKind(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantKind, KindOf(tt.err))
			assert.Equal(t, tt.userFacing, IsUserFacing(tt.err))
		})
	}
}

func TestIsValueTooLargeSeesThroughWrapping(t *testing.T) {
	inner := E(KindValueTooLarge, "too big")
	wrapped := WrapError(KindPersistence, "failed to save history", inner)

	assert.True(t, IsValueTooLarge(wrapped))
	assert.False(t, IsValueTooLarge(E(KindPersistence, "offline")))
	assert.False(t, IsValueTooLarge(errors.New("boom")))
}

func TestFormatCauseChain(t *testing.T) {
	chain := WrapError(KindUpstream, "completion request failed",
		WrapError(KindConfig, "OPENAI_API_KEY property is not set", errors.New("redis: nil")))

	got := FormatCauseChain(chain)
	assert.Equal(t, "[upstream] completion request failed caused by [config] OPENAI_API_KEY property is not set caused by redis: nil", got)
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := WrapError(KindUpstream, "image request failed", errors.New("429"))
	assert.Equal(t, "image request failed: 429", err.Error())
	assert.Equal(t, "429", errors.Unwrap(err).Error())
}

package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("bad input", nil), KindValidation},
		{"not found", NotFound("step %s", "x"), KindNotFound},
		{"conflict", Conflict("ticket exists"), KindConflict},
		{"upstream", Upstream("embedding", errors.New("timeout")), KindUpstreamUnavailable},
		{"wrapped", fmt.Errorf("advance: %w", NotFound("workflow %s", "w")), KindNotFound},
		{"plain", errors.New("boom"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorsIsSentinel(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Conflict("session %s already has an active ticket", "s1"))

	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.True(t, IsConflict(err))
}

func TestUpstreamUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Upstream("completion provider", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "completion provider: connection refused", err.Error())
}

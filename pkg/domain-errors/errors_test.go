package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodes(t *testing.T) {
	t.Run("HasCode matches outermost coded error", func(t *testing.T) {
		err := New(CodeFraudFlagged, "escrow is flagged")
		assert.True(t, HasCode(err, CodeFraudFlagged))
		assert.False(t, HasCode(err, CodeInvalidState))
	})

	t.Run("HasCode sees through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("release: %w", New(CodeComplianceDenied, "blacklisted"))
		assert.True(t, HasCode(err, CodeComplianceDenied))
		assert.Equal(t, CodeComplianceDenied, CodeOf(err))
	})

	t.Run("uncoded errors default to internal", func(t *testing.T) {
		err := errors.New("boom")
		assert.False(t, HasCode(err, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})

	t.Run("Wrap keeps the cause reachable", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := Wrap(cause, CodeInternal, "failed to load escrow")
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "failed to load escrow: connection reset", err.Error())
	})
}

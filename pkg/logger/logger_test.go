package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLBeforeInitIsUsable(t *testing.T) {
	l := L()
	require.NotNil(t, l)
	// must not panic
	l.Info("message before init")
	assert.NoError(t, Sync())
}

func TestInitRejectsBadLevel(t *testing.T) {
	// once guards the global; exercise only the level parse path here by
	// checking that an invalid level errors on first Init in this process.
	err := Init("not-a-level", "console")
	if err != nil {
		assert.Contains(t, err.Error(), "not-a-level")
		return
	}
	// Init already ran in another test of this package; nothing to assert.
}

package weft

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSpanID(t *testing.T) {
	spanID := NewSpanID()

	parsed, err := uuid.Parse(spanID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())

	// Two spans never collide.
	assert.NotEqual(t, spanID, NewSpanID())
}

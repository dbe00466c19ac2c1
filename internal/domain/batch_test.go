package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchTransitions(t *testing.T) {
	b := NewBatch()
	require.NoError(t, b.Transition(BatchParsed))
	require.NoError(t, b.Transition(BatchMatched))
	require.NoError(t, b.Transition(BatchApplied))
	assert.False(t, b.Terminal())
	require.NoError(t, b.Transition(BatchReported))
	assert.True(t, b.Terminal())

	assert.Error(t, b.Transition(BatchApplied))
}

func TestBatchFailedOnlyFromParsedOrApplied(t *testing.T) {
	assert.False(t, BatchReceived.CanTransition(BatchFailed))
	assert.True(t, BatchParsed.CanTransition(BatchFailed))
	assert.False(t, BatchMatched.CanTransition(BatchFailed))
	assert.True(t, BatchApplied.CanTransition(BatchFailed))
	assert.False(t, BatchReported.CanTransition(BatchFailed))
	assert.False(t, BatchReceived.CanTransition(BatchMatched))
}

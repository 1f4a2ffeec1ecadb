package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitEnforcer_Unlimited(t *testing.T) {
	e := newLimitEnforcer(Limits{})
	for i := 0; i < 10000; i++ {
		require.NoError(t, e.beginPass())
	}
	assert.NoError(t, e.checkFacts(1<<30))
}

func TestLimitEnforcer_MaxPasses(t *testing.T) {
	e := newLimitEnforcer(Limits{MaxPasses: 3})
	for i := 0; i < 3; i++ {
		require.NoError(t, e.beginPass(), "pass %d should be allowed", i+1)
	}

	err := e.beginPass()
	require.Error(t, err)

	var le *LimitExceededError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, LimitPasses, le.Limit)
	assert.Equal(t, 4, le.Value)
	assert.Equal(t, 3, le.Max)
}

func TestLimitEnforcer_MaxFacts(t *testing.T) {
	e := newLimitEnforcer(Limits{MaxFacts: 100})
	assert.NoError(t, e.checkFacts(100))
	assert.True(t, IsLimitError(e.checkFacts(101)))
}

func TestLimitExceededError_Message(t *testing.T) {
	err := &LimitExceededError{Limit: LimitFacts, Value: 11, Max: 10}
	assert.Equal(t, "LIMIT_EXCEEDED: facts limit exceeded: 11 > 10", err.Error())
}

func TestIsLimitError_Wrapped(t *testing.T) {
	err := fmt.Errorf("run: %w", &LimitExceededError{Limit: LimitPasses, Value: 2, Max: 1})
	assert.True(t, IsLimitError(err))
	assert.False(t, IsLimitError(fmt.Errorf("other")))
	assert.False(t, IsLimitError(nil))
}

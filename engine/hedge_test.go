package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHedgeLockProfitable(t *testing.T) {
	// YES held at 40¢, NO asked at 55¢: 5¢ locked either way.
	h := AnalyzeHedgeLock(0.40, 0.55, 100, 20)

	assert.True(t, h.Available)
	assert.True(t, h.Recommended)
	assert.InDelta(t, 0.05, h.LockedPerContract, 1e-12)
	assert.InDelta(t, 5.0, h.TotalLocked, 1e-12)
}

func TestHedgeLockUnavailable(t *testing.T) {
	h := AnalyzeHedgeLock(0.60, 0.45, 100, 20)

	assert.False(t, h.Available)
	assert.False(t, h.Recommended)
	assert.LessOrEqual(t, h.LockedPerContract, 0.0)
	assert.NotEmpty(t, h.Reason)
}

func TestHedgeLockDiscouragedNearExpiry(t *testing.T) {
	h := AnalyzeHedgeLock(0.40, 0.55, 100, 4)

	assert.True(t, h.Available)
	assert.False(t, h.Recommended, "should prefer direct exit near expiry")
}

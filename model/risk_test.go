package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskOfRuinCriticalNearStrikeHighVol(t *testing.T) {
	// $40 from strike with 2% vol: one move covers the gap.
	a := RiskOfRuin(100_040, 100_000, 2.0, 30)
	assert.Equal(t, RiskCritical, a.Level)
	assert.NotEmpty(t, a.Reason)
}

func TestRiskOfRuinCriticalTightAndLate(t *testing.T) {
	// 0.05% from strike with 5 minutes left.
	a := RiskOfRuin(100_050, 100_000, 0.3, 5)
	assert.Equal(t, RiskCritical, a.Level)
}

func TestRiskOfRuinLowWithWideBuffer(t *testing.T) {
	a := RiskOfRuin(101_500, 100_000, 0.4, 30)
	assert.Equal(t, RiskLow, a.Level)
	assert.Less(t, a.RiskOfRuin, 0.15)
	assert.InDelta(t, a.ExpectedMove*1.5, a.BufferNeeded, 1e-12)
}

func TestRiskOfRuinBelowStrikeIsCritical(t *testing.T) {
	// Spot already under the strike: ruin probability above one half.
	a := RiskOfRuin(99_000, 100_000, 0.8, 30)
	assert.GreaterOrEqual(t, a.RiskOfRuin, 0.5)
	assert.Equal(t, RiskCritical, a.Level)
}

func TestRiskOfRuinUnknownOnBadInput(t *testing.T) {
	a := RiskOfRuin(0, 100_000, 0.8, 30)
	assert.Equal(t, RiskUnknown, a.Level)
	assert.Equal(t, 0.5, a.RiskOfRuin)

	a = RiskOfRuin(100_000, 100_000, -1, 30)
	assert.Equal(t, RiskUnknown, a.Level)
}

func TestRuinComplementsFairValue(t *testing.T) {
	// Away from the settlement boost, ruin ≈ 1 − fair value.
	spot, strike, vol, minutes := 100_300.0, 100_000.0, 0.8, 30.0
	fv := FairValue(spot, strike, vol, minutes)
	a := RiskOfRuin(spot, strike, vol, minutes)
	assert.InDelta(t, 1-fv, a.RiskOfRuin, 1e-9)
}

package model

import (
	"fmt"
	"math"
)

// RiskLevel classifies how close a position is to ruin.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
	RiskUnknown  RiskLevel = "unknown"
)

// Assessment is the risk engine's verdict on a strike/spot/vol/time tuple.
// RiskOfRuin is the modeled probability the asset finishes BELOW the strike;
// a YES holder reads it as loss probability, a NO holder as win probability.
type Assessment struct {
	RiskOfRuin   float64
	Level        RiskLevel
	Reason       string
	ExpectedMove float64 // one-sigma dollar move over remaining time
	BufferNeeded float64 // suggested safety margin in price units
}

// Risk classification thresholds. Distance rules catch positions that the
// raw probability understates when volatility can cover the gap in one move.
const (
	criticalDistance    = 50.0 // dollars to strike
	criticalVolPct      = 1.5
	criticalDistancePct = 0.1 // percent of spot
	criticalMinutes     = 10.0
	criticalRuin        = 0.5
	highRuin            = 0.3
	mediumRuin          = 0.15
	bufferMultiple      = 1.5
)

// RiskOfRuin estimates the probability the asset finishes below the strike
// and classifies the danger for a position depending on it staying above.
func RiskOfRuin(spot, strike, volPct, minutesRemaining float64) Assessment {
	if spot <= 0 || volPct <= 0 {
		return Assessment{
			RiskOfRuin: 0.5,
			Level:      RiskUnknown,
			Reason:     "invalid spot or volatility input",
		}
	}

	move := expectedMove(spot, volPct, minutesRemaining)
	z := (spot - strike) / move
	ruin := clampProbability(1 - normCDF(z))

	distance := math.Abs(spot - strike)
	distancePct := distance / spot * 100

	a := Assessment{
		RiskOfRuin:   ruin,
		ExpectedMove: move,
		BufferNeeded: move * bufferMultiple,
	}

	switch {
	case distance < criticalDistance && volPct > criticalVolPct:
		a.Level = RiskCritical
		a.Reason = fmt.Sprintf("only $%.0f from strike with volatility %.2f%% - one move covers the gap", distance, volPct)
	case distancePct < criticalDistancePct && minutesRemaining < criticalMinutes:
		a.Level = RiskCritical
		a.Reason = fmt.Sprintf("%.3f%% from strike with %.1f min left", distancePct, minutesRemaining)
	case ruin >= criticalRuin:
		a.Level = RiskCritical
		a.Reason = fmt.Sprintf("risk of ruin %.0f%% - more likely to finish below strike than above", ruin*100)
	case ruin >= highRuin:
		a.Level = RiskHigh
		a.Reason = fmt.Sprintf("risk of ruin %.0f%%", ruin*100)
	case ruin >= mediumRuin:
		a.Level = RiskMedium
		a.Reason = fmt.Sprintf("risk of ruin %.0f%%", ruin*100)
	default:
		a.Level = RiskLow
		a.Reason = fmt.Sprintf("risk of ruin %.0f%%, $%.0f buffer above strike", ruin*100, distance)
	}

	return a
}

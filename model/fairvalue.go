package model

import "math"

// ═══════════════════════════════════════════════════════════════════════════════
// FAIR VALUE MODEL - Closed-form pricing of hourly binary contracts
// ═══════════════════════════════════════════════════════════════════════════════
//
// FairValue answers: given spot, strike, short-horizon volatility and minutes
// to settlement, what is the probability the asset settles at or above the
// strike? That probability IS the fair YES price (the contract pays $1).
//
// Model: Brownian scaling of volatility with √time, z-score against the
// strike, standard-normal CDF. Near expiry the settlement price is an
// average of snapshots over the final minute, which kills realized variance,
// so a certainty boost pushes the probability toward its nearer bound.
//
// ═══════════════════════════════════════════════════════════════════════════════

const (
	minProbability = 0.01
	maxProbability = 0.99

	// Settlement averaging kicks in over the last 2 minutes.
	settlementWindowMinutes = 2
	settlementMaxBoost      = 0.15
)

// FairValue estimates the probability the asset settles at or above strike,
// clamped to [0.01, 0.99]. volPct is the rolling 1-hour volatility in percent
// (e.g. 0.8 for 0.8%), minutesRemaining the time to window close.
func FairValue(spot, strike, volPct, minutesRemaining float64) float64 {
	if spot <= 0 || volPct <= 0 {
		return 0.5 // degraded input, maximal uncertainty beats halting the loop
	}

	move := expectedMove(spot, volPct, minutesRemaining)
	if move <= 0 {
		if spot >= strike {
			return maxProbability
		}
		return minProbability
	}

	z := (spot - strike) / move
	probability := normCDF(z)

	if minutesRemaining <= settlementWindowMinutes {
		boost := settlementMaxBoost * (1 - minutesRemaining/settlementWindowMinutes)
		if probability > 0.5 {
			probability += (1 - probability) * boost
		} else {
			probability -= probability * boost
		}
	}

	return clampProbability(probability)
}

// expectedMove is the one-sigma dollar move over the remaining time.
// Time is floored at 30 seconds so variance never collapses to zero.
func expectedMove(spot, volPct, minutesRemaining float64) float64 {
	timeFactorHours := math.Max(minutesRemaining, 0.5) / 60
	return spot * (volPct / 100) * math.Sqrt(timeFactorHours)
}

func clampProbability(p float64) float64 {
	if p < minProbability {
		return minProbability
	}
	if p > maxProbability {
		return maxProbability
	}
	return p
}

// normCDF is the standard normal CDF via the Abramowitz & Stegun 26.2.17
// rational approximation, |error| < 7.5e-8.
func normCDF(z float64) float64 {
	if z < 0 {
		return 1 - normCDF(-z)
	}
	k := 1 / (1 + 0.2316419*z)
	poly := k * (0.319381530 + k*(-0.356563782+k*(1.781477937+k*(-1.821255978+k*1.330274429))))
	return 1 - math.Exp(-z*z/2)/math.Sqrt(2*math.Pi)*poly
}

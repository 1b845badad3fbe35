package feeds

import (
	"math"
	"sync"
	"time"

	"github.com/strikeloop/kalshibot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// INDICATORS - Rolling volatility, RSI, Bollinger width from 1m candles
// ═══════════════════════════════════════════════════════════════════════════════
//
// The pricing model only needs VolatilityPct (hourly, percent). RSI and
// Bollinger width ride along for signal sources and the status output.
//
// ═══════════════════════════════════════════════════════════════════════════════

const (
	volLookbackBars  = 60 // one hour of 1m returns
	rsiPeriod        = 14
	bollingerPeriod  = 20
	bollingerStdDevs = 2.0
)

// IndicatorTracker converts a candle series into the rolling snapshot the
// model and strategies consume. Safe for concurrent use.
type IndicatorTracker struct {
	mu       sync.RWMutex
	snapshot types.IndicatorSnapshot
}

// NewIndicatorTracker creates an empty tracker.
func NewIndicatorTracker() *IndicatorTracker {
	return &IndicatorTracker{}
}

// Snapshot returns the latest computed figures.
func (t *IndicatorTracker) Snapshot() types.IndicatorSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot
}

// Update recomputes all indicators from a fresh candle series, oldest first.
func (t *IndicatorTracker) Update(candles []types.Candle) {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close.InexactFloat64()
	}

	snap := types.IndicatorSnapshot{
		VolatilityPct:  hourlyVolatilityPct(closes),
		RSI:            rsi(closes, rsiPeriod),
		BollingerWidth: bollingerWidthPct(closes, bollingerPeriod),
		UpdatedAt:      time.Now(),
	}

	t.mu.Lock()
	t.snapshot = snap
	t.mu.Unlock()
}

// hourlyVolatilityPct is the stddev of 1m close-to-close returns over the
// last hour, scaled to a one-hour horizon by √60, in percent.
func hourlyVolatilityPct(closes []float64) float64 {
	if len(closes) < 2 {
		return 0
	}
	start := 0
	if len(closes) > volLookbackBars+1 {
		start = len(closes) - volLookbackBars - 1
	}

	returns := make([]float64, 0, volLookbackBars)
	for i := start + 1; i < len(closes); i++ {
		if closes[i-1] <= 0 {
			continue
		}
		returns = append(returns, closes[i]/closes[i-1]-1)
	}
	if len(returns) < 2 {
		return 0
	}

	return stdDev(returns) * math.Sqrt(60) * 100
}

// rsi is the classic Wilder relative strength index over the final period.
func rsi(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return 50 // neutral until enough data
	}

	var gains, losses float64
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	if losses == 0 {
		return 100
	}
	rs := gains / losses
	return 100 - 100/(1+rs)
}

// bollingerWidthPct is the band width (2·k·σ) relative to the moving
// average, in percent. A squeeze reads low, an expansion high.
func bollingerWidthPct(closes []float64, period int) float64 {
	if len(closes) < period {
		return 0
	}
	window := closes[len(closes)-period:]

	mean := 0.0
	for _, c := range window {
		mean += c
	}
	mean /= float64(period)
	if mean == 0 {
		return 0
	}

	return 2 * bollingerStdDevs * stdDev(window) / mean * 100
}

func stdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	variance := 0.0
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	return math.Sqrt(variance)
}

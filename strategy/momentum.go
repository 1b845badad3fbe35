package strategy

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/strikeloop/kalshibot/model"
	"github.com/strikeloop/kalshibot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// MOMENTUM SOURCE - Ride a confirmed intra-window move
// ═══════════════════════════════════════════════════════════════════════════════
//
// The hourly contract strikes at the window-open price. Once spot has moved
// past the open by a velocity threshold, the move tends to persist to
// settlement more often than stale 50/50 odds imply, so the signal goes
// active on the moving side. It deactivates when the move retraces.
//
// ═══════════════════════════════════════════════════════════════════════════════

// MarketView is the slice of market data this source samples.
type MarketView interface {
	Spot() (float64, time.Time)
	Indicators() types.IndicatorSnapshot
}

// MomentumConfig tunes the source.
type MomentumConfig struct {
	MinMovePct    float64 // velocity threshold vs window open, percent
	MinConfidence float64 // below this modeled win probability, stay quiet
	Contracts     int
}

// Momentum turns intra-window price velocity into entry signals.
type Momentum struct {
	mu     sync.Mutex
	cfg    MomentumConfig
	market MarketView
	clock  func() time.Time

	windowID   string
	windowOpen float64
}

// NewMomentum creates the source.
func NewMomentum(cfg MomentumConfig, market MarketView) *Momentum {
	return &Momentum{cfg: cfg, market: market, clock: time.Now}
}

// Name implements trader.SignalSource.
func (m *Momentum) Name() string { return "momentum" }

// Current implements trader.SignalSource. It is recomputed from live market
// data on every call; the controller does the edge detection.
func (m *Momentum) Current() types.Signal {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	// Staleness of this sample is the controller's concern, not ours.
	spot, _ := m.market.Spot()
	if spot <= 0 {
		return types.Signal{}
	}

	// Latch the first price seen in each window as the strike reference.
	window := now.Format("2006-01-02-15")
	if window != m.windowID {
		m.windowID = window
		m.windowOpen = spot
		log.Debug().Str("window", window).Float64("open", spot).Msg("Window open latched")
		return types.Signal{}
	}

	movePct := (spot - m.windowOpen) / m.windowOpen * 100
	if math.Abs(movePct) < m.cfg.MinMovePct {
		return types.Signal{}
	}

	direction := types.DirectionYes
	if movePct < 0 {
		direction = types.DirectionNo
	}

	minutes := 60 - float64(now.Minute()) - float64(now.Second())/60
	vol := m.market.Indicators().VolatilityPct

	fairYes := model.FairValue(spot, m.windowOpen, vol, minutes)
	winProb := fairYes
	entry := fairYes
	if direction == types.DirectionNo {
		winProb = 1 - fairYes
		entry = 1 - fairYes
	}
	if winProb < m.cfg.MinConfidence {
		return types.Signal{}
	}

	return types.Signal{
		Active:     true,
		Direction:  direction,
		Strike:     m.windowOpen,
		EntryPrice: roundToCent(entry),
		Contracts:  m.cfg.Contracts,
		Confidence: winProb,
		Reason: fmt.Sprintf("spot moved %+.3f%% off window open $%.0f with %.1fm left",
			movePct, m.windowOpen, minutes),
	}
}

// roundToCent snaps a model price onto the exchange's 1¢ grid, keeping it
// inside the tradable (0,1) range.
func roundToCent(p float64) float64 {
	cents := math.Round(p * 100)
	if cents < 1 {
		cents = 1
	}
	if cents > 99 {
		cents = 99
	}
	return cents / 100
}

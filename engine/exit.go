package engine

import (
	"github.com/strikeloop/kalshibot/fees"
	"github.com/strikeloop/kalshibot/model"
	"github.com/strikeloop/kalshibot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// EXIT DECISION ENGINE - HOLD or EXIT, with the math to back it up
// ═══════════════════════════════════════════════════════════════════════════════
//
// Flow per evaluation:
//   implied price (market bid, else model) → win probability → fee-adjusted
//   early-exit P&L vs settlement EV → ordered rule list → verdict
//
// Two disjoint rule lists keyed on entry price: positions bought at ≤50¢ are
// out-of-the-money plays where trading below the strike is the expected
// state, positions bought above 50¢ are favorites that must defend their
// lead. First matching rule wins; every rule produces a full Analysis.
//
// Pure and deterministic: identical inputs always yield identical verdicts.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Confidence grades how strongly the engine believes its verdict.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Analysis is the engine's verdict on an open position. Recomputed fresh on
// every call, never persisted or mutated.
type Analysis struct {
	ShouldExit              bool
	Reason                  string
	ExpectedNetPnL          float64 // net P&L of exiting now at CurrentValue
	CurrentValue            float64 // implied contract price used for the exit leg
	SettlementExpectedValue float64 // win probability
	FeeImpact               float64 // total fees on the early-exit round trip
	Confidence              Confidence
	RiskOfRuin              float64
	RiskLevel               model.RiskLevel
}

// Thresholds are the tuned decision constants. They are calibration
// parameters from live trading, not derived values; treat them as subject to
// backtesting, and inject them from config rather than editing here.
type Thresholds struct {
	ProfitLockRatio      float64 // early exit must beat hold EV by this factor
	ProfitLockMinPrice   float64 // and capture at least this much of the $1 payout
	ProfitLockMinGainPct float64 // and return at least this fraction of cost
	LateWindowMinutes    float64 // "late in the window" boundary
	ProbStopMinutes      float64 // probability stop-loss active inside this
	ProbStopWinProb      float64 // stop out below this win probability
	HighRiskMinutes      float64 // high-risk clock check inside this
	HighRiskHoldRatio    float64 // hold EV must beat exit by this factor to stay
	EarlyHoldMinutes     float64 // ITM positions are never exited beyond this
	ExitCaptureRatio     float64 // exit must reach this fraction of hold EV
	MinExitPrice         float64 // below this, fees erode the margin
}

// DefaultThresholds returns the calibrated production values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ProfitLockRatio:      1.3,
		ProfitLockMinPrice:   0.60,
		ProfitLockMinGainPct: 0.10,
		LateWindowMinutes:    5,
		ProbStopMinutes:      15,
		ProbStopWinProb:      0.20,
		HighRiskMinutes:      15,
		HighRiskHoldRatio:    1.2,
		EarlyHoldMinutes:     30,
		ExitCaptureRatio:     0.85,
		MinExitPrice:         0.75,
	}
}

// Engine combines the fee schedule and risk model into exit verdicts.
type Engine struct {
	schedule   fees.Schedule
	thresholds Thresholds
}

// New creates an exit engine for the given fee schedule and thresholds.
func New(schedule fees.Schedule, thresholds Thresholds) *Engine {
	return &Engine{schedule: schedule, thresholds: thresholds}
}

// evaluation is everything the rules need, computed once per Analyze call.
type evaluation struct {
	pos        types.Position
	spot       float64
	minutes    float64
	implied    float64 // current price of our side, market bid preferred
	winProb    float64
	earlyNet   float64 // net P&L of selling now
	feeImpact  float64
	settleNet  float64 // probability-weighted settlement P&L
	lossNet    float64 // net P&L if we ride to a losing settlement
	assessment model.Assessment
	th         Thresholds
}

// verdict builds a fully-populated Analysis from the shared evaluation.
func (e *evaluation) verdict(shouldExit bool, confidence Confidence, reason string) *Analysis {
	return &Analysis{
		ShouldExit:              shouldExit,
		Reason:                  reason,
		ExpectedNetPnL:          e.earlyNet,
		CurrentValue:            e.implied,
		SettlementExpectedValue: e.winProb,
		FeeImpact:               e.feeImpact,
		Confidence:              confidence,
		RiskOfRuin:              e.assessment.RiskOfRuin,
		RiskLevel:               e.assessment.Level,
	}
}

// underwater reports whether spot is currently on the losing side of the
// strike for this position's direction.
func (e *evaluation) underwater() bool {
	return !e.pos.Wins(e.spot)
}

// Analyze evaluates an open position. marketBid, when non-nil, is the live
// bid for the position's own side and overrides the model's implied price;
// absence of a live quote degrades to model pricing, never to a failure.
func (g *Engine) Analyze(pos types.Position, spot, minutesRemaining, volPct float64, marketBid *float64) Analysis {
	assessment := model.RiskOfRuin(spot, pos.Strike, volPct, minutesRemaining)

	// Model price of the YES side; NO trades at the complement.
	fairYes := model.FairValue(spot, pos.Strike, volPct, minutesRemaining)
	implied := fairYes
	if pos.Direction == types.DirectionNo {
		implied = 1 - fairYes
	}
	if marketBid != nil {
		implied = *marketBid
	}

	// The asset finishing below the strike is a NO win.
	winProb := 1 - assessment.RiskOfRuin
	if pos.Direction == types.DirectionNo {
		winProb = assessment.RiskOfRuin
	}

	early := g.schedule.Breakdown(pos.Contracts, pos.EntryPrice, implied, types.ExitEarly)
	winNet := g.schedule.Breakdown(pos.Contracts, pos.EntryPrice, 1.0, types.ExitSettlement).NetPnL
	lossNet := g.schedule.Breakdown(pos.Contracts, pos.EntryPrice, 0.0, types.ExitSettlement).NetPnL

	e := &evaluation{
		pos:        pos,
		spot:       spot,
		minutes:    minutesRemaining,
		implied:    implied,
		winProb:    winProb,
		earlyNet:   early.NetPnL,
		feeImpact:  early.TotalFees,
		settleNet:  winProb*winNet + (1-winProb)*lossNet,
		lossNet:    lossNet,
		assessment: assessment,
		th:         g.thresholds,
	}

	rules := itmRules
	if pos.EntryPrice <= 0.50 {
		rules = otmRules
	}
	for _, r := range rules {
		if a := r.evaluate(e); a != nil {
			return *a
		}
	}

	// Unreachable: both lists end in an unconditional rule.
	return *e.verdict(false, ConfidenceLow, "no rule matched")
}

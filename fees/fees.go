package fees

import (
	"math"

	"github.com/strikeloop/kalshibot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// FEE ENGINE - Gross legs → net P&L under a pluggable fee schedule
// ═══════════════════════════════════════════════════════════════════════════════
//
// Two schedules:
//   PercentageSchedule - flat taker % on entry and early exit, free settlement
//   KalshiSchedule     - parabolic 0.07·P·(1−P) per contract, capped
//
// All functions are pure. Dollar amounts throughout; contract prices in [0,1].
//
// ═══════════════════════════════════════════════════════════════════════════════

// Breakdown is the full fee accounting for one round trip.
type Breakdown struct {
	GrossCost    float64 // contracts × entry price
	EntryFee     float64
	TotalCost    float64 // gross cost + entry fee
	GrossRevenue float64 // contracts × exit price
	ExitFee      float64
	NetRevenue   float64 // gross revenue − exit fee
	NetPnL       float64 // net revenue − total cost
	TotalFees    float64
}

// Schedule prices the fee legs of a trade.
type Schedule interface {
	Name() string
	Breakdown(contracts int, entryPrice, exitPrice float64, exitType types.ExitType) Breakdown
}

// PercentageSchedule charges a flat percentage of notional on taker fills.
// Settlement carries no exit fee.
type PercentageSchedule struct {
	TakerFeePct      float64
	MakerFeePct      float64
	SettlementFeePct float64
}

func (s PercentageSchedule) Name() string { return "percentage" }

func (s PercentageSchedule) Breakdown(contracts int, entryPrice, exitPrice float64, exitType types.ExitType) Breakdown {
	b := Breakdown{
		GrossCost:    float64(contracts) * entryPrice,
		GrossRevenue: float64(contracts) * exitPrice,
	}
	b.EntryFee = b.GrossCost * s.TakerFeePct / 100
	b.TotalCost = b.GrossCost + b.EntryFee

	if exitType == types.ExitEarly {
		b.ExitFee = b.GrossRevenue * s.TakerFeePct / 100
	} else {
		b.ExitFee = b.GrossRevenue * s.SettlementFeePct / 100
	}
	b.NetRevenue = b.GrossRevenue - b.ExitFee
	b.NetPnL = b.NetRevenue - b.TotalCost
	b.TotalFees = b.EntryFee + b.ExitFee
	return b
}

const (
	kalshiFeeRate        = 0.07
	kalshiPerContractCap = 0.02
	kalshiPer100Cap      = 1.75
)

// KalshiSchedule models Kalshi's parabolic trading fee: maximal at 50¢ where
// uncertainty peaks, vanishing toward 0¢ and $1. Settlement is free.
type KalshiSchedule struct{}

func (KalshiSchedule) Name() string { return "kalshi" }

// ContractFee returns the aggregate trading fee for a fill of `contracts`
// at `price`, applying both the per-contract and the per-100 cap.
func (KalshiSchedule) ContractFee(contracts int, price float64) float64 {
	perContract := kalshiFeeRate * price * (1 - price)
	if perContract > kalshiPerContractCap {
		perContract = kalshiPerContractCap
	}
	if perContract < 0 {
		perContract = 0
	}
	aggregate := float64(contracts) * perContract
	cap100 := float64(contracts) / 100 * kalshiPer100Cap
	return math.Min(aggregate, cap100)
}

func (s KalshiSchedule) Breakdown(contracts int, entryPrice, exitPrice float64, exitType types.ExitType) Breakdown {
	b := Breakdown{
		GrossCost:    float64(contracts) * entryPrice,
		GrossRevenue: float64(contracts) * exitPrice,
	}
	b.EntryFee = s.ContractFee(contracts, entryPrice)
	b.TotalCost = b.GrossCost + b.EntryFee

	if exitType == types.ExitEarly {
		b.ExitFee = s.ContractFee(contracts, exitPrice)
	}
	b.NetRevenue = b.GrossRevenue - b.ExitFee
	b.NetPnL = b.NetRevenue - b.TotalCost
	b.TotalFees = b.EntryFee + b.ExitFee
	return b
}

// ForName returns the schedule matching a config value, or false if unknown.
func ForName(name string, takerPct float64) (Schedule, bool) {
	switch name {
	case "kalshi", "parabolic":
		return KalshiSchedule{}, true
	case "percentage", "pct":
		return PercentageSchedule{TakerFeePct: takerPct}, true
	}
	return nil, false
}

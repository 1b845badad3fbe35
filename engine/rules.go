package engine

import (
	"fmt"

	"github.com/strikeloop/kalshibot/model"
)

// ═══════════════════════════════════════════════════════════════════════════════
// EXIT RULES - Ordered, first match wins
// ═══════════════════════════════════════════════════════════════════════════════
//
// Each rule is a named predicate returning nil (pass to next rule) or a
// verdict. Keeping them in explicit slices makes the priority order auditable
// and lets each rule be unit-tested in isolation.
//
// ═══════════════════════════════════════════════════════════════════════════════

type rule struct {
	name     string
	evaluate func(*evaluation) *Analysis
}

// otmRules govern positions entered at ≤50¢. Being below the strike is the
// expected state for these, so the list protects profits and cuts hopeless
// tails instead of reacting to every adverse tick.
var otmRules = []rule{
	{
		name: "profit-lock",
		evaluate: func(e *evaluation) *Analysis {
			if e.earlyNet > e.settleNet*e.th.ProfitLockRatio &&
				e.earlyNet > e.pos.TotalCost*e.th.ProfitLockMinGainPct &&
				e.settleNet >= 0 &&
				e.implied >= e.th.ProfitLockMinPrice {
				return e.verdict(true, ConfidenceHigh, fmt.Sprintf(
					"profit lock: selling at %.2f nets $%.2f vs hold EV $%.2f",
					e.implied, e.earlyNet, e.settleNet))
			}
			return nil
		},
	},
	{
		name: "late-window-profit",
		evaluate: func(e *evaluation) *Analysis {
			// Market makers pull bids in the final minutes; take any profit
			// before the boundary effect depresses them.
			if e.minutes <= e.th.LateWindowMinutes && e.earlyNet > 0 {
				return e.verdict(true, ConfidenceMedium, fmt.Sprintf(
					"late window profit protection: %.1fm left, banking $%.2f",
					e.minutes, e.earlyNet))
			}
			return nil
		},
	},
	{
		name: "probability-stop",
		evaluate: func(e *evaluation) *Analysis {
			if e.minutes <= e.th.ProbStopMinutes &&
				e.winProb < e.th.ProbStopWinProb &&
				e.earlyNet > e.lossNet {
				return e.verdict(true, ConfidenceMedium, fmt.Sprintf(
					"probability stop loss: win probability %.0f%% with %.1fm left, salvaging $%.2f over settlement loss",
					e.winProb*100, e.minutes, e.earlyNet-e.lossNet))
			}
			return nil
		},
	},
	{
		name: "late-loss-mitigation",
		evaluate: func(e *evaluation) *Analysis {
			if e.minutes <= e.th.LateWindowMinutes && e.earlyNet > e.lossNet {
				return e.verdict(true, ConfidenceMedium, fmt.Sprintf(
					"late loss mitigation: exit at %.2f recovers $%.2f vs riding to settlement",
					e.implied, e.earlyNet-e.lossNet))
			}
			return nil
		},
	},
	{
		name: "otm-hold",
		evaluate: func(e *evaluation) *Analysis {
			return e.verdict(false, ConfidenceMedium, fmt.Sprintf(
				"holding: OTM position needs development time, win probability %.0f%%, hold EV $%.2f",
				e.winProb*100, e.settleNet))
		},
	},
}

// itmRules govern positions entered above 50¢: favorites defending a lead.
var itmRules = []rule{
	{
		name: "critical-risk",
		evaluate: func(e *evaluation) *Analysis {
			if e.assessment.Level == model.RiskCritical {
				return e.verdict(true, ConfidenceHigh,
					"critical risk: "+e.assessment.Reason)
			}
			return nil
		},
	},
	{
		name: "negative-hold-ev",
		evaluate: func(e *evaluation) *Analysis {
			if e.settleNet < e.earlyNet && e.earlyNet > 0 {
				return e.verdict(true, ConfidenceHigh, fmt.Sprintf(
					"hold EV $%.2f below exit value $%.2f - the math favors exiting",
					e.settleNet, e.earlyNet))
			}
			return nil
		},
	},
	{
		name: "high-risk-clock",
		evaluate: func(e *evaluation) *Analysis {
			if e.assessment.Level == model.RiskHigh && e.minutes < e.th.HighRiskMinutes {
				if e.settleNet > e.earlyNet*e.th.HighRiskHoldRatio {
					return e.verdict(false, ConfidenceLow, fmt.Sprintf(
						"high risk but hold EV $%.2f clears %.1fx the exit value - holding nervously",
						e.settleNet, e.th.HighRiskHoldRatio))
				}
				return e.verdict(true, ConfidenceMedium, fmt.Sprintf(
					"high risk with %.1fm left and hold EV $%.2f not worth it over exit $%.2f",
					e.minutes, e.settleNet, e.earlyNet))
			}
			return nil
		},
	},
	{
		name: "too-early",
		evaluate: func(e *evaluation) *Analysis {
			if e.minutes > e.th.EarlyHoldMinutes {
				return e.verdict(false, ConfidenceMedium, fmt.Sprintf(
					"too early to exit: %.1fm remaining", e.minutes))
			}
			return nil
		},
	},
	{
		name: "underwater-hold",
		evaluate: func(e *evaluation) *Analysis {
			if e.underwater() {
				return e.verdict(false, ConfidenceMedium, fmt.Sprintf(
					"underwater: spot $%.0f on losing side of strike $%.0f, awaiting recovery",
					e.spot, e.pos.Strike))
			}
			return nil
		},
	},
	{
		name: "insufficient-capture",
		evaluate: func(e *evaluation) *Analysis {
			if e.earlyNet < e.settleNet*e.th.ExitCaptureRatio {
				return e.verdict(false, ConfidenceMedium, fmt.Sprintf(
					"exit value $%.2f under %.0f%% of hold EV $%.2f - not enough on the table",
					e.earlyNet, e.th.ExitCaptureRatio*100, e.settleNet))
			}
			return nil
		},
	},
	{
		name: "thin-margin",
		evaluate: func(e *evaluation) *Analysis {
			if e.implied < e.th.MinExitPrice {
				return e.verdict(false, ConfidenceMedium, fmt.Sprintf(
					"implied price %.2f under %.2f - fees would erode the margin",
					e.implied, e.th.MinExitPrice))
			}
			return nil
		},
	},
	{
		name: "capture-profit",
		evaluate: func(e *evaluation) *Analysis {
			return e.verdict(true, ConfidenceHigh, fmt.Sprintf(
				"capturing profit: exit at %.2f nets $%.2f, close enough to hold EV $%.2f",
				e.implied, e.earlyNet, e.settleNet))
		},
	},
}

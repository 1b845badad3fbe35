package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SHARED TYPES - Avoid import cycles
// ═══════════════════════════════════════════════════════════════════════════════

// Direction is the side of a binary contract.
type Direction string

const (
	DirectionYes Direction = "YES"
	DirectionNo  Direction = "NO"
)

// Position represents an open binary-contract trade.
type Position struct {
	ID         string
	Strategy   string
	Direction  Direction
	Strike     float64
	EntryPrice float64 // contract price in (0,1)
	Contracts  int
	TotalCost  float64 // entry cost including entry fee
	EntrySpot  float64 // reference asset price at entry
	WindowID   string  // settlement window the position belongs to
	EntryTime  time.Time
}

// Wins reports whether the position pays out if the asset settles at spot.
func (p Position) Wins(spot float64) bool {
	if p.Direction == DirectionYes {
		return spot >= p.Strike
	}
	return spot < p.Strike
}

// Signal is a strategy's current trade recommendation. The controller only
// reads it; ownership stays with the signal source.
type Signal struct {
	Active     bool
	Direction  Direction
	Strike     float64
	EntryPrice float64 // recommended entry, in (0,1)
	Contracts  int
	Confidence float64 // 0-1
	Reason     string
}

// ExitType distinguishes an early sell from settlement at window close.
type ExitType string

const (
	ExitEarly      ExitType = "early"
	ExitSettlement ExitType = "settlement"
)

// EntryCommand is emitted when the controller opens a position.
type EntryCommand struct {
	Position Position
}

// ExitCommand is emitted when the controller closes a position.
type ExitCommand struct {
	PositionID string
	Strategy   string
	ExitPrice  float64 // in [0,1]
	ExitType   ExitType
	NetPnL     float64
	Reason     string
}

// Candle is a single OHLCV bar, oldest-to-newest in any series.
type Candle struct {
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// Tick is a spot price observation from the live feed.
type Tick struct {
	Symbol    string
	Price     decimal.Decimal
	Timestamp time.Time
}

// IndicatorSnapshot carries the rolling figures the pricing model consumes.
type IndicatorSnapshot struct {
	VolatilityPct  float64 // stddev of 1-min returns, percent
	RSI            float64
	BollingerWidth float64
	UpdatedAt      time.Time
}

// TradeRecord is a closed trade for display and persistence.
type TradeRecord struct {
	ID        string
	Strategy  string
	Direction Direction
	Strike    float64
	Entry     decimal.Decimal
	Exit      decimal.Decimal
	Contracts int
	PnL       decimal.Decimal
	ExitType  ExitType
	Timestamp time.Time
}

package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strikeloop/kalshibot/types"
)

type stubMarket struct {
	price float64
	at    time.Time
	vol   float64
}

func (s *stubMarket) Spot() (float64, time.Time) { return s.price, s.at }
func (s *stubMarket) Indicators() types.IndicatorSnapshot {
	return types.IndicatorSnapshot{VolatilityPct: s.vol}
}

func newMomentumHarness() (*Momentum, *stubMarket, *time.Time) {
	now := time.Date(2026, 8, 23, 10, 5, 0, 0, time.UTC)
	market := &stubMarket{price: 100_000, at: now, vol: 0.8}
	m := NewMomentum(MomentumConfig{
		MinMovePct:    0.25,
		MinConfidence: 0.55,
		Contracts:     100,
	}, market)
	m.clock = func() time.Time { return now }
	return m, market, &now
}

func TestMomentumLatchesWindowOpenFirst(t *testing.T) {
	m, _, _ := newMomentumHarness()

	sig := m.Current()
	assert.False(t, sig.Active, "first sample only latches the window open")
}

func TestMomentumActivatesOnUpMove(t *testing.T) {
	m, market, now := newMomentumHarness()
	m.Current() // latch open at 100,000

	market.price = 100_400 // +0.4%
	*now = now.Add(2 * time.Minute)

	sig := m.Current()
	require.True(t, sig.Active)
	assert.Equal(t, types.DirectionYes, sig.Direction)
	assert.Equal(t, 100_000.0, sig.Strike)
	assert.Greater(t, sig.EntryPrice, 0.5, "riding side should be priced as favorite")
	assert.Less(t, sig.EntryPrice, 1.0)
	assert.Equal(t, 100, sig.Contracts)
	assert.NotEmpty(t, sig.Reason)
}

func TestMomentumActivatesOnDownMove(t *testing.T) {
	m, market, now := newMomentumHarness()
	m.Current()

	market.price = 99_600 // -0.4%
	*now = now.Add(2 * time.Minute)

	sig := m.Current()
	require.True(t, sig.Active)
	assert.Equal(t, types.DirectionNo, sig.Direction)
}

func TestMomentumDeactivatesOnRetrace(t *testing.T) {
	m, market, now := newMomentumHarness()
	m.Current()

	market.price = 100_400
	*now = now.Add(2 * time.Minute)
	require.True(t, m.Current().Active)

	market.price = 100_050 // back inside the velocity band
	*now = now.Add(time.Minute)
	assert.False(t, m.Current().Active)
}

func TestMomentumRelatchesOnNewWindow(t *testing.T) {
	m, market, now := newMomentumHarness()
	m.Current()

	market.price = 100_400
	*now = now.Add(56 * time.Minute) // 11:01, next window
	sig := m.Current()
	assert.False(t, sig.Active, "new window relatches the open before signaling")

	market.price = 100_800
	*now = now.Add(2 * time.Minute)
	sig = m.Current()
	require.True(t, sig.Active)
	assert.Equal(t, 100_400.0, sig.Strike, "strike is the new window's open")
}

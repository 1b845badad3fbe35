package trader

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strikeloop/kalshibot/engine"
	"github.com/strikeloop/kalshibot/fees"
	"github.com/strikeloop/kalshibot/types"
)

// ─── Fakes ────────────────────────────────────────────────────────────────────

type fakeSource struct {
	name string
	sig  types.Signal
}

func (f *fakeSource) Name() string          { return f.name }
func (f *fakeSource) Current() types.Signal { return f.sig }

type fakeMarket struct {
	price float64
	at    time.Time
	vol   float64
}

func (f *fakeMarket) Spot() (float64, time.Time) { return f.price, f.at }
func (f *fakeMarket) Indicators() types.IndicatorSnapshot {
	return types.IndicatorSnapshot{VolatilityPct: f.vol, UpdatedAt: f.at}
}

type fakeEmitter struct {
	entries  []types.EntryCommand
	exits    []types.ExitCommand
	entryErr error
	exitErr  error
}

func (f *fakeEmitter) EmitEntry(cmd types.EntryCommand) error {
	if f.entryErr != nil {
		return f.entryErr
	}
	f.entries = append(f.entries, cmd)
	return nil
}

func (f *fakeEmitter) EmitExit(cmd types.ExitCommand) error {
	if f.exitErr != nil {
		return f.exitErr
	}
	f.exits = append(f.exits, cmd)
	return nil
}

type harness struct {
	ctrl    *Controller
	source  *fakeSource
	market  *fakeMarket
	emitter *fakeEmitter
	now     time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		now: time.Date(2026, 8, 23, 10, 30, 0, 0, time.UTC),
		source: &fakeSource{
			name: "momentum",
			sig: types.Signal{
				Direction:  types.DirectionYes,
				Strike:     100_000,
				EntryPrice: 0.40,
				Contracts:  100,
			},
		},
		emitter: &fakeEmitter{},
	}
	h.market = &fakeMarket{price: 100_500, at: h.now, vol: 0.8}

	sched := fees.KalshiSchedule{}
	h.ctrl = New(
		Config{
			PollInterval:    time.Second,
			StaleAfter:      30 * time.Second,
			CapitalPerTrade: 100,
			MaxDailyLoss:    500,
		},
		sched,
		engine.New(sched, engine.DefaultThresholds()),
		h.market,
		nil,
		h.emitter,
		[]SignalSource{h.source},
	)
	h.ctrl.clock = func() time.Time { return h.now }
	return h
}

func (h *harness) advance(d time.Duration) {
	h.now = h.now.Add(d)
	h.market.at = h.now
}

// ─── Tests ────────────────────────────────────────────────────────────────────

func TestOneEntryPerStrategyPerWindow(t *testing.T) {
	h := newHarness(t)

	h.source.sig.Active = true
	h.ctrl.Tick()
	h.advance(5 * time.Second)
	h.ctrl.Tick() // still active: no edge

	require.Len(t, h.emitter.entries, 1)

	// Deactivate and re-activate inside the same window: a new edge, but the
	// dedup map has already seen this strategy+window.
	h.source.sig.Active = false
	h.advance(5 * time.Second)
	h.ctrl.Tick()

	// Close the position manually so the open-position guard is not what
	// blocks the second entry.
	h.ctrl.mu.Lock()
	h.ctrl.positions = make(map[string]*types.Position)
	h.ctrl.mu.Unlock()

	h.source.sig.Active = true
	h.advance(5 * time.Second)
	h.ctrl.Tick()

	assert.Len(t, h.emitter.entries, 1, "same window must not re-enter")
}

func TestEntryPositionShape(t *testing.T) {
	h := newHarness(t)
	h.source.sig.Active = true

	h.ctrl.Tick()

	require.Len(t, h.emitter.entries, 1)
	pos := h.emitter.entries[0].Position
	assert.Equal(t, "momentum", pos.Strategy)
	assert.Equal(t, types.DirectionYes, pos.Direction)
	assert.Equal(t, 0.40, pos.EntryPrice)
	assert.Equal(t, 100, pos.Contracts)
	assert.Equal(t, "2026-08-23-10", pos.WindowID)
	assert.Equal(t, 100_500.0, pos.EntrySpot)
	assert.Greater(t, pos.TotalCost, 40.0, "total cost includes the entry fee")
	assert.NotEmpty(t, pos.ID)
}

func TestCapitalCapShrinksSize(t *testing.T) {
	h := newHarness(t)
	h.ctrl.cfg.CapitalPerTrade = 20 // room for 50 contracts at 40¢
	h.source.sig.Active = true

	h.ctrl.Tick()

	require.Len(t, h.emitter.entries, 1)
	assert.Equal(t, 50, h.emitter.entries[0].Position.Contracts)
}

func TestWindowRolloverForcesSettlement(t *testing.T) {
	h := newHarness(t)
	h.source.sig.Active = true
	h.ctrl.Tick()
	require.Len(t, h.emitter.entries, 1)

	// Cross into the 11:00 window with spot above the strike: a YES win.
	h.advance(31 * time.Minute)
	h.ctrl.Tick()

	require.Len(t, h.emitter.exits, 1)
	exit := h.emitter.exits[0]
	assert.Equal(t, types.ExitSettlement, exit.ExitType)
	assert.Equal(t, 1.0, exit.ExitPrice)
	assert.Greater(t, exit.NetPnL, 0.0)
	assert.Empty(t, h.ctrl.OpenPositions())

	stats := h.ctrl.GetStats()
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Wins)
}

func TestWindowRolloverSettlesLossAtZero(t *testing.T) {
	h := newHarness(t)
	h.source.sig.Active = true
	h.ctrl.Tick()

	h.market.price = 99_000 // below strike: YES loses
	h.advance(31 * time.Minute)
	h.ctrl.Tick()

	require.Len(t, h.emitter.exits, 1)
	assert.Equal(t, 0.0, h.emitter.exits[0].ExitPrice)
	assert.Less(t, h.emitter.exits[0].NetPnL, 0.0)
	assert.Equal(t, 1, h.ctrl.GetStats().Losses)
}

func TestEngineVerdictTriggersEarlyExit(t *testing.T) {
	h := newHarness(t)
	// ITM favorite that immediately sits $40 from the strike with 2% vol:
	// the engine calls critical risk and demands an exit.
	h.source.sig = types.Signal{
		Active:     true,
		Direction:  types.DirectionYes,
		Strike:     100_460,
		EntryPrice: 0.80,
		Contracts:  50,
	}
	h.market.vol = 2.0
	h.ctrl.cfg.CapitalPerTrade = 100

	h.ctrl.Tick()
	require.Len(t, h.emitter.entries, 1)

	h.advance(5 * time.Second)
	h.ctrl.Tick()

	require.Len(t, h.emitter.exits, 1)
	exit := h.emitter.exits[0]
	assert.Equal(t, types.ExitEarly, exit.ExitType)
	assert.Contains(t, exit.Reason, "critical risk")
	assert.Empty(t, h.ctrl.OpenPositions())
}

func TestStaleFeedBlocksEntries(t *testing.T) {
	h := newHarness(t)
	h.source.sig.Active = true
	h.market.at = h.now.Add(-2 * time.Minute)

	h.ctrl.Tick()

	assert.Empty(t, h.emitter.entries)
}

func TestMalformedSignalRejected(t *testing.T) {
	h := newHarness(t)
	h.source.sig.Active = true
	h.source.sig.EntryPrice = 1.5

	h.ctrl.Tick()

	assert.Empty(t, h.emitter.entries)
}

func TestDailyLossGateBlocksEntries(t *testing.T) {
	h := newHarness(t)
	h.ctrl.mu.Lock()
	h.ctrl.dailyPnL = -600
	h.ctrl.dailyDay = h.now.YearDay() // keep the booked loss from resetting
	h.ctrl.mu.Unlock()

	h.source.sig.Active = true
	h.ctrl.Tick()

	assert.Empty(t, h.emitter.entries)
}

func TestEmitFailureDoesNotStopLoop(t *testing.T) {
	h := newHarness(t)
	h.source.sig.Active = true
	h.emitter.entryErr = errors.New("broker unreachable")

	h.ctrl.Tick()
	assert.Empty(t, h.emitter.entries)

	// Flaky emitter recovers, but the window is already marked traded:
	// no re-entry storm.
	h.emitter.entryErr = nil
	h.source.sig.Active = false
	h.advance(time.Second)
	h.ctrl.Tick()
	h.source.sig.Active = true
	h.advance(time.Second)
	h.ctrl.Tick()

	assert.Empty(t, h.emitter.entries)
}

func TestFailedExitRetriesNextTick(t *testing.T) {
	h := newHarness(t)
	h.source.sig.Active = true
	h.ctrl.Tick()

	h.emitter.exitErr = errors.New("broker unreachable")
	h.advance(31 * time.Minute)
	h.ctrl.Tick()
	assert.Empty(t, h.emitter.exits)
	assert.Len(t, h.ctrl.OpenPositions(), 1, "position stays open for retry")

	h.emitter.exitErr = nil
	h.advance(time.Second)
	h.ctrl.Tick()
	assert.Len(t, h.emitter.exits, 1)
}

func TestNewWindowAllowsNewEntry(t *testing.T) {
	h := newHarness(t)
	h.source.sig.Active = true
	h.ctrl.Tick()
	require.Len(t, h.emitter.entries, 1)

	// Settle the first position, drop the signal, cross into a new window.
	h.advance(31 * time.Minute)
	h.ctrl.Tick()
	require.Len(t, h.emitter.exits, 1)

	h.source.sig.Active = false
	h.advance(time.Second)
	h.ctrl.Tick()

	h.source.sig.Active = true
	h.advance(time.Second)
	h.ctrl.Tick()

	assert.Len(t, h.emitter.entries, 2)
}

func TestWindowMath(t *testing.T) {
	at := time.Date(2026, 8, 23, 14, 45, 30, 0, time.UTC)
	assert.Equal(t, "2026-08-23-14", windowID(at))
	assert.InDelta(t, 14.5, minutesRemaining(at), 1e-9)
}

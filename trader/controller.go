package trader

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/strikeloop/kalshibot/engine"
	"github.com/strikeloop/kalshibot/fees"
	"github.com/strikeloop/kalshibot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// AUTO-TRADE CONTROLLER - Signal edges in, entry/exit commands out
// ═══════════════════════════════════════════════════════════════════════════════
//
// A polling loop, not an event reactor. Every tick, under one mutex:
//   1. Detect signal activation edges → open at most one position per
//      strategy per settlement window
//   2. Window rolled over → force settlement at 1.0/0.0 (bypasses the engine)
//   3. Otherwise ask the exit engine; exit early on its verdict
//   4. Purge stale dedup keys
//
// The mutex serializes the whole check-then-act sequence, so two overlapping
// ticks can never double-enter a strategy. Emission failures are logged and
// never stop the loop.
//
// ═══════════════════════════════════════════════════════════════════════════════

// SignalSource is anything that produces a trade recommendation: an
// algorithmic strategy, a model-based predictor, or a human override.
type SignalSource interface {
	Name() string
	Current() types.Signal
}

// MarketData supplies the spot price and rolling indicators the controller
// samples each tick. Staleness of these inputs is checked here, not in the
// decision engine.
type MarketData interface {
	Spot() (price float64, at time.Time)
	Indicators() types.IndicatorSnapshot
}

// QuoteProvider optionally supplies a live bid for a contract side. When no
// quote is available the engine falls back to model pricing.
type QuoteProvider interface {
	BestBid(direction types.Direction) (price float64, ok bool)
}

// Emitter receives entry and exit commands for execution and persistence.
type Emitter interface {
	EmitEntry(types.EntryCommand) error
	EmitExit(types.ExitCommand) error
}

// Config holds the controller's operational knobs, injected from env config.
type Config struct {
	PollInterval    time.Duration
	StaleAfter      time.Duration // reject entries on ticks older than this
	CapitalPerTrade float64       // dollar cap per entry
	MaxDailyLoss    float64       // stop opening once daily P&L breaches this
}

// Stats tracks realized results across closed positions.
type Stats struct {
	Total  int
	Wins   int
	Losses int
	Profit float64
}

// WinRate returns the win percentage over closed trades.
func (s Stats) WinRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Total) * 100
}

// Controller owns the open-position set and the per-window dedup map. Build
// one per strategy family; nothing here is process-global.
type Controller struct {
	mu sync.Mutex

	cfg      Config
	schedule fees.Schedule
	exits    *engine.Engine
	market   MarketData
	quotes   QuoteProvider // may be nil
	emitter  Emitter
	sources  []SignalSource

	positions  map[string]*types.Position
	traded     map[string]time.Time // strategy|window → when marked
	lastActive map[string]bool

	dailyPnL float64
	dailyDay int
	stats    Stats

	clock   func() time.Time
	running bool
	stopCh  chan struct{}
}

// New creates a controller. quotes may be nil when no live order book exists.
func New(cfg Config, schedule fees.Schedule, exits *engine.Engine, market MarketData, quotes QuoteProvider, emitter Emitter, sources []SignalSource) *Controller {
	return &Controller{
		cfg:        cfg,
		schedule:   schedule,
		exits:      exits,
		market:     market,
		quotes:     quotes,
		emitter:    emitter,
		sources:    sources,
		positions:  make(map[string]*types.Position),
		traded:     make(map[string]time.Time),
		lastActive: make(map[string]bool),
		clock:      time.Now,
		stopCh:     make(chan struct{}),
	}
}

// Start begins the polling loop.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.stopCh = make(chan struct{}) // fresh channel: Start may follow a Stop
	stopCh := c.stopCh
	c.mu.Unlock()

	go c.loop(stopCh)
	log.Info().
		Dur("interval", c.cfg.PollInterval).
		Int("sources", len(c.sources)).
		Msg("🤖 Auto-trade controller started")
}

// Stop halts the polling loop.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	close(c.stopCh)
	log.Info().Msg("Auto-trade controller stopped")
}

func (c *Controller) loop(stopCh <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Tick runs one full evaluation pass. Exported so tests and a manual
// trigger can drive the controller without the ticker.
func (c *Controller) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	c.resetDailyIfNeeded(now)

	window := windowID(now)
	minutes := minutesRemaining(now)

	spot, at := c.market.Spot()
	stale := spot <= 0 || now.Sub(at) > c.cfg.StaleAfter
	if stale {
		log.Warn().
			Float64("spot", spot).
			Time("tick_at", at).
			Msg("⚠️ Price feed stale, skipping signal-driven decisions")
	}

	ind := c.market.Indicators()

	// Settle and re-evaluate what we hold before considering new entries, so
	// a position opened this tick is first judged on the next one.
	c.checkExits(window, minutes, spot, ind.VolatilityPct, stale)
	if !stale {
		c.checkEntries(now, window, spot)
	}
	c.purgeTraded(now)
}

// checkEntries opens positions on inactive→active signal transitions.
// Caller holds the mutex.
func (c *Controller) checkEntries(now time.Time, window string, spot float64) {
	for _, src := range c.sources {
		name := src.Name()
		sig := src.Current()

		wasActive := c.lastActive[name]
		c.lastActive[name] = sig.Active
		if !sig.Active || wasActive {
			continue
		}

		if err := validateSignal(sig); err != nil {
			log.Error().Err(err).Str("strategy", name).Msg("Malformed signal rejected")
			continue
		}
		if c.hasOpenPosition(name) {
			log.Debug().Str("strategy", name).Msg("Signal edge ignored: position already open")
			continue
		}
		key := tradedKey(name, window)
		if _, done := c.traded[key]; done {
			log.Debug().Str("strategy", name).Str("window", window).Msg("Signal edge ignored: already traded this window")
			continue
		}
		if c.cfg.MaxDailyLoss > 0 && c.dailyPnL <= -c.cfg.MaxDailyLoss {
			log.Warn().
				Float64("daily_pnl", c.dailyPnL).
				Float64("max_daily_loss", c.cfg.MaxDailyLoss).
				Msg("🛑 Daily loss limit hit, no new entries")
			continue
		}

		contracts := sig.Contracts
		if c.cfg.CapitalPerTrade > 0 {
			// Nudge before truncating so 20/0.40 reads 50, not 49.
			maxContracts := int(c.cfg.CapitalPerTrade/sig.EntryPrice + 1e-9)
			if contracts > maxContracts {
				contracts = maxContracts
			}
		}
		if contracts < 1 {
			log.Debug().Str("strategy", name).Msg("Capital cap leaves no room for a contract")
			continue
		}

		entry := c.schedule.Breakdown(contracts, sig.EntryPrice, 0, types.ExitSettlement)
		pos := types.Position{
			ID:         uuid.NewString(),
			Strategy:   name,
			Direction:  sig.Direction,
			Strike:     sig.Strike,
			EntryPrice: sig.EntryPrice,
			Contracts:  contracts,
			TotalCost:  entry.TotalCost,
			EntrySpot:  spot,
			WindowID:   window,
			EntryTime:  now,
		}

		// Mark before emitting: a flaky emitter must not cause a re-entry
		// storm on subsequent ticks.
		c.traded[key] = now

		if err := c.emitter.EmitEntry(types.EntryCommand{Position: pos}); err != nil {
			log.Error().Err(err).Str("strategy", name).Msg("Entry emission failed")
			continue
		}

		c.positions[pos.ID] = &pos
		log.Info().
			Str("strategy", name).
			Str("direction", string(pos.Direction)).
			Float64("strike", pos.Strike).
			Float64("entry", pos.EntryPrice).
			Int("contracts", pos.Contracts).
			Str("reason", sig.Reason).
			Msg("🎯 Position opened")
	}
}

// checkExits settles rolled-over positions and applies the exit engine to
// the rest. Caller holds the mutex.
func (c *Controller) checkExits(window string, minutes, spot, volPct float64, stale bool) {
	for id, pos := range c.positions {
		if pos.WindowID != window {
			if stale {
				// Can't judge the settlement spot; retry on the next fresh tick.
				continue
			}
			// The window closed under us: settlement is authoritative and
			// bypasses the engine entirely.
			exitPrice := 0.0
			if pos.Wins(spot) {
				exitPrice = 1.0
			}
			net := c.schedule.Breakdown(pos.Contracts, pos.EntryPrice, exitPrice, types.ExitSettlement).NetPnL
			c.closePosition(id, *pos, types.ExitCommand{
				PositionID: id,
				Strategy:   pos.Strategy,
				ExitPrice:  exitPrice,
				ExitType:   types.ExitSettlement,
				NetPnL:     net,
				Reason:     fmt.Sprintf("window %s settled at spot $%.0f", pos.WindowID, spot),
			})
			continue
		}

		if stale {
			continue
		}

		var bid *float64
		if c.quotes != nil {
			if b, ok := c.quotes.BestBid(pos.Direction); ok {
				bid = &b
			}
		}

		analysis := c.exits.Analyze(*pos, spot, minutes, volPct, bid)
		if !analysis.ShouldExit {
			log.Debug().
				Str("strategy", pos.Strategy).
				Str("reason", analysis.Reason).
				Msg("Holding position")
			continue
		}

		c.closePosition(id, *pos, types.ExitCommand{
			PositionID: id,
			Strategy:   pos.Strategy,
			ExitPrice:  analysis.CurrentValue,
			ExitType:   types.ExitEarly,
			NetPnL:     analysis.ExpectedNetPnL,
			Reason:     analysis.Reason,
		})
	}
}

// closePosition emits the exit and, on success, retires the position and
// books the P&L. On failure the position stays for the next tick.
func (c *Controller) closePosition(id string, pos types.Position, cmd types.ExitCommand) {
	if err := c.emitter.EmitExit(cmd); err != nil {
		log.Error().Err(err).Str("strategy", pos.Strategy).Msg("Exit emission failed, retrying next tick")
		return
	}

	delete(c.positions, id)
	c.dailyPnL += cmd.NetPnL
	c.stats.Total++
	if cmd.NetPnL > 0 {
		c.stats.Wins++
	} else {
		c.stats.Losses++
	}
	c.stats.Profit += cmd.NetPnL

	log.Info().
		Str("strategy", pos.Strategy).
		Str("exit_type", string(cmd.ExitType)).
		Float64("exit_price", cmd.ExitPrice).
		Float64("net_pnl", cmd.NetPnL).
		Str("reason", cmd.Reason).
		Msg("💰 Position closed")
}

func (c *Controller) hasOpenPosition(strategy string) bool {
	for _, pos := range c.positions {
		if pos.Strategy == strategy {
			return true
		}
	}
	return false
}

// purgeTraded drops dedup keys older than two windows.
func (c *Controller) purgeTraded(now time.Time) {
	for key, at := range c.traded {
		if now.Sub(at) > 2*time.Hour {
			delete(c.traded, key)
		}
	}
}

func (c *Controller) resetDailyIfNeeded(now time.Time) {
	if day := now.YearDay(); day != c.dailyDay {
		c.dailyDay = day
		c.dailyPnL = 0
	}
}

// OpenPositions returns a snapshot of open positions.
func (c *Controller) OpenPositions() []types.Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Position, 0, len(c.positions))
	for _, pos := range c.positions {
		out = append(out, *pos)
	}
	return out
}

// GetStats returns realized trading statistics.
func (c *Controller) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func validateSignal(sig types.Signal) error {
	if sig.Direction != types.DirectionYes && sig.Direction != types.DirectionNo {
		return fmt.Errorf("unknown direction %q", sig.Direction)
	}
	if sig.EntryPrice <= 0 || sig.EntryPrice >= 1 {
		return fmt.Errorf("entry price %.4f outside (0,1)", sig.EntryPrice)
	}
	if sig.Contracts < 1 {
		return fmt.Errorf("contract count %d below 1", sig.Contracts)
	}
	if sig.Strike <= 0 {
		return fmt.Errorf("non-positive strike %.2f", sig.Strike)
	}
	return nil
}

func tradedKey(strategy, window string) string {
	return strategy + "|" + window
}

// windowID identifies the hourly settlement window containing t.
func windowID(t time.Time) string {
	return t.Format("2006-01-02-15")
}

// minutesRemaining is the time left in the current hourly window.
func minutesRemaining(t time.Time) float64 {
	elapsed := float64(t.Minute()) + float64(t.Second())/60
	return 60 - elapsed
}

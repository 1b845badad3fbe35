package feeds

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/strikeloop/kalshibot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// BINANCE PRICE FEED - Real-time BTC spot + 1m candles
// ═══════════════════════════════════════════════════════════════════════════════
//
// Spot comes off the miniTicker WebSocket stream; candles are refreshed over
// REST once a minute and drive the indicator tracker. Spot() exposes the tick
// timestamp so the controller can detect staleness.
//
// ═══════════════════════════════════════════════════════════════════════════════

const (
	binanceWSBase   = "wss://stream.binance.com:9443/ws"
	binanceRESTBase = "https://api.binance.com"

	klineRefreshInterval = time.Minute
	klineHistoryBars     = 120 // two hours of 1m bars
	reconnectBackoff     = 3 * time.Second
)

// BinanceFeed streams spot prices and maintains a rolling candle series.
type BinanceFeed struct {
	mu     sync.RWMutex
	symbol string // e.g. "BTCUSDT"

	price   decimal.Decimal
	priceAt time.Time
	candles []types.Candle
	tracker *IndicatorTracker

	running bool
	stopCh  chan struct{}
}

// NewBinanceFeed creates a feed for the given symbol.
func NewBinanceFeed(symbol string) *BinanceFeed {
	return &BinanceFeed{
		symbol:  symbol,
		tracker: NewIndicatorTracker(),
		stopCh:  make(chan struct{}),
	}
}

// Start bootstraps the candle history and launches the stream loops.
func (f *BinanceFeed) Start() error {
	if err := f.refreshKlines(); err != nil {
		return fmt.Errorf("bootstrap klines: %w", err)
	}

	f.mu.Lock()
	f.running = true
	f.mu.Unlock()

	go f.streamLoop()
	go f.klineLoop()

	log.Info().Str("symbol", f.symbol).Msg("📡 Binance feed started")
	return nil
}

// Stop halts the feed.
func (f *BinanceFeed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return
	}
	f.running = false
	close(f.stopCh)
}

// Spot returns the latest price and when it was observed.
func (f *BinanceFeed) Spot() (float64, time.Time) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.price.InexactFloat64(), f.priceAt
}

// Indicators returns the latest rolling indicator snapshot.
func (f *BinanceFeed) Indicators() types.IndicatorSnapshot {
	return f.tracker.Snapshot()
}

// Candles returns a copy of the rolling 1m candle series, oldest first.
func (f *BinanceFeed) Candles() []types.Candle {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]types.Candle, len(f.candles))
	copy(out, f.candles)
	return out
}

// miniTicker is the subset of Binance's miniTicker event we consume.
type miniTicker struct {
	EventTime int64  `json:"E"`
	Close     string `json:"c"`
}

func (f *BinanceFeed) streamLoop() {
	url := fmt.Sprintf("%s/%s@miniTicker", binanceWSBase, strings.ToLower(f.symbol))

	for {
		select {
		case <-f.stopCh:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			log.Error().Err(err).Msg("Binance WS dial failed, retrying")
			select {
			case <-f.stopCh:
				return
			case <-time.After(reconnectBackoff):
			}
			continue
		}

		f.readMessages(conn)
		conn.Close()
	}
}

func (f *BinanceFeed) readMessages(conn *websocket.Conn) {
	for {
		select {
		case <-f.stopCh:
			return
		default:
		}

		var tick miniTicker
		if err := conn.ReadJSON(&tick); err != nil {
			log.Warn().Err(err).Msg("Binance WS read error, reconnecting")
			return
		}

		price, err := decimal.NewFromString(tick.Close)
		if err != nil {
			continue
		}

		f.mu.Lock()
		f.price = price
		f.priceAt = time.UnixMilli(tick.EventTime)
		f.mu.Unlock()
	}
}

func (f *BinanceFeed) klineLoop() {
	ticker := time.NewTicker(klineRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stopCh:
			return
		case <-ticker.C:
			if err := f.refreshKlines(); err != nil {
				log.Warn().Err(err).Msg("Kline refresh failed")
			}
		}
	}
}

// refreshKlines pulls the latest 1m bars and rebuilds the indicator state.
func (f *BinanceFeed) refreshKlines() error {
	url := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=1m&limit=%d",
		binanceRESTBase, f.symbol, klineHistoryBars)

	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("klines: status %d", resp.StatusCode)
	}

	// Binance klines are positional arrays:
	// [openTime, open, high, low, close, volume, ...]
	var raw [][]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return err
	}

	candles := make([]types.Candle, 0, len(raw))
	for _, k := range raw {
		if len(k) < 6 {
			continue
		}
		openTime, ok := k[0].(float64)
		if !ok {
			continue
		}
		c := types.Candle{Timestamp: time.UnixMilli(int64(openTime))}
		var convErr error
		c.Open, convErr = klineDecimal(k[1], convErr)
		c.High, convErr = klineDecimal(k[2], convErr)
		c.Low, convErr = klineDecimal(k[3], convErr)
		c.Close, convErr = klineDecimal(k[4], convErr)
		c.Volume, convErr = klineDecimal(k[5], convErr)
		if convErr != nil {
			continue
		}
		candles = append(candles, c)
	}

	f.mu.Lock()
	f.candles = candles
	f.mu.Unlock()

	f.tracker.Update(candles)
	return nil
}

func klineDecimal(v interface{}, prev error) (decimal.Decimal, error) {
	if prev != nil {
		return decimal.Zero, prev
	}
	s, ok := v.(string)
	if !ok {
		return decimal.Zero, fmt.Errorf("unexpected kline field type %T", v)
	}
	return decimal.NewFromString(s)
}

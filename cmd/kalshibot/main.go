// kalshibot prices hourly BTC Up/Down binary contracts and decides, every
// few seconds, whether each open position should be held to settlement or
// sold early net of fees.
//
// Pipeline:
//  1. Binance spot + 1m candles feed a closed-form fair value model
//  2. The risk engine classifies each position's risk of ruin
//  3. The exit engine turns fees + risk + clock into HOLD/EXIT verdicts
//  4. The controller opens on signal edges (once per strategy per window)
//     and settles positions at window boundaries
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/strikeloop/kalshibot/bot"
	"github.com/strikeloop/kalshibot/engine"
	"github.com/strikeloop/kalshibot/exec"
	"github.com/strikeloop/kalshibot/feeds"
	"github.com/strikeloop/kalshibot/internal/config"
	"github.com/strikeloop/kalshibot/storage"
	"github.com/strikeloop/kalshibot/strategy"
	"github.com/strikeloop/kalshibot/trader"
)

const version = "1.2.0"

func main() {
	godotenv.Load()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Configuration error")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().Str("version", version).Str("symbol", cfg.Symbol).Msg("🚀 kalshibot starting")

	// Persistence is best-effort; the decision loop runs without it.
	db, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		log.Warn().Err(err).Msg("Running without persistence")
		db = nil
	}

	feed := feeds.NewBinanceFeed(cfg.Symbol)
	if err := feed.Start(); err != nil {
		log.Fatal().Err(err).Msg("Price feed failed to start")
	}
	defer feed.Stop()

	schedule := cfg.Schedule()
	exits := engine.New(schedule, cfg.Thresholds())

	momentum := strategy.NewMomentum(strategy.MomentumConfig{
		MinMovePct:    cfg.MinMovePct,
		MinConfidence: cfg.MinConfidence,
		Contracts:     cfg.Contracts,
	}, feed)

	executor := exec.NewPaperExecutor(db, nil)

	controller := trader.New(
		trader.Config{
			PollInterval:    cfg.PollInterval,
			StaleAfter:      cfg.StaleAfter,
			CapitalPerTrade: cfg.CapitalPerTrade,
			MaxDailyLoss:    cfg.MaxDailyLoss,
		},
		schedule,
		exits,
		feed,
		nil, // no live order book: the engine prices exits off the model
		executor,
		[]trader.SignalSource{momentum},
	)

	if cfg.TelegramToken != "" {
		tg, err := bot.New(cfg.TelegramToken, cfg.TelegramChatID, controller)
		if err != nil {
			log.Warn().Err(err).Msg("Telegram disabled")
		} else {
			tg.SetControlHandlers(controller.Stop, controller.Start)
			tg.Start()
			defer tg.Stop()
			executor.SetNotifier(tg)
		}
	}

	controller.Start()
	defer controller.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("Shutting down")
}

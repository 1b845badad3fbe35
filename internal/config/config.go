package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/strikeloop/kalshibot/engine"
	"github.com/strikeloop/kalshibot/fees"
)

// Config holds all configuration for the bot.
type Config struct {
	// Market
	Symbol string

	// Mode
	Debug bool

	// Fees
	FeeSchedule string // "kalshi" or "percentage"
	TakerFeePct float64

	// Controller
	PollInterval    time.Duration
	StaleAfter      time.Duration
	CapitalPerTrade float64
	MaxDailyLoss    float64

	// Momentum source
	Contracts     int
	MinMovePct    float64
	MinConfidence float64

	// Exit engine thresholds (calibration parameters, see engine.Thresholds)
	ProfitLockRatio      float64
	ProfitLockMinPrice   float64
	ProfitLockMinGainPct float64
	LateWindowMinutes    float64
	ProbStopMinutes      float64
	ProbStopWinProb      float64
	HighRiskMinutes      float64
	HighRiskHoldRatio    float64
	EarlyHoldMinutes     float64
	ExitCaptureRatio     float64
	MinExitPrice         float64

	// Telegram
	TelegramToken  string
	TelegramChatID int64

	// Database
	DatabasePath string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	defaults := engine.DefaultThresholds()

	cfg := &Config{
		Symbol: getEnv("SYMBOL", "BTCUSDT"),
		Debug:  getEnvBool("DEBUG", false),

		FeeSchedule: getEnv("FEE_SCHEDULE", "kalshi"),
		TakerFeePct: getEnvFloat("TAKER_FEE_PCT", 2.0),

		PollInterval:    getEnvDuration("POLL_INTERVAL", 5*time.Second),
		StaleAfter:      getEnvDuration("PRICE_STALE_AFTER", 30*time.Second),
		CapitalPerTrade: getEnvFloat("CAPITAL_PER_TRADE", 100),
		MaxDailyLoss:    getEnvFloat("MAX_DAILY_LOSS", 300),

		Contracts:     getEnvInt("CONTRACTS_PER_TRADE", 100),
		MinMovePct:    getEnvFloat("MIN_MOVE_PCT", 0.25),
		MinConfidence: getEnvFloat("MIN_CONFIDENCE", 0.55),

		ProfitLockRatio:      getEnvFloat("PROFIT_LOCK_RATIO", defaults.ProfitLockRatio),
		ProfitLockMinPrice:   getEnvFloat("PROFIT_LOCK_MIN_PRICE", defaults.ProfitLockMinPrice),
		ProfitLockMinGainPct: getEnvFloat("PROFIT_LOCK_MIN_GAIN_PCT", defaults.ProfitLockMinGainPct),
		LateWindowMinutes:    getEnvFloat("LATE_WINDOW_MINUTES", defaults.LateWindowMinutes),
		ProbStopMinutes:      getEnvFloat("PROB_STOP_MINUTES", defaults.ProbStopMinutes),
		ProbStopWinProb:      getEnvFloat("PROB_STOP_WIN_PROB", defaults.ProbStopWinProb),
		HighRiskMinutes:      getEnvFloat("HIGH_RISK_MINUTES", defaults.HighRiskMinutes),
		HighRiskHoldRatio:    getEnvFloat("HIGH_RISK_HOLD_RATIO", defaults.HighRiskHoldRatio),
		EarlyHoldMinutes:     getEnvFloat("EARLY_HOLD_MINUTES", defaults.EarlyHoldMinutes),
		ExitCaptureRatio:     getEnvFloat("EXIT_CAPTURE_RATIO", defaults.ExitCaptureRatio),
		MinExitPrice:         getEnvFloat("MIN_EXIT_PRICE", defaults.MinExitPrice),

		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		DatabasePath: getEnv("DATABASE_PATH", "data/kalshibot.db"),
	}

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	// Fail fast on an unknown schedule: configuration errors surface here,
	// never inside the decision engine.
	if _, ok := fees.ForName(cfg.FeeSchedule, cfg.TakerFeePct); !ok {
		return nil, fmt.Errorf("unknown FEE_SCHEDULE %q", cfg.FeeSchedule)
	}

	return cfg, nil
}

// Schedule builds the configured fee schedule.
func (c *Config) Schedule() fees.Schedule {
	sched, _ := fees.ForName(c.FeeSchedule, c.TakerFeePct)
	return sched
}

// Thresholds builds the exit engine thresholds.
func (c *Config) Thresholds() engine.Thresholds {
	return engine.Thresholds{
		ProfitLockRatio:      c.ProfitLockRatio,
		ProfitLockMinPrice:   c.ProfitLockMinPrice,
		ProfitLockMinGainPct: c.ProfitLockMinGainPct,
		LateWindowMinutes:    c.LateWindowMinutes,
		ProbStopMinutes:      c.ProbStopMinutes,
		ProbStopWinProb:      c.ProbStopWinProb,
		HighRiskMinutes:      c.HighRiskMinutes,
		HighRiskHoldRatio:    c.HighRiskHoldRatio,
		EarlyHoldMinutes:     c.EarlyHoldMinutes,
		ExitCaptureRatio:     c.ExitCaptureRatio,
		MinExitPrice:         c.MinExitPrice,
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

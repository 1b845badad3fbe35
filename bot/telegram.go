package bot

import (
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/strikeloop/kalshibot/trader"
	"github.com/strikeloop/kalshibot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TELEGRAM BOT - Trade notifications & control
// ═══════════════════════════════════════════════════════════════════════════════
//
// Pushes entry/exit alerts and answers /status, /stats, /positions, /pause,
// /resume. Notification-only collaborator: it never makes trading decisions.
//
// ═══════════════════════════════════════════════════════════════════════════════

// StatusProvider exposes the controller state the bot reports on.
type StatusProvider interface {
	GetStats() trader.Stats
	OpenPositions() []types.Position
}

// TelegramBot manages the Telegram interface.
type TelegramBot struct {
	mu      sync.RWMutex
	api     *tgbotapi.BotAPI
	chatID  int64
	status  StatusProvider
	running bool
	stopCh  chan struct{}

	onPause  func()
	onResume func()
}

// New creates the bot. An empty token is a configuration error; callers that
// want to run without Telegram simply skip constructing the bot.
func New(token string, chatID int64, status StatusProvider) (*TelegramBot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token is empty")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}

	log.Info().Str("bot", api.Self.UserName).Msg("📱 Telegram bot connected")
	return &TelegramBot{
		api:    api,
		chatID: chatID,
		status: status,
		stopCh: make(chan struct{}),
	}, nil
}

// SetControlHandlers wires the /pause and /resume commands.
func (b *TelegramBot) SetControlHandlers(onPause, onResume func()) {
	b.onPause = onPause
	b.onResume = onResume
}

// Start begins listening for commands.
func (b *TelegramBot) Start() {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return
	}
	b.running = true
	b.mu.Unlock()

	go b.commandLoop()
}

// Stop halts the command loop.
func (b *TelegramBot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		return
	}
	b.running = false
	close(b.stopCh)
}

func (b *TelegramBot) commandLoop() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-b.stopCh:
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			b.handleCommand(update.Message)
		}
	}
}

func (b *TelegramBot) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "status":
		b.send(b.formatStatus())
	case "stats":
		b.send(b.formatStats())
	case "positions":
		b.send(b.formatPositions())
	case "pause":
		if b.onPause != nil {
			b.onPause()
			b.send("⏸ Auto-trading paused")
		}
	case "resume":
		if b.onResume != nil {
			b.onResume()
			b.send("▶️ Auto-trading resumed")
		}
	default:
		b.send("Commands: /status /stats /positions /pause /resume")
	}
}

// NotifyEntry implements exec.Notifier.
func (b *TelegramBot) NotifyEntry(pos types.Position) {
	dirEmoji := "🟢"
	if pos.Direction == types.DirectionNo {
		dirEmoji = "🔴"
	}
	b.send(fmt.Sprintf(`%s *Entry: %s %s*

🎯 Strike: $%.0f
💰 Entry: %.0f¢ × %d contracts
💵 Total cost: $%.2f
🪟 Window: %s`,
		dirEmoji, pos.Strategy, pos.Direction,
		pos.Strike,
		pos.EntryPrice*100, pos.Contracts,
		pos.TotalCost,
		pos.WindowID,
	))
}

// NotifyExit implements exec.Notifier.
func (b *TelegramBot) NotifyExit(cmd types.ExitCommand) {
	resultEmoji := "✅"
	if cmd.NetPnL <= 0 {
		resultEmoji = "❌"
	}
	b.send(fmt.Sprintf(`%s *Exit: %s (%s)*

💰 Exit price: %.0f¢
📈 Net P&L: $%+.2f

📋 %s`,
		resultEmoji, cmd.Strategy, cmd.ExitType,
		cmd.ExitPrice*100,
		cmd.NetPnL,
		cmd.Reason,
	))
}

func (b *TelegramBot) formatStatus() string {
	positions := b.status.OpenPositions()
	stats := b.status.GetStats()
	return fmt.Sprintf(`🤖 *kalshibot status*

📊 Open positions: %d
📈 Closed trades: %d
💰 Total P&L: $%+.2f`,
		len(positions), stats.Total, stats.Profit)
}

func (b *TelegramBot) formatStats() string {
	s := b.status.GetStats()
	return fmt.Sprintf(`📊 *Trading stats*

📈 Total: %d
✅ Won: %d
❌ Lost: %d
🎯 Win rate: %.1f%%

💰 P&L: $%+.2f`,
		s.Total, s.Wins, s.Losses, s.WinRate(), s.Profit)
}

func (b *TelegramBot) formatPositions() string {
	positions := b.status.OpenPositions()
	if len(positions) == 0 {
		return "No open positions"
	}
	out := "📂 *Open positions*\n"
	for _, p := range positions {
		out += fmt.Sprintf("\n• %s %s strike $%.0f, %d × %.0f¢ (window %s)",
			p.Strategy, p.Direction, p.Strike, p.Contracts, p.EntryPrice*100, p.WindowID)
	}
	return out
}

func (b *TelegramBot) send(text string) {
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := b.api.Send(msg); err != nil {
		log.Warn().Err(err).Msg("Telegram send failed")
	}
}

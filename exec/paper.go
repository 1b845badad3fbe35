package exec

import (
	"github.com/rs/zerolog/log"

	"github.com/strikeloop/kalshibot/storage"
	"github.com/strikeloop/kalshibot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PAPER EXECUTOR - The boundary between decisions and the real exchange
// ═══════════════════════════════════════════════════════════════════════════════
//
// Receives the controller's entry/exit commands, persists them and pushes
// notifications. Swapping in a real order router means implementing the same
// Emitter interface against the exchange API; nothing upstream changes.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Notifier pushes human-facing trade alerts. Telegram in production.
type Notifier interface {
	NotifyEntry(pos types.Position)
	NotifyExit(cmd types.ExitCommand)
}

// PaperExecutor records fills without touching an exchange.
type PaperExecutor struct {
	db       *storage.Database // nil disables persistence
	notifier Notifier          // nil disables notifications
}

// NewPaperExecutor creates the executor. Both collaborators are optional.
func NewPaperExecutor(db *storage.Database, notifier Notifier) *PaperExecutor {
	return &PaperExecutor{db: db, notifier: notifier}
}

// SetNotifier attaches a notifier after construction, for collaborators that
// come up later in the wiring (the Telegram bot needs the controller first).
func (x *PaperExecutor) SetNotifier(n Notifier) {
	x.notifier = n
}

// EmitEntry records a simulated fill at the signal's entry price.
func (x *PaperExecutor) EmitEntry(cmd types.EntryCommand) error {
	pos := cmd.Position

	if err := x.db.SaveEntry(pos); err != nil {
		return err
	}

	log.Info().
		Str("id", pos.ID).
		Str("strategy", pos.Strategy).
		Str("direction", string(pos.Direction)).
		Float64("entry", pos.EntryPrice).
		Int("contracts", pos.Contracts).
		Msg("🧪 Paper entry filled")

	if x.notifier != nil {
		x.notifier.NotifyEntry(pos)
	}
	return nil
}

// EmitExit records a simulated close at the commanded price.
func (x *PaperExecutor) EmitExit(cmd types.ExitCommand) error {
	if err := x.db.SaveExit(cmd); err != nil {
		return err
	}

	log.Info().
		Str("id", cmd.PositionID).
		Str("exit_type", string(cmd.ExitType)).
		Float64("exit_price", cmd.ExitPrice).
		Float64("net_pnl", cmd.NetPnL).
		Msg("🧪 Paper exit filled")

	if x.notifier != nil {
		x.notifier.NotifyExit(cmd)
	}
	return nil
}

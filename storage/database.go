package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/strikeloop/kalshibot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DATABASE - Trade persistence layer
// ═══════════════════════════════════════════════════════════════════════════════
//
// Postgres when DATABASE_URL is set, embedded sqlite otherwise. Persistence
// is best-effort: a nil *Database is a valid no-op sink so the trading loop
// never depends on the disk.
//
// ═══════════════════════════════════════════════════════════════════════════════

type Database struct {
	db *gorm.DB
}

// Position is the persisted form of an open or closed position.
type Position struct {
	ID         string `gorm:"primaryKey"`
	Strategy   string `gorm:"index"`
	Direction  string
	Strike     decimal.Decimal `gorm:"type:decimal(20,2)"`
	EntryPrice decimal.Decimal `gorm:"type:decimal(10,6)"`
	Contracts  int
	TotalCost  decimal.Decimal `gorm:"type:decimal(20,6)"`
	EntrySpot  decimal.Decimal `gorm:"type:decimal(20,2)"`
	WindowID   string          `gorm:"index"`
	Status     string          `gorm:"index"` // open, closed
	ExitPrice  decimal.Decimal `gorm:"type:decimal(10,6)"`
	ExitType   string
	PnL        decimal.Decimal `gorm:"type:decimal(20,6)"`
	Reason     string
	OpenedAt   time.Time
	ClosedAt   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DailyStat is a per-day rollup of realized results.
type DailyStat struct {
	Date   string `gorm:"primaryKey"` // YYYY-MM-DD
	Trades int
	Wins   int
	Losses int
	PnL    decimal.Decimal `gorm:"type:decimal(20,6)"`
}

// Open connects to postgres via DATABASE_URL or to a local sqlite file.
func Open(sqlitePath string) (*Database, error) {
	var dialector gorm.Dialector
	if url := os.Getenv("DATABASE_URL"); url != "" {
		dialector = postgres.Open(url)
	} else {
		if dir := filepath.Dir(sqlitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database dir: %w", err)
			}
		}
		dialector = sqlite.Open(sqlitePath)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(&Position{}, &DailyStat{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Msg("💾 Database connected")
	return &Database{db: db}, nil
}

// SaveEntry records a freshly opened position.
func (d *Database) SaveEntry(pos types.Position) error {
	if d == nil {
		return nil
	}
	row := Position{
		ID:         pos.ID,
		Strategy:   pos.Strategy,
		Direction:  string(pos.Direction),
		Strike:     decimal.NewFromFloat(pos.Strike),
		EntryPrice: decimal.NewFromFloat(pos.EntryPrice),
		Contracts:  pos.Contracts,
		TotalCost:  decimal.NewFromFloat(pos.TotalCost),
		EntrySpot:  decimal.NewFromFloat(pos.EntrySpot),
		WindowID:   pos.WindowID,
		Status:     "open",
		OpenedAt:   pos.EntryTime,
	}
	return d.db.Create(&row).Error
}

// SaveExit closes a persisted position and bumps the daily rollup.
func (d *Database) SaveExit(cmd types.ExitCommand) error {
	if d == nil {
		return nil
	}
	now := time.Now()
	err := d.db.Model(&Position{}).Where("id = ?", cmd.PositionID).Updates(map[string]interface{}{
		"status":     "closed",
		"exit_price": decimal.NewFromFloat(cmd.ExitPrice),
		"exit_type":  string(cmd.ExitType),
		"pn_l":       decimal.NewFromFloat(cmd.NetPnL),
		"reason":     cmd.Reason,
		"closed_at":  now,
	}).Error
	if err != nil {
		return err
	}
	return d.bumpDailyStat(now, cmd.NetPnL)
}

func (d *Database) bumpDailyStat(now time.Time, pnl float64) error {
	date := now.Format("2006-01-02")

	var stat DailyStat
	if err := d.db.Where("date = ?", date).First(&stat).Error; err != nil {
		stat = DailyStat{Date: date, PnL: decimal.Zero}
	}
	stat.Trades++
	if pnl > 0 {
		stat.Wins++
	} else {
		stat.Losses++
	}
	stat.PnL = stat.PnL.Add(decimal.NewFromFloat(pnl))

	return d.db.Save(&stat).Error
}

// RecentTrades returns the latest closed trades, newest first.
func (d *Database) RecentTrades(limit int) ([]types.TradeRecord, error) {
	if d == nil {
		return nil, nil
	}
	var rows []Position
	err := d.db.Where("status = ?", "closed").
		Order("closed_at desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]types.TradeRecord, 0, len(rows))
	for _, r := range rows {
		rec := types.TradeRecord{
			ID:        r.ID,
			Strategy:  r.Strategy,
			Direction: types.Direction(r.Direction),
			Strike:    r.Strike.InexactFloat64(),
			Entry:     r.EntryPrice,
			Exit:      r.ExitPrice,
			Contracts: r.Contracts,
			PnL:       r.PnL,
			ExitType:  types.ExitType(r.ExitType),
		}
		if r.ClosedAt != nil {
			rec.Timestamp = *r.ClosedAt
		}
		out = append(out, rec)
	}
	return out, nil
}

// TodayStats returns the current day's rollup, zero-valued when absent.
func (d *Database) TodayStats() (DailyStat, error) {
	if d == nil {
		return DailyStat{}, nil
	}
	date := time.Now().Format("2006-01-02")
	var stat DailyStat
	if err := d.db.Where("date = ?", date).First(&stat).Error; err != nil {
		return DailyStat{Date: date, PnL: decimal.Zero}, nil
	}
	return stat, nil
}

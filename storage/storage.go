// Package storage keeps per-user usage counters. It deliberately stores no
// sessions, credentials, or check results; only accounting survives a restart.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/evanlabs/checkerbot/core/logger"
)

// UserStats is one user's usage row.
type UserStats struct {
	TelegramID     int64     `db:"telegram_id"`
	FirstSeen      time.Time `db:"first_seen"`
	BatchesRun     int64     `db:"batches_run"`
	NumbersChecked int64     `db:"numbers_checked"`
}

// Totals aggregates usage across all users.
type Totals struct {
	Users          int64 `db:"users"`
	BatchesRun     int64 `db:"batches_run"`
	NumbersChecked int64 `db:"numbers_checked"`
}

// Store provides usage accounting over Postgres.
type Store struct {
	db *sqlx.DB
}

// New wraps the given database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Touch records first contact with a user. Existing rows are left untouched.
func (s *Store) Touch(ctx context.Context, telegramID int64) error {
	const q = `
		INSERT INTO usage_stats (telegram_id, first_seen, batches_run, numbers_checked)
		VALUES ($1, NOW(), 0, 0)
		ON CONFLICT (telegram_id) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, q, telegramID); err != nil {
		return fmt.Errorf("touch user %d: %w", telegramID, err)
	}
	return nil
}

// RecordBatch bumps the user's counters after a finished batch.
func (s *Store) RecordBatch(ctx context.Context, telegramID int64, numbersChecked int) error {
	const q = `
		INSERT INTO usage_stats (telegram_id, first_seen, batches_run, numbers_checked)
		VALUES ($1, NOW(), 1, $2)
		ON CONFLICT (telegram_id) DO UPDATE SET
			batches_run = usage_stats.batches_run + 1,
			numbers_checked = usage_stats.numbers_checked + EXCLUDED.numbers_checked`
	start := time.Now()
	_, err := s.db.ExecContext(ctx, q, telegramID, numbersChecked)
	if err != nil {
		logger.Error(ctx, "service.usage", "batch.record",
			slog.String("status", "fail"),
			slog.Int64("user_id", telegramID),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("record batch for %d: %w", telegramID, err)
	}
	logger.Debug(ctx, "service.usage", "batch.record",
		slog.String("status", "ok"),
		slog.Int64("user_id", telegramID),
		slog.Int("checked", numbersChecked),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// GetUserByTelegramID loads one user's counters. A user with no recorded
// usage gets a zero-value row, not an error.
func (s *Store) GetUserByTelegramID(ctx context.Context, telegramID int64) (UserStats, error) {
	var stats UserStats
	const q = `SELECT telegram_id, first_seen, batches_run, numbers_checked FROM usage_stats WHERE telegram_id = $1`
	err := s.db.GetContext(ctx, &stats, q, telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return UserStats{TelegramID: telegramID}, nil
	}
	if err != nil {
		return UserStats{}, fmt.Errorf("load stats for %d: %w", telegramID, err)
	}
	return stats, nil
}

// GlobalTotals aggregates usage across all users for the admin report.
func (s *Store) GlobalTotals(ctx context.Context) (Totals, error) {
	var totals Totals
	const q = `
		SELECT COUNT(*) AS users,
		       COALESCE(SUM(batches_run), 0) AS batches_run,
		       COALESCE(SUM(numbers_checked), 0) AS numbers_checked
		FROM usage_stats`
	if err := s.db.GetContext(ctx, &totals, q); err != nil {
		return Totals{}, fmt.Errorf("load usage totals: %w", err)
	}
	return totals, nil
}

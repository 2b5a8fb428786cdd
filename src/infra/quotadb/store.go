package quotadb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lunefort/tuneid/src/features/access"
	_ "github.com/mattn/go-sqlite3"
)

const minRetention = 48 * time.Hour

// Store is a persistent rolling-window quota policy backed by SQLite.
// Usage is bucketed per wall-clock hour; the window aggregate and the
// bucket increment run inside one immediate transaction so concurrent
// consumers can never both slip past the limit.
type Store struct {
	db     *sql.DB
	window time.Duration

	sweepMu   sync.Mutex
	lastSweep time.Time

	now func() time.Time
}

// NewStore opens (and if needed creates) the quota database at path.
// windowHours is the rolling accounting window; values below 1 fall back
// to 24 hours.
func NewStore(path string, windowHours int) (*Store, error) {
	if windowHours < 1 {
		windowHours = 24
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, err
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{
		db:     db,
		window: time.Duration(windowHours) * time.Hour,
		now:    time.Now,
	}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS quota_usage (
			user_id      TEXT NOT NULL,
			scope        TEXT NOT NULL,
			period_start INTEGER NOT NULL,
			period_end   INTEGER NOT NULL,
			usage_count  INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, scope, period_start)
		);

		CREATE INDEX IF NOT EXISTS idx_quota_usage_period_end
			ON quota_usage (period_end);
	`)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Consume implements access.QuotaPolicy. A scope without a configured
// limit is always permitted and never recorded.
func (s *Store) Consume(ctx context.Context, user *access.ServiceUser, scope access.QuotaScope, cost int) error {
	if user == nil {
		return nil
	}
	limit, limited := user.QuotaLimit(scope)
	if !limited {
		return nil
	}
	if cost < 0 {
		return fmt.Errorf("quota cost cannot be negative: %d", cost)
	}

	now := s.now()
	windowStart := now.Add(-s.window)
	binStart := now.Truncate(time.Hour)
	binEnd := binStart.Add(time.Hour)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin quota transaction: %w", err)
	}
	defer tx.Rollback()

	var usage int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(usage_count), 0)
		FROM quota_usage
		WHERE user_id = ? AND scope = ? AND period_end > ?`,
		user.UserID, string(scope), windowStart.Unix(),
	).Scan(&usage)
	if err != nil {
		return fmt.Errorf("read quota usage: %w", err)
	}

	if usage+cost > limit {
		return &access.QuotaError{
			UserID: user.UserID,
			Scope:  scope,
			Usage:  usage,
			Limit:  limit,
		}
	}

	if cost > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO quota_usage (user_id, scope, period_start, period_end, usage_count)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (user_id, scope, period_start)
			DO UPDATE SET usage_count = usage_count + excluded.usage_count`,
			user.UserID, string(scope), binStart.Unix(), binEnd.Unix(), cost,
		)
		if err != nil {
			return fmt.Errorf("record quota usage: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit quota usage: %w", err)
	}

	s.maybeSweep(ctx, now)
	return nil
}

// Usage returns the usage recorded for a user and scope within the window.
func (s *Store) Usage(ctx context.Context, userID string, scope access.QuotaScope) (int, error) {
	windowStart := s.now().Add(-s.window)
	var usage int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(usage_count), 0)
		FROM quota_usage
		WHERE user_id = ? AND scope = ? AND period_end > ?`,
		userID, string(scope), windowStart.Unix(),
	).Scan(&usage)
	if err != nil {
		return 0, fmt.Errorf("read quota usage: %w", err)
	}
	return usage, nil
}

// maybeSweep deletes buckets past the retention horizon. It runs
// opportunistically on the consume path, at most once per wall-clock hour,
// instead of on a dedicated timer.
func (s *Store) maybeSweep(ctx context.Context, now time.Time) {
	s.sweepMu.Lock()
	if now.Sub(s.lastSweep) < time.Hour {
		s.sweepMu.Unlock()
		return
	}
	s.lastSweep = now
	s.sweepMu.Unlock()

	retention := 2 * s.window
	if retention < minRetention {
		retention = minRetention
	}
	horizon := now.Add(-retention).Unix()

	res, err := s.db.ExecContext(ctx, `DELETE FROM quota_usage WHERE period_end < ?`, horizon)
	if err != nil {
		slog.Warn("Quota sweep failed", "error", err)
		return
	}
	if deleted, err := res.RowsAffected(); err == nil && deleted > 0 {
		slog.Debug("Quota sweep removed expired buckets", "deleted", deleted)
	}
}

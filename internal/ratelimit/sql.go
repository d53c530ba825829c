package ratelimit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Schema creates the table SQLStore expects.  The DSN must carry
// parseTime=true so reset_at scans into time.Time.
const Schema = `CREATE TABLE IF NOT EXISTS lead_rate_limit (
    rl_key   VARCHAR(191) NOT NULL PRIMARY KEY,
    hits     INT          NOT NULL,
    reset_at DATETIME(3)  NOT NULL,
    KEY idx_lead_rate_limit_reset (reset_at)
)`

const (
	selectWindowSQL = `SELECT hits, reset_at FROM lead_rate_limit WHERE rl_key = ? FOR UPDATE`
	openWindowSQL   = `INSERT INTO lead_rate_limit (rl_key, hits, reset_at) VALUES (?, 1, ?) ` +
		`ON DUPLICATE KEY UPDATE hits = 1, reset_at = VALUES(reset_at)`
	incrementSQL = `UPDATE lead_rate_limit SET hits = hits + 1 WHERE rl_key = ?`
	pruneSQL     = `DELETE FROM lead_rate_limit WHERE reset_at <= ?`
)

// SQLStore shares windows between replicas through a MySQL table.  Each Take
// runs in its own transaction and locks the key's row.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore wraps an open pool.
func NewSQLStore(db *sqlx.DB) *SQLStore { return &SQLStore{db: db} }

// EnsureSchema creates the table when missing.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create lead_rate_limit: %w", err)
	}
	return nil
}

type windowRow struct {
	Hits    int       `db:"hits"`
	ResetAt time.Time `db:"reset_at"`
}

// Take implements Store.
func (s *SQLStore) Take(ctx context.Context, key string, max int, window time.Duration, now time.Time) (w Window, allowed bool, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Window{}, false, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var row windowRow
	err = tx.GetContext(ctx, &row, selectWindowSQL, key)
	switch {
	case errors.Is(err, sql.ErrNoRows), err == nil && !row.ResetAt.After(now):
		w = Window{Count: 1, ResetAt: now.Add(window)}
		if _, err = tx.ExecContext(ctx, openWindowSQL, key, w.ResetAt); err != nil {
			return Window{}, false, fmt.Errorf("open window: %w", err)
		}
		allowed = true
	case err != nil:
		return Window{}, false, fmt.Errorf("select window: %w", err)
	case row.Hits >= max:
		w = Window{Count: row.Hits, ResetAt: row.ResetAt}
	default:
		if _, err = tx.ExecContext(ctx, incrementSQL, key); err != nil {
			return Window{}, false, fmt.Errorf("increment: %w", err)
		}
		w = Window{Count: row.Hits + 1, ResetAt: row.ResetAt}
		allowed = true
	}

	if err = tx.Commit(); err != nil {
		return Window{}, false, fmt.Errorf("commit: %w", err)
	}
	return w, allowed, nil
}

// Prune deletes windows that expired at or before now.
func (s *SQLStore) Prune(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, pruneSQL, now)
	if err != nil {
		return 0, fmt.Errorf("prune lead_rate_limit: %w", err)
	}
	return res.RowsAffected()
}

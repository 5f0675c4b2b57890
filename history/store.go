package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/papertrade/pricing"
)

const storeSchema = `
CREATE TABLE IF NOT EXISTS bars (
	symbol TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	time DATETIME NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (symbol, timeframe, time)
);
`

// Store is a local SQLite bar cache. Upserts are idempotent, so a range can
// be imported repeatedly without duplicating rows. Store implements Source.
type Store struct {
	db *sql.DB
}

func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert inserts or replaces bars for symbol/timeframe. Returns the number of
// rows written.
func (s *Store) Upsert(ctx context.Context, symbol string, tf pricing.Timeframe, bars []pricing.Bar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}
	symbol = strings.ToUpper(symbol)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (symbol, timeframe, time, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, symbol, tf.Key, b.Time.UTC(),
			b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(bars), nil
}

// Bars returns cached bars in [start, end] ascending by time.
func (s *Store) Bars(ctx context.Context, symbol string, tf pricing.Timeframe, start, end time.Time) ([]pricing.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND timeframe = ? AND time >= ? AND time <= ?
		ORDER BY time ASC`,
		strings.ToUpper(symbol), tf.Key, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.Bar
	for rows.Next() {
		var b pricing.Bar
		if err := rows.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Count returns the number of cached bars for symbol/timeframe.
func (s *Store) Count(ctx context.Context, symbol string, tf pricing.Timeframe) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bars WHERE symbol = ? AND timeframe = ?`,
		strings.ToUpper(symbol), tf.Key).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count bars: %w", err)
	}
	return n, nil
}

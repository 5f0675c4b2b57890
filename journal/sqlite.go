package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the Journal implementation backed by a local SQLite file.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func (j *SQLite) CreateUser(u User) (int64, error) {
	created := u.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := j.db.Exec(`
		INSERT INTO users (full_name, username, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.FullName, u.Username, u.Email, u.PasswordHash, created,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (j *SQLite) GetUserByEmail(email string) (User, error) {
	return j.scanUser(j.db.QueryRow(`
		SELECT id, full_name, username, email, password_hash, created_at
		FROM users WHERE email = ?`, email))
}

func (j *SQLite) GetUserByID(id int64) (User, error) {
	return j.scanUser(j.db.QueryRow(`
		SELECT id, full_name, username, email, password_hash, created_at
		FROM users WHERE id = ?`, id))
}

func (j *SQLite) scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.FullName, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return User{}, fmt.Errorf("user not found")
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (j *SQLite) CreateSession(rec SessionRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}
	var result sql.NullFloat64
	if rec.Result != nil {
		result = sql.NullFloat64{Float64: *rec.Result, Valid: true}
	}
	_, err := j.db.Exec(`
		INSERT INTO sessions
		(id, user_id, name, symbol, timeframe, start_date, end_date, starting_capital, result, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Name, rec.Symbol, rec.Timeframe,
		rec.StartDate, rec.EndDate, rec.StartingCapital, result,
		rec.CreatedAt, rec.UpdatedAt,
	)
	return err
}

func (j *SQLite) GetSession(id string) (SessionRecord, error) {
	row := j.db.QueryRow(`
		SELECT id, user_id, name, symbol, timeframe, start_date, end_date, starting_capital, result, created_at, updated_at
		FROM sessions WHERE id = ?`, id)
	rec, err := scanSession(row.Scan)
	if err == sql.ErrNoRows {
		return SessionRecord{}, fmt.Errorf("session %q not found", id)
	}
	return rec, err
}

// ListSessionsByUser returns the user's sessions, newest first.
func (j *SQLite) ListSessionsByUser(userID int64) ([]SessionRecord, error) {
	rows, err := j.db.Query(`
		SELECT id, user_id, name, symbol, timeframe, start_date, end_date, starting_capital, result, created_at, updated_at
		FROM sessions
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanSession(scan func(dest ...any) error) (SessionRecord, error) {
	var rec SessionRecord
	var result sql.NullFloat64
	err := scan(
		&rec.ID, &rec.UserID, &rec.Name, &rec.Symbol, &rec.Timeframe,
		&rec.StartDate, &rec.EndDate, &rec.StartingCapital, &result,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return SessionRecord{}, err
	}
	if result.Valid {
		rec.Result = &result.Float64
	}
	return rec, nil
}

func (j *SQLite) UpdateSessionResult(id string, result float64) error {
	res, err := j.db.Exec(`
		UPDATE sessions SET result = ?, updated_at = ? WHERE id = ?`,
		result, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %q not found", id)
	}
	return nil
}

// SaveState upserts the replay state and trade rows for a session in one
// transaction. Idempotent: trade rows are keyed by trade id and the state row
// by session id, so re-sending the same snapshot is harmless.
func (j *SQLite) SaveState(st SessionState) error {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}

	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO session_state
		(session_id, cursor, cash, position_qty, position_avg_price, timeframe, completed, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			cursor = excluded.cursor,
			cash = excluded.cash,
			position_qty = excluded.position_qty,
			position_avg_price = excluded.position_avg_price,
			timeframe = excluded.timeframe,
			completed = excluded.completed,
			updated_at = excluded.updated_at`,
		st.SessionID, st.Cursor, st.Cash, st.PositionQty, st.PositionAvgPrice,
		st.Timeframe, st.Completed, st.UpdatedAt,
	)
	if err != nil {
		return err
	}

	for _, tr := range st.Trades {
		_, err = tx.Exec(`
			INSERT OR REPLACE INTO trades
			(trade_id, session_id, side, price, qty, cursor, executed_at, realized_pl)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			tr.TradeID, tr.SessionID, tr.Side, tr.Price, tr.Qty,
			tr.Cursor, tr.ExecutedAt, tr.RealizedPL,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadState returns the persisted replay state for a session, including its
// trades in chronological order. ok is false when nothing has been saved yet.
func (j *SQLite) LoadState(sessionID string) (SessionState, bool, error) {
	var st SessionState
	row := j.db.QueryRow(`
		SELECT session_id, cursor, cash, position_qty, position_avg_price, timeframe, completed, updated_at
		FROM session_state WHERE session_id = ?`, sessionID)
	err := row.Scan(
		&st.SessionID, &st.Cursor, &st.Cash, &st.PositionQty,
		&st.PositionAvgPrice, &st.Timeframe, &st.Completed, &st.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return SessionState{}, false, nil
	}
	if err != nil {
		return SessionState{}, false, err
	}

	st.Trades, err = j.ListTrades(sessionID)
	if err != nil {
		return SessionState{}, false, err
	}
	return st, true, nil
}

// ListTrades returns a session's trades in chronological order. Trade IDs are
// ULIDs, so ordering by id orders by creation time.
func (j *SQLite) ListTrades(sessionID string) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, session_id, side, price, qty, cursor, executed_at, realized_pl
		FROM trades
		WHERE session_id = ?
		ORDER BY trade_id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var tr TradeRecord
		if err := rows.Scan(
			&tr.TradeID, &tr.SessionID, &tr.Side, &tr.Price, &tr.Qty,
			&tr.Cursor, &tr.ExecutedAt, &tr.RealizedPL,
		); err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

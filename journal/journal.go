package journal

import (
	"time"

	"github.com/rustyeddy/papertrade/session"
)

// User is an account that owns trading sessions.
type User struct {
	ID           int64
	FullName     string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// SessionRecord is the durable metadata of one paper-trading session.
type SessionRecord struct {
	ID              string
	UserID          int64
	Name            string
	Symbol          string
	Timeframe       string
	StartDate       time.Time
	EndDate         time.Time
	StartingCapital float64
	Result          *float64 // final P&L, nil until set
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TradeRecord is one executed trade row.
type TradeRecord struct {
	TradeID    string
	SessionID  string
	Side       string
	Price      float64
	Qty        float64
	Cursor     int
	ExecutedAt time.Time
	RealizedPL float64
}

// SessionState is the persisted replay state of a session. Re-saving the same
// state is harmless; the store upserts by session id (last write wins).
type SessionState struct {
	SessionID        string
	Cursor           int
	Cash             float64
	PositionQty      float64
	PositionAvgPrice float64
	Timeframe        string
	Completed        bool
	UpdatedAt        time.Time
	Trades           []TradeRecord
}

// Journal is the persistence gateway: users, session metadata, replay state
// and trade history.
type Journal interface {
	CreateUser(u User) (int64, error)
	GetUserByEmail(email string) (User, error)
	GetUserByID(id int64) (User, error)

	CreateSession(rec SessionRecord) error
	GetSession(id string) (SessionRecord, error)
	ListSessionsByUser(userID int64) ([]SessionRecord, error)
	UpdateSessionResult(id string, result float64) error

	SaveState(st SessionState) error
	LoadState(sessionID string) (SessionState, bool, error)
	ListTrades(sessionID string) ([]TradeRecord, error)

	Close() error
}

// StateFromSnapshot maps an in-memory session snapshot to its persisted form.
func StateFromSnapshot(snap session.Snapshot) SessionState {
	st := SessionState{
		SessionID:        snap.SessionID,
		Cursor:           snap.Cursor,
		Cash:             snap.Cash,
		PositionQty:      snap.Position.Qty,
		PositionAvgPrice: snap.Position.AvgPrice,
		Timeframe:        snap.Timeframe,
		Completed:        snap.Completed,
		Trades:           make([]TradeRecord, 0, len(snap.Trades)),
	}
	for _, tr := range snap.Trades {
		st.Trades = append(st.Trades, TradeRecord{
			TradeID:    tr.ID,
			SessionID:  snap.SessionID,
			Side:       string(tr.Side),
			Price:      tr.Price,
			Qty:        tr.Qty,
			Cursor:     tr.Cursor,
			ExecutedAt: tr.Time,
			RealizedPL: tr.RealizedPL,
		})
	}
	return st
}

// Snapshot rebuilds the resumable part of a session snapshot from persisted
// state. The persisted balance and position are authoritative; trades are not
// replayed against bars.
func (st SessionState) Snapshot() session.Snapshot {
	snap := session.Snapshot{
		SessionID: st.SessionID,
		Timeframe: st.Timeframe,
		Cursor:    st.Cursor,
		Cash:      st.Cash,
		Position:  session.Position{Qty: st.PositionQty, AvgPrice: st.PositionAvgPrice},
		Completed: st.Completed,
		Trades:    make([]session.Trade, 0, len(st.Trades)),
	}
	for _, tr := range st.Trades {
		snap.Trades = append(snap.Trades, session.Trade{
			ID:         tr.TradeID,
			Side:       session.Side(tr.Side),
			Price:      tr.Price,
			Qty:        tr.Qty,
			Cursor:     tr.Cursor,
			Time:       tr.ExecutedAt,
			RealizedPL: tr.RealizedPL,
		})
	}
	return snap
}

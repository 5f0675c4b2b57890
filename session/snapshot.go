package session

import (
	"github.com/rustyeddy/papertrade/pricing"
)

// Snapshot is an immutable projection of the full simulation state, taken
// after every state-changing operation. It is what the UI reads and what the
// persistence gateway stores; a persisted snapshot is authoritative on
// resume, no trade replay is needed.
type Snapshot struct {
	SessionID string
	Symbol    string
	Timeframe string

	Cursor int
	Bar    pricing.Bar

	Cash            float64
	Position        Position
	UnrealizedPL    float64
	Equity          float64
	StartingCapital float64

	State     State
	Completed bool

	// Trades in chronological order. The slice is a copy; records are
	// immutable.
	Trades []Trade
}

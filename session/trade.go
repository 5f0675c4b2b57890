package session

import "time"

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Trade is an immutable record of one executed order. Price is the close of
// the bar at the replay cursor when the order was applied; Time is the
// wall-clock execution time, not the bar time. RealizedPL is meaningful only
// on SELL trades.
type Trade struct {
	ID         string
	Side       Side
	Price      float64
	Qty        float64
	Cursor     int // bar index at execution, for charting and audit
	Time       time.Time
	RealizedPL float64
}

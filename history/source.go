// Package history supplies the ordered bar sequences sessions replay over.
// Sources are read-only collaborators: once a session starts, its bar series
// is fixed and the source is not consulted again.
package history

import (
	"context"
	"time"

	"github.com/rustyeddy/papertrade/pricing"
)

// Source serves historical bars for (symbol, timeframe, start, end).
// Bars are returned ascending by time. An empty result is not an error here;
// the session layer treats it as fatal when starting a replay.
type Source interface {
	Bars(ctx context.Context, symbol string, tf pricing.Timeframe, start, end time.Time) ([]pricing.Bar, error)
}

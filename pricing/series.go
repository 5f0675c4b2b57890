package pricing

import "fmt"

// Series is an immutable, ascending-by-time bar sequence for one
// symbol/timeframe. It is fixed for the lifetime of a replay session and safe
// to share across readers.
type Series struct {
	symbol    string
	timeframe Timeframe
	bars      []Bar
}

// NewSeries validates and wraps bars. Bars must be strictly ascending by
// timestamp; the input slice is copied so later mutation by the caller cannot
// leak into a running session.
func NewSeries(symbol string, tf Timeframe, bars []Bar) (*Series, error) {
	if symbol == "" {
		return nil, fmt.Errorf("series: symbol is required")
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("series: no bars for %s", symbol)
	}

	cp := make([]Bar, len(bars))
	copy(cp, bars)

	for i := 1; i < len(cp); i++ {
		if !cp[i].Time.After(cp[i-1].Time) {
			return nil, fmt.Errorf("series: bars out of order at index %d (%s !> %s)",
				i, cp[i].Time, cp[i-1].Time)
		}
	}

	return &Series{symbol: symbol, timeframe: tf, bars: cp}, nil
}

func (s *Series) Symbol() string       { return s.symbol }
func (s *Series) Timeframe() Timeframe { return s.timeframe }
func (s *Series) Len() int             { return len(s.bars) }

// At returns the bar at index i. Panics on out-of-range, same as a slice;
// cursor bounds are enforced by the replay controller.
func (s *Series) At(i int) Bar { return s.bars[i] }

// Window returns a copy of bars[from..to] inclusive, clamped to valid range.
// Used to expose only the bars at or before the replay cursor.
func (s *Series) Window(from, to int) []Bar {
	if from < 0 {
		from = 0
	}
	if to > len(s.bars)-1 {
		to = len(s.bars) - 1
	}
	if from > to {
		return nil
	}
	out := make([]Bar, to-from+1)
	copy(out, s.bars[from:to+1])
	return out
}

package session

import (
	"github.com/rustyeddy/papertrade/pricing"
)

// State is the playback mode of a replay.
type State string

const (
	Paused  State = "PAUSED"
	Playing State = "PLAYING"
	Ended   State = "ENDED"
)

// Replay owns the cursor into the bar series and the playback state. It is
// the only writer of "current bar"; every component reads price through it.
// Not safe for concurrent use on its own — Session serializes access.
type Replay struct {
	series *pricing.Series
	cursor int
	min    int // warm-up offset; the cursor never goes below this
	state  State
}

// NewReplay builds a replay over series with the first warmup bars always
// visible. The series must extend past the warm-up window.
func NewReplay(series *pricing.Series, warmup int) (*Replay, error) {
	if series == nil || series.Len() == 0 {
		return nil, ErrNoHistory
	}
	if warmup < 0 {
		warmup = 0
	}
	if series.Len() <= warmup {
		return nil, ErrInsufficientHistory
	}

	r := &Replay{
		series: series,
		cursor: warmup,
		min:    warmup,
		state:  Paused,
	}
	if r.cursor == series.Len()-1 {
		r.state = Ended
	}
	return r, nil
}

// Resume restores a persisted cursor, clamped into [warmup, len-1].
func (r *Replay) Resume(cursor int) {
	if cursor < r.min {
		cursor = r.min
	}
	if cursor > r.series.Len()-1 {
		cursor = r.series.Len() - 1
	}
	r.cursor = cursor
	if r.cursor == r.series.Len()-1 {
		r.state = Ended
	} else {
		r.state = Paused
	}
}

func (r *Replay) Series() *pricing.Series { return r.series }
func (r *Replay) Cursor() int             { return r.cursor }
func (r *Replay) MinCursor() int          { return r.min }
func (r *Replay) State() State            { return r.state }

// Current returns the bar at the cursor.
func (r *Replay) Current() pricing.Bar { return r.series.At(r.cursor) }

// Price is the current simulated price: the close of the bar at the cursor.
func (r *Replay) Price() float64 { return r.Current().Close }

// AtEnd reports whether the cursor is at the final bar.
func (r *Replay) AtEnd() bool { return r.cursor >= r.series.Len()-1 }

// Play starts automatic advancement. A no-op unless currently paused with
// bars remaining; reports whether the state changed.
func (r *Replay) Play() bool {
	if r.state != Paused || r.AtEnd() {
		return false
	}
	r.state = Playing
	return true
}

// Pause stops automatic advancement. A no-op unless playing.
func (r *Replay) Pause() bool {
	if r.state != Playing {
		return false
	}
	r.state = Paused
	return true
}

// Advance moves the cursor forward one bar while playing. Reaching the final
// bar transitions to Ended. Reports whether the cursor moved.
func (r *Replay) Advance() bool {
	if r.state != Playing {
		return false
	}
	r.cursor++
	if r.AtEnd() {
		r.cursor = r.series.Len() - 1
		r.state = Ended
	}
	return true
}

// StepForward moves the cursor one bar while paused. Silent no-op at the last
// bar or while playing.
func (r *Replay) StepForward() bool {
	if r.state != Paused || r.AtEnd() {
		return false
	}
	r.cursor++
	if r.AtEnd() {
		r.state = Ended
	}
	return true
}

// StepBack moves the cursor back one bar while paused. Silent no-op at the
// warm-up floor. Stepping back out of Ended returns to Paused.
func (r *Replay) StepBack() bool {
	if r.state == Playing {
		return false
	}
	if r.cursor <= r.min {
		return false
	}
	r.cursor--
	r.state = Paused
	return true
}

// Swap replaces the bar series (a timeframe change) and resets the cursor to
// the warm-up floor. Trade history is not recomputed against the new series.
func (r *Replay) Swap(series *pricing.Series, warmup int) error {
	if series == nil || series.Len() == 0 {
		return ErrNoHistory
	}
	if warmup < 0 {
		warmup = 0
	}
	if series.Len() <= warmup {
		return ErrInsufficientHistory
	}
	r.series = series
	r.min = warmup
	r.cursor = warmup
	if r.AtEnd() {
		r.state = Ended
	} else {
		r.state = Paused
	}
	return nil
}

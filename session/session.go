package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rustyeddy/papertrade/internal/id"
	"github.com/rustyeddy/papertrade/pricing"
)

const (
	DefaultTickInterval = time.Second
	DefaultSaveDelay    = 500 * time.Millisecond
	DefaultWarmupBars   = 20
)

// Config carries the parameters for starting (or resuming) a session.
type Config struct {
	// ID identifies the session for persistence. Generated if empty.
	ID string

	StartingCapital float64

	// WarmupBars is the number of leading bars always visible; the cursor
	// never goes below this index.
	WarmupBars int

	// TickInterval is the playback advancement period.
	TickInterval time.Duration

	// Clock defaults to RealClock. Inject a fake in tests.
	Clock Clock

	// Save persists snapshots; nil disables persistence. SaveDelay is the
	// debounce window.
	Save      SaveFunc
	SaveDelay time.Duration
}

// Session is the single logical owner of one replay's state: ledger, replay
// cursor and trade history, serialized under one mutex. Commands mutate state
// synchronously, then hand a fresh snapshot to the debounced saver.
type Session struct {
	mu sync.Mutex

	id              string
	startingCapital float64
	tick            time.Duration
	clock           Clock

	ledger *Ledger
	replay *Replay
	trades []Trade

	timer     Timer // pending playback tick, nil when not playing
	saver     *Saver
	completed bool
	closed    bool
}

// Start builds a session over bars. If resume is non-nil its cursor, balance,
// position and trade history are restored verbatim; the persisted state is
// authoritative and trades are not replayed against the bars.
func Start(cfg Config, series *pricing.Series, resume *Snapshot) (*Session, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.SaveDelay <= 0 {
		cfg.SaveDelay = DefaultSaveDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock{}
	}

	replay, err := NewReplay(series, cfg.WarmupBars)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:              cfg.ID,
		startingCapital: cfg.StartingCapital,
		tick:            cfg.TickInterval,
		clock:           cfg.Clock,
		ledger:          NewLedger(cfg.StartingCapital),
		replay:          replay,
		saver:           NewSaver(cfg.Clock, cfg.SaveDelay, cfg.Save),
	}

	if resume != nil {
		s.replay.Resume(resume.Cursor)
		s.ledger.Cash = resume.Cash
		s.ledger.Pos = resume.Position
		if resume.StartingCapital > 0 {
			s.startingCapital = resume.StartingCapital
		}
		s.completed = resume.Completed
		s.trades = make([]Trade, len(resume.Trades))
		copy(s.trades, resume.Trades)
	}

	return s, nil
}

func (s *Session) ID() string { return s.id }

// Play starts automatic playback. Silent no-op if already playing or at the
// final bar.
func (s *Session) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionEnded
	}
	if !s.replay.Play() {
		return nil
	}
	s.armTickLocked()
	return nil
}

// Pause stops playback and cancels the pending tick.
func (s *Session) Pause() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionEnded
	}
	if !s.replay.Pause() {
		s.mu.Unlock()
		return nil
	}
	s.stopTickLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.saver.Schedule(snap)
	return nil
}

// StepForward advances one bar while paused. Silent no-op at the last bar.
func (s *Session) StepForward() error {
	return s.step((*Replay).StepForward)
}

// StepBack moves back one bar while paused. Silent no-op at the warm-up
// floor.
func (s *Session) StepBack() error {
	return s.step((*Replay).StepBack)
}

func (s *Session) step(move func(*Replay) bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionEnded
	}
	if !move(s.replay) {
		s.mu.Unlock()
		return nil
	}
	if s.replay.State() == Ended {
		s.completed = true
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.saver.Schedule(snap)
	return nil
}

// ExecuteTrade validates and applies a market order against the bar at the
// current cursor. All-or-nothing: on a validation error no state changes. The
// returned record is immutable and already appended to the trade history.
func (s *Session) ExecuteTrade(side Side, qty float64) (Trade, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Trade{}, ErrSessionEnded
	}

	price := s.replay.Price()

	var realized float64
	var err error
	switch side {
	case Buy:
		err = s.ledger.ApplyBuy(price, qty)
	case Sell:
		realized, err = s.ledger.ApplySell(price, qty)
	default:
		err = ErrInvalidQuantity
	}
	if err != nil {
		s.mu.Unlock()
		return Trade{}, err
	}

	trade := Trade{
		ID:         id.New(),
		Side:       side,
		Price:      price,
		Qty:        qty,
		Cursor:     s.replay.Cursor(),
		Time:       s.clock.Now(),
		RealizedPL: realized,
	}
	s.trades = append(s.trades, trade)

	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.saver.Schedule(snap)
	return trade, nil
}

// SwapSeries switches the session to a new bar series (a timeframe change).
// The cursor resets to the warm-up floor; balance, position and trade history
// carry over untouched.
func (s *Session) SwapSeries(series *pricing.Series, warmup int) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionEnded
	}
	s.stopTickLocked()
	if err := s.replay.Swap(series, warmup); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.saver.Schedule(snap)
	return nil
}

// End stops playback, marks the session completed and flushes any pending
// save immediately instead of waiting out the debounce window. Further
// commands return ErrSessionEnded.
func (s *Session) End() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.completed = true
	s.replay.Pause()
	s.stopTickLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.saver.Schedule(snap)
	s.saver.Close()
}

// Snapshot returns the latest in-memory state. Always available
// synchronously.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// VisibleBars returns the bars from the start of the series through the
// cursor. Bars past the cursor are never exposed.
func (s *Session) VisibleBars() []pricing.Bar {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replay.Series().Window(0, s.replay.Cursor())
}

func (s *Session) armTickLocked() {
	s.timer = s.clock.AfterFunc(s.tick, s.onTick)
}

func (s *Session) stopTickLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// onTick is one atomic advance-and-recompute. No I/O happens on this path;
// the snapshot hand-off to the saver is asynchronous.
func (s *Session) onTick() {
	s.mu.Lock()
	s.timer = nil
	if s.closed || !s.replay.Advance() {
		s.mu.Unlock()
		return
	}
	if s.replay.State() == Playing {
		s.armTickLocked()
	} else if s.replay.State() == Ended {
		s.completed = true
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.saver.Schedule(snap)
}

func (s *Session) snapshotLocked() Snapshot {
	trades := make([]Trade, len(s.trades))
	copy(trades, s.trades)

	price := s.replay.Price()
	return Snapshot{
		SessionID:       s.id,
		Symbol:          s.replay.Series().Symbol(),
		Timeframe:       s.replay.Series().Timeframe().Key,
		Cursor:          s.replay.Cursor(),
		Bar:             s.replay.Current(),
		Cash:            s.ledger.Cash,
		Position:        s.ledger.Pos,
		UnrealizedPL:    s.ledger.UnrealizedPL(price),
		Equity:          s.ledger.Equity(price),
		StartingCapital: s.startingCapital,
		State:           s.replay.State(),
		Completed:       s.completed,
		Trades:          trades,
	}
}

package session

import (
	"sync"
	"time"

	"github.com/rustyeddy/papertrade/internal/logger"
)

// SaveFunc persists one snapshot. Implementations are expected to be
// idempotent; re-sending the same snapshot is harmless.
type SaveFunc func(Snapshot) error

// Saver coalesces snapshot saves. Each Schedule replaces any pending snapshot
// and (re)arms a single debounce timer, so a burst of mutations produces one
// write carrying the latest state. A failed save is retried once, then
// dropped; the next debounce cycle resends the latest state anyway. Failures
// never roll back or block the simulation.
type Saver struct {
	mu      sync.Mutex
	clock   Clock
	delay   time.Duration
	save    SaveFunc
	pending *Snapshot
	timer   Timer
	closed  bool
}

func NewSaver(clock Clock, delay time.Duration, save SaveFunc) *Saver {
	if clock == nil {
		clock = RealClock{}
	}
	return &Saver{clock: clock, delay: delay, save: save}
}

// Schedule records snap as the latest state and arms the debounce timer if it
// is not already armed.
func (s *Saver) Schedule(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.save == nil {
		return
	}
	s.pending = &snap
	if s.timer == nil {
		s.timer = s.clock.AfterFunc(s.delay, s.fire)
	}
}

func (s *Saver) fire() {
	s.mu.Lock()
	snap := s.pending
	s.pending = nil
	s.timer = nil
	s.mu.Unlock()

	if snap != nil {
		s.write(*snap)
	}
}

// Flush cancels the pending timer and writes the latest snapshot immediately.
// Used when a session ends, so the final state is not left racing a timer.
func (s *Saver) Flush() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	snap := s.pending
	s.pending = nil
	s.mu.Unlock()

	if snap != nil {
		s.write(*snap)
	}
}

// Close flushes and rejects further scheduling.
func (s *Saver) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.Flush()
}

func (s *Saver) write(snap Snapshot) {
	err := s.save(snap)
	if err == nil {
		return
	}
	// One retry, then drop. Non-fatal: in-memory state stays authoritative
	// and the next debounce cycle carries the latest snapshot.
	if err = s.save(snap); err != nil {
		logger.Warnf("session %s: snapshot save failed, dropping: %v", snap.SessionID, err)
	}
}

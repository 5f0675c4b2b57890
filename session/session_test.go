package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// saveRecorder captures snapshots handed to the saver.
type saveRecorder struct {
	mu    sync.Mutex
	saves []Snapshot
	fail  int // fail the next n save calls
}

func (r *saveRecorder) save(snap Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail > 0 {
		r.fail--
		return errors.New("persistence unavailable")
	}
	r.saves = append(r.saves, snap)
	return nil
}

func (r *saveRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

func (r *saveRecorder) last() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves[len(r.saves)-1]
}

func startTestSession(t *testing.T, bars, warmup int, rec *saveRecorder) (*Session, *fakeClock) {
	t.Helper()

	clock := newFakeClock()
	cfg := Config{
		ID:              "sess-test",
		StartingCapital: 10_000,
		WarmupBars:      warmup,
		TickInterval:    time.Second,
		SaveDelay:       500 * time.Millisecond,
		Clock:           clock,
	}
	if rec != nil {
		cfg.Save = rec.save
	}

	s, err := Start(cfg, testSeries(t, bars), nil)
	require.NoError(t, err)
	return s, clock
}

func TestSession_PlaybackAdvancesOnTicks(t *testing.T) {
	t.Parallel()

	s, clock := startTestSession(t, 10, 2, nil)

	require.NoError(t, s.Play())
	assert.Equal(t, Playing, s.Snapshot().State)

	clock.Advance(time.Second)
	assert.Equal(t, 3, s.Snapshot().Cursor)

	clock.Advance(3 * time.Second)
	assert.Equal(t, 6, s.Snapshot().Cursor)

	require.NoError(t, s.Pause())
	assert.Equal(t, Paused, s.Snapshot().State)

	// Pausing cancels the pending tick.
	clock.Advance(5 * time.Second)
	assert.Equal(t, 6, s.Snapshot().Cursor)
}

func TestSession_PlaybackEndsAtLastBar(t *testing.T) {
	t.Parallel()

	s, clock := startTestSession(t, 5, 2, nil)

	require.NoError(t, s.Play())
	clock.Advance(10 * time.Second)

	snap := s.Snapshot()
	assert.Equal(t, 4, snap.Cursor)
	assert.Equal(t, Ended, snap.State)
	assert.True(t, snap.Completed)

	// Play at the end stays a silent no-op.
	require.NoError(t, s.Play())
	assert.Equal(t, Ended, s.Snapshot().State)
}

func TestSession_AdvanceAloneNeverTouchesLedger(t *testing.T) {
	t.Parallel()

	s, clock := startTestSession(t, 30, 2, nil)

	_, err := s.ExecuteTrade(Buy, 10)
	require.NoError(t, err)
	before := s.Snapshot()

	require.NoError(t, s.Play())
	clock.Advance(10 * time.Second)
	require.NoError(t, s.Pause())
	require.NoError(t, s.StepForward())
	require.NoError(t, s.StepBack())

	after := s.Snapshot()
	assert.Equal(t, before.Cash, after.Cash)
	assert.Equal(t, before.Position, after.Position)
	assert.Equal(t, before.Trades, after.Trades)
}

func TestSession_FlatEquityUnchangedByCursor(t *testing.T) {
	t.Parallel()

	s, clock := startTestSession(t, 30, 2, nil)

	require.NoError(t, s.Play())
	for i := 0; i < 8; i++ {
		clock.Advance(time.Second)
		assert.InDelta(t, 10_000, s.Snapshot().Equity, 1e-9)
	}
}

func TestSession_TradeExecutesAtCursorClose(t *testing.T) {
	t.Parallel()

	s, _ := startTestSession(t, 50, 20, nil)

	require.NoError(t, s.StepForward()) // cursor 21, close 121
	tr, err := s.ExecuteTrade(Buy, 5)
	require.NoError(t, err)

	assert.InDelta(t, 121, tr.Price, 1e-9)
	assert.Equal(t, 21, tr.Cursor)
	assert.Equal(t, Buy, tr.Side)
	assert.NotEmpty(t, tr.ID)

	snap := s.Snapshot()
	assert.InDelta(t, 10_000-5*121, snap.Cash, 1e-9)
	require.Len(t, snap.Trades, 1)
	assert.Equal(t, tr, snap.Trades[0])
}

func TestSession_TradeIDsAreUnique(t *testing.T) {
	t.Parallel()

	s, _ := startTestSession(t, 50, 20, nil)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		tr, err := s.ExecuteTrade(Buy, 1)
		require.NoError(t, err)
		assert.False(t, seen[tr.ID], "duplicate trade id %s", tr.ID)
		seen[tr.ID] = true
	}
}

func TestSession_RejectedTradeLeavesNoTrace(t *testing.T) {
	t.Parallel()

	s, _ := startTestSession(t, 50, 20, nil)
	before := s.Snapshot()

	_, err := s.ExecuteTrade(Buy, 1_000_000)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = s.ExecuteTrade(Sell, 1)
	assert.ErrorIs(t, err, ErrInsufficientPosition)

	_, err = s.ExecuteTrade(Buy, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	after := s.Snapshot()
	assert.Equal(t, before.Cash, after.Cash)
	assert.Equal(t, before.Position, after.Position)
	assert.Empty(t, after.Trades)
}

func TestSession_DebounceCoalescesSaves(t *testing.T) {
	t.Parallel()

	rec := &saveRecorder{}
	s, clock := startTestSession(t, 50, 20, rec)

	require.NoError(t, s.StepForward())
	require.NoError(t, s.StepForward())
	require.NoError(t, s.StepForward())
	assert.Zero(t, rec.count()) // still inside the debounce window

	clock.Advance(500 * time.Millisecond)
	require.Equal(t, 1, rec.count()) // one save carrying the latest state
	assert.Equal(t, 23, rec.last().Cursor)
}

func TestSession_EndFlushesPendingSave(t *testing.T) {
	t.Parallel()

	rec := &saveRecorder{}
	s, _ := startTestSession(t, 50, 20, rec)

	_, err := s.ExecuteTrade(Buy, 2)
	require.NoError(t, err)

	s.End() // flushes immediately, no clock advance needed
	require.GreaterOrEqual(t, rec.count(), 1)

	final := rec.last()
	assert.True(t, final.Completed)
	assert.Len(t, final.Trades, 1)

	assert.ErrorIs(t, s.Play(), ErrSessionEnded)
	assert.ErrorIs(t, s.StepForward(), ErrSessionEnded)
	_, err = s.ExecuteTrade(Buy, 1)
	assert.ErrorIs(t, err, ErrSessionEnded)
}

func TestSession_SaveFailureRetriesOnceThenDrops(t *testing.T) {
	t.Parallel()

	rec := &saveRecorder{fail: 1}
	s, clock := startTestSession(t, 50, 20, rec)

	require.NoError(t, s.StepForward())
	clock.Advance(time.Second)
	assert.Equal(t, 1, rec.count()) // first attempt failed, retry landed

	// Two consecutive failures drop the snapshot; the next cycle resends.
	rec.mu.Lock()
	rec.fail = 2
	rec.mu.Unlock()

	require.NoError(t, s.StepForward())
	clock.Advance(time.Second)
	assert.Equal(t, 1, rec.count())

	require.NoError(t, s.StepForward())
	clock.Advance(time.Second)
	require.Equal(t, 2, rec.count())
	assert.Equal(t, 23, rec.last().Cursor)
}

func TestSession_ResumeRoundTrip(t *testing.T) {
	t.Parallel()

	s, _ := startTestSession(t, 50, 20, nil)

	require.NoError(t, s.StepForward())
	require.NoError(t, s.StepForward())
	_, err := s.ExecuteTrade(Buy, 10)
	require.NoError(t, err)
	_, err = s.ExecuteTrade(Sell, 4)
	require.NoError(t, err)

	persisted := s.Snapshot()

	resumed, err := Start(Config{
		ID:              persisted.SessionID,
		StartingCapital: persisted.StartingCapital,
		WarmupBars:      20,
		Clock:           newFakeClock(),
	}, testSeries(t, 50), &persisted)
	require.NoError(t, err)

	got := resumed.Snapshot()
	assert.Equal(t, persisted.Cursor, got.Cursor)
	assert.Equal(t, persisted.Cash, got.Cash)
	assert.Equal(t, persisted.Position, got.Position)
	assert.Equal(t, persisted.Trades, got.Trades)
	assert.Equal(t, persisted.Equity, got.Equity)
}

func TestSession_SwapSeriesKeepsLedger(t *testing.T) {
	t.Parallel()

	s, _ := startTestSession(t, 50, 20, nil)
	require.NoError(t, s.StepForward())
	_, err := s.ExecuteTrade(Buy, 3)
	require.NoError(t, err)
	before := s.Snapshot()

	require.NoError(t, s.SwapSeries(testSeries(t, 30), 10))

	after := s.Snapshot()
	assert.Equal(t, 10, after.Cursor)
	assert.Equal(t, Paused, after.State)
	assert.Equal(t, before.Cash, after.Cash)
	assert.Equal(t, before.Position, after.Position)
	assert.Equal(t, before.Trades, after.Trades)
}

func TestSession_VisibleBarsStopAtCursor(t *testing.T) {
	t.Parallel()

	s, _ := startTestSession(t, 50, 20, nil)

	bars := s.VisibleBars()
	require.Len(t, bars, 21) // indexes 0..20
	assert.InDelta(t, 120, bars[len(bars)-1].Close, 1e-9)

	require.NoError(t, s.StepForward())
	assert.Len(t, s.VisibleBars(), 22)
}

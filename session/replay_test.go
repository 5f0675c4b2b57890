package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrade/pricing"
)

// testSeries builds n hourly bars with close = 100 + i.
func testSeries(t *testing.T, n int) *pricing.Series {
	t.Helper()

	tf, err := pricing.ParseTimeframe("1h")
	require.NoError(t, err)

	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	bars := make([]pricing.Bar, n)
	for i := range bars {
		px := 100 + float64(i)
		bars[i] = pricing.Bar{
			Time:  start.Add(time.Duration(i) * time.Hour),
			Open:  px - 0.5,
			High:  px + 1,
			Low:   px - 1,
			Close: px,
		}
	}

	s, err := pricing.NewSeries("TEST", tf, bars)
	require.NoError(t, err)
	return s
}

func TestNewReplay_InsufficientHistory(t *testing.T) {
	t.Parallel()

	s := testSeries(t, 10)

	_, err := NewReplay(s, 20)
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	_, err = NewReplay(s, 10)
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	r, err := NewReplay(s, 9)
	require.NoError(t, err)
	assert.Equal(t, Ended, r.State()) // cursor starts on the final bar
}

func TestReplay_WarmupFloor(t *testing.T) {
	t.Parallel()

	r, err := NewReplay(testSeries(t, 50), 20)
	require.NoError(t, err)

	assert.Equal(t, 20, r.Cursor())
	assert.False(t, r.StepBack()) // already at the floor
	assert.Equal(t, 20, r.Cursor())

	assert.True(t, r.StepForward())
	assert.True(t, r.StepBack())
	assert.Equal(t, 20, r.Cursor())
	assert.False(t, r.StepBack())
}

func TestReplay_StepForwardStopsAtEnd(t *testing.T) {
	t.Parallel()

	r, err := NewReplay(testSeries(t, 5), 2)
	require.NoError(t, err)

	assert.True(t, r.StepForward())  // 3
	assert.True(t, r.StepForward())  // 4, final bar
	assert.Equal(t, Ended, r.State())
	assert.False(t, r.StepForward()) // no-op at the last index
	assert.Equal(t, 4, r.Cursor())

	assert.False(t, r.Play()) // play at the end is a no-op
}

func TestReplay_PlayAdvanceEnded(t *testing.T) {
	t.Parallel()

	r, err := NewReplay(testSeries(t, 5), 2)
	require.NoError(t, err)

	require.True(t, r.Play())
	assert.Equal(t, Playing, r.State())

	// Steps are only available while paused.
	assert.False(t, r.StepForward())
	assert.False(t, r.StepBack())

	assert.True(t, r.Advance()) // 3
	assert.Equal(t, Playing, r.State())
	assert.True(t, r.Advance()) // 4, final
	assert.Equal(t, Ended, r.State())
	assert.False(t, r.Advance())
	assert.Equal(t, 4, r.Cursor())
}

func TestReplay_PriceTracksCursor(t *testing.T) {
	t.Parallel()

	r, err := NewReplay(testSeries(t, 50), 20)
	require.NoError(t, err)

	assert.InDelta(t, 120, r.Price(), 1e-9)
	r.StepForward()
	assert.InDelta(t, 121, r.Price(), 1e-9)
}

func TestReplay_Resume(t *testing.T) {
	t.Parallel()

	r, err := NewReplay(testSeries(t, 50), 20)
	require.NoError(t, err)

	r.Resume(35)
	assert.Equal(t, 35, r.Cursor())
	assert.Equal(t, Paused, r.State())

	r.Resume(5) // below the floor: clamped up
	assert.Equal(t, 20, r.Cursor())

	r.Resume(500) // past the end: clamped to the final bar
	assert.Equal(t, 49, r.Cursor())
	assert.Equal(t, Ended, r.State())
}

func TestReplay_SwapResetsCursor(t *testing.T) {
	t.Parallel()

	r, err := NewReplay(testSeries(t, 50), 20)
	require.NoError(t, err)
	r.Resume(40)

	require.NoError(t, r.Swap(testSeries(t, 30), 10))
	assert.Equal(t, 10, r.Cursor())
	assert.Equal(t, Paused, r.State())

	assert.ErrorIs(t, r.Swap(testSeries(t, 5), 10), ErrInsufficientHistory)
}

package pricing

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	t.Parallel()

	in := `time,open,high,low,close,volume
2025-03-03T00:00:00Z,99.5,101,99,100,1000
2025-03-03T01:00:00Z,100.5,102,100,101,1500
`
	bars, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), bars[0].Time)
	assert.Equal(t, 99.5, bars[0].Open)
	assert.Equal(t, 100.0, bars[0].Close)
	assert.Equal(t, 1000.0, bars[0].Volume)
	assert.Equal(t, 1500.0, bars[1].Volume)
}

func TestReadCSVVolumeOptional(t *testing.T) {
	t.Parallel()

	in := `time,open,high,low,close
2025-03-03T00:00:00Z,99.5,101,99,100
`
	bars, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Zero(t, bars[0].Volume)
}

func TestReadCSVErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{"bad header", "date,o,h,l,c\n2025-03-03T00:00:00Z,1,1,1,1\n"},
		{"bad time", "time,open,high,low,close\nnot-a-time,1,1,1,1\n"},
		{"bad price", "time,open,high,low,close\n2025-03-03T00:00:00Z,1,x,1,1\n"},
		{"short row", "time,open,high,low,close\n2025-03-03T00:00:00Z,1,1\n"},
		{"empty", ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadCSV(strings.NewReader(tt.in))
			assert.Error(t, err)
		})
	}
}

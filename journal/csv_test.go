package journal

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTradesCSV(t *testing.T) {
	t.Parallel()

	trades := []TradeRecord{
		{
			TradeID:    "01HTRADE1",
			SessionID:  "sess-1",
			Side:       "BUY",
			Price:      100.5,
			Qty:        10,
			Cursor:     25,
			ExecutedAt: time.Date(2025, 4, 1, 14, 30, 0, 0, time.UTC),
		},
		{
			TradeID:    "01HTRADE2",
			SessionID:  "sess-1",
			Side:       "SELL",
			Price:      110.25,
			Qty:        4,
			Cursor:     31,
			ExecutedAt: time.Date(2025, 4, 1, 14, 35, 0, 0, time.UTC),
			RealizedPL: 39,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTradesCSV(&buf, trades))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "trade_id,session_id,side,price,qty,cursor,executed_at,realized_pl", lines[0])
	assert.Equal(t, "01HTRADE1,sess-1,BUY,100.5,10,25,2025-04-01T14:30:00Z,0", lines[1])
	assert.Equal(t, "01HTRADE2,sess-1,SELL,110.25,4,31,2025-04-01T14:35:00Z,39", lines[2])
}

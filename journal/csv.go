package journal

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"
)

// WriteTradesCSV writes trade records to w with a header row.
func WriteTradesCSV(w io.Writer, trades []TradeRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"trade_id", "session_id", "side", "price", "qty", "cursor", "executed_at", "realized_pl"}); err != nil {
		return err
	}

	for _, tr := range trades {
		if err := cw.Write([]string{
			tr.TradeID,
			tr.SessionID,
			tr.Side,
			f(tr.Price),
			f(tr.Qty),
			strconv.Itoa(tr.Cursor),
			tr.ExecutedAt.Format(time.RFC3339),
			f(tr.RealizedPL),
		}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportTradesCSV writes a session's trades to path.
func ExportTradesCSV(path string, trades []TradeRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTradesCSV(file, trades); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

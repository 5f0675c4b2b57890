package pricing

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadCSV reads bars from a CSV file with header
// time,open,high,low,close[,volume]. Time is RFC3339.
func LoadCSV(path string) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bars csv: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses bar rows from r. See LoadCSV for the expected format.
func ReadCSV(r io.Reader) ([]Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // volume column is optional

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read bars header: %w", err)
	}
	if len(header) < 5 || strings.ToLower(strings.TrimSpace(header[0])) != "time" {
		return nil, fmt.Errorf("bars csv: expected header time,open,high,low,close[,volume], got %v", header)
	}

	var bars []Bar
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bars csv line %d: %w", line+1, err)
		}
		line++
		if len(rec) < 5 {
			return nil, fmt.Errorf("bars csv line %d: expected at least 5 fields, got %d", line, len(rec))
		}

		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("bars csv line %d: bad time %q: %w", line, rec[0], err)
		}

		vals := make([]float64, 4)
		for i := 0; i < 4; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("bars csv line %d: bad %s %q: %w", line, header[i+1], rec[i+1], err)
			}
			vals[i] = v
		}

		b := Bar{Time: ts, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3]}
		if len(rec) > 5 && strings.TrimSpace(rec[5]) != "" {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[5]), 64)
			if err != nil {
				return nil, fmt.Errorf("bars csv line %d: bad volume %q: %w", line, rec[5], err)
			}
			b.Volume = v
		}
		bars = append(bars, b)
	}
	return bars, nil
}

package session

// Position is the trader's current holding in the session's symbol.
// AvgPrice is the quantity-weighted cost basis of the open quantity; it is 0
// whenever Qty is 0.
type Position struct {
	Qty      float64
	AvgPrice float64
}

// Ledger owns the cash balance and open position and does the P&L math.
// Pure state + arithmetic, no I/O; all mutation goes through ApplyBuy and
// ApplySell, which are all-or-nothing.
type Ledger struct {
	Cash float64
	Pos  Position
}

func NewLedger(startingCash float64) *Ledger {
	return &Ledger{Cash: startingCash}
}

// ApplyBuy executes a buy of qty units at price. The cost must not exceed the
// cash balance; on success the average price becomes the weighted mean of the
// old basis and this fill.
func (l *Ledger) ApplyBuy(price, qty float64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	cost := price * qty
	if cost > l.Cash {
		return ErrInsufficientFunds
	}

	oldQty := l.Pos.Qty
	l.Pos.AvgPrice = (l.Pos.AvgPrice*oldQty + cost) / (oldQty + qty)
	l.Pos.Qty = oldQty + qty
	l.Cash -= cost
	return nil
}

// ApplySell executes a sell of qty units at price and returns the realized
// profit, (price - avgPrice) * qty. Selling more than the open quantity is
// rejected; no short selling. A full close resets the average price to 0, a
// partial close keeps the prior cost basis for the remainder.
func (l *Ledger) ApplySell(price, qty float64) (realized float64, err error) {
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	if qty > l.Pos.Qty {
		return 0, ErrInsufficientPosition
	}

	realized = (price - l.Pos.AvgPrice) * qty
	l.Cash += price * qty
	l.Pos.Qty -= qty
	if l.Pos.Qty == 0 {
		l.Pos.AvgPrice = 0
	}
	return realized, nil
}

// UnrealizedPL marks the open position against price. Recomputed on demand,
// never stored as authoritative.
func (l *Ledger) UnrealizedPL(price float64) float64 {
	if l.Pos.Qty <= 0 {
		return 0
	}
	return (price - l.Pos.AvgPrice) * l.Pos.Qty
}

// Equity is cash plus the position marked at price. It changes only through
// ApplyBuy/ApplySell at a fixed price, never through cursor movement alone.
func (l *Ledger) Equity(price float64) float64 {
	return l.Cash + l.Pos.Qty*price
}

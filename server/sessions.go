package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rustyeddy/papertrade/internal/logger"
	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/pricing"
	"github.com/rustyeddy/papertrade/session"
)

const dateLayout = "2006-01-02"

type sessionOut struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Symbol          string   `json:"symbol"`
	Timeframe       string   `json:"timeframe"`
	StartDate       string   `json:"start_date"`
	EndDate         string   `json:"end_date"`
	StartingCapital float64  `json:"starting_capital"`
	Result          *float64 `json:"result"`
	CreatedAt       string   `json:"created_at"`
}

func toSessionOut(rec journal.SessionRecord) sessionOut {
	return sessionOut{
		ID:              rec.ID,
		Name:            rec.Name,
		Symbol:          rec.Symbol,
		Timeframe:       rec.Timeframe,
		StartDate:       rec.StartDate.Format(dateLayout),
		EndDate:         rec.EndDate.Format(dateLayout),
		StartingCapital: rec.StartingCapital,
		Result:          rec.Result,
		CreatedAt:       rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type positionOut struct {
	Qty      float64 `json:"qty"`
	AvgPrice float64 `json:"avg_price"`
}

type barOut struct {
	Time   string  `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

func toBarOut(b pricing.Bar) barOut {
	return barOut{
		Time:   b.Time.UTC().Format(time.RFC3339),
		Open:   b.Open,
		High:   b.High,
		Low:    b.Low,
		Close:  b.Close,
		Volume: b.Volume,
	}
}

type tradeOut struct {
	ID         string  `json:"id"`
	Side       string  `json:"side"`
	Price      float64 `json:"price"`
	Qty        float64 `json:"qty"`
	Cursor     int     `json:"cursor"`
	Time       string  `json:"time"`
	RealizedPL float64 `json:"realized_pl"`
}

func toTradeOut(tr session.Trade) tradeOut {
	return tradeOut{
		ID:         tr.ID,
		Side:       string(tr.Side),
		Price:      tr.Price,
		Qty:        tr.Qty,
		Cursor:     tr.Cursor,
		Time:       tr.Time.UTC().Format(time.RFC3339),
		RealizedPL: tr.RealizedPL,
	}
}

type snapshotOut struct {
	SessionID       string      `json:"session_id"`
	Symbol          string      `json:"symbol"`
	Timeframe       string      `json:"timeframe"`
	Cursor          int         `json:"cursor"`
	Bar             barOut      `json:"bar"`
	Cash            float64     `json:"cash"`
	Position        positionOut `json:"position"`
	UnrealizedPL    float64     `json:"unrealized_pl"`
	Equity          float64     `json:"equity"`
	StartingCapital float64     `json:"starting_capital"`
	State           string      `json:"state"`
	Completed       bool        `json:"completed"`
	TradeCount      int         `json:"trade_count"`
}

func toSnapshotOut(snap session.Snapshot) snapshotOut {
	return snapshotOut{
		SessionID:       snap.SessionID,
		Symbol:          snap.Symbol,
		Timeframe:       snap.Timeframe,
		Cursor:          snap.Cursor,
		Bar:             toBarOut(snap.Bar),
		Cash:            snap.Cash,
		Position:        positionOut{Qty: snap.Position.Qty, AvgPrice: snap.Position.AvgPrice},
		UnrealizedPL:    snap.UnrealizedPL,
		Equity:          snap.Equity,
		StartingCapital: snap.StartingCapital,
		State:           string(snap.State),
		Completed:       snap.Completed,
		TradeCount:      len(snap.Trades),
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrInvalidQuantity),
		errors.Is(err, session.ErrInsufficientFunds),
		errors.Is(err, session.ErrInsufficientPosition):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNoHistory),
		errors.Is(err, session.ErrInsufficientHistory),
		errors.Is(err, session.ErrSessionEnded):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleSessionCreate(c *gin.Context) {
	var req struct {
		Name            string  `json:"name" binding:"required"`
		Symbol          string  `json:"symbol" binding:"required"`
		Timeframe       string  `json:"timeframe" binding:"required"`
		StartDate       string  `json:"start_date" binding:"required"`
		EndDate         string  `json:"end_date" binding:"required"`
		StartingCapital float64 `json:"starting_capital"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := pricing.ParseTimeframe(req.Timeframe); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
		return
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be YYYY-MM-DD"})
		return
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date before start_date"})
		return
	}
	capital := req.StartingCapital
	if capital <= 0 {
		capital = s.opts.StartingCapital
	}
	if capital <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "starting_capital must be positive"})
		return
	}

	rec := journal.SessionRecord{
		ID:              uuid.NewString(),
		UserID:          currentUser(c).ID,
		Name:            req.Name,
		Symbol:          strings.ToUpper(req.Symbol),
		Timeframe:       strings.ToLower(req.Timeframe),
		StartDate:       start,
		EndDate:         end,
		StartingCapital: capital,
	}
	if err := s.journal.CreateSession(rec); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	created, err := s.journal.GetSession(rec.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, toSessionOut(created))
}

func (s *Server) handleSessionList(c *gin.Context) {
	recs, err := s.journal.ListSessionsByUser(currentUser(c).ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]sessionOut, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toSessionOut(rec))
	}
	c.JSON(http.StatusOK, out)
}

// ownedSession fetches the session record and enforces that it belongs to the
// authenticated user. Another user's session reads as not found.
func (s *Server) ownedSession(c *gin.Context) (journal.SessionRecord, bool) {
	rec, err := s.journal.GetSession(c.Param("id"))
	if err != nil || rec.UserID != currentUser(c).ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return journal.SessionRecord{}, false
	}
	return rec, true
}

func (s *Server) handleSessionGet(c *gin.Context) {
	rec, ok := s.ownedSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toSessionOut(rec))
}

func (s *Server) handleSessionResult(c *gin.Context) {
	rec, ok := s.ownedSession(c)
	if !ok {
		return
	}
	var req struct {
		Result float64 `json:"result"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.journal.UpdateSessionResult(rec.ID, req.Result); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	updated, err := s.journal.GetSession(rec.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toSessionOut(updated))
}

// liveSession returns the running replay for rec, creating it on first use:
// bars come from the history source for the session's range, persisted state
// (if any) is authoritative for cursor/balance/position/trades.
func (s *Server) liveSession(c *gin.Context, rec journal.SessionRecord) (*session.Session, error) {
	if live, ok := s.registry.get(rec.ID); ok {
		return live, nil
	}

	tf, err := pricing.ParseTimeframe(rec.Timeframe)
	if err != nil {
		return nil, err
	}

	// EndDate is a date; include the whole final day.
	bars, err := s.source.Bars(c.Request.Context(), rec.Symbol, tf, rec.StartDate, rec.EndDate.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, session.ErrNoHistory
	}

	series, err := pricing.NewSeries(rec.Symbol, tf, bars)
	if err != nil {
		return nil, err
	}

	var resume *session.Snapshot
	if st, ok, err := s.journal.LoadState(rec.ID); err != nil {
		logger.Warnf("session %s: loading persisted state: %v", rec.ID, err)
	} else if ok {
		snap := st.Snapshot()
		resume = &snap
	}

	live, err := session.Start(session.Config{
		ID:              rec.ID,
		StartingCapital: rec.StartingCapital,
		WarmupBars:      s.opts.WarmupBars,
		TickInterval:    s.opts.TickInterval,
		SaveDelay:       s.opts.SaveDelay,
		Clock:           s.opts.Clock,
		Save: func(snap session.Snapshot) error {
			return s.journal.SaveState(journal.StateFromSnapshot(snap))
		},
	}, series, resume)
	if err != nil {
		return nil, err
	}

	s.registry.put(rec.ID, live)
	return live, nil
}

func (s *Server) withLive(c *gin.Context, fn func(*session.Session) error) {
	rec, ok := s.ownedSession(c)
	if !ok {
		return
	}
	live, err := s.liveSession(c, rec)
	if err == nil {
		err = fn(live)
	}
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toSnapshotOut(live.Snapshot()))
}

// handleStart brings the session live (loads persisted state and bars) and
// returns its snapshot. Paused until played.
func (s *Server) handleStart(c *gin.Context) {
	s.withLive(c, func(*session.Session) error { return nil })
}

func (s *Server) handlePlay(c *gin.Context) {
	s.withLive(c, func(live *session.Session) error { return live.Play() })
}

func (s *Server) handlePause(c *gin.Context) {
	s.withLive(c, func(live *session.Session) error { return live.Pause() })
}

func (s *Server) handleStep(c *gin.Context) {
	var req struct {
		Direction string `json:"direction" binding:"required,oneof=forward back"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.withLive(c, func(live *session.Session) error {
		if req.Direction == "back" {
			return live.StepBack()
		}
		return live.StepForward()
	})
}

func (s *Server) handleTrade(c *gin.Context) {
	var req struct {
		Side     string  `json:"side" binding:"required,oneof=BUY SELL"`
		Quantity float64 `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, ok := s.ownedSession(c)
	if !ok {
		return
	}
	live, err := s.liveSession(c, rec)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	trade, err := live.ExecuteTrade(session.Side(req.Side), req.Quantity)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"trade":    toTradeOut(trade),
		"snapshot": toSnapshotOut(live.Snapshot()),
	})
}

// handleEnd finishes a session: playback stops, the final snapshot is flushed
// and the session result (net P&L) is written back to its record.
func (s *Server) handleEnd(c *gin.Context) {
	rec, ok := s.ownedSession(c)
	if !ok {
		return
	}
	live, err := s.liveSession(c, rec)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	live.End()
	s.registry.remove(rec.ID)

	final := live.Snapshot()
	result := final.Equity - final.StartingCapital
	if err := s.journal.UpdateSessionResult(rec.ID, result); err != nil {
		logger.Warnf("session %s: recording result: %v", rec.ID, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"snapshot": toSnapshotOut(final),
		"result":   result,
	})
}

func (s *Server) handleSnapshot(c *gin.Context) {
	s.withLive(c, func(*session.Session) error { return nil })
}

// handleTrades serves the trade history newest first. For a session that is
// not live it reads the journal instead of spinning up a replay.
func (s *Server) handleTrades(c *gin.Context) {
	rec, ok := s.ownedSession(c)
	if !ok {
		return
	}

	var trades []session.Trade
	if live, isLive := s.registry.get(rec.ID); isLive {
		trades = live.Snapshot().Trades
	} else {
		recs, err := s.journal.ListTrades(rec.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		st := journal.SessionState{Trades: recs}
		trades = st.Snapshot().Trades
	}

	out := make([]tradeOut, 0, len(trades))
	for i := len(trades) - 1; i >= 0; i-- {
		out = append(out, toTradeOut(trades[i]))
	}
	c.JSON(http.StatusOK, out)
}

// handleBars serves the visible window: bars at or before the cursor only.
func (s *Server) handleBars(c *gin.Context) {
	rec, ok := s.ownedSession(c)
	if !ok {
		return
	}
	live, err := s.liveSession(c, rec)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	bars := live.VisibleBars()
	out := make([]barOut, 0, len(bars))
	for _, b := range bars {
		out = append(out, toBarOut(b))
	}
	c.JSON(http.StatusOK, out)
}

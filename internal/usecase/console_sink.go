package usecase

import (
	"context"
	"fmt"
	"sync"

	"ZPulse/internal/domain/models"
	xlogger "ZPulse/pkg/logger"
)

// trendState tracks the running action/extreme/day-range per symbol so the
// console sink can announce action flips with context.
type trendState struct {
	lastAction   models.Action
	extremePrice float64
	hasExtreme   bool
	dayHigh      float64
	dayLow       float64
	hasRange     bool
}

// ConsoleSink renders alerts in the fixed line format log scrapers depend on.
// Field order and labels are a compatibility contract; do not reorder.
type ConsoleSink struct {
	log *xlogger.Logger

	mu     sync.Mutex
	trends map[string]*trendState
}

// NewConsoleSink creates a console alert sink.
func NewConsoleSink(log *xlogger.Logger) *ConsoleSink {
	return &ConsoleSink{log: log, trends: make(map[string]*trendState)}
}

// Emit logs the alert and, on an action flip, a TREND CHANGE line first.
func (s *ConsoleSink) Emit(ctx context.Context, a *models.Alert) {
	s.mu.Lock()
	st, ok := s.trends[a.Symbol]
	if !ok {
		st = &trendState{}
		s.trends[a.Symbol] = st
	}

	if st.lastAction != a.Action {
		if st.hasExtreme && st.hasRange {
			s.log.Info(fmt.Sprintf(
				"TREND CHANGE: %-6s | Prev Act: %-4s | New Act: %-4s | Ext. Price: %8.3f | Day High: %8.3f | Day Low: %8.3f",
				a.Symbol, st.lastAction, a.Action, st.extremePrice, st.dayHigh, st.dayLow))
		}
		st.lastAction = a.Action
		st.extremePrice = a.Price
		st.hasExtreme = true
	} else {
		switch a.Action {
		case models.ActionSpikeUp:
			if !st.hasExtreme || a.Price > st.extremePrice {
				st.extremePrice = a.Price
				st.hasExtreme = true
			}
		case models.ActionSpikeDown:
			if !st.hasExtreme || a.Price < st.extremePrice {
				st.extremePrice = a.Price
				st.hasExtreme = true
			}
		}
	}

	if !st.hasRange {
		st.dayHigh, st.dayLow = a.Price, a.Price
		st.hasRange = true
	} else {
		if a.Price > st.dayHigh {
			st.dayHigh = a.Price
		}
		if a.Price < st.dayLow {
			st.dayLow = a.Price
		}
	}
	s.mu.Unlock()

	s.log.Info(FormatAlertLine(a))
}

// FormatAlertLine renders the canonical alert line.
func FormatAlertLine(a *models.Alert) string {
	samples := "N/A"
	if a.SamplesAgo >= 0 {
		samples = fmt.Sprintf("%d", a.SamplesAgo)
	}
	return fmt.Sprintf(
		"ALERT: %-6s | Price: %8.3f | Z-Score: %5.1f | Act: %-4s | Samples Ago: %4s | Z-Trend: %5.1f | Lambda: %8.2f | Ext. Price: %8.3f",
		a.Symbol, a.Price, a.ZScore, a.Action, samples, a.ZScoreTrend, a.Lambda, a.ExtrapolatedPrice)
}

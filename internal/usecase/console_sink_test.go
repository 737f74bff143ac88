package usecase

import (
	"testing"

	"ZPulse/internal/domain/models"
)

func TestFormatAlertLine(t *testing.T) {
	a := &models.Alert{
		Symbol:            "AAPL",
		Price:             123.456,
		ZScore:            4.2,
		ZScoreTrend:       0.7,
		Lambda:            0.94,
		ExtrapolatedPrice: 130.123,
		SamplesAgo:        3,
		Action:            models.ActionSpikeUp,
	}
	want := "ALERT: AAPL   | Price:  123.456 | Z-Score:   4.2 | Act: SPIKE_UP | Samples Ago:    3 | Z-Trend:   0.7 | Lambda:     0.94 | Ext. Price:  130.123"
	if got := FormatAlertLine(a); got != want {
		t.Fatalf("line mismatch\ngot:  %q\nwant: %q", got, want)
	}
}

func TestFormatAlertLineNeverCrossed(t *testing.T) {
	a := &models.Alert{
		Symbol:            "GE",
		Price:             95.5,
		ZScore:            -4.0,
		ZScoreTrend:       -0.6,
		Lambda:            0.99,
		ExtrapolatedPrice: 80.25,
		SamplesAgo:        -1,
		Action:            models.ActionSpikeDown,
	}
	want := "ALERT: GE     | Price:   95.500 | Z-Score:  -4.0 | Act: SPIKE_DOWN | Samples Ago:  N/A | Z-Trend:  -0.6 | Lambda:     0.99 | Ext. Price:   80.250"
	if got := FormatAlertLine(a); got != want {
		t.Fatalf("line mismatch\ngot:  %q\nwant: %q", got, want)
	}
}

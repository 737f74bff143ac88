package engine

import (
	"math"

	"ZPulse/internal/domain/models"
)

// DefaultZScoreWindow bounds the smoothed-level history used for the trend
// signal.
const DefaultZScoreWindow = 20

// Tracker turns estimator output into a z-score plus a trend signal. The
// trend is the newest smoothed level normalized against a bounded history of
// recent levels: how far the series has moved, in units of its own recent
// spread. A lone outlier tick barely moves the level, so it scores a high z
// but a low trend; a sustained move drags the level out of its recent range
// and crosses both gates.
type Tracker struct {
	warmup      uint64
	sigmaThresh float64

	window  int
	history []float64
	idx     int
	filled  int

	lastZ      float64
	sinceCross int // evaluations since last |z| >= sigmaThresh; -1 = never
}

// NewTracker creates a tracker. Window values below 2 fall back to the
// default since a single stored level cannot carry a trend.
func NewTracker(warmup uint64, window int, sigmaThresh float64) *Tracker {
	if window < 2 {
		window = DefaultZScoreWindow
	}
	return &Tracker{
		warmup:      warmup,
		sigmaThresh: sigmaThresh,
		window:      window,
		history:     make([]float64, window),
		sinceCross:  -1,
	}
}

// Evaluate computes the z-score of price against (mean, stddev) and the trend
// of the smoothed level. The level is recorded on every call, so the history
// covers the warmup stretch too. Returns a not-ready result while the
// estimator is still warming up or the series is degenerate.
func (t *Tracker) Evaluate(price, mean, stddev float64, sampleCount uint64) models.ZScoreResult {
	t.push(mean)

	if sampleCount <= t.warmup || stddev < Epsilon {
		return models.ZScoreResult{}
	}

	z := (price - mean) / stddev
	t.lastZ = z

	if math.Abs(z) >= t.sigmaThresh {
		t.sinceCross = 0
	} else if t.sinceCross >= 0 {
		t.sinceCross++
	}

	return models.ZScoreResult{
		ZScore:     z,
		Trend:      t.trend(),
		SamplesAgo: t.sinceCross,
		Ready:      true,
	}
}

// LastZScore returns the most recent computed z-score.
func (t *Tracker) LastZScore() float64 { return t.lastZ }

// HistoryLen returns the number of stored levels.
func (t *Tracker) HistoryLen() int { return t.filled }

func (t *Tracker) push(level float64) {
	t.history[t.idx] = level
	t.idx = (t.idx + 1) % t.window
	if t.filled < t.window {
		t.filled++
	}
}

// trend z-scores the newest level within the stored window: (newest - mean)
// over the population stddev of the window. Fewer than two entries or a flat
// window yield 0.
func (t *Tracker) trend() float64 {
	n := t.filled
	if n < 2 {
		return 0
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += t.history[i]
	}
	m := sum / float64(n)

	var ss float64
	for i := 0; i < n; i++ {
		d := t.history[i] - m
		ss += d * d
	}
	sd := math.Sqrt(ss / float64(n))
	if sd < Epsilon {
		return 0
	}

	newest := t.history[(t.idx-1+t.window)%t.window]
	return (newest - m) / sd
}

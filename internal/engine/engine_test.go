package engine

import (
	"context"
	"math"
	"sync"
	"testing"

	"ZPulse/internal/domain/models"
	xlogger "ZPulse/pkg/logger"
)

type captureSink struct {
	mu     sync.Mutex
	alerts []*models.Alert
}

func (s *captureSink) Emit(_ context.Context, a *models.Alert) {
	s.mu.Lock()
	s.alerts = append(s.alerts, a)
	s.mu.Unlock()
}

func (s *captureSink) all() []*models.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Alert(nil), s.alerts...)
}

type nopMetrics struct{}

func (nopMetrics) RecordObservation(string) {}
func (nopMetrics) RecordDrop(string) {}
func (nopMetrics) RecordAlert(string, string) {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordZScore(string, string, float64) {}
func (nopMetrics) RecordLatency(string, float64) {}

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func testConfig() Config {
	return Config{
		Timeframes: []Timeframe{{
			Name:        "fast",
			Lambda:      0.94,
			SigmaThresh: 3.0,
			TrendThresh: 2.0,
			Multiplier:  5.0,
		}},
		WarmupSamples: 10,
		ZScoreWindow:  20,
	}
}

func newTestEngine(t *testing.T, cfg Config, sink *captureSink) *Engine {
	t.Helper()
	e, err := New(cfg, sink, nopMetrics{}, testLogger(t))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

// jitterPrices returns n prices alternating around base so the variance stays
// small but non-degenerate.
func jitterPrices(base float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = base + 0.5
		} else {
			out[i] = base - 0.5
		}
	}
	return out
}

func feed(e *Engine, symbol string, prices []float64, startSeq uint64) uint64 {
	seq := startSeq
	for _, p := range prices {
		e.OnObservation(context.Background(), &models.Observation{
			Symbol:     symbol,
			Price:      p,
			SequenceNo: seq,
		})
		seq++
	}
	return seq
}

func TestEngineConfigValidate(t *testing.T) {
	bad := []Config{
		{},
		{Timeframes: []Timeframe{{Name: "", Lambda: 0.9, SigmaThresh: 3, TrendThresh: 1, Multiplier: 1}}},
		{Timeframes: []Timeframe{{Name: "f", Lambda: 1.5, SigmaThresh: 3, TrendThresh: 1, Multiplier: 1}}},
		{Timeframes: []Timeframe{{Name: "f", Lambda: 0.9, SigmaThresh: 0, TrendThresh: 1, Multiplier: 1}}},
		{Timeframes: []Timeframe{{Name: "f", Lambda: 0.9, SigmaThresh: 3, TrendThresh: 0, Multiplier: 1}}},
		{Timeframes: []Timeframe{{Name: "f", Lambda: 0.9, SigmaThresh: 3, TrendThresh: 1, Multiplier: 0}}},
		{Timeframes: []Timeframe{
			{Name: "f", Lambda: 0.9, SigmaThresh: 3, TrendThresh: 1, Multiplier: 1},
			{Name: "f", Lambda: 0.8, SigmaThresh: 3, TrendThresh: 1, Multiplier: 1},
		}},
	}
	for i, cfg := range bad {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if err := testConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestEngineNoAlertsDuringWarmup(t *testing.T) {
	sink := &captureSink{}
	e := newTestEngine(t, testConfig(), sink)

	// large swings, but fewer samples than warmup
	feed(e, "AAPL", []float64{100, 200, 50, 300, 10, 250, 40, 100, 180, 90}, 1)

	if n := len(sink.all()); n != 0 {
		t.Fatalf("expected no alerts during warmup, got %d", n)
	}
}

func TestEngineInvalidObservationDropped(t *testing.T) {
	sink := &captureSink{}
	e := newTestEngine(t, testConfig(), sink)

	e.OnObservation(context.Background(), nil)
	e.OnObservation(context.Background(), &models.Observation{Symbol: "AAPL", Price: -1, SequenceNo: 1})
	e.OnObservation(context.Background(), &models.Observation{Symbol: "AAPL", Price: math.NaN(), SequenceNo: 2})
	e.OnObservation(context.Background(), &models.Observation{Symbol: "", Price: 100, SequenceNo: 3})

	if snap := e.Snapshot("AAPL"); snap != nil {
		t.Fatalf("invalid observations must not create state")
	}
}

func TestEngineDuplicateSequenceIgnored(t *testing.T) {
	sink := &captureSink{}
	e := newTestEngine(t, testConfig(), sink)

	obs := &models.Observation{Symbol: "AAPL", Price: 100, SequenceNo: 5}
	e.OnObservation(context.Background(), obs)
	e.OnObservation(context.Background(), obs)

	snap := e.Snapshot("AAPL")
	if snap == nil {
		t.Fatalf("expected state")
	}
	if snap[0].SampleCount != 1 {
		t.Fatalf("duplicate must not advance sample count, got %d", snap[0].SampleCount)
	}
}

func TestEngineStaleSubsequenceEquivalence(t *testing.T) {
	full := []struct {
		seq   uint64
		price float64
	}{
		{1, 100.5}, {2, 99.5}, {1, 500}, {3, 100.5}, {2, 0.01}, {4, 99.5}, {3, 777}, {5, 100.5},
	}

	sinkA := &captureSink{}
	a := newTestEngine(t, testConfig(), sinkA)
	for _, o := range full {
		a.OnObservation(context.Background(), &models.Observation{Symbol: "X", Price: o.price, SequenceNo: o.seq})
	}

	sinkB := &captureSink{}
	b := newTestEngine(t, testConfig(), sinkB)
	feed(b, "X", []float64{100.5, 99.5, 100.5, 99.5, 100.5}, 1)

	sa, sb := a.Snapshot("X"), b.Snapshot("X")
	if sa == nil || sb == nil {
		t.Fatalf("expected state on both engines")
	}
	if sa[0].SampleCount != sb[0].SampleCount {
		t.Fatalf("sample counts differ: %d vs %d", sa[0].SampleCount, sb[0].SampleCount)
	}
	if math.Abs(sa[0].Mean-sb[0].Mean) > 1e-12 {
		t.Fatalf("means differ: %v vs %v", sa[0].Mean, sb[0].Mean)
	}
	if math.Abs(sa[0].StdDev-sb[0].StdDev) > 1e-12 {
		t.Fatalf("stddevs differ: %v vs %v", sa[0].StdDev, sb[0].StdDev)
	}
}

func TestEngineSpikeUpAlert(t *testing.T) {
	sink := &captureSink{}
	e := newTestEngine(t, testConfig(), sink)

	seq := feed(e, "TSLA", jitterPrices(100, 30), 1)
	if n := len(sink.all()); n != 0 {
		t.Fatalf("expected no alerts on a stable series, got %d", n)
	}

	feed(e, "TSLA", []float64{130}, seq)

	alerts := sink.all()
	if len(alerts) != 1 {
		t.Fatalf("expected exactly one alert, got %d", len(alerts))
	}
	a := alerts[0]
	if a.Action != models.ActionSpikeUp {
		t.Fatalf("expected SPIKE_UP, got %s", a.Action)
	}
	if a.ZScore < 3.0 {
		t.Fatalf("alert z below threshold: %v", a.ZScore)
	}
	if a.ZScoreTrend <= 0 {
		t.Fatalf("expected positive trend, got %v", a.ZScoreTrend)
	}
	if a.ExtrapolatedPrice <= 130 {
		t.Fatalf("expected extrapolated price beyond the spike, got %v", a.ExtrapolatedPrice)
	}
	if a.Timeframe != "fast" || a.Lambda != 0.94 {
		t.Fatalf("unexpected timeframe attribution: %s %v", a.Timeframe, a.Lambda)
	}
	if a.SamplesAgo != 0 {
		t.Fatalf("expected samples_ago 0 on the crossing tick, got %d", a.SamplesAgo)
	}
}

func TestEngineSpikeDownAlert(t *testing.T) {
	sink := &captureSink{}
	e := newTestEngine(t, testConfig(), sink)

	seq := feed(e, "MSFT", jitterPrices(100, 30), 1)
	feed(e, "MSFT", []float64{70}, seq)

	alerts := sink.all()
	if len(alerts) != 1 {
		t.Fatalf("expected exactly one alert, got %d", len(alerts))
	}
	a := alerts[0]
	if a.Action != models.ActionSpikeDown {
		t.Fatalf("expected SPIKE_DOWN, got %s", a.Action)
	}
	if a.ZScore >= 0 || a.ZScoreTrend >= 0 {
		t.Fatalf("expected negative z and trend, got %v %v", a.ZScore, a.ZScoreTrend)
	}
	if a.ExtrapolatedPrice >= 100 {
		t.Fatalf("expected extrapolation below the mean, got %v", a.ExtrapolatedPrice)
	}
}

func TestEngineRampAlerts(t *testing.T) {
	cfg := testConfig()
	cfg.Timeframes[0].Multiplier = 12.0
	sink := &captureSink{}
	e := newTestEngine(t, cfg, sink)

	// ten flat warmup ticks, then a monotone climb to 130
	seq := feed(e, "NVDA", []float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 100}, 1)
	if n := len(sink.all()); n != 0 {
		t.Fatalf("expected no alerts during warmup, got %d", n)
	}
	ramp := make([]float64, 10)
	for i := range ramp {
		ramp[i] = 100 + 3*float64(i+1)
	}
	feed(e, "NVDA", ramp, seq)

	alerts := sink.all()
	if len(alerts) != 3 {
		t.Fatalf("expected 3 alerts on the climb, got %d", len(alerts))
	}
	for _, a := range alerts {
		if a.Action != models.ActionSpikeUp {
			t.Fatalf("expected SPIKE_UP, got %s", a.Action)
		}
		if a.ZScore < 3.0 || a.ZScoreTrend < 2.0 {
			t.Fatalf("alert below thresholds: z=%v trend=%v", a.ZScore, a.ZScoreTrend)
		}
	}
	if last := alerts[len(alerts)-1]; last.ExtrapolatedPrice <= 130 {
		t.Fatalf("expected extrapolation beyond the climb target, got %v", last.ExtrapolatedPrice)
	}
}

func TestEngineSigmaOnlyNoAlert(t *testing.T) {
	sink := &captureSink{}
	e := newTestEngine(t, testConfig(), sink)

	// irregular noise keeps the smoothed level wandering, so a lone
	// outlier crosses the sigma gate but not the trend gate
	noise := []float64{
		0.4, -0.3, 0.5, 0.1, -0.5, 0.2, 0.4, -0.4, -0.1, 0.3,
		0.5, -0.2, -0.5, 0.4, 0.1, -0.3, 0.5, -0.4, 0.2, -0.1,
		0.3, -0.5, 0.4, -0.2, 0.1, 0.5, -0.3, -0.4, 0.2, 0.4,
	}
	prices := make([]float64, len(noise))
	for i, n := range noise {
		prices[i] = 100 + n
	}
	seq := feed(e, "AMD", prices, 1)
	feed(e, "AMD", []float64{102.1}, seq)

	snap := e.Snapshot("AMD")
	if snap == nil {
		t.Fatalf("expected state")
	}
	if snap[0].LastZScore < 3.0 {
		t.Fatalf("outlier should cross the sigma gate, z=%v", snap[0].LastZScore)
	}
	if n := len(sink.all()); n != 0 {
		t.Fatalf("sigma-only excursion must not alert, got %d alerts", n)
	}
}

func TestEngineSymbolsAndSnapshot(t *testing.T) {
	sink := &captureSink{}
	e := newTestEngine(t, testConfig(), sink)

	feed(e, "B", jitterPrices(50, 3), 1)
	feed(e, "A", jitterPrices(200, 3), 1)

	syms := e.Symbols()
	if len(syms) != 2 || syms[0] != "A" || syms[1] != "B" {
		t.Fatalf("unexpected symbols %v", syms)
	}

	snap := e.Snapshot("A")
	if len(snap) != 1 {
		t.Fatalf("expected one timeframe snapshot, got %d", len(snap))
	}
	if snap[0].SampleCount != 3 {
		t.Fatalf("expected 3 samples, got %d", snap[0].SampleCount)
	}
	if snap[0].Ready {
		t.Fatalf("3 samples must not be past a warmup of 10")
	}
	if e.Snapshot("ZZZ") != nil {
		t.Fatalf("unknown symbol must return nil")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		z, trend float64
		want     models.Action
	}{
		{4, 0.5, models.ActionSpikeUp},
		{-4, -0.5, models.ActionSpikeDown},
		{4, -0.5, models.ActionRevert},
		{-4, 0.5, models.ActionRevert},
	}
	for _, c := range cases {
		if got := classify(c.z, c.trend); got != c.want {
			t.Fatalf("classify(%v, %v) = %s, want %s", c.z, c.trend, got, c.want)
		}
	}
}

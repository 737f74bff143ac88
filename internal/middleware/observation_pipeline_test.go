package middleware

import (
	"context"
	"math"
	"sync"
	"testing"

	"ZPulse/internal/domain/models"
)

type recordingProc struct {
	mu   sync.Mutex
	seen map[string][]uint64
}

func newRecordingProc() *recordingProc {
	return &recordingProc{seen: make(map[string][]uint64)}
}

func (p *recordingProc) OnObservation(_ context.Context, obs *models.Observation) {
	p.mu.Lock()
	p.seen[obs.Symbol] = append(p.seen[obs.Symbol], obs.SequenceNo)
	p.mu.Unlock()
}

type countMetrics struct {
	mu    sync.Mutex
	drops int
}

func (m *countMetrics) RecordObservation(string) {}
func (m *countMetrics) RecordDrop(string) {
	m.mu.Lock()
	m.drops++
	m.mu.Unlock()
}
func (m *countMetrics) RecordAlert(string, string)           {}
func (m *countMetrics) RecordLastPrice(string, float64)      {}
func (m *countMetrics) RecordZScore(string, string, float64) {}
func (m *countMetrics) RecordLatency(string, float64)        {}

func TestPipelinePerSymbolOrdering(t *testing.T) {
	proc := newRecordingProc()
	pipe := NewObservationPipeline(proc, &countMetrics{}, WithWorkers(4), WithBufferSize(64))

	ctx := context.Background()
	pipe.Start(ctx)

	symbols := []string{"AAPL", "MSFT", "TSLA", "GE", "F"}
	const perSymbol = 50
	for seq := uint64(1); seq <= perSymbol; seq++ {
		for _, sym := range symbols {
			if err := pipe.Process(ctx, &models.Observation{Symbol: sym, Price: 100, SequenceNo: seq}); err != nil {
				t.Fatalf("process: %v", err)
			}
		}
	}
	pipe.Stop()

	for _, sym := range symbols {
		got := proc.seen[sym]
		if len(got) != perSymbol {
			t.Fatalf("%s: expected %d observations, got %d", sym, perSymbol, len(got))
		}
		for i, seq := range got {
			if seq != uint64(i+1) {
				t.Fatalf("%s: order broken at %d: got seq %d", sym, i, seq)
			}
		}
	}
}

func TestPipelineRejectsInvalid(t *testing.T) {
	proc := newRecordingProc()
	m := &countMetrics{}
	pipe := NewObservationPipeline(proc, m, WithWorkers(1))

	ctx := context.Background()
	pipe.Start(ctx)
	defer pipe.Stop()

	bad := []*models.Observation{
		nil,
		{Symbol: "", Price: 100},
		{Symbol: "AAPL", Price: 0},
		{Symbol: "AAPL", Price: -3},
		{Symbol: "AAPL", Price: math.NaN()},
	}
	for i, obs := range bad {
		if err := pipe.Process(ctx, obs); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}

	m.mu.Lock()
	drops := m.drops
	m.mu.Unlock()
	if drops != len(bad) {
		t.Fatalf("expected %d drops recorded, got %d", len(bad), drops)
	}
}

func TestPipelineStableLaneAssignment(t *testing.T) {
	pipe := NewObservationPipeline(newRecordingProc(), &countMetrics{}, WithWorkers(8))
	for _, sym := range []string{"AAPL", "MSFT", "TSLA"} {
		first := pipe.laneFor(sym)
		for i := 0; i < 10; i++ {
			if got := pipe.laneFor(sym); got != first {
				t.Fatalf("%s: lane changed from %d to %d", sym, first, got)
			}
		}
	}
}

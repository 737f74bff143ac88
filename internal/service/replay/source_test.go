package replay

import (
	"context"
	"testing"
	"time"

	"ZPulse/internal/domain/models"
	xlogger "ZPulse/pkg/logger"
)

type fakeReader struct {
	ticks []*models.Tick
	err   error
}

func (r *fakeReader) ReadWindow(_ context.Context, _ []string, _, _ time.Time) ([]*models.Tick, error) {
	return r.ticks, r.err
}

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func TestReplaySourceAssignsSequencesPerSymbol(t *testing.T) {
	base := time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC).Unix()
	reader := &fakeReader{ticks: []*models.Tick{
		{Symbol: "MSFT", Timestamp: base + 2, Price: 300},
		{Symbol: "AAPL", Timestamp: base, Price: 100},
		{Symbol: "AAPL", Timestamp: base + 1, Price: 101},
		{Symbol: "MSFT", Timestamp: base + 3, Price: 301},
		{Symbol: "AAPL", Timestamp: base + 4, Price: 102},
	}}

	src := New(reader, []string{"AAPL", "MSFT"}, 1, 1, testLogger(t))
	ctx := context.Background()
	if err := src.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := src.Subscribe(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if !src.IsConnected() {
		t.Fatalf("expected connected")
	}

	obsCh, _ := src.Read(ctx)
	seqs := make(map[string][]uint64)
	var got []*models.Observation
	for obs := range obsCh {
		got = append(got, obs)
		seqs[obs.Symbol] = append(seqs[obs.Symbol], obs.SequenceNo)
	}

	if len(got) != 5 {
		t.Fatalf("expected 5 observations, got %d", len(got))
	}
	// chronological across all symbols
	if got[0].Symbol != "AAPL" || got[0].Price != 100 {
		t.Fatalf("expected earliest tick first, got %+v", got[0])
	}
	for sym, s := range seqs {
		for i, seq := range s {
			if seq != uint64(i+1) {
				t.Fatalf("%s: expected seq %d, got %d", sym, i+1, seq)
			}
		}
	}
}

func TestReplaySourceEmptyWindow(t *testing.T) {
	src := New(&fakeReader{}, []string{"AAPL"}, 1, 1, testLogger(t))
	if err := src.Connect(context.Background()); err == nil {
		t.Fatalf("expected error for empty window")
	}
}

func TestReplaySourceSubscribeBeforeConnect(t *testing.T) {
	src := New(&fakeReader{}, []string{"AAPL"}, 1, 1, testLogger(t))
	if err := src.Subscribe(context.Background()); err == nil {
		t.Fatalf("expected error before connect")
	}
}

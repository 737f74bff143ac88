package cache

import (
	"testing"
	"time"

	"ZPulse/internal/domain/models"
)

func alert(symbol string, price float64) *models.Alert {
	return &models.Alert{
		Symbol:     symbol,
		Price:      price,
		Action:     models.ActionSpikeUp,
		DetectedAt: time.Now().UTC(),
	}
}

func TestAlertCacheAppendAndRecent(t *testing.T) {
	c := NewAlertCache(NewTTLCache(), time.Minute, 10)

	for _, p := range []float64{100, 101, 102} {
		if err := c.Append(alert("AAPL", p)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := c.Append(alert("MSFT", 300)); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, hit, err := c.Recent("AAPL", 10)
	if err != nil || !hit {
		t.Fatalf("recent: hit=%v err=%v", hit, err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 alerts, got %d", len(got))
	}
	if got[0].Price != 102 {
		t.Fatalf("expected newest first, got price %v", got[0].Price)
	}

	all, hit, err := c.Recent("", 10)
	if err != nil || !hit {
		t.Fatalf("recent all: hit=%v err=%v", hit, err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 alerts across symbols, got %d", len(all))
	}
	if all[0].Symbol != "MSFT" {
		t.Fatalf("expected newest first across symbols, got %s", all[0].Symbol)
	}
}

func TestAlertCacheLimit(t *testing.T) {
	c := NewAlertCache(NewTTLCache(), time.Minute, 10)
	for i := 0; i < 5; i++ {
		if err := c.Append(alert("TSLA", float64(i))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, hit, err := c.Recent("TSLA", 2)
	if err != nil || !hit {
		t.Fatalf("recent: hit=%v err=%v", hit, err)
	}
	if len(got) != 2 {
		t.Fatalf("expected limit 2, got %d", len(got))
	}
	if got[0].Price != 4 {
		t.Fatalf("expected newest first, got %v", got[0].Price)
	}
}

func TestAlertCacheMaxBound(t *testing.T) {
	c := NewAlertCache(NewTTLCache(), time.Minute, 3)
	for i := 0; i < 6; i++ {
		if err := c.Append(alert("GE", float64(i))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, hit, err := c.Recent("GE", 100)
	if err != nil || !hit {
		t.Fatalf("recent: hit=%v err=%v", hit, err)
	}
	if len(got) != 3 {
		t.Fatalf("expected max 3 retained, got %d", len(got))
	}
	if got[0].Price != 5 || got[2].Price != 3 {
		t.Fatalf("expected newest three, got %v..%v", got[0].Price, got[2].Price)
	}
}

func TestAlertCacheMiss(t *testing.T) {
	c := NewAlertCache(NewTTLCache(), time.Minute, 10)
	_, hit, err := c.Recent("NOPE", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if hit {
		t.Fatalf("expected miss for unknown symbol")
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache()
	if err := c.SetBytes("k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, _ := c.GetBytes("k"); !ok {
		t.Fatalf("expected hit before expiry")
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok, _ := c.GetBytes("k"); ok {
		t.Fatalf("expected miss after expiry")
	}
}

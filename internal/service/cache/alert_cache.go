package cache

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ZPulse/internal/domain/models"
)

const allSymbolsKey = "__all"

// AlertCache keeps the most recent alerts per symbol on top of a BytesCache
// backend, so the API can answer without touching ClickHouse on every call.
type AlertCache struct {
	backend BytesCache
	ttl     time.Duration
	max     int

	mu sync.Mutex // serializes read-modify-write per process
}

// NewAlertCache creates an alert cache. max bounds how many alerts are kept
// per key.
func NewAlertCache(backend BytesCache, ttl time.Duration, max int) *AlertCache {
	if max <= 0 {
		max = 100
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &AlertCache{backend: backend, ttl: ttl, max: max}
}

// Append records an alert under its symbol key and the all-symbols key.
func (c *AlertCache) Append(a *models.Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.append(key(a.Symbol), a); err != nil {
		return err
	}
	return c.append(key(allSymbolsKey), a)
}

// Recent returns up to limit newest alerts for a symbol (empty symbol means
// all symbols). Second return is false on a cache miss.
func (c *AlertCache) Recent(symbol string, limit int) ([]*models.Alert, bool, error) {
	k := key(allSymbolsKey)
	if symbol != "" {
		k = key(symbol)
	}
	b, ok, err := c.backend.GetBytes(k)
	if err != nil || !ok {
		return nil, false, err
	}
	var alerts []*models.Alert
	if err := json.Unmarshal(b, &alerts); err != nil {
		return nil, false, fmt.Errorf("decode cached alerts: %w", err)
	}
	if limit > 0 && len(alerts) > limit {
		alerts = alerts[:limit]
	}
	return alerts, true, nil
}

func (c *AlertCache) append(k string, a *models.Alert) error {
	var alerts []*models.Alert
	if b, ok, err := c.backend.GetBytes(k); err == nil && ok {
		_ = json.Unmarshal(b, &alerts)
	}

	// newest first
	alerts = append([]*models.Alert{a}, alerts...)
	if len(alerts) > c.max {
		alerts = alerts[:c.max]
	}

	b, err := json.Marshal(alerts)
	if err != nil {
		return fmt.Errorf("encode cached alerts: %w", err)
	}
	return c.backend.SetBytes(k, b, c.ttl)
}

func key(symbol string) string {
	return "alerts:" + symbol
}

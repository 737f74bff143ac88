package repository

import (
	"context"
	"time"

	"ZPulse/internal/domain/models"
)

// ObservationSource supplies price observations, live or replayed. The source
// guarantees per-symbol ordering: for a given symbol, observations arrive on
// the channel with strictly increasing sequence numbers.
type ObservationSource interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Observation, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// AlertSink consumes alert events emitted by the engine. Per-alert failures
// are the sink's problem, never the engine's.
type AlertSink interface {
	Emit(ctx context.Context, a *models.Alert)
}

// AlertStore persists emitted alerts for audit and later inspection.
type AlertStore interface {
	Store(ctx context.Context, a *models.Alert) error
	Recent(ctx context.Context, symbol string, limit int) ([]*models.Alert, error)
	Health(ctx context.Context) error
	Close() error
}

// TickReader reads historical price ticks for replay, oldest first.
type TickReader interface {
	ReadWindow(ctx context.Context, symbols []string, from, to time.Time) ([]*models.Tick, error)
}

// AlertPublisher pushes alerts onto a message bus.
type AlertPublisher interface {
	Publish(ctx context.Context, a *models.Alert) error
	Close() error
}

// Metrics records operational counters for the observation path.
type Metrics interface {
	RecordObservation(symbol string)
	RecordDrop(reason string)
	RecordAlert(symbol string, action string)
	RecordLastPrice(symbol string, price float64)
	RecordZScore(symbol, timeframe string, z float64)
	RecordLatency(op string, seconds float64)
}

package usecase

import (
	"context"

	"ZPulse/internal/domain/models"
	domrepo "ZPulse/internal/domain/repository"
	mid "ZPulse/internal/middleware"
	xlogger "ZPulse/pkg/logger"
)

// ObservationCollector pulls observations from a source and feeds them
// through the ordering pipeline into the engine. With a replay source the
// stream ends when the window is exhausted; with a live source read errors
// trigger reconnects.
type ObservationCollector struct {
	source  domrepo.ObservationSource
	pipe    *mid.ObservationPipeline
	metrics domrepo.Metrics
	log     *xlogger.Logger

	done chan struct{}
}

// NewObservationCollector creates a collector.
func NewObservationCollector(source domrepo.ObservationSource, pipe *mid.ObservationPipeline, metrics domrepo.Metrics, log *xlogger.Logger) *ObservationCollector {
	return &ObservationCollector{
		source:  source,
		pipe:    pipe,
		metrics: metrics,
		log:     log,
		done:    make(chan struct{}),
	}
}

// Start connects, subscribes, and begins consuming in the background.
func (c *ObservationCollector) Start(ctx context.Context) error {
	if err := c.source.Connect(ctx); err != nil {
		return err
	}
	if err := c.source.Subscribe(ctx); err != nil {
		return err
	}
	c.pipe.Start(ctx)

	obsCh, errCh := c.source.Read(ctx)
	go c.consume(ctx, obsCh, errCh)
	return nil
}

// Done closes when the source stream has ended (replay exhausted or source
// permanently closed).
func (c *ObservationCollector) Done() <-chan struct{} { return c.done }

// IsConnected reports the source connection state.
func (c *ObservationCollector) IsConnected() bool { return c.source.IsConnected() }

func (c *ObservationCollector) consume(ctx context.Context, obsCh <-chan *models.Observation, errCh <-chan error) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				c.metrics.RecordDrop("stream_error")
				c.log.Warn("stream error, reconnecting", xlogger.Error(err))
				if rerr := c.source.Reconnect(ctx); rerr != nil {
					c.log.Error("reconnect failed", xlogger.Error(rerr))
					return
				}
				obsCh, errCh = c.source.Read(ctx)
			}
		case obs, ok := <-obsCh:
			if !ok {
				// stream ended (replay window drained)
				return
			}
			if obs == nil {
				continue
			}
			if err := c.pipe.Process(ctx, obs); err != nil {
				c.log.Debug("observation rejected",
					xlogger.String("symbol", obs.Symbol),
					xlogger.Error(err))
			}
		}
	}
}

// Shutdown stops the pipeline and closes the source.
func (c *ObservationCollector) Shutdown(ctx context.Context) error {
	c.pipe.Stop()
	return c.source.Close()
}

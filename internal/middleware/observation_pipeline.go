package middleware

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"ZPulse/internal/domain/models"
	domrepo "ZPulse/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline dispatches to.
type Proc interface {
	OnObservation(ctx context.Context, obs *models.Observation)
}

// ObservationPipeline sits between an observation source and the engine. It
// validates observations and guarantees single-writer-per-symbol by routing
// every symbol to exactly one worker goroutine (fnv hash of the symbol), so
// unrelated symbols proceed in parallel while each symbol stays sequential.
type ObservationPipeline struct {
	proc    Proc
	metrics domrepo.Metrics

	workers int
	bufSize int
	lanes   []chan *models.Observation

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

type PipelineOption func(*ObservationPipeline)

// WithWorkers sets the number of dispatch workers.
func WithWorkers(n int) PipelineOption {
	return func(p *ObservationPipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithBufferSize sets the per-worker channel buffer.
func WithBufferSize(n int) PipelineOption {
	return func(p *ObservationPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewObservationPipeline creates a new pipeline.
func NewObservationPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *ObservationPipeline {
	p := &ObservationPipeline{
		proc:    proc,
		metrics: metrics,
		workers: 4,
		bufSize: 1024,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.lanes = make([]chan *models.Observation, p.workers)
	for i := range p.lanes {
		p.lanes[i] = make(chan *models.Observation, p.bufSize)
	}
	return p
}

// Start launches the dispatch workers.
func (p *ObservationPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	for _, lane := range p.lanes {
		p.wg.Add(1)
		go func(ch <-chan *models.Observation) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.stopCh:
					// drain so a Stop during replay does not lose tail data
					for {
						select {
						case obs := <-ch:
							p.proc.OnObservation(ctx, obs)
						default:
							return
						}
					}
				case obs := <-ch:
					start := time.Now()
					p.proc.OnObservation(ctx, obs)
					p.metrics.RecordLatency("observation", time.Since(start).Seconds())
				}
			}
		}(lane)
	}
}

// Stop stops the workers after draining their lanes.
func (p *ObservationPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
	p.wg.Wait()
}

// Process validates an observation and hands it to the symbol's lane. Blocks
// when the lane is full so the source provides natural backpressure; malformed
// observations are dropped up front.
func (p *ObservationPipeline) Process(ctx context.Context, obs *models.Observation) error {
	if err := validate(obs); err != nil {
		p.metrics.RecordDrop("invalid")
		return err
	}

	lane := p.lanes[p.laneFor(obs.Symbol)]
	select {
	case lane <- obs:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *ObservationPipeline) laneFor(symbol string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol))
	return int(h.Sum32() % uint32(p.workers))
}

func validate(obs *models.Observation) error {
	if obs == nil {
		return fmt.Errorf("observation nil")
	}
	if obs.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if math.IsNaN(obs.Price) || math.IsInf(obs.Price, 0) || obs.Price <= 0 {
		return fmt.Errorf("price invalid: %v", obs.Price)
	}
	return nil
}

package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"ZPulse/internal/domain/models"
	domrepo "ZPulse/internal/domain/repository"
	xlogger "ZPulse/pkg/logger"
)

// Timeframe is one resolved decay horizon the engine tracks per symbol.
// Thresholds are already merged with the global defaults by the config layer.
type Timeframe struct {
	Name        string
	Lambda      float64
	SigmaThresh float64
	TrendThresh float64
	Multiplier  float64 // extrapolation scale for this timeframe
}

// Config is the immutable engine configuration, validated at construction.
type Config struct {
	Timeframes    []Timeframe
	WarmupSamples uint64
	ZScoreWindow  int
}

// Validate rejects incomplete threshold sets.
func (c Config) Validate() error {
	if len(c.Timeframes) == 0 {
		return fmt.Errorf("at least one timeframe is required")
	}
	seen := make(map[string]struct{}, len(c.Timeframes))
	for _, tf := range c.Timeframes {
		if tf.Name == "" {
			return fmt.Errorf("timeframe name is required")
		}
		if _, dup := seen[tf.Name]; dup {
			return fmt.Errorf("duplicate timeframe %q", tf.Name)
		}
		seen[tf.Name] = struct{}{}
		if tf.Lambda <= 0 || tf.Lambda >= 1 {
			return fmt.Errorf("timeframe %q: lambda must be in (0,1), got %v", tf.Name, tf.Lambda)
		}
		if tf.SigmaThresh <= 0 {
			return fmt.Errorf("timeframe %q: sigma_thresh must be positive, got %v", tf.Name, tf.SigmaThresh)
		}
		if tf.TrendThresh <= 0 {
			return fmt.Errorf("timeframe %q: zscore_trend_thresh must be positive, got %v", tf.Name, tf.TrendThresh)
		}
		if tf.Multiplier <= 0 {
			return fmt.Errorf("timeframe %q: lambda_multiplier must be positive, got %v", tf.Name, tf.Multiplier)
		}
	}
	return nil
}

type frameState struct {
	tf  Timeframe
	est *Estimator
	trk *Tracker
}

type symbolState struct {
	mu      sync.Mutex
	lastSeq uint64
	seen    bool
	frames  []*frameState
}

// Engine consumes observations, updates per-(symbol, timeframe) statistics,
// and emits alerts when both the z-score and its trend cross their
// thresholds. OnObservation is a synchronous state transition and performs no
// I/O beyond the sink emit.
type Engine struct {
	cfg     Config
	sink    domrepo.AlertSink
	metrics domrepo.Metrics
	log     *xlogger.Logger

	mu      sync.RWMutex
	symbols map[string]*symbolState
}

// New creates an engine. The config must pass Validate.
func New(cfg Config, sink domrepo.AlertSink, metrics domrepo.Metrics, log *xlogger.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	if cfg.ZScoreWindow < 2 {
		cfg.ZScoreWindow = DefaultZScoreWindow
	}
	return &Engine{
		cfg:     cfg,
		sink:    sink,
		metrics: metrics,
		log:     log,
		symbols: make(map[string]*symbolState),
	}, nil
}

// OnObservation processes one observation. Invalid and out-of-order
// observations are dropped without touching state; both are expected under
// at-least-once delivery and never abort the stream.
func (e *Engine) OnObservation(ctx context.Context, obs *models.Observation) {
	if obs == nil {
		return
	}
	if obs.Symbol == "" || math.IsNaN(obs.Price) || math.IsInf(obs.Price, 0) || obs.Price <= 0 {
		e.metrics.RecordDrop("invalid")
		e.log.Warn("dropping invalid observation",
			xlogger.String("symbol", obs.Symbol),
			xlogger.Float64("price", obs.Price))
		return
	}

	st := e.state(obs.Symbol)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.seen && obs.SequenceNo <= st.lastSeq {
		e.metrics.RecordDrop("out_of_order")
		return
	}
	st.lastSeq = obs.SequenceNo
	st.seen = true

	e.metrics.RecordObservation(obs.Symbol)
	e.metrics.RecordLastPrice(obs.Symbol, obs.Price)

	for _, fr := range st.frames {
		mean, stddev, err := fr.est.Update(obs.Price)
		if err != nil {
			// price already validated above; kept as a safety net
			e.metrics.RecordDrop("invalid")
			continue
		}

		res := fr.trk.Evaluate(obs.Price, mean, stddev, fr.est.SampleCount())
		if !res.Ready {
			continue
		}
		e.metrics.RecordZScore(obs.Symbol, fr.tf.Name, res.ZScore)

		if math.Abs(res.ZScore) < fr.tf.SigmaThresh || math.Abs(res.Trend) < fr.tf.TrendThresh {
			continue
		}

		alert := &models.Alert{
			Symbol:            obs.Symbol,
			Price:             obs.Price,
			ZScore:            res.ZScore,
			ZScoreTrend:       res.Trend,
			Timeframe:         fr.tf.Name,
			Lambda:            fr.tf.Lambda,
			ExtrapolatedPrice: mean + sign(res.ZScore)*fr.tf.Multiplier*stddev,
			SamplesAgo:        res.SamplesAgo,
			Action:            classify(res.ZScore, res.Trend),
			SequenceNo:        obs.SequenceNo,
			DetectedAt:        time.Now().UTC(),
		}
		e.metrics.RecordAlert(obs.Symbol, string(alert.Action))
		e.sink.Emit(ctx, alert)
	}
}

// Snapshot returns the current estimator state for a symbol, one entry per
// timeframe. Returns nil for a symbol the engine has never seen.
func (e *Engine) Snapshot(symbol string) []models.SymbolSnapshot {
	e.mu.RLock()
	st, ok := e.symbols[symbol]
	e.mu.RUnlock()
	if !ok {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	out := make([]models.SymbolSnapshot, 0, len(st.frames))
	for _, fr := range st.frames {
		out = append(out, models.SymbolSnapshot{
			Symbol:      symbol,
			Timeframe:   fr.tf.Name,
			Lambda:      fr.tf.Lambda,
			Mean:        fr.est.Mean(),
			StdDev:      fr.est.StdDev(),
			SampleCount: fr.est.SampleCount(),
			LastZScore:  fr.trk.LastZScore(),
			Ready:       fr.est.SampleCount() > e.cfg.WarmupSamples,
		})
	}
	return out
}

// Symbols lists every symbol the engine has state for, sorted.
func (e *Engine) Symbols() []string {
	e.mu.RLock()
	out := make([]string, 0, len(e.symbols))
	for s := range e.symbols {
		out = append(out, s)
	}
	e.mu.RUnlock()
	sort.Strings(out)
	return out
}

// state returns the per-symbol bundle, creating it on first observation.
// Symbols are never removed for the process lifetime.
func (e *Engine) state(symbol string) *symbolState {
	e.mu.RLock()
	st, ok := e.symbols[symbol]
	e.mu.RUnlock()
	if ok {
		return st
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok = e.symbols[symbol]; ok {
		return st
	}

	st = &symbolState{frames: make([]*frameState, 0, len(e.cfg.Timeframes))}
	for _, tf := range e.cfg.Timeframes {
		est, _ := NewEstimator(tf.Lambda) // lambda validated at construction
		st.frames = append(st.frames, &frameState{
			tf:  tf,
			est: est,
			trk: NewTracker(e.cfg.WarmupSamples, e.cfg.ZScoreWindow, tf.SigmaThresh),
		})
	}
	e.symbols[symbol] = st
	return st
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func classify(z, trend float64) models.Action {
	switch {
	case z > 0 && trend > 0:
		return models.ActionSpikeUp
	case z < 0 && trend < 0:
		return models.ActionSpikeDown
	default:
		return models.ActionRevert
	}
}

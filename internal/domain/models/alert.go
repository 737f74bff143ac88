package models

import "time"

// Action classifies an anomaly by the sign agreement between the z-score and
// its trend.
type Action string

const (
	ActionSpikeUp   Action = "SPIKE_UP"
	ActionSpikeDown Action = "SPIKE_DOWN"
	ActionRevert    Action = "REVERT"
)

// Alert is an immutable anomaly event produced by the engine.
type Alert struct {
	Symbol            string    `json:"symbol"`
	Price             float64   `json:"price"`
	ZScore            float64   `json:"zscore"`
	ZScoreTrend       float64   `json:"zscore_trend"`
	Timeframe         string    `json:"timeframe"`
	Lambda            float64   `json:"lambda"`
	ExtrapolatedPrice float64   `json:"extrapolated_price"`
	SamplesAgo        int       `json:"samples_ago"`
	Action            Action    `json:"action"`
	SequenceNo        uint64    `json:"sequence_no"`
	DetectedAt        time.Time `json:"detected_at"`
}

// ZScoreResult is the outcome of one tracker evaluation. When Ready is false
// the remaining fields are meaningless and the caller must not alert.
type ZScoreResult struct {
	ZScore     float64
	Trend      float64
	SamplesAgo int
	Ready      bool
}

// SymbolSnapshot reports the live estimator state for one (symbol, timeframe)
// pair, served by the state API.
type SymbolSnapshot struct {
	Symbol      string  `json:"symbol"`
	Timeframe   string  `json:"timeframe"`
	Lambda      float64 `json:"lambda"`
	Mean        float64 `json:"mean"`
	StdDev      float64 `json:"stddev"`
	SampleCount uint64  `json:"sample_count"`
	LastZScore  float64 `json:"last_zscore"`
	Ready       bool    `json:"ready"`
}

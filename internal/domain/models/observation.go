package models

import "time"

// Observation is a single sequence-numbered price sample for one symbol.
// SequenceNo is the sole ordering key: wall-clock timestamps may repeat or
// arrive out of order under replay.
type Observation struct {
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	Timestamp  time.Time `json:"timestamp"`
	SequenceNo uint64    `json:"sequence_no"`
}

// Tick is a persisted historical price sample, the replay source's row shape.
type Tick struct {
	Symbol    string
	Timestamp int64 // unix seconds
	Price     float64
	Volume    float64
}

package engine

import (
	"errors"
	"fmt"
	"math"
)

// Epsilon below which a standard deviation is treated as degenerate.
const Epsilon = 1e-9

var (
	// ErrInvalidObservation marks a non-finite or non-positive price. The
	// observation is dropped and estimator state is left untouched.
	ErrInvalidObservation = errors.New("invalid observation")
)

// Estimator maintains an exponentially weighted mean and variance for one
// (symbol, timeframe) pair. Lambda is the weight retained from the past;
// smaller lambda adapts faster. State is O(1) regardless of stream length.
type Estimator struct {
	lambda      float64
	ewma        float64
	ewvar       float64
	count       uint64
	initialized bool
}

// NewEstimator creates an estimator for the given decay factor.
func NewEstimator(lambda float64) (*Estimator, error) {
	if lambda <= 0 || lambda >= 1 || math.IsNaN(lambda) {
		return nil, fmt.Errorf("lambda must be in (0,1), got %v", lambda)
	}
	return &Estimator{lambda: lambda}, nil
}

// Update folds a new price into the estimate and returns the updated mean and
// standard deviation. On ErrInvalidObservation nothing changes.
//
// The variance recurrence ewvar' = lambda*ewvar + (1-lambda)*delta^2 keeps
// ewvar non-negative by construction: both terms are products of non-negative
// factors.
func (e *Estimator) Update(price float64) (mean, stddev float64, err error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return e.ewma, math.Sqrt(e.ewvar), ErrInvalidObservation
	}

	if !e.initialized {
		e.ewma = price
		e.ewvar = 0
		e.initialized = true
		e.count++
		return e.ewma, 0, nil
	}

	delta := price - e.ewma
	e.ewma += (1 - e.lambda) * delta
	e.ewvar = e.lambda*e.ewvar + (1-e.lambda)*delta*delta
	e.count++

	return e.ewma, math.Sqrt(e.ewvar), nil
}

// Mean returns the current exponentially weighted mean.
func (e *Estimator) Mean() float64 { return e.ewma }

// StdDev returns the current exponentially weighted standard deviation.
func (e *Estimator) StdDev() float64 { return math.Sqrt(e.ewvar) }

// SampleCount returns the number of accepted samples.
func (e *Estimator) SampleCount() uint64 { return e.count }

// Lambda returns the decay factor.
func (e *Estimator) Lambda() float64 { return e.lambda }

// Initialized reports whether at least one sample has been accepted.
func (e *Estimator) Initialized() bool { return e.initialized }

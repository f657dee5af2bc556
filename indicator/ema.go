package indicator

import (
	"fmt"

	"go.uber.org/atomic"
)

// EMA represents the Exponential Moving Average indicator.
type EMA struct {
	period int
	k      float64
	value  atomic.Float64
	seeded atomic.Bool
}

// NewEMA initializes an exponential moving average over the provided period.
func NewEMA(period int) (*EMA, error) {
	if period < 1 {
		return nil, fmt.Errorf("ema period must be positive, got %d", period)
	}

	return &EMA{
		period: period,
		k:      2 / float64(period+1),
	}, nil
}

// Update advances the average with the provided close price.
func (e *EMA) Update(close float64) float64 {
	if !e.seeded.Load() {
		// The average is seeded with the first close, there is no lookback gap.
		e.seeded.Store(true)
		e.value.Store(close)
		return close
	}

	value := close*e.k + e.value.Load()*(1-e.k)
	e.value.Store(value)

	return value
}

// Value returns the current value of the average.
func (e *EMA) Value() float64 {
	return e.value.Load()
}

// Reset resets the average to its unseeded state.
func (e *EMA) Reset() {
	e.seeded.Store(false)
	e.value.Store(0)
}

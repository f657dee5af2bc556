package indicator

import (
	"fmt"
	"math"
	"sync"

	"go.uber.org/atomic"
)

// ATR represents the Average True Range indicator. The average is a rolling
// simple mean of the last period true ranges and stays at zero until the
// window fills.
type ATR struct {
	period     int
	trueRanges []float64
	prevClose  float64
	primed     bool
	mtx        sync.Mutex

	value atomic.Float64
	warm  atomic.Bool
}

// NewATR initializes an average true range over the provided period.
func NewATR(period int) (*ATR, error) {
	if period < 1 {
		return nil, fmt.Errorf("atr period must be positive, got %d", period)
	}

	return &ATR{
		period:     period,
		trueRanges: make([]float64, 0, period),
	}, nil
}

// Update advances the average with the provided candle data, returning the
// computed true range and the current average.
func (a *ATR) Update(high float64, low float64, close float64) (float64, float64) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	trueRange := high - low
	if a.primed {
		trueRange = math.Max(high-low,
			math.Max(math.Abs(high-a.prevClose), math.Abs(low-a.prevClose)))
	}
	a.prevClose = close
	a.primed = true

	if len(a.trueRanges) == a.period {
		copy(a.trueRanges, a.trueRanges[1:])
		a.trueRanges[a.period-1] = trueRange
	} else {
		a.trueRanges = append(a.trueRanges, trueRange)
	}

	if len(a.trueRanges) < a.period {
		return trueRange, 0
	}

	var sum float64
	for idx := range a.trueRanges {
		sum += a.trueRanges[idx]
	}

	value := sum / float64(a.period)
	a.value.Store(value)
	a.warm.Store(true)

	return trueRange, value
}

// Value returns the current value of the average.
func (a *ATR) Value() float64 {
	return a.value.Load()
}

// Warm reports whether the true range window has filled.
func (a *ATR) Warm() bool {
	return a.warm.Load()
}

// Reset resets the average to its unwarmed state.
func (a *ATR) Reset() {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	a.trueRanges = a.trueRanges[:0]
	a.prevClose = 0
	a.primed = false
	a.value.Store(0)
	a.warm.Store(false)
}

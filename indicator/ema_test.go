package indicator

import (
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestNewEMA(t *testing.T) {
	// Ensure an ema cannot be created with an invalid period.
	_, err := NewEMA(0)
	assert.Error(t, err)

	_, err = NewEMA(-3)
	assert.Error(t, err)

	ema, err := NewEMA(9)
	assert.NoError(t, err)
	assert.NotNil(t, ema)
}

func TestEMAUpdate(t *testing.T) {
	ema, err := NewEMA(3)
	assert.NoError(t, err)

	// Ensure the average is seeded with the first close.
	assert.Equal(t, float64(10), ema.Update(float64(10)))
	assert.Equal(t, float64(10), ema.Value())

	// Ensure subsequent updates weight the new close by the smoothing factor.
	// With period 3 the factor is 0.5, so values stay exact.
	assert.Equal(t, float64(11), ema.Update(float64(12)))
	assert.Equal(t, float64(12.5), ema.Update(float64(14)))
	assert.Equal(t, float64(12.5), ema.Value())

	// Ensure resetting clears the seed so the next update reseeds the average.
	ema.Reset()
	assert.Equal(t, float64(0), ema.Value())
	assert.Equal(t, float64(20), ema.Update(float64(20)))
}

func TestEMADeterminism(t *testing.T) {
	closes := []float64{10, 12, 11.5, 13, 12.25, 14}

	run := func() []float64 {
		ema, err := NewEMA(9)
		assert.NoError(t, err)

		out := make([]float64, 0, len(closes))
		for _, close := range closes {
			out = append(out, ema.Update(close))
		}
		return out
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
}

package indicator

import (
	"fmt"
	"math"

	"github.com/dnldd/hammer/shared"
)

// Row is a candlestick joined with its derived indicator values.
type Row struct {
	shared.Candlestick
	EMAFast   float64
	EMASlow   float64
	TrueRange float64
	ATR       float64
}

// Warm reports whether the row's average true range window has filled.
func (r *Row) Warm() bool {
	return r.ATR > 0
}

// ConfirmsUptrend reports whether the row's close holds above the lower bound
// of its ema envelope.
func (r *Row) ConfirmsUptrend() bool {
	return r.Close > math.Min(r.EMAFast, r.EMASlow)
}

// ConfirmsDowntrend reports whether the row's close holds below the upper
// bound of its ema envelope.
func (r *Row) ConfirmsDowntrend() bool {
	return r.Close < math.Max(r.EMAFast, r.EMASlow)
}

// ComputeSeries derives indicator rows for the provided candlesticks. The
// result preserves the input's length and order, and is a pure function of
// the series and the provided periods.
func ComputeSeries(candles []shared.Candlestick, fastPeriod int, slowPeriod int, atrPeriod int) ([]Row, error) {
	emaFast, err := NewEMA(fastPeriod)
	if err != nil {
		return nil, fmt.Errorf("creating fast ema: %w", err)
	}

	emaSlow, err := NewEMA(slowPeriod)
	if err != nil {
		return nil, fmt.Errorf("creating slow ema: %w", err)
	}

	atr, err := NewATR(atrPeriod)
	if err != nil {
		return nil, fmt.Errorf("creating atr: %w", err)
	}

	rows := make([]Row, len(candles))
	for idx := range candles {
		candle := &candles[idx]
		trueRange, average := atr.Update(candle.High, candle.Low, candle.Close)

		rows[idx] = Row{
			Candlestick: *candle,
			EMAFast:     emaFast.Update(candle.Close),
			EMASlow:     emaSlow.Update(candle.Close),
			TrueRange:   trueRange,
			ATR:         average,
		}
	}

	return rows, nil
}

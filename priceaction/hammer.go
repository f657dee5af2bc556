package priceaction

import "github.com/dnldd/hammer/shared"

const (
	// minimumCandleBody is the smallest classifiable body size. Doji-like
	// candles below it never form a hammer.
	minimumCandleBody = 0.0001

	// MaxOppositeShadowFactor bounds the shadow opposite a hammer's
	// confirming shadow, relative to its body.
	MaxOppositeShadowFactor = 0.65
	// MinConfirmingShadowRatio is the minimum confirming shadow length
	// relative to a hammer's body.
	MinConfirmingShadowRatio = 1.5
)

// IsBullishHammer reports whether the provided candle closes up with a short
// upper shadow and a long lower shadow under the provided thresholds.
func IsBullishHammer(candle *shared.Candlestick, maxOppositeShadowFactor float64, minConfirmingShadowRatio float64) bool {
	if candle.FetchSentiment() != shared.Bullish {
		return false
	}

	body := candle.Close - candle.Open
	if body < minimumCandleBody {
		return false
	}

	upperShadow := candle.High - candle.Close
	lowerShadow := candle.Open - candle.Low

	if upperShadow > maxOppositeShadowFactor*body {
		return false
	}
	if lowerShadow < minConfirmingShadowRatio*body {
		return false
	}

	return true
}

// IsBearishHammer reports whether the provided candle closes down with a short
// lower shadow and a long upper shadow under the provided thresholds.
func IsBearishHammer(candle *shared.Candlestick, maxOppositeShadowFactor float64, minConfirmingShadowRatio float64) bool {
	if candle.FetchSentiment() != shared.Bearish {
		return false
	}

	body := candle.Open - candle.Close
	if body < minimumCandleBody {
		return false
	}

	upperShadow := candle.High - candle.Open
	lowerShadow := candle.Close - candle.Low

	if lowerShadow > maxOppositeShadowFactor*body {
		return false
	}
	if upperShadow < minConfirmingShadowRatio*body {
		return false
	}

	return true
}

// Classify classifies the provided candle, looking only at its own shape. The
// classification is a pure function of the candle and the thresholds.
func Classify(candle *shared.Candlestick, maxOppositeShadowFactor float64, minConfirmingShadowRatio float64) shared.Pattern {
	switch {
	case IsBullishHammer(candle, maxOppositeShadowFactor, minConfirmingShadowRatio):
		return shared.BullishHammer
	case IsBearishHammer(candle, maxOppositeShadowFactor, minConfirmingShadowRatio):
		return shared.BearishHammer
	default:
		return shared.NoPattern
	}
}

package shared

import (
	"math"
	"time"
)

const (
	// TimeoutDuration is the maximum time to wait before timing out.
	TimeoutDuration = time.Second * 4
)

// IndicatorState describes the current indicator values of a market on a timeframe.
type IndicatorState struct {
	Market    string
	Timeframe Timeframe
	EMAFast   float64
	EMASlow   float64
	ATR       float64
	Warm      bool
}

// ConfirmsUptrend reports whether the provided close holds above the lower
// bound of the ema envelope.
func (s *IndicatorState) ConfirmsUptrend(close float64) bool {
	return close > math.Min(s.EMAFast, s.EMASlow)
}

// ConfirmsDowntrend reports whether the provided close holds below the upper
// bound of the ema envelope.
func (s *IndicatorState) ConfirmsDowntrend(close float64) bool {
	return close < math.Max(s.EMAFast, s.EMASlow)
}

// IndicatorStateRequest represents a request to fetch the current indicator
// state of a market on a timeframe.
type IndicatorStateRequest struct {
	Market    string
	Timeframe Timeframe
	Response  chan IndicatorState
}

// NewIndicatorStateRequest initializes a new indicator state request.
func NewIndicatorStateRequest(market string, timeframe Timeframe) *IndicatorStateRequest {
	return &IndicatorStateRequest{
		Market:    market,
		Timeframe: timeframe,
		Response:  make(chan IndicatorState, 1),
	}
}

// OpenPositionRequest represents a request to check for an open position on a
// market and timeframe.
type OpenPositionRequest struct {
	Market    string
	Timeframe Timeframe
	Response  chan bool
}

// NewOpenPositionRequest initializes a new open position request.
func NewOpenPositionRequest(market string, timeframe Timeframe) *OpenPositionRequest {
	return &OpenPositionRequest{
		Market:    market,
		Timeframe: timeframe,
		Response:  make(chan bool, 1),
	}
}

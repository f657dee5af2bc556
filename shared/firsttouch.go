package shared

import "fmt"

// FirstTouchPolicy decides which exit level wins when a candle's range touches
// both the stop loss and the take profit of a trade. Candle data carries no
// intra-candle ordering, so the winner is an assumption the policy makes
// explicit. TakeProfitFirst is the optimistic default.
type FirstTouchPolicy int

const (
	TakeProfitFirst FirstTouchPolicy = iota
	StopLossFirst
)

// String stringifies the provided policy.
func (p FirstTouchPolicy) String() string {
	switch p {
	case TakeProfitFirst:
		return "take profit first"
	case StopLossFirst:
		return "stop loss first"
	default:
		return "unknown"
	}
}

// ParseFirstTouchPolicy parses a first touch policy from the provided name.
func ParseFirstTouchPolicy(name string) (FirstTouchPolicy, error) {
	switch name {
	case "takeprofit":
		return TakeProfitFirst, nil
	case "stoploss":
		return StopLossFirst, nil
	default:
		return 0, fmt.Errorf("unknown first touch policy: %s", name)
	}
}

// FirstTouch resolves which exit level, if any, the provided candle range
// touches for a trade in the provided direction. Ties are broken by the policy.
func FirstTouch(direction Direction, stopLoss float64, takeProfit float64, high float64, low float64, policy FirstTouchPolicy) (Outcome, bool) {
	var takeProfitTouched, stopLossTouched bool
	switch direction {
	case Buy:
		takeProfitTouched = high >= takeProfit
		stopLossTouched = low <= stopLoss
	case Sell:
		takeProfitTouched = low <= takeProfit
		stopLossTouched = high >= stopLoss
	}

	switch {
	case takeProfitTouched && stopLossTouched:
		if policy == StopLossFirst {
			return StopLossHit, true
		}
		return TakeProfitHit, true
	case takeProfitTouched:
		return TakeProfitHit, true
	case stopLossTouched:
		return StopLossHit, true
	default:
		return NoExit, false
	}
}

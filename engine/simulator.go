package engine

import (
	"fmt"
	"time"

	"github.com/dnldd/hammer/indicator"
	"github.com/dnldd/hammer/shared"
)

// SimulatedTrade represents a single trade resolved from a pattern signal
// against historic data. A trade is finalized by the simulator and never
// mutated afterwards.
type SimulatedTrade struct {
	Market      string           `json:"market"`
	Timeframe   shared.Timeframe `json:"timeframe"`
	Direction   shared.Direction `json:"direction"`
	Pattern     shared.Pattern   `json:"pattern"`
	EntryTime   time.Time        `json:"entry_time"`
	EntryPrice  float64          `json:"entry_price"`
	StopLoss    float64          `json:"stop_loss"`
	TakeProfit  float64          `json:"take_profit"`
	ATR         float64          `json:"atr"`
	Outcome     shared.Outcome   `json:"outcome"`
	ExitTime    time.Time        `json:"exit_time"`
	ExitPrice   float64          `json:"exit_price"`
	Profit      float64          `json:"profit"`
	CandlesHeld int              `json:"candles_held"`
}

// SimulateTrade opens a trade at the close of the signal row and scans the
// following lookahead rows in order for the first touch of its stop loss or
// take profit. A trade that touches neither within the window keeps the
// NoExit outcome.
func SimulateTrade(series []indicator.Row, signalIdx int, direction shared.Direction,
	stopLossMultiple float64, takeProfitMultiple float64, lookahead int,
	profitMode shared.ProfitMode, policy shared.FirstTouchPolicy) (*SimulatedTrade, error) {
	if signalIdx < 0 || signalIdx >= len(series) {
		return nil, fmt.Errorf("signal index %d out of range for series of %d rows",
			signalIdx, len(series))
	}
	if lookahead < 0 {
		return nil, fmt.Errorf("lookahead cannot be negative, got %d", lookahead)
	}

	row := &series[signalIdx]
	if row.ATR <= 0 {
		return nil, fmt.Errorf("cannot simulate a %s trade at %s with an unwarmed atr",
			direction.String(), row.Date.Format(shared.DateLayout))
	}

	entry := row.Close
	var stopLoss, takeProfit float64
	switch direction {
	case shared.Buy:
		stopLoss = entry - stopLossMultiple*row.ATR
		takeProfit = entry + takeProfitMultiple*row.ATR
	case shared.Sell:
		stopLoss = entry + stopLossMultiple*row.ATR
		takeProfit = entry - takeProfitMultiple*row.ATR
	default:
		return nil, fmt.Errorf("unknown trade direction: %d", direction)
	}

	trade := &SimulatedTrade{
		Market:     row.Market,
		Timeframe:  row.Timeframe,
		Direction:  direction,
		EntryTime:  row.Date,
		EntryPrice: entry,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		ATR:        row.ATR,
		Outcome:    shared.NoExit,
	}

	end := signalIdx + lookahead
	if end > len(series)-1 {
		end = len(series) - 1
	}

	for idx := signalIdx + 1; idx <= end; idx++ {
		future := &series[idx]

		outcome, touched := shared.FirstTouch(direction, stopLoss, takeProfit,
			future.High, future.Low, policy)
		if !touched {
			continue
		}

		trade.Outcome = outcome
		trade.ExitTime = future.Date
		trade.CandlesHeld = idx - signalIdx

		switch profitMode {
		case shared.MultipleProfitMode:
			// Assume an idealized fill at the touched level.
			switch outcome {
			case shared.TakeProfitHit:
				trade.ExitPrice = takeProfit
				trade.Profit = takeProfitMultiple * row.ATR
			case shared.StopLossHit:
				trade.ExitPrice = stopLoss
				trade.Profit = -stopLossMultiple * row.ATR
			}
		default:
			// Price mode records the close delta at the exit candle.
			trade.ExitPrice = future.Close
			switch direction {
			case shared.Buy:
				trade.Profit = future.Close - entry
			case shared.Sell:
				trade.Profit = entry - future.Close
			}
		}

		return trade, nil
	}

	return trade, nil
}

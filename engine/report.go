package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/dnldd/hammer/shared"
)

// Report aggregates the outcomes of a backtest run. Wins are trades with
// positive profit, break-even trades count as losses. Trades that never exit
// within the lookahead window are excluded from the profitability metrics and
// surfaced through NoExitCount.
type Report struct {
	Market    string           `json:"market"`
	Timeframe shared.Timeframe `json:"timeframe"`

	TotalTrades    int     `json:"total_trades"`
	WinCount       int     `json:"win_count"`
	LossCount      int     `json:"loss_count"`
	WinRate        float64 `json:"win_rate"`
	TotalProfit    float64 `json:"total_profit"`
	AvgWin         float64 `json:"avg_win"`
	AvgLoss        float64 `json:"avg_loss"`
	ProfitFactor   float64 `json:"profit_factor"`
	MaxWin         float64 `json:"max_win"`
	MaxLoss        float64 `json:"max_loss"`
	AvgCandlesHeld float64 `json:"avg_candles_held"`
	TotalReturnPct float64 `json:"total_return_pct"`

	BullishHammers int `json:"total_bullish_hammers"`
	BearishHammers int `json:"total_bearish_hammers"`
	BuySignals     int `json:"total_buy_signals"`
	SellSignals    int `json:"total_sell_signals"`
	BuyTrades      int `json:"buy_trades"`
	SellTrades     int `json:"sell_trades"`
	BuyWins        int `json:"buy_wins"`
	SellWins       int `json:"sell_wins"`
	NoExitCount    int `json:"no_exit_count"`

	ProfitMode       shared.ProfitMode       `json:"profit_mode"`
	FirstTouchPolicy shared.FirstTouchPolicy `json:"first_touch_policy"`

	Trades []*SimulatedTrade `json:"trades"`
}

// Aggregate reduces the provided simulated trades into a report. The market,
// timeframe, pattern counts and run settings are filled in by the caller.
func Aggregate(trades []*SimulatedTrade) *Report {
	report := &Report{Trades: trades}

	var sumWins, sumLosses float64
	var sumEntries float64
	var sumCandlesHeld int

	for idx := range trades {
		trade := trades[idx]

		if trade.Outcome == shared.NoExit {
			report.NoExitCount++
			continue
		}

		report.TotalTrades++
		report.TotalProfit += trade.Profit
		sumEntries += trade.EntryPrice
		sumCandlesHeld += trade.CandlesHeld

		switch trade.Direction {
		case shared.Buy:
			report.BuyTrades++
		case shared.Sell:
			report.SellTrades++
		}

		switch {
		case trade.Profit > 0:
			report.WinCount++
			sumWins += trade.Profit
			if trade.Profit > report.MaxWin {
				report.MaxWin = trade.Profit
			}

			switch trade.Direction {
			case shared.Buy:
				report.BuyWins++
			case shared.Sell:
				report.SellWins++
			}
		default:
			report.LossCount++
			sumLosses += trade.Profit
			if trade.Profit < report.MaxLoss {
				report.MaxLoss = trade.Profit
			}
		}
	}

	if report.TotalTrades > 0 {
		report.WinRate = float64(report.WinCount) / float64(report.TotalTrades) * 100
		report.AvgCandlesHeld = float64(sumCandlesHeld) / float64(report.TotalTrades)

		avgEntry := sumEntries / float64(report.TotalTrades)
		if avgEntry != 0 {
			// Return is measured as total profit over the average entry price.
			report.TotalReturnPct = report.TotalProfit / avgEntry * 100
		}
	}

	if report.WinCount > 0 {
		report.AvgWin = sumWins / float64(report.WinCount)
	}
	if report.LossCount > 0 {
		report.AvgLoss = math.Abs(sumLosses / float64(report.LossCount))
	}

	switch {
	case report.WinCount == 0:
		report.ProfitFactor = 0
	case sumLosses == 0:
		// All winners, the factor is unbounded.
		report.ProfitFactor = math.Inf(1)
	default:
		report.ProfitFactor = sumWins / math.Abs(sumLosses)
	}

	return report
}

// reportAlias strips Report of its methods for nested marshaling.
type reportAlias Report

// reportJSON mirrors Report with the profit factor carried as a string so an
// infinite factor survives serialization.
type reportJSON struct {
	*reportAlias
	ProfitFactor string `json:"profit_factor"`
}

// MarshalJSON satisfies json.Marshaler.
func (r Report) MarshalJSON() ([]byte, error) {
	alias := reportAlias(r)
	return json.Marshal(&reportJSON{
		reportAlias:  &alias,
		ProfitFactor: strconv.FormatFloat(r.ProfitFactor, 'g', -1, 64),
	})
}

// UnmarshalJSON satisfies json.Unmarshaler.
func (r *Report) UnmarshalJSON(data []byte) error {
	aux := &reportJSON{reportAlias: (*reportAlias)(r)}
	err := json.Unmarshal(data, aux)
	if err != nil {
		return err
	}

	if aux.ProfitFactor != "" {
		factor, err := strconv.ParseFloat(aux.ProfitFactor, 64)
		if err != nil {
			return fmt.Errorf("parsing profit factor: %w", err)
		}
		r.ProfitFactor = factor
	}

	return nil
}

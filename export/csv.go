package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/dnldd/hammer/engine"
	"github.com/dnldd/hammer/shared"
)

// CSVSaver persists backtest results as csv files.
type CSVSaver struct{}

// Extension returns the file extension written by the saver.
func (CSVSaver) Extension() string { return "csv" }

// formatFloat renders the provided float without trailing zeros.
func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// SaveTrades persists the provided simulated trades to the provided path.
func (CSVSaver) SaveTrades(trades []*engine.SimulatedTrade, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating trades file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"market", "timeframe", "direction", "pattern", "entry_time",
		"entry_price", "stop_loss", "take_profit", "atr", "outcome", "exit_time",
		"exit_price", "profit", "candles_held"}
	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("writing trades header: %w", err)
	}

	for _, trade := range trades {
		record := []string{
			trade.Market,
			trade.Timeframe.String(),
			trade.Direction.String(),
			trade.Pattern.String(),
			trade.EntryTime.Format(shared.DateLayout),
			formatFloat(trade.EntryPrice),
			formatFloat(trade.StopLoss),
			formatFloat(trade.TakeProfit),
			formatFloat(trade.ATR),
			trade.Outcome.String(),
			trade.ExitTime.Format(shared.DateLayout),
			formatFloat(trade.ExitPrice),
			formatFloat(trade.Profit),
			strconv.Itoa(trade.CandlesHeld),
		}

		err = writer.Write(record)
		if err != nil {
			return fmt.Errorf("writing trade record: %w", err)
		}
	}

	return nil
}

// SaveReport persists the provided backtest report to the provided path as
// metric and value rows.
func (CSVSaver) SaveReport(report *engine.Report, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer file.Close()

	rows := [][]string{
		{"metric", "value"},
		{"market", report.Market},
		{"timeframe", report.Timeframe.String()},
		{"profit_mode", report.ProfitMode.String()},
		{"first_touch_policy", report.FirstTouchPolicy.String()},
		{"total_trades", strconv.Itoa(report.TotalTrades)},
		{"win_count", strconv.Itoa(report.WinCount)},
		{"loss_count", strconv.Itoa(report.LossCount)},
		{"win_rate", formatFloat(report.WinRate)},
		{"total_profit", formatFloat(report.TotalProfit)},
		{"avg_win", formatFloat(report.AvgWin)},
		{"avg_loss", formatFloat(report.AvgLoss)},
		{"profit_factor", formatFloat(report.ProfitFactor)},
		{"max_win", formatFloat(report.MaxWin)},
		{"max_loss", formatFloat(report.MaxLoss)},
		{"avg_candles_held", formatFloat(report.AvgCandlesHeld)},
		{"total_return_pct", formatFloat(report.TotalReturnPct)},
		{"total_bullish_hammers", strconv.Itoa(report.BullishHammers)},
		{"total_bearish_hammers", strconv.Itoa(report.BearishHammers)},
		{"total_buy_signals", strconv.Itoa(report.BuySignals)},
		{"total_sell_signals", strconv.Itoa(report.SellSignals)},
		{"buy_trades", strconv.Itoa(report.BuyTrades)},
		{"sell_trades", strconv.Itoa(report.SellTrades)},
		{"buy_wins", strconv.Itoa(report.BuyWins)},
		{"sell_wins", strconv.Itoa(report.SellWins)},
		{"no_exit_count", strconv.Itoa(report.NoExitCount)},
	}

	writer := csv.NewWriter(file)
	err = writer.WriteAll(rows)
	if err != nil {
		return fmt.Errorf("writing report rows: %w", err)
	}

	return nil
}

package export

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dnldd/hammer/engine"
)

// JSONSaver persists backtest results as json files.
type JSONSaver struct{}

// Extension returns the file extension written by the saver.
func (JSONSaver) Extension() string { return "json" }

// SaveTrades persists the provided simulated trades to the provided path.
func (JSONSaver) SaveTrades(trades []*engine.SimulatedTrade, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating trades file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	err = enc.Encode(trades)
	if err != nil {
		return fmt.Errorf("encoding trades: %w", err)
	}

	return nil
}

// SaveReport persists the provided backtest report to the provided path.
func (JSONSaver) SaveReport(report *engine.Report, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	err = enc.Encode(report)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	return nil
}

// LoadReport loads a previously saved json report from the provided path.
func LoadReport(path string) (*engine.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report file: %w", err)
	}

	var report engine.Report
	err = json.Unmarshal(data, &report)
	if err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}

	return &report, nil
}

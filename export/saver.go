package export

import (
	"fmt"
	"strings"

	"github.com/dnldd/hammer/engine"
)

// ReportSaver defines the requirements for persisting backtest results.
type ReportSaver interface {
	// SaveReport persists the provided backtest report to the provided path.
	SaveReport(report *engine.Report, path string) error
	// SaveTrades persists the provided simulated trades to the provided path.
	SaveTrades(trades []*engine.SimulatedTrade, path string) error
	// Extension returns the file extension written by the saver.
	Extension() string
}

// NewReportSaver initializes a report saver for the provided format.
func NewReportSaver(format string) (ReportSaver, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVSaver{}, nil
	case "json":
		return JSONSaver{}, nil
	default:
		return nil, fmt.Errorf("unsupported report format: %q", format)
	}
}

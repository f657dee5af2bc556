package shared

import "fmt"

// ProfitMode selects how realized profit is recorded for a simulated trade.
type ProfitMode int

const (
	// PriceProfitMode records the close price delta at the exit candle.
	PriceProfitMode ProfitMode = iota
	// MultipleProfitMode records the configured atr multiple at the touched level.
	MultipleProfitMode
)

// String stringifies the provided profit mode.
func (m ProfitMode) String() string {
	switch m {
	case PriceProfitMode:
		return "price"
	case MultipleProfitMode:
		return "multiple"
	default:
		return "unknown"
	}
}

// ParseProfitMode parses a profit mode from the provided name.
func ParseProfitMode(name string) (ProfitMode, error) {
	switch name {
	case "price":
		return PriceProfitMode, nil
	case "multiple":
		return MultipleProfitMode, nil
	default:
		return 0, fmt.Errorf("unknown profit mode: %s", name)
	}
}

package shared

import (
	"fmt"
	"time"
)

const (
	// NewYorkLocation is the timezone for new york.
	NewYorkLocation = "America/New_York"
	// DateLayout is the expected date layout for historic candle data.
	DateLayout = "2006-01-02 15:04:05"
)

// Timeframe represents the timeframe of a candlestick.
type Timeframe int

const (
	FiveMinute Timeframe = iota
	FifteenMinute
	OneHour
)

// String stringifies the provided timeframe as its granularity code.
func (t Timeframe) String() string {
	switch t {
	case FiveMinute:
		return "M5"
	case FifteenMinute:
		return "M15"
	case OneHour:
		return "H1"
	default:
		return "unknown"
	}
}

// Duration returns the duration covered by one candle of the timeframe.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case FiveMinute:
		return time.Minute * 5
	case FifteenMinute:
		return time.Minute * 15
	case OneHour:
		return time.Hour
	default:
		return 0
	}
}

// ParseTimeframe parses a timeframe from the provided granularity code.
func ParseTimeframe(granularity string) (Timeframe, error) {
	switch granularity {
	case "M5":
		return FiveMinute, nil
	case "M15":
		return FifteenMinute, nil
	case "H1":
		return OneHour, nil
	default:
		return 0, fmt.Errorf("unknown timeframe granularity: %s", granularity)
	}
}

// MarketTimeframeID generates a unique identifier for a market and timeframe
// pair. Open positions, fetch dedupe state and tracked market state are all
// keyed by it.
func MarketTimeframeID(market string, timeframe Timeframe) string {
	return fmt.Sprintf("%s-%s", market, timeframe.String())
}

// NewYorkTime returns the current time in the new york timezone.
func NewYorkTime() (time.Time, *time.Location, error) {
	loc, err := time.LoadLocation(NewYorkLocation)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("loading new york timezone: %w", err)
	}

	now := time.Now().In(loc)

	return now, loc, nil
}

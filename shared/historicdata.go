package shared

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// requiredColumns are the columns a historic data file must provide.
var requiredColumns = [...]string{"time", "open", "high", "low", "close", "volume"}

// DataError describes a defect in supplied market data.
type DataError struct {
	Source string
	Detail string
}

// Error satisfies the error interface.
func (e *DataError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("invalid market data: %s", e.Detail)
	}

	return fmt.Sprintf("invalid market data (%s): %s", e.Source, e.Detail)
}

// NewDataError initializes a new data error.
func NewDataError(source string, format string, args ...any) *DataError {
	return &DataError{
		Source: source,
		Detail: fmt.Sprintf(format, args...),
	}
}

// ParseCandlesticks parses candlesticks from the provided broker payload for
// the provided market and timeframe.
func ParseCandlesticks(data []byte, market string, timeframe Timeframe, loc *time.Location) ([]Candlestick, error) {
	results := gjson.GetBytes(data, "candles").Array()
	candles := make([]Candlestick, 0, len(results))
	for idx := range results {
		var candle Candlestick

		candle.Open = results[idx].Get("mid.o").Float()
		candle.High = results[idx].Get("mid.h").Float()
		candle.Low = results[idx].Get("mid.l").Float()
		candle.Close = results[idx].Get("mid.c").Float()
		candle.Volume = results[idx].Get("volume").Float()
		candle.Complete = results[idx].Get("complete").Bool()
		candle.Market = market
		candle.Timeframe = timeframe

		date, err := time.Parse(time.RFC3339Nano, results[idx].Get("time").String())
		if err != nil {
			return nil, fmt.Errorf("parsing candlestick time: %w", err)
		}

		if loc != nil {
			date = date.In(loc)
		}
		candle.Date = date

		candles = append(candles, candle)
	}

	return candles, nil
}

// parseDate parses a candle date which may use the historic data layout or rfc3339.
func parseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	date, err := time.ParseInLocation(DateLayout, value, loc)
	if err == nil {
		return date, nil
	}

	return time.Parse(time.RFC3339Nano, value)
}

// LoadCandlesticksCSV loads candlesticks for the provided market and timeframe
// from a csv file with time, open, high, low, close and volume columns.
func LoadCandlesticksCSV(path string, market string, timeframe Timeframe, loc *time.Location) ([]Candlestick, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening historic data file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading historic data file: %w", err)
	}

	if len(records) == 0 {
		return nil, NewDataError(path, "missing header row")
	}

	columns := make(map[string]int, len(records[0]))
	for idx := range records[0] {
		columns[strings.ToLower(strings.TrimSpace(records[0][idx]))] = idx
	}
	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			return nil, NewDataError(path, "missing required column %s", required)
		}
	}

	candles := make([]Candlestick, 0, len(records)-1)
	for line := 1; line < len(records); line++ {
		record := records[line]
		if len(record) < len(requiredColumns) {
			return nil, NewDataError(path, "malformed record on line %d", line+1)
		}

		date, err := parseDate(record[columns["time"]], loc)
		if err != nil {
			return nil, NewDataError(path, "parsing time on line %d: %v", line+1, err)
		}

		candle := Candlestick{
			Date:      date,
			Market:    market,
			Timeframe: timeframe,
			Complete:  true,
		}

		fields := []struct {
			name  string
			value *float64
		}{
			{"open", &candle.Open},
			{"high", &candle.High},
			{"low", &candle.Low},
			{"close", &candle.Close},
			{"volume", &candle.Volume},
		}
		for _, field := range fields {
			*field.value, err = strconv.ParseFloat(strings.TrimSpace(record[columns[field.name]]), 64)
			if err != nil {
				return nil, NewDataError(path, "parsing %s on line %d: %v", field.name, line+1, err)
			}
		}

		candles = append(candles, candle)
	}

	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Date.Before(candles[j].Date)
	})

	return candles, nil
}

// ValidateCandlesticks asserts the provided series is well formed before any
// indicator or simulation work happens on it.
func ValidateCandlesticks(candles []Candlestick, source string) error {
	if len(candles) == 0 {
		return NewDataError(source, "empty candle series")
	}

	for idx := range candles {
		candle := &candles[idx]

		prices := []float64{candle.Open, candle.High, candle.Low, candle.Close, candle.Volume}
		for _, price := range prices {
			if math.IsNaN(price) || math.IsInf(price, 0) {
				return NewDataError(source, "non-finite value at %s", candle.Date.Format(DateLayout))
			}
		}

		if candle.High < candle.Low {
			return NewDataError(source, "high %v below low %v at %s", candle.High, candle.Low,
				candle.Date.Format(DateLayout))
		}
		if math.Min(candle.Open, candle.Close) < candle.Low ||
			math.Max(candle.Open, candle.Close) > candle.High {
			return NewDataError(source, "open or close outside the candle range at %s",
				candle.Date.Format(DateLayout))
		}

		if idx > 0 && !candle.Date.After(candles[idx-1].Date) {
			return NewDataError(source, "candle times not strictly increasing at %s",
				candle.Date.Format(DateLayout))
		}
	}

	return nil
}

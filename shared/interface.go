package shared

import "context"

// CandleFetcher defines the requirements for fetching market candle data.
type CandleFetcher interface {
	// FetchCandles fetches the most recent candles for the provided market
	// and timeframe.
	FetchCandles(ctx context.Context, market string, timeframe Timeframe, count int) ([]byte, error)
}

package market

import (
	"fmt"
	"time"

	"github.com/dnldd/hammer/indicator"
	"github.com/dnldd/hammer/shared"
	"go.uber.org/atomic"
)

// MarketConfig represents the configuration of a tracked market.
type MarketConfig struct {
	// Market is the name of the tracked market.
	Market string
	// Timeframe is the timeframe tracked for the market.
	Timeframe shared.Timeframe
	// EMAFastPeriod is the period of the fast exponential moving average.
	EMAFastPeriod int
	// EMASlowPeriod is the period of the slow exponential moving average.
	EMASlowPeriod int
	// ATRPeriod is the period of the average true range.
	ATRPeriod int
}

// Market tracks the price data and indicator state of a market on a timeframe.
type Market struct {
	cfg         *MarketConfig
	snapshot    *shared.CandlestickSnapshot
	emaFast     *indicator.EMA
	emaSlow     *indicator.EMA
	atr         *indicator.ATR
	lastUpdated time.Time
	caughtUp    atomic.Bool
}

// NewMarket initializes a new market.
func NewMarket(cfg *MarketConfig) (*Market, error) {
	snapshot, err := shared.NewCandlestickSnapshot(shared.SnapshotSize)
	if err != nil {
		return nil, fmt.Errorf("creating candlestick snapshot: %w", err)
	}

	emaFast, err := indicator.NewEMA(cfg.EMAFastPeriod)
	if err != nil {
		return nil, fmt.Errorf("creating fast ema: %w", err)
	}

	emaSlow, err := indicator.NewEMA(cfg.EMASlowPeriod)
	if err != nil {
		return nil, fmt.Errorf("creating slow ema: %w", err)
	}

	atr, err := indicator.NewATR(cfg.ATRPeriod)
	if err != nil {
		return nil, fmt.Errorf("creating atr: %w", err)
	}

	return &Market{
		cfg:      cfg,
		snapshot: snapshot,
		emaFast:  emaFast,
		emaSlow:  emaSlow,
		atr:      atr,
	}, nil
}

// Update processes the provided market data for the market.
func (m *Market) Update(candle *shared.Candlestick) error {
	if candle.Market != m.cfg.Market || candle.Timeframe != m.cfg.Timeframe {
		return fmt.Errorf("unexpected candle (%s %s) for market %s %s", candle.Market,
			candle.Timeframe.String(), m.cfg.Market, m.cfg.Timeframe.String())
	}

	// Only fully formed candles advance indicator state.
	if !candle.Complete {
		return nil
	}

	if !candle.Date.After(m.lastUpdated) {
		return nil
	}

	m.snapshot.Update(candle)
	m.emaFast.Update(candle.Close)
	m.emaSlow.Update(candle.Close)
	m.atr.Update(candle.High, candle.Low, candle.Close)
	m.lastUpdated = candle.Date

	return nil
}

// IndicatorState returns the current indicator state of the market.
func (m *Market) IndicatorState() shared.IndicatorState {
	return shared.IndicatorState{
		Market:    m.cfg.Market,
		Timeframe: m.cfg.Timeframe,
		EMAFast:   m.emaFast.Value(),
		EMASlow:   m.emaSlow.Value(),
		ATR:       m.atr.Value(),
		Warm:      m.atr.Warm(),
	}
}

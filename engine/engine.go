package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dnldd/hammer/priceaction"
	"github.com/dnldd/hammer/shared"
	"github.com/rs/zerolog"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
	// maxWorkers is the maximum number of concurrent workers.
	maxWorkers = 8
)

// EngineConfig represents the strategy engine configuration.
type EngineConfig struct {
	// Strategy represents the strategy parameters.
	Strategy *StrategyConfig
	// RequestIndicatorState relays the provided indicator state request for processing.
	RequestIndicatorState func(request *shared.IndicatorStateRequest)
	// RequestOpenPosition relays the provided open position request for processing.
	RequestOpenPosition func(request *shared.OpenPositionRequest)
	// SendEntrySignal relays the provided entry signal for processing.
	SendEntrySignal func(signal shared.EntrySignal)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *EngineConfig) Validate() error {
	var errs error

	if cfg.Strategy == nil {
		errs = errors.Join(errs, fmt.Errorf("strategy config cannot be nil"))
	} else {
		errs = errors.Join(errs, cfg.Strategy.Validate())
	}
	if cfg.RequestIndicatorState == nil {
		errs = errors.Join(errs, fmt.Errorf("request indicator state function cannot be nil"))
	}
	if cfg.RequestOpenPosition == nil {
		errs = errors.Join(errs, fmt.Errorf("request open position function cannot be nil"))
	}
	if cfg.SendEntrySignal == nil {
		errs = errors.Join(errs, fmt.Errorf("send entry signal function cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Engine evaluates market updates into entry signals for tracked markets.
type Engine struct {
	cfg           *EngineConfig
	updateSignals chan shared.Candlestick
	workers       chan struct{}
}

// NewEngine initializes a new strategy engine.
func NewEngine(cfg *EngineConfig) (*Engine, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:           cfg,
		updateSignals: make(chan shared.Candlestick, bufferSize),
		workers:       make(chan struct{}, maxWorkers),
	}, nil
}

// SendMarketUpdate relays the provided market update for processing.
func (e *Engine) SendMarketUpdate(candle shared.Candlestick) {
	select {
	case e.updateSignals <- candle:
		// do nothing.
	default:
		e.cfg.Logger.Error().Msgf("market update channel at capacity: %d/%d",
			len(e.updateSignals), bufferSize)
	}
}

// handleMarketUpdate evaluates the provided candle for an entry signal.
func (e *Engine) handleMarketUpdate(candle *shared.Candlestick) error {
	if !candle.Complete {
		// Only fully closed candles are evaluated.
		return nil
	}

	strategy := e.cfg.Strategy
	pattern := priceaction.Classify(candle, strategy.MaxOppositeShadowFactor,
		strategy.MinConfirmingShadowRatio)
	if pattern == shared.NoPattern {
		return nil
	}

	stateRequest := shared.NewIndicatorStateRequest(candle.Market, candle.Timeframe)
	e.cfg.RequestIndicatorState(stateRequest)

	var state shared.IndicatorState
	select {
	case state = <-stateRequest.Response:
	case <-time.After(shared.TimeoutDuration):
		return fmt.Errorf("timed out fetching indicator state for %s %s",
			candle.Market, candle.Timeframe.String())
	}

	if state.ATR <= 0 {
		// The volatility window has not filled, no signal.
		return nil
	}

	var direction shared.Direction
	var stopLossMultiple, takeProfitMultiple float64
	switch pattern {
	case shared.BullishHammer:
		if strategy.TrendFilter && !state.ConfirmsUptrend(candle.Close) {
			e.cfg.Logger.Info().Msgf("%s %s bullish hammer filtered, no uptrend confirmation",
				candle.Market, candle.Timeframe.String())
			return nil
		}
		direction = shared.Buy
		stopLossMultiple = strategy.BuyStopLossMultiple
		takeProfitMultiple = strategy.BuyTakeProfitMultiple
	case shared.BearishHammer:
		if strategy.TrendFilter && !state.ConfirmsDowntrend(candle.Close) {
			e.cfg.Logger.Info().Msgf("%s %s bearish hammer filtered, no downtrend confirmation",
				candle.Market, candle.Timeframe.String())
			return nil
		}
		direction = shared.Sell
		stopLossMultiple = strategy.SellStopLossMultiple
		takeProfitMultiple = strategy.SellTakeProfitMultiple
	}

	openRequest := shared.NewOpenPositionRequest(candle.Market, candle.Timeframe)
	e.cfg.RequestOpenPosition(openRequest)

	select {
	case open := <-openRequest.Response:
		if open {
			e.cfg.Logger.Info().Msgf("position already open for %s %s, skipping %s signal",
				candle.Market, candle.Timeframe.String(), pattern.String())
			return nil
		}
	case <-time.After(shared.TimeoutDuration):
		return fmt.Errorf("timed out checking for an open position on %s %s",
			candle.Market, candle.Timeframe.String())
	}

	entry := candle.Close
	var stopLoss, takeProfit float64
	switch direction {
	case shared.Buy:
		stopLoss = shared.RoundPrice(candle.Market, entry-stopLossMultiple*state.ATR)
		takeProfit = shared.RoundPrice(candle.Market, entry+takeProfitMultiple*state.ATR)
		if stopLoss >= entry || takeProfit <= entry {
			return fmt.Errorf("invalid buy levels for %s %s: stop loss %s, take profit %s, entry %s",
				candle.Market, candle.Timeframe.String(), shared.FormatPrice(candle.Market, stopLoss),
				shared.FormatPrice(candle.Market, takeProfit), shared.FormatPrice(candle.Market, entry))
		}
	case shared.Sell:
		stopLoss = shared.RoundPrice(candle.Market, entry+stopLossMultiple*state.ATR)
		takeProfit = shared.RoundPrice(candle.Market, entry-takeProfitMultiple*state.ATR)
		if stopLoss <= entry || takeProfit >= entry {
			return fmt.Errorf("invalid sell levels for %s %s: stop loss %s, take profit %s, entry %s",
				candle.Market, candle.Timeframe.String(), shared.FormatPrice(candle.Market, stopLoss),
				shared.FormatPrice(candle.Market, takeProfit), shared.FormatPrice(candle.Market, entry))
		}
	}

	signal := shared.NewEntrySignal(candle.Market, candle.Timeframe, direction, pattern,
		entry, stopLoss, takeProfit, state.ATR, candle.Date)
	e.cfg.SendEntrySignal(signal)

	e.cfg.Logger.Info().Msgf("%s signal for %s %s: entry %s, stop loss %s, take profit %s",
		direction.String(), candle.Market, candle.Timeframe.String(),
		shared.FormatPrice(candle.Market, entry), shared.FormatPrice(candle.Market, stopLoss),
		shared.FormatPrice(candle.Market, takeProfit))

	return nil
}

// Run manages the lifecycle processes of the strategy engine.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case candle := <-e.updateSignals:
			e.workers <- struct{}{}
			go func(candle *shared.Candlestick) {
				err := e.handleMarketUpdate(candle)
				if err != nil {
					e.cfg.Logger.Error().Err(err).Send()
				}
				<-e.workers
			}(&candle)
		default:
			// fallthrough
		}
	}
}

package engine

import (
	"errors"
	"fmt"

	"github.com/dnldd/hammer/indicator"
	"github.com/dnldd/hammer/priceaction"
	"github.com/dnldd/hammer/shared"
)

// Default strategy tunables.
const (
	DefaultEMAFastPeriod            = 9
	DefaultEMASlowPeriod            = 15
	DefaultATRPeriod                = 14
	DefaultMaxOppositeShadowFactor  = priceaction.MaxOppositeShadowFactor
	DefaultMinConfirmingShadowRatio = priceaction.MinConfirmingShadowRatio
	DefaultBuyStopLossMultiple      = 1.0
	DefaultBuyTakeProfitMultiple    = 2.0
	DefaultSellStopLossMultiple     = 2.0
	DefaultSellTakeProfitMultiple   = 4.0
	DefaultLookahead                = 100
	DefaultWarmup                   = 100
)

// StrategyConfig represents the tunable parameters of the hammer strategy.
// A strategy variant is a value of this struct, not a separate code path.
type StrategyConfig struct {
	// EMAFastPeriod is the fast ema period.
	EMAFastPeriod int
	// EMASlowPeriod is the slow ema period.
	EMASlowPeriod int
	// ATRPeriod is the average true range period.
	ATRPeriod int
	// MaxOppositeShadowFactor bounds the shadow opposite a hammer's
	// confirming shadow, relative to its body.
	MaxOppositeShadowFactor float64
	// MinConfirmingShadowRatio is the minimum confirming shadow length
	// relative to a hammer's body.
	MinConfirmingShadowRatio float64
	// BuyStopLossMultiple is the atr multiple below a buy entry for its stop loss.
	BuyStopLossMultiple float64
	// BuyTakeProfitMultiple is the atr multiple above a buy entry for its take profit.
	BuyTakeProfitMultiple float64
	// SellStopLossMultiple is the atr multiple above a sell entry for its stop loss.
	SellStopLossMultiple float64
	// SellTakeProfitMultiple is the atr multiple below a sell entry for its take profit.
	SellTakeProfitMultiple float64
	// Lookahead is the number of future candles scanned to resolve a trade.
	Lookahead int
	// Warmup is the number of leading candles skipped before signals generate.
	Warmup int
	// TrendFilter gates pattern signals on the ema envelope when set.
	TrendFilter bool
	// ProfitMode selects how realized profit is recorded.
	ProfitMode shared.ProfitMode
	// FirstTouchPolicy resolves candles touching both exit levels.
	FirstTouchPolicy shared.FirstTouchPolicy
}

// DefaultStrategyConfig returns a strategy config with the default tunables.
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		EMAFastPeriod:            DefaultEMAFastPeriod,
		EMASlowPeriod:            DefaultEMASlowPeriod,
		ATRPeriod:                DefaultATRPeriod,
		MaxOppositeShadowFactor:  DefaultMaxOppositeShadowFactor,
		MinConfirmingShadowRatio: DefaultMinConfirmingShadowRatio,
		BuyStopLossMultiple:      DefaultBuyStopLossMultiple,
		BuyTakeProfitMultiple:    DefaultBuyTakeProfitMultiple,
		SellStopLossMultiple:     DefaultSellStopLossMultiple,
		SellTakeProfitMultiple:   DefaultSellTakeProfitMultiple,
		Lookahead:                DefaultLookahead,
		Warmup:                   DefaultWarmup,
		ProfitMode:               shared.PriceProfitMode,
		FirstTouchPolicy:         shared.TakeProfitFirst,
	}
}

// Validate asserts the config sane inputs.
func (cfg *StrategyConfig) Validate() error {
	var errs error

	if cfg.EMAFastPeriod < 1 {
		errs = errors.Join(errs, fmt.Errorf("fast ema period must be positive"))
	}
	if cfg.EMASlowPeriod < 1 {
		errs = errors.Join(errs, fmt.Errorf("slow ema period must be positive"))
	}
	if cfg.ATRPeriod < 1 {
		errs = errors.Join(errs, fmt.Errorf("atr period must be positive"))
	}
	if cfg.MaxOppositeShadowFactor <= 0 {
		errs = errors.Join(errs, fmt.Errorf("max opposite shadow factor must be positive"))
	}
	if cfg.MinConfirmingShadowRatio <= 0 {
		errs = errors.Join(errs, fmt.Errorf("min confirming shadow ratio must be positive"))
	}
	if cfg.BuyStopLossMultiple <= 0 {
		errs = errors.Join(errs, fmt.Errorf("buy stop loss multiple must be positive"))
	}
	if cfg.BuyTakeProfitMultiple <= 0 {
		errs = errors.Join(errs, fmt.Errorf("buy take profit multiple must be positive"))
	}
	if cfg.SellStopLossMultiple <= 0 {
		errs = errors.Join(errs, fmt.Errorf("sell stop loss multiple must be positive"))
	}
	if cfg.SellTakeProfitMultiple <= 0 {
		errs = errors.Join(errs, fmt.Errorf("sell take profit multiple must be positive"))
	}
	if cfg.Lookahead < 0 {
		errs = errors.Join(errs, fmt.Errorf("lookahead cannot be negative"))
	}
	if cfg.Warmup < 0 {
		errs = errors.Join(errs, fmt.Errorf("warmup cannot be negative"))
	}

	return errs
}

// BacktestConfig represents the configuration for a backtest run.
type BacktestConfig struct {
	StrategyConfig

	// Market is the instrument under test.
	Market string
	// Timeframe is the candle timeframe under test.
	Timeframe shared.Timeframe
}

// Validate asserts the config sane inputs.
func (cfg *BacktestConfig) Validate() error {
	errs := cfg.StrategyConfig.Validate()

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("market cannot be an empty string"))
	}

	return errs
}

// Backtest evaluates the hammer strategy over the provided candlesticks and
// aggregates the simulated trades into a report.
func Backtest(cfg *BacktestConfig, candles []shared.Candlestick) (*Report, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	err = shared.ValidateCandlesticks(candles, cfg.Market)
	if err != nil {
		return nil, err
	}

	rows, err := indicator.ComputeSeries(candles, cfg.EMAFastPeriod, cfg.EMASlowPeriod, cfg.ATRPeriod)
	if err != nil {
		return nil, fmt.Errorf("computing indicators: %w", err)
	}

	var bullishHammers, bearishHammers int
	var buySignals, sellSignals int
	trades := make([]*SimulatedTrade, 0)

	// openUntil is the last index covered by the currently open trade. At
	// most one trade is open per market and timeframe at any time.
	openUntil := -1

	for idx := range rows {
		row := &rows[idx]

		pattern := priceaction.Classify(&row.Candlestick, cfg.MaxOppositeShadowFactor,
			cfg.MinConfirmingShadowRatio)
		switch pattern {
		case shared.BullishHammer:
			bullishHammers++
		case shared.BearishHammer:
			bearishHammers++
		default:
			continue
		}

		if idx < cfg.Warmup {
			continue
		}
		if row.ATR <= 0 {
			// The volatility window has not filled, no signal.
			continue
		}

		var direction shared.Direction
		var stopLossMultiple, takeProfitMultiple float64
		switch pattern {
		case shared.BullishHammer:
			if cfg.TrendFilter && !row.ConfirmsUptrend() {
				continue
			}
			direction = shared.Buy
			stopLossMultiple = cfg.BuyStopLossMultiple
			takeProfitMultiple = cfg.BuyTakeProfitMultiple
		case shared.BearishHammer:
			if cfg.TrendFilter && !row.ConfirmsDowntrend() {
				continue
			}
			direction = shared.Sell
			stopLossMultiple = cfg.SellStopLossMultiple
			takeProfitMultiple = cfg.SellTakeProfitMultiple
		}

		if idx <= openUntil {
			// A trade is still open on this market and timeframe.
			continue
		}

		trade, err := SimulateTrade(rows, idx, direction, stopLossMultiple, takeProfitMultiple,
			cfg.Lookahead, cfg.ProfitMode, cfg.FirstTouchPolicy)
		if err != nil {
			return nil, fmt.Errorf("simulating trade: %w", err)
		}

		trade.Pattern = pattern
		trades = append(trades, trade)

		switch direction {
		case shared.Buy:
			buySignals++
		case shared.Sell:
			sellSignals++
		}

		switch trade.Outcome {
		case shared.NoExit:
			// The trade never resolved, block new signals for the scanned window.
			openUntil = min(idx+cfg.Lookahead, len(rows)-1)
		default:
			openUntil = idx + trade.CandlesHeld
		}
	}

	report := Aggregate(trades)
	report.Market = cfg.Market
	report.Timeframe = cfg.Timeframe
	report.BullishHammers = bullishHammers
	report.BearishHammers = bearishHammers
	report.BuySignals = buySignals
	report.SellSignals = sellSignals
	report.ProfitMode = cfg.ProfitMode
	report.FirstTouchPolicy = cfg.FirstTouchPolicy

	return report, nil
}

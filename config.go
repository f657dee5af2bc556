package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/dnldd/hammer/engine"
	"github.com/dnldd/hammer/service"
	"github.com/dnldd/hammer/shared"
	"github.com/joho/godotenv"
)

// Config is the configuration struct for the service.
type Config struct {
	// Markets represents the tracked markets.
	Markets []string
	// Timeframes represents the tracked timeframes per market.
	Timeframes []string
	// APIKey is the Oanda service API key.
	APIKey string
	// BaseURL is the base url of the Oanda api.
	BaseURL string
	// PollIntervalSecs is the interval between market data polls, in seconds.
	PollIntervalSecs int
	// Backtest is the backtesting flag.
	Backtest bool
	// BacktestDataPath is the path to a historic data file or a directory of them.
	BacktestDataPath string
	// ExportFormat is the format backtest results are exported in.
	ExportFormat string
	// ExportDir is the directory backtest results are exported to.
	ExportDir string
	// DatabaseEndpoint is the database connection endpoint.
	DatabaseEndpoint string
	// DatabaseUser is the database user.
	DatabaseUser string
	// DatabasePass is the database user pass.
	DatabasePass string
	// EMAFastPeriod is the fast ema period.
	EMAFastPeriod int
	// EMASlowPeriod is the slow ema period.
	EMASlowPeriod int
	// ATRPeriod is the average true range period.
	ATRPeriod int
	// MaxOppositeShadowFactor bounds the shadow opposite a hammer's confirming
	// shadow, relative to its body.
	MaxOppositeShadowFactor float64
	// MinConfirmingShadowRatio is the minimum confirming shadow length relative
	// to a hammer's body.
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
	ProfitMode string
	// FirstTouchPolicy resolves candles touching both exit levels.
	FirstTouchPolicy string
	// MinWinRate is the minimum win rate percentage for a passing backtest.
	MinWinRate float64
	// MinProfitFactor is the minimum profit factor for a passing backtest.
	MinProfitFactor float64

	registeredFlags map[string]bool
}

// defaultConfig returns a config seeded with the default tunables.
func defaultConfig() Config {
	return Config{
		PollIntervalSecs:         30,
		ExportFormat:             "csv",
		EMAFastPeriod:            engine.DefaultEMAFastPeriod,
		EMASlowPeriod:            engine.DefaultEMASlowPeriod,
		ATRPeriod:                engine.DefaultATRPeriod,
		MaxOppositeShadowFactor:  engine.DefaultMaxOppositeShadowFactor,
		MinConfirmingShadowRatio: engine.DefaultMinConfirmingShadowRatio,
		BuyStopLossMultiple:      engine.DefaultBuyStopLossMultiple,
		BuyTakeProfitMultiple:    engine.DefaultBuyTakeProfitMultiple,
		SellStopLossMultiple:     engine.DefaultSellStopLossMultiple,
		SellTakeProfitMultiple:   engine.DefaultSellTakeProfitMultiple,
		Lookahead:                engine.DefaultLookahead,
		Warmup:                   engine.DefaultWarmup,
		ProfitMode:               "price",
		FirstTouchPolicy:         "takeprofit",
		MinWinRate:               engine.DefaultMinWinRate,
		MinProfitFactor:          engine.DefaultMinProfitFactor,
	}
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	switch cfg.Backtest {
	case true:
		if cfg.BacktestDataPath == "" {
			errs = errors.Join(errs, fmt.Errorf("backtest data path cannot be an empty string"))
		}
	case false:
		if len(cfg.Markets) == 0 {
			errs = errors.Join(errs, fmt.Errorf("no markets provided for the hammer service"))
		}
		if len(cfg.Timeframes) == 0 {
			errs = errors.Join(errs, fmt.Errorf("no timeframes provided for the hammer service"))
		}
		if cfg.APIKey == "" {
			errs = errors.Join(errs, fmt.Errorf("api key cannot be an empty string"))
		}
		for _, granularity := range cfg.Timeframes {
			_, err := shared.ParseTimeframe(strings.TrimSpace(granularity))
			if err != nil {
				errs = errors.Join(errs, err)
			}
		}
	}

	_, err := shared.ParseProfitMode(cfg.ProfitMode)
	if err != nil {
		errs = errors.Join(errs, err)
	}

	_, err = shared.ParseFirstTouchPolicy(cfg.FirstTouchPolicy)
	if err != nil {
		errs = errors.Join(errs, err)
	}

	return errs
}

// serviceConfig builds the hammer service configuration from the parsed config.
func (cfg *Config) serviceConfig(cancel context.CancelFunc) (*service.HammerConfig, error) {
	timeframes := make([]shared.Timeframe, 0, len(cfg.Timeframes))
	for _, granularity := range cfg.Timeframes {
		timeframe, err := shared.ParseTimeframe(strings.TrimSpace(granularity))
		if err != nil {
			return nil, err
		}

		timeframes = append(timeframes, timeframe)
	}

	profitMode, err := shared.ParseProfitMode(cfg.ProfitMode)
	if err != nil {
		return nil, err
	}

	firstTouchPolicy, err := shared.ParseFirstTouchPolicy(cfg.FirstTouchPolicy)
	if err != nil {
		return nil, err
	}

	return &service.HammerConfig{
		Markets:          cfg.Markets,
		Timeframes:       timeframes,
		APIKey:           cfg.APIKey,
		BaseURL:          cfg.BaseURL,
		PollInterval:     time.Duration(cfg.PollIntervalSecs) * time.Second,
		Backtest:         cfg.Backtest,
		BacktestDataPath: cfg.BacktestDataPath,
		ExportFormat:     cfg.ExportFormat,
		ExportDir:        cfg.ExportDir,
		DatabaseEndpoint: cfg.DatabaseEndpoint,
		DatabaseUser:     cfg.DatabaseUser,
		DatabasePass:     cfg.DatabasePass,
		Strategy: engine.StrategyConfig{
			EMAFastPeriod:            cfg.EMAFastPeriod,
			EMASlowPeriod:            cfg.EMASlowPeriod,
			ATRPeriod:                cfg.ATRPeriod,
			MaxOppositeShadowFactor:  cfg.MaxOppositeShadowFactor,
			MinConfirmingShadowRatio: cfg.MinConfirmingShadowRatio,
			BuyStopLossMultiple:      cfg.BuyStopLossMultiple,
			BuyTakeProfitMultiple:    cfg.BuyTakeProfitMultiple,
			SellStopLossMultiple:     cfg.SellStopLossMultiple,
			SellTakeProfitMultiple:   cfg.SellTakeProfitMultiple,
			Lookahead:                cfg.Lookahead,
			Warmup:                   cfg.Warmup,
			TrendFilter:              cfg.TrendFilter,
			ProfitMode:               profitMode,
			FirstTouchPolicy:         firstTouchPolicy,
		},
		Accuracy: engine.AccuracyThresholds{
			MinWinRate:      cfg.MinWinRate,
			MinProfitFactor: cfg.MinProfitFactor,
		},
		Cancel: cancel,
	}, nil
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	// Seeded config values remain the defaults when the environment does not
	// override them.
	switch val.Elem().Kind() {
	case reflect.String:
		def := *value.(*string)
		if defValue != "" {
			def = defValue
		}
		flag.StringVar(value.(*string), name, def, usage)
	case reflect.Bool:
		def := *value.(*bool)
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		def := *value.(*int)
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Float64:
		def := *value.(*float64)
		if defValue != "" {
			def, _ = strconv.ParseFloat(defValue, 64)
		}
		flag.Float64Var(value.(*float64), name, def, usage)
	case reflect.Slice:
		// Only handle []string
		if val.Elem().Type().Elem().Kind() == reflect.String {
			flag.Func(name, usage, func(s string) error {
				*value.(*[]string) = strings.Split(s, ",")
				return nil
			})
			// Set default if not provided via flag
			if defValue != "" {
				*value.(*[]string) = strings.Split(defValue, ",")
			}
		} else {
			return fmt.Errorf("%s: unsupported slice type", name)
		}
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	flags := []struct {
		name  string
		value interface{}
		usage string
	}{
		{"markets", &cfg.Markets, "the tracked markets"},
		{"timeframes", &cfg.Timeframes, "the tracked timeframes per market"},
		{"apikey", &cfg.APIKey, "the oanda api key"},
		{"baseurl", &cfg.BaseURL, "the oanda api base url"},
		{"pollintervalsecs", &cfg.PollIntervalSecs, "the market data poll interval in seconds"},
		{"backtest", &cfg.Backtest, "the backtest flag"},
		{"backtestdatapath", &cfg.BacktestDataPath, "the path to a backtest data file or directory"},
		{"exportformat", &cfg.ExportFormat, "the backtest results export format (csv or json)"},
		{"exportdir", &cfg.ExportDir, "the backtest results export directory"},
		{"databaseendpoint", &cfg.DatabaseEndpoint, "the database connection endpoint"},
		{"databaseuser", &cfg.DatabaseUser, "the database user"},
		{"databasepass", &cfg.DatabasePass, "the database user pass"},
		{"emafastperiod", &cfg.EMAFastPeriod, "the fast ema period"},
		{"emaslowperiod", &cfg.EMASlowPeriod, "the slow ema period"},
		{"atrperiod", &cfg.ATRPeriod, "the average true range period"},
		{"maxoppositeshadowfactor", &cfg.MaxOppositeShadowFactor, "the maximum opposite shadow to body factor for a hammer"},
		{"minconfirmingshadowratio", &cfg.MinConfirmingShadowRatio, "the minimum confirming shadow to body ratio for a hammer"},
		{"buystoplossmultiple", &cfg.BuyStopLossMultiple, "the atr multiple below a buy entry for its stop loss"},
		{"buytakeprofitmultiple", &cfg.BuyTakeProfitMultiple, "the atr multiple above a buy entry for its take profit"},
		{"sellstoplossmultiple", &cfg.SellStopLossMultiple, "the atr multiple above a sell entry for its stop loss"},
		{"selltakeprofitmultiple", &cfg.SellTakeProfitMultiple, "the atr multiple below a sell entry for its take profit"},
		{"lookahead", &cfg.Lookahead, "the number of future candles scanned to resolve a trade"},
		{"warmup", &cfg.Warmup, "the number of leading candles skipped before signals generate"},
		{"trendfilter", &cfg.TrendFilter, "the ema envelope trend filter flag"},
		{"profitmode", &cfg.ProfitMode, "the profit recording mode (price or multiple)"},
		{"firsttouchpolicy", &cfg.FirstTouchPolicy, "the both-levels-touched resolution policy (takeprofit or stoploss)"},
		{"minwinrate", &cfg.MinWinRate, "the minimum win rate percentage for a passing backtest"},
		{"minprofitfactor", &cfg.MinProfitFactor, "the minimum profit factor for a passing backtest"},
	}
	for idx := range flags {
		err = cfg.registerFlag(flags[idx].name, flags[idx].value, flags[idx].usage)
		if err != nil {
			return err
		}
	}

	// Parse command-line flags.
	flag.Parse()

	return cfg.Validate()
}

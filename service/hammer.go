package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dnldd/hammer/database"
	"github.com/dnldd/hammer/engine"
	"github.com/dnldd/hammer/export"
	"github.com/dnldd/hammer/fetch"
	"github.com/dnldd/hammer/market"
	"github.com/dnldd/hammer/position"
	"github.com/dnldd/hammer/shared"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// HammerConfig represents the configuration struct for the hammer service.
type HammerConfig struct {
	// Markets represents the tracked markets.
	Markets []string
	// Timeframes represents the tracked timeframes per market.
	Timeframes []shared.Timeframe
	// APIKey is the Oanda service API key.
	APIKey string
	// BaseURL is the base url of the Oanda api.
	BaseURL string
	// PollInterval is the interval between market data polls.
	PollInterval time.Duration
	// Backtest is the backtesting flag.
	Backtest bool
	// BacktestDataPath is the path to a historic data file or directory of them.
	BacktestDataPath string
	// ExportFormat is the format backtest results are exported in.
	ExportFormat string
	// ExportDir is the directory backtest results are exported to. Exports
	// are skipped when unset.
	ExportDir string
	// DatabaseEndpoint is the database connection endpoint. Closed position
	// persistence is skipped when unset.
	DatabaseEndpoint string
	// DatabaseUser is the database user.
	DatabaseUser string
	// DatabasePass is the database user pass.
	DatabasePass string
	// Strategy is the hammer strategy configuration.
	Strategy engine.StrategyConfig
	// Accuracy holds the thresholds backtest reports are assessed against.
	Accuracy engine.AccuracyThresholds
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config sane inputs.
func (cfg *HammerConfig) Validate() error {
	var errs error

	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}

	switch {
	case cfg.Backtest:
		if cfg.BacktestDataPath == "" {
			errs = errors.Join(errs, fmt.Errorf("backtest data path cannot be an empty string"))
		}
	default:
		if len(cfg.Markets) == 0 {
			errs = errors.Join(errs, fmt.Errorf("no markets provided for the hammer service"))
		}
		if len(cfg.Timeframes) == 0 {
			errs = errors.Join(errs, fmt.Errorf("no timeframes provided for the hammer service"))
		}
		if cfg.APIKey == "" {
			errs = errors.Join(errs, fmt.Errorf("api key cannot be an empty string"))
		}
	}

	errs = errors.Join(errs, cfg.Strategy.Validate())

	return errs
}

// Hammer represents the hammer strategy service.
type Hammer struct {
	cfg             *HammerConfig
	fetchManager    *fetch.Manager
	marketManager   *market.Manager
	positionManager *position.Manager
	hammerEngine    *engine.Engine
	db              database.PositionStorer
	logger          *zerolog.Logger
	wg              sync.WaitGroup
}

// NewHammer initializes a new hammer service.
func NewHammer(ctx context.Context, cfg *HammerConfig) (*Hammer, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := log.With().Str("service", "hammer").Logger()

	service := &Hammer{
		cfg:    cfg,
		logger: &logger,
	}

	if cfg.Backtest {
		// Backtests run the strategy engine directly over historic data files,
		// no managers are needed.
		return service, nil
	}

	var marketMgr *market.Manager
	var positionMgr *position.Manager
	var hammerEngine *engine.Engine

	caughtUpFunc := func(signal shared.CaughtUpSignal) {
		if marketMgr != nil {
			marketMgr.SendCaughtUpSignal(signal)
		}
	}

	_, loc, err := shared.NewYorkTime()
	if err != nil {
		return nil, fmt.Errorf("fetching new york time: %v", err)
	}

	jobScheduler := gocron.NewScheduler(loc)

	oanda := fetch.NewOandaClient(&fetch.OandaConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
	})

	fetchMgrLogger := logger.With().Str("component", "fetchmanager").Logger()
	fetchMgr, err := fetch.NewManager(&fetch.ManagerConfig{
		Markets:        cfg.Markets,
		Timeframes:     cfg.Timeframes,
		ExchangeClient: oanda,
		SignalCaughtUp: caughtUpFunc,
		JobScheduler:   jobScheduler,
		PollInterval:   cfg.PollInterval,
		Logger:         &fetchMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating fetch manager: %v", err)
	}

	relayMarketUpdateFunc := func(candle shared.Candlestick) {
		if hammerEngine != nil {
			hammerEngine.SendMarketUpdate(candle)
		}
		if positionMgr != nil {
			positionMgr.SendMarketUpdate(candle)
		}
	}

	marketMgrLogger := logger.With().Str("component", "marketmanager").Logger()
	marketMgr, err = market.NewManager(&market.ManagerConfig{
		Markets:           cfg.Markets,
		Timeframes:        cfg.Timeframes,
		EMAFastPeriod:     cfg.Strategy.EMAFastPeriod,
		EMASlowPeriod:     cfg.Strategy.EMASlowPeriod,
		ATRPeriod:         cfg.Strategy.ATRPeriod,
		Subscribe:         fetchMgr.Subscribe,
		CatchUp:           fetchMgr.SendCatchUpSignal,
		RelayMarketUpdate: relayMarketUpdateFunc,
		Logger:            &marketMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating market manager: %v", err)
	}

	var db database.PositionStorer
	if cfg.DatabaseEndpoint != "" {
		dbLogger := logger.With().Str("component", "database").Logger()
		db, err = database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: cfg.DatabaseEndpoint,
			User:     cfg.DatabaseUser,
			Pass:     cfg.DatabasePass,
			Logger:   &dbLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating database: %v", err)
		}
	}

	persistClosedPositionFunc := func(pos *position.Position) error {
		if db == nil {
			return nil
		}

		return db.PersistClosedPosition(ctx, pos)
	}

	positionMgrLogger := logger.With().Str("component", "positionmanager").Logger()
	positionMgr, err = position.NewPositionManager(&position.ManagerConfig{
		Markets:          cfg.Markets,
		FirstTouchPolicy: cfg.Strategy.FirstTouchPolicy,
		Notify: func(message string) {
			logger.Info().Msg(message)
		},
		PersistClosedPosition: persistClosedPositionFunc,
		Logger:                &positionMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating position manager: %v", err)
	}

	engineLogger := logger.With().Str("component", "engine").Logger()
	hammerEngine, err = engine.NewEngine(&engine.EngineConfig{
		Strategy:              &cfg.Strategy,
		RequestIndicatorState: marketMgr.SendIndicatorStateRequest,
		RequestOpenPosition:   positionMgr.SendOpenPositionRequest,
		SendEntrySignal:       positionMgr.SendEntrySignal,
		Logger:                &engineLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating engine: %v", err)
	}

	service.fetchManager = fetchMgr
	service.marketManager = marketMgr
	service.positionManager = positionMgr
	service.hammerEngine = hammerEngine
	service.db = db

	return service, nil
}

// dataFileExtensions are the historic data formats the service accepts.
var dataFileExtensions = map[string]bool{".csv": true, ".json": true}

// collectDataFiles lists the historic data files at the provided path.
func collectDataFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("inspecting backtest data path: %w", err)
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading backtest data directory: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !dataFileExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}

		files = append(files, filepath.Join(path, entry.Name()))
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no historic data files found in %s", path)
	}

	return files, nil
}

// parseDataFileName derives the market and timeframe from a historic data
// file named like BTC_USD_M5.csv.
func parseDataFileName(path string) (string, shared.Timeframe, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	idx := strings.LastIndex(name, "_")
	if idx <= 0 || idx == len(name)-1 {
		return "", 0, fmt.Errorf("cannot derive market and timeframe from file name: %s",
			filepath.Base(path))
	}

	timeframe, err := shared.ParseTimeframe(name[idx+1:])
	if err != nil {
		return "", 0, fmt.Errorf("parsing timeframe from file name %s: %w", filepath.Base(path), err)
	}

	return name[:idx], timeframe, nil
}

// loadDataFile loads the candles of the provided historic data file.
func loadDataFile(path string, mkt string, timeframe shared.Timeframe, loc *time.Location) ([]shared.Candlestick, error) {
	var candles []shared.Candlestick
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		candles, err = shared.LoadCandlesticksCSV(path, mkt, timeframe, loc)
	case ".json":
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading historic data file: %w", err)
		}

		candles, err = shared.ParseCandlesticks(data, mkt, timeframe, loc)
	default:
		return nil, fmt.Errorf("unsupported historic data format: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	// Drop candles still forming, only fully closed candles are evaluated.
	complete := candles[:0]
	for idx := range candles {
		if candles[idx].Complete {
			complete = append(complete, candles[idx])
		}
	}

	return complete, nil
}

// logReport logs a summary of the provided backtest report.
func (h *Hammer) logReport(report *engine.Report) {
	h.logger.Info().Msgf("%s %s: %d trades, win rate %.2f%%, profit factor %.2f, total return %.2f%%, no exits %d",
		report.Market, report.Timeframe.String(), report.TotalTrades, report.WinRate,
		report.ProfitFactor, report.TotalReturnPct, report.NoExitCount)
}

// runBacktests evaluates the strategy over all historic data files at the
// configured path and assesses the aggregated results.
func (h *Hammer) runBacktests() error {
	files, err := collectDataFiles(h.cfg.BacktestDataPath)
	if err != nil {
		return err
	}

	var saver export.ReportSaver
	if h.cfg.ExportDir != "" {
		saver, err = export.NewReportSaver(h.cfg.ExportFormat)
		if err != nil {
			return err
		}

		err = os.MkdirAll(h.cfg.ExportDir, 0o755)
		if err != nil {
			return fmt.Errorf("creating export directory: %w", err)
		}
	}

	_, loc, err := shared.NewYorkTime()
	if err != nil {
		return fmt.Errorf("fetching new york time: %v", err)
	}

	assessments := make([]*engine.Assessment, 0, len(files))
	for _, file := range files {
		mkt, timeframe, err := parseDataFileName(file)
		if err != nil {
			return err
		}

		candles, err := loadDataFile(file, mkt, timeframe, loc)
		if err != nil {
			return err
		}

		bCfg := &engine.BacktestConfig{
			StrategyConfig: h.cfg.Strategy,
			Market:         mkt,
			Timeframe:      timeframe,
		}

		report, err := engine.Backtest(bCfg, candles)
		if err != nil {
			return fmt.Errorf("backtesting %s %s: %w", mkt, timeframe.String(), err)
		}

		h.logReport(report)

		if saver != nil {
			base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))

			tradesPath := filepath.Join(h.cfg.ExportDir,
				fmt.Sprintf("%s_trades.%s", base, saver.Extension()))
			err = saver.SaveTrades(report.Trades, tradesPath)
			if err != nil {
				return err
			}

			reportPath := filepath.Join(h.cfg.ExportDir,
				fmt.Sprintf("%s_report.%s", base, saver.Extension()))
			err = saver.SaveReport(report, reportPath)
			if err != nil {
				return err
			}
		}

		assessments = append(assessments, engine.AssessReport(report, &h.cfg.Accuracy))
	}

	summary := engine.SummarizeAssessments(assessments)
	h.logger.Info().Msgf("strategy assessment: %d/%d runs passed, avg win rate %.2f%%, avg profit factor %.2f, avg return %.2f%%, ready: %t",
		summary.Passed, summary.Total, summary.AvgWinRate, summary.AvgProfitFactor,
		summary.AvgReturnPct, summary.Ready)

	return nil
}

// Run handles the lifecycle processes of the hammer service.
func (h *Hammer) Run(ctx context.Context) {
	if h.cfg.Backtest {
		err := h.runBacktests()
		if err != nil {
			h.logger.Error().Err(err).Send()
		}

		h.cfg.Cancel()
		return
	}

	h.wg.Add(4)

	go func() {
		h.positionManager.Run(ctx)
		h.wg.Done()
	}()

	go func() {
		h.marketManager.Run(ctx)
		h.wg.Done()
	}()

	go func() {
		h.hammerEngine.Run(ctx)
		h.wg.Done()
	}()

	go func() {
		h.fetchManager.Run(ctx)
		h.wg.Done()
	}()

	h.wg.Wait()
}

package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dnldd/hammer/engine"
	"github.com/dnldd/hammer/shared"
	"github.com/peterldowns/testy/assert"
)

// backtestDataCSV is a minimal historic data series containing a bearish
// hammer whose take profit is touched by the following candle.
const backtestDataCSV = `time,open,high,low,close,volume
2025-01-02 09:30:00,10,12,9,11,5
2025-01-02 09:35:00,11,13,9,9,5
2025-01-02 09:40:00,8,8.5,1.5,2,5
`

func backtestServiceConfig(dataPath string, cancel context.CancelFunc) *HammerConfig {
	return &HammerConfig{
		Backtest:         true,
		BacktestDataPath: dataPath,
		Strategy: engine.StrategyConfig{
			EMAFastPeriod:            9,
			EMASlowPeriod:            15,
			ATRPeriod:                2,
			MaxOppositeShadowFactor:  0.5,
			MinConfirmingShadowRatio: 1.0,
			BuyStopLossMultiple:      1,
			BuyTakeProfitMultiple:    2,
			SellStopLossMultiple:     1,
			SellTakeProfitMultiple:   2,
			Lookahead:                5,
			Warmup:                   0,
			ProfitMode:               shared.PriceProfitMode,
			FirstTouchPolicy:         shared.TakeProfitFirst,
		},
		Accuracy: engine.AccuracyThresholds{
			MinWinRate:      55,
			MinProfitFactor: 1.5,
		},
		Cancel: cancel,
	}
}

func TestHammerConfigValidate(t *testing.T) {
	cancel := func() {}

	baseCfg := func() *HammerConfig {
		cfg := backtestServiceConfig("data", cancel)
		return cfg
	}

	tests := []struct {
		name        string
		modify      func(cfg *HammerConfig)
		wantErr     bool
		errContains []string
	}{
		{
			name:    "valid backtest config",
			modify:  func(cfg *HammerConfig) {},
			wantErr: false,
		},
		{
			name: "missing cancel func",
			modify: func(cfg *HammerConfig) {
				cfg.Cancel = nil
			},
			wantErr:     true,
			errContains: []string{"context cancellation function cannot be nil"},
		},
		{
			name: "backtest without data path",
			modify: func(cfg *HammerConfig) {
				cfg.BacktestDataPath = ""
			},
			wantErr:     true,
			errContains: []string{"backtest data path cannot be an empty string"},
		},
		{
			name: "live mode without markets, timeframes and api key",
			modify: func(cfg *HammerConfig) {
				cfg.Backtest = false
			},
			wantErr: true,
			errContains: []string{
				"no markets provided for the hammer service",
				"no timeframes provided for the hammer service",
				"api key cannot be an empty string",
			},
		},
		{
			name: "valid live config",
			modify: func(cfg *HammerConfig) {
				cfg.Backtest = false
				cfg.Markets = []string{"BTC_USD"}
				cfg.Timeframes = []shared.Timeframe{shared.FiveMinute}
				cfg.APIKey = "key"
			},
			wantErr: false,
		},
		{
			name: "invalid strategy config",
			modify: func(cfg *HammerConfig) {
				cfg.Strategy.EMAFastPeriod = 0
			},
			wantErr:     true,
			errContains: []string{"fast ema period must be positive"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := baseCfg()
			test.modify(cfg)

			err := cfg.Validate()
			if test.wantErr {
				assert.Error(t, err)
				for _, want := range test.errContains {
					if !strings.Contains(err.Error(), want) {
						t.Errorf("expected error to contain %q, got %q", want, err.Error())
					}
				}
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestParseDataFileName(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		wantMarket    string
		wantTimeframe shared.Timeframe
		wantErr       bool
	}{
		{
			name:          "five minute csv",
			path:          "/tmp/data/BTC_USD_M5.csv",
			wantMarket:    "BTC_USD",
			wantTimeframe: shared.FiveMinute,
		},
		{
			name:          "hourly json",
			path:          "XAU_USD_H1.json",
			wantMarket:    "XAU_USD",
			wantTimeframe: shared.OneHour,
		},
		{
			name:    "no delimiter",
			path:    "candles.csv",
			wantErr: true,
		},
		{
			name:    "unknown granularity",
			path:    "BTC_USD_M3.csv",
			wantErr: true,
		},
		{
			name:    "trailing delimiter",
			path:    "BTC_USD_.csv",
			wantErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			market, timeframe, err := parseDataFileName(test.path)
			if test.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, test.wantMarket, market)
			assert.Equal(t, test.wantTimeframe, timeframe)
		})
	}
}

func TestCollectDataFiles(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "BTC_USD_M5.csv")
	err := os.WriteFile(csvPath, []byte(backtestDataCSV), 0o644)
	assert.NoError(t, err)

	jsonPath := filepath.Join(dir, "XAU_USD_H1.json")
	err = os.WriteFile(jsonPath, []byte(`{"candles":[]}`), 0o644)
	assert.NoError(t, err)

	err = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("n/a"), 0o644)
	assert.NoError(t, err)

	// Ensure only recognized data files are collected from a directory.
	files, err := collectDataFiles(dir)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(files))

	// Ensure a direct file path resolves to itself.
	files, err = collectDataFiles(csvPath)
	assert.NoError(t, err)
	assert.Equal(t, []string{csvPath}, files)

	// Ensure a directory without data files errors.
	empty := t.TempDir()
	_, err = collectDataFiles(empty)
	assert.Error(t, err)

	// Ensure a missing path errors.
	_, err = collectDataFiles(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestLoadDataFile(t *testing.T) {
	dir := t.TempDir()

	// Ensure csv historic data loads.
	csvPath := filepath.Join(dir, "BTC_USD_M5.csv")
	err := os.WriteFile(csvPath, []byte(backtestDataCSV), 0o644)
	assert.NoError(t, err)

	candles, err := loadDataFile(csvPath, "BTC_USD", shared.FiveMinute, nil)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(candles))
	assert.Equal(t, "BTC_USD", candles[0].Market)
	assert.True(t, candles[0].Complete)

	// Ensure json historic data loads and candles still forming are dropped.
	jsonPath := filepath.Join(dir, "BTC_USD_M5.json")
	payload := `{"candles":[
		{"time":"2025-01-02T09:30:00Z","mid":{"o":"10","h":"12","l":"9","c":"11"},"volume":5,"complete":true},
		{"time":"2025-01-02T09:35:00Z","mid":{"o":"11","h":"13","l":"9","c":"9"},"volume":5,"complete":false}]}`
	err = os.WriteFile(jsonPath, []byte(payload), 0o644)
	assert.NoError(t, err)

	candles, err = loadDataFile(jsonPath, "BTC_USD", shared.FiveMinute, nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(candles))
	assert.Equal(t, float64(11), candles[0].Close)

	// Ensure unsupported formats error.
	txtPath := filepath.Join(dir, "BTC_USD_M5.txt")
	err = os.WriteFile(txtPath, []byte("n/a"), 0o644)
	assert.NoError(t, err)

	_, err = loadDataFile(txtPath, "BTC_USD", shared.FiveMinute, nil)
	assert.Error(t, err)
}

func TestHammerBacktestRun(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "BTC_USD_M5.csv"), []byte(backtestDataCSV), 0o644)
	assert.NoError(t, err)

	exportDir := filepath.Join(dir, "results")

	ctx, cancel := context.WithCancel(context.Background())
	cfg := backtestServiceConfig(dir, cancel)
	cfg.ExportFormat = "csv"
	cfg.ExportDir = exportDir

	service, err := NewHammer(ctx, cfg)
	assert.NoError(t, err)

	done := make(chan struct{})
	go func() {
		service.Run(ctx)
		close(done)
	}()

	// Ensure the service cancels its context once backtesting completes.
	<-ctx.Done()
	<-done

	// Ensure the backtest results were exported.
	_, err = os.Stat(filepath.Join(exportDir, "BTC_USD_M5_trades.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(exportDir, "BTC_USD_M5_report.csv"))
	assert.NoError(t, err)
}

func TestHammerBacktestRunBadPath(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := backtestServiceConfig(filepath.Join(t.TempDir(), "missing"), cancel)

	service, err := NewHammer(ctx, cfg)
	assert.NoError(t, err)

	done := make(chan struct{})
	go func() {
		service.Run(ctx)
		close(done)
	}()

	// Ensure the service still shuts down when backtesting fails.
	<-ctx.Done()
	<-done
}

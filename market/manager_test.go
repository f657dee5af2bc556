package market

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dnldd/hammer/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func setupManager(t *testing.T, market string) (*Manager, chan shared.CatchUpSignal, chan shared.Candlestick) {
	subscribe := func(name string, sub chan shared.Candlestick) {}

	catchUpSignals := make(chan shared.CatchUpSignal, 5)
	catchUp := func(signal shared.CatchUpSignal) {
		catchUpSignals <- signal
	}

	relayedCandles := make(chan shared.Candlestick, 16)
	relayMarketUpdate := func(candle shared.Candlestick) {
		relayedCandles <- candle
	}

	cfg := &ManagerConfig{
		Markets:           []string{market},
		Timeframes:        []shared.Timeframe{shared.FiveMinute},
		EMAFastPeriod:     2,
		EMASlowPeriod:     3,
		ATRPeriod:         2,
		Subscribe:         subscribe,
		CatchUp:           catchUp,
		RelayMarketUpdate: relayMarketUpdate,
		Logger:            &log.Logger,
	}

	mgr, err := NewManager(cfg)
	assert.NoError(t, err)

	return mgr, catchUpSignals, relayedCandles
}

func TestMarketManagerConfigValidate(t *testing.T) {
	logger := zerolog.New(nil)

	baseCfg := &ManagerConfig{
		Markets:           []string{"BTC_USD"},
		Timeframes:        []shared.Timeframe{shared.FiveMinute},
		EMAFastPeriod:     2,
		EMASlowPeriod:     3,
		ATRPeriod:         2,
		Subscribe:         func(name string, sub chan shared.Candlestick) {},
		CatchUp:           func(signal shared.CatchUpSignal) {},
		RelayMarketUpdate: func(candle shared.Candlestick) {},
		Logger:            &logger,
	}

	tests := []struct {
		name        string
		modify      func(cfg *ManagerConfig)
		wantErr     bool
		errContains []string
	}{
		{
			name:    "valid config returns nil",
			modify:  func(cfg *ManagerConfig) {},
			wantErr: false,
		},
		{
			name:        "missing Markets",
			modify:      func(cfg *ManagerConfig) { cfg.Markets = nil },
			wantErr:     true,
			errContains: []string{"no markets provided"},
		},
		{
			name:        "missing Timeframes",
			modify:      func(cfg *ManagerConfig) { cfg.Timeframes = nil },
			wantErr:     true,
			errContains: []string{"no timeframes provided"},
		},
		{
			name:        "missing Subscribe",
			modify:      func(cfg *ManagerConfig) { cfg.Subscribe = nil },
			wantErr:     true,
			errContains: []string{"subscribe function cannot be nil"},
		},
		{
			name:        "missing CatchUp",
			modify:      func(cfg *ManagerConfig) { cfg.CatchUp = nil },
			wantErr:     true,
			errContains: []string{"catch up function cannot be nil"},
		},
		{
			name:        "missing RelayMarketUpdate",
			modify:      func(cfg *ManagerConfig) { cfg.RelayMarketUpdate = nil },
			wantErr:     true,
			errContains: []string{"relay market update function cannot be nil"},
		},
		{
			name:        "missing Logger",
			modify:      func(cfg *ManagerConfig) { cfg.Logger = nil },
			wantErr:     true,
			errContains: []string{"logger cannot be nil"},
		},
		{
			name: "multiple missing fields",
			modify: func(cfg *ManagerConfig) {
				*cfg = ManagerConfig{}
			},
			wantErr: true,
			errContains: []string{
				"no markets provided",
				"no timeframes provided",
				"subscribe function cannot be nil",
				"catch up function cannot be nil",
				"relay market update function cannot be nil",
				"logger cannot be nil",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *baseCfg
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				for _, substr := range tt.errContains {
					assert.True(t, strings.Contains(err.Error(), substr))
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestManager(t *testing.T) {
	// Ensure the market manager can be started.
	market := "BTC_USD"
	mgr, catchUpSignals, relayedCandles := setupManager(t, market)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		mgr.Run(ctx)
		close(done)
	}()

	// Ensure running the manager triggers a catch up signal for tracked markets.
	sig := <-catchUpSignals
	assert.Equal(t, sig.Market, market)
	assert.Equal(t, sig.Timeframes, []shared.Timeframe{shared.FiveMinute})

	// Ensure the manager can process a caught up signal.
	caughtUpSignal := shared.NewCaughtUpSignal(market)
	mgr.SendCaughtUpSignal(caughtUpSignal)
	<-caughtUpSignal.Status

	// Ensure the manager can process a market update and relays it once
	// caught up.
	now := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)
	candle := shared.Candlestick{
		Open:      float64(5),
		High:      float64(9),
		Low:       float64(3),
		Close:     float64(8),
		Volume:    float64(2),
		Market:    market,
		Timeframe: shared.FiveMinute,
		Date:      now,
		Complete:  true,
	}

	mgr.SendMarketUpdate(candle)
	relayed := <-relayedCandles
	assert.Equal(t, relayed.Close, candle.Close)

	// Ensure the manager can process an indicator state request.
	stateReq := shared.NewIndicatorStateRequest(market, shared.FiveMinute)
	mgr.SendIndicatorStateRequest(stateReq)
	state := <-stateReq.Response
	assert.Equal(t, state.Market, market)

	// Ensure the manager can be gracefully shutdown.
	cancel()
	<-done
}

func TestFillManagerChannels(t *testing.T) {
	market := "BTC_USD"
	mgr, _, _ := setupManager(t, market)

	now := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)
	caughtUpSignal := shared.NewCaughtUpSignal(market)
	candle := shared.Candlestick{
		Open:      float64(5),
		High:      float64(9),
		Low:       float64(3),
		Close:     float64(8),
		Market:    market,
		Timeframe: shared.FiveMinute,
		Date:      now,
		Complete:  true,
	}
	stateReq := shared.NewIndicatorStateRequest(market, shared.FiveMinute)

	// Fill all the channels used by the manager.
	for range bufferSize + 1 {
		mgr.SendCaughtUpSignal(caughtUpSignal)
		mgr.SendMarketUpdate(candle)
		mgr.SendIndicatorStateRequest(stateReq)
	}

	assert.Equal(t, len(mgr.caughtUpSignals), bufferSize)
	assert.Equal(t, len(mgr.updateSignals), bufferSize)
	assert.Equal(t, len(mgr.indicatorStateRequests), bufferSize)
}

func TestHandleUpdateCandle(t *testing.T) {
	market := "BTC_USD"
	mgr, _, relayedCandles := setupManager(t, market)

	now := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)

	// Ensure processing a candle with an unknown market errors.
	wrongMarketCandle := shared.Candlestick{
		Open:      float64(5),
		High:      float64(9),
		Low:       float64(3),
		Close:     float64(8),
		Market:    "^AAPL",
		Timeframe: shared.FiveMinute,
		Date:      now,
		Complete:  true,
	}

	err := mgr.handleUpdateCandle(&wrongMarketCandle)
	assert.Error(t, err)

	// Ensure candles are not relayed before the market is caught up.
	candle := shared.Candlestick{
		Open:      float64(5),
		High:      float64(9),
		Low:       float64(3),
		Close:     float64(8),
		Market:    market,
		Timeframe: shared.FiveMinute,
		Date:      now,
		Complete:  true,
	}

	err = mgr.handleUpdateCandle(&candle)
	assert.NoError(t, err)
	assert.Equal(t, len(relayedCandles), 0)

	// Ensure candles are relayed once the market is caught up.
	caughtUpSignal := shared.NewCaughtUpSignal(market)
	err = mgr.handleCaughtUpSignal(&caughtUpSignal)
	assert.NoError(t, err)

	laterCandle := shared.Candlestick{
		Open:      float64(6),
		High:      float64(10),
		Low:       float64(4),
		Close:     float64(9),
		Market:    market,
		Timeframe: shared.FiveMinute,
		Date:      now.Add(time.Minute * 5),
		Complete:  true,
	}

	err = mgr.handleUpdateCandle(&laterCandle)
	assert.NoError(t, err)
	relayed := <-relayedCandles
	assert.Equal(t, relayed.Close, laterCandle.Close)
}

func TestHandleCaughtUpSignal(t *testing.T) {
	market := "BTC_USD"
	mgr, _, _ := setupManager(t, market)

	// Ensure processing a caught up signal for an unknown market errors.
	wrongMarketSignal := shared.NewCaughtUpSignal("^AAPL")
	err := mgr.handleCaughtUpSignal(&wrongMarketSignal)
	assert.Error(t, err)

	// Ensure processing a valid caught up signal succeeds as expected.
	caughtUpSignal := shared.NewCaughtUpSignal(market)
	err = mgr.handleCaughtUpSignal(&caughtUpSignal)
	assert.NoError(t, err)

	mkt, err := mgr.fetchMarket(market, shared.FiveMinute)
	assert.NoError(t, err)
	assert.True(t, mkt.caughtUp.Load())
}

func TestHandleIndicatorStateRequest(t *testing.T) {
	market := "BTC_USD"
	mgr, _, _ := setupManager(t, market)

	now := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)

	// Warm the market indicators with candle updates.
	for idx := range 4 {
		candle := shared.Candlestick{
			Open:      float64(5 + idx),
			High:      float64(9 + idx),
			Low:       float64(3 + idx),
			Close:     float64(8 + idx),
			Market:    market,
			Timeframe: shared.FiveMinute,
			Date:      now.Add(time.Minute * 5 * time.Duration(idx)),
			Complete:  true,
		}

		err := mgr.handleUpdateCandle(&candle)
		assert.NoError(t, err)
	}

	// Ensure requesting indicator state for an unknown market errors.
	unknownStateReq := shared.NewIndicatorStateRequest("^AAPL", shared.FiveMinute)
	err := mgr.handleIndicatorStateRequest(unknownStateReq)
	assert.Error(t, err)

	// Ensure a valid indicator state request succeeds.
	stateReq := shared.NewIndicatorStateRequest(market, shared.FiveMinute)
	err = mgr.handleIndicatorStateRequest(stateReq)
	assert.NoError(t, err)

	state := <-stateReq.Response
	assert.Equal(t, state.Market, market)
	assert.GreaterThan(t, state.ATR, 0)
	assert.True(t, state.Warm)
}

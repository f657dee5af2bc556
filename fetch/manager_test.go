package fetch

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dnldd/hammer/shared"
	"github.com/go-co-op/gocron"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type oandaMock struct {
	fetchCandlesData []byte
	fetchCandlesErr  error
}

func (m *oandaMock) FetchCandles(ctx context.Context, market string,
	timeframe shared.Timeframe, count int) ([]byte, error) {
	return m.fetchCandlesData, m.fetchCandlesErr
}

func setupManager(t *testing.T) (*Manager, *oandaMock, chan shared.CaughtUpSignal) {
	data := `{"candles":[` +
		`{"complete":true,"volume":5,"time":"2024-03-05T10:30:00Z","mid":{"o":"10","h":"15","l":"8","c":"12"}},` +
		`{"complete":false,"volume":2,"time":"2024-03-05T10:35:00Z","mid":{"o":"12","h":"13","l":"11","c":"11"}}]}`

	mock := &oandaMock{
		fetchCandlesData: []byte(data),
	}

	caughtUpSignals := make(chan shared.CaughtUpSignal, 5)
	signalCaughtUp := func(signal shared.CaughtUpSignal) {
		caughtUpSignals <- signal
	}

	loc, err := time.LoadLocation(shared.NewYorkLocation)
	assert.NoError(t, err)

	cfg := &ManagerConfig{
		Markets:        []string{"BTC_USD"},
		Timeframes:     []shared.Timeframe{shared.FiveMinute},
		ExchangeClient: mock,
		SignalCaughtUp: signalCaughtUp,
		JobScheduler:   gocron.NewScheduler(loc),
		Logger:         &log.Logger,
	}

	mgr, err := NewManager(cfg)
	assert.NoError(t, err)

	return mgr, mock, caughtUpSignals
}

func TestFetchManagerConfigValidate(t *testing.T) {
	dummyExchangeClient := new(struct{ shared.CandleFetcher })
	dummySignalCaughtUp := func(signal shared.CaughtUpSignal) {}
	logger := zerolog.New(nil)
	scheduler := gocron.NewScheduler(time.UTC)

	baseCfg := &ManagerConfig{
		Markets:        []string{"BTC_USD"},
		Timeframes:     []shared.Timeframe{shared.FiveMinute},
		ExchangeClient: dummyExchangeClient,
		SignalCaughtUp: dummySignalCaughtUp,
		JobScheduler:   scheduler,
		Logger:         &logger,
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
			name:        "missing ExchangeClient",
			modify:      func(cfg *ManagerConfig) { cfg.ExchangeClient = nil },
			wantErr:     true,
			errContains: []string{"exchange client cannot be nil"},
		},
		{
			name:        "missing SignalCaughtUp",
			modify:      func(cfg *ManagerConfig) { cfg.SignalCaughtUp = nil },
			wantErr:     true,
			errContains: []string{"signal caught up function cannot be nil"},
		},
		{
			name:        "missing JobScheduler",
			modify:      func(cfg *ManagerConfig) { cfg.JobScheduler = nil },
			wantErr:     true,
			errContains: []string{"job scheduler cannot be nil"},
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
				"exchange client cannot be nil",
				"signal caught up function cannot be nil",
				"job scheduler cannot be nil",
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
	mgr, _, caughtUpSignals := setupManager(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ensure the fetch manager can be run.
	done := make(chan struct{})
	go func() {
		mgr.Run(ctx)
		close(done)
	}()

	// Ensure entities can subscribe for market updates.
	sub := make(chan shared.Candlestick, 16)
	mgr.Subscribe("sub", sub)

	// Ensure subscribers are notified of market updates.
	candle := shared.Candlestick{
		Open:   float64(6),
		Close:  float64(9),
		High:   float64(10),
		Low:    float64(4),
		Volume: float64(3),
	}

	err := mgr.NotifySubscribers(candle)
	assert.NoError(t, err)
	notifiedCandle := <-sub
	assert.Equal(t, candle, notifiedCandle)

	// Ensure the manager can process catch up signals.
	market := "BTC_USD"
	catchUp := shared.NewCatchUpSignal(market, []shared.Timeframe{shared.FiveMinute})

	mgr.SendCatchUpSignal(catchUp)
	<-catchUp.Status

	// Ensure only the completed candle is relayed and the market is
	// signalled caught up.
	caughtUpCandle := <-sub
	assert.True(t, caughtUpCandle.Complete)
	assert.Equal(t, len(sub), 0)

	caughtUp := <-caughtUpSignals
	assert.Equal(t, caughtUp.Market, market)

	// Ensure calling a market data job for an unknown market errors.
	err = mgr.fetchMarketDataJob("^AAPL", shared.FiveMinute)
	assert.Error(t, err)

	// Ensure a market data job for a valid market skips candles already seen.
	err = mgr.fetchMarketDataJob(market, shared.FiveMinute)
	assert.NoError(t, err)
	assert.Equal(t, len(sub), 0)

	// Ensure the fetch manager can be gracefully terminated.
	cancel()
	<-done
}

func TestFillManagerChannels(t *testing.T) {
	mgr, _, _ := setupManager(t)

	catchUp := shared.NewCatchUpSignal("BTC_USD", []shared.Timeframe{shared.FiveMinute})

	// Fill all the channels used by the manager.
	for range bufferSize + 1 {
		mgr.SendCatchUpSignal(catchUp)
	}

	assert.Equal(t, len(mgr.catchUpSignals), bufferSize)
}

func TestHandleCatchUpSignal(t *testing.T) {
	mgr, mock, caughtUpSignals := setupManager(t)

	// Ensure handling a catch up signal for an unknown market errors.
	unknownMarketCatchUp := shared.NewCatchUpSignal("^AAPL", []shared.Timeframe{shared.FiveMinute})

	err := mgr.handleCatchUpSignal(unknownMarketCatchUp)
	assert.Error(t, err)

	// Ensure a fetch error is surfaced while catching up.
	market := "BTC_USD"
	mock.fetchCandlesErr = context.DeadlineExceeded

	failedCatchUp := shared.NewCatchUpSignal(market, []shared.Timeframe{shared.FiveMinute})
	err = mgr.handleCatchUpSignal(failedCatchUp)
	assert.Error(t, err)
	mock.fetchCandlesErr = nil

	// Ensure handling a valid catch up signal succeeds.
	sub := make(chan shared.Candlestick, 16)
	mgr.Subscribe("sub", sub)

	catchUp := shared.NewCatchUpSignal(market, []shared.Timeframe{shared.FiveMinute})
	err = mgr.handleCatchUpSignal(catchUp)
	assert.NoError(t, err)

	relayed := <-sub
	assert.True(t, relayed.Complete)

	caughtUp := <-caughtUpSignals
	assert.Equal(t, caughtUp.Market, market)

	// Ensure the polling job is only scheduled once per market and timeframe.
	repeatCatchUp := shared.NewCatchUpSignal(market, []shared.Timeframe{shared.FiveMinute})
	err = mgr.handleCatchUpSignal(repeatCatchUp)
	assert.NoError(t, err)
	assert.Equal(t, len(mgr.scheduledJobs), 1)
}

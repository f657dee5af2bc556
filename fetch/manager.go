package fetch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dnldd/hammer/shared"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
	// maxWorkers is the maximum number of concurrent workers.
	maxWorkers = 8
	// catchUpCandleCount is the number of candles fetched to catch a market up.
	catchUpCandleCount = shared.SnapshotSize
	// pollCandleCount is the number of recent candles fetched by polling jobs.
	pollCandleCount = 3
	// DefaultPollInterval is the default interval between market data polls.
	DefaultPollInterval = time.Second * 30
)

// ManagerConfig represents the configuration for the fetch manager.
type ManagerConfig struct {
	// Markets is the set of markets monitored for updates.
	Markets []string
	// Timeframes is the set of timeframes monitored per market.
	Timeframes []shared.Timeframe
	// ExchangeClient represents the market exchange client.
	ExchangeClient shared.CandleFetcher
	// SignalCaughtUp signals a market is caught up on market data.
	SignalCaughtUp func(signal shared.CaughtUpSignal)
	// JobScheduler represents the job scheduler.
	JobScheduler *gocron.Scheduler
	// PollInterval is the interval between market data polls.
	PollInterval time.Duration
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *ManagerConfig) Validate() error {
	var errs error

	if len(cfg.Markets) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no markets provided for the fetch manager"))
	}
	if len(cfg.Timeframes) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no timeframes provided for the fetch manager"))
	}
	if cfg.ExchangeClient == nil {
		errs = errors.Join(errs, fmt.Errorf("exchange client cannot be nil"))
	}
	if cfg.SignalCaughtUp == nil {
		errs = errors.Join(errs, fmt.Errorf("signal caught up function cannot be nil"))
	}
	if cfg.JobScheduler == nil {
		errs = errors.Join(errs, fmt.Errorf("job scheduler cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Manager represents the market fetch manager.
type Manager struct {
	cfg                 *ManagerConfig
	lastUpdatedTimes    map[string]time.Time
	lastUpdatedTimesMtx sync.RWMutex
	scheduledJobs       map[string]bool
	scheduledJobsMtx    sync.Mutex
	subscribers         map[string]chan shared.Candlestick
	subscribersMtx      sync.RWMutex
	catchUpSignals      chan shared.CatchUpSignal
	workers             chan struct{}
}

// NewManager initializes the fetch manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	return &Manager{
		cfg:              cfg,
		lastUpdatedTimes: make(map[string]time.Time),
		scheduledJobs:    make(map[string]bool),
		subscribers:      make(map[string]chan shared.Candlestick),
		catchUpSignals:   make(chan shared.CatchUpSignal, bufferSize),
		workers:          make(chan struct{}, maxWorkers),
	}, nil
}

// Subscribe registers the provided subscriber for market updates.
func (m *Manager) Subscribe(name string, sub chan shared.Candlestick) {
	m.subscribersMtx.Lock()
	m.subscribers[name] = sub
	m.subscribersMtx.Unlock()
}

// NotifySubscribers notifies subscribers of the provided market update.
func (m *Manager) NotifySubscribers(candle shared.Candlestick) error {
	m.subscribersMtx.RLock()
	defer m.subscribersMtx.RUnlock()

	var errs error
	for name, sub := range m.subscribers {
		select {
		case sub <- candle:
			// do nothing.
		default:
			errs = errors.Join(errs, fmt.Errorf("subscriber %s channel at capacity: %d/%d",
				name, len(sub), cap(sub)))
		}
	}

	return errs
}

// SendCatchUpSignal relays the provided catch up signal for processing.
func (m *Manager) SendCatchUpSignal(signal shared.CatchUpSignal) {
	select {
	case m.catchUpSignals <- signal:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("catch up signal channel at capacity: %d/%d",
			len(m.catchUpSignals), bufferSize)
	}
}

// schedulePollingJob schedules a recurring market data fetch for the provided
// market and timeframe.
func (m *Manager) schedulePollingJob(market string, timeframe shared.Timeframe) error {
	key := shared.MarketTimeframeID(market, timeframe)

	m.scheduledJobsMtx.Lock()
	defer m.scheduledJobsMtx.Unlock()

	if m.scheduledJobs[key] {
		return nil
	}

	_, err := m.cfg.JobScheduler.Every(m.cfg.PollInterval).Do(func() {
		err := m.fetchMarketDataJob(market, timeframe)
		if err != nil {
			m.cfg.Logger.Error().Err(err).Send()
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling market data job for %s: %w", key, err)
	}

	m.scheduledJobs[key] = true

	return nil
}

// handleCatchUpSignal processes the provided catch up signal, warming market
// state with historic candles before polling jobs take over.
func (m *Manager) handleCatchUpSignal(signal shared.CatchUpSignal) error {
	defer func() {
		signal.Status <- shared.Processed
	}()

	if !slices.Contains(m.cfg.Markets, signal.Market) {
		return fmt.Errorf("cannot catch up on unknown market: %s", signal.Market)
	}

	for _, timeframe := range signal.Timeframes {
		data, err := m.cfg.ExchangeClient.FetchCandles(context.Background(), signal.Market,
			timeframe, catchUpCandleCount)
		if err != nil {
			return fmt.Errorf("catching up on %s (%s): %w", signal.Market, timeframe.String(), err)
		}

		candles, err := shared.ParseCandlesticks(data, signal.Market, timeframe, nil)
		if err != nil {
			return fmt.Errorf("parsing candlesticks for %s: %w", signal.Market, err)
		}

		key := shared.MarketTimeframeID(signal.Market, timeframe)
		for idx := range candles {
			if !candles[idx].Complete {
				continue
			}

			err = m.NotifySubscribers(candles[idx])
			if err != nil {
				return err
			}

			m.lastUpdatedTimesMtx.Lock()
			m.lastUpdatedTimes[key] = candles[idx].Date
			m.lastUpdatedTimesMtx.Unlock()
		}

		err = m.schedulePollingJob(signal.Market, timeframe)
		if err != nil {
			return err
		}
	}

	m.cfg.SignalCaughtUp(shared.NewCaughtUpSignal(signal.Market))

	return nil
}

// fetchMarketDataJob fetches recent market data for the provided market and
// timeframe, relaying only completed candles not yet seen.
func (m *Manager) fetchMarketDataJob(market string, timeframe shared.Timeframe) error {
	if !slices.Contains(m.cfg.Markets, market) {
		return fmt.Errorf("cannot fetch market data for unknown market: %s", market)
	}

	data, err := m.cfg.ExchangeClient.FetchCandles(context.Background(), market,
		timeframe, pollCandleCount)
	if err != nil {
		return fmt.Errorf("fetching market data (%s) for %s: %w", timeframe.String(), market, err)
	}

	candles, err := shared.ParseCandlesticks(data, market, timeframe, nil)
	if err != nil {
		return fmt.Errorf("parsing candlesticks for %s: %w", market, err)
	}

	key := shared.MarketTimeframeID(market, timeframe)
	for idx := range candles {
		if !candles[idx].Complete {
			continue
		}

		m.lastUpdatedTimesMtx.RLock()
		lastUpdated := m.lastUpdatedTimes[key]
		m.lastUpdatedTimesMtx.RUnlock()

		if !candles[idx].Date.After(lastUpdated) {
			continue
		}

		err = m.NotifySubscribers(candles[idx])
		if err != nil {
			return err
		}

		m.lastUpdatedTimesMtx.Lock()
		m.lastUpdatedTimes[key] = candles[idx].Date
		m.lastUpdatedTimesMtx.Unlock()
	}

	return nil
}

// Run manages the lifecycle processes of the fetch manager.
func (m *Manager) Run(ctx context.Context) {
	m.cfg.JobScheduler.StartAsync()
	defer m.cfg.JobScheduler.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case signal := <-m.catchUpSignals:
			m.workers <- struct{}{}
			go func(signal *shared.CatchUpSignal) {
				err := m.handleCatchUpSignal(*signal)
				if err != nil {
					m.cfg.Logger.Error().Err(err).Send()
				}
				<-m.workers
			}(&signal)
		default:
			// fallthrough
		}
	}
}

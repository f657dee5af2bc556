package market

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dnldd/hammer/shared"
	"github.com/rs/zerolog"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
	// maxWorkers is the maximum number of concurrent workers.
	maxWorkers = 8
)

// ManagerConfig represents the market manager configuration.
type ManagerConfig struct {
	// Markets is the collection of markets to manage.
	Markets []string
	// Timeframes is the collection of timeframes tracked per market.
	Timeframes []shared.Timeframe
	// EMAFastPeriod is the period of the fast exponential moving average.
	EMAFastPeriod int
	// EMASlowPeriod is the period of the slow exponential moving average.
	EMASlowPeriod int
	// ATRPeriod is the period of the average true range.
	ATRPeriod int
	// Subscribe registers the provided subscriber for market updates.
	Subscribe func(name string, sub chan shared.Candlestick)
	// CatchUp signals a catch up process for a market.
	CatchUp func(signal shared.CatchUpSignal)
	// RelayMarketUpdate relays the provided market update to interested entities.
	RelayMarketUpdate func(candle shared.Candlestick)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *ManagerConfig) Validate() error {
	var errs error

	if len(cfg.Markets) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no markets provided for the market manager"))
	}
	if len(cfg.Timeframes) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no timeframes provided for the market manager"))
	}
	if cfg.Subscribe == nil {
		errs = errors.Join(errs, fmt.Errorf("subscribe function cannot be nil"))
	}
	if cfg.CatchUp == nil {
		errs = errors.Join(errs, fmt.Errorf("catch up function cannot be nil"))
	}
	if cfg.RelayMarketUpdate == nil {
		errs = errors.Join(errs, fmt.Errorf("relay market update function cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Manager manages the lifecycle processes of all tracked markets.
type Manager struct {
	cfg                    *ManagerConfig
	markets                map[string]*Market
	marketsMtx             sync.RWMutex
	updateSignals          chan shared.Candlestick
	caughtUpSignals        chan shared.CaughtUpSignal
	indicatorStateRequests chan *shared.IndicatorStateRequest
	workers                chan struct{}
}

// NewManager initializes a new market manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	markets := make(map[string]*Market)
	for _, name := range cfg.Markets {
		for _, timeframe := range cfg.Timeframes {
			mCfg := &MarketConfig{
				Market:        name,
				Timeframe:     timeframe,
				EMAFastPeriod: cfg.EMAFastPeriod,
				EMASlowPeriod: cfg.EMASlowPeriod,
				ATRPeriod:     cfg.ATRPeriod,
			}

			market, err := NewMarket(mCfg)
			if err != nil {
				return nil, fmt.Errorf("creating market: %w", err)
			}

			markets[shared.MarketTimeframeID(name, timeframe)] = market
		}
	}

	mgr := &Manager{
		cfg:                    cfg,
		markets:                markets,
		updateSignals:          make(chan shared.Candlestick, bufferSize),
		caughtUpSignals:        make(chan shared.CaughtUpSignal, bufferSize),
		indicatorStateRequests: make(chan *shared.IndicatorStateRequest, bufferSize),
		workers:                make(chan struct{}, maxWorkers),
	}

	cfg.Subscribe("market", mgr.updateSignals)

	return mgr, nil
}

// SendMarketUpdate relays the provided candlestick for processing.
func (m *Manager) SendMarketUpdate(candle shared.Candlestick) {
	select {
	case m.updateSignals <- candle:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("market update channel at capacity: %d/%d",
			len(m.updateSignals), bufferSize)
	}
}

// SendCaughtUpSignal relays the provided caught up signal for processing.
func (m *Manager) SendCaughtUpSignal(signal shared.CaughtUpSignal) {
	select {
	case m.caughtUpSignals <- signal:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("caught up signal channel at capacity: %d/%d",
			len(m.caughtUpSignals), bufferSize)
	}
}

// SendIndicatorStateRequest relays the provided indicator state request for processing.
func (m *Manager) SendIndicatorStateRequest(req *shared.IndicatorStateRequest) {
	select {
	case m.indicatorStateRequests <- req:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("indicator state request channel at capacity: %d/%d",
			len(m.indicatorStateRequests), bufferSize)
	}
}

// fetchMarket fetches the tracked market for the provided market name and timeframe.
func (m *Manager) fetchMarket(market string, timeframe shared.Timeframe) (*Market, error) {
	m.marketsMtx.RLock()
	mkt, ok := m.markets[shared.MarketTimeframeID(market, timeframe)]
	m.marketsMtx.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no tracked market found for %s %s", market, timeframe.String())
	}

	return mkt, nil
}

// handleUpdateCandle processes the provided market update candle.
func (m *Manager) handleUpdateCandle(candle *shared.Candlestick) error {
	mkt, err := m.fetchMarket(candle.Market, candle.Timeframe)
	if err != nil {
		return err
	}

	err = mkt.Update(candle)
	if err != nil {
		return fmt.Errorf("updating %s market: %w", candle.Market, err)
	}

	// Relay candles once the market is caught up, letting entry and exit
	// evaluations run on live updates only.
	if mkt.caughtUp.Load() && candle.Complete {
		m.cfg.RelayMarketUpdate(*candle)
	}

	return nil
}

// handleCaughtUpSignal processes the provided caught up signal.
func (m *Manager) handleCaughtUpSignal(signal *shared.CaughtUpSignal) error {
	defer func() {
		signal.Status <- shared.Processed
	}()

	var found bool
	for _, timeframe := range m.cfg.Timeframes {
		m.marketsMtx.RLock()
		mkt, ok := m.markets[shared.MarketTimeframeID(signal.Market, timeframe)]
		m.marketsMtx.RUnlock()

		if !ok {
			continue
		}

		mkt.caughtUp.Store(true)
		found = true
	}

	if !found {
		return fmt.Errorf("no tracked market found for %s", signal.Market)
	}

	return nil
}

// handleIndicatorStateRequest processes the provided indicator state request.
func (m *Manager) handleIndicatorStateRequest(req *shared.IndicatorStateRequest) error {
	mkt, err := m.fetchMarket(req.Market, req.Timeframe)
	if err != nil {
		return err
	}

	req.Response <- mkt.IndicatorState()

	return nil
}

// catchUp signals a catch up for all tracked markets.
func (m *Manager) catchUp() {
	for _, market := range m.cfg.Markets {
		m.cfg.CatchUp(shared.NewCatchUpSignal(market, m.cfg.Timeframes))
	}
}

// Run manages the lifecycle processes of the market manager.
func (m *Manager) Run(ctx context.Context) {
	m.catchUp()

	for {
		select {
		case <-ctx.Done():
			return
		case candle := <-m.updateSignals:
			m.workers <- struct{}{}
			go func(candle *shared.Candlestick) {
				err := m.handleUpdateCandle(candle)
				if err != nil {
					m.cfg.Logger.Error().Err(err).Send()
				}
				<-m.workers
			}(&candle)
		case signal := <-m.caughtUpSignals:
			m.workers <- struct{}{}
			go func(signal *shared.CaughtUpSignal) {
				err := m.handleCaughtUpSignal(signal)
				if err != nil {
					m.cfg.Logger.Error().Err(err).Send()
				}
				<-m.workers
			}(&signal)
		case req := <-m.indicatorStateRequests:
			m.workers <- struct{}{}
			go func(req *shared.IndicatorStateRequest) {
				err := m.handleIndicatorStateRequest(req)
				if err != nil {
					m.cfg.Logger.Error().Err(err).Send()
				}
				<-m.workers
			}(req)
		default:
			// fallthrough
		}
	}
}

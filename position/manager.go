package position

import (
	"context"
	"errors"
	"fmt"
	"slices"
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

// ManagerConfig represents the position manager configuration.
type ManagerConfig struct {
	// Markets is the set of markets eligible for positions.
	Markets []string
	// FirstTouchPolicy resolves candles that touch both the stop loss and
	// the take profit of a position.
	FirstTouchPolicy shared.FirstTouchPolicy
	// Notify sends the provided message.
	Notify func(message string)
	// PersistClosedPosition persists the provided closed position to the database.
	PersistClosedPosition func(position *Position) error
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *ManagerConfig) Validate() error {
	var errs error

	if len(cfg.Markets) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no markets provided for the position manager"))
	}
	if cfg.Notify == nil {
		errs = errors.Join(errs, fmt.Errorf("notify function cannot be nil"))
	}
	if cfg.PersistClosedPosition == nil {
		errs = errors.Join(errs, fmt.Errorf("persist closed position function cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Manager manages positions through their lifecycles.
//
// Positions are keyed by market and timeframe, with at most one active
// position per key at any time.
type Manager struct {
	cfg                  *ManagerConfig
	positions            map[string]*Position
	positionsMtx         sync.RWMutex
	entrySignals         chan shared.EntrySignal
	updateSignals        chan shared.Candlestick
	openPositionRequests chan *shared.OpenPositionRequest
	workers              chan struct{}
}

// NewPositionManager initializes a new position manager.
func NewPositionManager(cfg *ManagerConfig) (*Manager, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &Manager{
		cfg:                  cfg,
		positions:            make(map[string]*Position),
		entrySignals:         make(chan shared.EntrySignal, bufferSize),
		updateSignals:        make(chan shared.Candlestick, bufferSize),
		openPositionRequests: make(chan *shared.OpenPositionRequest, bufferSize),
		workers:              make(chan struct{}, maxWorkers),
	}, nil
}

// SendEntrySignal relays the provided entry signal for processing.
func (m *Manager) SendEntrySignal(signal shared.EntrySignal) {
	select {
	case m.entrySignals <- signal:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("entry signal channel at capacity: %d/%d",
			len(m.entrySignals), bufferSize)
	}
}

// SendMarketUpdate relays the provided market update for processing.
func (m *Manager) SendMarketUpdate(candle shared.Candlestick) {
	select {
	case m.updateSignals <- candle:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("market update channel at capacity: %d/%d",
			len(m.updateSignals), bufferSize)
	}
}

// SendOpenPositionRequest relays the provided open position request for processing.
func (m *Manager) SendOpenPositionRequest(req *shared.OpenPositionRequest) {
	select {
	case m.openPositionRequests <- req:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("open position request channel at capacity: %d/%d",
			len(m.openPositionRequests), bufferSize)
	}
}

// handleEntrySignal processes the provided entry signal.
func (m *Manager) handleEntrySignal(signal *shared.EntrySignal) error {
	defer func() {
		signal.Status <- shared.Processed
	}()

	if !slices.Contains(m.cfg.Markets, signal.Market) {
		return fmt.Errorf("cannot open a position for unknown market: %s", signal.Market)
	}

	key := shared.MarketTimeframeID(signal.Market, signal.Timeframe)

	m.positionsMtx.Lock()
	defer m.positionsMtx.Unlock()

	_, ok := m.positions[key]
	if ok {
		// Only one position may be active per market and timeframe.
		m.cfg.Logger.Info().Msgf("skipping entry signal for %s, position already active", key)
		return nil
	}

	position, err := NewPosition(signal)
	if err != nil {
		return fmt.Errorf("creating new position: %w", err)
	}

	m.positions[key] = position

	msg := fmt.Sprintf("Created new %s position (%s) for %s @ %f with stoploss %f and takeprofit %f",
		position.Direction.String(), position.ID, position.Market, position.EntryPrice,
		position.StopLoss, position.TakeProfit)
	m.cfg.Notify(msg)

	return nil
}

// handleMarketUpdate processes the provided market update, closing tracked
// positions once their stop loss or take profit is touched.
func (m *Manager) handleMarketUpdate(candle *shared.Candlestick) error {
	if !candle.Complete {
		return nil
	}

	key := shared.MarketTimeframeID(candle.Market, candle.Timeframe)

	m.positionsMtx.Lock()
	defer m.positionsMtx.Unlock()

	position, ok := m.positions[key]
	if !ok {
		return nil
	}

	outcome, touched := shared.FirstTouch(position.Direction, position.StopLoss,
		position.TakeProfit, candle.High, candle.Low, m.cfg.FirstTouchPolicy)
	if !touched {
		_, err := position.UpdatePNLPercent(candle.Close)
		if err != nil {
			return fmt.Errorf("updating position pnl: %w", err)
		}

		return nil
	}

	exitPrice := position.TakeProfit
	if outcome == shared.StopLossHit {
		exitPrice = position.StopLoss
	}

	exit := shared.NewExitSignal(candle.Market, candle.Timeframe, position.Direction,
		exitPrice, outcome, candle.Date)

	_, err := position.UpdatePNLPercent(exitPrice)
	if err != nil {
		return fmt.Errorf("updating position pnl: %w", err)
	}

	position.ClosePosition(&exit)

	err = m.cfg.PersistClosedPosition(position)
	if err != nil {
		return fmt.Errorf("persisting closed position: %w", err)
	}

	delete(m.positions, key)

	msg := fmt.Sprintf("Closed %s position (%s) for %s @ %f (%s) with pnl %.2f%%",
		position.Direction.String(), position.ID, position.Market, position.ExitPrice,
		outcome.String(), position.PNLPercent)
	m.cfg.Notify(msg)

	return nil
}

// handleOpenPositionRequest processes the provided open position request.
func (m *Manager) handleOpenPositionRequest(req *shared.OpenPositionRequest) {
	key := shared.MarketTimeframeID(req.Market, req.Timeframe)

	m.positionsMtx.RLock()
	_, ok := m.positions[key]
	m.positionsMtx.RUnlock()

	req.Response <- ok
}

// Run manages the lifecycle processes of the position manager.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case signal := <-m.entrySignals:
			m.workers <- struct{}{}
			go func(signal *shared.EntrySignal) {
				err := m.handleEntrySignal(signal)
				if err != nil {
					m.cfg.Logger.Error().Err(err).Send()
				}
				<-m.workers
			}(&signal)
		case candle := <-m.updateSignals:
			m.workers <- struct{}{}
			go func(candle *shared.Candlestick) {
				err := m.handleMarketUpdate(candle)
				if err != nil {
					m.cfg.Logger.Error().Err(err).Send()
				}
				<-m.workers
			}(&candle)
		case req := <-m.openPositionRequests:
			m.workers <- struct{}{}
			go func(req *shared.OpenPositionRequest) {
				m.handleOpenPositionRequest(req)
				<-m.workers
			}(req)
		default:
			// fallthrough
		}
	}
}

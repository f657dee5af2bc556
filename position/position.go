package position

import (
	"fmt"

	"github.com/dnldd/hammer/shared"
	"github.com/google/uuid"
)

// PositionStatus represents the status of a position.
type PositionStatus int

const (
	Active PositionStatus = iota
	StoppedOut
	Closed
)

// String stringifies the provided position status.
func (s *PositionStatus) String() string {
	switch *s {
	case Active:
		return "active"
	case StoppedOut:
		return "stopped out"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Position represents a market position opened by a confirmed entry signal.
type Position struct {
	ID         string
	Market     string
	Timeframe  shared.Timeframe
	Direction  shared.Direction
	Pattern    shared.Pattern
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	PNLPercent float64
	ExitPrice  float64
	Status     PositionStatus
	CreatedOn  uint64
	ClosedOn   uint64
}

// NewPosition initializes a new position.
func NewPosition(entry *shared.EntrySignal) (*Position, error) {
	if entry == nil {
		return nil, fmt.Errorf("entry signal cannot be nil")
	}

	pos := &Position{
		ID:         uuid.New().String(),
		Market:     entry.Market,
		Timeframe:  entry.Timeframe,
		Direction:  entry.Direction,
		Pattern:    entry.Pattern,
		EntryPrice: entry.Price,
		StopLoss:   entry.StopLoss,
		TakeProfit: entry.TakeProfit,
		CreatedOn:  uint64(entry.CreatedOn.Unix()),
		Status:     Active,
	}

	return pos, nil
}

// ClosePosition closes the position using the provided exit details.
func (p *Position) ClosePosition(exit *shared.ExitSignal) PositionStatus {
	p.ClosedOn = uint64(exit.CreatedOn.Unix())
	p.ExitPrice = exit.Price

	switch exit.Outcome {
	case shared.StopLossHit:
		p.Status = StoppedOut
	default:
		p.Status = Closed
	}

	return p.Status
}

// UpdatePNLPercent updates the percentage change of the position given the current price.
func (p *Position) UpdatePNLPercent(currentPrice float64) (float64, error) {
	switch {
	case p.Direction == shared.Buy:
		p.PNLPercent = ((currentPrice - p.EntryPrice) / p.EntryPrice) * 100
	case p.Direction == shared.Sell:
		p.PNLPercent = ((p.EntryPrice - currentPrice) / p.EntryPrice) * 100
	default:
		return 0, fmt.Errorf("unknown direction for position: %s", p.Direction.String())
	}

	return p.PNLPercent, nil
}

package shared

import "time"

// StatusCode represents a signal status code.
type StatusCode int

const (
	Processing StatusCode = iota
	Processed
)

// EntrySignal represents an entry signal for a position.
type EntrySignal struct {
	Market     string
	Timeframe  Timeframe
	Direction  Direction
	Pattern    Pattern
	Price      float64
	StopLoss   float64
	TakeProfit float64
	ATR        float64
	CreatedOn  time.Time
	Status     chan StatusCode
}

// NewEntrySignal initializes a new entry signal.
func NewEntrySignal(market string, timeframe Timeframe, direction Direction, pattern Pattern,
	price float64, stopLoss float64, takeProfit float64, atr float64, createdOn time.Time) EntrySignal {
	return EntrySignal{
		Market:     market,
		Timeframe:  timeframe,
		Direction:  direction,
		Pattern:    pattern,
		Price:      price,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		ATR:        atr,
		CreatedOn:  createdOn,
		Status:     make(chan StatusCode, 1),
	}
}

// ExitSignal represents an exit signal for a position.
type ExitSignal struct {
	Market    string
	Timeframe Timeframe
	Direction Direction
	Price     float64
	Outcome   Outcome
	CreatedOn time.Time
	Status    chan StatusCode
}

// NewExitSignal initializes a new exit signal.
func NewExitSignal(market string, timeframe Timeframe, direction Direction, price float64,
	outcome Outcome, createdOn time.Time) ExitSignal {
	return ExitSignal{
		Market:    market,
		Timeframe: timeframe,
		Direction: direction,
		Price:     price,
		Outcome:   outcome,
		CreatedOn: createdOn,
		Status:    make(chan StatusCode, 1),
	}
}

// CatchUpSignal represents a signal to catch up on market data.
type CatchUpSignal struct {
	Market     string
	Timeframes []Timeframe
	Status     chan StatusCode
}

// NewCatchUpSignal initializes a new catch up signal.
func NewCatchUpSignal(market string, timeframes []Timeframe) CatchUpSignal {
	return CatchUpSignal{
		Market:     market,
		Timeframes: timeframes,
		Status:     make(chan StatusCode, 1),
	}
}

// CaughtUpSignal represents a signal to conclude a catch up on market data.
type CaughtUpSignal struct {
	Market string
	Status chan StatusCode
}

// NewCaughtUpSignal initializes a new caught up signal.
func NewCaughtUpSignal(market string) CaughtUpSignal {
	return CaughtUpSignal{
		Market: market,
		Status: make(chan StatusCode, 1),
	}
}

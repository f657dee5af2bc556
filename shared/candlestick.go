package shared

import "time"

// Sentiment represents the candlestick sentiment.
type Sentiment int

const (
	Neutral Sentiment = iota
	Bullish
	Bearish
)

// String stringifies the provided sentiment.
func (s Sentiment) String() string {
	switch s {
	case Neutral:
		return "neutral"
	case Bullish:
		return "bullish"
	case Bearish:
		return "bearish"
	default:
		return "unknown"
	}
}

// Candlestick represents a unit candlestick for a market.
type Candlestick struct {
	Open   float64
	Low    float64
	High   float64
	Close  float64
	Volume float64
	Date   time.Time

	// Metadata fields.
	Market    string
	Timeframe Timeframe
	Complete  bool
}

// FetchSentiment returns the provided candlestick's sentiment.
func (c *Candlestick) FetchSentiment() Sentiment {
	switch {
	case c.Close > c.Open:
		return Bullish
	case c.Close < c.Open:
		return Bearish
	default:
		return Neutral
	}
}

// Body returns the absolute size of the candlestick's body.
func (c *Candlestick) Body() float64 {
	body := c.Close - c.Open
	if body < 0 {
		body = -body
	}

	return body
}

// Range returns the full price range covered by the candlestick.
func (c *Candlestick) Range() float64 {
	return c.High - c.Low
}

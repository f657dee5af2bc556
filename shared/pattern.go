package shared

// Pattern represents a candlestick pattern classification.
type Pattern int

const (
	NoPattern Pattern = iota
	BullishHammer
	BearishHammer
)

// String stringifies the provided pattern.
func (p Pattern) String() string {
	switch p {
	case NoPattern:
		return "none"
	case BullishHammer:
		return "bullish hammer"
	case BearishHammer:
		return "bearish hammer"
	default:
		return "unknown"
	}
}

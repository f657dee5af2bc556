package shared

// Outcome represents the resolved exit outcome of a trade.
type Outcome int

const (
	NoExit Outcome = iota
	TakeProfitHit
	StopLossHit
)

// String stringifies the provided outcome.
func (o Outcome) String() string {
	switch o {
	case NoExit:
		return "no exit"
	case TakeProfitHit:
		return "take profit hit"
	case StopLossHit:
		return "stop loss hit"
	default:
		return "unknown"
	}
}

package shared

// Direction represents the direction of a trade.
type Direction int

const (
	Buy Direction = iota
	Sell
)

// String stringifies the provided direction.
func (d Direction) String() string {
	switch d {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

package shared

import "github.com/shopspring/decimal"

const (
	defaultPricePrecision = int32(2)
	defaultTickSize       = float64(0.01)
)

// pricePrecisions maps instruments to the decimal places their prices are quoted at.
var pricePrecisions = map[string]int32{
	"BTC_USD": 2,
	"XAU_USD": 3,
}

// tickSizes maps instruments to their minimum price increments.
var tickSizes = map[string]float64{
	"BTC_USD": 0.01,
	"XAU_USD": 0.001,
}

// PricePrecision returns the quote precision for the provided instrument.
func PricePrecision(instrument string) int32 {
	precision, ok := pricePrecisions[instrument]
	if !ok {
		return defaultPricePrecision
	}

	return precision
}

// TickSize returns the minimum price increment for the provided instrument.
func TickSize(instrument string) float64 {
	size, ok := tickSizes[instrument]
	if !ok {
		return defaultTickSize
	}

	return size
}

// RoundPrice rounds the provided price to the instrument's quote precision.
func RoundPrice(instrument string, price float64) float64 {
	rounded, _ := decimal.NewFromFloat(price).Round(PricePrecision(instrument)).Float64()
	return rounded
}

// FormatPrice formats the provided price at the instrument's quote precision.
func FormatPrice(instrument string, price float64) string {
	return decimal.NewFromFloat(price).StringFixed(PricePrecision(instrument))
}

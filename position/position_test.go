package position

import (
	"testing"
	"time"

	"github.com/dnldd/hammer/shared"
	"github.com/peterldowns/testy/assert"
)

func TestPositionStatusString(t *testing.T) {
	tests := []struct {
		name   string
		status PositionStatus
		want   string
	}{
		{
			name:   "active",
			status: Active,
			want:   "active",
		},
		{
			name:   "stopped out",
			status: StoppedOut,
			want:   "stopped out",
		},
		{
			name:   "closed",
			status: Closed,
			want:   "closed",
		},
		{
			name:   "unknown",
			status: PositionStatus(999),
			want:   "unknown",
		},
	}

	for _, test := range tests {
		str := test.status.String()
		if str != test.want {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, str)
		}
	}
}

func TestPosition(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)
	entrySignal := shared.NewEntrySignal("BTC_USD", shared.FiveMinute, shared.Buy,
		shared.BullishHammer, 10, 8, 14, 2, now)

	// Ensure positions cannot be created with nil entry signals.
	position, err := NewPosition(nil)
	assert.Error(t, err)

	// Ensure positions can be created with valid entry signals.
	position, err = NewPosition(&entrySignal)
	assert.NoError(t, err)
	assert.Equal(t, position.Market, "BTC_USD")
	assert.Equal(t, position.Pattern, shared.BullishHammer)
	assert.Equal(t, position.Status, Active)
	assert.Equal(t, position.TakeProfit, float64(14))

	// Ensure the position's profit and loss can be updated.
	currentPrice := float64(15)
	position.UpdatePNLPercent(currentPrice)
	assert.GreaterThan(t, position.PNLPercent, 0)

	// Ensure a position closed at its take profit is marked closed.
	exitSignal := shared.NewExitSignal("BTC_USD", shared.FiveMinute, shared.Buy,
		14, shared.TakeProfitHit, now.Add(time.Minute*25))

	status := position.ClosePosition(&exitSignal)
	assert.Equal(t, status, Closed)
	assert.Equal(t, position.ExitPrice, float64(14))

	// Ensure a position closed at its stop loss is marked stopped out.
	sellSignal := shared.NewEntrySignal("XAU_USD", shared.FifteenMinute, shared.Sell,
		shared.BearishHammer, 20, 24, 12, 2, now)

	position, err = NewPosition(&sellSignal)
	assert.NoError(t, err)

	stopOutSignal := shared.NewExitSignal("XAU_USD", shared.FifteenMinute, shared.Sell,
		24, shared.StopLossHit, now.Add(time.Hour))

	status = position.ClosePosition(&stopOutSignal)
	assert.Equal(t, status, StoppedOut)

	// Ensure sell positions gain when price falls.
	position.UpdatePNLPercent(16)
	assert.GreaterThan(t, position.PNLPercent, 0)

	// Ensure updating the pnl of a position with an unknown direction errors.
	position.Direction = shared.Direction(999)
	_, err = position.UpdatePNLPercent(16)
	assert.Error(t, err)
}

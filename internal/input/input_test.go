package input

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Speshl/gorrc_robot/internal/models"
)

func TestParseButtons(t *testing.T) {
	buttons := ParseButtons(0b1001, BuildButtonMasks())
	require.Len(t, buttons, 32)
	assert.True(t, buttons[0])
	assert.False(t, buttons[1])
	assert.False(t, buttons[2])
	assert.True(t, buttons[3])
}

func TestDeadZones(t *testing.T) {
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"mid inside positive", GetValueWithMidDeadZone(0.03, 0, 0.05), 0},
		{"mid inside negative", GetValueWithMidDeadZone(-0.03, 0, 0.05), 0},
		{"mid outside", GetValueWithMidDeadZone(0.5, 0, 0.05), 0.5},
		{"low inside", GetValueWithLowDeadZone(0.01, 0, 0.05), 0},
		{"low outside", GetValueWithLowDeadZone(0.2, 0, 0.05), 0.2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, tc.got, 1e-9)
		})
	}
}

func TestHubReadsLatestState(t *testing.T) {
	clk := clock.NewMock()
	hub := NewHub(2, 200*time.Millisecond, clk)

	hub.Update(models.ControlState{Seat: 1, Axes: []float64{0.5, -2}, BitButton: 1 << ButtonX, TimeStamp: 10})

	assert.True(t, hub.Active(1))
	assert.False(t, hub.Active(0))
	assert.InDelta(t, 0.5, hub.Axis(1, LeftX), 1e-9)
	assert.InDelta(t, -1.0, hub.Axis(1, LeftY), 1e-9)
	assert.Zero(t, hub.Axis(1, RightTrigger))
	assert.True(t, hub.Button(1, ButtonX))
	assert.False(t, hub.Button(1, ButtonA))

	// older states are ignored
	hub.Update(models.ControlState{Seat: 1, Axes: []float64{-0.5}, TimeStamp: 5})
	assert.InDelta(t, 0.5, hub.Axis(1, LeftX), 1e-9)
}

func TestHubCentersStaleSeat(t *testing.T) {
	clk := clock.NewMock()
	hub := NewHub(1, 200*time.Millisecond, clk)
	hub.Update(models.ControlState{Seat: 0, Axes: []float64{0.8}, BitButton: 1, TimeStamp: 1})

	clk.Add(150 * time.Millisecond)
	assert.InDelta(t, 0.8, hub.Axis(0, LeftX), 1e-9)

	clk.Add(100 * time.Millisecond)
	assert.Zero(t, hub.Axis(0, LeftX))
	assert.False(t, hub.Button(0, ButtonA))
	assert.False(t, hub.Active(0))
}

func TestHubIgnoresUnknownSeat(t *testing.T) {
	hub := NewHub(1, 0, clock.NewMock())
	hub.Update(models.ControlState{Seat: 3, Axes: []float64{1}})
	assert.Zero(t, hub.Axis(3, LeftX))
	assert.False(t, hub.Button(-1, ButtonA))
}

func TestGamepadAppliesDeadZones(t *testing.T) {
	hub := NewHub(1, 0, clock.NewMock())
	hub.Update(models.ControlState{Seat: 0, Axes: []float64{0.02, 0.6, 0, 0, -0.3, 0.04}})

	pad := NewGamepad(hub, 0)
	assert.Zero(t, pad.Axis(LeftX))
	assert.InDelta(t, -0.6, pad.AxisFunc(LeftY, -1)(), 1e-9)
	assert.Zero(t, pad.Trigger(LeftTrigger))
	assert.Zero(t, pad.TriggerFunc(RightTrigger)())
}

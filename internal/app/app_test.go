package app

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Speshl/gorrc_robot/internal/actuator"
	"github.com/Speshl/gorrc_robot/internal/config"
	"github.com/Speshl/gorrc_robot/internal/input"
	"github.com/Speshl/gorrc_robot/internal/models"
	"github.com/Speshl/gorrc_robot/internal/robot"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Config{
		ServerCfg:  config.ServerConfig{SeatCount: 2},
		ControlCfg: config.ControlConfig{CyclePeriod: 20 * time.Millisecond, DriveForwardScale: -1, DriveTurnAxis: input.RightX, DriveForwardAxis: input.LeftY},
		DriveCfg: config.DriveConfig{
			NominalVoltage: config.DefaultNominalVoltage,
			ShooterMaxRPM:  config.DefaultShooterMaxRPM,
			Ks:             config.DefaultKs,
			Kv:             config.DefaultKv,
			Ka:             config.DefaultKa,
			TrackWidth:     config.DefaultTrackWidth,
		},
	}
	clk := clock.NewMock()
	hub := input.NewHub(cfg.ServerCfg.SeatCount, time.Second, clk)
	rbt, err := robot.NewRobot(cfg, robot.Hardware{Driver: actuator.NewSimDriver()}, hub, nil, clk)
	require.NoError(t, err)
	return NewApp(cfg, nil, rbt, hub, nil, nil)
}

func TestHandleModeQueuesForControlLoop(t *testing.T) {
	a := newTestApp(t)

	require.NoError(t, a.handleMode(models.ModeReq{Mode: "teleop"}))
	assert.Equal(t, robot.ModeDisabled, a.robot.Mode())
	a.robot.RunCycle()
	assert.Equal(t, robot.ModeTeleop, a.robot.Mode())

	assert.ErrorIs(t, a.handleMode(models.ModeReq{Mode: "fly"}), robot.ErrUnknownMode)
}

func TestValidSeat(t *testing.T) {
	a := newTestApp(t)
	assert.True(t, a.validSeat(0))
	assert.True(t, a.validSeat(1))
	assert.False(t, a.validSeat(2))
	assert.False(t, a.validSeat(-1))
}

func TestCommandsAreStampedWithTheSeat(t *testing.T) {
	var got []models.ControlState
	conn := NewConnection(context.Background(), nil, 1, func(s models.ControlState) { got = append(got, s) }, nil)
	defer conn.CtxCancel()

	data, err := json.Marshal(models.ControlState{Seat: 0, Axes: []float64{0.5}, BitButton: 1, TimeStamp: 7})
	require.NoError(t, err)
	conn.onCommandHandler(data)
	conn.onCommandHandler([]byte("not json"))

	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Seat)
	assert.Equal(t, []float64{0.5}, got[0].Axes)
	assert.Equal(t, int64(7), got[0].TimeStamp)
}

func TestCommandsReachTheHub(t *testing.T) {
	a := newTestApp(t)
	conn := NewConnection(context.Background(), nil, 1, a.hub.Update, nil)
	defer conn.CtxCancel()

	conn.onCommandHandler([]byte(`{"seat_number":0,"axes":[0,0,0,-0.8],"bit_buttons":8,"time_stamp":1}`))
	assert.InDelta(t, -0.8, a.hub.Axis(1, input.RightY), 1e-9)
	assert.True(t, a.hub.Button(1, input.ButtonY))
	assert.False(t, a.hub.Active(0))
}

func TestPushHudNeverBlocks(t *testing.T) {
	conn := NewConnection(context.Background(), nil, 0, func(models.ControlState) {}, nil)
	defer conn.CtxCancel()

	for i := 0; i < hudQueueSize+5; i++ {
		conn.PushHud(models.Hud{Lines: []string{fmt.Sprint(i)}})
	}
	assert.Len(t, conn.HudChannel, hudQueueSize)
	assert.Error(t, conn.RegisterHandlers())
}

func TestBroadcastHud(t *testing.T) {
	a := newTestApp(t)
	conns := []*Connection{
		NewConnection(context.Background(), nil, 0, func(models.ControlState) {}, nil),
		NewConnection(context.Background(), nil, 1, func(models.ControlState) {}, nil),
	}
	for i, c := range conns {
		a.setConnection(i, c)
	}

	a.broadcastHud(BuildHud(a.robot.HudLines(), "cpu: 1.0s"))
	for _, c := range conns {
		require.Len(t, c.HudChannel, 1)
		hud := <-c.HudChannel
		assert.Equal(t, "mode: disabled", hud.Lines[0])
		assert.Equal(t, "cpu: 1.0s", hud.Lines[len(hud.Lines)-1])
	}

	a.closeConnections()
	for _, c := range conns {
		assert.Error(t, c.Ctx.Err())
	}
}

func TestPingRoundTrip(t *testing.T) {
	conn := NewConnection(context.Background(), nil, 0, func(models.ControlState) {}, nil)
	defer conn.CtxCancel()

	data, err := json.Marshal(models.Ping{Source: PingSourceName, TimeStamp: time.Now().UnixMilli() - 25})
	require.NoError(t, err)
	conn.onPingHandler(data)
	conn.onPingHandler([]byte(`{"source":"operator","time_stamp":1}`))

	require.Len(t, conn.pingInput, 1)
	assert.GreaterOrEqual(t, <-conn.pingInput, int64(25))
}

func TestHudHelpers(t *testing.T) {
	hud := withPing(models.Hud{Lines: []string{"mode: teleop", "x"}}, 12)
	assert.Equal(t, []string{"mode: teleop | Ping:12ms", "x"}, hud.Lines)
	assert.Empty(t, withPing(models.Hud{}, 3).Lines)

	assert.Equal(t, []string{"a"}, BuildHud([]string{"a"}, "").Lines)
	assert.Equal(t, "", (*ProcessStats)(nil).Line())
	assert.Equal(t, "", (&ProcessStats{}).Line())
}

func TestEncodeDecode(t *testing.T) {
	msg, err := encode(models.ModeReq{Mode: "autonomous"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"mode":"autonomous"}`, msg)

	var req models.ModeReq
	require.NoError(t, decode(msg, &req))
	assert.Equal(t, "autonomous", req.Mode)
	assert.Error(t, decode("{", &req))
}

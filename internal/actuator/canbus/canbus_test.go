package canbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.einride.tech/can"

	"github.com/Speshl/gorrc_robot/internal/actuator"
	"github.com/Speshl/gorrc_robot/internal/config"
	"github.com/Speshl/gorrc_robot/internal/control"
	"github.com/Speshl/gorrc_robot/internal/trajectory"
)

type captureWriter struct {
	frames []can.Frame
	err    error
}

func (w *captureWriter) TransmitFrame(_ context.Context, frame can.Frame) error {
	if w.err != nil {
		return w.err
	}
	w.frames = append(w.frames, frame)
	return nil
}

func testActuatorConfig() config.ActuatorConfig {
	return config.ActuatorConfig{
		Driver:    "can",
		CANBaseID: 0x200,
		OutputCfgs: []config.OutputConfig{
			{Name: "drive_left", Channel: 1},
			{Name: "drive_right", Channel: 2, Inverted: true},
		},
	}
}

func TestDriverSendsFramePerOutput(t *testing.T) {
	writer := &captureWriter{}
	drv := NewDriverWithWriter(testActuatorConfig(), writer)
	require.NoError(t, drv.Init())

	require.NoError(t, drv.SetMany([]actuator.Output{
		{Name: "drive_left", Value: 6, Min: -12, Max: 12},
		{Name: "drive_right", Value: 20, Min: -12, Max: 12},
	}))
	require.Len(t, writer.frames, 2)

	assert.Equal(t, uint32(0x201), writer.frames[0].ID)
	left, err := DecodeOutput(writer.frames[0])
	require.NoError(t, err)
	assert.InDelta(t, 6.0, left, 1e-6)

	assert.Equal(t, uint32(0x202), writer.frames[1].ID)
	right, err := DecodeOutput(writer.frames[1])
	require.NoError(t, err)
	assert.InDelta(t, -12.0, right, 1e-6)
}

func TestDriverErrors(t *testing.T) {
	writer := &captureWriter{}
	drv := NewDriverWithWriter(testActuatorConfig(), writer)
	require.NoError(t, drv.Init())

	assert.Error(t, drv.Set(actuator.Output{Name: "drive_left", Min: 1, Max: 1}))

	writer.err = errors.New("bus off")
	err := drv.Set(actuator.Power("drive_left", 0.5))
	assert.ErrorIs(t, err, writer.err)
}

func TestDriverIgnoresUnconfiguredOutputs(t *testing.T) {
	writer := &captureWriter{}
	drv := NewDriverWithWriter(testActuatorConfig(), writer)
	require.NoError(t, drv.Init())

	for i := 0; i < 3; i++ {
		assert.NoError(t, drv.Set(actuator.Power("intake", 0.5)))
	}
	require.NoError(t, drv.SetMany([]actuator.Output{
		actuator.Power("pivot", -0.05),
		actuator.Power("drive_left", 0.5),
	}))
	require.Len(t, writer.frames, 1)
	assert.Equal(t, uint32(0x201), writer.frames[0].ID)
}

func TestDriverStopZeroesOutputs(t *testing.T) {
	writer := &captureWriter{}
	drv := NewDriverWithWriter(testActuatorConfig(), writer)
	require.NoError(t, drv.Init())

	require.NoError(t, drv.Stop())
	require.Len(t, writer.frames, 2)
	for _, frame := range writer.frames {
		value, err := DecodeOutput(frame)
		require.NoError(t, err)
		assert.Equal(t, 0.0, value)
	}
}

func TestPoseCodec(t *testing.T) {
	frame := EncodePose(0x300, trajectory.NewPose(1.234, -2.5, -1.5))
	pose, err := DecodePose(frame)
	require.NoError(t, err)
	assert.InDelta(t, 1.234, pose.X, 1e-9)
	assert.InDelta(t, -2.5, pose.Y, 1e-9)
	assert.InDelta(t, -1.5, pose.Heading, 1e-4)

	// out of range saturates
	far, err := DecodePose(EncodePose(0x300, trajectory.NewPose(100, 0, 0)))
	require.NoError(t, err)
	assert.InDelta(t, 32.767, far.X, 1e-9)

	_, err = DecodePose(can.Frame{ID: 0x300, Length: 2})
	assert.Error(t, err)
}

func TestWheelSpeedAndVisionCodec(t *testing.T) {
	speeds, err := DecodeWheelSpeeds(EncodeWheelSpeeds(0x301, control.WheelSpeeds{Left: 1.5, Right: -0.25}))
	require.NoError(t, err)
	assert.InDelta(t, 1.5, speeds.Left, 1e-9)
	assert.InDelta(t, -0.25, speeds.Right, 1e-9)

	yaw, valid, err := DecodeVisionYaw(EncodeVisionYaw(0x310, -12.5, true))
	require.NoError(t, err)
	assert.True(t, valid)
	assert.InDelta(t, -12.5, yaw, 1e-9)

	_, valid, err = DecodeVisionYaw(EncodeVisionYaw(0x310, 3, false))
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestFeedbackStaleness(t *testing.T) {
	mock := clock.NewMock()
	fb := NewFeedback(config.FeedbackConfig{
		PoseFrameID:         0x300,
		WheelSpeedFrameID:   0x301,
		VisionYawFrameID:    0x310,
		StaleAfter:          100 * time.Millisecond,
		VisionYawStaleAfter: 250 * time.Millisecond,
	}, mock)

	_, ok := fb.Pose()
	assert.False(t, ok)

	fb.HandleFrame(EncodePose(0x300, trajectory.NewPose(1, 2, 0.5)))
	fb.HandleFrame(EncodeWheelSpeeds(0x301, control.WheelSpeeds{Left: 1, Right: 1}))
	fb.HandleFrame(EncodeVisionYaw(0x310, 4, true))
	fb.HandleFrame(can.Frame{ID: 0x123, Length: 8})

	pose, ok := fb.Pose()
	require.True(t, ok)
	assert.InDelta(t, 2.0, pose.Y, 1e-9)
	_, ok = fb.WheelSpeeds()
	assert.True(t, ok)
	yaw, ok := fb.VisionYaw()
	assert.True(t, ok)
	assert.InDelta(t, 4.0, yaw, 1e-9)

	mock.Add(150 * time.Millisecond)
	_, ok = fb.Pose()
	assert.False(t, ok)
	_, ok = fb.WheelSpeeds()
	assert.False(t, ok)
	_, ok = fb.VisionYaw()
	assert.True(t, ok)

	fb.HandleFrame(EncodeVisionYaw(0x310, 4, false))
	_, ok = fb.VisionYaw()
	assert.False(t, ok)
}

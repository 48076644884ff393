package canbus

import (
	"fmt"
	"math"

	"go.einride.tech/can"

	"github.com/Speshl/gorrc_robot/internal/control"
	"github.com/Speshl/gorrc_robot/internal/trajectory"
)

// Signal scaling of the feedback frames. All signals are little endian int16.
const (
	positionScale  = 0.001  // m per bit
	headingScale   = 0.0001 // rad per bit
	wheelScale     = 0.001  // m/s per bit
	visionYawScale = 0.01   // deg per bit

	poseFrameLength       = 6
	wheelSpeedFrameLength = 4
	visionYawFrameLength  = 3
	outputFrameLength     = 4
)

// EncodeOutput packs one output value as a little endian float32.
func EncodeOutput(id uint32, value float64) can.Frame {
	frame := can.Frame{ID: id, Length: outputFrameLength}
	frame.Data.SetUnsignedBitsLittleEndian(0, 32, uint64(math.Float32bits(float32(value))))
	return frame
}

func DecodeOutput(frame can.Frame) (float64, error) {
	if frame.Length < outputFrameLength {
		return 0, fmt.Errorf("output frame 0x%X too short: %d", frame.ID, frame.Length)
	}
	return float64(math.Float32frombits(uint32(frame.Data.UnsignedBitsLittleEndian(0, 32)))), nil
}

// EncodePose packs x, y and heading.
func EncodePose(id uint32, pose trajectory.Pose) can.Frame {
	frame := can.Frame{ID: id, Length: poseFrameLength}
	frame.Data.SetSignedBitsLittleEndian(0, 16, scaled(pose.X, positionScale))
	frame.Data.SetSignedBitsLittleEndian(16, 16, scaled(pose.Y, positionScale))
	frame.Data.SetSignedBitsLittleEndian(32, 16, scaled(trajectory.NormalizeAngle(pose.Heading), headingScale))
	return frame
}

func DecodePose(frame can.Frame) (trajectory.Pose, error) {
	if frame.Length < poseFrameLength {
		return trajectory.Pose{}, fmt.Errorf("pose frame 0x%X too short: %d", frame.ID, frame.Length)
	}
	return trajectory.Pose{
		X:       float64(frame.Data.SignedBitsLittleEndian(0, 16)) * positionScale,
		Y:       float64(frame.Data.SignedBitsLittleEndian(16, 16)) * positionScale,
		Heading: float64(frame.Data.SignedBitsLittleEndian(32, 16)) * headingScale,
	}, nil
}

func EncodeWheelSpeeds(id uint32, speeds control.WheelSpeeds) can.Frame {
	frame := can.Frame{ID: id, Length: wheelSpeedFrameLength}
	frame.Data.SetSignedBitsLittleEndian(0, 16, scaled(speeds.Left, wheelScale))
	frame.Data.SetSignedBitsLittleEndian(16, 16, scaled(speeds.Right, wheelScale))
	return frame
}

func DecodeWheelSpeeds(frame can.Frame) (control.WheelSpeeds, error) {
	if frame.Length < wheelSpeedFrameLength {
		return control.WheelSpeeds{}, fmt.Errorf("wheel speed frame 0x%X too short: %d", frame.ID, frame.Length)
	}
	return control.WheelSpeeds{
		Left:  float64(frame.Data.SignedBitsLittleEndian(0, 16)) * wheelScale,
		Right: float64(frame.Data.SignedBitsLittleEndian(16, 16)) * wheelScale,
	}, nil
}

// EncodeVisionYaw packs the target yaw in degrees and whether a target is seen.
func EncodeVisionYaw(id uint32, yaw float64, valid bool) can.Frame {
	frame := can.Frame{ID: id, Length: visionYawFrameLength}
	frame.Data.SetSignedBitsLittleEndian(0, 16, scaled(yaw, visionYawScale))
	if valid {
		frame.Data.SetUnsignedBitsLittleEndian(16, 1, 1)
	}
	return frame
}

func DecodeVisionYaw(frame can.Frame) (float64, bool, error) {
	if frame.Length < visionYawFrameLength {
		return 0, false, fmt.Errorf("vision frame 0x%X too short: %d", frame.ID, frame.Length)
	}
	yaw := float64(frame.Data.SignedBitsLittleEndian(0, 16)) * visionYawScale
	return yaw, frame.Data.UnsignedBitsLittleEndian(16, 1) == 1, nil
}

func scaled(value, scale float64) int64 {
	raw := math.Round(value / scale)
	return int64(control.Clamp(raw, math.MinInt16, math.MaxInt16))
}

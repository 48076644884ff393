package control

// ChassisSpeeds is a linear speed in m/s and a turn rate in rad/s, CCW positive.
type ChassisSpeeds struct {
	Linear  float64
	Angular float64
}

// WheelSpeeds are per side speeds in m/s.
type WheelSpeeds struct {
	Left  float64
	Right float64
}

type DifferentialDriveKinematics struct {
	TrackWidth float64 // m
}

func (k DifferentialDriveKinematics) ToWheelSpeeds(speeds ChassisSpeeds) WheelSpeeds {
	return WheelSpeeds{
		Left:  speeds.Linear - speeds.Angular*k.TrackWidth/2,
		Right: speeds.Linear + speeds.Angular*k.TrackWidth/2,
	}
}

func (k DifferentialDriveKinematics) ToChassisSpeeds(wheels WheelSpeeds) ChassisSpeeds {
	return ChassisSpeeds{
		Linear:  (wheels.Left + wheels.Right) / 2,
		Angular: (wheels.Right - wheels.Left) / k.TrackWidth,
	}
}

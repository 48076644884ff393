package control

import (
	"math"

	"github.com/Speshl/gorrc_robot/internal/trajectory"
)

// VoltageConstraint keeps both wheels within what MaxVoltage can hold and
// accelerate.
type VoltageConstraint struct {
	Feedforward SimpleMotorFeedforward
	Kinematics  DifferentialDriveKinematics
	MaxVoltage  float64
}

var _ trajectory.Constraint = VoltageConstraint{}

// MaxVelocity caps the speed so the outer wheel's steady state voltage stays
// within MaxVoltage.
func (c VoltageConstraint) MaxVelocity(_ trajectory.Pose, curvature, _ float64) float64 {
	if c.Feedforward.Kv <= 0 {
		return math.Inf(1)
	}
	outer := 1 + c.Kinematics.TrackWidth*math.Abs(curvature)/2
	return math.Max(0, c.MaxVoltage-c.Feedforward.Ks) / (c.Feedforward.Kv * outer)
}

func (c VoltageConstraint) MinMaxAcceleration(_ trajectory.Pose, curvature, velocity float64) (float64, float64) {
	wheels := c.Kinematics.ToWheelSpeeds(ChassisSpeeds{Linear: velocity, Angular: velocity * curvature})

	maxWheelAccel := c.Feedforward.MaxAchievableAcceleration(c.MaxVoltage, math.Max(wheels.Left, wheels.Right))
	minWheelAccel := c.Feedforward.MinAchievableAcceleration(c.MaxVoltage, math.Min(wheels.Left, wheels.Right))

	// the outer wheel sees radius + T/2, the inner one radius - T/2
	halfTrackCurv := c.Kinematics.TrackWidth * math.Abs(curvature) / 2
	var maxAccel, minAccel float64
	if velocity == 0 {
		maxAccel = maxWheelAccel / (1 + halfTrackCurv)
		minAccel = minWheelAccel / (1 + halfTrackCurv)
	} else {
		maxAccel = maxWheelAccel / (1 + halfTrackCurv*sign(velocity))
		minAccel = minWheelAccel / (1 - halfTrackCurv*sign(velocity))
	}

	// turning inside the wheelbase flips the inner wheel
	if c.Kinematics.TrackWidth/2 > 1/math.Abs(curvature) {
		if velocity > 0 {
			minAccel = -minAccel
		} else if velocity < 0 {
			maxAccel = -maxAccel
		}
	}
	return minAccel, maxAccel
}

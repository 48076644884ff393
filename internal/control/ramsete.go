package control

import (
	"math"

	"github.com/Speshl/gorrc_robot/internal/trajectory"
)

// Ramsete is the nonlinear unicycle pose tracker. B (> 0) sets how hard
// position error is corrected, Zeta (0..1) damps the response.
type Ramsete struct {
	B    float64
	Zeta float64
}

// Calculate returns the chassis speeds that move current towards the
// reference state.
func (r Ramsete) Calculate(current trajectory.Pose, ref trajectory.State) ChassisSpeeds {
	e := ref.Pose.RelativeTo(current)
	v := ref.Velocity
	omega := ref.AngularVelocity()

	k := 2 * r.Zeta * math.Sqrt(omega*omega+r.B*v*v)
	return ChassisSpeeds{
		Linear:  v*math.Cos(e.Heading) + k*e.X,
		Angular: omega + k*e.Heading + r.B*v*sinc(e.Heading)*e.Y,
	}
}

func sinc(x float64) float64 {
	if math.Abs(x) < 1e-9 {
		return 1.0 - x*x/6.0
	}
	return math.Sin(x) / x
}

package trajectory

import (
	"math"

	"github.com/golang/geo/r2"
)

// Pose is a field position in meters with a heading in radians, CCW positive.
type Pose struct {
	X       float64
	Y       float64
	Heading float64
}

func NewPose(x, y, heading float64) Pose {
	return Pose{X: x, Y: y, Heading: heading}
}

func PoseAt(p r2.Point, heading float64) Pose {
	return Pose{X: p.X, Y: p.Y, Heading: heading}
}

func (p Pose) Translation() r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

func (p Pose) Distance(other Pose) float64 {
	return other.Translation().Sub(p.Translation()).Norm()
}

// RelativeTo expresses p in the frame of origin.
func (p Pose) RelativeTo(origin Pose) Pose {
	d := p.Translation().Sub(origin.Translation())
	sin, cos := math.Sincos(-origin.Heading)
	return Pose{
		X:       d.X*cos - d.Y*sin,
		Y:       d.X*sin + d.Y*cos,
		Heading: NormalizeAngle(p.Heading - origin.Heading),
	}
}

// NormalizeAngle wraps an angle into [-pi, pi].
func NormalizeAngle(angle float64) float64 {
	angle = math.Mod(angle+math.Pi, 2*math.Pi)
	if angle < 0 {
		angle += 2 * math.Pi
	}
	return angle - math.Pi
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func lerpAngle(a, b, t float64) float64 {
	return NormalizeAngle(a + NormalizeAngle(b-a)*t)
}

func interpolatePose(a, b Pose, t float64) Pose {
	return Pose{
		X:       lerp(a.X, b.X, t),
		Y:       lerp(a.Y, b.Y, t),
		Heading: lerpAngle(a.Heading, b.Heading, t),
	}
}

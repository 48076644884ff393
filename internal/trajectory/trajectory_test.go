package trajectory

import (
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{
	MaxVelocity:     1.5,
	MaxAcceleration: 1.0,
}

func TestGenerateStraightLine(t *testing.T) {
	traj, err := Generate(NewPose(0, 0, 0), nil, NewPose(3, 0, 0), testConfig)
	require.NoError(t, err)

	// accelerate 1.5s, cruise 0.5s, decelerate 1.5s
	assert.InDelta(t, 3.5, traj.TotalTime(), 0.05)
	assert.InDelta(t, 3.5, traj.Duration().Seconds(), 0.05)

	states := traj.States()
	require.Greater(t, len(states), 100)
	assert.InDelta(t, 0.0, states[0].Velocity, 1e-9)
	assert.InDelta(t, 0.0, states[len(states)-1].Velocity, 1e-9)

	prevTime := -1.0
	for _, s := range states {
		assert.LessOrEqual(t, s.Velocity, testConfig.MaxVelocity+1e-9)
		assert.GreaterOrEqual(t, s.Velocity, 0.0)
		assert.Greater(t, s.Time, prevTime)
		assert.InDelta(t, 0.0, s.Pose.Y, 1e-9)
		assert.InDelta(t, 0.0, s.Curvature, 1e-6)
		prevTime = s.Time
	}

	end := traj.Sample(traj.TotalTime() + 10)
	assert.InDelta(t, 3.0, end.Pose.X, 1e-6)
}

func TestGenerateThroughWaypoints(t *testing.T) {
	interior := []r2.Point{{X: 1, Y: 1}, {X: 2, Y: -1}}
	traj, err := Generate(NewPose(0, 0, 0), interior, NewPose(3, 0, 0), testConfig)
	require.NoError(t, err)

	for _, wp := range interior {
		closest := math.Inf(1)
		for _, s := range traj.States() {
			closest = math.Min(closest, s.Pose.Translation().Sub(wp).Norm())
		}
		assert.Less(t, closest, 0.02, "waypoint %v not reached", wp)
	}

	first := traj.InitialPose()
	assert.InDelta(t, 0.0, first.X, 1e-9)
	assert.InDelta(t, 0.0, first.Heading, 1e-6)

	states := traj.States()
	last := states[len(states)-1]
	assert.InDelta(t, 3.0, last.Pose.X, 1e-6)
	assert.InDelta(t, 0.0, last.Pose.Y, 1e-6)
	assert.InDelta(t, 0.0, last.Pose.Heading, 1e-3)
}

func TestGenerateZeroLength(t *testing.T) {
	traj, err := Generate(NewPose(1, 2, 0.5), nil, NewPose(1, 2, 0.5), testConfig)
	require.NoError(t, err)

	states := traj.States()
	require.Len(t, states, 1)
	assert.Equal(t, 0.0, traj.TotalTime())
	assert.Equal(t, time.Duration(0), traj.Duration())
	assert.Equal(t, NewPose(1, 2, 0.5), traj.Sample(3).Pose)
}

type fixedConstraint struct {
	maxVelocity float64
	minAccel    float64
	maxAccel    float64
}

func (f fixedConstraint) MaxVelocity(Pose, float64, float64) float64 {
	return f.maxVelocity
}

func (f fixedConstraint) MinMaxAcceleration(Pose, float64, float64) (float64, float64) {
	return f.minAccel, f.maxAccel
}

func TestGenerateInfeasible(t *testing.T) {
	start, end := NewPose(0, 0, 0), NewPose(2, 0, 0)

	tests := []struct {
		name  string
		start Pose
		cfg   Config
	}{
		{"zero velocity", start, Config{MaxVelocity: 0, MaxAcceleration: 1}},
		{"negative acceleration", start, Config{MaxVelocity: 1, MaxAcceleration: -1}},
		{"nan pose", NewPose(math.NaN(), 0, 0), testConfig},
		{"inverted acceleration window", start, Config{
			MaxVelocity: 1, MaxAcceleration: 1,
			Constraints: []Constraint{fixedConstraint{maxVelocity: 1, minAccel: 1, maxAccel: -1}},
		}},
		{"robot cannot move", start, Config{
			MaxVelocity: 1, MaxAcceleration: 1,
			Constraints: []Constraint{fixedConstraint{maxVelocity: 0, minAccel: -1, maxAccel: 1}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(tt.start, nil, end, tt.cfg)
			assert.ErrorIs(t, err, ErrInfeasibleTrajectory)
		})
	}
}

func TestGenerateHonorsConstraintVelocity(t *testing.T) {
	cfg := testConfig
	cfg.Constraints = []Constraint{fixedConstraint{maxVelocity: 0.5, minAccel: -1, maxAccel: 1}}

	traj, err := Generate(NewPose(0, 0, 0), nil, NewPose(2, 0, 0), cfg)
	require.NoError(t, err)
	for _, s := range traj.States() {
		assert.LessOrEqual(t, s.Velocity, 0.5+1e-9)
	}
}

func TestSampleInterpolates(t *testing.T) {
	traj := New([]State{
		{Time: 0, Velocity: 0, Acceleration: 1, Pose: NewPose(0, 0, 0)},
		{Time: 1, Velocity: 1, Acceleration: 0, Pose: NewPose(0.5, 0, 0)},
	})

	mid := traj.Sample(0.5)
	assert.InDelta(t, 0.5, mid.Time, 1e-9)
	assert.InDelta(t, 0.5, mid.Velocity, 1e-9)
	assert.InDelta(t, 0.125, mid.Pose.X, 1e-9)

	assert.Equal(t, 0.0, traj.Sample(-1).Pose.X)
	assert.Equal(t, 0.5, traj.Sample(5).Pose.X)
	assert.Equal(t, State{}, New(nil).Sample(1))
}

func TestRelativeTo(t *testing.T) {
	p := NewPose(1, 1, math.Pi/2).RelativeTo(NewPose(1, 0, math.Pi/2))
	assert.InDelta(t, 1.0, p.X, 1e-9)
	assert.InDelta(t, 0.0, p.Y, 1e-9)
	assert.InDelta(t, 0.0, p.Heading, 1e-9)

	assert.InDelta(t, -math.Pi+0.1, NormalizeAngle(math.Pi+0.1), 1e-9)
	assert.InDelta(t, 0.5, NormalizeAngle(0.5+4*math.Pi), 1e-9)
}

func TestGenerateWithCurvatureLimitedConstraint(t *testing.T) {
	cfg := testConfig
	cfg.Constraints = []Constraint{curvatureLimit{maxLateral: 1}}

	traj, err := Generate(NewPose(0, 0, 0), []r2.Point{{X: 1, Y: 1}, {X: 2, Y: -1}}, NewPose(3, 0, 0), cfg)
	require.NoError(t, err)
	for _, s := range traj.States() {
		assert.LessOrEqual(t, s.Velocity*s.Velocity*math.Abs(s.Curvature), 1+1e-6)
	}
}

// curvatureLimit bounds lateral acceleration v^2 * |curvature|.
type curvatureLimit struct {
	maxLateral float64
}

func (c curvatureLimit) MaxVelocity(_ Pose, curvature, _ float64) float64 {
	if curvature == 0 {
		return math.Inf(1)
	}
	return math.Sqrt(c.maxLateral / math.Abs(curvature))
}

func (c curvatureLimit) MinMaxAcceleration(Pose, float64, float64) (float64, float64) {
	return math.Inf(-1), math.Inf(1)
}

// Package trajectory generates time parameterized drive paths.
package trajectory

import (
	"errors"
	"math"
	"sort"
	"time"
)

var ErrInfeasibleTrajectory = errors.New("infeasible trajectory")

// State is one sample of a trajectory. Time is in seconds since the start,
// Velocity in m/s, Acceleration in m/s^2 and Curvature in rad/m.
type State struct {
	Time         float64
	Velocity     float64
	Acceleration float64
	Pose         Pose
	Curvature    float64
}

// AngularVelocity is the reference turn rate in rad/s.
func (s State) AngularVelocity() float64 {
	return s.Velocity * s.Curvature
}

// Trajectory is an immutable, ordered list of states.
type Trajectory struct {
	states []State
}

func New(states []State) *Trajectory {
	return &Trajectory{states: append([]State(nil), states...)}
}

func (t *Trajectory) States() []State {
	return append([]State(nil), t.states...)
}

// TotalTime is the duration in seconds.
func (t *Trajectory) TotalTime() float64 {
	if len(t.states) == 0 {
		return 0
	}
	return t.states[len(t.states)-1].Time
}

func (t *Trajectory) Duration() time.Duration {
	return time.Duration(t.TotalTime() * float64(time.Second))
}

func (t *Trajectory) InitialPose() Pose {
	if len(t.states) == 0 {
		return Pose{}
	}
	return t.states[0].Pose
}

// Sample interpolates the state at seconds since the start. Times outside
// the trajectory clamp to the first or last state.
func (t *Trajectory) Sample(seconds float64) State {
	if len(t.states) == 0 {
		return State{}
	}
	if seconds <= t.states[0].Time {
		return t.states[0]
	}
	last := t.states[len(t.states)-1]
	if seconds >= last.Time {
		return last
	}

	i := sort.Search(len(t.states), func(i int) bool { return t.states[i].Time >= seconds })
	next := t.states[i]
	prev := t.states[i-1]
	if next.Time-prev.Time < 1e-9 {
		return next
	}

	dt := seconds - prev.Time
	velocity := prev.Velocity + prev.Acceleration*dt
	travelled := prev.Velocity*dt + 0.5*prev.Acceleration*dt*dt

	fraction := dt / (next.Time - prev.Time)
	if span := prev.Pose.Distance(next.Pose); span > 1e-9 {
		fraction = math.Max(0, math.Min(1, travelled/span))
	}

	return State{
		Time:         seconds,
		Velocity:     velocity,
		Acceleration: prev.Acceleration,
		Pose:         interpolatePose(prev.Pose, next.Pose, fraction),
		Curvature:    lerp(prev.Curvature, next.Curvature, fraction),
	}
}

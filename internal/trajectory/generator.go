package trajectory

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
)

const epsilon = 1e-6

// Constraint limits velocity and acceleration along the path.
type Constraint interface {
	MaxVelocity(pose Pose, curvature, velocity float64) float64
	MinMaxAcceleration(pose Pose, curvature, velocity float64) (float64, float64)
}

// Config holds the limits used to time parameterize a path.
type Config struct {
	MaxVelocity     float64 // m/s
	MaxAcceleration float64 // m/s^2
	StartVelocity   float64
	EndVelocity     float64
	Constraints     []Constraint
}

func (c Config) validate() error {
	if !finite(c.MaxVelocity) || c.MaxVelocity <= 0 {
		return fmt.Errorf("%w: max velocity must be positive, got %v", ErrInfeasibleTrajectory, c.MaxVelocity)
	}
	if !finite(c.MaxAcceleration) || c.MaxAcceleration <= 0 {
		return fmt.Errorf("%w: max acceleration must be positive, got %v", ErrInfeasibleTrajectory, c.MaxAcceleration)
	}
	if !finite(c.StartVelocity) || !finite(c.EndVelocity) || c.StartVelocity < 0 || c.EndVelocity < 0 {
		return fmt.Errorf("%w: start and end velocity must be non negative", ErrInfeasibleTrajectory)
	}
	return nil
}

// Generate fits a spline from start through the interior waypoints to end and
// time parameterizes it. Errors wrap ErrInfeasibleTrajectory.
func Generate(start Pose, interior []r2.Point, end Pose, cfg Config) (*Trajectory, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if !finitePose(start) || !finitePose(end) {
		return nil, fmt.Errorf("%w: non finite start or end pose", ErrInfeasibleTrajectory)
	}
	for i := range interior {
		if !finite(interior[i].X) || !finite(interior[i].Y) {
			return nil, fmt.Errorf("%w: non finite waypoint %d", ErrInfeasibleTrajectory, i)
		}
	}

	spans, err := buildSpans(start, interior, end)
	if err != nil {
		return nil, err
	}

	points := samplePath(spans, start.Heading)
	if len(points) < 2 {
		// nothing to drive
		return New([]State{{Pose: start}}), nil
	}
	return parameterize(points, cfg)
}

type constrainedState struct {
	point       pathPoint
	distance    float64
	maxVelocity float64
	minAccel    float64
	maxAccel    float64
}

func parameterize(points []pathPoint, cfg Config) (*Trajectory, error) {
	states := make([]constrainedState, len(points))

	predecessor := constrainedState{
		point:       points[0],
		maxVelocity: cfg.StartVelocity,
		minAccel:    -cfg.MaxAcceleration,
		maxAccel:    cfg.MaxAcceleration,
	}

	// forward pass: limit by acceleration from the start
	for i := range points {
		states[i] = constrainedState{point: points[i]}
		current := &states[i]

		ds := current.point.pose.Distance(predecessor.point.pose)
		current.distance = ds + predecessor.distance

		for {
			current.maxVelocity = math.Min(cfg.MaxVelocity, reachable(predecessor.maxVelocity, predecessor.maxAccel, ds))
			current.minAccel = -cfg.MaxAcceleration
			current.maxAccel = cfg.MaxAcceleration

			for _, constraint := range cfg.Constraints {
				current.maxVelocity = math.Min(current.maxVelocity,
					constraint.MaxVelocity(current.point.pose, current.point.curvature, current.maxVelocity))
			}
			if err := enforceAccelerationLimits(cfg.Constraints, current); err != nil {
				return nil, err
			}

			if ds < epsilon {
				break
			}

			actualAccel := (current.maxVelocity*current.maxVelocity - predecessor.maxVelocity*predecessor.maxVelocity) / (2 * ds)
			if current.maxAccel < actualAccel-epsilon {
				predecessor.maxAccel = current.maxAccel
			} else {
				if actualAccel > predecessor.minAccel {
					predecessor.maxAccel = actualAccel
				}
				break
			}
		}
		if i > 0 {
			states[i-1].maxAccel = predecessor.maxAccel
		}
		predecessor = *current
	}

	// backward pass: limit by deceleration to the end
	successor := constrainedState{
		point:       points[len(points)-1],
		distance:    states[len(states)-1].distance,
		maxVelocity: cfg.EndVelocity,
		minAccel:    -cfg.MaxAcceleration,
		maxAccel:    cfg.MaxAcceleration,
	}
	for i := len(states) - 1; i >= 0; i-- {
		current := &states[i]
		ds := current.distance - successor.distance // <= 0

		for {
			newMaxVelocity := reachable(successor.maxVelocity, successor.minAccel, ds)
			if newMaxVelocity >= current.maxVelocity {
				break
			}
			current.maxVelocity = newMaxVelocity
			if err := enforceAccelerationLimits(cfg.Constraints, current); err != nil {
				return nil, err
			}

			if ds > -epsilon {
				break
			}

			actualAccel := (current.maxVelocity*current.maxVelocity - successor.maxVelocity*successor.maxVelocity) / (2 * ds)
			if current.minAccel > actualAccel+epsilon {
				successor.minAccel = current.minAccel
			} else {
				successor.minAccel = actualAccel
				break
			}
		}
		if i < len(states)-1 {
			states[i+1].minAccel = successor.minAccel
		}
		successor = *current
	}

	// integrate time
	out := make([]State, 0, len(states))
	timeSeconds, distance, velocity := 0.0, 0.0, 0.0
	for i := range states {
		current := states[i]
		ds := current.distance - distance

		if i > 0 {
			accel := (current.maxVelocity*current.maxVelocity - velocity*velocity) / (2 * ds)
			out[i-1].Acceleration = accel

			var dt float64
			switch {
			case math.Abs(accel) > epsilon:
				dt = (current.maxVelocity - velocity) / accel
			case math.Abs(velocity) > epsilon:
				dt = ds / velocity
			default:
				return nil, fmt.Errorf("%w: robot cannot move at %.3f m along the path", ErrInfeasibleTrajectory, current.distance)
			}
			if !finite(dt) || dt < 0 {
				return nil, fmt.Errorf("%w: bad time step at %.3f m", ErrInfeasibleTrajectory, current.distance)
			}
			timeSeconds += dt
		}

		velocity = current.maxVelocity
		distance = current.distance
		out = append(out, State{
			Time:      timeSeconds,
			Velocity:  velocity,
			Pose:      current.point.pose,
			Curvature: current.point.curvature,
		})
	}
	return New(out), nil
}

// reachable is the speed after covering ds from v0 at constant accel.
func reachable(v0, accel, ds float64) float64 {
	sq := v0*v0 + 2*accel*ds
	if sq <= 0 {
		return 0
	}
	return math.Sqrt(sq)
}

func enforceAccelerationLimits(constraints []Constraint, state *constrainedState) error {
	for _, constraint := range constraints {
		minAccel, maxAccel := constraint.MinMaxAcceleration(state.point.pose, state.point.curvature, state.maxVelocity)
		if minAccel > maxAccel {
			return fmt.Errorf("%w: constraint allows no acceleration at %.3f m (min %.3f > max %.3f)",
				ErrInfeasibleTrajectory, state.distance, minAccel, maxAccel)
		}
		state.minAccel = math.Max(state.minAccel, minAccel)
		state.maxAccel = math.Min(state.maxAccel, maxAccel)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finitePose(p Pose) bool {
	return finite(p.X) && finite(p.Y) && finite(p.Heading)
}

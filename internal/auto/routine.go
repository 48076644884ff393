package auto

import (
	"fmt"
	"log"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"

	"github.com/Speshl/gorrc_robot/internal/control"
	"github.com/Speshl/gorrc_robot/internal/trajectory"
)

// Limits bound the generated path.
type Limits struct {
	MaxVelocity          float64 // m/s
	MaxAcceleration      float64 // m/s^2
	MaxConstraintVoltage float64 // V available for acceleration
}

// Routine is the autonomous command: follow the trajectory and stop.
type Routine struct {
	*Follower
	traj  *trajectory.Trajectory
	ended bool
}

// BuildRoutine generates the trajectory up front. Any generation failure is
// returned before anything can move.
func BuildRoutine(start trajectory.Pose, waypoints []r2.Point, end trajectory.Pose, limits Limits,
	drive Drivetrain, cfg FollowerConfig, clk clock.Clock) (*Routine, error) {
	if limits.MaxConstraintVoltage <= 0 {
		return nil, fmt.Errorf("%w: constraint voltage must be positive, got %v",
			trajectory.ErrInfeasibleTrajectory, limits.MaxConstraintVoltage)
	}

	traj, err := trajectory.Generate(start, waypoints, end, trajectory.Config{
		MaxVelocity:     limits.MaxVelocity,
		MaxAcceleration: limits.MaxAcceleration,
		Constraints: []trajectory.Constraint{
			control.VoltageConstraint{
				Feedforward: cfg.Feedforward,
				Kinematics:  cfg.Kinematics,
				MaxVoltage:  limits.MaxConstraintVoltage,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed building autonomous routine: %w", err)
	}
	log.Printf("autonomous trajectory has %d states over %s\n", len(traj.States()), traj.Duration())

	return &Routine{
		Follower: NewFollower(traj, drive, cfg, clk),
		traj:     traj,
	}, nil
}

func (r *Routine) Name() string { return "autonomous" }

func (r *Routine) Initialize() error {
	r.ended = false
	return r.Follower.Initialize()
}

func (r *Routine) End(interrupted bool) error {
	r.ended = true
	return r.Follower.End(interrupted)
}

// Done reports whether the routine has finished or been stopped.
func (r *Routine) Done() bool {
	return r.ended
}

func (r *Routine) Trajectory() *trajectory.Trajectory {
	return r.traj
}

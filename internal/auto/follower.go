// Package auto runs the autonomous trajectory following routine.
package auto

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/Speshl/gorrc_robot/internal/command"
	"github.com/Speshl/gorrc_robot/internal/control"
	"github.com/Speshl/gorrc_robot/internal/trajectory"
)

var ErrFeedbackUnavailable = errors.New("feedback unavailable")

type PoseSource interface {
	Pose() (trajectory.Pose, bool)
}

type WheelSpeedSource interface {
	WheelSpeeds() (control.WheelSpeeds, bool)
}

// Drivetrain is what the follower needs from the drive subsystem.
type Drivetrain interface {
	PoseSource
	WheelSpeedSource
	Subsystem() *command.Subsystem
	TankDriveVolts(left, right float64) error
}

type FollowerConfig struct {
	Ramsete          control.Ramsete
	Feedforward      control.SimpleMotorFeedforward
	Kinematics       control.DifferentialDriveKinematics
	LeftPID          control.PIDConfig
	RightPID         control.PIDConfig
	MaxOutputVoltage float64
}

// Output is the last voltage split emitted by the follower.
type Output struct {
	LeftFF  float64
	RightFF float64
	LeftFB  float64
	RightFB float64
	Left    float64
	Right   float64
}

// Follower tracks a trajectory with Ramsete, then per wheel feed-forward
// plus PID. It emits zero once when the trajectory ends or it is interrupted.
type Follower struct {
	cfg   FollowerConfig
	traj  *trajectory.Trajectory
	drive Drivetrain
	clk   clock.Clock

	leftPID  *control.PIDController
	rightPID *control.PIDController

	start      time.Time
	prevTime   float64
	prevSpeeds control.WheelSpeeds
	last       Output
	misses     int
	stopped    bool
	done       bool
	err        error
}

func NewFollower(traj *trajectory.Trajectory, drive Drivetrain, cfg FollowerConfig, clk clock.Clock) *Follower {
	if clk == nil {
		clk = clock.New()
	}
	return &Follower{
		cfg:      cfg,
		traj:     traj,
		drive:    drive,
		clk:      clk,
		leftPID:  control.NewPIDController(cfg.LeftPID),
		rightPID: control.NewPIDController(cfg.RightPID),
	}
}

func (f *Follower) Name() string { return "follow_trajectory" }

func (f *Follower) Requirements() []*command.Subsystem {
	return []*command.Subsystem{f.drive.Subsystem()}
}

func (f *Follower) Interruptible() bool { return true }

// Initialize resets the time cursor, so a follower can be run again.
func (f *Follower) Initialize() error {
	f.start = f.clk.Now()
	f.prevTime = 0
	initial := f.traj.Sample(0)
	f.prevSpeeds = f.cfg.Kinematics.ToWheelSpeeds(control.ChassisSpeeds{
		Linear:  initial.Velocity,
		Angular: initial.AngularVelocity(),
	})
	f.leftPID.Reset()
	f.rightPID.Reset()
	f.last = Output{}
	f.misses = 0
	f.stopped = false
	f.done = false
	f.err = nil
	return nil
}

func (f *Follower) Execute() error {
	if f.done {
		return nil
	}

	elapsed := f.clk.Since(f.start).Seconds()
	if elapsed >= f.traj.TotalTime() {
		f.done = true
		return f.stop()
	}

	pose, poseOK := f.drive.Pose()
	speeds, speedsOK := f.drive.WheelSpeeds()
	if !poseOK || !speedsOK {
		f.misses++
		if f.misses > 1 {
			f.err = fmt.Errorf("%w: no pose or wheel speeds for %d cycles", ErrFeedbackUnavailable, f.misses)
			f.done = true
			return f.stop()
		}
		return f.emit(f.last.Left, f.last.Right)
	}
	f.misses = 0

	dt := elapsed - f.prevTime
	ref := f.traj.Sample(elapsed)
	target := f.cfg.Kinematics.ToWheelSpeeds(f.cfg.Ramsete.Calculate(pose, ref))

	var leftAccel, rightAccel float64
	if dt > 0 {
		leftAccel = (target.Left - f.prevSpeeds.Left) / dt
		rightAccel = (target.Right - f.prevSpeeds.Right) / dt
	}

	out := Output{
		LeftFF:  f.cfg.Feedforward.Calculate(target.Left, leftAccel),
		RightFF: f.cfg.Feedforward.Calculate(target.Right, rightAccel),
		LeftFB:  f.leftPID.Calculate(speeds.Left, target.Left, dt),
		RightFB: f.rightPID.Calculate(speeds.Right, target.Right, dt),
	}
	out.Left = control.Clamp(out.LeftFF+out.LeftFB, -f.cfg.MaxOutputVoltage, f.cfg.MaxOutputVoltage)
	out.Right = control.Clamp(out.RightFF+out.RightFB, -f.cfg.MaxOutputVoltage, f.cfg.MaxOutputVoltage)

	f.prevTime = elapsed
	f.prevSpeeds = target
	f.last = out
	return f.emit(out.Left, out.Right)
}

func (f *Follower) IsFinished() bool {
	return f.done
}

func (f *Follower) End(interrupted bool) error {
	f.done = true
	if interrupted {
		return f.stop()
	}
	return nil
}

// LastOutput is the most recent voltage split, for the dashboard.
func (f *Follower) LastOutput() Output {
	return f.last
}

// Err is set when the run was aborted for missing feedback.
func (f *Follower) Err() error {
	return f.err
}

func (f *Follower) emit(left, right float64) error {
	if err := f.drive.TankDriveVolts(left, right); err != nil {
		return fmt.Errorf("failed setting drive volts: %w", err)
	}
	return nil
}

func (f *Follower) stop() error {
	if f.stopped {
		return nil
	}
	f.stopped = true
	f.last.Left, f.last.Right = 0, 0
	return f.emit(0, 0)
}

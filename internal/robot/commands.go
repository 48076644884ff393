package robot

import (
	"fmt"
	"math"

	"github.com/Speshl/gorrc_robot/internal/auto"
	"github.com/Speshl/gorrc_robot/internal/command"
	"github.com/Speshl/gorrc_robot/internal/control"
	"github.com/Speshl/gorrc_robot/internal/trajectory"
)

const (
	PurgePower       = -0.5
	TurnToleranceDeg = 1.0
)

// Drive is arcade drive from two suppliers. A positive turn is clockwise,
// matching a stick pushed right.
func Drive(drive *Drivetrain, forward, turn func() float64) *command.Func {
	return &command.Func{
		CommandName: "drive",
		Reqs:        []*command.Subsystem{drive.Subsystem()},
		OnExecute: func() error {
			return drive.ArcadeDrive(forward(), -turn())
		},
		OnEnd: func(bool) error {
			return drive.Stop()
		},
	}
}

// RunIntake spins the intake in with the right trigger and out with the left.
func RunIntake(intake *Motor, left, right func() float64) *command.Func {
	return &command.Func{
		CommandName: "run_intake",
		Reqs:        []*command.Subsystem{intake.Subsystem()},
		OnExecute: func() error {
			return intake.Run(right() - left())
		},
		OnEnd: func(bool) error {
			return intake.Stop()
		},
	}
}

// RunStorage drives the belt from the triggers and each roller from a stick.
func RunStorage(storage *Storage, triggerLeft, triggerRight, top, bottom func() float64) *command.Func {
	return &command.Func{
		CommandName: "run_storage",
		Reqs:        []*command.Subsystem{storage.Subsystem()},
		OnExecute: func() error {
			return storage.Run(triggerRight()-triggerLeft(), top(), bottom())
		},
		OnEnd: func(bool) error {
			return storage.Stop()
		},
	}
}

// PurgeStorage runs everything in storage backwards until toggled off.
func PurgeStorage(storage *Storage) *command.Func {
	return &command.Func{
		CommandName: "purge_storage",
		Reqs:        []*command.Subsystem{storage.Subsystem()},
		OnExecute: func() error {
			return storage.Run(PurgePower, PurgePower, PurgePower)
		},
		OnEnd: func(bool) error {
			return storage.Stop()
		},
	}
}

// RunMotor holds a fixed power and stops the motor when it ends.
func RunMotor(name string, motor *Motor, power float64) *command.Func {
	return &command.Func{
		CommandName: name,
		Reqs:        []*command.Subsystem{motor.Subsystem()},
		OnExecute: func() error {
			return motor.Run(power)
		},
		OnEnd: func(bool) error {
			return motor.Stop()
		},
	}
}

func RunPivot(pivot *Motor, power float64) *command.Func {
	return RunMotor(fmt.Sprintf("run_pivot(%.2f)", power), pivot, power)
}

func RunClimber(climber *Motor, power float64) *command.Func {
	return RunMotor(fmt.Sprintf("run_climber(%.2f)", power), climber, power)
}

func RunShooter(shooter *Shooter, rpm float64) *command.Func {
	return &command.Func{
		CommandName: fmt.Sprintf("run_shooter(%.0f)", rpm),
		Reqs:        []*command.Subsystem{shooter.Subsystem()},
		OnExecute: func() error {
			return shooter.SetRPM(rpm)
		},
		OnEnd: func(bool) error {
			return shooter.SetRPM(0)
		},
	}
}

// Idle is a default that keeps a subsystem claimed without driving it.
func Idle(sub *command.Subsystem) *command.Func {
	return command.Run("idle_"+sub.Name(), nil, sub)
}

// PneumaticShift flips the gear shifter once.
func PneumaticShift(shifter *Toggler) *command.Func {
	return command.Instant("pneumatic_shift", shifter.Toggle, shifter.Subsystem())
}

// SwitchRelay flips the relay once.
func SwitchRelay(relay *Toggler) *command.Func {
	return command.Instant("switch_relay", relay.Toggle, relay.Subsystem())
}

// TurnToTarget turns in place until the heading points at the vision target.
// The target yaw in degrees, positive to the right, is read once when the
// command starts. A missing target reads as 0 so the command ends at once.
type TurnToTarget struct {
	drive     *Drivetrain
	kP        float64
	minOutput float64
	target    func() (float64, bool)
	publish   func(float64)

	goal    float64 // deg
	errDeg  float64
	started bool
}

func NewTurnToTarget(drive *Drivetrain, kP, minOutput float64, target func() (float64, bool), publish func(float64)) *TurnToTarget {
	return &TurnToTarget{
		drive:     drive,
		kP:        kP,
		minOutput: minOutput,
		target:    target,
		publish:   publish,
	}
}

func (t *TurnToTarget) Name() string { return "turn_to_target" }

func (t *TurnToTarget) Requirements() []*command.Subsystem {
	return []*command.Subsystem{t.drive.Subsystem()}
}

func (t *TurnToTarget) Interruptible() bool { return true }

func (t *TurnToTarget) Initialize() error {
	heading, err := t.heading()
	if err != nil {
		return err
	}

	yaw := 0.0
	if t.target != nil {
		if value, ok := t.target(); ok {
			yaw = value
		}
	}
	t.goal = heading - yaw
	t.errDeg = yaw
	t.started = true
	return nil
}

func (t *TurnToTarget) Execute() error {
	heading, err := t.heading()
	if err != nil {
		return err
	}
	t.errDeg = normalizeDegrees(t.goal - heading)

	output := 0.0
	if math.Abs(t.errDeg) >= TurnToleranceDeg {
		output = t.kP*t.errDeg + math.Copysign(t.minOutput, t.errDeg)
	}
	output = control.Clamp(output, -1, 1)
	if t.publish != nil {
		t.publish(output)
	}
	return t.drive.ArcadeDrive(0, output)
}

func (t *TurnToTarget) IsFinished() bool {
	return t.started && math.Abs(t.errDeg) < TurnToleranceDeg
}

func (t *TurnToTarget) End(bool) error {
	t.started = false
	return t.drive.Stop()
}

// ErrDegrees is the remaining heading error.
func (t *TurnToTarget) ErrDegrees() float64 {
	return t.errDeg
}

func (t *TurnToTarget) heading() (float64, error) {
	pose, ok := t.drive.Pose()
	if !ok {
		return 0, fmt.Errorf("%w: no heading to turn with", auto.ErrFeedbackUnavailable)
	}
	return pose.Heading * 180 / math.Pi, nil
}

func normalizeDegrees(deg float64) float64 {
	return trajectory.NormalizeAngle(deg*math.Pi/180) * 180 / math.Pi
}

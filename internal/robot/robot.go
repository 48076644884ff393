// Package robot wires subsystems, default commands, operator bindings and the
// autonomous routine onto one command scheduler.
package robot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"go.uber.org/multierr"

	"github.com/Speshl/gorrc_robot/internal/actuator"
	"github.com/Speshl/gorrc_robot/internal/auto"
	"github.com/Speshl/gorrc_robot/internal/command"
	"github.com/Speshl/gorrc_robot/internal/config"
	"github.com/Speshl/gorrc_robot/internal/control"
	"github.com/Speshl/gorrc_robot/internal/input"
	"github.com/Speshl/gorrc_robot/internal/trajectory"
)

type Mode string

const (
	ModeDisabled   Mode = "disabled"
	ModeTeleop     Mode = "teleop"
	ModeAutonomous Mode = "autonomous"

	PrimaryPad   = 0
	SecondaryPad = 1

	PivotPower   = 0.5
	ClimberPower = 0.5
	ShooterRPM   = 4800.0
	TurnKp       = 1.0 / 120.0

	modeQueueSize = 4
)

var ErrUnknownMode = errors.New("unknown mode")

// Autonomous path, start and end facing +x.
var (
	AutoStart     = trajectory.NewPose(0, 0, 0)
	AutoWaypoints = []r2.Point{{X: 1, Y: 1}, {X: 2, Y: -1}}
	AutoEnd       = trajectory.NewPose(3, 0, 0)
)

func ParseMode(mode string) (Mode, error) {
	switch Mode(mode) {
	case ModeDisabled, ModeTeleop, ModeAutonomous:
		return Mode(mode), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
}

// Hardware is what the robot drives and reads. Nil switches are simulated,
// and a nil pose source gives the drivetrain simulated odometry.
type Hardware struct {
	Driver      actuator.Driver
	Shifter     actuator.Switch
	Relay       actuator.Switch
	Pose        auto.PoseSource
	WheelSpeeds auto.WheelSpeedSource
	VisionYaw   func() (float64, bool)
}

type Robot struct {
	cfg       config.Config
	clk       clock.Clock
	driver    actuator.Driver
	scheduler *command.Scheduler
	dashboard *Dashboard

	inputs    input.Source
	primary   input.Gamepad
	secondary input.Gamepad

	drivetrain *Drivetrain
	sim        *SimOdometry
	intake     *Motor
	storage    *Storage
	pivot      *Motor
	climber    *Motor
	shooter    *Shooter
	shifter    *Toggler
	relay      *Toggler

	followerCfg   auto.FollowerConfig
	routine       *auto.Routine
	routineClosed bool
	turn          *TurnToTarget

	modeLock     sync.RWMutex
	mode         Mode
	autoStatus   string
	modeRequests chan Mode
}

func NewRobot(cfg config.Config, hw Hardware, inputs input.Source, metrics *command.Metrics, clk clock.Clock) (*Robot, error) {
	if hw.Driver == nil {
		return nil, fmt.Errorf("no actuator driver")
	}
	if cfg.DriveCfg.NominalVoltage <= 0 {
		return nil, fmt.Errorf("nominal voltage must be positive, got %.2f", cfg.DriveCfg.NominalVoltage)
	}
	if clk == nil {
		clk = clock.New()
	}
	if hw.Shifter == nil {
		hw.Shifter = &actuator.SimSwitch{}
	}
	if hw.Relay == nil {
		hw.Relay = &actuator.SimSwitch{}
	}

	drive := cfg.DriveCfg
	r := &Robot{
		cfg:       cfg,
		clk:       clk,
		driver:    hw.Driver,
		scheduler: command.NewScheduler(metrics),
		dashboard: NewDashboard(),
		inputs:    inputs,
		primary:   input.NewGamepad(inputs, PrimaryPad),
		secondary: input.NewGamepad(inputs, SecondaryPad),
		intake:    NewMotor("intake", hw.Driver, OutputIntake),
		storage:   NewStorage(hw.Driver),
		pivot:     NewMotor("pivot", hw.Driver, OutputPivot),
		climber:   NewMotor("climber", hw.Driver, OutputClimber),
		shooter:   NewShooter(hw.Driver, drive.ShooterMaxRPM),
		shifter:   NewToggler("shifter", hw.Shifter),
		relay:     NewToggler("relay", hw.Relay),
		followerCfg: auto.FollowerConfig{
			Ramsete:          control.Ramsete{B: drive.RamseteB, Zeta: drive.RamseteZeta},
			Feedforward:      control.SimpleMotorFeedforward{Ks: drive.Ks, Kv: drive.Kv, Ka: drive.Ka},
			Kinematics:       control.DifferentialDriveKinematics{TrackWidth: drive.TrackWidth},
			LeftPID:          control.PIDConfig{Kp: drive.LeftKp},
			RightPID:         control.PIDConfig{Kp: drive.RightKp},
			MaxOutputVoltage: drive.MaxOutputVoltage,
		},
		mode:         ModeDisabled,
		modeRequests: make(chan Mode, modeQueueSize),
	}

	if hw.Pose == nil {
		log.Println("no drive feedback, using simulated odometry")
		r.sim = NewSimOdometry(r.followerCfg.Feedforward, r.followerCfg.Kinematics, clk)
		r.drivetrain = NewSimDrivetrain(hw.Driver, drive.NominalVoltage, r.sim)
	} else {
		r.drivetrain = NewDrivetrain(hw.Driver, drive.NominalVoltage, hw.Pose, hw.WheelSpeeds)
	}
	r.turn = NewTurnToTarget(r.drivetrain, TurnKp, drive.Ks/drive.NominalVoltage, hw.VisionYaw,
		r.dashboard.Publisher("turn_output"))

	if err := r.configureDefaults(); err != nil {
		return nil, err
	}
	r.configureBindings()

	if err := r.scheduler.Validate(); err != nil {
		return nil, fmt.Errorf("robot is missing default commands: %w", err)
	}
	return r, nil
}

func (r *Robot) configureDefaults() error {
	ctrl := r.cfg.ControlCfg
	forward := input.NewGamepad(r.inputs, ctrl.DriveForwardPad).AxisFunc(ctrl.DriveForwardAxis, ctrl.DriveForwardScale)
	turn := input.NewGamepad(r.inputs, ctrl.DriveTurnPad).AxisFunc(ctrl.DriveTurnAxis, 1)

	var err error
	err = multierr.Append(err, r.scheduler.SetDefaultCommand(r.drivetrain.Subsystem(), Drive(r.drivetrain, forward, turn)))
	err = multierr.Append(err, r.scheduler.SetDefaultCommand(r.pivot.Subsystem(), RunPivot(r.pivot, r.cfg.DriveCfg.PivotHoldPower)))
	err = multierr.Append(err, r.scheduler.SetDefaultCommand(r.intake.Subsystem(),
		RunIntake(r.intake, r.primary.TriggerFunc(input.LeftTrigger), r.primary.TriggerFunc(input.RightTrigger))))
	err = multierr.Append(err, r.scheduler.SetDefaultCommand(r.storage.Subsystem(),
		RunStorage(r.storage,
			r.secondary.TriggerFunc(input.LeftTrigger), r.secondary.TriggerFunc(input.RightTrigger),
			r.secondary.AxisFunc(input.RightY, 1), r.secondary.AxisFunc(input.LeftY, 1))))

	for _, sub := range []*command.Subsystem{
		r.climber.Subsystem(), r.shooter.Subsystem(), r.shifter.Subsystem(), r.relay.Subsystem(),
	} {
		err = multierr.Append(err, r.scheduler.SetDefaultCommand(sub, Idle(sub)))
	}
	if err != nil {
		return fmt.Errorf("failed setting default commands: %w", err)
	}
	return nil
}

func (r *Robot) configureBindings() {
	p, s := r.primary, r.secondary

	r.scheduler.WhenPressed(p.ButtonFunc(input.ButtonA), PneumaticShift(r.shifter))
	r.scheduler.WhileHeld(p.ButtonFunc(input.BumperLeft), RunPivot(r.pivot, PivotPower))
	r.scheduler.WhileHeld(p.ButtonFunc(input.BumperRight), RunPivot(r.pivot, -PivotPower))
	r.scheduler.WhenPressed(p.ButtonFunc(input.ButtonX), SwitchRelay(r.relay))
	r.scheduler.WhenPressed(p.ButtonFunc(input.ButtonY), r.turn)

	r.scheduler.WhileHeld(s.ButtonFunc(input.ButtonX), RunShooter(r.shooter, ShooterRPM))
	r.scheduler.WhileHeld(s.ButtonFunc(input.ButtonA), RunClimber(r.climber, ClimberPower))
	r.scheduler.WhileHeld(s.ButtonFunc(input.ButtonB), RunClimber(r.climber, -ClimberPower))
	r.scheduler.Toggle(s.ButtonFunc(input.ButtonY), PurgeStorage(r.storage))
}

// Init brings up the actuator driver with everything off.
func (r *Robot) Init() error {
	if err := r.driver.Init(); err != nil {
		return fmt.Errorf("failed initializing actuator driver: %w", err)
	}
	return multierr.Combine(
		r.drivetrain.Stop(),
		r.intake.Stop(),
		r.storage.Stop(),
		r.pivot.Stop(),
		r.climber.Stop(),
		r.shooter.Stop(),
		r.shifter.Set(false),
		r.relay.Set(false),
	)
}

// Start runs the control loop until ctx is done.
func (r *Robot) Start(ctx context.Context) error {
	log.Printf("starting control loop every %s\n", r.cfg.ControlCfg.CyclePeriod)
	defer r.Stop()

	ticker := r.clk.Ticker(r.cfg.ControlCfg.CyclePeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("stopping control loop: %s\n", ctx.Err().Error())
			return ctx.Err()
		case <-ticker.C:
			r.RunCycle()
		}
	}
}

// Stop interrupts every command and stops the driver.
func (r *Robot) Stop() error {
	log.Println("stopping robot")
	r.scheduler.CancelAll()
	if err := r.driver.Stop(); err != nil {
		return fmt.Errorf("failed stopping actuator driver: %w", err)
	}
	return nil
}

// RequestMode queues a mode change for the control loop. Safe to call from
// any goroutine.
func (r *Robot) RequestMode(mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	select {
	case r.modeRequests <- mode:
		return nil
	default:
		return fmt.Errorf("mode queue full, dropped %s", mode)
	}
}

// RunCycle applies queued mode changes and runs one scheduler cycle unless
// disabled. Call it from the control loop only.
func (r *Robot) RunCycle() {
	for pending := true; pending; {
		select {
		case mode := <-r.modeRequests:
			if err := r.SetMode(mode); err != nil {
				log.Printf("failed switching to %s: %s\n", mode, err.Error())
			}
		default:
			pending = false
		}
	}

	if r.Mode() == ModeDisabled {
		return
	}
	r.scheduler.RunCycle()
	r.checkRoutine()
	r.publish()
}

// checkRoutine reports how the autonomous routine ended, once per run.
func (r *Robot) checkRoutine() {
	if r.routine == nil || r.routineClosed || !r.routine.Done() {
		return
	}
	r.routineClosed = true

	status := "done"
	if err := r.routine.Err(); err != nil {
		log.Printf("autonomous aborted: %s\n", err.Error())
		status = "aborted: " + err.Error()
		r.dashboard.Put("auto_aborted", 1)
	}
	r.modeLock.Lock()
	r.autoStatus = status
	r.modeLock.Unlock()
}

// SetMode switches mode now. Entering autonomous builds the trajectory first;
// if that fails nothing moves and the mode is unchanged.
func (r *Robot) SetMode(mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	current := r.Mode()
	if mode == current {
		return nil
	}

	switch mode {
	case ModeDisabled:
		r.scheduler.CancelAll()
	case ModeTeleop:
		if r.routine != nil {
			r.scheduler.Cancel(r.routine)
		}
	case ModeAutonomous:
		routine, err := r.AutonomousCommand()
		if err != nil {
			return err
		}
		if r.sim != nil {
			r.sim.Reset(routine.Trajectory().InitialPose())
		}
		if err := r.scheduler.Schedule(routine); err != nil {
			return fmt.Errorf("failed scheduling autonomous: %w", err)
		}
		r.routine = routine
		r.routineClosed = false
		r.dashboard.Put("auto_aborted", 0)
		r.modeLock.Lock()
		r.autoStatus = "running"
		r.modeLock.Unlock()
	}

	r.checkRoutine()

	log.Printf("mode %s -> %s\n", current, mode)
	r.modeLock.Lock()
	r.mode = mode
	r.modeLock.Unlock()
	return nil
}

// AutonomousCommand builds the autonomous routine for the configured drive.
func (r *Robot) AutonomousCommand() (*auto.Routine, error) {
	drive := r.cfg.DriveCfg
	return auto.BuildRoutine(AutoStart, AutoWaypoints, AutoEnd, auto.Limits{
		MaxVelocity:          drive.MaxVelocity,
		MaxAcceleration:      drive.MaxAcceleration,
		MaxConstraintVoltage: drive.ConstraintVoltage,
	}, r.drivetrain, r.followerCfg, r.clk)
}

func (r *Robot) publish() {
	if pose, ok := r.drivetrain.Pose(); ok {
		r.dashboard.Put("pose_x", pose.X)
		r.dashboard.Put("pose_y", pose.Y)
		r.dashboard.Put("heading_deg", pose.Heading*180/math.Pi)
	}
	if r.routine != nil {
		var out auto.Output
		if r.scheduler.IsScheduled(r.routine) {
			out = r.routine.LastOutput()
		}
		r.dashboard.Put("auto_left_volts", out.Left)
		r.dashboard.Put("auto_right_volts", out.Right)
	}
	r.dashboard.Put("shooter_rpm", r.shooter.TargetRPM())
}

// HudLines is the mode, the autonomous status once a routine has run, then
// every dashboard value.
func (r *Robot) HudLines() []string {
	lines := []string{"mode: " + string(r.Mode())}
	if status := r.AutoStatus(); status != "" {
		lines = append(lines, "auto: "+status)
	}
	return append(lines, r.dashboard.Lines()...)
}

// AutoStatus is "running", "done" or "aborted: <reason>" for the last
// routine, empty before the first.
func (r *Robot) AutoStatus() string {
	r.modeLock.RLock()
	defer r.modeLock.RUnlock()
	return r.autoStatus
}

func (r *Robot) Mode() Mode {
	r.modeLock.RLock()
	defer r.modeLock.RUnlock()
	return r.mode
}

func (r *Robot) Scheduler() *command.Scheduler {
	return r.scheduler
}

func (r *Robot) Dashboard() *Dashboard {
	return r.dashboard
}

func (r *Robot) Drivetrain() *Drivetrain {
	return r.drivetrain
}

// Routine is the last autonomous routine scheduled, nil before the first.
func (r *Robot) Routine() *auto.Routine {
	return r.routine
}

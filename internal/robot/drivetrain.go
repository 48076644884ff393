package robot

import (
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/Speshl/gorrc_robot/internal/actuator"
	"github.com/Speshl/gorrc_robot/internal/auto"
	"github.com/Speshl/gorrc_robot/internal/command"
	"github.com/Speshl/gorrc_robot/internal/control"
	"github.com/Speshl/gorrc_robot/internal/trajectory"
)

const (
	OutputDriveLeft  = "drive_left"
	OutputDriveRight = "drive_right"

	simStep = 5 * time.Millisecond
)

// Drivetrain is a differential drive commanded in volts. Pose and wheel
// speeds come from feedback, or from simulated odometry when none is wired.
type Drivetrain struct {
	sub     *command.Subsystem
	driver  actuator.Driver
	nominal float64

	pose   auto.PoseSource
	speeds auto.WheelSpeedSource
	sim    *SimOdometry
}

func NewDrivetrain(driver actuator.Driver, nominal float64, pose auto.PoseSource, speeds auto.WheelSpeedSource) *Drivetrain {
	return &Drivetrain{
		sub:     command.NewSubsystem("drivetrain"),
		driver:  driver,
		nominal: nominal,
		pose:    pose,
		speeds:  speeds,
	}
}

// NewSimDrivetrain integrates its own odometry from the commanded volts.
func NewSimDrivetrain(driver actuator.Driver, nominal float64, sim *SimOdometry) *Drivetrain {
	d := NewDrivetrain(driver, nominal, sim, sim)
	d.sim = sim
	return d
}

func (d *Drivetrain) Subsystem() *command.Subsystem {
	return d.sub
}

func (d *Drivetrain) Pose() (trajectory.Pose, bool) {
	if d.pose == nil {
		return trajectory.Pose{}, false
	}
	return d.pose.Pose()
}

func (d *Drivetrain) WheelSpeeds() (control.WheelSpeeds, bool) {
	if d.speeds == nil {
		return control.WheelSpeeds{}, false
	}
	return d.speeds.WheelSpeeds()
}

// TankDriveVolts sets each side in volts, clamped to the nominal voltage.
func (d *Drivetrain) TankDriveVolts(left, right float64) error {
	left = control.Clamp(left, -d.nominal, d.nominal)
	right = control.Clamp(right, -d.nominal, d.nominal)
	if d.sim != nil {
		d.sim.Apply(left, right)
	}
	return d.driver.SetMany([]actuator.Output{
		{Name: OutputDriveLeft, Value: left, Min: -d.nominal, Max: d.nominal},
		{Name: OutputDriveRight, Value: right, Min: -d.nominal, Max: d.nominal},
	})
}

// ArcadeDrive mixes forward and rotation power, rotation CCW positive.
func (d *Drivetrain) ArcadeDrive(forward, rotation float64) error {
	forward = control.Clamp(forward, actuator.MinOutput, actuator.MaxOutput)
	rotation = control.Clamp(rotation, actuator.MinOutput, actuator.MaxOutput)

	left := forward - rotation
	right := forward + rotation
	if scale := math.Max(math.Abs(left), math.Abs(right)); scale > 1 {
		left /= scale
		right /= scale
	}
	return d.TankDriveVolts(left*d.nominal, right*d.nominal)
}

func (d *Drivetrain) Stop() error {
	return d.TankDriveVolts(0, 0)
}

// SimOdometry models each side as a motor obeying the drive feed-forward,
// V = ks*sgn(v) + kv*v + ka*a, and integrates the resulting pose.
type SimOdometry struct {
	lock       sync.Mutex
	clk        clock.Clock
	ff         control.SimpleMotorFeedforward
	kinematics control.DifferentialDriveKinematics

	pose   trajectory.Pose
	speeds control.WheelSpeeds
	volts  [2]float64
	last   time.Time
}

func NewSimOdometry(ff control.SimpleMotorFeedforward, kinematics control.DifferentialDriveKinematics, clk clock.Clock) *SimOdometry {
	if clk == nil {
		clk = clock.New()
	}
	return &SimOdometry{
		clk:        clk,
		ff:         ff,
		kinematics: kinematics,
		last:       clk.Now(),
	}
}

// Apply advances the model to now and then holds the new volts.
func (s *SimOdometry) Apply(left, right float64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.advance()
	s.volts = [2]float64{left, right}
}

func (s *SimOdometry) Pose() (trajectory.Pose, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.advance()
	return s.pose, true
}

func (s *SimOdometry) WheelSpeeds() (control.WheelSpeeds, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.advance()
	return s.speeds, true
}

// Reset puts the robot at rest at pose.
func (s *SimOdometry) Reset(pose trajectory.Pose) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.pose = pose
	s.speeds = control.WheelSpeeds{}
	s.volts = [2]float64{}
	s.last = s.clk.Now()
}

func (s *SimOdometry) advance() {
	now := s.clk.Now()
	remaining := now.Sub(s.last)
	s.last = now
	for remaining > 0 {
		step := simStep
		if remaining < step {
			step = remaining
		}
		remaining -= step
		s.step(step.Seconds())
	}
}

func (s *SimOdometry) step(dt float64) {
	s.speeds.Left = s.wheel(s.speeds.Left, s.volts[0], dt)
	s.speeds.Right = s.wheel(s.speeds.Right, s.volts[1], dt)

	chassis := s.kinematics.ToChassisSpeeds(s.speeds)
	heading := s.pose.Heading + chassis.Angular*dt/2
	s.pose.X += chassis.Linear * math.Cos(heading) * dt
	s.pose.Y += chassis.Linear * math.Sin(heading) * dt
	s.pose.Heading = trajectory.NormalizeAngle(s.pose.Heading + chassis.Angular*dt)
}

func (s *SimOdometry) wheel(velocity, volts, dt float64) float64 {
	// static friction holds a stopped wheel
	if velocity == 0 && math.Abs(volts) <= s.ff.Ks {
		return 0
	}

	friction := s.ff.Ks
	if velocity < 0 || (velocity == 0 && volts < 0) {
		friction = -friction
	}
	if s.ff.Ka <= 0 {
		if s.ff.Kv <= 0 {
			return 0
		}
		return (volts - friction) / s.ff.Kv
	}

	next := velocity + (volts-friction-s.ff.Kv*velocity)/s.ff.Ka*dt
	if (velocity > 0 && next < 0) || (velocity < 0 && next > 0) {
		// friction stops the wheel, it does not reverse it
		return 0
	}
	return next
}

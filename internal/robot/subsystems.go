package robot

import (
	"fmt"
	"log"

	"github.com/Speshl/gorrc_robot/internal/actuator"
	"github.com/Speshl/gorrc_robot/internal/command"
)

const (
	OutputIntake        = "intake"
	OutputStorageBelt   = "storage_belt"
	OutputStorageTop    = "storage_top"
	OutputStorageBottom = "storage_bottom"
	OutputPivot         = "pivot"
	OutputClimber       = "climber"
	OutputShooter       = "shooter"
)

// Motor is a subsystem driving a single power output.
type Motor struct {
	sub    *command.Subsystem
	driver actuator.Driver
	output string
	power  float64
}

func NewMotor(name string, driver actuator.Driver, output string) *Motor {
	return &Motor{
		sub:    command.NewSubsystem(name),
		driver: driver,
		output: output,
	}
}

func (m *Motor) Subsystem() *command.Subsystem {
	return m.sub
}

func (m *Motor) Run(power float64) error {
	m.power = power
	return m.driver.Set(actuator.Power(m.output, power))
}

func (m *Motor) Power() float64 {
	return m.power
}

func (m *Motor) Stop() error {
	return m.Run(0)
}

// Storage moves game pieces between intake and shooter with a belt and two
// rollers.
type Storage struct {
	sub    *command.Subsystem
	driver actuator.Driver
}

func NewStorage(driver actuator.Driver) *Storage {
	return &Storage{
		sub:    command.NewSubsystem("storage"),
		driver: driver,
	}
}

func (s *Storage) Subsystem() *command.Subsystem {
	return s.sub
}

func (s *Storage) Run(belt, top, bottom float64) error {
	return s.driver.SetMany([]actuator.Output{
		actuator.Power(OutputStorageBelt, belt),
		actuator.Power(OutputStorageTop, top),
		actuator.Power(OutputStorageBottom, bottom),
	})
}

func (s *Storage) Stop() error {
	return s.Run(0, 0, 0)
}

// Shooter runs its flywheel open loop at a fraction of free speed.
type Shooter struct {
	*Motor
	maxRPM float64
	target float64
}

func NewShooter(driver actuator.Driver, maxRPM float64) *Shooter {
	return &Shooter{
		Motor:  NewMotor("shooter", driver, OutputShooter),
		maxRPM: maxRPM,
	}
}

func (s *Shooter) SetRPM(rpm float64) error {
	if s.maxRPM <= 0 {
		return fmt.Errorf("shooter max rpm must be positive, got %.1f", s.maxRPM)
	}
	s.target = rpm
	return s.Run(rpm / s.maxRPM)
}

func (s *Shooter) TargetRPM() float64 {
	return s.target
}

// Toggler is a subsystem over a binary output such as the gear shifter
// solenoid or the auxiliary relay.
type Toggler struct {
	sub  *command.Subsystem
	sw   actuator.Switch
	on   bool
	name string
}

func NewToggler(name string, sw actuator.Switch) *Toggler {
	return &Toggler{
		sub:  command.NewSubsystem(name),
		sw:   sw,
		name: name,
	}
}

func (t *Toggler) Subsystem() *command.Subsystem {
	return t.sub
}

func (t *Toggler) Set(on bool) error {
	if err := t.sw.Set(on); err != nil {
		return fmt.Errorf("failed setting %s: %w", t.name, err)
	}
	t.on = on
	return nil
}

func (t *Toggler) Toggle() error {
	log.Printf("%s switched %t\n", t.name, !t.on)
	return t.Set(!t.on)
}

func (t *Toggler) On() bool {
	return t.on
}

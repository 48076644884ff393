// Package command arbitrates which command owns each subsystem, one control
// cycle at a time.
package command

// Command is a unit of behavior that owns its required subsystems while it
// is active. The scheduler compares commands by identity, so implementations
// should be pointer types.
type Command interface {
	Name() string
	Requirements() []*Subsystem
	Interruptible() bool

	Initialize() error
	Execute() error
	IsFinished() bool
	// End releases side effects. interrupted is true when the command was
	// evicted, canceled or faulted rather than finishing on its own.
	End(interrupted bool) error
}

// Subsystem is a group of actuators scheduled as a unit.
type Subsystem struct {
	name string
}

func NewSubsystem(name string) *Subsystem {
	return &Subsystem{name: name}
}

func (s *Subsystem) Name() string {
	return s.name
}

func requires(cmd Command, sub *Subsystem) bool {
	for _, req := range cmd.Requirements() {
		if req == sub {
			return true
		}
	}
	return false
}

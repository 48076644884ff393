package command

import "fmt"

// BindingKind is how a trigger condition drives its command.
type BindingKind int

const (
	// WhenPressed schedules on the rising edge.
	WhenPressed BindingKind = iota
	// WhileHeld schedules on the rising edge and cancels on the falling edge.
	// While the condition stays true the command is scheduled again as soon
	// as only defaults hold its subsystems, e.g. after a refusal, an eviction
	// whose command was released, or finishing on its own.
	WhileHeld
	// Toggle alternates between scheduling and canceling on each rising edge.
	Toggle
)

func (k BindingKind) String() string {
	switch k {
	case WhenPressed:
		return "when_pressed"
	case WhileHeld:
		return "while_held"
	case Toggle:
		return "toggle"
	default:
		return fmt.Sprintf("binding(%d)", int(k))
	}
}

// Condition is polled once per cycle from RunCycle.
type Condition func() bool

// Binding ties a condition to a command. Bindings are polled in the order
// they were added.
type Binding struct {
	Kind      BindingKind
	Condition Condition
	Command   Command

	last bool
}

// Bind adds a trigger binding.
func (s *Scheduler) Bind(kind BindingKind, cond Condition, cmd Command) *Binding {
	b := &Binding{Kind: kind, Condition: cond, Command: cmd}
	s.bindings = append(s.bindings, b)
	return b
}

func (s *Scheduler) WhenPressed(cond Condition, cmd Command) *Binding {
	return s.Bind(WhenPressed, cond, cmd)
}

func (s *Scheduler) WhileHeld(cond Condition, cmd Command) *Binding {
	return s.Bind(WhileHeld, cond, cmd)
}

func (s *Scheduler) Toggle(cond Condition, cmd Command) *Binding {
	return s.Bind(Toggle, cond, cmd)
}

// poll samples the condition and queues the resulting requests.
func (s *Scheduler) poll(b *Binding) {
	pressed := false
	err := s.guard(b.Command, "trigger", func() error {
		pressed = b.Condition()
		return nil
	})
	if err != nil {
		pressed = false
	}

	rising := pressed && !b.last
	falling := !pressed && b.last
	b.last = pressed

	switch b.Kind {
	case WhenPressed:
		if rising {
			s.requests = append(s.requests, request{cmd: b.Command})
		}
	case WhileHeld:
		switch {
		case rising:
			s.requests = append(s.requests, request{cmd: b.Command})
		case falling:
			s.requests = append(s.requests, request{cmd: b.Command, cancel: true})
		case pressed:
			s.resumes = append(s.resumes, b.Command)
		}
	case Toggle:
		if rising {
			cancel := s.IsScheduled(b.Command) || s.pending(b.Command)
			s.requests = append(s.requests, request{cmd: b.Command, cancel: cancel})
		}
	}
}

// pending reports whether a schedule request for cmd is queued this cycle.
func (s *Scheduler) pending(cmd Command) bool {
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].cmd == cmd {
			return !s.requests[i].cancel
		}
	}
	return false
}

package command

// Func is a Command assembled from optional callbacks. A nil Finished never
// finishes, so the command runs until it is interrupted.
type Func struct {
	CommandName      string
	Reqs             []*Subsystem
	NonInterruptible bool

	OnInit    func() error
	OnExecute func() error
	Finished  func() bool
	OnEnd     func(interrupted bool) error
}

func (f *Func) Name() string               { return f.CommandName }
func (f *Func) Requirements() []*Subsystem { return f.Reqs }
func (f *Func) Interruptible() bool        { return !f.NonInterruptible }

func (f *Func) Initialize() error {
	if f.OnInit == nil {
		return nil
	}
	return f.OnInit()
}

func (f *Func) Execute() error {
	if f.OnExecute == nil {
		return nil
	}
	return f.OnExecute()
}

func (f *Func) IsFinished() bool {
	if f.Finished == nil {
		return false
	}
	return f.Finished()
}

func (f *Func) End(interrupted bool) error {
	if f.OnEnd == nil {
		return nil
	}
	return f.OnEnd(interrupted)
}

// Run executes fn every cycle until interrupted.
func Run(name string, fn func() error, reqs ...*Subsystem) *Func {
	return &Func{
		CommandName: name,
		Reqs:        reqs,
		OnExecute:   fn,
	}
}

// Instant runs fn once when initialized and finishes in the same cycle.
func Instant(name string, fn func() error, reqs ...*Subsystem) *Func {
	return &Func{
		CommandName: name,
		Reqs:        reqs,
		OnInit:      fn,
		Finished:    func() bool { return true },
	}
}

package command

import "errors"

// recorder counts lifecycle calls for assertions.
type recorder struct {
	name             string
	reqs             []*Subsystem
	nonInterruptible bool

	inits      int
	execs      int
	ends       int
	interrupts int

	done        bool
	execErr     error
	panicOnExec bool
}

func newRecorder(name string, reqs ...*Subsystem) *recorder {
	return &recorder{name: name, reqs: reqs}
}

func (r *recorder) Name() string               { return r.name }
func (r *recorder) Requirements() []*Subsystem { return r.reqs }
func (r *recorder) Interruptible() bool        { return !r.nonInterruptible }

func (r *recorder) Initialize() error {
	r.inits++
	return nil
}

func (r *recorder) Execute() error {
	r.execs++
	if r.panicOnExec {
		panic("boom")
	}
	return r.execErr
}

func (r *recorder) IsFinished() bool {
	return r.done
}

func (r *recorder) End(interrupted bool) error {
	r.ends++
	if interrupted {
		r.interrupts++
	}
	return nil
}

var errStep = errors.New("step failed")

// button is a settable trigger condition.
type button struct {
	pressed bool
}

func (b *button) get() bool {
	return b.pressed
}

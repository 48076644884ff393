package command

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

type active struct {
	cmd   Command
	life  *lifecycle
	runID uuid.UUID
}

type request struct {
	cmd    Command
	cancel bool
}

// Scheduler decides, once per cycle, which command owns each subsystem and
// steps every active command. It is not safe for concurrent use; RunCycle
// and every other method must be called from the control loop goroutine.
type Scheduler struct {
	metrics *Metrics

	subsystems []*Subsystem
	registered map[*Subsystem]bool
	defaults   map[*Subsystem]Command
	owners     map[*Subsystem]Command

	active   []*active
	byCmd    map[Command]*active
	bindings []*Binding
	requests []request
	resumes  []Command
}

// NewScheduler returns an empty scheduler. A nil metrics gets unregistered
// collectors.
func NewScheduler(metrics *Metrics) *Scheduler {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Scheduler{
		metrics:    metrics,
		registered: make(map[*Subsystem]bool),
		defaults:   make(map[*Subsystem]Command),
		owners:     make(map[*Subsystem]Command),
		byCmd:      make(map[Command]*active),
	}
}

// Register adds subsystems to the set checked by Validate and resolved to
// their defaults each cycle.
func (s *Scheduler) Register(subsystems ...*Subsystem) {
	for _, sub := range subsystems {
		if sub == nil || s.registered[sub] {
			continue
		}
		s.registered[sub] = true
		s.subsystems = append(s.subsystems, sub)
	}
}

func (s *Scheduler) Subsystems() []*Subsystem {
	return append([]*Subsystem(nil), s.subsystems...)
}

// SetDefaultCommand installs cmd as the fallback of sub. A default requires
// sub and nothing else, so a free subsystem can always start it. A previous
// default that is currently active is ended as finished first.
func (s *Scheduler) SetDefaultCommand(sub *Subsystem, cmd Command) error {
	if cmd == nil || !requires(cmd, sub) {
		return fmt.Errorf("%w: default of %s must require it", ErrInvalidDefaultCommand, sub.Name())
	}
	for _, req := range cmd.Requirements() {
		if req != sub {
			return fmt.Errorf("%w: default %s of %s also requires %s", ErrInvalidDefaultCommand, cmd.Name(), sub.Name(), req.Name())
		}
	}
	if !cmd.Interruptible() {
		return fmt.Errorf("%w: default %s of %s must be interruptible", ErrInvalidDefaultCommand, cmd.Name(), sub.Name())
	}

	s.Register(sub)
	if prev, ok := s.defaults[sub]; ok && prev != cmd {
		if run, isActive := s.byCmd[prev]; isActive {
			s.end(run, false)
		}
	}
	s.defaults[sub] = cmd
	return nil
}

func (s *Scheduler) DefaultCommand(sub *Subsystem) Command {
	return s.defaults[sub]
}

// Validate reports every registered subsystem without a default command.
func (s *Scheduler) Validate() error {
	var err error
	for _, sub := range s.subsystems {
		if _, ok := s.defaults[sub]; !ok {
			err = multierr.Append(err, fmt.Errorf("%w: %s", ErrMissingDefaultCommand, sub.Name()))
		}
	}
	return err
}

// Schedule activates cmd now, evicting interruptible holders of its
// subsystems. Scheduling an active command does nothing.
func (s *Scheduler) Schedule(cmd Command) error {
	err := s.schedule(cmd)
	if err != nil && errors.Is(err, ErrSchedulingConflict) {
		log.Printf("refused %s: %s\n", cmd.Name(), err.Error())
	}
	return err
}

// Cancel ends cmd as interrupted if it is active.
func (s *Scheduler) Cancel(cmd Command) {
	if run, ok := s.byCmd[cmd]; ok {
		s.end(run, true)
	}
}

// CancelAll interrupts every active command, defaults included.
func (s *Scheduler) CancelAll() {
	for _, run := range append([]*active(nil), s.active...) {
		s.end(run, true)
	}
}

func (s *Scheduler) IsScheduled(cmd Command) bool {
	_, ok := s.byCmd[cmd]
	return ok
}

// State is the lifecycle state of cmd, StateIdle when it is not active.
func (s *Scheduler) State(cmd Command) string {
	if run, ok := s.byCmd[cmd]; ok {
		return run.life.Current()
	}
	return StateIdle
}

// Owner is the command currently holding sub, nil if it is free.
func (s *Scheduler) Owner(sub *Subsystem) Command {
	return s.owners[sub]
}

// Active lists the active commands in activation order.
func (s *Scheduler) Active() []Command {
	cmds := make([]Command, 0, len(s.active))
	for _, run := range s.active {
		cmds = append(cmds, run.cmd)
	}
	return cmds
}

// RunCycle runs one control cycle. Trigger requests apply first, then held
// commands resume and free subsystems fall back to defaults. Every active
// command then executes once and finished ones retire.
func (s *Scheduler) RunCycle() {
	timer := prometheus.NewTimer(s.metrics.CycleDuration)
	defer timer.ObserveDuration()
	s.metrics.Cycles.Inc()

	for _, b := range s.bindings {
		s.poll(b)
	}

	requests := s.requests
	s.requests = nil
	for _, req := range requests {
		s.apply(req)
	}

	resumes := s.resumes
	s.resumes = nil
	for _, cmd := range resumes {
		s.resume(cmd)
	}

	s.activateDefaults()

	for _, run := range s.snapshot() {
		if !s.isCurrent(run) {
			continue
		}
		if err := run.life.fire(eventExecute); err != nil {
			log.Printf("lifecycle error for %s: %s\n", run.cmd.Name(), err.Error())
		}
		if err := s.guard(run.cmd, "execute", run.cmd.Execute); err != nil {
			s.end(run, true)
		}
	}

	for _, run := range s.snapshot() {
		if !s.isCurrent(run) {
			continue
		}
		finished := false
		err := s.guard(run.cmd, "finished", func() error {
			finished = run.cmd.IsFinished()
			return nil
		})
		switch {
		case err != nil:
			s.end(run, true)
		case finished:
			s.end(run, false)
		}
	}

	s.metrics.Active.Set(float64(len(s.active)))
}

func (s *Scheduler) apply(req request) {
	if req.cancel {
		s.Cancel(req.cmd)
		return
	}
	_ = s.Schedule(req.cmd)
}

// resume schedules a held command again when nothing but defaults stands in
// its way. A command that won its subsystems on a later edge keeps them.
func (s *Scheduler) resume(cmd Command) {
	if s.IsScheduled(cmd) {
		return
	}
	for _, req := range cmd.Requirements() {
		owner, held := s.owners[req]
		if held && !s.isDefault(owner) {
			return
		}
	}
	_ = s.Schedule(cmd)
}

func (s *Scheduler) isDefault(cmd Command) bool {
	for _, def := range s.defaults {
		if def == cmd {
			return true
		}
	}
	return false
}

func (s *Scheduler) schedule(cmd Command) error {
	if _, ok := s.byCmd[cmd]; ok {
		return nil
	}

	var incumbents []*active
	for _, req := range cmd.Requirements() {
		owner, held := s.owners[req]
		if !held {
			continue
		}
		if !owner.Interruptible() {
			s.metrics.Conflicts.WithLabelValues(cmd.Name()).Inc()
			return fmt.Errorf("%w: %s holds %s", ErrSchedulingConflict, owner.Name(), req.Name())
		}
		if run := s.byCmd[owner]; !containsRun(incumbents, run) {
			incumbents = append(incumbents, run)
		}
	}

	for _, run := range incumbents {
		s.end(run, true)
	}
	s.initialize(cmd)
	return nil
}

func (s *Scheduler) initialize(cmd Command) {
	s.Register(cmd.Requirements()...)

	run := &active{
		cmd:   cmd,
		life:  newLifecycle(s.observeTransition),
		runID: uuid.New(),
	}
	s.active = append(s.active, run)
	s.byCmd[cmd] = run
	for _, req := range cmd.Requirements() {
		s.owners[req] = cmd
	}

	if err := run.life.fire(eventSchedule); err != nil {
		log.Printf("lifecycle error for %s: %s\n", cmd.Name(), err.Error())
	}
	log.Printf("starting %s (run %s)\n", cmd.Name(), run.runID)
	if err := s.guard(cmd, "initialize", cmd.Initialize); err != nil {
		s.end(run, true)
	}
}

func (s *Scheduler) end(run *active, interrupted bool) {
	if !s.isCurrent(run) {
		return
	}
	if err := run.life.fire(eventEnd); err != nil {
		log.Printf("lifecycle error for %s: %s\n", run.cmd.Name(), err.Error())
	}
	_ = s.guard(run.cmd, "end", func() error {
		return run.cmd.End(interrupted)
	})

	delete(s.byCmd, run.cmd)
	for i := range s.active {
		if s.active[i] == run {
			s.active = append(s.active[:i], s.active[i+1:]...)
			break
		}
	}
	for sub, owner := range s.owners {
		if owner == run.cmd {
			delete(s.owners, sub)
		}
	}

	if err := run.life.fire(eventRelease); err != nil {
		log.Printf("lifecycle error for %s: %s\n", run.cmd.Name(), err.Error())
	}
	if interrupted {
		log.Printf("interrupted %s (run %s)\n", run.cmd.Name(), run.runID)
	} else {
		log.Printf("finished %s (run %s)\n", run.cmd.Name(), run.runID)
	}
}

// activateDefaults starts the default of every free subsystem. Defaults
// never evict.
func (s *Scheduler) activateDefaults() {
	for _, sub := range s.subsystems {
		if _, held := s.owners[sub]; held {
			continue
		}
		if def, ok := s.defaults[sub]; ok {
			s.initialize(def)
		}
	}
}

// guard runs one command phase, turning errors and panics into a counted,
// logged fault.
func (s *Scheduler) guard(cmd Command, phase string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			s.metrics.Faults.WithLabelValues(cmd.Name(), phase).Inc()
			log.Printf("%s failed during %s: %s\n", cmd.Name(), phase, err.Error())
		}
	}()
	return fn()
}

func (s *Scheduler) observeTransition(state string) {
	s.metrics.Transitions.WithLabelValues(state).Inc()
}

func (s *Scheduler) snapshot() []*active {
	return append([]*active(nil), s.active...)
}

func (s *Scheduler) isCurrent(run *active) bool {
	current, ok := s.byCmd[run.cmd]
	return ok && current == run
}

func containsRun(runs []*active, run *active) bool {
	for _, r := range runs {
		if r == run {
			return true
		}
	}
	return false
}

package command

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func newTestScheduler(t *testing.T, subs ...*Subsystem) (*Scheduler, map[*Subsystem]*recorder) {
	t.Helper()
	s := NewScheduler(NewMetrics(prometheus.NewRegistry()))
	defaults := make(map[*Subsystem]*recorder)
	for _, sub := range subs {
		def := newRecorder(sub.Name()+"_default", sub)
		require.NoError(t, s.SetDefaultCommand(sub, def))
		defaults[sub] = def
	}
	require.NoError(t, s.Validate())
	return s, defaults
}

func TestDefaultCommandRunsWhenIdle(t *testing.T) {
	intake := NewSubsystem("intake")
	s, defaults := newTestScheduler(t, intake)

	s.RunCycle()
	s.RunCycle()

	def := defaults[intake]
	assert.Equal(t, 1, def.inits)
	assert.Equal(t, 2, def.execs)
	assert.Equal(t, Command(def), s.Owner(intake))
	assert.Equal(t, StateExecuting, s.State(def))
}

func TestValidateReportsEverySubsystem(t *testing.T) {
	s := NewScheduler(nil)
	s.Register(NewSubsystem("pivot"), NewSubsystem("climber"))

	err := s.Validate()
	require.ErrorIs(t, err, ErrMissingDefaultCommand)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Contains(t, err.Error(), "pivot")
	assert.Contains(t, err.Error(), "climber")
}

func TestSetDefaultCommandRejectsInvalid(t *testing.T) {
	s := NewScheduler(nil)
	pivot := NewSubsystem("pivot")
	other := NewSubsystem("other")

	err := s.SetDefaultCommand(pivot, newRecorder("wrong", other))
	assert.ErrorIs(t, err, ErrInvalidDefaultCommand)

	locked := newRecorder("locked", pivot)
	locked.nonInterruptible = true
	err = s.SetDefaultCommand(pivot, locked)
	assert.ErrorIs(t, err, ErrInvalidDefaultCommand)
}

func TestSetDefaultCommandEndsPreviousGracefully(t *testing.T) {
	pivot := NewSubsystem("pivot")
	s, defaults := newTestScheduler(t, pivot)
	s.RunCycle()

	next := newRecorder("hold", pivot)
	require.NoError(t, s.SetDefaultCommand(pivot, next))

	prev := defaults[pivot]
	assert.Equal(t, 1, prev.ends)
	assert.Equal(t, 0, prev.interrupts)
	assert.Nil(t, s.Owner(pivot))

	s.RunCycle()
	assert.Equal(t, Command(next), s.Owner(pivot))
	assert.Equal(t, 1, next.execs)
}

func TestScheduleEvictsDefaultAndFallsBack(t *testing.T) {
	pivot := NewSubsystem("pivot")
	s, defaults := newTestScheduler(t, pivot)
	def := defaults[pivot]
	s.RunCycle()

	raise := newRecorder("raise", pivot)
	require.NoError(t, s.Schedule(raise))
	assert.Equal(t, 1, def.interrupts)
	assert.Equal(t, StateInitialized, s.State(raise))

	s.RunCycle()
	assert.Equal(t, StateExecuting, s.State(raise))
	assert.Equal(t, 1, raise.execs)

	raise.done = true
	s.RunCycle()
	assert.Equal(t, 1, raise.ends)
	assert.Equal(t, 0, raise.interrupts)
	assert.Equal(t, StateIdle, s.State(raise))

	// default resumes and executes on the very next cycle
	execsBefore := def.execs
	s.RunCycle()
	assert.Equal(t, Command(def), s.Owner(pivot))
	assert.Equal(t, execsBefore+1, def.execs)
}

func TestScheduleActiveCommandIsNoop(t *testing.T) {
	shooter := NewSubsystem("shooter")
	s, _ := newTestScheduler(t, shooter)

	spin := newRecorder("spin", shooter)
	require.NoError(t, s.Schedule(spin))
	require.NoError(t, s.Schedule(spin))
	s.RunCycle()
	require.NoError(t, s.Schedule(spin))

	assert.Equal(t, 1, spin.inits)
	assert.Equal(t, 0, spin.ends)
}

func TestSchedulingConflict(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	s := NewScheduler(metrics)
	drive := NewSubsystem("drivetrain")
	require.NoError(t, s.SetDefaultCommand(drive, newRecorder("drive", drive)))

	a := newRecorder("a", drive)
	a.nonInterruptible = true
	require.NoError(t, s.Schedule(a))
	s.RunCycle()

	b := newRecorder("b", drive)
	err := s.Schedule(b)
	require.ErrorIs(t, err, ErrSchedulingConflict)

	s.RunCycle()
	assert.Equal(t, Command(a), s.Owner(drive))
	assert.Equal(t, 2, a.execs)
	assert.Equal(t, 0, a.ends)
	assert.Equal(t, 0, b.inits)
	assert.Equal(t, 0, b.execs)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Conflicts.WithLabelValues("b")))
}

func TestEvictionIsPerCommandNotPerSubsystem(t *testing.T) {
	left := NewSubsystem("left")
	right := NewSubsystem("right")
	s, defaults := newTestScheduler(t, left, right)
	s.RunCycle()

	both := newRecorder("both", left, right)
	require.NoError(t, s.Schedule(both))
	assert.Equal(t, 1, defaults[left].interrupts)
	assert.Equal(t, 1, defaults[right].interrupts)

	onlyLeft := newRecorder("only_left", left)
	require.NoError(t, s.Schedule(onlyLeft))
	assert.Equal(t, 1, both.interrupts)

	// right is free again and falls back to its default
	s.RunCycle()
	assert.Equal(t, Command(onlyLeft), s.Owner(left))
	assert.Equal(t, Command(defaults[right]), s.Owner(right))
}

func TestFaultIsolation(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	s := NewScheduler(metrics)
	intake := NewSubsystem("intake")
	storage := NewSubsystem("storage")
	intakeDefault := newRecorder("intake_default", intake)
	require.NoError(t, s.SetDefaultCommand(intake, intakeDefault))
	require.NoError(t, s.SetDefaultCommand(storage, newRecorder("storage_default", storage)))

	bad := newRecorder("bad", intake)
	bad.panicOnExec = true
	failing := newRecorder("failing", storage)
	failing.execErr = errStep
	healthy := newRecorder("healthy")

	require.NoError(t, s.Schedule(bad))
	require.NoError(t, s.Schedule(failing))
	require.NoError(t, s.Schedule(healthy))

	assert.NotPanics(t, s.RunCycle)
	assert.Equal(t, 1, healthy.execs)
	assert.Equal(t, 1, bad.interrupts)
	assert.Equal(t, 1, failing.interrupts)
	assert.False(t, s.IsScheduled(bad))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Faults.WithLabelValues("bad", "execute")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Faults.WithLabelValues("failing", "execute")))

	s.RunCycle()
	assert.Equal(t, Command(intakeDefault), s.Owner(intake))
	assert.Equal(t, 1, intakeDefault.execs)
}

func TestDefaultMustRequireOnlyItsSubsystem(t *testing.T) {
	intake := NewSubsystem("intake")
	storage := NewSubsystem("storage")
	s := NewScheduler(nil)

	feed := newRecorder("feed", intake, storage)
	err := s.SetDefaultCommand(intake, feed)
	require.ErrorIs(t, err, ErrInvalidDefaultCommand)
	assert.Contains(t, err.Error(), "storage")
	assert.Nil(t, s.DefaultCommand(intake))

	require.NoError(t, s.SetDefaultCommand(intake, newRecorder("intake_default", intake, intake)))
}

func TestOneActiveCommandPerSubsystem(t *testing.T) {
	drive := NewSubsystem("drivetrain")
	pivot := NewSubsystem("pivot")
	relay := NewSubsystem("relay")
	s, _ := newTestScheduler(t, drive, pivot, relay)

	up := &button{}
	down := &button{}
	s.WhileHeld(up.get, newRecorder("up", pivot))
	s.WhileHeld(down.get, newRecorder("down", pivot))
	s.Toggle(up.get, newRecorder("flip", relay))

	for i := 0; i < 40; i++ {
		up.pressed = i%3 == 0
		down.pressed = i%5 < 2
		s.RunCycle()

		for _, sub := range s.Subsystems() {
			owner := s.Owner(sub)
			require.NotNil(t, owner, "cycle %d: %s has no command", i, sub.Name())
		}
		holders := make(map[*Subsystem]int)
		for _, cmd := range s.Active() {
			for _, req := range cmd.Requirements() {
				holders[req]++
			}
		}
		for sub, n := range holders {
			require.Equal(t, 1, n, "cycle %d: %s held %d times", i, sub.Name(), n)
		}
	}
}

func TestCancelAll(t *testing.T) {
	drive := NewSubsystem("drivetrain")
	s, defaults := newTestScheduler(t, drive)
	s.RunCycle()

	s.CancelAll()
	assert.Empty(t, s.Active())
	assert.Equal(t, 1, defaults[drive].interrupts)
}

func TestFuncCommand(t *testing.T) {
	relay := NewSubsystem("relay")
	s, _ := newTestScheduler(t, relay)

	count := 0
	run := Run("count", func() error {
		count++
		return nil
	}, relay)
	assert.True(t, run.Interruptible())
	assert.False(t, run.IsFinished())

	require.NoError(t, s.Schedule(run))
	s.RunCycle()
	s.RunCycle()
	assert.Equal(t, 2, count)
}

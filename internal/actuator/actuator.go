// Package actuator is the boundary to motor controllers, servos and relays.
package actuator

import (
	"fmt"
	"sync"
)

const (
	MaxOutput = 1.0
	MinOutput = -1.0
)

// Output is one named actuator command. Value is interpreted within Min..Max,
// normally a power in [-1,1].
type Output struct {
	Name  string
	Value float64
	Min   float64
	Max   float64
}

func Power(name string, value float64) Output {
	return Output{
		Name:  name,
		Value: value,
		Min:   MinOutput,
		Max:   MaxOutput,
	}
}

type Driver interface {
	Init() error
	Set(Output) error
	SetMany([]Output) error
	Stop() error
}

// Switch is a binary output such as a relay or solenoid.
type Switch interface {
	Set(on bool) error
}

func MapToRange(value, min, max, minReturn, maxReturn float64) float64 {
	mappedValue := (maxReturn-minReturn)*(value-min)/(max-min) + minReturn

	if mappedValue > maxReturn {
		return maxReturn
	} else if mappedValue < minReturn {
		return minReturn
	} else {
		return mappedValue
	}
}

// SimDriver keeps outputs in memory. Used when no hardware is attached.
type SimDriver struct {
	lock    sync.RWMutex
	values  map[string]float64
	history map[string][]float64
	stopped bool
}

func NewSimDriver() *SimDriver {
	return &SimDriver{
		values:  make(map[string]float64),
		history: make(map[string][]float64),
	}
}

func (s *SimDriver) Init() error {
	return nil
}

func (s *SimDriver) Set(out Output) error {
	if out.Max <= out.Min {
		return fmt.Errorf("invalid range for %s: %.2f..%.2f", out.Name, out.Min, out.Max)
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	value := MapToRange(out.Value, out.Min, out.Max, out.Min, out.Max)
	s.values[out.Name] = value
	s.history[out.Name] = append(s.history[out.Name], value)
	return nil
}

func (s *SimDriver) SetMany(outs []Output) error {
	for i := range outs {
		err := s.Set(outs[i])
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *SimDriver) Stop() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.stopped = true
	return nil
}

func (s *SimDriver) Value(name string) float64 {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.values[name]
}

// History returns every value written to name, oldest first.
func (s *SimDriver) History(name string) []float64 {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return append([]float64(nil), s.history[name]...)
}

func (s *SimDriver) Stopped() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.stopped
}

// SimSwitch is an in-memory Switch.
type SimSwitch struct {
	lock sync.RWMutex
	on   bool
	sets int
}

func (s *SimSwitch) Set(on bool) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.on = on
	s.sets++
	return nil
}

func (s *SimSwitch) On() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.on
}

func (s *SimSwitch) Sets() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.sets
}

package robot

import (
	"fmt"
	"sort"
	"sync"
)

// Dashboard holds named values published by commands. Written from the
// control loop, read by the HUD sender.
type Dashboard struct {
	lock   sync.RWMutex
	values map[string]float64
}

func NewDashboard() *Dashboard {
	return &Dashboard{values: make(map[string]float64)}
}

func (d *Dashboard) Put(name string, value float64) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.values[name] = value
}

func (d *Dashboard) Get(name string) (float64, bool) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	value, ok := d.values[name]
	return value, ok
}

// Publisher returns a consumer that stores values under name.
func (d *Dashboard) Publisher(name string) func(float64) {
	return func(value float64) { d.Put(name, value) }
}

// Lines renders every value sorted by name.
func (d *Dashboard) Lines() []string {
	d.lock.RLock()
	defer d.lock.RUnlock()

	names := make([]string, 0, len(d.values))
	for name := range d.values {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s: %.2f", name, d.values[name]))
	}
	return lines
}

// Package input exposes operator gamepads as polled axes and buttons.
package input

import (
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/Speshl/gorrc_robot/internal/models"
)

const (
	MaxInput = 1.0
	MinInput = -1.0
)

// Source is polled once per control cycle.
type Source interface {
	Axis(device, axis int) float64
	Button(device, button int) bool
}

type seatState struct {
	state    models.ControlState
	lastTime time.Time
	active   bool
}

// Hub holds the latest control state of every operator seat. States are
// pushed from transport goroutines and read from the control loop.
type Hub struct {
	lock        sync.RWMutex
	clock       clock.Clock
	timeout     time.Duration
	buttonMasks []uint32
	seats       []seatState
}

func NewHub(seatCount int, timeout time.Duration, clk clock.Clock) *Hub {
	if clk == nil {
		clk = clock.New()
	}
	return &Hub{
		clock:       clk,
		timeout:     timeout,
		buttonMasks: BuildButtonMasks(),
		seats:       make([]seatState, seatCount),
	}
}

// Update stores a control state for its seat. Out of order states are dropped.
func (h *Hub) Update(state models.ControlState) {
	h.lock.Lock()
	defer h.lock.Unlock()

	if state.Seat < 0 || state.Seat >= len(h.seats) {
		log.Printf("control state for unsupported seat: %d\n", state.Seat)
		return
	}

	seat := &h.seats[state.Seat]
	if seat.active && state.TimeStamp < seat.state.TimeStamp {
		return
	}

	state.Buttons = ParseButtons(state.BitButton, h.buttonMasks)
	seat.state = state
	seat.lastTime = h.clock.Now()
	seat.active = true
}

// Active reports whether the seat has sent a state within the timeout.
func (h *Hub) Active(device int) bool {
	h.lock.RLock()
	defer h.lock.RUnlock()
	_, ok := h.current(device)
	return ok
}

func (h *Hub) Axis(device, axis int) float64 {
	h.lock.RLock()
	defer h.lock.RUnlock()

	state, ok := h.current(device)
	if !ok || axis < 0 || axis >= len(state.Axes) {
		return 0.0
	}
	return clamp(state.Axes[axis])
}

func (h *Hub) Button(device, button int) bool {
	h.lock.RLock()
	defer h.lock.RUnlock()

	state, ok := h.current(device)
	if !ok || button < 0 || button >= len(state.Buttons) {
		return false
	}
	return state.Buttons[button]
}

// current returns the seat state, or false when the seat is unknown or its
// last state is older than the timeout so callers read centered input.
func (h *Hub) current(device int) (models.ControlState, bool) {
	if device < 0 || device >= len(h.seats) {
		return models.ControlState{}, false
	}
	seat := h.seats[device]
	if !seat.active {
		return models.ControlState{}, false
	}
	if h.timeout > 0 && h.clock.Since(seat.lastTime) > h.timeout {
		return models.ControlState{}, false
	}
	return seat.state, true
}

func clamp(value float64) float64 {
	if value > MaxInput {
		return MaxInput
	} else if value < MinInput {
		return MinInput
	}
	return value
}

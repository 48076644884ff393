package pipwm

import (
	"fmt"
	"log"

	"github.com/stianeikeland/go-rpio/v4"
)

// Relay drives a relay or solenoid from a GPIO pin.
type Relay struct {
	pin rpio.Pin
}

func NewRelay(pin int) (*Relay, error) {
	err := rpio.Open()
	if err != nil {
		return nil, fmt.Errorf("failed opening rpio: %w", err)
	}

	r := &Relay{pin: rpio.Pin(pin)}
	r.pin.Output()
	r.pin.Low()
	log.Printf("relay added on pin %d\n", pin)
	return r, nil
}

func (r *Relay) Set(on bool) error {
	if on {
		r.pin.High()
	} else {
		r.pin.Low()
	}
	return nil
}

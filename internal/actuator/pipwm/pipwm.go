package pipwm

import (
	"fmt"
	"log"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/Speshl/gorrc_robot/internal/actuator"
	"github.com/Speshl/gorrc_robot/internal/config"
)

const (
	Frequency           = 100000
	CycleLength         = uint32(2000)
	MaxSupportedOutputs = 2
)

var PinMap = []int{12, 13} //Output0, Output1

// Driver uses the two hardware PWM pins of a Raspberry Pi.
type Driver struct {
	cfg     config.ActuatorConfig
	outputs map[string]Output
}

type Output struct {
	name     string
	inverted bool
	offset   float64
	pin      rpio.Pin
	maxValue uint32
	minValue uint32
}

func NewDriver(cfg config.ActuatorConfig) *Driver {
	return &Driver{
		cfg: cfg,
	}
}

func (d *Driver) Init() error {
	err := rpio.Open()
	if err != nil {
		return fmt.Errorf("failed opening rpio: %w", err)
	}

	outputs := make(map[string]Output, MaxSupportedOutputs)
	for i := range d.cfg.OutputCfgs {
		if i >= MaxSupportedOutputs {
			log.Printf("warning: pi pwm supports %d outputs, ignoring %s\n", MaxSupportedOutputs, d.cfg.OutputCfgs[i].Name)
			continue
		}

		name := d.cfg.OutputCfgs[i].Name
		outputs[name] = Output{
			name:     name,
			inverted: d.cfg.OutputCfgs[i].Inverted,
			offset:   float64(d.cfg.OutputCfgs[i].Offset) / 100,
			pin:      rpio.Pin(PinMap[i]),
			maxValue: uint32(d.cfg.OutputCfgs[i].MaxPulse),
			minValue: uint32(d.cfg.OutputCfgs[i].MinPulse),
		}
		outputs[name].pin.Mode(rpio.Pwm)
		outputs[name].pin.Freq(Frequency)
		log.Printf("pwm output added: %s\n", name)
	}
	d.outputs = outputs
	d.CenterAll()
	return nil
}

func (d *Driver) Stop() error {
	d.CenterAll()
	err := rpio.Close()
	if err != nil {
		return fmt.Errorf("failed closing rpio: %w", err)
	}
	return nil
}

func (d *Driver) CenterAll() {
	log.Println("centering all pwm outputs")
	for i := range d.outputs {
		midValue := (d.outputs[i].maxValue + d.outputs[i].minValue) / 2
		d.outputs[i].pin.DutyCycle(midValue, CycleLength)
	}
}

func (d *Driver) SetMany(outs []actuator.Output) error {
	for i := range outs {
		err := d.Set(outs[i])
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) Set(out actuator.Output) error {
	val, ok := d.outputs[out.Name]
	if !ok {
		return nil
	}

	mappedValue := DutyLength(val, out)
	val.pin.DutyCycle(mappedValue, CycleLength)
	return nil
}

// DutyLength maps an output value onto the pulse range of the pin.
func DutyLength(val Output, out actuator.Output) uint32 {
	mappedValue := actuator.MapToRange(out.Value+val.offset, out.Min, out.Max, float64(val.minValue), float64(val.maxValue))
	if val.inverted {
		mappedValue = float64(val.maxValue+val.minValue) - mappedValue
	}
	return uint32(mappedValue)
}

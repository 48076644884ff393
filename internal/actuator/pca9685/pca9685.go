package pca9685

import (
	"fmt"
	"log"

	"github.com/googolgl/go-i2c"
	"github.com/googolgl/go-pca9685"

	"github.com/Speshl/gorrc_robot/internal/actuator"
	"github.com/Speshl/gorrc_robot/internal/config"
)

const (
	MaxValue = 1.0
	MinValue = 0.0
	AcRange  = pca9685.ServoRangeDef

	MaxSupportedOutputs = 16
)

// Driver drives PWM motor controllers and servos from a PCA9685 board.
type Driver struct {
	cfg     config.ActuatorConfig
	outputs map[string]Output
	board   *pca9685.PCA9685
}

type Output struct {
	name     string
	inverted bool
	offset   float64
	servo    *pca9685.Servo
}

func NewDriver(cfg config.ActuatorConfig) *Driver {
	return &Driver{
		cfg: cfg,
	}
}

func (d *Driver) Init() error {
	i2c, err := i2c.New(d.cfg.Address, d.cfg.I2CDevice)
	if err != nil {
		return fmt.Errorf("error starting i2c with address - %w", err)
	}

	d.board, err = pca9685.New(i2c, nil)
	if err != nil {
		return fmt.Errorf("error getting pwm board - %w", err)
	}

	outputs := make(map[string]Output, MaxSupportedOutputs)
	for i := range d.cfg.OutputCfgs {
		if i >= MaxSupportedOutputs {
			break
		}
		name := d.cfg.OutputCfgs[i].Name
		outputs[name] = Output{
			name:     name,
			inverted: d.cfg.OutputCfgs[i].Inverted,
			offset:   float64(d.cfg.OutputCfgs[i].Offset) / 100,
			servo: d.board.ServoNew(d.cfg.OutputCfgs[i].Channel, &pca9685.ServOptions{
				AcRange:  AcRange,
				MinPulse: float32(d.cfg.OutputCfgs[i].MinPulse),
				MaxPulse: float32(d.cfg.OutputCfgs[i].MaxPulse),
			}),
		}
		log.Printf("pwm output added: %s\n", name)
	}
	d.outputs = outputs
	return d.CenterAll()
}

// CenterAll puts every output at neutral, which is stopped for a motor controller.
func (d *Driver) CenterAll() error {
	log.Println("centering all pwm outputs")
	for i := range d.outputs {
		err := d.outputs[i].servo.Fraction(0.5)
		if err != nil {
			return fmt.Errorf("failed centering %s: %w", d.outputs[i].name, err)
		}
	}
	return nil
}

func (d *Driver) Stop() error {
	log.Println("stopping pwm outputs")
	return d.CenterAll()
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

	mappedValue := actuator.MapToRange(out.Value+val.offset, out.Min, out.Max, MinValue, MaxValue)
	if val.inverted {
		mappedValue = MaxValue - mappedValue
	}

	err := val.servo.Fraction(float32(mappedValue))
	if err != nil {
		return fmt.Errorf("failed setting pwm value - name: %s value:  %.2f - error: %w", out.Name, mappedValue, err)
	}
	return nil
}

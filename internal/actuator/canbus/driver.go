// Package canbus drives motor controllers and reads robot feedback over
// SocketCAN.
package canbus

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"

	"github.com/Speshl/gorrc_robot/internal/actuator"
	"github.com/Speshl/gorrc_robot/internal/config"
)

const writeTimeout = 10 * time.Millisecond

// FrameWriter is satisfied by socketcan.Transmitter.
type FrameWriter interface {
	TransmitFrame(ctx context.Context, frame can.Frame) error
}

type output struct {
	id       uint32
	inverted bool
}

// Driver sends each named output as its own frame at base id + channel.
type Driver struct {
	cfg     config.ActuatorConfig
	conn    net.Conn
	writer  FrameWriter
	outputs map[string]output
	ignored map[string]bool
}

func NewDriver(cfg config.ActuatorConfig) *Driver {
	return &Driver{
		cfg:     cfg,
		outputs: make(map[string]output, len(cfg.OutputCfgs)),
		ignored: make(map[string]bool),
	}
}

// NewDriverWithWriter uses an already open writer, Init will not dial.
func NewDriverWithWriter(cfg config.ActuatorConfig, writer FrameWriter) *Driver {
	d := NewDriver(cfg)
	d.writer = writer
	return d
}

func (d *Driver) Init() error {
	if d.writer == nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		conn, err := socketcan.DialContext(ctx, "can", d.cfg.CANInterface)
		if err != nil {
			return fmt.Errorf("socketcan dial %s: %w", d.cfg.CANInterface, err)
		}
		d.conn = conn
		d.writer = socketcan.NewTransmitter(conn)
	}

	for i := range d.cfg.OutputCfgs {
		cfg := d.cfg.OutputCfgs[i]
		d.outputs[cfg.Name] = output{
			id:       d.cfg.CANBaseID + uint32(cfg.Channel),
			inverted: cfg.Inverted,
		}
		log.Printf("can output %s on id 0x%X\n", cfg.Name, d.cfg.CANBaseID+uint32(cfg.Channel))
	}
	return nil
}

// Set ignores outputs with no configured channel, like the PWM drivers.
func (d *Driver) Set(out actuator.Output) error {
	target, ok := d.outputs[out.Name]
	if !ok {
		if !d.ignored[out.Name] {
			d.ignored[out.Name] = true
			log.Printf("no can output named %s, ignoring it\n", out.Name)
		}
		return nil
	}
	if out.Max <= out.Min {
		return fmt.Errorf("invalid range for %s: %.2f..%.2f", out.Name, out.Min, out.Max)
	}

	value := actuator.MapToRange(out.Value, out.Min, out.Max, out.Min, out.Max)
	if target.inverted {
		value = -value
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := d.writer.TransmitFrame(ctx, EncodeOutput(target.id, value)); err != nil {
		return fmt.Errorf("failed sending %s: %w", out.Name, err)
	}
	return nil
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

// Stop sends zero to every output and closes the socket.
func (d *Driver) Stop() error {
	var firstErr error
	for name := range d.outputs {
		if err := d.Set(actuator.Power(name, 0)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if d.conn != nil {
		if err := d.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

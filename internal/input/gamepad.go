package input

// Axis indexes as sent by the operator client.
const (
	LeftX = iota
	LeftY
	RightX
	RightY
	LeftTrigger
	RightTrigger
)

// Button indexes as sent by the operator client.
const (
	ButtonA = iota
	ButtonB
	ButtonX
	ButtonY
	BumperLeft
	BumperRight
	ButtonBack
	ButtonStart
	LeftStick
	RightStick
)

const DeadZone = 0.05

// Gamepad reads one device of a Source.
type Gamepad struct {
	src    Source
	device int
}

func NewGamepad(src Source, device int) Gamepad {
	return Gamepad{src: src, device: device}
}

func (g Gamepad) Device() int {
	return g.device
}

func (g Gamepad) Axis(axis int) float64 {
	return GetValueWithMidDeadZone(g.src.Axis(g.device, axis), 0, DeadZone)
}

// Trigger reads a 0..1 trigger axis.
func (g Gamepad) Trigger(axis int) float64 {
	value := g.src.Axis(g.device, axis)
	if value < 0 {
		value = 0
	}
	return GetValueWithLowDeadZone(value, 0, DeadZone)
}

func (g Gamepad) Button(button int) bool {
	return g.src.Button(g.device, button)
}

// AxisFunc returns a supplier for an axis, scaled.
func (g Gamepad) AxisFunc(axis int, scale float64) func() float64 {
	return func() float64 { return g.Axis(axis) * scale }
}

func (g Gamepad) TriggerFunc(axis int) func() float64 {
	return func() float64 { return g.Trigger(axis) }
}

func (g Gamepad) ButtonFunc(button int) func() bool {
	return func() bool { return g.Button(button) }
}

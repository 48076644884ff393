package control

// PIDConfig holds the gains of one PID loop.
type PIDConfig struct {
	Kp            float64 `json:"kp"`
	Ki            float64 `json:"ki"`
	Kd            float64 `json:"kd"`
	IntegralLimit float64 `json:"integral_limit"` // 0 disables the limit
}

// PIDController is a discrete PID loop. The derivative term is skipped on the
// first update after a reset.
type PIDController struct {
	cfg PIDConfig

	// State
	integral    float64
	prevError   float64
	initialized bool
}

func NewPIDController(cfg PIDConfig) *PIDController {
	return &PIDController{cfg: cfg}
}

func (pid *PIDController) Reset() {
	pid.integral = 0.0
	pid.prevError = 0.0
	pid.initialized = false
}

// Calculate returns the correction driving measurement towards setpoint.
func (pid *PIDController) Calculate(measurement, setpoint, dt float64) float64 {
	err := setpoint - measurement

	p := pid.cfg.Kp * err

	if dt > 0 {
		pid.integral += err * dt
		if limit := pid.cfg.IntegralLimit; limit > 0 {
			pid.integral = Clamp(pid.integral, -limit, limit)
		}
	}
	i := pid.cfg.Ki * pid.integral

	var d float64
	if pid.initialized && dt > 0 {
		d = pid.cfg.Kd * (err - pid.prevError) / dt
	}

	pid.prevError = err
	pid.initialized = true
	return p + i + d
}

// PIDDiagnostics is the loop state for logging.
type PIDDiagnostics struct {
	Error    float64
	Integral float64
	P        float64
	I        float64
}

func (pid *PIDController) Diagnostics() PIDDiagnostics {
	return PIDDiagnostics{
		Error:    pid.prevError,
		Integral: pid.integral,
		P:        pid.cfg.Kp * pid.prevError,
		I:        pid.cfg.Ki * pid.integral,
	}
}

// Package control holds the drivetrain control laws: feed-forward, PID,
// differential kinematics and the Ramsete pose tracker.
package control

import "math"

// SimpleMotorFeedforward estimates the voltage needed for a wheel speed.
// Ks is in volts, Kv in V/(m/s) and Ka in V/(m/s^2).
type SimpleMotorFeedforward struct {
	Ks float64 `json:"ks"`
	Kv float64 `json:"kv"`
	Ka float64 `json:"ka"`
}

func (f SimpleMotorFeedforward) Calculate(velocity, acceleration float64) float64 {
	return f.Ks*sign(velocity) + f.Kv*velocity + f.Ka*acceleration
}

// MaxAchievableAcceleration is the largest acceleration reachable at velocity
// with maxVoltage applied.
func (f SimpleMotorFeedforward) MaxAchievableAcceleration(maxVoltage, velocity float64) float64 {
	return (maxVoltage - f.Ks*sign(velocity) - f.Kv*velocity) / f.Ka
}

func (f SimpleMotorFeedforward) MinAchievableAcceleration(maxVoltage, velocity float64) float64 {
	return f.MaxAchievableAcceleration(-maxVoltage, velocity)
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func Clamp(value, min, max float64) float64 {
	return math.Max(min, math.Min(max, value))
}

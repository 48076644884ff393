package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

func GetConfig() Config {
	cfg := Config{
		ServerCfg:   GetServerConfig(),
		ActuatorCfg: GetActuatorConfig(),
		RelayCfg:    GetRelayConfig(),
		ControlCfg:  GetControlConfig(),
		FeedbackCfg: GetFeedbackConfig(),
		DriveCfg:    GetDriveConfig(),
		LogCfg:      GetLogConfig(),
		MetricsCfg:  GetMetricsConfig(),
	}

	log.Printf("app Config: \n%+v\n", cfg)
	return cfg
}

func GetServerConfig() ServerConfig {
	return ServerConfig{
		Server:    GetStringEnv("SERVER", DefaultServer),
		Key:       GetStringEnv("ROBOTKEY", DefaultRobotKey),
		Password:  GetStringEnv("ROBOTPASSWORD", DefaultPassword),
		SeatCount: GetIntEnv("SEATCOUNT", DefaultSeatCount),
	}
}

func GetActuatorConfig() ActuatorConfig {
	actuatorCfg := ActuatorConfig{
		Driver:       GetStringEnv("ACTUATORDRIVER", DefaultActuatorDriver),
		Address:      DefaultAddress,
		I2CDevice:    GetStringEnv("I2CDEVICE", DefaultI2CDevice),
		CANInterface: GetStringEnv("CANINTERFACE", DefaultCANInterface),
		CANBaseID:    uint32(GetIntEnv("CANBASEID", DefaultCANBaseID)),
		OutputCfgs:   make([]OutputConfig, 0, MaxSupportedOutputs),
	}

	for i := 0; i < MaxSupportedOutputs; i++ {
		envPrefix := fmt.Sprintf("OUTPUT%d_", i)
		outputCfg := OutputConfig{
			Name:     GetStringEnv(envPrefix+"NAME", ""),
			Channel:  GetIntEnv(envPrefix+"CHANNEL", i),
			MaxPulse: float64(GetIntEnv(envPrefix+"MAXPULSE", DefaultMaxPulse)),
			MinPulse: float64(GetIntEnv(envPrefix+"MINPULSE", DefaultMinPulse)),
			Inverted: GetBoolEnv(envPrefix+"INVERTED", DefaultInverted),
			Offset:   GetIntEnv(envPrefix+"MIDOFFSET", DefaultOffset),
		}

		if outputCfg.Name != "" {
			log.Printf("found config for output: %s\n", outputCfg.Name)
			actuatorCfg.OutputCfgs = append(actuatorCfg.OutputCfgs, outputCfg)
		}
	}
	return actuatorCfg
}

func GetRelayConfig() RelayConfig {
	return RelayConfig{
		Enabled:    GetBoolEnv("RELAYENABLED", DefaultRelayEnabled),
		Pin:        GetIntEnv("RELAYPIN", DefaultRelayPin),
		ShifterPin: GetIntEnv("SHIFTERPIN", DefaultShifterPin),
	}
}

func GetControlConfig() ControlConfig {
	return ControlConfig{
		CyclePeriod:       GetDurationEnv("CYCLEPERIOD", DefaultCyclePeriod),
		SeatTimeout:       GetDurationEnv("SEATTIMEOUT", DefaultSeatTimeout),
		DriveForwardPad:   GetIntEnv("DRIVE_FORWARD_PAD", DefaultDriveForwardPad),
		DriveForwardAxis:  GetIntEnv("DRIVE_FORWARD_AXIS", DefaultDriveForwardAxis),
		DriveTurnPad:      GetIntEnv("DRIVE_TURN_PAD", DefaultDriveTurnPad),
		DriveTurnAxis:     GetIntEnv("DRIVE_TURN_AXIS", DefaultDriveTurnAxis),
		DriveForwardScale: GetFloatEnv("DRIVE_FORWARD_SCALE", DefaultDriveForwardScale),
	}
}

func GetFeedbackConfig() FeedbackConfig {
	envPrefix := "FEEDBACK_"
	return FeedbackConfig{
		Enabled:             GetBoolEnv(envPrefix+"ENABLED", DefaultFeedbackEnabled),
		CANInterface:        GetStringEnv(envPrefix+"CANINTERFACE", DefaultCANInterface),
		PoseFrameID:         uint32(GetIntEnv(envPrefix+"POSE_ID", DefaultPoseFrameID)),
		WheelSpeedFrameID:   uint32(GetIntEnv(envPrefix+"WHEELSPEED_ID", DefaultWheelSpeedFrameID)),
		StaleAfter:          GetDurationEnv(envPrefix+"STALE_AFTER", DefaultFeedbackStaleAfter),
		VisionYawFrameID:    uint32(GetIntEnv(envPrefix+"VISIONYAW_ID", DefaultVisionYawFrameID)),
		VisionYawStaleAfter: GetDurationEnv(envPrefix+"VISIONYAW_STALE_AFTER", DefaultVisionYawStaleAfter),
	}
}

func GetDriveConfig() DriveConfig {
	envPrefix := "DRIVE_"
	return DriveConfig{
		TrackWidth:        GetFloatEnv(envPrefix+"TRACKWIDTH", DefaultTrackWidth),
		Ks:                GetFloatEnv(envPrefix+"KS", DefaultKs),
		Kv:                GetFloatEnv(envPrefix+"KV", DefaultKv),
		Ka:                GetFloatEnv(envPrefix+"KA", DefaultKa),
		LeftKp:            GetFloatEnv(envPrefix+"LEFT_KP", DefaultLeftKp),
		RightKp:           GetFloatEnv(envPrefix+"RIGHT_KP", DefaultRightKp),
		RamseteB:          GetFloatEnv(envPrefix+"RAMSETE_B", DefaultRamseteB),
		RamseteZeta:       GetFloatEnv(envPrefix+"RAMSETE_ZETA", DefaultRamseteZeta),
		MaxVelocity:       GetFloatEnv(envPrefix+"MAX_VELOCITY", DefaultMaxVelocity),
		MaxAcceleration:   GetFloatEnv(envPrefix+"MAX_ACCELERATION", DefaultMaxAcceleration),
		ConstraintVoltage: GetFloatEnv(envPrefix+"CONSTRAINT_VOLTAGE", DefaultConstraintVoltage),
		MaxOutputVoltage:  GetFloatEnv(envPrefix+"MAX_OUTPUT_VOLTAGE", DefaultMaxOutputVoltage),
		NominalVoltage:    GetFloatEnv(envPrefix+"NOMINAL_VOLTAGE", DefaultNominalVoltage),
		ShooterMaxRPM:     GetFloatEnv("SHOOTER_MAX_RPM", DefaultShooterMaxRPM),
		PivotHoldPower:    GetFloatEnv("PIVOT_HOLD_POWER", DefaultPivotHoldPower),
	}
}

func GetLogConfig() LogConfig {
	return LogConfig{
		File:       GetStringEnv("LOGFILE", DefaultLogFile),
		MaxSizeMB:  GetIntEnv("LOGMAXSIZE", DefaultLogMaxSizeMB),
		MaxBackups: GetIntEnv("LOGMAXBACKUPS", DefaultLogMaxBackups),
	}
}

func GetMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Address: GetStringEnv("METRICSADDRESS", DefaultMetricsAddress),
	}
}

func GetIntEnv(env string, defaultValue int) int {
	envValue, found := os.LookupEnv(AppEnvBase + env)
	if !found {
		return defaultValue
	} else {
		value, err := strconv.ParseInt(strings.Trim(envValue, "\r"), 0, 32)
		if err != nil {
			log.Printf("warning:%s not parsed - error: %s\n", env, err)
			return defaultValue
		} else {
			return int(value)
		}
	}
}

func GetBoolEnv(env string, defaultValue bool) bool {
	envValue, found := os.LookupEnv(AppEnvBase + env)
	if !found {
		return defaultValue
	} else {
		value, err := strconv.ParseBool(strings.Trim(envValue, "\r"))
		if err != nil {
			log.Printf("warning:%s not parsed - error: %s\n", env, err)
			return defaultValue
		} else {
			return value
		}
	}
}

func GetStringEnv(env string, defaultValue string) string {
	envValue, found := os.LookupEnv(AppEnvBase + env)
	if !found {
		return defaultValue
	} else {
		return strings.ToLower(strings.Trim(envValue, "\r"))
	}
}

func GetFloatEnv(env string, defaultValue float64) float64 {
	envValue, found := os.LookupEnv(AppEnvBase + env)
	if !found {
		return defaultValue
	} else {
		value, err := strconv.ParseFloat(strings.Trim(envValue, "\r"), 64)
		if err != nil {
			log.Printf("warning:%s not parsed - error: %s\n", env, err)
			return defaultValue
		}
		return value
	}
}

func GetDurationEnv(env string, defaultValue time.Duration) time.Duration {
	envValue, found := os.LookupEnv(AppEnvBase + env)
	if !found {
		return defaultValue
	} else {
		value, err := time.ParseDuration(strings.Trim(envValue, "\r"))
		if err != nil {
			log.Printf("warning:%s not parsed - error: %s\n", env, err)
			return defaultValue
		}
		return value
	}
}

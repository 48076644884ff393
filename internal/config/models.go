package config

import "time"

const (
	MaxSupportedOutputs = 16
	AppEnvBase          = "GORRC_"

	DefaultServer    = "127.0.0.1:8181"
	DefaultRobotKey  = ""
	DefaultPassword  = ""
	DefaultSeatCount = 2

	// Default Output Options
	DefaultMaxPulse = 2250 //2000
	DefaultMinPulse = 750  //1000
	DefaultInverted = false
	DefaultOffset   = 0

	// Default Actuator Options
	DefaultActuatorDriver = "pca9685"
	DefaultAddress        = 0x40
	DefaultI2CDevice      = "/dev/i2c-1"
	DefaultCANInterface   = "can0"
	DefaultCANBaseID      = 0x200

	// Default Relay Options
	DefaultRelayEnabled = false
	DefaultRelayPin     = 17
	DefaultShifterPin   = 27

	// Default Control Loop Options
	DefaultCyclePeriod       = 20 * time.Millisecond
	DefaultSeatTimeout       = 200 * time.Millisecond
	DefaultDriveForwardPad   = 0
	DefaultDriveForwardAxis  = 1 // left stick Y
	DefaultDriveTurnPad      = 0
	DefaultDriveTurnAxis     = 2 // right stick X
	DefaultDriveForwardScale = -1.0

	// Default Feedback Options
	DefaultFeedbackEnabled     = false
	DefaultPoseFrameID         = 0x300
	DefaultWheelSpeedFrameID   = 0x301
	DefaultFeedbackStaleAfter  = 100 * time.Millisecond
	DefaultVisionYawFrameID    = 0x310
	DefaultVisionYawStaleAfter = 250 * time.Millisecond

	// Default Drivetrain Characterization
	DefaultTrackWidth        = 0.69  // m
	DefaultKs                = 0.22  // V
	DefaultKv                = 1.98  // V*s/m
	DefaultKa                = 0.2   // V*s^2/m
	DefaultLeftKp            = 8.5   // V/(m/s)
	DefaultRightKp           = 8.5   // V/(m/s)
	DefaultRamseteB          = 2.0   // rad^2/m^2
	DefaultRamseteZeta       = 0.7   // 1/rad
	DefaultMaxVelocity       = 1.5   // m/s, low gear
	DefaultMaxAcceleration   = 1.0   // m/s^2, low gear
	DefaultConstraintVoltage = 7.0   // V
	DefaultMaxOutputVoltage  = 12.0  // V
	DefaultNominalVoltage    = 12.0  // V
	DefaultShooterMaxRPM     = 5700. // free speed
	DefaultPivotHoldPower    = -0.05

	// Default Logging Options
	DefaultLogFile       = ""
	DefaultLogMaxSizeMB  = 10
	DefaultLogMaxBackups = 3

	// Default Metrics Options
	DefaultMetricsAddress = ""
)

type Config struct {
	ServerCfg   ServerConfig
	ActuatorCfg ActuatorConfig
	RelayCfg    RelayConfig
	ControlCfg  ControlConfig
	FeedbackCfg FeedbackConfig
	DriveCfg    DriveConfig
	LogCfg      LogConfig
	MetricsCfg  MetricsConfig
}

type ServerConfig struct {
	Server    string
	Key       string
	Password  string
	SeatCount int
}

type ActuatorConfig struct {
	Driver       string
	Address      byte
	I2CDevice    string
	CANInterface string
	CANBaseID    uint32
	OutputCfgs   []OutputConfig
}

type OutputConfig struct {
	Name     string
	Inverted bool
	Channel  int
	MaxPulse float64
	MinPulse float64
	Offset   int
}

type RelayConfig struct {
	Enabled    bool
	Pin        int
	ShifterPin int
}

type ControlConfig struct {
	CyclePeriod       time.Duration
	SeatTimeout       time.Duration
	DriveForwardPad   int
	DriveForwardAxis  int
	DriveTurnPad      int
	DriveTurnAxis     int
	DriveForwardScale float64
}

type FeedbackConfig struct {
	Enabled             bool
	CANInterface        string
	PoseFrameID         uint32
	WheelSpeedFrameID   uint32
	StaleAfter          time.Duration
	VisionYawFrameID    uint32
	VisionYawStaleAfter time.Duration
}

type DriveConfig struct {
	TrackWidth        float64
	Ks                float64
	Kv                float64
	Ka                float64
	LeftKp            float64
	RightKp           float64
	RamseteB          float64
	RamseteZeta       float64
	MaxVelocity       float64
	MaxAcceleration   float64
	ConstraintVoltage float64
	MaxOutputVoltage  float64
	NominalVoltage    float64
	ShooterMaxRPM     float64
	PivotHoldPower    float64
}

type LogConfig struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
}

type MetricsConfig struct {
	Address string
}

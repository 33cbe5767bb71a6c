package config

// Provider defines the interface for accessing configuration values.
// All values are immutable after loading unless Watch is used.
type Provider interface {
	// GetTargetFPS returns the frame rate the sampler aims for
	GetTargetFPS() int

	// GetMaxActiveAnimations returns the nominal admission ceiling
	GetMaxActiveAnimations() int

	// GetMemoryThresholdMB returns the memory threshold in megabytes
	GetMemoryThresholdMB() float64

	// IsGPUAccelerationEnabled returns whether layer promotion is allowed
	IsGPUAccelerationEnabled() bool

	// GetGPULayerCeiling returns the maximum concurrently composited layers
	GetGPULayerCeiling() int

	// IsMonitorMode returns whether monitor-only mode is enabled
	IsMonitorMode() bool

	// GetLogLevel returns the configured logging level
	GetLogLevel() string

	// IsTelemetryEnabled returns whether snapshot recording is enabled
	IsTelemetryEnabled() bool

	// GetTelemetryDBPath returns the path to the telemetry database
	GetTelemetryDBPath() string
}

func (c *Config) GetTargetFPS() int              { return c.TargetFPS }
func (c *Config) GetMaxActiveAnimations() int    { return c.MaxActiveAnimations }
func (c *Config) GetMemoryThresholdMB() float64  { return c.MemoryThresholdMB }
func (c *Config) IsGPUAccelerationEnabled() bool { return c.GPUAcceleration }
func (c *Config) GetGPULayerCeiling() int        { return c.GPULayerCeiling }
func (c *Config) IsMonitorMode() bool            { return c.Monitor }
func (c *Config) GetLogLevel() string            { return c.LogLevel }
func (c *Config) IsTelemetryEnabled() bool       { return c.Telemetry }
func (c *Config) GetTelemetryDBPath() string     { return c.TelemetryDB }

// LogLevel represents valid logging levels
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// IsValid returns whether the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		return true
	default:
		return false
	}
}

// String implements the Stringer interface
func (l LogLevel) String() string {
	return string(l)
}

package config

import (
	"os"
	"strings"

	"codeberg.org/vireo/motiongov/internal/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultTargetFPS          = 60
	DefaultMaxActive          = 12
	DefaultMemoryThresholdMB  = 120.0
	DefaultGPULayerCeiling    = 20
	DefaultObserverThreshold  = 0.1
	DefaultObserverRootMargin = "50px"
	DefaultLogLevel           = "info"

	envPrefix  = "MOTIONGOV"
	configName = "motiongov"
)

type Config struct {
	TargetFPS           int     `mapstructure:"target_fps"`
	MaxActiveAnimations int     `mapstructure:"max_active_animations"`
	MemoryThresholdMB   float64 `mapstructure:"memory_threshold_mb"`
	GPUAcceleration     bool    `mapstructure:"gpu_acceleration"`
	GPULayerCeiling     int     `mapstructure:"gpu_layer_ceiling"`
	ObserverThreshold   float64 `mapstructure:"observer_threshold"`
	ObserverRootMargin  string  `mapstructure:"observer_root_margin"`
	Monitor             bool    `mapstructure:"monitor"`
	LogLevel            string  `mapstructure:"log_level"`
	Telemetry           bool    `mapstructure:"telemetry"`
	TelemetryDB         string  `mapstructure:"database"`
	Debug               bool    `mapstructure:"debug"`
	Verbose             bool    `mapstructure:"verbose"`

	v *viper.Viper
}

// Load reads configuration from flags, environment and an optional TOML
// file. An explicit file path can be given via MOTIONGOV_CONFIG; otherwise
// motiongov.toml is searched in /etc and the working directory.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("target_fps", DefaultTargetFPS)
	v.SetDefault("max_active_animations", DefaultMaxActive)
	v.SetDefault("memory_threshold_mb", DefaultMemoryThresholdMB)
	v.SetDefault("gpu_acceleration", true)
	v.SetDefault("gpu_layer_ceiling", DefaultGPULayerCeiling)
	v.SetDefault("observer_threshold", DefaultObserverThreshold)
	v.SetDefault("observer_root_margin", DefaultObserverRootMargin)
	v.SetDefault("monitor", false)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("telemetry", false)
	v.SetDefault("database", "")
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flags := pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.Int("target-fps", DefaultTargetFPS, "Target frame rate")
	flags.Int("max-active-animations", DefaultMaxActive, "Maximum concurrently admitted animations")
	flags.Float64("memory-threshold-mb", DefaultMemoryThresholdMB, "Memory threshold in MB")
	flags.Bool("gpu-acceleration", true, "Allow GPU layer promotion")
	flags.Int("gpu-layer-ceiling", DefaultGPULayerCeiling, "Maximum concurrently composited layers")
	flags.Bool("monitor", false, "Only monitor and log performance state")
	flags.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	flags.Bool("telemetry", false, "Record performance snapshots to the telemetry database")
	flags.String("database", "", "Path to the telemetry database")
	flags.Bool("debug", false, "Enable debugging mode")
	flags.Bool("verbose", false, "Enable verbose logging")

	if err := flags.Parse(os.Args[1:]); err != nil && err != pflag.ErrHelp {
		return nil, errors.Wrap(errors.ErrBindFlags, err)
	}

	flags.Visit(func(f *pflag.Flag) {
		v.Set(strings.ReplaceAll(f.Name, "-", "_"), f.Value.String())
	})

	if path := os.Getenv(envPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(errors.ErrReadConfig, err).WithMessage("Failed to read config file")
		}
	}

	config := &Config{v: v}
	if err := v.Unmarshal(config); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the loaded configuration for out-of-range values.
func (c *Config) Validate() error {
	if !LogLevel(c.LogLevel).IsValid() {
		return errors.New(errors.ErrInvalidLogLevel).WithData(c.LogLevel)
	}
	if c.TargetFPS <= 0 {
		return errors.New(errors.ErrInvalidTargetFPS).WithData(c.TargetFPS)
	}
	if c.MaxActiveAnimations <= 0 {
		return errors.New(errors.ErrInvalidConfig).WithData(c.MaxActiveAnimations)
	}
	if c.MemoryThresholdMB < 0 {
		return errors.New(errors.ErrInvalidThreshold).WithData(c.MemoryThresholdMB)
	}
	if c.GPULayerCeiling <= 0 {
		return errors.New(errors.ErrInvalidCeiling).WithData(c.GPULayerCeiling)
	}
	if c.ObserverThreshold < 0 || c.ObserverThreshold > 1 {
		return errors.New(errors.ErrInvalidConfig).WithData(c.ObserverThreshold)
	}
	if c.Telemetry && c.TelemetryDB == "" {
		return errors.New(errors.ErrMissingConfig).WithMessage("telemetry enabled without database path")
	}

	return nil
}

// Watch registers a callback invoked with a freshly unmarshalled Config
// whenever the backing config file changes. Invalid updates are dropped.
func (c *Config) Watch(onChange func(*Config)) error {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return errors.New(errors.ErrWatchConfig).WithMessage("no config file to watch")
	}

	c.v.OnConfigChange(func(_ fsnotify.Event) {
		next := &Config{v: c.v}
		if err := c.v.Unmarshal(next); err != nil {
			return
		}
		if err := next.Validate(); err != nil {
			return
		}
		onChange(next)
	})
	c.v.WatchConfig()

	return nil
}

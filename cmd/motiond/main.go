package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/vireo/motiongov"
	"codeberg.org/vireo/motiongov/internal/config"
	"codeberg.org/vireo/motiongov/internal/logger"
)

const stateLogInterval = time.Second

var (
	cfg *config.Config
	gov *motiongov.Governor
)

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	applyLogLevel(cfg)
	logger.Debug().Msg("Config loaded")

	opts := []motiongov.Option{
		motiongov.WithSurface(motiongov.NewMemorySurface()),
		motiongov.WithMemoryReader(motiongov.RuntimeMemoryReader{}),
	}
	if cfg.Telemetry {
		opts = append(opts, motiongov.WithTelemetry(cfg.TelemetryDB))
	}

	gov, err = motiongov.New(governorConfig(cfg), opts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize governor")
	}
}

func main() {
	defer gov.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := cfg.Watch(func(next *config.Config) {
		applyLogLevel(next)
		logger.Info().Msg("Configuration reloaded")
	}); err != nil {
		logger.Debug().Err(err).Msg("config watch unavailable")
	}

	go gov.Run(ctx)

	if cfg.Monitor {
		logger.Info().Msg("Monitor mode activated. Logging performance state...")
	}

	loop(ctx)
	logger.Info().Msg("Exiting...")
}

func loop(ctx context.Context) {
	ticker := time.NewTicker(stateLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logState(gov.State())
		}
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func governorConfig(c *config.Config) motiongov.Config {
	gc := motiongov.DefaultConfig()
	gc.TargetFPS = c.TargetFPS
	gc.MaxActiveAnimations = c.MaxActiveAnimations
	gc.MemoryThresholdMB = c.MemoryThresholdMB
	gc.EnableGPUAcceleration = c.GPUAcceleration
	gc.GPULayerCeiling = c.GPULayerCeiling
	gc.ObserverDefaults = motiongov.ObserverOptions{
		Threshold:  c.ObserverThreshold,
		RootMargin: c.ObserverRootMargin,
	}

	return gc
}

func applyLogLevel(c *config.Config) {
	switch config.LogLevel(c.LogLevel) {
	case config.LogLevelDebug:
		logger.SetLogLevel(logger.DebugLevel)
	case config.LogLevelInfo:
		logger.SetLogLevel(logger.InfoLevel)
	case config.LogLevelWarning:
		logger.SetLogLevel(logger.WarnLevel)
	case config.LogLevelError:
		logger.SetLogLevel(logger.ErrorLevel)
	}
	if c.Debug {
		logger.SetLogLevel(logger.DebugLevel)
	} else if c.Verbose {
		logger.SetLogLevel(logger.InfoLevel)
	}
}

func logState(state motiongov.PerformanceState) {
	if cfg.Debug {
		logger.Debug().
			Int("fps", state.FPS).
			Float64("frame_time_ms", state.FrameTimeMs).
			Float64("memory_mb", state.MemoryUsageMB).
			Int("active_animations", state.ActiveAnimations).
			Int("active_layers", gov.ActiveLayerCount()).
			Int("target_fps", cfg.TargetFPS).
			Int("max_active_animations", cfg.MaxActiveAnimations).
			Float64("memory_threshold_mb", cfg.MemoryThresholdMB).
			Bool("is_optimal", state.IsOptimal).
			Bool("should_reduce", state.ShouldReduceAnimations).
			Bool("monitor", cfg.Monitor).
			Msg("")
	} else if cfg.Verbose || cfg.Monitor {
		logger.Info().
			Int("fps", state.FPS).
			Float64("frame_time_ms", state.FrameTimeMs).
			Float64("memory_mb", state.MemoryUsageMB).
			Int("active_animations", state.ActiveAnimations).
			Bool("is_optimal", state.IsOptimal).
			Bool("should_reduce", state.ShouldReduceAnimations).
			Msg("")
	}
}

package telemetry

import (
	"context"
	"time"
)

// Collector defines the core domain interface
type Collector interface {
	Record(ctx context.Context, snapshot *PerformanceSnapshot) error
	Close() error
}

// Repository defines the interface for snapshot storage
type Repository interface {
	Store(ctx context.Context, snapshot *PerformanceSnapshot) error
	Close() error
}

// PerformanceSnapshot represents one sampling-window observation
type PerformanceSnapshot struct {
	Timestamp        time.Time
	FPS              int
	FrameTimeMs      float64
	MemoryUsageMB    float64
	ActiveAnimations int
	ActiveLayers     int
	IsOptimal        bool
	ShouldReduce     bool
}

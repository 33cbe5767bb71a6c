package telemetry

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"codeberg.org/vireo/motiongov/internal/errors"
	"codeberg.org/vireo/motiongov/internal/logger"

	_ "github.com/mattn/go-sqlite3"
)

type sqliteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

func NewRepository(cfg Config) (Repository, error) {
	if cfg.DBPath == "" {
		return nil, errors.New(ErrInvalidDBPath)
	}

	logger.Debug().Msgf("Initializing telemetry repository at: %s", cfg.DBPath)

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errors.Wrap(ErrStorageInit, err)
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, errors.Wrap(ErrStorageInit, err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteRepository{
		db: db,
	}, nil
}

func (r *sqliteRepository) Store(ctx context.Context, snapshot *PerformanceSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `
        INSERT INTO performance (
            timestamp, fps, frame_time_ms, memory_usage_mb,
            active_animations, active_layers, is_optimal, should_reduce
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(timestamp) DO UPDATE SET
            fps = excluded.fps,
            frame_time_ms = excluded.frame_time_ms,
            memory_usage_mb = excluded.memory_usage_mb,
            active_animations = excluded.active_animations,
            active_layers = excluded.active_layers,
            is_optimal = excluded.is_optimal,
            should_reduce = excluded.should_reduce
    `,
		snapshot.Timestamp.Unix(),
		snapshot.FPS,
		snapshot.FrameTimeMs,
		snapshot.MemoryUsageMB,
		snapshot.ActiveAnimations,
		snapshot.ActiveLayers,
		boolToInt(snapshot.IsOptimal),
		boolToInt(snapshot.ShouldReduce),
	)
	if err != nil {
		return errors.Wrap(ErrStorageAccess, err)
	}

	return nil
}

func (r *sqliteRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.db.Close(); err != nil {
		return errors.Wrap(ErrStorageClose, err)
	}
	return nil
}

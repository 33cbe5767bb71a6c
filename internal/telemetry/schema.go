package telemetry

import (
	"database/sql"

	"codeberg.org/vireo/motiongov/internal/errors"
)

// initSchema initializes the database schema for performance snapshots
func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS performance (
            timestamp INTEGER PRIMARY KEY,
            fps INTEGER,
            frame_time_ms REAL,
            memory_usage_mb REAL,
            active_animations INTEGER,
            active_layers INTEGER,
            is_optimal INTEGER,
            should_reduce INTEGER
        )
    `)
	if err != nil {
		return errors.Wrap(ErrStorageInit, err)
	}

	return nil
}

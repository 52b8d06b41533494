package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/zgreco2000/hivqe-workbench/internal/database"
)

// HealthCheck verifies the job ledger database stays sound. The ledger is the
// only durable record of submitted remote work, so corruption here means
// orphaned catalog jobs.
type HealthCheck struct {
	db  *database.DB
	log zerolog.Logger
}

// NewHealthCheck creates a new health check job
func NewHealthCheck(db *database.DB, log zerolog.Logger) *HealthCheck {
	return &HealthCheck{
		db:  db,
		log: log.With().Str("job", "health_check").Logger(),
	}
}

// Name returns the job name
func (j *HealthCheck) Name() string {
	return "health_check"
}

// Run checks database integrity and truncates the WAL so it cannot grow
// unbounded between restarts.
func (j *HealthCheck) Run() error {
	var result string
	if err := j.db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed to run: %w", err)
	}
	if result != "ok" {
		j.log.Error().Str("result", result).Msg("Database integrity check failed")
		return fmt.Errorf("database integrity check failed: %s", result)
	}

	var busy, logFrames, checkpointed int
	if err := j.db.QueryRow("PRAGMA wal_checkpoint(TRUNCATE)").Scan(&busy, &logFrames, &checkpointed); err != nil {
		return fmt.Errorf("wal checkpoint failed: %w", err)
	}
	if busy != 0 {
		j.log.Warn().Int("log_frames", logFrames).Msg("WAL checkpoint blocked by readers, will retry next run")
	}

	j.log.Debug().Msg("Health check passed")
	return nil
}

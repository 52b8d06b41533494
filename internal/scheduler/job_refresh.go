package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/zgreco2000/hivqe-workbench/internal/clients/hivqe"
	"github.com/zgreco2000/hivqe-workbench/internal/domain"
	"github.com/zgreco2000/hivqe-workbench/internal/events"
	"github.com/zgreco2000/hivqe-workbench/internal/modules/jobs"
)

// JobRefresh sweeps non-terminal ledger entries through the catalog service
// and folds the observed statuses back into the ledger. HTTP handlers then
// answer from the ledger instead of blocking a request on remote completion.
type JobRefresh struct {
	reader       hivqe.JobReader
	ledger       *jobs.Repository
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewJobRefresh creates a new job refresh job
func NewJobRefresh(reader hivqe.JobReader, ledger *jobs.Repository, eventManager *events.Manager, log zerolog.Logger) *JobRefresh {
	return &JobRefresh{
		reader:       reader,
		ledger:       ledger,
		eventManager: eventManager,
		log:          log.With().Str("job", "job_refresh").Logger(),
	}
}

// Name returns the job name
func (j *JobRefresh) Name() string {
	return "job_refresh"
}

// Run performs one refresh sweep. Status reads are idempotent; a job that
// cannot be reached this sweep is retried on the next one.
func (j *JobRefresh) Run() error {
	pending, err := j.ledger.GetPending()
	if err != nil {
		return fmt.Errorf("failed to list pending jobs: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	var failures int
	for _, entry := range pending {
		status, message, err := j.reader.Status(entry.JobID)
		if err != nil {
			j.log.Warn().Err(err).Str("job_id", entry.JobID).Msg("Status check failed")
			failures++
			continue
		}
		if status == entry.Status {
			continue
		}

		var energy *float64
		if status == domain.StatusDone {
			result, err := j.reader.Result(entry.JobID)
			if err != nil {
				j.log.Warn().Err(err).Str("job_id", entry.JobID).Msg("Result fetch failed")
				failures++
				continue
			}
			energy = &result.Energy

			j.eventManager.Emit(events.JobCompleted, "scheduler", map[string]interface{}{
				"job_id": entry.JobID, "batch_id": entry.BatchID, "key": entry.Key, "energy": result.Energy,
			})
		} else if status == domain.StatusFailed {
			j.eventManager.Emit(events.JobFailed, "scheduler", map[string]interface{}{
				"job_id": entry.JobID, "batch_id": entry.BatchID, "key": entry.Key, "message": message,
			})
		}

		if err := j.ledger.UpdateStatus(entry.JobID, status, energy, message); err != nil {
			j.log.Error().Err(err).Str("job_id", entry.JobID).Msg("Failed to update ledger")
			failures++
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d pending jobs could not be refreshed", failures, len(pending))
	}
	return nil
}

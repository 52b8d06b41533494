package hivqe

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/zgreco2000/hivqe-workbench/internal/domain"
)

// JobReader is the narrow read side of the catalog service: idempotent status
// checks plus result retrieval for DONE jobs. *Client satisfies it; tests
// substitute fakes.
type JobReader interface {
	Status(jobID string) (domain.JobStatus, string, error)
	Result(jobID string) (*domain.RunResult, error)
}

// Poller sweeps a set of remote jobs for status changes. It owns no
// scheduling policy beyond an interval; callers compose it into whatever
// concurrency model they want. A PENDING or RUNNING job may never complete,
// so every wait takes a context.
type Poller struct {
	reader   JobReader
	interval time.Duration
	log      zerolog.Logger
}

// NewPoller creates a poller that sweeps on the given interval.
func NewPoller(reader JobReader, interval time.Duration, log zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{
		reader:   reader,
		interval: interval,
		log:      log.With().Str("component", "poller").Logger(),
	}
}

// Sweep performs one non-blocking pass over jobIDs and returns a snapshot of
// each job's current state. DONE jobs get their energy attached. A transport
// error on one job is logged and leaves that job out of the snapshot; it
// never aborts the sweep.
func (p *Poller) Sweep(jobIDs []string) map[string]domain.RunResult {
	snapshot := make(map[string]domain.RunResult, len(jobIDs))

	for _, id := range jobIDs {
		status, message, err := p.reader.Status(id)
		if err != nil {
			p.log.Warn().Err(err).Str("job_id", id).Msg("Status check failed, will retry on next sweep")
			continue
		}

		result := domain.RunResult{JobID: id, Status: status, Message: message}
		if status == domain.StatusDone {
			res, err := p.reader.Result(id)
			if err != nil {
				p.log.Warn().Err(err).Str("job_id", id).Msg("Result fetch failed, will retry on next sweep")
				continue
			}
			result.Energy = res.Energy
		}
		snapshot[id] = result
	}

	return snapshot
}

// WaitAll polls until every job in jobIDs reaches a terminal status or ctx is
// done. onUpdate, if non-nil, fires once per job when it first turns
// terminal. The returned map holds the last observed state for every job,
// terminal or not, so partial completion is always distinguishable.
func (p *Poller) WaitAll(ctx context.Context, jobIDs []string, onUpdate func(domain.RunResult)) (map[string]domain.RunResult, error) {
	latest := make(map[string]domain.RunResult, len(jobIDs))
	settled := make(map[string]bool, len(jobIDs))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		pending := make([]string, 0, len(jobIDs))
		for _, id := range jobIDs {
			if !settled[id] {
				pending = append(pending, id)
			}
		}

		for id, result := range p.Sweep(pending) {
			latest[id] = result
			if result.Status.Terminal() {
				settled[id] = true
				if onUpdate != nil {
					onUpdate(result)
				}
			}
		}

		if len(settled) == len(jobIDs) {
			return latest, nil
		}

		select {
		case <-ctx.Done():
			return latest, ctx.Err()
		case <-ticker.C:
		}
	}
}

package convergence

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zgreco2000/hivqe-workbench/internal/clients/hivqe"
	"github.com/zgreco2000/hivqe-workbench/internal/domain"
	"github.com/zgreco2000/hivqe-workbench/internal/events"
	"github.com/zgreco2000/hivqe-workbench/internal/modules/jobs"
	"github.com/zgreco2000/hivqe-workbench/pkg/units"
)

// CatalogClient is the slice of the remote service the scanner needs.
type CatalogClient interface {
	Submit(req domain.RunRequest) (string, error)
	hivqe.JobReader
}

// ScanOptions are the per-scan knobs shared by every candidate in the batch.
// The molecule, controls, and backend stay fixed; only max_states varies.
type ScanOptions struct {
	Molecule           domain.MoleculeSpec   `json:"molecule"`
	Controls           domain.SolverControls `json:"controls"`
	Backend            string                `json:"backend"`
	UseSession         bool                  `json:"use_session"`
	MaxExpansionStates int                   `json:"max_expansion_states"`
}

// Scanner sweeps max_states candidates over a fixed geometry to find the
// smallest subspace that reaches chemical accuracy against an exact
// reference.
type Scanner struct {
	client       CatalogClient
	ledger       *jobs.Repository
	eventManager *events.Manager
	pollInterval time.Duration
	log          zerolog.Logger
}

// NewScanner creates a new convergence scanner
func NewScanner(
	client CatalogClient,
	ledger *jobs.Repository,
	eventManager *events.Manager,
	pollInterval time.Duration,
	log zerolog.Logger,
) *Scanner {
	return &Scanner{
		client:       client,
		ledger:       ledger,
		eventManager: eventManager,
		pollInterval: pollInterval,
		log:          log.With().Str("service", "convergence").Logger(),
	}
}

// validate fails fast on a bad batch before any remote submission.
// Duplicate candidates are rejected outright: each ledger key must be written
// at most once per batch, otherwise results are ambiguous.
func (s *Scanner) validate(opts ScanOptions, candidates []int) error {
	if len(candidates) == 0 {
		return &domain.ConfigurationError{Field: "candidates", Reason: "candidate list is empty"}
	}
	seen := make(map[int]bool, len(candidates))
	for _, c := range candidates {
		if c <= 0 {
			return &domain.ConfigurationError{Field: "candidates", Reason: fmt.Sprintf("max_states candidate %d is not positive", c)}
		}
		if seen[c] {
			return &domain.ConfigurationError{Field: "candidates", Reason: fmt.Sprintf("duplicate max_states candidate %d", c)}
		}
		seen[c] = true
	}

	// Validate the shared request shape once with the first candidate.
	probe := s.request(opts, candidates[0])
	return probe.Validate()
}

func (s *Scanner) request(opts ScanOptions, candidate int) domain.RunRequest {
	return domain.RunRequest{
		Molecule:           opts.Molecule,
		MaxStates:          candidate,
		MaxExpansionStates: opts.MaxExpansionStates,
		Controls:           opts.Controls,
		Backend:            opts.Backend,
		UseSession:         opts.UseSession,
	}
}

// SubmitBatch validates and submits one job per candidate, records each in
// the ledger, and returns the batch ID without waiting for completion. The
// background refresh job moves the ledger forward; Snapshot reassembles the
// record at any time.
func (s *Scanner) SubmitBatch(opts ScanOptions, candidates []int) (string, error) {
	if err := s.validate(opts, candidates); err != nil {
		return "", err
	}

	batchID := uuid.New().String()
	s.eventManager.Emit(events.ScanStarted, "convergence", map[string]interface{}{
		"batch_id":   batchID,
		"candidates": candidates,
	})

	for _, c := range candidates {
		jobID, err := s.client.Submit(s.request(opts, c))
		if err != nil {
			// Siblings already submitted stay owned by the remote service;
			// the batch is surfaced as failed before it is usable.
			return "", fmt.Errorf("failed to submit candidate %d: %w", c, err)
		}

		entry := jobs.Entry{
			JobID:   jobID,
			BatchID: batchID,
			Kind:    jobs.KindScan,
			Key:     strconv.Itoa(c),
			Status:  domain.StatusPending,
		}
		if err := s.ledger.Record(entry); err != nil {
			return "", fmt.Errorf("failed to record candidate %d: %w", c, err)
		}
	}

	s.log.Info().
		Str("batch_id", batchID).
		Int("candidates", len(candidates)).
		Msg("Convergence scan submitted")

	return batchID, nil
}

// Scan runs the full sweep synchronously: submit every candidate, poll until
// all jobs are terminal or ctx is done, and return the collected record. On
// ctx cancellation the partial record is returned alongside the error; the
// ledger keeps tracking the stragglers.
func (s *Scanner) Scan(ctx context.Context, opts ScanOptions, candidates []int) (*Record, error) {
	batchID, err := s.SubmitBatch(opts, candidates)
	if err != nil {
		return nil, err
	}

	record, err := s.wait(ctx, batchID, candidates)
	if err != nil {
		return record, err
	}

	s.eventManager.Emit(events.ScanComplete, "convergence", map[string]interface{}{
		"batch_id": batchID,
	})
	return record, nil
}

func (s *Scanner) wait(ctx context.Context, batchID string, candidates []int) (*Record, error) {
	entries, err := s.ledger.GetByBatch(batchID)
	if err != nil {
		return nil, err
	}

	jobIDs := make([]string, 0, len(entries))
	byJob := make(map[string]int, len(entries))
	for _, e := range entries {
		c, err := strconv.Atoi(e.Key)
		if err != nil {
			return nil, fmt.Errorf("ledger entry %s has non-numeric scan key %q", e.JobID, e.Key)
		}
		jobIDs = append(jobIDs, e.JobID)
		byJob[e.JobID] = c
	}

	record := NewRecord(batchID, candidates)
	poller := hivqe.NewPoller(s.client, s.pollInterval, s.log)

	results, waitErr := poller.WaitAll(ctx, jobIDs, func(res domain.RunResult) {
		s.observe(record, byJob[res.JobID], res)
	})

	// Non-terminal observations from the last sweep still belong in the
	// record so callers see PENDING vs FAILED vs DONE.
	for jobID, res := range results {
		if !res.Status.Terminal() {
			record.Set(Entry{Candidate: byJob[jobID], JobID: jobID, Status: res.Status, Message: res.Message})
		}
	}

	return record, waitErr
}

// observe folds one terminal result into the record and the ledger.
func (s *Scanner) observe(record *Record, candidate int, res domain.RunResult) {
	entry := Entry{
		Candidate: candidate,
		JobID:     res.JobID,
		Status:    res.Status,
		Message:   res.Message,
	}

	var energy *float64
	if res.Status == domain.StatusDone {
		entry.Energy = res.Energy
		energy = &res.Energy
		s.eventManager.Emit(events.JobCompleted, "convergence", map[string]interface{}{
			"job_id": res.JobID, "candidate": candidate, "energy": res.Energy,
		})
	} else {
		s.eventManager.Emit(events.JobFailed, "convergence", map[string]interface{}{
			"job_id": res.JobID, "candidate": candidate, "message": res.Message,
		})
	}

	record.Set(entry)

	if err := s.ledger.UpdateStatus(res.JobID, res.Status, energy, res.Message); err != nil {
		s.log.Error().Err(err).Str("job_id", res.JobID).Msg("Failed to update ledger")
	}
}

// Snapshot reassembles the current record for a batch from the ledger. Safe
// to call at any point; the record may be incomplete.
func (s *Scanner) Snapshot(batchID string) (*Record, error) {
	entries, err := s.ledger.GetByBatch(batchID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("unknown batch %s", batchID)
	}

	candidates := make([]int, 0, len(entries))
	record := NewRecord(batchID, nil)
	for _, e := range entries {
		if e.Kind != jobs.KindScan {
			return nil, fmt.Errorf("batch %s is not a convergence scan", batchID)
		}
		c, err := strconv.Atoi(e.Key)
		if err != nil {
			return nil, fmt.Errorf("ledger entry %s has non-numeric scan key %q", e.JobID, e.Key)
		}
		candidates = append(candidates, c)

		entry := Entry{Candidate: c, JobID: e.JobID, Status: e.Status, Message: e.Message}
		if e.Energy != nil {
			entry.Energy = *e.Energy
		}
		record.Set(entry)
	}
	record.candidates = candidates

	return record, nil
}

// SelectWithin applies the chemical-accuracy selection rule to a complete
// record: the smallest candidate whose energy deviates from exact by strictly
// less than 1.6 mHa. Found is false when no candidate qualifies. An
// incomplete record returns IncompleteBatchError; a FAILED candidate simply
// cannot qualify.
func SelectWithin(record *Record, exact float64) (Selection, error) {
	energies, err := record.Energies()
	if err != nil {
		return Selection{}, err
	}

	for _, c := range record.sortedCandidates() {
		energy, ok := energies[c]
		if !ok {
			continue
		}
		if units.WithinChemicalAccuracy(energy, exact) {
			return Selection{
				Found:     true,
				Candidate: c,
				Energy:    energy,
				Deviation: math.Abs(energy - exact),
			}, nil
		}
	}

	return Selection{Found: false}, nil
}

package pes

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zgreco2000/hivqe-workbench/internal/clients/hivqe"
	"github.com/zgreco2000/hivqe-workbench/internal/domain"
	"github.com/zgreco2000/hivqe-workbench/internal/events"
	"github.com/zgreco2000/hivqe-workbench/internal/modules/jobs"
	"github.com/zgreco2000/hivqe-workbench/internal/modules/reference"
	"github.com/zgreco2000/hivqe-workbench/pkg/units"
)

// Mirror expands a half-sweep of a reflection-symmetric torsion coordinate
// into the full display sweep. For a half-sweep of length n the result has
// length 2n-1: every point except the turning point (the last element) is
// mirrored, the turning point appears exactly once, and the first element
// reappears at the far end. Labels and values stay index-aligned.
func Mirror(labels []string, values []float64) ([]string, []float64) {
	n := len(labels)
	if n == 0 {
		return []string{}, []float64{}
	}

	outLabels := make([]string, 0, 2*n-1)
	outValues := make([]float64, 0, 2*n-1)
	outLabels = append(outLabels, labels...)
	outValues = append(outValues, values...)
	for i := n - 2; i >= 0; i-- {
		outLabels = append(outLabels, labels[i])
		outValues = append(outValues, values[i])
	}
	return outLabels, outValues
}

// Assemble turns a checked energy table into the displayable profile: each
// source is rebased against its own minimum (shape comparison only, never a
// shared offset), converted to kcal/mol, and mirrored; the worst-case error
// comes from the raw approx vs exact columns.
func Assemble(table *EnergyTable) (*Profile, error) {
	if err := table.Check(); err != nil {
		return nil, err
	}
	if len(table.Labels) == 0 {
		return nil, &domain.ConfigurationError{Field: "labels", Reason: "structure sweep is empty"}
	}

	mkSeries := func(values map[string]float64) Series {
		labels, rel := Mirror(table.Labels, units.Relative(table.column(values)))
		return Series{Labels: labels, Values: rel}
	}

	return &Profile{
		Cheap:          mkSeries(table.Cheap),
		Exact:          mkSeries(table.Exact),
		Approx:         mkSeries(table.Approx),
		WorstCaseError: units.MaxDeviation(table.column(table.Approx), table.column(table.Exact)),
	}, nil
}

// SweepOptions are the per-sweep knobs shared by every structure.
type SweepOptions struct {
	Controls           domain.SolverControls `json:"controls"`
	Backend            string                `json:"backend"`
	UseSession         bool                  `json:"use_session"`
	MaxStates          int                   `json:"max_states"`
	MaxExpansionStates int                   `json:"max_expansion_states"`
}

// Assembler drives a torsion sweep end to end: one remote calculation per
// structure, joined against the reference table into a Profile.
type Assembler struct {
	client       convergenceClient
	ledger       *jobs.Repository
	eventManager *events.Manager
	pollInterval time.Duration
	log          zerolog.Logger
}

// convergenceClient matches the scanner's view of the catalog service.
type convergenceClient interface {
	Submit(req domain.RunRequest) (string, error)
	hivqe.JobReader
}

// NewAssembler creates a new PES assembler
func NewAssembler(
	client convergenceClient,
	ledger *jobs.Repository,
	eventManager *events.Manager,
	pollInterval time.Duration,
	log zerolog.Logger,
) *Assembler {
	return &Assembler{
		client:       client,
		ledger:       ledger,
		eventManager: eventManager,
		pollInterval: pollInterval,
		log:          log.With().Str("service", "pes").Logger(),
	}
}

func (a *Assembler) validate(structures []Structure, opts SweepOptions) error {
	if len(structures) == 0 {
		return &domain.ConfigurationError{Field: "structures", Reason: "structure sweep is empty"}
	}
	seen := make(map[string]bool, len(structures))
	for _, s := range structures {
		if s.Label == "" {
			return &domain.ConfigurationError{Field: "structures", Reason: "structure label is empty"}
		}
		if seen[s.Label] {
			return &domain.ConfigurationError{Field: "structures", Reason: fmt.Sprintf("duplicate structure label %q", s.Label)}
		}
		seen[s.Label] = true

		req := a.request(s, opts)
		if err := req.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (a *Assembler) request(s Structure, opts SweepOptions) domain.RunRequest {
	return domain.RunRequest{
		Molecule:           s.Molecule,
		MaxStates:          opts.MaxStates,
		MaxExpansionStates: opts.MaxExpansionStates,
		Controls:           opts.Controls,
		Backend:            opts.Backend,
		UseSession:         opts.UseSession,
	}
}

// SubmitSweep submits one job per structure and returns the batch ID without
// waiting. Each structure label is the ledger key, written exactly once.
func (a *Assembler) SubmitSweep(structures []Structure, opts SweepOptions) (string, error) {
	if err := a.validate(structures, opts); err != nil {
		return "", err
	}

	batchID := uuid.New().String()
	a.eventManager.Emit(events.SweepStarted, "pes", map[string]interface{}{
		"batch_id":   batchID,
		"structures": len(structures),
	})

	for _, s := range structures {
		jobID, err := a.client.Submit(a.request(s, opts))
		if err != nil {
			return "", fmt.Errorf("failed to submit structure %q: %w", s.Label, err)
		}

		entry := jobs.Entry{
			JobID:   jobID,
			BatchID: batchID,
			Kind:    jobs.KindPES,
			Key:     s.Label,
			Status:  domain.StatusPending,
		}
		if err := a.ledger.Record(entry); err != nil {
			return "", fmt.Errorf("failed to record structure %q: %w", s.Label, err)
		}
	}

	a.log.Info().
		Str("batch_id", batchID).
		Int("structures", len(structures)).
		Msg("PES sweep submitted")

	return batchID, nil
}

// Compute runs the whole workflow synchronously: submit the sweep, poll to
// completion, join the approximate energies against the reference table, and
// assemble the profile. A FAILED structure leaves a hole in the approximate
// series, which Assemble surfaces as an InconsistentSeriesError rather than
// papering over.
func (a *Assembler) Compute(ctx context.Context, structures []Structure, opts SweepOptions, refs reference.Table) (*Profile, error) {
	batchID, err := a.SubmitSweep(structures, opts)
	if err != nil {
		return nil, err
	}

	approx, err := a.wait(ctx, batchID)
	if err != nil {
		return nil, err
	}

	labels := make([]string, len(structures))
	cheap := make(map[string]float64, len(structures))
	exact := make(map[string]float64, len(structures))
	for i, s := range structures {
		labels[i] = s.Label
		if e, ok := refs.Cheap[s.Label]; ok {
			cheap[s.Label] = e
		}
		if e, ok := refs.Exact[s.Label]; ok {
			exact[s.Label] = e
		}
	}

	table, err := NewEnergyTable(labels, cheap, exact, approx)
	if err != nil {
		return nil, err
	}

	profile, err := Assemble(table)
	if err != nil {
		return nil, err
	}

	a.eventManager.Emit(events.SweepComplete, "pes", map[string]interface{}{
		"batch_id":         batchID,
		"worst_case_error": profile.WorstCaseError,
	})
	return profile, nil
}

// wait polls the sweep's jobs to terminal state and returns the approximate
// energies of the DONE ones, keyed by structure label.
func (a *Assembler) wait(ctx context.Context, batchID string) (map[string]float64, error) {
	entries, err := a.ledger.GetByBatch(batchID)
	if err != nil {
		return nil, err
	}

	jobIDs := make([]string, 0, len(entries))
	byJob := make(map[string]string, len(entries))
	for _, e := range entries {
		jobIDs = append(jobIDs, e.JobID)
		byJob[e.JobID] = e.Key
	}

	poller := hivqe.NewPoller(a.client, a.pollInterval, a.log)
	approx := make(map[string]float64, len(entries))

	_, waitErr := poller.WaitAll(ctx, jobIDs, func(res domain.RunResult) {
		label := byJob[res.JobID]

		var energy *float64
		if res.Status == domain.StatusDone {
			approx[label] = res.Energy
			energy = &res.Energy
			a.eventManager.Emit(events.JobCompleted, "pes", map[string]interface{}{
				"job_id": res.JobID, "structure": label, "energy": res.Energy,
			})
		} else {
			a.eventManager.Emit(events.JobFailed, "pes", map[string]interface{}{
				"job_id": res.JobID, "structure": label, "message": res.Message,
			})
		}

		if err := a.ledger.UpdateStatus(res.JobID, res.Status, energy, res.Message); err != nil {
			a.log.Error().Err(err).Str("job_id", res.JobID).Msg("Failed to update ledger")
		}
	})
	if waitErr != nil {
		return nil, waitErr
	}

	return approx, nil
}

// Snapshot returns the sweep's ledger entries so partial completion is
// observable while jobs are still running.
func (a *Assembler) Snapshot(batchID string) ([]jobs.Entry, error) {
	entries, err := a.ledger.GetByBatch(batchID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("unknown batch %s", batchID)
	}
	for _, e := range entries {
		if e.Kind != jobs.KindPES {
			return nil, fmt.Errorf("batch %s is not a PES sweep", batchID)
		}
	}
	return entries, nil
}

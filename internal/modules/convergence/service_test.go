package convergence

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zgreco2000/hivqe-workbench/internal/database"
	"github.com/zgreco2000/hivqe-workbench/internal/domain"
	"github.com/zgreco2000/hivqe-workbench/internal/events"
	"github.com/zgreco2000/hivqe-workbench/internal/modules/jobs"
	"github.com/zgreco2000/hivqe-workbench/pkg/logger"
)

// fakeCatalog resolves every submitted job immediately: DONE with an energy
// from the table, FAILED when the candidate is absent.
type fakeCatalog struct {
	mu       sync.Mutex
	energies map[int]float64 // max_states -> energy
	nextID   int
	byJob    map[string]int
}

func newFakeCatalog(energies map[int]float64) *fakeCatalog {
	return &fakeCatalog{energies: energies, byJob: make(map[string]int)}
}

func (f *fakeCatalog) Submit(req domain.RunRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("job-%d", f.nextID)
	f.byJob[id] = req.MaxStates
	return id, nil
}

func (f *fakeCatalog) Status(jobID string) (domain.JobStatus, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	candidate, ok := f.byJob[jobID]
	if !ok {
		return "", "", fmt.Errorf("unknown job %s", jobID)
	}
	if _, ok := f.energies[candidate]; !ok {
		return domain.StatusFailed, "subspace construction diverged", nil
	}
	return domain.StatusDone, "", nil
}

func (f *fakeCatalog) Result(jobID string) (*domain.RunResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	candidate := f.byJob[jobID]
	energy, ok := f.energies[candidate]
	if !ok {
		return nil, fmt.Errorf("job %s has no result", jobID)
	}
	return &domain.RunResult{JobID: jobID, Status: domain.StatusDone, Energy: energy}, nil
}

func testScanner(t *testing.T, catalog CatalogClient) *Scanner {
	t.Helper()
	log := logger.New(logger.Config{Level: "error"})

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	ledger := jobs.NewRepository(db.Conn(), log)
	return NewScanner(catalog, ledger, events.NewManager(log), 10*time.Millisecond, log)
}

func scanOptions() ScanOptions {
	return ScanOptions{
		Molecule: domain.MoleculeSpec{
			Atoms: []domain.Atom{
				{Symbol: "C", Z: 0.6695}, {Symbol: "C", Z: -0.6695},
			},
			Basis:          "cc-pvdz",
			ActiveOrbitals: []int{5, 6, 7, 8},
			FrozenOrbitals: []int{0, 1, 2, 3, 4},
		},
		Controls:           domain.SolverControls{Shots: 10000, MaxIterations: 10},
		Backend:            "simulator",
		MaxExpansionStates: 1000,
	}
}

const exactEnergy = -78.0788722041575

func TestScanSelectsSmallestCandidateWithinTolerance(t *testing.T) {
	catalog := newFakeCatalog(map[int]float64{
		2000: -78.0770, // deviation 0.0018722 > 1.6 mHa
		3000: -78.0771, // deviation 0.0017722 > 1.6 mHa
		4000: -78.0786, // deviation 0.0002722 < 1.6 mHa
		5000: -78.0787, // deviation 0.0001722 < 1.6 mHa
	})
	scanner := testScanner(t, catalog)

	record, err := scanner.Scan(context.Background(), scanOptions(), []int{2000, 3000, 4000, 5000})
	require.NoError(t, err)
	require.True(t, record.Complete())

	energies, err := record.Energies()
	require.NoError(t, err)
	assert.Len(t, energies, 4)

	selection, err := SelectWithin(record, exactEnergy)
	require.NoError(t, err)
	assert.True(t, selection.Found)
	assert.Equal(t, 4000, selection.Candidate)
	assert.InDelta(t, -78.0786, selection.Energy, 1e-12)
	assert.InDelta(t, 0.0002722041575, selection.Deviation, 1e-9)
}

func TestScanNoCandidateWithinTolerance(t *testing.T) {
	catalog := newFakeCatalog(map[int]float64{
		500:  -78.05,
		1000: -78.06,
	})
	scanner := testScanner(t, catalog)

	record, err := scanner.Scan(context.Background(), scanOptions(), []int{500, 1000})
	require.NoError(t, err)

	selection, err := SelectWithin(record, exactEnergy)
	require.NoError(t, err)
	assert.False(t, selection.Found)
	assert.Zero(t, selection.Candidate)
}

func TestScanFailedJobKeepsSiblings(t *testing.T) {
	// 3000 has no energy in the fake, so its job resolves FAILED
	catalog := newFakeCatalog(map[int]float64{
		2000: -78.0770,
		4000: -78.0786,
	})
	scanner := testScanner(t, catalog)

	record, err := scanner.Scan(context.Background(), scanOptions(), []int{2000, 3000, 4000})
	require.NoError(t, err)
	require.True(t, record.Complete(), "FAILED is terminal, the batch must count as complete")

	entry, ok := record.Entry(3000)
	require.True(t, ok)
	assert.Equal(t, domain.StatusFailed, entry.Status)
	assert.False(t, entry.Done())

	// The failed candidate never contributes an energy and cannot be selected
	energies, err := record.Energies()
	require.NoError(t, err)
	assert.Len(t, energies, 2)
	_, hasFailed := energies[3000]
	assert.False(t, hasFailed)

	selection, err := SelectWithin(record, exactEnergy)
	require.NoError(t, err)
	assert.True(t, selection.Found)
	assert.Equal(t, 4000, selection.Candidate)
}

func TestScanRejectsBadBatches(t *testing.T) {
	scanner := testScanner(t, newFakeCatalog(nil))

	cases := []struct {
		name       string
		candidates []int
	}{
		{"empty candidate list", nil},
		{"non-positive candidate", []int{2000, 0}},
		{"duplicate candidate", []int{2000, 2000}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := scanner.Scan(context.Background(), scanOptions(), tc.candidates)
			var cfgErr *domain.ConfigurationError
			assert.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %v", err)
		})
	}
}

func TestScanRejectsInvalidMolecule(t *testing.T) {
	scanner := testScanner(t, newFakeCatalog(nil))

	opts := scanOptions()
	opts.Molecule.FrozenOrbitals = []int{0, 5} // overlaps active set

	_, err := scanner.Scan(context.Background(), opts, []int{2000})
	var cfgErr *domain.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestSelectionOnIncompleteRecord(t *testing.T) {
	record := NewRecord("batch-1", []int{2000, 3000})
	record.Set(Entry{Candidate: 2000, JobID: "job-1", Status: domain.StatusDone, Energy: -78.0786})
	record.Set(Entry{Candidate: 3000, JobID: "job-2", Status: domain.StatusRunning})

	_, err := record.Energies()
	var incomplete *domain.IncompleteBatchError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, []string{"3000"}, incomplete.Missing)

	_, err = SelectWithin(record, exactEnergy)
	assert.True(t, errors.As(err, &incomplete))
}

func TestSnapshotRoundTrip(t *testing.T) {
	catalog := newFakeCatalog(map[int]float64{
		2000: -78.0770,
		4000: -78.0786,
	})
	scanner := testScanner(t, catalog)

	record, err := scanner.Scan(context.Background(), scanOptions(), []int{2000, 4000})
	require.NoError(t, err)

	snapshot, err := scanner.Snapshot(record.BatchID)
	require.NoError(t, err)
	assert.True(t, snapshot.Complete())

	want, err := record.Energies()
	require.NoError(t, err)
	got, err := snapshot.Energies()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSnapshotUnknownBatch(t *testing.T) {
	scanner := testScanner(t, newFakeCatalog(nil))

	_, err := scanner.Snapshot("no-such-batch")
	assert.Error(t, err)
}

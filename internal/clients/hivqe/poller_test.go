package hivqe

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zgreco2000/hivqe-workbench/internal/domain"
	"github.com/zgreco2000/hivqe-workbench/pkg/logger"
)

// fakeReader serves scripted statuses: each call to Status pops the next
// status for that job, sticking on the last one.
type fakeReader struct {
	mu       sync.Mutex
	statuses map[string][]domain.JobStatus
	energies map[string]float64
}

func (f *fakeReader) Status(jobID string) (domain.JobStatus, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seq := f.statuses[jobID]
	status := seq[0]
	if len(seq) > 1 {
		f.statuses[jobID] = seq[1:]
	}
	return status, "", nil
}

func (f *fakeReader) Result(jobID string) (*domain.RunResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &domain.RunResult{JobID: jobID, Status: domain.StatusDone, Energy: f.energies[jobID]}, nil
}

func TestWaitAllCollectsOutOfOrderCompletions(t *testing.T) {
	reader := &fakeReader{
		statuses: map[string][]domain.JobStatus{
			"a": {domain.StatusPending, domain.StatusRunning, domain.StatusDone},
			"b": {domain.StatusDone},
			"c": {domain.StatusRunning, domain.StatusFailed},
		},
		energies: map[string]float64{"a": -78.1, "b": -78.2},
	}

	poller := NewPoller(reader, time.Millisecond, logger.New(logger.Config{Level: "error"}))

	var completions []string
	results, err := poller.WaitAll(context.Background(), []string{"a", "b", "c"}, func(res domain.RunResult) {
		completions = append(completions, res.JobID)
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, domain.StatusDone, results["a"].Status)
	assert.Equal(t, -78.1, results["a"].Energy)
	assert.Equal(t, domain.StatusDone, results["b"].Status)
	assert.Equal(t, domain.StatusFailed, results["c"].Status)

	// b finishes on the first sweep, a on the third
	assert.Len(t, completions, 3)
	assert.Equal(t, "b", completions[0])
}

func TestWaitAllHonorsContext(t *testing.T) {
	reader := &fakeReader{
		statuses: map[string][]domain.JobStatus{
			"done":  {domain.StatusDone},
			"stuck": {domain.StatusRunning},
		},
		energies: map[string]float64{"done": -78.1},
	}

	poller := NewPoller(reader, time.Millisecond, logger.New(logger.Config{Level: "error"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	results, err := poller.WaitAll(ctx, []string{"done", "stuck"}, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Partial completion stays observable after cancellation
	assert.Equal(t, domain.StatusDone, results["done"].Status)
	assert.Equal(t, domain.StatusRunning, results["stuck"].Status)
}

func TestSweepSkipsUnreachableJobs(t *testing.T) {
	reader := &fakeReader{
		statuses: map[string][]domain.JobStatus{
			"a": {domain.StatusDone},
		},
		energies: map[string]float64{"a": -78.1},
	}

	poller := NewPoller(reader, time.Millisecond, logger.New(logger.Config{Level: "error"}))

	snapshot := poller.Sweep([]string{"a"})
	require.Len(t, snapshot, 1)
	assert.Equal(t, -78.1, snapshot["a"].Energy)
}

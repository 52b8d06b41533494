package convergence

import (
	"sort"
	"strconv"

	"github.com/zgreco2000/hivqe-workbench/internal/domain"
)

// Entry is the observed state of one candidate's remote job.
type Entry struct {
	Candidate int              `json:"candidate"`
	JobID     string           `json:"job_id"`
	Status    domain.JobStatus `json:"status"`
	Energy    float64          `json:"energy,omitempty"`
	Message   string           `json:"message,omitempty"`
}

// Done reports whether the entry carries a usable energy.
func (e Entry) Done() bool {
	return e.Status == domain.StatusDone
}

// Record collects per-candidate results of a convergence scan as the remote
// jobs complete. Each candidate is written at most once at submission;
// afterwards only its status and energy are updated. A FAILED job keeps its
// entry (with no energy) so partial completion, failure, and success stay
// distinguishable.
type Record struct {
	BatchID    string
	candidates []int
	entries    map[int]Entry
}

// NewRecord creates an empty record for the given submission order.
func NewRecord(batchID string, candidates []int) *Record {
	cs := make([]int, len(candidates))
	copy(cs, candidates)
	return &Record{
		BatchID:    batchID,
		candidates: cs,
		entries:    make(map[int]Entry, len(candidates)),
	}
}

// Candidates returns the submitted candidates in submission order.
func (r *Record) Candidates() []int {
	out := make([]int, len(r.candidates))
	copy(out, r.candidates)
	return out
}

// Set stores the latest observation for a candidate.
func (r *Record) Set(entry Entry) {
	r.entries[entry.Candidate] = entry
}

// Entry returns the observation for one candidate.
func (r *Record) Entry(candidate int) (Entry, bool) {
	e, ok := r.entries[candidate]
	return e, ok
}

// Entries returns all observations in candidate submission order.
func (r *Record) Entries() []Entry {
	out := make([]Entry, 0, len(r.candidates))
	for _, c := range r.candidates {
		if e, ok := r.entries[c]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Missing returns the candidates that are not yet terminal, in submission
// order. Empty means the batch is complete.
func (r *Record) Missing() []int {
	var missing []int
	for _, c := range r.candidates {
		e, ok := r.entries[c]
		if !ok || !e.Status.Terminal() {
			missing = append(missing, c)
		}
	}
	return missing
}

// Complete reports whether every submitted candidate reached a terminal
// status. FAILED counts as terminal; a complete record may still have no
// usable energies.
func (r *Record) Complete() bool {
	return len(r.Missing()) == 0
}

// Energies returns the map of candidate to energy for DONE candidates only.
// Asking before the batch is complete returns IncompleteBatchError so a
// caller can never mistake a partial batch for a finished one.
func (r *Record) Energies() (map[int]float64, error) {
	if missing := r.Missing(); len(missing) > 0 {
		keys := make([]string, len(missing))
		for i, c := range missing {
			keys[i] = strconv.Itoa(c)
		}
		return nil, &domain.IncompleteBatchError{BatchID: r.BatchID, Missing: keys}
	}

	energies := make(map[int]float64, len(r.entries))
	for c, e := range r.entries {
		if e.Done() {
			energies[c] = e.Energy
		}
	}
	return energies, nil
}

// Selection is the outcome of a tolerance selection over a complete record.
// Found is false when no candidate meets chemical accuracy; that is a signal
// to widen the candidate range, never an error and never a default value.
type Selection struct {
	Found     bool    `json:"found"`
	Candidate int     `json:"candidate,omitempty"`
	Energy    float64 `json:"energy,omitempty"`
	Deviation float64 `json:"deviation,omitempty"`
}

// sortedCandidates returns the distinct candidates in increasing order, for
// the smallest-first selection rule.
func (r *Record) sortedCandidates() []int {
	seen := make(map[int]bool, len(r.candidates))
	var out []int
	for _, c := range r.candidates {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Ints(out)
	return out
}

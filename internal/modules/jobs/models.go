package jobs

import (
	"time"

	"github.com/zgreco2000/hivqe-workbench/internal/domain"
)

// Kind says which workflow a ledger entry belongs to.
type Kind string

const (
	KindScan Kind = "scan" // convergence scan; key is a max_states candidate
	KindPES  Kind = "pes"  // PES sweep; key is a structure label
)

// Entry is one remote job as tracked by the durable ledger. Key is the
// workflow-level join key (candidate value or structure label); each
// (batch, key) pair is written exactly once at submission and only its
// status/energy change afterwards.
type Entry struct {
	JobID     string           `json:"job_id"`
	BatchID   string           `json:"batch_id"`
	Kind      Kind             `json:"kind"`
	Key       string           `json:"key"`
	Status    domain.JobStatus `json:"status"`
	Energy    *float64         `json:"energy,omitempty"`
	Message   string           `json:"message,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

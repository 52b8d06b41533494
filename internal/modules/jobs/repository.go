package jobs

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/zgreco2000/hivqe-workbench/internal/domain"
)

// Repository is the durable job ledger. It lets the workflows reassemble
// batch results after polling (or a restart) instead of holding them only in
// memory.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new job ledger repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "jobs").Logger(),
	}
}

// Record inserts a freshly submitted job. (batch_id, key) is unique by
// schema, so double-submitting a key into the same batch fails loudly
// instead of producing ambiguous results.
func (r *Repository) Record(entry Entry) error {
	now := time.Now().UTC().Format(time.RFC3339)

	query := `
		INSERT INTO jobs (job_id, batch_id, kind, key, status, energy, message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		entry.JobID,
		entry.BatchID,
		string(entry.Kind),
		entry.Key,
		string(entry.Status),
		nullFloat64Ptr(entry.Energy),
		nullString(entry.Message),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to record job: %w", err)
	}

	r.log.Info().
		Str("job_id", entry.JobID).
		Str("batch_id", entry.BatchID).
		Str("key", entry.Key).
		Msg("Job recorded")

	return nil
}

// UpdateStatus stores a newly observed status (and energy, once DONE) for a
// job. Observations are idempotent; re-writing the same terminal state is
// harmless.
func (r *Repository) UpdateStatus(jobID string, status domain.JobStatus, energy *float64, message string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	query := `
		UPDATE jobs SET status = ?, energy = ?, message = ?, updated_at = ?
		WHERE job_id = ?
	`

	result, err := r.db.Exec(query, string(status), nullFloat64Ptr(energy), nullString(message), now, jobID)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return fmt.Errorf("job %s not found in ledger", jobID)
	}

	return nil
}

// GetByID retrieves one ledger entry, or nil when unknown.
func (r *Repository) GetByID(jobID string) (*Entry, error) {
	query := `
		SELECT job_id, batch_id, kind, key, status, energy, message, created_at, updated_at
		FROM jobs WHERE job_id = ?
	`

	entry, err := r.scanEntry(r.db.QueryRow(query, jobID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &entry, nil
}

// GetByBatch retrieves all entries of a batch in submission order.
func (r *Repository) GetByBatch(batchID string) ([]Entry, error) {
	query := `
		SELECT job_id, batch_id, kind, key, status, energy, message, created_at, updated_at
		FROM jobs WHERE batch_id = ? ORDER BY created_at, key
	`

	rows, err := r.db.Query(query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch: %w", err)
	}
	defer rows.Close()

	return r.collectEntries(rows)
}

// GetPending retrieves all entries whose status is not yet terminal, for the
// background refresh sweep.
func (r *Repository) GetPending() ([]Entry, error) {
	query := `
		SELECT job_id, batch_id, kind, key, status, energy, message, created_at, updated_at
		FROM jobs WHERE status IN (?, ?) ORDER BY created_at
	`

	rows, err := r.db.Query(query, string(domain.StatusPending), string(domain.StatusRunning))
	if err != nil {
		return nil, fmt.Errorf("failed to query pending jobs: %w", err)
	}
	defer rows.Close()

	return r.collectEntries(rows)
}

func (r *Repository) collectEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		entry, err := r.scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job rows: %w", err)
	}
	return entries, nil
}

// scanner abstracts sql.Row / sql.Rows for scanEntry.
type scanner interface {
	Scan(dest ...interface{}) error
}

func (r *Repository) scanEntry(row scanner) (Entry, error) {
	var (
		entry     Entry
		kind      string
		status    string
		energy    sql.NullFloat64
		message   sql.NullString
		createdAt string
		updatedAt string
	)

	err := row.Scan(&entry.JobID, &entry.BatchID, &kind, &entry.Key, &status, &energy, &message, &createdAt, &updatedAt)
	if err != nil {
		return Entry{}, err
	}

	entry.Kind = Kind(kind)
	entry.Status = domain.JobStatus(status)
	if energy.Valid {
		e := energy.Float64
		entry.Energy = &e
	}
	if message.Valid {
		entry.Message = message.String
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		entry.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		entry.UpdatedAt = t
	}

	return entry, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat64Ptr(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

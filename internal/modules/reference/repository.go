package reference

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository persists reference energies in sqlite and hands workflows an
// in-memory Table snapshot.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new reference energy repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "reference").Logger(),
	}
}

// Upsert stores one reference energy.
func (r *Repository) Upsert(structure string, method Method, energy float64) error {
	now := time.Now().UTC().Format(time.RFC3339)

	query := `
		INSERT INTO reference_energies (structure, method, energy, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (structure, method) DO UPDATE SET energy = excluded.energy, updated_at = excluded.updated_at
	`

	if _, err := r.db.Exec(query, structure, string(method), energy, now); err != nil {
		return fmt.Errorf("failed to upsert reference energy: %w", err)
	}

	return nil
}

// Load reads the full reference table.
func (r *Repository) Load() (Table, error) {
	table := Table{
		Cheap: make(map[string]float64),
		Exact: make(map[string]float64),
	}

	rows, err := r.db.Query(`SELECT structure, method, energy FROM reference_energies`)
	if err != nil {
		return Table{}, fmt.Errorf("failed to load reference energies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var structure, method string
		var energy float64
		if err := rows.Scan(&structure, &method, &energy); err != nil {
			return Table{}, fmt.Errorf("failed to scan reference energy: %w", err)
		}

		switch Method(method) {
		case MethodCheap:
			table.Cheap[structure] = energy
		case MethodExact:
			table.Exact[structure] = energy
		default:
			r.log.Warn().Str("method", method).Str("structure", structure).Msg("Unknown reference method, skipping")
		}
	}
	if err := rows.Err(); err != nil {
		return Table{}, fmt.Errorf("failed to iterate reference energies: %w", err)
	}

	return table, nil
}

// Get reads one reference energy; found is false when absent.
func (r *Repository) Get(structure string, method Method) (energy float64, found bool, err error) {
	query := `SELECT energy FROM reference_energies WHERE structure = ? AND method = ?`

	err = r.db.QueryRow(query, structure, string(method)).Scan(&energy)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get reference energy: %w", err)
	}

	return energy, true, nil
}

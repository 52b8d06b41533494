package domain

import (
	"fmt"
	"strings"
)

// SupportedBases is the fixed vocabulary of basis sets the remote HI-VQE
// service accepts. Lowercase tokens, matched case-insensitively.
var SupportedBases = map[string]bool{
	"sto-3g":  true,
	"6-31g":   true,
	"cc-pvdz": true,
	"cc-pvtz": true,
}

// Atom is one atom of a molecular geometry: element symbol plus Cartesian
// coordinates in Angstrom.
type Atom struct {
	Symbol string  `json:"symbol"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
}

// MoleculeSpec describes the molecule and active space for one calculation.
// It is treated as immutable once validated; callers must not mutate the
// slices after construction.
type MoleculeSpec struct {
	Atoms          []Atom `json:"atoms"`
	Basis          string `json:"basis"`
	ActiveOrbitals []int  `json:"active_orbitals"`
	FrozenOrbitals []int  `json:"frozen_orbitals"`
}

// Validate checks the molecule before any remote submission:
// non-empty geometry, a known basis set, non-negative orbital indices,
// disjoint active/frozen sets, and active + frozen within totalOrbitals.
// Pass totalOrbitals <= 0 to skip the orbital-count bound (the count depends
// on basis and geometry and is not always known client-side).
func (m *MoleculeSpec) Validate(totalOrbitals int) error {
	if len(m.Atoms) == 0 {
		return &ConfigurationError{Field: "atoms", Reason: "geometry is empty"}
	}
	for i, a := range m.Atoms {
		if strings.TrimSpace(a.Symbol) == "" {
			return &ConfigurationError{
				Field:  "atoms",
				Reason: fmt.Sprintf("atom %d has an empty element symbol", i),
			}
		}
	}
	if !SupportedBases[strings.ToLower(m.Basis)] {
		return &ConfigurationError{
			Field:  "basis",
			Reason: fmt.Sprintf("unsupported basis set %q", m.Basis),
		}
	}

	seen := make(map[int]string, len(m.ActiveOrbitals)+len(m.FrozenOrbitals))
	for _, idx := range m.ActiveOrbitals {
		if idx < 0 {
			return &ConfigurationError{Field: "active_orbitals", Reason: fmt.Sprintf("negative orbital index %d", idx)}
		}
		if seen[idx] != "" {
			return &ConfigurationError{Field: "active_orbitals", Reason: fmt.Sprintf("duplicate orbital index %d", idx)}
		}
		seen[idx] = "active"
	}
	for _, idx := range m.FrozenOrbitals {
		if idx < 0 {
			return &ConfigurationError{Field: "frozen_orbitals", Reason: fmt.Sprintf("negative orbital index %d", idx)}
		}
		switch seen[idx] {
		case "active":
			return &ConfigurationError{
				Field:  "frozen_orbitals",
				Reason: fmt.Sprintf("orbital %d is both active and frozen", idx),
			}
		case "frozen":
			return &ConfigurationError{Field: "frozen_orbitals", Reason: fmt.Sprintf("duplicate orbital index %d", idx)}
		}
		seen[idx] = "frozen"
	}

	if totalOrbitals > 0 && len(seen) > totalOrbitals {
		return &ConfigurationError{
			Field: "active_orbitals",
			Reason: fmt.Sprintf("active and frozen sets cover %d orbitals but the basis only provides %d",
				len(seen), totalOrbitals),
		}
	}

	return nil
}

// GeometryString flattens the geometry into the "El x y z; El x y z" form
// the remote service expects.
func (m *MoleculeSpec) GeometryString() string {
	parts := make([]string, len(m.Atoms))
	for i, a := range m.Atoms {
		parts[i] = fmt.Sprintf("%s %.10f %.10f %.10f", a.Symbol, a.X, a.Y, a.Z)
	}
	return strings.Join(parts, "; ")
}

// SolverControls are the HI-VQE iteration knobs shared across a batch.
type SolverControls struct {
	Shots         int `json:"shots"`
	MaxIterations int `json:"max_iterations"`
}

// RunRequest is one remote computation request. Immutable after construction;
// sent exactly once per remote call.
type RunRequest struct {
	Molecule           MoleculeSpec   `json:"molecule"`
	MaxStates          int            `json:"max_states"`
	MaxExpansionStates int            `json:"max_expansion_states"`
	Controls           SolverControls `json:"controls"`
	Backend            string         `json:"backend"`
	UseSession         bool           `json:"use_session"`
}

// Validate checks the request bounds on top of the molecule invariants.
func (r *RunRequest) Validate() error {
	if err := r.Molecule.Validate(0); err != nil {
		return err
	}
	if r.MaxStates <= 0 {
		return &ConfigurationError{Field: "max_states", Reason: "must be a positive integer"}
	}
	if r.MaxExpansionStates < 0 {
		return &ConfigurationError{Field: "max_expansion_states", Reason: "must be non-negative"}
	}
	if r.Controls.Shots <= 0 {
		return &ConfigurationError{Field: "shots", Reason: "must be a positive integer"}
	}
	if r.Controls.MaxIterations <= 0 {
		return &ConfigurationError{Field: "max_iterations", Reason: "must be a positive integer"}
	}
	return nil
}

// JobStatus is the remote job state machine. This system only observes it,
// it never drives transitions.
type JobStatus string

const (
	StatusPending JobStatus = "PENDING"
	StatusRunning JobStatus = "RUNNING"
	StatusDone    JobStatus = "DONE"
	StatusFailed  JobStatus = "FAILED"
)

// Terminal reports whether the status can no longer change.
func (s JobStatus) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// RunResult is what the remote service hands back for one job. Energy is the
// ground-state energy in Hartree and is only meaningful when Status is DONE.
type RunResult struct {
	JobID   string    `json:"job_id"`
	Status  JobStatus `json:"status"`
	Energy  float64   `json:"energy"`
	Message string    `json:"message,omitempty"`
}

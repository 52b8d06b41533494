package hivqe

// Request and response payloads mirror the catalog service's JSON API.

// MoleculeOptions mirrors the service's molecule_options block.
type MoleculeOptions struct {
	Basis          string `json:"basis"`
	ActiveOrbitals []int  `json:"active_orbitals"`
	FrozenOrbitals []int  `json:"frozen_orbitals"`
}

// SolverOptions mirrors the service's hivqe_options block.
type SolverOptions struct {
	Shots         int `json:"shots"`
	MaxIterations int `json:"max_iterations"`
}

// SubmitRequest is the body of POST /jobs.
type SubmitRequest struct {
	Geometry           string          `json:"geometry"`
	Backend            string          `json:"backend"`
	MaxStates          int             `json:"max_states"`
	MaxExpansionStates int             `json:"max_expansion_states"`
	MoleculeOptions    MoleculeOptions `json:"molecule_options"`
	SolverOptions      SolverOptions   `json:"hivqe_options"`
	UseSession         bool            `json:"use_session"`
}

// SubmitResponse is the body returned by POST /jobs.
type SubmitResponse struct {
	JobID string `json:"job_id"`
}

// StatusResponse is the body returned by GET /jobs/{id}.
type StatusResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ResultResponse is the body returned by GET /jobs/{id}/result once the job
// is DONE. EnergyHartree is the HI-VQE ground-state energy.
type ResultResponse struct {
	JobID         string  `json:"job_id"`
	EnergyHartree float64 `json:"ground_state_energy_hartree"`
}

// errorResponse is the service's error envelope for non-2xx replies.
type errorResponse struct {
	Error string `json:"error"`
}

package pes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/zgreco2000/hivqe-workbench/internal/domain"
)

// Defaults carries the configured backend identity applied when a request
// omits it.
type Defaults struct {
	Backend    string
	UseSession bool
}

// Handler handles PES HTTP requests
type Handler struct {
	assembler *Assembler
	defaults  Defaults
	log       zerolog.Logger
}

// NewHandler creates a new PES handler
func NewHandler(assembler *Assembler, defaults Defaults, log zerolog.Logger) *Handler {
	return &Handler{
		assembler: assembler,
		defaults:  defaults,
		log:       log.With().Str("handler", "pes").Logger(),
	}
}

// AssembleRequest is the body of POST /api/pes/assemble: three raw energy
// series over the same half-sweep labels, ready for the pure transform.
type AssembleRequest struct {
	Labels []string           `json:"labels"`
	Cheap  map[string]float64 `json:"cheap"`
	Exact  map[string]float64 `json:"exact"`
	Approx map[string]float64 `json:"approx"`
}

// HandleAssemble handles POST /assemble - pure profile assembly from raw
// series; no remote calls involved
func (h *Handler) HandleAssemble(w http.ResponseWriter, r *http.Request) {
	var req AssembleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	table, err := NewEnergyTable(req.Labels, req.Cheap, req.Exact, req.Approx)
	if err != nil {
		writeAssemblyError(w, err)
		return
	}

	profile, err := Assemble(table)
	if err != nil {
		writeAssemblyError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profile)
}

// SweepRequest is the body of POST /api/pes/sweep.
type SweepRequest struct {
	SweepOptions
	Structures []Structure `json:"structures"`
}

// HandleStartSweep handles POST /sweep - submit a torsion sweep batch
func (h *Handler) HandleStartSweep(w http.ResponseWriter, r *http.Request) {
	var req SweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if req.Backend == "" {
		req.Backend = h.defaults.Backend
		req.UseSession = h.defaults.UseSession
	}

	batchID, err := h.assembler.SubmitSweep(req.Structures, req.SweepOptions)
	if err != nil {
		var cfgErr *domain.ConfigurationError
		if errors.As(err, &cfgErr) {
			http.Error(w, cfgErr.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Msg("Failed to submit sweep")
		http.Error(w, "Failed to submit sweep", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"batch_id": batchID})
}

// HandleGetSweep handles GET /sweep/{batchID} - per-structure job snapshot
func (h *Handler) HandleGetSweep(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")

	entries, err := h.assembler.Snapshot(batchID)
	if err != nil {
		http.Error(w, "Batch not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"batch_id": batchID,
		"entries":  entries,
	})
}

func writeAssemblyError(w http.ResponseWriter, err error) {
	var inconsistent *domain.InconsistentSeriesError
	if errors.As(err, &inconsistent) {
		http.Error(w, inconsistent.Error(), http.StatusUnprocessableEntity)
		return
	}
	var cfgErr *domain.ConfigurationError
	if errors.As(err, &cfgErr) {
		http.Error(w, cfgErr.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, "Assembly failed", http.StatusInternalServerError)
}

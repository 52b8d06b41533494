package reference

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// Handler handles reference energy HTTP requests
type Handler struct {
	repo *Repository
	log  zerolog.Logger
}

// NewHandler creates a new reference handler
func NewHandler(repo *Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "reference").Logger(),
	}
}

// HandleGetTable handles GET / - the full reference energy table
func (h *Handler) HandleGetTable(w http.ResponseWriter, r *http.Request) {
	table, err := h.repo.Load()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load reference table")
		http.Error(w, "Failed to load reference energies", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"cheap": table.Cheap,
		"exact": table.Exact,
	})
}

// upsertRequest is the body of PUT /.
type upsertRequest struct {
	Structure string  `json:"structure"`
	Method    string  `json:"method"`
	Energy    float64 `json:"energy"`
}

// HandleUpsert handles PUT / - store one reference energy
func (h *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	method := Method(req.Method)
	if method != MethodCheap && method != MethodExact {
		http.Error(w, "method must be rhf or exact", http.StatusBadRequest)
		return
	}
	if req.Structure == "" {
		http.Error(w, "structure is required", http.StatusBadRequest)
		return
	}

	if err := h.repo.Upsert(req.Structure, method, req.Energy); err != nil {
		h.log.Error().Err(err).Msg("Failed to upsert reference energy")
		http.Error(w, "Failed to store reference energy", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

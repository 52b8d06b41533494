package jobs

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles job ledger HTTP requests
type Handler struct {
	repo *Repository
	log  zerolog.Logger
}

// NewHandler creates a new jobs handler
func NewHandler(repo *Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "jobs").Logger(),
	}
}

// HandleGetJob handles GET /{jobID} - ledger view of one remote job
func (h *Handler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	entry, err := h.repo.GetByID(jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		http.Error(w, "Failed to retrieve job", http.StatusInternalServerError)
		return
	}
	if entry == nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

// HandleGetPending handles GET /pending - all jobs still awaiting a terminal
// status
func (h *Handler) HandleGetPending(w http.ResponseWriter, r *http.Request) {
	entries, err := h.repo.GetPending()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get pending jobs")
		http.Error(w, "Failed to retrieve pending jobs", http.StatusInternalServerError)
		return
	}

	if entries == nil {
		entries = []Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

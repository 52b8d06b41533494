package convergence

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/zgreco2000/hivqe-workbench/internal/domain"
	"github.com/zgreco2000/hivqe-workbench/internal/modules/reference"
)

// Defaults carries the configured backend identity applied when a request
// omits it.
type Defaults struct {
	Backend    string
	UseSession bool
}

// Handler handles convergence scan HTTP requests
type Handler struct {
	scanner  *Scanner
	refs     *reference.Repository
	defaults Defaults
	log      zerolog.Logger
}

// NewHandler creates a new convergence handler
func NewHandler(scanner *Scanner, refs *reference.Repository, defaults Defaults, log zerolog.Logger) *Handler {
	return &Handler{
		scanner:  scanner,
		refs:     refs,
		defaults: defaults,
		log:      log.With().Str("handler", "convergence").Logger(),
	}
}

// ScanRequest is the body of POST /api/convergence/scan.
type ScanRequest struct {
	ScanOptions
	Candidates []int `json:"candidates"`
}

// HandleStartScan handles POST / - submit a scan batch without blocking on
// remote completion
func (h *Handler) HandleStartScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if req.Backend == "" {
		req.Backend = h.defaults.Backend
		req.UseSession = h.defaults.UseSession
	}

	batchID, err := h.scanner.SubmitBatch(req.ScanOptions, req.Candidates)
	if err != nil {
		var cfgErr *domain.ConfigurationError
		if errors.As(err, &cfgErr) {
			http.Error(w, cfgErr.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Msg("Failed to submit scan")
		http.Error(w, "Failed to submit scan", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"batch_id": batchID})
}

// HandleGetScan handles GET /{batchID} - snapshot of a scan batch, partial
// or complete
func (h *Handler) HandleGetScan(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")

	record, err := h.scanner.Snapshot(batchID)
	if err != nil {
		http.Error(w, "Batch not found", http.StatusNotFound)
		return
	}

	resp := map[string]interface{}{
		"batch_id": record.BatchID,
		"complete": record.Complete(),
		"missing":  record.Missing(),
		"entries":  record.Entries(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandleGetSelection handles GET /{batchID}/selection - chemical accuracy
// selection over a complete batch. The exact reference comes from ?exact=
// (Hartree) or ?structure= (looked up in the reference table).
func (h *Handler) HandleGetSelection(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")

	exact, err := h.exactReference(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	record, err := h.scanner.Snapshot(batchID)
	if err != nil {
		http.Error(w, "Batch not found", http.StatusNotFound)
		return
	}

	selection, err := SelectWithin(record, exact)
	if err != nil {
		var incomplete *domain.IncompleteBatchError
		if errors.As(err, &incomplete) {
			http.Error(w, incomplete.Error(), http.StatusConflict)
			return
		}
		h.log.Error().Err(err).Str("batch_id", batchID).Msg("Selection failed")
		http.Error(w, "Selection failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(selection)
}

func (h *Handler) exactReference(r *http.Request) (float64, error) {
	if exactStr := r.URL.Query().Get("exact"); exactStr != "" {
		exact, err := strconv.ParseFloat(exactStr, 64)
		if err != nil {
			return 0, errors.New("exact must be a number (Hartree)")
		}
		return exact, nil
	}

	structure := r.URL.Query().Get("structure")
	if structure == "" {
		return 0, errors.New("either exact or structure query parameter is required")
	}

	energy, found, err := h.refs.Get(structure, reference.MethodExact)
	if err != nil {
		return 0, errors.New("failed to look up reference energy")
	}
	if !found {
		return 0, errors.New("no exact reference energy for structure " + structure)
	}
	return energy, nil
}

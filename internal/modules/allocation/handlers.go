package allocation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles allocation target HTTP requests
type Handler struct {
	repo *Repository
	log  zerolog.Logger
}

// NewHandler creates a new allocation handler
func NewHandler(repo *Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "allocation").Logger(),
	}
}

// HandleUpsert handles PUT / - set the target weight for an asset class
func (h *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	var t Target
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if err := h.repo.Upsert(&t); err != nil {
		h.log.Warn().Err(err).Str("asset_class", t.AssetClass).Msg("Rejected allocation target")
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t)
}

// HandleList handles GET /
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list allocation targets")
		http.Error(w, "Failed to list allocation targets", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []Target{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// HandleDelete handles DELETE /{class}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	class := chi.URLParam(r, "class")

	if err := h.repo.Delete(class); err != nil {
		if errors.Is(err, ErrTargetNotFound) {
			http.Error(w, "Allocation target not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("asset_class", class).Msg("Failed to delete allocation target")
		http.Error(w, "Failed to delete allocation target", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

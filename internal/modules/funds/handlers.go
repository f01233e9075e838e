package funds

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles fund registry HTTP requests
type Handler struct {
	repo *Repository
	log  zerolog.Logger
}

// NewHandler creates a new funds handler
func NewHandler(repo *Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "funds").Logger(),
	}
}

// HandleUpsert handles PUT / - register or update a fund
func (h *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	var f Fund
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if f.FundCode == "" || f.Name == "" || f.Market == "" {
		http.Error(w, "fund_code, name and market are required", http.StatusBadRequest)
		return
	}

	if err := h.repo.Upsert(&f); err != nil {
		h.log.Error().Err(err).Str("fund", f.FundCode).Msg("Failed to upsert fund")
		http.Error(w, "Failed to save fund", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(f)
}

// HandleList handles GET /
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list funds")
		http.Error(w, "Failed to list funds", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []Fund{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// HandleGet handles GET /{code}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	f, err := h.repo.Get(code)
	if err != nil {
		if errors.Is(err, ErrFundNotFound) {
			http.Error(w, "Fund not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("fund", code).Msg("Failed to get fund")
		http.Error(w, "Failed to get fund", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(f)
}

// HandleDelete handles DELETE /{code}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if err := h.repo.Delete(code); err != nil {
		if errors.Is(err, ErrFundNotFound) {
			http.Error(w, "Fund not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("fund", code).Msg("Failed to delete fund")
		http.Error(w, "Failed to delete fund", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

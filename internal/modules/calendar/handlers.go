package calendar

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/yuanmu/fundtrack/internal/domain"
)

// Handler handles calendar HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new calendar handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "calendar").Logger(),
	}
}

// HandlePatch handles POST /{market}/patch - upsert day statuses
func (h *Handler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	market := chi.URLParam(r, "market")

	var req struct {
		Days []DayStatus `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if len(req.Days) == 0 {
		http.Error(w, "days must not be empty", http.StatusBadRequest)
		return
	}

	if err := h.service.UpsertDays(market, req.Days); err != nil {
		h.log.Error().Err(err).Str("market", market).Msg("Failed to patch calendar")
		http.Error(w, "Failed to patch calendar", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"market":  market,
		"patched": len(req.Days),
	})
}

// HandleCoverage handles GET /{market}/coverage
func (h *Handler) HandleCoverage(w http.ResponseWriter, r *http.Request) {
	market := chi.URLParam(r, "market")

	cov, err := h.service.Coverage(market)
	if err != nil {
		h.log.Error().Err(err).Str("market", market).Msg("Failed to get coverage")
		http.Error(w, "Failed to get coverage", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cov)
}

// HandleIsOpen handles GET /{market}/is-open?date=YYYY-MM-DD
func (h *Handler) HandleIsOpen(w http.ResponseWriter, r *http.Request) {
	market := chi.URLParam(r, "market")

	date, err := domain.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, "Invalid date format. Use YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	open, err := h.service.IsOpen(market, date)
	if err != nil {
		if errors.Is(err, ErrCalendarDataMissing) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		h.log.Error().Err(err).Str("market", market).Msg("Failed to query calendar")
		http.Error(w, "Failed to query calendar", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"market":  market,
		"date":    domain.FormatDate(date),
		"is_open": open,
	})
}

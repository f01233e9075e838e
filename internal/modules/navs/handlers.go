package navs

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/yuanmu/fundtrack/internal/domain"
)

// Handler handles NAV HTTP requests
type Handler struct {
	repo *Repository
	log  zerolog.Logger
}

// NewHandler creates a new NAV handler
func NewHandler(repo *Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "navs").Logger(),
	}
}

// HandleUpsert handles POST / - manually record a NAV point
func (h *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FundCode string `json:"fund_code"`
		Day      string `json:"day"`
		Nav      string `json:"nav"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.FundCode == "" {
		http.Error(w, "fund_code is required", http.StatusBadRequest)
		return
	}
	if _, err := domain.ParseDate(req.Day); err != nil {
		http.Error(w, "Invalid day. Use YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	nav, err := decimal.NewFromString(req.Nav)
	if err != nil || nav.IsNegative() {
		http.Error(w, "nav must be a non-negative decimal", http.StatusBadRequest)
		return
	}

	if err := h.repo.Upsert(req.FundCode, req.Day, nav); err != nil {
		h.log.Error().Err(err).Str("fund", req.FundCode).Msg("Failed to upsert nav")
		http.Error(w, "Failed to record NAV", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"fund_code": req.FundCode,
		"day":       req.Day,
		"nav":       domain.QuantizeNav(nav).String(),
	})
}

// HandleGet handles GET /{fund}?date=YYYY-MM-DD - exact-date lookup,
// or the latest point when no date is given
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	fundCode := chi.URLParam(r, "fund")
	dateStr := r.URL.Query().Get("date")

	w.Header().Set("Content-Type", "application/json")

	if dateStr == "" {
		latest, err := h.repo.Latest(fundCode)
		if err != nil {
			h.log.Error().Err(err).Str("fund", fundCode).Msg("Failed to get latest nav")
			http.Error(w, "Failed to get NAV", http.StatusInternalServerError)
			return
		}
		if latest == nil {
			http.Error(w, "No NAV recorded for fund", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(latest)
		return
	}

	if _, err := domain.ParseDate(dateStr); err != nil {
		http.Error(w, "Invalid date format. Use YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	nav, found, err := h.repo.Get(fundCode, dateStr)
	if err != nil {
		h.log.Error().Err(err).Str("fund", fundCode).Msg("Failed to get nav")
		http.Error(w, "Failed to get NAV", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "No NAV for fund on that date", http.StatusNotFound)
		return
	}

	json.NewEncoder(w).Encode(NavPoint{FundCode: fundCode, Day: dateStr, Nav: nav})
}

package portfolio

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/yuanmu/fundtrack/internal/domain"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleValuation handles GET /valuation?date=
func (h *Handler) HandleValuation(w http.ResponseWriter, r *http.Request) {
	date, ok := h.parseDate(w, r)
	if !ok {
		return
	}

	valuation, err := h.service.ValuationAsOf(date)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to value portfolio")
		http.Error(w, "Failed to value portfolio", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(valuation)
}

// HandleRebalance handles GET /rebalance?date=
func (h *Handler) HandleRebalance(w http.ResponseWriter, r *http.Request) {
	date, ok := h.parseDate(w, r)
	if !ok {
		return
	}

	advice, err := h.service.RebalanceAdvice(date)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute rebalancing advice")
		http.Error(w, "Failed to compute rebalancing advice", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(advice)
}

// HandleReport handles POST /report - render and push the daily report
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.DailyReport(domain.Today())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to send daily report")
		http.Error(w, "Failed to send daily report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"report": report})
}

func (h *Handler) parseDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return domain.Today(), true
	}
	date, err := domain.ParseDate(raw)
	if err != nil {
		http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return time.Time{}, false
	}
	return date, true
}

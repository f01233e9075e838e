package trading

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/yuanmu/fundtrack/internal/domain"
	"github.com/yuanmu/fundtrack/internal/modules/calendar"
	"github.com/yuanmu/fundtrack/internal/modules/funds"
)

// Handler handles trade HTTP requests
type Handler struct {
	service   *Service
	confirmer *Confirmer
	log       zerolog.Logger
}

// NewHandler creates a new trading handler
func NewHandler(service *Service, confirmer *Confirmer, log zerolog.Logger) *Handler {
	return &Handler{
		service:   service,
		confirmer: confirmer,
		log:       log.With().Str("handler", "trading").Logger(),
	}
}

// HandleCreate handles POST / - create a trade
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var input CreateTradeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	trade, err := h.service.Create(input)
	if err != nil {
		h.writeCreateError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(trade)
}

func (h *Handler) writeCreateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, funds.ErrFundNotFound):
		http.Error(w, "Fund not found", http.StatusNotFound)
	case errors.Is(err, calendar.ErrCalendarDataMissing):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.log.Error().Err(err).Msg("Failed to create trade")
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

// HandleList handles GET /?status=&limit=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l < 1 || l > 10000 {
			http.Error(w, "Invalid limit. Must be 1-10000", http.StatusBadRequest)
			return
		}
		limit = l
	}

	trades, err := h.service.List(status, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list trades")
		http.Error(w, "Failed to retrieve trades", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []Trade{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(trades)
}

// HandleGet handles GET /{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	trade, err := h.service.Get(id)
	if err != nil {
		if errors.Is(err, ErrTradeNotFound) {
			http.Error(w, "Trade not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Int64("trade_id", id).Msg("Failed to get trade")
		http.Error(w, "Failed to get trade", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(trade)
}

// HandleManualConfirm handles POST /{id}/confirm
func (h *Handler) HandleManualConfirm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req struct {
		Shares string `json:"shares"`
		Nav    string `json:"nav"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	shares, err := decimal.NewFromString(req.Shares)
	if err != nil {
		http.Error(w, "shares must be a decimal", http.StatusBadRequest)
		return
	}
	nav, err := decimal.NewFromString(req.Nav)
	if err != nil {
		http.Error(w, "nav must be a decimal", http.StatusBadRequest)
		return
	}

	trade, err := h.service.ManualConfirm(id, shares, nav)
	if err != nil {
		switch {
		case errors.Is(err, ErrTradeNotFound):
			http.Error(w, "Trade not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidManualConfirmation):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			h.log.Error().Err(err).Int64("trade_id", id).Msg("Failed to confirm trade")
			http.Error(w, "Failed to confirm trade", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(trade)
}

// HandleCancel handles POST /{id}/cancel
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	trade, err := h.service.Cancel(id)
	if err != nil {
		switch {
		case errors.Is(err, ErrTradeNotFound):
			http.Error(w, "Trade not found", http.StatusNotFound)
		case errors.Is(err, ErrTradeNotPending):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			h.log.Error().Err(err).Int64("trade_id", id).Msg("Failed to cancel trade")
			http.Error(w, "Failed to cancel trade", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(trade)
}

// HandleImport handles POST /import - history import batch
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source string             `json:"source"`
		Trades []CreateTradeInput `json:"trades"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if len(req.Trades) == 0 {
		http.Error(w, "trades must not be empty", http.StatusBadRequest)
		return
	}

	result, err := h.service.Import(req.Trades, req.Source)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to import trades")
		http.Error(w, "Failed to import trades", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// HandleRunConfirm handles POST /run-confirm - trigger a confirmation
// pass immediately
func (h *Handler) HandleRunConfirm(w http.ResponseWriter, r *http.Request) {
	result, err := h.confirmer.Run(domain.Today())
	if err != nil {
		h.log.Error().Err(err).Msg("Confirmation pass failed")
		http.Error(w, "Confirmation pass failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// HandlePositions handles GET /positions
func (h *Handler) HandlePositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.service.Positions()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get positions")
		http.Error(w, "Failed to get positions", http.StatusInternalServerError)
		return
	}
	if positions == nil {
		positions = []Position{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(positions)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		http.Error(w, "Invalid trade id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

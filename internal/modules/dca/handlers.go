package dca

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/yuanmu/fundtrack/internal/domain"
	"github.com/yuanmu/fundtrack/internal/modules/calendar"
	"github.com/yuanmu/fundtrack/internal/modules/funds"
)

// FundResolver resolves fund codes for plan validation
type FundResolver interface {
	Get(fundCode string) (*funds.Fund, error)
}

// TradeSkipper skips a pending plan occurrence
type TradeSkipper interface {
	SkipDcaForDate(fundCode, day string) (int64, error)
}

// Handler handles DCA HTTP requests
type Handler struct {
	repo    *Repository
	matcher *Matcher
	runner  *Runner
	funds   FundResolver
	skipper TradeSkipper
	log     zerolog.Logger
}

// NewHandler creates a new DCA handler
func NewHandler(
	repo *Repository,
	matcher *Matcher,
	runner *Runner,
	fundResolver FundResolver,
	skipper TradeSkipper,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		repo:    repo,
		matcher: matcher,
		runner:  runner,
		funds:   fundResolver,
		skipper: skipper,
		log:     log.With().Str("handler", "dca").Logger(),
	}
}

// HandleUpsertPlan handles PUT /plans
func (h *Handler) HandleUpsertPlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlanKey   string `json:"plan_key"`
		FundCode  string `json:"fund_code"`
		Amount    string `json:"amount"`
		Frequency string `json:"frequency"`
		Rule      int    `json:"rule"`
		Status    string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		http.Error(w, "amount must be a positive decimal", http.StatusBadRequest)
		return
	}

	freq := Frequency(req.Frequency)
	if !freq.IsValid() {
		http.Error(w, "frequency must be daily, weekly or monthly", http.StatusBadRequest)
		return
	}
	switch freq {
	case FrequencyWeekly:
		if req.Rule < 1 || req.Rule > 5 {
			http.Error(w, "weekly rule must be a weekday 1-5", http.StatusBadRequest)
			return
		}
	case FrequencyMonthly:
		if req.Rule < 1 || req.Rule > 31 {
			http.Error(w, "monthly rule must be a day of month 1-31", http.StatusBadRequest)
			return
		}
	}

	fund, err := h.funds.Get(req.FundCode)
	if err != nil {
		if errors.Is(err, funds.ErrFundNotFound) {
			http.Error(w, "Fund not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Msg("Failed to resolve fund")
		http.Error(w, "Failed to resolve fund", http.StatusInternalServerError)
		return
	}

	planKey := req.PlanKey
	if planKey == "" {
		planKey = fund.FundCode
	}
	status := PlanStatus(req.Status)
	if status == "" {
		status = PlanStatusActive
	}
	if status != PlanStatusActive && status != PlanStatusPaused {
		http.Error(w, "status must be active or paused", http.StatusBadRequest)
		return
	}

	plan := &Plan{
		PlanKey:   planKey,
		FundCode:  fund.FundCode,
		Amount:    amount,
		Frequency: freq,
		Rule:      req.Rule,
		Market:    fund.Market,
		Status:    status,
	}
	if err := h.repo.Upsert(plan); err != nil {
		h.log.Error().Err(err).Str("plan", planKey).Msg("Failed to upsert plan")
		http.Error(w, "Failed to save plan", http.StatusInternalServerError)
		return
	}

	saved, err := h.repo.Get(planKey)
	if err != nil {
		h.log.Error().Err(err).Str("plan", planKey).Msg("Failed to reload plan")
		http.Error(w, "Failed to save plan", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(saved)
}

// HandleListPlans handles GET /plans
func (h *Handler) HandleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.repo.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list plans")
		http.Error(w, "Failed to list plans", http.StatusInternalServerError)
		return
	}
	if plans == nil {
		plans = []Plan{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(plans)
}

// HandleDeletePlan handles DELETE /plans/{key}
func (h *Handler) HandleDeletePlan(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	if err := h.repo.Delete(key); err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			http.Error(w, "Plan not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("plan", key).Msg("Failed to delete plan")
		http.Error(w, "Failed to delete plan", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleSetStatus handles POST /plans/{key}/status
func (h *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	status := PlanStatus(req.Status)
	if status != PlanStatusActive && status != PlanStatusPaused {
		http.Error(w, "status must be active or paused", http.StatusBadRequest)
		return
	}

	if err := h.repo.SetStatus(key, status); err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			http.Error(w, "Plan not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("plan", key).Msg("Failed to set plan status")
		http.Error(w, "Failed to set plan status", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"plan_key": key, "status": string(status)})
}

// HandleBackfill handles POST /plans/{key}/backfill
func (h *Handler) HandleBackfill(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req struct {
		From  string `json:"from"`
		To    string `json:"to"`
		Apply bool   `json:"apply"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if _, err := domain.ParseDate(req.From); err != nil {
		http.Error(w, "Invalid from date. Use YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if _, err := domain.ParseDate(req.To); err != nil {
		http.Error(w, "Invalid to date. Use YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	result, err := h.matcher.Backfill(key, req.From, req.To, req.Apply)
	if err != nil {
		switch {
		case errors.Is(err, ErrPlanNotFound):
			http.Error(w, "Plan not found", http.StatusNotFound)
		case errors.Is(err, calendar.ErrCalendarDataMissing):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.log.Error().Err(err).Str("plan", key).Msg("Backfill failed")
			http.Error(w, "Backfill failed", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// HandleSkip handles POST /skip - skip today's (or a given day's)
// pending occurrence for a fund
func (h *Handler) HandleSkip(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FundCode string `json:"fund_code"`
		Day      string `json:"day"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.FundCode == "" {
		http.Error(w, "fund_code is required", http.StatusBadRequest)
		return
	}
	if req.Day == "" {
		req.Day = domain.FormatDate(domain.Today())
	}
	if _, err := domain.ParseDate(req.Day); err != nil {
		http.Error(w, "Invalid day. Use YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	skipped, err := h.skipper.SkipDcaForDate(req.FundCode, req.Day)
	if err != nil {
		h.log.Error().Err(err).Str("fund", req.FundCode).Msg("Failed to skip occurrence")
		http.Error(w, "Failed to skip occurrence", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"fund_code": req.FundCode,
		"day":       req.Day,
		"skipped":   skipped,
	})
}

// HandleRun handles POST /run - trigger the daily plan run immediately
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	result, err := h.runner.RunDaily(domain.Today())
	if err != nil {
		h.log.Error().Err(err).Msg("Plan run failed")
		http.Error(w, "Plan run failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

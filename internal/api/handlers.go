package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mjhoover1/Intelligent-Investing/internal/ledger"
	"github.com/mjhoover1/Intelligent-Investing/internal/models"
	"github.com/mjhoover1/Intelligent-Investing/internal/portfolio"
	"github.com/mjhoover1/Intelligent-Investing/internal/rules"
	"github.com/mjhoover1/Intelligent-Investing/internal/storage"
	"github.com/mjhoover1/Intelligent-Investing/pkg/logger"
)

// DefaultOwnerID is used when a request names no owner
const DefaultOwnerID = "default"

func ownerFromRequest(r *http.Request) string {
	if owner := r.URL.Query().Get("owner_id"); owner != "" {
		return owner
	}
	return DefaultOwnerID
}

// RuleHandler handles rule management endpoints
type RuleHandler struct {
	store     rules.Store
	cooldowns ledger.Ledger
}

// NewRuleHandler creates a new rule handler. cooldowns may be nil when
// no ledger cleanup is wanted.
func NewRuleHandler(store rules.Store, cooldowns ledger.Ledger) *RuleHandler {
	return &RuleHandler{store: store, cooldowns: cooldowns}
}

// ListRules handles GET /api/v1/rules
func (h *RuleHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	allRules, err := h.store.ListAll(r.Context(), ownerFromRequest(r))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve rules")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"rules": allRules,
		"count": len(allRules),
	})
}

// GetRule handles GET /api/v1/rules/{id}
func (h *RuleHandler) GetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.store.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Rule not found")
		return
	}
	respondWithJSON(w, http.StatusOK, rule)
}

// CreateRule handles POST /api/v1/rules
func (h *RuleHandler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var rule models.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if rule.OwnerID == "" {
		rule.OwnerID = ownerFromRequest(r)
	}

	if err := rule.Validate(); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Create(r.Context(), &rule); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to create rule")
		return
	}

	logger.Info("Rule created",
		logger.String("rule_id", rule.ID),
		logger.String("rule_name", rule.Name),
	)
	respondWithJSON(w, http.StatusCreated, rule)
}

// UpdateRule handles PUT /api/v1/rules/{id}
func (h *RuleHandler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	ruleID := mux.Vars(r)["id"]

	existing, err := h.store.Get(r.Context(), ruleID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Rule not found")
		return
	}

	var rule models.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rule.ID = ruleID
	rule.OwnerID = existing.OwnerID
	rule.CreatedAt = existing.CreatedAt

	if err := rule.Validate(); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Update(r.Context(), &rule); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to update rule")
		return
	}

	logger.Info("Rule updated",
		logger.String("rule_id", rule.ID),
		logger.String("rule_name", rule.Name),
	)
	respondWithJSON(w, http.StatusOK, rule)
}

// DeleteRule handles DELETE /api/v1/rules/{id}
func (h *RuleHandler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	ruleID := mux.Vars(r)["id"]

	if err := h.store.Delete(r.Context(), ruleID); err != nil {
		respondWithError(w, http.StatusNotFound, "Rule not found")
		return
	}

	// A deleted rule must not leave cooldown state behind; a recreated
	// rule with the same ID starts with open windows.
	if h.cooldowns != nil {
		if err := h.cooldowns.DeleteRule(r.Context(), ruleID); err != nil {
			logger.Warn("Failed to clear cooldowns for deleted rule",
				logger.String("rule_id", ruleID),
				logger.ErrorField(err),
			)
		}
	}

	logger.Info("Rule deleted", logger.String("rule_id", ruleID))
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Rule deleted"})
}

// EnableRule handles POST /api/v1/rules/{id}/enable
func (h *RuleHandler) EnableRule(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, true)
}

// DisableRule handles POST /api/v1/rules/{id}/disable
func (h *RuleHandler) DisableRule(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, false)
}

func (h *RuleHandler) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	ruleID := mux.Vars(r)["id"]

	var err error
	if enabled {
		err = h.store.Enable(r.Context(), ruleID)
	} else {
		err = h.store.Disable(r.Context(), ruleID)
	}
	if err != nil {
		if errors.Is(err, models.ErrRuleNotFound) {
			respondWithError(w, http.StatusNotFound, "Rule not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to update rule")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"rule_id": ruleID,
		"enabled": enabled,
	})
}

// ListPresets handles GET /api/v1/presets
func (h *RuleHandler) ListPresets(w http.ResponseWriter, r *http.Request) {
	presets := rules.ListPresets()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"presets": presets,
		"count":   len(presets),
	})
}

// ApplyPreset handles POST /api/v1/presets/{id}/apply. It expands the
// preset into rules for the requesting owner and stores them.
func (h *RuleHandler) ApplyPreset(w http.ResponseWriter, r *http.Request) {
	preset := rules.GetPreset(mux.Vars(r)["id"])
	if preset == nil {
		respondWithError(w, http.StatusNotFound, "Preset not found")
		return
	}

	ownerID := ownerFromRequest(r)
	created := make([]*models.Rule, 0, len(preset.Rules))
	for _, rule := range preset.Expand(ownerID) {
		if err := h.store.Create(r.Context(), rule); err != nil {
			respondWithError(w, http.StatusInternalServerError,
				fmt.Sprintf("Failed to create rule %q", rule.Name))
			return
		}
		created = append(created, rule)
	}

	logger.Info("Preset applied",
		logger.String("preset_id", preset.ID),
		logger.String("owner_id", ownerID),
		logger.Int("rules", len(created)),
	)
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"preset_id": preset.ID,
		"rules":     created,
		"count":     len(created),
	})
}

// HoldingHandler handles portfolio endpoints
type HoldingHandler struct {
	store portfolio.Store
}

// NewHoldingHandler creates a new holding handler
func NewHoldingHandler(store portfolio.Store) *HoldingHandler {
	return &HoldingHandler{store: store}
}

// ListHoldings handles GET /api/v1/holdings
func (h *HoldingHandler) ListHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.store.ListHoldings(r.Context(), ownerFromRequest(r))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve holdings")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"holdings": holdings,
		"count":    len(holdings),
	})
}

// UpsertHolding handles PUT /api/v1/holdings
func (h *HoldingHandler) UpsertHolding(w http.ResponseWriter, r *http.Request) {
	var holding models.Holding
	if err := json.NewDecoder(r.Body).Decode(&holding); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if holding.ID == "" {
		holding.ID = uuid.New().String()
	}
	if holding.OwnerID == "" {
		holding.OwnerID = ownerFromRequest(r)
	}

	if err := holding.Validate(); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Upsert(r.Context(), &holding); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to save holding")
		return
	}
	respondWithJSON(w, http.StatusOK, holding)
}

// DeleteHolding handles DELETE /api/v1/holdings/{symbol}
func (h *HoldingHandler) DeleteHolding(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	if err := h.store.Delete(r.Context(), ownerFromRequest(r), symbol); err != nil {
		respondWithError(w, http.StatusNotFound, "Holding not found")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Holding deleted"})
}

// AlertHandler handles alert history endpoints
type AlertHandler struct {
	alertStorage storage.AlertStorage
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(alertStorage storage.AlertStorage) *AlertHandler {
	return &AlertHandler{alertStorage: alertStorage}
}

// ListAlerts handles GET /api/v1/alerts
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	filter := storage.AlertFilter{
		OwnerID: r.URL.Query().Get("owner_id"),
		Symbol:  r.URL.Query().Get("symbol"),
		RuleID:  r.URL.Query().Get("rule_id"),
		Limit:   100,
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := parseInt(limitStr); err == nil && limit > 0 && limit <= 1000 {
			filter.Limit = limit
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := parseInt(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}
	if startStr := r.URL.Query().Get("start_time"); startStr != "" {
		if start, err := time.Parse(time.RFC3339, startStr); err == nil {
			filter.StartTime = start
		}
	}
	if endStr := r.URL.Query().Get("end_time"); endStr != "" {
		if end, err := time.Parse(time.RFC3339, endStr); err == nil {
			filter.EndTime = end
		}
	}

	alerts, err := h.alertStorage.GetAlerts(r.Context(), filter)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve alerts")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// GetAlert handles GET /api/v1/alerts/{id}
func (h *AlertHandler) GetAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := h.alertStorage.GetAlert(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve alert")
		return
	}
	if alert == nil {
		respondWithError(w, http.StatusNotFound, "Alert not found")
		return
	}
	respondWithJSON(w, http.StatusOK, alert)
}

// SchedulerControl is what the monitor endpoints need from the scheduler
type SchedulerControl interface {
	RunNow(ctx context.Context, ownerID string) (*models.CycleReport, error)
	LastReport() *models.CycleReport
}

// MonitorHandler exposes the evaluation loop over HTTP
type MonitorHandler struct {
	scheduler SchedulerControl
}

// NewMonitorHandler creates a monitor handler
func NewMonitorHandler(scheduler SchedulerControl) *MonitorHandler {
	return &MonitorHandler{scheduler: scheduler}
}

// RunCycle handles POST /api/v1/monitor/run
func (h *MonitorHandler) RunCycle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OwnerID string `json:"owner_id"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	report, err := h.scheduler.RunNow(r.Context(), body.OwnerID)
	if err != nil {
		if errors.Is(err, models.ErrCycleInFlight) {
			respondWithError(w, http.StatusConflict, "A cycle is already running")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Cycle failed: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

// Stats handles GET /api/v1/monitor/stats
func (h *MonitorHandler) Stats(w http.ResponseWriter, r *http.Request) {
	report := h.scheduler.LastReport()
	if report == nil {
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"last_cycle": nil,
		})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"last_cycle": report,
	})
}

// Helper functions

func parseInt(s string) (int, error) {
	var result int
	_, err := fmt.Sscanf(s, "%d", &result)
	return result, err
}

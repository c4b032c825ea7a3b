package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mjhoover1/Intelligent-Investing/internal/ledger"
	"github.com/mjhoover1/Intelligent-Investing/internal/portfolio"
	"github.com/mjhoover1/Intelligent-Investing/internal/rules"
	"github.com/mjhoover1/Intelligent-Investing/internal/storage"
)

// Deps collects everything the HTTP surface needs
type Deps struct {
	Rules     rules.Store
	Holdings  portfolio.Store
	Alerts    storage.AlertStorage
	Cooldowns ledger.Ledger
	Scheduler SchedulerControl

	// Ready reports whether downstream dependencies are reachable.
	// nil means always ready.
	Ready func() error
}

// NewRouter builds the full HTTP surface: rule and holding management,
// alert history, monitor control, health probes and metrics.
func NewRouter(deps Deps) *mux.Router {
	router := mux.NewRouter()

	chain := ChainMiddleware(
		ErrorHandlingMiddleware(),
		LoggingMiddleware(),
		CORSMiddleware(),
	)
	router.Use(mux.MiddlewareFunc(chain))

	// Health probes
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ready != nil {
			if err := deps.Ready(); err != nil {
				respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "not ready",
					"reason": err.Error(),
				})
				return
			}
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}).Methods(http.MethodGet)

	router.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	}).Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := router.PathPrefix("/api/v1").Subrouter()

	ruleHandler := NewRuleHandler(deps.Rules, deps.Cooldowns)
	v1.HandleFunc("/rules", ruleHandler.ListRules).Methods(http.MethodGet)
	v1.HandleFunc("/rules", ruleHandler.CreateRule).Methods(http.MethodPost)
	v1.HandleFunc("/rules/{id}", ruleHandler.GetRule).Methods(http.MethodGet)
	v1.HandleFunc("/rules/{id}", ruleHandler.UpdateRule).Methods(http.MethodPut)
	v1.HandleFunc("/rules/{id}", ruleHandler.DeleteRule).Methods(http.MethodDelete)
	v1.HandleFunc("/rules/{id}/enable", ruleHandler.EnableRule).Methods(http.MethodPost)
	v1.HandleFunc("/rules/{id}/disable", ruleHandler.DisableRule).Methods(http.MethodPost)
	v1.HandleFunc("/presets", ruleHandler.ListPresets).Methods(http.MethodGet)
	v1.HandleFunc("/presets/{id}/apply", ruleHandler.ApplyPreset).Methods(http.MethodPost)

	holdingHandler := NewHoldingHandler(deps.Holdings)
	v1.HandleFunc("/holdings", holdingHandler.ListHoldings).Methods(http.MethodGet)
	v1.HandleFunc("/holdings", holdingHandler.UpsertHolding).Methods(http.MethodPut)
	v1.HandleFunc("/holdings/{symbol}", holdingHandler.DeleteHolding).Methods(http.MethodDelete)

	alertHandler := NewAlertHandler(deps.Alerts)
	v1.HandleFunc("/alerts", alertHandler.ListAlerts).Methods(http.MethodGet)
	v1.HandleFunc("/alerts/{id}", alertHandler.GetAlert).Methods(http.MethodGet)

	monitorHandler := NewMonitorHandler(deps.Scheduler)
	v1.HandleFunc("/monitor/run", monitorHandler.RunCycle).Methods(http.MethodPost)
	v1.HandleFunc("/monitor/stats", monitorHandler.Stats).Methods(http.MethodGet)

	return router
}

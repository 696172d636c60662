package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/repository"
	"github.com/opensource-finance/kestrel/internal/rules"
	"github.com/opensource-finance/kestrel/internal/scoring"
	"github.com/opensource-finance/kestrel/internal/worker"
)

// riskCacheTTL bounds how stale a cached risk read may be.
const riskCacheTTL = 5 * time.Minute

// Handler holds dependencies for API handlers.
type Handler struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	engine   *rules.Engine
	pipeline *scoring.Pipeline
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, engine *rules.Engine, pipeline *scoring.Pipeline, version string) *Handler {
	return &Handler{
		repo:     repo,
		cache:    cache,
		bus:      bus,
		engine:   engine,
		pipeline: pipeline,
		version:  version,
	}
}

// ScoreRequest is the request body for POST /score: a complete snapshot to
// score inline.
type ScoreRequest struct {
	Profiles     []*domain.CustomerProfile `json:"profiles"`
	Transactions []*domain.Transaction     `json:"transactions"`
}

// Score handles POST /score. The snapshot in the body is ingested, scored
// synchronously, persisted, and the full run result returned.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if len(req.Profiles) == 0 && len(req.Transactions) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "snapshot is empty",
		})
		return
	}

	// Persist the snapshot before scoring so async re-runs see the same data.
	if h.repo != nil {
		for _, p := range req.Profiles {
			if err := h.repo.SaveProfile(ctx, tenantID, p); err != nil {
				slog.Error("failed to save profile", "customer_id", p.CustomerID, "error", err)
			}
		}
		for _, tx := range req.Transactions {
			if err := h.repo.SaveTransaction(ctx, tenantID, tx); err != nil {
				slog.Error("failed to save transaction", "order_id", tx.OrderID, "error", err)
			}
		}
	}

	result, err := h.pipeline.Run(ctx, &scoring.Snapshot{
		TenantID:     tenantID,
		Profiles:     req.Profiles,
		Transactions: req.Transactions,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDataIntegrity) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error": err.Error(),
			})
			return
		}
		slog.Error("scoring run failed", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "scoring run failed",
		})
		return
	}

	h.persistResult(ctx, tenantID, result)

	writeJSON(w, http.StatusOK, result)
}

// persistResult stores every derived record family of a run.
func (h *Handler) persistResult(ctx context.Context, tenantID string, result *domain.RunResult) {
	if h.repo == nil {
		return
	}

	indicatorsByCustomer := make(map[string][]domain.FraudIndicator)
	for _, ind := range result.Indicators {
		indicatorsByCustomer[ind.CustomerID] = append(indicatorsByCustomer[ind.CustomerID], ind)
	}

	for _, score := range result.RiskScores {
		if err := h.repo.UpsertRiskScore(ctx, tenantID, score); err != nil {
			slog.Error("failed to save risk score", "customer_id", score.CustomerID, "error", err)
		}
		if err := h.repo.ReplaceIndicators(ctx, tenantID, score.CustomerID, indicatorsByCustomer[score.CustomerID]); err != nil {
			slog.Error("failed to save indicators", "customer_id", score.CustomerID, "error", err)
		}
		if h.cache != nil {
			_ = h.cache.SetRiskScore(ctx, tenantID, score.CustomerID, &domain.RiskCache{
				CustomerID:     score.CustomerID,
				CompositeScore: score.CompositeScore,
				RiskLevel:      score.RiskLevel,
				AnalyzedAt:     score.AnalyzedAt,
			}, riskCacheTTL)
		}
	}
	for _, seg := range result.Segmentations {
		if err := h.repo.UpsertSegmentation(ctx, tenantID, seg); err != nil {
			slog.Error("failed to save segmentation", "customer_id", seg.CustomerID, "error", err)
		}
	}
	for _, action := range result.Actions {
		if err := h.repo.UpsertAction(ctx, tenantID, action); err != nil {
			slog.Error("failed to save action", "customer_id", action.CustomerID, "error", err)
		}
	}
	for _, alert := range result.Alerts {
		if err := h.repo.SaveAlert(ctx, tenantID, alert); err != nil {
			slog.Error("failed to save alert", "alert_id", alert.AlertID, "error", err)
		}
	}
}

// TriggerRun handles POST /runs: publishes a run trigger for the tenant's
// stored snapshot and returns immediately. A worker picks it up.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	if h.bus == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "event bus not available",
		})
		return
	}

	payload, _ := json.Marshal(worker.SnapshotMessage{
		TenantID: tenantID,
		TraceID:  GetTraceID(ctx),
	})
	if err := h.bus.Publish(ctx, tenantID, domain.TopicSnapshotIngested, payload); err != nil {
		slog.Error("failed to publish run trigger", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to trigger run",
		})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":   "accepted",
		"tenantId": tenantID,
	})
}

// GetCustomerRisk handles GET /customers/{id}/risk with a cache read-through.
func (h *Handler) GetCustomerRisk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	customerID := chi.URLParam(r, "id")

	if h.cache != nil {
		if cached, err := h.cache.GetRiskScore(ctx, tenantID, customerID); err == nil && cached != nil {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	score, err := h.repo.GetRiskScore(ctx, tenantID, customerID)
	if err != nil {
		h.writeRepoError(w, "risk score", customerID, err)
		return
	}

	if h.cache != nil {
		_ = h.cache.SetRiskScore(ctx, tenantID, customerID, &domain.RiskCache{
			CustomerID:     score.CustomerID,
			CompositeScore: score.CompositeScore,
			RiskLevel:      score.RiskLevel,
			AnalyzedAt:     score.AnalyzedAt,
		}, riskCacheTTL)
	}

	writeJSON(w, http.StatusOK, score)
}

// GetCustomerSegmentation handles GET /customers/{id}/segmentation.
func (h *Handler) GetCustomerSegmentation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	customerID := chi.URLParam(r, "id")

	seg, err := h.repo.GetSegmentation(ctx, tenantID, customerID)
	if err != nil {
		h.writeRepoError(w, "segmentation", customerID, err)
		return
	}
	writeJSON(w, http.StatusOK, seg)
}

// GetCustomerAction handles GET /customers/{id}/action.
func (h *Handler) GetCustomerAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	customerID := chi.URLParam(r, "id")

	action, err := h.repo.GetAction(ctx, tenantID, customerID)
	if err != nil {
		h.writeRepoError(w, "action", customerID, err)
		return
	}
	writeJSON(w, http.StatusOK, action)
}

// GetCustomerIndicators handles GET /customers/{id}/indicators.
func (h *Handler) GetCustomerIndicators(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	customerID := chi.URLParam(r, "id")

	indicators, err := h.repo.ListIndicators(ctx, tenantID, customerID)
	if err != nil {
		h.writeRepoError(w, "indicators", customerID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"customerId": customerID,
		"indicators": indicators,
		"count":      len(indicators),
	})
}

// ListAlerts handles GET /alerts?since=RFC3339.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "since must be RFC3339",
			})
			return
		}
		since = parsed
	}

	alerts, err := h.repo.ListAlerts(ctx, tenantID, since)
	if err != nil {
		slog.Error("failed to list alerts", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list alerts",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// GlobalTenantID is used for indicator rules that apply to all tenants.
const GlobalTenantID = "*"

// ListRules returns all rules currently loaded in the engine.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	loaded := h.engine.GetLoadedRules()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules": loaded,
		"count": len(loaded),
	})
}

// GetRule retrieves a loaded rule by ID.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	for _, rule := range h.engine.GetLoadedRules() {
		if rule.ID == ruleID {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "rule not found",
	})
}

// CreateRuleRequest is the request body for creating an indicator rule.
type CreateRuleRequest struct {
	ID                  string                `json:"id"`
	Name                string                `json:"name"`
	Description         string                `json:"description,omitempty"`
	Expression          string                `json:"expression"`
	Bands               []domain.SeverityBand `json:"bands"`
	ContributingFactors []string              `json:"contributingFactors,omitempty"`
	Enabled             bool                  `json:"enabled"`
}

// CreateRule creates a new indicator rule. Rules are saved globally
// (tenant_id = "*") and loaded into the running engine immediately.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, and expression are required",
		})
		return
	}

	rule := &domain.IndicatorRule{
		ID:                  req.ID,
		TenantID:            GlobalTenantID,
		Name:                req.Name,
		Description:         req.Description,
		Version:             "1.0.0",
		Expression:          req.Expression,
		Bands:               req.Bands,
		ContributingFactors: req.ContributingFactors,
		Enabled:             req.Enabled,
	}

	// Compiles the expression; a bad rule never reaches the database.
	if err := h.engine.LoadRule(rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid rule: " + err.Error(),
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveIndicatorRule(ctx, GlobalTenantID, rule); err != nil {
			slog.Error("failed to save rule", "id", rule.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save rule",
			})
			return
		}
	}

	slog.Info("rule created", "id", rule.ID, "name", rule.Name)
	writeJSON(w, http.StatusCreated, rule)
}

// DeleteRule disables a rule and reloads the engine from the database.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ruleID := chi.URLParam(r, "id")

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	if err := h.repo.DeleteIndicatorRule(ctx, GlobalTenantID, ruleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "rule not found",
			})
			return
		}
		slog.Error("failed to delete rule", "id", ruleID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to delete rule",
		})
		return
	}

	h.reloadFromRepo(ctx)

	slog.Info("rule deleted", "id", ruleID)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "rule deleted",
	})
}

// ReloadRules reloads all enabled rules from the database into the engine.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	count, err := h.reloadFromRepo(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rules reloaded",
		"count":   count,
	})
}

func (h *Handler) reloadFromRepo(ctx context.Context) (int, error) {
	dbRules, err := h.repo.ListIndicatorRules(ctx, GlobalTenantID)
	if err != nil {
		slog.Error("failed to list rules from database", "error", err)
		return 0, err
	}
	if err := h.engine.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload rules into engine", "error", err)
		return 0, err
	}
	slog.Info("rules reloaded from database", "count", len(dbRules))
	return len(dbRules), nil
}

func (h *Handler) writeRepoError(w http.ResponseWriter, what, customerID string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": what + " not found",
		})
		return
	}
	slog.Error("failed to get "+what, "customer_id", customerID, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "failed to get " + what,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

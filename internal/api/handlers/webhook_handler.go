package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	apiContext "pagehook/internal/api/context"
	"pagehook/internal/api/middleware"
	"pagehook/internal/engine/query"
	"pagehook/internal/engine/webhooks"
	"pagehook/internal/pkg/errors"
	"pagehook/internal/platform/audit"
	"pagehook/internal/platform/config"
	"pagehook/internal/platform/models"
	"pagehook/internal/platform/repositories"
)

// WebhookHandler exposes the webhook registry plus test and health actions.
// Engine objects are built per-request on the tenant database handle.
type WebhookHandler struct {
	cfg         config.WebhooksConfig
	audit       *audit.Logger
	queryClient *query.Client
}

func NewWebhookHandler(cfg config.WebhooksConfig, auditLogger *audit.Logger, queryClient *query.Client) *WebhookHandler {
	return &WebhookHandler{
		cfg:         cfg,
		audit:       auditLogger,
		queryClient: queryClient,
	}
}

func tenantFrom(r *http.Request) *middleware.TenantContext {
	return r.Context().Value(apiContext.Tenant).(*middleware.TenantContext)
}

func paramsFrom(r *http.Request) httprouter.Params {
	return r.Context().Value(apiContext.Params).(httprouter.Params)
}

func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)

	var def webhooks.WebhookDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	hook, err := webhooks.NewRegistry(tenant.DB).Create(tenant.OrgID, def)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	h.audit.Log(r.Context(), "webhook.create", "webhook", hook.ID, map[string]interface{}{"name": hook.Name})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(hook)
}

func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)

	hooks, err := webhooks.NewRegistry(tenant.DB).List()
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}
	if hooks == nil {
		hooks = []*models.Webhook{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(hooks)
}

func (h *WebhookHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id := paramsFrom(r).ByName("webhook_id")

	hook, err := webhooks.NewRegistry(tenant.DB).Get(id)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(hook)
}

func (h *WebhookHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id := paramsFrom(r).ByName("webhook_id")

	var params webhooks.UpdateParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	hook, err := webhooks.NewRegistry(tenant.DB).Update(id, params)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	h.audit.Log(r.Context(), "webhook.update", "webhook", hook.ID, nil)
	h.queryClient.InvalidateOrg(tenant.OrgID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(hook)
}

func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id := paramsFrom(r).ByName("webhook_id")
	cascade := r.URL.Query().Get("cascade") == "true"

	if err := webhooks.NewRegistry(tenant.DB).Delete(id, cascade); err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	h.audit.Log(r.Context(), "webhook.delete", "webhook", id, map[string]interface{}{"cascade": cascade})
	h.queryClient.InvalidateOrg(tenant.OrgID)

	w.WriteHeader(http.StatusNoContent)
}

type SetActiveRequest struct {
	Active bool `json:"active"`
}

func (h *WebhookHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id := paramsFrom(r).ByName("webhook_id")

	var req SetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	hook, err := webhooks.NewRegistry(tenant.DB).SetActive(id, req.Active)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	h.audit.Log(r.Context(), "webhook.set_active", "webhook", id, map[string]interface{}{"active": req.Active})
	h.queryClient.InvalidateOrg(tenant.OrgID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(hook)
}

type BulkSetActiveRequest struct {
	IDs    []string `json:"ids"`
	Active bool     `json:"active"`
}

func (h *WebhookHandler) BulkSetActive(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)

	var req BulkSetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if len(req.IDs) == 0 {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "At least one webhook id is required", nil)
		return
	}

	result := webhooks.NewRegistry(tenant.DB).BulkSetActive(req.IDs, req.Active)

	h.audit.Log(r.Context(), "webhook.bulk_set_active", "webhook", "", map[string]interface{}{
		"requested": len(req.IDs),
		"succeeded": len(result.Succeeded),
		"active":    req.Active,
	})
	h.queryClient.InvalidateOrg(tenant.OrgID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

type TestRequest struct {
	EventType string `json:"event_type"`
}

func (h *WebhookHandler) Test(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id := paramsFrom(r).ByName("webhook_id")

	var req TestRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	engine := webhooks.NewTriggerEngine(tenant.DB, h.cfg)
	outcome, err := webhooks.NewHealthTracker(tenant.DB, engine).RunTest(r.Context(), id, req.EventType)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	h.audit.Log(r.Context(), "webhook.test", "webhook", id, map[string]interface{}{"status": outcome.Status})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(outcome)
}

func (h *WebhookHandler) Health(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id := paramsFrom(r).ByName("webhook_id")

	engine := webhooks.NewTriggerEngine(tenant.DB, h.cfg)
	report, err := webhooks.NewHealthTracker(tenant.DB, engine).Report(id)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

func (h *WebhookHandler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id := paramsFrom(r).ByName("webhook_id")

	if _, err := webhooks.NewRegistry(tenant.DB).Get(id); err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	records, err := repositories.NewExecutionRepository(tenant.DB).ListByWebhook(id, limit)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}
	if records == nil {
		records = []*models.ExecutionRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

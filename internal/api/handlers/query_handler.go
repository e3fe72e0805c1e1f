package handlers

import (
	"encoding/json"
	"net/http"

	apiContext "pagehook/internal/api/context"
	"pagehook/internal/engine/query"
	"pagehook/internal/pkg/errors"
	"pagehook/internal/platform/auth"
)

// QueryHandler is the consumer-facing surface UI pages call: cheap existence
// checks for rendering trigger affordances, and the trigger action itself.
type QueryHandler struct {
	client *query.Client
}

func NewQueryHandler(client *query.Client) *QueryHandler {
	return &QueryHandler{client: client}
}

func (h *QueryHandler) HasWebhook(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	params := paramsFrom(r)
	page := params.ByName("page")
	position := params.ByName("position")

	view, err := h.client.GetWebhookAt(tenant.DB, tenant.OrgID, page, position)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	resp := map[string]interface{}{
		"page":       page,
		"position":   position,
		"configured": view != nil,
	}
	if view != nil {
		resp["webhook_id"] = view.WebhookID
		resp["webhook_name"] = view.WebhookName
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *QueryHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	page := r.URL.Query().Get("page")

	views, err := h.client.ListAssignments(tenant.DB, tenant.OrgID, page)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

type TriggerRequest struct {
	Payload map[string]interface{} `json:"payload"`
	Extra   map[string]interface{} `json:"extra"`
}

func (h *QueryHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)
	params := paramsFrom(r)
	page := params.ByName("page")
	position := params.ByName("position")

	var req TriggerRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	outcome, err := h.client.TriggerWebhookAt(r.Context(), tenant.DB, tenant.OrgID, claims.UserID, page, position, req.Payload, req.Extra)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(outcome)
}

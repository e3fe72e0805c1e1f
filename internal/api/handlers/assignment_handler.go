package handlers

import (
	"encoding/json"
	"net/http"

	"pagehook/internal/engine/query"
	"pagehook/internal/engine/webhooks"
	"pagehook/internal/pkg/errors"
	"pagehook/internal/platform/audit"
	"pagehook/internal/platform/models"
)

// AssignmentHandler manages the page/position bindings that wire webhooks
// into UI slots.
type AssignmentHandler struct {
	audit       *audit.Logger
	queryClient *query.Client
}

func NewAssignmentHandler(auditLogger *audit.Logger, queryClient *query.Client) *AssignmentHandler {
	return &AssignmentHandler{
		audit:       auditLogger,
		queryClient: queryClient,
	}
}

func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	page := r.URL.Query().Get("page")

	views, err := webhooks.NewAssignmentMap(tenant.DB).ListViews(tenant.OrgID, page)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}
	if views == nil {
		views = []*models.AssignmentView{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

type AssignRequest struct {
	Page      string `json:"page"`
	Position  string `json:"position"`
	WebhookID string `json:"webhook_id"`
}

func (h *AssignmentHandler) Assign(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)

	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	assignment, err := webhooks.NewAssignmentMap(tenant.DB).Assign(tenant.OrgID, req.Page, req.Position, req.WebhookID)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	h.audit.Log(r.Context(), "assignment.create", "assignment", assignment.ID, map[string]interface{}{
		"page":       req.Page,
		"position":   req.Position,
		"webhook_id": req.WebhookID,
	})
	h.queryClient.Invalidate(tenant.OrgID, req.Page)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(assignment)
}

func (h *AssignmentHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id := paramsFrom(r).ByName("assignment_id")

	if err := webhooks.NewAssignmentMap(tenant.DB).Unassign(id); err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	h.audit.Log(r.Context(), "assignment.delete", "assignment", id, nil)
	h.queryClient.InvalidateOrg(tenant.OrgID)

	w.WriteHeader(http.StatusNoContent)
}

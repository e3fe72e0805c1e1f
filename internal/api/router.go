package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "pagehook/internal/api/context"
	"pagehook/internal/api/handlers"
	"pagehook/internal/api/middleware"
	"pagehook/internal/pkg/errors"
	"pagehook/internal/platform/auth"
)

type Dependencies struct {
	AuthHandler       *handlers.AuthHandler
	OrgHandler        *handlers.OrgHandler
	InviteHandler     *handlers.InviteHandler
	UserHandler       *handlers.UserHandler
	WebhookHandler    *handlers.WebhookHandler
	AssignmentHandler *handlers.AssignmentHandler
	QueryHandler      *handlers.QueryHandler
	APIKeyHandler     *handlers.APIKeyHandler
	AuditHandler      *handlers.AuditHandler
	HealthHandler     *handlers.HealthHandler
	AuthMiddleware    *middleware.AuthMiddleware
	TenantMiddleware  *middleware.TenantMiddleware
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	// Service health
	router.GET("/healthz", wrap(deps.HealthHandler.Check))

	// Authentication routes
	router.POST("/api/v1/auth/signup", wrap(deps.AuthHandler.Signup))
	router.POST("/api/v1/auth/login", wrap(deps.AuthHandler.Login))
	router.POST("/api/v1/auth/refresh", wrap(deps.AuthHandler.Refresh))

	authMid := deps.AuthMiddleware
	tenantMid := deps.TenantMiddleware

	// Organization management
	router.POST("/api/v1/organizations", wrap(deps.OrgHandler.Create))
	router.GET("/api/v1/organizations/current",
		chain(deps.OrgHandler.GetCurrent, authMid.Handle, tenantMid.Handle))
	router.PATCH("/api/v1/organizations/current",
		chain(deps.OrgHandler.Update, authMid.Handle, tenantMid.Handle, requireRole("admin", "owner")))

	// Invite management
	router.POST("/api/v1/invites",
		chain(deps.InviteHandler.Create, authMid.Handle, tenantMid.Handle, requireRole("admin", "owner")))
	router.GET("/api/v1/invites",
		chain(deps.InviteHandler.List, authMid.Handle, tenantMid.Handle, requireRole("admin", "owner")))
	router.DELETE("/api/v1/invites/:invite_id",
		chain(deps.InviteHandler.Revoke, authMid.Handle, tenantMid.Handle, requireRole("admin", "owner")))

	// User management
	router.GET("/api/v1/users",
		chain(deps.UserHandler.List, authMid.Handle, tenantMid.Handle, requireRole("admin", "owner")))
	router.GET("/api/v1/users/:user_id",
		chain(deps.UserHandler.Get, authMid.Handle, tenantMid.Handle))
	router.PATCH("/api/v1/users/:user_id/role",
		chain(deps.UserHandler.UpdateRole, authMid.Handle, tenantMid.Handle, requireRole("owner")))
	router.DELETE("/api/v1/users/:user_id",
		chain(deps.UserHandler.Delete, authMid.Handle, tenantMid.Handle, requireRole("owner")))

	// Webhook registry
	router.POST("/api/v1/webhooks",
		chain(deps.WebhookHandler.Create, authMid.Handle, tenantMid.Handle, middleware.RateLimit("api_write"), requireRole("admin", "owner")))
	router.GET("/api/v1/webhooks",
		chain(deps.WebhookHandler.List, authMid.Handle, tenantMid.Handle, middleware.RateLimit("api_read")))
	router.POST("/api/v1/bulk/webhooks/active",
		chain(deps.WebhookHandler.BulkSetActive, authMid.Handle, tenantMid.Handle, middleware.RateLimit("api_write"), requireRole("admin", "owner")))
	router.GET("/api/v1/webhooks/:webhook_id",
		chain(deps.WebhookHandler.Get, authMid.Handle, tenantMid.Handle, middleware.RateLimit("api_read")))
	router.PATCH("/api/v1/webhooks/:webhook_id",
		chain(deps.WebhookHandler.Update, authMid.Handle, tenantMid.Handle, middleware.RateLimit("api_write"), requireRole("admin", "owner")))
	router.DELETE("/api/v1/webhooks/:webhook_id",
		chain(deps.WebhookHandler.Delete, authMid.Handle, tenantMid.Handle, middleware.RateLimit("api_write"), requireRole("admin", "owner")))
	router.PATCH("/api/v1/webhooks/:webhook_id/active",
		chain(deps.WebhookHandler.SetActive, authMid.Handle, tenantMid.Handle, middleware.RateLimit("api_write"), requireRole("admin", "owner")))

	// Webhook testing and health
	router.POST("/api/v1/webhooks/:webhook_id/test",
		chain(deps.WebhookHandler.Test, authMid.Handle, tenantMid.Handle, middleware.RateLimit("trigger"), requireRole("admin", "owner")))
	router.GET("/api/v1/webhooks/:webhook_id/health",
		chain(deps.WebhookHandler.Health, authMid.Handle, tenantMid.Handle, middleware.RateLimit("api_read")))
	router.GET("/api/v1/webhooks/:webhook_id/executions",
		chain(deps.WebhookHandler.ListExecutions, authMid.Handle, tenantMid.Handle, middleware.RateLimit("api_read")))

	// Assignments
	router.GET("/api/v1/assignments",
		chain(deps.AssignmentHandler.List, authMid.Handle, tenantMid.Handle, middleware.RateLimit("api_read")))
	router.POST("/api/v1/assignments",
		chain(deps.AssignmentHandler.Assign, authMid.Handle, tenantMid.Handle, middleware.RateLimit("api_write"), requireRole("admin", "owner")))
	router.DELETE("/api/v1/assignments/:assignment_id",
		chain(deps.AssignmentHandler.Unassign, authMid.Handle, tenantMid.Handle, middleware.RateLimit("api_write"), requireRole("admin", "owner")))

	// Consumer query surface: what UI pages call to render and fire triggers
	router.GET("/api/v1/pages/:page/positions/:position/webhook",
		chain(deps.QueryHandler.HasWebhook, authMid.Handle, tenantMid.Handle, middleware.RateLimit("api_read")))
	router.POST("/api/v1/pages/:page/positions/:position/trigger",
		chain(deps.QueryHandler.Trigger, authMid.Handle, tenantMid.Handle, middleware.RateLimit("trigger")))
	router.GET("/api/v1/page-assignments",
		chain(deps.QueryHandler.ListAssignments, authMid.Handle, tenantMid.Handle, middleware.RateLimit("api_read")))

	// API keys
	router.POST("/api/v1/api-keys",
		chain(deps.APIKeyHandler.Create, authMid.Handle, requireRole("admin", "owner")))
	router.GET("/api/v1/api-keys",
		chain(deps.APIKeyHandler.List, authMid.Handle, requireRole("admin", "owner")))
	router.DELETE("/api/v1/api-keys/:key_id",
		chain(deps.APIKeyHandler.Revoke, authMid.Handle, requireRole("admin", "owner")))

	// Audit log
	router.GET("/api/v1/audit-logs",
		chain(deps.AuditHandler.List, authMid.Handle, requireRole("admin", "owner")))

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		// Inject params into context
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}

func requireRole(roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims := r.Context().Value(apiContext.Claims).(*auth.Claims)

			allowed := false
			for _, role := range roles {
				if claims.Role == role {
					allowed = true
					break
				}
			}

			if !allowed {
				errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Insufficient permissions", nil)
				return
			}

			next(w, r)
		}
	}
}

package main

import (
	"fmt"
	"log"
	"net/http"

	"pagehook/internal/api"
	"pagehook/internal/api/handlers"
	"pagehook/internal/api/middleware"
	"pagehook/internal/engine/query"
	"pagehook/internal/pkg/logger"
	"pagehook/internal/platform/audit"
	"pagehook/internal/platform/auth"
	"pagehook/internal/platform/config"
	"pagehook/internal/platform/database"
	"pagehook/internal/platform/repositories"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logging)

	// Database Connections
	globalDB, err := database.NewGlobalDB(cfg.Database.Global)
	if err != nil {
		log.Fatalf("Failed to connect to global DB: %v", err)
	}
	defer globalDB.Close()

	if err := database.MigrateGlobal(globalDB); err != nil {
		log.Fatalf("Failed to migrate global DB: %v", err)
	}

	globalDBWrapper := database.NewGlobalDBWrapper(globalDB)

	tenantDBPool := database.NewTenantDBPool(cfg.Database.Tenant)
	defer tenantDBPool.CloseAll()

	// Repositories
	orgRepo := repositories.NewOrganizationRepository(globalDB)
	userRepo := repositories.NewUserRepository(globalDB)
	inviteRepo := repositories.NewInviteRepository(globalDB)
	apiKeyRepo := repositories.NewAPIKeyRepository(globalDB)

	// Services
	tokenSvc := auth.NewTokenService(cfg.JWT)
	auditLogger := audit.NewLogger(globalDB)
	queryClient := query.NewClient(cfg.Cache.AssignmentTTL, cfg.Webhooks)

	middleware.ConfigureRateLimits(cfg.RateLimit)

	// Handlers
	authHandler := handlers.NewAuthHandler(userRepo, orgRepo, inviteRepo, tokenSvc)
	orgHandler := handlers.NewOrgHandler(orgRepo, userRepo, tokenSvc, tenantDBPool)
	inviteHandler := handlers.NewInviteHandler(inviteRepo)
	userHandler := handlers.NewUserHandler(userRepo)
	webhookHandler := handlers.NewWebhookHandler(cfg.Webhooks, auditLogger, queryClient)
	assignmentHandler := handlers.NewAssignmentHandler(auditLogger, queryClient)
	queryHandler := handlers.NewQueryHandler(queryClient)
	apiKeyHandler := handlers.NewAPIKeyHandler(globalDBWrapper)
	auditHandler := handlers.NewAuditHandler(globalDBWrapper)
	healthHandler := handlers.NewHealthHandler(globalDBWrapper)

	// Middleware
	apiKeyAuth := middleware.NewAPIKeyAuthenticator(apiKeyRepo)
	authMiddleware := middleware.NewAuthMiddleware(tokenSvc, apiKeyAuth)
	tenantMiddleware := middleware.NewTenantMiddleware(orgRepo, tenantDBPool)

	// Router
	deps := &api.Dependencies{
		AuthHandler:       authHandler,
		OrgHandler:        orgHandler,
		InviteHandler:     inviteHandler,
		UserHandler:       userHandler,
		WebhookHandler:    webhookHandler,
		AssignmentHandler: assignmentHandler,
		QueryHandler:      queryHandler,
		APIKeyHandler:     apiKeyHandler,
		AuditHandler:      auditHandler,
		HealthHandler:     healthHandler,
		AuthMiddleware:    authMiddleware,
		TenantMiddleware:  tenantMiddleware,
	}
	router := api.NewRouter(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"pagehook/internal/pkg/logger"
	"pagehook/internal/platform/config"
	"pagehook/internal/platform/database"
	"pagehook/internal/platform/repositories"
	"pagehook/internal/workers"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logging)

	globalDB, err := database.NewGlobalDB(cfg.Database.Global)
	if err != nil {
		log.Fatalf("Failed to connect to global DB: %v", err)
	}
	defer globalDB.Close()

	tenantDBPool := database.NewTenantDBPool(cfg.Database.Tenant)
	defer tenantDBPool.CloseAll()

	orgRepo := repositories.NewOrganizationRepository(globalDB)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := workers.NewHealthCheckRunner(orgRepo, tenantDBPool, cfg.Webhooks)
	runner.Run(ctx)
}

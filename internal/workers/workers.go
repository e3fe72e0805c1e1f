package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"pagehook/internal/engine/webhooks"
	"pagehook/internal/platform/config"
	"pagehook/internal/platform/database"
	"pagehook/internal/platform/repositories"
)

// HealthCheckRunner periodically fires test invocations at every webhook
// that has health checks enabled, across all tenants. Results land on the
// webhook's last-test fields, so dashboard health derivation picks them up
// without any extra bookkeeping here.
type HealthCheckRunner struct {
	orgRepo *repositories.OrganizationRepository
	dbPool  *database.TenantDBPool
	cfg     config.WebhooksConfig
}

func NewHealthCheckRunner(orgRepo *repositories.OrganizationRepository, dbPool *database.TenantDBPool, cfg config.WebhooksConfig) *HealthCheckRunner {
	return &HealthCheckRunner{
		orgRepo: orgRepo,
		dbPool:  dbPool,
		cfg:     cfg,
	}
}

// Run blocks, sweeping all tenants on the configured interval until the
// context is cancelled.
func (r *HealthCheckRunner) Run(ctx context.Context) {
	interval := r.cfg.HealthTestInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("Health check runner started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Health check runner stopping")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *HealthCheckRunner) sweep(ctx context.Context) {
	orgs, err := r.orgRepo.List()
	if err != nil {
		log.Error().Err(err).Msg("Health sweep: failed to list organizations")
		return
	}

	for _, org := range orgs {
		if org.DeletedAt != nil {
			continue
		}
		if err := r.sweepOrg(ctx, org.ID, org.DBFilePath); err != nil {
			log.Error().Err(err).Str("org_id", org.ID).Msg("Health sweep failed for organization")
		}
	}
}

func (r *HealthCheckRunner) sweepOrg(ctx context.Context, orgID, dbFilePath string) error {
	db, err := r.dbPool.Get(orgID, dbFilePath)
	if err != nil {
		return err
	}

	hooks, err := repositories.NewWebhookRepository(db).ListHealthCheckEnabled()
	if err != nil {
		return err
	}

	engine := webhooks.NewTriggerEngine(db, r.cfg)
	tracker := webhooks.NewHealthTracker(db, engine)

	for _, hook := range hooks {
		prev := hook.LastTestStatus

		outcome, err := tracker.RunTest(ctx, hook.ID, r.cfg.HealthTestEventType)
		if err != nil {
			log.Warn().Err(err).Str("webhook_id", hook.ID).Msg("Health test failed to run")
			continue
		}

		if prev != "" && prev != outcome.Status {
			log.Info().
				Str("org_id", orgID).
				Str("webhook_id", hook.ID).
				Str("from", prev).
				Str("to", outcome.Status).
				Msg("Webhook health status changed")
		}
	}
	return nil
}

package webhooks

import (
	"context"
	"database/sql"
	"time"

	apperrors "pagehook/internal/pkg/errors"
	"pagehook/internal/platform/models"
	"pagehook/internal/platform/repositories"
)

const DefaultTestEventType = "webhook.test"

// DeriveHealth classifies a webhook from its most recent explicit test and,
// failing that, the production success rate. The last test always takes
// priority over the aggregate counters.
func DeriveHealth(w *models.Webhook) models.HealthStatus {
	switch w.LastTestStatus {
	case models.ExecutionStatusSuccess:
		return models.HealthStatusHealthy
	case models.ExecutionStatusFailed, models.ExecutionStatusTimeout:
		return models.HealthStatusError
	}

	if w.TotalExecutions > 0 {
		rate := float64(w.SuccessfulExecutions) / float64(w.TotalExecutions)
		switch {
		case rate >= 0.9:
			return models.HealthStatusHealthy
		case rate >= 0.7:
			return models.HealthStatusWarning
		default:
			return models.HealthStatusError
		}
	}

	return models.HealthStatusUnknown
}

// HealthTracker runs ad-hoc test invocations and reports per-webhook health.
type HealthTracker struct {
	webhooks *repositories.WebhookRepository
	engine   *TriggerEngine
}

func NewHealthTracker(db *sql.DB, engine *TriggerEngine) *HealthTracker {
	return &HealthTracker{
		webhooks: repositories.NewWebhookRepository(db),
		engine:   engine,
	}
}

type HealthReport struct {
	WebhookID            string              `json:"webhook_id"`
	Status               models.HealthStatus `json:"status"`
	TotalExecutions      int                 `json:"total_executions"`
	SuccessfulExecutions int                 `json:"successful_executions"`
	FailedExecutions     int                 `json:"failed_executions"`
	AvgResponseTimeMs    int64               `json:"avg_response_time_ms"`
	LastTestStatus       string              `json:"last_test_status,omitempty"`
	LastTestAt           *int64              `json:"last_test_at,omitempty"`
}

func (t *HealthTracker) Report(webhookID string) (*HealthReport, error) {
	webhook, err := t.webhooks.GetByID(webhookID)
	if err != nil {
		return nil, err
	}
	if webhook == nil {
		return nil, apperrors.NotFound("webhook %s not found", webhookID)
	}

	return &HealthReport{
		WebhookID:            webhook.ID,
		Status:               DeriveHealth(webhook),
		TotalExecutions:      webhook.TotalExecutions,
		SuccessfulExecutions: webhook.SuccessfulExecutions,
		FailedExecutions:     webhook.FailedExecutions,
		AvgResponseTimeMs:    webhook.AvgResponseTimeMs,
		LastTestStatus:       webhook.LastTestStatus,
		LastTestAt:           webhook.LastTestAt,
	}, nil
}

// RunTest fires a synthetic payload at the webhook and records the result on
// the webhook's last-test fields. Test runs never touch the production
// counters.
func (t *HealthTracker) RunTest(ctx context.Context, webhookID, eventType string) (*Outcome, error) {
	webhook, err := t.webhooks.GetByID(webhookID)
	if err != nil {
		return nil, err
	}
	if webhook == nil {
		return nil, apperrors.NotFound("webhook %s not found", webhookID)
	}

	if eventType == "" {
		eventType = DefaultTestEventType
	}

	payload := map[string]interface{}{
		"test":    true,
		"message": "Pagehook webhook connectivity test",
	}

	outcome := t.engine.Test(ctx, webhook, eventType, payload)

	if err := t.webhooks.UpdateLastTest(webhook.ID, outcome.Status, time.Now().Unix()); err != nil {
		return nil, err
	}
	return outcome, nil
}

package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "pagehook/internal/pkg/errors"
	"pagehook/internal/platform/config"
	"pagehook/internal/platform/models"
)

func TestDeriveHealth(t *testing.T) {
	tests := []struct {
		name    string
		webhook models.Webhook
		want    models.HealthStatus
	}{
		{
			name:    "no tests, no executions",
			webhook: models.Webhook{},
			want:    models.HealthStatusUnknown,
		},
		{
			name:    "last test success overrides poor success rate",
			webhook: models.Webhook{LastTestStatus: "success", TotalExecutions: 10, SuccessfulExecutions: 1},
			want:    models.HealthStatusHealthy,
		},
		{
			name:    "last test failed",
			webhook: models.Webhook{LastTestStatus: "failed", TotalExecutions: 10, SuccessfulExecutions: 10},
			want:    models.HealthStatusError,
		},
		{
			name:    "last test timeout",
			webhook: models.Webhook{LastTestStatus: "timeout"},
			want:    models.HealthStatusError,
		},
		{
			name:    "9 of 10 successful",
			webhook: models.Webhook{TotalExecutions: 10, SuccessfulExecutions: 9},
			want:    models.HealthStatusHealthy,
		},
		{
			name:    "8 of 10 successful",
			webhook: models.Webhook{TotalExecutions: 10, SuccessfulExecutions: 8},
			want:    models.HealthStatusWarning,
		},
		{
			name:    "7 of 10 successful",
			webhook: models.Webhook{TotalExecutions: 10, SuccessfulExecutions: 7},
			want:    models.HealthStatusWarning,
		},
		{
			name:    "6 of 10 successful",
			webhook: models.Webhook{TotalExecutions: 10, SuccessfulExecutions: 6},
			want:    models.HealthStatusError,
		},
		{
			name:    "all successful",
			webhook: models.Webhook{TotalExecutions: 3, SuccessfulExecutions: 3},
			want:    models.HealthStatusHealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveHealth(&tt.webhook); got != tt.want {
				t.Errorf("DeriveHealth() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHealthTracker_RunTest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	db := setupTestDB(t)
	registry := NewRegistry(db)
	engine := NewTriggerEngine(db, config.WebhooksConfig{})
	tracker := NewHealthTracker(db, engine)

	hook, err := registry.Create("org_1", WebhookDefinition{Name: "notify", EndpointURL: server.URL})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	outcome, err := tracker.RunTest(context.Background(), hook.ID, "")
	if err != nil {
		t.Fatalf("RunTest failed: %v", err)
	}
	if outcome.Status != models.ExecutionStatusSuccess {
		t.Fatalf("expected success, got %s", outcome.Status)
	}

	report, err := tracker.Report(hook.ID)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if report.Status != models.HealthStatusHealthy {
		t.Errorf("expected healthy after passing test, got %s", report.Status)
	}
	if report.LastTestStatus != models.ExecutionStatusSuccess || report.LastTestAt == nil {
		t.Errorf("last test fields not recorded: %+v", report)
	}
	if report.TotalExecutions != 0 {
		t.Errorf("test run leaked into production counters: %+v", report)
	}
}

func TestHealthTracker_RunTestFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	db := setupTestDB(t)
	registry := NewRegistry(db)
	engine := NewTriggerEngine(db, config.WebhooksConfig{})
	tracker := NewHealthTracker(db, engine)

	hook, err := registry.Create("org_1", WebhookDefinition{Name: "notify", EndpointURL: server.URL})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	outcome, err := tracker.RunTest(context.Background(), hook.ID, "")
	if err != nil {
		t.Fatalf("RunTest failed: %v", err)
	}
	if outcome.Status != models.ExecutionStatusFailed {
		t.Fatalf("expected failed, got %s", outcome.Status)
	}

	report, err := tracker.Report(hook.ID)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if report.Status != models.HealthStatusError {
		t.Errorf("expected error after failing test, got %s", report.Status)
	}
}

func TestHealthTracker_UnknownWebhook(t *testing.T) {
	db := setupTestDB(t)
	tracker := NewHealthTracker(db, NewTriggerEngine(db, config.WebhooksConfig{}))

	if _, err := tracker.RunTest(context.Background(), "wh_missing", ""); !apperrors.Is(err, apperrors.ErrCodeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := tracker.Report("wh_missing"); !apperrors.Is(err, apperrors.ErrCodeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

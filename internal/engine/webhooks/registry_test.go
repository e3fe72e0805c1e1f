package webhooks

import (
	"testing"

	apperrors "pagehook/internal/pkg/errors"
	"pagehook/internal/platform/repositories"
)

func TestRegistry_CreateValidation(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistry(db)

	tests := []struct {
		name string
		org  string
		def  WebhookDefinition
	}{
		{"missing URL", "org_1", WebhookDefinition{Name: "hook"}},
		{"bad scheme", "org_1", WebhookDefinition{Name: "hook", EndpointURL: "ftp://example.com"}},
		{"relative URL", "org_1", WebhookDefinition{Name: "hook", EndpointURL: "/hooks"}},
		{"negative timeout", "org_1", WebhookDefinition{Name: "hook", EndpointURL: "https://example.com/hook", TimeoutSeconds: -1}},
		{"negative retries", "org_1", WebhookDefinition{Name: "hook", EndpointURL: "https://example.com/hook", RetryCount: -1}},
		{"missing name", "org_1", WebhookDefinition{EndpointURL: "https://example.com/hook"}},
		{"bad method", "org_1", WebhookDefinition{Name: "hook", EndpointURL: "https://example.com/hook", Method: "FETCH"}},
		{"missing org", "", WebhookDefinition{Name: "hook", EndpointURL: "https://example.com/hook"}},
		{"default org fallback", "default", WebhookDefinition{Name: "hook", EndpointURL: "https://example.com/hook"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.Create(tt.org, tt.def)
			if !apperrors.Is(err, apperrors.ErrCodeInvalidInput) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}

	// Nothing should have been persisted for rejected definitions.
	webhooks, err := registry.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(webhooks) != 0 {
		t.Errorf("expected no webhooks persisted, got %d", len(webhooks))
	}
}

func TestRegistry_CreateDefaults(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistry(db)

	webhook, err := registry.Create("org_1", WebhookDefinition{
		Name:        "notify",
		EndpointURL: "https://example.com/hook",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if webhook.Method != "POST" {
		t.Errorf("expected default method POST, got %s", webhook.Method)
	}
	if webhook.TimeoutSeconds != DefaultTimeoutSeconds {
		t.Errorf("expected default timeout %d, got %d", DefaultTimeoutSeconds, webhook.TimeoutSeconds)
	}
	if !webhook.IsActive {
		t.Error("expected new webhook to be active")
	}

	fetched, err := registry.Get(webhook.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.EndpointURL != "https://example.com/hook" {
		t.Errorf("unexpected endpoint URL %s", fetched.EndpointURL)
	}
}

func TestRegistry_UpdatePartialMerge(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistry(db)

	webhook, err := registry.Create("org_1", WebhookDefinition{
		Name:        "notify",
		EndpointURL: "https://example.com/hook",
		Secret:      "s3cret",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	newName := "notify-v2"
	updated, err := registry.Update(webhook.ID, UpdateParams{Name: &newName})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if updated.Name != "notify-v2" {
		t.Errorf("expected updated name, got %s", updated.Name)
	}
	if updated.EndpointURL != "https://example.com/hook" {
		t.Errorf("unspecified field changed: %s", updated.EndpointURL)
	}
	if updated.Secret != "s3cret" {
		t.Error("unspecified secret changed")
	}

	badTimeout := 0
	if _, err := registry.Update(webhook.ID, UpdateParams{TimeoutSeconds: &badTimeout}); !apperrors.Is(err, apperrors.ErrCodeInvalidInput) {
		t.Errorf("expected validation error for zero timeout, got %v", err)
	}

	if _, err := registry.Update("wh_missing", UpdateParams{Name: &newName}); !apperrors.Is(err, apperrors.ErrCodeNotFound) {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestRegistry_SetActiveIdempotent(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistry(db)

	webhook, err := registry.Create("org_1", WebhookDefinition{Name: "notify", EndpointURL: "https://example.com/hook"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		got, err := registry.SetActive(webhook.ID, true)
		if err != nil {
			t.Fatalf("SetActive failed: %v", err)
		}
		if !got.IsActive {
			t.Error("expected webhook to stay active")
		}
	}

	got, err := registry.SetActive(webhook.ID, false)
	if err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}
	if got.IsActive {
		t.Error("expected webhook to be inactive")
	}
}

func TestRegistry_DeleteBlockedByAssignments(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistry(db)
	assignments := NewAssignmentMap(db)

	webhook, err := registry.Create("org_1", WebhookDefinition{Name: "notify", EndpointURL: "https://example.com/hook"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := assignments.Assign("org_1", "Chat", "input-right-addon", webhook.ID); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	if err := registry.Delete(webhook.ID, false); !apperrors.Is(err, apperrors.ErrCodeConflict) {
		t.Errorf("expected conflict error, got %v", err)
	}

	// Cascade deactivates the assignment and removes the webhook.
	if err := registry.Delete(webhook.ID, true); err != nil {
		t.Fatalf("cascade delete failed: %v", err)
	}
	if _, err := registry.Get(webhook.ID); !apperrors.Is(err, apperrors.ErrCodeNotFound) {
		t.Errorf("expected webhook gone, got %v", err)
	}

	remaining, err := repositories.NewAssignmentRepository(db).GetActive("org_1", "Chat", "input-right-addon")
	if err != nil {
		t.Fatalf("GetActive failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("expected cascading delete to deactivate assignments, found %d", len(remaining))
	}
}

func TestRegistry_BulkSetActivePartialFailure(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistry(db)

	a, err := registry.Create("org_1", WebhookDefinition{Name: "a", EndpointURL: "https://example.com/a"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	b, err := registry.Create("org_1", WebhookDefinition{Name: "b", EndpointURL: "https://example.com/b"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	result := registry.BulkSetActive([]string{a.ID, "wh_missing", b.ID}, false)

	if len(result.Succeeded) != 2 {
		t.Errorf("expected 2 succeeded, got %d", len(result.Succeeded))
	}
	if len(result.Failed) != 1 || result.Failed[0].ID != "wh_missing" {
		t.Errorf("expected wh_missing to fail, got %+v", result.Failed)
	}
	if result.Failed[0].Reason == "" {
		t.Error("expected failure reason to be populated")
	}

	// The failure must not roll back the earlier mutation.
	got, err := registry.Get(a.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.IsActive {
		t.Error("expected first webhook to stay deactivated")
	}
}

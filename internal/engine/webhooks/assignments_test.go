package webhooks

import (
	"testing"

	apperrors "pagehook/internal/pkg/errors"
)

func TestAssignmentMap_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistry(db)
	assignments := NewAssignmentMap(db)

	webhook, err := registry.Create("org_1", WebhookDefinition{Name: "notify", EndpointURL: "https://example.com/hook"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	created, err := assignments.Assign("org_1", "ManageFiles", "upload-section", webhook.ID)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	got, err := assignments.GetAssignment("org_1", "ManageFiles", "upload-section")
	if err != nil {
		t.Fatalf("GetAssignment failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected assignment, got none")
	}
	if got.ID != created.ID || got.WebhookID != webhook.ID {
		t.Errorf("round trip mismatch: got %+v", got)
	}
}

func TestAssignmentMap_AtomicReplace(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistry(db)
	assignments := NewAssignmentMap(db)

	first, err := registry.Create("org_1", WebhookDefinition{Name: "first", EndpointURL: "https://example.com/a"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	second, err := registry.Create("org_1", WebhookDefinition{Name: "second", EndpointURL: "https://example.com/b"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := assignments.Assign("org_1", "Chat", "input-right-addon", first.ID); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if _, err := assignments.Assign("org_1", "Chat", "input-right-addon", second.ID); err != nil {
		t.Fatalf("replacing Assign failed: %v", err)
	}

	// Exactly one active assignment, referencing the replacement.
	active, err := assignments.GetActiveAssignments("org_1", "Chat")
	if err != nil {
		t.Fatalf("GetActiveAssignments failed: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 active assignment, got %d", len(active))
	}
	if active[0].WebhookID != second.ID {
		t.Errorf("expected replacement webhook %s, got %s", second.ID, active[0].WebhookID)
	}
}

func TestAssignmentMap_Unassign(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistry(db)
	assignments := NewAssignmentMap(db)

	webhook, err := registry.Create("org_1", WebhookDefinition{Name: "notify", EndpointURL: "https://example.com/hook"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	created, err := assignments.Assign("org_1", "Chat", "upload-section", webhook.ID)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	if err := assignments.Unassign(created.ID); err != nil {
		t.Fatalf("Unassign failed: %v", err)
	}

	got, err := assignments.GetAssignment("org_1", "Chat", "upload-section")
	if err != nil {
		t.Fatalf("GetAssignment failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected no active assignment after unassign, got %+v", got)
	}

	if err := assignments.Unassign("asg_missing"); !apperrors.Is(err, apperrors.ErrCodeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestAssignmentMap_UnknownWebhook(t *testing.T) {
	db := setupTestDB(t)
	assignments := NewAssignmentMap(db)

	if _, err := assignments.Assign("org_1", "Chat", "upload-section", "wh_missing"); !apperrors.Is(err, apperrors.ErrCodeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestAssignmentMap_OrgScopeRequired(t *testing.T) {
	db := setupTestDB(t)
	assignments := NewAssignmentMap(db)

	if _, err := assignments.GetAssignment("", "Chat", "upload-section"); !apperrors.Is(err, apperrors.ErrCodeInvalidInput) {
		t.Errorf("expected validation error for empty org, got %v", err)
	}
	if _, err := assignments.GetAssignment("default", "Chat", "upload-section"); !apperrors.Is(err, apperrors.ErrCodeInvalidInput) {
		t.Errorf("expected validation error for ambient default org, got %v", err)
	}
}

func TestAssignmentMap_ViewsCarryWebhookState(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistry(db)
	assignments := NewAssignmentMap(db)

	webhook, err := registry.Create("org_1", WebhookDefinition{Name: "notify", EndpointURL: "https://example.com/hook"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := assignments.Assign("org_1", "Chat", "upload-section", webhook.ID); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if _, err := registry.SetActive(webhook.ID, false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}

	views, err := assignments.ListViews("org_1", "Chat")
	if err != nil {
		t.Fatalf("ListViews failed: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 view, got %d", len(views))
	}
	// The assignment row stays active; the webhook flag tells the caller the
	// position is effectively unbound.
	if !views[0].IsActive {
		t.Error("expected assignment row to stay active")
	}
	if views[0].WebhookActive {
		t.Error("expected webhook_active to be false after deactivation")
	}
	if views[0].WebhookName != "notify" {
		t.Errorf("expected webhook name, got %q", views[0].WebhookName)
	}
}

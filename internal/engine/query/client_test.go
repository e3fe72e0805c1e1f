package query

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"pagehook/internal/engine/webhooks"
	apperrors "pagehook/internal/pkg/errors"
	"pagehook/internal/platform/config"
	"pagehook/internal/platform/database"
	"pagehook/internal/platform/models"
	"pagehook/internal/platform/repositories"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	db.SetMaxOpenConns(1)

	if err := database.MigrateTenant(db); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func assignHook(t *testing.T, db *sql.DB, page, position, endpoint string) *models.Webhook {
	registry := webhooks.NewRegistry(db)
	hook, err := registry.Create("org_1", webhooks.WebhookDefinition{Name: "hook-" + position, EndpointURL: endpoint})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := webhooks.NewAssignmentMap(db).Assign("org_1", page, position, hook.ID); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	return hook
}

func TestClient_HasWebhookAt(t *testing.T) {
	db := setupTestDB(t)
	client := NewClient(time.Minute, config.WebhooksConfig{})

	assignHook(t, db, "Chat", "input-right-addon", "https://example.com/hook")

	has, err := client.HasWebhookAt(db, "org_1", "Chat", "input-right-addon")
	if err != nil {
		t.Fatalf("HasWebhookAt failed: %v", err)
	}
	if !has {
		t.Error("expected webhook at assigned position")
	}

	has, err = client.HasWebhookAt(db, "org_1", "Chat", "toolbar")
	if err != nil {
		t.Fatalf("HasWebhookAt failed: %v", err)
	}
	if has {
		t.Error("expected no webhook at unassigned position")
	}
}

func TestClient_GetWebhookAtRespectsWebhookActive(t *testing.T) {
	db := setupTestDB(t)
	client := NewClient(time.Minute, config.WebhooksConfig{})

	hook := assignHook(t, db, "Chat", "input-right-addon", "https://example.com/hook")
	if _, err := webhooks.NewRegistry(db).SetActive(hook.ID, false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}
	client.Invalidate("org_1", "Chat")

	view, err := client.GetWebhookAt(db, "org_1", "Chat", "input-right-addon")
	if err != nil {
		t.Fatalf("GetWebhookAt failed: %v", err)
	}
	// Assignment row is still active, but the webhook is not: no affordance.
	if view != nil {
		t.Errorf("expected nil view for inactive webhook, got %+v", view)
	}
}

func TestClient_CacheServesStaleUntilInvalidated(t *testing.T) {
	db := setupTestDB(t)
	client := NewClient(time.Hour, config.WebhooksConfig{})

	// Prime the cache on an empty page.
	has, err := client.HasWebhookAt(db, "org_1", "Chat", "input-right-addon")
	if err != nil {
		t.Fatalf("HasWebhookAt failed: %v", err)
	}
	if has {
		t.Fatal("expected empty page")
	}

	assignHook(t, db, "Chat", "input-right-addon", "https://example.com/hook")

	// Without invalidation, the cached miss is still served.
	has, _ = client.HasWebhookAt(db, "org_1", "Chat", "input-right-addon")
	if has {
		t.Error("expected stale cached answer before invalidation")
	}

	client.Invalidate("org_1", "Chat")

	has, _ = client.HasWebhookAt(db, "org_1", "Chat", "input-right-addon")
	if !has {
		t.Error("expected fresh answer after invalidation")
	}
}

func TestClient_TriggerWebhookAt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"received":true}`))
	}))
	defer server.Close()

	db := setupTestDB(t)
	client := NewClient(time.Minute, config.WebhooksConfig{})
	hook := assignHook(t, db, "ManageFiles", "upload-section", server.URL)

	outcome, err := client.TriggerWebhookAt(context.Background(), db, "org_1", "usr_1", "ManageFiles", "upload-section",
		map[string]interface{}{"file": "a.txt"}, map[string]interface{}{"source": "toolbar"})
	if err != nil {
		t.Fatalf("TriggerWebhookAt failed: %v", err)
	}
	if outcome.Status != models.ExecutionStatusSuccess {
		t.Fatalf("expected success, got %s (%s)", outcome.Status, outcome.ErrorMessage)
	}

	records, err := repositories.NewExecutionRepository(db).ListByWebhook(hook.ID, 10)
	if err != nil {
		t.Fatalf("ListByWebhook failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 execution record, got %d", len(records))
	}
}

func TestClient_TriggerNotConfigured(t *testing.T) {
	db := setupTestDB(t)
	client := NewClient(time.Minute, config.WebhooksConfig{})

	_, err := client.TriggerWebhookAt(context.Background(), db, "org_1", "usr_1", "Chat", "toolbar", nil, nil)
	if !apperrors.Is(err, apperrors.ErrCodeNotConfigured) {
		t.Fatalf("expected NOT_CONFIGURED, got %v", err)
	}

	// No execution record may exist anywhere for a refused trigger.
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM webhook_executions`).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no execution records, got %d", count)
	}
}

func TestClient_ListAssignments(t *testing.T) {
	db := setupTestDB(t)
	client := NewClient(time.Minute, config.WebhooksConfig{})

	assignHook(t, db, "Chat", "input-right-addon", "https://example.com/a")
	assignHook(t, db, "ManageFiles", "upload-section", "https://example.com/b")

	all, err := client.ListAssignments(db, "org_1", "")
	if err != nil {
		t.Fatalf("ListAssignments failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 assignments, got %d", len(all))
	}

	chat, err := client.ListAssignments(db, "org_1", "Chat")
	if err != nil {
		t.Fatalf("ListAssignments failed: %v", err)
	}
	if len(chat) != 1 || chat[0].Page != "Chat" {
		t.Errorf("expected 1 Chat assignment, got %+v", chat)
	}
}

func TestAssignmentCacheTTL(t *testing.T) {
	cache := NewAssignmentCache(10 * time.Millisecond)
	cache.Set("org_1", "Chat", []*models.AssignmentView{{}})

	if _, ok := cache.Get("org_1", "Chat"); !ok {
		t.Fatal("expected cache hit")
	}

	time.Sleep(20 * time.Millisecond)

	if _, ok := cache.Get("org_1", "Chat"); ok {
		t.Error("expected cache entry to expire")
	}
}

package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pagehook/internal/platform/config"
	"pagehook/internal/platform/models"
	"pagehook/internal/platform/repositories"
)

func newTestEngine(t *testing.T) (*TriggerEngine, *Registry, *repositories.ExecutionRepository) {
	db := setupTestDB(t)
	return NewTriggerEngine(db, config.WebhooksConfig{}), NewRegistry(db), repositories.NewExecutionRepository(db)
}

func createHook(t *testing.T, registry *Registry, def WebhookDefinition) *models.Webhook {
	if def.Name == "" {
		def.Name = "hook"
	}
	hook, err := registry.Create("org_1", def)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return hook
}

func TestTriggerEngine_SuccessWithSignature(t *testing.T) {
	var receivedBody []byte
	var receivedHeaders http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedBody, _ = io.ReadAll(r.Body)
		receivedHeaders = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	engine, registry, executions := newTestEngine(t)
	hook := createHook(t, registry, WebhookDefinition{EndpointURL: server.URL, Secret: "whsec_test"})

	outcome := engine.Trigger(context.Background(), hook, "webhook.trigger", map[string]interface{}{"file": "report.pdf"}, &TriggerContext{
		OrganizationID: "org_1",
		UserID:         "usr_1",
		Page:           "ManageFiles",
		Position:       "upload-section",
	})

	if outcome.Status != models.ExecutionStatusSuccess {
		t.Fatalf("expected success, got %s (%s)", outcome.Status, outcome.ErrorMessage)
	}
	if outcome.StatusCode == nil || *outcome.StatusCode != 200 {
		t.Errorf("expected status code 200, got %v", outcome.StatusCode)
	}

	parsed, ok := outcome.ResponseBody.(map[string]interface{})
	if !ok || parsed["ok"] != true {
		t.Errorf("expected parsed JSON response, got %#v", outcome.ResponseBody)
	}

	// Signature must recompute over the exact bytes the server received.
	wantSig := "sha256=" + Sign("whsec_test", receivedBody)
	if got := receivedHeaders.Get("X-Signature"); got != wantSig {
		t.Errorf("signature mismatch: got %s want %s", got, wantSig)
	}
	if receivedHeaders.Get("X-Signature-Version") != "v1" {
		t.Error("expected X-Signature-Version v1")
	}
	if receivedHeaders.Get("X-Webhook-ID") != hook.ID {
		t.Error("expected X-Webhook-ID header")
	}
	if receivedHeaders.Get("X-Event-Type") != "webhook.trigger" {
		t.Error("expected X-Event-Type header")
	}
	if receivedHeaders.Get("X-Timestamp") == "" {
		t.Error("expected X-Timestamp header")
	}
	if receivedHeaders.Get("Content-Type") != "application/json" {
		t.Error("expected JSON content type")
	}
	if receivedHeaders.Get("User-Agent") != "Pagehook-Webhook/1.0" {
		t.Errorf("unexpected user agent %s", receivedHeaders.Get("User-Agent"))
	}
	if receivedHeaders.Get("X-Test") != "" {
		t.Error("production trigger must not carry X-Test")
	}

	// Body shape: event envelope with provenance merged into data.
	var envelope struct {
		EventType string                 `json:"event_type"`
		WebhookID string                 `json:"webhook_id"`
		Timestamp string                 `json:"timestamp"`
		Data      map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(receivedBody, &envelope); err != nil {
		t.Fatalf("request body not parseable: %v", err)
	}
	if envelope.WebhookID != hook.ID || envelope.EventType != "webhook.trigger" {
		t.Errorf("unexpected envelope %+v", envelope)
	}
	if envelope.Data["file"] != "report.pdf" {
		t.Error("caller payload missing from data")
	}
	if envelope.Data["user_triggered"] != true || envelope.Data["page"] != "ManageFiles" || envelope.Data["position"] != "upload-section" {
		t.Errorf("provenance fields missing from data: %+v", envelope.Data)
	}

	// Execution record persisted, and the logged request body reproduces the
	// logged signature.
	records, err := executions.ListByWebhook(hook.ID, 10)
	if err != nil {
		t.Fatalf("ListByWebhook failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 execution record, got %d", len(records))
	}
	rec := records[0]
	if rec.Status != models.ExecutionStatusSuccess || rec.IsTest {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.PayloadSize != len(receivedBody) {
		t.Errorf("payload size %d, want %d", rec.PayloadSize, len(receivedBody))
	}
	if got := "sha256=" + Sign("whsec_test", []byte(rec.RequestBody)); got != rec.RequestHeaders["X-Signature"] {
		t.Error("logged request body does not reproduce logged signature")
	}

	// Production triggers update the aggregate counters.
	updated, err := registry.Get(hook.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if updated.TotalExecutions != 1 || updated.SuccessfulExecutions != 1 {
		t.Errorf("counters not updated: %+v", updated)
	}
}

func TestTriggerEngine_NoSecretNoSignature(t *testing.T) {
	var receivedHeaders http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedHeaders = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	engine, registry, _ := newTestEngine(t)
	hook := createHook(t, registry, WebhookDefinition{EndpointURL: server.URL})

	outcome := engine.Trigger(context.Background(), hook, "webhook.trigger", nil, nil)

	if outcome.Status != models.ExecutionStatusSuccess {
		t.Fatalf("expected success, got %s", outcome.Status)
	}
	if receivedHeaders.Get("X-Signature") != "" || receivedHeaders.Get("X-Signature-Version") != "" {
		t.Error("expected no signature headers without a secret")
	}
}

func TestTriggerEngine_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	engine, registry, executions := newTestEngine(t)
	hook := createHook(t, registry, WebhookDefinition{EndpointURL: server.URL})

	outcome := engine.Trigger(context.Background(), hook, "webhook.trigger", nil, nil)

	if outcome.Status != models.ExecutionStatusFailed {
		t.Fatalf("expected failed, got %s", outcome.Status)
	}
	if outcome.StatusCode == nil || *outcome.StatusCode != 500 {
		t.Errorf("expected status code 500, got %v", outcome.StatusCode)
	}
	if outcome.ErrorMessage != "HTTP 500: Internal Server Error" {
		t.Errorf("unexpected error message %q", outcome.ErrorMessage)
	}

	records, _ := executions.ListByWebhook(hook.ID, 10)
	if len(records) != 1 || records[0].Status != models.ExecutionStatusFailed {
		t.Errorf("expected failed execution record, got %+v", records)
	}

	updated, _ := registry.Get(hook.ID)
	if updated.FailedExecutions != 1 || updated.SuccessfulExecutions != 0 {
		t.Errorf("counters not updated for failure: %+v", updated)
	}
}

func TestTriggerEngine_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(3 * time.Second)
	}))
	defer server.Close()

	engine, registry, executions := newTestEngine(t)
	hook := createHook(t, registry, WebhookDefinition{EndpointURL: server.URL, TimeoutSeconds: 1})

	outcome := engine.Trigger(context.Background(), hook, "webhook.trigger", nil, nil)

	if outcome.Status != models.ExecutionStatusTimeout {
		t.Fatalf("expected timeout, got %s (%s)", outcome.Status, outcome.ErrorMessage)
	}
	if outcome.ErrorMessage != "Request timeout after 1s" {
		t.Errorf("unexpected error message %q", outcome.ErrorMessage)
	}
	// The call must be aborted at the deadline, give or take scheduling.
	if outcome.ResponseTimeMs < 900 || outcome.ResponseTimeMs > 1800 {
		t.Errorf("expected ~1000ms response time, got %d", outcome.ResponseTimeMs)
	}

	records, _ := executions.ListByWebhook(hook.ID, 10)
	if len(records) != 1 || records[0].Status != models.ExecutionStatusTimeout {
		t.Errorf("expected timeout execution record, got %+v", records)
	}
}

func TestTriggerEngine_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	engine, registry, _ := newTestEngine(t)
	hook := createHook(t, registry, WebhookDefinition{EndpointURL: url})

	outcome := engine.Trigger(context.Background(), hook, "webhook.trigger", nil, nil)

	if outcome.Status != models.ExecutionStatusFailed {
		t.Fatalf("expected failed, got %s", outcome.Status)
	}
	if len(outcome.ErrorMessage) < len("Network error: ") || outcome.ErrorMessage[:len("Network error: ")] != "Network error: " {
		t.Errorf("unexpected error message %q", outcome.ErrorMessage)
	}
	if outcome.StatusCode != nil {
		t.Error("expected no status code for network error")
	}
}

func TestTriggerEngine_TestInvocation(t *testing.T) {
	var receivedHeaders http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedHeaders = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	engine, registry, executions := newTestEngine(t)
	hook := createHook(t, registry, WebhookDefinition{EndpointURL: server.URL})

	outcome := engine.Test(context.Background(), hook, "webhook.test", map[string]interface{}{"test": true})

	if outcome.Status != models.ExecutionStatusSuccess {
		t.Fatalf("expected success, got %s", outcome.Status)
	}
	if receivedHeaders.Get("X-Test") != "true" {
		t.Error("expected X-Test header on test invocation")
	}

	records, _ := executions.ListByWebhook(hook.ID, 10)
	if len(records) != 1 || !records[0].IsTest {
		t.Errorf("expected test execution record, got %+v", records)
	}

	// Tests never count toward the production aggregates.
	updated, _ := registry.Get(hook.ID)
	if updated.TotalExecutions != 0 {
		t.Errorf("test invocation leaked into counters: %+v", updated)
	}
}

func TestTriggerEngine_ResponseBodyCapture(t *testing.T) {
	t.Run("plain text", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("accepted"))
		}))
		defer server.Close()

		engine, registry, _ := newTestEngine(t)
		hook := createHook(t, registry, WebhookDefinition{EndpointURL: server.URL})

		outcome := engine.Trigger(context.Background(), hook, "webhook.trigger", nil, nil)
		if outcome.ResponseBody != "accepted" {
			t.Errorf("expected raw text body, got %#v", outcome.ResponseBody)
		}
	})

	t.Run("unparseable JSON", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte("{not json"))
		}))
		defer server.Close()

		engine, registry, _ := newTestEngine(t)
		hook := createHook(t, registry, WebhookDefinition{EndpointURL: server.URL})

		outcome := engine.Trigger(context.Background(), hook, "webhook.trigger", nil, nil)
		if outcome.Status != models.ExecutionStatusSuccess {
			t.Errorf("parse failure must not fail the call: %s", outcome.Status)
		}
		if outcome.ResponseBody != unparseablePlaceholder {
			t.Errorf("expected placeholder, got %#v", outcome.ResponseBody)
		}
	})
}

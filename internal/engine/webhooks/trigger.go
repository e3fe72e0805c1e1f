package webhooks

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"pagehook/internal/platform/config"
	"pagehook/internal/platform/models"
	"pagehook/internal/platform/repositories"
)

const defaultMaxResponseBytes = 64 * 1024

// unparseablePlaceholder is recorded when an endpoint claims a JSON
// content type but the body does not parse.
const unparseablePlaceholder = "could not parse response body"

// TriggerEngine executes a single webhook call: build the signed request,
// send it under the webhook's deadline, classify the outcome, and append an
// execution record. It never retries; the webhook's retry_count is metadata
// for an external orchestrator.
type TriggerEngine struct {
	webhooks         *repositories.WebhookRepository
	executions       *repositories.ExecutionRepository
	client           *http.Client
	userAgent        string
	maxResponseBytes int64
}

func NewTriggerEngine(db *sql.DB, cfg config.WebhooksConfig) *TriggerEngine {
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "Pagehook-Webhook/1.0"
	}
	maxBytes := int64(cfg.MaxResponseBytes)
	if maxBytes <= 0 {
		maxBytes = defaultMaxResponseBytes
	}

	return &TriggerEngine{
		webhooks:         repositories.NewWebhookRepository(db),
		executions:       repositories.NewExecutionRepository(db),
		client:           &http.Client{},
		userAgent:        userAgent,
		maxResponseBytes: maxBytes,
	}
}

// TriggerContext carries the production trigger provenance merged into the
// outbound payload.
type TriggerContext struct {
	OrganizationID string
	UserID         string
	Page           string
	Position       string
}

// Outcome describes one invocation. A failed or timed-out call is a normal
// outcome, not an error: callers only see an error for problems before the
// request was attempted.
type Outcome struct {
	Status         string      `json:"status"`
	StatusCode     *int        `json:"status_code,omitempty"`
	ResponseTimeMs int64       `json:"response_time_ms"`
	ErrorMessage   string      `json:"error_message,omitempty"`
	ResponseBody   interface{} `json:"response_body,omitempty"`
}

// Trigger executes a production call. Aggregate counters on the webhook row
// are updated; test invocations go through Test instead.
func (e *TriggerEngine) Trigger(ctx context.Context, hook *models.Webhook, eventType string, payload map[string]interface{}, tc *TriggerContext) *Outcome {
	return e.execute(ctx, hook, eventType, payload, tc, false)
}

// Test executes a test call. The execution record is flagged is_test and the
// webhook's aggregate counters are left alone.
func (e *TriggerEngine) Test(ctx context.Context, hook *models.Webhook, eventType string, payload map[string]interface{}) *Outcome {
	return e.execute(ctx, hook, eventType, payload, nil, true)
}

func (e *TriggerEngine) execute(ctx context.Context, hook *models.Webhook, eventType string, payload map[string]interface{}, tc *TriggerContext, isTest bool) *Outcome {
	data := make(map[string]interface{}, len(payload)+6)
	for k, v := range payload {
		data[k] = v
	}
	if !isTest && tc != nil {
		data["organization_id"] = tc.OrganizationID
		data["user_id"] = tc.UserID
		data["page"] = tc.Page
		data["position"] = tc.Position
		data["triggered_at"] = time.Now().UTC().Format(time.RFC3339)
		data["user_triggered"] = true
	}

	timestamp := time.Now().UTC().Format(time.RFC3339)
	body := map[string]interface{}{
		"event_type": eventType,
		"webhook_id": hook.ID,
		"timestamp":  timestamp,
		"data":       data,
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		// Payload was caller-supplied and not serializable; nothing was sent.
		return &Outcome{
			Status:       models.ExecutionStatusFailed,
			ErrorMessage: fmt.Sprintf("Network error: payload not serializable: %v", err),
		}
	}

	headers := map[string]string{
		"Content-Type": "application/json",
		"User-Agent":   e.userAgent,
		"X-Event-Type": eventType,
		"X-Webhook-ID": hook.ID,
		"X-Timestamp":  timestamp,
	}
	for k, v := range hook.Headers {
		headers[k] = v
	}
	if hook.Secret != "" {
		headers["X-Signature"] = "sha256=" + Sign(hook.Secret, bodyBytes)
		headers["X-Signature-Version"] = "v1"
	}
	if isTest {
		headers["X-Test"] = "true"
	}

	timeout := hook.TimeoutSeconds
	if timeout <= 0 {
		timeout = DefaultTimeoutSeconds
	}

	method := hook.Method
	if method == "" {
		method = "POST"
	}

	outcome, responseText := e.send(ctx, method, hook.EndpointURL, headers, bodyBytes, timeout)

	record := &models.ExecutionRecord{
		WebhookID:      hook.ID,
		EventType:      eventType,
		Status:         outcome.Status,
		StatusCode:     outcome.StatusCode,
		ResponseTimeMs: outcome.ResponseTimeMs,
		ErrorMessage:   outcome.ErrorMessage,
		PayloadSize:    len(bodyBytes),
		IsTest:         isTest,
		RequestHeaders: headers,
		RequestBody:    string(bodyBytes),
		ResponseBody:   responseText,
	}

	// The outcome is already decided; a log-write failure must not change it.
	if err := e.executions.Create(record); err != nil {
		log.Warn().Err(err).Str("webhook_id", hook.ID).Msg("failed to persist execution record")
	}

	if !isTest {
		success := outcome.Status == models.ExecutionStatusSuccess
		if err := e.webhooks.RecordExecution(hook.ID, success, outcome.ResponseTimeMs); err != nil {
			log.Warn().Err(err).Str("webhook_id", hook.ID).Msg("failed to update execution counters")
		}
	}

	return outcome
}

// send issues the HTTP request and classifies the result. The returned string
// is the raw captured response text for the execution record; the Outcome
// carries the parsed form.
func (e *TriggerEngine) send(ctx context.Context, method, url string, headers map[string]string, body []byte, timeoutSeconds int) (*Outcome, string) {
	outcome := &Outcome{}

	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, url, bytes.NewReader(body))
	if err != nil {
		outcome.Status = models.ExecutionStatusFailed
		outcome.ErrorMessage = fmt.Sprintf("Network error: %v", err)
		return outcome, ""
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	outcome.ResponseTimeMs = time.Since(start).Milliseconds()

	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			outcome.Status = models.ExecutionStatusTimeout
			outcome.ErrorMessage = fmt.Sprintf("Request timeout after %ds", timeoutSeconds)
		} else {
			outcome.Status = models.ExecutionStatusFailed
			outcome.ErrorMessage = fmt.Sprintf("Network error: %v", err)
		}
		return outcome, ""
	}
	defer resp.Body.Close()

	code := resp.StatusCode
	outcome.StatusCode = &code

	if code >= 200 && code < 300 {
		outcome.Status = models.ExecutionStatusSuccess
	} else {
		outcome.Status = models.ExecutionStatusFailed
		outcome.ErrorMessage = fmt.Sprintf("HTTP %d: %s", code, http.StatusText(code))
	}

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, e.maxResponseBytes))
	if readErr != nil {
		log.Debug().Err(readErr).Str("url", url).Msg("failed to read response body")
	}
	responseText := string(raw)

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "json") && len(raw) > 0 {
		var parsed interface{}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			outcome.ResponseBody = unparseablePlaceholder
		} else {
			outcome.ResponseBody = parsed
		}
	} else if len(raw) > 0 {
		outcome.ResponseBody = responseText
	}

	return outcome, responseText
}

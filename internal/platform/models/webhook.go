package models

// Webhook is an external HTTP endpoint registered by an organization admin.
// Aggregate counters cover production triggers only; test invocations update
// the last_test_* fields instead.
type Webhook struct {
	ID                 string            `json:"id"`
	OrganizationID     string            `json:"organization_id"`
	Name               string            `json:"name"`
	EndpointURL        string            `json:"endpoint_url"`
	Method             string            `json:"method"`
	Secret             string            `json:"-"`
	Headers            map[string]string `json:"headers,omitempty"` // JSON object in DB
	TimeoutSeconds     int               `json:"timeout_seconds"`
	RetryCount         int               `json:"retry_count"`
	RateLimitPerMinute int               `json:"rate_limit_per_minute,omitempty"`
	IsActive           bool              `json:"is_active"`
	HealthCheckEnabled bool              `json:"health_check_enabled"`

	TotalExecutions      int   `json:"total_executions"`
	SuccessfulExecutions int   `json:"successful_executions"`
	FailedExecutions     int   `json:"failed_executions"`
	AvgResponseTimeMs    int64 `json:"avg_response_time_ms"`

	LastTestStatus string `json:"last_test_status,omitempty"`
	LastTestAt     *int64 `json:"last_test_at,omitempty"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// Assignment binds one webhook to a UI trigger point: a feature page plus a
// position key on that page. At most one assignment per (org, page, position)
// may be active at a time.
type Assignment struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Page           string `json:"page"`
	Position       string `json:"position"`
	WebhookID      string `json:"webhook_id"`
	IsActive       bool   `json:"is_active"`
	CreatedAt      int64  `json:"created_at"`
	UpdatedAt      int64  `json:"updated_at"`
}

// AssignmentView is an assignment enriched with webhook display fields for
// consumers that need to decide whether a trigger affordance should render.
type AssignmentView struct {
	Assignment
	WebhookName   string `json:"webhook_name"`
	WebhookActive bool   `json:"webhook_active"`
}

const (
	ExecutionStatusSuccess = "success"
	ExecutionStatusFailed  = "failed"
	ExecutionStatusTimeout = "timeout"
)

// ExecutionRecord is the append-only log of one webhook invocation attempt.
// Rows are never updated after insert.
type ExecutionRecord struct {
	ID             string            `json:"id"`
	WebhookID      string            `json:"webhook_id"`
	EventType      string            `json:"event_type"`
	Status         string            `json:"status"`
	StatusCode     *int              `json:"status_code,omitempty"`
	ResponseTimeMs int64             `json:"response_time_ms"`
	ErrorMessage   string            `json:"error_message,omitempty"`
	PayloadSize    int               `json:"payload_size"`
	RetryCount     int               `json:"retry_count"`
	IsTest         bool              `json:"is_test"`
	RequestHeaders map[string]string `json:"request_headers,omitempty"` // JSON object in DB
	RequestBody    string            `json:"request_body,omitempty"`    // raw serialized JSON
	ResponseBody   string            `json:"response_body,omitempty"`
	CreatedAt      int64             `json:"created_at"`
}

type HealthStatus string

const (
	HealthStatusHealthy HealthStatus = "healthy"
	HealthStatusWarning HealthStatus = "warning"
	HealthStatusError   HealthStatus = "error"
	HealthStatusUnknown HealthStatus = "unknown"
)

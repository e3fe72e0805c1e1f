package webhooks

import (
	"database/sql"
	"strings"

	apperrors "pagehook/internal/pkg/errors"
	"pagehook/internal/pkg/validator"
	"pagehook/internal/platform/models"
	"pagehook/internal/platform/repositories"
)

const DefaultTimeoutSeconds = 30

var allowedMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true,
}

// RequireOrg rejects missing tenant scope. Every webhook and assignment
// carries an explicit organization reference; there is no ambient default.
func RequireOrg(orgID string) error {
	if orgID == "" || orgID == "default" {
		return apperrors.Validation("organization id is required")
	}
	return nil
}

// Registry manages webhook definitions for one tenant database.
type Registry struct {
	webhooks    *repositories.WebhookRepository
	assignments *repositories.AssignmentRepository
}

func NewRegistry(db *sql.DB) *Registry {
	return &Registry{
		webhooks:    repositories.NewWebhookRepository(db),
		assignments: repositories.NewAssignmentRepository(db),
	}
}

type WebhookDefinition struct {
	Name               string            `json:"name"`
	EndpointURL        string            `json:"endpoint_url"`
	Method             string            `json:"method"`
	Secret             string            `json:"secret"`
	Headers            map[string]string `json:"headers"`
	TimeoutSeconds     int               `json:"timeout_seconds"`
	RetryCount         int               `json:"retry_count"`
	RateLimitPerMinute int               `json:"rate_limit_per_minute"`
	HealthCheckEnabled bool              `json:"health_check_enabled"`
}

func (r *Registry) Create(orgID string, def WebhookDefinition) (*models.Webhook, error) {
	if err := RequireOrg(orgID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(def.Name) == "" {
		return nil, apperrors.Validation("webhook name is required")
	}
	if err := validator.IsEndpointURL(def.EndpointURL); err != nil {
		return nil, apperrors.Validation("%s", err.Error())
	}
	if def.TimeoutSeconds == 0 {
		def.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if def.TimeoutSeconds < 0 {
		return nil, apperrors.Validation("timeout must be greater than zero")
	}
	if def.RetryCount < 0 {
		return nil, apperrors.Validation("retry count must not be negative")
	}

	method := strings.ToUpper(def.Method)
	if method == "" {
		method = "POST"
	}
	if !allowedMethods[method] {
		return nil, apperrors.Validation("unsupported HTTP method %q", def.Method)
	}

	webhook := &models.Webhook{
		OrganizationID:     orgID,
		Name:               def.Name,
		EndpointURL:        def.EndpointURL,
		Method:             method,
		Secret:             def.Secret,
		Headers:            def.Headers,
		TimeoutSeconds:     def.TimeoutSeconds,
		RetryCount:         def.RetryCount,
		RateLimitPerMinute: def.RateLimitPerMinute,
		IsActive:           true,
		HealthCheckEnabled: def.HealthCheckEnabled,
	}

	if err := r.webhooks.Create(webhook); err != nil {
		return nil, err
	}
	return webhook, nil
}

func (r *Registry) Get(id string) (*models.Webhook, error) {
	webhook, err := r.webhooks.GetByID(id)
	if err != nil {
		return nil, err
	}
	if webhook == nil {
		return nil, apperrors.NotFound("webhook %s not found", id)
	}
	return webhook, nil
}

func (r *Registry) List() ([]*models.Webhook, error) {
	return r.webhooks.List()
}

// UpdateParams holds partial-merge fields: nil means "leave unchanged".
type UpdateParams struct {
	Name               *string            `json:"name"`
	EndpointURL        *string            `json:"endpoint_url"`
	Method             *string            `json:"method"`
	Secret             *string            `json:"secret"`
	Headers            map[string]string  `json:"headers"`
	TimeoutSeconds     *int               `json:"timeout_seconds"`
	RetryCount         *int               `json:"retry_count"`
	RateLimitPerMinute *int               `json:"rate_limit_per_minute"`
	HealthCheckEnabled *bool              `json:"health_check_enabled"`
}

func (r *Registry) Update(id string, params UpdateParams) (*models.Webhook, error) {
	webhook, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		if strings.TrimSpace(*params.Name) == "" {
			return nil, apperrors.Validation("webhook name is required")
		}
		webhook.Name = *params.Name
	}
	if params.EndpointURL != nil {
		if err := validator.IsEndpointURL(*params.EndpointURL); err != nil {
			return nil, apperrors.Validation("%s", err.Error())
		}
		webhook.EndpointURL = *params.EndpointURL
	}
	if params.Method != nil {
		method := strings.ToUpper(*params.Method)
		if !allowedMethods[method] {
			return nil, apperrors.Validation("unsupported HTTP method %q", *params.Method)
		}
		webhook.Method = method
	}
	if params.Secret != nil {
		webhook.Secret = *params.Secret
	}
	if params.Headers != nil {
		webhook.Headers = params.Headers
	}
	if params.TimeoutSeconds != nil {
		if *params.TimeoutSeconds <= 0 {
			return nil, apperrors.Validation("timeout must be greater than zero")
		}
		webhook.TimeoutSeconds = *params.TimeoutSeconds
	}
	if params.RetryCount != nil {
		if *params.RetryCount < 0 {
			return nil, apperrors.Validation("retry count must not be negative")
		}
		webhook.RetryCount = *params.RetryCount
	}
	if params.RateLimitPerMinute != nil {
		webhook.RateLimitPerMinute = *params.RateLimitPerMinute
	}
	if params.HealthCheckEnabled != nil {
		webhook.HealthCheckEnabled = *params.HealthCheckEnabled
	}

	if err := r.webhooks.Update(webhook); err != nil {
		return nil, err
	}
	return webhook, nil
}

// Delete removes a webhook. While active assignments still reference it the
// delete is refused unless cascade is set, in which case the assignments are
// deactivated and the webhook removed in one transaction.
func (r *Registry) Delete(id string, cascade bool) error {
	if _, err := r.Get(id); err != nil {
		return err
	}

	count, err := r.assignments.CountActiveByWebhook(id)
	if err != nil {
		return err
	}
	if count > 0 && !cascade {
		return apperrors.Conflict("webhook %s is referenced by %d active assignment(s)", id, count)
	}

	tx, err := r.webhooks.BeginTx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if count > 0 {
		if err := r.assignments.DeactivateByWebhookTx(tx, id); err != nil {
			return err
		}
	}
	if err := r.webhooks.DeleteTx(tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Registry) SetActive(id string, active bool) (*models.Webhook, error) {
	webhook, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if webhook.IsActive == active {
		return webhook, nil
	}
	if err := r.webhooks.SetActive(id, active); err != nil {
		return nil, err
	}
	webhook.IsActive = active
	return webhook, nil
}

type BulkFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type BulkResult struct {
	Succeeded []string      `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

// BulkSetActive applies the toggle to each id independently. A failure
// partway through does not roll back earlier mutations; the result reports
// both sides.
func (r *Registry) BulkSetActive(ids []string, active bool) *BulkResult {
	result := &BulkResult{Succeeded: []string{}, Failed: []BulkFailure{}}
	for _, id := range ids {
		if _, err := r.SetActive(id, active); err != nil {
			result.Failed = append(result.Failed, BulkFailure{ID: id, Reason: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	return result
}

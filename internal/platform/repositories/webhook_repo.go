package repositories

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"pagehook/internal/platform/models"
)

type WebhookRepository struct {
	db *sql.DB
}

func NewWebhookRepository(db *sql.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

const webhookColumns = `id, organization_id, name, endpoint_url, method, secret, headers,
	timeout_seconds, retry_count, rate_limit_per_minute, is_active, health_check_enabled,
	total_executions, successful_executions, failed_executions, avg_response_time_ms,
	last_test_status, last_test_at, created_at, updated_at`

func (r *WebhookRepository) Create(webhook *models.Webhook) error {
	if webhook.ID == "" {
		webhook.ID = "wh_" + uuid.New().String()
	}
	webhook.CreatedAt = time.Now().Unix()
	webhook.UpdatedAt = webhook.CreatedAt

	headersJSON, err := json.Marshal(webhook.Headers)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		INSERT INTO webhooks (id, organization_id, name, endpoint_url, method, secret, headers,
			timeout_seconds, retry_count, rate_limit_per_minute, is_active, health_check_enabled,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, webhook.ID, webhook.OrganizationID, webhook.Name, webhook.EndpointURL, webhook.Method,
		webhook.Secret, string(headersJSON), webhook.TimeoutSeconds, webhook.RetryCount,
		webhook.RateLimitPerMinute, webhook.IsActive, webhook.HealthCheckEnabled,
		webhook.CreatedAt, webhook.UpdatedAt)
	return err
}

func scanWebhook(scan func(dest ...interface{}) error) (*models.Webhook, error) {
	var w models.Webhook
	var secret, headersStr, lastTestStatus sql.NullString
	var lastTestAt sql.NullInt64

	err := scan(&w.ID, &w.OrganizationID, &w.Name, &w.EndpointURL, &w.Method, &secret, &headersStr,
		&w.TimeoutSeconds, &w.RetryCount, &w.RateLimitPerMinute, &w.IsActive, &w.HealthCheckEnabled,
		&w.TotalExecutions, &w.SuccessfulExecutions, &w.FailedExecutions, &w.AvgResponseTimeMs,
		&lastTestStatus, &lastTestAt, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}

	w.Secret = secret.String
	w.LastTestStatus = lastTestStatus.String
	if lastTestAt.Valid {
		w.LastTestAt = &lastTestAt.Int64
	}
	if headersStr.Valid && headersStr.String != "" {
		json.Unmarshal([]byte(headersStr.String), &w.Headers)
	}
	return &w, nil
}

func (r *WebhookRepository) GetByID(id string) (*models.Webhook, error) {
	row := r.db.QueryRow(`SELECT `+webhookColumns+` FROM webhooks WHERE id = ?`, id)
	w, err := scanWebhook(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}

func (r *WebhookRepository) List() ([]*models.Webhook, error) {
	rows, err := r.db.Query(`SELECT ` + webhookColumns + ` FROM webhooks ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var webhooks []*models.Webhook
	for rows.Next() {
		w, err := scanWebhook(rows.Scan)
		if err != nil {
			return nil, err
		}
		webhooks = append(webhooks, w)
	}
	return webhooks, rows.Err()
}

func (r *WebhookRepository) ListHealthCheckEnabled() ([]*models.Webhook, error) {
	rows, err := r.db.Query(`SELECT ` + webhookColumns + ` FROM webhooks WHERE is_active = 1 AND health_check_enabled = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var webhooks []*models.Webhook
	for rows.Next() {
		w, err := scanWebhook(rows.Scan)
		if err != nil {
			return nil, err
		}
		webhooks = append(webhooks, w)
	}
	return webhooks, rows.Err()
}

func (r *WebhookRepository) Update(webhook *models.Webhook) error {
	headersJSON, err := json.Marshal(webhook.Headers)
	if err != nil {
		return err
	}
	webhook.UpdatedAt = time.Now().Unix()

	_, err = r.db.Exec(`
		UPDATE webhooks
		SET name = ?, endpoint_url = ?, method = ?, secret = ?, headers = ?,
			timeout_seconds = ?, retry_count = ?, rate_limit_per_minute = ?,
			health_check_enabled = ?, updated_at = ?
		WHERE id = ?
	`, webhook.Name, webhook.EndpointURL, webhook.Method, webhook.Secret, string(headersJSON),
		webhook.TimeoutSeconds, webhook.RetryCount, webhook.RateLimitPerMinute,
		webhook.HealthCheckEnabled, webhook.UpdatedAt, webhook.ID)
	return err
}

func (r *WebhookRepository) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM webhooks WHERE id = ?`, id)
	return err
}

func (r *WebhookRepository) DeleteTx(tx *sql.Tx, id string) error {
	_, err := tx.Exec(`DELETE FROM webhooks WHERE id = ?`, id)
	return err
}

func (r *WebhookRepository) BeginTx() (*sql.Tx, error) {
	return r.db.Begin()
}

func (r *WebhookRepository) SetActive(id string, active bool) error {
	_, err := r.db.Exec(`UPDATE webhooks SET is_active = ?, updated_at = ? WHERE id = ?`, active, time.Now().Unix(), id)
	return err
}

// RecordExecution folds one production trigger into the aggregate counters.
// SQLite evaluates the right-hand side against the pre-update row, so the
// running average stays consistent in a single statement.
func (r *WebhookRepository) RecordExecution(id string, success bool, responseTimeMs int64) error {
	successInc := 0
	failedInc := 0
	if success {
		successInc = 1
	} else {
		failedInc = 1
	}

	_, err := r.db.Exec(`
		UPDATE webhooks
		SET avg_response_time_ms = (avg_response_time_ms * total_executions + ?) / (total_executions + 1),
			total_executions = total_executions + 1,
			successful_executions = successful_executions + ?,
			failed_executions = failed_executions + ?
		WHERE id = ?
	`, responseTimeMs, successInc, failedInc, id)
	return err
}

func (r *WebhookRepository) UpdateLastTest(id, status string, timestamp int64) error {
	_, err := r.db.Exec(`UPDATE webhooks SET last_test_status = ?, last_test_at = ? WHERE id = ?`, status, timestamp, id)
	return err
}

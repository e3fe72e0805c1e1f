package repositories

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"pagehook/internal/platform/models"
)

type ExecutionRepository struct {
	db *sql.DB
}

func NewExecutionRepository(db *sql.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

// Create appends one execution record. Records are immutable: there is no
// update path in this repository.
func (r *ExecutionRepository) Create(rec *models.ExecutionRecord) error {
	if rec.ID == "" {
		rec.ID = "exec_" + uuid.New().String()
	}
	rec.CreatedAt = time.Now().Unix()

	headersJSON, err := json.Marshal(rec.RequestHeaders)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		INSERT INTO webhook_executions (id, webhook_id, event_type, status, status_code,
			response_time_ms, error_message, payload_size, retry_count, is_test,
			request_headers, request_body, response_body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.WebhookID, rec.EventType, rec.Status, rec.StatusCode, rec.ResponseTimeMs,
		rec.ErrorMessage, rec.PayloadSize, rec.RetryCount, rec.IsTest,
		string(headersJSON), rec.RequestBody, rec.ResponseBody, rec.CreatedAt)
	return err
}

func scanExecution(scan func(dest ...interface{}) error) (*models.ExecutionRecord, error) {
	var rec models.ExecutionRecord
	var statusCode sql.NullInt64
	var errorMessage, headersStr, requestBody, responseBody sql.NullString

	err := scan(&rec.ID, &rec.WebhookID, &rec.EventType, &rec.Status, &statusCode,
		&rec.ResponseTimeMs, &errorMessage, &rec.PayloadSize, &rec.RetryCount, &rec.IsTest,
		&headersStr, &requestBody, &responseBody, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}

	if statusCode.Valid {
		code := int(statusCode.Int64)
		rec.StatusCode = &code
	}
	rec.ErrorMessage = errorMessage.String
	rec.RequestBody = requestBody.String
	rec.ResponseBody = responseBody.String
	if headersStr.Valid && headersStr.String != "" {
		json.Unmarshal([]byte(headersStr.String), &rec.RequestHeaders)
	}
	return &rec, nil
}

const executionColumns = `id, webhook_id, event_type, status, status_code, response_time_ms,
	error_message, payload_size, retry_count, is_test, request_headers, request_body, response_body, created_at`

func (r *ExecutionRepository) ListByWebhook(webhookID string, limit int) ([]*models.ExecutionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(`
		SELECT `+executionColumns+` FROM webhook_executions
		WHERE webhook_id = ? ORDER BY created_at DESC LIMIT ?
	`, webhookID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.ExecutionRecord
	for rows.Next() {
		rec, err := scanExecution(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LatestTest returns the most recent test invocation for a webhook, or nil.
func (r *ExecutionRepository) LatestTest(webhookID string) (*models.ExecutionRecord, error) {
	row := r.db.QueryRow(`
		SELECT `+executionColumns+` FROM webhook_executions
		WHERE webhook_id = ? AND is_test = 1 ORDER BY created_at DESC LIMIT 1
	`, webhookID)
	rec, err := scanExecution(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func (r *ExecutionRepository) CountByWebhook(webhookID string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM webhook_executions WHERE webhook_id = ?`, webhookID).Scan(&count)
	return count, err
}

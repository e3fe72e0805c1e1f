package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apiContext "pagehook/internal/api/context"
	"pagehook/internal/platform/auth"
)

type AuditLog struct {
	ID             string                 `json:"id"`
	OrganizationID string                 `json:"organization_id"`
	UserID         string                 `json:"user_id"`
	Action         string                 `json:"action"`
	ResourceType   string                 `json:"resource_type"`
	ResourceID     string                 `json:"resource_id"`
	Metadata       map[string]interface{} `json:"metadata"`
	IPAddress      string                 `json:"ip_address"`
	UserAgent      string                 `json:"user_agent"`
	CreatedAt      int64                  `json:"created_at"`
}

type Logger struct {
	globalDB *sql.DB
}

func NewLogger(db *sql.DB) *Logger {
	return &Logger{globalDB: db}
}

// Log writes an audit entry asynchronously. Actor identity comes from the
// request claims on the context; a write failure never surfaces to the
// caller.
func (l *Logger) Log(ctx context.Context, action, resourceType, resourceID string, metadata map[string]interface{}) {
	var orgID, userID string
	if claims, ok := ctx.Value(apiContext.Claims).(*auth.Claims); ok {
		orgID = claims.OrganizationID
		userID = claims.UserID
	}

	metaJSON, _ := json.Marshal(metadata)

	entry := &AuditLog{
		ID:             "audit_" + uuid.New().String(),
		OrganizationID: orgID,
		UserID:         userID,
		Action:         action,
		ResourceType:   resourceType,
		ResourceID:     resourceID,
		CreatedAt:      time.Now().Unix(),
	}

	go func() {
		query := `
			INSERT INTO audit_logs (id, organization_id, user_id, action, resource_type, resource_id, metadata, ip_address, user_agent, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		if _, err := l.globalDB.Exec(query, entry.ID, entry.OrganizationID, entry.UserID, entry.Action,
			entry.ResourceType, entry.ResourceID, string(metaJSON), entry.IPAddress, entry.UserAgent, entry.CreatedAt); err != nil {
			log.Warn().Err(err).Str("action", action).Msg("audit log write failed")
		}
	}()
}

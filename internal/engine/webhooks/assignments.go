package webhooks

import (
	"database/sql"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	apperrors "pagehook/internal/pkg/errors"
	"pagehook/internal/platform/models"
	"pagehook/internal/platform/repositories"
)

// AssignmentMap resolves which webhook, if any, is bound to a UI trigger
// point.
type AssignmentMap struct {
	assignments *repositories.AssignmentRepository
	webhooks    *repositories.WebhookRepository
}

func NewAssignmentMap(db *sql.DB) *AssignmentMap {
	return &AssignmentMap{
		assignments: repositories.NewAssignmentRepository(db),
		webhooks:    repositories.NewWebhookRepository(db),
	}
}

// GetAssignment returns the active assignment at (org, page, position), or
// nil when none exists. Duplicate active rows would violate the uniqueness
// constraint; if one ever appears the oldest wins and the rest are reported
// as an integrity warning, not a failure.
func (m *AssignmentMap) GetAssignment(orgID, page, position string) (*models.Assignment, error) {
	if err := RequireOrg(orgID); err != nil {
		return nil, err
	}

	matches, err := m.assignments.GetActive(orgID, page, position)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	if len(matches) > 1 {
		log.Warn().
			Str("org_id", orgID).
			Str("page", page).
			Str("position", position).
			Int("count", len(matches)).
			Msg("duplicate active assignments at trigger point")
	}
	return matches[0], nil
}

func (m *AssignmentMap) GetActiveAssignments(orgID, page string) ([]*models.Assignment, error) {
	if err := RequireOrg(orgID); err != nil {
		return nil, err
	}
	return m.assignments.ListActiveByOrg(orgID, page)
}

func (m *AssignmentMap) ListViews(orgID, page string) ([]*models.AssignmentView, error) {
	if err := RequireOrg(orgID); err != nil {
		return nil, err
	}
	return m.assignments.ListActiveViews(orgID, page)
}

// Assign binds a webhook to a trigger point, atomically replacing whatever
// was active there: the previous assignment is deactivated and the new one
// inserted in a single transaction. The partial unique index on the triple
// backstops concurrent assigns.
func (m *AssignmentMap) Assign(orgID, page, position, webhookID string) (*models.Assignment, error) {
	if err := RequireOrg(orgID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(page) == "" || strings.TrimSpace(position) == "" {
		return nil, apperrors.Validation("page and position are required")
	}

	webhook, err := m.webhooks.GetByID(webhookID)
	if err != nil {
		return nil, err
	}
	if webhook == nil {
		return nil, apperrors.NotFound("webhook %s not found", webhookID)
	}

	assignment := &models.Assignment{
		OrganizationID: orgID,
		Page:           page,
		Position:       position,
		WebhookID:      webhookID,
		IsActive:       true,
	}

	tx, err := m.assignments.BeginTx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := m.assignments.DeactivateTripleTx(tx, orgID, page, position); err != nil {
		return nil, err
	}
	if err := m.assignments.CreateTx(tx, assignment); err != nil {
		if isUniqueConstraint(err) {
			return nil, apperrors.Conflict("an active assignment already exists at %s/%s", page, position)
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return assignment, nil
}

// Unassign deactivates an assignment. The row is kept for history.
func (m *AssignmentMap) Unassign(assignmentID string) error {
	assignment, err := m.assignments.GetByID(assignmentID)
	if err != nil {
		return err
	}
	if assignment == nil {
		return apperrors.NotFound("assignment %s not found", assignmentID)
	}
	return m.assignments.Deactivate(assignmentID)
}

func isUniqueConstraint(err error) bool {
	if sqliteErr, ok := err.(sqlite3.Error); ok {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

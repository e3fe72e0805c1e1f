package repositories

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"pagehook/internal/platform/models"
)

type AssignmentRepository struct {
	db *sql.DB
}

func NewAssignmentRepository(db *sql.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = `id, organization_id, page, position, webhook_id, is_active, created_at, updated_at`

func scanAssignment(scan func(dest ...interface{}) error) (*models.Assignment, error) {
	var a models.Assignment
	err := scan(&a.ID, &a.OrganizationID, &a.Page, &a.Position, &a.WebhookID, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AssignmentRepository) BeginTx() (*sql.Tx, error) {
	return r.db.Begin()
}

func (r *AssignmentRepository) CreateTx(tx *sql.Tx, a *models.Assignment) error {
	if a.ID == "" {
		a.ID = "asg_" + uuid.New().String()
	}
	a.CreatedAt = time.Now().Unix()
	a.UpdatedAt = a.CreatedAt

	_, err := tx.Exec(`
		INSERT INTO webhook_assignments (id, organization_id, page, position, webhook_id, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.OrganizationID, a.Page, a.Position, a.WebhookID, a.IsActive, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *AssignmentRepository) GetByID(id string) (*models.Assignment, error) {
	row := r.db.QueryRow(`SELECT `+assignmentColumns+` FROM webhook_assignments WHERE id = ?`, id)
	a, err := scanAssignment(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// GetActive returns all active assignments at a triple, oldest first. A
// healthy store holds at most one; callers treat extras as an integrity
// warning and use the first.
func (r *AssignmentRepository) GetActive(orgID, page, position string) ([]*models.Assignment, error) {
	rows, err := r.db.Query(`
		SELECT `+assignmentColumns+` FROM webhook_assignments
		WHERE organization_id = ? AND page = ? AND position = ? AND is_active = 1
		ORDER BY created_at
	`, orgID, page, position)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []*models.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows.Scan)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

func (r *AssignmentRepository) ListActiveByOrg(orgID, page string) ([]*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM webhook_assignments WHERE organization_id = ? AND is_active = 1`
	args := []interface{}{orgID}
	if page != "" {
		query += ` AND page = ?`
		args = append(args, page)
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []*models.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows.Scan)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// ListActiveViews joins active assignments with the webhook display fields
// consumers need to decide whether to show a trigger affordance.
func (r *AssignmentRepository) ListActiveViews(orgID, page string) ([]*models.AssignmentView, error) {
	query := `
		SELECT a.id, a.organization_id, a.page, a.position, a.webhook_id, a.is_active, a.created_at, a.updated_at,
			w.name, w.is_active
		FROM webhook_assignments a
		JOIN webhooks w ON w.id = a.webhook_id
		WHERE a.organization_id = ? AND a.is_active = 1`
	args := []interface{}{orgID}
	if page != "" {
		query += ` AND a.page = ?`
		args = append(args, page)
	}
	query += ` ORDER BY a.created_at`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []*models.AssignmentView
	for rows.Next() {
		var v models.AssignmentView
		if err := rows.Scan(&v.ID, &v.OrganizationID, &v.Page, &v.Position, &v.WebhookID, &v.IsActive,
			&v.CreatedAt, &v.UpdatedAt, &v.WebhookName, &v.WebhookActive); err != nil {
			return nil, err
		}
		views = append(views, &v)
	}
	return views, rows.Err()
}

func (r *AssignmentRepository) CountActiveByWebhook(webhookID string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM webhook_assignments WHERE webhook_id = ? AND is_active = 1`, webhookID).Scan(&count)
	return count, err
}

func (r *AssignmentRepository) Deactivate(id string) error {
	_, err := r.db.Exec(`UPDATE webhook_assignments SET is_active = 0, updated_at = ? WHERE id = ?`, time.Now().Unix(), id)
	return err
}

func (r *AssignmentRepository) DeactivateTripleTx(tx *sql.Tx, orgID, page, position string) error {
	_, err := tx.Exec(`
		UPDATE webhook_assignments SET is_active = 0, updated_at = ?
		WHERE organization_id = ? AND page = ? AND position = ? AND is_active = 1
	`, time.Now().Unix(), orgID, page, position)
	return err
}

func (r *AssignmentRepository) DeactivateByWebhookTx(tx *sql.Tx, webhookID string) error {
	_, err := tx.Exec(`
		UPDATE webhook_assignments SET is_active = 0, updated_at = ?
		WHERE webhook_id = ? AND is_active = 1
	`, time.Now().Unix(), webhookID)
	return err
}

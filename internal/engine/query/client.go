package query

import (
	"context"
	"database/sql"
	"time"

	"pagehook/internal/engine/webhooks"
	apperrors "pagehook/internal/pkg/errors"
	"pagehook/internal/platform/config"
	"pagehook/internal/platform/models"
	"pagehook/internal/platform/repositories"
)

// TriggerEventType is the event type injected into production triggers fired
// from UI positions.
const TriggerEventType = "webhook.trigger"

// Client is the consumer-facing surface of the webhook subsystem: cached
// assignment reads plus trigger and test actions. UI callers ask it "is
// there a webhook at this page and position?" before rendering a trigger
// affordance.
type Client struct {
	cache *AssignmentCache
	cfg   config.WebhooksConfig
}

func NewClient(cacheTTL time.Duration, cfg config.WebhooksConfig) *Client {
	if cacheTTL <= 0 {
		cacheTTL = 2 * time.Minute
	}
	return &Client{
		cache: NewAssignmentCache(cacheTTL),
		cfg:   cfg,
	}
}

func (c *Client) pageViews(db *sql.DB, orgID, page string) ([]*models.AssignmentView, error) {
	if views, ok := c.cache.Get(orgID, page); ok {
		return views, nil
	}

	views, err := repositories.NewAssignmentRepository(db).ListActiveViews(orgID, page)
	if err != nil {
		return nil, err
	}
	c.cache.Set(orgID, page, views)
	return views, nil
}

// GetWebhookAt returns the assignment at a position, or nil when the
// position is unbound. An assignment whose webhook has been deactivated
// counts as unbound: effective availability is assignment.is_active AND
// webhook.is_active.
func (c *Client) GetWebhookAt(db *sql.DB, orgID, page, position string) (*models.AssignmentView, error) {
	if err := webhooks.RequireOrg(orgID); err != nil {
		return nil, err
	}

	views, err := c.pageViews(db, orgID, page)
	if err != nil {
		return nil, err
	}

	for _, view := range views {
		if view.Position == position {
			if !view.WebhookActive {
				return nil, nil
			}
			return view, nil
		}
	}
	return nil, nil
}

func (c *Client) HasWebhookAt(db *sql.DB, orgID, page, position string) (bool, error) {
	view, err := c.GetWebhookAt(db, orgID, page, position)
	if err != nil {
		return false, err
	}
	return view != nil, nil
}

// ListAssignments returns all active assignments for the organization,
// optionally narrowed to one page. Always reads through the cache when a
// page is given.
func (c *Client) ListAssignments(db *sql.DB, orgID, page string) ([]*models.AssignmentView, error) {
	if err := webhooks.RequireOrg(orgID); err != nil {
		return nil, err
	}
	if page != "" {
		return c.pageViews(db, orgID, page)
	}
	return repositories.NewAssignmentRepository(db).ListActiveViews(orgID, "")
}

// TriggerWebhookAt resolves the assignment at a position and fires the bound
// webhook. When nothing resolves the caller gets a NOT_CONFIGURED error and
// no execution record is written.
func (c *Client) TriggerWebhookAt(ctx context.Context, db *sql.DB, orgID, userID, page, position string, payload, extra map[string]interface{}) (*webhooks.Outcome, error) {
	view, err := c.GetWebhookAt(db, orgID, page, position)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, apperrors.NotConfigured("no webhook configured at %s/%s", page, position)
	}

	hook, err := repositories.NewWebhookRepository(db).GetByID(view.WebhookID)
	if err != nil {
		return nil, err
	}
	if hook == nil || !hook.IsActive {
		return nil, apperrors.NotConfigured("no webhook configured at %s/%s", page, position)
	}

	merged := make(map[string]interface{}, len(payload)+len(extra))
	for k, v := range payload {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}

	engine := webhooks.NewTriggerEngine(db, c.cfg)
	outcome := engine.Trigger(ctx, hook, TriggerEventType, merged, &webhooks.TriggerContext{
		OrganizationID: orgID,
		UserID:         userID,
		Page:           page,
		Position:       position,
	})
	return outcome, nil
}

// RunTest fires a test invocation against a webhook by id.
func (c *Client) RunTest(ctx context.Context, db *sql.DB, webhookID, eventType string) (*webhooks.Outcome, error) {
	engine := webhooks.NewTriggerEngine(db, c.cfg)
	tracker := webhooks.NewHealthTracker(db, engine)
	return tracker.RunTest(ctx, webhookID, eventType)
}

// Invalidate drops cached assignment data for one page. Mutating handlers
// call this after every write that can change what a position resolves to.
func (c *Client) Invalidate(orgID, page string) {
	c.cache.Invalidate(orgID, page)
}

// InvalidateOrg drops all cached pages for an organization.
func (c *Client) InvalidateOrg(orgID string) {
	c.cache.InvalidateOrg(orgID)
}

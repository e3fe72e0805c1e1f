package query

import (
	"sync"
	"time"

	"pagehook/internal/platform/models"
)

type cachedPage struct {
	Views    []*models.AssignmentView
	CachedAt time.Time
}

// AssignmentCache holds the active assignments of one (org, page) pair for a
// short staleness window. Serving a slightly stale "is configured" answer is
// acceptable; mutations call Invalidate.
type AssignmentCache struct {
	store sync.Map // map[orgID|page]*cachedPage
	ttl   time.Duration
}

func NewAssignmentCache(ttl time.Duration) *AssignmentCache {
	return &AssignmentCache{
		ttl: ttl,
	}
}

func cacheKey(orgID, page string) string {
	return orgID + "|" + page
}

func (c *AssignmentCache) Get(orgID, page string) ([]*models.AssignmentView, bool) {
	val, ok := c.store.Load(cacheKey(orgID, page))
	if !ok {
		return nil, false
	}

	entry := val.(*cachedPage)
	if time.Since(entry.CachedAt) > c.ttl {
		c.store.Delete(cacheKey(orgID, page))
		return nil, false
	}

	return entry.Views, true
}

func (c *AssignmentCache) Set(orgID, page string, views []*models.AssignmentView) {
	c.store.Store(cacheKey(orgID, page), &cachedPage{
		Views:    views,
		CachedAt: time.Now(),
	})
}

func (c *AssignmentCache) Invalidate(orgID, page string) {
	c.store.Delete(cacheKey(orgID, page))
}

// InvalidateOrg drops every cached page for an organization. Used after
// mutations whose page scope is unknown, e.g. webhook deletes.
func (c *AssignmentCache) InvalidateOrg(orgID string) {
	prefix := orgID + "|"
	c.store.Range(func(key, _ interface{}) bool {
		if k, ok := key.(string); ok && len(k) > len(prefix) && k[:len(prefix)] == prefix {
			c.store.Delete(key)
		}
		return true
	})
}

package services

import (
	"container/list"
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/davallejo/telco-churn-dashboard/internal/dataprocessing"
	"github.com/davallejo/telco-churn-dashboard/internal/infrastructure"
	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/domain"
)

type viewKey struct {
	datasetID string
	filters   domain.FilterState
}

func (k viewKey) String() string {
	return strings.Join([]string{k.datasetID, k.filters.Contract, k.filters.InternetService, k.filters.Search}, "\x00")
}

type viewEntry struct {
	key  viewKey
	view []domain.Record
}

// ViewCache memoizes filtered views by (dataset ID, filter state). Datasets
// are immutable once loaded, so an entry never goes stale; it only ages out
// of the LRU. Concurrent misses for the same key share one computation.
type ViewCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[viewKey]*list.Element
	group    singleflight.Group
	metrics  *infrastructure.BusinessMetrics
}

// NewViewCache returns a cache holding up to capacity views. A capacity of
// zero disables caching.
func NewViewCache(capacity int, metrics *infrastructure.BusinessMetrics) *ViewCache {
	if capacity < 0 {
		capacity = 0
	}
	return &ViewCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[viewKey]*list.Element),
		metrics:  metrics,
	}
}

// View returns the filtered view of state. The returned slice is shared and
// must not be modified.
func (c *ViewCache) View(ctx context.Context, state domain.DashboardState) []domain.Record {
	if state.Dataset == nil {
		return nil
	}
	if c == nil || c.capacity == 0 {
		return dataprocessing.View(state)
	}

	key := viewKey{datasetID: state.Dataset.ID, filters: state.Filters}
	if view, ok := c.get(key); ok {
		c.metrics.RecordCacheLookup(ctx, true)
		return view
	}
	c.metrics.RecordCacheLookup(ctx, false)

	v, _, _ := c.group.Do(key.String(), func() (interface{}, error) {
		view := dataprocessing.View(state)
		c.put(key, view)
		return view, nil
	})
	return v.([]domain.Record)
}

// Len reports the number of cached views.
func (c *ViewCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Forget drops every view computed from the dataset.
func (c *ViewCache) Forget(datasetID string) {
	if c == nil || datasetID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, el := range c.entries {
		if key.datasetID == datasetID {
			c.order.Remove(el)
			delete(c.entries, key)
		}
	}
}

func (c *ViewCache) get(key viewKey) ([]domain.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*viewEntry).view, true
}

func (c *ViewCache) put(key viewKey, view []domain.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		el.Value.(*viewEntry).view = view
		return
	}
	c.entries[key] = c.order.PushFront(&viewEntry{key: key, view: view})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*viewEntry).key)
	}
}

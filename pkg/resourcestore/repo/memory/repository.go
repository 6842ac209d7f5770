package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/tendant/campus-gateway/pkg/resourcestore"
)

// Repository implements resourcestore.Repository using in-memory storage
type Repository struct {
	mu        sync.RWMutex
	resources map[uuid.UUID]*entry
	seq       uint64
	now       func() time.Time
}

type entry struct {
	resource *resourcestore.Resource
	// seq orders records created within the same clock tick
	seq uint64
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		resources: make(map[uuid.UUID]*entry),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (r *Repository) CreateResource(ctx context.Context, resource *resourcestore.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.resources[resource.ID]; exists {
		return resourcestore.ErrDuplicateResource
	}

	now := r.now()
	resource.CreatedAt = now
	resource.UpdatedAt = now
	if resource.Tags == nil {
		resource.Tags = []string{}
	}

	r.seq++
	r.resources[resource.ID] = &entry{resource: clone(resource), seq: r.seq}
	return nil
}

func (r *Repository) GetResource(ctx context.Context, id uuid.UUID) (*resourcestore.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.resources[id]
	if !exists {
		return nil, resourcestore.ErrResourceNotFound
	}
	return clone(e.resource), nil
}

func (r *Repository) ListResources(ctx context.Context, query resourcestore.ResourceQuery) ([]*resourcestore.Resource, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type match struct {
		e     *entry
		score int
	}
	matches := make([]match, 0, len(r.resources))
	for _, e := range r.resources {
		res := e.resource
		if query.SemesterTag != "" && res.SemesterTag != query.SemesterTag {
			continue
		}
		if query.Category != "" && res.Category != query.Category {
			continue
		}
		score := 0
		if len(query.Terms) > 0 {
			score = resourcestore.SearchScore(res, query.Terms)
			if score == 0 {
				continue
			}
		}
		matches = append(matches, match{e: e, score: score})
	}

	newer := func(a, b *entry) bool {
		if !a.resource.CreatedAt.Equal(b.resource.CreatedAt) {
			return a.resource.CreatedAt.After(b.resource.CreatedAt)
		}
		return a.seq > b.seq
	}
	slices.SortStableFunc(matches, func(a, b match) int {
		var less bool
		switch query.Sort {
		case resourcestore.SortOldest:
			less = newer(b.e, a.e)
		case resourcestore.SortDownloads:
			if a.e.resource.DownloadCount != b.e.resource.DownloadCount {
				less = a.e.resource.DownloadCount > b.e.resource.DownloadCount
			} else {
				less = newer(a.e, b.e)
			}
		case resourcestore.SortRelevance:
			if a.score != b.score {
				less = a.score > b.score
			} else {
				less = newer(a.e, b.e)
			}
		default:
			less = newer(a.e, b.e)
		}
		if less {
			return -1
		}
		return 1
	})

	total := int64(len(matches))
	start := query.Offset
	if start > len(matches) {
		start = len(matches)
	}
	end := len(matches)
	if query.Limit > 0 && start+query.Limit < end {
		end = start + query.Limit
	}

	result := make([]*resourcestore.Resource, 0, end-start)
	for _, m := range matches[start:end] {
		result = append(result, clone(m.e.resource))
	}
	return result, total, nil
}

func (r *Repository) IncrementDownloadCount(ctx context.Context, id uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.resources[id]
	if !exists {
		return 0, resourcestore.ErrResourceNotFound
	}
	e.resource.DownloadCount++
	e.resource.UpdatedAt = r.now()
	return e.resource.DownloadCount, nil
}

func (r *Repository) DeleteResource(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.resources[id]; !exists {
		return resourcestore.ErrResourceNotFound
	}
	delete(r.resources, id)
	return nil
}

// clone returns a copy that shares no mutable state with the stored record
func clone(res *resourcestore.Resource) *resourcestore.Resource {
	c := *res
	c.Tags = slices.Clone(res.Tags)
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return &c
}

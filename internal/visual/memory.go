package visual

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps visuals in process. Used when no database is
// configured.
type MemoryRepository struct {
	mu      sync.RWMutex
	visuals map[string]Visual
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{visuals: make(map[string]Visual)}
}

func (r *MemoryRepository) Create(_ context.Context, v *Visual) error {
	r.mu.Lock()
	r.visuals[v.ID] = *v
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*Visual, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.visuals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (r *MemoryRepository) ListByCampaign(_ context.Context, campaignID string, limit int) ([]Visual, error) {
	r.mu.RLock()
	out := []Visual{}
	for _, v := range r.visuals {
		if v.CampaignID == campaignID {
			out = append(out, v)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

package object

import (
	"context"
	"sort"
	"sync"

	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/sky"
	"github.com/Ramsey-B/aster/pkg/spatialindex"
)

// Memory is the in-memory Store, used for local runs and tests. Reads
// and writes hand out deep copies so callers see stable snapshots.
type Memory struct {
	mu       sync.RWMutex
	objects  map[string]*models.CelestialObject
	bySource map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		objects:  make(map[string]*models.CelestialObject),
		bySource: make(map[string]string),
	}
}

func (m *Memory) Get(ctx context.Context, id string) (*models.CelestialObject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[id]
	if !ok {
		return nil, nil
	}
	return obj.Clone(), nil
}

func (m *Memory) GetBySource(ctx context.Context, survey, sourceID string) (*models.CelestialObject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.bySource[survey+":"+sourceID]
	if !ok {
		return nil, nil
	}
	obj, ok := m.objects[id]
	if !ok {
		return nil, nil
	}
	return obj.Clone(), nil
}

func (m *Memory) Put(ctx context.Context, obj *models.CelestialObject) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.objects[obj.ID]; ok {
		for _, c := range prev.Contributions {
			delete(m.bySource, c.Record.Key())
		}
	}

	stored := obj.Clone()
	m.objects[stored.ID] = stored
	for _, c := range stored.Contributions {
		m.bySource[c.Record.Key()] = stored.ID
	}
	return nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[id]
	if !ok {
		return nil
	}
	for _, c := range obj.Contributions {
		delete(m.bySource, c.Record.Key())
	}
	delete(m.objects, id)
	return nil
}

func (m *Memory) List(ctx context.Context, page, pageSize int) ([]models.CelestialObject, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 100
	}

	all := make([]*models.CelestialObject, 0, len(m.objects))
	for _, obj := range m.objects {
		all = append(all, obj)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})

	total := len(all)
	start := (page - 1) * pageSize
	if start >= total {
		return []models.CelestialObject{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	out := make([]models.CelestialObject, 0, end-start)
	for _, obj := range all[start:end] {
		out = append(out, *obj.Clone())
	}
	return out, total, nil
}

func (m *Memory) Box(ctx context.Context, box sky.Box) ([]models.CelestialObject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.CelestialObject
	for _, obj := range m.objects {
		if obj.RA >= box.MinRA && obj.RA <= box.MaxRA && obj.Dec >= box.MinDec && obj.Dec <= box.MaxDec {
			out = append(out, *obj.Clone())
		}
	}
	return out, nil
}

func (m *Memory) Positions(ctx context.Context) ([]spatialindex.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]spatialindex.Entry, 0, len(m.objects))
	for _, obj := range m.objects {
		out = append(out, spatialindex.Entry{ID: obj.ID, RA: obj.RA, Dec: obj.Dec})
	}
	return out, nil
}

func (m *Memory) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects), nil
}

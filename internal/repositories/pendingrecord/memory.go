package pendingrecord

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Ramsey-B/aster/pkg/models"
)

// Memory is the in-memory Store.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*models.PendingRecord
}

// NewMemory creates an empty in-memory pending store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]*models.PendingRecord)}
}

func (m *Memory) Create(ctx context.Context, pending *models.PendingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *pending
	clone.Record = pending.Record.Clone()
	m.records[pending.ID] = &clone
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (*models.PendingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	clone := *p
	clone.Record = p.Record.Clone()
	return &clone, nil
}

func (m *Memory) List(ctx context.Context, status string, page, pageSize int) ([]models.PendingRecord, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 100
	}

	var all []*models.PendingRecord
	for _, p := range m.records {
		if status == "" || p.Status == status {
			all = append(all, p)
		}
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
		return []models.PendingRecord{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	out := make([]models.PendingRecord, 0, end-start)
	for _, p := range all[start:end] {
		clone := *p
		clone.Record = p.Record.Clone()
		out = append(out, clone)
	}
	return out, total, nil
}

func (m *Memory) Resolve(ctx context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.records[id]
	if !ok || p.Status != models.PendingStatusOpen {
		return models.ErrNotFound
	}
	now := time.Now().UTC()
	p.Status = status
	p.ResolvedAt = &now
	return nil
}

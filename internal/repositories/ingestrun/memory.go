package ingestrun

import (
	"context"
	"sort"
	"sync"

	"github.com/Ramsey-B/aster/pkg/models"
)

// Memory is the in-memory Store.
type Memory struct {
	mu   sync.RWMutex
	runs map[string]*models.IngestRun
}

// NewMemory creates an empty in-memory run store.
func NewMemory() *Memory {
	return &Memory{runs: make(map[string]*models.IngestRun)}
}

func (m *Memory) Create(ctx context.Context, run *models.IngestRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *run
	m.runs[run.ID] = &clone
	return nil
}

func (m *Memory) Update(ctx context.Context, run *models.IngestRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *run
	m.runs[run.ID] = &clone
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (*models.IngestRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	clone := *run
	return &clone, nil
}

func (m *Memory) List(ctx context.Context, page, pageSize int) ([]models.IngestRun, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 100
	}

	all := make([]*models.IngestRun, 0, len(m.runs))
	for _, run := range m.runs {
		all = append(all, run)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].StartedAt.Equal(all[j].StartedAt) {
			return all[i].StartedAt.After(all[j].StartedAt)
		}
		return all[i].ID < all[j].ID
	})

	total := len(all)
	start := (page - 1) * pageSize
	if start >= total {
		return []models.IngestRun{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	out := make([]models.IngestRun, 0, end-start)
	for _, run := range all[start:end] {
		out = append(out, *run)
	}
	return out, total, nil
}

package matchaudit

import (
	"context"
	"sync"

	"github.com/Ramsey-B/aster/pkg/models"
)

// Memory is the in-memory Store.
type Memory struct {
	mu     sync.RWMutex
	audits []models.MatchAudit
}

// NewMemory creates an empty in-memory audit store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Create(ctx context.Context, audit *models.MatchAudit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, *audit)
	return nil
}

func (m *Memory) ListBySource(ctx context.Context, survey, sourceID string) ([]models.MatchAudit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.MatchAudit
	for i := len(m.audits) - 1; i >= 0; i-- {
		if m.audits[i].Survey == survey && m.audits[i].SourceID == sourceID {
			out = append(out, m.audits[i])
		}
	}
	return out, nil
}

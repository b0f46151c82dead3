package surveyschema

import (
	"context"
	"sort"
	"sync"

	"github.com/Ramsey-B/aster/pkg/models"
)

// Memory is the in-memory Store, also used to seed schemas from config.
type Memory struct {
	mu      sync.RWMutex
	schemas map[string]models.SurveySchema
}

// NewMemory creates an in-memory schema store, optionally pre-seeded.
func NewMemory(seed ...models.SurveySchema) *Memory {
	m := &Memory{schemas: make(map[string]models.SurveySchema, len(seed))}
	for _, s := range seed {
		m.schemas[s.Survey] = s
	}
	return m
}

func (m *Memory) Upsert(ctx context.Context, schema *models.SurveySchema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemas[schema.Survey] = *schema
	return nil
}

func (m *Memory) GetBySurvey(ctx context.Context, survey string) (*models.SurveySchema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.schemas[survey]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) List(ctx context.Context) ([]models.SurveySchema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.SurveySchema, 0, len(m.schemas))
	for _, s := range m.schemas {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Survey < out[j].Survey })
	return out, nil
}

package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/aster/internal/repositories/ingestrun"
	"github.com/Ramsey-B/aster/internal/repositories/matchaudit"
	"github.com/Ramsey-B/aster/internal/repositories/object"
	"github.com/Ramsey-B/aster/internal/repositories/pendingrecord"
	"github.com/Ramsey-B/aster/internal/repositories/surveyschema"
	"github.com/Ramsey-B/aster/pkg/kafka"
	"github.com/Ramsey-B/aster/pkg/logging"
	"github.com/Ramsey-B/aster/pkg/matching"
	"github.com/Ramsey-B/aster/pkg/merging"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/normalizer"
	"github.com/Ramsey-B/aster/pkg/spatialindex"
)

// flakyStore fails the first failures Put calls, then recovers.
type flakyStore struct {
	object.Store
	mu       sync.Mutex
	failures int
}

func (s *flakyStore) Put(ctx context.Context, obj *models.CelestialObject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return models.NewStoreUnavailable("put", errors.New("connection refused"))
	}
	return s.Store.Put(ctx, obj)
}

func testSchema() models.SurveySchema {
	return models.SurveySchema{
		Survey:         "testsurvey",
		RAColumn:       "ra",
		DecColumn:      "dec",
		SourceIDColumn: "id",
		Columns: []models.ColumnDef{
			{Name: "mag", Type: models.ColumnFloat},
		},
	}
}

type runnerFixture struct {
	runner *Runner
	store  object.Store
	runs   *ingestrun.Memory
}

func newRunnerFixture(store object.Store, cfg Config) *runnerFixture {
	logger := logging.NewNop()
	index := spatialindex.New()
	schemas := surveyschema.NewMemory(testSchema())
	runs := ingestrun.NewMemory()

	resolver := matching.NewResolver(index, store, nil, logger, matching.DefaultConfig())
	engine := merging.NewEngine(resolver, index, store, pendingrecord.NewMemory(), matchaudit.NewMemory(), nil, logger)
	norm := normalizer.New(schemas, logger)

	return &runnerFixture{
		runner: NewRunner(norm, engine, runs, logger, cfg),
		store:  store,
		runs:   runs,
	}
}

func feed(rows ...map[string]any) <-chan map[string]any {
	ch := make(chan map[string]any, len(rows))
	for _, row := range rows {
		ch <- row
	}
	close(ch)
	return ch
}

func TestRunCountsOutcomes(t *testing.T) {
	f := newRunnerFixture(object.NewMemory(), Config{})

	run, err := f.runner.Run(context.Background(), "testsurvey", "batch.csv", feed(
		map[string]any{"id": "a1", "ra": "150.0", "dec": "2.0", "mag": "14.2"},
		map[string]any{"id": "b1", "ra": "200.0", "dec": "-30.0"},
		map[string]any{"id": "bad", "ra": "not-a-number", "dec": "2.0"},
	))
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 3, run.Summary.Total)
	assert.Equal(t, 2, run.Summary.Created)
	assert.Equal(t, 1, run.Summary.Malformed)
	assert.Zero(t, run.Summary.Failed)
	require.NotNil(t, run.FinishedAt)

	// run is queryable afterwards
	stored, err := f.runs.Get(context.Background(), run.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, run.Summary, stored.Summary)
}

func TestRunRetriesTransientFailures(t *testing.T) {
	store := &flakyStore{Store: object.NewMemory(), failures: 2}
	f := newRunnerFixture(store, Config{RetryAttempts: 3, RetryBaseDelay: time.Millisecond})

	run, err := f.runner.Run(context.Background(), "testsurvey", "", feed(
		map[string]any{"id": "a1", "ra": "10.0", "dec": "10.0"},
	))
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.Summary.Created)
	assert.Zero(t, run.Summary.Failed)
}

func TestRunFailsWhenStoreStaysDown(t *testing.T) {
	store := &flakyStore{Store: object.NewMemory(), failures: 100}
	f := newRunnerFixture(store, Config{RetryAttempts: 2, RetryBaseDelay: time.Millisecond})

	run, err := f.runner.Run(context.Background(), "testsurvey", "", feed(
		map[string]any{"id": "a1", "ra": "10.0", "dec": "10.0"},
	))
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Equal(t, 1, run.Summary.Failed)
	assert.NotEmpty(t, run.Error)
}

func TestRunCanceledContext(t *testing.T) {
	f := newRunnerFixture(object.NewMemory(), Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := f.runner.Run(ctx, "testsurvey", "", feed(
		map[string]any{"id": "a1", "ra": "10.0", "dec": "10.0"},
		map[string]any{"id": "a2", "ra": "20.0", "dec": "10.0"},
	))
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCanceled, run.Status)

	stored, err := f.runs.Get(context.Background(), run.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.RunStatusCanceled, stored.Status)
}

func TestHandleMessage(t *testing.T) {
	f := newRunnerFixture(object.NewMemory(), Config{})
	ctx := context.Background()

	msg := &kafka.IncomingMessage{
		Record: &kafka.RecordMessage{
			Survey: "testsurvey",
			Row:    map[string]any{"id": "a1", "ra": "10.0", "dec": "10.0"},
		},
	}
	require.NoError(t, f.runner.HandleMessage(ctx, msg))

	count, err := f.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// malformed payloads are dropped without error so the offset commits
	bad := &kafka.IncomingMessage{
		Record: &kafka.RecordMessage{
			Survey: "testsurvey",
			Row:    map[string]any{"id": "a2", "ra": "west", "dec": "10.0"},
		},
	}
	require.NoError(t, f.runner.HandleMessage(ctx, bad))

	count, err = f.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

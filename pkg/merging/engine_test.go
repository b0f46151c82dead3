package merging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/aster/internal/repositories/matchaudit"
	"github.com/Ramsey-B/aster/internal/repositories/object"
	"github.com/Ramsey-B/aster/internal/repositories/pendingrecord"
	"github.com/Ramsey-B/aster/pkg/logging"
	"github.com/Ramsey-B/aster/pkg/matching"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/spatialindex"
)

type engineFixture struct {
	engine  *Engine
	store   *object.Memory
	pending *pendingrecord.Memory
	audits  *matchaudit.Memory
	index   *spatialindex.Index
}

func newEngineFixture(priorities ...models.SurveyPriority) *engineFixture {
	index := spatialindex.New()
	store := object.NewMemory()
	pending := pendingrecord.NewMemory()
	audits := matchaudit.NewMemory()
	logger := logging.NewNop()

	resolver := matching.NewResolver(index, store, priorities, logger, matching.DefaultConfig())
	engine := NewEngine(resolver, index, store, pending, audits, nil, logger)

	return &engineFixture{
		engine:  engine,
		store:   store,
		pending: pending,
		audits:  audits,
		index:   index,
	}
}

func record(survey, sourceID string, ra, dec float64) models.CatalogRecord {
	return models.CatalogRecord{
		Survey:      survey,
		SourceID:    sourceID,
		RA:          ra,
		Dec:         dec,
		Fingerprint: "fp-" + survey + "-" + sourceID,
	}
}

func TestProcessRecordScenario(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	// first record creates an object at its own position
	a := record("surveyA", "a1", 150.000, 2.000)
	outA, err := f.engine.ProcessRecord(ctx, &a)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionNew, outA.Decision)
	require.NotNil(t, outA.Object)
	assert.InDelta(t, 150.000, outA.Object.RA, 1e-9)
	assert.InDelta(t, 2.000, outA.Object.Dec, 1e-9)

	// a counterpart 0.7 arcsec away merges and the position moves to the mean
	b := record("surveyB", "b1", 150.0002, 2.0001)
	outB, err := f.engine.ProcessRecord(ctx, &b)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionMerge, outB.Decision)
	assert.Equal(t, outA.Object.ID, outB.Object.ID)
	assert.InDelta(t, 150.0001, outB.Object.RA, 1e-6)
	assert.InDelta(t, 2.00005, outB.Object.Dec, 1e-6)
	assert.Equal(t, 2, outB.Object.Version)

	// a distant record creates a second object
	c := record("surveyC", "c1", 150.01, 2.01)
	outC, err := f.engine.ProcessRecord(ctx, &c)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionNew, outC.Decision)
	assert.NotEqual(t, outA.Object.ID, outC.Object.ID)

	count, err := f.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestProcessRecordIdempotent(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	a := record("surveyA", "a1", 10, 10)
	first, err := f.engine.ProcessRecord(ctx, &a)
	require.NoError(t, err)
	require.Equal(t, models.DecisionNew, first.Decision)

	again := record("surveyA", "a1", 10, 10)
	second, err := f.engine.ProcessRecord(ctx, &again)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionUnchanged, second.Decision)
	assert.Equal(t, first.Object.ID, second.Object.ID)

	// no second object, no version bump
	obj, err := f.store.Get(ctx, first.Object.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, obj.Version)

	count, err := f.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestProcessRecordOrderIndependent(t *testing.T) {
	ctx := context.Background()
	records := []models.CatalogRecord{
		record("surveyA", "a1", 150.000, 2.000),
		record("surveyB", "b1", 150.0002, 2.0001),
		record("surveyC", "c1", 150.01, 2.01),
	}

	run := func(order []int) (int, map[string][]string) {
		f := newEngineFixture()
		for _, i := range order {
			rec := records[i]
			_, err := f.engine.ProcessRecord(ctx, &rec)
			require.NoError(t, err)
		}
		objs, _, err := f.store.List(ctx, 1, 100)
		require.NoError(t, err)

		groups := make(map[string][]string)
		for _, obj := range objs {
			key := obj.Contributions["surveyA"].Record.SourceID
			if key == "" {
				key = "lone"
			}
			for survey := range obj.Contributions {
				groups[key] = append(groups[key], survey)
			}
		}
		return len(objs), groups
	}

	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}}
	for _, order := range orders {
		count, groups := run(order)
		assert.Equal(t, 2, count, "order %v", order)
		assert.ElementsMatch(t, []string{"surveyA", "surveyB"}, groups["a1"], "order %v", order)
		assert.ElementsMatch(t, []string{"surveyC"}, groups["lone"], "order %v", order)
	}
}

func TestProcessRecordWritesAudit(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	a := record("surveyA", "a1", 10, 10)
	_, err := f.engine.ProcessRecord(ctx, &a)
	require.NoError(t, err)

	b := record("surveyB", "b1", 10, 10+0.5/3600.0)
	outcome, err := f.engine.ProcessRecord(ctx, &b)
	require.NoError(t, err)
	require.Equal(t, models.DecisionMerge, outcome.Decision)

	audits, err := f.audits.ListBySource(ctx, "surveyB", "b1")
	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.Equal(t, outcome.Object.ID, audits[0].ObjectID)
	assert.InDelta(t, 0.5, audits[0].Separation, 1e-6)
}

func TestProcessRecordAmbiguousParksRecord(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	a := record("surveyA", "a1", 10, 10)
	first, err := f.engine.ProcessRecord(ctx, &a)
	require.NoError(t, err)

	changed := record("surveyA", "a1", 10, 10)
	changed.Fingerprint = "fp-changed"
	outcome, err := f.engine.ProcessRecord(ctx, &changed)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionAmbiguous, outcome.Decision)

	parked, total, err := f.pending.List(ctx, models.PendingStatusOpen, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, parked, 1)
	assert.Equal(t, first.Object.ID, parked[0].ObjectID)

	// object untouched until an operator decides
	obj, err := f.store.Get(ctx, first.Object.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, obj.Version)
	assert.Equal(t, "fp-surveyA-a1", obj.Contributions["surveyA"].Record.Fingerprint)
}

func TestApprovePendingReplacesContribution(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	a := record("surveyA", "a1", 10, 10)
	first, err := f.engine.ProcessRecord(ctx, &a)
	require.NoError(t, err)

	changed := record("surveyA", "a1", 10, 10+0.5/3600.0)
	changed.Fingerprint = "fp-v2"
	_, err = f.engine.ProcessRecord(ctx, &changed)
	require.NoError(t, err)

	parked, _, err := f.pending.List(ctx, models.PendingStatusOpen, 1, 10)
	require.NoError(t, err)
	require.Len(t, parked, 1)

	obj, err := f.engine.ApprovePending(ctx, parked[0].ID)
	require.NoError(t, err)
	assert.Equal(t, first.Object.ID, obj.ID)
	assert.Equal(t, "fp-v2", obj.Contributions["surveyA"].Record.Fingerprint)
	assert.Equal(t, 2, obj.Version)
	assert.InDelta(t, 10+0.5/3600.0, obj.Dec, 1e-9)

	// resolved records leave the open queue
	_, total, err := f.pending.List(ctx, models.PendingStatusOpen, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)

	// approving twice fails
	_, err = f.engine.ApprovePending(ctx, parked[0].ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRejectPendingKeepsObject(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	a := record("surveyA", "a1", 10, 10)
	first, err := f.engine.ProcessRecord(ctx, &a)
	require.NoError(t, err)

	changed := record("surveyA", "a1", 10, 10)
	changed.Fingerprint = "fp-v2"
	_, err = f.engine.ProcessRecord(ctx, &changed)
	require.NoError(t, err)

	parked, _, err := f.pending.List(ctx, models.PendingStatusOpen, 1, 10)
	require.NoError(t, err)
	require.Len(t, parked, 1)

	require.NoError(t, f.engine.RejectPending(ctx, parked[0].ID))

	obj, err := f.store.Get(ctx, first.Object.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, obj.Version)
	assert.Equal(t, "fp-surveyA-a1", obj.Contributions["surveyA"].Record.Fingerprint)
}

func TestRejectPendingUnknownID(t *testing.T) {
	f := newEngineFixture()
	err := f.engine.RejectPending(context.Background(), "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

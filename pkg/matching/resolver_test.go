package matching

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/aster/internal/repositories/object"
	"github.com/Ramsey-B/aster/pkg/logging"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/spatialindex"
)

type fixture struct {
	index *spatialindex.Index
	store *object.Memory
}

func newFixture() *fixture {
	return &fixture{index: spatialindex.New(), store: object.NewMemory()}
}

func (f *fixture) resolver(priorities ...models.SurveyPriority) *Resolver {
	return NewResolver(f.index, f.store, priorities, logging.NewNop(), DefaultConfig())
}

func (f *fixture) addObject(t *testing.T, id string, ra, dec float64, records ...models.CatalogRecord) {
	t.Helper()
	obj := &models.CelestialObject{
		ID:            id,
		RA:            ra,
		Dec:           dec,
		Contributions: map[string]models.Contribution{},
		Version:       1,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	for _, rec := range records {
		obj.Contributions[rec.Survey] = models.Contribution{Record: rec, AddedAt: time.Now().UTC()}
	}
	require.NoError(t, f.store.Put(context.Background(), obj))
	f.index.Insert(id, ra, dec)
}

func rec(survey, sourceID string, ra, dec float64) models.CatalogRecord {
	return models.CatalogRecord{
		Survey:      survey,
		SourceID:    sourceID,
		RA:          ra,
		Dec:         dec,
		Fingerprint: "fp-" + survey + "-" + sourceID,
	}
}

func TestResolveNew(t *testing.T) {
	f := newFixture()
	f.addObject(t, "far", 200, -60, rec("gaia_dr3", "g1", 200, -60))

	record := rec("twomass", "t1", 10, 10)
	outcome, err := f.resolver().Resolve(context.Background(), &record)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionNew, outcome.Decision)
	assert.Nil(t, outcome.Object)
}

func TestResolveMerge(t *testing.T) {
	f := newFixture()
	f.addObject(t, "obj1", 10, 10, rec("gaia_dr3", "g1", 10, 10))

	record := rec("twomass", "t1", 10, 10+0.4/3600.0)
	outcome, err := f.resolver().Resolve(context.Background(), &record)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionMerge, outcome.Decision)
	require.NotNil(t, outcome.Object)
	assert.Equal(t, "obj1", outcome.Object.ID)
	assert.InDelta(t, 0.4, outcome.Separation, 1e-6)
}

func TestResolveRadiusBoundary(t *testing.T) {
	f := newFixture()
	f.addObject(t, "obj1", 50, 0, rec("gaia_dr3", "g1", 50, 0))

	t.Run("separation equal to radius merges", func(t *testing.T) {
		record := rec("twomass", "t1", 50, 1.0/3600.0)
		outcome, err := f.resolver().Resolve(context.Background(), &record)
		require.NoError(t, err)
		assert.Equal(t, models.DecisionMerge, outcome.Decision)
	})

	t.Run("separation just over radius creates", func(t *testing.T) {
		record := rec("twomass", "t2", 50, 1.01/3600.0)
		outcome, err := f.resolver().Resolve(context.Background(), &record)
		require.NoError(t, err)
		assert.Equal(t, models.DecisionNew, outcome.Decision)
	})
}

func TestResolveAcrossSeam(t *testing.T) {
	f := newFixture()
	f.addObject(t, "west", 359.99995, 0, rec("gaia_dr3", "g1", 359.99995, 0))

	record := rec("twomass", "t1", 0.00005, 0)
	outcome, err := f.resolver().Resolve(context.Background(), &record)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionMerge, outcome.Decision)
	assert.Equal(t, "west", outcome.Object.ID)
}

func TestResolveClosestWins(t *testing.T) {
	f := newFixture()
	f.addObject(t, "near", 10, 10+0.2/3600.0, rec("gaia_dr3", "g1", 10, 10+0.2/3600.0))
	f.addObject(t, "far", 10, 10-0.6/3600.0, rec("gaia_dr3", "g2", 10, 10-0.6/3600.0))

	record := rec("twomass", "t1", 10, 10)
	outcome, err := f.resolver().Resolve(context.Background(), &record)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionMerge, outcome.Decision)
	assert.Equal(t, "near", outcome.Object.ID)

	require.Len(t, outcome.Alternates, 1)
	assert.Equal(t, "far", outcome.Alternates[0].ObjectID)
	assert.Equal(t, "greater separation", outcome.Alternates[0].Reason)
}

func TestResolveTieBreakBySurveyPriority(t *testing.T) {
	f := newFixture()
	// equidistant candidates on either side
	f.addObject(t, "low", 10, 10+0.3/3600.0, rec("unranked", "u1", 10, 10+0.3/3600.0))
	f.addObject(t, "high", 10, 10-0.3/3600.0, rec("gaia_dr3", "g1", 10, 10-0.3/3600.0))

	r := f.resolver(models.SurveyPriority{Survey: "gaia_dr3", Priority: 10})

	record := rec("twomass", "t1", 10, 10)
	outcome, err := r.Resolve(context.Background(), &record)
	require.NoError(t, err)
	assert.Equal(t, "high", outcome.Object.ID)
	require.Len(t, outcome.Alternates, 1)
	assert.Equal(t, "lower survey priority", outcome.Alternates[0].Reason)
}

func TestResolveTieBreakDeterministic(t *testing.T) {
	f := newFixture()
	f.addObject(t, "bbb", 10, 10+0.3/3600.0, rec("gaia_dr3", "g1", 10, 10+0.3/3600.0))
	f.addObject(t, "aaa", 10, 10-0.3/3600.0, rec("gaia_dr3", "g2", 10, 10-0.3/3600.0))

	for i := 0; i < 10; i++ {
		record := rec("twomass", "t1", 10, 10)
		outcome, err := f.resolver().Resolve(context.Background(), &record)
		require.NoError(t, err)
		assert.Equal(t, "aaa", outcome.Object.ID, "iteration %d", i)
		require.Len(t, outcome.Alternates, 1)
		assert.Equal(t, "object id order", outcome.Alternates[0].Reason)
	}
}

func TestResolveUnchangedOnIdenticalFingerprint(t *testing.T) {
	f := newFixture()
	existing := rec("gaia_dr3", "g1", 10, 10)
	f.addObject(t, "obj1", 10, 10, existing)

	incoming := existing
	outcome, err := f.resolver().Resolve(context.Background(), &incoming)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionUnchanged, outcome.Decision)
	assert.Equal(t, "obj1", outcome.Object.ID)
}

func TestResolveAmbiguousOnSameSurveyDifferentPayload(t *testing.T) {
	f := newFixture()
	f.addObject(t, "obj1", 10, 10, rec("gaia_dr3", "g1", 10, 10))

	incoming := rec("gaia_dr3", "g2", 10, 10+0.2/3600.0)
	outcome, err := f.resolver().Resolve(context.Background(), &incoming)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionAmbiguous, outcome.Decision)
	assert.Equal(t, "obj1", outcome.Object.ID)
}

func TestResolveKnownSourceWithDriftedPosition(t *testing.T) {
	f := newFixture()
	f.addObject(t, "obj1", 10, 10, rec("gaia_dr3", "g1", 10, 10))

	// same source id, changed payload, far outside the radius
	drifted := rec("gaia_dr3", "g1", 10, 10.01)
	drifted.Fingerprint = "fp-different"
	outcome, err := f.resolver().Resolve(context.Background(), &drifted)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionAmbiguous, outcome.Decision)
	assert.Equal(t, "obj1", outcome.Object.ID)
}

func TestResolveIndexInconsistency(t *testing.T) {
	f := newFixture()
	f.index.Insert("ghost", 10, 10)

	record := rec("twomass", "t1", 10, 10)
	_, err := f.resolver().Resolve(context.Background(), &record)
	require.Error(t, err)
	assert.True(t, models.IsIndexInconsistency(err))
}

// addUnindexedObject writes to the store without touching the index,
// simulating a cold index over a populated registry.
func (f *fixture) addUnindexedObject(t *testing.T, id string, ra, dec float64, records ...models.CatalogRecord) {
	t.Helper()
	obj := &models.CelestialObject{
		ID:            id,
		RA:            ra,
		Dec:           dec,
		Contributions: map[string]models.Contribution{},
		Version:       1,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	for _, rec := range records {
		obj.Contributions[rec.Survey] = models.Contribution{Record: rec, AddedAt: time.Now().UTC()}
	}
	require.NoError(t, f.store.Put(context.Background(), obj))
}

func TestResolveColdIndexFallsBackToStore(t *testing.T) {
	f := newFixture()
	f.addUnindexedObject(t, "near", 10, 10, rec("gaia_dr3", "g1", 10, 10))
	f.addUnindexedObject(t, "far", 10, 10.01, rec("gaia_dr3", "g2", 10, 10.01))

	record := rec("twomass", "t1", 10, 10+0.4/3600.0)
	outcome, err := f.resolver().Resolve(context.Background(), &record)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionMerge, outcome.Decision)
	require.NotNil(t, outcome.Object)
	assert.Equal(t, "near", outcome.Object.ID)
	assert.InDelta(t, 0.4, outcome.Separation, 1e-6)
	assert.Empty(t, outcome.Alternates)
}

func TestResolveColdIndexFallbackAcrossSeam(t *testing.T) {
	f := newFixture()
	f.addUnindexedObject(t, "west", 359.99995, 0, rec("gaia_dr3", "g1", 359.99995, 0))

	record := rec("twomass", "t1", 0.00005, 0)
	outcome, err := f.resolver().Resolve(context.Background(), &record)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionMerge, outcome.Decision)
	assert.Equal(t, "west", outcome.Object.ID)
}

func TestResolveNoFallbackWhenIndexWarm(t *testing.T) {
	f := newFixture()
	f.addObject(t, "elsewhere", 200, -60, rec("gaia_dr3", "g1", 200, -60))
	f.addUnindexedObject(t, "missed", 10, 10, rec("gaia_dr3", "g2", 10, 10))

	// a warm index is trusted: the unindexed object is not consulted
	record := rec("twomass", "t1", 10, 10)
	outcome, err := f.resolver().Resolve(context.Background(), &record)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionNew, outcome.Decision)
}

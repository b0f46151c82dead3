package object

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/sky"
)

func newObject(id string, ra, dec float64, surveys ...string) *models.CelestialObject {
	obj := &models.CelestialObject{
		ID:            id,
		RA:            ra,
		Dec:           dec,
		Contributions: map[string]models.Contribution{},
		Version:       1,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	for _, survey := range surveys {
		obj.Contributions[survey] = models.Contribution{
			Record: models.CatalogRecord{
				Survey:   survey,
				SourceID: "src-" + id,
				RA:       ra,
				Dec:      dec,
			},
			AddedAt: time.Now().UTC(),
		}
	}
	return obj
}

func TestMemoryPutGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	require.NoError(t, store.Put(ctx, newObject("a", 10, 20, "gaia_dr3")))

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 10.0, got.RA)

	missing, err := store.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryGetBySource(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	require.NoError(t, store.Put(ctx, newObject("a", 10, 20, "gaia_dr3", "twomass")))

	got, err := store.GetBySource(ctx, "twomass", "src-a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a", got.ID)

	none, err := store.GetBySource(ctx, "wise", "src-a")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestMemoryPutReindexesSources(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	obj := newObject("a", 10, 20, "gaia_dr3")
	require.NoError(t, store.Put(ctx, obj))

	// replace the contribution set entirely
	obj2 := newObject("a", 10, 20)
	obj2.Contributions["wise"] = models.Contribution{
		Record: models.CatalogRecord{Survey: "wise", SourceID: "w-1", RA: 10, Dec: 20},
	}
	require.NoError(t, store.Put(ctx, obj2))

	stale, err := store.GetBySource(ctx, "gaia_dr3", "src-a")
	require.NoError(t, err)
	assert.Nil(t, stale)

	fresh, err := store.GetBySource(ctx, "wise", "w-1")
	require.NoError(t, err)
	require.NotNil(t, fresh)
}

func TestMemorySnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	require.NoError(t, store.Put(ctx, newObject("a", 10, 20, "gaia_dr3")))

	snap, err := store.Get(ctx, "a")
	require.NoError(t, err)

	// mutating the snapshot must not leak into the store
	snap.RA = 99
	snap.Contributions["gaia_dr3"] = models.Contribution{}

	again, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 10.0, again.RA)
	assert.Equal(t, "src-a", again.Contributions["gaia_dr3"].Record.SourceID)
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	require.NoError(t, store.Put(ctx, newObject("a", 10, 20, "gaia_dr3")))
	require.NoError(t, store.Delete(ctx, "a"))

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got)

	bySource, err := store.GetBySource(ctx, "gaia_dr3", "src-a")
	require.NoError(t, err)
	assert.Nil(t, bySource)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemoryBox(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	require.NoError(t, store.Put(ctx, newObject("in", 10, 20, "gaia_dr3")))
	require.NoError(t, store.Put(ctx, newObject("out", 50, 20, "gaia_dr3")))

	hits, err := store.Box(ctx, sky.Box{MinRA: 9, MaxRA: 11, MinDec: 19, MaxDec: 21})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "in", hits[0].ID)
}

func TestMemoryListPaging(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	base := time.Now().UTC()
	for i, id := range []string{"a", "b", "c"} {
		obj := newObject(id, float64(i), 0, "gaia_dr3")
		obj.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, store.Put(ctx, obj))
	}

	pageOne, total, err := store.List(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, pageOne, 2)
	assert.Equal(t, "a", pageOne[0].ID)

	pageTwo, _, err := store.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, pageTwo, 1)
	assert.Equal(t, "c", pageTwo[0].ID)
}

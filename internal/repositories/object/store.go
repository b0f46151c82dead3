// Package object persists merged celestial objects. The Store interface
// is implemented by a Postgres repository and an in-memory store; all
// engine and query code depends only on the interface.
package object

import (
	"context"

	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/sky"
	"github.com/Ramsey-B/aster/pkg/spatialindex"
)

// Store is the object registry handle. Lookups that miss return
// (nil, nil); transient failures surface as StoreUnavailableError.
type Store interface {
	Get(ctx context.Context, id string) (*models.CelestialObject, error)
	GetBySource(ctx context.Context, survey, sourceID string) (*models.CelestialObject, error)
	Put(ctx context.Context, obj *models.CelestialObject) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, page, pageSize int) ([]models.CelestialObject, int, error)

	// Box returns objects inside an RA/Dec rectangle, used as a coarse
	// prefilter before exact separation checks.
	Box(ctx context.Context, box sky.Box) ([]models.CelestialObject, error)

	// Positions returns all object positions for index warm start.
	Positions(ctx context.Context) ([]spatialindex.Entry, error)

	Count(ctx context.Context) (int, error)
}

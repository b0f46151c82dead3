// Package query serves read access to the merged object registry: point
// lookups, source lookups, and cone searches.
package query

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/aster/internal/repositories/object"
	"github.com/Ramsey-B/aster/pkg/merging"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/spatialindex"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

// PrioritySource supplies the survey precedence order for views.
type PrioritySource interface {
	Priorities(ctx context.Context) ([]models.SurveyPriority, error)
}

// ConeResult is one cone search hit with its separation from the
// search center.
type ConeResult struct {
	Object     *models.ObjectView `json:"object"`
	Separation float64            `json:"separation_arcsec"`
}

// Service answers registry queries. Reads go through the spatial index
// for position queries and the store for hydration.
type Service struct {
	index      *spatialindex.Index
	store      object.Store
	priorities PrioritySource
	logger     ectologger.Logger
}

// NewService creates a query service.
func NewService(index *spatialindex.Index, store object.Store, priorities PrioritySource, logger ectologger.Logger) *Service {
	return &Service{
		index:      index,
		store:      store,
		priorities: priorities,
		logger:     logger,
	}
}

// GetByID returns the merged view of one object.
func (s *Service) GetByID(ctx context.Context, id string) (*models.ObjectView, error) {
	ctx, span := tracing.StartSpan(ctx, "query.Service.GetByID")
	defer span.End()

	obj, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, models.ErrNotFound
	}

	return s.buildView(ctx, obj)
}

// GetBySource returns the object a survey source was folded into.
func (s *Service) GetBySource(ctx context.Context, survey, sourceID string) (*models.ObjectView, error) {
	ctx, span := tracing.StartSpan(ctx, "query.Service.GetBySource")
	defer span.End()

	obj, err := s.store.GetBySource(ctx, survey, sourceID)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, models.ErrNotFound
	}

	return s.buildView(ctx, obj)
}

// FindWithin runs a cone search around (ra, dec). Results come back
// ordered by separation; the boundary is inclusive.
func (s *Service) FindWithin(ctx context.Context, ra, dec, radiusArcsec float64) ([]ConeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "query.Service.FindWithin")
	defer span.End()

	hits := s.index.QueryRadius(ra, dec, radiusArcsec)
	if len(hits) == 0 {
		return []ConeResult{}, nil
	}

	priorities, err := s.priorities.Priorities(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]ConeResult, 0, len(hits))
	for _, hit := range hits {
		obj, err := s.store.Get(ctx, hit.ID)
		if err != nil {
			return nil, err
		}
		if obj == nil {
			s.logger.WithContext(ctx).WithField("object_id", hit.ID).Error("spatial index entry missing from store")
			return nil, &models.IndexInconsistencyError{ObjectID: hit.ID}
		}
		results = append(results, ConeResult{
			Object:     merging.BuildView(obj, priorities),
			Separation: hit.Separation,
		})
	}

	return results, nil
}

// List pages through all objects, newest first.
func (s *Service) List(ctx context.Context, page, pageSize int) ([]models.CelestialObject, int, error) {
	ctx, span := tracing.StartSpan(ctx, "query.Service.List")
	defer span.End()

	return s.store.List(ctx, page, pageSize)
}

func (s *Service) buildView(ctx context.Context, obj *models.CelestialObject) (*models.ObjectView, error) {
	priorities, err := s.priorities.Priorities(ctx)
	if err != nil {
		return nil, err
	}
	return merging.BuildView(obj, priorities), nil
}

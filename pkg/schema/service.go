// Package schema manages survey schema descriptors: validation on
// registration and a cached read path for the normalizer.
package schema

import (
	"context"
	"fmt"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/aster/internal/repositories/surveyschema"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

// Service fronts the schema store. Descriptors change rarely, so reads
// are served from an in-process cache invalidated on registration.
type Service struct {
	store  surveyschema.Store
	logger ectologger.Logger
	cache  sync.Map // map[survey]*models.SurveySchema
}

// NewService creates a schema service over the given store.
func NewService(store surveyschema.Store, logger ectologger.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Register validates and stores a descriptor. Invalid descriptors are
// rejected as MalformedRecord so the transport maps them to 400.
func (s *Service) Register(ctx context.Context, schema *models.SurveySchema) error {
	ctx, span := tracing.StartSpan(ctx, "schema.Service.Register")
	defer span.End()

	result := ValidateDescriptor(schema)
	if !result.Valid {
		first := result.Errors[0]
		return models.NewMalformedRecord(schema.Survey, "", "invalid schema descriptor: %s: %s", first.Field, first.Message)
	}

	if err := s.store.Upsert(ctx, schema); err != nil {
		return err
	}
	s.cache.Store(schema.Survey, schema)

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"survey":   schema.Survey,
		"columns":  len(schema.Columns),
		"priority": schema.Priority,
	}).Info("Registered survey schema")

	return nil
}

// GetBySurvey returns the descriptor for a survey, or an error when the
// survey has not been registered. Satisfies normalizer.SchemaGetter.
func (s *Service) GetBySurvey(ctx context.Context, survey string) (*models.SurveySchema, error) {
	if cached, ok := s.cache.Load(survey); ok {
		return cached.(*models.SurveySchema), nil
	}

	ctx, span := tracing.StartSpan(ctx, "schema.Service.GetBySurvey")
	defer span.End()

	schema, err := s.store.GetBySurvey(ctx, survey)
	if err != nil {
		return nil, err
	}
	if schema == nil {
		return nil, fmt.Errorf("no schema registered for survey %q", survey)
	}

	s.cache.Store(survey, schema)
	return schema, nil
}

// List returns all registered descriptors.
func (s *Service) List(ctx context.Context) ([]models.SurveySchema, error) {
	ctx, span := tracing.StartSpan(ctx, "schema.Service.List")
	defer span.End()

	return s.store.List(ctx)
}

// Priorities derives the survey priority order from the registered
// descriptors.
func (s *Service) Priorities(ctx context.Context) ([]models.SurveyPriority, error) {
	schemas, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	priorities := make([]models.SurveyPriority, 0, len(schemas))
	for _, schema := range schemas {
		priorities = append(priorities, models.SurveyPriority{
			Survey:   schema.Survey,
			Priority: schema.Priority,
		})
	}
	return priorities, nil
}

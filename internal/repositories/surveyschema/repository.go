// Package surveyschema persists the per-survey schema descriptors that
// drive normalization.
package surveyschema

import (
	"context"
	"database/sql"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

// Store is the schema descriptor handle.
type Store interface {
	Upsert(ctx context.Context, schema *models.SurveySchema) error
	GetBySurvey(ctx context.Context, survey string) (*models.SurveySchema, error)
	List(ctx context.Context) ([]models.SurveySchema, error)
}

const tableName = "survey_schemas"

// Repository is the Postgres-backed Store.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new survey schema repository.
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

type schemaRow struct {
	Survey     string                              `db:"survey"`
	Descriptor database.JSONB[models.SurveySchema] `db:"descriptor"`
	UpdatedAt  time.Time                           `db:"updated_at"`
}

func (r *Repository) Upsert(ctx context.Context, schema *models.SurveySchema) error {
	ctx, span := tracing.StartSpan(ctx, "SurveySchemaRepository.Upsert")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols("survey", "descriptor", "updated_at")
	sb.Values(schema.Survey, database.JSONB[models.SurveySchema]{Data: *schema}, time.Now().UTC())
	database.OnConflictUpdate(sb, "survey", "descriptor", "updated_at")

	query, args := sb.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to upsert survey schema")
		return models.NewStoreUnavailable("surveyschema.Upsert", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"survey": schema.Survey,
	}).Info("survey schema stored")
	return nil
}

func (r *Repository) GetBySurvey(ctx context.Context, survey string) (*models.SurveySchema, error) {
	ctx, span := tracing.StartSpan(ctx, "SurveySchemaRepository.GetBySurvey")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("survey", "descriptor", "updated_at")
	sb.From(tableName)
	sb.Where(sb.Equal("survey", survey))

	query, args := sb.Build()

	var row schemaRow
	err := r.db.GetContext(ctx, &row, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, models.NewStoreUnavailable("surveyschema.GetBySurvey", err)
	}

	schema := row.Descriptor.GetValue()
	return &schema, nil
}

func (r *Repository) List(ctx context.Context) ([]models.SurveySchema, error) {
	ctx, span := tracing.StartSpan(ctx, "SurveySchemaRepository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("survey", "descriptor", "updated_at")
	sb.From(tableName)
	sb.OrderBy("survey").Asc()

	query, args := sb.Build()

	var rows []schemaRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, models.NewStoreUnavailable("surveyschema.List", err)
	}

	out := make([]models.SurveySchema, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].Descriptor.GetValue())
	}
	return out, nil
}

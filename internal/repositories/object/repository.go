package object

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/sky"
	"github.com/Ramsey-B/aster/pkg/spatialindex"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

const tableName = "celestial_objects"

var columns = []string{"id", "ra", "dec", "contributions", "source_keys", "version", "created_at", "updated_at"}

// Repository is the Postgres-backed Store.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new celestial object repository.
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

type objectRow struct {
	ID            string                                           `db:"id"`
	RA            float64                                          `db:"ra"`
	Dec           float64                                          `db:"dec"`
	Contributions database.JSONB[map[string]models.Contribution]   `db:"contributions"`
	SourceKeys    pq.StringArray                                   `db:"source_keys"`
	Version       int                                              `db:"version"`
	CreatedAt     time.Time                                        `db:"created_at"`
	UpdatedAt     time.Time                                        `db:"updated_at"`
}

func (row *objectRow) toModel() *models.CelestialObject {
	return &models.CelestialObject{
		ID:            row.ID,
		RA:            row.RA,
		Dec:           row.Dec,
		Contributions: row.Contributions.GetValue(),
		Version:       row.Version,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func sourceKeys(obj *models.CelestialObject) pq.StringArray {
	keys := make(pq.StringArray, 0, len(obj.Contributions))
	for _, c := range obj.Contributions {
		keys = append(keys, c.Record.Key())
	}
	return keys
}

// Get loads an object by id. Returns (nil, nil) when absent.
func (r *Repository) Get(ctx context.Context, id string) (*models.CelestialObject, error) {
	ctx, span := tracing.StartSpan(ctx, "ObjectRepository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var row objectRow
	err := r.db.GetContext(ctx, &row, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get object")
		return nil, models.NewStoreUnavailable("object.Get", err)
	}

	return row.toModel(), nil
}

// GetBySource finds the object holding a survey record, if any.
func (r *Repository) GetBySource(ctx context.Context, survey, sourceID string) (*models.CelestialObject, error) {
	ctx, span := tracing.StartSpan(ctx, "ObjectRepository.GetBySource")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(fmt.Sprintf("source_keys @> ARRAY[%s]", sb.Var(survey+":"+sourceID)))

	query, args := sb.Build()

	var row objectRow
	err := r.db.GetContext(ctx, &row, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get object by source")
		return nil, models.NewStoreUnavailable("object.GetBySource", err)
	}

	return row.toModel(), nil
}

// Put upserts the full object state.
func (r *Repository) Put(ctx context.Context, obj *models.CelestialObject) error {
	ctx, span := tracing.StartSpan(ctx, "ObjectRepository.Put")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(
		obj.ID,
		obj.RA,
		obj.Dec,
		database.JSONB[map[string]models.Contribution]{Data: obj.Contributions},
		sourceKeys(obj),
		obj.Version,
		obj.CreatedAt,
		obj.UpdatedAt,
	)
	database.OnConflictUpdate(sb, "id", "ra", "dec", "contributions", "source_keys", "version", "updated_at")

	query, args := sb.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"object_id": obj.ID,
		}).Error("failed to put object")
		return models.NewStoreUnavailable("object.Put", err)
	}

	return nil
}

// Delete removes an object.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "ObjectRepository.Delete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete object")
		return models.NewStoreUnavailable("object.Delete", err)
	}
	return nil
}

// List pages through objects ordered by creation time.
func (r *Repository) List(ctx context.Context, page, pageSize int) ([]models.CelestialObject, int, error) {
	ctx, span := tracing.StartSpan(ctx, "ObjectRepository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 100
	}

	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.OrderBy("created_at").Asc()
	sb.Limit(pageSize).Offset((page - 1) * pageSize)

	query, args := sb.Build()

	var rows []objectRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list objects")
		return nil, 0, models.NewStoreUnavailable("object.List", err)
	}

	out := make([]models.CelestialObject, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toModel())
	}
	return out, total, nil
}

// Box returns objects inside an RA/Dec rectangle.
func (r *Repository) Box(ctx context.Context, box sky.Box) ([]models.CelestialObject, error) {
	ctx, span := tracing.StartSpan(ctx, "ObjectRepository.Box")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.GreaterEqualThan("ra", box.MinRA),
		sb.LessEqualThan("ra", box.MaxRA),
		sb.GreaterEqualThan("dec", box.MinDec),
		sb.LessEqualThan("dec", box.MaxDec),
	)

	query, args := sb.Build()

	var rows []objectRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to box query objects")
		return nil, models.NewStoreUnavailable("object.Box", err)
	}

	out := make([]models.CelestialObject, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toModel())
	}
	return out, nil
}

// Positions streams (id, ra, dec) for every object, for index warm start.
func (r *Repository) Positions(ctx context.Context) ([]spatialindex.Entry, error) {
	ctx, span := tracing.StartSpan(ctx, "ObjectRepository.Positions")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "ra", "dec")
	sb.From(tableName)

	query, args := sb.Build()

	var rows []struct {
		ID  string  `db:"id"`
		RA  float64 `db:"ra"`
		Dec float64 `db:"dec"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to load object positions")
		return nil, models.NewStoreUnavailable("object.Positions", err)
	}

	out := make([]spatialindex.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, spatialindex.Entry{ID: row.ID, RA: row.RA, Dec: row.Dec})
	}
	return out, nil
}

// Count returns the number of objects.
func (r *Repository) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "ObjectRepository.Count")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From(tableName)

	query, args := sb.Build()

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, models.NewStoreUnavailable("object.Count", err)
	}
	return count, nil
}

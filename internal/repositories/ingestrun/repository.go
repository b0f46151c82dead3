// Package ingestrun records batch ingestions and their summaries.
package ingestrun

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

// Store is the ingest run handle.
type Store interface {
	Create(ctx context.Context, run *models.IngestRun) error
	Update(ctx context.Context, run *models.IngestRun) error
	Get(ctx context.Context, id string) (*models.IngestRun, error)
	List(ctx context.Context, page, pageSize int) ([]models.IngestRun, int, error)
}

const tableName = "ingest_runs"

var columns = []string{"id", "survey", "source", "status", "summary", "error", "started_at", "finished_at"}

// Repository is the Postgres-backed Store.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new ingest run repository.
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

type runRow struct {
	ID         string                               `db:"id"`
	Survey     string                               `db:"survey"`
	Source     string                               `db:"source"`
	Status     string                               `db:"status"`
	Summary    database.JSONB[models.IngestSummary] `db:"summary"`
	Error      string                               `db:"error"`
	StartedAt  time.Time                            `db:"started_at"`
	FinishedAt *time.Time                           `db:"finished_at"`
}

func (row *runRow) toModel() *models.IngestRun {
	return &models.IngestRun{
		ID:         row.ID,
		Survey:     row.Survey,
		Source:     row.Source,
		Status:     row.Status,
		Summary:    row.Summary.GetValue(),
		Error:      row.Error,
		StartedAt:  row.StartedAt,
		FinishedAt: row.FinishedAt,
	}
}

func (r *Repository) Create(ctx context.Context, run *models.IngestRun) error {
	ctx, span := tracing.StartSpan(ctx, "IngestRunRepository.Create")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(
		run.ID,
		run.Survey,
		run.Source,
		run.Status,
		database.JSONB[models.IngestSummary]{Data: run.Summary},
		run.Error,
		run.StartedAt,
		run.FinishedAt,
	)

	query, args := sb.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create ingest run")
		return models.NewStoreUnavailable("ingestrun.Create", err)
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, run *models.IngestRun) error {
	ctx, span := tracing.StartSpan(ctx, "IngestRunRepository.Update")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("status", run.Status),
		sb.Assign("summary", database.JSONB[models.IngestSummary]{Data: run.Summary}),
		sb.Assign("error", run.Error),
		sb.Assign("finished_at", run.FinishedAt),
	)
	sb.Where(sb.Equal("id", run.ID))

	query, args := sb.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update ingest run")
		return models.NewStoreUnavailable("ingestrun.Update", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (*models.IngestRun, error) {
	ctx, span := tracing.StartSpan(ctx, "IngestRunRepository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var row runRow
	err := r.db.GetContext(ctx, &row, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, models.NewStoreUnavailable("ingestrun.Get", err)
	}
	return row.toModel(), nil
}

func (r *Repository) List(ctx context.Context, page, pageSize int) ([]models.IngestRun, int, error) {
	ctx, span := tracing.StartSpan(ctx, "IngestRunRepository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 100
	}

	countSB := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSB.Select("COUNT(*)")
	countSB.From(tableName)
	countQuery, countArgs := countSB.Build()

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, models.NewStoreUnavailable("ingestrun.List", err)
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.OrderBy("started_at").Desc()
	sb.Limit(pageSize).Offset((page - 1) * pageSize)

	query, args := sb.Build()

	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, models.NewStoreUnavailable("ingestrun.List", err)
	}

	out := make([]models.IngestRun, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toModel())
	}
	return out, total, nil
}

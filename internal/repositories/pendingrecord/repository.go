// Package pendingrecord persists ambiguous duplicates parked for
// operator review.
package pendingrecord

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

// Store is the pending record handle.
type Store interface {
	Create(ctx context.Context, pending *models.PendingRecord) error
	Get(ctx context.Context, id string) (*models.PendingRecord, error)
	List(ctx context.Context, status string, page, pageSize int) ([]models.PendingRecord, int, error)
	Resolve(ctx context.Context, id, status string) error
}

const tableName = "pending_records"

var columns = []string{"id", "object_id", "record", "reason", "status", "created_at", "resolved_at"}

// Repository is the Postgres-backed Store.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new pending record repository.
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

type pendingRow struct {
	ID         string                               `db:"id"`
	ObjectID   string                               `db:"object_id"`
	Record     database.JSONB[models.CatalogRecord] `db:"record"`
	Reason     string                               `db:"reason"`
	Status     string                               `db:"status"`
	CreatedAt  time.Time                            `db:"created_at"`
	ResolvedAt *time.Time                           `db:"resolved_at"`
}

func (row *pendingRow) toModel() *models.PendingRecord {
	return &models.PendingRecord{
		ID:         row.ID,
		ObjectID:   row.ObjectID,
		Record:     row.Record.GetValue(),
		Reason:     row.Reason,
		Status:     row.Status,
		CreatedAt:  row.CreatedAt,
		ResolvedAt: row.ResolvedAt,
	}
}

func (r *Repository) Create(ctx context.Context, pending *models.PendingRecord) error {
	ctx, span := tracing.StartSpan(ctx, "PendingRecordRepository.Create")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(
		pending.ID,
		pending.ObjectID,
		database.JSONB[models.CatalogRecord]{Data: pending.Record},
		pending.Reason,
		pending.Status,
		pending.CreatedAt,
		pending.ResolvedAt,
	)

	query, args := sb.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create pending record")
		return models.NewStoreUnavailable("pendingrecord.Create", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"pending_id": pending.ID,
		"object_id":  pending.ObjectID,
		"survey":     pending.Record.Survey,
	}).Info("parked record for review")
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (*models.PendingRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "PendingRecordRepository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var row pendingRow
	err := r.db.GetContext(ctx, &row, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, models.NewStoreUnavailable("pendingrecord.Get", err)
	}
	return row.toModel(), nil
}

func (r *Repository) List(ctx context.Context, status string, page, pageSize int) ([]models.PendingRecord, int, error) {
	ctx, span := tracing.StartSpan(ctx, "PendingRecordRepository.List")
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
	if status != "" {
		countSB.Where(countSB.Equal("status", status))
	}
	countQuery, countArgs := countSB.Build()

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, models.NewStoreUnavailable("pendingrecord.List", err)
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	if status != "" {
		sb.Where(sb.Equal("status", status))
	}
	sb.OrderBy("created_at").Asc()
	sb.Limit(pageSize).Offset((page - 1) * pageSize)

	query, args := sb.Build()

	var rows []pendingRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, models.NewStoreUnavailable("pendingrecord.List", err)
	}

	out := make([]models.PendingRecord, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toModel())
	}
	return out, total, nil
}

func (r *Repository) Resolve(ctx context.Context, id, status string) error {
	ctx, span := tracing.StartSpan(ctx, "PendingRecordRepository.Resolve")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("status", status),
		sb.Assign("resolved_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("id", id), sb.Equal("status", models.PendingStatusOpen))

	query, args := sb.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return models.NewStoreUnavailable("pendingrecord.Resolve", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return models.ErrNotFound
	}
	return nil
}

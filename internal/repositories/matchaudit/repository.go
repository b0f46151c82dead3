// Package matchaudit records resolved matches and the alternates they
// beat, for later inspection of tie-breaks.
package matchaudit

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

// Store is the match audit handle.
type Store interface {
	Create(ctx context.Context, audit *models.MatchAudit) error
	ListBySource(ctx context.Context, survey, sourceID string) ([]models.MatchAudit, error)
}

const tableName = "match_audits"

var columns = []string{"id", "run_id", "survey", "source_id", "object_id", "separation_arcsec", "alternates", "created_at"}

// Repository is the Postgres-backed Store.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new match audit repository.
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

type auditRow struct {
	ID         string                                      `db:"id"`
	RunID      string                                      `db:"run_id"`
	Survey     string                                      `db:"survey"`
	SourceID   string                                      `db:"source_id"`
	ObjectID   string                                      `db:"object_id"`
	Separation float64                                     `db:"separation_arcsec"`
	Alternates database.JSONB[[]models.RejectedAlternate]  `db:"alternates"`
	CreatedAt  time.Time                                   `db:"created_at"`
}

func (r *Repository) Create(ctx context.Context, audit *models.MatchAudit) error {
	ctx, span := tracing.StartSpan(ctx, "MatchAuditRepository.Create")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(
		audit.ID,
		audit.RunID,
		audit.Survey,
		audit.SourceID,
		audit.ObjectID,
		audit.Separation,
		database.JSONB[[]models.RejectedAlternate]{Data: audit.Alternates},
		audit.CreatedAt,
	)

	query, args := sb.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create match audit")
		return models.NewStoreUnavailable("matchaudit.Create", err)
	}
	return nil
}

func (r *Repository) ListBySource(ctx context.Context, survey, sourceID string) ([]models.MatchAudit, error) {
	ctx, span := tracing.StartSpan(ctx, "MatchAuditRepository.ListBySource")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("survey", survey), sb.Equal("source_id", sourceID))
	sb.OrderBy("created_at").Desc()

	query, args := sb.Build()

	var rows []auditRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, models.NewStoreUnavailable("matchaudit.ListBySource", err)
	}

	out := make([]models.MatchAudit, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.MatchAudit{
			ID:         row.ID,
			RunID:      row.RunID,
			Survey:     row.Survey,
			SourceID:   row.SourceID,
			ObjectID:   row.ObjectID,
			Separation: row.Separation,
			Alternates: row.Alternates.GetValue(),
			CreatedAt:  row.CreatedAt,
		})
	}
	return out, nil
}

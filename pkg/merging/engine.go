// Package merging applies match outcomes to the object registry: it
// creates objects, folds records into them, recomputes reference
// positions, and parks ambiguous duplicates for review.
package merging

import (
	"context"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/aster/internal/repositories/matchaudit"
	"github.com/Ramsey-B/aster/internal/repositories/object"
	"github.com/Ramsey-B/aster/internal/repositories/pendingrecord"
	"github.com/Ramsey-B/aster/pkg/appcontext"
	"github.com/Ramsey-B/aster/pkg/events"
	"github.com/Ramsey-B/aster/pkg/matching"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/sky"
	"github.com/Ramsey-B/aster/pkg/spatialindex"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

// Engine owns all writes to the registry. Resolution and application
// happen under one lock, so two records arriving together cannot both
// create objects for the same position.
type Engine struct {
	mu       sync.Mutex
	resolver *matching.Resolver
	index    *spatialindex.Index
	store    object.Store
	pending  pendingrecord.Store
	audits   matchaudit.Store
	emitter  *events.Emitter
	logger   ectologger.Logger
}

// NewEngine creates a merge engine. The emitter may be nil when no
// broker is configured.
func NewEngine(
	resolver *matching.Resolver,
	index *spatialindex.Index,
	store object.Store,
	pending pendingrecord.Store,
	audits matchaudit.Store,
	emitter *events.Emitter,
	logger ectologger.Logger,
) *Engine {
	return &Engine{
		resolver: resolver,
		index:    index,
		store:    store,
		pending:  pending,
		audits:   audits,
		emitter:  emitter,
		logger:   logger,
	}
}

// ProcessRecord resolves one normalized record and applies the outcome.
// Re-processing an identical record is a no-op.
func (e *Engine) ProcessRecord(ctx context.Context, record *models.CatalogRecord) (*models.MatchOutcome, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.ProcessRecord")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	outcome, err := e.resolver.Resolve(ctx, record)
	if err != nil {
		return nil, err
	}

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"survey":    record.Survey,
		"source_id": record.SourceID,
		"decision":  string(outcome.Decision),
	})

	switch outcome.Decision {
	case models.DecisionNew:
		obj, err := e.applyNew(ctx, record)
		if err != nil {
			return nil, err
		}
		outcome.Object = obj
		log.WithField("object_id", obj.ID).Info("Created object")

	case models.DecisionMerge:
		obj, err := e.applyMerge(ctx, record, outcome)
		if err != nil {
			return nil, err
		}
		outcome.Object = obj
		log.WithFields(map[string]any{
			"object_id":         obj.ID,
			"separation_arcsec": outcome.Separation,
		}).Info("Merged record into object")

	case models.DecisionAmbiguous:
		if err := e.applyAmbiguous(ctx, record, outcome); err != nil {
			return nil, err
		}
		log.WithField("object_id", outcome.Object.ID).Warn("Parked ambiguous duplicate")

	case models.DecisionUnchanged:
		log.Debug("Record unchanged, skipping")
	}

	return outcome, nil
}

func (e *Engine) applyNew(ctx context.Context, record *models.CatalogRecord) (*models.CelestialObject, error) {
	now := time.Now().UTC()
	obj := &models.CelestialObject{
		ID:  uuid.New().String(),
		RA:  record.RA,
		Dec: record.Dec,
		Contributions: map[string]models.Contribution{
			record.Survey: {Record: *record, AddedAt: now},
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := e.store.Put(ctx, obj); err != nil {
		return nil, err
	}
	e.index.Insert(obj.ID, obj.RA, obj.Dec)

	// Event failure does not roll back the write.
	_ = e.emitter.EmitObjectCreated(ctx, obj, record)

	return obj, nil
}

func (e *Engine) applyMerge(ctx context.Context, record *models.CatalogRecord, outcome *models.MatchOutcome) (*models.CelestialObject, error) {
	obj := outcome.Object.Clone()
	obj.Contributions[record.Survey] = models.Contribution{
		Record:     *record,
		Separation: outcome.Separation,
		AddedAt:    time.Now().UTC(),
	}

	obj.RA, obj.Dec = ReferencePosition(obj.Contributions)
	obj.Version++
	obj.UpdatedAt = time.Now().UTC()

	if err := e.store.Put(ctx, obj); err != nil {
		return nil, err
	}
	e.index.Update(obj.ID, obj.RA, obj.Dec)

	if err := e.writeAudit(ctx, record, outcome, obj.ID); err != nil {
		e.logger.WithContext(ctx).WithError(err).Warn("Failed to write match audit")
	}

	_ = e.emitter.EmitObjectMerged(ctx, obj, record, outcome.Separation)

	return obj, nil
}

func (e *Engine) applyAmbiguous(ctx context.Context, record *models.CatalogRecord, outcome *models.MatchOutcome) error {
	pending := &models.PendingRecord{
		ID:        uuid.New().String(),
		ObjectID:  outcome.Object.ID,
		Record:    *record,
		Reason:    "same survey source with changed payload",
		Status:    models.PendingStatusOpen,
		CreatedAt: time.Now().UTC(),
	}

	if err := e.pending.Create(ctx, pending); err != nil {
		return err
	}

	_ = e.emitter.EmitRecordPending(ctx, pending)
	return nil
}

func (e *Engine) writeAudit(ctx context.Context, record *models.CatalogRecord, outcome *models.MatchOutcome, objectID string) error {
	audit := &models.MatchAudit{
		ID:         uuid.New().String(),
		RunID:      appcontext.GetRunID(ctx),
		Survey:     record.Survey,
		SourceID:   record.SourceID,
		ObjectID:   objectID,
		Separation: outcome.Separation,
		Alternates: outcome.Alternates,
		CreatedAt:  time.Now().UTC(),
	}
	return e.audits.Create(ctx, audit)
}

// ApprovePending replaces the object's contribution for the pending
// record's survey with the parked record and recomputes the position.
func (e *Engine) ApprovePending(ctx context.Context, id string) (*models.CelestialObject, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.ApprovePending")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	pending, err := e.pending.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, models.ErrNotFound
	}
	if pending.Status != models.PendingStatusOpen {
		return nil, models.ErrNotFound
	}

	existing, err := e.store.Get(ctx, pending.ObjectID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &models.IndexInconsistencyError{ObjectID: pending.ObjectID}
	}

	obj := existing.Clone()
	separation := sky.Separation(existing.RA, existing.Dec, pending.Record.RA, pending.Record.Dec)
	obj.Contributions[pending.Record.Survey] = models.Contribution{
		Record:     pending.Record,
		Separation: separation,
		AddedAt:    time.Now().UTC(),
	}

	obj.RA, obj.Dec = ReferencePosition(obj.Contributions)
	obj.Version++
	obj.UpdatedAt = time.Now().UTC()

	if err := e.store.Put(ctx, obj); err != nil {
		return nil, err
	}
	e.index.Update(obj.ID, obj.RA, obj.Dec)

	if err := e.pending.Resolve(ctx, id, models.PendingStatusApproved); err != nil {
		return nil, err
	}

	_ = e.emitter.EmitPendingResolved(ctx, pending, true)

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"pending_id": id,
		"object_id":  obj.ID,
	}).Info("Approved pending record")

	return obj, nil
}

// RejectPending discards a parked record. The object keeps its current
// contribution.
func (e *Engine) RejectPending(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.RejectPending")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	pending, err := e.pending.Get(ctx, id)
	if err != nil {
		return err
	}
	if pending == nil {
		return models.ErrNotFound
	}

	if err := e.pending.Resolve(ctx, id, models.PendingStatusRejected); err != nil {
		return err
	}

	_ = e.emitter.EmitPendingResolved(ctx, pending, false)

	e.logger.WithContext(ctx).WithField("pending_id", id).Info("Rejected pending record")
	return nil
}

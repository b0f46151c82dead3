// Package events handles event emission for object lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/aster/pkg/kafka"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes object lifecycle events. A nil Emitter is valid and
// emits nothing, so callers without a broker skip the wiring.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitObjectCreated emits an object created event
func (e *Emitter) EmitObjectCreated(ctx context.Context, obj *models.CelestialObject, record *models.CatalogRecord) error {
	if e == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitObjectCreated")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"ra":             obj.RA,
		"dec":            obj.Dec,
	})

	event := &kafka.ObjectEvent{
		EventType: string(EventTypeObjectCreated),
		ObjectID:  obj.ID,
		Survey:    record.Survey,
		SourceID:  record.SourceID,
		Surveys:   obj.Surveys(),
		Data:      data,
		Version:   obj.Version,
	}

	if err := e.producer.PublishObjectEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit object.created event")
		return err
	}

	return nil
}

// EmitObjectMerged emits an object merged event with merge details
func (e *Emitter) EmitObjectMerged(ctx context.Context, obj *models.CelestialObject, record *models.CatalogRecord, separation float64) error {
	if e == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitObjectMerged")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"ra":             obj.RA,
		"dec":            obj.Dec,
		"survey_count":   len(obj.Contributions),
	})

	event := &kafka.ObjectEvent{
		EventType:  string(EventTypeObjectMerged),
		ObjectID:   obj.ID,
		Survey:     record.Survey,
		SourceID:   record.SourceID,
		Surveys:    obj.Surveys(),
		Data:       data,
		Separation: separation,
		Version:    obj.Version,
	}

	if err := e.producer.PublishObjectEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit object.merged event")
		return err
	}

	return nil
}

// EmitRecordPending emits a record pending event when a record is parked
// for manual review
func (e *Emitter) EmitRecordPending(ctx context.Context, pending *models.PendingRecord) error {
	if e == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRecordPending")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"pending_id":     pending.ID,
		"reason":         pending.Reason,
	})

	event := &kafka.ObjectEvent{
		EventType: string(EventTypeRecordPending),
		ObjectID:  pending.ObjectID,
		Survey:    pending.Record.Survey,
		SourceID:  pending.Record.SourceID,
		Data:      data,
	}

	if err := e.producer.PublishObjectEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit record.pending event")
		return err
	}

	return nil
}

// EmitPendingResolved emits the approval or rejection of a pending record
func (e *Emitter) EmitPendingResolved(ctx context.Context, pending *models.PendingRecord, approved bool) error {
	if e == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitPendingResolved")
	defer span.End()

	eventType := EventTypePendingRejected
	if approved {
		eventType = EventTypePendingApproved
	}

	data, _ := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"pending_id":     pending.ID,
	})

	event := &kafka.ObjectEvent{
		EventType: string(eventType),
		ObjectID:  pending.ObjectID,
		Survey:    pending.Record.Survey,
		SourceID:  pending.Record.SourceID,
		Data:      data,
	}

	if err := e.producer.PublishObjectEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit pending resolution event")
		return err
	}

	return nil
}

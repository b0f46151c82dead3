// Package ingest drives batch and streaming ingestion: rows are
// normalized in parallel, then applied to the registry one at a time so
// match resolution stays deterministic.
package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/aster/config"
	"github.com/Ramsey-B/aster/internal/repositories/ingestrun"
	"github.com/Ramsey-B/aster/pkg/appcontext"
	"github.com/Ramsey-B/aster/pkg/kafka"
	"github.com/Ramsey-B/aster/pkg/merging"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/normalizer"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

// Config holds ingestion tuning parameters.
type Config struct {
	NormalizeWorkers int
	RetryAttempts    int
	RetryBaseDelay   time.Duration
	ProgressInterval int
}

// ConfigFromApp derives ingestion settings from the app config.
func ConfigFromApp(cfg config.Config) Config {
	return Config{
		NormalizeWorkers: cfg.IngestNormalizeWorkers,
		RetryAttempts:    cfg.IngestRetryAttempts,
		RetryBaseDelay:   time.Duration(cfg.IngestRetryBaseMs) * time.Millisecond,
		ProgressInterval: cfg.IngestProgressInterval,
	}
}

func (c Config) withDefaults() Config {
	if c.NormalizeWorkers <= 0 {
		c.NormalizeWorkers = 4
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 100 * time.Millisecond
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = 1000
	}
	return c
}

// Runner executes ingestion runs.
type Runner struct {
	normalizer *normalizer.Normalizer
	engine     *merging.Engine
	runs       ingestrun.Store
	logger     ectologger.Logger
	config     Config
}

// NewRunner creates an ingestion runner.
func NewRunner(norm *normalizer.Normalizer, engine *merging.Engine, runs ingestrun.Store, logger ectologger.Logger, cfg Config) *Runner {
	return &Runner{
		normalizer: norm,
		engine:     engine,
		runs:       runs,
		logger:     logger,
		config:     cfg.withDefaults(),
	}
}

// Run ingests all rows for one survey and records the run. Rows are
// normalized by a worker pool; registry writes stay single-file behind
// the engine. Cancellation finishes the in-flight record and marks the
// run canceled.
func (r *Runner) Run(ctx context.Context, survey, source string, rows <-chan map[string]any) (*models.IngestRun, error) {
	ctx, span := tracing.StartSpan(ctx, "ingest.Runner.Run")
	defer span.End()

	run := &models.IngestRun{
		ID:        uuid.New().String(),
		Survey:    survey,
		Source:    source,
		Status:    models.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := r.runs.Create(ctx, run); err != nil {
		return nil, err
	}

	ctx = appcontext.SetRunID(ctx, run.ID)
	ctx = appcontext.SetSurvey(ctx, survey)

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id": run.ID,
		"survey": survey,
	})
	log.Info("Ingestion run started")

	records := make(chan *models.CatalogRecord, r.config.NormalizeWorkers)
	var summaryMu sync.Mutex
	var summary models.IngestSummary

	var wg sync.WaitGroup
	for i := 0; i < r.config.NormalizeWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for row := range rows {
				record, err := r.normalizer.Normalize(ctx, survey, row)
				if err != nil {
					if models.IsMalformedRecord(err) {
						summaryMu.Lock()
						summary.Total++
						summary.Malformed++
						summaryMu.Unlock()
						log.WithError(err).Warn("Skipping malformed row")
						continue
					}
					summaryMu.Lock()
					summary.Total++
					summary.Failed++
					summaryMu.Unlock()
					log.WithError(err).Error("Failed to normalize row")
					continue
				}
				records <- record
			}
		}()
	}
	go func() {
		wg.Wait()
		close(records)
	}()

	var runErr error
	canceled := false
	for record := range records {
		if err := ctx.Err(); err != nil {
			canceled = true
			break
		}

		outcome, err := r.processWithRetry(ctx, record)
		summaryMu.Lock()
		if err != nil {
			summary.Total++
			summary.Failed++
			log.WithError(err).WithField("source_id", record.SourceID).Error("Failed to process record")
			if runErr == nil {
				runErr = err
			}
		} else {
			summary.Count(outcome.Decision)
		}
		total := summary.Total
		summaryMu.Unlock()

		if total%r.config.ProgressInterval == 0 {
			log.WithFields(map[string]any{"processed": total}).Info("Ingestion progress")
		}
	}

	// drain workers if we bailed early
	if canceled {
		for range records {
		}
	}

	summaryMu.Lock()
	run.Summary = summary
	summaryMu.Unlock()

	now := time.Now().UTC()
	run.FinishedAt = &now
	switch {
	case canceled:
		run.Status = models.RunStatusCanceled
	case runErr != nil:
		run.Status = models.RunStatusFailed
		run.Error = runErr.Error()
	default:
		run.Status = models.RunStatusCompleted
	}

	// update with a fresh context so a canceled run still gets recorded
	if err := r.runs.Update(context.WithoutCancel(ctx), run); err != nil {
		log.WithError(err).Error("Failed to record run result")
	}

	log.WithFields(map[string]any{
		"status":    run.Status,
		"total":     run.Summary.Total,
		"created":   run.Summary.Created,
		"merged":    run.Summary.Merged,
		"unchanged": run.Summary.Unchanged,
		"pending":   run.Summary.Pending,
		"malformed": run.Summary.Malformed,
		"failed":    run.Summary.Failed,
	}).Info("Ingestion run finished")

	return run, nil
}

// processWithRetry retries transient store failures with exponential
// backoff. Anything else fails immediately.
func (r *Runner) processWithRetry(ctx context.Context, record *models.CatalogRecord) (*models.MatchOutcome, error) {
	delay := r.config.RetryBaseDelay
	var lastErr error
	for attempt := 0; attempt < r.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		outcome, err := r.engine.ProcessRecord(ctx, record)
		if err == nil {
			return outcome, nil
		}
		if !models.IsStoreUnavailable(err) {
			return nil, err
		}
		lastErr = err
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"source_id": record.SourceID,
			"attempt":   attempt + 1,
		}).Warn("Store unavailable, retrying")
	}
	return nil, lastErr
}

// HandleMessage processes one streamed record. Malformed payloads are
// dropped (and committed); transient store failures return an error so
// the message is redelivered.
func (r *Runner) HandleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "ingest.Runner.HandleMessage")
	defer span.End()

	if runID := msg.GetRunID(); runID != "" {
		ctx = appcontext.SetRunID(ctx, runID)
	}
	ctx = appcontext.SetSurvey(ctx, msg.GetSurvey())

	record, err := r.normalizer.Normalize(ctx, msg.GetSurvey(), msg.Record.Row)
	if err != nil {
		if models.IsMalformedRecord(err) {
			r.logger.WithContext(ctx).WithError(err).Warn("Dropping malformed record message")
			return nil
		}
		return err
	}

	_, err = r.processWithRetry(ctx, record)
	return err
}

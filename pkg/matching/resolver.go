// Package matching resolves normalized catalog records against the
// object registry: it finds candidates within the matching radius and
// picks the winner deterministically.
package matching

import (
	"context"
	"math"
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/aster/internal/repositories/object"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/sky"
	"github.com/Ramsey-B/aster/pkg/spatialindex"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

// ResolverConfig holds cross-matching parameters.
type ResolverConfig struct {
	// RadiusArcsec is the matching radius; separations equal to it merge.
	RadiusArcsec float64
	// MaxCandidates caps how many index hits are ranked; closest kept.
	MaxCandidates int
}

// DefaultConfig returns the standard matching parameters.
func DefaultConfig() ResolverConfig {
	return ResolverConfig{
		RadiusArcsec:  1.0,
		MaxCandidates: 16,
	}
}

// Resolver decides what happens to each record.
type Resolver struct {
	index      *spatialindex.Index
	store      object.Store
	priorities []models.SurveyPriority
	config     ResolverConfig
	logger     ectologger.Logger
}

// NewResolver creates a Resolver over the given index and store.
func NewResolver(index *spatialindex.Index, store object.Store, priorities []models.SurveyPriority, logger ectologger.Logger, config ResolverConfig) *Resolver {
	if config.RadiusArcsec <= 0 {
		config.RadiusArcsec = DefaultConfig().RadiusArcsec
	}
	if config.MaxCandidates <= 0 {
		config.MaxCandidates = DefaultConfig().MaxCandidates
	}
	return &Resolver{
		index:      index,
		store:      store,
		priorities: priorities,
		config:     config,
		logger:     logger,
	}
}

type candidate struct {
	obj        *models.CelestialObject
	separation float64
	priority   int
	quality    int
}

// Resolve matches one record against the registry. The returned outcome
// is deterministic for identical inputs and registry state.
func (r *Resolver) Resolve(ctx context.Context, record *models.CatalogRecord) (*models.MatchOutcome, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Resolver.Resolve")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"survey":    record.Survey,
		"source_id": record.SourceID,
	})

	// A source we have seen before resolves against its own object, even
	// if the reported position drifted outside the matching radius.
	if owner, err := r.store.GetBySource(ctx, record.Survey, record.SourceID); err != nil {
		return nil, err
	} else if owner != nil {
		return r.resolveAgainstOwn(log, record, owner), nil
	}

	hits := r.index.QueryRadius(record.RA, record.Dec, r.config.RadiusArcsec)
	if len(hits) > r.config.MaxCandidates {
		hits = hits[:r.config.MaxCandidates]
	}

	candidates, err := r.loadCandidates(ctx, hits)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 && r.index.Len() == 0 {
		// Cold index: the store is the source of truth, the index is a
		// cache over it that self-heals on the next write.
		candidates, err = r.scanStore(ctx, record)
		if err != nil {
			return nil, err
		}
	}

	if len(candidates) == 0 {
		return &models.MatchOutcome{Decision: models.DecisionNew, Record: *record}, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidateLess(candidates[i], candidates[j])
	})

	best := candidates[0]
	alternates := make([]models.RejectedAlternate, 0, len(candidates)-1)
	for _, c := range candidates[1:] {
		alternates = append(alternates, models.RejectedAlternate{
			ObjectID:   c.obj.ID,
			Separation: c.separation,
			Reason:     rejectionReason(best, c),
		})
	}

	if len(alternates) > 0 {
		log.WithFields(map[string]any{
			"object_id":  best.obj.ID,
			"alternates": len(alternates),
		}).Debug("tie-break resolved among multiple candidates")
	}

	outcome := &models.MatchOutcome{
		Record:     *record,
		Object:     best.obj,
		Separation: best.separation,
		Alternates: alternates,
	}

	if existing, ok := best.obj.Contributions[record.Survey]; ok {
		if existing.Record.Fingerprint == record.Fingerprint {
			outcome.Decision = models.DecisionUnchanged
		} else {
			outcome.Decision = models.DecisionAmbiguous
		}
		return outcome, nil
	}

	outcome.Decision = models.DecisionMerge
	return outcome, nil
}

func (r *Resolver) resolveAgainstOwn(log ectologger.Logger, record *models.CatalogRecord, owner *models.CelestialObject) *models.MatchOutcome {
	outcome := &models.MatchOutcome{Record: *record, Object: owner}
	existing, ok := owner.Contributions[record.Survey]
	if ok && existing.Record.Fingerprint == record.Fingerprint {
		outcome.Decision = models.DecisionUnchanged
		return outcome
	}

	// Same source, different payload: never merged silently.
	outcome.Decision = models.DecisionAmbiguous
	log.WithField("object_id", owner.ID).Info("source re-seen with changed payload, parking for review")
	return outcome
}

// loadCandidates hydrates index hits from the store. A hit the store
// cannot load means the index and store have diverged.
func (r *Resolver) loadCandidates(ctx context.Context, hits []spatialindex.Hit) ([]candidate, error) {
	candidates := make([]candidate, 0, len(hits))
	for _, hit := range hits {
		obj, err := r.store.Get(ctx, hit.ID)
		if err != nil {
			return nil, err
		}
		if obj == nil {
			r.logger.WithContext(ctx).WithFields(map[string]any{
				"object_id": hit.ID,
			}).Error("spatial index entry missing from store")
			return nil, &models.IndexInconsistencyError{ObjectID: hit.ID}
		}

		c := candidate{
			obj:        obj,
			separation: hit.Separation,
			priority:   r.bestPriority(obj),
			quality:    math.MaxInt,
		}
		if q := obj.BestQuality(); q != nil {
			c.quality = *q
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// scanStore runs the coarse box prefilter against the store, split at
// the RA seam, then keeps exact separations within the radius.
func (r *Resolver) scanStore(ctx context.Context, record *models.CatalogRecord) ([]candidate, error) {
	r.logger.WithContext(ctx).Warn("spatial index empty, falling back to store box scan")

	seen := make(map[string]bool)
	candidates := make([]candidate, 0, 4)
	for _, box := range sky.BoxesAround(record.RA, record.Dec, r.config.RadiusArcsec) {
		objects, err := r.store.Box(ctx, box)
		if err != nil {
			return nil, err
		}
		for i := range objects {
			obj := objects[i]
			if seen[obj.ID] {
				continue
			}
			seen[obj.ID] = true

			sep := sky.Separation(record.RA, record.Dec, obj.RA, obj.Dec)
			if sep > r.config.RadiusArcsec {
				continue
			}
			c := candidate{
				obj:        &obj,
				separation: sep,
				priority:   r.bestPriority(&obj),
				quality:    math.MaxInt,
			}
			if q := obj.BestQuality(); q != nil {
				c.quality = *q
			}
			candidates = append(candidates, c)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].separation != candidates[j].separation {
			return candidates[i].separation < candidates[j].separation
		}
		return candidates[i].obj.ID < candidates[j].obj.ID
	})
	if len(candidates) > r.config.MaxCandidates {
		candidates = candidates[:r.config.MaxCandidates]
	}
	return candidates, nil
}

// bestPriority is the highest survey priority among the object's
// contributions.
func (r *Resolver) bestPriority(obj *models.CelestialObject) int {
	best := 0
	for survey := range obj.Contributions {
		if p := models.PriorityFor(r.priorities, survey); p > best {
			best = p
		}
	}
	return best
}

// candidateLess ranks candidates: smaller separation, then higher survey
// priority, then better (lower) quality flag, then smaller object id.
func candidateLess(a, b candidate) bool {
	if a.separation != b.separation {
		return a.separation < b.separation
	}
	if a.priority != b.priority {
		return a.priority > b.priority
	}
	if a.quality != b.quality {
		return a.quality < b.quality
	}
	return a.obj.ID < b.obj.ID
}

func rejectionReason(winner, loser candidate) string {
	switch {
	case loser.separation > winner.separation:
		return "greater separation"
	case loser.priority < winner.priority:
		return "lower survey priority"
	case loser.quality > winner.quality:
		return "worse quality flag"
	default:
		return "object id order"
	}
}

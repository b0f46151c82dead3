// Package normalizer turns raw survey rows into canonical catalog
// records using per-survey schema descriptors.
package normalizer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/aster/pkg/fingerprint"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/sky"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

// SchemaGetter fetches the schema descriptor for a survey.
type SchemaGetter interface {
	GetBySurvey(ctx context.Context, survey string) (*models.SurveySchema, error)
}

// Normalizer resolves schemas and normalizes rows.
type Normalizer struct {
	schemas SchemaGetter
	logger  ectologger.Logger
}

// New creates a Normalizer.
func New(schemas SchemaGetter, logger ectologger.Logger) *Normalizer {
	return &Normalizer{
		schemas: schemas,
		logger:  logger,
	}
}

// Normalize converts one raw row from survey into a CatalogRecord.
// Returns a MalformedRecordError when the row cannot be normalized.
func (n *Normalizer) Normalize(ctx context.Context, survey string, row map[string]any) (*models.CatalogRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "normalizer.Normalizer.Normalize")
	defer span.End()

	schema, err := n.schemas.GetBySurvey(ctx, survey)
	if err != nil {
		return nil, fmt.Errorf("failed to get schema for survey %q: %w", survey, err)
	}
	if schema == nil {
		return nil, fmt.Errorf("no schema registered for survey %q", survey)
	}

	record, err := NormalizeRow(schema, row)
	if err != nil {
		n.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"survey": survey,
		}).Debug("row failed normalization")
		return nil, err
	}
	return record, nil
}

// NormalizeRow is the pure normalization core: schema in, record out.
func NormalizeRow(schema *models.SurveySchema, row map[string]any) (*models.CatalogRecord, error) {
	survey := schema.Survey

	sourceID, ok := stringValue(row[schema.SourceIDColumn])
	if !ok || sourceID == "" {
		return nil, models.NewMalformedRecord(survey, "", "missing source identifier column %q", schema.SourceIDColumn)
	}

	rawRA, ok := row[schema.RAColumn]
	if !ok {
		return nil, models.NewMalformedRecord(survey, sourceID, "missing ra column %q", schema.RAColumn)
	}
	ra, ok := floatValue(rawRA)
	if !ok || !sky.ValidRA(ra) {
		return nil, models.NewMalformedRecord(survey, sourceID, "invalid ra value %v", rawRA)
	}

	rawDec, ok := row[schema.DecColumn]
	if !ok {
		return nil, models.NewMalformedRecord(survey, sourceID, "missing dec column %q", schema.DecColumn)
	}
	dec, ok := floatValue(rawDec)
	if !ok || !sky.ValidDec(dec) {
		return nil, models.NewMalformedRecord(survey, sourceID, "dec value %v outside [-90, 90]", rawDec)
	}

	record := &models.CatalogRecord{
		Survey:   survey,
		SourceID: sourceID,
		RA:       sky.NormalizeRA(ra),
		Dec:      dec,
	}

	if schema.UncertaintyColumn != "" {
		if raw, ok := row[schema.UncertaintyColumn]; ok && raw != nil {
			sigma, ok := floatValue(raw)
			if !ok || sigma < 0 {
				return nil, models.NewMalformedRecord(survey, sourceID, "invalid positional uncertainty %v", raw)
			}
			if sigma > 0 {
				record.PosUncertainty = &sigma
			}
		}
	}

	if schema.QualityColumn != "" {
		if raw, ok := row[schema.QualityColumn]; ok && raw != nil {
			quality, ok := intValue(raw)
			if !ok {
				return nil, models.NewMalformedRecord(survey, sourceID, "invalid quality flag %v", raw)
			}
			record.QualityFlag = &quality
		}
	}

	if schema.EpochColumn != "" {
		if raw, ok := row[schema.EpochColumn]; ok && raw != nil {
			epoch, ok := floatValue(raw)
			if !ok {
				return nil, models.NewMalformedRecord(survey, sourceID, "invalid epoch %v", raw)
			}
			record.Epoch = &epoch
		}
	}

	if len(schema.Columns) > 0 {
		record.Attributes = make(map[string]any, len(schema.Columns))
	}
	for _, col := range schema.Columns {
		raw, present := row[col.Name]
		if present && raw != nil {
			if s, isString := raw.(string); isString && len(col.Normalizers) > 0 {
				raw = ApplyChain(s, col.Normalizers...)
			}
			if s, isString := raw.(string); isString && s == "" {
				present = false
			} else {
				value, err := coerce(raw, col.Type)
				if err != nil {
					return nil, models.NewMalformedRecord(survey, sourceID, "column %q: %v", col.Name, err)
				}
				record.Attributes[col.CanonicalName()] = value
				continue
			}
		}
		if !present || raw == nil {
			if col.Required {
				return nil, models.NewMalformedRecord(survey, sourceID, "missing required column %q", col.Name)
			}
		}
	}

	record.Fingerprint = fingerprint.Record(record, schema.GetFingerprintExclusions())
	return record, nil
}

// coerce converts a raw value to the declared column type.
func coerce(raw any, t models.ColumnType) (any, error) {
	switch t {
	case models.ColumnString:
		s, ok := stringValue(raw)
		if !ok {
			return nil, fmt.Errorf("cannot coerce %T to string", raw)
		}
		return s, nil
	case models.ColumnFloat:
		f, ok := floatValue(raw)
		if !ok {
			return nil, fmt.Errorf("cannot coerce %v to float", raw)
		}
		return f, nil
	case models.ColumnInt:
		i, ok := intValue(raw)
		if !ok {
			return nil, fmt.Errorf("cannot coerce %v to int", raw)
		}
		return i, nil
	case models.ColumnBool:
		b, ok := boolValue(raw)
		if !ok {
			return nil, fmt.Errorf("cannot coerce %v to bool", raw)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown column type %q", t)
	}
}

func stringValue(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v), true
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

func floatValue(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func intValue(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func boolValue(raw any) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(strings.ToLower(v)))
		if err != nil {
			return false, false
		}
		return b, true
	case float64:
		if v == 0 || v == 1 {
			return v == 1, true
		}
		return false, false
	default:
		return false, false
	}
}

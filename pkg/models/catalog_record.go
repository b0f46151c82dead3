package models

import "time"

// CatalogRecord is a single normalized survey detection. Coordinates are
// ICRS degrees: RA in [0, 360), Dec in [-90, 90].
type CatalogRecord struct {
	Survey   string `json:"survey"`
	SourceID string `json:"source_id"`

	RA  float64 `json:"ra"`
	Dec float64 `json:"dec"`

	// PosUncertainty is the 1-sigma positional uncertainty in arcsec,
	// when the survey reports one.
	PosUncertainty *float64 `json:"pos_uncertainty,omitempty"`

	// QualityFlag follows the survey's convention, lower is better.
	QualityFlag *int `json:"quality_flag,omitempty"`

	// Epoch is the observation epoch as a decimal year.
	Epoch *float64 `json:"epoch,omitempty"`

	// Attributes holds the survey's remaining columns after schema
	// coercion, keyed by canonical column name.
	Attributes map[string]any `json:"attributes,omitempty"`

	// Fingerprint identifies the record payload. Two records with equal
	// fingerprints are the same observation.
	Fingerprint string `json:"fingerprint"`

	ObservedAt time.Time `json:"observed_at,omitempty"`
}

// Key returns the record's globally unique source key.
func (r *CatalogRecord) Key() string {
	return r.Survey + ":" + r.SourceID
}

// Clone returns a deep copy of the record.
func (r *CatalogRecord) Clone() CatalogRecord {
	out := *r
	if r.PosUncertainty != nil {
		v := *r.PosUncertainty
		out.PosUncertainty = &v
	}
	if r.QualityFlag != nil {
		v := *r.QualityFlag
		out.QualityFlag = &v
	}
	if r.Epoch != nil {
		v := *r.Epoch
		out.Epoch = &v
	}
	if r.Attributes != nil {
		attrs := make(map[string]any, len(r.Attributes))
		for k, v := range r.Attributes {
			attrs[k] = v
		}
		out.Attributes = attrs
	}
	return out
}

package models

import (
	"sort"
	"time"
)

// Contribution is one survey's record inside a merged object. An object
// holds at most one contribution per survey.
type Contribution struct {
	Record CatalogRecord `json:"record"`

	// Separation is the angular distance in arcsec between the record
	// and the object's reference position at merge time.
	Separation float64   `json:"separation_arcsec"`
	AddedAt    time.Time `json:"added_at"`
}

// CelestialObject is a unique object on the sky, assembled from one or
// more survey records. RA/Dec is the reference position recomputed from
// the contributions.
type CelestialObject struct {
	ID  string  `json:"id"`
	RA  float64 `json:"ra"`
	Dec float64 `json:"dec"`

	// Contributions keyed by survey name.
	Contributions map[string]Contribution `json:"contributions"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Surveys returns the contributing survey names in sorted order.
func (o *CelestialObject) Surveys() []string {
	out := make([]string, 0, len(o.Contributions))
	for survey := range o.Contributions {
		out = append(out, survey)
	}
	sort.Strings(out)
	return out
}

// HasSurvey reports whether the object already carries a record from survey.
func (o *CelestialObject) HasSurvey(survey string) bool {
	_, ok := o.Contributions[survey]
	return ok
}

// BestQuality returns the best (lowest) quality flag across contributions,
// or nil when no contribution reports one.
func (o *CelestialObject) BestQuality() *int {
	var best *int
	for _, c := range o.Contributions {
		if c.Record.QualityFlag == nil {
			continue
		}
		if best == nil || *c.Record.QualityFlag < *best {
			v := *c.Record.QualityFlag
			best = &v
		}
	}
	return best
}

// Clone returns a deep copy, so stores can hand out snapshots.
func (o *CelestialObject) Clone() *CelestialObject {
	out := *o
	out.Contributions = make(map[string]Contribution, len(o.Contributions))
	for survey, c := range o.Contributions {
		c.Record = c.Record.Clone()
		out.Contributions[survey] = c
	}
	return &out
}

// AttributeValue is one resolved attribute in a merged view, with the
// survey it came from and any conflicting values from other surveys.
type AttributeValue struct {
	Value       any            `json:"value"`
	Survey      string         `json:"survey"`
	Conflicting map[string]any `json:"conflicting,omitempty"`
}

// ObjectView is the flattened, precedence-resolved attribute view of an
// object returned by the query API.
type ObjectView struct {
	Object     *CelestialObject          `json:"object"`
	Attributes map[string]AttributeValue `json:"attributes"`
}

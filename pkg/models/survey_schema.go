package models

// ColumnType is the declared type of a survey column.
type ColumnType string

const (
	ColumnString ColumnType = "string"
	ColumnFloat  ColumnType = "float"
	ColumnInt    ColumnType = "int"
	ColumnBool   ColumnType = "bool"
)

// ColumnDef declares one attribute column of a survey table.
type ColumnDef struct {
	// Name is the raw column name as it appears in the survey table.
	Name string `json:"name" validate:"required"`
	// As renames the column in the normalized record; defaults to Name.
	As       string     `json:"as,omitempty"`
	Type     ColumnType `json:"type" validate:"required,oneof=string float int bool"`
	Required bool       `json:"required,omitempty"`
	// Normalizers is a chain of registered value normalizer names
	// applied to string values before coercion.
	Normalizers []string `json:"normalizers,omitempty"`
}

// SurveySchema maps a survey's raw rows onto CatalogRecord fields.
type SurveySchema struct {
	Survey string `json:"survey" validate:"required"`

	RAColumn       string `json:"ra_column" validate:"required"`
	DecColumn      string `json:"dec_column" validate:"required"`
	SourceIDColumn string `json:"source_id_column" validate:"required"`

	UncertaintyColumn string `json:"uncertainty_column,omitempty"`
	QualityColumn     string `json:"quality_column,omitempty"`
	EpochColumn       string `json:"epoch_column,omitempty"`

	// Priority ranks the survey for attribute precedence and match
	// tie-breaking. Higher wins.
	Priority int `json:"priority,omitempty"`

	Columns []ColumnDef `json:"columns,omitempty" validate:"dive"`

	// FingerprintExclusions lists attribute names left out of the
	// record fingerprint (e.g. retrieval timestamps).
	FingerprintExclusions []string `json:"fingerprint_exclusions,omitempty"`
}

// GetFingerprintExclusions returns the exclusion set, or nil when empty.
func (s *SurveySchema) GetFingerprintExclusions() map[string]bool {
	if len(s.FingerprintExclusions) == 0 {
		return nil
	}
	out := make(map[string]bool, len(s.FingerprintExclusions))
	for _, name := range s.FingerprintExclusions {
		out[name] = true
	}
	return out
}

// CanonicalName returns the normalized attribute name for a column.
func (c *ColumnDef) CanonicalName() string {
	if c.As != "" {
		return c.As
	}
	return c.Name
}

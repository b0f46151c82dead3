package schema

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/normalizer"
)

// ValidationError represents a single descriptor problem
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult represents the result of validating a descriptor
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

var structValidator = validator.New()

// ValidateDescriptor checks a survey schema descriptor: struct tags
// first, then the semantic rules the tags cannot express.
func ValidateDescriptor(schema *models.SurveySchema) ValidationResult {
	result := ValidationResult{Valid: true, Errors: []ValidationError{}}

	if err := structValidator.Struct(schema); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range errs {
				result.Errors = append(result.Errors, ValidationError{
					Field:   fe.Namespace(),
					Message: fmt.Sprintf("failed %q validation", fe.Tag()),
				})
			}
		} else {
			result.Errors = append(result.Errors, ValidationError{Message: err.Error()})
		}
		result.Valid = false
		return result
	}

	addError := func(field, message string) {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{Field: field, Message: message})
	}

	// Position and identity columns must not be redeclared as attributes.
	reserved := map[string]string{
		schema.RAColumn:       "ra_column",
		schema.DecColumn:      "dec_column",
		schema.SourceIDColumn: "source_id_column",
	}
	if schema.UncertaintyColumn != "" {
		reserved[schema.UncertaintyColumn] = "uncertainty_column"
	}
	if schema.QualityColumn != "" {
		reserved[schema.QualityColumn] = "quality_column"
	}
	if schema.EpochColumn != "" {
		reserved[schema.EpochColumn] = "epoch_column"
	}

	seen := make(map[string]bool, len(schema.Columns))
	declared := make(map[string]bool, len(schema.Columns))
	for i, col := range schema.Columns {
		field := fmt.Sprintf("columns[%d]", i)

		if role, ok := reserved[col.Name]; ok {
			addError(field, fmt.Sprintf("column %q is already mapped as %s", col.Name, role))
		}

		canonical := col.CanonicalName()
		if seen[canonical] {
			addError(field, fmt.Sprintf("duplicate attribute name %q", canonical))
		}
		seen[canonical] = true
		declared[canonical] = true

		for _, name := range col.Normalizers {
			if _, ok := normalizer.Get(name); !ok {
				addError(field, fmt.Sprintf("unknown normalizer %q", name))
			}
		}
	}

	for _, name := range schema.FingerprintExclusions {
		if !declared[name] {
			addError("fingerprint_exclusions", fmt.Sprintf("excluded attribute %q is not declared", name))
		}
	}

	return result
}

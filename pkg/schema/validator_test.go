package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/aster/pkg/models"
)

func validDescriptor() *models.SurveySchema {
	return &models.SurveySchema{
		Survey:         "gaia_dr3",
		RAColumn:       "ra",
		DecColumn:      "dec",
		SourceIDColumn: "source_id",
		Priority:       10,
		Columns: []models.ColumnDef{
			{Name: "phot_g_mean_mag", As: "g_mag", Type: models.ColumnFloat},
			{Name: "parallax", Type: models.ColumnFloat},
			{Name: "object_class", Type: models.ColumnString, Normalizers: []string{"trim", "lowercase"}},
		},
		FingerprintExclusions: []string{"g_mag"},
	}
}

func TestValidateDescriptor_Valid(t *testing.T) {
	result := ValidateDescriptor(validDescriptor())
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateDescriptor_MissingRequired(t *testing.T) {
	desc := validDescriptor()
	desc.RAColumn = ""

	result := ValidateDescriptor(desc)
	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0].Field, "RAColumn")
}

func TestValidateDescriptor_BadColumnType(t *testing.T) {
	desc := validDescriptor()
	desc.Columns[0].Type = "decimal"

	result := ValidateDescriptor(desc)
	assert.False(t, result.Valid)
}

func TestValidateDescriptor_ReservedColumnCollision(t *testing.T) {
	desc := validDescriptor()
	desc.Columns = append(desc.Columns, models.ColumnDef{Name: "ra", Type: models.ColumnFloat})

	result := ValidateDescriptor(desc)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "ra_column")
}

func TestValidateDescriptor_DuplicateAttributeName(t *testing.T) {
	desc := validDescriptor()
	// rename collides with an existing canonical name
	desc.Columns = append(desc.Columns, models.ColumnDef{Name: "g_mag_alt", As: "g_mag", Type: models.ColumnFloat})

	result := ValidateDescriptor(desc)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors[0].Message, "duplicate")
}

func TestValidateDescriptor_UnknownNormalizer(t *testing.T) {
	desc := validDescriptor()
	desc.Columns[2].Normalizers = []string{"trim", "titlecase"}

	result := ValidateDescriptor(desc)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors[0].Message, "titlecase")
}

func TestValidateDescriptor_ExclusionMustBeDeclared(t *testing.T) {
	desc := validDescriptor()
	desc.FingerprintExclusions = []string{"retrieved_at"}

	result := ValidateDescriptor(desc)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors[0].Message, "retrieved_at")
}

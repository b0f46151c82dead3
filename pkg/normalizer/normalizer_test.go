package normalizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/aster/pkg/models"
)

func testSchema() *models.SurveySchema {
	return &models.SurveySchema{
		Survey:            "twomass",
		RAColumn:          "RAJ2000",
		DecColumn:         "DEJ2000",
		SourceIDColumn:    "designation",
		UncertaintyColumn: "errMaj",
		QualityColumn:     "ph_qual",
		Columns: []models.ColumnDef{
			{Name: "Jmag", Type: models.ColumnFloat},
			{Name: "Hmag", Type: models.ColumnFloat},
			{Name: "name", As: "common_name", Type: models.ColumnString, Normalizers: []string{"trim", "collapse_whitespace"}},
			{Name: "ext_flag", Type: models.ColumnBool},
		},
	}
}

func validRow() map[string]any {
	return map[string]any{
		"RAJ2000":     280.25,
		"DEJ2000":     -12.5,
		"designation": "18410000-1230000",
		"errMaj":      0.08,
		"ph_qual":     1,
		"Jmag":        12.34,
		"name":        "  HD   170000 ",
		"ext_flag":    false,
	}
}

func TestNormalizeRow(t *testing.T) {
	record, err := NormalizeRow(testSchema(), validRow())
	require.NoError(t, err)

	assert.Equal(t, "twomass", record.Survey)
	assert.Equal(t, "18410000-1230000", record.SourceID)
	assert.Equal(t, 280.25, record.RA)
	assert.Equal(t, -12.5, record.Dec)
	require.NotNil(t, record.PosUncertainty)
	assert.Equal(t, 0.08, *record.PosUncertainty)
	require.NotNil(t, record.QualityFlag)
	assert.Equal(t, 1, *record.QualityFlag)
	assert.Equal(t, 12.34, record.Attributes["Jmag"])
	assert.Equal(t, "HD 170000", record.Attributes["common_name"])
	assert.Equal(t, false, record.Attributes["ext_flag"])
	assert.NotContains(t, record.Attributes, "Hmag")
	assert.NotEmpty(t, record.Fingerprint)
}

func TestNormalizeRowWrapsRA(t *testing.T) {
	row := validRow()
	row["RAJ2000"] = -0.5
	record, err := NormalizeRow(testSchema(), row)
	require.NoError(t, err)
	assert.InDelta(t, 359.5, record.RA, 1e-9)

	row["RAJ2000"] = 360.25
	record, err = NormalizeRow(testSchema(), row)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, record.RA, 1e-9)
}

func TestNormalizeRowMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"missing source id", func(r map[string]any) { delete(r, "designation") }},
		{"empty source id", func(r map[string]any) { r["designation"] = "  " }},
		{"missing ra", func(r map[string]any) { delete(r, "RAJ2000") }},
		{"nan ra", func(r map[string]any) { r["RAJ2000"] = math.NaN() }},
		{"inf ra", func(r map[string]any) { r["RAJ2000"] = math.Inf(1) }},
		{"unparseable ra", func(r map[string]any) { r["RAJ2000"] = "not-a-number" }},
		{"missing dec", func(r map[string]any) { delete(r, "DEJ2000") }},
		{"dec above range", func(r map[string]any) { r["DEJ2000"] = 90.0001 }},
		{"dec below range", func(r map[string]any) { r["DEJ2000"] = -91.0 }},
		{"negative uncertainty", func(r map[string]any) { r["errMaj"] = -0.1 }},
		{"bad quality flag", func(r map[string]any) { r["ph_qual"] = "AAA" }},
		{"uncoercible attribute", func(r map[string]any) { r["Jmag"] = "bright" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := validRow()
			tt.mutate(row)
			_, err := NormalizeRow(testSchema(), row)
			require.Error(t, err)
			assert.True(t, models.IsMalformedRecord(err), "expected MalformedRecordError, got %v", err)
		})
	}
}

func TestNormalizeRowRequiredColumn(t *testing.T) {
	schema := testSchema()
	schema.Columns[0].Required = true

	row := validRow()
	delete(row, "Jmag")

	_, err := NormalizeRow(schema, row)
	require.Error(t, err)
	assert.True(t, models.IsMalformedRecord(err))
}

func TestNormalizeRowIdenticalFingerprint(t *testing.T) {
	a, err := NormalizeRow(testSchema(), validRow())
	require.NoError(t, err)
	b, err := NormalizeRow(testSchema(), validRow())
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint, b.Fingerprint)

	row := validRow()
	row["Jmag"] = 12.35
	c, err := NormalizeRow(testSchema(), row)
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint, c.Fingerprint)
}

func TestNormalizeRowFingerprintExclusions(t *testing.T) {
	schema := testSchema()
	schema.Columns = append(schema.Columns, models.ColumnDef{Name: "retrieved_at", Type: models.ColumnString})
	schema.FingerprintExclusions = []string{"retrieved_at"}

	rowA := validRow()
	rowA["retrieved_at"] = "2026-08-29"
	rowB := validRow()
	rowB["retrieved_at"] = "2026-08-30"

	a, err := NormalizeRow(schema, rowA)
	require.NoError(t, err)
	b, err := NormalizeRow(schema, rowB)
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint, b.Fingerprint)
}

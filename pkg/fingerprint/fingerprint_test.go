package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/aster/pkg/models"
)

func record() *models.CatalogRecord {
	sigma := 0.12
	quality := 1
	return &models.CatalogRecord{
		Survey:         "gaia_dr3",
		SourceID:       "4472832130942575872",
		RA:             266.41683,
		Dec:            -29.00781,
		PosUncertainty: &sigma,
		QualityFlag:    &quality,
		Attributes: map[string]any{
			"phot_g_mean_mag": 17.2,
			"parallax":        0.164,
		},
	}
}

func TestRecordDeterministic(t *testing.T) {
	a := Record(record(), nil)
	b := Record(record(), nil)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestRecordSensitiveToPayload(t *testing.T) {
	base := Record(record(), nil)

	moved := record()
	moved.RA += 1e-7
	assert.NotEqual(t, base, Record(moved, nil))

	changed := record()
	changed.Attributes["phot_g_mean_mag"] = 17.3
	assert.NotEqual(t, base, Record(changed, nil))
}

func TestRecordExclusions(t *testing.T) {
	a := record()
	a.Attributes["retrieved_at"] = "2026-08-29T10:00:00Z"
	b := record()
	b.Attributes["retrieved_at"] = "2026-08-30T10:00:00Z"

	exclude := map[string]bool{"retrieved_at": true}
	assert.Equal(t, Record(a, exclude), Record(b, exclude))
	assert.NotEqual(t, Record(a, nil), Record(b, nil))
}

func TestGenerateKeyOrderIndependent(t *testing.T) {
	a := Generate(map[string]any{"x": 1.0, "y": "two", "z": []any{1.0, 2.0}})
	b := Generate(map[string]any{"z": []any{1.0, 2.0}, "y": "two", "x": 1.0})
	assert.Equal(t, a, b)
}

func TestGenerateNestedMaps(t *testing.T) {
	a := Generate(map[string]any{"outer": map[string]any{"a": 1.0, "b": 2.0}})
	b := Generate(map[string]any{"outer": map[string]any{"b": 2.0, "a": 1.0}})
	c := Generate(map[string]any{"outer": map[string]any{"b": 3.0, "a": 1.0}})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestHasChanged(t *testing.T) {
	assert.False(t, HasChanged("abc", "abc"))
	assert.True(t, HasChanged("abc", "abd"))
}

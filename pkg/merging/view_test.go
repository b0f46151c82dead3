package merging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/aster/pkg/models"
)

func objectWith(records ...models.CatalogRecord) *models.CelestialObject {
	obj := &models.CelestialObject{
		ID:            "obj1",
		Contributions: map[string]models.Contribution{},
	}
	for _, rec := range records {
		obj.Contributions[rec.Survey] = models.Contribution{Record: rec}
	}
	return obj
}

func TestBuildViewPriorityWins(t *testing.T) {
	obj := objectWith(
		models.CatalogRecord{Survey: "gaia_dr3", Attributes: map[string]any{"parallax": 12.5}},
		models.CatalogRecord{Survey: "twomass", Attributes: map[string]any{"parallax": 11.0, "j_mag": 14.2}},
	)

	view := BuildView(obj, []models.SurveyPriority{
		{Survey: "gaia_dr3", Priority: 10},
		{Survey: "twomass", Priority: 5},
	})

	require.Contains(t, view.Attributes, "parallax")
	assert.Equal(t, 12.5, view.Attributes["parallax"].Value)
	assert.Equal(t, "gaia_dr3", view.Attributes["parallax"].Survey)

	// losing value preserved with its provenance
	assert.Equal(t, 11.0, view.Attributes["parallax"].Conflicting["twomass"])

	// unique attributes pass through regardless of priority
	assert.Equal(t, 14.2, view.Attributes["j_mag"].Value)
	assert.Equal(t, "twomass", view.Attributes["j_mag"].Survey)
}

func TestBuildViewEqualPriorityBreaksBySurveyName(t *testing.T) {
	obj := objectWith(
		models.CatalogRecord{Survey: "bbb", Attributes: map[string]any{"mag": 2.0}},
		models.CatalogRecord{Survey: "aaa", Attributes: map[string]any{"mag": 1.0}},
	)

	view := BuildView(obj, nil)
	assert.Equal(t, 1.0, view.Attributes["mag"].Value)
	assert.Equal(t, "aaa", view.Attributes["mag"].Survey)
	assert.Equal(t, 2.0, view.Attributes["mag"].Conflicting["bbb"])
}

func TestBuildViewAgreeingValuesDoNotConflict(t *testing.T) {
	obj := objectWith(
		models.CatalogRecord{Survey: "gaia_dr3", Attributes: map[string]any{"class": "star"}},
		models.CatalogRecord{Survey: "twomass", Attributes: map[string]any{"class": "star"}},
	)

	view := BuildView(obj, nil)
	assert.Equal(t, "star", view.Attributes["class"].Value)
	assert.Empty(t, view.Attributes["class"].Conflicting)
}

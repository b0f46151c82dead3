package merging

import (
	"reflect"
	"sort"

	"github.com/Ramsey-B/aster/pkg/models"
)

// BuildView flattens an object's per-survey attribute bags into a single
// map. Higher survey priority wins per attribute; equal priorities break
// by survey name, so the view is deterministic. Losing values are kept
// under Conflicting, per survey.
func BuildView(obj *models.CelestialObject, priorities []models.SurveyPriority) *models.ObjectView {
	surveys := obj.Surveys()
	sort.SliceStable(surveys, func(i, j int) bool {
		pi := models.PriorityFor(priorities, surveys[i])
		pj := models.PriorityFor(priorities, surveys[j])
		if pi != pj {
			return pi > pj
		}
		return surveys[i] < surveys[j]
	})

	attrs := make(map[string]models.AttributeValue)
	for _, survey := range surveys {
		for name, value := range obj.Contributions[survey].Record.Attributes {
			existing, ok := attrs[name]
			if !ok {
				attrs[name] = models.AttributeValue{Value: value, Survey: survey}
				continue
			}
			if reflect.DeepEqual(existing.Value, value) {
				continue
			}
			if existing.Conflicting == nil {
				existing.Conflicting = make(map[string]any)
			}
			existing.Conflicting[survey] = value
			attrs[name] = existing
		}
	}

	return &models.ObjectView{Object: obj, Attributes: attrs}
}

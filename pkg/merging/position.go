package merging

import (
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/sky"
)

// ReferencePosition recomputes an object's position from its
// contributions: the weighted mean of contribution unit vectors with
// weight 1/sigma^2. When any contribution lacks an uncertainty the mean
// falls back to unweighted, so one missing sigma cannot dominate.
func ReferencePosition(contributions map[string]models.Contribution) (ra, dec float64) {
	if len(contributions) == 0 {
		return 0, 0
	}

	weighted := true
	for _, c := range contributions {
		if c.Record.PosUncertainty == nil {
			weighted = false
			break
		}
	}

	var sum sky.Vec3
	for _, c := range contributions {
		w := 1.0
		if weighted {
			sigma := *c.Record.PosUncertainty
			w = 1.0 / (sigma * sigma)
		}
		sum = sum.Add(sky.Vector(c.Record.RA, c.Record.Dec).Scale(w))
	}

	return sum.Coords()
}

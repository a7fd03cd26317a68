package canonical

import (
	"github.com/cointoolbox/resspect/internal/domain"
)

// SNPCCObjects describes SNPCC light curves by redshift and peak magnitude
// in every filter. Light curves without a valid magnitude in one of the
// filters are left out and returned as skipped.
func SNPCCObjects(curves []*domain.LightCurve, filters []string) (objects []Object, skipped []string) {
	for _, lc := range curves {
		chars := make([]float64, 0, len(filters)+1)
		chars = append(chars, lc.Redshift)
		complete := true
		for _, f := range filters {
			peak, ok := lc.PeakMag(f)
			if !ok {
				complete = false
				break
			}
			chars = append(chars, peak)
		}
		if !complete {
			skipped = append(skipped, lc.ID)
			continue
		}
		objects = append(objects, Object{
			ID:              lc.ID,
			SNType:          lc.SNType,
			Spectroscopic:   lc.Sample == domain.SampleTrain,
			Characteristics: chars,
		})
	}
	return objects, skipped
}

package fitting

import (
	"errors"
	"fmt"
	"math"

	"github.com/cointoolbox/resspect/internal/domain"
	"github.com/cointoolbox/resspect/internal/domain/bazin"
)

// ErrFilterNotFitted is returned when one of the requested filters cannot
// be fitted; the object is left out of the feature table.
var ErrFilterNotFitted = errors.New("filter could not be fitted")

// FilterFit is the fit of one filter.
type FilterFit struct {
	Filter string
	bazin.Result
}

// ObjectFit holds the per-filter fits of one light curve, in filter order.
type ObjectFit struct {
	LightCurve *domain.LightCurve
	Fits       []FilterFit
}

// Features flattens the fitted parameters in filter order.
func (o ObjectFit) Features() []float64 {
	out := make([]float64, 0, len(o.Fits)*bazin.NumParams)
	for _, f := range o.Fits {
		out = append(out, f.Params.Slice()...)
	}
	return out
}

// Fit returns the fit for filter f.
func (o ObjectFit) Fit(f string) (FilterFit, bool) {
	for _, fit := range o.Fits {
		if fit.Filter == f {
			return fit, true
		}
	}
	return FilterFit{}, false
}

// FitObject fits every filter of lc. All filters must succeed.
func FitObject(fitter bazin.Fitter, lc *domain.LightCurve, filters []string) (ObjectFit, error) {
	if err := lc.Validate(); err != nil {
		return ObjectFit{}, err
	}

	out := ObjectFit{LightCurve: lc, Fits: make([]FilterFit, 0, len(filters))}
	for _, f := range filters {
		obs := lc.ByFilter(f)
		times := make([]float64, len(obs))
		fluxes := make([]float64, len(obs))
		errs := make([]float64, len(obs))
		for i, o := range obs {
			times[i] = o.MJD
			fluxes[i] = o.Flux
			errs[i] = o.FluxErr
		}

		res, err := fitter.Fit(times, fluxes, errs)
		if err != nil {
			return ObjectFit{}, fmt.Errorf("%w: object %s filter %s: %w", ErrFilterNotFitted, lc.ID, f, err)
		}
		out.Fits = append(out.Fits, FilterFit{Filter: f, Result: res})
	}
	return out, nil
}

// Row converts the fit into a feature table row.
func (o ObjectFit) Row() domain.FeatureRow {
	lc := o.LightCurve
	return domain.FeatureRow{
		ID:         lc.ID,
		Redshift:   lc.Redshift,
		SNType:     lc.SNType,
		SNCode:     lc.SNCode,
		OrigSample: lc.Sample,
		Queryable:  true,
		LastRMag:   math.NaN(),
		Features:   o.Features(),
	}
}

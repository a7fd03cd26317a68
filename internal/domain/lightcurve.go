package domain

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
)

// Observation is a single photometric measurement.
type Observation struct {
	MJD     float64
	Filter  string
	Flux    float64
	FluxErr float64
	SNR     float64
	Mag     float64
	MagErr  float64
}

// Sample labels used in raw data and feature files.
const (
	SampleTrain     = "train"
	SampleTest      = "test"
	SampleQueryable = "queryable"
)

// LightCurve is the multi-band photometry of one transient together with
// its metadata.
type LightCurve struct {
	ID         string
	Redshift   float64
	SNType     string
	SNCode     int
	Sample     string
	Photometry []Observation
}

// Validate checks that the light curve can be processed.
func (lc *LightCurve) Validate() error {
	if lc.ID == "" {
		return ErrEmptyID
	}
	if len(lc.Photometry) == 0 {
		return fmt.Errorf("%w: %s", ErrNoPhotometry, lc.ID)
	}
	return nil
}

// IsIa reports whether the light curve is a type Ia supernova.
func (lc *LightCurve) IsIa() bool {
	return lc.SNType == TypeIa
}

// ByFilter returns the observations in filter f sorted by MJD.
func (lc *LightCurve) ByFilter(f string) []Observation {
	var out []Observation
	for _, obs := range lc.Photometry {
		if obs.Filter == f {
			out = append(out, obs)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MJD < out[j].MJD })
	return out
}

// Filters returns the distinct filters present, in first-seen order.
func (lc *LightCurve) Filters() []string {
	seen := make(map[string]bool)
	var out []string
	for _, obs := range lc.Photometry {
		if !seen[obs.Filter] {
			seen[obs.Filter] = true
			out = append(out, obs.Filter)
		}
	}
	return out
}

// Truncate returns a copy holding only observations taken up to and
// including mjd.
func (lc *LightCurve) Truncate(mjd float64) *LightCurve {
	cp := *lc
	cp.Photometry = nil
	for _, obs := range lc.Photometry {
		if obs.MJD <= mjd {
			cp.Photometry = append(cp.Photometry, obs)
		}
	}
	return &cp
}

// FirstMJD returns the earliest observation date, or NaN without photometry.
func (lc *LightCurve) FirstMJD() float64 {
	if len(lc.Photometry) == 0 {
		return math.NaN()
	}
	first := lc.Photometry[0].MJD
	for _, obs := range lc.Photometry[1:] {
		first = math.Min(first, obs.MJD)
	}
	return first
}

// LastMJD returns the latest observation date, or NaN without photometry.
func (lc *LightCurve) LastMJD() float64 {
	if len(lc.Photometry) == 0 {
		return math.NaN()
	}
	last := lc.Photometry[0].MJD
	for _, obs := range lc.Photometry[1:] {
		last = math.Max(last, obs.MJD)
	}
	return last
}

// PeakMag returns the brightest valid magnitude observed in filter f.
// Magnitudes of 99 and above mark non-detections and are ignored.
func (lc *LightCurve) PeakMag(f string) (float64, bool) {
	peak := math.Inf(1)
	for _, obs := range lc.Photometry {
		if obs.Filter != f || obs.Mag <= 0 || obs.Mag >= 99 || math.IsNaN(obs.Mag) {
			continue
		}
		peak = math.Min(peak, obs.Mag)
	}
	return peak, !math.IsInf(peak, 1)
}

// PeakFlux returns the largest flux observed in filter f.
func (lc *LightCurve) PeakFlux(f string) (float64, bool) {
	peak := math.Inf(-1)
	for _, obs := range lc.Photometry {
		if obs.Filter == f {
			peak = math.Max(peak, obs.Flux)
		}
	}
	return peak, !math.IsInf(peak, -1)
}

// FluxToMag converts a calibrated flux to an AB magnitude with the given
// zero point. Non-positive fluxes have no magnitude.
func FluxToMag(flux, zeroPoint float64) (float64, bool) {
	if flux <= 0 {
		return math.NaN(), false
	}
	return zeroPoint - 2.5*math.Log10(flux), true
}

// CompareIDs orders object identifiers numerically when both parse as
// integers and lexically otherwise.
func CompareIDs(a, b string) int {
	ai, errA := strconv.ParseInt(a, 10, 64)
	bi, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// SortIDs orders ids in place with CompareIDs.
func SortIDs(ids []string) {
	slices.SortFunc(ids, CompareIDs)
}

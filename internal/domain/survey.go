package domain

import (
	"fmt"
	"strings"
)

// Survey identifies the simulated data set a light curve comes from.
type Survey string

// Supported surveys.
const (
	SurveySNPCC    Survey = "SNPCC"
	SurveyPLAsTiCC Survey = "PLAsTiCC"
)

// SNPCCFirstMJD is the first night of the SNPCC simulation; survey days are
// counted from it.
const SNPCCFirstMJD = 56171.0

// PLAsTiCCFirstMJD is the first night of the PLAsTiCC simulation.
const PLAsTiCCFirstMJD = 59580.0

// ParseSurvey accepts survey names case-insensitively.
func ParseSurvey(name string) (Survey, error) {
	switch strings.ToUpper(name) {
	case "SNPCC", "DES":
		return SurveySNPCC, nil
	case "PLASTICC", "LSST":
		return SurveyPLAsTiCC, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSurvey, name)
	}
}

// Filters returns the passbands of the survey in wavelength order.
func (s Survey) Filters() []string {
	switch s {
	case SurveyPLAsTiCC:
		return []string{"u", "g", "r", "i", "z", "Y"}
	default:
		return []string{"g", "r", "i", "z"}
	}
}

// FirstMJD returns the MJD of survey day zero.
func (s Survey) FirstMJD() float64 {
	if s == SurveyPLAsTiCC {
		return PLAsTiCCFirstMJD
	}
	return SNPCCFirstMJD
}

// Type labels shared by both surveys.
const (
	TypeIa    = "Ia"
	TypeII    = "II"
	TypeIbc   = "Ibc"
	TypeOther = "other"
)

var snpccII = map[int]bool{
	2: true, 3: true, 4: true, 12: true, 15: true, 17: true, 19: true, 20: true,
	21: true, 24: true, 25: true, 26: true, 27: true, 30: true, 31: true, 32: true,
	33: true, 34: true, 35: true, 36: true, 37: true, 38: true, 39: true, 40: true,
	41: true, 42: true, 43: true, 44: true,
}

var snpccIbc = map[int]bool{
	1: true, 5: true, 6: true, 7: true, 8: true, 9: true, 10: true, 11: true,
	13: true, 14: true, 16: true, 18: true, 22: true, 23: true, 28: true, 29: true,
	45: true,
}

// SNPCCType maps an SNPCC SIM_NON1a code to its type label.
func SNPCCType(code int) string {
	switch {
	case code == 0:
		return TypeIa
	case snpccII[code]:
		return TypeII
	case snpccIbc[code]:
		return TypeIbc
	default:
		return TypeOther
	}
}

var plasticcTypes = map[int]string{
	90:  TypeIa,
	67:  "91bg",
	52:  "Iax",
	42:  TypeII,
	62:  TypeIbc,
	95:  "SLSN",
	15:  "TDE",
	64:  "KN",
	88:  "AGN",
	92:  "RRL",
	65:  "M-dwarf",
	16:  "EB",
	53:  "Mira",
	6:   "muLens-Single",
	991: "muLens-Binary",
	992: "ILOT",
	993: "CaRT",
	994: "PISN",
}

// PLAsTiCCType maps a PLAsTiCC true_target code to its type label.
func PLAsTiCCType(code int) string {
	if label, ok := plasticcTypes[code]; ok {
		return label
	}
	return TypeOther
}

// PLAsTiCCPassband maps the numeric passband column to a filter name.
func PLAsTiCCPassband(band int) (string, error) {
	filters := SurveyPLAsTiCC.Filters()
	if band < 0 || band >= len(filters) {
		return "", fmt.Errorf("%w: passband %d", ErrUnknownFilter, band)
	}
	return filters[band], nil
}

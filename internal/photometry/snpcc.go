package photometry

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cointoolbox/resspect/internal/domain"
)

// snpccNonDetection is the magnitude SNPCC files report when a point has no
// measured magnitude.
const snpccNonDetection = 99.0

// ParseSNPCC reads one SNPCC .DAT light curve.
//
// Header keys SNID, SNTYPE, SIM_NON1a and REDSHIFT_FINAL are required.
// SNTYPE -9 marks objects without spectroscopic classification, which form
// the test sample; every other value is a spectroscopically confirmed
// training object. The true type comes from the SIM_NON1a code.
func ParseSNPCC(r io.Reader) (*domain.LightCurve, error) {
	lc := &domain.LightCurve{Redshift: -1}
	var haveType, haveCode bool
	cols := map[string]int{"MJD": 0, "FLT": 1, "FLUXCAL": 3, "FLUXCALERR": 4, "SNR": 5, "MAG": 6, "MAGERR": 7}

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		switch fields[0] {
		case "SNID:":
			lc.ID = fields[1]
		case "SNTYPE:":
			v, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: SNTYPE %q", domain.ErrInvalidFormat, line, fields[1])
			}
			haveType = true
			if v == -9 {
				lc.Sample = domain.SampleTest
			} else {
				lc.Sample = domain.SampleTrain
			}
		case "SIM_NON1a:":
			v, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: SIM_NON1a %q", domain.ErrInvalidFormat, line, fields[1])
			}
			haveCode = true
			lc.SNCode = v
			lc.SNType = domain.SNPCCType(v)
		case "REDSHIFT_FINAL:":
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: REDSHIFT_FINAL %q", domain.ErrInvalidFormat, line, fields[1])
			}
			lc.Redshift = v
		case "VARLIST:":
			cols = make(map[string]int, len(fields)-1)
			for i, name := range fields[1:] {
				cols[name] = i
			}
		case "OBS:":
			obs, err := parseSNPCCObs(fields[1:], cols)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			lc.Photometry = append(lc.Photometry, obs)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if !haveType || !haveCode {
		return nil, fmt.Errorf("%w: missing SNTYPE or SIM_NON1a header", domain.ErrInvalidFormat)
	}
	if err := lc.Validate(); err != nil {
		return nil, err
	}
	return lc, nil
}

func parseSNPCCObs(fields []string, cols map[string]int) (domain.Observation, error) {
	get := func(name string) (string, error) {
		i, ok := cols[name]
		if !ok || i >= len(fields) {
			return "", fmt.Errorf("%w: missing %s", domain.ErrInvalidFormat, name)
		}
		return fields[i], nil
	}
	num := func(name string) (float64, error) {
		s, err := get(name)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s %q", domain.ErrInvalidFormat, name, s)
		}
		return v, nil
	}

	var obs domain.Observation
	var err error
	if obs.MJD, err = num("MJD"); err != nil {
		return obs, err
	}
	if obs.Filter, err = get("FLT"); err != nil {
		return obs, err
	}
	if obs.Flux, err = num("FLUXCAL"); err != nil {
		return obs, err
	}
	if obs.FluxErr, err = num("FLUXCALERR"); err != nil {
		return obs, err
	}
	// SNR, MAG and MAGERR are optional in trimmed files.
	if v, err := num("SNR"); err == nil {
		obs.SNR = v
	}
	obs.Mag = snpccNonDetection
	if v, err := num("MAG"); err == nil {
		obs.Mag = v
	}
	if v, err := num("MAGERR"); err == nil {
		obs.MagErr = v
	}
	return obs, nil
}

// ReadSNPCCFile parses the .DAT file at path.
func ReadSNPCCFile(path string) (*domain.LightCurve, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	lc, err := ParseSNPCC(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return lc, nil
}

// ListSNPCC returns the .DAT files in dir, sorted by name.
func ListSNPCC(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".dat") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadSNPCCDir parses every .DAT file in dir.
func ReadSNPCCDir(dir string) ([]*domain.LightCurve, error) {
	paths, err := ListSNPCC(dir)
	if err != nil {
		return nil, err
	}
	curves := make([]*domain.LightCurve, 0, len(paths))
	for _, p := range paths {
		lc, err := ReadSNPCCFile(p)
		if err != nil {
			return nil, err
		}
		curves = append(curves, lc)
	}
	return curves, nil
}

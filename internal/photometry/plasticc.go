package photometry

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cointoolbox/resspect/internal/domain"
)

// PLAsTiCCZeroPoint converts PLAsTiCC fluxes to magnitudes.
const PLAsTiCCZeroPoint = 27.5

// Metadata describes one PLAsTiCC object.
type Metadata struct {
	ID       string
	Target   int
	Redshift float64
	DDF      bool
}

// SNType returns the type label of the object's true target.
func (m Metadata) SNType() string {
	return domain.PLAsTiCCType(m.Target)
}

// openMaybeGzip opens path, transparently decompressing .gz files.
func openMaybeGzip(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return struct {
		io.Reader
		io.Closer
	}{gz, closers{gz, f}}, nil
}

type closers []io.Closer

func (c closers) Close() error {
	var errs []error
	for _, cl := range c {
		errs = append(errs, cl.Close())
	}
	return errors.Join(errs...)
}

// csvColumns maps header names to positions. For every wanted column the
// first alias present wins.
func csvColumns(header []string, wanted map[string][]string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(h)] = i
	}
	out := make(map[string]int, len(wanted))
	for name, aliases := range wanted {
		found := false
		for _, a := range aliases {
			if i, ok := pos[a]; ok {
				out[name] = i
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: missing column %s", domain.ErrInvalidFormat, aliases[0])
		}
	}
	return out, nil
}

// ReadMetadata parses a PLAsTiCC metadata CSV. Objects keep file order.
func ReadMetadata(r io.Reader) ([]Metadata, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading metadata header: %w", err)
	}
	cols, err := csvColumns(header, map[string][]string{
		"id":       {"object_id", "SNID"},
		"target":   {"true_target", "target"},
		"redshift": {"true_z", "hostgal_photoz"},
		"ddf":      {"ddf_bool", "ddf"},
	})
	if err != nil {
		return nil, err
	}

	var out []Metadata
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		target, err := strconv.Atoi(strings.TrimSpace(rec[cols["target"]]))
		if err != nil {
			return nil, fmt.Errorf("%w: target %q", domain.ErrInvalidFormat, rec[cols["target"]])
		}
		z, err := strconv.ParseFloat(strings.TrimSpace(rec[cols["redshift"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: redshift %q", domain.ErrInvalidFormat, rec[cols["redshift"]])
		}
		ddf, err := parseFlag(rec[cols["ddf"]])
		if err != nil {
			return nil, err
		}
		out = append(out, Metadata{
			ID:       strings.TrimSpace(rec[cols["id"]]),
			Target:   target,
			Redshift: z,
			DDF:      ddf,
		})
	}
	return out, nil
}

// ReadMetadataFile parses the metadata file at path (optionally gzipped).
func ReadMetadataFile(path string) ([]Metadata, error) {
	f, err := openMaybeGzip(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadMetadata(f)
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t":
		return true, nil
	case "0", "false", "f", "":
		return false, nil
	}
	return false, fmt.Errorf("%w: flag %q", domain.ErrInvalidFormat, s)
}

// ReadPLAsTiCC groups the rows of a PLAsTiCC photometry CSV into light
// curves. Objects missing from meta are skipped. sample is assigned to
// every returned light curve.
func ReadPLAsTiCC(r io.Reader, meta map[string]Metadata, sample string) ([]*domain.LightCurve, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading photometry header: %w", err)
	}
	cols, err := csvColumns(header, map[string][]string{
		"id":       {"object_id", "SNID"},
		"mjd":      {"mjd", "MJD"},
		"passband": {"passband"},
		"flux":     {"flux", "FLUXCAL"},
		"flux_err": {"flux_err", "FLUXCALERR"},
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.LightCurve)
	var order []string
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++

		id := strings.TrimSpace(rec[cols["id"]])
		m, ok := meta[id]
		if !ok {
			continue
		}
		obs, err := parsePLAsTiCCObs(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		lc, ok := byID[id]
		if !ok {
			lc = &domain.LightCurve{
				ID:       id,
				Redshift: m.Redshift,
				SNType:   m.SNType(),
				SNCode:   m.Target,
				Sample:   sample,
			}
			byID[id] = lc
			order = append(order, id)
		}
		lc.Photometry = append(lc.Photometry, obs)
	}

	out := make([]*domain.LightCurve, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out, nil
}

func parsePLAsTiCCObs(rec []string, cols map[string]int) (domain.Observation, error) {
	var vals [4]float64
	for i, name := range []string{"mjd", "passband", "flux", "flux_err"} {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[cols[name]]), 64)
		if err != nil {
			return domain.Observation{}, fmt.Errorf("%w: %s %q", domain.ErrInvalidFormat, name, rec[cols[name]])
		}
		vals[i] = v
	}
	filter, err := domain.PLAsTiCCPassband(int(vals[1]))
	if err != nil {
		return domain.Observation{}, err
	}

	obs := domain.Observation{
		MJD:     vals[0],
		Filter:  filter,
		Flux:    vals[2],
		FluxErr: vals[3],
		Mag:     snpccNonDetection,
	}
	if obs.FluxErr > 0 {
		obs.SNR = obs.Flux / obs.FluxErr
	}
	if mag, ok := domain.FluxToMag(obs.Flux, PLAsTiCCZeroPoint); ok {
		obs.Mag = mag
		obs.MagErr = 2.5 / math.Ln10 * obs.FluxErr / obs.Flux
	}
	return obs, nil
}

// ReadPLAsTiCCFile parses the photometry file at path (optionally gzipped).
func ReadPLAsTiCCFile(path string, meta map[string]Metadata, sample string) ([]*domain.LightCurve, error) {
	f, err := openMaybeGzip(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadPLAsTiCC(f, meta, sample)
}

// MetadataIndex keys metadata by object ID.
func MetadataIndex(meta []Metadata) map[string]Metadata {
	idx := make(map[string]Metadata, len(meta))
	for _, m := range meta {
		idx[m.ID] = m
	}
	return idx
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/cointoolbox/resspect/internal/domain"
	"github.com/cointoolbox/resspect/internal/photometry"
	"github.com/cointoolbox/resspect/internal/platform/logger"
	"github.com/cointoolbox/resspect/internal/snanafits"
)

// Photometry formats.
const (
	FormatNative = "native"
	FormatSNANA  = "snana"
)

// ErrIncompleteSource is returned when a Source lacks the paths its survey
// and format need.
var ErrIncompleteSource = errors.New("incomplete data source")

// Source locates the light curves of a survey.
//
// Native SNPCC data is a directory of .DAT files. Native PLAsTiCC data is
// a metadata CSV plus photometry CSVs, split into training and test files.
// SNANA data is a list of HEAD FITS files whose PHOT files sit next to them.
type Source struct {
	Survey string `yaml:"survey" validate:"required,oneof=SNPCC PLAsTiCC"`
	Format string `yaml:"format,omitempty" validate:"omitempty,oneof=native snana"`

	RawDir string `yaml:"raw_dir,omitempty"`

	Metadata        string   `yaml:"metadata,omitempty"`
	TrainPhotometry []string `yaml:"train_photometry,omitempty" validate:"omitempty,dive,required"`
	Photometry      []string `yaml:"photometry,omitempty" validate:"omitempty,dive,required"`

	TrainHeads []string `yaml:"train_heads,omitempty" validate:"omitempty,dive,required"`
	Heads      []string `yaml:"heads,omitempty" validate:"omitempty,dive,required"`

	// Filters defaults to every filter of the survey.
	Filters []string `yaml:"filters,omitempty" validate:"omitempty,dive,required"`
}

// Dataset is a loaded Source.
type Dataset struct {
	Survey  domain.Survey
	Filters []string
	Curves  []*domain.LightCurve
	// Metadata is indexed by object ID; empty for native SNPCC data.
	Metadata map[string]photometry.Metadata
}

// SurveyFilters returns the configured filters or the survey defaults.
func (s Source) SurveyFilters() ([]string, error) {
	survey, err := domain.ParseSurvey(s.Survey)
	if err != nil {
		return nil, err
	}
	if len(s.Filters) > 0 {
		return s.Filters, nil
	}
	return survey.Filters(), nil
}

// Load reads every light curve of the source.
func (s Source) Load(ctx context.Context) (*Dataset, error) {
	survey, err := domain.ParseSurvey(s.Survey)
	if err != nil {
		return nil, err
	}
	filters, err := s.SurveyFilters()
	if err != nil {
		return nil, err
	}
	ds := &Dataset{Survey: survey, Filters: filters, Metadata: map[string]photometry.Metadata{}}

	switch {
	case s.Format == FormatSNANA:
		err = s.loadSNANA(ds)
	case survey == domain.SurveySNPCC:
		err = s.loadSNPCC(ds)
	default:
		err = s.loadPLAsTiCC(ds)
	}
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("light curves loaded",
		"survey", survey,
		"format", s.formatName(),
		"objects", len(ds.Curves))
	return ds, nil
}

func (s Source) formatName() string {
	if s.Format == "" {
		return FormatNative
	}
	return s.Format
}

func (s Source) loadSNPCC(ds *Dataset) error {
	if s.RawDir == "" {
		return fmt.Errorf("%w: SNPCC data needs raw_dir", ErrIncompleteSource)
	}
	curves, err := photometry.ReadSNPCCDir(s.RawDir)
	if err != nil {
		return fmt.Errorf("reading SNPCC light curves: %w", err)
	}
	ds.Curves = curves
	return nil
}

func (s Source) loadPLAsTiCC(ds *Dataset) error {
	if s.Metadata == "" || len(s.TrainPhotometry)+len(s.Photometry) == 0 {
		return fmt.Errorf("%w: PLAsTiCC data needs metadata and photometry files", ErrIncompleteSource)
	}
	meta, err := photometry.ReadMetadataFile(s.Metadata)
	if err != nil {
		return fmt.Errorf("reading PLAsTiCC metadata: %w", err)
	}
	ds.Metadata = photometry.MetadataIndex(meta)

	read := func(paths []string, sample string) error {
		for _, p := range paths {
			curves, err := photometry.ReadPLAsTiCCFile(p, ds.Metadata, sample)
			if err != nil {
				return fmt.Errorf("reading PLAsTiCC photometry: %w", err)
			}
			ds.Curves = append(ds.Curves, curves...)
		}
		return nil
	}
	if err := read(s.TrainPhotometry, domain.SampleTrain); err != nil {
		return err
	}
	return read(s.Photometry, domain.SampleTest)
}

func (s Source) loadSNANA(ds *Dataset) error {
	if len(s.TrainHeads)+len(s.Heads) == 0 {
		return fmt.Errorf("%w: SNANA data needs HEAD files", ErrIncompleteSource)
	}
	read := func(heads []string, sample string) error {
		for _, head := range heads {
			curves, meta, err := snanafits.ReadFiles(head, snanafits.PhotPath(head), snanafits.Options{Sample: sample})
			if err != nil {
				return fmt.Errorf("reading SNANA files: %w", err)
			}
			ds.Curves = append(ds.Curves, curves...)
			maps.Copy(ds.Metadata, photometry.MetadataIndex(meta))
		}
		return nil
	}
	if err := read(s.TrainHeads, domain.SampleTrain); err != nil {
		return err
	}
	return read(s.Heads, domain.SampleTest)
}

// Package exposure estimates spectroscopic exposure times from the CCD
// signal-to-noise equation. Source and sky photons are counted over one
// resolution element of width wavelength/Resolution rather than the whole
// passband; a zero Resolution gives broadband imaging times.
package exposure

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// Errors returned by the calculator.
var (
	ErrUnknownBand = errors.New("unknown band")
	ErrInvalidSNR  = errors.New("signal-to-noise ratio must be positive")
	ErrInvalidTime = errors.New("exposure time must be positive")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// abPhotonRate is the photon rate of a zero magnitude AB source per square
// metre and per unit fractional bandwidth (photons / s / m^2).
const abPhotonRate = 5.48e10

// Band describes a passband and its sky background.
type Band struct {
	// Wavelength and Width are in nanometres.
	Wavelength float64 `validate:"gt=0"`
	Width      float64 `validate:"gt=0"`
	// SkyMag is the sky brightness in mag/arcsec^2.
	SkyMag float64 `validate:"gt=0"`
}

// DefaultResolution is a low resolution classification spectrograph.
const DefaultResolution = 300

// zeroPointRate returns photons / s / m^2 of a zero magnitude source over
// width nanometres centred on the band.
func (b Band) zeroPointRate(width float64) float64 {
	return abPhotonRate * width / b.Wavelength
}

// DefaultBands are dark-sky LSST-like passbands.
func DefaultBands() map[string]Band {
	return map[string]Band{
		"u": {Wavelength: 367, Width: 68, SkyMag: 22.99},
		"g": {Wavelength: 482, Width: 141, SkyMag: 22.26},
		"r": {Wavelength: 622, Width: 140, SkyMag: 21.20},
		"i": {Wavelength: 755, Width: 151, SkyMag: 20.48},
		"z": {Wavelength: 869, Width: 114, SkyMag: 19.60},
		"Y": {Wavelength: 971, Width: 91, SkyMag: 18.61},
	}
}

// ExpTimeCalc holds the instrument description.
type ExpTimeCalc struct {
	// Diameter of the primary mirror in metres.
	Diameter float64 `validate:"gt=0"`
	// Throughput is the end-to-end efficiency in (0, 1].
	Throughput float64 `validate:"gt=0,lte=1"`
	// ReadNoise in electrons per pixel.
	ReadNoise float64 `validate:"gte=0"`
	// DarkCurrent in electrons per second per pixel.
	DarkCurrent float64 `validate:"gte=0"`
	// PixelScale in arcsec per pixel.
	PixelScale float64 `validate:"gt=0"`
	// Seeing FWHM in arcsec; the extraction aperture has this diameter.
	Seeing float64 `validate:"gt=0"`
	// Resolution is the spectral resolving power lambda/dlambda.
	Resolution float64         `validate:"gte=0"`
	Bands      map[string]Band `validate:"required,min=1,dive"`
}

// New returns a calculator for a telescope of the given diameter with
// typical spectrograph settings.
func New(diameter float64) *ExpTimeCalc {
	return &ExpTimeCalc{
		Diameter:    diameter,
		Throughput:  0.25,
		ReadNoise:   4,
		DarkCurrent: 0.002,
		PixelScale:  0.25,
		Seeing:      1.0,
		Resolution:  DefaultResolution,
		Bands:       DefaultBands(),
	}
}

// Validate checks the instrument description.
func (c *ExpTimeCalc) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid exposure time calculator: %w", err)
	}
	return nil
}

// rates returns source and per-pixel background electron rates and the
// number of pixels in the aperture.
func (c *ExpTimeCalc) rates(mag float64, band string) (src, bkg, npix float64, err error) {
	b, ok := c.Bands[band]
	if !ok {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrUnknownBand, band)
	}
	width := b.Width
	if c.Resolution > 0 {
		width = math.Min(width, b.Wavelength/c.Resolution)
	}
	area := math.Pi * c.Diameter * c.Diameter / 4
	collect := b.zeroPointRate(width) * area * c.Throughput

	src = collect * math.Pow(10, -0.4*mag)
	pixArea := c.PixelScale * c.PixelScale
	bkg = collect*math.Pow(10, -0.4*b.SkyMag)*pixArea + c.DarkCurrent
	npix = math.Pi * (c.Seeing / 2) * (c.Seeing / 2) / pixArea
	return src, bkg, npix, nil
}

// SNRFromMag returns the signal-to-noise ratio reached on a source of
// magnitude mag after texp seconds.
func (c *ExpTimeCalc) SNRFromMag(mag, texp float64, band string) (float64, error) {
	if texp <= 0 {
		return 0, fmt.Errorf("%w: %g", ErrInvalidTime, texp)
	}
	src, bkg, npix, err := c.rates(mag, band)
	if err != nil {
		return 0, err
	}
	signal := src * texp
	noise := math.Sqrt(signal + npix*(bkg*texp+c.ReadNoise*c.ReadNoise))
	return signal / noise, nil
}

// FindExposureTime returns the exposure in seconds needed to reach snr on a
// source of magnitude mag.
func (c *ExpTimeCalc) FindExposureTime(mag, snr float64, band string) (float64, error) {
	if snr <= 0 || math.IsNaN(snr) {
		return 0, fmt.Errorf("%w: %g", ErrInvalidSNR, snr)
	}
	src, bkg, npix, err := c.rates(mag, band)
	if err != nil {
		return 0, err
	}
	// src^2 t^2 - snr^2 (src + npix bkg) t - snr^2 npix rn^2 = 0
	s2 := snr * snr
	a := src * src
	b := s2 * (src + npix*bkg)
	cc := s2 * npix * c.ReadNoise * c.ReadNoise
	return (b + math.Sqrt(b*b+4*a*cc)) / (2 * a), nil
}

// Telescope names a calculator used for cost columns.
type Telescope struct {
	Name string
	Calc *ExpTimeCalc
}

// DefaultTelescopes are the 4m and 8m class facilities costs are computed for.
func DefaultTelescopes() []Telescope {
	return []Telescope{
		{Name: "4m", Calc: New(4)},
		{Name: "8m", Calc: New(8)},
	}
}

// DefaultSNR is the target signal-to-noise of a classification spectrum.
const DefaultSNR = 10

// Costs returns the exposure time per telescope for a source of magnitude
// mag. Unknown or non-finite magnitudes cost NaN.
func Costs(telescopes []Telescope, mag, snr float64, band string) (map[string]float64, error) {
	out := make(map[string]float64, len(telescopes))
	for _, tel := range telescopes {
		if math.IsNaN(mag) || math.IsInf(mag, 0) {
			out[tel.Name] = math.NaN()
			continue
		}
		t, err := tel.Calc.FindExposureTime(mag, snr, band)
		if err != nil {
			return nil, fmt.Errorf("telescope %s: %w", tel.Name, err)
		}
		out[tel.Name] = t
	}
	return out, nil
}

// Names returns the telescope names in order.
func Names(telescopes []Telescope) []string {
	names := make([]string, len(telescopes))
	for i, tel := range telescopes {
		names[i] = tel.Name
	}
	return names
}

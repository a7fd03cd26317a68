// Package plotting draws the classification metrics of one or more learning
// runs as a 2x2 panel, one panel per metric and one line per run.
package plotting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cointoolbox/resspect/internal/database"
	"github.com/cointoolbox/resspect/internal/metrics"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Errors returned by Canvas.
var (
	ErrNoSeries      = errors.New("no metrics loaded")
	ErrLabelMismatch = errors.New("number of labels does not match number of files")
)

// Series is the metric history of one run.
type Series struct {
	Label  string
	Loops  []int
	Values map[string][]float64
}

// Canvas collects series and renders them.
type Canvas struct {
	Width  vg.Length
	Height vg.Length
	series []Series
}

// NewCanvas returns a canvas with a 10x8 inch page.
func NewCanvas() *Canvas {
	return &Canvas{Width: 10 * vg.Inch, Height: 8 * vg.Inch}
}

// SetPlotDimensions sets the page size.
func (c *Canvas) SetPlotDimensions(width, height vg.Length) {
	c.Width, c.Height = width, height
}

// Series returns the loaded series.
func (c *Canvas) Series() []Series {
	return c.series
}

// Load reads metrics files written by the learning loops. labels name the
// runs; when empty, file names without extension are used.
func (c *Canvas) Load(paths, labels []string) error {
	if len(labels) != 0 && len(labels) != len(paths) {
		return fmt.Errorf("%w: %d labels, %d files", ErrLabelMismatch, len(labels), len(paths))
	}
	for i, path := range paths {
		loops, values, err := database.ReadMetrics(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		label := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if len(labels) != 0 {
			label = labels[i]
		}
		c.series = append(c.series, Series{Label: label, Loops: loops, Values: values})
	}
	return nil
}

// panel draws one metric for every series.
func (c *Canvas) panel(metric string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = metric
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = metric
	p.Y.Min, p.Y.Max = 0, 1
	p.Legend.Top = false
	p.Legend.Left = true

	for i, s := range c.series {
		xys := make(plotter.XYs, len(s.Loops))
		for j, loop := range s.Loops {
			xys[j].X = float64(loop)
			xys[j].Y = s.Values[metric][j]
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", s.Label, err)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(s.Label, line)
	}
	p.Add(plotter.NewGrid())
	return p, nil
}

// Plot renders the panels to output. The format follows the file
// extension: png, svg, pdf, eps, jpg or tiff.
func (c *Canvas) Plot(output string) error {
	if len(c.series) == 0 {
		return ErrNoSeries
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), ".")
	img, err := draw.NewFormattedCanvas(c.Width, c.Height, format)
	if err != nil {
		return fmt.Errorf("output %s: %w", output, err)
	}

	names := metrics.Names()
	const rows, cols = 2, 2
	plots := make([][]*plot.Plot, rows)
	for r := range plots {
		plots[r] = make([]*plot.Plot, cols)
		for col := range plots[r] {
			idx := r*cols + col
			if idx >= len(names) {
				continue
			}
			if plots[r][col], err = c.panel(names[idx]); err != nil {
				return err
			}
		}
	}

	tiles := draw.Tiles{
		Rows:      rows,
		Cols:      cols,
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, draw.New(img))
	for r := range plots {
		for col := range plots[r] {
			if plots[r][col] != nil {
				plots[r][col].Draw(canvases[r][col])
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Clean(output))
	if err != nil {
		return err
	}
	if _, err := img.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", output, err)
	}
	return f.Close()
}

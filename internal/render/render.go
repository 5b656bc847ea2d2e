// Package render draws a simulator snapshot with gonum/plot.
package render

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/mlsim/dataset"
	"github.com/YuminosukeSato/mlsim/pkg/errors"
	"github.com/YuminosukeSato/mlsim/simulator"
	"github.com/YuminosukeSato/mlsim/svm"
)

// Default canvas size.
const (
	DefaultWidth  = 6 * vg.Inch
	DefaultHeight = 6 * vg.Inch
)

var (
	unassigned = color.Gray{Y: 150}
	classColor = [2]color.Color{
		color.RGBA{R: 220, G: 50, B: 47, A: 255},
		color.RGBA{R: 38, G: 139, B: 210, A: 255},
	}
)

// Formats lists the accepted output formats.
var Formats = []string{"png", "svg", "pdf"}

// FormatFromPath returns the output format implied by the file extension.
func FormatFromPath(path string) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, f := range Formats {
		if ext == f {
			return f, nil
		}
	}
	return "", errors.NewValueError("render.FormatFromPath", fmt.Sprintf("unsupported extension %q", filepath.Ext(path)))
}

// Build lays out the snapshot as a plot: the dataset as a scatter plus the
// fitted line, the clusters and centroids, or the decision boundary.
func Build(snap simulator.Snapshot) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title(snap)
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Add(plotter.NewGrid())

	var err error
	switch snap.Kind {
	case dataset.Regression:
		err = addRegression(p, snap)
	case dataset.Clustering:
		err = addClustering(p, snap)
	case dataset.SVM:
		err = addSVM(p, snap)
	default:
		err = errors.NewValueError("render.Build", "unknown model kind: "+snap.Kind.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "build plot")
	}
	return p, nil
}

// Write renders the snapshot to w in format ("png", "svg" or "pdf").
func Write(w io.Writer, snap simulator.Snapshot, format string) error {
	p, err := Build(snap)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(DefaultWidth, DefaultHeight, format)
	if err != nil {
		return errors.Wrapf(err, "render %s", format)
	}
	_, err = wt.WriteTo(w)
	return err
}

// SaveFile renders the snapshot to path; the extension selects the format.
func SaveFile(path string, snap simulator.Snapshot) (err error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return Write(f, snap, format)
}

func title(snap simulator.Snapshot) string {
	switch snap.Kind {
	case dataset.Regression:
		if !snap.Fit.R2Defined {
			return fmt.Sprintf("Linear regression  MSE %.3f  R² undefined", snap.Fit.MSE)
		}
		return fmt.Sprintf("Linear regression  MSE %.3f  R² %.3f", snap.Fit.MSE, snap.Fit.R2)
	case dataset.Clustering:
		return fmt.Sprintf("K-means  k=%d  iteration %d/%d", len(snap.Centroids), snap.Iteration, snap.Config.Clustering.MaxIterations)
	case dataset.SVM:
		if !snap.Trained {
			return fmt.Sprintf("SVM (%s)  untrained", snap.Config.SVM.Kernel)
		}
		return fmt.Sprintf("SVM (%s)  accuracy %.0f%%", snap.Config.SVM.Kernel, snap.Accuracy*100)
	default:
		return snap.Kind.String()
	}
}

func addRegression(p *plot.Plot, snap simulator.Snapshot) error {
	p.X.Min, p.X.Max = 0, dataset.RegressionXMax

	if snap.Dataset.Len() > 0 {
		sc, err := plotter.NewScatter(toXYs(snap.Dataset.Points))
		if err != nil {
			return err
		}
		sc.GlyphStyle.Color = classColor[1]
		sc.GlyphStyle.Radius = vg.Points(2.5)
		p.Add(sc)
		p.Legend.Add("data", sc)
	}

	line, err := plotter.NewLine(pointXYs(snap.Line))
	if err != nil {
		return err
	}
	line.LineStyle.Color = classColor[0]
	line.LineStyle.Width = vg.Points(2)
	p.Add(line)
	p.Legend.Add(fmt.Sprintf("y = %.2fx + %.2f", snap.Config.Regression.Slope, snap.Config.Regression.Intercept), line)
	return nil
}

func addClustering(p *plot.Plot, snap simulator.Snapshot) error {
	p.X.Min, p.X.Max = 0, dataset.ClusterExtent
	p.Y.Min, p.Y.Max = 0, dataset.ClusterExtent

	if snap.Dataset.Len() > 0 {
		groups := make([][]dataset.LabeledPoint, len(snap.Centroids)+1)
		for i, pt := range snap.Dataset.Points {
			g := len(snap.Centroids) // 未割り当て
			if i < len(snap.Assignments) {
				g = snap.Assignments[i]
			}
			groups[g] = append(groups[g], pt)
		}

		for g, pts := range groups {
			if len(pts) == 0 {
				continue
			}
			sc, err := plotter.NewScatter(toXYs(pts))
			if err != nil {
				return err
			}
			sc.GlyphStyle.Radius = vg.Points(2.5)
			if g == len(snap.Centroids) {
				sc.GlyphStyle.Color = unassigned
			} else {
				sc.GlyphStyle.Color = plotutil.Color(g)
				p.Legend.Add(fmt.Sprintf("cluster %d", g), sc)
			}
			p.Add(sc)
		}
	}

	if len(snap.Centroids) > 0 {
		sc, err := plotter.NewScatter(pointXYs(snap.Centroids))
		if err != nil {
			return err
		}
		sc.GlyphStyle.Shape = draw.CrossGlyph{}
		sc.GlyphStyle.Radius = vg.Points(6)
		sc.GlyphStyle.Color = color.Black
		p.Add(sc)
		p.Legend.Add("centroids", sc)
	}
	return nil
}

func addSVM(p *plot.Plot, snap simulator.Snapshot) error {
	p.X.Min, p.X.Max = 0, dataset.PlaneExtent
	p.Y.Min, p.Y.Max = 0, dataset.PlaneExtent

	if snap.Dataset.Len() > 0 {
		var classes [2][]dataset.LabeledPoint
		for _, pt := range snap.Dataset.Points {
			classes[pt.Label&1] = append(classes[pt.Label&1], pt)
		}
		for label, pts := range classes {
			if len(pts) == 0 {
				continue
			}
			sc, err := plotter.NewScatter(toXYs(pts))
			if err != nil {
				return err
			}
			sc.GlyphStyle.Color = classColor[label]
			sc.GlyphStyle.Radius = vg.Points(3)
			sc.GlyphStyle.Shape = draw.CircleGlyph{}
			p.Add(sc)
			p.Legend.Add(fmt.Sprintf("class %d", label), sc)
		}
	}

	if snap.Boundary.Len() == 0 {
		return nil
	}
	xys := pointXYs(snap.Boundary.Points)
	if snap.Boundary.Kernel == svm.Linear {
		line, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		line.LineStyle.Width = vg.Points(2)
		line.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}
		p.Add(line)
		p.Legend.Add("boundary", line)
		return nil
	}

	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return err
	}
	sc.GlyphStyle.Radius = vg.Points(0.8)
	sc.GlyphStyle.Color = color.Black
	p.Add(sc)
	p.Legend.Add("boundary", sc)
	return nil
}

func toXYs(pts []dataset.LabeledPoint) plotter.XYs {
	xys := make(plotter.XYs, len(pts))
	for i, pt := range pts {
		xys[i] = plotter.XY{X: pt.X, Y: pt.Y}
	}
	return xys
}

func pointXYs(pts []dataset.Point) plotter.XYs {
	xys := make(plotter.XYs, len(pts))
	for i, pt := range pts {
		xys[i] = plotter.XY{X: pt.X, Y: pt.Y}
	}
	return xys
}

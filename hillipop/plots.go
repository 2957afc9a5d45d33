package main

import (
	"fmt"

	hillipop "github.com/next-exp/hillipop_go/pkg"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// plotResiduals draws the residual spectrum of every cross-frequency with
// data, over its multipole range, one line per mode.
func plotResiduals(engine *hillipop.Engine, residuals hillipop.Residuals, filename string) error {
	p := plot.New()
	p.Title.Text = "Residuals"
	p.X.Label.Text = "Multipole"
	p.Y.Label.Text = "Dl residual (muK^2)"
	p.Add(plotter.NewGrid())

	idx := engine.IndexMaps()
	n := 0
	for _, mode := range engine.Modes().Modes() {
		for xf, pair := range idx.CrossFrequencies() {
			if len(idx.PairsOf(xf)) == 0 {
				continue
			}
			lmin, lmax := engine.MultipoleRanges().Range(mode, xf)
			pts := make(plotter.XYs, 0, lmax-lmin+1)
			for l := lmin; l <= lmax; l++ {
				pts = append(pts, plotter.XY{X: float64(l), Y: residuals[mode][xf][l]})
			}
			line, err := plotter.NewLine(pts)
			if err != nil {
				return fmt.Errorf("residuals %v %dx%d: %w", mode, pair.F1, pair.F2, err)
			}
			line.Color = plotutil.Color(n)
			line.Dashes = plotutil.Dashes(n / len(plotutil.DefaultColors))
			p.Add(line)
			p.Legend.Add(fmt.Sprintf("%v %dx%d", mode, pair.F1, pair.F2), line)
			n++
		}
	}
	if n == 0 {
		return fmt.Errorf("no cross-frequency to plot")
	}
	return p.Save(10*vg.Inch, 6*vg.Inch, filename)
}

package render

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	exactColor = rgb(0x1F, 0x4E, 0xD8)
	vqeColor   = rgb(0xE0, 0x1B, 0x24)
)

// EnergyPlot draws the exact and variational energy curves over the bond
// distances and returns a base64-encoded PNG.
func EnergyPlot(distances, exact, vqe []float64) (string, error) {
	if len(distances) == 0 {
		return "", errors.New("render energy plot: no points")
	}
	if len(exact) != len(distances) || len(vqe) != len(distances) {
		return "", fmt.Errorf("render energy plot: %d distances, %d exact, %d vqe energies",
			len(distances), len(exact), len(vqe))
	}

	p := plot.New()
	p.Title.Text = "Energy vs Bond Distance"
	p.X.Label.Text = "Bond Distance (Å)"
	p.Y.Label.Text = "Energy (Hartree)"
	p.Add(plotter.NewGrid())

	exactLine, err := plotter.NewLine(points(distances, exact))
	if err != nil {
		return "", fmt.Errorf("render energy plot: %w", err)
	}
	exactLine.LineStyle.Width = vg.Points(2)
	exactLine.LineStyle.Color = exactColor

	vqeLine, err := plotter.NewLine(points(distances, vqe))
	if err != nil {
		return "", fmt.Errorf("render energy plot: %w", err)
	}
	vqeLine.LineStyle.Width = vg.Points(2)
	vqeLine.LineStyle.Color = vqeColor
	vqeLine.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}

	p.Add(exactLine, vqeLine)
	p.Legend.Add("Exact Energy", exactLine)
	p.Legend.Add("VQE Energy", vqeLine)
	p.Legend.Top = true

	w, err := p.WriterTo(10*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return "", fmt.Errorf("render energy plot: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("render energy plot: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func points(xs, ys []float64) plotter.XYs {
	out := make(plotter.XYs, len(xs))
	for i := range xs {
		out[i].X = xs[i]
		out[i].Y = ys[i]
	}
	return out
}

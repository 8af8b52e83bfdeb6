// Package render draws the presentation artifacts attached to simulation
// results: a 2D molecule sketch and the energy-versus-distance curve. Both
// are returned base64-encoded so they can travel inside JSON.
package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/color"
	"math"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/vgsvg"

	"github.com/molsim-ai/molsim/pkg/models"
)

const (
	canvasSize = 400
	padding    = 60
	// BondCutoff is the largest interatomic distance, in Angstrom, drawn as
	// a bond.
	BondCutoff = 3.0
)

type atomStyle struct {
	fill   color.RGBA
	radius float64
}

var (
	defaultStyle = atomStyle{rgb(0xFF, 0x14, 0x93), 14}
	atomStyles   = map[string]atomStyle{
		"H":  {rgb(0xFF, 0xFF, 0xFF), 12},
		"C":  {rgb(0x00, 0x00, 0x00), 16},
		"N":  {rgb(0x00, 0x00, 0xFF), 14},
		"O":  {rgb(0xFF, 0x00, 0x00), 13},
		"F":  {rgb(0x00, 0xFF, 0x00), 12},
		"P":  {rgb(0xFF, 0xA5, 0x00), 18},
		"S":  {rgb(0xFF, 0xFF, 0x00), 15},
		"Cl": {rgb(0x00, 0xFF, 0xFF), 16},
		"Li": {rgb(0xCC, 0x80, 0xFF), 18},
		"Be": {rgb(0xC2, 0xFF, 0x00), 14},
		"B":  {rgb(0xFF, 0xB5, 0xB5), 15},
	}

	ink       = rgb(0x33, 0x33, 0x33)
	frame     = rgb(0xDD, 0xDD, 0xDD)
	white     = rgb(0xFF, 0xFF, 0xFF)
	black     = rgb(0x00, 0x00, 0x00)
	emptyGray = rgb(0x66, 0x66, 0x66)
)

func rgb(r, g, b uint8) color.RGBA { return color.RGBA{R: r, G: g, B: b, A: 0xFF} }

func styleFor(element string) atomStyle {
	if s, ok := atomStyles[element]; ok {
		return s
	}
	return defaultStyle
}

// MoleculeSVG sketches atoms projected on the xy plane and returns the SVG
// document base64-encoded. Atoms closer than BondCutoff are joined.
func MoleculeSVG(atoms []models.Atom) (string, error) {
	c := vgsvg.New(canvasSize, canvasSize)

	c.SetColor(white)
	c.Fill(rect(0, 0, canvasSize, canvasSize))
	c.SetColor(frame)
	c.SetLineWidth(1)
	c.Stroke(rect(0, 0, canvasSize, canvasSize))

	labels := face(12)
	if len(atoms) == 0 {
		c.SetColor(emptyGray)
		drawCentered(c, face(16), canvasSize/2, canvasSize/2, "No atoms")
		return encodeSVG(c)
	}

	pos := project(atoms)

	c.SetColor(ink)
	c.SetLineWidth(2)
	for i := range atoms {
		for j := i + 1; j < len(atoms); j++ {
			if distance(atoms[i], atoms[j]) >= BondCutoff {
				continue
			}
			var p vg.Path
			p.Move(pos[i])
			p.Line(pos[j])
			c.Stroke(p)
		}
	}

	for i, a := range atoms {
		st := styleFor(a.Element)
		r := vg.Length(st.radius)
		c.SetColor(st.fill)
		c.Fill(circle(pos[i], r))
		c.SetColor(ink)
		c.SetLineWidth(1.5)
		c.Stroke(circle(pos[i], r))

		text := white
		if a.Element == "H" || st.fill == white {
			text = black
		}
		c.SetColor(text)
		drawCentered(c, labels, pos[i].X, pos[i].Y, a.Element)
	}

	c.SetColor(ink)
	c.FillString(face(14), vg.Point{X: 20, Y: canvasSize - 30}, title(atoms))
	return encodeSVG(c)
}

// project maps atom xy coordinates onto the canvas, centered and scaled to
// fill it. The canvas y axis points up, like the molecule's.
func project(atoms []models.Atom) []vg.Point {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, a := range atoms {
		minX, maxX = math.Min(minX, a.X), math.Max(maxX, a.X)
		minY, maxY = math.Min(minY, a.Y), math.Max(maxY, a.Y)
	}
	rangeX, rangeY := maxX-minX, maxY-minY
	if rangeX == 0 {
		rangeX = 2
	}
	if rangeY == 0 {
		rangeY = 2
	}
	scale := math.Min((canvasSize-2*padding)/rangeX, (canvasSize-2*padding)/rangeY) * 1.2
	midX, midY := (minX+maxX)/2, (minY+maxY)/2

	out := make([]vg.Point, len(atoms))
	for i, a := range atoms {
		out[i] = vg.Point{
			X: vg.Length(canvasSize/2 + (a.X-midX)*scale),
			Y: vg.Length(canvasSize/2 + (a.Y-midY)*scale),
		}
	}
	return out
}

func distance(a, b models.Atom) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func title(atoms []models.Atom) string {
	var b strings.Builder
	for _, a := range atoms {
		b.WriteString(a.Element)
	}
	return fmt.Sprintf("%s (%d atoms)", b.String(), len(atoms))
}

func face(size float64) font.Face {
	fnt := plot.DefaultFont
	fnt.Variant = "Sans"
	return font.DefaultCache.Lookup(fnt, vg.Length(size))
}

func drawCentered(c vg.Canvas, f font.Face, x, y vg.Length, s string) {
	ext := f.Extents()
	pt := vg.Point{
		X: x - f.Width(s)/2,
		Y: y - (ext.Ascent-ext.Descent)/2,
	}
	c.FillString(f, pt, s)
}

func rect(x, y, w, h vg.Length) vg.Path {
	var p vg.Path
	p.Move(vg.Point{X: x, Y: y})
	p.Line(vg.Point{X: x + w, Y: y})
	p.Line(vg.Point{X: x + w, Y: y + h})
	p.Line(vg.Point{X: x, Y: y + h})
	p.Close()
	return p
}

func circle(center vg.Point, r vg.Length) vg.Path {
	var p vg.Path
	p.Move(vg.Point{X: center.X + r, Y: center.Y})
	p.Arc(center, r, 0, 2*math.Pi)
	p.Close()
	return p
}

func encodeSVG(c *vgsvg.Canvas) (string, error) {
	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("render molecule svg: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

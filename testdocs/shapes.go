// seehuhn.de/go/flipbook - a two-page flipbook viewer engine
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package testdocs

import (
	"image/color"
	"math"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"
)

// Shape is a path drawn on a sample page.  Coordinates are in a 100x100
// box with the origin in the bottom-left corner.
type Shape struct {
	Name  string
	Path  *path.Data
	Op    Operation
	Color color.NRGBA
}

// Operation is the painting operation applied to a shape.
type Operation interface {
	isOperation()
}

// FillRule specifies the rule for determining interior points.
type FillRule int

const (
	NonZero FillRule = iota
	EvenOdd
)

// Fill fills a shape.
type Fill struct {
	Rule FillRule
}

func (Fill) isOperation() {}

// Stroke strokes the outline of a shape.
type Stroke struct {
	Width      float64
	Cap        graphics.LineCapStyle
	Join       graphics.LineJoinStyle
	MiterLimit float64
	Dash       []float64 // nil for solid
	DashPhase  float64
}

func (Stroke) isOperation() {}

var (
	red    = color.NRGBA{R: 255, A: 255}
	green  = color.NRGBA{G: 128, A: 255}
	blue   = color.NRGBA{B: 255, A: 255}
	orange = color.NRGBA{R: 255, G: 128, A: 255}
	purple = color.NRGBA{R: 128, B: 128, A: 255}
)

// Shapes is the catalogue of sample shapes.  Page k of a sample document
// shows Shapes[(k-1) % len(Shapes)].
var Shapes = []Shape{
	{
		Name:  "square",
		Path:  rectangle(10, 10, 90, 90),
		Op:    Fill{Rule: NonZero},
		Color: red,
	},
	{
		Name:  "star_nonzero",
		Path:  fivePointStar(50, 50, 45),
		Op:    Fill{Rule: NonZero},
		Color: blue,
	},
	{
		Name:  "star_evenodd",
		Path:  fivePointStar(50, 50, 45),
		Op:    Fill{Rule: EvenOdd},
		Color: blue,
	},
	{
		Name:  "circle",
		Path:  circle(50, 50, 40),
		Op:    Fill{Rule: NonZero},
		Color: green,
	},
	{
		Name: "corner_round",
		Path: corner(10, 10, 50, 90, 90, 10),
		Op: Stroke{
			Width:      8,
			Cap:        graphics.LineCapRound,
			Join:       graphics.LineJoinRound,
			MiterLimit: 10,
		},
		Color: orange,
	},
	{
		Name: "corner_miter",
		Path: corner(10, 10, 50, 90, 90, 10),
		Op: Stroke{
			Width:      8,
			Cap:        graphics.LineCapButt,
			Join:       graphics.LineJoinMiter,
			MiterLimit: 10,
		},
		Color: purple,
	},
	{
		Name: "dashed",
		Path: (&path.Data{}).MoveTo(pt(5, 50)).LineTo(pt(95, 50)),
		Op: Stroke{
			Width:      6,
			Cap:        graphics.LineCapButt,
			Join:       graphics.LineJoinMiter,
			MiterLimit: 10,
			Dash:       []float64{12, 6},
		},
		Color: red,
	},
	{
		Name: "wave",
		Path: (&path.Data{}).
			MoveTo(pt(5, 50)).
			QuadTo(pt(27.5, 95), pt(50, 50)).
			QuadTo(pt(72.5, 5), pt(95, 50)),
		Op: Stroke{
			Width:      4,
			Cap:        graphics.LineCapSquare,
			Join:       graphics.LineJoinBevel,
			MiterLimit: 10,
		},
		Color: green,
	},
}

// kappa is the control point distance for approximating a quarter
// circle with a cubic Bézier curve.
var kappa = 4 * (math.Sqrt2 - 1) / 3

func pt(x, y float64) vec.Vec2 {
	return vec.Vec2{X: x, Y: y}
}

func rectangle(x1, y1, x2, y2 float64) *path.Data {
	return (&path.Data{}).
		MoveTo(pt(x1, y1)).
		LineTo(pt(x2, y1)).
		LineTo(pt(x2, y2)).
		LineTo(pt(x1, y2)).
		Close()
}

// fivePointStar builds a self-intersecting five-pointed star.
func fivePointStar(cx, cy, r float64) *path.Data {
	p := &path.Data{}
	for i := range 5 {
		// connect every second point
		angle := float64(2*i)*2*math.Pi/5 + math.Pi/2
		v := pt(cx+r*math.Cos(angle), cy+r*math.Sin(angle))
		if i == 0 {
			p.MoveTo(v)
		} else {
			p.LineTo(v)
		}
	}
	return p.Close()
}

func circle(cx, cy, r float64) *path.Data {
	k := r * kappa
	return (&path.Data{}).
		MoveTo(pt(cx+r, cy)).
		CubeTo(pt(cx+r, cy+k), pt(cx+k, cy+r), pt(cx, cy+r)).
		CubeTo(pt(cx-k, cy+r), pt(cx-r, cy+k), pt(cx-r, cy)).
		CubeTo(pt(cx-r, cy-k), pt(cx-k, cy-r), pt(cx, cy-r)).
		CubeTo(pt(cx+k, cy-r), pt(cx+r, cy-k), pt(cx+r, cy)).
		Close()
}

func corner(x1, y1, x2, y2, x3, y3 float64) *path.Data {
	return (&path.Data{}).
		MoveTo(pt(x1, y1)).
		LineTo(pt(x2, y2)).
		LineTo(pt(x3, y3))
}

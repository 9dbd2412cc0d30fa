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

// Package raster turns page geometry into anti-aliased pixel coverage.
//
// The page renderer of the flipbook uses it to paint the filled and
// stroked paths of a PDF content stream into the pixel buffer of a
// surface.  Coverage is delivered one scanline at a time, so that the
// caller can composite it into any kind of image.
package raster

import (
	"cmp"
	"math"
	"slices"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"
)

// Emit receives the coverage of one scanline.  Coverage values range from
// 0 (outside) to 1 (inside) and start at pixel xMin.  The slice is only
// valid during the call.
type Emit func(y, xMin int, coverage []float32)

// edge is a line segment in device coordinates.
type edge struct {
	x0, y0 float64
	x1, y1 float64
	dxdy   float64 // (x1-x0)/(y1-y0)
}

func (e *edge) yMin() float64 { return min(e.y0, e.y1) }
func (e *edge) yMax() float64 { return max(e.y0, e.y1) }

// Rasterizer converts paths to pixel coverage.  One instance can be used
// for any number of paths; its buffers grow as needed and are kept
// between calls.
//
// A Rasterizer is not safe for concurrent use.
type Rasterizer struct {
	// CTM maps user space to device space.  It must be non-singular.
	CTM matrix.Matrix

	// Clip restricts output to an integer-aligned device rectangle.
	Clip rect.Rect

	// Flatness is the maximal distance, in device pixels, between a curve
	// and the line segments approximating it.
	Flatness float64

	// Width is the line width for strokes, in user space units.
	Width float64

	// Cap is the line cap style for open subpath ends.
	Cap graphics.LineCapStyle

	// Join is the style of corners between stroke segments.
	Join graphics.LineJoinStyle

	// MiterLimit bounds the length of miter joins, relative to the line
	// width.  Corners exceeding the limit are beveled.
	MiterLimit float64

	// Dash lists alternating on/off lengths in user space units.
	// Nil means a solid line.
	Dash []float64

	// DashPhase is the offset into the dash pattern.
	DashPhase float64

	edges  []edge
	active []int
	cover  []float32
	area   []float32

	haveBBox   bool
	devXMin    float64
	devXMax    float64
	devYMin    float64
	devYMax    float64
	strokeWork strokeBuffers
}

// New returns a Rasterizer for the given clip rectangle, with the
// PDF default values for all other parameters.
func New(clip rect.Rect) *Rasterizer {
	r := &Rasterizer{}
	r.Reset(clip)
	return r
}

// Reset restores the default parameters and sets a new clip rectangle.
// Internal buffers are retained.
func (r *Rasterizer) Reset(clip rect.Rect) {
	r.CTM = matrix.Identity
	r.Clip = clip
	r.Flatness = defaultFlatness
	r.Width = 1
	r.Cap = graphics.LineCapButt
	r.Join = graphics.LineJoinMiter
	r.MiterLimit = defaultMiterLimit
	r.Dash = nil
	r.DashPhase = 0
}

// FillNonZero fills p using the nonzero winding rule.
func (r *Rasterizer) FillNonZero(p *path.Data, emit Emit) {
	r.beginEdges()
	r.pathEdges(p)
	r.sweep(fillNonZero, emit)
}

// FillEvenOdd fills p using the even-odd rule.
func (r *Rasterizer) FillEvenOdd(p *path.Data, emit Emit) {
	r.beginEdges()
	r.pathEdges(p)
	r.sweep(fillEvenOdd, emit)
}

type fillRule int

const (
	fillNonZero fillRule = iota
	fillEvenOdd
)

// linear applies the 2x2 part of the CTM.
func (r *Rasterizer) linear(v vec.Vec2) vec.Vec2 {
	return vec.Vec2{
		X: r.CTM[0]*v.X + r.CTM[2]*v.Y,
		Y: r.CTM[1]*v.X + r.CTM[3]*v.Y,
	}
}

// quadratic splits a quadratic Bézier curve into line segments which
// deviate at most Flatness device pixels from the curve.
func (r *Rasterizer) quadratic(p0, p1, p2 vec.Vec2, emit func(a, b vec.Vec2)) {
	dev := r.linear(p0.Sub(p1.Mul(2)).Add(p2).Mul(0.25)).Length()
	n := segments(math.Sqrt(dev / r.Flatness))

	prev := p0
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		s := 1 - t
		pt := p0.Mul(s * s).Add(p1.Mul(2 * s * t)).Add(p2.Mul(t * t))
		emit(prev, pt)
		prev = pt
	}
}

// cubic splits a cubic Bézier curve into line segments, choosing the
// number of segments with Wang's formula.
func (r *Rasterizer) cubic(p0, p1, p2, p3 vec.Vec2, emit func(a, b vec.Vec2)) {
	d1 := r.linear(p0.Sub(p1.Mul(2)).Add(p2)).Length()
	d2 := r.linear(p1.Sub(p2.Mul(2)).Add(p3)).Length()
	n := segments(math.Sqrt(3 * max(d1, d2) / (4 * r.Flatness)))

	prev := p0
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		s := 1 - t
		pt := p0.Mul(s * s * s).
			Add(p1.Mul(3 * s * s * t)).
			Add(p2.Mul(3 * s * t * t)).
			Add(p3.Mul(t * t * t))
		emit(prev, pt)
		prev = pt
	}
}

// segments converts an estimated segment count for a curve to an integer
// in the range [1, maxCurveSegments].  NaN counts as 1.
func segments(nf float64) int {
	switch {
	case nf > maxCurveSegments:
		return maxCurveSegments
	case nf > 1:
		return int(math.Ceil(nf))
	default:
		return 1
	}
}

func (r *Rasterizer) beginEdges() {
	r.edges = r.edges[:0]
	r.haveBBox = false
}

// pathEdges adds the edges of all subpaths of p, implicitly closing
// each subpath.
func (r *Rasterizer) pathEdges(p *path.Data) {
	var cur, start vec.Vec2
	k := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			if cur != start {
				r.addEdge(cur, start)
			}
			cur = p.Coords[k]
			start = cur
			k++
		case path.CmdLineTo:
			r.addEdge(cur, p.Coords[k])
			cur = p.Coords[k]
			k++
		case path.CmdQuadTo:
			r.quadratic(cur, p.Coords[k], p.Coords[k+1], r.addEdge)
			cur = p.Coords[k+1]
			k += 2
		case path.CmdCubeTo:
			r.cubic(cur, p.Coords[k], p.Coords[k+1], p.Coords[k+2], r.addEdge)
			cur = p.Coords[k+2]
			k += 3
		case path.CmdClose:
			if cur != start {
				r.addEdge(cur, start)
			}
			cur = start
		}
	}
	if cur != start {
		r.addEdge(cur, start)
	}
}

// addEdge transforms a user space segment to device space and records it.
// Horizontal edges do not contribute to coverage and are dropped.
func (r *Rasterizer) addEdge(p0, p1 vec.Vec2) {
	m := r.CTM
	x0 := m[0]*p0.X + m[2]*p0.Y + m[4]
	y0 := m[1]*p0.X + m[3]*p0.Y + m[5]
	x1 := m[0]*p1.X + m[2]*p1.Y + m[4]
	y1 := m[1]*p1.X + m[3]*p1.Y + m[5]

	if !finite(x0) || !finite(y0) || !finite(x1) || !finite(y1) {
		return
	}
	dy := y1 - y0
	if math.Abs(dy) < horizontalEdgeThreshold {
		return
	}
	r.edges = append(r.edges, edge{x0: x0, y0: y0, x1: x1, y1: y1, dxdy: (x1 - x0) / dy})

	if !r.haveBBox {
		r.devXMin, r.devXMax = min(x0, x1), max(x0, x1)
		r.devYMin, r.devYMax = min(y0, y1), max(y0, y1)
		r.haveBBox = true
		return
	}
	r.devXMin = min(r.devXMin, x0, x1)
	r.devXMax = max(r.devXMax, x0, x1)
	r.devYMin = min(r.devYMin, y0, y1)
	r.devYMax = max(r.devYMax, y0, y1)
}

// bounds returns the integer device bounding box of the collected edges,
// clipped to r.Clip.
func (r *Rasterizer) bounds() (xMin, xMax, yMin, yMax int, ok bool) {
	if len(r.edges) == 0 {
		return 0, 0, 0, 0, false
	}
	// clamp in floating point, device coordinates may exceed the int range
	xMin = int(max(math.Floor(r.devXMin), r.Clip.LLx))
	xMax = int(min(math.Floor(r.devXMax)+1, r.Clip.URx))
	yMin = int(max(math.Floor(r.devYMin), r.Clip.LLy))
	yMax = int(min(math.Floor(r.devYMax)+1, r.Clip.URy))
	if xMin >= xMax || yMin >= yMax {
		return 0, 0, 0, 0, false
	}
	return xMin, xMax, yMin, yMax, true
}

// sweep scans the collected edges from top to bottom, keeping a list of
// the edges which intersect the current scanline.
//
// For every pixel two quantities are accumulated: cover, the signed
// vertical extent of the edges crossing the pixel, and area, the part of
// that extent which lies to the right of the crossing.  Integrating from
// left to right gives the signed area of the path inside each pixel.
func (r *Rasterizer) sweep(rule fillRule, emit Emit) {
	xMin, xMax, yMin, yMax, ok := r.bounds()
	if !ok {
		return
	}
	width := xMax - xMin
	r.cover = slices.Grow(r.cover[:0], width)[:width]
	r.area = slices.Grow(r.area[:0], width)[:width]

	slices.SortFunc(r.edges, func(a, b edge) int {
		return cmp.Compare(a.yMin(), b.yMin())
	})

	r.active = r.active[:0]
	next := 0
	for y := yMin; y < yMax; y++ {
		top, bot := float64(y), float64(y+1)

		for next < len(r.edges) && r.edges[next].yMin() < bot {
			r.active = append(r.active, next)
			next++
		}
		if len(r.active) == 0 {
			if next == len(r.edges) {
				break
			}
			continue
		}

		clear(r.cover)
		clear(r.area)
		touched := false
		for i := 0; i < len(r.active); {
			e := &r.edges[r.active[i]]
			if e.yMax() <= top {
				last := len(r.active) - 1
				r.active[i] = r.active[last]
				r.active = r.active[:last]
				continue
			}
			if e.yMin() < bot {
				accumulate(e, y, r.cover, r.area, xMin, xMax)
				touched = true
			}
			i++
		}
		if !touched {
			continue
		}

		if rule == fillNonZero {
			integrateNonZero(r.cover, r.area)
		} else {
			integrateEvenOdd(r.cover, r.area)
		}
		if row, offs := trimZeros(r.cover); row != nil {
			emit(y, xMin+offs, row)
		}
	}
}

// accumulate adds the contribution of edge e within scanline y.
// Contributions left of the buffer are folded into its first cell, since
// they fully cover every pixel to their right.
func accumulate(e *edge, y int, cover, area []float32, xMin, xMax int) {
	top := max(float64(y), e.yMin())
	bot := min(float64(y+1), e.yMax())
	if bot <= top {
		return
	}

	sign := float32(1)
	if e.y1 < e.y0 {
		sign = -1
	}

	xa := e.x0 + e.dxdy*(top-e.y0)
	xb := e.x0 + e.dxdy*(bot-e.y0)
	fl := math.Floor(min(xa, xb))
	fr := math.Floor(max(xa, xb))

	if fl >= float64(xMax) {
		return
	}
	if fr < float64(xMin) {
		c := sign * float32(bot-top)
		cover[0] += c
		area[0] += c
		return
	}

	add := func(pix int, y0, y1 float64) {
		c := sign * float32(y1-y0)
		switch {
		case pix < xMin:
			cover[0] += c
			area[0] += c
		case pix < xMax:
			xm := e.x0 + e.dxdy*((y0+y1)/2-e.y0)
			i := pix - xMin
			cover[i] += c
			area[i] += c * float32(1-(xm-float64(pix)))
		}
	}

	if fl == fr {
		add(int(fl), top, bot)
		return
	}

	dydx := 1 / e.dxdy
	if fl < float64(xMin) {
		// the part left of the buffer, in one piece
		yc := min(max(e.y0+dydx*(float64(xMin)-e.x0), top), bot)
		s0, s1 := top, yc
		if xa > xb {
			s0, s1 = yc, bot
		}
		if s1 > s0 {
			add(xMin-1, s0, s1)
		}
	}
	pixL := int(max(fl, float64(xMin)))
	pixR := int(min(fr, float64(xMax-1)))
	for pix := pixL; pix <= pixR; pix++ {
		ya := e.y0 + dydx*(float64(pix)-e.x0)
		yb := e.y0 + dydx*(float64(pix+1)-e.x0)
		s0 := max(min(ya, yb), top)
		s1 := min(max(ya, yb), bot)
		if s1 > s0 {
			add(pix, s0, s1)
		}
	}
}

// integrateNonZero turns cover/area into coverage under the nonzero
// rule.  The result replaces the contents of cover.
func integrateNonZero(cover, area []float32) {
	var acc float32
	for i := range cover {
		v := acc + area[i]
		acc += cover[i]
		cover[i] = min(abs32(v), 1)
	}
}

// integrateEvenOdd turns cover/area into coverage under the even-odd
// rule.  The result replaces the contents of cover.
func integrateEvenOdd(cover, area []float32) {
	var acc float32
	for i := range cover {
		v := abs32(acc + area[i])
		acc += cover[i]
		m := v - 2*float32(int(v/2))
		cover[i] = 1 - abs32(1-m)
	}
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// trimZeros strips zero coverage from both ends of a scanline.
func trimZeros(row []float32) ([]float32, int) {
	lo, hi := 0, len(row)
	for lo < hi && row[lo] == 0 {
		lo++
	}
	if lo == hi {
		return nil, 0
	}
	for row[hi-1] == 0 {
		hi--
	}
	return row[lo:hi], lo
}

const (
	// defaultFlatness is below the threshold of visual perception.
	defaultFlatness = 0.25

	// defaultMiterLimit matches the PDF default.
	defaultMiterLimit = 10.0

	// maxCurveSegments bounds the number of line segments used for a
	// single curve.
	maxCurveSegments = 1 << 12

	// maxDashes bounds the number of dashes per stroke.  Longer dash
	// sequences are stroked as solid lines.
	maxDashes = 1 << 16

	// minDashPeriod is the smallest dash pattern period, in device
	// pixels, which is still drawn as a dash pattern.
	minDashPeriod = 0.1

	horizontalEdgeThreshold = 1e-10
	zeroLengthThreshold     = 1e-10
	collinearityThreshold   = 1e-6
)

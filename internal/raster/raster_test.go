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

package raster

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"
)

// coverageMap collects the output of a Rasterizer into a dense grid.
type coverageMap struct {
	w, h int
	val  []float64
}

func newCoverageMap(w, h int) *coverageMap {
	return &coverageMap{w: w, h: h, val: make([]float64, w*h)}
}

func (m *coverageMap) emit(y, xMin int, coverage []float32) {
	for i, c := range coverage {
		m.val[y*m.w+xMin+i] = float64(c)
	}
}

func (m *coverageMap) at(x, y int) float64 {
	return m.val[y*m.w+x]
}

func (m *coverageMap) total() float64 {
	sum := 0.0
	for _, v := range m.val {
		sum += v
	}
	return sum
}

func pt(x, y float64) vec.Vec2 {
	return vec.Vec2{X: x, Y: y}
}

func box(x0, y0, x1, y1 float64) *path.Data {
	return (&path.Data{}).
		MoveTo(pt(x0, y0)).
		LineTo(pt(x1, y0)).
		LineTo(pt(x1, y1)).
		LineTo(pt(x0, y1)).
		Close()
}

func clipRect(w, h int) rect.Rect {
	return rect.Rect{URx: float64(w), URy: float64(h)}
}

// TestTriangleCoverage checks exact coverage along a shallow diagonal.
// The triangle (0,0)→(10,0)→(10,1) has the edge y = x/10, so pixel x is
// covered by (2x+1)/20.
func TestTriangleCoverage(t *testing.T) {
	tri := (&path.Data{}).
		MoveTo(pt(0, 0)).
		LineTo(pt(10, 0)).
		LineTo(pt(10, 1)).
		Close()

	m := newCoverageMap(10, 1)
	New(clipRect(10, 1)).FillNonZero(tri, m.emit)

	want := make([]float64, 10)
	for x := range want {
		want[x] = float64(2*x+1) / 20
	}
	if d := cmp.Diff(want, m.val, cmpopts.EquateApprox(0, 1e-6)); d != "" {
		t.Errorf("coverage mismatch (-want +got):\n%s", d)
	}
}

func TestFillRectangle(t *testing.T) {
	m := newCoverageMap(10, 10)
	New(clipRect(10, 10)).FillNonZero(box(2, 3, 8, 5), m.emit)

	if got := m.total(); math.Abs(got-12) > 1e-6 {
		t.Errorf("total coverage %g, want 12", got)
	}
	for y := range 10 {
		for x := range 10 {
			want := 0.0
			if x >= 2 && x < 8 && y >= 3 && y < 5 {
				want = 1
			}
			if got := m.at(x, y); math.Abs(got-want) > 1e-6 {
				t.Errorf("pixel (%d,%d): got %g, want %g", x, y, got, want)
			}
		}
	}
}

func TestFillRules(t *testing.T) {
	// two nested squares with the same orientation
	p := box(1, 1, 9, 9)
	inner := box(3, 3, 7, 7)
	p.Cmds = append(p.Cmds, inner.Cmds...)
	p.Coords = append(p.Coords, inner.Coords...)

	nz := newCoverageMap(10, 10)
	eo := newCoverageMap(10, 10)
	r := New(clipRect(10, 10))
	r.FillNonZero(p, nz.emit)
	r.FillEvenOdd(p, eo.emit)

	if got := nz.at(5, 5); got != 1 {
		t.Errorf("nonzero centre: got %g, want 1", got)
	}
	if got := eo.at(5, 5); got != 0 {
		t.Errorf("even-odd centre: got %g, want 0", got)
	}
	if got := eo.at(2, 2); got != 1 {
		t.Errorf("even-odd ring: got %g, want 1", got)
	}
	if got, want := eo.total(), 64.0-16.0; math.Abs(got-want) > 1e-6 {
		t.Errorf("even-odd total %g, want %g", got, want)
	}
}

func TestFillClipped(t *testing.T) {
	m := newCoverageMap(4, 4)
	New(clipRect(4, 4)).FillNonZero(box(-5, -5, 20, 20), m.emit)
	if got := m.total(); math.Abs(got-16) > 1e-6 {
		t.Errorf("total coverage %g, want 16", got)
	}
}

func TestFillTransformed(t *testing.T) {
	// scale by 2 and flip the y-axis, as done for PDF pages
	m := newCoverageMap(20, 20)
	r := New(clipRect(20, 20))
	r.CTM = matrix.Matrix{2, 0, 0, -2, 0, 20}
	r.FillNonZero(box(1, 1, 4, 3), m.emit)

	if got := m.total(); math.Abs(got-24) > 1e-6 {
		t.Errorf("total coverage %g, want 24", got)
	}
	// user (1,1)-(4,3) maps to device x 2..8, y 14..18
	if m.at(5, 15) != 1 || m.at(5, 12) != 0 {
		t.Errorf("unexpected placement of transformed rectangle")
	}
}

func TestFillEmpty(t *testing.T) {
	called := false
	New(clipRect(10, 10)).FillNonZero(&path.Data{}, func(int, int, []float32) {
		called = true
	})
	if called {
		t.Error("empty path produced output")
	}
}

func TestStrokeCaps(t *testing.T) {
	line := (&path.Data{}).MoveTo(pt(2, 5)).LineTo(pt(8, 5))

	cases := []struct {
		name     string
		cap      graphics.LineCapStyle
		min, max float64
	}{
		{"butt", graphics.LineCapButt, 12, 12},
		{"square", graphics.LineCapSquare, 16, 16},
		{"round", graphics.LineCapRound, 14.5, 12 + math.Pi},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newCoverageMap(12, 12)
			r := New(clipRect(12, 12))
			r.Width = 2
			r.Cap = tc.cap
			r.Stroke(line, m.emit)

			got := m.total()
			if got < tc.min-1e-6 || got > tc.max+1e-6 {
				t.Errorf("total coverage %g, want in [%g, %g]", got, tc.min, tc.max)
			}
		})
	}
}

func TestStrokeJoins(t *testing.T) {
	corner := (&path.Data{}).
		MoveTo(pt(2, 2)).
		LineTo(pt(8, 2)).
		LineTo(pt(8, 8))

	cases := []struct {
		name     string
		join     graphics.LineJoinStyle
		min, max float64
	}{
		{"miter", graphics.LineJoinMiter, 24, 24},
		{"bevel", graphics.LineJoinBevel, 23.5, 23.5},
		{"round", graphics.LineJoinRound, 23.6, 23 + math.Pi/4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newCoverageMap(12, 12)
			r := New(clipRect(12, 12))
			r.Width = 2
			r.Join = tc.join
			r.Stroke(corner, m.emit)

			got := m.total()
			if got < tc.min-1e-6 || got > tc.max+1e-6 {
				t.Errorf("total coverage %g, want in [%g, %g]", got, tc.min, tc.max)
			}
			for _, v := range m.val {
				if v > 1 {
					t.Fatalf("coverage %g exceeds 1", v)
				}
			}
		})
	}
}

func TestStrokeMiterLimit(t *testing.T) {
	corner := (&path.Data{}).
		MoveTo(pt(2, 2)).
		LineTo(pt(8, 2)).
		LineTo(pt(8, 8))

	m := newCoverageMap(12, 12)
	r := New(clipRect(12, 12))
	r.Width = 2
	r.MiterLimit = 1.2 // a right angle needs sqrt(2)
	r.Stroke(corner, m.emit)

	if got := m.total(); math.Abs(got-23.5) > 1e-6 {
		t.Errorf("total coverage %g, want 23.5 (beveled)", got)
	}
}

func TestStrokeClosed(t *testing.T) {
	m := newCoverageMap(12, 12)
	r := New(clipRect(12, 12))
	r.Width = 2
	r.Stroke(box(2, 2, 10, 10), m.emit)

	// outer 10x10 square minus inner 6x6 square
	if got := m.total(); math.Abs(got-64) > 1e-6 {
		t.Errorf("total coverage %g, want 64", got)
	}
	if m.at(6, 6) != 0 {
		t.Error("inside of the outline is painted")
	}
}

func TestStrokeDash(t *testing.T) {
	line := (&path.Data{}).MoveTo(pt(0, 5)).LineTo(pt(10, 5))

	cases := []struct {
		name  string
		dash  []float64
		phase float64
		want  float64
	}{
		{"solid", nil, 0, 20},
		{"even", []float64{2, 2}, 0, 12},
		{"odd", []float64{3}, 0, 12},
		{"phase", []float64{2, 2}, 1, 10},
		{"zero", []float64{0, 0}, 0, 20},
		{"sub-pixel period", []float64{1e-9, 1e-9}, 0, 20},
		{"negative", []float64{-1, 1.000000001}, 0, 20},
		{"nan", []float64{math.NaN(), 1}, 0, 20},
		{"infinite", []float64{math.Inf(1), 1}, 0, 20},
		{"infinite phase", []float64{2, 2}, math.Inf(1), 12},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newCoverageMap(12, 12)
			r := New(clipRect(12, 12))
			r.Width = 2
			r.Dash = tc.dash
			r.DashPhase = tc.phase
			r.Stroke(line, m.emit)

			if got := m.total(); math.Abs(got-tc.want) > 1e-6 {
				t.Errorf("total coverage %g, want %g", got, tc.want)
			}
		})
	}
}

// TestStrokeLimits checks that strokes and fills with extreme geometry
// finish quickly.
func TestStrokeLimits(t *testing.T) {
	finishes := func(what string, f func()) {
		t.Helper()
		done := make(chan struct{})
		go func() {
			defer close(done)
			f()
		}()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Fatalf("%s did not finish", what)
		}
	}

	// a long dashed line with too many dashes is stroked solid
	long := (&path.Data{}).MoveTo(pt(0, 5)).LineTo(pt(1e9, 5))
	m := newCoverageMap(12, 12)
	finishes("long dashed line", func() {
		r := New(clipRect(12, 12))
		r.Width = 2
		r.Dash = []float64{1, 1}
		r.Stroke(long, m.emit)
	})
	if got := m.total(); math.Abs(got-24) > 1e-6 {
		t.Errorf("long dashed line: total coverage %g, want 24", got)
	}

	huge := (&path.Data{}).
		MoveTo(pt(0, 0)).
		CubeTo(pt(1e12, 1e12), pt(-1e12, 1e12), pt(10, 0)).
		QuadTo(pt(1e15, -1e15), pt(0, 0))
	finishes("huge curves", func() {
		r := New(clipRect(12, 12))
		r.FillNonZero(huge, newCoverageMap(12, 12).emit)
		r.Stroke(huge, newCoverageMap(12, 12).emit)
	})
}

func TestSegments(t *testing.T) {
	cases := []struct {
		in   float64
		want int
	}{
		{math.NaN(), 1},
		{-3, 1},
		{0.5, 1},
		{2.1, 3},
		{math.Inf(1), maxCurveSegments},
		{1e300, maxCurveSegments},
	}
	for _, tc := range cases {
		if got := segments(tc.in); got != tc.want {
			t.Errorf("segments(%g) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestStrokeDot(t *testing.T) {
	dotPath := (&path.Data{}).MoveTo(pt(5, 5)).LineTo(pt(5, 5))

	m := newCoverageMap(12, 12)
	r := New(clipRect(12, 12))
	r.Width = 2
	r.Cap = graphics.LineCapSquare
	r.Stroke(dotPath, m.emit)
	if got := m.total(); math.Abs(got-4) > 1e-6 {
		t.Errorf("square dot: total coverage %g, want 4", got)
	}

	m = newCoverageMap(12, 12)
	r.Cap = graphics.LineCapButt
	r.Stroke(dotPath, m.emit)
	if got := m.total(); got != 0 {
		t.Errorf("butt dot: total coverage %g, want 0", got)
	}
}

func TestReset(t *testing.T) {
	r := New(clipRect(4, 4))
	r.Width = 7
	r.Dash = []float64{1, 2}
	r.CTM = matrix.Matrix{2, 0, 0, 2, 0, 0}
	r.Reset(clipRect(8, 8))

	if r.Width != 1 || r.Dash != nil || r.CTM != matrix.Identity {
		t.Errorf("Reset did not restore defaults: %+v", r)
	}
	if r.Clip != clipRect(8, 8) {
		t.Errorf("Reset: clip %v", r.Clip)
	}
}

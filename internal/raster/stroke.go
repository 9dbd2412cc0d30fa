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

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"
)

// polyline is a flattened subpath, stored as a range of points.
type polyline struct {
	start, end int // range in strokeBuffers.pts
	closed     bool
}

// dot is a subpath of length zero.  Round and square caps still paint
// something there.
type dot struct {
	at  vec.Vec2
	dir vec.Vec2 // unit tangent, used to orient square caps
}

type strokeBuffers struct {
	pts   []vec.Vec2
	lines []polyline
	dots  []dot

	dashPts   []vec.Vec2
	dashLines []polyline

	poly []vec.Vec2
}

// Stroke paints the outline of p using Width, Cap, Join, MiterLimit,
// Dash and DashPhase.
//
// The outline is built from one convex piece per segment, per join and
// per cap.  All pieces are oriented the same way and filled together
// with the nonzero rule, which paints overlapping regions once.
func (r *Rasterizer) Stroke(p *path.Data, emit Emit) {
	w := &r.strokeWork
	r.flattenForStroke(p)
	pts, lines := w.pts, w.lines
	if len(r.Dash) > 0 {
		r.applyDash()
		pts, lines = w.dashPts, w.dashLines
	}

	r.beginEdges()
	d := r.Width / 2
	for _, pl := range lines {
		r.strokePolyline(pts[pl.start:pl.end], pl.closed, d)
	}
	for _, dt := range w.dots {
		switch r.Cap {
		case graphics.LineCapRound:
			r.addCircle(dt.at, d)
		case graphics.LineCapSquare:
			n := vec.Vec2{X: -dt.dir.Y, Y: dt.dir.X}
			t := dt.dir.Mul(d)
			n = n.Mul(d)
			r.addPolygon(dt.at.Add(t).Add(n), dt.at.Sub(t).Add(n), dt.at.Sub(t).Sub(n), dt.at.Add(t).Sub(n))
		}
	}
	r.sweep(fillNonZero, emit)
}

// flattenForStroke splits p into polylines, with curves replaced by line
// segments and zero-length segments removed.
func (r *Rasterizer) flattenForStroke(p *path.Data) {
	w := &r.strokeWork
	w.pts = w.pts[:0]
	w.lines = w.lines[:0]
	w.dots = w.dots[:0]

	var start vec.Vec2
	open := false
	drawn := false
	first := 0
	begin := func(at vec.Vec2) {
		start = at
		first = len(w.pts)
		w.pts = append(w.pts, at)
		open = true
		drawn = false
	}
	finish := func(closed bool) {
		if !open {
			return
		}
		switch {
		case len(w.pts)-first >= 2:
			w.lines = append(w.lines, polyline{start: first, end: len(w.pts), closed: closed})
		case drawn || closed:
			w.pts = w.pts[:first]
			w.dots = append(w.dots, dot{at: start, dir: vec.Vec2{X: 1}})
		default:
			w.pts = w.pts[:first]
		}
		open = false
	}
	add := func(_, b vec.Vec2) {
		if last := w.pts[len(w.pts)-1]; b.Sub(last).Length() < zeroLengthThreshold {
			return
		}
		w.pts = append(w.pts, b)
	}

	k := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			finish(false)
			begin(p.Coords[k])
			k++
		case path.CmdLineTo:
			if open {
				add(vec.Vec2{}, p.Coords[k])
				drawn = true
			}
			k++
		case path.CmdQuadTo:
			if open {
				r.quadratic(w.pts[len(w.pts)-1], p.Coords[k], p.Coords[k+1], add)
				drawn = true
			}
			k += 2
		case path.CmdCubeTo:
			if open {
				r.cubic(w.pts[len(w.pts)-1], p.Coords[k], p.Coords[k+1], p.Coords[k+2], add)
				drawn = true
			}
			k += 3
		case path.CmdClose:
			if open {
				if n := len(w.pts); n-first >= 3 && w.pts[n-1].Sub(start).Length() < zeroLengthThreshold {
					w.pts = w.pts[:n-1]
				}
				at := start
				finish(true)
				// drawing continues from the start of the closed subpath
				begin(at)
			}
		}
	}
	finish(false)
}

// applyDash cuts the flattened polylines into dashes.  The result is a
// list of open polylines in dashPts/dashLines; zero-length dashes become
// dots.
func (r *Rasterizer) applyDash() {
	w := &r.strokeWork
	w.dashPts = w.dashPts[:0]
	w.dashLines = w.dashLines[:0]

	pattern := r.Dash
	total, ok := r.dashPeriod()
	if !ok {
		for _, pl := range w.lines {
			s := len(w.dashPts)
			w.dashPts = append(w.dashPts, w.pts[pl.start:pl.end]...)
			w.dashLines = append(w.dashLines, polyline{start: s, end: len(w.dashPts), closed: pl.closed})
		}
		return
	}
	dashAt := func(i int) float64 { return pattern[i%len(pattern)] }

	for _, pl := range w.lines {
		pts := w.pts[pl.start:pl.end]
		if pl.closed {
			pts = append(pts[:len(pts):len(pts)], pts[0])
		}

		// position in the pattern at the start of this subpath
		idx := 0
		left := dashAt(0)
		phase := math.Mod(r.DashPhase, total)
		if phase < 0 {
			phase += total
		}
		for phase > 0 {
			if phase < left {
				left -= phase
				break
			}
			phase -= left
			idx++
			left = dashAt(idx)
		}

		on := idx%2 == 0
		dashStart := -1
		if on {
			dashStart = len(w.dashPts)
			w.dashPts = append(w.dashPts, pts[0])
		}
		for i := 1; i < len(pts); i++ {
			a, b := pts[i-1], pts[i]
			seg := b.Sub(a)
			segLen := seg.Length()
			dir := seg.Mul(1 / segLen)
			pos := 0.0
			for segLen-pos > left {
				pos += left
				pt := a.Add(dir.Mul(pos))
				if on {
					w.dashPts = append(w.dashPts, pt)
					r.finishDash(dashStart, dir)
				} else {
					dashStart = len(w.dashPts)
					w.dashPts = append(w.dashPts, pt)
				}
				on = !on
				idx++
				left = dashAt(idx)
			}
			left -= segLen - pos
			if on {
				w.dashPts = append(w.dashPts, b)
			}
		}
		if on {
			last := pts[len(pts)-1].Sub(pts[len(pts)-2])
			r.finishDash(dashStart, last.Mul(1/last.Length()))
		}
	}
}

// dashPeriod returns the length of one repetition of the dash pattern.
// The second return value is false if the pattern cannot be drawn: if it
// has negative or non-finite entries, if its period is zero or
// vanishingly small in device space, or if the path would be cut into
// more than maxDashes pieces.
func (r *Rasterizer) dashPeriod() (float64, bool) {
	total := 0.0
	for _, x := range r.Dash {
		if !(x >= 0) || math.IsInf(x, 1) {
			return 0, false
		}
		total += x
	}
	if len(r.Dash)%2 == 1 {
		total *= 2
	}
	if !(total > 0) || math.IsInf(total, 1) {
		return 0, false
	}

	m := r.CTM
	scale := math.Sqrt(math.Abs(m[0]*m[3] - m[1]*m[2]))
	if !(total*scale >= minDashPeriod) {
		return 0, false
	}

	w := &r.strokeWork
	length := 0.0
	for _, pl := range w.lines {
		pts := w.pts[pl.start:pl.end]
		for i := 1; i < len(pts); i++ {
			length += pts[i].Sub(pts[i-1]).Length()
		}
		if pl.closed {
			length += pts[0].Sub(pts[len(pts)-1]).Length()
		}
	}
	dashes := length/total*float64(len(r.Dash)) + float64(len(w.lines))
	if !(dashes <= maxDashes) {
		return 0, false
	}
	return total, true
}

// finishDash turns dashPts[start:] into a dash polyline, or into a dot if
// it has no extent.
func (r *Rasterizer) finishDash(start int, dir vec.Vec2) {
	w := &r.strokeWork
	pts := w.dashPts[start:]
	extent := 0.0
	for i := 1; i < len(pts); i++ {
		extent += pts[i].Sub(pts[i-1]).Length()
	}
	if extent < zeroLengthThreshold {
		w.dots = append(w.dots, dot{at: pts[0], dir: dir})
		w.dashPts = w.dashPts[:start]
		return
	}
	w.dashLines = append(w.dashLines, polyline{start: start, end: len(w.dashPts)})
}

// strokePolyline adds the outline pieces for one polyline.
func (r *Rasterizer) strokePolyline(pts []vec.Vec2, closed bool, d float64) {
	n := len(pts)
	segs := n - 1
	if closed {
		segs = n
	}
	tangent := func(i int) vec.Vec2 {
		a, b := pts[i%n], pts[(i+1)%n]
		v := b.Sub(a)
		return v.Mul(1 / v.Length())
	}

	for i := range segs {
		a, b := pts[i%n], pts[(i+1)%n]
		t := tangent(i)
		nv := vec.Vec2{X: -t.Y, Y: t.X}.Mul(d)
		r.addPolygon(a.Add(nv), b.Add(nv), b.Sub(nv), a.Sub(nv))
	}

	for i := 1; i < segs; i++ {
		r.addJoin(pts[i], tangent(i-1), tangent(i), d)
	}
	if closed {
		r.addJoin(pts[0], tangent(n-1), tangent(0), d)
		return
	}

	r.addCap(pts[0], tangent(0).Mul(-1), d)
	r.addCap(pts[n-1], tangent(n-2), d)
}

// addJoin adds the corner piece at p between incoming tangent t1 and
// outgoing tangent t2.
func (r *Rasterizer) addJoin(p, t1, t2 vec.Vec2, d float64) {
	cross := t1.X*t2.Y - t1.Y*t2.X
	dotp := t1.Dot(t2)
	if math.Abs(cross) < collinearityThreshold && dotp > 0 {
		return
	}

	if r.Join == graphics.LineJoinRound {
		r.addCircle(p, d)
		return
	}

	// The gap opens on the outer side of the turn.  For a left turn
	// (cross > 0) this is the right-hand side.
	side := 1.0
	if cross > 0 {
		side = -1
	}
	n1 := vec.Vec2{X: -t1.Y, Y: t1.X}.Mul(side * d)
	n2 := vec.Vec2{X: -t2.Y, Y: t2.X}.Mul(side * d)
	a, b := p.Add(n1), p.Add(n2)

	if r.Join == graphics.LineJoinMiter {
		sinHalf := math.Sqrt((1 + dotp) / 2)
		if sinHalf > 0 && 1/sinHalf <= r.MiterLimit+1e-10 {
			bis := n1.Add(n2)
			if l := bis.Length(); l > zeroLengthThreshold {
				tip := p.Add(bis.Mul(d / sinHalf / l))
				r.addPolygon(p, a, tip, b)
				return
			}
		}
	}
	r.addPolygon(p, a, b)
}

// addCap adds the cap at end point p; t points away from the line.
func (r *Rasterizer) addCap(p, t vec.Vec2, d float64) {
	switch r.Cap {
	case graphics.LineCapRound:
		r.addCircle(p, d)
	case graphics.LineCapSquare:
		nv := vec.Vec2{X: -t.Y, Y: t.X}.Mul(d)
		ext := p.Add(t.Mul(d))
		r.addPolygon(p.Add(nv), ext.Add(nv), ext.Sub(nv), p.Sub(nv))
	}
}

// addCircle adds a polygon approximating the circle of radius d around c,
// with enough vertices to stay within Flatness in device space.
func (r *Rasterizer) addCircle(c vec.Vec2, d float64) {
	dev := max(r.linear(vec.Vec2{X: d}).Length(), r.linear(vec.Vec2{Y: d}).Length())
	n := 8
	if dev > r.Flatness {
		step := 2 * math.Acos(1-r.Flatness/dev)
		n = max(n, int(math.Ceil(2*math.Pi/step)))
	}

	w := &r.strokeWork
	w.poly = w.poly[:0]
	for i := range n {
		phi := 2 * math.Pi * float64(i) / float64(n)
		w.poly = append(w.poly, vec.Vec2{X: c.X + d*math.Cos(phi), Y: c.Y + d*math.Sin(phi)})
	}
	r.addPolygonSlice(w.poly)
}

func (r *Rasterizer) addPolygon(pts ...vec.Vec2) {
	r.addPolygonSlice(pts)
}

// addPolygonSlice adds the edges of a closed polygon, oriented
// counter-clockwise in user space so that overlapping pieces add up
// instead of cancelling.
func (r *Rasterizer) addPolygonSlice(pts []vec.Vec2) {
	n := len(pts)
	if n < 3 {
		return
	}
	area := 0.0
	for i := range n {
		a, b := pts[i], pts[(i+1)%n]
		area += a.X*b.Y - b.X*a.Y
	}
	if math.Abs(area) < zeroLengthThreshold {
		return
	}
	if area > 0 {
		for i := range n {
			r.addEdge(pts[i], pts[(i+1)%n])
		}
	} else {
		for i := n - 1; i >= 0; i-- {
			r.addEdge(pts[(i+1)%n], pts[i])
		}
	}
}

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

package pdfdoc

import (
	"context"
	"image"
	"image/color"
	"io"
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/graphics"
	"seehuhn.de/go/pdf/graphics/scanner"

	"seehuhn.de/go/flipbook/internal/raster"
)

// checkEvery is the number of operators between context checks.
const checkEvery = 256

// maxStackDepth limits the nesting of q/Q pairs.
const maxStackDepth = 64

var black = color.NRGBA{A: 255}

// gstate is the part of the PDF graphics state used for painting paths.
type gstate struct {
	ctm        matrix.Matrix
	lineWidth  float64
	lineCap    graphics.LineCapStyle
	lineJoin   graphics.LineJoinStyle
	miterLimit float64
	dash       []float64
	dashPhase  float64
	fill       color.NRGBA
	stroke     color.NRGBA
	clip       rect.Rect // device space, pixel aligned
}

// painter executes the operators of a content stream.
type painter struct {
	dst   *image.RGBA
	ras   *raster.Rasterizer
	state gstate
	stack []gstate

	path       *path.Data
	cur, start vec.Vec2
	clipping   bool // W or W* seen for the current path

	skipped int
}

func newPainter(dst *image.RGBA, base matrix.Matrix) *painter {
	clip := rect.Rect{
		LLx: float64(dst.Rect.Min.X),
		LLy: float64(dst.Rect.Min.Y),
		URx: float64(dst.Rect.Max.X),
		URy: float64(dst.Rect.Max.Y),
	}
	return &painter{
		dst: dst,
		ras: raster.New(clip),
		state: gstate{
			ctm:        base,
			lineWidth:  1,
			lineCap:    graphics.LineCapButt,
			lineJoin:   graphics.LineJoinMiter,
			miterLimit: 10,
			fill:       black,
			stroke:     black,
			clip:       clip,
		},
		path: &path.Data{},
	}
}

// run interprets the content stream read from r.
func (p *painter) run(ctx context.Context, r io.Reader) error {
	count := 0
	s := scanner.NewScanner()
	return s.Scan(r)(func(op string, args []pdf.Object) error {
		count++
		if count%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		return p.do(ctx, op, args)
	})
}

// do executes a single operator.  Operators with missing or malformed
// arguments are ignored.  Only cancellation of ctx leads to an error.
func (p *painter) do(ctx context.Context, op string, args []pdf.Object) error {
	nums, ok := numbers(args)

	switch op {

	// == path construction ==============================================

	case "m":
		if ok && len(nums) == 2 {
			p.cur = vec.Vec2{X: nums[0], Y: nums[1]}
			p.start = p.cur
			p.path.MoveTo(p.cur)
		}
	case "l":
		if ok && len(nums) == 2 && p.havePath() {
			p.cur = vec.Vec2{X: nums[0], Y: nums[1]}
			p.path.LineTo(p.cur)
		}
	case "c":
		if ok && len(nums) == 6 && p.havePath() {
			c1 := vec.Vec2{X: nums[0], Y: nums[1]}
			c2 := vec.Vec2{X: nums[2], Y: nums[3]}
			p.cur = vec.Vec2{X: nums[4], Y: nums[5]}
			p.path.CubeTo(c1, c2, p.cur)
		}
	case "v":
		if ok && len(nums) == 4 && p.havePath() {
			c2 := vec.Vec2{X: nums[0], Y: nums[1]}
			c1 := p.cur
			p.cur = vec.Vec2{X: nums[2], Y: nums[3]}
			p.path.CubeTo(c1, c2, p.cur)
		}
	case "y":
		if ok && len(nums) == 4 && p.havePath() {
			c1 := vec.Vec2{X: nums[0], Y: nums[1]}
			p.cur = vec.Vec2{X: nums[2], Y: nums[3]}
			p.path.CubeTo(c1, p.cur, p.cur)
		}
	case "h":
		if p.havePath() {
			p.path.Close()
			p.cur = p.start
		}
	case "re":
		if ok && len(nums) == 4 {
			x, y, w, h := nums[0], nums[1], nums[2], nums[3]
			p.path.MoveTo(vec.Vec2{X: x, Y: y}).
				LineTo(vec.Vec2{X: x + w, Y: y}).
				LineTo(vec.Vec2{X: x + w, Y: y + h}).
				LineTo(vec.Vec2{X: x, Y: y + h}).
				Close()
			p.cur = vec.Vec2{X: x, Y: y}
			p.start = p.cur
		}

	// == path painting ==================================================

	case "f", "F":
		return p.paint(ctx, true, false, false)
	case "f*":
		return p.paint(ctx, true, true, false)
	case "S":
		return p.paint(ctx, false, false, true)
	case "s":
		p.closePath()
		return p.paint(ctx, false, false, true)
	case "B":
		return p.paint(ctx, true, false, true)
	case "B*":
		return p.paint(ctx, true, true, true)
	case "b":
		p.closePath()
		return p.paint(ctx, true, false, true)
	case "b*":
		p.closePath()
		return p.paint(ctx, true, true, true)
	case "n":
		return p.paint(ctx, false, false, false)

	case "W", "W*":
		p.clipping = true

	// == graphics state =================================================

	case "q":
		if len(p.stack) < maxStackDepth {
			saved := p.state
			saved.dash = append([]float64(nil), p.state.dash...)
			p.stack = append(p.stack, saved)
		}
	case "Q":
		if n := len(p.stack); n > 0 {
			p.state = p.stack[n-1]
			p.stack = p.stack[:n-1]
		}
	case "cm":
		if ok && len(nums) == 6 {
			var M matrix.Matrix
			copy(M[:], nums)
			p.state.ctm = M.Mul(p.state.ctm)
		}
	case "w":
		if ok && len(nums) == 1 {
			p.state.lineWidth = nums[0]
		}
	case "J":
		if ok && len(nums) == 1 && nums[0] >= 0 && nums[0] <= 2 {
			p.state.lineCap = graphics.LineCapStyle(nums[0])
		}
	case "j":
		if ok && len(nums) == 1 && nums[0] >= 0 && nums[0] <= 2 {
			p.state.lineJoin = graphics.LineJoinStyle(nums[0])
		}
	case "M":
		if ok && len(nums) == 1 && nums[0] >= 1 {
			p.state.miterLimit = nums[0]
		}
	case "d":
		if len(args) == 2 {
			pat, ok1 := args[0].(pdf.Array)
			phase, ok2 := getNumber(args[1])
			dash, ok3 := numbers(pat)
			if ok1 && ok2 && ok3 && validDash(dash, phase) {
				p.state.dash = dash
				p.state.dashPhase = phase
			}
		}

	// == colour =========================================================

	case "g":
		if c, ok := deviceColor(nums, ok, 1); ok {
			p.state.fill = c
		}
	case "G":
		if c, ok := deviceColor(nums, ok, 1); ok {
			p.state.stroke = c
		}
	case "rg":
		if c, ok := deviceColor(nums, ok, 3); ok {
			p.state.fill = c
		}
	case "RG":
		if c, ok := deviceColor(nums, ok, 3); ok {
			p.state.stroke = c
		}
	case "k":
		if c, ok := deviceColor(nums, ok, 4); ok {
			p.state.fill = c
		}
	case "K":
		if c, ok := deviceColor(nums, ok, 4); ok {
			p.state.stroke = c
		}
	case "sc", "scn":
		if c, ok := deviceColor(nums, ok, len(nums)); ok {
			p.state.fill = c
		}
	case "SC", "SCN":
		if c, ok := deviceColor(nums, ok, len(nums)); ok {
			p.state.stroke = c
		}
	case "cs":
		p.state.fill = black
	case "CS":
		p.state.stroke = black

	// == ignored ========================================================

	case "i", "ri", "gs", "d0", "d1",
		"BT", "ET", "Tc", "Tw", "Tz", "TL", "Tf", "Tr", "Ts",
		"Td", "TD", "Tm", "T*", "Tj", "TJ", "'", "\"",
		"BMC", "BDC", "EMC", "MP", "DP", "BX", "EX":
		// no visible effect on paths
	default:
		p.skipped++
	}
	return nil
}

func (p *painter) havePath() bool {
	return len(p.path.Cmds) > 0
}

func (p *painter) closePath() {
	if p.havePath() {
		p.path.Close()
		p.cur = p.start
	}
}

// paint fills and/or strokes the current path, applies a pending clip
// and then starts a new path.
func (p *painter) paint(ctx context.Context, fill, evenOdd, stroke bool) error {
	defer p.endPath()
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.havePath() {
		return nil
	}

	r := p.ras
	r.CTM = p.state.ctm
	r.Clip = p.state.clip
	if fill {
		emit := p.emitter(p.state.fill)
		if evenOdd {
			r.FillEvenOdd(p.path, emit)
		} else {
			r.FillNonZero(p.path, emit)
		}
	}
	if stroke {
		r.Width = p.state.lineWidth
		r.Cap = p.state.lineCap
		r.Join = p.state.lineJoin
		r.MiterLimit = p.state.miterLimit
		r.Dash = p.state.dash
		r.DashPhase = p.state.dashPhase
		r.Stroke(p.path, p.emitter(p.state.stroke))
	}
	if p.clipping {
		p.clip()
	}
	return nil
}

// clip intersects the clipping region with the current path.  Only paths
// which are axis-aligned rectangles in device space are supported.
//
// TODO(voss): support general clipping paths
func (p *painter) clip() {
	box, ok := deviceRect(p.path, p.state.ctm)
	if !ok {
		p.skipped++
		return
	}
	c := &p.state.clip
	c.LLx = max(c.LLx, math.Round(box.LLx))
	c.LLy = max(c.LLy, math.Round(box.LLy))
	c.URx = max(c.LLx, min(c.URx, math.Round(box.URx)))
	c.URy = max(c.LLy, min(c.URy, math.Round(box.URy)))
}

func (p *painter) endPath() {
	p.clipping = false
	p.path.Cmds = p.path.Cmds[:0]
	p.path.Coords = p.path.Coords[:0]
}

func (p *painter) emitter(c color.NRGBA) raster.Emit {
	return func(y, xMin int, coverage []float32) {
		composite(p.dst, y, xMin, coverage, c)
	}
}

// deviceRect returns the device space bounding box of a path which
// consists of a single axis-aligned rectangle.
func deviceRect(pd *path.Data, ctm matrix.Matrix) (rect.Rect, bool) {
	cmds, coords := pd.Cmds, pd.Coords
	if n := len(cmds); n > 0 && cmds[n-1] == path.CmdClose {
		cmds = cmds[:n-1]
	}
	if len(cmds) == 5 && coords[4] == coords[0] {
		cmds = cmds[:4]
		coords = coords[:4]
	}
	if len(cmds) != 4 || len(coords) != 4 || cmds[0] != path.CmdMoveTo {
		return rect.Rect{}, false
	}
	var pts [4]vec.Vec2
	for i := range 4 {
		if i > 0 && cmds[i] != path.CmdLineTo {
			return rect.Rect{}, false
		}
		x, y := ctm.Apply(coords[i].X, coords[i].Y)
		pts[i] = vec.Vec2{X: x, Y: y}
	}

	const eps = 1e-6
	for i := range 4 {
		a, b := pts[i], pts[(i+1)%4]
		if math.Abs(a.X-b.X) > eps && math.Abs(a.Y-b.Y) > eps {
			return rect.Rect{}, false
		}
	}
	box := rect.Rect{
		LLx: min(pts[0].X, pts[2].X),
		LLy: min(pts[0].Y, pts[2].Y),
		URx: max(pts[0].X, pts[2].X),
		URy: max(pts[0].Y, pts[2].Y),
	}
	if math.IsNaN(box.LLx + box.LLy + box.URx + box.URy) {
		return rect.Rect{}, false
	}
	return box, true
}

// validDash reports whether a dash array and phase can be used.  An empty
// array means a solid line.
func validDash(dash []float64, phase float64) bool {
	if math.IsNaN(phase) || math.IsInf(phase, 0) {
		return false
	}
	total := 0.0
	for _, x := range dash {
		if !(x >= 0) || math.IsInf(x, 1) {
			return false
		}
		total += x
	}
	return len(dash) == 0 || total > 0
}

// numbers converts all elements of args to float64.  The second return
// value is false if any element is not a number.
func numbers(args []pdf.Object) ([]float64, bool) {
	res := make([]float64, len(args))
	for i, obj := range args {
		x, ok := getNumber(obj)
		if !ok {
			return nil, false
		}
		res[i] = x
	}
	return res, true
}

func getNumber(x pdf.Object) (float64, bool) {
	switch x := x.(type) {
	case pdf.Real:
		return float64(x), true
	case pdf.Integer:
		return float64(x), true
	case pdf.Number:
		return float64(x), true
	default:
		return 0, false
	}
}

// deviceColor converts gray, RGB or CMYK components to a colour.
// Component values are clamped to [0, 1].
func deviceColor(nums []float64, ok bool, n int) (color.NRGBA, bool) {
	if !ok || len(nums) != n {
		return color.NRGBA{}, false
	}
	for i, x := range nums {
		nums[i] = min(max(x, 0), 1)
	}
	switch n {
	case 1:
		g := to8(nums[0])
		return color.NRGBA{R: g, G: g, B: g, A: 255}, true
	case 3:
		return color.NRGBA{R: to8(nums[0]), G: to8(nums[1]), B: to8(nums[2]), A: 255}, true
	case 4:
		c, m, y, k := nums[0], nums[1], nums[2], nums[3]
		return color.NRGBA{
			R: to8((1 - c) * (1 - k)),
			G: to8((1 - m) * (1 - k)),
			B: to8((1 - y) * (1 - k)),
			A: 255,
		}, true
	default:
		return color.NRGBA{}, false
	}
}

func to8(x float64) uint8 {
	return uint8(x*255 + 0.5)
}

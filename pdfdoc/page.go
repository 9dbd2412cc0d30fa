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
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/pdf"

	"seehuhn.de/go/flipbook"
)

// Page is a single page of a PDF document.
type Page struct {
	doc    *Document
	dict   pdf.Dict
	number int
	box    pdf.Rectangle // normalised MediaBox
	rotate int           // 0, 90, 180 or 270
}

var _ flipbook.Page = (*Page)(nil)

// Size returns the size of the page as it is displayed, taking the
// /Rotate entry into account.
func (p *Page) Size() flipbook.Size {
	w := p.box.URx - p.box.LLx
	h := p.box.URy - p.box.LLy
	if p.rotate == 90 || p.rotate == 270 {
		w, h = h, w
	}
	return flipbook.Size{Width: w, Height: h}
}

// Render paints the page onto a white background in dst.
func (p *Page) Render(ctx context.Context, dst *image.RGBA, scale float64) error {
	if !(scale > 0) || math.IsInf(scale, 1) {
		return fmt.Errorf("page %d: invalid scale %g", p.number, scale)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := p.doc.contents(p.dict)
	if err != nil {
		return fmt.Errorf("page %d: %w", p.number, err)
	}

	draw.Draw(dst, dst.Rect, image.White, image.Point{}, draw.Src)

	pt := newPainter(dst, p.deviceMatrix(scale, dst.Rect.Min))
	err = pt.run(ctx, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("page %d: %w", p.number, err)
	}
	if pt.skipped > 0 {
		p.doc.logger.Debug("unsupported operators ignored",
			"page", p.number, "count", pt.skipped)
	}
	return nil
}

// deviceMatrix maps default user space to the pixels of the destination
// image.  The top-left corner of the displayed page is mapped to origin.
func (p *Page) deviceMatrix(s float64, origin image.Point) matrix.Matrix {
	b := p.box
	var M matrix.Matrix
	switch p.rotate {
	case 90:
		M = matrix.Matrix{0, s, s, 0, -s * b.LLy, -s * b.LLx}
	case 180:
		M = matrix.Matrix{-s, 0, 0, s, s * b.URx, -s * b.LLy}
	case 270:
		M = matrix.Matrix{0, -s, -s, 0, s * b.URy, s * b.URx}
	default:
		M = matrix.Matrix{s, 0, 0, -s, -s * b.LLx, s * b.URy}
	}
	M[4] += float64(origin.X)
	M[5] += float64(origin.Y)
	return M
}

// composite blends a solid colour into one row of dst, using the given
// coverage values as alpha.
func composite(dst *image.RGBA, y, xMin int, coverage []float32, c color.NRGBA) {
	if y < dst.Rect.Min.Y || y >= dst.Rect.Max.Y {
		return
	}
	alpha := float32(c.A) / 255
	for i, cov := range coverage {
		x := xMin + i
		if x < dst.Rect.Min.X || x >= dst.Rect.Max.X || cov <= 0 {
			continue
		}
		a := min(cov, 1) * alpha
		pix := dst.Pix[dst.PixOffset(x, y):]
		pix[0] = blend(pix[0], c.R, a)
		pix[1] = blend(pix[1], c.G, a)
		pix[2] = blend(pix[2], c.B, a)
		pix[3] = blend(pix[3], 255, a)
	}
}

func blend(dst, src uint8, a float32) uint8 {
	return uint8(float32(dst)*(1-a) + float32(src)*a + 0.5)
}

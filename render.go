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

package flipbook

import (
	"context"
	"image"
)

// renderJob describes a page render.  The fields are captured under the
// viewer mutex, the render itself runs without it.
type renderJob struct {
	gen  uint64
	doc  Document
	page int
	zoom float64
	fit  FitPolicy
}

// renderPage renders a page into s.  If s already holds the page at the
// required scale, nothing is done.  On failure the previous content of s
// is kept and a *RenderError is returned.
func (v *Viewer) renderPage(ctx context.Context, job renderJob, s *Surface) error {
	page, err := job.doc.Page(ctx, job.page)
	if err != nil {
		return &RenderError{Page: job.page, Err: err}
	}
	size := page.Size()
	sc := ComputeScale(v.viewport.Box(), job.fit, job.zoom, v.viewport.PixelDensity(), size)

	s.paint.Lock()
	defer s.paint.Unlock()

	if err := ctx.Err(); err != nil {
		return &RenderError{Page: job.page, Err: err}
	}
	if s.holds(job.gen, job.page, sc) {
		v.log.Debug("page already rendered", "page", job.page, "surface", s.key)
		return nil
	}

	w, h := sc.Pixels(size)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	err = page.Render(ctx, img, sc.Render)
	if err != nil {
		return &RenderError{Page: job.page, Err: err}
	}
	s.publish(job.gen, job.page, sc, img)

	v.mu.Lock()
	v.aspect = float64(w) / float64(h)
	v.mu.Unlock()

	v.log.Debug("page rendered", "page", job.page, "surface", s.key, "width", w, "height", h)
	return nil
}

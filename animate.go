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
	"image/color"
	"time"

	"golang.org/x/image/draw"
)

// An Animator plays the visual part of a page turn.
//
// Animate starts the animation and returns a channel which is closed
// when the animation has finished.  A nil channel means that there is
// nothing to wait for.  The viewer stops waiting when ctx is done, even
// if the channel is never closed; animators should stop at that point.
type Animator interface {
	Animate(ctx context.Context, tr Transition) <-chan struct{}
}

// NoAnimation swaps pages without any animation.
type NoAnimation struct{}

// Animate implements the Animator interface.
func (NoAnimation) Animate(context.Context, Transition) <-chan struct{} {
	return nil
}

// SlideAnimator slides the incoming page over the outgoing one.  Going
// forward, the pages move to the left; going back, to the right.
type SlideAnimator struct {
	// Duration is the length of the animation.  The default is 300ms.
	Duration time.Duration

	// FPS is the number of frames per second.  The default is 30.
	FPS int

	// Frame, if set, is called with every composited frame.  The image
	// is re-used for the next frame.
	Frame func(frame image.Image)
}

// Animate implements the Animator interface.
func (a *SlideAnimator) Animate(ctx context.Context, tr Transition) <-chan struct{} {
	duration := a.Duration
	if duration <= 0 {
		duration = 300 * time.Millisecond
	}
	fps := a.FPS
	if fps <= 0 {
		fps = 30
	}
	frames := max(1, int(duration.Seconds()*float64(fps)))

	done := make(chan struct{})
	go func() {
		defer close(done)

		from := tr.From.Image()
		to := tr.To.Image()
		bounds := image.Rect(0, 0, 1, 1)
		if to != nil {
			bounds = to.Bounds()
		} else if from != nil {
			bounds = from.Bounds()
		}
		canvas := image.NewRGBA(bounds)
		from = fitTo(from, bounds)
		to = fitTo(to, bounds)

		tick := time.NewTicker(duration / time.Duration(frames))
		defer tick.Stop()
		for i := 1; i <= frames; i++ {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
			}
			t := float64(i) / float64(frames)
			slide(canvas, from, to, ease(t), tr.Direction)
			if a.Frame != nil {
				a.Frame(canvas)
			}
		}
	}()
	return done
}

// fitTo returns img scaled to the given bounds.  Missing images become
// blank pages.
func fitTo(img *image.RGBA, bounds image.Rectangle) *image.RGBA {
	if img != nil && img.Bounds() == bounds {
		return img
	}
	res := image.NewRGBA(bounds)
	if img == nil {
		draw.Draw(res, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
		return res
	}
	draw.ApproxBiLinear.Scale(res, bounds, img, img.Bounds(), draw.Src, nil)
	return res
}

// slide composes one frame.  At t=0 only the outgoing page is visible,
// at t=1 only the incoming one.
func slide(dst, from, to *image.RGBA, t float64, dir Direction) {
	b := dst.Bounds()
	offs := int(t * float64(b.Dx()))
	if dir == Back {
		offs = -offs
	}

	draw.Draw(dst, b, from, b.Min.Add(image.Pt(offs, 0)), draw.Src)
	var inPos image.Point
	if dir == Back {
		inPos = b.Min.Add(image.Pt(b.Dx()+offs, 0))
	} else {
		inPos = b.Min.Add(image.Pt(offs-b.Dx(), 0))
	}
	r := b.Intersect(to.Bounds().Sub(inPos).Add(b.Min))
	draw.Draw(dst, r, to, r.Min.Add(inPos).Sub(b.Min), draw.Src)
}

func ease(t float64) float64 {
	return t * t * (3 - 2*t)
}

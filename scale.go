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
	"math"
	"strconv"
)

// MaxPixels bounds the number of pixels of a rendered page, regardless
// of zoom and pixel density.
const MaxPixels = 8_000_000

// Zoom limits.
const (
	MinZoom  = 0.5
	MaxZoom  = 3.0
	ZoomStep = 1.15
)

// Size is the extent of a box, either in device independent pixels or
// in PDF points.
type Size struct {
	Width, Height float64
}

func (s Size) valid() bool {
	return s.Width > 0 && s.Height > 0 &&
		!math.IsInf(s.Width, 0) && !math.IsInf(s.Height, 0)
}

// FitPolicy selects how a page is fitted into the viewport.
type FitPolicy int

const (
	// FitWidth scales the page to the width of the viewport.
	FitWidth FitPolicy = iota

	// FitBoth scales the page so that it fits the viewport in both
	// directions.
	FitBoth
)

func (f FitPolicy) String() string {
	switch f {
	case FitWidth:
		return "fit-width"
	case FitBoth:
		return "fit-both"
	default:
		return "FitPolicy(" + strconv.Itoa(int(f)) + ")"
	}
}

// Scale describes how a page is shown.
type Scale struct {
	// Render maps PDF points to pixels of the backing buffer.
	Render float64

	// Layout is the on-screen size of the page, in device independent
	// pixels.
	Layout Size
}

// ComputeScale returns the scale for showing a page of the given
// intrinsic size inside box.
//
// The layout size is the page size times the fit factor times zoom.
// The pixel density only changes the render resolution.  If the
// rendered page would exceed MaxPixels, the render scale is reduced
// while the layout size is kept.
//
// If the box or the page has no area, or if zoom is not a positive
// finite number, the zero Scale is returned.  Densities below 1 or not
// finite count as 1.
func ComputeScale(box Size, fit FitPolicy, zoom, density float64, page Size) Scale {
	if !box.valid() || !page.valid() || !(zoom > 0) || math.IsInf(zoom, 1) {
		return Scale{}
	}
	if !(density >= 1) || math.IsInf(density, 1) {
		density = 1
	}

	f := box.Width / page.Width
	if fit == FitBoth {
		f = min(f, box.Height/page.Height)
	}

	render := f * zoom * density
	estimated := (page.Width * render) * (page.Height * render)
	if estimated > MaxPixels {
		render *= math.Sqrt(MaxPixels / estimated)
	}

	return Scale{
		Render: render,
		Layout: Size{
			Width:  page.Width * f * zoom,
			Height: page.Height * f * zoom,
		},
	}
}

// Pixels returns the size of the backing buffer for a page of the given
// intrinsic size.  Both values are at least 1.
func (s Scale) Pixels(page Size) (width, height int) {
	return ceilPos(page.Width * s.Render), ceilPos(page.Height * s.Render)
}

// LayoutBox returns the on-screen size, rounded up to whole pixels.
func (s Scale) LayoutBox() (width, height int) {
	return ceilPos(s.Layout.Width), ceilPos(s.Layout.Height)
}

func ceilPos(x float64) int {
	if !(x >= 1) {
		return 1
	}
	return int(math.Ceil(x))
}

func clampZoom(z float64) float64 {
	return min(max(z, MinZoom), MaxZoom)
}

func clampPage(n, count int) int {
	return min(max(n, 1), count)
}

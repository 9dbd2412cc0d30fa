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
	"sync"
)

// An Opener turns a source locator into a document.
//
// Implementations should wrap their errors with ErrNotFound, ErrMalformed
// or ErrEncrypted where appropriate.
type Opener interface {
	Open(ctx context.Context, locator string) (Document, error)
}

// A Prober checks whether a document exists, without downloading it.
type Prober interface {
	Probe(ctx context.Context, locator string) error
}

// Document is a paginated document.  It is immutable once opened.
type Document interface {
	// NumPages returns the number of pages.  The result may be zero.
	NumPages() int

	// Page returns page n, where 1 <= n <= NumPages().
	Page(ctx context.Context, n int) (Page, error)

	Close() error
}

// Page is a single page of a document.
type Page interface {
	// Size returns the intrinsic page size in PDF points.
	Size() Size

	// Render paints the page into dst.  The scale maps PDF points to
	// pixels, the top-left corner of the page goes to dst.Rect.Min.
	// Render must stop early when ctx is cancelled.
	Render(ctx context.Context, dst *image.RGBA, scale float64) error
}

// Viewport reports the area available for showing a page.  The values
// are queried for every render.
type Viewport interface {
	// Box returns the available size in device independent pixels.
	Box() Size

	// PixelDensity returns the number of device pixels per device
	// independent pixel.
	PixelDensity() float64
}

// Location receives the current page after every completed transition,
// for example to update an address bar.
type Location interface {
	SetPage(page int)
}

// Reporter shows errors to the user.
type Reporter interface {
	Report(err error)
}

// FixedViewport is a Viewport with settable values.  It is safe for
// concurrent use.
type FixedViewport struct {
	mu      sync.Mutex
	box     Size
	density float64
}

// NewFixedViewport returns a viewport of the given size and density.
func NewFixedViewport(box Size, density float64) *FixedViewport {
	return &FixedViewport{box: box, density: density}
}

// Set changes the size and density.  Call Viewer.ViewportChanged
// afterwards to re-render.
func (v *FixedViewport) Set(box Size, density float64) {
	v.mu.Lock()
	v.box = box
	v.density = density
	v.mu.Unlock()
}

// Box implements the Viewport interface.
func (v *FixedViewport) Box() Size {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.box
}

// PixelDensity implements the Viewport interface.
func (v *FixedViewport) PixelDensity() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.density
}

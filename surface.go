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
	"image"
	"sync"
)

// SurfaceKey names one of the two surfaces of a viewer.
type SurfaceKey int

// The two surfaces.
const (
	SurfaceA SurfaceKey = iota
	SurfaceB
)

func (k SurfaceKey) String() string {
	if k == SurfaceA {
		return "A"
	}
	return "B"
}

func (k SurfaceKey) other() SurfaceKey {
	return 1 - k
}

// Role is a presentation hint for a surface taking part in a transition.
type Role int

// These are the possible roles.
const (
	RoleNone Role = iota
	RoleOutgoing
	RoleIncoming
)

func (r Role) String() string {
	switch r {
	case RoleOutgoing:
		return "outgoing"
	case RoleIncoming:
		return "incoming"
	default:
		return "none"
	}
}

// Surface is a render target holding one rendered page.
//
// A render never modifies an image which has been returned by Image;
// every render paints into a new buffer which replaces the old one when
// the render succeeds.
type Surface struct {
	key SurfaceKey

	// paint is held for the duration of every render into this surface.
	paint sync.Mutex

	mu     sync.Mutex
	role   Role
	gen    uint64 // load generation of the document the page belongs to
	page   int    // 0 if empty
	scale  Scale
	img    *image.RGBA
	layout image.Point
}

// Key returns the name of the surface.
func (s *Surface) Key() SurfaceKey {
	return s.key
}

// Page returns the number of the page shown on the surface, or 0 if the
// surface is empty.
func (s *Surface) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Image returns the pixel buffer of the surface, or nil if the surface is
// empty.  The caller must not modify the image.
func (s *Surface) Image() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img
}

// Layout returns the on-screen size of the surface in whole device
// independent pixels.
func (s *Surface) Layout() image.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout
}

// Scale returns the scale the current content was rendered at.
func (s *Surface) Scale() Scale {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scale
}

// Role returns the transition role of the surface.
func (s *Surface) Role() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

func (s *Surface) setRole(r Role) {
	s.mu.Lock()
	s.role = r
	s.mu.Unlock()
}

// holds reports whether the surface already shows page n of load
// generation gen, rendered at scale sc.
func (s *Surface) holds(gen uint64, n int, sc Scale) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img != nil && s.gen == gen && s.page == n && s.scale == sc
}

func (s *Surface) publish(gen uint64, n int, sc Scale, img *image.RGBA) {
	w, h := sc.LayoutBox()
	s.mu.Lock()
	s.gen = gen
	s.page = n
	s.scale = sc
	s.img = img
	s.layout = image.Point{X: w, Y: h}
	s.mu.Unlock()
}

// clear removes the content, waiting for a running render to finish.
func (s *Surface) clear() {
	s.paint.Lock()
	defer s.paint.Unlock()
	s.mu.Lock()
	s.gen = 0
	s.page = 0
	s.scale = Scale{}
	s.img = nil
	s.layout = image.Point{}
	s.role = RoleNone
	s.mu.Unlock()
}

// surfacePair is the dual-surface store.  Exactly one surface is active.
// The active key is protected by the Viewer's mutex.
type surfacePair struct {
	s      [2]*Surface
	active SurfaceKey
}

func newSurfacePair() surfacePair {
	return surfacePair{
		s: [2]*Surface{{key: SurfaceA}, {key: SurfaceB}},
	}
}

func (p *surfacePair) get(k SurfaceKey) *Surface {
	return p.s[k]
}

func (p *surfacePair) activeSurface() *Surface {
	return p.s[p.active]
}

func (p *surfacePair) inactiveSurface() *Surface {
	return p.s[p.active.other()]
}

// swap is the only operation which changes the active surface.
func (p *surfacePair) swap() {
	p.active = p.active.other()
}

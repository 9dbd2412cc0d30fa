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

// Package flipbook implements the presentation engine of a page-by-page
// document viewer.
//
// A [Viewer] shows one page of a document at a time.  It owns two
// surfaces, A and B.  One of them is active and shows the current page;
// a page turn renders the target page into the other one, plays an
// animation and then swaps the two.  Only one page turn, rescale or load
// can be in progress at any time; page turns requested in the meantime
// are dropped.
//
// After every page turn the following page is rendered into the
// inactive surface in the background, so that the next turn can start
// the animation immediately.
//
// Render resolution follows the viewport size, the fit policy, the zoom
// factor and the pixel density, but a rendered page never has more than
// [MaxPixels] pixels.
//
// Documents are provided by an [Opener].  The package
// seehuhn.de/go/flipbook/pdfdoc implements one for PDF files.
package flipbook

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
	"log/slog"
	"time"
)

// Default values for the Options fields.
const (
	DefaultTransitionTimeout = 2 * time.Second
	DefaultPreloadDelay      = 250 * time.Millisecond
	DefaultResizeDelay       = 16 * time.Millisecond
)

// Options configures a Viewer.  The zero value is usable, except that an
// Opener is needed to load documents.
type Options struct {
	// Opener opens documents for Load.
	Opener Opener

	// Prober, if set, is asked whether a document exists before it is
	// opened.  Probe failures are logged and the load continues.
	Prober Prober

	// Viewport gives the space available for a page.  If this is nil,
	// a fixed 1024x768 viewport at density 1 is used.
	Viewport Viewport

	// Animator plays page turns.  The default is NoAnimation.
	Animator Animator

	// Location, if set, is told the current page after every page turn.
	Location Location

	// Reporter, if set, receives errors which should be shown to the
	// user: load failures and render failures during page turns.
	Reporter Reporter

	// Logger receives diagnostic messages.  If this is nil, messages are
	// discarded.
	Logger *slog.Logger

	// OnChange, if set, is called with the new state whenever the state
	// of the viewer changes.  It is called without internal locks held and
	// may call methods of the viewer.
	OnChange func(State)

	// OnPreload, if set, is called after every preload attempt.
	OnPreload func(page int, err error)

	// TransitionTimeout bounds the time spent waiting for the Animator.
	// The default is DefaultTransitionTimeout.
	TransitionTimeout time.Duration

	// PreloadDelay is the quiet period before the next page is rendered
	// in the background.  The default is DefaultPreloadDelay.
	PreloadDelay time.Duration

	// ResizeDelay is the quiet period before a viewport change causes a
	// re-render.  The default is DefaultResizeDelay.
	ResizeDelay time.Duration

	// Fit is the initial fit policy.
	Fit FitPolicy
}

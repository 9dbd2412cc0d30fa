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

package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"seehuhn.de/go/flipbook"
)

// ui connects a viewer to the terminal.  It implements the
// flipbook.Reporter interface.
type ui struct {
	term   *terminal
	viewer *flipbook.Viewer
	out    string
	logger *slog.Logger

	mu       sync.Mutex
	state    flipbook.State
	address  string
	banner   string // last error, shown until the next key press
	entry    string // page number being typed, if entering is true
	entering bool
	frames   int
}

// Report implements the flipbook.Reporter interface.
func (u *ui) Report(err error) {
	msg := err.Error()
	var loadErr *flipbook.LoadError
	if errors.As(err, &loadErr) && loadErr.Hint() != "" {
		msg += " (" + loadErr.Hint() + ")"
	}
	u.mu.Lock()
	u.banner = msg
	u.mu.Unlock()
	u.redraw()
}

func (u *ui) stateChanged(s flipbook.State) {
	u.mu.Lock()
	u.state = s
	u.mu.Unlock()

	if s.Loaded && !s.Transitioning && !s.Loading && u.viewer != nil {
		if err := u.snapshot(); err != nil {
			u.logger.Warn("cannot write snapshot", "file", u.out, "err", err)
		}
	}
	u.redraw()
}

func (u *ui) setAddress(addr string) {
	u.mu.Lock()
	u.address = addr
	u.mu.Unlock()
}

// frame is called for every frame of a page turn animation.
func (u *ui) frame(image.Image) {
	u.mu.Lock()
	u.frames++
	u.mu.Unlock()
	u.redraw()
}

func (u *ui) redraw() {
	u.term.status(u.statusLine())
}

func (u *ui) statusLine() string {
	u.mu.Lock()
	defer u.mu.Unlock()

	s := u.state
	if u.entering {
		return "go to page: " + u.entry
	}
	if u.banner != "" {
		return "error: " + u.banner
	}
	if s.Loading {
		return "loading " + s.Locator
	}
	if !s.Loaded {
		return "no document"
	}

	line := fmt.Sprintf("page %d/%d  %d%%  %s", s.CurrentPage, s.PageCount, s.ZoomPercent(), s.Fit)
	if s.Transitioning {
		line += fmt.Sprintf("  turning (%d frames)", u.frames)
	}
	if !s.CanPrev() {
		line += "  [first]"
	}
	if !s.CanNext() {
		line += "  [last]"
	}
	return line + "  " + u.address
}

// snapshot writes the active surface to the output file.  The file is
// replaced atomically.
func (u *ui) snapshot() error {
	img := u.viewer.ActiveSurface().Image()
	if img == nil {
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(u.out), ".flipbook-*.png")
	if err != nil {
		return err
	}
	err = png.Encode(tmp, img)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	err = tmp.Close()
	if err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), u.out)
}

// loop handles key presses until the user quits.
func (u *ui) loop(ctx context.Context, viewport *flipbook.FixedViewport, density float64) error {
	v := u.viewer
	for {
		key, err := u.term.readKey()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}

		if box := u.term.viewport(); box != viewport.Box() {
			viewport.Set(box, density)
			v.ViewportChanged()
		}

		u.mu.Lock()
		u.banner = ""
		entering := u.entering
		u.mu.Unlock()

		if entering {
			u.editEntry(ctx, key)
			u.redraw()
			continue
		}

		switch key.kind {
		case keyQuit:
			return nil
		case keyNext:
			err = v.Next(ctx)
		case keyPrev:
			err = v.Prev(ctx)
		case keyFirst:
			err = v.GoToPageAuto(ctx, 1)
		case keyLast:
			err = v.GoToPageAuto(ctx, v.State().PageCount)
		case keyZoomIn:
			err = v.ZoomIn(ctx)
		case keyZoomOut:
			err = v.ZoomOut(ctx)
		case keyZoomReset:
			err = v.ResetZoom(ctx)
		case keyFit:
			fit := flipbook.FitBoth
			if v.State().Fit == flipbook.FitBoth {
				fit = flipbook.FitWidth
			}
			err = v.SetFitPolicy(ctx, fit)
		case keyGoTo:
			u.mu.Lock()
			u.entering = true
			u.entry = ""
			u.mu.Unlock()
		case keyDigit:
			u.mu.Lock()
			u.entering = true
			u.entry = string(key.r)
			u.mu.Unlock()
		}
		if err != nil {
			// failures were already shown through Report
			u.logger.Debug("command failed", "err", err)
		}
		u.redraw()
	}
}

// editEntry handles key presses while a page number is typed.
func (u *ui) editEntry(ctx context.Context, key keyEvent) {
	u.mu.Lock()
	switch key.kind {
	case keyDigit:
		u.entry += string(key.r)
	case keyZoomReset:
		u.entry += "0"
	case keyBackspace:
		if n := len(u.entry); n > 0 {
			u.entry = u.entry[:n-1]
		}
	case keyEscape, keyQuit:
		u.entering = false
	case keyEnter:
		u.entering = false
		entry := u.entry
		u.mu.Unlock()
		if n, err := strconv.Atoi(entry); err == nil {
			err = u.viewer.GoToPageAuto(ctx, n)
			if err != nil {
				u.logger.Debug("page change failed", "page", n, "err", err)
			}
		}
		return
	}
	u.mu.Unlock()
}

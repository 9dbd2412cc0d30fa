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
	"errors"
)

// Direction is the direction of a page turn.
type Direction int

// These are the possible directions.
const (
	Forward Direction = iota
	Back
)

func (d Direction) String() string {
	if d == Back {
		return "back"
	}
	return "forward"
}

// Transition describes a page turn in progress.  At most one transition
// exists at any time.
type Transition struct {
	Page      int
	Direction Direction
	From      *Surface // the active surface, moving out
	To        *Surface // holds the target page, moving in
}

// GoToPage turns to page n.  The page number is clamped to the valid
// range.
//
// The call is a no-op if no document is loaded, if n is the current
// page, or if another transition, rescale or load is in progress.  Such
// requests are dropped, not queued.
//
// The target page is rendered into the inactive surface, the animation
// is played, and only then do the surfaces swap.  If rendering fails,
// the error is reported and returned, and the viewer stays on the
// current page.
func (v *Viewer) GoToPage(ctx context.Context, n int, dir Direction) error {
	v.mu.Lock()
	if v.closed || v.doc == nil || v.pageCount == 0 {
		v.mu.Unlock()
		return nil
	}
	n = clampPage(n, v.pageCount)
	if n == v.current || v.phase != phaseIdle {
		v.mu.Unlock()
		return nil
	}
	v.phase = phaseTransition
	v.cancelPreloadLocked()
	job := v.jobLocked(n)
	from := v.surfaces.activeSurface()
	to := v.surfaces.inactiveSurface()
	v.running.Add(1)
	v.mu.Unlock()
	defer v.running.Done()
	ctx, cancel := v.bind(ctx)
	defer cancel()

	v.preloader.Cancel()
	from.setRole(RoleOutgoing)
	to.setRole(RoleIncoming)
	v.changed()

	err := v.renderPage(ctx, job, to)
	if err != nil {
		from.setRole(RoleNone)
		to.setRole(RoleNone)
		v.mu.Lock()
		v.phase = phaseIdle
		v.mu.Unlock()
		v.changed()

		if errors.Is(err, context.Canceled) {
			v.log.Debug("page turn cancelled", "page", n)
		} else {
			v.log.Error("page turn failed", "page", n, "err", err)
			v.report(err)
		}
		return err
	}

	v.animate(ctx, Transition{Page: n, Direction: dir, From: from, To: to})

	from.setRole(RoleNone)
	to.setRole(RoleNone)
	v.mu.Lock()
	v.surfaces.swap()
	v.current = n
	v.phase = phaseIdle
	v.mu.Unlock()

	v.changed()
	v.preloader.Schedule()
	if v.location != nil {
		v.location.SetPage(n)
	}
	return nil
}

// Next turns to the following page.
func (v *Viewer) Next(ctx context.Context) error {
	v.mu.Lock()
	n := v.current + 1
	v.mu.Unlock()
	return v.GoToPage(ctx, n, Forward)
}

// Prev turns to the preceding page.
func (v *Viewer) Prev(ctx context.Context) error {
	v.mu.Lock()
	n := v.current - 1
	v.mu.Unlock()
	return v.GoToPage(ctx, n, Back)
}

// GoToPageAuto turns to page n, animating forward if n lies after the
// current page and backward otherwise.
func (v *Viewer) GoToPageAuto(ctx context.Context, n int) error {
	v.mu.Lock()
	dir := Forward
	if n < v.current {
		dir = Back
	}
	v.mu.Unlock()
	return v.GoToPage(ctx, n, dir)
}

// animate plays the transition animation and waits until it completes,
// the transition timeout expires, or ctx is cancelled.
func (v *Viewer) animate(ctx context.Context, tr Transition) {
	actx, cancel := context.WithTimeout(ctx, v.transitionTimeout)
	defer cancel()

	done := v.animator.Animate(actx, tr)
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-actx.Done():
		if ctx.Err() == nil {
			v.log.Warn("transition animation did not finish", "page", tr.Page, "timeout", v.transitionTimeout)
		}
	}
}

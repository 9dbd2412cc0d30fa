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

import "context"

// preloadJob is an in-flight preload render.
type preloadJob struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// preload renders the page after the current one into the inactive
// surface.  It runs from the preload debouncer and does nothing unless
// the viewer is idle.  Failures are logged and otherwise ignored.
func (v *Viewer) preload() {
	v.mu.Lock()
	if v.closed || v.doc == nil || v.phase != phaseIdle || v.current+1 > v.pageCount {
		v.mu.Unlock()
		return
	}
	job := v.jobLocked(v.current + 1)
	s := v.surfaces.inactiveSurface()
	ctx, cancel := context.WithCancel(v.closing)
	v.cancelPreloadLocked()
	p := &preloadJob{cancel: cancel, done: make(chan struct{})}
	v.preloading = p
	v.running.Add(1)
	v.mu.Unlock()
	defer v.running.Done()
	defer close(p.done)

	err := v.renderPage(ctx, job, s)

	v.mu.Lock()
	if v.preloading == p {
		v.preloading = nil
	}
	v.mu.Unlock()
	cancel()

	if err != nil {
		v.log.Debug("preload failed", "page", job.page, "err", err)
	}
	if v.onPreload != nil {
		v.onPreload(job.page, err)
	}
}

// cancelPreloadLocked aborts a running preload render and returns it, so
// that the caller can wait for it to finish.  The caller must hold v.mu.
func (v *Viewer) cancelPreloadLocked() *preloadJob {
	p := v.preloading
	if p != nil {
		p.cancel()
		v.preloading = nil
	}
	return p
}

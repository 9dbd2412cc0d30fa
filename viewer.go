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
	"log/slog"
	"math"
	"sync"
	"time"
)

// phase is what the viewer is busy with.  All phases other than
// phaseIdle exclude each other.
type phase int

const (
	phaseIdle phase = iota
	phaseTransition
	phaseRescale
	phaseLoading
)

// State is a snapshot of the viewer state.
type State struct {
	Locator       string
	Loaded        bool // a document is open
	Loading       bool
	PageCount     int
	CurrentPage   int // 0 if no page is shown
	Active        SurfaceKey
	Transitioning bool
	Zoom          float64
	Fit           FitPolicy

	// Aspect is the width/height ratio of the last rendered page, or 0.
	Aspect float64
}

// CanPrev reports whether there is a page before the current one.
func (s State) CanPrev() bool {
	return s.Loaded && !s.Transitioning && s.CurrentPage > 1
}

// CanNext reports whether there is a page after the current one.
func (s State) CanNext() bool {
	return s.Loaded && !s.Transitioning && s.CurrentPage < s.PageCount
}

// ZoomPercent returns the zoom factor in percent, rounded.
func (s State) ZoomPercent() int {
	return int(math.Round(s.Zoom * 100))
}

// Viewer shows one document at a time, one page at a time, using two
// alternating surfaces.  All methods are safe for concurrent use.
type Viewer struct {
	opener            Opener
	prober            Prober
	viewport          Viewport
	animator          Animator
	location          Location
	reporter          Reporter
	log               *slog.Logger
	onChange          func(State)
	onPreload         func(int, error)
	transitionTimeout time.Duration

	preloader *debouncer
	resizer   *debouncer

	// running counts operations which use the document outside of mu.
	running sync.WaitGroup

	// closing is cancelled by Close.  Renders run under contexts
	// derived from it.
	closing  context.Context
	shutdown context.CancelFunc

	mu         sync.Mutex
	closed     bool
	phase      phase
	gen        uint64
	locator    string
	doc        Document
	pageCount  int
	current    int
	zoom       float64
	fit        FitPolicy
	aspect     float64
	surfaces   surfacePair
	preloading *preloadJob
}

// New returns a viewer with no document loaded.
func New(opts Options) *Viewer {
	v := &Viewer{
		opener:            opts.Opener,
		prober:            opts.Prober,
		viewport:          opts.Viewport,
		animator:          opts.Animator,
		location:          opts.Location,
		reporter:          opts.Reporter,
		log:               opts.Logger,
		onChange:          opts.OnChange,
		onPreload:         opts.OnPreload,
		transitionTimeout: opts.TransitionTimeout,
		zoom:              1,
		fit:               opts.Fit,
		surfaces:          newSurfacePair(),
	}
	if v.viewport == nil {
		v.viewport = NewFixedViewport(Size{Width: 1024, Height: 768}, 1)
	}
	if v.animator == nil {
		v.animator = NoAnimation{}
	}
	if v.log == nil {
		v.log = slog.New(slog.DiscardHandler)
	}
	if v.transitionTimeout <= 0 {
		v.transitionTimeout = DefaultTransitionTimeout
	}
	preloadDelay := opts.PreloadDelay
	if preloadDelay <= 0 {
		preloadDelay = DefaultPreloadDelay
	}
	resizeDelay := opts.ResizeDelay
	if resizeDelay <= 0 {
		resizeDelay = DefaultResizeDelay
	}
	v.closing, v.shutdown = context.WithCancel(context.Background())
	v.preloader = newDebouncer(preloadDelay, v.preload)
	v.resizer = newDebouncer(resizeDelay, v.resize)
	return v
}

// Close stops all background work, cancels running renders, waits for
// running operations to finish and closes the document.
func (v *Viewer) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	v.cancelPreloadLocked()
	v.shutdown()
	v.mu.Unlock()

	v.preloader.Stop()
	v.resizer.Stop()
	v.running.Wait()

	v.mu.Lock()
	doc := v.doc
	v.doc = nil
	v.pageCount = 0
	v.current = 0
	v.mu.Unlock()

	if doc != nil {
		return doc.Close()
	}
	return nil
}

// Load opens the document at locator and shows the given page, clamped
// to the valid range.  The first page is rendered directly into the
// active surface, without animation.
//
// Any previously loaded document is closed first.  On failure a
// *LoadError is reported and returned, and the viewer is left empty.
// If the viewer is busy, ErrBusy is returned and nothing happens.
func (v *Viewer) Load(ctx context.Context, locator string, page int) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	if v.phase != phaseIdle {
		v.mu.Unlock()
		return ErrBusy
	}
	v.phase = phaseLoading
	pending := v.cancelPreloadLocked()
	v.gen++
	gen := v.gen
	old := v.doc
	v.doc = nil
	v.pageCount = 0
	v.current = 0
	v.locator = locator
	zoom, fit := v.zoom, v.fit
	v.running.Add(1)
	v.mu.Unlock()
	defer v.running.Done()
	ctx, cancel := v.bind(ctx)
	defer cancel()

	v.preloader.Cancel()
	if pending != nil {
		<-pending.done
	}
	v.changed()

	if old != nil {
		if err := old.Close(); err != nil {
			v.log.Warn("closing previous document failed", "err", err)
		}
	}
	for _, s := range v.surfaces.s {
		s.clear()
	}

	doc, n, err := v.open(ctx, locator, page)
	if err == nil && n > 0 {
		job := renderJob{gen: gen, doc: doc, page: n, zoom: zoom, fit: fit}
		v.mu.Lock()
		active := v.surfaces.activeSurface()
		v.mu.Unlock()
		if rerr := v.renderPage(ctx, job, active); rerr != nil {
			if cerr := doc.Close(); cerr != nil {
				v.log.Warn("closing document failed", "err", cerr)
			}
			err = &LoadError{Locator: locator, Reason: ReasonRender, Err: rerr}
		}
	}
	if err != nil {
		v.mu.Lock()
		v.phase = phaseIdle
		v.mu.Unlock()
		if v.closing.Err() != nil {
			v.log.Debug("load cancelled by Close", "locator", locator)
		} else {
			v.log.Error("load failed", "locator", locator, "err", err)
			v.report(err)
		}
		v.changed()
		return err
	}

	v.mu.Lock()
	v.doc = doc
	v.pageCount = doc.NumPages()
	v.current = n
	v.phase = phaseIdle
	v.mu.Unlock()

	v.log.Info("document loaded", "locator", locator, "pages", doc.NumPages(), "page", n)
	v.changed()
	v.preloader.Schedule()
	return nil
}

// open probes and opens the document and returns the page to show first.
func (v *Viewer) open(ctx context.Context, locator string, page int) (Document, int, error) {
	if locator == "" {
		return nil, 0, &LoadError{Reason: ReasonNoSource}
	}
	if v.opener == nil {
		return nil, 0, &LoadError{Locator: locator, Err: errors.New("no opener configured")}
	}

	if v.prober != nil {
		if err := v.prober.Probe(ctx, locator); err != nil {
			v.log.Warn("probe failed", "locator", locator, "err", err)
		}
	}

	doc, err := v.opener.Open(ctx, locator)
	if err != nil {
		return nil, 0, &LoadError{Locator: locator, Reason: classify(err), Err: err}
	}

	count := doc.NumPages()
	if count <= 0 {
		return doc, 0, nil
	}
	return doc, clampPage(page, count), nil
}

// ZoomIn enlarges the page by one zoom step.
func (v *Viewer) ZoomIn(ctx context.Context) error {
	return v.rescale(ctx, func() { v.zoom = clampZoom(v.zoom * ZoomStep) })
}

// ZoomOut shrinks the page by one zoom step.
func (v *Viewer) ZoomOut(ctx context.Context) error {
	return v.rescale(ctx, func() { v.zoom = clampZoom(v.zoom / ZoomStep) })
}

// ResetZoom sets the zoom factor back to 1.
func (v *Viewer) ResetZoom(ctx context.Context) error {
	return v.rescale(ctx, func() { v.zoom = 1 })
}

// SetFitPolicy changes the fit policy.
func (v *Viewer) SetFitPolicy(ctx context.Context, fit FitPolicy) error {
	return v.rescale(ctx, func() { v.fit = fit })
}

// ViewportChanged tells the viewer that the viewport size or density has
// changed.  The active page is re-rendered after a short delay; further
// calls during this delay restart it.
func (v *Viewer) ViewportChanged() {
	v.resizer.Schedule()
}

// resize runs from the resize debouncer.  While the viewer is busy, the
// resize is re-armed.
func (v *Viewer) resize() {
	if v.tryRescale(context.Background(), nil) == errRescaleBusy {
		v.resizer.Schedule()
	}
}

// rescale applies update and re-renders the active surface in place.
// While the viewer is busy the call is ignored.
func (v *Viewer) rescale(ctx context.Context, update func()) error {
	err := v.tryRescale(ctx, update)
	if err == errRescaleBusy {
		return nil
	}
	return err
}

var errRescaleBusy = errors.New("busy")

func (v *Viewer) tryRescale(ctx context.Context, update func()) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	if v.phase != phaseIdle {
		v.mu.Unlock()
		return errRescaleBusy
	}
	zoom, fit := v.zoom, v.fit
	if update != nil {
		update()
	}
	changed := v.zoom != zoom || v.fit != fit
	if v.doc == nil || v.current == 0 {
		v.mu.Unlock()
		if changed {
			v.changed()
		}
		return nil
	}
	v.phase = phaseRescale
	v.cancelPreloadLocked()
	job := v.jobLocked(v.current)
	s := v.surfaces.activeSurface()
	v.running.Add(1)
	v.mu.Unlock()
	defer v.running.Done()
	ctx, cancel := v.bind(ctx)
	defer cancel()

	v.preloader.Cancel()
	if changed {
		v.changed()
	}

	err := v.renderPage(ctx, job, s)

	v.mu.Lock()
	v.phase = phaseIdle
	v.mu.Unlock()
	v.changed()

	if err != nil {
		if v.closing.Err() != nil {
			v.log.Debug("re-render cancelled by Close", "page", job.page)
		} else {
			v.log.Error("re-render failed", "page", job.page, "err", err)
			v.report(err)
		}
		return err
	}
	v.preloader.Schedule()
	return nil
}

// State returns a snapshot of the viewer state.
func (v *Viewer) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return State{
		Locator:       v.locator,
		Loaded:        v.doc != nil,
		Loading:       v.phase == phaseLoading,
		PageCount:     v.pageCount,
		CurrentPage:   v.current,
		Active:        v.surfaces.active,
		Transitioning: v.phase == phaseTransition,
		Zoom:          v.zoom,
		Fit:           v.fit,
		Aspect:        v.aspect,
	}
}

// Surface returns one of the two surfaces.
func (v *Viewer) Surface(key SurfaceKey) *Surface {
	return v.surfaces.get(key)
}

// ActiveSurface returns the surface currently presented to the user.
func (v *Viewer) ActiveSurface() *Surface {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.surfaces.activeSurface()
}

// jobLocked describes a render of page n of the current document with
// the current settings.  The caller must hold v.mu.
func (v *Viewer) jobLocked(n int) renderJob {
	return renderJob{gen: v.gen, doc: v.doc, page: n, zoom: v.zoom, fit: v.fit}
}

// bind returns a context which is cancelled when ctx is done or when the
// viewer is closed.
func (v *Viewer) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(v.closing, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (v *Viewer) changed() {
	if v.onChange != nil {
		v.onChange(v.State())
	}
}

func (v *Viewer) report(err error) {
	if v.reporter != nil {
		v.reporter.Report(err)
	}
}

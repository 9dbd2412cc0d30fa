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
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"testing"
	"time"
)

var errBrokenPage = errors.New("broken page")

// fakeDoc is an in-memory document.  Pages can be made to fail or to
// block until released.
type fakeDoc struct {
	pages int
	size  Size

	mu      sync.Mutex
	renders map[int]int
	fail    map[int]bool
	gate    map[int]chan struct{} // render blocks until closed
	started chan int
	closed  bool
}

func newFakeDoc(pages int) *fakeDoc {
	return &fakeDoc{
		pages:   pages,
		size:    Size{Width: 200, Height: 100},
		renders: map[int]int{},
		fail:    map[int]bool{},
		gate:    map[int]chan struct{}{},
		started: make(chan int, 100),
	}
}

func (d *fakeDoc) NumPages() int { return d.pages }

func (d *fakeDoc) Page(_ context.Context, n int) (Page, error) {
	if n < 1 || n > d.pages {
		return nil, fmt.Errorf("page %d out of range", n)
	}
	return &fakePage{doc: d, n: n}, nil
}

func (d *fakeDoc) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// block makes renders of page n wait until the returned function is
// called.
func (d *fakeDoc) block(n int) (release func()) {
	ch := make(chan struct{})
	d.mu.Lock()
	d.gate[n] = ch
	d.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (d *fakeDoc) setFail(n int, fail bool) {
	d.mu.Lock()
	d.fail[n] = fail
	d.mu.Unlock()
}

func (d *fakeDoc) renderCount(n int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.renders[n]
}

func (d *fakeDoc) totalRenders() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	total := 0
	for _, c := range d.renders {
		total += c
	}
	return total
}

func (d *fakeDoc) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

type fakePage struct {
	doc *fakeDoc
	n   int
}

func (p *fakePage) Size() Size { return p.doc.size }

// Render fills dst with a gray level identifying the page.
func (p *fakePage) Render(ctx context.Context, dst *image.RGBA, _ float64) error {
	d := p.doc
	d.mu.Lock()
	gate := d.gate[p.n]
	fail := d.fail[p.n]
	d.mu.Unlock()

	select {
	case d.started <- p.n:
	default:
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if fail {
		return errBrokenPage
	}

	draw.Draw(dst, dst.Bounds(), image.NewUniform(pageColor(p.n)), image.Point{}, draw.Src)
	d.mu.Lock()
	d.renders[p.n]++
	d.mu.Unlock()
	return nil
}

func pageColor(n int) color.RGBA {
	return color.RGBA{R: uint8(n), G: uint8(n), B: uint8(n), A: 255}
}

// shownPage returns the page number painted into a surface by fakePage.
func shownPage(s *Surface) int {
	img := s.Image()
	if img == nil {
		return 0
	}
	return int(img.RGBAAt(0, 0).R)
}

type fakeOpener struct {
	doc  *fakeDoc
	err  error
	hits int
}

func (o *fakeOpener) Open(context.Context, string) (Document, error) {
	o.hits++
	if o.err != nil {
		return nil, o.err
	}
	return o.doc, nil
}

type fakeProber struct {
	err error
}

func (p fakeProber) Probe(context.Context, string) error {
	return p.err
}

type recorder struct {
	mu    sync.Mutex
	errs  []error
	pages []int
}

func (r *recorder) Report(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *recorder) SetPage(n int) {
	r.mu.Lock()
	r.pages = append(r.pages, n)
	r.mu.Unlock()
}

func (r *recorder) reported() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func (r *recorder) locations() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.pages...)
}

// hangingAnimator never finishes.
type hangingAnimator struct{}

func (hangingAnimator) Animate(context.Context, Transition) <-chan struct{} {
	return make(chan struct{})
}

// newTestViewer returns a viewer showing page 1 of doc.  Preloading is
// effectively disabled unless opts sets a PreloadDelay.
func newTestViewer(t *testing.T, doc *fakeDoc, opts Options) (*Viewer, *recorder) {
	t.Helper()
	rec := &recorder{}
	if opts.Opener == nil {
		opts.Opener = &fakeOpener{doc: doc}
	}
	if opts.PreloadDelay == 0 {
		opts.PreloadDelay = time.Hour
	}
	if opts.Viewport == nil {
		opts.Viewport = NewFixedViewport(Size{Width: 400, Height: 300}, 1)
	}
	opts.Reporter = rec
	opts.Location = rec
	v := New(opts)
	t.Cleanup(func() { v.Close() })

	if err := v.Load(context.Background(), "test.pdf", 1); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return v, rec
}

// waitStarted waits until a render of page n has started.
func waitStarted(t *testing.T, doc *fakeDoc, n int) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case got := <-doc.started:
			if got == n {
				return
			}
		case <-timeout:
			t.Fatalf("render of page %d did not start", n)
		}
	}
}

// eventually polls cond until it holds.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

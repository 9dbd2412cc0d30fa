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

package pdfdoc

import (
	"context"
	"errors"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"seehuhn.de/go/flipbook"
	"seehuhn.de/go/flipbook/testdocs"
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

func sample(t *testing.T, opt *testdocs.Options) []byte {
	t.Helper()
	data, err := testdocs.Bytes(opt)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func openSample(t *testing.T, opt *testdocs.Options) *Document {
	t.Helper()
	doc, err := New(nil).OpenBytes(sample(t, opt))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { doc.Close() })
	return doc
}

func render(t *testing.T, doc *Document, n int, scale float64) *image.RGBA {
	t.Helper()
	ctx := context.Background()
	page, err := doc.Page(ctx, n)
	if err != nil {
		t.Fatal(err)
	}
	size := page.Size()
	w := int(size.Width*scale + 0.5)
	h := int(size.Height*scale + 0.5)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	err = page.Render(ctx, img, scale)
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func TestPages(t *testing.T) {
	doc := openSample(t, &testdocs.Options{Pages: 5})
	if n := doc.NumPages(); n != 5 {
		t.Fatalf("got %d pages, want 5", n)
	}

	ctx := context.Background()
	page, err := doc.Page(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	want := flipbook.Size{Width: 595, Height: 420}
	if d := cmp.Diff(want, page.Size()); d != "" {
		t.Errorf("page size (-want +got):\n%s", d)
	}

	for _, n := range []int{0, 6, -1} {
		if _, err := doc.Page(ctx, n); err == nil {
			t.Errorf("page %d: expected an error", n)
		}
	}
}

func TestNoPages(t *testing.T) {
	doc := openSample(t, &testdocs.Options{Pages: -1})
	if n := doc.NumPages(); n != 0 {
		t.Errorf("got %d pages, want 0", n)
	}
}

func TestRenderMarker(t *testing.T) {
	doc := openSample(t, &testdocs.Options{Pages: 3})
	for k := 1; k <= 3; k++ {
		img := render(t, doc, k, 1)
		if got := img.RGBAAt(5, 5); got != gray(k) {
			t.Errorf("page %d: marker is %v, want %v", k, got, gray(k))
		}
		if got := img.RGBAAt(300, 5); got != white {
			t.Errorf("page %d: background is %v, want white", k, got)
		}
	}
}

func TestRenderFill(t *testing.T) {
	doc := openSample(t, nil)
	img := render(t, doc, 1, 1)

	// page 1 shows a red square filling the middle 80% of the shape box
	x, y, size := testdocs.ShapeBox(595, 420)
	cx := int(x + size/2)
	cy := 420 - int(y+size/2)
	want := color.RGBA{R: 255, A: 255}
	if got := img.RGBAAt(cx, cy); got != want {
		t.Errorf("centre of the square is %v, want %v", got, want)
	}
	if got := img.RGBAAt(int(x)+2, 420-int(y)-2); got != white {
		t.Errorf("margin of the shape box is %v, want white", got)
	}
}

func TestRenderStroke(t *testing.T) {
	doc := openSample(t, &testdocs.Options{Pages: len(testdocs.Shapes)})
	for k := 1; k <= doc.NumPages(); k++ {
		shape := testdocs.ShapeFor(k)
		img := render(t, doc, k, 0.5)

		found := false
		want := color.RGBA{R: shape.Color.R, G: shape.Color.G, B: shape.Color.B, A: 255}
		for y := img.Rect.Min.Y; y < img.Rect.Max.Y && !found; y++ {
			for x := img.Rect.Min.X; x < img.Rect.Max.X; x++ {
				if img.RGBAAt(x, y) == want {
					found = true
					break
				}
			}
		}
		if !found {
			t.Errorf("page %d: shape %q not painted", k, shape.Name)
		}
	}
}

func TestRenderScaleAndOffset(t *testing.T) {
	doc := openSample(t, &testdocs.Options{Pages: 2})
	ctx := context.Background()
	page, err := doc.Page(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}

	img := image.NewRGBA(image.Rect(100, 50, 398, 260))
	err = page.Render(ctx, img, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if got := img.RGBAAt(102, 52); got != gray(2) {
		t.Errorf("marker is %v, want %v", got, gray(2))
	}
	if got := img.RGBAAt(112, 52); got != white {
		t.Errorf("right of the marker is %v, want white", got)
	}
}

func TestRotate(t *testing.T) {
	doc := openSample(t, &testdocs.Options{Rotate: 90})
	page, err := doc.Page(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	want := flipbook.Size{Width: 420, Height: 595}
	if d := cmp.Diff(want, page.Size()); d != "" {
		t.Errorf("page size (-want +got):\n%s", d)
	}

	// after a clockwise quarter turn the marker is in the top-right corner
	img := render(t, doc, 1, 1)
	if got := img.RGBAAt(415, 5); got != gray(1) {
		t.Errorf("top-right is %v, want the marker", got)
	}
	if got := img.RGBAAt(5, 5); got != white {
		t.Errorf("top-left is %v, want white", got)
	}
}

func TestRenderCancelled(t *testing.T) {
	doc := openSample(t, nil)
	page, err := doc.Page(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	err = page.Render(ctx, img, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestClosed(t *testing.T) {
	doc, err := New(nil).OpenBytes(sample(t, nil))
	if err != nil {
		t.Fatal(err)
	}
	page, err := doc.Page(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := doc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := doc.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	if err := page.Render(context.Background(), img, 1); err == nil {
		t.Error("render after Close succeeded")
	}
}

func TestOpenFile(t *testing.T) {
	dir := t.TempDir()
	fname := filepath.Join(dir, "book.pdf")
	err := os.WriteFile(fname, sample(t, &testdocs.Options{Pages: 4}), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	o := New(nil)
	for _, locator := range []string{fname, "file://" + fname} {
		if err := o.Probe(ctx, locator); err != nil {
			t.Errorf("Probe(%q): %v", locator, err)
		}
		doc, err := o.Open(ctx, locator)
		if err != nil {
			t.Fatalf("Open(%q): %v", locator, err)
		}
		if n := doc.NumPages(); n != 4 {
			t.Errorf("%q: got %d pages, want 4", locator, n)
		}
		if err := doc.Close(); err != nil {
			t.Error(err)
		}
	}

	missing := filepath.Join(dir, "missing.pdf")
	if _, err := o.Open(ctx, missing); !errors.Is(err, flipbook.ErrNotFound) {
		t.Errorf("Open missing file: got %v, want ErrNotFound", err)
	}
	if err := o.Probe(ctx, missing); !errors.Is(err, flipbook.ErrNotFound) {
		t.Errorf("Probe missing file: got %v, want ErrNotFound", err)
	}
}

func TestMalformed(t *testing.T) {
	o := New(nil)
	_, err := o.OpenBytes([]byte("this is not a PDF file, just some text"))
	if !errors.Is(err, flipbook.ErrMalformed) {
		t.Errorf("got %v, want ErrMalformed", err)
	}
}

func TestEncrypted(t *testing.T) {
	data := sample(t, &testdocs.Options{Pages: 2, UserPassword: "secret"})

	_, err := New(nil).OpenBytes(data)
	if !errors.Is(err, flipbook.ErrEncrypted) {
		t.Errorf("no password: got %v, want ErrEncrypted", err)
	}

	var tries []int
	o := New(&Options{
		Password: func(try int) string {
			tries = append(tries, try)
			if try == 0 {
				return "wrong"
			}
			return "secret"
		},
	})
	doc, err := o.OpenBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()
	if len(tries) < 2 || tries[0] != 0 {
		t.Errorf("password tries: %v", tries)
	}
	img := render(t, doc, 2, 1)
	if got := img.RGBAAt(5, 5); got != gray(2) {
		t.Errorf("marker is %v, want %v", got, gray(2))
	}
}

func TestHTTP(t *testing.T) {
	data := sample(t, &testdocs.Options{Pages: 3})
	mux := http.NewServeMux()
	mux.HandleFunc("/book.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(data)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oops", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	o := New(&Options{Client: srv.Client()})

	if err := o.Probe(ctx, srv.URL+"/book.pdf"); err != nil {
		t.Errorf("Probe: %v", err)
	}
	doc, err := o.Open(ctx, srv.URL+"/book.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if n := doc.NumPages(); n != 3 {
		t.Errorf("got %d pages, want 3", n)
	}
	doc.Close()

	_, err = o.Open(ctx, srv.URL+"/missing.pdf")
	if !errors.Is(err, flipbook.ErrNotFound) {
		t.Errorf("missing: got %v, want ErrNotFound", err)
	}
	if err := o.Probe(ctx, srv.URL+"/missing.pdf"); !errors.Is(err, flipbook.ErrNotFound) {
		t.Errorf("Probe missing: got %v, want ErrNotFound", err)
	}

	_, err = o.Open(ctx, srv.URL+"/broken")
	if err == nil || errors.Is(err, flipbook.ErrNotFound) {
		t.Errorf("server error: got %v", err)
	}

	small := New(&Options{Client: srv.Client(), MaxSize: 100})
	if _, err := small.Open(ctx, srv.URL+"/book.pdf"); err == nil {
		t.Error("oversized download succeeded")
	}
}

// TestViewer drives a viewer with real PDF documents.
func TestViewer(t *testing.T) {
	dir := t.TempDir()
	fname := filepath.Join(dir, "book.pdf")
	err := os.WriteFile(fname, sample(t, &testdocs.Options{Pages: 3}), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	o := New(nil)
	v := flipbook.New(flipbook.Options{
		Opener:   o,
		Prober:   o,
		Viewport: flipbook.NewFixedViewport(flipbook.Size{Width: 595, Height: 420}, 1),
	})
	defer v.Close()

	ctx := context.Background()
	if err := v.Load(ctx, fname, 1); err != nil {
		t.Fatal(err)
	}
	for want := 1; want <= 3; want++ {
		if want > 1 {
			if err := v.Next(ctx); err != nil {
				t.Fatal(err)
			}
		}
		img := v.ActiveSurface().Image()
		if got := img.RGBAAt(img.Rect.Min.X+5, img.Rect.Min.Y+5); got != gray(want) {
			t.Errorf("page %d: marker is %v", want, got)
		}
	}

	err = v.Load(ctx, filepath.Join(dir, "missing.pdf"), 1)
	var loadErr *flipbook.LoadError
	if !errors.As(err, &loadErr) || loadErr.Reason != flipbook.ReasonNotFound {
		t.Errorf("missing file: got %v", err)
	}
}

func gray(k int) color.RGBA {
	return color.RGBA{R: uint8(k), G: uint8(k), B: uint8(k), A: 255}
}

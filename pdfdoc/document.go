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
	"fmt"
	"io"
	"log/slog"
	"sync"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"

	"seehuhn.de/go/flipbook"
)

// US Letter, used when a page has no valid MediaBox.
var defaultMediaBox = pdf.Rectangle{URx: 612, URy: 792}

// Document is an open PDF file.  It implements the flipbook.Document
// interface and is safe for concurrent use.
type Document struct {
	numPages int
	logger   *slog.Logger

	// mu serialises access to the reader
	mu     sync.Mutex
	r      *pdf.Reader
	closer io.Closer
	closed bool
}

var _ flipbook.Document = (*Document)(nil)

func newDocument(r *pdf.Reader, closer io.Closer, logger *slog.Logger) (*Document, error) {
	n, err := pagetree.NumPages(r)
	if err != nil {
		return nil, &pdf.MalformedFileError{Err: err}
	}
	return &Document{
		numPages: n,
		logger:   logger,
		r:        r,
		closer:   closer,
	}, nil
}

// NumPages returns the number of pages in the document.
func (d *Document) NumPages() int {
	return d.numPages
}

// Page returns page n of the document, counting from 1.  The page
// geometry is read immediately; the content stream is read when the page
// is rendered.
func (d *Document) Page(ctx context.Context, n int) (flipbook.Page, error) {
	if n < 1 || n > d.numPages {
		return nil, fmt.Errorf("page %d not in range 1-%d", n, d.numPages)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errClosed
	}

	dict, err := pagetree.GetPage(d.r, n-1)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", n, err)
	}

	box, err := pdf.GetRectangle(d.r, dict["MediaBox"])
	if err != nil || box == nil || box.URx-box.LLx == 0 || box.URy-box.LLy == 0 {
		d.logger.Debug("invalid MediaBox, using default", "page", n, "err", err)
		box = &defaultMediaBox
	}
	// normalise the corners
	b := pdf.Rectangle{
		LLx: min(box.LLx, box.URx),
		LLy: min(box.LLy, box.URy),
		URx: max(box.LLx, box.URx),
		URy: max(box.LLy, box.URy),
	}

	rotate, err := pdf.GetInt(d.r, dict["Rotate"])
	if err != nil {
		rotate = 0
	}

	return &Page{
		doc:    d,
		dict:   dict,
		number: n,
		box:    b,
		rotate: normaliseRotation(int(rotate)),
	}, nil
}

// Close releases the PDF reader and the underlying file.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	err := d.r.Close()
	if d.closer != nil {
		err = errors.Join(err, d.closer.Close())
	}
	return err
}

// contents returns the decoded content stream of a page.
func (d *Document) contents(dict pdf.Dict) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errClosed
	}

	rd, err := pagetree.ContentStream(d.r, dict)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(rd)
}

// verify checks that the content stream of the first page can be read.
func (d *Document) verify() error {
	if d.numPages == 0 {
		return nil
	}
	dict, err := pagetree.GetPage(d.r, 0)
	if err == nil {
		_, err = d.contents(dict)
	}
	return err
}

var errClosed = errors.New("document is closed")

// normaliseRotation maps a /Rotate value to 0, 90, 180 or 270.
func normaliseRotation(r int) int {
	r %= 360
	if r < 0 {
		r += 360
	}
	switch r {
	case 90, 180, 270:
		return r
	default:
		return 0
	}
}

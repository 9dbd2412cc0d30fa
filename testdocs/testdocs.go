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

// Package testdocs generates sample PDF documents for the flipbook.
//
// Every page carries a gray marker square in its top-left corner.  The
// gray level of the marker on page k is k/255, so that a rendered page
// can be identified from a single pixel.  Below the marker, each page
// shows one of the shapes from the Shapes catalogue.
package testdocs

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"strconv"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf"
)

// MarkerSize is the side length of the page marker, in PDF points.
const MarkerSize = 20

// Options describe a sample document.  The zero value gives a single A5
// landscape page.
type Options struct {
	// Pages is the number of pages.  If zero, one page is generated.
	// Use a negative value for a document without pages.
	Pages int

	// Width and Height give the page size in PDF points.
	Width, Height float64

	// Rotate is stored in the /Rotate entry of every page.
	Rotate int

	// UserPassword, if set, encrypts the document.
	UserPassword string
}

// Bytes returns a sample document.
func Bytes(opt *Options) ([]byte, error) {
	buf := &bytes.Buffer{}
	err := Write(buf, opt)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write writes a sample document to w.
func Write(w io.Writer, opt *Options) error {
	if opt == nil {
		opt = &Options{}
	}
	numPages := opt.Pages
	if numPages == 0 {
		numPages = 1
	} else if numPages < 0 {
		numPages = 0
	}
	if numPages > 255 {
		return errors.New("at most 255 pages are supported")
	}
	width, height := opt.Width, opt.Height
	if width <= 0 || height <= 0 {
		width, height = 595, 420
	}

	var wOpt *pdf.WriterOptions
	if opt.UserPassword != "" {
		wOpt = &pdf.WriterOptions{
			UserPassword:  opt.UserPassword,
			OwnerPassword: opt.UserPassword,
		}
	}
	out, err := pdf.NewWriter(w, pdf.V1_7, wOpt)
	if err != nil {
		return err
	}

	pagesRef := out.Alloc()
	var kids pdf.Array
	for k := 1; k <= numPages; k++ {
		contentRef := out.Alloc()
		stm, err := out.OpenStream(contentRef, nil, pdf.FilterCompress{})
		if err != nil {
			return err
		}
		err = writePage(stm, k, width, height)
		if err != nil {
			return fmt.Errorf("page %d: %w", k, err)
		}
		err = stm.Close()
		if err != nil {
			return err
		}

		pageDict := pdf.Dict{
			"Type":      pdf.Name("Page"),
			"Parent":    pagesRef,
			"MediaBox":  pdf.Array{pdf.Integer(0), pdf.Integer(0), pdf.Number(width), pdf.Number(height)},
			"Resources": pdf.Dict{},
			"Contents":  contentRef,
		}
		if opt.Rotate != 0 {
			pageDict["Rotate"] = pdf.Integer(opt.Rotate)
		}
		pageRef := out.Alloc()
		err = out.Put(pageRef, pageDict)
		if err != nil {
			return err
		}
		kids = append(kids, pageRef)
	}

	err = out.Put(pagesRef, pdf.Dict{
		"Type":  pdf.Name("Pages"),
		"Kids":  kids,
		"Count": pdf.Integer(len(kids)),
	})
	if err != nil {
		return err
	}
	out.GetMeta().Catalog.Pages = pagesRef

	return out.Close()
}

// ShapeBox returns the area, in PDF default user space, into which the
// shape of a page is drawn.
func ShapeBox(width, height float64) (x, y, size float64) {
	size = min(width-2*MarkerSize, height-MarkerSize)
	return 1.5 * MarkerSize, MarkerSize / 2, size
}

// ShapeFor returns the shape shown on page k.
func ShapeFor(k int) Shape {
	return Shapes[(k-1)%len(Shapes)]
}

// writePage writes the content stream of page k.
func writePage(w io.Writer, k int, width, height float64) error {
	cw := &contentWriter{w: bufio.NewWriter(w)}

	cw.op("q")
	cw.op("g", float64(k)/255)
	cw.op("re", 0, height-MarkerSize, MarkerSize, MarkerSize)
	cw.op("f")
	cw.op("Q")

	shape := ShapeFor(k)
	x, y, size := ShapeBox(width, height)
	s := size / 100

	cw.op("q")
	cw.op("cm", s, 0, 0, s, x, y)
	switch op := shape.Op.(type) {
	case Fill:
		cw.color("rg", shape.Color)
		cw.path(shape.Path)
		if op.Rule == EvenOdd {
			cw.op("f*")
		} else {
			cw.op("f")
		}
	case Stroke:
		cw.color("RG", shape.Color)
		cw.op("w", op.Width)
		cw.op("J", float64(op.Cap))
		cw.op("j", float64(op.Join))
		cw.op("M", op.MiterLimit)
		if len(op.Dash) > 0 {
			cw.dash(op.Dash, op.DashPhase)
		}
		cw.path(shape.Path)
		cw.op("S")
	}
	cw.op("Q")

	if cw.err != nil {
		return cw.err
	}
	return cw.w.Flush()
}

// contentWriter emits content stream operators.  The first error is
// retained and all later writes are skipped.
type contentWriter struct {
	w   *bufio.Writer
	err error
}

func (cw *contentWriter) op(name string, args ...float64) {
	if cw.err != nil {
		return
	}
	for _, x := range args {
		cw.w.WriteString(formatNumber(x))
		cw.w.WriteByte(' ')
	}
	_, cw.err = cw.w.WriteString(name + "\n")
}

func (cw *contentWriter) color(op string, c color.NRGBA) {
	cw.op(op, float64(c.R)/255, float64(c.G)/255, float64(c.B)/255)
}

func (cw *contentWriter) dash(pattern []float64, phase float64) {
	if cw.err != nil {
		return
	}
	cw.w.WriteByte('[')
	for i, x := range pattern {
		if i > 0 {
			cw.w.WriteByte(' ')
		}
		cw.w.WriteString(formatNumber(x))
	}
	cw.w.WriteString("] ")
	cw.op("d", phase)
}

// path emits the path construction operators for p.  Quadratic segments
// are converted to cubic ones, since PDF has no quadratic curves.
func (cw *contentWriter) path(p *path.Data) {
	var cur, start vec.Vec2
	k := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			cur = p.Coords[k]
			start = cur
			cw.op("m", cur.X, cur.Y)
			k++
		case path.CmdLineTo:
			cur = p.Coords[k]
			cw.op("l", cur.X, cur.Y)
			k++
		case path.CmdQuadTo:
			c, end := p.Coords[k], p.Coords[k+1]
			c1 := vec.Vec2{X: (cur.X + 2*c.X) / 3, Y: (cur.Y + 2*c.Y) / 3}
			c2 := vec.Vec2{X: (end.X + 2*c.X) / 3, Y: (end.Y + 2*c.Y) / 3}
			cw.op("c", c1.X, c1.Y, c2.X, c2.Y, end.X, end.Y)
			cur = end
			k += 2
		case path.CmdCubeTo:
			c1, c2, end := p.Coords[k], p.Coords[k+1], p.Coords[k+2]
			cw.op("c", c1.X, c1.Y, c2.X, c2.Y, end.X, end.Y)
			cur = end
			k += 3
		case path.CmdClose:
			cw.op("h")
			cur = start
		}
	}
}

func formatNumber(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

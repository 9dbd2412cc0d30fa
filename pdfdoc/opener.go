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

// Package pdfdoc opens PDF files for the flipbook viewer.
//
// Documents can be read from local files or fetched over HTTP(S).  Pages
// are rendered by interpreting the path construction, path painting,
// graphics state and colour operators of the page content stream.  Text,
// images and shadings are not drawn.
package pdfdoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"seehuhn.de/go/pdf"

	"seehuhn.de/go/flipbook"
)

// DefaultMaxSize is the largest document fetched over the network, unless
// Options.MaxSize says otherwise.
const DefaultMaxSize = 256 << 20

// Options control how documents are opened.  The zero value is valid.
type Options struct {
	// Password is called to obtain the password for an encrypted
	// document.  The first call has try == 0; the function is called
	// again with increasing values of try while the password is wrong.
	// Returning the empty string gives up.  If Password is nil, encrypted
	// documents cannot be opened.
	Password func(try int) string

	// Client is used for http and https locators.  If nil,
	// http.DefaultClient is used.
	Client *http.Client

	// MaxSize limits the size of downloaded documents.  If zero,
	// DefaultMaxSize is used.
	MaxSize int64

	Logger *slog.Logger
}

// Opener opens PDF documents from files and URLs.  It implements the
// flipbook.Opener and flipbook.Prober interfaces.
type Opener struct {
	password func(int) string
	client   *http.Client
	maxSize  int64
	logger   *slog.Logger
}

var (
	_ flipbook.Opener = (*Opener)(nil)
	_ flipbook.Prober = (*Opener)(nil)
)

// New returns a new Opener.  If opt is nil, default options are used.
func New(opt *Options) *Opener {
	if opt == nil {
		opt = &Options{}
	}
	o := &Opener{
		password: opt.Password,
		client:   opt.Client,
		maxSize:  opt.MaxSize,
		logger:   opt.Logger,
	}
	if o.client == nil {
		o.client = http.DefaultClient
	}
	if o.maxSize <= 0 {
		o.maxSize = DefaultMaxSize
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Open implements the flipbook.Opener interface.  The locator is either
// an http(s) URL, a file URL or a file name.
func (o *Opener) Open(ctx context.Context, locator string) (flipbook.Document, error) {
	if u, ok := remoteURL(locator); ok {
		data, err := o.fetch(ctx, u)
		if err != nil {
			return nil, err
		}
		return o.open(bytes.NewReader(data), nil)
	}

	fd, err := os.Open(localPath(locator))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %w", flipbook.ErrNotFound, err)
	} else if err != nil {
		return nil, err
	}
	doc, err := o.open(fd, fd)
	if err != nil {
		fd.Close()
		return nil, err
	}
	return doc, nil
}

// OpenBytes opens a PDF document held in memory.
func (o *Opener) OpenBytes(data []byte) (*Document, error) {
	return o.open(bytes.NewReader(data), nil)
}

// Probe implements the flipbook.Prober interface.  Remote documents are
// checked with a HEAD request, local files with a stat call.
func (o *Opener) Probe(ctx context.Context, locator string) error {
	u, ok := remoteURL(locator)
	if !ok {
		_, err := os.Stat(localPath(locator))
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %w", flipbook.ErrNotFound, err)
		}
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return checkStatus(u, resp)
}

// open reads the PDF structure from rs.  If closer is not nil, it is
// closed together with the document.
func (o *Opener) open(rs io.ReadSeeker, closer io.Closer) (*Document, error) {
	asked := false
	opt := &pdf.ReaderOptions{
		ReadPassword: func(_ []byte, try int) string {
			asked = true
			if o.password == nil {
				return ""
			}
			return o.password(try)
		},
		ErrorHandling: pdf.ErrorHandlingReport,
	}
	r, err := pdf.NewReader(rs, opt)
	if err != nil {
		return nil, classify(err, asked)
	}

	doc, err := newDocument(r, closer, o.logger)
	if err == nil {
		// Reading the first page forces authentication for encrypted
		// files.
		err = doc.verify()
	}
	if err != nil {
		r.Close()
		return nil, classify(err, asked)
	}
	return doc, nil
}

func (o *Opener) fetch(ctx context.Context, u *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(u, resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, o.maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > o.maxSize {
		return nil, fmt.Errorf("%s: document larger than %d bytes", u.Redacted(), o.maxSize)
	}
	o.logger.Debug("downloaded document", "locator", u.Redacted(), "size", len(data))
	return data, nil
}

func checkStatus(u *url.URL, resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: %s: %s", flipbook.ErrNotFound, u.Redacted(), resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%s: %s", u.Redacted(), resp.Status)
	}
	return nil
}

// classify wraps errors from the PDF library in the flipbook sentinel
// errors.
func classify(err error, askedPassword bool) error {
	if askedPassword {
		return fmt.Errorf("%w: %w", flipbook.ErrEncrypted, err)
	}
	var malformed *pdf.MalformedFileError
	if errors.As(err, &malformed) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", flipbook.ErrMalformed, err)
	}
	return err
}

func remoteURL(locator string) (*url.URL, bool) {
	u, err := url.Parse(locator)
	if err != nil {
		return nil, false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u, true
	}
	return nil, false
}

func localPath(locator string) string {
	if u, err := url.Parse(locator); err == nil && u.Scheme == "file" {
		return u.Path
	}
	return locator
}

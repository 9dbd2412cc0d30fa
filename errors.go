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
	"errors"
	"net"
	"net/url"
	"strconv"
)

// Document collaborators wrap their failures in these errors, so that
// the viewer can categorise them.
var (
	ErrNotFound  = errors.New("document not found")
	ErrMalformed = errors.New("malformed document")
	ErrEncrypted = errors.New("document is encrypted")
)

var (
	// ErrBusy is returned by Load while a page transition, a rescale or
	// another load is in progress.
	ErrBusy = errors.New("viewer is busy")

	// ErrClosed is returned by Load after Close has been called.
	ErrClosed = errors.New("viewer is closed")
)

// Reason categorises a load failure.
type Reason int

// These are the possible reasons for a load failure.
const (
	ReasonOther Reason = iota
	ReasonNoSource
	ReasonNotFound
	ReasonNetwork
	ReasonMalformed
	ReasonEncrypted
	ReasonRender
)

func (r Reason) String() string {
	switch r {
	case ReasonOther:
		return "other"
	case ReasonNoSource:
		return "no source"
	case ReasonNotFound:
		return "not found"
	case ReasonNetwork:
		return "network"
	case ReasonMalformed:
		return "malformed"
	case ReasonEncrypted:
		return "encrypted"
	case ReasonRender:
		return "render"
	default:
		return "Reason(" + strconv.Itoa(int(r)) + ")"
	}
}

// LoadError indicates that a document could not be opened or its first
// page could not be shown.  The viewer is left empty.
type LoadError struct {
	Locator string
	Reason  Reason
	Err     error
}

func (err *LoadError) Error() string {
	msg := "cannot load document"
	if err.Locator != "" {
		msg += " " + strconv.Quote(err.Locator)
	}
	switch {
	case err.Reason == ReasonNoSource:
		msg += ": no source given"
	case err.Err != nil:
		msg += ": " + err.Err.Error()
	}
	return msg
}

func (err *LoadError) Unwrap() error {
	return err.Err
}

// Hint returns a short suggestion for the user, or the empty string.
func (err *LoadError) Hint() string {
	switch err.Reason {
	case ReasonNoSource:
		return "pass a document location with the src parameter"
	case ReasonNotFound:
		return "check that the link points to an existing file"
	case ReasonNetwork:
		return "the server may be unreachable or may refuse direct downloads; try a direct download link"
	case ReasonEncrypted:
		return "the document is password protected"
	default:
		return ""
	}
}

// RenderError indicates that a page could not be rasterized.
type RenderError struct {
	Page int
	Err  error
}

func (err *RenderError) Error() string {
	return "cannot render page " + strconv.Itoa(err.Page) + ": " + err.Err.Error()
}

func (err *RenderError) Unwrap() error {
	return err.Err
}

// classify maps an error returned by an Opener to a load failure reason.
func classify(err error) Reason {
	var netErr net.Error
	var urlErr *url.Error
	switch {
	case errors.Is(err, ErrNotFound):
		return ReasonNotFound
	case errors.Is(err, ErrEncrypted):
		return ReasonEncrypted
	case errors.Is(err, ErrMalformed):
		return ReasonMalformed
	case errors.As(err, &netErr), errors.As(err, &urlErr):
		return ReasonNetwork
	default:
		return ReasonOther
	}
}

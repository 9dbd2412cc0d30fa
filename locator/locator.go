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

// Package locator handles the addresses of flipbook documents.
//
// Share links of cloud storage services point to a preview page instead
// of the document itself.  Normalize rewrites such links into direct
// download links.  An Address holds the address of the viewer itself,
// where the "src" query parameter selects the document and "page" the
// current page.
package locator

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Query parameter names.
const (
	ParamSource = "src"
	ParamPage   = "page"
)

var driveFileID = regexp.MustCompile(`/file/d/([^/]+)`)

// Normalize turns Google Drive and Dropbox share links into direct
// download links.  Other locators, including strings which are not valid
// URLs, are returned unchanged.
func Normalize(locator string) string {
	u, err := url.Parse(locator)
	if err != nil || u.Host == "" {
		return locator
	}

	host := strings.ToLower(u.Hostname())
	switch {
	case strings.Contains(host, "drive.google.com"):
		if m := driveFileID.FindStringSubmatch(u.Path); m != nil {
			return driveDownload(m[1])
		}
		if strings.Contains(u.Path, "/open") {
			if id := u.Query().Get("id"); id != "" {
				return driveDownload(id)
			}
		}
	case strings.Contains(host, "dropbox.com"):
		q := u.Query()
		q.Set("raw", "1")
		q.Del("dl")
		u.RawQuery = q.Encode()
		return u.String()
	}
	return locator
}

func driveDownload(id string) string {
	q := url.Values{}
	q.Set("export", "download")
	q.Set("id", id)
	return "https://drive.google.com/uc?" + q.Encode()
}

// FromQuery reads the document locator and the initial page from the
// query parameters of a viewer address.  If no "src" parameter is given,
// fallback is used.  The page defaults to 1 if it is missing or not a
// number.  The returned locator is normalised.
func FromQuery(q url.Values, fallback string) (locator string, page int) {
	locator = q.Get(ParamSource)
	if locator == "" {
		locator = fallback
	}
	if locator != "" {
		locator = Normalize(locator)
	}

	page = 1
	if p, err := strconv.Atoi(strings.TrimSpace(q.Get(ParamPage))); err == nil {
		page = p
	}
	return locator, page
}

// Address is the address of a viewer.  Its SetPage method updates the
// "page" query parameter, so that an Address can be used as the
// flipbook.Location of a viewer.  Address is safe for concurrent use.
type Address struct {
	// OnChange, if set, is called with the new address after every
	// update.
	OnChange func(string)

	mu sync.Mutex
	u  *url.URL
}

// Parse parses a viewer address.
func Parse(raw string) (*Address, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &Address{u: u}, nil
}

// Query returns the query parameters of the address.
func (a *Address) Query() url.Values {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.u.Query()
}

// SetPage sets the "page" query parameter.  The other parts of the
// address are left untouched.
func (a *Address) SetPage(page int) {
	a.mu.Lock()
	q := a.u.Query()
	q.Set(ParamPage, strconv.Itoa(page))
	a.u.RawQuery = q.Encode()
	s := a.u.String()
	a.mu.Unlock()

	if a.OnChange != nil {
		a.OnChange(s)
	}
}

func (a *Address) String() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.u.String()
}

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

// Command mksample writes a sample PDF document for the flipbook viewer.
// Every page carries a marker identifying the page and one of the test
// shapes.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"seehuhn.de/go/flipbook/testdocs"
)

func main() {
	out := flag.String("o", "sample.pdf", "output file name")
	pages := flag.Int("pages", 12, "number of pages (at most 255)")
	width := flag.Float64("width", 595, "page width in PDF points")
	height := flag.Float64("height", 420, "page height in PDF points")
	rotate := flag.Int("rotate", 0, "value of the /Rotate page entry")
	password := flag.String("password", "", "encrypt the document with this user password")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	opt := &testdocs.Options{
		Pages:        *pages,
		Width:        *width,
		Height:       *height,
		Rotate:       *rotate,
		UserPassword: *password,
	}
	if err := run(*out, opt); err != nil {
		logger.Error("cannot write sample document", "file", *out, "err", err)
		os.Exit(1)
	}
	logger.Info("sample document written", "file", *out, "pages", *pages)
}

func run(fname string, opt *testdocs.Options) error {
	if opt.Pages <= 0 {
		return fmt.Errorf("invalid page count %d", opt.Pages)
	}

	fd, err := os.Create(fname)
	if err != nil {
		return err
	}
	err = testdocs.Write(fd, opt)
	if err != nil {
		fd.Close()
		return err
	}
	return fd.Close()
}

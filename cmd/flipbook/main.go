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

// Command flipbook pages through a PDF document in the terminal.
//
// The visible page is written to a PNG file after every change, so that
// it can be watched with an image viewer which reloads on change.  The
// document is given either as an argument or through the "src" query
// parameter of a viewer address:
//
//	flipbook book.pdf
//	flipbook -addr 'viewer?src=https://www.dropbox.com/s/xyz/book.pdf?dl=0&page=3'
//
// Keys: right/left arrows (or n/p) turn pages, + and - zoom, 0 resets the
// zoom, f toggles between fitting the width and the whole page, g enters
// a page number, q quits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"seehuhn.de/go/flipbook"
	"seehuhn.de/go/flipbook/locator"
	"seehuhn.de/go/flipbook/pdfdoc"
)

// Pixels per terminal cell, used to derive the viewport from the
// terminal size.
const (
	cellWidth  = 8
	cellHeight = 16
)

func main() {
	addr := flag.String("addr", "flipbook", "viewer address, with optional src and page query parameters")
	page := flag.Int("page", 0, "initial page (overrides the address)")
	fit := flag.String("fit", "width", "fit policy: width or both")
	density := flag.Float64("density", 1, "device pixels per viewport pixel")
	out := flag.String("out", "flipbook.png", "snapshot file, rewritten after every change")
	animate := flag.Bool("animate", true, "play a slide animation on page turns")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := &config{
		addr:     *addr,
		fallback: flag.Arg(0),
		page:     *page,
		density:  *density,
		out:      *out,
		animate:  *animate,
		logger:   logger,
	}
	switch *fit {
	case "width":
		cfg.fit = flipbook.FitWidth
	case "both":
		cfg.fit = flipbook.FitBoth
	default:
		fmt.Fprintf(os.Stderr, "invalid fit policy %q\n", *fit)
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		logger.Error("flipbook failed", "err", err)
		var loadErr *flipbook.LoadError
		if errors.As(err, &loadErr) && loadErr.Hint() != "" {
			fmt.Fprintln(os.Stderr, "hint:", loadErr.Hint())
		}
		os.Exit(1)
	}
}

type config struct {
	addr     string
	fallback string
	page     int
	fit      flipbook.FitPolicy
	density  float64
	out      string
	animate  bool
	logger   *slog.Logger
}

func run(cfg *config) error {
	address, err := locator.Parse(cfg.addr)
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}
	src, page := locator.FromQuery(address.Query(), cfg.fallback)
	if cfg.page > 0 {
		page = cfg.page
	}

	t, err := openTerminal()
	if err != nil {
		return err
	}
	defer t.close()

	ui := &ui{term: t, out: cfg.out, logger: cfg.logger}
	address.OnChange = ui.setAddress
	ui.address = address.String()

	viewport := flipbook.NewFixedViewport(t.viewport(), cfg.density)
	opener := pdfdoc.New(&pdfdoc.Options{
		Password: t.askPassword,
		Logger:   cfg.logger,
	})
	var animator flipbook.Animator = flipbook.NoAnimation{}
	if cfg.animate {
		animator = &flipbook.SlideAnimator{Frame: ui.frame}
	}

	v := flipbook.New(flipbook.Options{
		Opener:            opener,
		Prober:            opener,
		Viewport:          viewport,
		Animator:          animator,
		Location:          address,
		Reporter:          ui,
		Logger:            cfg.logger,
		OnChange:          ui.stateChanged,
		TransitionTimeout: 2 * time.Second,
		Fit:               cfg.fit,
	})
	defer v.Close()
	ui.viewer = v

	ctx := context.Background()
	err = v.Load(ctx, src, page)
	if err != nil {
		return err
	}

	if err := t.makeRaw(); err != nil {
		return err
	}
	ui.redraw()
	return ui.loop(ctx, viewport, cfg.density)
}

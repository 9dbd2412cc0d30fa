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

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"

	"golang.org/x/term"

	"seehuhn.de/go/flipbook"
)

// maxPasswordTries is the number of password prompts before giving up.
const maxPasswordTries = 3

type keyKind int

const (
	keyUnknown keyKind = iota
	keyNext
	keyPrev
	keyFirst
	keyLast
	keyZoomIn
	keyZoomOut
	keyZoomReset
	keyFit
	keyGoTo
	keyDigit
	keyEnter
	keyBackspace
	keyEscape
	keyQuit
)

type keyEvent struct {
	kind keyKind
	r    rune // for keyDigit
}

// terminal is the controlling terminal of the process.
type terminal struct {
	in      *os.File
	out     *os.File
	reader  *bufio.Reader
	restore *term.State

	mu sync.Mutex // serialises output
}

func openTerminal() (*terminal, error) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err == nil {
		return &terminal{in: tty, out: tty, reader: bufio.NewReader(tty)}, nil
	}
	if runtime.GOOS != "windows" {
		return nil, err
	}
	return &terminal{in: os.Stdin, out: os.Stdout, reader: bufio.NewReader(os.Stdin)}, nil
}

func (t *terminal) makeRaw() error {
	state, err := term.MakeRaw(int(t.in.Fd()))
	if err != nil {
		return err
	}
	t.restore = state
	t.write("\x1b[?25l")
	return nil
}

func (t *terminal) close() {
	if t.restore != nil {
		_ = term.Restore(int(t.in.Fd()), t.restore)
		t.write("\r\n\x1b[?25h")
	}
	if t.in.Name() == "/dev/tty" {
		_ = t.in.Close()
	}
}

func (t *terminal) write(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	io.WriteString(t.out, s)
}

// viewport returns the size of the terminal in viewport pixels.  The last
// line is kept free for the status display.
func (t *terminal) viewport() flipbook.Size {
	cols, rows, err := term.GetSize(int(t.in.Fd()))
	if err != nil || cols <= 0 || rows <= 1 {
		return flipbook.Size{Width: 1024, Height: 768}
	}
	return flipbook.Size{
		Width:  float64(cols * cellWidth),
		Height: float64((rows - 1) * cellHeight),
	}
}

// askPassword prompts for the password of an encrypted document.
func (t *terminal) askPassword(try int) string {
	if try >= maxPasswordTries {
		return ""
	}
	if try > 0 {
		t.write("wrong password\n")
	}
	t.write("password: ")
	pwd, err := term.ReadPassword(int(t.in.Fd()))
	t.write("\n")
	if err != nil {
		return ""
	}
	return string(pwd)
}

func (t *terminal) readKey() (keyEvent, error) {
	return readKey(t.reader)
}

// readKey decodes one key press from a terminal in raw mode.
func readKey(rd *bufio.Reader) (keyEvent, error) {
	b, err := rd.ReadByte()
	if err != nil {
		return keyEvent{}, err
	}

	switch b {
	case 0x1b:
		return readEscape(rd)
	case 'n', ' ':
		return keyEvent{kind: keyNext}, nil
	case 'p':
		return keyEvent{kind: keyPrev}, nil
	case '+', '=':
		return keyEvent{kind: keyZoomIn}, nil
	case '-', '_':
		return keyEvent{kind: keyZoomOut}, nil
	case '0':
		return keyEvent{kind: keyZoomReset}, nil
	case 'f':
		return keyEvent{kind: keyFit}, nil
	case 'g':
		return keyEvent{kind: keyGoTo}, nil
	case 'q', 'Q', 0x03:
		return keyEvent{kind: keyQuit}, nil
	case '\r', '\n':
		return keyEvent{kind: keyEnter}, nil
	case 0x7f, 0x08:
		return keyEvent{kind: keyBackspace}, nil
	}
	if b >= '1' && b <= '9' {
		return keyEvent{kind: keyDigit, r: rune(b)}, nil
	}
	return keyEvent{kind: keyUnknown}, nil
}

func readEscape(rd *bufio.Reader) (keyEvent, error) {
	if rd.Buffered() == 0 {
		return keyEvent{kind: keyEscape}, nil
	}
	next, err := rd.ReadByte()
	if err != nil || next != '[' {
		return keyEvent{kind: keyEscape}, nil
	}

	var seq []byte
	for len(seq) < 6 {
		b, err := rd.ReadByte()
		if err != nil {
			return keyEvent{kind: keyEscape}, nil
		}
		seq = append(seq, b)
		if (b >= 'A' && b <= 'Z') || b == '~' {
			break
		}
	}

	switch string(seq) {
	case "C", "B":
		return keyEvent{kind: keyNext}, nil
	case "D", "A":
		return keyEvent{kind: keyPrev}, nil
	case "H", "1~":
		return keyEvent{kind: keyFirst}, nil
	case "F", "4~":
		return keyEvent{kind: keyLast}, nil
	case "6~":
		return keyEvent{kind: keyNext}, nil
	case "5~":
		return keyEvent{kind: keyPrev}, nil
	}
	return keyEvent{kind: keyUnknown}, nil
}

func (t *terminal) status(line string) {
	width, _, err := term.GetSize(int(t.in.Fd()))
	if err == nil && width > 0 && len(line) > width {
		line = line[:width]
	}
	t.write(fmt.Sprintf("\r\x1b[2K%s", line))
}

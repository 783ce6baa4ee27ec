// Package terminal owns the raw terminal: entering and leaving raw mode,
// decoding key and mouse input into round events, and painting frames.
package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// ErrNotTerminal is returned when stdin or stdout is not a terminal
var ErrNotTerminal = errors.New("not a terminal")

const (
	hideCursor   = "\x1b[?25l"
	showCursor   = "\x1b[?25h"
	clearScreen  = "\x1b[2J\x1b[H"
	mouseOn      = "\x1b[?1000h\x1b[?1006h"
	mouseOff     = "\x1b[?1006l\x1b[?1000l"
	enterSession = mouseOn + hideCursor + clearScreen
	leaveSession = mouseOff + clearScreen + showCursor
)

// Session holds the terminal in raw mode with mouse reporting enabled
// until Close is called.
type Session struct {
	in  *os.File
	out *os.File

	state *term.State
	once  sync.Once
}

// Open puts in into raw mode and enables mouse press reporting on out.
func Open(in, out *os.File) (*Session, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("stdin: %w", ErrNotTerminal)
	}
	if !term.IsTerminal(int(out.Fd())) {
		return nil, fmt.Errorf("stdout: %w", ErrNotTerminal)
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("enter raw mode: %w", err)
	}

	s := &Session{in: in, out: out, state: state}
	if _, err := io.WriteString(out, enterSession); err != nil {
		s.Close()
		return nil, fmt.Errorf("initialise screen: %w", err)
	}

	log.Debug().Int("fd", fd).Msg("terminal in raw mode")
	return s, nil
}

// Size returns the width and height of the output terminal
func (s *Session) Size() (int, int, error) {
	return term.GetSize(int(s.out.Fd()))
}

// Close clears the screen and restores the original terminal mode.
// It is safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.once.Do(func() {
		_, werr := io.WriteString(s.out, leaveSession)
		rerr := term.Restore(int(s.in.Fd()), s.state)
		err = errors.Join(werr, rerr)
		log.Debug().Err(err).Msg("terminal restored")
	})
	return err
}

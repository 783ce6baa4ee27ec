package terminal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/mcdev12/reaction/go/internal/reaction/events"
	"github.com/rs/zerolog/log"
)

const (
	keyEsc   = 0x1b
	keyCtrlC = 0x03
	keyDel   = 0x7f

	// Longest escape sequence we wait for before giving up on it
	maxSequenceLen = 32
)

// KeyMap decides which keys quit and which count as a response
type KeyMap struct {
	Quit    rune
	Respond rune
	// AnyKey makes every non-quit key a response, not only Respond
	AnyKey bool
}

// DefaultKeyMap quits on 'q' and accepts any other key as a response
func DefaultKeyMap() KeyMap {
	return KeyMap{Quit: 'q', Respond: ' ', AnyKey: true}
}

// Sink receives decoded events
type Sink interface {
	Send(ctx context.Context, ev events.Event) error
}

// Decoder turns raw terminal bytes into events. Escape sequences split
// across reads are buffered until complete.
type Decoder struct {
	keys KeyMap
	buf  []byte
	done bool
}

func NewDecoder(keys KeyMap) *Decoder {
	return &Decoder{keys: keys}
}

// Done reports whether a Quit has been decoded. No events follow it.
func (d *Decoder) Done() bool {
	return d.done
}

// Feed appends p to the pending input and returns the events it completes.
func (d *Decoder) Feed(p []byte) []events.Event {
	if d.done {
		return nil
	}
	d.buf = append(d.buf, p...)

	var out []events.Event
	for len(d.buf) > 0 && !d.done {
		ev, n, ok := d.next()
		if n == 0 {
			// Incomplete sequence, wait for more input
			break
		}
		d.buf = d.buf[n:]
		if ok {
			out = append(out, ev)
			if ev.Kind == events.Quit {
				d.done = true
				d.buf = nil
			}
		}
	}
	return out
}

// next decodes one unit from the buffer. n is the number of bytes consumed,
// zero when more input is needed; ok is false for input that is dropped.
func (d *Decoder) next() (events.Event, int, bool) {
	b := d.buf[0]
	switch {
	case b == keyEsc:
		return d.escape()
	case b == keyCtrlC:
		return events.NewQuit(), 1, true
	case b == '\r' || b == '\n' || b == '\t':
		return d.key(rune(b), 1)
	case b < 0x20 || b == keyDel:
		return events.Event{}, 1, false
	}

	if !utf8.FullRune(d.buf) {
		return events.Event{}, 0, false
	}
	r, size := utf8.DecodeRune(d.buf)
	if r == utf8.RuneError {
		return events.Event{}, size, false
	}
	return d.key(r, size)
}

func (d *Decoder) key(r rune, size int) (events.Event, int, bool) {
	switch {
	case r == d.keys.Quit:
		return events.NewQuit(), size, true
	case d.keys.AnyKey || r == d.keys.Respond:
		return events.NewActivation(), size, true
	default:
		return events.Event{}, size, false
	}
}

func (d *Decoder) escape() (events.Event, int, bool) {
	buf := d.buf
	if len(buf) < 2 {
		return events.Event{}, 0, false
	}

	switch buf[1] {
	case '[':
		if len(buf) < 3 {
			return events.Event{}, 0, false
		}
		switch buf[2] {
		case 'M':
			return x10Mouse(buf)
		case '<':
			return sgrMouse(buf)
		}
		return skipCSI(buf)
	case 'O':
		// SS3: F1-F4 and application-mode arrows
		if len(buf) < 3 {
			return events.Event{}, 0, false
		}
		return events.Event{}, 3, false
	default:
		// Alt+key; drop the escape and decode the key on its own
		return events.Event{}, 1, false
	}
}

// x10Mouse decodes ESC [ M b x y
func x10Mouse(buf []byte) (events.Event, int, bool) {
	if len(buf) < 6 {
		return events.Event{}, 0, false
	}
	return mouse(int(buf[3])-32, true, 6)
}

// sgrMouse decodes ESC [ < b ; x ; y (M|m)
func sgrMouse(buf []byte) (events.Event, int, bool) {
	end := bytes.IndexAny(buf[3:], "Mm")
	if end < 0 {
		if len(buf) > maxSequenceLen {
			return events.Event{}, len(buf), false
		}
		return events.Event{}, 0, false
	}
	end += 3

	params := bytes.SplitN(buf[3:end], []byte{';'}, 3)
	button, err := strconv.Atoi(string(params[0]))
	if err != nil {
		return events.Event{}, end + 1, false
	}
	return mouse(button, buf[end] == 'M', end+1)
}

func mouse(button int, pressed bool, n int) (events.Event, int, bool) {
	if isPress(button, pressed) {
		return events.NewActivation(), n, true
	}
	return events.Event{}, n, false
}

// isPress is true for a button press, false for releases, motion and wheel
func isPress(button int, pressed bool) bool {
	if !pressed {
		return false
	}
	if button&32 != 0 || button&64 != 0 {
		return false
	}
	// X10 encodes release as button 3
	return button&3 != 3
}

// skipCSI consumes a CSI sequence up to its final byte
func skipCSI(buf []byte) (events.Event, int, bool) {
	for i := 2; i < len(buf); i++ {
		if buf[i] >= 0x40 && buf[i] <= 0x7e {
			return events.Event{}, i + 1, false
		}
		if i >= maxSequenceLen {
			return events.Event{}, i + 1, false
		}
	}
	return events.Event{}, 0, false
}

// Input is the event source reading a raw terminal
type Input struct {
	r   io.Reader
	dec *Decoder
}

func NewInput(r io.Reader, keys KeyMap) *Input {
	return &Input{r: r, dec: NewDecoder(keys)}
}

// Run reads until a Quit is decoded and delivered. End of input counts as
// Quit. Read and delivery failures are returned; they break the pipeline.
func (in *Input) Run(ctx context.Context, sink Sink) error {
	buf := make([]byte, 64)
	for {
		n, err := in.r.Read(buf)
		for _, ev := range in.dec.Feed(buf[:n]) {
			if serr := sink.Send(ctx, ev); serr != nil {
				return fmt.Errorf("deliver %s: %w", ev.Kind, serr)
			}
		}
		if in.dec.Done() {
			log.Debug().Msg("input reader finished")
			return nil
		}

		if errors.Is(err, io.EOF) {
			log.Info().Msg("input closed - quitting")
			if serr := sink.Send(ctx, events.NewQuit()); serr != nil {
				return fmt.Errorf("deliver quit: %w", serr)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
	}
}

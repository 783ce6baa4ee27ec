// Package render maps round states to what the screen should show.
// It has no side effects; painting is done by the terminal package.
package render

import (
	"fmt"

	"github.com/mcdev12/reaction/go/internal/reaction/round"
)

// Color is a terminal colour independent of any rendering library
type Color int

const (
	Black Color = iota
	Red
	Green
	Blue
	White
)

func (c Color) String() string {
	switch c {
	case Black:
		return "black"
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	case White:
		return "white"
	default:
		return fmt.Sprintf("color(%d)", int(c))
	}
}

// Title labels the bordered block
const Title = "Reaction Time"

// Segment is one styled line of text
type Segment struct {
	Text       string
	Foreground Color
}

// Payload is everything needed to paint one frame
type Payload struct {
	Title      string
	Lines      []Segment
	Background Color
}

// Project returns the payload for a state. Every phase has a mapping; an
// unknown phase is a programming error and panics.
func Project(s round.State) Payload {
	switch s.Phase {
	case round.Idle:
		return payload(Black,
			Segment{Text: "Press a key to get started", Foreground: White},
			Segment{Text: "The terminal will clear, wait for it to flash and press space or click", Foreground: Red},
		)
	case round.Armed:
		return payload(Blue,
			Segment{Text: "Press a key when the background turns green!", Foreground: White},
			Segment{Text: "!", Foreground: Red},
		)
	case round.Signaled:
		return payload(Green,
			Segment{Text: "TIME TO CLICK!", Foreground: White},
			Segment{Text: "NOW!", Foreground: Red},
		)
	case round.Result:
		return payload(Black,
			Segment{Text: "Your reaction time was:", Foreground: White},
			Segment{Text: fmt.Sprintf("%d ms", s.ElapsedMs), Foreground: Blue},
		)
	case round.FalseStart:
		return payload(Red,
			Segment{Text: "Not too fast!", Foreground: White},
			Segment{Text: "That was a false start!", Foreground: White},
		)
	}
	panic(fmt.Sprintf("render: no projection for %s", s.Phase))
}

func payload(bg Color, lines ...Segment) Payload {
	return Payload{Title: Title, Lines: lines, Background: bg}
}

package events

import (
	"github.com/google/uuid"
)

// Event types flowing from the input reader and the delay scheduler into the round machine

// Kind identifies what happened
type Kind int

const (
	// Activation means the user pressed a response key or clicked.
	Activation Kind = iota
	// TimerFired means a randomized delay has elapsed.
	TimerFired
	// Quit ends the main loop.
	Quit
)

func (k Kind) String() string {
	switch k {
	case Activation:
		return "activation"
	case TimerFired:
		return "timer_fired"
	case Quit:
		return "quit"
	default:
		return "unknown"
	}
}

// Event is a unit signal. Arrival time is captured by the consumer, not the producer.
type Event struct {
	Kind Kind
	// TimerID is set on TimerFired events to the ID of the timer that produced them
	TimerID uuid.UUID
}

// NewActivation returns an Activation event
func NewActivation() Event {
	return Event{Kind: Activation}
}

// NewQuit returns a Quit event
func NewQuit() Event {
	return Event{Kind: Quit}
}

// NewTimerFired returns a TimerFired event for the given timer
func NewTimerFired(timerID uuid.UUID) Event {
	return Event{Kind: TimerFired, TimerID: timerID}
}

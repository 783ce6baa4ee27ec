package round

import (
	"fmt"
	"math"
	"time"
)

// Phase is the active variant of a round
type Phase int

const (
	// Idle means no round has started yet.
	Idle Phase = iota
	// Armed means a timer is scheduled and has not fired.
	Armed
	// Signaled means the timer fired and the measured interval is running.
	Signaled
	// Result holds a valid measurement.
	Result
	// FalseStart means the user responded while Armed.
	FalseStart
)

// Phases lists every phase, in declaration order
var Phases = []Phase{Idle, Armed, Signaled, Result, FalseStart}

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Signaled:
		return "signaled"
	case Result:
		return "result"
	case FalseStart:
		return "false_start"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MaxElapsedMs is the largest reportable reaction time
const MaxElapsedMs = math.MaxUint16

// State is the round state. ElapsedMs is only meaningful in Result.
type State struct {
	Phase     Phase
	ElapsedMs uint16
}

func (s State) String() string {
	if s.Phase == Result {
		return fmt.Sprintf("result(%dms)", s.ElapsedMs)
	}
	return s.Phase.String()
}

// ResultOf returns the Result state for an elapsed duration
func ResultOf(elapsed time.Duration) State {
	return State{Phase: Result, ElapsedMs: SaturatingMillis(elapsed)}
}

// SaturatingMillis converts a duration to whole milliseconds, clamped to [0, MaxElapsedMs]
func SaturatingMillis(d time.Duration) uint16 {
	ms := d.Milliseconds()
	switch {
	case ms < 0:
		return 0
	case ms > MaxElapsedMs:
		return MaxElapsedMs
	default:
		return uint16(ms)
	}
}

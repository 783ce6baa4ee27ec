package round

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/reaction/go/internal/reaction/events"
	"github.com/mcdev12/reaction/go/internal/reaction/scheduler"
	"github.com/rs/zerolog/log"
)

// ErrPipeline wraps failures of the internal event pipeline. They are fatal.
var ErrPipeline = errors.New("event pipeline broken")

// Source is the consumer side of the event queue
type Source interface {
	Receive(ctx context.Context) (events.Event, error)
	Close()
}

// Scheduler arms the randomized delay for a round
type Scheduler interface {
	Schedule(ctx context.Context) (*scheduler.Pending, error)
}

// Display receives the current state after every event
type Display interface {
	Show(state State) error
}

// Machine is the round state machine. It is the only consumer of the event
// queue and the only mutator of the round state, so it holds no locks.
type Machine struct {
	clock     clockwork.Clock
	source    Source
	scheduler Scheduler
	display   Display

	resources   io.Closer
	releaseOnce sync.Once

	state   State
	pending *scheduler.Pending
	start   time.Time
	roundID uuid.UUID

	lastElapsed time.Duration
	hasElapsed  bool
}

// NewMachine creates a machine in the Idle state. resources is closed exactly
// once when the loop ends; it may be nil.
func NewMachine(clock clockwork.Clock, source Source, sched Scheduler, display Display, resources io.Closer) *Machine {
	return &Machine{
		clock:     clock,
		source:    source,
		scheduler: sched,
		display:   display,
		resources: resources,
		state:     State{Phase: Idle},
	}
}

// State returns the current round state
func (m *Machine) State() State {
	return m.state
}

// LastElapsed returns the last measured reaction time before saturation
func (m *Machine) LastElapsed() (time.Duration, bool) {
	return m.lastElapsed, m.hasElapsed
}

// Run shows the initial state and processes events until Quit, context
// cancellation or a fatal error. Resources are released on every path.
func (m *Machine) Run(ctx context.Context) error {
	defer m.shutdown()

	log.Info().Str("state", m.state.String()).Msg("round machine started")

	if err := m.show(); err != nil {
		return err
	}

	for {
		ev, err := m.source.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Err(ctx.Err()).Msg("round machine shutdown requested")
				return nil
			}
			log.Error().Err(err).Msg("failed to receive event")
			return fmt.Errorf("%w: receive: %w", ErrPipeline, err)
		}

		quit, err := m.Handle(ctx, ev)
		if err != nil {
			return err
		}
		if quit {
			log.Info().Str("state", m.state.String()).Msg("quit requested")
			return nil
		}
	}
}

// Handle applies one event to the machine and re-renders. It reports whether
// the loop should stop. The event's arrival time is read from the machine's clock.
func (m *Machine) Handle(ctx context.Context, ev events.Event) (bool, error) {
	now := m.clock.Now()

	switch ev.Kind {
	case events.Quit:
		return true, nil
	case events.Activation:
		if err := m.activate(ctx, now); err != nil {
			return false, err
		}
	case events.TimerFired:
		m.timerFired(ev, now)
	default:
		log.Warn().Str("kind", ev.Kind.String()).Msg("unknown event kind - ignoring")
	}

	return false, m.show()
}

func (m *Machine) activate(ctx context.Context, now time.Time) error {
	switch m.state.Phase {
	case Idle, Result, FalseStart:
		m.state = State{Phase: Armed}
		m.roundID = uuid.New()

		// Show the waiting screen before the timer exists
		if err := m.show(); err != nil {
			return err
		}

		pending, err := m.scheduler.Schedule(ctx)
		if err != nil {
			return fmt.Errorf("%w: schedule timer: %w", ErrPipeline, err)
		}
		m.pending = pending

		log.Debug().
			Str("round_id", m.roundID.String()).
			Str("timer_id", pending.ID().String()).
			Dur("delay", pending.Delay()).
			Msg("round armed")

	case Armed:
		m.cancelPending()
		m.state = State{Phase: FalseStart}
		log.Info().Str("round_id", m.roundID.String()).Msg("false start")

	case Signaled:
		elapsed := now.Sub(m.start)
		m.lastElapsed = elapsed
		m.hasElapsed = true
		m.state = ResultOf(elapsed)
		log.Info().
			Str("round_id", m.roundID.String()).
			Dur("elapsed", elapsed).
			Uint16("reported_ms", m.state.ElapsedMs).
			Msg("reaction measured")
	}
	return nil
}

func (m *Machine) timerFired(ev events.Event, now time.Time) {
	if m.pending == nil || ev.TimerID != m.pending.ID() {
		log.Debug().
			Str("timer_id", ev.TimerID.String()).
			Str("state", m.state.String()).
			Msg("stale timer event - ignoring")
		return
	}

	// Only Armed holds a pending timer
	m.pending = nil
	m.state = State{Phase: Signaled}
	m.start = now

	log.Debug().Str("round_id", m.roundID.String()).Time("start", now).Msg("round signaled")
}

func (m *Machine) cancelPending() {
	if m.pending == nil {
		return
	}
	if !m.pending.Cancel() {
		log.Debug().Str("timer_id", m.pending.ID().String()).Msg("timer already fired before cancel")
	}
	m.pending = nil
}

func (m *Machine) show() error {
	if m.display == nil {
		return nil
	}
	if err := m.display.Show(m.state); err != nil {
		return fmt.Errorf("render %s: %w", m.state, err)
	}
	return nil
}

func (m *Machine) shutdown() {
	m.cancelPending()
	m.source.Close()

	m.releaseOnce.Do(func() {
		if m.resources == nil {
			return
		}
		if err := m.resources.Close(); err != nil {
			log.Error().Err(err).Msg("failed to release input resources")
		}
	})
}

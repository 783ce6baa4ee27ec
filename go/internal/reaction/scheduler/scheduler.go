package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/reaction/go/internal/reaction/events"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMinDelay = 2000 * time.Millisecond
	DefaultMaxDelay = 7000 * time.Millisecond
)

// ErrInvalidRange is returned when the delay bounds cannot produce a delay
var ErrInvalidRange = errors.New("invalid delay range")

// Sink is where fired timers are delivered
type Sink interface {
	Send(ctx context.Context, ev events.Event) error
	Abort(err error)
}

// Scheduler produces one-shot TimerFired events after a randomized delay.
// Callers keep at most one Pending outstanding and cancel it before scheduling another.
type Scheduler struct {
	clock    clockwork.Clock
	rng      Rand
	sink     Sink
	minDelay time.Duration
	maxDelay time.Duration
}

// NewScheduler creates a scheduler drawing delays uniformly from [minDelay, maxDelay).
// In production, use clockwork.NewRealClock() and NewRand(). In tests, a FakeClock and a fixed Rand.
func NewScheduler(clock clockwork.Clock, rng Rand, sink Sink, minDelay, maxDelay time.Duration) (*Scheduler, error) {
	if minDelay <= 0 || maxDelay < minDelay {
		return nil, fmt.Errorf("%w: min %s, max %s", ErrInvalidRange, minDelay, maxDelay)
	}
	return &Scheduler{
		clock:    clock,
		rng:      rng,
		sink:     sink,
		minDelay: minDelay,
		maxDelay: maxDelay,
	}, nil
}

// NextDelay draws the next randomized delay with millisecond granularity
func (s *Scheduler) NextDelay() time.Duration {
	span := (s.maxDelay - s.minDelay).Milliseconds()
	if span <= 0 {
		return s.minDelay
	}
	return s.minDelay + time.Duration(s.rng.Int64N(span))*time.Millisecond
}

// Schedule starts a one-shot timer that enqueues exactly one TimerFired event
// carrying the timer's ID, unless it is cancelled first.
func (s *Scheduler) Schedule(ctx context.Context) (*Pending, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("schedule timer: %w", err)
	}

	delay := s.NextDelay()
	p := &Pending{
		id:          uuid.New(),
		scheduledAt: s.clock.Now(),
		delay:       delay,
		timer:       s.clock.NewTimer(delay),
		cancelled:   make(chan struct{}),
	}

	go s.await(ctx, p)

	log.Debug().
		Str("timer_id", p.id.String()).
		Time("scheduled_at", p.scheduledAt).
		Dur("delay", delay).
		Msg("scheduled one-shot timer")

	return p, nil
}

func (s *Scheduler) await(ctx context.Context, p *Pending) {
	select {
	case <-p.timer.Chan():
		// Cancel may have won the race after the timer fired but before we got here
		select {
		case <-p.cancelled:
			log.Debug().Str("timer_id", p.id.String()).Msg("timer fired after cancellation - dropped")
			return
		default:
		}

		if err := s.sink.Send(ctx, events.NewTimerFired(p.id)); err != nil {
			if ctx.Err() != nil {
				log.Debug().Str("timer_id", p.id.String()).Msg("timer fired during shutdown")
				return
			}
			log.Error().Err(err).Str("timer_id", p.id.String()).Msg("failed to deliver timer event")
			s.sink.Abort(fmt.Errorf("deliver timer %s: %w", p.id, err))
			return
		}
		log.Debug().Str("timer_id", p.id.String()).Msg("timer fired - enqueued")
	case <-p.cancelled:
		log.Debug().Str("timer_id", p.id.String()).Msg("timer cancelled")
	case <-ctx.Done():
		stopAndDrainTimer(p.timer)
		log.Debug().Str("timer_id", p.id.String()).Msg("timer cancelled due to context cancellation")
	}
}

// Pending is the cancellation handle for a scheduled timer
type Pending struct {
	id          uuid.UUID
	scheduledAt time.Time
	delay       time.Duration
	timer       clockwork.Timer

	once      sync.Once
	cancelled chan struct{}
}

// ID identifies the timer; TimerFired events carry it
func (p *Pending) ID() uuid.UUID { return p.id }

// ScheduledAt is the instant the timer was started
func (p *Pending) ScheduledAt() time.Time { return p.scheduledAt }

// Delay is the randomized delay chosen for this timer
func (p *Pending) Delay() time.Duration { return p.delay }

// Cancel guarantees a timer that has not fired never delivers its event.
// It reports whether the timer was stopped before firing; after firing, or on
// a repeated call, it is a no-op that returns false.
func (p *Pending) Cancel() bool {
	stopped := false
	p.once.Do(func() {
		stopped = p.timer.Stop()
		if !stopped {
			// Already fired; drain so the waiter cannot pick it up later
			select {
			case <-p.timer.Chan():
			default:
			}
		}
		close(p.cancelled)
	})
	return stopped
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

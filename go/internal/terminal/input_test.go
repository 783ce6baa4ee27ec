package terminal

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mcdev12/reaction/go/internal/reaction/events"
)

var (
	act  = events.NewActivation()
	quit = events.NewQuit()
)

func TestDecoderFeed(t *testing.T) {
	tests := []struct {
		name  string
		keys  KeyMap
		input string
		want  []events.Event
	}{
		{"space", DefaultKeyMap(), " ", []events.Event{act}},
		{"letters", DefaultKeyMap(), "ab", []events.Event{act, act}},
		{"enter and tab", DefaultKeyMap(), "\r\t", []events.Event{act, act}},
		{"unicode", DefaultKeyMap(), "é", []events.Event{act}},
		{"quit", DefaultKeyMap(), "q", []events.Event{quit}},
		{"nothing after quit", DefaultKeyMap(), "aqbc", []events.Event{act, quit}},
		{"ctrl-c quits", DefaultKeyMap(), "\x03", []events.Event{quit}},
		{"other control bytes dropped", DefaultKeyMap(), "\x01\x7f\x1a", nil},
		{"arrow keys dropped", DefaultKeyMap(), "\x1b[A\x1b[B", nil},
		{"function key dropped", DefaultKeyMap(), "\x1b[15~\x1bOP", nil},
		{"alt+key decodes key", DefaultKeyMap(), "\x1bx", []events.Event{act}},
		{"x10 press", DefaultKeyMap(), "\x1b[M !!", []events.Event{act}},
		{"x10 right press", DefaultKeyMap(), "\x1b[M\"!!", []events.Event{act}},
		{"x10 release dropped", DefaultKeyMap(), "\x1b[M#!!", nil},
		{"x10 wheel dropped", DefaultKeyMap(), "\x1b[M`!!", nil},
		{"sgr press", DefaultKeyMap(), "\x1b[<0;10;5M", []events.Event{act}},
		{"sgr middle press", DefaultKeyMap(), "\x1b[<1;10;5M", []events.Event{act}},
		{"sgr release dropped", DefaultKeyMap(), "\x1b[<0;10;5m", nil},
		{"sgr wheel dropped", DefaultKeyMap(), "\x1b[<64;10;5M", nil},
		{"sgr motion dropped", DefaultKeyMap(), "\x1b[<32;10;5M", nil},
		{"respond key only", KeyMap{Quit: 'q', Respond: ' '}, "a b", []events.Event{act}},
		{"mouse with respond key only", KeyMap{Quit: 'q', Respond: ' '}, "\x1b[<0;1;1M", []events.Event{act}},
		{"custom quit key", KeyMap{Quit: 'x', Respond: ' ', AnyKey: true}, "qx", []events.Event{act, quit}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewDecoder(tt.keys).Feed([]byte(tt.input))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("events mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecoderSplitSequences(t *testing.T) {
	d := NewDecoder(DefaultKeyMap())

	chunks := []string{"\x1b", "[<0;1", "2;7", "M", "\x1b[", "A", "z"}
	var got []events.Event
	for _, c := range chunks {
		got = append(got, d.Feed([]byte(c))...)
	}

	want := []events.Event{act, act}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestDecoderSplitRune(t *testing.T) {
	d := NewDecoder(DefaultKeyMap())
	r := []byte("ü")

	if got := d.Feed(r[:1]); len(got) != 0 {
		t.Fatalf("expected no events for partial rune, got %v", got)
	}
	if got := d.Feed(r[1:]); len(got) != 1 {
		t.Fatalf("expected one event once rune completes, got %v", got)
	}
}

func TestDecoderStopsAfterQuit(t *testing.T) {
	d := NewDecoder(DefaultKeyMap())
	d.Feed([]byte("q"))

	if !d.Done() {
		t.Fatal("decoder should be done after quit")
	}
	if got := d.Feed([]byte("abc")); got != nil {
		t.Errorf("expected no events after quit, got %v", got)
	}
}

type sinkRecorder struct {
	events []events.Event
	err    error
}

func (s *sinkRecorder) Send(ctx context.Context, ev events.Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func TestInputRunStopsAtQuit(t *testing.T) {
	sink := &sinkRecorder{}
	in := NewInput(strings.NewReader("a b q never read"), DefaultKeyMap())

	if err := in.Run(context.Background(), sink); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	// "a", " ", "b", " " then quit; the rest is never decoded
	want := []events.Event{act, act, act, act, quit}
	if diff := cmp.Diff(want, sink.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestInputRunQuitsOnEOF(t *testing.T) {
	sink := &sinkRecorder{}
	in := NewInput(strings.NewReader(" "), DefaultKeyMap())

	if err := in.Run(context.Background(), sink); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	want := []events.Event{act, quit}
	if diff := cmp.Diff(want, sink.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestInputRunReportsSendFailure(t *testing.T) {
	sink := &sinkRecorder{err: events.ErrQueueClosed}
	in := NewInput(strings.NewReader(" "), DefaultKeyMap())

	if err := in.Run(context.Background(), sink); !errors.Is(err, events.ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

type brokenReader struct{}

func (brokenReader) Read(p []byte) (int, error) { return 0, io.ErrClosedPipe }

func TestInputRunReportsReadFailure(t *testing.T) {
	in := NewInput(brokenReader{}, DefaultKeyMap())

	if err := in.Run(context.Background(), &sinkRecorder{}); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected read error, got %v", err)
	}
}

// Package reply keeps a mock conversation alive by answering every local
// message with a canned reply after a short typing pause.
package reply

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Avicted/farmchat/internal/clock"
	"github.com/Avicted/farmchat/internal/message"
)

const (
	DefaultTypingDelay    = 1000 * time.Millisecond
	DefaultTypingDuration = 2000 * time.Millisecond
	DefaultText           = "That sounds excellent! Let me know if you need any logistics support."
)

// RemoteAppender receives the simulated reply.
type RemoteAppender interface {
	AppendRemote(text string) (message.Message, bool)
}

type Options struct {
	TypingDelay    time.Duration
	TypingDuration time.Duration
	Text           string
	// Coalesce keeps at most one pending reply. Sends made while a reply is
	// pending do not schedule another one.
	Coalesce bool
}

func DefaultOptions() Options {
	return Options{
		TypingDelay:    DefaultTypingDelay,
		TypingDuration: DefaultTypingDuration,
		Text:           DefaultText,
	}
}

type run struct {
	id     int
	timer  clock.Timer
	typing bool
}

// Simulator schedules one reply run per local send. Each run waits
// TypingDelay, shows the typing indicator for TypingDuration, then clears
// the indicator and appends the reply.
type Simulator struct {
	clock clock.Clock
	store RemoteAppender
	opts  Options
	log   zerolog.Logger

	mu        sync.Mutex
	runs      map[int]*run
	nextID    int
	typing    int
	closed    bool
	listeners []func(bool)
}

func NewSimulator(clk clock.Clock, store RemoteAppender, opts Options, log zerolog.Logger) *Simulator {
	if clk == nil {
		clk = clock.Real()
	}
	if opts.Text == "" {
		opts.Text = DefaultText
	}
	return &Simulator{
		clock: clk,
		store: store,
		opts:  opts,
		log:   log.With().Str("component", "reply").Logger(),
		runs:  make(map[int]*run),
	}
}

// OnTyping registers fn to receive typing indicator changes.
func (s *Simulator) OnTyping(fn func(bool)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Schedule starts a reply run. It reports false when the simulator is
// closed or a coalesced reply is already pending.
func (s *Simulator) Schedule() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if s.opts.Coalesce && len(s.runs) > 0 {
		s.log.Debug().Int("pending", len(s.runs)).Msg("reply already pending")
		return false
	}
	s.nextID++
	r := &run{id: s.nextID}
	s.runs[r.id] = r
	r.timer = s.clock.AfterFunc(s.opts.TypingDelay, func() { s.startTyping(r) })
	s.log.Debug().Int("run", r.id).Msg("reply scheduled")
	return true
}

// Typing reports whether the typing indicator is shown.
func (s *Simulator) Typing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing > 0
}

// Pending reports how many reply runs are in flight.
func (s *Simulator) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

// Close cancels every pending run. No callback fires afterwards.
func (s *Simulator) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id, r := range s.runs {
		r.timer.Stop()
		delete(s.runs, id)
	}
	wasTyping := s.typing > 0
	s.typing = 0
	listeners := s.snapshotListenersLocked()
	s.mu.Unlock()

	if wasTyping {
		notify(listeners, false)
	}
}

func (s *Simulator) startTyping(r *run) {
	s.mu.Lock()
	if s.closed || s.runs[r.id] != r {
		s.mu.Unlock()
		return
	}
	r.typing = true
	s.typing++
	changed := s.typing == 1
	r.timer = s.clock.AfterFunc(s.opts.TypingDuration, func() { s.finish(r) })
	listeners := s.snapshotListenersLocked()
	s.mu.Unlock()

	if changed {
		notify(listeners, true)
	}
}

func (s *Simulator) finish(r *run) {
	s.mu.Lock()
	if s.closed || s.runs[r.id] != r {
		s.mu.Unlock()
		return
	}
	delete(s.runs, r.id)
	if r.typing {
		s.typing--
	}
	changed := s.typing == 0
	listeners := s.snapshotListenersLocked()
	s.mu.Unlock()

	if changed {
		notify(listeners, false)
	}
	if s.store != nil {
		s.store.AppendRemote(s.opts.Text)
	}
	s.log.Debug().Int("run", r.id).Msg("reply delivered")
}

func (s *Simulator) snapshotListenersLocked() []func(bool) {
	out := make([]func(bool), len(s.listeners))
	copy(out, s.listeners)
	return out
}

func notify(listeners []func(bool), typing bool) {
	for _, fn := range listeners {
		fn(typing)
	}
}

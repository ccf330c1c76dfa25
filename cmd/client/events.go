package main

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Avicted/farmchat/internal/media"
	"github.com/Avicted/farmchat/internal/message"
)

const eventQueue = 128

// eventBus carries callbacks from the store, the reply simulator, the media
// controller and push-to-talk into the Bubble Tea loop.
type eventBus struct {
	ch        chan tea.Msg
	done      chan struct{}
	closeOnce sync.Once
}

func newEventBus() *eventBus {
	return &eventBus{
		ch:   make(chan tea.Msg, eventQueue),
		done: make(chan struct{}),
	}
}

// send never blocks the caller; Update is itself a producer, so a full queue
// is drained by a helper goroutine instead.
func (b *eventBus) send(msg tea.Msg) {
	select {
	case b.ch <- msg:
		return
	case <-b.done:
		return
	default:
	}
	go func() {
		select {
		case b.ch <- msg:
		case <-b.done:
		}
	}()
}

func (b *eventBus) close() {
	b.closeOnce.Do(func() { close(b.done) })
}

func waitForEvent(b *eventBus) tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.ch:
			return msg
		case <-b.done:
			return nil
		}
	}
}

// Session-scoped events carry the id of the chat that produced them so late
// callbacks from a closed chat are ignored.

type storeChangedMsg struct {
	session uint64
	id      message.ID
}

type typingMsg struct {
	session uint64
	typing  bool
}

type elapsedMsg struct {
	session uint64
	seconds int
}

type recordStateMsg struct {
	session uint64
	state   media.State
}

type playbackMsg struct {
	session uint64
	id      message.ID
	playing bool
}

// mediaResultMsg reports the outcome of a media command run off the UI loop.
type mediaResultMsg struct {
	session uint64
	action  string
	err     error
}

type alertMsg struct {
	alert media.Alert
}

type promptMsg struct {
	capability media.Capability
	answer     chan bool
}

type pttMsg struct {
	down bool
}

// busAlerter shows media alerts as modal dialogs.
type busAlerter struct {
	bus *eventBus
}

func (a busAlerter) Alert(alert media.Alert) {
	a.bus.send(alertMsg{alert: alert})
}

var errPromptClosed = errors.New("permission prompt closed")

// busPrompt asks the user through a confirm dialog and waits for the answer.
func busPrompt(bus *eventBus) func(context.Context, media.Capability) (bool, error) {
	return func(ctx context.Context, c media.Capability) (bool, error) {
		answer := make(chan bool, 1)
		bus.send(promptMsg{capability: c, answer: answer})
		select {
		case granted := <-answer:
			return granted, nil
		case <-ctx.Done():
			return false, ctx.Err()
		case <-bus.done:
			return false, errPromptClosed
		}
	}
}

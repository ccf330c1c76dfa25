package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/Avicted/farmchat/internal/clock"
	"github.com/Avicted/farmchat/internal/config"
	"github.com/Avicted/farmchat/internal/media"
)

type fakeRecording struct {
	path string
}

func (r fakeRecording) Stop(context.Context) (string, error) { return r.path, nil }
func (r fakeRecording) Discard() error                       { return nil }

type fakeRecorder struct {
	mu     sync.Mutex
	starts int
}

func (r *fakeRecorder) Start(context.Context) (media.Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
	return fakeRecording{path: "/tmp/note.ogg"}, nil
}

type fakeSound struct {
	mu         sync.Mutex
	onComplete func()
}

func (s *fakeSound) Play() error { return nil }
func (s *fakeSound) OnComplete(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onComplete = fn
}
func (s *fakeSound) Unload() error { return nil }

type fakePlayer struct {
	fail bool
}

func (p fakePlayer) Load(context.Context, string) (media.Sound, error) {
	if p.fail {
		return nil, errors.New("decoder missing")
	}
	return &fakeSound{}, nil
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.DataDir = "/tmp/farmchat-test"
	cfg.LogFile = ""
	cfg.Access = config.Access{Microphone: "granted", Photos: "granted"}
	return cfg
}

func newTestApp(t *testing.T, cfg config.Config) (*app, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC))
	a, err := newApp(cfg, zerolog.Nop(), clk, &fakeRecorder{}, fakePlayer{})
	if err != nil {
		t.Fatalf("newApp() error: %v", err)
	}
	t.Cleanup(a.bus.close)
	return a, clk
}

func newTestChat(t *testing.T, cfg config.Config) (chatModel, *app, *clock.Fake) {
	t.Helper()
	a, clk := newTestApp(t, cfg)
	m := newChatModel(a, a.openSession(), experts[0], 100, 30)
	t.Cleanup(m.session.close)
	return m, a, clk
}

// drainEvents returns everything queued on the bus without blocking.
func drainEvents(a *app) []tea.Msg {
	var out []tea.Msg
	for {
		select {
		case msg := <-a.bus.ch:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func applyEvents(m chatModel, a *app) chatModel {
	for _, msg := range drainEvents(a) {
		m, _ = m.Update(msg)
	}
	return m
}

func key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func runCmd(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	return cmd()
}

package media

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Avicted/farmchat/internal/clock"
	"github.com/Avicted/farmchat/internal/conversation"
)

type fakePermissions struct {
	grants map[Capability]bool
	err    error
	asked  []Capability
}

func (p *fakePermissions) Request(_ context.Context, c Capability) (bool, error) {
	p.asked = append(p.asked, c)
	if p.err != nil {
		return false, p.err
	}
	return p.grants[c], nil
}

type fakeRecording struct {
	ref       string
	stopErr   error
	stopped   bool
	discarded bool
}

func (r *fakeRecording) Stop(context.Context) (string, error) {
	r.stopped = true
	if r.stopErr != nil {
		return "", r.stopErr
	}
	return r.ref, nil
}

func (r *fakeRecording) Discard() error {
	r.discarded = true
	return nil
}

type fakeRecorder struct {
	startErr   error
	stopErr    error
	recordings []*fakeRecording
}

func (r *fakeRecorder) Start(context.Context) (Recording, error) {
	if r.startErr != nil {
		return nil, r.startErr
	}
	rec := &fakeRecording{ref: "/voice/note.fcvn", stopErr: r.stopErr}
	r.recordings = append(r.recordings, rec)
	return rec, nil
}

type fakeSound struct {
	ref        string
	playErr    error
	played     bool
	unloaded   bool
	onComplete func()
}

func (s *fakeSound) Play() error {
	if s.playErr != nil {
		return s.playErr
	}
	s.played = true
	return nil
}

func (s *fakeSound) OnComplete(fn func()) { s.onComplete = fn }

func (s *fakeSound) Unload() error {
	s.unloaded = true
	return nil
}

// finish simulates the clip reaching its end.
func (s *fakeSound) finish() {
	if s.onComplete != nil && !s.unloaded {
		s.onComplete()
	}
}

type fakePlayer struct {
	loadErr error
	playErr error
	sounds  []*fakeSound
}

func (p *fakePlayer) Load(_ context.Context, ref string) (Sound, error) {
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	s := &fakeSound{ref: ref, playErr: p.playErr}
	p.sounds = append(p.sounds, s)
	return s, nil
}

type fakeAlerts struct {
	mu     sync.Mutex
	alerts []Alert
}

func (a *fakeAlerts) Alert(alert Alert) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, alert)
}

func (a *fakeAlerts) titles() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.alerts))
	for _, alert := range a.alerts {
		out = append(out, alert.Title)
	}
	return out
}

type fakePicker struct {
	ref string
	ok  bool
	err error
}

func (p fakePicker) Pick(context.Context, PickOptions) (string, bool, error) {
	return p.ref, p.ok, p.err
}

type harness struct {
	ctl      *Controller
	store    *conversation.Store
	clock    *clock.Fake
	perms    *fakePermissions
	recorder *fakeRecorder
	player   *fakePlayer
	alerts   *fakeAlerts
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clk := clock.NewFake(time.Date(2026, 6, 2, 7, 30, 0, 0, time.UTC))
	h := &harness{
		store:    conversation.NewStore(clk, zerolog.Nop()),
		clock:    clk,
		perms:    &fakePermissions{grants: map[Capability]bool{Microphone: true, Photos: true}},
		recorder: &fakeRecorder{},
		player:   &fakePlayer{},
		alerts:   &fakeAlerts{},
	}
	h.ctl = NewController(Deps{
		Clock:       clk,
		Permissions: h.perms,
		Recorder:    h.recorder,
		Player:      h.player,
		Store:       h.store,
		Alerts:      h.alerts,
		Logger:      zerolog.Nop(),
	})
	t.Cleanup(h.ctl.Close)
	return h
}

var errDevice = errors.New("device unavailable")

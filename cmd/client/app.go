package main

import (
	"github.com/rs/zerolog"

	"github.com/Avicted/farmchat/internal/clock"
	"github.com/Avicted/farmchat/internal/config"
	"github.com/Avicted/farmchat/internal/conversation"
	"github.com/Avicted/farmchat/internal/media"
	"github.com/Avicted/farmchat/internal/message"
	"github.com/Avicted/farmchat/internal/permission"
	"github.com/Avicted/farmchat/internal/reply"
)

// app holds what outlives a single chat: devices, permission answers and the
// event bus.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	clock    clock.Clock
	recorder media.Recorder
	player   media.Player
	perms    media.Permissions
	bus      *eventBus

	nextSession uint64
}

func newApp(cfg config.Config, log zerolog.Logger, clk clock.Clock, recorder media.Recorder, player media.Player) (*app, error) {
	mic, err := permission.ParseMode(cfg.Access.Microphone)
	if err != nil {
		return nil, err
	}
	photos, err := permission.ParseMode(cfg.Access.Photos)
	if err != nil {
		return nil, err
	}
	bus := newEventBus()
	perms := permission.New(map[media.Capability]permission.Mode{
		media.Microphone: mic,
		media.Photos:     photos,
	}, busPrompt(bus), log)

	return &app{
		cfg:      cfg,
		log:      log,
		clock:    clk,
		recorder: recorder,
		player:   player,
		perms:    perms,
		bus:      bus,
	}, nil
}

// chatSession is the live state behind one open chat.
type chatSession struct {
	id    uint64
	store *conversation.Store
	reply *reply.Simulator
	media *media.Controller
}

func (a *app) openSession() *chatSession {
	a.nextSession++
	id := a.nextSession
	log := a.log.With().Uint64("session", id).Logger()

	store := conversation.NewStore(a.clock, log)
	store.Seed(conversation.OpeningHistory()...)
	store.OnAppend(func(m message.Message) {
		a.bus.send(storeChangedMsg{session: id, id: m.ID})
	})

	sim := reply.NewSimulator(a.clock, store, reply.Options{
		TypingDelay:    a.cfg.Reply.TypingDelay,
		TypingDuration: a.cfg.Reply.TypingDuration,
		Text:           a.cfg.Reply.Text,
		Coalesce:       a.cfg.Reply.Coalesce,
	}, log)
	sim.OnTyping(func(typing bool) {
		a.bus.send(typingMsg{session: id, typing: typing})
	})

	ctrl := media.NewController(media.Deps{
		Clock:       a.clock,
		Permissions: a.perms,
		Recorder:    a.recorder,
		Player:      a.player,
		Store:       store,
		Alerts:      busAlerter{bus: a.bus},
		Logger:      log,
	})
	ctrl.OnElapsed(func(seconds int) {
		a.bus.send(elapsedMsg{session: id, seconds: seconds})
	})
	ctrl.OnStateChange(func(state media.State) {
		a.bus.send(recordStateMsg{session: id, state: state})
	})
	ctrl.OnPlayback(func(msgID message.ID, playing bool) {
		a.bus.send(playbackMsg{session: id, id: msgID, playing: playing})
	})

	log.Debug().Msg("chat opened")
	return &chatSession{id: id, store: store, reply: sim, media: ctrl}
}

func (s *chatSession) close() {
	if s == nil {
		return
	}
	s.reply.Close()
	s.media.Close()
}

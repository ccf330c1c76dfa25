package media

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Avicted/farmchat/internal/clock"
	"github.com/Avicted/farmchat/internal/conversation"
	"github.com/Avicted/farmchat/internal/message"
)

const elapsedInterval = time.Second

type State int

const (
	StateIdle State = iota
	StateRecording
)

func (s State) String() string {
	if s == StateRecording {
		return "recording"
	}
	return "idle"
}

type Deps struct {
	Clock       clock.Clock
	Permissions Permissions
	Recorder    Recorder
	Player      Player
	Store       AttachmentAppender
	Alerts      Alerter
	Logger      zerolog.Logger
}

type recordingSession struct {
	elapsed int
	handle  Recording
	timer   clock.Timer
}

type playbackSession struct {
	messageID message.ID
	sound     Sound
}

// Controller owns the microphone and the audio output for one conversation.
// At most one recording and at most one playback exist at any time.
type Controller struct {
	clock  clock.Clock
	perms  Permissions
	rec    Recorder
	player Player
	store  AttachmentAppender
	alerts Alerter
	log    zerolog.Logger

	mu        sync.Mutex
	starting  bool
	recording *recordingSession
	playback  *playbackSession
	closed    bool

	elapsedListeners  []func(int)
	stateListeners    []func(State)
	playbackListeners []func(message.ID, bool)
}

func NewController(d Deps) *Controller {
	clk := d.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &Controller{
		clock:  clk,
		perms:  d.Permissions,
		rec:    d.Recorder,
		player: d.Player,
		store:  d.Store,
		alerts: d.Alerts,
		log:    d.Logger.With().Str("component", "media").Logger(),
	}
}

// OnElapsed registers fn to receive the recording counter, starting at 0.
func (c *Controller) OnElapsed(fn func(int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.elapsedListeners = append(c.elapsedListeners, fn)
}

func (c *Controller) OnStateChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateListeners = append(c.stateListeners, fn)
}

// OnPlayback registers fn to receive playback start (true) and end (false)
// for a message.
func (c *Controller) OnPlayback(fn func(message.ID, bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playbackListeners = append(c.playbackListeners, fn)
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recording != nil {
		return StateRecording
	}
	return StateIdle
}

// Elapsed returns the seconds recorded so far, 0 when idle.
func (c *Controller) Elapsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recording == nil {
		return 0
	}
	return c.recording.elapsed
}

// StartRecording asks for microphone access and starts a capture.
func (c *Controller) StartRecording(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.recording != nil || c.starting {
		c.mu.Unlock()
		return ErrAlreadyRecording
	}
	c.starting = true
	c.mu.Unlock()

	if !c.request(ctx, Microphone) {
		c.clearStarting()
		c.alert(microphoneDeniedAlert)
		return fmt.Errorf("start recording: %w", ErrPermissionDenied)
	}

	if c.rec == nil {
		c.clearStarting()
		c.alert(recordingFailedAlert)
		return fmt.Errorf("start recording: %w: no capture device", ErrRecording)
	}
	handle, err := c.rec.Start(ctx)
	if err != nil {
		c.clearStarting()
		c.log.Warn().Err(err).Msg("capture device failed to start")
		c.alert(recordingFailedAlert)
		return fmt.Errorf("start recording: %w: %w", ErrRecording, err)
	}

	c.mu.Lock()
	c.starting = false
	if c.closed {
		c.mu.Unlock()
		_ = handle.Discard()
		return ErrClosed
	}
	sess := &recordingSession{handle: handle}
	c.recording = sess
	sess.timer = c.clock.AfterFunc(elapsedInterval, func() { c.tick(sess) })
	stateListeners := append([]func(State){}, c.stateListeners...)
	elapsedListeners := append([]func(int){}, c.elapsedListeners...)
	c.mu.Unlock()

	c.log.Debug().Msg("recording started")
	for _, fn := range stateListeners {
		fn(StateRecording)
	}
	for _, fn := range elapsedListeners {
		fn(0)
	}
	return nil
}

// StopRecording ends the capture and appends it as a voice message.
func (c *Controller) StopRecording(ctx context.Context) (message.Message, error) {
	sess, err := c.detachRecording()
	if err != nil {
		return message.Message{}, err
	}

	ref, err := sess.handle.Stop(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("capture device failed to stop")
		c.alert(recordingFailedAlert)
		return message.Message{}, fmt.Errorf("stop recording: %w: %w", ErrRecording, err)
	}

	label := message.FormatDuration(sess.elapsed)
	msg, err := c.store.AppendAttachment(message.KindVoice, ref, conversation.AttachmentMeta{DurationLabel: label})
	if err != nil {
		return message.Message{}, fmt.Errorf("stop recording: %w", err)
	}
	c.log.Debug().Str("duration", label).Str("id", string(msg.ID)).Msg("recording sent")
	return msg, nil
}

// CancelRecording ends the capture without producing a message.
func (c *Controller) CancelRecording() error {
	sess, err := c.detachRecording()
	if err != nil {
		return err
	}
	if err := sess.handle.Discard(); err != nil {
		c.log.Warn().Err(err).Msg("discard recording failed")
	}
	c.log.Debug().Int("elapsed", sess.elapsed).Msg("recording cancelled")
	return nil
}

// Close discards any recording and stops playback.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	sess := c.recording
	c.recording = nil
	if sess != nil {
		sess.timer.Stop()
	}
	pb := c.playback
	c.playback = nil
	c.mu.Unlock()

	if sess != nil {
		_ = sess.handle.Discard()
	}
	if pb != nil {
		c.unload(pb)
	}
}

func (c *Controller) detachRecording() (*recordingSession, error) {
	c.mu.Lock()
	sess := c.recording
	if sess == nil {
		c.mu.Unlock()
		return nil, ErrNotRecording
	}
	c.recording = nil
	sess.timer.Stop()
	listeners := append([]func(State){}, c.stateListeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(StateIdle)
	}
	return sess, nil
}

func (c *Controller) tick(sess *recordingSession) {
	c.mu.Lock()
	if c.recording != sess {
		c.mu.Unlock()
		return
	}
	sess.elapsed++
	n := sess.elapsed
	sess.timer = c.clock.AfterFunc(elapsedInterval, func() { c.tick(sess) })
	listeners := append([]func(int){}, c.elapsedListeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(n)
	}
}

func (c *Controller) clearStarting() {
	c.mu.Lock()
	c.starting = false
	c.mu.Unlock()
}

func (c *Controller) request(ctx context.Context, capability Capability) bool {
	if c.perms == nil {
		return true
	}
	granted, err := c.perms.Request(ctx, capability)
	if err != nil {
		c.log.Warn().Err(err).Stringer("capability", capability).Msg("permission request failed")
		return false
	}
	return granted
}

func (c *Controller) alert(a Alert) {
	if c.alerts == nil {
		return
	}
	c.alerts.Alert(a)
}

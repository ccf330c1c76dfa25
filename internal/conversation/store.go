package conversation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Avicted/farmchat/internal/clock"
	"github.com/Avicted/farmchat/internal/message"
)

const (
	imagePlaceholder = "Image sent"
	voicePlaceholder = "Voice message"
)

var ErrInvalidAttachment = errors.New("invalid attachment")

// Listener is notified after every append. The presentation layer treats it
// as the scroll-to-end signal.
type Listener func(message.Message)

// AttachmentMeta carries the extra fields of a media message.
type AttachmentMeta struct {
	DurationLabel string
}

// Store holds the ordered messages of one open conversation.
type Store struct {
	clock clock.Clock
	ids   *message.IDSource
	log   zerolog.Logger

	mu        sync.RWMutex
	messages  []message.Message
	listeners []Listener
}

func NewStore(clk clock.Clock, log zerolog.Logger) *Store {
	if clk == nil {
		clk = clock.Real()
	}
	return &Store{
		clock: clk,
		ids:   &message.IDSource{},
		log:   log.With().Str("component", "conversation").Logger(),
	}
}

// OnAppend registers fn to receive every appended message.
func (s *Store) OnAppend(fn Listener) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Seed loads an opening history without notifying listeners.
func (s *Store) Seed(msgs ...message.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msgs...)
}

// AppendLocal adds a text message typed by the local user. Blank input is
// ignored and reported as false.
func (s *Store) AppendLocal(text string) (message.Message, bool) {
	if strings.TrimSpace(text) == "" {
		return message.Message{}, false
	}
	return s.append(message.Message{
		Text:          text,
		Sender:        message.SenderLocal,
		Kind:          message.KindText,
		DeliveryState: message.StateSent,
	}), true
}

// AppendRemote adds a text message from the conversation partner.
func (s *Store) AppendRemote(text string) (message.Message, bool) {
	if strings.TrimSpace(text) == "" {
		return message.Message{}, false
	}
	return s.append(message.Message{
		Text:          text,
		Sender:        message.SenderRemote,
		Kind:          message.KindText,
		DeliveryState: message.StateRead,
	}), true
}

// AppendAttachment adds a local image or voice message referencing ref.
func (s *Store) AppendAttachment(kind message.Kind, ref string, meta AttachmentMeta) (message.Message, error) {
	if ref == "" {
		return message.Message{}, fmt.Errorf("%w: empty reference", ErrInvalidAttachment)
	}
	msg := message.Message{
		Sender:        message.SenderLocal,
		Kind:          kind,
		DeliveryState: message.StateSent,
	}
	switch kind {
	case message.KindImage:
		msg.Text = imagePlaceholder
		msg.AttachmentRef = ref
	case message.KindVoice:
		if meta.DurationLabel == "" {
			return message.Message{}, fmt.Errorf("%w: voice message needs a duration", ErrInvalidAttachment)
		}
		msg.Text = voicePlaceholder
		msg.AudioRef = ref
		msg.DurationLabel = meta.DurationLabel
	default:
		return message.Message{}, fmt.Errorf("%w: kind %s is not an attachment", ErrInvalidAttachment, kind)
	}
	return s.append(msg), nil
}

// Messages returns a copy of the conversation in append order.
func (s *Store) Messages() []message.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]message.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Find returns the message with the given id.
func (s *Store) Find(id message.ID) (message.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.messages {
		if m.ID == id {
			return m, true
		}
	}
	return message.Message{}, false
}

func (s *Store) append(msg message.Message) message.Message {
	s.mu.Lock()
	now := s.clock.Now()
	msg.ID = s.ids.Next(now)
	msg.TimestampLabel = now.Format(message.TimeLayout)
	s.messages = append(s.messages, msg)
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	s.log.Debug().
		Str("id", string(msg.ID)).
		Stringer("sender", msg.Sender).
		Stringer("kind", msg.Kind).
		Msg("message appended")

	for _, fn := range listeners {
		fn(msg)
	}
	return msg
}

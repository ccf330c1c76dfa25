package message

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// ID identifies a message within a conversation. IDs are derived from the
// creation time in unix milliseconds and increase strictly.
type ID string

type Sender int

const (
	SenderLocal Sender = iota
	SenderRemote
)

func (s Sender) String() string {
	switch s {
	case SenderLocal:
		return "local"
	case SenderRemote:
		return "remote"
	default:
		return "unknown"
	}
}

type Kind int

const (
	KindText Kind = iota
	KindImage
	KindVoice
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	case KindVoice:
		return "voice"
	default:
		return "unknown"
	}
}

// DeliveryState is ordered: sent < delivered < read.
type DeliveryState int

const (
	StateSent DeliveryState = iota
	StateDelivered
	StateRead
)

func (d DeliveryState) String() string {
	switch d {
	case StateSent:
		return "sent"
	case StateDelivered:
		return "delivered"
	case StateRead:
		return "read"
	default:
		return "unknown"
	}
}

// Advance returns the later of d and next.
func (d DeliveryState) Advance(next DeliveryState) DeliveryState {
	if next > d {
		return next
	}
	return d
}

// TimeLayout renders a creation time as a time-of-day label.
const TimeLayout = "03:04 PM"

type Message struct {
	ID             ID
	Text           string
	Sender         Sender
	Kind           Kind
	AttachmentRef  string
	AudioRef       string
	DurationLabel  string
	TimestampLabel string
	DeliveryState  DeliveryState
}

var ErrInvalidFields = errors.New("message fields do not match kind")

// Validate checks that the populated optional fields match the kind.
func (m Message) Validate() error {
	switch m.Kind {
	case KindText:
		if m.AttachmentRef != "" || m.AudioRef != "" || m.DurationLabel != "" {
			return fmt.Errorf("%w: text message carries media", ErrInvalidFields)
		}
	case KindImage:
		if m.AttachmentRef == "" {
			return fmt.Errorf("%w: image message without attachment", ErrInvalidFields)
		}
		if m.AudioRef != "" || m.DurationLabel != "" {
			return fmt.Errorf("%w: image message carries audio", ErrInvalidFields)
		}
	case KindVoice:
		if m.AudioRef == "" || m.DurationLabel == "" {
			return fmt.Errorf("%w: voice message without audio or duration", ErrInvalidFields)
		}
		if m.AttachmentRef != "" {
			return fmt.Errorf("%w: voice message carries attachment", ErrInvalidFields)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidFields, int(m.Kind))
	}
	return nil
}

// FormatDuration renders whole seconds as M:SS. Minutes are not wrapped into hours.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// IDSource hands out timestamp-derived IDs that never repeat or go backwards,
// even when several messages are created within the same millisecond.
type IDSource struct {
	mu   sync.Mutex
	last int64
}

func (s *IDSource) Next(now time.Time) ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := now.UnixMilli()
	if v <= s.last {
		v = s.last + 1
	}
	s.last = v
	return ID(strconv.FormatInt(v, 10))
}

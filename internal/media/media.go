// Package media manages voice-note recording, single-slot audio playback and
// image attachments for a conversation. Platform capabilities (permissions,
// capture and playback devices, the image picker, dialogs) are injected.
package media

import (
	"context"
	"errors"

	"github.com/Avicted/farmchat/internal/conversation"
	"github.com/Avicted/farmchat/internal/message"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrPlayback         = errors.New("playback failed")
	ErrRecording        = errors.New("recording failed")
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
	ErrClosed           = errors.New("media controller closed")
)

type Capability int

const (
	Microphone Capability = iota
	Photos
)

func (c Capability) String() string {
	switch c {
	case Microphone:
		return "microphone"
	case Photos:
		return "photos"
	default:
		return "unknown"
	}
}

// Permissions asks the platform for access to a capability.
type Permissions interface {
	Request(ctx context.Context, c Capability) (bool, error)
}

// Recording is an in-progress capture.
type Recording interface {
	// Stop ends the capture and returns a reference to the recorded audio.
	Stop(ctx context.Context) (string, error)
	// Discard ends the capture and drops whatever was recorded.
	Discard() error
}

type Recorder interface {
	Start(ctx context.Context) (Recording, error)
}

// Sound is a loaded audio clip.
type Sound interface {
	Play() error
	// OnComplete registers fn to run once when the clip reaches its end.
	// It is not called when the sound is unloaded early.
	OnComplete(fn func())
	Unload() error
}

type Player interface {
	Load(ctx context.Context, ref string) (Sound, error)
}

type PickOptions struct {
	MaxBytes int64
	Formats  []string
}

func DefaultPickOptions() PickOptions {
	return PickOptions{
		MaxBytes: 10 << 20,
		Formats:  []string{"png", "jpeg", "gif"},
	}
}

// ImagePicker lets the user choose a single image. ok is false when the
// user cancelled.
type ImagePicker interface {
	Pick(ctx context.Context, opts PickOptions) (ref string, ok bool, err error)
}

type Alert struct {
	Title string
	Body  string
}

// Alerter shows a blocking dialog to the user.
type Alerter interface {
	Alert(a Alert)
}

// AttachmentAppender is the part of the conversation store the controller writes to.
type AttachmentAppender interface {
	AppendAttachment(kind message.Kind, ref string, meta conversation.AttachmentMeta) (message.Message, error)
}

var (
	microphoneDeniedAlert = Alert{Title: "Permission Required", Body: "You need to allow microphone access to record voice messages."}
	photosDeniedAlert     = Alert{Title: "Permission Required", Body: "You need to allow access to your photos to send images."}
	recordingFailedAlert  = Alert{Title: "Recording Error", Body: "The voice message could not be recorded."}
	playbackFailedAlert   = Alert{Title: "Playback Error", Body: "This voice message could not be played."}
	imageFailedAlert      = Alert{Title: "Image Error", Body: "The selected image could not be attached."}
)

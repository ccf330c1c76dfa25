//go:build !linux

package audio

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Avicted/farmchat/internal/media"
)

var errUnsupported = fmt.Errorf("voice notes are supported on linux only")

type Capture struct{}

type Playback struct{}

func StartCapture(context.Context) (*Capture, <-chan []int16, error) {
	return nil, nil, errUnsupported
}

func (c *Capture) Dropped() int64 { return 0 }

func (c *Capture) Close() error {
	return nil
}

func StartPlayback(context.Context) (*Playback, error) {
	return nil, errUnsupported
}

func (p *Playback) Write([]int16) {}

func (p *Playback) Buffered() int { return 0 }

func (p *Playback) Close() error {
	return nil
}

type Recorder struct{}

func NewRecorder(string, zerolog.Logger) *Recorder {
	return &Recorder{}
}

func (r *Recorder) Start(context.Context) (media.Recording, error) {
	return nil, errUnsupported
}

type Player struct{}

func NewPlayer(zerolog.Logger) *Player {
	return &Player{}
}

func (p *Player) Load(context.Context, string) (media.Sound, error) {
	return nil, errUnsupported
}

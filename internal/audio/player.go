//go:build linux

package audio

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Avicted/farmchat/internal/media"
)

const (
	feedInterval = 10 * time.Millisecond
	// keep about half a second queued ahead of the device
	feedAhead = SampleRate * Channels / 2
)

// Player plays voice notes on the default output device.
type Player struct {
	log zerolog.Logger

	startPlayback func(context.Context) (*Playback, error)
}

func NewPlayer(log zerolog.Logger) *Player {
	return &Player{
		log:           log.With().Str("component", "player").Logger(),
		startPlayback: StartPlayback,
	}
}

// Load decodes the whole note up front so playback never stalls on I/O.
func (p *Player) Load(ctx context.Context, ref string) (media.Sound, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(ref)
	if err != nil {
		return nil, fmt.Errorf("open voice note: %w", err)
	}
	defer f.Close()

	pcm, err := decodeNote(f)
	if err != nil {
		return nil, err
	}
	return &sound{pcm: pcm, start: p.startPlayback, log: p.log}, nil
}

type sound struct {
	pcm   []int16
	start func(context.Context) (*Playback, error)
	log   zerolog.Logger

	mu         sync.Mutex
	onComplete func()
	cancel     context.CancelFunc
	done       chan struct{}
	unloaded   bool
	completing bool
}

func (s *sound) OnComplete(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onComplete = fn
}

func (s *sound) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unloaded {
		return fmt.Errorf("sound already unloaded")
	}
	if s.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	out, err := s.start(ctx)
	if err != nil {
		cancel()
		return err
	}
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.feed(ctx, out)
	return nil
}

func (s *sound) feed(ctx context.Context, out *Playback) {
	defer close(s.done)
	defer out.Close()

	ticker := time.NewTicker(feedInterval)
	defer ticker.Stop()

	pos := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for pos < len(s.pcm) && out.Buffered() < feedAhead {
			end := min(pos+opusFrameSize*Channels, len(s.pcm))
			out.Write(s.pcm[pos:end])
			pos = end
		}
		if pos >= len(s.pcm) && out.Buffered() == 0 {
			break
		}
	}

	s.mu.Lock()
	fn := s.onComplete
	unloaded := s.unloaded
	s.completing = true
	s.mu.Unlock()
	if fn != nil && !unloaded {
		fn()
	}
}

func (s *sound) Unload() error {
	s.mu.Lock()
	if s.unloaded {
		s.mu.Unlock()
		return nil
	}
	s.unloaded = true
	cancel := s.cancel
	done := s.done
	completing := s.completing
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		// the completion callback runs on the feed goroutine and may unload
		if completing {
			return nil
		}
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
	return nil
}

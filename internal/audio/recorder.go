//go:build linux

package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Avicted/farmchat/internal/media"
)

const noteExt = ".ogg"

// Recorder captures voice notes from the default microphone into Ogg Opus
// files under dir.
type Recorder struct {
	dir string
	log zerolog.Logger

	startCapture func(context.Context) (*Capture, <-chan []int16, error)
}

func NewRecorder(dir string, log zerolog.Logger) *Recorder {
	return &Recorder{
		dir:          dir,
		log:          log.With().Str("component", "recorder").Logger(),
		startCapture: StartCapture,
	}
}

func (r *Recorder) Start(ctx context.Context) (media.Recording, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return nil, fmt.Errorf("create voice note dir: %w", err)
	}
	path := filepath.Join(r.dir, uuid.NewString()+noteExt)
	note, err := createNote(path)
	if err != nil {
		return nil, err
	}

	// the capture outlives the request context; Stop or Discard ends it
	captureCtx, cancel := context.WithCancel(context.Background())
	capture, samples, err := r.startCapture(captureCtx)
	if err != nil {
		cancel()
		_ = note.close()
		_ = os.Remove(path)
		return nil, err
	}

	rec := &recording{
		path:    path,
		note:    note,
		capture: capture,
		cancel:  cancel,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		log:     r.log,
	}
	go rec.loop(samples)
	return rec, nil
}

type recording struct {
	path    string
	note    *noteWriter
	capture *Capture
	cancel  context.CancelFunc
	log     zerolog.Logger

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	loopErr  error
}

func (r *recording) loop(samples <-chan []int16) {
	defer close(r.done)
	for {
		select {
		case <-r.stop:
			return
		case block := <-samples:
			if len(block) == 0 || r.loopErr != nil {
				continue
			}
			if err := r.note.write(block); err != nil {
				r.loopErr = err
			}
		}
	}
}

// finish stops the capture and the encoder loop and closes the file.
func (r *recording) finish(ctx context.Context) error {
	var err error
	r.stopOnce.Do(func() {
		close(r.stop)
		select {
		case <-r.done:
		case <-ctx.Done():
			err = ctx.Err()
		}
		_ = r.capture.Close()
		r.cancel()
		if err != nil {
			return
		}
		err = errors.Join(r.loopErr, r.note.close())
		r.log.Debug().
			Int("frames", r.note.frames).
			Int("bytes", r.note.bytes).
			Int64("dropped", r.capture.Dropped()).
			Msg("voice note finished")
	})
	return err
}

func (r *recording) Stop(ctx context.Context) (string, error) {
	if err := r.finish(ctx); err != nil {
		_ = os.Remove(r.path)
		return "", err
	}
	return r.path, nil
}

func (r *recording) Discard() error {
	err := r.finish(context.Background())
	if rmErr := os.Remove(r.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		return errors.Join(err, rmErr)
	}
	return err
}

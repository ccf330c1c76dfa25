//go:build linux

package audio

import (
	"context"
	"encoding/binary"
	"sync"
)

const maxPlaybackBufferSeconds = 2

// Playback renders queued samples to the default output. Gaps are filled
// with silence.
type Playback struct {
	dev *device

	mu     sync.Mutex
	buf    []int16
	maxBuf int
}

func StartPlayback(ctx context.Context) (*Playback, error) {
	p := &Playback{maxBuf: SampleRate * maxPlaybackBufferSeconds}
	dev, err := openDevice(malgoPlayback, func(output, _ []byte, _ uint32) {
		p.fillOutput(output)
	})
	if err != nil {
		return nil, err
	}
	p.dev = dev

	go func() {
		<-ctx.Done()
		_ = p.Close()
	}()
	return p, nil
}

// Write queues samples. When the queue is full the oldest samples are dropped.
func (p *Playback) Write(samples []int16) {
	if p == nil || len(samples) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.maxBuf <= 0 {
		p.maxBuf = SampleRate * maxPlaybackBufferSeconds
	}
	if over := len(p.buf) + len(samples) - p.maxBuf; over > 0 {
		if over >= len(p.buf) {
			p.buf = p.buf[:0]
		} else {
			p.buf = p.buf[over:]
		}
	}
	p.buf = append(p.buf, samples...)
}

// Buffered reports how many samples are waiting to be rendered.
func (p *Playback) Buffered() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buf)
}

func (p *Playback) fillOutput(output []byte) {
	if p == nil || len(output) == 0 {
		return
	}
	want := len(output) / 2
	p.mu.Lock()
	defer p.mu.Unlock()
	n := min(want, len(p.buf))
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(output[i*2:], uint16(p.buf[i]))
	}
	for i := n; i < want; i++ {
		binary.LittleEndian.PutUint16(output[i*2:], 0)
	}
	p.buf = p.buf[n:]
}

func (p *Playback) Close() error {
	if p == nil {
		return nil
	}
	p.dev.close()
	return nil
}

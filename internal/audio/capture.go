//go:build linux

package audio

import (
	"context"
	"encoding/binary"
	"sync/atomic"
)

const captureQueue = 8

// Capture streams microphone samples until closed or its context ends.
type Capture struct {
	dev     *device
	dropped atomic.Int64
}

// StartCapture opens the default microphone. Sample blocks that the reader
// does not keep up with are dropped and counted.
func StartCapture(ctx context.Context) (*Capture, <-chan []int16, error) {
	c := &Capture{}
	ch := make(chan []int16, captureQueue)
	dev, err := openDevice(malgoCapture, func(_, input []byte, _ uint32) {
		if len(input) == 0 {
			return
		}
		samples := make([]int16, len(input)/2)
		for i := range samples {
			samples[i] = int16(binary.LittleEndian.Uint16(input[i*2:]))
		}
		select {
		case ch <- samples:
		default:
			c.dropped.Add(1)
		}
	})
	if err != nil {
		return nil, nil, err
	}
	c.dev = dev

	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()
	return c, ch, nil
}

// Dropped reports how many sample blocks were discarded.
func (c *Capture) Dropped() int64 {
	if c == nil {
		return 0
	}
	return c.dropped.Load()
}

func (c *Capture) Close() error {
	if c == nil {
		return nil
	}
	c.dev.close()
	return nil
}

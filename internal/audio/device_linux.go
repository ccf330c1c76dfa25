//go:build linux

package audio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// malgo entry points, swapped out by tests.
var (
	malgoInitContext         = malgo.InitContext
	malgoDefaultDeviceConfig = malgo.DefaultDeviceConfig
	malgoInitDevice          = malgo.InitDevice
	malgoContextUninit       = (*malgo.AllocatedContext).Uninit
	malgoDeviceStart         = (*malgo.Device).Start
	malgoDeviceUninit        = (*malgo.Device).Uninit
)

const (
	malgoCapture  = malgo.Capture
	malgoPlayback = malgo.Playback
)

// device is a started malgo device with its own context.
type device struct {
	ctx *malgo.AllocatedContext
	dev *malgo.Device

	closeOnce sync.Once
}

func openDevice(kind malgo.DeviceType, data func(output, input []byte, frames uint32)) (*device, error) {
	label := "playback"
	if kind == malgo.Capture {
		label = "capture"
	}

	malgoCtx, err := malgoInitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init malgo context: %w", err)
	}

	cfg := malgoDefaultDeviceConfig(kind)
	cfg.SampleRate = SampleRate
	if kind == malgo.Capture {
		cfg.Capture.Format = malgo.FormatS16
		cfg.Capture.Channels = Channels
	} else {
		cfg.Playback.Format = malgo.FormatS16
		cfg.Playback.Channels = Channels
	}

	dev, err := malgoInitDevice(malgoCtx.Context, cfg, malgo.DeviceCallbacks{Data: data})
	if err != nil {
		_ = malgoContextUninit(malgoCtx)
		return nil, fmt.Errorf("init %s device: %w", label, err)
	}
	if err := malgoDeviceStart(dev); err != nil {
		malgoDeviceUninit(dev)
		_ = malgoContextUninit(malgoCtx)
		return nil, fmt.Errorf("start %s: %w", label, err)
	}
	return &device{ctx: malgoCtx, dev: dev}, nil
}

func (d *device) close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		if d.dev != nil {
			malgoDeviceUninit(d.dev)
			d.dev = nil
		}
		if d.ctx != nil {
			_ = malgoContextUninit(d.ctx)
			d.ctx = nil
		}
	})
}

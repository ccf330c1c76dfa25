//go:build cgo && (!linux || x11hotkey)

// The hotkey package opens the X11 display in init and panics without one,
// so linux builds only link it when tagged x11hotkey.

package ptt

import (
	"context"

	"golang.design/x/hotkey"
)

type hotkeyBackend struct {
	hk *hotkey.Hotkey
}

func newHotkeyBackend(b Binding) (Backend, error) {
	mods := make([]hotkey.Modifier, 0, len(b.Mods))
	for _, m := range b.Mods {
		mods = append(mods, hotkey.Modifier(m))
	}
	return &hotkeyBackend{hk: hotkey.New(mods, hotkey.Key(b.Key))}, nil
}

func (p *hotkeyBackend) Run(ctx context.Context, onDown, onUp func()) error {
	if err := p.hk.Register(); err != nil {
		return err
	}
	defer p.hk.Unregister()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.hk.Keydown():
			onDown()
		case <-p.hk.Keyup():
			onUp()
		}
	}
}

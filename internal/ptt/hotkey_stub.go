//go:build !cgo || (linux && !x11hotkey)

package ptt

import "errors"

func newHotkeyBackend(Binding) (Backend, error) {
	return nil, errors.New("global hotkeys need cgo, and -tags x11hotkey on linux")
}

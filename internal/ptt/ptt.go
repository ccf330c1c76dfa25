// Package ptt turns a global hotkey into push-to-talk recording.
package ptt

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Backend delivers raw key transitions for a binding.
type Backend interface {
	Run(ctx context.Context, onDown, onUp func()) error
}

// Binding is a parsed hotkey with platform key codes.
type Binding struct {
	Text string
	Mods []uint32
	Key  uint32
}

var (
	newBackend = newHotkeyBackend
	newPortal  = newPortalBackend
)

// Controller runs a backend and reports only real press/release transitions,
// so auto-repeat and stray releases never reach the callbacks.
type Controller struct {
	binding Binding
	backend Backend
	log     zerolog.Logger

	mu      sync.Mutex
	pressed bool
}

func New(binding string, log zerolog.Logger) (*Controller, error) {
	b, err := ParseBinding(binding)
	if err != nil {
		return nil, err
	}
	log = log.With().Str("component", "ptt").Logger()
	backend, kind, err := selectBackend(b, log)
	if err != nil {
		return nil, fmt.Errorf("ptt hotkey %q unavailable: %w", b.Text, err)
	}
	log.Info().Str("binding", b.Text).Str("backend", kind).Str("os", runtime.GOOS).Msg("push-to-talk ready")
	return &Controller{binding: b, backend: backend, log: log}, nil
}

// selectBackend prefers the desktop portal on Wayland, where X11 grabs never
// see the keyboard.
func selectBackend(b Binding, log zerolog.Logger) (Backend, string, error) {
	if isWayland() {
		backend, err := newPortal(b)
		if err == nil {
			return backend, "portal", nil
		}
		log.Warn().Err(err).Msg("portal shortcuts unavailable, falling back to hotkey")
	}
	backend, err := newBackend(b)
	if err != nil {
		return nil, "", err
	}
	return backend, "hotkey", nil
}

func isWayland() bool {
	if runtime.GOOS != "linux" {
		return false
	}
	if strings.TrimSpace(os.Getenv("WAYLAND_DISPLAY")) != "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(os.Getenv("XDG_SESSION_TYPE")), "wayland")
}

func (c *Controller) Binding() string {
	return c.binding.Text
}

// Run blocks until ctx ends or the backend fails.
func (c *Controller) Run(ctx context.Context, onDown, onUp func()) error {
	if c == nil || c.backend == nil {
		return fmt.Errorf("ptt backend is not configured")
	}
	return c.backend.Run(ctx, func() {
		if !c.transition(true) {
			return
		}
		c.log.Debug().Msg("ptt down")
		if onDown != nil {
			onDown()
		}
	}, func() {
		if !c.transition(false) {
			return
		}
		c.log.Debug().Msg("ptt up")
		if onUp != nil {
			onUp()
		}
	})
}

func (c *Controller) transition(down bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pressed == down {
		return false
	}
	c.pressed = down
	return true
}

// ParseBinding reads bindings such as "ctrl+shift+space" or "alt+r".
func ParseBinding(binding string) (Binding, error) {
	binding = strings.TrimSpace(strings.ToLower(binding))
	if binding == "" {
		return Binding{}, fmt.Errorf("hotkey binding is required")
	}

	var b Binding
	hasKey := false
	for _, part := range strings.Split(binding, "+") {
		part = strings.TrimSpace(part)
		if mod, ok := modifierCode(part); ok {
			if hasKey {
				return Binding{}, fmt.Errorf("modifier %s must come before the key", part)
			}
			b.Mods = append(b.Mods, mod)
			continue
		}
		if hasKey {
			return Binding{}, fmt.Errorf("only one key is allowed, got %s", part)
		}
		key, err := keyCode(part)
		if err != nil {
			return Binding{}, err
		}
		b.Key = key
		hasKey = true
	}
	if !hasKey {
		return Binding{}, fmt.Errorf("missing key")
	}
	b.Text = binding
	return b, nil
}

func modifierCode(name string) (uint32, bool) {
	var codes map[string]uint32
	switch runtime.GOOS {
	case "linux":
		codes = map[string]uint32{"shift": 1 << 0, "ctrl": 1 << 2, "control": 1 << 2, "alt": 1 << 3}
	case "darwin":
		codes = map[string]uint32{"shift": 0x200, "ctrl": 0x1000, "control": 0x1000, "alt": 0x800, "cmd": 0x100}
	case "windows":
		codes = map[string]uint32{"alt": 0x1, "ctrl": 0x2, "control": 0x2, "shift": 0x4}
	}
	code, ok := codes[name]
	return code, ok
}

// macOS virtual key codes for the ANSI letter keys.
var darwinLetters = map[byte]uint32{
	'a': 0x00, 's': 0x01, 'd': 0x02, 'f': 0x03, 'h': 0x04, 'g': 0x05, 'z': 0x06,
	'x': 0x07, 'c': 0x08, 'v': 0x09, 'b': 0x0b, 'q': 0x0c, 'w': 0x0d, 'e': 0x0e,
	'r': 0x0f, 'y': 0x10, 't': 0x11, 'o': 0x1f, 'u': 0x20, 'i': 0x22, 'p': 0x23,
	'l': 0x25, 'j': 0x26, 'k': 0x28, 'n': 0x2d, 'm': 0x2e,
}

func keyCode(name string) (uint32, error) {
	goos := runtime.GOOS
	switch name {
	case "space":
		switch goos {
		case "linux", "windows":
			return 0x20, nil
		case "darwin":
			return 49, nil
		}
	case "caps", "capslock", "caps_lock":
		switch goos {
		case "linux":
			return 0xffe5, nil
		case "darwin":
			return 0x39, nil
		case "windows":
			return 0x14, nil
		}
	default:
		if len(name) != 1 || name[0] < 'a' || name[0] > 'z' {
			return 0, fmt.Errorf("unsupported key: %s", name)
		}
		switch goos {
		case "linux":
			return uint32(name[0]), nil
		case "windows":
			return uint32(name[0] - 'a' + 'A'), nil
		case "darwin":
			return darwinLetters[name[0]], nil
		}
	}
	return 0, fmt.Errorf("key %s is unsupported on %s", name, goos)
}

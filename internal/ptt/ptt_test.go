package ptt

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type scriptedBackend struct {
	events string
}

// Run replays events: 'd' for key down, 'u' for key up.
func (s scriptedBackend) Run(_ context.Context, onDown, onUp func()) error {
	for _, e := range s.events {
		if e == 'd' {
			onDown()
		} else {
			onUp()
		}
	}
	return nil
}

func useBackend(t *testing.T, fn func(Binding) (Backend, error)) {
	t.Helper()
	t.Setenv("WAYLAND_DISPLAY", "")
	t.Setenv("XDG_SESSION_TYPE", "x11")
	prev := newBackend
	newBackend = fn
	t.Cleanup(func() { newBackend = prev })
}

func usePortal(t *testing.T, fn func(Binding) (Backend, error)) {
	t.Helper()
	prev := newPortal
	newPortal = fn
	t.Cleanup(func() { newPortal = prev })
}

func TestParseBinding(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" && runtime.GOOS != "windows" {
		t.Skip("hotkeys are unsupported on " + runtime.GOOS)
	}
	tests := []struct {
		binding string
		mods    int
		wantErr string
	}{
		{binding: "ctrl+shift+space", mods: 2},
		{binding: " Control + R ", mods: 1},
		{binding: "alt+v", mods: 1},
		{binding: "caps"},
		{binding: "ctrl", wantErr: "missing key"},
		{binding: "ctrl+f1", wantErr: "unsupported key"},
		{binding: "r+ctrl", wantErr: "before the key"},
		{binding: "a+b", wantErr: "only one key"},
		{binding: "", wantErr: "required"},
	}
	for _, tc := range tests {
		t.Run(tc.binding, func(t *testing.T) {
			b, err := ParseBinding(tc.binding)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("ParseBinding(%q) error = %v, want %q", tc.binding, err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBinding(%q) error: %v", tc.binding, err)
			}
			if len(b.Mods) != tc.mods {
				t.Fatalf("mods = %v, want %d", b.Mods, tc.mods)
			}
			if b.Text != strings.ToLower(strings.TrimSpace(tc.binding)) {
				t.Fatalf("text = %q", b.Text)
			}
		})
	}
}

func TestLinuxKeyCodes(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux keysyms only")
	}
	b, err := ParseBinding("ctrl+shift+space")
	if err != nil {
		t.Fatal(err)
	}
	if b.Key != 0x20 || b.Mods[0] != 1<<2 || b.Mods[1] != 1 {
		t.Fatalf("binding = %+v", b)
	}
	if b, _ := ParseBinding("r"); b.Key != 'r' {
		t.Fatalf("r keysym = %#x", b.Key)
	}
}

func TestControllerFiltersRepeatedTransitions(t *testing.T) {
	useBackend(t, func(Binding) (Backend, error) {
		return scriptedBackend{events: "udddudu"}, nil
	})
	c, err := New("ctrl+space", zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	var got strings.Builder
	if err := c.Run(context.Background(), func() { got.WriteByte('D') }, func() { got.WriteByte('U') }); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got.String() != "DUDU" {
		t.Fatalf("transitions = %q, want DUDU", got.String())
	}
	if c.Binding() != "ctrl+space" {
		t.Fatalf("Binding() = %q", c.Binding())
	}
}

func TestNewReportsBackendFailure(t *testing.T) {
	useBackend(t, func(Binding) (Backend, error) {
		return nil, errors.New("no display")
	})
	if _, err := New("ctrl+space", zerolog.Nop()); err == nil || !strings.Contains(err.Error(), "no display") {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := New("hyper+space", zerolog.Nop()); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestNilControllerRun(t *testing.T) {
	var c *Controller
	if err := c.Run(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for unconfigured controller")
	}
}

func TestWaylandPrefersPortal(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("portal shortcuts are linux only")
	}
	useBackend(t, func(Binding) (Backend, error) {
		return scriptedBackend{events: "d"}, nil
	})
	t.Setenv("WAYLAND_DISPLAY", "wayland-0")

	usePortal(t, func(Binding) (Backend, error) {
		return scriptedBackend{events: "du"}, nil
	})
	c, err := New("ctrl+r", zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if c.backend.(scriptedBackend).events != "du" {
		t.Fatalf("expected portal backend, got %+v", c.backend)
	}

	usePortal(t, func(Binding) (Backend, error) {
		return nil, errors.New("no portal")
	})
	c, err = New("ctrl+r", zerolog.Nop())
	if err != nil {
		t.Fatalf("New() fallback error: %v", err)
	}
	if c.backend.(scriptedBackend).events != "d" {
		t.Fatalf("expected hotkey fallback, got %+v", c.backend)
	}
}

func TestPackageLoadsWithoutDisplay(t *testing.T) {
	if os.Getenv("FARMCHAT_TEST_PTT_HEADLESS") == "1" {
		if _, err := ParseBinding("ctrl+space"); err != nil {
			os.Exit(2)
		}
		_, _ = newHotkeyBackend(Binding{Text: "ctrl+space", Key: 0x20})
		os.Exit(0)
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestPackageLoadsWithoutDisplay")
	env := []string{"FARMCHAT_TEST_PTT_HEADLESS=1"}
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "DISPLAY=") || strings.HasPrefix(kv, "WAYLAND_DISPLAY=") {
			continue
		}
		env = append(env, kv)
	}
	cmd.Env = env
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("headless run failed: %v\n%s", err, out)
	}
}

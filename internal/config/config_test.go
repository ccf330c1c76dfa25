package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_CACHE_HOME", dir)
	t.Setenv("HOME", dir)
	for _, k := range []string{
		"FARMCHAT_CONFIG", "FARMCHAT_DATA_DIR", "FARMCHAT_LOG_LEVEL", "FARMCHAT_PTT_HOTKEY",
		"FARMCHAT_CPU_STATS", "FARMCHAT_TYPING_DELAY", "FARMCHAT_TYPING_DURATION",
		"FARMCHAT_REPLY_TEXT", "FARMCHAT_COALESCE_REPLIES", "FARMCHAT_MICROPHONE_ACCESS",
		"FARMCHAT_PHOTO_ACCESS",
	} {
		t.Setenv(k, "")
	}
	return dir
}

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFromEnvDefaultsWithoutFile(t *testing.T) {
	isolate(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.Reply.TypingDelay != time.Second || cfg.Reply.TypingDuration != 2*time.Second {
		t.Fatalf("reply timings = %v/%v", cfg.Reply.TypingDelay, cfg.Reply.TypingDuration)
	}
	if !strings.HasPrefix(cfg.Reply.Text, "That sounds excellent!") {
		t.Fatalf("reply text = %q", cfg.Reply.Text)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadReadsTOMLFromConfigDir(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, filepath.Join(dir, "farmchat", "config.toml"), `
data_dir = "/srv/farmchat"
log_level = "debug"
ptt_hotkey = "ctrl+shift+space"

[reply]
typing_delay = "250ms"
typing_duration = "1s"
text = "On my way."
coalesce = true

[access]
microphone = "denied"
`)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.DataDir != "/srv/farmchat" || cfg.LogLevel != "debug" || cfg.PTTHotkey != "ctrl+shift+space" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Reply.TypingDelay != 250*time.Millisecond || cfg.Reply.TypingDuration != time.Second {
		t.Fatalf("reply timings = %v/%v", cfg.Reply.TypingDelay, cfg.Reply.TypingDuration)
	}
	if cfg.Reply.Text != "On my way." || !cfg.Reply.Coalesce {
		t.Fatalf("reply = %+v", cfg.Reply)
	}
	if cfg.Access.Microphone != "denied" || cfg.Access.Photos != "granted" {
		t.Fatalf("access = %+v", cfg.Access)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.toml")
	writeConfig(t, path, "log_level = \"warn\"\n")
	t.Setenv("FARMCHAT_CONFIG", path)
	t.Setenv("FARMCHAT_LOG_LEVEL", "error")
	t.Setenv("FARMCHAT_TYPING_DELAY", "3s")
	t.Setenv("FARMCHAT_COALESCE_REPLIES", "true")
	t.Setenv("FARMCHAT_CPU_STATS", "1")
	t.Setenv("FARMCHAT_MICROPHONE_ACCESS", "granted")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.LogLevel != "error" || cfg.Reply.TypingDelay != 3*time.Second {
		t.Fatalf("cfg = %+v", cfg)
	}
	if !cfg.Reply.Coalesce || !cfg.CPUStats || cfg.Access.Microphone != "granted" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	dir := isolate(t)
	if _, err := Load(filepath.Join(dir, "nope.toml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.toml")
	writeConfig(t, path, "cpu_stats = \"maybe\"\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected decode error")
	}

	isolate(t)
	t.Setenv("FARMCHAT_TYPING_DURATION", "soon")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error for bad duration")
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		DataDir:  "/tmp/notes",
		LogLevel: "info",
		Reply:    Reply{Text: "ok"},
		Access:   Access{Microphone: "ask", Photos: "granted"},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	tests := map[string]func(*Config){
		"data dir":   func(c *Config) { c.DataDir = "" },
		"log level":  func(c *Config) { c.LogLevel = "chatty" },
		"no level":   func(c *Config) { c.LogLevel = "" },
		"negative":   func(c *Config) { c.Reply.TypingDelay = -time.Second },
		"reply text": func(c *Config) { c.Reply.Text = "  " },
		"microphone": func(c *Config) { c.Access.Microphone = "sometimes" },
		"photos":     func(c *Config) { c.Access.Photos = "" },
	}
	for name, mutate := range tests {
		cfg := valid
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

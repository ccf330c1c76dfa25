package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

const appName = "farmchat"

type Config struct {
	DataDir   string `toml:"data_dir"`
	LogFile   string `toml:"log_file"`
	LogLevel  string `toml:"log_level"`
	PTTHotkey string `toml:"ptt_hotkey"`
	CPUStats  bool   `toml:"cpu_stats"`

	Reply  Reply  `toml:"reply"`
	Access Access `toml:"access"`
}

// Reply tunes the simulated remote participant.
type Reply struct {
	TypingDelay    time.Duration `toml:"typing_delay"`
	TypingDuration time.Duration `toml:"typing_duration"`
	Text           string        `toml:"text"`
	Coalesce       bool          `toml:"coalesce"`
}

// Access holds the granted|denied|ask answer for each device capability.
type Access struct {
	Microphone string `toml:"microphone"`
	Photos     string `toml:"photos"`
}

func Default() Config {
	base := filepath.Join(os.TempDir(), appName)
	if dir, err := os.UserCacheDir(); err == nil {
		base = filepath.Join(dir, appName)
	}
	return Config{
		DataDir:  filepath.Join(base, "notes"),
		LogFile:  filepath.Join(base, appName+".log"),
		LogLevel: "info",
		Reply: Reply{
			TypingDelay:    time.Second,
			TypingDuration: 2 * time.Second,
			Text:           "That sounds excellent! Let me know if you need any logistics support.",
		},
		Access: Access{Microphone: "ask", Photos: "granted"},
	}
}

// Path returns FARMCHAT_CONFIG when set, otherwise config.toml in the user
// config directory.
func Path() (string, error) {
	if v := os.Getenv("FARMCHAT_CONFIG"); v != "" {
		return v, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, appName, "config.toml"), nil
}

// Load reads defaults, then the TOML file at path, then FARMCHAT_*
// overrides. An empty path resolves through Path and may be missing.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return Config{}, err
		}
		path = p
		explicit = os.Getenv("FARMCHAT_CONFIG") != ""
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFromEnv loads the default config file plus environment overrides.
func LoadFromEnv() (Config, error) {
	return Load("")
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("FARMCHAT_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v, ok := os.LookupEnv("FARMCHAT_LOG_FILE"); ok {
		c.LogFile = v
	}
	if v := os.Getenv("FARMCHAT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("FARMCHAT_PTT_HOTKEY"); v != "" {
		c.PTTHotkey = v
	}
	if v := os.Getenv("FARMCHAT_CPU_STATS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.New("FARMCHAT_CPU_STATS must be a boolean")
		}
		c.CPUStats = b
	}
	if v := os.Getenv("FARMCHAT_TYPING_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.New("FARMCHAT_TYPING_DELAY must be a duration")
		}
		c.Reply.TypingDelay = d
	}
	if v := os.Getenv("FARMCHAT_TYPING_DURATION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.New("FARMCHAT_TYPING_DURATION must be a duration")
		}
		c.Reply.TypingDuration = d
	}
	if v := os.Getenv("FARMCHAT_REPLY_TEXT"); v != "" {
		c.Reply.Text = v
	}
	if v := os.Getenv("FARMCHAT_COALESCE_REPLIES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.New("FARMCHAT_COALESCE_REPLIES must be a boolean")
		}
		c.Reply.Coalesce = b
	}
	if v := os.Getenv("FARMCHAT_MICROPHONE_ACCESS"); v != "" {
		c.Access.Microphone = v
	}
	if v := os.Getenv("FARMCHAT_PHOTO_ACCESS"); v != "" {
		c.Access.Photos = v
	}
	return nil
}

func (c Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data dir is required")
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil || c.LogLevel == "" {
		return fmt.Errorf("log level %q is not one of trace, debug, info, warn, error", c.LogLevel)
	}
	if c.Reply.TypingDelay < 0 || c.Reply.TypingDuration < 0 {
		return errors.New("reply delays must not be negative")
	}
	if strings.TrimSpace(c.Reply.Text) == "" {
		return errors.New("reply text is required")
	}
	if !validAccess(c.Access.Microphone) {
		return fmt.Errorf("microphone access %q must be granted, denied or ask", c.Access.Microphone)
	}
	if !validAccess(c.Access.Photos) {
		return fmt.Errorf("photo access %q must be granted, denied or ask", c.Access.Photos)
	}
	return nil
}

func validAccess(v string) bool {
	switch strings.ToLower(v) {
	case "granted", "denied", "ask":
		return true
	}
	return false
}

package config

import (
	"errors"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultServerURL      = "http://127.0.0.1:5700"
	defaultConnectTimeout = 3 * time.Second
	defaultDedupWindowMS  = 2000
	defaultStreamBuffer   = 256
	defaultListLimit      = 100
)

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Chat    ChatConfig    `toml:"chat"`
	Logging LoggingConfig `toml:"logging"`
}

type ServerConfig struct {
	URL              string `toml:"url"`
	ConnectTimeoutMS int    `toml:"connect_timeout_ms"`
}

type ChatConfig struct {
	Model         string `toml:"model"`
	Branch        string `toml:"branch"`
	DedupWindowMS int    `toml:"dedup_window_ms"`
	StreamBuffer  int    `toml:"stream_buffer"`
	ListLimit     int    `toml:"list_limit"`
	AutoConfirm   int    `toml:"auto_confirm"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			URL: defaultServerURL,
		},
		Chat: ChatConfig{
			Branch:        "main",
			DedupWindowMS: defaultDedupWindowMS,
			StreamBuffer:  defaultStreamBuffer,
			ListLimit:     defaultListLimit,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config file if present and overlays it on the defaults.
// A missing or empty file yields the defaults without error.
func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return loadFromPath(path)
}

func loadFromPath(path string) (Config, error) {
	cfg := Default()
	if err := readTOML(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}

func (c Config) ServerURL() string {
	url := strings.TrimSpace(c.Server.URL)
	if url == "" {
		return defaultServerURL
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	return strings.TrimRight(url, "/")
}

func (c Config) ConnectTimeout() time.Duration {
	if c.Server.ConnectTimeoutMS <= 0 {
		return defaultConnectTimeout
	}
	return time.Duration(c.Server.ConnectTimeoutMS) * time.Millisecond
}

// DedupWindow is the tolerance used to treat two near-identical messages as
// the same logical message. Heuristic, not a protocol guarantee.
func (c Config) DedupWindow() time.Duration {
	if c.Chat.DedupWindowMS <= 0 {
		return defaultDedupWindowMS * time.Millisecond
	}
	return time.Duration(c.Chat.DedupWindowMS) * time.Millisecond
}

func (c Config) StreamBuffer() int {
	if c.Chat.StreamBuffer <= 0 {
		return defaultStreamBuffer
	}
	return c.Chat.StreamBuffer
}

func (c Config) ListLimit() int {
	if c.Chat.ListLimit <= 0 {
		return defaultListLimit
	}
	return c.Chat.ListLimit
}

func (c Config) Branch() string {
	branch := strings.TrimSpace(c.Chat.Branch)
	if branch == "" {
		return "main"
	}
	return branch
}

func (c Config) Model() string {
	return strings.TrimSpace(c.Chat.Model)
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}

// Dump renders the configuration as TOML.
func (c Config) Dump() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

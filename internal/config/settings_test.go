package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := loadFromPath(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("loadFromPath: %v", err)
	}
	if cfg.ServerURL() != defaultServerURL {
		t.Fatalf("unexpected server url %q", cfg.ServerURL())
	}
	if cfg.DedupWindow() != defaultDedupWindowMS*time.Millisecond {
		t.Fatalf("unexpected dedup window %v", cfg.DedupWindow())
	}
	if cfg.Branch() != "main" {
		t.Fatalf("unexpected branch %q", cfg.Branch())
	}
	if cfg.LogLevel() != "info" {
		t.Fatalf("unexpected log level %q", cfg.LogLevel())
	}
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := strings.Join([]string{
		`[server]`,
		`url = "example.test:9000"`,
		``,
		`[chat]`,
		`model = "sonnet"`,
		`dedup_window_ms = 500`,
		``,
		`[logging]`,
		`level = "debug"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := loadFromPath(path)
	if err != nil {
		t.Fatalf("loadFromPath: %v", err)
	}
	if got := cfg.ServerURL(); got != "http://example.test:9000" {
		t.Fatalf("expected scheme-normalized url, got %q", got)
	}
	if cfg.Model() != "sonnet" {
		t.Fatalf("unexpected model %q", cfg.Model())
	}
	if cfg.DedupWindow() != 500*time.Millisecond {
		t.Fatalf("unexpected dedup window %v", cfg.DedupWindow())
	}
	if cfg.LogLevel() != "debug" {
		t.Fatalf("unexpected log level %q", cfg.LogLevel())
	}
	// Sections absent from the file keep their defaults.
	if cfg.StreamBuffer() != defaultStreamBuffer {
		t.Fatalf("unexpected stream buffer %d", cfg.StreamBuffer())
	}
}

func TestLoadEmptyFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("\n\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := loadFromPath(path)
	if err != nil {
		t.Fatalf("loadFromPath: %v", err)
	}
	if cfg.ServerURL() != defaultServerURL {
		t.Fatalf("unexpected server url %q", cfg.ServerURL())
	}
}

func TestLoadMalformedFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server\nurl ="), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := loadFromPath(path); err == nil {
		t.Fatal("expected error for malformed toml")
	}
}

func TestServerURLNormalization(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", defaultServerURL},
		{"  ", defaultServerURL},
		{"http://localhost:5700/", "http://localhost:5700"},
		{"https://chat.example.com", "https://chat.example.com"},
		{"localhost:5700", "http://localhost:5700"},
	}
	for _, tc := range cases {
		cfg := Config{Server: ServerConfig{URL: tc.in}}
		if got := cfg.ServerURL(); got != tc.want {
			t.Errorf("ServerURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAccessorsClampInvalidValues(t *testing.T) {
	cfg := Config{
		Server: ServerConfig{ConnectTimeoutMS: -1},
		Chat:   ChatConfig{DedupWindowMS: -5, StreamBuffer: 0, ListLimit: -2},
	}
	if cfg.ConnectTimeout() != defaultConnectTimeout {
		t.Fatalf("unexpected connect timeout %v", cfg.ConnectTimeout())
	}
	if cfg.DedupWindow() != defaultDedupWindowMS*time.Millisecond {
		t.Fatalf("unexpected dedup window %v", cfg.DedupWindow())
	}
	if cfg.StreamBuffer() != defaultStreamBuffer {
		t.Fatalf("unexpected stream buffer %d", cfg.StreamBuffer())
	}
	if cfg.ListLimit() != defaultListLimit {
		t.Fatalf("unexpected list limit %d", cfg.ListLimit())
	}
}

func TestDumpRoundTrips(t *testing.T) {
	cfg := Default()
	cfg.Chat.Model = "opus"
	out, err := cfg.Dump()
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if !strings.Contains(out, `model = 'opus'`) && !strings.Contains(out, `model = "opus"`) {
		t.Fatalf("dump missing model: %s", out)
	}
}

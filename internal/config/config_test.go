package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Prefix != DefaultPrefix {
		t.Errorf("Prefix = %q, want %q", cfg.Prefix, DefaultPrefix)
	}
	if cfg.DebounceDuration() != DefaultDebounce {
		t.Errorf("DebounceDuration() = %v, want %v", cfg.DebounceDuration(), DefaultDebounce)
	}
	if cfg.PollDuration() != DefaultPollInterval {
		t.Errorf("PollDuration() = %v, want %v", cfg.PollDuration(), DefaultPollInterval)
	}
	if cfg.Transport.Codec != "json" {
		t.Errorf("Transport.Codec = %q, want json", cfg.Transport.Codec)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	tmpDir := t.TempDir()

	if _, err := Load(tmpDir); err == nil {
		t.Error("Expected error for missing config")
	}

	configJSON := `{
  "debounce": "100ms",
  "transport": {
    "url": "ws://example.test/meld",
    "codec": "msgpack"
  },
  "control": {"addr": ":9000"}
}
`
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DebounceDuration() != 100*time.Millisecond {
		t.Errorf("DebounceDuration() = %v", cfg.DebounceDuration())
	}
	if cfg.Transport.URL != "ws://example.test/meld" {
		t.Errorf("Transport.URL = %q", cfg.Transport.URL)
	}
	if cfg.Transport.Codec != "msgpack" {
		t.Errorf("Transport.Codec = %q", cfg.Transport.Codec)
	}
	if cfg.Control.Addr != ":9000" {
		t.Errorf("Control.Addr = %q", cfg.Control.Addr)
	}
	// Defaults still applied for omitted fields.
	if cfg.Prefix != DefaultPrefix {
		t.Errorf("Prefix = %q, want default", cfg.Prefix)
	}
	if cfg.Path() != filepath.Join(tmpDir, ConfigFileName) {
		t.Errorf("Path() = %q", cfg.Path())
	}
}

func TestLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configYAML := `prefix: "x:"
pollInterval: 5s
snapshot:
  backend: s3
  bucket: snaps
  region: eu-west-1
`
	if err := os.WriteFile(filepath.Join(tmpDir, YAMLConfigFileName), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Prefix != "x:" {
		t.Errorf("Prefix = %q", cfg.Prefix)
	}
	if cfg.PollDuration() != 5*time.Second {
		t.Errorf("PollDuration() = %v", cfg.PollDuration())
	}
	if cfg.Snapshot.Backend != "s3" || cfg.Snapshot.Bucket != "snaps" || cfg.Snapshot.Region != "eu-west-1" {
		t.Errorf("Snapshot = %+v", cfg.Snapshot)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "M050") {
		t.Errorf("error = %v, want code M050", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"prefix without colon", func(c *Config) { c.Prefix = "meld" }, true},
		{"bad debounce", func(c *Config) { c.Debounce = "soon" }, true},
		{"negative poll", func(c *Config) { c.PollInterval = "-1s" }, true},
		{"unknown codec", func(c *Config) { c.Transport.Codec = "xml" }, true},
		{"s3 without bucket", func(c *Config) { c.Snapshot.Backend = "s3" }, true},
		{"s3 with bucket", func(c *Config) {
			c.Snapshot.Backend = "s3"
			c.Snapshot.Bucket = "b"
		}, false},
		{"unknown backend", func(c *Config) { c.Snapshot.Backend = "redis" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()

	for _, name := range []string{ConfigFileName, YAMLConfigFileName} {
		t.Run(name, func(t *testing.T) {
			cfg := New()
			cfg.Debounce = "75ms"
			cfg.Transport.Headers = map[string]string{"X-Token": "abc"}

			path := filepath.Join(tmpDir, name)
			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo() error = %v", err)
			}

			loaded, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile() error = %v", err)
			}
			if loaded.DebounceDuration() != 75*time.Millisecond {
				t.Errorf("DebounceDuration() = %v", loaded.DebounceDuration())
			}
			if loaded.Transport.Headers["X-Token"] != "abc" {
				t.Errorf("Headers = %v", loaded.Transport.Headers)
			}
		})
	}
}

func TestSaveWithoutPath(t *testing.T) {
	if err := New().Save(); err == nil {
		t.Error("Save() without a path should fail")
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ConfigFileName), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot() error = %v", err)
	}
	want, _ := filepath.Abs(root)
	if got != want {
		t.Errorf("FindProjectRoot() = %q, want %q", got, want)
	}
}

func TestFindProjectRootMissing(t *testing.T) {
	if _, err := FindProjectRoot(t.TempDir()); err == nil {
		t.Error("expected error when no config exists")
	}
}

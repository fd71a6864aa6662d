package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/meld/internal/errors"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "meld.json"

	// YAMLConfigFileName is the name of the YAML configuration file.
	YAMLConfigFileName = "meld.yaml"

	// DefaultPrefix is the attribute namespace of the binding grammar.
	DefaultPrefix = "meld:"

	// DefaultDebounce is the dispatch debounce when no modifier overrides it.
	DefaultDebounce = 250 * time.Millisecond

	// DefaultPollInterval is used when a poll attribute has no valid interval.
	DefaultPollInterval = 2 * time.Second

	// DefaultURL is the default websocket endpoint of the remote process.
	DefaultURL = "ws://localhost:5000/meld"

	// DefaultControlAddr is the default listen address of the control API.
	DefaultControlAddr = "127.0.0.1:7070"
)

// Config represents the complete meld configuration.
type Config struct {
	// Prefix is the attribute namespace (default "meld:").
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`

	// Debounce is the default dispatch debounce (e.g. "250ms").
	Debounce string `json:"debounce,omitempty" yaml:"debounce,omitempty"`

	// PollInterval is the fallback poll interval (e.g. "2s").
	PollInterval string `json:"pollInterval,omitempty" yaml:"pollInterval,omitempty"`

	// Transport configures the realtime channel to the remote process.
	Transport TransportConfig `json:"transport,omitempty" yaml:"transport,omitempty"`

	// Control configures the HTTP control API of a headless client.
	Control ControlConfig `json:"control,omitempty" yaml:"control,omitempty"`

	// Metrics configures Prometheus metrics.
	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// Snapshot configures checkpoint storage.
	Snapshot SnapshotConfig `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// TransportConfig contains websocket transport settings.
type TransportConfig struct {
	// URL is the websocket endpoint.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Codec is "json" (text frames) or "msgpack" (binary frames).
	Codec string `json:"codec,omitempty" yaml:"codec,omitempty"`

	// WriteTimeout bounds a single frame write (e.g. "10s").
	WriteTimeout string `json:"writeTimeout,omitempty" yaml:"writeTimeout,omitempty"`

	// ReadLimit is the maximum inbound frame size in bytes.
	ReadLimit int64 `json:"readLimit,omitempty" yaml:"readLimit,omitempty"`

	// Headers are sent with the websocket handshake.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// ControlConfig contains control API settings.
type ControlConfig struct {
	// Addr is the listen address. Empty disables the control API.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default "meld").
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// SnapshotConfig contains checkpoint storage settings.
type SnapshotConfig struct {
	// Backend is "memory" or "s3".
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`

	// Bucket is the S3 bucket name.
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`

	// Prefix is prepended to every object key.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`

	// Region is the AWS region.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`

	// Endpoint overrides the S3 endpoint (for S3-compatible stores).
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads configuration from the specified directory.
// It looks for meld.json first, then meld.yaml.
func Load(dir string) (*Config, error) {
	for _, name := range []string{ConfigFileName, YAMLConfigFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("M050").
		WithDetail("no " + ConfigFileName + " or " + YAMLConfigFileName + " found in " + dir).
		WithSuggestion("Create meld.json or pass flags on the command line")
}

// LoadFile reads configuration from the specified file path.
// Files ending in .yaml or .yml are decoded as YAML, everything else as JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("M050").WithDetail(path).Wrap(err)
	}

	cfg := &Config{}
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New("M050").
			WithDetail("failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that the file is valid JSON or YAML")
	}

	cfg.configPath = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path, in JSON or YAML
// depending on the extension.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("M051").Wrap(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("M050").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.Debounce == "" {
		c.Debounce = DefaultDebounce.String()
	}
	if c.PollInterval == "" {
		c.PollInterval = DefaultPollInterval.String()
	}
	if c.Transport.URL == "" {
		c.Transport.URL = DefaultURL
	}
	if c.Transport.Codec == "" {
		c.Transport.Codec = "json"
	}
	if c.Transport.WriteTimeout == "" {
		c.Transport.WriteTimeout = "10s"
	}
	if c.Transport.ReadLimit == 0 {
		c.Transport.ReadLimit = 1 << 20
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "meld"
	}
	if c.Snapshot.Backend == "" {
		c.Snapshot.Backend = "memory"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !strings.HasSuffix(c.Prefix, ":") {
		return errors.New("M051").WithDetailf("prefix %q must end with ':'", c.Prefix)
	}
	for name, v := range map[string]string{
		"debounce":               c.Debounce,
		"pollInterval":           c.PollInterval,
		"transport.writeTimeout": c.Transport.WriteTimeout,
	} {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return errors.New("M051").WithDetailf("%s: invalid duration %q", name, v)
		}
	}
	switch c.Transport.Codec {
	case "json", "msgpack":
	default:
		return errors.New("M051").WithDetailf("transport.codec: unknown codec %q", c.Transport.Codec)
	}
	switch c.Snapshot.Backend {
	case "memory":
	case "s3":
		if c.Snapshot.Bucket == "" {
			return errors.New("M051").
				WithDetail("snapshot.bucket is required for the s3 backend")
		}
	default:
		return errors.New("M051").WithDetailf("snapshot.backend: unknown backend %q", c.Snapshot.Backend)
	}
	return nil
}

// DebounceDuration returns the parsed default debounce.
func (c *Config) DebounceDuration() time.Duration {
	return parseDuration(c.Debounce, DefaultDebounce)
}

// PollDuration returns the parsed fallback poll interval.
func (c *Config) PollDuration() time.Duration {
	return parseDuration(c.PollInterval, DefaultPollInterval)
}

// WriteTimeout returns the parsed transport write timeout.
func (c *Config) WriteTimeout() time.Duration {
	return parseDuration(c.Transport.WriteTimeout, 10*time.Second)
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range []string{ConfigFileName, YAMLConfigFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the directory holding a
// meld configuration file.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("M050").
				WithDetail("no meld configuration found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory
// or its nearest ancestor holding one.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}

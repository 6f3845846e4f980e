// Package config loads cryptotap's YAML configuration. Command-line flags
// override what the file sets; the file overrides Default().
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/zboralski/cryptotap/internal/hooks"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Color modes for terminal output.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config is the root of the configuration file.
//
// Example:
//
//	channels: [algorithm, key, output]
//	categories: [jca]
//	sink:
//	  buffer: 4096
//	  flush: 100ms
//	redact:
//	  labels: [key]
//	agent:
//	  target: com.example.app
type Config struct {
	Channels   []string     `yaml:"channels"`
	Categories []string     `yaml:"categories"`
	Sink       SinkConfig   `yaml:"sink"`
	Redact     RedactConfig `yaml:"redact"`
	Agent      AgentConfig  `yaml:"agent"`
}

// SinkConfig configures capture output.
type SinkConfig struct {
	Buffer int      `yaml:"buffer"`
	Flush  Duration `yaml:"flush"`
	Color  string   `yaml:"color"`
	Format string   `yaml:"format"`
}

// RedactConfig lists regex patterns and field label prefixes to mask.
type RedactConfig struct {
	Patterns []string `yaml:"patterns"`
	Labels   []string `yaml:"labels"`
}

// Enabled reports whether any redaction is configured.
func (r RedactConfig) Enabled() bool {
	return len(r.Patterns) > 0 || len(r.Labels) > 0
}

// AgentConfig configures the remote attach driver.
type AgentConfig struct {
	Device string `yaml:"device"` // "usb", "local" or a device id
	Target string `yaml:"target"` // package name or process name
	Spawn  bool   `yaml:"spawn"`

	// Children instruments processes spawned later whose identifier
	// starts with Target.
	Children bool `yaml:"children"`
}

// Duration is a time.Duration that reads "50ms"-style strings.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Default returns the built-in configuration: every channel off, every
// category on.
func Default() *Config {
	return &Config{
		Sink: SinkConfig{
			Buffer: 2048,
			Flush:  Duration(50 * time.Millisecond),
			Color:  ColorAuto,
			Format: FormatText,
		},
		Agent: AgentConfig{
			Device: "usb",
			Spawn:  true,
		},
	}
}

// Load reads path over Default() and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over Default() and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidationError is one rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

// Validate checks every field and combines all failures.
func (c *Config) Validate() error {
	var err error
	add := func(field, format string, args ...any) {
		err = multierr.Append(err, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if _, perr := hooks.ParseChannels(c.Channels); perr != nil {
		add("channels", "%v", perr)
	}
	for _, cat := range c.Categories {
		if strings.TrimSpace(cat) == "" {
			add("categories", "empty category")
		}
	}
	if c.Sink.Buffer <= 0 {
		add("sink.buffer", "must be positive, got %d", c.Sink.Buffer)
	}
	if c.Sink.Flush <= 0 {
		add("sink.flush", "must be positive, got %s", time.Duration(c.Sink.Flush))
	}
	switch c.Sink.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		add("sink.color", "unknown mode %q", c.Sink.Color)
	}
	switch c.Sink.Format {
	case FormatText, FormatJSON:
	default:
		add("sink.format", "unknown format %q", c.Sink.Format)
	}
	for _, p := range c.Redact.Patterns {
		if _, rerr := regexp.Compile(p); rerr != nil {
			add("redact.patterns", "%q: %v", p, rerr)
		}
	}
	if c.Agent.Device == "" {
		add("agent.device", "required")
	}
	return err
}

// ChannelSet returns the configured channels. Call after Validate.
func (c *Config) ChannelSet() hooks.Channels {
	chs, _ := hooks.ParseChannels(c.Channels)
	return chs
}

// CheckCategories reports configured categories that cat does not define.
func (c *Config) CheckCategories(cat *hooks.Catalog) error {
	known := make(map[string]bool)
	for _, name := range cat.Categories() {
		known[name] = true
	}
	var err error
	for _, name := range c.Categories {
		if !known[name] {
			err = multierr.Append(err, &ValidationError{
				Field:   "categories",
				Message: fmt.Sprintf("unknown category %q (known: %s)", name, strings.Join(cat.Categories(), ", ")),
			})
		}
	}
	return err
}

// Catalog filters cat down to the configured categories; none means all.
func (c *Config) Catalog(cat *hooks.Catalog) *hooks.Catalog {
	return cat.Filter(c.Categories...)
}

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"luschuster/internal/ratelimit"
)

// DevSecret is the CSRF signing fallback for local development. The serve
// command refuses to start with it outside --dev mode; a real deployment must
// set LUSCHUSTER_CSRF_SECRET.
const DevSecret = "luschuster-csrf-secret-2024"

// DefaultPath is the config file name looked up in the working directory.
const DefaultPath = "luschuster.yml"

// Config models luschuster.yml.
type Config struct {
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Security struct {
		CSRFTTLHours int `yaml:"csrf_ttl_hours"`
	} `yaml:"security"`
	Forms struct {
		Contact FormSettings `yaml:"contact"`
		Quote   FormSettings `yaml:"quote"`
	} `yaml:"forms"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// FormSettings tunes one form endpoint.
type FormSettings struct {
	RateLimit         int `yaml:"rate_limit"`
	WindowMinutes     int `yaml:"window_minutes"`
	ProcessingDelayMS int `yaml:"processing_delay_ms"`
}

// Rule converts the settings to a limiter rule.
func (f FormSettings) Rule() ratelimit.Rule {
	return ratelimit.Rule{
		Limit:  f.RateLimit,
		Window: time.Duration(f.WindowMinutes) * time.Minute,
	}
}

// Delay returns the simulated processing delay. It exists only so the client
// UI gets a non-instant loading state; zero disables it.
func (f FormSettings) Delay() time.Duration {
	return time.Duration(f.ProcessingDelayMS) * time.Millisecond
}

// CSRFTTL returns the configured token lifetime.
func (c *Config) CSRFTTL() time.Duration {
	if c.Security.CSRFTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Security.CSRFTTLHours) * time.Hour
}

// Load reads config from path, or returns the defaults when path is empty
// and no luschuster.yml exists.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	for kind, f := range map[string]FormSettings{"contact": c.Forms.Contact, "quote": c.Forms.Quote} {
		if f.RateLimit <= 0 {
			return fmt.Errorf("config.forms.%s.rate_limit must be positive", kind)
		}
		if f.WindowMinutes <= 0 {
			return fmt.Errorf("config.forms.%s.window_minutes must be positive", kind)
		}
		if f.ProcessingDelayMS < 0 {
			return fmt.Errorf("config.forms.%s.processing_delay_ms cannot be negative", kind)
		}
	}
	switch c.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config.logging.level %q is not a known level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("config.logging.format must be console or json")
	}
	return nil
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.BasePath == "" {
		c.Server.BasePath = d.Server.BasePath
	}
	if c.Security.CSRFTTLHours == 0 {
		c.Security.CSRFTTLHours = d.Security.CSRFTTLHours
	}
	if c.Forms.Contact == (FormSettings{}) {
		c.Forms.Contact = d.Forms.Contact
	}
	if c.Forms.Quote == (FormSettings{}) {
		c.Forms.Quote = d.Forms.Quote
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// GenerateDefault returns the default config YAML for `lsw config init`.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `server:
  addr: 127.0.0.1:8080
  base_path: /api

security:
  # Token lifetime for the CSRF handshake. The signing secret itself comes
  # from the LUSCHUSTER_CSRF_SECRET environment variable.
  csrf_ttl_hours: 24

forms:
  contact:
    rate_limit: 5
    window_minutes: 15
    processing_delay_ms: 1000
  quote:
    rate_limit: 3
    window_minutes: 30
    processing_delay_ms: 2000

# Point at a shared Redis to coordinate rate limiting across instances.
# Leave addr empty to use the in-process store.
redis:
  addr: ""
  password: ""
  db: 0

logging:
  level: info
  format: console
`

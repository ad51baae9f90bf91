package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"deskglue/internal/domain"
	"deskglue/internal/eventbus"
)

// FileName is the configuration file looked up in the working directory
const FileName = ".deskglue.toml"

// Backend kinds
const (
	BackendDirectory = "directory"
	BackendFrappe    = "frappe"
)

// Config represents the application configuration
type Config struct {
	Version    int              `toml:"version"`
	Search     SearchConfig     `toml:"search"`
	Visibility VisibilityConfig `toml:"visibility"`
	Backend    BackendConfig    `toml:"backend"`
	Logging    LoggingConfig    `toml:"logging"`
}

// SearchConfig tunes the customer search popup
type SearchConfig struct {
	Debounce    Duration `toml:"debounce"`
	ResultLimit int      `toml:"result_limit"`
}

// VisibilityConfig describes the filter panel's dependent fields
type VisibilityConfig struct {
	ControllingField string   `toml:"controlling_field"`
	PollInterval     Duration `toml:"poll_interval"`
	Rules            []Rule   `toml:"rules"`
}

// Rule lists the fields visible for one controlling value
type Rule struct {
	Value   string   `toml:"value"`
	Visible []string `toml:"visible"`
}

// BackendConfig selects where customers are looked up
type BackendConfig struct {
	Kind          string   `toml:"kind"`
	CustomersFile string   `toml:"customers_file,omitempty"`
	BaseURL       string   `toml:"base_url,omitempty"`
	APIKey        string   `toml:"api_key,omitempty"`
	APISecret     string   `toml:"api_secret,omitempty"`
	Timeout       Duration `toml:"timeout"`
}

// LoggingConfig controls the zap logger
type LoggingConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"` // json or console
	Output     string `toml:"output"` // console, file or both
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Duration is a time.Duration written as a string such as "500ms"
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// FieldRules converts the configured rules for the visibility controller
func (v VisibilityConfig) FieldRules() []domain.FieldVisibilityRule {
	out := make([]domain.FieldVisibilityRule, 0, len(v.Rules))
	for _, r := range v.Rules {
		visible := make([]string, len(r.Visible))
		copy(visible, r.Visible)
		out = append(out, domain.FieldVisibilityRule{ControllingValue: r.Value, VisibleFields: visible})
	}
	return out
}

// Validate checks the configuration for values the application cannot run with
func (c *Config) Validate() error {
	if c.Search.Debounce <= 0 {
		return errors.New("search.debounce must be positive")
	}
	if c.Search.ResultLimit <= 0 {
		return errors.New("search.result_limit must be positive")
	}
	if strings.TrimSpace(c.Visibility.ControllingField) == "" {
		return errors.New("visibility.controlling_field is required")
	}
	if c.Visibility.PollInterval <= 0 {
		return errors.New("visibility.poll_interval must be positive")
	}
	seen := make(map[string]bool, len(c.Visibility.Rules))
	for _, r := range c.Visibility.Rules {
		if seen[r.Value] {
			return fmt.Errorf("visibility.rules: duplicate value %q", r.Value)
		}
		seen[r.Value] = true
	}

	switch c.Backend.Kind {
	case BackendDirectory:
		if c.Backend.CustomersFile == "" {
			return errors.New("backend.customers_file is required for the directory backend")
		}
	case BackendFrappe:
		if c.Backend.BaseURL == "" {
			return errors.New("backend.base_url is required for the frappe backend")
		}
	default:
		return fmt.Errorf("backend.kind: unknown backend %q", c.Backend.Kind)
	}
	if c.Backend.Timeout < 0 {
		return errors.New("backend.timeout must not be negative")
	}
	return nil
}

// ConfigService handles configuration management
type ConfigService interface {
	Load() (*Config, error)
	Save(config *Config) error
	LoadFromPath(path string) (*Config, error)
	SaveToPath(config *Config, path string) error
	Path() string
}

// configService is the concrete implementation
type configService struct {
	bus      eventbus.EventBus
	filePath string
}

// NewConfigService creates a config service for path.
// An empty path means DefaultPath().
func NewConfigService(path string) ConfigService {
	if path == "" {
		path = DefaultPath()
	}
	return &configService{filePath: path}
}

// NewConfigServiceWithBus creates a config service with event bus support
func NewConfigServiceWithBus(path string, bus eventbus.EventBus) ConfigService {
	cs := NewConfigService(path).(*configService)
	cs.bus = bus
	return cs
}

// DefaultPath prefers FileName in the working directory, then the user config dir
func DefaultPath() string {
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to home directory
		configDir, err = os.UserHomeDir()
		if err != nil {
			return FileName
		}
		configDir = filepath.Join(configDir, ".config")
	}
	return filepath.Join(configDir, "deskglue", "config.toml")
}

func (cs *configService) Path() string {
	return cs.filePath
}

// Load loads the configuration from file, or defaults if there is none
func (cs *configService) Load() (*Config, error) {
	var cfg *Config
	if _, err := os.Stat(cs.filePath); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		cfg, err = cs.LoadFromPath(cs.filePath)
		if err != nil {
			return nil, err
		}
	}

	if cs.bus != nil {
		cs.bus.Publish(eventbus.ConfigLoadedEvent{Path: cs.filePath})
	}
	return cfg, nil
}

// Save saves the configuration to file
func (cs *configService) Save(config *Config) error {
	if err := cs.SaveToPath(config, cs.filePath); err != nil {
		return err
	}
	if cs.bus != nil {
		cs.bus.Publish(eventbus.ConfigSavedEvent{Path: cs.filePath})
	}
	return nil
}

// LoadFromPath loads configuration from a specific path.
// Keys missing from the file take their default values.
func (cs *configService) LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("failed to parse config %s:%d:%d: %w", path, row, col, err)
		}
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveToPath saves configuration to a specific path
func (cs *configService) SaveToPath(config *Config, path string) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Search: SearchConfig{
			Debounce:    Duration(500 * time.Millisecond),
			ResultLimit: 20,
		},
		Visibility: VisibilityConfig{
			ControllingField: "amc_status",
			PollInterval:     Duration(250 * time.Millisecond),
			Rules: []Rule{
				{Value: "All", Visible: []string{}},
				{Value: "AMC Expired", Visible: []string{}},
				{Value: "Upcoming Expiry", Visible: []string{"expiry_month", "expiry_year"}},
			},
		},
		Backend: BackendConfig{
			Kind:          BackendDirectory,
			CustomersFile: "customers.yaml",
			Timeout:       Duration(10 * time.Second),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			Output:     "file",
			File:       "deskglue.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// applyDefaults fills zero values with DefaultConfig's
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Version == 0 {
		c.Version = def.Version
	}
	if c.Search.Debounce == 0 {
		c.Search.Debounce = def.Search.Debounce
	}
	if c.Search.ResultLimit == 0 {
		c.Search.ResultLimit = def.Search.ResultLimit
	}
	if c.Visibility.ControllingField == "" {
		c.Visibility.ControllingField = def.Visibility.ControllingField
	}
	if c.Visibility.PollInterval == 0 {
		c.Visibility.PollInterval = def.Visibility.PollInterval
	}
	if len(c.Visibility.Rules) == 0 {
		c.Visibility.Rules = def.Visibility.Rules
	}
	for i := range c.Visibility.Rules {
		if c.Visibility.Rules[i].Visible == nil {
			c.Visibility.Rules[i].Visible = []string{}
		}
	}
	if c.Backend.Kind == "" {
		c.Backend.Kind = def.Backend.Kind
	}
	if c.Backend.Kind == BackendDirectory && c.Backend.CustomersFile == "" {
		c.Backend.CustomersFile = def.Backend.CustomersFile
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = def.Backend.Timeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
	if c.Logging.Output == "" {
		c.Logging.Output = def.Logging.Output
	}
	if c.Logging.File == "" {
		c.Logging.File = def.Logging.File
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = def.Logging.MaxSizeMB
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = def.Logging.MaxBackups
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = def.Logging.MaxAgeDays
	}
}

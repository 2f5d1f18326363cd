// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/flightsearch-cli/internal/automation"
	"github.com/xkilldash9x/flightsearch-cli/internal/locator"
)

// Supported browser drivers.
const (
	DriverChromedp   = "chromedp"
	DriverPlaywright = "playwright"
)

// EnvPrefix prefixes every environment override (FLIGHTSEARCH_TARGET_URL).
const EnvPrefix = "FLIGHTSEARCH"

// EnvKeyReplacer maps nested keys to environment variable names.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Config holds the entire application configuration.
type Config struct {
	Logger       LoggerConfig            `mapstructure:"logger" yaml:"logger"`
	Browser      BrowserConfig           `mapstructure:"browser" yaml:"browser"`
	Target       TargetConfig            `mapstructure:"target" yaml:"target"`
	Timing       TimingConfig            `mapstructure:"timing" yaml:"timing"`
	Calendar     CalendarConfig          `mapstructure:"calendar" yaml:"calendar"`
	Autocomplete AutocompleteConfig      `mapstructure:"autocomplete" yaml:"autocomplete"`
	Batch        BatchConfig             `mapstructure:"batch" yaml:"batch"`
	Locators     map[string]locator.Rule `mapstructure:"locators" yaml:"locators,omitempty"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig selects and tunes the browser each run launches.
type BrowserConfig struct {
	Driver       string   `mapstructure:"driver" yaml:"driver"`
	Headless     bool     `mapstructure:"headless" yaml:"headless"`
	RemoteURL    string   `mapstructure:"remote_url" yaml:"remote_url"`
	ExecPath     string   `mapstructure:"exec_path" yaml:"exec_path"`
	UserAgent    string   `mapstructure:"user_agent" yaml:"user_agent"`
	WindowWidth  int      `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight int      `mapstructure:"window_height" yaml:"window_height"`
	Args         []string `mapstructure:"args" yaml:"args"`
	// InstallDrivers downloads the playwright driver and Chromium on first use.
	InstallDrivers bool          `mapstructure:"install_drivers" yaml:"install_drivers"`
	LaunchTimeout  time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
	Debug          bool          `mapstructure:"debug" yaml:"debug"`
}

// TargetConfig points at the flight search page.
type TargetConfig struct {
	URL               string        `mapstructure:"url" yaml:"url"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// TimingConfig holds the wait deadlines and settle pauses of every step.
type TimingConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	WaitTimeout     time.Duration `mapstructure:"wait_timeout" yaml:"wait_timeout"`
	SettleDelay     time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	CalendarTimeout time.Duration `mapstructure:"calendar_timeout" yaml:"calendar_timeout"`
	CalendarSettle  time.Duration `mapstructure:"calendar_settle" yaml:"calendar_settle"`
}

// Automation converts the timing into the step timing.
func (t TimingConfig) Automation() automation.Timing {
	return automation.Timing{
		PollInterval:    t.PollInterval,
		WaitTimeout:     t.WaitTimeout,
		SettleDelay:     t.SettleDelay,
		CalendarTimeout: t.CalendarTimeout,
		CalendarSettle:  t.CalendarSettle,
	}
}

// CalendarConfig describes how dates are rendered by the calendar widget.
type CalendarConfig struct {
	// MonthLabelLayout is a Go time layout for the month header text.
	MonthLabelLayout string `mapstructure:"month_label_layout" yaml:"month_label_layout"`
}

// AutocompleteConfig controls suggestion selection.
type AutocompleteConfig struct {
	Match string `mapstructure:"match" yaml:"match"`
}

// BatchConfig bounds batch runs.
type BatchConfig struct {
	Concurrency    int           `mapstructure:"concurrency" yaml:"concurrency"`
	LaunchInterval time.Duration `mapstructure:"launch_interval" yaml:"launch_interval"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "flightsearch-cli")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.driver", DriverChromedp)
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.remote_url", "")
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	v.SetDefault("browser.window_width", 1440)
	v.SetDefault("browser.window_height", 900)
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.install_drivers", true)
	v.SetDefault("browser.launch_timeout", "60s")
	v.SetDefault("browser.debug", false)

	// -- Target --
	v.SetDefault("target.url", "https://flight.naver.com/")
	v.SetDefault("target.navigation_timeout", "90s")

	// -- Timing --
	v.SetDefault("timing.poll_interval", "100ms")
	v.SetDefault("timing.wait_timeout", "10s")
	v.SetDefault("timing.settle_delay", "2s")
	v.SetDefault("timing.calendar_timeout", "30s")
	v.SetDefault("timing.calendar_settle", "3s")

	v.SetDefault("calendar.month_label_layout", automation.DefaultMonthLabelLayout)
	v.SetDefault("autocomplete.match", string(automation.MatchFirst))

	// -- Batch --
	v.SetDefault("batch.concurrency", 2)
	v.SetDefault("batch.launch_interval", "3s")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Browser.Validate(); err != nil {
		return fmt.Errorf("browser configuration invalid: %w", err)
	}
	if err := c.Target.Validate(); err != nil {
		return fmt.Errorf("target configuration invalid: %w", err)
	}
	if err := c.Timing.Validate(); err != nil {
		return fmt.Errorf("timing configuration invalid: %w", err)
	}
	if strings.TrimSpace(c.Calendar.MonthLabelLayout) == "" {
		return fmt.Errorf("calendar.month_label_layout must not be empty")
	}
	if !automation.MatchPolicy(c.Autocomplete.Match).Valid() {
		return fmt.Errorf("autocomplete.match must be %q or %q, got %q", automation.MatchFirst, automation.MatchContains, c.Autocomplete.Match)
	}
	if c.Batch.Concurrency <= 0 {
		return fmt.Errorf("batch.concurrency must be a positive integer")
	}
	if c.Batch.LaunchInterval < 0 {
		return fmt.Errorf("batch.launch_interval must not be negative")
	}
	if _, err := c.LocatorTable(); err != nil {
		return fmt.Errorf("locators invalid: %w", err)
	}
	return nil
}

// Validate checks the browser settings.
func (b *BrowserConfig) Validate() error {
	switch b.Driver {
	case DriverChromedp, DriverPlaywright:
	default:
		return fmt.Errorf("driver must be %q or %q, got %q", DriverChromedp, DriverPlaywright, b.Driver)
	}
	if b.WindowWidth <= 0 || b.WindowHeight <= 0 {
		return fmt.Errorf("window_width and window_height must be positive")
	}
	if b.LaunchTimeout <= 0 {
		return fmt.Errorf("launch_timeout must be a positive duration")
	}
	return nil
}

// Validate checks the target page settings.
func (t *TargetConfig) Validate() error {
	u, err := url.Parse(t.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("url must be an absolute URL, got %q", t.URL)
	}
	if t.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation_timeout must be a positive duration")
	}
	return nil
}

// Validate checks that every timing is usable.
func (t *TimingConfig) Validate() error {
	if t.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be a positive duration")
	}
	if t.WaitTimeout < t.PollInterval {
		return fmt.Errorf("wait_timeout must be at least poll_interval")
	}
	if t.CalendarTimeout < t.PollInterval {
		return fmt.Errorf("calendar_timeout must be at least poll_interval")
	}
	if t.SettleDelay < 0 || t.CalendarSettle < 0 {
		return fmt.Errorf("settle_delay and calendar_settle must not be negative")
	}
	return nil
}

// LocatorTable returns the built-in locator table with the configured
// overrides applied.
func (c *Config) LocatorTable() (*locator.Table, error) {
	if len(c.Locators) == 0 {
		return locator.Default(), nil
	}
	overrides := make(map[locator.Target]locator.Rule, len(c.Locators))
	for name, rule := range c.Locators {
		overrides[locator.Target(name)] = rule
	}
	return locator.Default().With(overrides)
}

package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override
const EnvPrefix = "REPLHARVEST_"

// Config holds all configuration options for a harvest run
type Config struct {
	// Remote site and profile
	Replit ReplitConfig `yaml:"replit" json:"replit" envPrefix:"REPLIT_"`

	// Login credentials (normally supplied via env, flags or the credential store)
	Credentials CredentialsConfig `yaml:"credentials" json:"credentials"`

	// Browser driver settings
	Browser BrowserConfig `yaml:"browser" json:"browser" envPrefix:"BROWSER_"`

	// Destination and manifest
	Output OutputConfig `yaml:"output" json:"output" envPrefix:"OUTPUT_"`

	// Waits, settle delays and typing pace
	Timing TimingConfig `yaml:"timing" json:"timing" envPrefix:"TIMING_"`

	// Retry bounds
	Retry RetryConfig `yaml:"retry" json:"retry" envPrefix:"RETRY_"`

	// Selector overrides
	Selectors SelectorsConfig `yaml:"selectors" json:"selectors" envPrefix:"SELECTORS_"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications" envPrefix:"NOTIFICATIONS_"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging" envPrefix:"LOG_"`

	// flag values that could not be applied; reported by Validate
	flagErrs []error
}

// ReplitConfig holds the remote site configuration
type ReplitConfig struct {
	BaseURL    string `yaml:"base_url" json:"base_url" env:"BASE_URL"`
	Username   string `yaml:"username" json:"username" env:"USERNAME"`
	LoginPath  string `yaml:"login_path" json:"login_path" env:"LOGIN_PATH"`
	ListingURL string `yaml:"listing_url" json:"listing_url" env:"LISTING_URL"`
}

// CredentialsConfig holds the login identity used for the session
type CredentialsConfig struct {
	Login    string `yaml:"login" json:"login" env:"LOGIN"`
	Password string `yaml:"password,omitempty" json:"-" env:"PASSWORD"`
}

// BrowserConfig holds driver selection and launch options
type BrowserConfig struct {
	Driver            string        `yaml:"driver" json:"driver" env:"DRIVER"`
	Headless          bool          `yaml:"headless" json:"headless" env:"HEADLESS"`
	BinPath           string        `yaml:"bin_path" json:"bin_path" env:"BIN_PATH"`
	ControlURL        string        `yaml:"control_url" json:"control_url" env:"CONTROL_URL"`
	UserDataDir       string        `yaml:"user_data_dir" json:"user_data_dir" env:"USER_DATA_DIR"`
	NoSandbox         bool          `yaml:"no_sandbox" json:"no_sandbox" env:"NO_SANDBOX"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout" env:"NAVIGATION_TIMEOUT"`
	// ActionTimeout bounds a single click, keystroke run, script or element read
	ActionTimeout time.Duration `yaml:"action_timeout" json:"action_timeout" env:"ACTION_TIMEOUT"`
}

// OutputConfig holds destination directory configuration
type OutputConfig struct {
	Destination     string `yaml:"destination" json:"destination" env:"DESTINATION"`
	ManifestEnabled bool   `yaml:"manifest_enabled" json:"manifest_enabled" env:"MANIFEST_ENABLED"`
	ManifestPath    string `yaml:"manifest_path" json:"manifest_path" env:"MANIFEST_PATH"`
}

// TimingConfig holds every bounded wait used against the remote view
type TimingConfig struct {
	InterItemDelay   time.Duration `yaml:"inter_item_delay" json:"inter_item_delay" env:"INTER_ITEM_DELAY"`
	ListSettleDelay  time.Duration `yaml:"list_settle_delay" json:"list_settle_delay" env:"LIST_SETTLE_DELAY"`
	FetchSettleDelay time.Duration `yaml:"fetch_settle_delay" json:"fetch_settle_delay" env:"FETCH_SETTLE_DELAY"`
	SettleMode       string        `yaml:"settle_mode" json:"settle_mode" env:"SETTLE_MODE"`
	LocateTimeout    time.Duration `yaml:"locate_timeout" json:"locate_timeout" env:"LOCATE_TIMEOUT"`
	ProbeTimeout     time.Duration `yaml:"probe_timeout" json:"probe_timeout" env:"PROBE_TIMEOUT"`
	LoginTimeout     time.Duration `yaml:"login_timeout" json:"login_timeout" env:"LOGIN_TIMEOUT"`
	ContainerTimeout time.Duration `yaml:"container_timeout" json:"container_timeout" env:"CONTAINER_TIMEOUT"`
	ViewTimeout      time.Duration `yaml:"view_timeout" json:"view_timeout" env:"VIEW_TIMEOUT"`
	KeystrokeMin     time.Duration `yaml:"keystroke_min" json:"keystroke_min" env:"KEYSTROKE_MIN"`
	KeystrokeMax     time.Duration `yaml:"keystroke_max" json:"keystroke_max" env:"KEYSTROKE_MAX"`
	FieldPauseMin    time.Duration `yaml:"field_pause_min" json:"field_pause_min" env:"FIELD_PAUSE_MIN"`
	FieldPauseMax    time.Duration `yaml:"field_pause_max" json:"field_pause_max" env:"FIELD_PAUSE_MAX"`
}

// RetryConfig holds retry bounds for lookups, fetches and discovery
type RetryConfig struct {
	LocateAttempts int           `yaml:"locate_attempts" json:"locate_attempts" env:"LOCATE_ATTEMPTS"`
	LocateBackoff  time.Duration `yaml:"locate_backoff" json:"locate_backoff" env:"LOCATE_BACKOFF"`
	FetchAttempts  int           `yaml:"fetch_attempts" json:"fetch_attempts" env:"FETCH_ATTEMPTS"`
	MaxListPasses  int           `yaml:"max_list_passes" json:"max_list_passes" env:"MAX_LIST_PASSES"`
}

// SelectorsConfig points at an optional selector mapping file
type SelectorsConfig struct {
	File string `yaml:"file" json:"file" env:"FILE"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled" env:"ENABLED"`
	OnComplete bool `yaml:"on_complete" json:"on_complete" env:"ON_COMPLETE"`
	OnError    bool `yaml:"on_error" json:"on_error" env:"ON_ERROR"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" env:"LEVEL"`
	File   string `yaml:"file" json:"file" env:"FILE"`
	Format string `yaml:"format" json:"format" env:"FORMAT"`
	// Quiet drops console output; the dashboard owns the terminal
	Quiet bool `yaml:"-" json:"-"`
}

// Settle modes
const (
	SettleModeSleep = "sleep"
	SettleModeWatch = "watch"
)

// Browser drivers
const (
	DriverChrome   = "chrome"
	DriverEdge     = "edge"
	DriverChromium = "chromium"
)

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Replit: ReplitConfig{
			BaseURL:   "https://replit.com",
			LoginPath: "/login",
		},
		Browser: BrowserConfig{
			Driver:            DriverChrome,
			Headless:          false,
			NavigationTimeout: 30 * time.Second,
			ActionTimeout:     15 * time.Second,
		},
		Output: OutputConfig{
			Destination:     "./replit_projects",
			ManifestEnabled: true,
		},
		Timing: TimingConfig{
			InterItemDelay:   2 * time.Second,
			ListSettleDelay:  2 * time.Second,
			FetchSettleDelay: 5 * time.Second,
			SettleMode:       SettleModeSleep,
			LocateTimeout:    10 * time.Second,
			ProbeTimeout:     2 * time.Second,
			LoginTimeout:     30 * time.Second,
			ContainerTimeout: 10 * time.Second,
			ViewTimeout:      15 * time.Second,
			KeystrokeMin:     50 * time.Millisecond,
			KeystrokeMax:     150 * time.Millisecond,
			FieldPauseMin:    500 * time.Millisecond,
			FieldPauseMax:    1500 * time.Millisecond,
		},
		Retry: RetryConfig{
			LocateAttempts: 3,
			LocateBackoff:  time.Second,
			FetchAttempts:  3,
			MaxListPasses:  500,
		},
		Notifications: NotificationConfig{
			Enabled:    false,
			OnComplete: true,
			OnError:    true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromEnv loads configuration from REPLHARVEST_* environment variables.
// Variables that are unset leave the current value untouched.
func (c *Config) LoadFromEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"replharvest.yaml",
		"replharvest.yml",
		".replharvest.yaml",
		".replharvest.yml",
		filepath.Join(home, ".config", "replharvest", "config.yaml"),
		filepath.Join(home, ".config", "replharvest", "config.yml"),
		filepath.Join(home, ".replharvest.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is structurally valid
func (c *Config) Validate() error {
	errs := append([]error(nil), c.flagErrs...)

	if c.Replit.BaseURL == "" {
		errs = append(errs, errors.New("base URL is required"))
	}

	switch strings.ToLower(c.Browser.Driver) {
	case DriverChrome, DriverEdge, DriverChromium:
	default:
		errs = append(errs, fmt.Errorf("unknown browser driver %q (chrome, edge, chromium)", c.Browser.Driver))
	}

	if c.Output.Destination == "" {
		errs = append(errs, errors.New("destination directory is required"))
	}

	if c.Browser.NavigationTimeout <= 0 || c.Browser.ActionTimeout <= 0 {
		errs = append(errs, errors.New("browser timeouts must be positive"))
	}
	if c.Timing.InterItemDelay < 0 {
		errs = append(errs, errors.New("inter-item delay cannot be negative"))
	}
	if c.Timing.ListSettleDelay <= 0 || c.Timing.FetchSettleDelay <= 0 {
		errs = append(errs, errors.New("settle delays must be positive"))
	}
	if c.Timing.LocateTimeout <= 0 || c.Timing.LoginTimeout <= 0 || c.Timing.ContainerTimeout <= 0 || c.Timing.ViewTimeout <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	if c.Timing.KeystrokeMin > c.Timing.KeystrokeMax || c.Timing.FieldPauseMin > c.Timing.FieldPauseMax {
		errs = append(errs, errors.New("typing pace minimum exceeds maximum"))
	}

	switch strings.ToLower(c.Timing.SettleMode) {
	case SettleModeSleep, SettleModeWatch:
	default:
		errs = append(errs, fmt.Errorf("unknown settle mode %q (sleep, watch)", c.Timing.SettleMode))
	}

	if c.Retry.LocateAttempts < 1 {
		errs = append(errs, errors.New("locate attempts must be at least 1"))
	}
	if c.Retry.FetchAttempts < 1 {
		errs = append(errs, errors.New("fetch attempts must be at least 1"))
	}
	if c.Retry.LocateBackoff < 0 {
		errs = append(errs, errors.New("locate backoff cannot be negative"))
	}
	if c.Retry.MaxListPasses < 1 {
		errs = append(errs, errors.New("max list passes must be at least 1"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// ValidateCredentials checks the inputs a harvest run cannot start without
func (c *Config) ValidateCredentials() error {
	var errs []error

	if strings.TrimSpace(c.Replit.Username) == "" {
		errs = append(errs, errors.New("profile username is required"))
	}
	if strings.TrimSpace(c.Credentials.Login) == "" {
		errs = append(errs, errors.New("login (email or username) is required"))
	}
	if c.Credentials.Password == "" {
		errs = append(errs, errors.New("password is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// LoginURL returns the absolute login page URL
func (c *Config) LoginURL() string {
	return strings.TrimRight(c.Replit.BaseURL, "/") + "/" + strings.TrimLeft(c.Replit.LoginPath, "/")
}

// ListingURL returns the profile listing URL, derived from the username unless set explicitly
func (c *Config) ListingURL() string {
	if c.Replit.ListingURL != "" {
		return strings.ReplaceAll(c.Replit.ListingURL, "{username}", c.Replit.Username)
	}
	return strings.TrimRight(c.Replit.BaseURL, "/") + "/@" + c.Replit.Username
}

// Save saves the configuration to a file, never writing the password
func (c *Config) Save(path string) error {
	out := *c
	out.Credentials.Password = ""

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if username, ok := flags["username"].(string); ok && username != "" {
		c.Replit.Username = username
	}
	if login, ok := flags["login"].(string); ok && login != "" {
		c.Credentials.Login = login
	}
	if destination, ok := flags["destination"].(string); ok && destination != "" {
		c.Output.Destination = destination
	}
	if driver, ok := flags["driver"].(string); ok && driver != "" {
		c.Browser.Driver = strings.ToLower(driver)
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = headless
	}
	if controlURL, ok := flags["control-url"].(string); ok && controlURL != "" {
		c.Browser.ControlURL = controlURL
	}
	if delay, ok := flags["inter-item-delay"].(float64); ok {
		if math.IsNaN(delay) || math.IsInf(delay, 0) || delay < 0 {
			c.flagErrs = append(c.flagErrs, fmt.Errorf("inter-item delay must be a non-negative number of seconds, got %v", delay))
		} else {
			c.Timing.InterItemDelay = time.Duration(delay * float64(time.Second))
		}
	}
	if mode, ok := flags["settle-mode"].(string); ok && mode != "" {
		c.Timing.SettleMode = strings.ToLower(mode)
	}
	if attempts, ok := flags["fetch-attempts"].(int); ok && attempts > 0 {
		c.Retry.FetchAttempts = attempts
	}
	if file, ok := flags["selectors"].(string); ok && file != "" {
		c.Selectors.File = file
	}
	if manifest, ok := flags["manifest"].(bool); ok {
		c.Output.ManifestEnabled = manifest
	}
	if notify, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = notify
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".replharvest.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

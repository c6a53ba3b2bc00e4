package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "https://replit.com", config.Replit.BaseURL)
	assert.Equal(t, DriverChrome, config.Browser.Driver)
	assert.Equal(t, "./replit_projects", config.Output.Destination)
	assert.Equal(t, 2*time.Second, config.Timing.InterItemDelay)
	assert.Equal(t, 5*time.Second, config.Timing.FetchSettleDelay)
	assert.Equal(t, SettleModeSleep, config.Timing.SettleMode)
	assert.Equal(t, 3, config.Retry.FetchAttempts)
	assert.Equal(t, 3, config.Retry.LocateAttempts)
	assert.Equal(t, 500, config.Retry.MaxListPasses)
	assert.NoError(t, config.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("REPLHARVEST_REPLIT_USERNAME", "ada")
	t.Setenv("REPLHARVEST_LOGIN", "ada@example.com")
	t.Setenv("REPLHARVEST_PASSWORD", "secret")
	t.Setenv("REPLHARVEST_BROWSER_DRIVER", "edge")
	t.Setenv("REPLHARVEST_BROWSER_HEADLESS", "true")
	t.Setenv("REPLHARVEST_OUTPUT_DESTINATION", "/tmp/repls")
	t.Setenv("REPLHARVEST_TIMING_INTER_ITEM_DELAY", "750ms")
	t.Setenv("REPLHARVEST_RETRY_FETCH_ATTEMPTS", "5")
	t.Setenv("REPLHARVEST_LOG_LEVEL", "debug")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, "ada", config.Replit.Username)
	assert.Equal(t, "ada@example.com", config.Credentials.Login)
	assert.Equal(t, "secret", config.Credentials.Password)
	assert.Equal(t, DriverEdge, config.Browser.Driver)
	assert.True(t, config.Browser.Headless)
	assert.Equal(t, "/tmp/repls", config.Output.Destination)
	assert.Equal(t, 750*time.Millisecond, config.Timing.InterItemDelay)
	assert.Equal(t, 5, config.Retry.FetchAttempts)
	assert.Equal(t, "debug", config.Logging.Level)

	// untouched values keep their defaults
	assert.Equal(t, 5*time.Second, config.Timing.FetchSettleDelay)
}

func TestLoadFromEnvInvalid(t *testing.T) {
	t.Setenv("REPLHARVEST_RETRY_FETCH_ATTEMPTS", "many")

	assert.Error(t, DefaultConfig().LoadFromEnv())
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	configContent := `
replit:
  username: ada
  listing_url: "https://replit.com/@{username}?tab=repls"
browser:
  driver: chromium
  control_url: ws://127.0.0.1:9222/devtools/browser/abc
output:
  destination: /data/repls
timing:
  inter_item_delay: 3s
  settle_mode: watch
retry:
  fetch_attempts: 4
selectors:
  file: selectors.toml
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	config := DefaultConfig()
	require.NoError(t, config.LoadFromFile(configPath))

	assert.Equal(t, "ada", config.Replit.Username)
	assert.Equal(t, DriverChromium, config.Browser.Driver)
	assert.Equal(t, "ws://127.0.0.1:9222/devtools/browser/abc", config.Browser.ControlURL)
	assert.Equal(t, "/data/repls", config.Output.Destination)
	assert.Equal(t, 3*time.Second, config.Timing.InterItemDelay)
	assert.Equal(t, SettleModeWatch, config.Timing.SettleMode)
	assert.Equal(t, 4, config.Retry.FetchAttempts)
	assert.Equal(t, "selectors.toml", config.Selectors.File)
	assert.Equal(t, "https://replit.com/@ada?tab=repls", config.ListingURL())

	// fields absent from the file keep defaults
	assert.Equal(t, 3, config.Retry.LocateAttempts)
}

func TestLoadFromFileErrors(t *testing.T) {
	config := DefaultConfig()
	assert.Error(t, config.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("timing: [unclosed"), 0644))
	assert.Error(t, config.LoadFromFile(bad))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Browser.Driver = "firefox" }, "unknown browser driver"},
		{"empty destination", func(c *Config) { c.Output.Destination = "" }, "destination directory is required"},
		{"negative delay", func(c *Config) { c.Timing.InterItemDelay = -time.Second }, "inter-item delay cannot be negative"},
		{"zero delay allowed", func(c *Config) { c.Timing.InterItemDelay = 0 }, ""},
		{"zero settle", func(c *Config) { c.Timing.FetchSettleDelay = 0 }, "settle delays must be positive"},
		{"zero timeout", func(c *Config) { c.Timing.ViewTimeout = 0 }, "timeouts must be positive"},
		{"zero action timeout", func(c *Config) { c.Browser.ActionTimeout = 0 }, "browser timeouts must be positive"},
		{"pace inverted", func(c *Config) { c.Timing.KeystrokeMin = time.Second }, "typing pace minimum exceeds maximum"},
		{"settle mode", func(c *Config) { c.Timing.SettleMode = "poll" }, "unknown settle mode"},
		{"fetch attempts", func(c *Config) { c.Retry.FetchAttempts = 0 }, "fetch attempts must be at least 1"},
		{"list passes", func(c *Config) { c.Retry.MaxListPasses = 0 }, "max list passes must be at least 1"},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)

			err := config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	config := DefaultConfig()
	config.Browser.Driver = "safari"
	config.Retry.FetchAttempts = 0

	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown browser driver")
	assert.Contains(t, err.Error(), "fetch attempts")
}

func TestValidateCredentials(t *testing.T) {
	config := DefaultConfig()
	err := config.ValidateCredentials()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile username is required")
	assert.Contains(t, err.Error(), "password is required")

	config.Replit.Username = "ada"
	config.Credentials = CredentialsConfig{Login: "ada", Password: "pw"}
	assert.NoError(t, config.ValidateCredentials())
}

func TestURLs(t *testing.T) {
	config := DefaultConfig()
	config.Replit.Username = "ada"

	assert.Equal(t, "https://replit.com/login", config.LoginURL())
	assert.Equal(t, "https://replit.com/@ada", config.ListingURL())

	config.Replit.BaseURL = "https://replit.test/"
	config.Replit.LoginPath = "login"
	assert.Equal(t, "https://replit.test/login", config.LoginURL())
	assert.Equal(t, "https://replit.test/@ada", config.ListingURL())
}

func TestInvalidInterItemDelayFlag(t *testing.T) {
	for _, delay := range []float64{-1, math.NaN(), math.Inf(1)} {
		config := DefaultConfig()
		config.MergeCommandLineFlags(map[string]interface{}{"inter-item-delay": delay})

		assert.Equal(t, 2*time.Second, config.Timing.InterItemDelay)
		err := config.Validate()
		require.Error(t, err, "delay %v", delay)
		assert.Contains(t, err.Error(), "inter-item delay must be a non-negative number")
	}
}

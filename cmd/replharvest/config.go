package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"replharvest/pkg/auth"
	"replharvest/pkg/config"
	"replharvest/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage replharvest configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (REPLHARVEST_*, .env files included)
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is written to ./replharvest.yaml unless --config names another path.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging every source. The password is
masked.`,
	RunE: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# replharvest configuration
#
# Every value can also be set with an environment variable prefixed with
# REPLHARVEST_, e.g. REPLHARVEST_REPLIT_USERNAME or REPLHARVEST_TIMING_INTER_ITEM_DELAY.
# Keep the password out of this file: use 'replharvest auth login' or
# REPLHARVEST_PASSWORD.

replit:
  base_url: "https://replit.com"
  # Profile whose repls are harvested (the @name in the URL)
  username: ""
  login_path: "/login"
  # Optional explicit listing URL; {username} is substituted
  listing_url: ""

credentials:
  # Email or username typed into the login form; defaults to the profile
  login: ""

browser:
  # chrome, chromium or edge
  driver: "chrome"
  headless: false
  # Explicit browser binary; found automatically when empty
  bin_path: ""
  # Attach to a browser started with --remote-debugging-port
  control_url: ""
  user_data_dir: ""
  no_sandbox: false
  navigation_timeout: 30s
  # Upper bound for one click, typed field, script or element read
  action_timeout: 15s

output:
  destination: "./replit_projects"
  manifest_enabled: true
  # Defaults to the user data directory
  manifest_path: ""

timing:
  inter_item_delay: 2s
  list_settle_delay: 2s
  fetch_settle_delay: 5s
  # sleep waits fetch_settle_delay; watch returns as soon as the zip lands
  settle_mode: "sleep"
  locate_timeout: 10s
  probe_timeout: 2s
  login_timeout: 30s
  container_timeout: 10s
  view_timeout: 15s
  keystroke_min: 50ms
  keystroke_max: 150ms
  field_pause_min: 500ms
  field_pause_max: 1500ms

retry:
  locate_attempts: 3
  locate_backoff: 1s
  fetch_attempts: 3
  max_list_passes: 500

selectors:
  # YAML or TOML file overriding the built-in page selectors
  file: ""

notifications:
  enabled: false
  on_complete: true
  on_error: true

logging:
  # debug, info, warn, error
  level: "info"
  # text or json
  format: "text"
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	configPath := configFile
	if configPath == "" {
		configPath = "replharvest.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Printf("\nTo overwrite, first remove the existing file:\n  rm %s\n", configPath)
		return os.ErrExist
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		return err
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Set replit.username in the file")
	fmt.Println("2. Store your login with 'replharvest auth login'")
	fmt.Println("3. Check everything with 'replharvest config validate'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := config.Load(configFile, globalFlags(cmd))
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return err
	}

	display := *cfg
	if display.Credentials.Password != "" {
		display.Credentials.Password = auth.SanitizeAccount(&auth.Account{Password: display.Credentials.Password}).Password
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		return err
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println()
	if path := configSource(); path != "" {
		ui.PrintInfo("Config file", path)
	} else {
		ui.PrintInfo("Config file", "none (defaults and environment only)")
	}
	ui.PrintInfo("Listing URL", cfg.ListingURL())
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := config.Load(configFile, globalFlags(cmd))
	if err != nil {
		ui.PrintError("Configuration is invalid", err.Error())
		return err
	}
	ui.PrintSuccess("Configuration is valid")

	if err := cfg.ValidateCredentials(); err != nil {
		ui.PrintWarning("Not ready to harvest", err.Error())
		fmt.Println("Missing values can still come from the credential store at run time.")
	}
	return nil
}

func configSource() string {
	if configFile != "" {
		return configFile
	}
	return config.FindConfigFile()
}

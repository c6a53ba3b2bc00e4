package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"replharvest/pkg/auth"
	"replharvest/pkg/checkpoint"
	"replharvest/pkg/config"
	"replharvest/pkg/fetcher"
	"replharvest/pkg/lister"
	"replharvest/pkg/locator"
	"replharvest/pkg/logger"
	"replharvest/pkg/pacing"
	"replharvest/pkg/remote"
	"replharvest/pkg/remote/roddriver"
	"replharvest/pkg/scraper"
	"replharvest/pkg/selector"
	"replharvest/pkg/session"
	"replharvest/pkg/storage"
	"replharvest/pkg/ui"
	"replharvest/pkg/ui/tui"
)

var (
	// Harvest command flags
	loginName      string
	destination    string
	driverName     string
	headless       bool
	controlURL     string
	interItemDelay float64
	settleMode     string
	fetchAttempts  int
	selectorsFile  string
	useManifest    bool
	dryRun         bool
	forceRestart   bool
	useTUI         bool
	accountName    string
)

// harvestCmd represents the harvest command
var harvestCmd = &cobra.Command{
	Use:   "harvest [username]",
	Short: "Download every repl of a profile as a zip",
	Long: `Sign into Replit, list every repl on the profile and export each one.

Credentials are taken from, in order:
  - REPLHARVEST_LOGIN / REPLHARVEST_PASSWORD (or the config file)
  - The stored account given with --account
  - The default stored account (see 'replharvest auth login')

Archives already present in the destination are skipped, so an interrupted
run can simply be started again.`,
	Example: `  # Harvest a profile into ./replit_projects
  replharvest harvest ada

  # Same thing, the subcommand is optional
  replharvest ada

  # Only list what would be downloaded
  replharvest ada --dry-run

  # Use Edge, a slower pace and the live dashboard
  replharvest ada --driver edge --inter-item-delay 5 --tui`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHarvest,
}

func init() {
	rootCmd.AddCommand(harvestCmd)
	registerHarvestFlags(harvestCmd)
	registerHarvestFlags(rootCmd)

	// Anything that is not a subcommand is treated as a profile to harvest
	rootCmd.Args = cobra.ArbitraryArgs
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 && !isKnownCommand(args[0]) {
			return runHarvest(cmd, args)
		}
		return cmd.Help()
	}
}

func registerHarvestFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&loginName, "login", "l", "", "email or username to sign in with")
	f.StringVarP(&destination, "destination", "d", "", "directory that receives the zip archives")
	f.StringVar(&driverName, "driver", "", "browser to drive (chrome, chromium, edge)")
	f.BoolVar(&headless, "headless", false, "run the browser without a window")
	f.StringVar(&controlURL, "control-url", "", "attach to an already running browser's DevTools endpoint")
	f.Float64Var(&interItemDelay, "inter-item-delay", 2, "seconds to wait between repls")
	f.StringVar(&settleMode, "settle-mode", "", "how to wait for a download (sleep, watch)")
	f.IntVar(&fetchAttempts, "fetch-attempts", 3, "attempts per repl before it is recorded as failed")
	f.StringVar(&selectorsFile, "selectors", "", "YAML or TOML file overriding page selectors")
	f.BoolVar(&useManifest, "manifest", true, "keep a manifest of completed repls")
	f.BoolVar(&dryRun, "dry-run", false, "sign in and list repls without downloading")
	f.BoolVar(&forceRestart, "force-restart", false, "discard the manifest before starting")
	f.BoolVar(&useTUI, "tui", false, "show a live dashboard")
	f.StringVarP(&accountName, "account", "a", "", "use a specific stored account")
}

func isKnownCommand(arg string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == arg || cmd.HasAlias(arg) {
			return true
		}
	}
	return false
}

// harvestFlags maps the flags the user set onto config keys
func harvestFlags(cmd *cobra.Command, args []string) map[string]interface{} {
	flags := globalFlags(cmd)
	if len(args) > 0 {
		flags["username"] = strings.TrimPrefix(strings.TrimSpace(args[0]), "@")
	}

	changed := cmd.Flags().Changed
	if changed("login") {
		flags["login"] = loginName
	}
	if changed("destination") {
		flags["destination"] = destination
	}
	if changed("driver") {
		flags["driver"] = driverName
	}
	if changed("headless") {
		flags["headless"] = headless
	}
	if changed("control-url") {
		flags["control-url"] = controlURL
	}
	if changed("inter-item-delay") {
		flags["inter-item-delay"] = interItemDelay
	}
	if changed("settle-mode") {
		flags["settle-mode"] = settleMode
	}
	if changed("fetch-attempts") {
		flags["fetch-attempts"] = fetchAttempts
	}
	if changed("selectors") {
		flags["selectors"] = selectorsFile
	}
	if changed("manifest") {
		flags["manifest"] = useManifest
	}
	return flags
}

func runHarvest(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := config.Load(configFile, harvestFlags(cmd, args))
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return err
	}
	cfg.Logging.Quiet = useTUI

	// The dashboard owns the terminal; warnings go to its events panel instead
	var (
		dashboard *tui.TUI
		sinks     []io.Writer
	)
	if useTUI {
		sinks = append(sinks, logger.NewEventWriter(zerolog.WarnLevel, func(level, message string) {
			if dashboard != nil {
				dashboard.Log(level, "%s", message)
			}
		}))
	}

	logger.Version = version
	if err := logger.Initialize(&cfg.Logging, sinks...); err != nil {
		ui.PrintError("Failed to initialize logging", err.Error())
		return err
	}
	log := logger.GetLogger()

	if err := resolveCredentials(cfg, accountName, log); err != nil {
		return err
	}
	if err := cfg.ValidateCredentials(); err != nil {
		ui.PrintError("Missing run inputs", err.Error())
		auth.ShowQuickGuide(os.Stderr)
		return err
	}

	username := cfg.Replit.Username
	if !useTUI {
		ui.PrintInfo("Profile", "@"+username)
		ui.PrintInfo("Destination", cfg.Output.Destination)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		display  *ui.ProgressDisplay
		progress scraper.Progress
	)
	if useTUI {
		dashboard = tui.NewTUI(username, stop)
		progress = dashboard
	} else {
		display = ui.NewProgressDisplay(ui.Out, username, verbose)
		progress = display
	}

	sc, err := buildScraper(cfg, progress, log)
	if err != nil {
		ui.PrintError("Failed to prepare the run", err.Error())
		return err
	}
	sc.SetDryRun(dryRun)

	creds := session.Credentials{Login: cfg.Credentials.Login, Password: cfg.Credentials.Password}
	started := time.Now()

	var result *scraper.Result
	if dashboard != nil {
		sc.WithStateObserver(func(s scraper.State) { dashboard.SetPhase(string(s)) })
		result, err = runWithDashboard(ctx, dashboard, sc, creds, log)
		// the program has exited; later lines have nowhere to go
		dashboard = nil
	} else {
		ui.PrintHighlight("[STARTING HARVEST]")
		result, err = sc.Run(ctx, creds)
	}

	report(cfg, result, display, err)
	logRunMetrics(log, result, time.Since(started))
	if err != nil {
		logger.LogComponentStop(log, "harvest", err.Error())
		log.WithError(err).WithField("username", username).Error("Harvest failed")
		return err
	}
	logger.LogComponentStop(log, "harvest", "completed")
	log.WithField("username", username).Info("Harvest completed")
	return nil
}

// logRunMetrics records the outcome counters of a finished run
func logRunMetrics(log logger.Logger, result *scraper.Result, elapsed time.Duration) {
	metrics := map[string]interface{}{"dry_run": dryRun}
	if result != nil && result.Inventory != nil {
		metrics["discovered"] = result.Inventory.Len()
	}
	if result != nil && result.Report != nil {
		metrics["run_id"] = result.Report.RunID
		metrics["fetched"] = result.Report.Succeeded()
		metrics["skipped"] = result.Report.Skipped()
		metrics["failed"] = result.Report.Failed()
	}
	logger.LogMetrics(log, "harvest", elapsed, metrics)
}

// resolveCredentials fills cfg.Credentials from the credential store unless
// config or environment already supplied a complete pair
func resolveCredentials(cfg *config.Config, account string, log logger.Logger) error {
	if account == "" && cfg.Credentials.Login != "" && cfg.Credentials.Password != "" {
		log.Debug("Using credentials from configuration")
		return nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		return err
	}

	var stored *auth.Account
	switch {
	case account != "":
		stored, err = manager.Retrieve(account)
		if err != nil {
			ui.PrintError("Account not found", account)
			ui.PrintInfo("Stored accounts", "run 'replharvest auth list'")
			return err
		}
	case cfg.Replit.Username != "":
		stored, err = manager.Retrieve(cfg.Replit.Username)
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			stored, err = manager.RetrieveDefault()
		}
	default:
		stored, err = manager.RetrieveDefault()
	}
	if err != nil {
		ui.PrintError("No Replit credentials found")
		auth.ShowQuickGuide(os.Stderr)
		return err
	}

	if cfg.Replit.Username == "" {
		cfg.Replit.Username = stored.Username
	}
	if cfg.Credentials.Login == "" {
		cfg.Credentials.Login = stored.LoginName()
	}
	if cfg.Credentials.Password == "" {
		cfg.Credentials.Password = stored.Password
	}
	log.WithField("account", stored.Username).Info("Using stored credentials")
	return nil
}

// buildScraper wires every run component from cfg
func buildScraper(cfg *config.Config, progress scraper.Progress, log logger.Logger) (*scraper.Scraper, error) {
	sels, err := selector.Load(cfg.Selectors.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load selectors: %w", err)
	}
	loc := locator.New(sels,
		locator.WithTimeout(cfg.Timing.LocateTimeout),
		locator.WithRetries(cfg.Retry.LocateAttempts),
		locator.WithBackoff(cfg.Retry.LocateBackoff),
		locator.WithLogger(log),
	)

	login := session.NewManager(loc, session.Options{
		LoginURL:     cfg.LoginURL(),
		LoginTimeout: cfg.Timing.LoginTimeout,
		Keystroke:    pacing.NewJitter(cfg.Timing.KeystrokeMin, cfg.Timing.KeystrokeMax),
		FieldPause:   pacing.NewJitter(cfg.Timing.FieldPauseMin, cfg.Timing.FieldPauseMax),
	}, log)

	discovery := lister.New(loc, lister.Options{
		ListingURL:       cfg.ListingURL(),
		SettleDelay:      cfg.Timing.ListSettleDelay,
		ContainerTimeout: cfg.Timing.ContainerTimeout,
		MaxPasses:        cfg.Retry.MaxListPasses,
	}, log)

	store, err := storage.NewStore(cfg.Output.Destination)
	if err != nil {
		return nil, err
	}

	var settler fetcher.Settler = fetcher.SleepSettler{Delay: cfg.Timing.FetchSettleDelay}
	if strings.EqualFold(cfg.Timing.SettleMode, config.SettleModeWatch) {
		settler = fetcher.WatchSettler{Store: store, Timeout: cfg.Timing.FetchSettleDelay, Log: log}
	}
	exporter := fetcher.New(loc, settler, fetcher.Options{
		ViewTimeout:  cfg.Timing.ViewTimeout,
		ProbeTimeout: cfg.Timing.ProbeTimeout,
	}, log)

	opts := scraper.OrchestratorOptions{
		ListingURL:     cfg.ListingURL(),
		FetchAttempts:  cfg.Retry.FetchAttempts,
		InterItemDelay: cfg.Timing.InterItemDelay,
	}

	var manifest *checkpoint.Manager
	if cfg.Output.ManifestEnabled && !dryRun {
		manifest, err = openManifest(cfg, log)
		if err != nil {
			log.WithError(err).Warn("Manifest unavailable; continuing without it")
		} else {
			current, err := manifest.Begin(cfg.Replit.Username)
			if err != nil {
				log.WithError(err).Warn("Failed to open manifest; continuing without it")
				manifest = nil
			} else {
				opts.RunID = current.RunID
			}
		}
	}

	orchestrator := scraper.NewOrchestrator(store, exporter, opts, log).WithProgress(progress)
	if manifest != nil {
		orchestrator.WithManifest(manifest)
	}

	browser := roddriver.Options{
		Driver:            cfg.Browser.Driver,
		Headless:          cfg.Browser.Headless,
		BinPath:           cfg.Browser.BinPath,
		ControlURL:        cfg.Browser.ControlURL,
		UserDataDir:       cfg.Browser.UserDataDir,
		NoSandbox:         cfg.Browser.NoSandbox,
		DownloadDir:       store.Dir(),
		NavigationTimeout: cfg.Browser.NavigationTimeout,
		ActionTimeout:     cfg.Browser.ActionTimeout,
	}
	open := func(ctx context.Context) (remote.Remote, error) {
		return roddriver.Open(ctx, browser, log)
	}

	logger.LogComponentStart(log, "harvest", map[string]interface{}{
		"username":    cfg.Replit.Username,
		"listing":     cfg.ListingURL(),
		"destination": store.Dir(),
		"driver":      cfg.Browser.Driver,
		"settle_mode": cfg.Timing.SettleMode,
		"manifest":    manifest != nil,
	})
	return scraper.New(open, login, discovery, orchestrator, log), nil
}

func openManifest(cfg *config.Config, log logger.Logger) (*checkpoint.Manager, error) {
	var (
		m   *checkpoint.Manager
		err error
	)
	if cfg.Output.ManifestPath != "" {
		m, err = checkpoint.NewManagerAt(cfg.Output.ManifestPath)
	} else {
		m, err = checkpoint.NewManager(cfg.Replit.Username)
	}
	if err != nil {
		return nil, err
	}
	m.WithLogger(log)

	if forceRestart && m.Exists() {
		if err := m.Backup(); err != nil {
			return nil, err
		}
		if err := m.Delete(); err != nil {
			return nil, err
		}
		log.WithField("backup", m.Path()+checkpoint.BackupSuffix).Info("Discarded previous manifest")
	}
	return m, nil
}

// runWithDashboard runs the scraper behind the dashboard and tears the
// dashboard down once the run is over
func runWithDashboard(ctx context.Context, dashboard *tui.TUI, sc *scraper.Scraper, creds session.Credentials, log logger.Logger) (*scraper.Result, error) {
	type outcome struct {
		result *scraper.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := sc.Run(ctx, creds)
		done <- outcome{result, err}
	}()

	tuiDone := make(chan error, 1)
	go func() { tuiDone <- dashboard.Start() }()

	select {
	case out := <-done:
		dashboard.Stop()
		if err := <-tuiDone; err != nil {
			log.WithError(err).Warn("Dashboard exited with an error")
		}
		return out.result, out.err
	case err := <-tuiDone:
		if err != nil {
			log.WithError(err).Warn("Dashboard exited with an error")
		}
		// The user quit; the context is cancelled and the run winds down
		out := <-done
		return out.result, out.err
	}
}

func report(cfg *config.Config, result *scraper.Result, display *ui.ProgressDisplay, runErr error) {
	if result != nil {
		switch {
		case dryRun && result.Inventory != nil:
			ui.PrintInventory(ui.Out, result.Inventory)
		case result.Report != nil:
			if display != nil {
				display.Complete()
			}
			ui.PrintSummary(ui.Out, result.Report)
		}
	}

	if runErr != nil {
		ui.PrintError("HARVEST FAILED", runErr.Error())
	}

	if !cfg.Notifications.Enabled {
		return
	}
	notifier := ui.NewNotifier()
	switch {
	case runErr != nil && cfg.Notifications.OnError:
		notifier.SendError("Harvest failed", runErr.Error())
	case runErr == nil && result != nil && result.Report != nil && cfg.Notifications.OnComplete:
		notifier.NotifyReport(cfg.Replit.Username, result.Report)
	}
}

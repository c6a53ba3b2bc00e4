package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"replharvest/pkg/checkpoint"
	"replharvest/pkg/config"
	"replharvest/pkg/storage"
	"replharvest/pkg/ui"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status [username]",
	Short: "Show what previous runs left behind",
	Long: `Show the archives in the destination directory and the manifest of
previous runs for a profile. Nothing is contacted over the network.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVarP(&destination, "destination", "d", "", "directory that receives the zip archives")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	flags := globalFlags(cmd)
	if len(args) > 0 {
		flags["username"] = args[0]
	}
	if cmd.Flags().Changed("destination") {
		flags["destination"] = destination
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return err
	}

	store, err := storage.NewStore(cfg.Output.Destination)
	if err != nil {
		ui.PrintError("Destination unavailable", err.Error())
		return err
	}
	files, err := store.ListFiles()
	if err != nil {
		ui.PrintError("Failed to read destination", err.Error())
		return err
	}
	ui.PrintInfo("Destination", store.Dir())
	ui.PrintInfo("Archives", fmt.Sprint(len(files)))

	if cfg.Replit.Username == "" {
		return nil
	}

	var manifest *checkpoint.Manager
	if cfg.Output.ManifestPath != "" {
		manifest, err = checkpoint.NewManagerAt(cfg.Output.ManifestPath)
	} else {
		manifest, err = checkpoint.NewManager(cfg.Replit.Username)
	}
	if err != nil {
		ui.PrintError("Manifest unavailable", err.Error())
		return err
	}

	info, err := manifest.Info()
	if err != nil {
		ui.PrintWarning("Manifest unreadable", err.Error())
		return nil
	}
	if info == nil {
		ui.PrintInfo("Manifest", "no previous runs for @"+cfg.Replit.Username)
		return nil
	}

	ui.PrintInfo("Manifest", manifest.Path())
	ui.PrintInfo("Runs", fmt.Sprint(info["runs"]))
	ui.PrintInfo("Completed", fmt.Sprint(info["completed"]))
	ui.PrintInfo("Last run", fmt.Sprint(info["last_run"]))
	if age, ok := info["age"].(time.Duration); ok {
		ui.PrintInfo("Updated", age.Round(time.Second).String()+" ago")
	}
	return nil
}

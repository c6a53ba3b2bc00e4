package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"replharvest/pkg/auth"
	"replharvest/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored Replit logins",
	Long: `Manage stored Replit logins.

Logins are stored using:
  - The system keychain (when available)
  - An encrypted file with PBKDF2 key derivation
  - Environment variables (read only)

Never share your credentials or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store a Replit login",
	Long: `Store a Replit login in the system keychain or an encrypted file.

You will be prompted for:
  - The profile to harvest (if not provided)
  - The email or username typed into the login form (Enter reuses the profile)
  - The password (hidden while typing)`,
	Example: `  # Interactive login
  replharvest auth login

  # Login for a profile
  replharvest auth login ada`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove a stored login",
	Long: `Remove a stored login.

Without a username the stored accounts are listed to choose from; all of
them can be removed at once.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored logins",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func confirm(reader *bufio.Reader, question string) bool {
	return strings.HasPrefix(strings.ToLower(prompt(reader, question)), "y")
}

func runLogin(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	auth.ShowSetupGuide(os.Stdout)

	var username string
	if len(args) > 0 {
		username = strings.TrimPrefix(strings.TrimSpace(args[0]), "@")
	}
	if username == "" {
		username = strings.TrimPrefix(prompt(reader, "Replit profile (the @name in the URL): "), "@")
	}
	if username == "" {
		ui.PrintError("Username is required")
		return auth.ErrInvalidCredentials
	}

	if existing, _ := manager.Retrieve(username); existing != nil {
		if !confirm(reader, fmt.Sprintf("\nAccount '%s' already exists. Update it? (y/N): ", username)) {
			return nil
		}
	}

	login := prompt(reader, fmt.Sprintf("Email or username to sign in with [%s]: ", username))

	fmt.Print("Password (hidden): ")
	password, err := readPassword(reader)
	fmt.Println()
	if err != nil {
		ui.PrintError("Failed to read password", err.Error())
		return err
	}
	if password == "" {
		ui.PrintError("Password is required")
		return auth.ErrInvalidCredentials
	}

	account := &auth.Account{
		Username:     username,
		Login:        login,
		Password:     password,
		LastModified: time.Now(),
	}
	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Account saved: %s", username))
	if auth.IsKeyringAvailable() {
		ui.PrintInfo("Stored in", "system keychain")
	} else {
		ui.PrintInfo("Stored in", "encrypted file")
	}
	fmt.Printf("\nHarvest the profile with:\n  $ replharvest %s\n", username)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		return err
	}

	if len(args) > 0 {
		if err := manager.Delete(args[0]); err != nil {
			ui.PrintError("Failed to remove account", err.Error())
			return err
		}
		ui.PrintSuccess("Account removed: " + args[0])
		return nil
	}

	accounts, err := manager.List()
	if err != nil || len(accounts) == 0 {
		ui.PrintError("No stored accounts found")
		return nil
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Println("Select account to remove:")
	for i, account := range accounts {
		fmt.Printf("  %d. %s\n", i+1, account.Username)
	}
	fmt.Printf("  %d. Remove all accounts\n", len(accounts)+1)
	fmt.Printf("  0. Cancel\n\n")

	var choice int
	fmt.Sscanf(prompt(reader, "Choice: "), "%d", &choice)

	switch {
	case choice == 0:
		return nil
	case choice == len(accounts)+1:
		if prompt(reader, "Remove ALL accounts? This cannot be undone! (yes/N): ") != "yes" {
			return nil
		}
		if err := manager.DeleteAll(); err != nil {
			ui.PrintError("Failed to remove all accounts", err.Error())
			return err
		}
		ui.PrintSuccess("All accounts removed")
	case choice > 0 && choice <= len(accounts):
		account := accounts[choice-1]
		if err := manager.Delete(account.Username); err != nil {
			ui.PrintError("Failed to remove account", err.Error())
			return err
		}
		ui.PrintSuccess("Account removed: " + account.Username)
	default:
		ui.PrintError("Invalid choice")
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		return err
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		return err
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "use 'replharvest auth login' to add one")
		return nil
	}

	ui.PrintHighlight("Stored Accounts")
	fmt.Println()
	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Printf("%d. Profile: %s\n", i+1, sanitized.Username)
		fmt.Printf("   Login: %s\n", sanitized.LoginName())
		fmt.Printf("   Password: %s\n", sanitized.Password)
		fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
	return nil
}

// readPassword reads a password without echo when stdin is a terminal
func readPassword(reader *bufio.Reader) (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return "", err
		}
		return string(password), nil
	}

	password, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(password), nil
}

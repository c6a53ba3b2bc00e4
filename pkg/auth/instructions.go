package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowSetupGuide explains the ways a harvest run can obtain a login
func ShowSetupGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "REPLIT LOGIN SETUP")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "replharvest signs in through the regular Replit login form, so it needs")
	fmt.Fprintln(w, "the same email/username and password you type in the browser.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Pick one of:")
	fmt.Fprintln(w, "  1. replharvest auth login")
	fmt.Fprintln(w, "     Prompts for the password and saves it in the system keychain,")
	fmt.Fprintln(w, "     or in an encrypted file when no keychain is available.")
	fmt.Fprintln(w, "  2. Environment variables (or a .env file):")
	fmt.Fprintf(w, "       %s=<profile>\n", envUsername)
	fmt.Fprintf(w, "       %s=<email or username>\n", envLogin)
	fmt.Fprintf(w, "       %s=<password>\n", envPassword)
	fmt.Fprintln(w, "  3. --login on the command line; the password is then read from the store.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Accounts that sign in with Google or GitHub need a password set in the")
	fmt.Fprintln(w, "Replit account settings first.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
}

// ShowQuickGuide prints a one-line reminder
func ShowQuickGuide(w io.Writer) {
	fmt.Fprintf(w, "No login found: run 'replharvest auth login' or set %s and %s\n", envLogin, envPassword)
}

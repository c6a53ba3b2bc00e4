package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Account holds the login for one Replit profile
type Account struct {
	// Username is the profile whose repls are harvested and the storage key
	Username string `json:"username"`
	// Login is what goes into the login form (email or username)
	Login        string    `json:"login"`
	Password     string    `json:"password"`
	LastModified time.Time `json:"last_modified"`
}

// LoginName returns Login, falling back to Username
func (a *Account) LoginName() string {
	if a.Login != "" {
		return a.Login
	}
	return a.Username
}

// CredentialStore is one backend accounts can be kept in
type CredentialStore interface {
	Store(account *Account) error
	Retrieve(username string) (*Account, error)
	List() ([]*Account, error)
	Delete(username string) error
	Exists(username string) bool
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)

// profileKey is the storage key for a profile name; "@Ada" and "ada" are the same profile
func profileKey(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}

// Manager tries its stores in order: writes go to the first that accepts,
// reads come from the first that has the account
type Manager struct {
	stores []CredentialStore
}

// NewManager uses the system keychain when reachable, then the encrypted
// vault file in the config directory, then the environment
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if ks, err := NewKeyringStore(); err == nil {
		stores = append(stores, ks)
	}

	dir, err := configDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	vault, err := NewVault(filepath.Join(dir, "credentials.vault"))
	if err != nil {
		return nil, fmt.Errorf("failed to open credential vault: %w", err)
	}

	stores = append(stores, vault, NewEnvironmentStore())
	return NewManagerWithStores(stores...), nil
}

// NewManagerWithStores builds a manager over an explicit store chain
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves account in the first writable store
func (m *Manager) Store(account *Account) error {
	switch {
	case account == nil || profileKey(account.Username) == "":
		return fmt.Errorf("%w: username is required", ErrInvalidCredentials)
	case account.Password == "":
		return fmt.Errorf("%w: password is required", ErrInvalidCredentials)
	}
	account.Username = profileKey(account.Username)
	account.LastModified = time.Now()

	var errs []error
	for _, store := range m.stores {
		err := store.Store(account)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrStoreUnavailable) {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return ErrStoreUnavailable
	}
	return fmt.Errorf("failed to store credentials: %w", errors.Join(errs...))
}

// Retrieve returns the account for username from the first store holding it
func (m *Manager) Retrieve(username string) (*Account, error) {
	key := profileKey(username)
	for _, store := range m.stores {
		if account, err := store.Retrieve(key); err == nil && account != nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("%w for user: %s", ErrCredentialsNotFound, username)
}

// RetrieveDefault prefers environment credentials, then the most recently
// saved account
func (m *Manager) RetrieveDefault() (*Account, error) {
	for _, store := range m.stores {
		if env, ok := store.(*EnvironmentStore); ok {
			if account, err := env.Retrieve(""); err == nil {
				return account, nil
			}
		}
	}

	accounts, _ := m.List()
	if len(accounts) == 0 {
		return nil, ErrCredentialsNotFound
	}
	latest := accounts[0]
	for _, a := range accounts[1:] {
		if a.LastModified.After(latest.LastModified) {
			latest = a
		}
	}
	return latest, nil
}

// List merges every store's accounts, keeping the newest copy of each
// profile, sorted by username. Unreadable stores are skipped.
func (m *Manager) List() ([]*Account, error) {
	byKey := make(map[string]*Account)
	for _, store := range m.stores {
		accounts, err := store.List()
		if err != nil {
			continue
		}
		for _, a := range accounts {
			key := profileKey(a.Username)
			if seen, ok := byKey[key]; !ok || a.LastModified.After(seen.LastModified) {
				byKey[key] = a
			}
		}
	}

	out := make([]*Account, 0, len(byKey))
	for _, a := range byKey {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return profileKey(out[i].Username) < profileKey(out[j].Username) })
	return out, nil
}

// Delete removes username from every store that has it
func (m *Manager) Delete(username string) error {
	key := profileKey(username)
	removed := false
	var errs []error

	for _, store := range m.stores {
		err := store.Delete(key)
		switch {
		case err == nil:
			removed = true
		case errors.Is(err, ErrCredentialsNotFound), errors.Is(err, ErrStoreUnavailable):
		default:
			errs = append(errs, err)
		}
	}

	if removed {
		return nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to delete credentials: %w", errors.Join(errs...))
	}
	return fmt.Errorf("%w for user: %s", ErrCredentialsNotFound, username)
}

// DeleteAll removes every listed account, returning the first failure
func (m *Manager) DeleteAll() error {
	accounts, err := m.List()
	if err != nil {
		return err
	}
	var first error
	for _, a := range accounts {
		if err := m.Delete(a.Username); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// configDir is the per-user replharvest config directory, created on demand
func configDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "replharvest")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// SanitizeAccount returns a copy of account safe to print
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}
	out := *account
	out.Password = maskSecret(account.Password)
	return &out
}

// maskSecret keeps two characters at each end of secrets longer than eight
func maskSecret(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:2] + "..." + s[len(s)-2:]
}

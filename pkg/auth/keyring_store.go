package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "replharvest"
	keyringPrefix  = "replit_"
	// keyringIndex lists the stored profiles; the keychain API cannot enumerate
	keyringIndex = "profiles"
)

// KeyringStore keeps one keychain secret per profile plus an index entry
type KeyringStore struct {
	mu sync.Mutex
}

// NewKeyringStore fails when no keychain backend answers
func NewKeyringStore() (*KeyringStore, error) {
	if _, err := keyring.Get(keyringService, keyringIndex); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &KeyringStore{}, nil
}

func (k *KeyringStore) index() ([]string, error) {
	raw, err := keyring.Get(keyringService, keyringIndex)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("corrupt keychain index: %w", err)
	}
	return names, nil
}

func (k *KeyringStore) saveIndex(names []string) error {
	if len(names) == 0 {
		err := keyring.Delete(keyringService, keyringIndex)
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return err
	}
	sort.Strings(names)
	raw, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return keyring.Set(keyringService, keyringIndex, string(raw))
}

// Store writes the account secret and records the profile in the index
func (k *KeyringStore) Store(account *Account) error {
	if account == nil || profileKey(account.Username) == "" {
		return ErrInvalidCredentials
	}
	key := profileKey(account.Username)
	k.mu.Lock()
	defer k.mu.Unlock()

	data, err := json.Marshal(account)
	if err != nil {
		return err
	}
	if err := keyring.Set(keyringService, keyringPrefix+key, string(data)); err != nil {
		return fmt.Errorf("failed to store in keychain: %w", err)
	}

	names, err := k.index()
	if err != nil {
		return err
	}
	for _, n := range names {
		if n == key {
			return nil
		}
	}
	return k.saveIndex(append(names, key))
}

// Retrieve reads the account secret for username
func (k *KeyringStore) Retrieve(username string) (*Account, error) {
	key := profileKey(username)
	if key == "" {
		return nil, ErrInvalidCredentials
	}

	data, err := keyring.Get(keyringService, keyringPrefix+key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrCredentialsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keychain: %w", err)
	}

	var account Account
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return nil, fmt.Errorf("corrupt keychain entry for %s: %w", key, err)
	}
	return &account, nil
}

// List returns every indexed profile that still has a readable secret
func (k *KeyringStore) List() ([]*Account, error) {
	k.mu.Lock()
	names, err := k.index()
	k.mu.Unlock()
	if err != nil {
		return nil, err
	}

	accounts := make([]*Account, 0, len(names))
	for _, n := range names {
		if a, err := k.Retrieve(n); err == nil {
			accounts = append(accounts, a)
		}
	}
	return accounts, nil
}

// Delete removes the secret and its index entry
func (k *KeyringStore) Delete(username string) error {
	key := profileKey(username)
	if key == "" {
		return ErrInvalidCredentials
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	err := keyring.Delete(keyringService, keyringPrefix+key)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrCredentialsNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete from keychain: %w", err)
	}

	names, err := k.index()
	if err != nil {
		return err
	}
	kept := names[:0]
	for _, n := range names {
		if n != key {
			kept = append(kept, n)
		}
	}
	return k.saveIndex(kept)
}

// Exists reports whether the keychain holds username
func (k *KeyringStore) Exists(username string) bool {
	_, err := k.Retrieve(username)
	return err == nil
}

// IsKeyringAvailable reports whether a system keychain is expected on this OS.
// On Linux it depends on a running Secret Service, signalled by a session bus.
func IsKeyringAvailable() bool {
	switch runtime.GOOS {
	case "darwin", "windows":
		return true
	case "linux", "freebsd", "openbsd":
		return os.Getenv("DBUS_SESSION_BUS_ADDRESS") != ""
	default:
		return false
	}
}

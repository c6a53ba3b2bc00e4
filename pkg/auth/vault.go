package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

// EnvPassphrase overrides the generated vault passphrase
const EnvPassphrase = "REPLHARVEST_PASSPHRASE"

const (
	vaultVersion    = 2
	vaultIterations = 210000
	vaultSaltSize   = 16
	vaultKeySize    = 32
)

// vaultAAD binds the ciphertext to this file format
var vaultAAD = []byte("replharvest/vault/v2")

// ErrVaultLocked means the vault exists but cannot be opened with the passphrase
var ErrVaultLocked = errors.New("credential vault cannot be decrypted")

// vaultFile is the on-disk envelope; only Sealed carries account data
type vaultFile struct {
	Version    int       `json:"version"`
	Iterations int       `json:"iterations"`
	Salt       []byte    `json:"salt"`
	Nonce      []byte    `json:"nonce"`
	Sealed     []byte    `json:"sealed"`
	Updated    time.Time `json:"updated"`
}

// Vault keeps accounts in a single AES-GCM sealed file. The key is derived
// from the passphrase with PBKDF2 once per salt and cached.
type Vault struct {
	path       string
	passphrase []byte

	mu   sync.Mutex
	salt []byte
	key  []byte
}

// NewVault opens (without reading) the vault at path
func NewVault(path string) (*Vault, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create vault directory: %w", err)
	}
	pass, err := vaultPassphrase(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	return &Vault{path: path, passphrase: pass}, nil
}

// vaultPassphrase reads REPLHARVEST_PASSPHRASE, else a random key file kept
// next to the vault, generating it on first use
func vaultPassphrase(dir string) ([]byte, error) {
	if p := os.Getenv(EnvPassphrase); p != "" {
		return []byte(p), nil
	}

	keyFile := filepath.Join(dir, "vault.key")
	if b, err := os.ReadFile(keyFile); err == nil && len(b) > 0 {
		return b, nil
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate vault key: %w", err)
	}
	pass := []byte(base64.RawURLEncoding.EncodeToString(raw))
	if err := os.WriteFile(keyFile, pass, 0600); err != nil {
		return nil, fmt.Errorf("failed to save vault key: %w", err)
	}
	return pass, nil
}

func (v *Vault) deriveKey(salt []byte, iterations int) []byte {
	if v.key != nil && string(v.salt) == string(salt) {
		return v.key
	}
	v.salt = append([]byte(nil), salt...)
	v.key = pbkdf2.Key(v.passphrase, salt, iterations, vaultKeySize, sha256.New)
	return v.key
}

// read returns the decrypted accounts; a missing file is an empty vault
func (v *Vault) read() (map[string]Account, error) {
	raw, err := os.ReadFile(v.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Account{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read vault: %w", err)
	}

	var file vaultFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse vault: %w", err)
	}
	if file.Version != vaultVersion {
		return nil, fmt.Errorf("unsupported vault version %d", file.Version)
	}

	gcm, err := newGCM(v.deriveKey(file.Salt, file.Iterations))
	if err != nil {
		return nil, err
	}
	plain, err := gcm.Open(nil, file.Nonce, file.Sealed, vaultAAD)
	if err != nil {
		return nil, ErrVaultLocked
	}

	accounts := map[string]Account{}
	if err := json.Unmarshal(plain, &accounts); err != nil {
		return nil, fmt.Errorf("failed to decode vault contents: %w", err)
	}
	return accounts, nil
}

// write seals accounts with a fresh nonce and replaces the file atomically.
// An empty vault removes the file.
func (v *Vault) write(accounts map[string]Account) error {
	if len(accounts) == 0 {
		if err := os.Remove(v.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}

	salt := v.salt
	if salt == nil {
		salt = make([]byte, vaultSaltSize)
		if _, err := rand.Read(salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
	}
	gcm, err := newGCM(v.deriveKey(salt, vaultIterations))
	if err != nil {
		return err
	}

	plain, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("failed to encode accounts: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	out, err := json.MarshalIndent(vaultFile{
		Version:    vaultVersion,
		Iterations: vaultIterations,
		Salt:       salt,
		Nonce:      nonce,
		Sealed:     gcm.Seal(nil, nonce, plain, vaultAAD),
		Updated:    time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(v.path), ".vault-*")
	if err != nil {
		return fmt.Errorf("failed to write vault: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write vault: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), v.path)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Store adds or replaces an account
func (v *Vault) Store(account *Account) error {
	if account == nil || profileKey(account.Username) == "" {
		return ErrInvalidCredentials
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	accounts, err := v.read()
	if err != nil {
		return err
	}
	accounts[profileKey(account.Username)] = *account
	return v.write(accounts)
}

// Retrieve returns the account stored for username
func (v *Vault) Retrieve(username string) (*Account, error) {
	if profileKey(username) == "" {
		return nil, ErrInvalidCredentials
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	accounts, err := v.read()
	if err != nil {
		return nil, err
	}
	a, ok := accounts[profileKey(username)]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &a, nil
}

// List returns every account in the vault, sorted by username
func (v *Vault) List() ([]*Account, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	accounts, err := v.read()
	if err != nil {
		return nil, err
	}
	out := make([]*Account, 0, len(accounts))
	for _, a := range accounts {
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return profileKey(out[i].Username) < profileKey(out[j].Username) })
	return out, nil
}

// Delete removes username; the file goes away with the last account
func (v *Vault) Delete(username string) error {
	key := profileKey(username)
	if key == "" {
		return ErrInvalidCredentials
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	accounts, err := v.read()
	if err != nil {
		return err
	}
	if _, ok := accounts[key]; !ok {
		return ErrCredentialsNotFound
	}
	delete(accounts, key)
	return v.write(accounts)
}

// Exists reports whether username can be read from the vault
func (v *Vault) Exists(username string) bool {
	a, err := v.Retrieve(username)
	return err == nil && a != nil
}

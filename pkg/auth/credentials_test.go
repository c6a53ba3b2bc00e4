package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestCredentialManager(t *testing.T) {
	mem := NewMemoryStore()
	manager := NewManagerWithStores(mem)

	account := &Account{
		Username: "ada",
		Login:    "ada@example.com",
		Password: "correct-horse-battery",
	}
	require.NoError(t, manager.Store(account))
	assert.False(t, account.LastModified.IsZero())

	retrieved, err := manager.Retrieve("ada")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", retrieved.Login)
	assert.Equal(t, "correct-horse-battery", retrieved.Password)

	accounts, err := manager.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	require.NoError(t, manager.Delete("ada"))
	_, err = manager.Retrieve("ada")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.Zero(t, mem.Len())
}

func TestManagerStoreValidation(t *testing.T) {
	manager := NewManagerWithStores(NewMemoryStore())

	assert.Error(t, manager.Store(nil))
	assert.Error(t, manager.Store(&Account{Password: "pw"}))
	assert.Error(t, manager.Store(&Account{Username: "ada"}))
}

func TestManagerFallsThroughStores(t *testing.T) {
	t.Setenv(envLogin, "")
	broken := NewMemoryStore()
	broken.Fail("store", errors.New("keychain locked"))
	backup := NewMemoryStore()
	manager := NewManagerWithStores(broken, NewEnvironmentStore(), backup)

	require.NoError(t, manager.Store(&Account{Username: "@Ada", Password: "pw"}))
	assert.Zero(t, broken.Len())
	assert.Equal(t, 1, backup.Len())

	account, err := manager.Retrieve("ADA")
	require.NoError(t, err)
	assert.Equal(t, "ada", account.Username)
}

func TestManagerListPrefersNewest(t *testing.T) {
	older, newer := NewMemoryStore(), NewMemoryStore()
	now := time.Now()
	require.NoError(t, older.Store(&Account{Username: "ada", Password: "old", LastModified: now.Add(-time.Hour)}))
	require.NoError(t, newer.Store(&Account{Username: "ada", Password: "new", LastModified: now}))
	require.NoError(t, older.Store(&Account{Username: "bob", Password: "pw", LastModified: now}))

	accounts, err := NewManagerWithStores(older, newer).List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "ada", accounts[0].Username)
	assert.Equal(t, "new", accounts[0].Password)
	assert.Equal(t, "bob", accounts[1].Username)
}

func TestManagerDeleteMissing(t *testing.T) {
	manager := NewManagerWithStores(NewMemoryStore(), NewEnvironmentStore())
	assert.ErrorIs(t, manager.Delete("nobody"), ErrCredentialsNotFound)

	broken := NewMemoryStore()
	broken.Fail("delete", errors.New("keychain locked"))
	err := NewManagerWithStores(broken).Delete("ada")
	assert.ErrorContains(t, err, "keychain locked")
}

func TestSanitizeAccount(t *testing.T) {
	account := &Account{Username: "ada", Login: "ada@example.com", Password: "correct-horse-battery"}

	sanitized := SanitizeAccount(account)
	assert.Equal(t, "ada", sanitized.Username)
	assert.Equal(t, "ada@example.com", sanitized.Login)
	assert.Equal(t, "co...ry", sanitized.Password)
	assert.Equal(t, "********", SanitizeAccount(&Account{Password: "short"}).Password)
	assert.Nil(t, SanitizeAccount(nil))
}

func TestLoginName(t *testing.T) {
	assert.Equal(t, "ada@example.com", (&Account{Username: "ada", Login: "ada@example.com"}).LoginName())
	assert.Equal(t, "ada", (&Account{Username: "ada"}).LoginName())
}

func TestVaultRoundTrip(t *testing.T) {
	t.Setenv(EnvPassphrase, "test_passphrase_123")
	path := filepath.Join(t.TempDir(), "creds.enc")

	store, err := NewVault(path)
	require.NoError(t, err)

	account := &Account{Username: "ada", Login: "ada@example.com", Password: "encrypted_password"}
	require.NoError(t, store.Store(account))

	retrieved, err := store.Retrieve("ada")
	require.NoError(t, err)
	assert.Equal(t, account.Password, retrieved.Password)
	assert.True(t, store.Exists("ada"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(content, []byte("encrypted_password")))
	assert.False(t, bytes.Contains(content, []byte("ada@example.com")))

	require.NoError(t, store.Delete("ada"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestVaultWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.enc")

	t.Setenv(EnvPassphrase, "first")
	store, err := NewVault(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Account{Username: "ada", Password: "pw"}))

	t.Setenv(EnvPassphrase, "second")
	other, err := NewVault(path)
	require.NoError(t, err)
	_, err = other.Retrieve("ada")
	assert.ErrorIs(t, err, ErrVaultLocked)
	assert.False(t, other.Exists("ada"))
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv(envLogin, "ada@example.com")
	t.Setenv(envPassword, "env_password")
	t.Setenv(envUsername, "")

	store := NewEnvironmentStore()

	account, err := store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", account.Username)
	assert.Equal(t, "env_password", account.Password)

	account, err = store.Retrieve("ada")
	require.NoError(t, err)
	assert.Equal(t, "ada", account.Username)

	assert.ErrorIs(t, store.Store(&Account{}), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("ada"), ErrStoreUnavailable)
}

func TestEnvironmentStoreProfileMismatch(t *testing.T) {
	t.Setenv(envLogin, "ada@example.com")
	t.Setenv(envPassword, "pw")
	t.Setenv(envUsername, "ada")

	store := NewEnvironmentStore()
	assert.True(t, store.Exists("ada"))
	assert.False(t, store.Exists("bob"))
}

func TestEnvironmentStoreEmpty(t *testing.T) {
	t.Setenv(envLogin, "")
	t.Setenv(envPassword, "")

	accounts, err := NewEnvironmentStore().List()
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestRetrieveDefaultPrefersEnvironment(t *testing.T) {
	t.Setenv(envLogin, "env@example.com")
	t.Setenv(envPassword, "pw")
	t.Setenv(envUsername, "env")

	mem := NewMemoryStore()
	require.NoError(t, mem.Store(&Account{Username: "stored", Password: "pw"}))

	account, err := NewManagerWithStores(mem, NewEnvironmentStore()).RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "env", account.Username)
}

func TestRetrieveDefaultPicksMostRecent(t *testing.T) {
	t.Setenv(envLogin, "")
	t.Setenv(envPassword, "")

	mem := NewMemoryStore()
	now := time.Now()
	require.NoError(t, mem.Store(&Account{Username: "ada", Password: "pw", LastModified: now.Add(-time.Hour)}))
	require.NoError(t, mem.Store(&Account{Username: "bob", Password: "pw", LastModified: now}))

	account, err := NewManagerWithStores(mem, NewEnvironmentStore()).RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "bob", account.Username)

	_, err = NewManagerWithStores(NewMemoryStore()).RetrieveDefault()
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestMemoryStoreFailures(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Store(&Account{Username: "ada", Password: "pw"}))

	store.Fail("list", errors.New("injected error"))
	_, err := store.List()
	assert.EqualError(t, err, "injected error")

	store.Fail("list", nil)
	accounts, err := store.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestVaultListAndOverwrite(t *testing.T) {
	t.Setenv(EnvPassphrase, "pass")
	store, err := NewVault(filepath.Join(t.TempDir(), "creds.vault"))
	require.NoError(t, err)

	require.NoError(t, store.Store(&Account{Username: "bob", Password: "one"}))
	require.NoError(t, store.Store(&Account{Username: "ada", Password: "two"}))
	require.NoError(t, store.Store(&Account{Username: "Bob", Password: "three"}))

	accounts, err := store.List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "ada", accounts[0].Username)
	assert.Equal(t, "three", accounts[1].Password)

	assert.ErrorIs(t, store.Delete("carol"), ErrCredentialsNotFound)
}

func TestVaultGeneratesKeyFile(t *testing.T) {
	t.Setenv(EnvPassphrase, "")
	dir := t.TempDir()

	store, err := NewVault(filepath.Join(dir, "creds.vault"))
	require.NoError(t, err)
	require.NoError(t, store.Store(&Account{Username: "ada", Password: "pw"}))

	key, err := os.ReadFile(filepath.Join(dir, "vault.key"))
	require.NoError(t, err)
	assert.NotEmpty(t, key)

	reopened, err := NewVault(filepath.Join(dir, "creds.vault"))
	require.NoError(t, err)
	assert.True(t, reopened.Exists("ada"))
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	require.NoError(t, store.Store(&Account{Username: "bob", Password: "pw"}))
	require.NoError(t, store.Store(&Account{Username: "ada", Login: "ada@example.com", Password: "pw"}))

	account, err := store.Retrieve("@ADA")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", account.Login)

	accounts, err := store.List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "ada", accounts[0].Username)

	require.NoError(t, store.Delete("ada"))
	assert.False(t, store.Exists("ada"))
	assert.ErrorIs(t, store.Delete("ada"), ErrCredentialsNotFound)

	accounts, err = store.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestShowSetupGuide(t *testing.T) {
	var buf bytes.Buffer
	ShowSetupGuide(&buf)
	assert.Contains(t, buf.String(), envPassword)

	buf.Reset()
	ShowQuickGuide(&buf)
	assert.Contains(t, buf.String(), "replharvest auth login")
}

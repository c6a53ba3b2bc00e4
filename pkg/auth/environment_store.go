package auth

import (
	"os"
	"time"
)

const (
	envUsername = "REPLHARVEST_REPLIT_USERNAME"
	envLogin    = "REPLHARVEST_LOGIN"
	envPassword = "REPLHARVEST_PASSWORD"
)

// EnvironmentStore implements CredentialStore using environment variables.
// It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve builds an account from REPLHARVEST_LOGIN and REPLHARVEST_PASSWORD.
// A non-empty username must match the profile named in the environment, if any.
func (e *EnvironmentStore) Retrieve(username string) (*Account, error) {
	login := os.Getenv(envLogin)
	password := os.Getenv(envPassword)
	if login == "" || password == "" {
		return nil, ErrCredentialsNotFound
	}

	profile := profileKey(os.Getenv(envUsername))
	want := profileKey(username)
	switch {
	case profile == "" && want == "":
		profile = login
	case profile == "":
		profile = want
	case want != "" && want != profile:
		return nil, ErrCredentialsNotFound
	}

	return &Account{
		Username:     profile,
		Login:        login,
		Password:     password,
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if environment variables are set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(username string) bool {
	_, err := e.Retrieve(username)
	return err == nil
}

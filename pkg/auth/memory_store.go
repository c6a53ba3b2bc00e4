package auth

import (
	"sort"
	"sync"
)

// MemoryStore is a process-local CredentialStore. Fail lets callers make a
// given operation ("store", "retrieve", "list", "delete") return an error.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
	failures map[string]error
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: map[string]Account{}, failures: map[string]error{}}
}

// Fail makes op return err until cleared with a nil err
func (m *MemoryStore) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

func (m *MemoryStore) Store(account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["store"]; err != nil {
		return err
	}
	if account == nil || profileKey(account.Username) == "" {
		return ErrInvalidCredentials
	}
	m.accounts[profileKey(account.Username)] = *account
	return nil
}

func (m *MemoryStore) Retrieve(username string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failures["retrieve"]; err != nil {
		return nil, err
	}
	a, ok := m.accounts[profileKey(username)]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &a, nil
}

func (m *MemoryStore) List() ([]*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failures["list"]; err != nil {
		return nil, err
	}
	out := make([]*Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return profileKey(out[i].Username) < profileKey(out[j].Username) })
	return out, nil
}

func (m *MemoryStore) Delete(username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["delete"]; err != nil {
		return err
	}
	key := profileKey(username)
	if _, ok := m.accounts[key]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.accounts, key)
	return nil
}

func (m *MemoryStore) Exists(username string) bool {
	_, err := m.Retrieve(username)
	return err == nil
}

// Len returns the number of stored accounts
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts)
}

package checkpoint

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"replharvest/pkg/logger"
	"replharvest/pkg/models"
)

// Entry records one item the manifest saw succeed
type Entry struct {
	DisplayName string    `json:"display_name"`
	FetchedAt   time.Time `json:"fetched_at"`
	RunID       string    `json:"run_id"`
}

// Manifest is the advisory record of completed items for one profile.
// The destination directory stays the source of truth for resume.
type Manifest struct {
	Username  string           `json:"username"`
	RunID     string           `json:"run_id"`
	Runs      int              `json:"runs"`
	Completed map[string]Entry `json:"completed"` // identity key -> entry
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Version   int              `json:"version"`
}

// IsCompleted reports whether the manifest has seen key succeed
func (m *Manifest) IsCompleted(key string) bool {
	_, ok := m.Completed[key]
	return ok
}

// Manager handles manifest persistence
type Manager struct {
	path   string
	logger logger.Logger

	mu      sync.Mutex
	current *Manifest
}

// NewManager stores the manifest for username under the user data directory
func NewManager(username string) (*Manager, error) {
	dataDir, err := getDataDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}

	manifestsDir := filepath.Join(dataDir, "manifests")
	if err := os.MkdirAll(manifestsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create manifests directory: %w", err)
	}

	return NewManagerAt(filepath.Join(manifestsDir, fmt.Sprintf("%s.manifest.json", username)))
}

// NewManagerAt stores the manifest at an explicit path
func NewManagerAt(path string) (*Manager, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create manifest directory: %w", err)
	}
	return &Manager{path: path, logger: logger.GetLogger()}, nil
}

// WithLogger replaces the manager's logger
func (m *Manager) WithLogger(l logger.Logger) *Manager {
	m.logger = l
	return m
}

// Path returns the manifest file location
func (m *Manager) Path() string { return m.path }

// Begin loads the existing manifest (or creates one) and stamps a new run id
func (m *Manager) Begin(username string) (*Manifest, error) {
	manifest, err := m.Load()
	if err != nil {
		return nil, err
	}
	if manifest == nil {
		manifest = &Manifest{
			Username:  username,
			Completed: map[string]Entry{},
			CreatedAt: time.Now(),
			Version:   1,
		}
	}
	if manifest.Completed == nil {
		manifest.Completed = map[string]Entry{}
	}
	manifest.RunID = uuid.NewString()
	manifest.Runs++

	if err := m.Save(manifest); err != nil {
		return nil, fmt.Errorf("failed to save manifest: %w", err)
	}

	m.mu.Lock()
	m.current = manifest
	m.mu.Unlock()

	m.logger.DebugWithFields("Manifest opened", map[string]interface{}{
		"username":  username,
		"run_id":    manifest.RunID,
		"completed": len(manifest.Completed),
		"path":      m.path,
	})
	return manifest, nil
}

// Load loads an existing manifest; a missing file yields nil, nil
func (m *Manager) Load() (*Manifest, error) {
	file, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open manifest file: %w", err)
	}
	defer file.Close()

	var manifest Manifest
	if err := json.NewDecoder(file).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &manifest, nil
}

// Save saves the manifest to disk atomically
func (m *Manager) Save(manifest *Manifest) error {
	manifest.UpdatedAt = time.Now()

	tempPath := m.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary manifest file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(manifest); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync manifest file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close manifest file: %w", err)
	}

	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace manifest file: %w", err)
	}
	return nil
}

// RecordCompleted appends a successful item to the open manifest
func (m *Manager) RecordCompleted(item models.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return fmt.Errorf("manifest not opened")
	}
	m.current.Completed[item.IdentityKey] = Entry{
		DisplayName: item.DisplayName,
		FetchedAt:   time.Now(),
		RunID:       m.current.RunID,
	}
	return m.Save(m.current)
}

// Delete removes the manifest file
func (m *Manager) Delete() error {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete manifest: %w", err)
	}
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	m.logger.Info("Manifest deleted")
	return nil
}

// Exists checks if a manifest file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

// BackupSuffix is appended to the manifest path by Backup
const BackupSuffix = ".backup"

// Backup copies the manifest next to itself before a forced restart discards it
func (m *Manager) Backup() error {
	if !m.Exists() {
		return nil
	}

	src, err := os.Open(m.path)
	if err != nil {
		return fmt.Errorf("failed to open manifest for backup: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(m.path + BackupSuffix)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy manifest to backup: %w", err)
	}
	return nil
}

// Info returns a summary of the stored manifest, or nil when there is none
func (m *Manager) Info() (map[string]interface{}, error) {
	manifest, err := m.Load()
	if err != nil || manifest == nil {
		return nil, err
	}

	return map[string]interface{}{
		"username":   manifest.Username,
		"completed":  len(manifest.Completed),
		"runs":       manifest.Runs,
		"last_run":   manifest.RunID,
		"created_at": manifest.CreatedAt,
		"updated_at": manifest.UpdatedAt,
		"age":        time.Since(manifest.UpdatedAt),
	}, nil
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "replharvest")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "replharvest")
	default:
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "replharvest")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "replharvest")
		}
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}
